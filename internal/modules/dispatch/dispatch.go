// Package dispatch resolves every non-reserved request path against the
// route registry: dynamic endpoints invoke their sandbox handler, stored
// pages are served verbatim, everything else is a 404.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kengoodridge/ai-chatbot/internal/pkg/response"
	"github.com/kengoodridge/ai-chatbot/internal/pkg/routepath"
	"github.com/kengoodridge/ai-chatbot/internal/registry"
	"github.com/kengoodridge/ai-chatbot/internal/sandbox"
	"github.com/kengoodridge/ai-chatbot/internal/store"
	"go.uber.org/zap"
)

type Handler struct {
	reg     *registry.Registry
	store   *store.Store
	timeout time.Duration
	logger  *zap.Logger
}

func NewHandler(reg *registry.Registry, st *store.Store, timeout time.Duration, logger *zap.Logger) *Handler {
	return &Handler{reg: reg, store: st, timeout: timeout, logger: logger.Named("dispatch")}
}

// Register installs the dispatcher as the router's catch-all.
func (h *Handler) Register(r *gin.Engine) {
	r.NoRoute(h.dispatch)
}

func (h *Handler) dispatch(c *gin.Context) {
	if err := h.reg.EnsureInitialized(c.Request.Context()); err != nil {
		h.logger.Error("registry initialization failed", zap.Error(err))
		response.InternalError(c)
		return
	}

	canonical := routepath.Canonical(c.Request.URL.Path)

	if info, ok := h.reg.Lookup(canonical); ok {
		switch info.Kind {
		case registry.KindEndpoint:
			if c.Request.Method == info.Method {
				h.invokeEndpoint(c, info)
				return
			}
		case registry.KindPage:
			servePage(c, info.HTML)
			return
		}
	}

	// A page registered after this process hydrated may only exist in the
	// store; serve it and converge the registry.
	page, err := h.store.GetPageByPath(canonical)
	if err == nil && page != nil {
		h.reg.RegisterPage(page.Path, page.HTMLContent)
		servePage(c, page.HTMLContent)
		return
	}

	response.NotFound(c)
}

func (h *Handler) invokeEndpoint(c *gin.Context, info *registry.RouteInfo) {
	params, ok := h.buildParams(c, info)
	if !ok {
		return
	}

	// Client disconnects abort body reading but never a running handler;
	// only the wall-clock budget cancels the invocation.
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	result, err := info.Handler.Invoke(ctx, params)
	if err != nil {
		h.writeInvokeError(c, info, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// buildParams extracts the parameter dictionary: declared query parameters
// for GET (missing ones stay null), the JSON request body for POST.
func (h *Handler) buildParams(c *gin.Context, info *registry.RouteInfo) (map[string]interface{}, bool) {
	params := map[string]interface{}{}

	if c.Request.Method == http.MethodGet {
		query := c.Request.URL.Query()
		for _, name := range info.Parameters {
			if values, present := query[name]; present && len(values) > 0 {
				params[name] = values[0]
			} else {
				params[name] = nil
			}
		}
		return params, true
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "Invalid JSON body")
		return nil, false
	}
	if len(body) == 0 {
		return params, true
	}
	if err := json.Unmarshal(body, &params); err != nil {
		response.BadRequest(c, "Invalid JSON body")
		return nil, false
	}
	return params, true
}

func (h *Handler) writeInvokeError(c *gin.Context, info *registry.RouteInfo, err error) {
	var timeout *sandbox.TimeoutError
	var runtime *sandbox.RuntimeError
	switch {
	case errors.As(err, &timeout):
		response.ExecError(c, http.StatusGatewayTimeout, "Endpoint timed out", "")
	case errors.As(err, &runtime):
		h.logger.Warn("endpoint execution failed",
			zap.String("path", info.Path), zap.String("error", runtime.Message))
		response.ExecError(c, http.StatusInternalServerError, "Error executing endpoint", runtime.Message)
	default:
		h.logger.Error("endpoint execution failed",
			zap.String("path", info.Path), zap.Error(err))
		response.InternalError(c)
	}
}

func servePage(c *gin.Context, html string) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
