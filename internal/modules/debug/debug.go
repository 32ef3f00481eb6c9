package debug

import (
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/kengoodridge/ai-chatbot/internal/pkg/response"
	"github.com/kengoodridge/ai-chatbot/internal/registry"
)

type Handler struct {
	reg *registry.Registry
}

func NewHandler(reg *registry.Registry) *Handler { return &Handler{reg: reg} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/debug", authMW, adminMW)
	g.GET("/routes", h.routes)
}

type routeEntry struct {
	Path     string `json:"path"`
	Type     string `json:"type"`
	Method   string `json:"method,omitempty"`
	Language string `json:"language,omitempty"`
}

// GET /debug/routes — dump the live registry.
func (h *Handler) routes(c *gin.Context) {
	if err := h.reg.EnsureInitialized(c.Request.Context()); err != nil {
		response.InternalError(c)
		return
	}

	infos := h.reg.Routes()
	entries := make([]routeEntry, 0, len(infos))
	for _, info := range infos {
		entry := routeEntry{Path: info.Path, Type: "page"}
		if info.Kind == registry.KindEndpoint {
			entry.Type = "endpoint"
			entry.Method = info.Method
			entry.Language = string(info.Language)
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	response.OK(c, gin.H{"routes": entries, "count": len(entries)})
}
