package generator

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kengoodridge/ai-chatbot/internal/middleware"
	endpointmod "github.com/kengoodridge/ai-chatbot/internal/modules/endpoint"
	pagemod "github.com/kengoodridge/ai-chatbot/internal/modules/page"
	"github.com/kengoodridge/ai-chatbot/internal/pkg/response"
	"go.uber.org/zap"
)

type GenerateEndpointDTO struct {
	Prompt     string   `json:"prompt"`
	ProjectID  string   `json:"projectId"`
	Path       string   `json:"path"`
	Parameters []string `json:"parameters"`
	HTTPMethod string   `json:"httpMethod"`
	Language   string   `json:"language"`
}

type GeneratePageDTO struct {
	Prompt    string `json:"prompt"`
	ProjectID string `json:"projectId"`
	Path      string `json:"path"`
}

// Handler turns a generated text blob into a normal create through the CRUD
// services. A nil Generator disables the surface with 503.
type Handler struct {
	gen       Generator
	endpoints *endpointmod.Service
	pages     *pagemod.Service
	logger    *zap.Logger
}

func NewHandler(gen Generator, endpoints *endpointmod.Service, pages *pagemod.Service, logger *zap.Logger) *Handler {
	return &Handler{gen: gen, endpoints: endpoints, pages: pages, logger: logger.Named("generator")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/generate", authMW)
	g.POST("/endpoint", h.generateEndpoint)
	g.POST("/page", h.generatePage)
}

func (h *Handler) generateEndpoint(c *gin.Context) {
	if h.gen == nil {
		response.Unavailable(c, "generator is not configured")
		return
	}

	var dto GenerateEndpointDTO
	if err := c.ShouldBindJSON(&dto); err != nil ||
		strings.TrimSpace(dto.Prompt) == "" || dto.ProjectID == "" || dto.Path == "" {
		response.BadRequest(c, "prompt, projectId and path are required")
		return
	}

	language := strings.ToLower(strings.TrimSpace(dto.Language))
	if language == "" {
		language = "javascript"
	}

	code, err := h.gen.Generate(c.Request.Context(), endpointPrompt(language, dto))
	if err != nil {
		h.logger.Warn("endpoint generation failed", zap.Error(err))
		response.Unavailable(c, "generation failed")
		return
	}

	// Generated code goes through the regular create: a non-compiling blob
	// still yields a registered stub, visible on the next request.
	ep, err := h.endpoints.Create(middleware.CurrentUserID(c), endpointmod.CreateEndpointDTO{
		Path:       dto.Path,
		Code:       code,
		Parameters: dto.Parameters,
		HTTPMethod: dto.HTTPMethod,
		Language:   language,
		ProjectID:  dto.ProjectID,
	})
	if err != nil {
		endpointmod.WriteServiceError(c, err)
		return
	}
	response.Created(c, ep)
}

func (h *Handler) generatePage(c *gin.Context) {
	if h.gen == nil {
		response.Unavailable(c, "generator is not configured")
		return
	}

	var dto GeneratePageDTO
	if err := c.ShouldBindJSON(&dto); err != nil ||
		strings.TrimSpace(dto.Prompt) == "" || dto.ProjectID == "" || dto.Path == "" {
		response.BadRequest(c, "prompt, projectId and path are required")
		return
	}

	html, err := h.gen.Generate(c.Request.Context(), pagePrompt(dto.Prompt))
	if err != nil {
		h.logger.Warn("page generation failed", zap.Error(err))
		response.Unavailable(c, "generation failed")
		return
	}

	page, err := h.pages.Create(middleware.CurrentUserID(c), pagemod.CreatePageDTO{
		Path:        dto.Path,
		HTMLContent: html,
		ProjectID:   dto.ProjectID,
		Reanchor:    true,
	})
	if err != nil {
		pagemod.WriteServiceError(c, err)
		return
	}
	response.Created(c, page)
}

func endpointPrompt(language string, dto GenerateEndpointDTO) string {
	var b strings.Builder
	switch language {
	case "python":
		b.WriteString("Write the body of a Python function endpoint_function(params). ")
		b.WriteString("params is a dict; return a JSON-serializable dict. ")
		b.WriteString("Respond with only the function body, no def line, no markdown.\n")
	default:
		b.WriteString("Write a JavaScript function declaration named endpoint_function(params). ")
		b.WriteString("params is a plain object; return a JSON-serializable value. ")
		b.WriteString("Respond with only the code, no markdown.\n")
	}
	if len(dto.Parameters) > 0 {
		fmt.Fprintf(&b, "Declared parameters: %s.\n", strings.Join(dto.Parameters, ", "))
	}
	b.WriteString("Task: ")
	b.WriteString(dto.Prompt)
	return b.String()
}

func pagePrompt(prompt string) string {
	return "Write a complete standalone HTML document. Respond with only the HTML, no markdown.\nTask: " + prompt
}
