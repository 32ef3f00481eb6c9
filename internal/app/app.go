package app

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kengoodridge/ai-chatbot/internal/config"
	"github.com/kengoodridge/ai-chatbot/internal/middleware"
	"github.com/kengoodridge/ai-chatbot/internal/modules/auth"
	"github.com/kengoodridge/ai-chatbot/internal/modules/debug"
	"github.com/kengoodridge/ai-chatbot/internal/modules/dispatch"
	"github.com/kengoodridge/ai-chatbot/internal/modules/endpoint"
	"github.com/kengoodridge/ai-chatbot/internal/modules/generator"
	"github.com/kengoodridge/ai-chatbot/internal/modules/page"
	"github.com/kengoodridge/ai-chatbot/internal/modules/project"
	jwtpkg "github.com/kengoodridge/ai-chatbot/internal/pkg/jwt"
	"github.com/kengoodridge/ai-chatbot/internal/registry"
	"github.com/kengoodridge/ai-chatbot/internal/sandbox"
	"github.com/kengoodridge/ai-chatbot/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	reg    *registry.Registry
	logger *zap.Logger
}

// New wires config → store → sandbox → registry → routes.
func New(logger *zap.Logger, cfg *config.AppConfig, db *gorm.DB) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if secret := strings.TrimSpace(cfg.SessionSecret); secret != "" {
		jwtpkg.SetSecret(secret)
	} else {
		logger.Warn("session_secret is empty, using built-in default secret")
	}

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(newCORS(cfg))

	st := store.New(db)
	host := sandbox.NewHost(logger, cfg.HandlerTimeout(), cfg.PythonBin)
	reg := registry.New(st, host, logger)

	app := &App{cfg: cfg, router: router, reg: reg, logger: logger}
	app.registerRoutes(db, st, reg)
	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Registry exposes the route registry (warm-up at boot).
func (a *App) Registry() *registry.Registry { return a.reg }

func (a *App) registerRoutes(db *gorm.DB, st *store.Store, reg *registry.Registry) {
	r := a.router
	authMW := middleware.Auth(db)
	adminMW := middleware.AdminOnly(db)

	api := r.Group("/api")

	if a.cfg.RedisURL != "" {
		opts, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			a.logger.Warn("invalid redis_url, idempotence disabled", zap.Error(err))
		} else {
			api.Use(middleware.Idempotence(redis.NewClient(opts)))
		}
	}

	endpointSvc := endpoint.NewService(st, reg, a.logger)
	pageSvc := page.NewService(st, reg, a.logger)
	projectSvc := project.NewService(st, reg, a.cfg.ShouldCascadeProjectDelete(), a.logger)

	auth.NewHandler(auth.NewService(db)).RegisterRoutes(api, authMW)
	project.NewHandler(projectSvc).RegisterRoutes(api, authMW)
	endpoint.NewHandler(endpointSvc).RegisterRoutes(api, authMW)
	page.NewHandler(pageSvc).RegisterRoutes(api, authMW)
	debug.NewHandler(reg).RegisterRoutes(api, authMW, adminMW)

	var gen generator.Generator
	if key := strings.TrimSpace(a.cfg.Anthropic.APIKey); key != "" {
		gen = generator.NewAnthropicGenerator(key, a.cfg.Anthropic.Model)
	}
	generator.NewHandler(gen, endpointSvc, pageSvc, a.logger).RegisterRoutes(api, authMW)

	// Everything the static router does not claim goes to the dispatcher.
	dispatch.NewHandler(reg, st, a.cfg.HandlerTimeout(), a.logger).Register(r)
}

func newCORS(cfg *config.AppConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Idempotence"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	return cors.New(corsConfig)
}

// extractOriginHost returns the "host[:port]" portion of an origin URL.
func extractOriginHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}

// matchOriginPattern reports whether host matches the given wildcard pattern.
func matchOriginPattern(pattern, host string) bool {
	if pattern == host {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[1:]
		return strings.HasSuffix(host, suffix)
	}
	if strings.HasSuffix(pattern, ":*") {
		prefix := pattern[:len(pattern)-1]
		return strings.HasPrefix(host, prefix)
	}
	return false
}
