// Package registry maintains the in-memory path → RouteInfo mapping shared
// by the dispatcher and the CRUD surface. Mutations are serialized; lookups
// only ever observe fully-installed entries.
package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/kengoodridge/ai-chatbot/internal/models"
	"github.com/kengoodridge/ai-chatbot/internal/sandbox"
	"go.uber.org/zap"
)

// Kind tags a RouteInfo as a dynamic endpoint or a stored page.
type Kind int

const (
	KindEndpoint Kind = iota
	KindPage
)

// RouteInfo is the registry's record for one path.
type RouteInfo struct {
	Kind       Kind
	Path       string
	Parameters []string
	Method     string
	Language   sandbox.Language
	Handler    sandbox.Handler

	HTML string
}

// Store is the subset of persistence the registry needs for hydration and
// refresh.
type Store interface {
	ListAllEndpoints() ([]models.EndpointModel, error)
	ListAllPages() ([]models.PageModel, error)
	GetEndpointByPath(path string) (*models.EndpointModel, error)
	GetPageByPath(path string) (*models.PageModel, error)
}

type initState int

const (
	stateUninitialized initState = iota
	stateInitializing
	stateReady
)

type Registry struct {
	store  Store
	host   *sandbox.Host
	logger *zap.Logger

	mu     sync.RWMutex
	routes map[string]*RouteInfo

	// writeMu serializes register/refresh/unregister against each other.
	writeMu sync.Mutex

	initMu   sync.Mutex
	state    initState
	initDone chan struct{}
}

func New(store Store, host *sandbox.Host, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		store:  store,
		host:   host,
		logger: logger.Named("registry"),
		routes: map[string]*RouteInfo{},
	}
}

// EnsureInitialized hydrates the registry from the store on first call.
// Concurrent callers during hydration wait for the same completion; a failed
// hydration resets to uninitialized so the next call retries.
func (r *Registry) EnsureInitialized(ctx context.Context) error {
	for {
		r.initMu.Lock()
		switch r.state {
		case stateReady:
			r.initMu.Unlock()
			return nil
		case stateInitializing:
			done := r.initDone
			r.initMu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
		case stateUninitialized:
			done := make(chan struct{})
			r.state = stateInitializing
			r.initDone = done
			r.initMu.Unlock()

			err := r.hydrate()

			r.initMu.Lock()
			if err != nil {
				r.state = stateUninitialized
			} else {
				r.state = stateReady
			}
			close(done)
			r.initMu.Unlock()
			return err
		}
	}
}

func (r *Registry) hydrate() error {
	endpoints, err := r.store.ListAllEndpoints()
	if err != nil {
		return err
	}
	pages, err := r.store.ListAllPages()
	if err != nil {
		return err
	}

	for i := range endpoints {
		r.RegisterEndpoint(&endpoints[i])
	}
	for _, page := range pages {
		r.RegisterPage(page.Path, page.HTMLContent)
	}
	r.logger.Info("registry hydrated",
		zap.Int("endpoints", len(endpoints)),
		zap.Int("pages", len(pages)),
	)
	return nil
}

// RegisterEndpoint compiles the endpoint and installs it, replacing and
// releasing any prior registration at the same path. A compile failure
// installs a stub so the broken endpoint stays visible; the compile error is
// returned for logging.
func (r *Registry) RegisterEndpoint(ep *models.EndpointModel) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	handler, err := r.host.Compile(sandbox.Language(ep.Language), ep.Code)
	var compileErr *sandbox.CompileError
	if err != nil {
		if !errors.As(err, &compileErr) {
			return err
		}
		handler = sandbox.NewStub(compileErr)
		r.logger.Warn("endpoint registered with stub handler",
			zap.String("path", ep.Path),
			zap.String("error", compileErr.Message),
		)
	}

	info := &RouteInfo{
		Kind:       KindEndpoint,
		Path:       ep.Path,
		Parameters: append([]string(nil), ep.Parameters...),
		Method:     ep.HTTPMethod,
		Language:   sandbox.Language(ep.Language),
		Handler:    handler,
	}
	r.install(ep.Path, info)
	if compileErr != nil {
		return compileErr
	}
	return nil
}

// RegisterPage installs or replaces the page at path.
func (r *Registry) RegisterPage(path, html string) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.install(path, &RouteInfo{Kind: KindPage, Path: path, HTML: html})
}

// RefreshEndpoint re-reads the store by path: present re-registers, absent
// removes.
func (r *Registry) RefreshEndpoint(path string) error {
	ep, err := r.store.GetEndpointByPath(path)
	if err != nil {
		return err
	}
	if ep == nil {
		r.Unregister(path)
		return nil
	}
	return r.RegisterEndpoint(ep)
}

// RefreshPage mirrors RefreshEndpoint for pages.
func (r *Registry) RefreshPage(path string) error {
	page, err := r.store.GetPageByPath(path)
	if err != nil {
		return err
	}
	if page == nil {
		r.Unregister(path)
		return nil
	}
	r.RegisterPage(page.Path, page.HTMLContent)
	return nil
}

// Unregister removes the entry at path and releases its handler.
func (r *Registry) Unregister(path string) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	old := r.routes[path]
	delete(r.routes, path)
	r.mu.Unlock()

	if old != nil && old.Handler != nil {
		old.Handler.Release()
	}
}

// Lookup returns the installed RouteInfo for path.
func (r *Registry) Lookup(path string) (*RouteInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.routes[path]
	return info, ok
}

// ListPaths returns all registered paths.
func (r *Registry) ListPaths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.routes))
	for path := range r.routes {
		paths = append(paths, path)
	}
	return paths
}

// Routes returns a snapshot of all registered RouteInfo values.
func (r *Registry) Routes() []*RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]*RouteInfo, 0, len(r.routes))
	for _, info := range r.routes {
		infos = append(infos, info)
	}
	return infos
}

// install swaps the entry in under the map's write lock, then releases the replaced
// handler. In-flight invocations on the old handler finish before teardown.
func (r *Registry) install(path string, info *RouteInfo) {
	r.mu.Lock()
	old := r.routes[path]
	r.routes[path] = info
	r.mu.Unlock()

	if old != nil && old.Handler != nil {
		old.Handler.Release()
	}
}
