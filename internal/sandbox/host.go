// Package sandbox turns owner-supplied source text into callables running in
// isolated guest contexts. JavaScript executes on an embedded engine; Python
// executes in a per-invocation interpreter subprocess. Handlers are
// refcounted so a release during an in-flight call defers teardown until the
// call returns.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Language selects the guest language of a handler.
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguagePython     Language = "python"
)

// ValidLanguage reports whether the host can compile the given language.
func ValidLanguage(l Language) bool {
	return l == LanguageJavaScript || l == LanguagePython
}

// CompileError reports that guest source could not be turned into a callable.
type CompileError struct {
	Language Language
	Message  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s compile error: %s", e.Language, e.Message)
}

// RuntimeError reports a guest failure during invocation.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }

// TimeoutError reports that an invocation exceeded its wall-clock budget.
type TimeoutError struct{}

func (e *TimeoutError) Error() string { return "execution timed out" }

// Handler is a compiled guest callable.
//
// Invoke marshals params into the guest, runs the endpoint function and
// returns a JSON-compatible value. Release marks the handler for teardown;
// it is idempotent, and actual teardown waits for in-flight invocations.
type Handler interface {
	Invoke(ctx context.Context, params map[string]interface{}) (interface{}, error)
	Release()
}

// Host compiles guest source for the supported languages.
type Host struct {
	logger  *zap.Logger
	timeout time.Duration
	python  string
}

func NewHost(logger *zap.Logger, timeout time.Duration, pythonBin string) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pythonBin == "" {
		pythonBin = "python3"
	}
	return &Host{logger: logger, timeout: timeout, python: pythonBin}
}

// Compile turns source into a Handler. A *CompileError means the source is
// broken; callers that must keep the route visible register a stub instead
// (see NewStub).
func (h *Host) Compile(language Language, source string) (Handler, error) {
	switch language {
	case LanguageJavaScript:
		return h.compileJavaScript(source)
	case LanguagePython:
		return h.compilePython(source)
	default:
		return nil, &CompileError{Language: language, Message: fmt.Sprintf("unsupported language %q", language)}
	}
}

// refGate serializes handler teardown against in-flight invocations.
type refGate struct {
	mu       sync.Mutex
	inflight int
	released bool
	teardown func()
}

// acquire registers an invocation. It fails once the handler is released.
func (g *refGate) acquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return false
	}
	g.inflight++
	return true
}

func (g *refGate) done() {
	g.mu.Lock()
	g.inflight--
	fire := g.released && g.inflight == 0 && g.teardown != nil
	var teardown func()
	if fire {
		teardown = g.teardown
		g.teardown = nil
	}
	g.mu.Unlock()
	if teardown != nil {
		teardown()
	}
}

// release marks the gate released; the teardown runs immediately when idle,
// otherwise when the last in-flight invocation finishes.
func (g *refGate) release() {
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return
	}
	g.released = true
	fire := g.inflight == 0 && g.teardown != nil
	var teardown func()
	if fire {
		teardown = g.teardown
		g.teardown = nil
	}
	g.mu.Unlock()
	if teardown != nil {
		teardown()
	}
}

var errReleased = &RuntimeError{Message: "endpoint handler was replaced"}

// toJSONValue coerces a guest result to something the encoder can serialize,
// substituting the sentinel error object otherwise.
func toJSONValue(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	if _, err := json.Marshal(v); err != nil {
		return map[string]interface{}{"error": "non-serializable result"}
	}
	return v
}
