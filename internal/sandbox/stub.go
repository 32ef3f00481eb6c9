package sandbox

import (
	"context"
	"strings"
)

// stubHandler stands in for source that failed to compile. Registration keeps
// the route visible; invoking it reports the stored compile failure.
type stubHandler struct {
	gate    refGate
	payload map[string]interface{}
}

// NewStub builds the stub handler for a failed compile. The response body
// carries the original compiler message in details.
func NewStub(compileErr *CompileError) Handler {
	label := "compilation error"
	switch compileErr.Language {
	case LanguageJavaScript:
		label = "JavaScript compilation error"
	case LanguagePython:
		label = "Python compilation error"
	}
	return &stubHandler{
		payload: map[string]interface{}{
			"error":   label,
			"details": strings.TrimSpace(compileErr.Message),
		},
	}
}

func (sh *stubHandler) Invoke(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if !sh.gate.acquire() {
		return nil, errReleased
	}
	defer sh.gate.done()
	return sh.payload, nil
}

func (sh *stubHandler) Release() { sh.gate.release() }
