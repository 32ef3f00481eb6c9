package sandbox

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
}

func TestWrapPythonSource(t *testing.T) {
	program := wrapPythonSource("return {\"ok\": True}")
	assert.Contains(t, program, "def endpoint_function(params):")
	assert.Contains(t, program, "    return {\"ok\": True}")
	assert.Contains(t, program, "Python execution error: ")

	empty := wrapPythonSource("")
	assert.Contains(t, empty, "    pass")
}

func TestCompilePythonEcho(t *testing.T) {
	requirePython(t)
	host := NewHost(zap.NewNop(), 5*time.Second, "python3")

	handler, err := host.Compile(LanguagePython, "return params")
	require.NoError(t, err)
	defer handler.Release()

	result, err := handler.Invoke(context.Background(), map[string]interface{}{"x": "5"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"x": "5"}, result)
}

func TestCompilePythonSyntaxError(t *testing.T) {
	requirePython(t)
	host := NewHost(zap.NewNop(), 5*time.Second, "python3")

	_, err := host.Compile(LanguagePython, "return ((")
	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, LanguagePython, compileErr.Language)
	assert.Contains(t, strings.ToLower(compileErr.Message), "syntax")
}

func TestInvokePythonGuestException(t *testing.T) {
	requirePython(t)
	host := NewHost(zap.NewNop(), 5*time.Second, "python3")

	handler, err := host.Compile(LanguagePython, `raise ValueError("nope")`)
	require.NoError(t, err)
	defer handler.Release()

	// Guest exceptions come back as an error-shaped result, not a Go error.
	result, err := handler.Invoke(context.Background(), nil)
	require.NoError(t, err)
	out, ok := result.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, out["error"], "Python execution error: nope")
	assert.Contains(t, out["details"], "ValueError")
}

func TestInvokePythonTimeout(t *testing.T) {
	requirePython(t)
	host := NewHost(zap.NewNop(), 5*time.Second, "python3")

	handler, err := host.Compile(LanguagePython, "while True:\n    pass")
	require.NoError(t, err)
	defer handler.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = handler.Invoke(ctx, nil)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestCompileMissingInterpreter(t *testing.T) {
	host := NewHost(zap.NewNop(), time.Second, "definitely-not-a-python")
	_, err := host.Compile(LanguagePython, "return {}")
	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Contains(t, compileErr.Message, "not available")
}

func TestStubHandlerReportsCompileFailure(t *testing.T) {
	stub := NewStub(&CompileError{Language: LanguageJavaScript, Message: "Unexpected token"})
	result, err := stub.Invoke(context.Background(), nil)
	require.NoError(t, err)
	out, ok := result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "JavaScript compilation error", out["error"])
	assert.Equal(t, "Unexpected token", out["details"])

	stub.Release()
	_, err = stub.Invoke(context.Background(), nil)
	assert.Error(t, err)
}
