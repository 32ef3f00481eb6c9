package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	esbuild "github.com/evanw/esbuild/pkg/api"
)

const endpointFunctionName = "endpoint_function"

// interruptTimeout is the sentinel passed to vm.Interrupt on deadline.
const interruptTimeout = "endpoint-timeout"

type jsHandler struct {
	gate refGate
	prog *goja.Program
	host *Host
}

// compileJavaScript validates the source with esbuild, compiles it for the
// engine, and probes a fresh context to check that it defines
// endpoint_function.
func (h *Host) compileJavaScript(source string) (Handler, error) {
	result := esbuild.Transform(source, esbuild.TransformOptions{
		Loader:     esbuild.LoaderJS,
		Target:     esbuild.ES2017,
		Sourcefile: "endpoint.js",
		Charset:    esbuild.CharsetUTF8,
	})
	if len(result.Errors) > 0 {
		return nil, &CompileError{Language: LanguageJavaScript, Message: result.Errors[0].Text}
	}

	prog, err := goja.Compile("endpoint.js", string(result.Code), false)
	if err != nil {
		return nil, &CompileError{Language: LanguageJavaScript, Message: err.Error()}
	}

	// Probe run: the evaluated source must leave a callable in the
	// endpoint_function slot.
	vm := h.newSandboxVM()
	if _, err := vm.RunProgram(prog); err != nil {
		return nil, &CompileError{Language: LanguageJavaScript, Message: err.Error()}
	}
	if _, ok := goja.AssertFunction(vm.Get(endpointFunctionName)); !ok {
		return nil, &CompileError{
			Language: LanguageJavaScript,
			Message:  "code must define a function endpoint_function(params)",
		}
	}

	return &jsHandler{prog: prog, host: h}, nil
}

// newSandboxVM builds a fresh context exposing only console and a writable
// endpoint_function slot.
func (h *Host) newSandboxVM() *goja.Runtime {
	vm := goja.New()
	log := h.logger.Named("sandbox.js")

	console := vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		level := level
		_ = console.Set(level, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, 0, len(call.Arguments))
			for _, arg := range call.Arguments {
				parts = append(parts, consoleValueToString(arg))
			}
			line := strings.Join(parts, " ")
			switch level {
			case "warn", "error":
				log.Warn(line)
			default:
				log.Debug(line)
			}
			return goja.Undefined()
		})
	}
	_ = vm.Set("console", console)
	_ = vm.Set(endpointFunctionName, goja.Undefined())
	return vm
}

func consoleValueToString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	return fmt.Sprintf("%v", v.Export())
}

func (jh *jsHandler) Invoke(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if !jh.gate.acquire() {
		return nil, errReleased
	}
	defer jh.gate.done()

	vm := jh.host.newSandboxVM()

	// The engine cannot cancel synchronous guest code; Interrupt aborts it
	// at the next instruction boundary.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(interruptTimeout)
		case <-watchDone:
		}
	}()

	if _, err := vm.RunProgram(jh.prog); err != nil {
		return nil, normalizeJSError(ctx, err)
	}

	fn, ok := goja.AssertFunction(vm.Get(endpointFunctionName))
	if !ok {
		return nil, &RuntimeError{Message: "endpoint_function is not defined"}
	}

	if params == nil {
		params = map[string]interface{}{}
	}
	resultValue, err := fn(goja.Undefined(), vm.ToValue(params))
	if err != nil {
		return nil, normalizeJSError(ctx, err)
	}

	return exportJSResult(resultValue)
}

func (jh *jsHandler) Release() { jh.gate.release() }

func exportJSResult(value goja.Value) (interface{}, error) {
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, nil
	}
	if p, ok := value.Export().(*goja.Promise); ok {
		switch p.State() {
		case goja.PromiseStatePending:
			return nil, &RuntimeError{Message: "endpoint returned a pending promise"}
		case goja.PromiseStateRejected:
			return nil, &RuntimeError{Message: fmt.Sprintf("promise rejected: %v", p.Result().Export())}
		default:
			return exportJSResult(p.Result())
		}
	}
	return toJSONValue(value.Export()), nil
}

func normalizeJSError(ctx context.Context, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if interrupted.Value() == interruptTimeout || ctx.Err() != nil {
			return &TimeoutError{}
		}
		return &RuntimeError{Message: "execution interrupted"}
	}

	var exception *goja.Exception
	if errors.As(err, &exception) {
		return &RuntimeError{Message: exceptionMessage(exception.Value())}
	}
	return &RuntimeError{Message: err.Error()}
}

func exceptionMessage(value goja.Value) string {
	if value == nil || goja.IsNull(value) || goja.IsUndefined(value) {
		return "unknown runtime error"
	}
	// Error objects keep message as a non-enumerable property, which Export
	// does not carry over; read it from the object directly.
	if obj, ok := value.(*goja.Object); ok {
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) && !goja.IsNull(msg) {
			if s := msg.String(); s != "" {
				return s
			}
		}
	}
	switch v := value.Export().(type) {
	case string:
		return v
	case error:
		return v.Error()
	case map[string]interface{}:
		if msg, ok := v["message"].(string); ok && msg != "" {
			return msg
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
