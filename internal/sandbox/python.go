package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

type pyHandler struct {
	gate    refGate
	program string
	python  string
	logger  *zap.Logger
}

// compilePython wraps the user source into the generated endpoint_function
// and syntax-checks the wrapped module with the interpreter's ast parser.
// The wrapped program stays resident as text; each invocation runs it in a
// fresh interpreter process.
func (h *Host) compilePython(source string) (Handler, error) {
	if _, err := exec.LookPath(h.python); err != nil {
		return nil, &CompileError{
			Language: LanguagePython,
			Message:  fmt.Sprintf("python interpreter %q not available", h.python),
		}
	}

	program := wrapPythonSource(source)

	checkCtx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	check := exec.CommandContext(checkCtx, h.python, "-c", "import ast, sys; ast.parse(sys.stdin.read())")
	check.Stdin = strings.NewReader(program)
	var stderr bytes.Buffer
	check.Stderr = &stderr
	if err := check.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, &CompileError{Language: LanguagePython, Message: msg}
	}

	return &pyHandler{program: program, python: h.python, logger: h.logger}, nil
}

// wrapPythonSource generates the module executed per invocation: the user
// body indented into endpoint_function, plus a runner that reads the params
// dictionary from stdin and writes the JSON result to stdout. Guest
// exceptions become an error-shaped result value rather than a crash.
func wrapPythonSource(source string) string {
	var b strings.Builder
	b.WriteString("import json\nimport sys\nimport traceback\n\n")
	b.WriteString("def endpoint_function(params):\n")
	lines := strings.Split(source, "\n")
	empty := true
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			empty = false
		}
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	if empty {
		b.WriteString("    pass\n")
	}
	b.WriteString(`
def __run():
    try:
        raw = sys.stdin.read()
        params = json.loads(raw) if raw.strip() else {}
        result = endpoint_function(params)
        try:
            out = json.dumps(result)
        except (TypeError, ValueError):
            out = json.dumps({"error": "non-serializable result"})
        sys.stdout.write(out)
    except Exception as exc:
        sys.stdout.write(json.dumps({
            "error": "Python execution error: " + str(exc),
            "details": traceback.format_exc(),
        }))

__run()
`)
	return b.String()
}

func (ph *pyHandler) Invoke(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if !ph.gate.acquire() {
		return nil, errReleased
	}
	defer ph.gate.done()

	if params == nil {
		params = map[string]interface{}{}
	}
	input, err := json.Marshal(params)
	if err != nil {
		return nil, &RuntimeError{Message: fmt.Sprintf("marshal params: %v", err)}
	}

	cmd := exec.CommandContext(ctx, ph.python, "-c", ph.program)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, &TimeoutError{}
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, &RuntimeError{Message: msg}
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return nil, nil
	}
	var result interface{}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		ph.logger.Named("sandbox.py").Warn("non-JSON interpreter output", zap.String("output", out))
		return nil, &RuntimeError{Message: "interpreter produced non-JSON output"}
	}
	return result, nil
}

func (ph *pyHandler) Release() { ph.gate.release() }
