package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/lox/internal/config"
	"github.com/funvibe/lox/internal/vm"
)

func runMain(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Main(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{"success", `print 1 + 2;`, ExitOK, "3\n", ""},
		{"compile error", `print 1 +;`, ExitCompileError, "", "[line 1] Error at ';': Expect expression.\n"},
		{"runtime error", "print 1;\nprint -nil;", ExitRuntimeError, "1\n", "Operand must be a number.\n[line 2] in script\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "main.lox", tt.source)
			code, out, errOut := runMain(t, "", path)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if out != tt.wantOut {
				t.Errorf("stdout = %q, want %q", out, tt.wantOut)
			}
			if errOut != tt.wantErr {
				t.Errorf("stderr = %q, want %q", errOut, tt.wantErr)
			}
		})
	}
}

func TestMissingScriptIsIOError(t *testing.T) {
	code, _, errOut := runMain(t, "", filepath.Join(t.TempDir(), "missing.lox"))
	if code != ExitIOError {
		t.Errorf("exit code = %d, want %d", code, ExitIOError)
	}
	if !strings.Contains(errOut, "Could not read file") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestUsageErrors(t *testing.T) {
	tests := map[string][]string{
		"two scripts":       {"a.lox", "b.lox"},
		"unknown flag":      {"-nope"},
		"config needs file": {"-config"},
		"e needs source":    {"-e"},
		"e with script":     {"-e", "print 1;", "a.lox"},
		"disassemble alone": {"-disassemble"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			code, _, _ := runMain(t, "", args...)
			if code != ExitUsage {
				t.Errorf("exit code = %d, want %d", code, ExitUsage)
			}
		})
	}
}

func TestEvalFlag(t *testing.T) {
	code, out, _ := runMain(t, "", "-e", `var a = "lo"; print a + "x";`)
	if code != ExitOK || out != "lox\n" {
		t.Errorf("got %d %q", code, out)
	}
}

func TestScriptFromStdin(t *testing.T) {
	code, out, _ := runMain(t, "print 7;", "-")
	if code != ExitOK || out != "7\n" {
		t.Errorf("got %d %q", code, out)
	}
}

func TestVersionAndHelp(t *testing.T) {
	code, out, _ := runMain(t, "", "-version")
	if code != ExitOK || !strings.HasPrefix(out, "lox ") {
		t.Errorf("version: %d %q", code, out)
	}

	code, out, _ = runMain(t, "", "-help")
	if code != ExitOK || !strings.Contains(out, "Usage: lox") {
		t.Errorf("help: %d %q", code, out)
	}
}

func TestDisassembleFlag(t *testing.T) {
	code, out, _ := runMain(t, "", "-disassemble", "-e", `print 1;`)
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	for _, want := range []string{"== script ==", "CONST", "PRINT", "RETURN"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}

	code, out, errOut := runMain(t, "", "-disassemble", "-e", `print;`)
	if code != ExitCompileError || out != "" || !strings.Contains(errOut, "Expect expression.") {
		t.Errorf("got %d %q %q", code, out, errOut)
	}
}

func TestREPLEchoesAndKeepsGlobals(t *testing.T) {
	input := "var a = 1;\n\na + 1;\nprint -nil;\na = a + 10;\nprint a;\n"
	code, out, errOut := runMain(t, input)
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	// A piped session prints no prompt or banner.
	if out != "2\n11\n11\n" {
		t.Errorf("stdout = %q", out)
	}
	if errOut != "Operand must be a number.\n[line 1] in script\n" {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestREPLPromptWhenInteractive(t *testing.T) {
	var stdout, stderr bytes.Buffer
	machine := vm.New(config.Defaults())
	machine.SetOutput(&stdout)
	machine.SetErrorOutput(&stderr)
	code := runREPL(machine, strings.NewReader("1 + 1;\n"), &stdout, &stderr, true)
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	got := stdout.String()
	if !strings.HasPrefix(got, "lox ") || !strings.HasSuffix(got, "> 2\n> \n") {
		t.Errorf("stdout = %q", got)
	}
}

func TestConfigFlag(t *testing.T) {
	deep := "fun f(n) { if (n > 0) f(n - 1); } f(20); print \"ok\";"

	shallow := writeFile(t, "lox.yaml", "max_frames: 8\n")
	code, _, errOut := runMain(t, "", "-config", shallow, "-e", deep)
	if code != ExitRuntimeError || !strings.Contains(errOut, "Stack overflow.") {
		t.Errorf("yaml limit ignored: %d %q", code, errOut)
	}

	roomy := writeFile(t, "lox.toml", "max_frames = 64\n[gc]\nstress = true\n")
	code, out, _ := runMain(t, "", "-config", roomy, "-e", deep)
	if code != ExitOK || out != "ok\n" {
		t.Errorf("toml config: %d %q", code, out)
	}

	bad := writeFile(t, "lox.json", "{}")
	if code, _, _ := runMain(t, "", "-config", bad, "-e", deep); code != ExitUsage {
		t.Errorf("unsupported config format: exit code %d", code)
	}
}

func TestVerboseFlagCounts(t *testing.T) {
	opts, err := parseArgs([]string{"-v", "-vv", "x.lox"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.verbosity != 3 || opts.script != "x.lox" {
		t.Errorf("got %+v", opts)
	}
	if isVerboseFlag("-verbose") {
		t.Error("-verbose is not a verbosity flag")
	}
}

func TestDebugVerbosity(t *testing.T) {
	s := config.Defaults()
	if got := debugVerbosity(s); got != -1 {
		t.Errorf("defaults need no extra verbosity, got %d", got)
	}
	s.Debug.PrintCode = true
	if got := debugVerbosity(s); got != 1 {
		t.Errorf("print_code: got %d", got)
	}
	s.Debug.TraceExecution = true
	if got := debugVerbosity(s); got != 2 {
		t.Errorf("trace_execution: got %d", got)
	}
}

func TestLoggingGoesToStderr(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		config  string
		want    []string
		wantNot []string
	}{
		{
			name: "quiet by default",
		},
		{
			name:    "notices only with -v",
			args:    []string{"-v"},
			wantNot: []string{"session started"},
		},
		{
			name: "info with -vv",
			args: []string{"-vv"},
			want: []string{"[lox.vm]", "session started"},
		},
		{
			name:   "print_code",
			config: "debug:\n  print_code: true\n",
			want:   []string{"[lox.compiler]", "== script ==", "PRINT"},
		},
		{
			name:   "log_collections",
			config: "gc:\n  stress: true\n  log_collections: true\n",
			want:   []string{"[lox.gc]"},
		},
		{
			name:   "trace_execution",
			config: "debug:\n  trace_execution: true\n",
			want:   []string{"[lox.vm]", "PRINT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.args
			if tt.config != "" {
				args = append(args, "-config", writeFile(t, "lox.yaml", tt.config))
			}
			args = append(args, "-e", `var s = "a" + "b"; print s;`)

			code, out, errOut := runMain(t, "", args...)
			if code != ExitOK || out != "ab\n" {
				t.Fatalf("got %d %q", code, out)
			}
			if len(tt.want) == 0 && errOut != "" {
				t.Errorf("stderr = %q, want nothing", errOut)
			}
			for _, want := range tt.want {
				if !strings.Contains(errOut, want) {
					t.Errorf("missing %q in stderr:\n%s", want, errOut)
				}
			}
			for _, unwanted := range tt.wantNot {
				if strings.Contains(errOut, unwanted) {
					t.Errorf("unexpected %q in stderr:\n%s", unwanted, errOut)
				}
			}
		})
	}
}
