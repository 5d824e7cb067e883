package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/funvibe/lox/internal/config"
	"github.com/funvibe/lox/internal/vm"
	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	"github.com/tliron/commonlog/simple"
	"github.com/tliron/kutil/util"
)

var cliLog = commonlog.GetLogger("lox.cli")

// Exit codes, following sysexits.h.
const (
	ExitOK           = 0
	ExitUsage        = 64
	ExitCompileError = 65
	ExitRuntimeError = 70
	ExitIOError      = 74
)

// maxLine bounds a single REPL line.
const maxLine = 1024 * 1024

var errUsage = errors.New("usage")

type options struct {
	configPath  string
	verbosity   int
	disassemble bool
	expression  string
	hasExpr     bool
	script      string
	showVersion bool
	showHelp    bool
}

// Run is the entry point of the lox binary. util.Exit runs the exit hooks
// that close log writers before the process ends.
func Run() {
	util.Exit(Main(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// Main runs the command line with explicit streams and returns the exit code.
func Main(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args)
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		printUsage(stderr)
		return ExitUsage
	}

	if opts.showHelp {
		printUsage(stdout)
		return ExitOK
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, "lox "+config.Version)
		return ExitOK
	}

	// Warnings only; -v adds notices, -vv info, -vvv debug.
	verbosity := -1 + opts.verbosity
	configureLogging(verbosity, stderr)

	settings, err := loadSettings(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitUsage
	}
	if v := debugVerbosity(settings); v > verbosity {
		configureLogging(v, stderr)
	}

	machine := vm.New(settings)
	machine.SetOutput(stdout)
	machine.SetErrorOutput(stderr)

	if opts.disassemble {
		source, code := readSource(opts, stdin, stderr)
		if code != ExitOK {
			return code
		}
		return disassemble(machine, source, stdout, stderr)
	}

	if opts.hasExpr || opts.script != "" {
		source, code := readSource(opts, stdin, stderr)
		if code != ExitOK {
			return code
		}
		return runSource(machine, source)
	}

	return runREPL(machine, stdin, stdout, stderr, isTerminal(stdin))
}

func parseArgs(args []string) (options, error) {
	var opts options
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-help" || arg == "--help" || arg == "-h":
			opts.showHelp = true
		case arg == "-version" || arg == "--version":
			opts.showVersion = true
		case arg == "-disassemble" || arg == "--disassemble":
			opts.disassemble = true
		case arg == "-config" || arg == "--config":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s needs a file argument", arg)
			}
			i++
			opts.configPath = args[i]
		case arg == "-e":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("-e needs a source argument")
			}
			i++
			opts.expression = args[i]
			opts.hasExpr = true
		case isVerboseFlag(arg):
			opts.verbosity += len(arg) - 1
		case strings.HasPrefix(arg, "-") && arg != "-":
			return opts, fmt.Errorf("unknown flag %s", arg)
		default:
			if opts.script != "" {
				return opts, errUsage
			}
			opts.script = arg
		}
	}
	if opts.hasExpr && opts.script != "" {
		return opts, fmt.Errorf("-e and a script file are mutually exclusive")
	}
	return opts, nil
}

// isVerboseFlag matches -v, -vv, -vvv and so on.
func isVerboseFlag(arg string) bool {
	if len(arg) < 2 || arg[0] != '-' {
		return false
	}
	return strings.Trim(arg[1:], "v") == ""
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: lox [flags] [script]

With no script, lox starts an interactive session.

Flags:
  -config FILE    load settings from a .yaml, .yml or .toml file
  -e SOURCE       run SOURCE instead of a script file
  -disassemble    compile only and print the bytecode
  -v              more logging (repeat for more: -vv, -vvv)
  -version        print the version
  -help           print this help
`)
}

// configureLogging sends every lox.* logger to w. The writer is synchronous
// so a line logged before Main returns is never left in a buffer.
func configureLogging(verbosity int, w io.Writer) {
	backend := simple.NewBackend()
	backend.Buffered = false
	backend.Configure(verbosity, nil)
	if commonlog.VerbosityToMaxLevel(verbosity) != commonlog.None {
		backend.Writer = util.NewSyncedWriter(w)
	}
	commonlog.SetBackend(backend)
}

// debugVerbosity is the verbosity the debug settings need to be visible:
// traces log at debug level, disassembly and collections at info.
func debugVerbosity(s config.Settings) int {
	switch {
	case s.Debug.TraceExecution:
		return 2
	case s.Debug.PrintCode || s.GC.LogCollections:
		return 1
	}
	return -1
}

// loadSettings reads path, or the first default config file in the working
// directory when path is empty.
func loadSettings(path string) (config.Settings, error) {
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path = config.Discover(wd)
		}
	}
	if path == "" {
		return config.Defaults(), nil
	}

	settings, err := config.Load(path)
	if err != nil {
		return config.Settings{}, err
	}
	cliLog.Infof("loaded settings from %s", path)
	return settings, nil
}

func readSource(opts options, stdin io.Reader, stderr io.Writer) (string, int) {
	if opts.hasExpr {
		return opts.expression, ExitOK
	}
	if opts.script == "" {
		fmt.Fprintln(stderr, "Error: nothing to compile")
		return "", ExitUsage
	}
	if opts.script == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading stdin: %v\n", err)
			return "", ExitIOError
		}
		return string(data), ExitOK
	}

	data, err := os.ReadFile(opts.script)
	if err != nil {
		fmt.Fprintf(stderr, "Could not read file %q: %v\n", opts.script, err)
		return "", ExitIOError
	}
	return string(data), ExitOK
}

// runSource interprets a whole program. Diagnostics are already written by
// the VM, so only the exit code is left to decide.
func runSource(machine *vm.VM, source string) int {
	result, err := machine.Interpret(source)
	if err != nil {
		cliLog.Debugf("session %s: %s", machine.ID(), result)
	}
	switch result {
	case vm.InterpretCompileError:
		return ExitCompileError
	case vm.InterpretRuntimeError:
		return ExitRuntimeError
	default:
		return ExitOK
	}
}

func disassemble(machine *vm.VM, source string, stdout, stderr io.Writer) int {
	fn, err := machine.Compile(source)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitCompileError
	}
	fmt.Fprint(stdout, vm.Disassemble(fn.Chunk, config.ScriptName))
	return ExitOK
}

// runREPL reads one line at a time. Each line is compiled and run on its own
// but shares the globals of the session.
func runREPL(machine *vm.VM, stdin io.Reader, stdout, stderr io.Writer, interactive bool) int {
	if interactive {
		fmt.Fprintf(stdout, "lox %s (ctrl-d to exit)\n", config.Version)
	}

	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for {
		if interactive {
			fmt.Fprint(stdout, "> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		machine.InterpretREPL(line)
	}
	if interactive {
		fmt.Fprintln(stdout)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(stderr, "Error reading input: %v\n", err)
		return ExitIOError
	}
	return ExitOK
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
