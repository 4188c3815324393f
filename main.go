package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/lookbusy1344/cvma-interpreter/config"
	"github.com/lookbusy1344/cvma-interpreter/diag"
	"github.com/lookbusy1344/cvma-interpreter/inspect"
	"github.com/lookbusy1344/cvma-interpreter/parser"
	"github.com/lookbusy1344/cvma-interpreter/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		showDbg     = flag.Bool("dbg", false, "Dump the value stack and heap table after execution")
		inspectMode = flag.Bool("inspect", false, "Open the state inspector after execution")
		configPath  = flag.String("config", "", "Config file path (default: platform config dir)")
		maxSteps    = flag.Uint64("max-steps", 0, "Maximum executed instructions before halt (0 = config default)")
		maxDepth    = flag.Int("max-depth", 0, "Maximum procedure call depth (0 = config default)")
		noColor     = flag.Bool("no-color", false, "Disable colored diagnostics")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("CVMA Interpreter %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	if *showHelp || flag.NArg() == 0 {
		printHelp()
		if *showHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Load configuration; flags override it
	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = config.GetConfigPath()
	}
	cfg, err := config.LoadFrom(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *maxSteps != 0 {
		cfg.Execution.MaxSteps = *maxSteps
	}
	if *maxDepth != 0 {
		cfg.Execution.MaxCallDepth = *maxDepth
	}

	srcPath := flag.Arg(0)
	program, source, err := parser.ParseFile(srcPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if program.Errors.HasErrors() {
		colorize := cfg.Display.ColorOutput && !*noColor && isatty.IsTerminal(os.Stderr.Fd())
		diag.NewRenderer(os.Stderr, colorize).Print(srcPath, source, program.Errors)
		os.Exit(1)
	}

	machine := vm.NewMachine(program)
	machine.MaxSteps = cfg.Execution.MaxSteps
	machine.MaxCallDepth = cfg.Execution.MaxCallDepth

	if err := machine.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
		os.Exit(1)
	}

	if *showDbg {
		machine.DumpState(os.Stdout, cfg.Display.DumpRadix)
	}

	if *inspectMode {
		if err := inspect.New(machine).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func printHelp() {
	fmt.Println("CVMA Interpreter - stack virtual machine for CVMA assembly")
	fmt.Println()
	fmt.Println("Usage: cvma [options] <file>")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("The file is parsed and validated first; with any parse error the")
	fmt.Println("program is not executed and diagnostics are printed instead.")
	fmt.Println("Execution starts at the procedure with index 0.")
}
