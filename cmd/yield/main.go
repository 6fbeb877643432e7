// Yield CLI - runs and inspects the block dispatch conformance matrix
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/yield/conformance"
	"github.com/chazu/yield/manifest"
	"github.com/chazu/yield/store"
	"github.com/chazu/yield/vm"
)

var log = commonlog.GetLogger("yield.cli")

func main() {
	verbose := flag.Bool("v", false, "Verbose output (debug logging)")
	dir := flag.String("C", ".", "Directory to search for yield.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: yield [options] <command> [arguments]\n\n")
		fmt.Fprintf(os.Stderr, "Checks block invocation against the dispatch rules.\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  matrix     Run the conformance matrix\n")
		fmt.Fprintf(os.Stderr, "  classify   Invoke one case through every body variant\n")
		fmt.Fprintf(os.Stderr, "  repl       Classify cases interactively\n")
		fmt.Fprintf(os.Stderr, "  serve      Start the inspection service\n")
		fmt.Fprintf(os.Stderr, "  history    List stored matrix runs\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  yield matrix                          # Run the matrix, print a summary\n")
		fmt.Fprintf(os.Stderr, "  yield matrix -store -yaml out.yaml    # Record the run and export it\n")
		fmt.Fprintf(os.Stderr, "  yield classify -type lambda -sig pre=2 -entry call -args array\n")
		fmt.Fprintf(os.Stderr, "  yield classify -addr localhost:7411 -sig rest=norm -args two\n")
		fmt.Fprintf(os.Stderr, "  yield serve -addr :7411               # Serve over gRPC\n")
		fmt.Fprintf(os.Stderr, "  yield history -n 5                    # Five most recent runs\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	m, err := manifest.LoadOrDefault(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	verbosity := m.Log.Verbosity
	if *verbose && verbosity < 2 {
		verbosity = 2
	}
	commonlog.Configure(verbosity, m.LogFile())
	log.Debugf("configuration from %s", m.Dir)

	var cmdErr error
	switch args[0] {
	case "matrix":
		cmdErr = handleMatrixCommand(args[1:], m)
	case "classify":
		cmdErr = handleClassifyCommand(args[1:], m)
	case "repl":
		cmdErr = handleReplCommand(args[1:], m)
	case "serve":
		cmdErr = handleServeCommand(args[1:], m)
	case "history":
		cmdErr = handleHistoryCommand(args[1:], m)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cmdErr)
		os.Exit(1)
	}
}

// newRuntime builds a runtime from the manifest. Callers must Close it.
func newRuntime(m *manifest.Manifest) *vm.Runtime {
	return vm.NewRuntime(m.VMConfig())
}

// variants returns the flag value if set, else the manifest list.
func variants(flagValue string, m *manifest.Manifest) ([]conformance.Variant, error) {
	if flagValue != "" {
		return conformance.ParseVariants(splitList(flagValue))
	}
	return conformance.ParseVariants(m.Conformance.Variants)
}

func openStore(m *manifest.Manifest) (*store.Store, error) {
	return store.Open(m.Store.Driver, m.StorePath())
}
