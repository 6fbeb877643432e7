package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/chazu/yield/conformance"
	"github.com/chazu/yield/manifest"
	"github.com/chazu/yield/vm"
)

const historyFile = ".yield_history"

// handleReplCommand starts an interactive loop classifying one case per
// line. A case is written as: type [signature] entry args, e.g.
//
//	lambda [pre=2] call array
func handleReplCommand(args []string, m *manifest.Manifest) error {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	variantList := fs.String("variants", "", "Comma separated body variants (default from yield.toml)")
	fs.Parse(args)

	vs, err := variants(*variantList, m)
	if err != nil {
		return err
	}

	rt := newRuntime(m)
	defer rt.Close()
	r := &repl{rt: rt, variants: vs}

	fmt.Println("Yield REPL (type 'exit' to quit, ':help' for commands)")
	fmt.Println()

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt(">> ")
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		ln.AppendHistory(line)

		if strings.HasPrefix(line, ":") {
			r.command(line)
			continue
		}
		r.classify(line)
	}
}

type repl struct {
	rt       *vm.Runtime
	variants []conformance.Variant
}

func (r *repl) classify(line string) {
	c, err := conformance.ParseCase(line)
	if err != nil {
		fmt.Println(red(err.Error()))
		return
	}
	res, err := classify(r.rt, c, r.variants)
	if err != nil {
		fmt.Println(red(err.Error()))
		return
	}
	printClassification(os.Stdout, res)
}

// command handles REPL meta-commands
func (r *repl) command(line string) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Println("Enter a case as: type [signature] entry args")
		fmt.Println("  e.g. proc [pre=1,rest=anon] call array")
		fmt.Println()
		fmt.Println("REPL Commands:")
		fmt.Println("  :help, :h, :?       Show this help")
		fmt.Println("  :sig <signature>    Describe a signature")
		fmt.Println("  :variants [a,b]     Show or set the body variants")
		fmt.Println("  :shapes             List argument shapes")
		fmt.Println("  exit, quit          Exit REPL")
	case ":sig":
		sig, err := vm.ParseSignature(arg)
		if err != nil {
			fmt.Println(red(err.Error()))
			return
		}
		fmt.Printf("%s  arity=%d required=%d max=%d spreadable=%v encoded=%#x\n",
			sig, sig.ArityValue(), sig.Required(), sig.Max(), sig.IsSpreadable(), sig.Encode())
	case ":variants":
		if arg == "" {
			fmt.Println(joinVariants(r.variants))
			return
		}
		vs, err := conformance.ParseVariants(splitList(arg))
		if err != nil {
			fmt.Println(red(err.Error()))
			return
		}
		r.variants = vs
	case ":shapes":
		for _, s := range conformance.AllArgShapes() {
			fmt.Printf("  %-14s %d value(s)\n", s, s.Count(conformance.DefaultConfig().Many))
		}
	default:
		fmt.Printf("Unknown command: %s (type :help for commands)\n", cmd)
	}
}
