package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chazu/yield/manifest"
)

// handleHistoryCommand processes the `yield history` subcommand.
// Usage:
//
//	yield history [-n 20]           List recorded runs, newest first
//	yield history show <run-id>     Print one run
//	yield history rm <run-id>       Delete one run
func handleHistoryCommand(args []string, m *manifest.Manifest) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("n", 20, "Number of runs to list (0 for all)")
	fs.Parse(args)
	rest := fs.Args()

	st, err := openStore(m)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(rest) > 0 {
		if len(rest) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: yield history [show|rm] <run-id>")
			os.Exit(1)
		}
		switch rest[0] {
		case "show":
			r, err := st.Load(rest[1])
			if err != nil {
				return err
			}
			printReport(os.Stdout, r)
			return nil
		case "rm":
			if err := st.Delete(rest[1]); err != nil {
				return err
			}
			fmt.Printf("Deleted run %s\n", rest[1])
			return nil
		default:
			fmt.Fprintf(os.Stderr, "Unknown history subcommand: %s\n", rest[0])
			os.Exit(1)
		}
	}

	runs, err := st.List(*limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs")
		return nil
	}
	for _, r := range runs {
		status := green("PASS")
		if r.Failed > 0 {
			status = red("FAIL")
		}
		fmt.Printf("%s %s  %s  %5d cases  %6d checks  %4d failed  %s\n",
			status, r.ID, r.Started.Format(time.DateTime), r.Cases, r.Checks, r.Failed,
			dim(r.Duration.Round(time.Millisecond).String()))
	}
	return nil
}
