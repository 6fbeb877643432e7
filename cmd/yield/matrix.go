package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/chazu/yield/conformance"
	"github.com/chazu/yield/manifest"
)

// handleMatrixCommand processes the `yield matrix` subcommand.
// Usage:
//
//	yield matrix [-max-pre n] [-many n] [-no-kw] [-variants a,b] [-o report.cbor] [-yaml out.yaml] [-store]
func handleMatrixCommand(args []string, m *manifest.Manifest) error {
	fs := flag.NewFlagSet("matrix", flag.ExitOnError)
	maxPre := fs.Int("max-pre", m.Conformance.MaxArgs, "Largest number of required leading parameters")
	many := fs.Int("many", conformance.DefaultConfig().Many, "Argument count of the 'many' shape")
	noKw := fs.Bool("no-kw", false, "Leave keyword signatures out of the matrix")
	variantList := fs.String("variants", "", "Comma separated body variants (default from yield.toml)")
	cborOut := fs.String("o", "", "Write the report as CBOR to this file")
	yamlOut := fs.String("yaml", "", "Write the report as YAML to this file ('-' for stdout)")
	save := fs.Bool("store", false, "Record the run in the store")
	fs.Parse(args)

	vs, err := variants(*variantList, m)
	if err != nil {
		return err
	}
	cfg := conformance.Config{MaxPre: *maxPre, Many: *many, Keywords: !*noKw}
	cases := conformance.Matrix(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt := newRuntime(m)
	defer rt.Close()

	report, err := conformance.Run(ctx, rt, cases, vs, *many)
	if err != nil {
		return err
	}
	printReport(os.Stdout, report)

	if *cborOut != "" {
		data, err := conformance.MarshalReport(report)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*cborOut, data, 0o644); err != nil {
			return fmt.Errorf("cannot write %s: %w", *cborOut, err)
		}
	}
	if *yamlOut != "" {
		if err := writeYAML(*yamlOut, report); err != nil {
			return err
		}
	}
	if *save {
		st, err := openStore(m)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Save(report); err != nil {
			return err
		}
		fmt.Printf("Saved run %s to %s\n", report.ID, m.StorePath())
	}

	if !report.OK() {
		return fmt.Errorf("%d of %d checks failed", report.Failed, report.Checks)
	}
	return nil
}

func writeYAML(path string, r *conformance.Report) error {
	if path == "-" {
		return r.WriteYAML(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
