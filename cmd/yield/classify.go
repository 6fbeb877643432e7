package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chazu/yield/conformance"
	"github.com/chazu/yield/manifest"
	"github.com/chazu/yield/server"
	"github.com/chazu/yield/vm"
)

// handleClassifyCommand processes the `yield classify` subcommand. With
// -addr the case is classified by a running server instead of in process.
func handleClassifyCommand(args []string, m *manifest.Manifest) error {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	typ := fs.String("type", "normal", "Block type: normal, proc, lambda, thread")
	sig := fs.String("sig", "pre=1", "Signature, e.g. pre=2,opt=1,rest=norm,kw=0/1,kwrest")
	entry := fs.String("entry", "yield", "Entry point: yield, yield_values, call, yield_non_array")
	shape := fs.String("args", "scalar", "Argument shape: none, scalar, array, coercible, bad_coercible, two, three, many")
	variantList := fs.String("variants", "", "Comma separated body variants (default from yield.toml)")
	addr := fs.String("addr", "", "Classify on the server at this address")
	fs.Parse(args)

	if *addr != "" {
		return classifyRemote(*addr, &server.ClassifyRequest{
			Type:      *typ,
			Signature: *sig,
			Entry:     *entry,
			Args:      *shape,
			Variants:  splitList(*variantList),
		})
	}

	c, err := conformance.ParseCase(fmt.Sprintf("%s [%s] %s %s", *typ, *sig, *entry, *shape))
	if err != nil {
		return err
	}
	vs, err := variants(*variantList, m)
	if err != nil {
		return err
	}

	rt := newRuntime(m)
	defer rt.Close()
	res, err := classify(rt, c, vs)
	if err != nil {
		return err
	}
	printClassification(os.Stdout, res)
	if !res.OK() {
		return fmt.Errorf("variants disagree with the dispatch rules")
	}
	return nil
}

func classify(rt *vm.Runtime, c conformance.Case, vs []conformance.Variant) (*conformance.Classification, error) {
	return conformance.Classify(rt.NewThreadContext(), c, vs, conformance.DefaultConfig().Many)
}

func classifyRemote(addr string, req *server.ClassifyRequest) error {
	client, conn, err := server.Dial(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	resp, err := client.Classify(ctx, req)
	if err != nil {
		return err
	}
	printClassification(os.Stdout, resp.Classification)
	if !resp.OK {
		return fmt.Errorf("variants disagree with the dispatch rules")
	}
	return nil
}
