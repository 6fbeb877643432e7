package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chazu/yield/conformance"
	"github.com/chazu/yield/manifest"
	"github.com/chazu/yield/server"
)

// handleServeCommand processes the `yield serve` subcommand.
func handleServeCommand(args []string, m *manifest.Manifest) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", m.Server.Addr, "Listen address")
	noStore := fs.Bool("no-store", false, "Serve without recording runs")
	fs.Parse(args)

	vs, err := conformance.ParseVariants(m.Conformance.Variants)
	if err != nil {
		return err
	}
	def := conformance.DefaultConfig()
	def.MaxPre = m.Conformance.MaxArgs
	opts := []server.ServerOption{server.WithVariants(vs), server.WithMatrix(def)}

	if !*noStore {
		st, err := openStore(m)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, server.WithStore(st))
	}

	rt := newRuntime(m)
	defer rt.Close()
	srv := server.New(rt, opts...)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		log.Info("shutting down")
		srv.Stop()
	}()

	fmt.Printf("Inspection service on %s\n", *addr)
	return srv.ListenAndServe(*addr)
}
