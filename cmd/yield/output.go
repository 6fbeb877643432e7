package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/chazu/yield/conformance"
)

var useColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

func paint(code, s string) string {
	if !useColor {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func red(s string) string   { return paint("31", s) }
func green(s string) string { return paint("32", s) }
func dim(s string) string   { return paint("2", s) }

// splitList splits a comma separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func printClassification(w io.Writer, c *conformance.Classification) {
	fmt.Fprintf(w, "%s\n", c.Case)
	fmt.Fprintf(w, "  %-12s %s\n", "reconciled", c.Expected.Reconciled)
	fmt.Fprintf(w, "  %-12s %s\n", "received", c.Expected.Received)
	if c.Expected.Warns {
		fmt.Fprintf(w, "  %-12s %s\n", "", dim("warns: multiple values for a block parameter"))
	}

	names := make([]string, 0, len(c.Got))
	for v := range c.Got {
		names = append(names, string(v))
	}
	sort.Strings(names)
	for _, name := range names {
		v := conformance.Variant(name)
		got := c.Got[v]
		mark := green("ok")
		if got != conformance.Want(c.Expected, v) {
			mark = red("MISMATCH")
		}
		fmt.Fprintf(w, "  %-12s %-24s %s\n", name, got, mark)
	}
}

func printReport(w io.Writer, r *conformance.Report) {
	status := green("PASS")
	if !r.OK() {
		status = red("FAIL")
	}
	fmt.Fprintf(w, "%s run %s\n", status, r.ID)
	fmt.Fprintf(w, "  cases:    %d\n", r.Cases)
	fmt.Fprintf(w, "  checks:   %d (%d passed, %d failed)\n", r.Checks, r.Passed(), r.Failed)
	fmt.Fprintf(w, "  variants: %s\n", joinVariants(r.Variants))
	fmt.Fprintf(w, "  duration: %s\n", r.Duration.Round(time.Millisecond))
	for _, m := range r.Mismatches {
		fmt.Fprintf(w, "  %s %s (%s): got %s, want %s\n", red("x"), m.Case, m.Variant, m.Got, m.Want)
	}
}

func joinVariants(vs []conformance.Variant) string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}
