package server

import (
	"time"

	"github.com/chazu/yield/conformance"
)

// ClassifyRequest names one case by the text forms of its parts, e.g.
// Type "lambda", Signature "pre=2,opt=1", Entry "yield", Args "array".
type ClassifyRequest struct {
	Type      string   `cbor:"1,keyasint"`
	Signature string   `cbor:"2,keyasint"`
	Entry     string   `cbor:"3,keyasint"`
	Args      string   `cbor:"4,keyasint"`
	Variants  []string `cbor:"5,keyasint,omitempty"`
}

type ClassifyResponse struct {
	Classification *conformance.Classification `cbor:"1,keyasint"`
	OK             bool                        `cbor:"2,keyasint"`
}

// RunMatrixRequest sizes a matrix run. Zero values take the server
// defaults.
type RunMatrixRequest struct {
	MaxPre   int      `cbor:"1,keyasint,omitempty"`
	Many     int      `cbor:"2,keyasint,omitempty"`
	Keywords bool     `cbor:"3,keyasint,omitempty"`
	Types    []string `cbor:"4,keyasint,omitempty"`
	Entries  []string `cbor:"5,keyasint,omitempty"`
	Variants []string `cbor:"6,keyasint,omitempty"`
	// Save records the report in the server's store.
	Save bool `cbor:"7,keyasint,omitempty"`
}

type RunMatrixResponse struct {
	Report *conformance.Report `cbor:"1,keyasint"`
	Saved  bool                `cbor:"2,keyasint,omitempty"`
}

type ListRunsRequest struct {
	Limit int `cbor:"1,keyasint,omitempty"`
}

// RunSummary is the wire form of store.Summary.
type RunSummary struct {
	ID       string        `cbor:"1,keyasint"`
	Started  int64         `cbor:"2,keyasint"`
	Duration time.Duration `cbor:"3,keyasint"`
	Cases    int           `cbor:"4,keyasint"`
	Checks   int           `cbor:"5,keyasint"`
	Failed   int           `cbor:"6,keyasint"`
}

type ListRunsResponse struct {
	Runs []RunSummary `cbor:"1,keyasint"`
}

type GetRunRequest struct {
	ID string `cbor:"1,keyasint"`
}

type DescribeSignatureRequest struct {
	Signature string `cbor:"1,keyasint"`
}

// DescribeSignatureResponse reports what the runtime derives from a
// parameter shape.
type DescribeSignatureResponse struct {
	Signature  string `cbor:"1,keyasint"`
	Encoded    uint64 `cbor:"2,keyasint"`
	Arity      int    `cbor:"3,keyasint"`
	Required   int    `cbor:"4,keyasint"`
	Max        int    `cbor:"5,keyasint"`
	Spreadable bool   `cbor:"6,keyasint"`
}
