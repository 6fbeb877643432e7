package conformance

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Report summarizes one matrix run.
type Report struct {
	ID         string        `cbor:"1,keyasint" yaml:"id"`
	Started    int64         `cbor:"2,keyasint" yaml:"started"` // unix nanoseconds
	Duration   time.Duration `cbor:"3,keyasint" yaml:"duration"`
	Variants   []Variant     `cbor:"4,keyasint" yaml:"variants"`
	Cases      int           `cbor:"5,keyasint" yaml:"cases"`
	Checks     int           `cbor:"6,keyasint" yaml:"checks"`
	Failed     int           `cbor:"7,keyasint" yaml:"failed"`
	Mismatches []Mismatch    `cbor:"8,keyasint,omitempty" yaml:"mismatches,omitempty"`
}

// Mismatch is one variant disagreeing with the oracle.
type Mismatch struct {
	Variant Variant `cbor:"1,keyasint" yaml:"variant"`
	Case    string  `cbor:"2,keyasint" yaml:"case"`
	Want    Outcome `cbor:"3,keyasint" yaml:"want"`
	Got     Outcome `cbor:"4,keyasint" yaml:"got"`
}

// Passed is the number of checks that matched.
func (r *Report) Passed() int { return r.Checks - r.Failed }

// OK reports whether every check matched.
func (r *Report) OK() bool { return r.Failed == 0 }

// StartedAt returns the start time.
func (r *Report) StartedAt() time.Time { return time.Unix(0, r.Started) }

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("conformance: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalReport encodes r as canonical CBOR.
func MarshalReport(r *Report) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalReport decodes a report written by MarshalReport.
func UnmarshalReport(data []byte) (*Report, error) {
	var r Report
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("conformance: unmarshal report: %w", err)
	}
	return &r, nil
}

// MarshalClassification encodes c as canonical CBOR.
func MarshalClassification(c *Classification) ([]byte, error) {
	return cborEncMode.Marshal(c)
}

// UnmarshalClassification decodes a classification written by
// MarshalClassification.
func UnmarshalClassification(data []byte) (*Classification, error) {
	var c Classification
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("conformance: unmarshal classification: %w", err)
	}
	return &c, nil
}

// WriteYAML writes r as a YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("conformance: yaml: %w", err)
	}
	_, err = w.Write(data)
	return err
}
