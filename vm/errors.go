package vm

import (
	"fmt"
	"strings"
)

// ArgumentCountError reports a positional argument count outside the range
// a signature accepts. Max is -1 when there is no upper bound.
type ArgumentCountError struct {
	Given int
	Min   int
	Max   int
}

func (e *ArgumentCountError) Error() string {
	switch {
	case e.Max < 0:
		return fmt.Sprintf("wrong number of arguments (given %d, expected %d+)", e.Given, e.Min)
	case e.Min == e.Max:
		return fmt.Sprintf("wrong number of arguments (given %d, expected %d)", e.Given, e.Min)
	}
	return fmt.Sprintf("wrong number of arguments (given %d, expected %d..%d)", e.Given, e.Min, e.Max)
}

// ArgumentError reports a keyword argument problem.
type ArgumentError struct {
	Missing []Symbol
	Unknown []Symbol
}

func (e *ArgumentError) Error() string {
	if len(e.Missing) > 0 {
		return keywordList("missing keyword", e.Missing)
	}
	return keywordList("unknown keyword", e.Unknown)
}

func keywordList(prefix string, keys []Symbol) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.Inspect()
	}
	if len(keys) > 1 {
		prefix += "s"
	}
	return prefix + ": " + strings.Join(parts, ", ")
}

// TypeCoercionError reports a value whose array conversion returned
// something other than an array.
type TypeCoercionError struct {
	From   string
	To     string
	Method string
	Got    string
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("can't convert %s to %s (%s#%s gives %s)", e.From, e.To, e.From, e.Method, e.Got)
}

// LocalJumpError reports a break or return whose target is no longer on
// the call stack.
type LocalJumpError struct {
	Reason JumpKind
	Value  Value
}

func (e *LocalJumpError) Error() string {
	switch e.Reason {
	case JumpBreak:
		return "break from proc-closure"
	case JumpReturn:
		return "unexpected return"
	}
	return "unexpected " + e.Reason.String()
}
