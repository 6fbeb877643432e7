// Package vm implements the block and method invocation core of the yield
// runtime.
//
// This package contains:
//   - Signature and Arity, the declared parameter shape of a callable
//   - StaticScope and DynamicScope, compile-time and runtime variable storage
//   - Frame, Binding and the per-goroutine ThreadContext stacks
//   - Block and BlockBody with the argument reconciliation rules
//   - Argument reshaping helpers shared by blocks and call sites
//   - The jump protocol for break, next, redo, retry and return
//   - Invocation profiling and mixed-mode promotion of hot block bodies
package vm
