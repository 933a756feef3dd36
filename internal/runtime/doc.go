// Package runtime turns a raw pgf graph into an executable operator/operand
// graph and drives forward passes over it.
//
// A Graph moves through three states: NeedInit (paths set, nothing loaded),
// NeedBuild (operators built and wired) and Complete (layers bound, tensor
// storage resolved). Forward refuses to run before Complete.
//
// Execution is a readiness-counted dataflow pass: starting from the input
// marker node, every operator is dispatched exactly once, as soon as all of
// its producers have delivered data. Scheduling state lives in a per-call
// context, so a built graph is reusable across calls.
package runtime
