// Package anchor binds test executions to a hierarchical attribute registry.
//
// A [Scope] is one nesting level of a test run (suite, then unit). Scopes are
// entered into a [Registry], which binds the executing [Runner] (usually a
// *testing.T) to the scope and owns the per-scope attribute [Store]. Values are
// stored under typed keys created with [NewKey]; lookups fall back to the
// parent scope when nothing is stored locally, so a unit sees everything its
// suite configured.
//
// Resources acquired for a scope are registered with [Registry.Register] or
// [Attach]. When the scope exits, their release actions run exactly once in
// reverse registration order. A failing release never prevents the remaining
// ones from running; failures are reported together after the last release.
//
// Inner code does not need the runner: [WithScope] and [FromContext] carry the
// scope in a context.Context, and [Inject] / [Registry.Extract] move it across
// goroutine or queue boundaries as W3C baggage.
package anchor
