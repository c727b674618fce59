// Package lifecycle coordinates the managed logging runtime of a test scope.
//
// The [Coordinator] creates a [Resource] through a [Factory], starts it and
// stores it in the scope's attributes together with the reconfiguration
// [Policy] from its [Source]. The bounded stop of the resource is registered
// as the scope's release action, so it runs when the scope exits even if the
// test failed. Before and after every nested unit the coordinator applies the
// inherited policy by reconfiguring the runtime.
//
// A [Managed] resource moves through CREATED, STARTED, RECONFIGURED and
// STOPPED. Stopping is bounded by the source's shutdown timeout; a runtime that
// does not stop in time is still marked stopped and the timeout is recorded.
//
// [Selector] resolves the runtime for a context, the way a logging library's
// context selector would.
package lifecycle
