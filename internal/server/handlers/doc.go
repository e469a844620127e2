// Package handlers implements the HTTP endpoints served by `nantrunner serve`.
//
// Handlers depend on narrow interfaces rather than the controller itself so
// they can be exercised with stubs; *controller.Controller satisfies all of
// them.
package handlers
