// Package reconcile joins the two sides of the wiring graph. Calls are
// matched to local routes and functions or to sibling inventories,
// unmatched calls become classified orphans, and e2e mocks are linked to
// the routes they cover.
//
// Every path comparison goes through one compiled-template matcher
// (pathtemplate.Cache), whether the path came from a call site, an
// external id or a mock.
package reconcile
