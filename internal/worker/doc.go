// Package worker implements one shard of foodgrid: the stores the master
// routes to it, their stock and their sales.
//
// Service holds the shard's state (a storage.Catalog and a
// storage.SalesLedger) and executes commands. Server accepts the master's
// persistent connection and feeds it request/response pairs. After each
// command the Service hands a telemetry record to an Emitter; in production
// that is a TelemetryStream to the reducer.
//
// Purchases follow Idle → Validating → Committed | Rejected. Validation and
// the commit (stock decrement plus sales record) run inside one
// catalog.Update call, so two buyers racing for the last units of a product
// cannot both succeed.
//
// Failures never cross the wire as Go errors. Every outcome is a text
// response: canonical not-found strings, or an "Error: ..." line for
// business rule violations.
package worker
