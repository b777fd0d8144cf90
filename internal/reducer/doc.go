// Package reducer aggregates telemetry from every worker into one map and
// forwards snapshots of it to the master.
//
// Workers stream (mapResult, map) frame pairs; Server merges each into the
// Aggregator and acknowledges it. The Reporter waits on the aggregator's
// update channel and pushes a copy of the whole map to the master over a
// single long-lived connection, reconnecting with exponential backoff when
// that connection breaks.
package reducer
