// Package storage holds a worker's in-memory state.
//
// # Components
//
// StoreCache implements Catalog: a name-indexed map of stores guarded by a
// RWMutex, with one additional mutex per store. Reads hand out deep copies.
// Mutations go through Update, which runs a closure against the live store
// while holding that store's mutex, so a purchase check and its stock
// decrement are one critical section.
//
// SalesLedger accumulates units and revenue per (store, product). Revenue is
// a decimal.Decimal so repeated purchases at prices like 8.50 add up exactly.
//
// SnapshotDir writes a store document to disk whenever a store is added. It
// is a record for operators, not a recovery mechanism: workers start empty.
//
// # Lock ordering
//
// Callers that touch both the catalog and the ledger take the store mutex
// first (by being inside Update) and the ledger lock second. The ledger never
// calls back into the catalog.
package storage
