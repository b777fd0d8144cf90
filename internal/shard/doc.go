// Package shard decides which worker owns a store.
//
// # Overview
//
// foodgrid partitions restaurants across a fixed, ordered list of workers.
// A store is assigned by hashing its name, so the master needs no lookup
// table and no coordination with workers to route a command:
//
//	position = FNV-1a-32(storeName) mod len(workers)
//
// The worker list is fixed when the master starts. Changing its length
// reassigns stores, and nothing migrates existing state, so a resized
// cluster starts with empty shards.
//
// # Usage
//
//	i := shard.Index("Pizzeria Napoli", len(workers))
//	link := workers[i]
//
// Scatter commands (findStores, search, sales reports) ignore the mapping and
// go to every worker.
package shard
