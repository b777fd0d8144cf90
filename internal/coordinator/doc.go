// Package coordinator implements the foodgrid master: it accepts client
// connections, routes each command to the worker shard that owns the store,
// fans scatter queries out to every worker and merges the partial replies.
//
// # Overview
//
// The master holds no store data. Its only state is the fixed, positional
// list of worker links, the set of store names it has placed, the latest
// report pushed by the reducer and the health of each worker.
//
// # Architecture
//
//	┌──────────────────────────────────────┐
//	│               MASTER                 │
//	├──────────────────────────────────────┤
//	│  Server (one goroutine per client)   │
//	│        │                             │
//	│        ▼                             │
//	│  Dispatcher ──► WorkerRegistry       │
//	│        │          └─ WorkerLink × N  │
//	│        ▼                             │
//	│  merge (findStores, search, sales)   │
//	│                                      │
//	│  ReportBoard ◄── reducerResults      │
//	│  HealthMonitor ──► ping every link   │
//	└──────────────────────────────────────┘
//
// # Routing
//
// A store named s lives on worker shard.Index(s, N). Store-scoped commands
// (addStore, getStoreInfo, getStoreProducts, updateStock, addProduct,
// removeProduct, buy) go to that worker alone. findStores, search,
// getSalesByCategory and getSalesByProduct go to every worker concurrently
// and are merged:
//
//   - findStores: non-empty partials joined with '|'
//   - search: result lines concatenated and renumbered from 1
//   - getSalesByCategory: units summed per store, then Total:<sum>
//   - getSalesByProduct: units and revenue summed per product, then
//     Total:<units>:<revenue>
//
// Partials that start with "Error" or whose exchange failed do not
// contribute. When every worker fails the reply is "Error: no worker
// reachable".
//
// # Worker Links
//
// Each WorkerLink owns one persistent connection. Its mutex covers the
// whole request/response exchange, so concurrent clients never interleave
// frames on a link. A failed exchange drops the connection and the next
// exchange redials, which is how a restarted worker returns to service.
// Transport failures are reported in-band as
// "Error: worker <i> unavailable: <cause>"; the master never retries.
//
// # Reducer Stream
//
// A connection whose first command is reducerResults carries snapshot map
// frames from the reducer. Each one replaces the board's latest report and
// is acknowledged with "acknowledged".
//
// # Health
//
// HealthMonitor pings every link on an interval. After three consecutive
// failures a worker is marked unhealthy and its link reset. Health never
// affects routing; it is reported on the /workers ops endpoint.
package coordinator
