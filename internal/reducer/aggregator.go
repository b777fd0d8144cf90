package reducer

import (
	"sync"
	"time"

	"github.com/dreamware/foodgrid/internal/protocol"
)

// Aggregator merges worker telemetry into the aggregation map.
// One mutex covers every read and write; each merge leaves a token on a
// capacity-one channel so the reporter wakes at least once after a burst
// of merges without the merges ever blocking.
type Aggregator struct {
	mu         sync.Mutex
	counts     map[string]int
	workers    map[string]int
	stores     map[string]int
	products   map[string]int
	startTime  int64
	lastUpdate int64

	updates chan struct{}
	now     func() time.Time
}

// NewAggregator creates an empty aggregation map stamped with the current
// time as systemStartTime.
func NewAggregator() *Aggregator {
	a := &Aggregator{
		counts:   make(map[string]int),
		workers:  make(map[string]int),
		stores:   make(map[string]int),
		products: make(map[string]int),
		updates:  make(chan struct{}, 1),
		now:      time.Now,
	}
	a.startTime = a.now().UnixMilli()
	a.lastUpdate = a.startTime
	return a
}

// Merge folds one telemetry record into the map and signals the reporter.
func (a *Aggregator) Merge(t protocol.Telemetry) {
	a.mu.Lock()
	a.counts[t.RequestType]++
	a.workers[t.WorkerID]++
	if t.IsPurchase() {
		a.stores[t.StoreName] += t.Quantity
		a.products[t.StoreName+"_"+t.ProductName] += t.Quantity
	}
	a.lastUpdate = a.now().UnixMilli()
	a.mu.Unlock()

	select {
	case a.updates <- struct{}{}:
	default:
	}
}

// Updates delivers a token after one or more merges.
func (a *Aggregator) Updates() <-chan struct{} {
	return a.updates
}

// Snapshot renders a deep copy of the map in report form.
func (a *Aggregator) Snapshot() protocol.Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	r := make(protocol.Report, len(a.counts)+len(a.workers)+len(a.stores)+len(a.products)+2)
	for k, v := range a.counts {
		r[protocol.CountPrefix+k] = v
	}
	for k, v := range a.workers {
		r[protocol.WorkerPrefix+k] = map[string]any{protocol.FieldRequests: v}
	}
	for k, v := range a.stores {
		r[protocol.StorePrefix+k] = map[string]any{protocol.FieldTotalSales: v}
	}
	for k, v := range a.products {
		r[k] = v
	}
	r[protocol.KeyStartTime] = a.startTime
	r[protocol.KeyLastUpdate] = a.lastUpdate
	return r
}
