package coordinator

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/dreamware/foodgrid/internal/cluster"
	"github.com/dreamware/foodgrid/internal/shard"
)

// WorkerRegistry is the master's fixed, ordered list of worker links.
// A worker's identity is its position; stores are placed by hashing their
// name over the list length, so the list never changes after start-up.
//
// The registry also remembers which store names the master has placed, so
// operators can see how stores are spread across workers.
type WorkerRegistry struct {
	links []*WorkerLink

	mu     sync.RWMutex
	stores map[string]int
}

// NewWorkerRegistry creates one link per address, in order.
//
// Parameters:
//   - addrs: worker host:port list; position i becomes worker i
//   - timeout: dial and per-exchange I/O deadline for every link
//   - logger: parent logger for link events
//
// Returns an error when addrs is empty.
func NewWorkerRegistry(addrs []string, timeout time.Duration, logger *log.Entry) (*WorkerRegistry, error) {
	if len(addrs) == 0 {
		return nil, errors.New("no workers configured")
	}
	r := &WorkerRegistry{
		links:  make([]*WorkerLink, len(addrs)),
		stores: make(map[string]int),
	}
	for i, addr := range addrs {
		r.links[i] = NewWorkerLink(i, addr, timeout, logger)
	}
	return r, nil
}

// Len returns the number of workers.
func (r *WorkerRegistry) Len() int {
	return len(r.links)
}

// Get returns the link at position i, or nil when out of range.
func (r *WorkerRegistry) Get(i int) *WorkerLink {
	if i < 0 || i >= len(r.links) {
		return nil
	}
	return r.links[i]
}

// ForStore returns the link owning storeName.
func (r *WorkerRegistry) ForStore(storeName string) *WorkerLink {
	return r.links[shard.Index(storeName, len(r.links))]
}

// All returns the links in positional order.
func (r *WorkerRegistry) All() []*WorkerLink {
	return slices.Clone(r.links)
}

// ConnectAll dials every worker once and returns how many answered.
// Unreachable workers are logged; their links redial on first use.
func (r *WorkerRegistry) ConnectAll(logger *log.Entry) int {
	reachable := 0
	for _, l := range r.links {
		if err := l.Connect(); err != nil {
			logger.WithError(err).WithFields(log.Fields{
				"worker": l.Index,
				"addr":   l.Addr,
			}).Warn("worker unreachable at start-up")
			continue
		}
		reachable++
	}
	return reachable
}

// RecordStore notes that storeName now lives on its worker.
func (r *WorkerRegistry) RecordStore(storeName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[storeName] = shard.Index(storeName, len(r.links))
}

// StoreCounts returns how many recorded stores each worker holds.
func (r *WorkerRegistry) StoreCounts() []int {
	r.mu.RLock()
	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	r.mu.RUnlock()
	return shard.Distribution(names, len(r.links))
}

// WorkerID is the identifier used for worker i in logs and health records.
func WorkerID(i int) string {
	return fmt.Sprintf("worker-%d", i)
}

// Infos describes every worker for the ops endpoint.
func (r *WorkerRegistry) Infos() []cluster.WorkerInfo {
	counts := r.StoreCounts()
	infos := make([]cluster.WorkerInfo, len(r.links))
	for i, l := range r.links {
		infos[i] = cluster.WorkerInfo{
			ID:        WorkerID(i),
			Index:     i,
			Addr:      l.Addr,
			Connected: l.Connected(),
			Stores:    counts[i],
		}
	}
	return infos
}

// Close drops every link.
func (r *WorkerRegistry) Close() {
	for _, l := range r.links {
		l.Close()
	}
}
