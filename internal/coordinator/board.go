package coordinator

import (
	"sync"
	"time"

	"github.com/dreamware/foodgrid/internal/cluster"
	"github.com/dreamware/foodgrid/internal/protocol"
)

// ReportBoard keeps the most recent report pushed by the reducer.
type ReportBoard struct {
	mu       sync.RWMutex
	latest   protocol.Report
	received time.Time
	count    int
}

// NewReportBoard creates an empty board.
func NewReportBoard() *ReportBoard {
	return &ReportBoard{}
}

// Post replaces the latest report.
func (b *ReportBoard) Post(r protocol.Report) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = r
	b.received = time.Now()
	b.count++
}

// Latest returns the latest report and how many have been posted.
// The report is nil before the first push.
func (b *ReportBoard) Latest() (protocol.Report, int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest, b.count
}

// Stats renders the latest report for the /stats endpoint.
func (b *ReportBoard) Stats() cluster.StatsResponse {
	b.mu.RLock()
	defer b.mu.RUnlock()

	resp := cluster.StatsResponse{
		Received:       b.received,
		Reports:        b.count,
		RequestCounts:  map[string]int{},
		WorkerRequests: map[string]int{},
		StoreSales:     map[string]int{},
	}
	if b.latest == nil {
		return resp
	}
	resp.RequestCounts = b.latest.RequestCounts()
	resp.WorkerRequests = b.latest.WorkerRequests()
	resp.StoreSales = b.latest.StoreSales()
	resp.LastUpdateMilli = b.latest.LastUpdate()
	return resp
}
