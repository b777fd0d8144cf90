package protocol

import (
	"strings"
)

// Key prefixes and fields of a reducer report.
const (
	CountPrefix     = "count_"
	WorkerPrefix    = "worker_"
	StorePrefix     = "store_"
	FieldRequests   = "requests"
	FieldTotalSales = "totalSales"
	KeyStartTime    = "systemStartTime"
	KeyLastUpdate   = "lastUpdate"
)

// Report is the aggregation map the reducer pushes to the master:
//
//	count_<requestType>   int
//	worker_<workerId>     {"requests": int}
//	store_<storeName>     {"totalSales": int}
//	<store>_<product>     int
//	systemStartTime       epoch ms
//	lastUpdate            epoch ms
//
// Values decoded from JSON are float64; the accessors below convert.
type Report map[string]any

// RequestCounts returns count_ entries keyed by request type.
func (r Report) RequestCounts() map[string]int {
	out := make(map[string]int)
	for k, v := range r {
		if strings.HasPrefix(k, CountPrefix) {
			out[strings.TrimPrefix(k, CountPrefix)] = toInt(v)
		}
	}
	return out
}

// WorkerRequests returns the request count per worker id.
func (r Report) WorkerRequests() map[string]int {
	return r.nested(WorkerPrefix, FieldRequests)
}

// StoreSales returns units sold per store.
func (r Report) StoreSales() map[string]int {
	return r.nested(StorePrefix, FieldTotalSales)
}

// LastUpdate returns the lastUpdate timestamp in epoch milliseconds.
func (r Report) LastUpdate() int64 {
	return int64(toInt(r[KeyLastUpdate]))
}

func (r Report) nested(prefix, field string) map[string]int {
	out := make(map[string]int)
	for k, v := range r {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if m, ok := v.(map[string]any); ok {
			out[strings.TrimPrefix(k, prefix)] = toInt(m[field])
		}
	}
	return out
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
