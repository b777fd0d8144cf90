package storage

import (
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

// SaleKey identifies one product of one store.
type SaleKey struct {
	Store   string
	Product string
}

// SalesRecord holds cumulative units and revenue for a SaleKey.
type SalesRecord struct {
	Units   int
	Revenue decimal.Decimal
}

// Add returns the sum of r and o.
func (r SalesRecord) Add(o SalesRecord) SalesRecord {
	return SalesRecord{
		Units:   r.Units + o.Units,
		Revenue: r.Revenue.Add(o.Revenue),
	}
}

// SalesLedger accumulates sales per (store, product). Records only grow.
type SalesLedger struct {
	mu      sync.RWMutex
	records map[SaleKey]SalesRecord
}

// NewSalesLedger creates an empty ledger.
func NewSalesLedger() *SalesLedger {
	return &SalesLedger{
		records: make(map[SaleKey]SalesRecord),
	}
}

// Record adds units sold at unitPrice to the product's record.
func (l *SalesLedger) Record(store, product string, units int, unitPrice float64) SalesRecord {
	sale := SalesRecord{
		Units:   units,
		Revenue: decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(units))),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := SaleKey{Store: store, Product: product}
	updated := l.records[key].Add(sale)
	l.records[key] = updated
	return updated
}

// Get returns the record for one product, zero if nothing was sold.
func (l *SalesLedger) Get(store, product string) SalesRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.records[SaleKey{Store: store, Product: product}]
}

// StoreTotal sums every product record of a store.
func (l *SalesLedger) StoreTotal(store string) SalesRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total SalesRecord
	for key, rec := range l.records {
		if key.Store == store {
			total = total.Add(rec)
		}
	}
	return total
}

// Total sums every record in the ledger.
func (l *SalesLedger) Total() SalesRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total SalesRecord
	for _, rec := range l.records {
		total = total.Add(rec)
	}
	return total
}

// Keys returns every key with a record, ordered by store then product.
func (l *SalesLedger) Keys() []SaleKey {
	l.mu.RLock()
	keys := make([]SaleKey, 0, len(l.records))
	for key := range l.records {
		keys = append(keys, key)
	}
	l.mu.RUnlock()

	slices.SortFunc(keys, func(a, b SaleKey) int {
		if a.Store != b.Store {
			if a.Store < b.Store {
				return -1
			}
			return 1
		}
		switch {
		case a.Product < b.Product:
			return -1
		case a.Product > b.Product:
			return 1
		}
		return 0
	})
	return keys
}
