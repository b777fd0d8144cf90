package worker

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/dreamware/foodgrid/internal/domain"
	"github.com/dreamware/foodgrid/internal/protocol"
	"github.com/dreamware/foodgrid/internal/storage"
)

// FindStores evaluates a findStores line against every local store.
// Distance is reported but the radius does not exclude stores.
func (s *Service) FindStores(line string) string {
	q, err := protocol.ParseFindStores(line)
	if err != nil {
		s.logger.WithError(err).Debug("bad findStores line")
		return protocol.InvalidSearchFormat
	}

	var entries []string
	s.catalog.Each(func(store *domain.Store) {
		distance := domain.Distance(q.Latitude, q.Longitude, store.Latitude, store.Longitude)
		avg := store.AveragePrice()
		rating := domain.PriceRating(avg)
		if !matchesFilter(q, store, rating) {
			return
		}
		entries = append(entries, fmt.Sprintf("%s,%s,%.2f,%d,%.2f,%s",
			store.Name, store.Category, distance, store.Stars, avg, domain.PriceSymbol(rating)))
	})
	if len(entries) == 0 {
		return protocol.NoStoresFound
	}
	return strings.Join(entries, "|")
}

func matchesFilter(q protocol.FindStoresQuery, store *domain.Store, rating int) bool {
	switch q.Filter {
	case protocol.FilterCategory:
		return strings.Contains(strings.ToLower(store.Category), q.Category)
	case protocol.FilterStars:
		return store.Stars >= q.MinStars
	case protocol.FilterPrice:
		return rating <= q.MaxPrice
	default:
		return true
	}
}

// Search matches the lowercased term against visible product names and types.
func (s *Service) Search(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))

	var b strings.Builder
	n := 0
	s.catalog.Each(func(store *domain.Store) {
		for _, p := range store.Products {
			if !p.Visible {
				continue
			}
			if !strings.Contains(strings.ToLower(p.Name), term) &&
				!strings.Contains(strings.ToLower(p.Type), term) {
				continue
			}
			n++
			fmt.Fprintf(&b, "%d. %s - Store: %s\n", n, p.String(), store.Name)
		}
	})
	if n == 0 {
		return protocol.NoSearchResults(term)
	}
	return protocol.SearchHeader(term) + b.String()
}

// SalesByCategory reports units sold per store whose category contains cat.
func (s *Service) SalesByCategory(cat string) string {
	filter := strings.ToLower(strings.TrimSpace(cat))

	var records []string
	total := 0
	s.catalog.Each(func(store *domain.Store) {
		if !strings.Contains(strings.ToLower(store.Category), filter) {
			return
		}
		units := s.ledger.StoreTotal(store.Name).Units
		if units == 0 {
			return
		}
		records = append(records, fmt.Sprintf("%s:%d", store.Name, units))
		total += units
	})
	if len(records) == 0 {
		return "No sales data found for category: " + cat
	}
	records = append(records, fmt.Sprintf("Total:%d", total))
	return strings.Join(records, "|")
}

// SalesByProduct reports units and revenue per product name containing
// filter, across all local stores, sorted by name. An empty filter matches
// every product with sales.
func (s *Service) SalesByProduct(filter string) string {
	filter = strings.ToLower(strings.TrimSpace(filter))

	byName := make(map[string]storage.SalesRecord)
	for _, key := range s.ledger.Keys() {
		if !strings.Contains(strings.ToLower(key.Product), filter) {
			continue
		}
		rec := s.ledger.Get(key.Store, key.Product)
		if rec.Units == 0 {
			continue
		}
		byName[key.Product] = byName[key.Product].Add(rec)
	}
	if len(byName) == 0 {
		return protocol.NoSalesData
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	slices.Sort(names)

	var total storage.SalesRecord
	records := make([]string, 0, len(names)+1)
	for _, name := range names {
		rec := byName[name]
		total = total.Add(rec)
		records = append(records, fmt.Sprintf("%s:%d:%s", name, rec.Units, protocol.FormatRevenue(rec.Revenue)))
	}
	records = append(records, fmt.Sprintf("Total:%d:%s", total.Units, protocol.FormatRevenue(total.Revenue)))
	return strings.Join(records, "|")
}
