package coordinator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/dreamware/foodgrid/internal/protocol"
)

// NoWorkerReachable is the scatter reply when every worker failed.
const NoWorkerReachable = "Error: no worker reachable"

// contributing drops failed partials. ok is false when nothing is left.
func contributing(partials []string) (out []string, ok bool) {
	for _, p := range partials {
		if p == "" || protocol.IsError(p) {
			continue
		}
		out = append(out, p)
	}
	return out, len(out) > 0
}

// mergeFindStores joins the non-empty partials with '|'.
func mergeFindStores(partials []string) string {
	parts, ok := contributing(partials)
	if !ok {
		return NoWorkerReachable
	}
	var entries []string
	for _, p := range parts {
		if p == protocol.NoStoresFound {
			continue
		}
		entries = append(entries, p)
	}
	if len(entries) == 0 {
		return protocol.NoStoresFound
	}
	return strings.Join(entries, "|")
}

// mergeSearch concatenates the numbered result lines of every partial and
// renumbers them from 1.
func mergeSearch(term string, partials []string) string {
	parts, ok := contributing(partials)
	if !ok {
		return NoWorkerReachable
	}
	term = strings.ToLower(strings.TrimSpace(term))
	header := protocol.SearchHeader(term)

	var b strings.Builder
	n := 0
	for _, p := range parts {
		if !strings.HasPrefix(p, header) {
			continue
		}
		for _, line := range strings.Split(strings.TrimPrefix(p, header), "\n") {
			dot := strings.Index(line, ". ")
			if dot < 0 {
				continue
			}
			if _, err := strconv.Atoi(line[:dot]); err != nil {
				continue
			}
			n++
			fmt.Fprintf(&b, "%d. %s\n", n, line[dot+2:])
		}
	}
	if n == 0 {
		return protocol.NoSearchResults(term)
	}
	return header + b.String()
}

// mergeSalesByCategory sums units per store and appends the overall total.
func mergeSalesByCategory(cat string, partials []string) string {
	parts, ok := contributing(partials)
	if !ok {
		return NoWorkerReachable
	}
	units := make(map[string]int)
	var order []string
	for _, p := range parts {
		for _, rec := range strings.Split(p, "|") {
			name, value, found := cutLast(rec, ":")
			if !found || name == "Total" {
				continue
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				continue
			}
			if _, seen := units[name]; !seen {
				order = append(order, name)
			}
			units[name] += n
		}
	}
	if len(order) == 0 {
		return "No sales data found for category: " + cat
	}

	total := 0
	records := make([]string, 0, len(order)+1)
	for _, name := range order {
		total += units[name]
		records = append(records, fmt.Sprintf("%s:%d", name, units[name]))
	}
	records = append(records, fmt.Sprintf("Total:%d", total))
	return strings.Join(records, "|")
}

type productSales struct {
	units   int
	revenue decimal.Decimal
}

// mergeSalesByProduct sums units and revenue per product name across
// workers, sorted by name, and appends the overall total.
func mergeSalesByProduct(partials []string) string {
	parts, ok := contributing(partials)
	if !ok {
		return NoWorkerReachable
	}
	sales := make(map[string]productSales)
	for _, p := range parts {
		for _, rec := range strings.Split(p, "|") {
			rest, revenue, found := cutLast(rec, ":")
			if !found {
				continue
			}
			name, units, found := cutLast(rest, ":")
			if !found || name == "Total" {
				continue
			}
			n, err := strconv.Atoi(units)
			if err != nil {
				continue
			}
			r, err := protocol.ParseRevenue(revenue)
			if err != nil {
				continue
			}
			cur := sales[name]
			sales[name] = productSales{units: cur.units + n, revenue: cur.revenue.Add(r)}
		}
	}
	if len(sales) == 0 {
		return protocol.NoSalesData
	}

	names := make([]string, 0, len(sales))
	for name := range sales {
		names = append(names, name)
	}
	slices.Sort(names)

	var total productSales
	records := make([]string, 0, len(names)+1)
	for _, name := range names {
		s := sales[name]
		total.units += s.units
		total.revenue = total.revenue.Add(s.revenue)
		records = append(records, fmt.Sprintf("%s:%d:%s", name, s.units, protocol.FormatRevenue(s.revenue)))
	}
	records = append(records, fmt.Sprintf("Total:%d:%s", total.units, protocol.FormatRevenue(total.revenue)))
	return strings.Join(records, "|")
}

// cutLast splits s around the last sep; names may contain sep.
func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
