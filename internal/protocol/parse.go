package protocol

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Filter types accepted by findStores.
const (
	FilterNone     = "none"
	FilterCategory = "category"
	FilterStars    = "stars"
	FilterPrice    = "price"
)

const (
	defaultMinStars = 0
	defaultMaxPrice = 3
)

// InvalidBuyFormat is the reply to a malformed buy line.
const InvalidBuyFormat = "Invalid purchase command format. Expected: buy|storeName|productName|quantity"

// errInvalidSearch carries the canonical findStores parse failure.
var errInvalidSearch = errors.New(InvalidSearchFormat)

// BuyRequest is a parsed buy line.
type BuyRequest struct {
	Store    string
	Product  string
	Quantity int
}

// ParseBuy parses buy|<store>|<product>|<qty>. The returned error text is
// the response to send back to the client.
func ParseBuy(line string) (BuyRequest, error) {
	parts := strings.Split(strings.TrimSpace(line), "|")
	if len(parts) != 4 || parts[0] != CmdBuy {
		return BuyRequest{}, errors.New(InvalidBuyFormat)
	}
	qty, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil {
		return BuyRequest{}, errors.Errorf("Invalid quantity format: %s", parts[3])
	}
	return BuyRequest{
		Store:    strings.TrimSpace(parts[1]),
		Product:  strings.TrimSpace(parts[2]),
		Quantity: qty,
	}, nil
}

// FindStoresQuery is a parsed findStores line.
type FindStoresQuery struct {
	Latitude  float64
	Longitude float64
	Radius    float64
	Filter    string
	Category  string
	MinStars  int
	MaxPrice  int
}

// ParseFindStores parses
// findStores|<lat>|<lon>|<radius>|<filterType>|<category>|<minStars>|<maxPrice>.
//
// Fewer than four fields is a format error. Missing or empty trailing fields
// fall back to filter "none", no category, minStars 0 and maxPrice 3.
// Fields past the eighth are ignored.
func ParseFindStores(line string) (FindStoresQuery, error) {
	parts := strings.Split(strings.TrimSpace(line), "|")
	if len(parts) < 4 {
		return FindStoresQuery{}, errInvalidSearch
	}
	field := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}

	q := FindStoresQuery{
		Filter:   strings.ToLower(field(4)),
		Category: strings.ToLower(field(5)),
		MinStars: defaultMinStars,
		MaxPrice: defaultMaxPrice,
	}
	if q.Filter == "" {
		q.Filter = FilterNone
	}

	var err error
	if q.Latitude, err = strconv.ParseFloat(field(1), 64); err != nil {
		return FindStoresQuery{}, errors.Wrap(errInvalidSearch, "latitude")
	}
	if q.Longitude, err = strconv.ParseFloat(field(2), 64); err != nil {
		return FindStoresQuery{}, errors.Wrap(errInvalidSearch, "longitude")
	}
	if q.Radius, err = strconv.ParseFloat(field(3), 64); err != nil {
		return FindStoresQuery{}, errors.Wrap(errInvalidSearch, "radius")
	}
	if v := field(6); v != "" {
		stars, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return FindStoresQuery{}, errors.Wrap(errInvalidSearch, "minStars")
		}
		q.MinStars = int(stars)
	}
	if v := field(7); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return FindStoresQuery{}, errors.Wrap(errInvalidSearch, "maxPrice")
		}
		q.MaxPrice = int(price)
	}
	return q, nil
}

// IsInvalidSearch reports whether err came from ParseFindStores rejecting
// its input.
func IsInvalidSearch(err error) bool {
	return errors.Cause(err) == errInvalidSearch
}
