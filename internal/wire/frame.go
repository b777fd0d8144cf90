// Package wire implements the length-prefixed frame protocol spoken between
// clients, the master, workers and the reducer.
//
// Every frame is a 4-byte big-endian payload length followed by a JSON
// envelope whose "kind" field selects one of five shapes:
//
//	string   a command line or a text response
//	store    a domain.Store
//	product  a domain.Product
//	list     an ordered list of typed items (string, int, bool, product)
//	map      an arbitrary JSON object (telemetry and reducer snapshots)
//
// A request is one string frame, optionally followed by one object frame.
// A response is exactly one frame.
package wire

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/dreamware/foodgrid/internal/domain"
)

// Kind tags the payload carried by a Frame.
type Kind string

const (
	KindString  Kind = "string"
	KindStore   Kind = "store"
	KindProduct Kind = "product"
	KindList    Kind = "list"
	KindMap     Kind = "map"
)

// ItemType tags a single element of a list frame.
type ItemType string

const (
	ItemString  ItemType = "string"
	ItemInt     ItemType = "int"
	ItemBool    ItemType = "bool"
	ItemProduct ItemType = "product"
)

// Item is one typed element of a list frame.
type Item struct {
	Type    ItemType        `json:"type"`
	String  string          `json:"string,omitempty"`
	Int     int             `json:"int,omitempty"`
	Bool    bool            `json:"bool,omitempty"`
	Product *domain.Product `json:"product,omitempty"`
}

// Frame is the tagged union exchanged on every connection.
type Frame struct {
	Kind    Kind            `json:"kind"`
	Text    string          `json:"text,omitempty"`
	Store   *domain.Store   `json:"store,omitempty"`
	Product *domain.Product `json:"product,omitempty"`
	List    []Item          `json:"list,omitempty"`
	Map     json.RawMessage `json:"map,omitempty"`
}

// Text builds a string frame.
func Text(s string) Frame {
	return Frame{Kind: KindString, Text: s}
}

// StoreFrame builds a store frame.
func StoreFrame(s *domain.Store) Frame {
	return Frame{Kind: KindStore, Store: s}
}

// ProductFrame builds a product frame.
func ProductFrame(p domain.Product) Frame {
	return Frame{Kind: KindProduct, Product: &p}
}

// List builds a list frame from items.
func List(items ...Item) Frame {
	return Frame{Kind: KindList, List: items}
}

// Map marshals v as the body of a map frame.
func Map(v any) (Frame, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Frame{}, errors.Wrap(err, "marshal map frame")
	}
	return Frame{Kind: KindMap, Map: raw}, nil
}

func StringItem(s string) Item { return Item{Type: ItemString, String: s} }
func IntItem(n int) Item       { return Item{Type: ItemInt, Int: n} }
func BoolItem(b bool) Item     { return Item{Type: ItemBool, Bool: b} }

func ProductItem(p domain.Product) Item {
	return Item{Type: ItemProduct, Product: &p}
}

// IsText reports whether f is a string frame.
func (f Frame) IsText() bool {
	return f.Kind == KindString
}

// DecodeMap unmarshals the body of a map frame into v.
func (f Frame) DecodeMap(v any) error {
	if f.Kind != KindMap {
		return errors.Errorf("expected map frame, got %s", f.Kind)
	}
	return errors.Wrap(json.Unmarshal(f.Map, v), "decode map frame")
}

// Item returns the i-th list element after checking its type.
func (f Frame) Item(i int, want ItemType) (Item, error) {
	if f.Kind != KindList {
		return Item{}, errors.Errorf("expected list frame, got %s", f.Kind)
	}
	if i < 0 || i >= len(f.List) {
		return Item{}, errors.Errorf("list has %d items, wanted index %d", len(f.List), i)
	}
	item := f.List[i]
	if item.Type != want {
		return Item{}, errors.Errorf("list item %d is %s, expected %s", i, item.Type, want)
	}
	if want == ItemProduct && item.Product == nil {
		return Item{}, errors.Errorf("list item %d has no product", i)
	}
	return item, nil
}

// validate checks that the payload required by the kind is present.
func (f Frame) validate() error {
	switch f.Kind {
	case KindString, KindList:
		return nil
	case KindStore:
		if f.Store == nil {
			return errors.New("store frame without store")
		}
	case KindProduct:
		if f.Product == nil {
			return errors.New("product frame without product")
		}
	case KindMap:
		if len(f.Map) == 0 {
			return errors.New("map frame without body")
		}
	default:
		return errors.Wrapf(ErrUnknownKind, "%q", f.Kind)
	}
	return nil
}

func (f Frame) String() string {
	switch f.Kind {
	case KindString:
		return f.Text
	case KindStore:
		return "store:" + f.Store.Name
	case KindProduct:
		return "product:" + f.Product.Name
	default:
		return string(f.Kind)
	}
}
