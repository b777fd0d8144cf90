package domain

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// storeDocument mirrors the store description files operators hand to the
// manager client. Key names, including "Available Amount", are fixed by
// existing data files.
type storeDocument struct {
	StoreName    string            `json:"StoreName"`
	Latitude     float64           `json:"Latitude"`
	Longitude    float64           `json:"Longitude"`
	FoodCategory string            `json:"FoodCategory"`
	Stars        int               `json:"Stars"`
	NoOfVotes    int               `json:"NoOfVotes"`
	StoreLogo    string            `json:"StoreLogo"`
	Products     []productDocument `json:"Products"`
}

type productDocument struct {
	ProductName     string  `json:"ProductName"`
	ProductType     string  `json:"ProductType"`
	AvailableAmount int     `json:"Available Amount"`
	Price           float64 `json:"Price"`
}

// DecodeStore reads a store description document.
func DecodeStore(r io.Reader) (*Store, error) {
	var doc storeDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode store document")
	}
	if doc.StoreName == "" {
		return nil, errors.New("store document has no StoreName")
	}

	store := &Store{
		Name:      doc.StoreName,
		Latitude:  doc.Latitude,
		Longitude: doc.Longitude,
		Category:  doc.FoodCategory,
		Stars:     doc.Stars,
		Votes:     doc.NoOfVotes,
		Logo:      doc.StoreLogo,
		Products:  make([]Product, 0, len(doc.Products)),
	}
	for _, p := range doc.Products {
		product := NewProduct(p.ProductName, p.ProductType, p.AvailableAmount, p.Price)
		if err := product.Validate(); err != nil {
			return nil, errors.Wrapf(err, "store %s", doc.StoreName)
		}
		store.Products = append(store.Products, product)
	}
	store.Normalize()
	return store, nil
}

// LoadStoreFile opens path and decodes it with DecodeStore.
func LoadStoreFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return DecodeStore(f)
}

// EncodeStore writes s in the document layout DecodeStore reads.
func EncodeStore(w io.Writer, s *Store) error {
	doc := storeDocument{
		StoreName:    s.Name,
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		FoodCategory: s.Category,
		Stars:        s.Stars,
		NoOfVotes:    s.Votes,
		StoreLogo:    s.Logo,
		Products:     make([]productDocument, 0, len(s.Products)),
	}
	for _, p := range s.Products {
		doc.Products = append(doc.Products, productDocument{
			ProductName:     p.Name,
			ProductType:     p.Type,
			AvailableAmount: p.Amount,
			Price:           p.Price,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return errors.Wrap(enc.Encode(doc), "encode store document")
}
