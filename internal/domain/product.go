package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Product is a sellable item embedded in exactly one Store.
// A removed product stays in the store with Visible set to false so its
// sales history keeps pointing at a real record.
type Product struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	StoreName string  `json:"storeName,omitempty"`
	Amount    int     `json:"amount"`
	Price     float64 `json:"price"`
	Visible   bool    `json:"visible"`
}

// NewProduct returns a visible product.
func NewProduct(name, productType string, amount int, price float64) Product {
	return Product{
		Name:    name,
		Type:    productType,
		Amount:  amount,
		Price:   price,
		Visible: true,
	}
}

// Validate rejects products that could never satisfy the stock invariants.
func (p Product) Validate() error {
	if p.Name == "" {
		return errors.Wrap(ErrInvalidProduct, "empty name")
	}
	if p.Amount < 0 {
		return errors.Wrapf(ErrInvalidProduct, "negative amount %d", p.Amount)
	}
	if p.Price < 0 {
		return errors.Wrapf(ErrInvalidProduct, "negative price %.2f", p.Price)
	}
	return nil
}

func (p Product) String() string {
	return fmt.Sprintf("%s - %s - Price: %.2f - Available: %d", p.Name, p.Type, p.Price, p.Amount)
}
