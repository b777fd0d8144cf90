package domain

import (
	"fmt"
	"strings"
)

// Store is a restaurant owned by exactly one worker shard.
// Products keep their insertion order; listings are rendered in that order.
type Store struct {
	Name      string    `json:"storeName"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Category  string    `json:"foodCategory"`
	Stars     int       `json:"stars"`
	Votes     int       `json:"noOfVotes"`
	Logo      string    `json:"storeLogo"`
	Products  []Product `json:"products"`
}

// FindProduct returns the index of the product whose name matches
// case-insensitively, or -1.
func (s *Store) FindProduct(name string) int {
	for i := range s.Products {
		if strings.EqualFold(s.Products[i].Name, name) {
			return i
		}
	}
	return -1
}

// AveragePrice is the mean price over visible products, 0 when none are visible.
func (s *Store) AveragePrice() float64 {
	var total float64
	var count int
	for _, p := range s.Products {
		if !p.Visible {
			continue
		}
		total += p.Price
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// Clone returns a deep copy so callers can hand the store across goroutines
// without sharing the product slice.
func (s *Store) Clone() *Store {
	c := *s
	c.Products = make([]Product, len(s.Products))
	copy(c.Products, s.Products)
	return &c
}

// Normalize stamps every product with the owning store name.
func (s *Store) Normalize() {
	for i := range s.Products {
		s.Products[i].StoreName = s.Name
	}
}

func (s *Store) String() string {
	return fmt.Sprintf("%s - %s - Rating: %d/5 (%d votes)", s.Name, s.Category, s.Stars, s.Votes)
}
