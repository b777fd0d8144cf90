package worker

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dreamware/foodgrid/internal/domain"
	"github.com/dreamware/foodgrid/internal/protocol"
	"github.com/dreamware/foodgrid/internal/wire"
)

// purchase describes a committed buy for telemetry.
type purchase struct {
	store    string
	product  string
	quantity int
}

func productNotFound(product, store string) string {
	return fmt.Sprintf("Error: Product '%s' not found in store '%s'", product, store)
}

func insufficientStock(requested, available int) string {
	return fmt.Sprintf("Error: Insufficient stock. Requested: %d, Available: %d", requested, available)
}

// AddStore inserts or replaces a store and writes its snapshot.
// A failed snapshot is logged; the store is still served from memory.
func (s *Service) AddStore(store *domain.Store) string {
	if store == nil || store.Name == "" {
		return protocol.InvalidDataFormat
	}
	for _, p := range store.Products {
		if err := p.Validate(); err != nil {
			return "Error: " + err.Error()
		}
	}

	replaced := s.catalog.Put(store)
	atomic.AddUint64(&s.stats.Mutations, 1)

	logger := s.logger.WithFields(log.Fields{
		"store":    store.Name,
		"products": len(store.Products),
		"replaced": replaced,
	})
	if err := s.snapshots.Save(store); err != nil {
		logger.WithError(err).Error("store snapshot failed")
	}
	logger.Info("store added")
	return "Worker successfully added store: " + store.Name
}

// StoreInfo returns the store as a frame or the not-found string.
func (s *Service) StoreInfo(name string) wire.Frame {
	store, err := s.catalog.Get(name)
	if err != nil {
		return wire.Text(protocol.StoreNotFound)
	}
	return wire.StoreFrame(store)
}

// StoreProducts lists visible products as name,price,amount records.
func (s *Service) StoreProducts(name string) string {
	store, err := s.catalog.Get(name)
	if err != nil {
		return protocol.StoreNotFound
	}
	var records []string
	for _, p := range store.Products {
		if !p.Visible {
			continue
		}
		records = append(records, fmt.Sprintf("%s,%.2f,%d", p.Name, p.Price, p.Amount))
	}
	if len(records) == 0 {
		return protocol.NoProductsAvailable
	}
	return strings.Join(records, "|")
}

// UpdateStock adds qty to, or subtracts qty from, a product's amount.
// The product's StoreName selects the store.
func (s *Service) UpdateStock(p domain.Product, isAdd bool, qty int) string {
	if qty <= 0 {
		return "Error: Quantity must be positive"
	}

	var productName string
	var available, updated int
	err := s.catalog.Update(p.StoreName, func(store *domain.Store) error {
		i := store.FindProduct(p.Name)
		if i < 0 {
			return domain.ErrProductNotFound
		}
		target := &store.Products[i]
		productName = target.Name
		available = target.Amount
		if isAdd {
			target.Amount += qty
		} else {
			if qty > target.Amount {
				return domain.ErrInsufficientStock
			}
			target.Amount -= qty
		}
		updated = target.Amount
		return nil
	})

	logger := s.logger.WithFields(log.Fields{
		"store":   p.StoreName,
		"product": p.Name,
		"add":     isAdd,
		"qty":     qty,
	})
	switch errors.Cause(err) {
	case nil:
		atomic.AddUint64(&s.stats.Mutations, 1)
		logger.WithField("amount", updated).Info("stock updated")
		return fmt.Sprintf("Worker successfully updated stock for product: %s. New amount: %d", productName, updated)
	case domain.ErrStoreNotFound:
		return protocol.StoreNotFound
	case domain.ErrProductNotFound:
		return productNotFound(p.Name, p.StoreName)
	case domain.ErrInsufficientStock:
		logger.WithField("available", available).Warn("stock update rejected")
		return insufficientStock(qty, available)
	default:
		return "Error: " + err.Error()
	}
}

// AddProduct appends a product, or restores a hidden one with the same
// name, overwriting its type, amount and price.
func (s *Service) AddProduct(p domain.Product) string {
	if err := p.Validate(); err != nil {
		return "Error: " + err.Error()
	}

	restored := false
	err := s.catalog.Update(p.StoreName, func(store *domain.Store) error {
		if i := store.FindProduct(p.Name); i >= 0 {
			existing := &store.Products[i]
			if existing.Visible {
				return domain.ErrProductExists
			}
			existing.Visible = true
			existing.Type = p.Type
			existing.Amount = p.Amount
			existing.Price = p.Price
			restored = true
			return nil
		}
		added := p
		added.Visible = true
		added.StoreName = store.Name
		store.Products = append(store.Products, added)
		return nil
	})

	switch errors.Cause(err) {
	case nil:
	case domain.ErrStoreNotFound:
		return protocol.StoreNotFound
	case domain.ErrProductExists:
		return fmt.Sprintf("Error: Product '%s' already exists in store '%s'", p.Name, p.StoreName)
	default:
		return "Error: " + err.Error()
	}

	atomic.AddUint64(&s.stats.Mutations, 1)
	logger := s.logger.WithFields(log.Fields{"store": p.StoreName, "product": p.Name})
	if restored {
		logger.Info("product restored")
		return "Worker successfully restored product: " + p.Name
	}
	logger.Info("product added")
	return "Worker successfully added product: " + p.Name
}

// RemoveProduct hides a product. Its sales history is untouched.
func (s *Service) RemoveProduct(p domain.Product) string {
	err := s.catalog.Update(p.StoreName, func(store *domain.Store) error {
		i := store.FindProduct(p.Name)
		if i < 0 {
			return domain.ErrProductNotFound
		}
		store.Products[i].Visible = false
		return nil
	})

	switch errors.Cause(err) {
	case nil:
		atomic.AddUint64(&s.stats.Mutations, 1)
		s.logger.WithFields(log.Fields{"store": p.StoreName, "product": p.Name}).Info("product hidden")
		return "Worker successfully removed product: " + p.Name
	case domain.ErrStoreNotFound:
		return protocol.StoreNotFound
	case domain.ErrProductNotFound:
		return productNotFound(p.Name, p.StoreName)
	default:
		return "Error: " + err.Error()
	}
}

// Buy validates and commits a purchase while holding the store lock.
// Stock decrement and the sales record happen together or not at all.
func (s *Service) Buy(storeName, productName string, qty int) (string, *purchase) {
	if qty <= 0 {
		atomic.AddUint64(&s.stats.Rejected, 1)
		return fmt.Sprintf("Error: Invalid quantity %d", qty), nil
	}

	var (
		committed purchase
		available int
		remaining int
		price     float64
	)
	err := s.catalog.Update(storeName, func(store *domain.Store) error {
		i := store.FindProduct(productName)
		if i < 0 || !store.Products[i].Visible {
			return domain.ErrProductNotFound
		}
		target := &store.Products[i]
		available = target.Amount
		if target.Amount < qty {
			return domain.ErrInsufficientStock
		}
		target.Amount -= qty
		remaining = target.Amount
		price = target.Price
		s.ledger.Record(store.Name, target.Name, qty, target.Price)
		committed = purchase{store: store.Name, product: target.Name, quantity: qty}
		return nil
	})

	logger := s.logger.WithFields(log.Fields{
		"store":   storeName,
		"product": productName,
		"qty":     qty,
	})
	switch errors.Cause(err) {
	case nil:
	case domain.ErrStoreNotFound:
		atomic.AddUint64(&s.stats.Rejected, 1)
		return fmt.Sprintf("Error: Store '%s' not found", storeName), nil
	case domain.ErrProductNotFound:
		atomic.AddUint64(&s.stats.Rejected, 1)
		return productNotFound(productName, storeName), nil
	case domain.ErrInsufficientStock:
		atomic.AddUint64(&s.stats.Rejected, 1)
		logger.WithField("available", available).Warn("purchase rejected")
		return insufficientStock(qty, available), nil
	default:
		atomic.AddUint64(&s.stats.Rejected, 1)
		return "Error: " + err.Error(), nil
	}

	atomic.AddUint64(&s.stats.Purchases, 1)
	logger.WithField("remaining", remaining).Info("purchase committed")
	return fmt.Sprintf("Success: Purchased %d %s for %.2fEUR. Remaining stock: %d",
		qty, committed.product, float64(qty)*price, remaining), &committed
}
