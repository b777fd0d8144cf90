package worker

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dreamware/foodgrid/internal/domain"
	"github.com/dreamware/foodgrid/internal/protocol"
	"github.com/dreamware/foodgrid/internal/storage"
	"github.com/dreamware/foodgrid/internal/wire"
)

// Snapshotter persists a store after it is added.
type Snapshotter interface {
	Save(s *domain.Store) error
}

// Emitter receives one telemetry record per processed command.
// Emit must not block.
type Emitter interface {
	Emit(t protocol.Telemetry)
}

// OperationStats counts commands handled by a Service.
type OperationStats struct {
	Requests  uint64 `json:"requests"`
	Mutations uint64 `json:"mutations"`
	Purchases uint64 `json:"purchases"`
	Rejected  uint64 `json:"rejectedPurchases"`
}

// Options configures a Service. Zero fields get in-memory defaults.
type Options struct {
	ID        string
	Catalog   storage.Catalog
	Ledger    *storage.SalesLedger
	Snapshots Snapshotter
	Telemetry Emitter
	Logger    *log.Entry
}

// Service executes worker commands against one shard's state.
// It is safe for concurrent use; per-store ordering comes from the catalog.
type Service struct {
	id        string
	catalog   storage.Catalog
	ledger    *storage.SalesLedger
	snapshots Snapshotter
	telemetry Emitter
	logger    *log.Entry
	stats     OperationStats
	now       func() time.Time
}

// Request is one command line plus its optional object frame.
type Request struct {
	Line    string
	Payload *wire.Frame
}

type nopSnapshotter struct{}

func (nopSnapshotter) Save(*domain.Store) error { return nil }

type nopEmitter struct{}

func (nopEmitter) Emit(protocol.Telemetry) {}

// NewService creates a Service from opts.
func NewService(opts Options) *Service {
	s := &Service{
		id:        opts.ID,
		catalog:   opts.Catalog,
		ledger:    opts.Ledger,
		snapshots: opts.Snapshots,
		telemetry: opts.Telemetry,
		logger:    opts.Logger,
		now:       time.Now,
	}
	if s.catalog == nil {
		s.catalog = storage.NewStoreCache()
	}
	if s.ledger == nil {
		s.ledger = storage.NewSalesLedger()
	}
	if s.snapshots == nil {
		s.snapshots = nopSnapshotter{}
	}
	if s.telemetry == nil {
		s.telemetry = nopEmitter{}
	}
	if s.logger == nil {
		l := log.New()
		l.SetOutput(io.Discard)
		s.logger = log.NewEntry(l)
	}
	return s
}

// ID returns the worker identifier stamped on telemetry.
func (s *Service) ID() string {
	return s.id
}

// Catalog returns the store state the service operates on.
func (s *Service) Catalog() storage.Catalog {
	return s.catalog
}

// Stats returns a copy of the operation counters.
func (s *Service) Stats() OperationStats {
	return OperationStats{
		Requests:  atomic.LoadUint64(&s.stats.Requests),
		Mutations: atomic.LoadUint64(&s.stats.Mutations),
		Purchases: atomic.LoadUint64(&s.stats.Purchases),
		Rejected:  atomic.LoadUint64(&s.stats.Rejected),
	}
}

// Handle dispatches req and returns the single response frame. Every
// command except ping produces one telemetry record.
func (s *Service) Handle(req Request) wire.Frame {
	start := s.now()
	name := protocol.Name(req.Line)
	if name == protocol.CmdPing {
		return wire.Text(protocol.Pong)
	}
	atomic.AddUint64(&s.stats.Requests, 1)

	var (
		resp     wire.Frame
		purchase *purchase
	)
	switch name {
	case protocol.CmdAddStore:
		resp = s.withStore(req.Payload, s.AddStore)
	case protocol.CmdGetStoreInfo:
		if storeName, ok := textPayload(req.Payload); ok {
			resp = s.StoreInfo(storeName)
		} else {
			resp = wire.Text(protocol.InvalidDataFormat)
		}
	case protocol.CmdGetStoreProducts:
		if storeName, ok := textPayload(req.Payload); ok {
			resp = wire.Text(s.StoreProducts(storeName))
		} else {
			resp = wire.Text(protocol.InvalidDataFormat)
		}
	case protocol.CmdUpdateStock:
		resp = wire.Text(s.handleUpdateStock(req.Payload))
	case protocol.CmdAddProduct:
		resp = s.withProduct(req.Payload, s.AddProduct)
	case protocol.CmdRemoveProduct:
		resp = s.withProduct(req.Payload, s.RemoveProduct)
	case protocol.CmdBuy:
		var text string
		text, purchase = s.handleBuy(req.Payload)
		resp = wire.Text(text)
	case protocol.CmdFindStores:
		resp = wire.Text(s.FindStores(req.Line))
	case protocol.CmdSearch:
		resp = wire.Text(s.Search(protocol.Arg(req.Line)))
	case protocol.CmdGetSalesByCategory:
		resp = wire.Text(s.SalesByCategory(protocol.Arg(req.Line)))
	case protocol.CmdGetSalesByProduct:
		resp = wire.Text(s.SalesByProduct(protocol.Arg(req.Line)))
	default:
		s.logger.WithField("command", name).Warn("unknown command")
		resp = wire.Text(fmt.Sprintf("%s: %s", protocol.UnknownCommand, name))
		name = "unknown"
	}

	rec := protocol.Telemetry{
		WorkerID:       s.id,
		Timestamp:      start.UnixMilli(),
		RequestType:    protocol.RequestType(name),
		ProcessingTime: s.now().Sub(start).Milliseconds(),
	}
	if purchase != nil {
		rec.StoreName = purchase.store
		rec.ProductName = purchase.product
		rec.Quantity = purchase.quantity
		rec.Success = true
	}
	s.telemetry.Emit(rec)
	return resp
}

func textPayload(f *wire.Frame) (string, bool) {
	if f == nil || !f.IsText() {
		return "", false
	}
	return f.Text, true
}

func (s *Service) withStore(f *wire.Frame, fn func(*domain.Store) string) wire.Frame {
	if f == nil || f.Kind != wire.KindStore {
		return wire.Text(protocol.InvalidDataFormat)
	}
	return wire.Text(fn(f.Store))
}

func (s *Service) withProduct(f *wire.Frame, fn func(domain.Product) string) wire.Frame {
	if f == nil || f.Kind != wire.KindProduct {
		return wire.Text(protocol.InvalidDataFormat)
	}
	return wire.Text(fn(*f.Product))
}

func (s *Service) handleUpdateStock(f *wire.Frame) string {
	if f == nil {
		return protocol.InvalidDataFormat
	}
	product, err := f.Item(0, wire.ItemProduct)
	if err != nil {
		return protocol.InvalidDataFormat
	}
	isAdd, err := f.Item(1, wire.ItemBool)
	if err != nil {
		return protocol.InvalidDataFormat
	}
	qty, err := f.Item(2, wire.ItemInt)
	if err != nil {
		return protocol.InvalidDataFormat
	}
	return s.UpdateStock(*product.Product, isAdd.Bool, qty.Int)
}

func (s *Service) handleBuy(f *wire.Frame) (string, *purchase) {
	if f == nil {
		return protocol.InvalidDataFormat, nil
	}
	storeName, err := f.Item(0, wire.ItemString)
	if err != nil {
		return protocol.InvalidDataFormat, nil
	}
	productName, err := f.Item(1, wire.ItemString)
	if err != nil {
		return protocol.InvalidDataFormat, nil
	}
	qty, err := f.Item(2, wire.ItemInt)
	if err != nil {
		return protocol.InvalidDataFormat, nil
	}
	return s.Buy(storeName.String, productName.String, qty.Int)
}
