package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/foodgrid/internal/protocol"
	"github.com/dreamware/foodgrid/internal/wire"
)

const workerAddedStore = "Worker successfully added store"

// Dispatcher routes client commands to workers and merges scatter replies.
// It holds no state of its own beyond the registry's links.
type Dispatcher struct {
	registry *WorkerRegistry
	logger   *log.Entry
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *WorkerRegistry, logger *log.Entry) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger}
}

// Dispatch executes one client command and returns the single response
// frame. payload is the object frame that followed line, if the command
// takes one.
func (d *Dispatcher) Dispatch(ctx context.Context, line string, payload *wire.Frame) wire.Frame {
	name := protocol.Name(line)
	switch name {
	case protocol.CmdPing:
		return wire.Text(protocol.Pong)
	case protocol.CmdAddStore:
		return wire.Text(d.addStore(payload))
	case protocol.CmdGetStoreInfo:
		if payload == nil || !payload.IsText() {
			return wire.Text(protocol.InvalidDataFormat)
		}
		return d.forward(payload.Text, wire.Text(protocol.CmdGetStoreInfo), *payload)
	case protocol.CmdGetStoreProducts:
		storeName := protocol.Arg(line)
		return d.forward(storeName, wire.Text(protocol.CmdGetStoreProducts), wire.Text(storeName))
	case protocol.CmdUpdateStock:
		if payload == nil {
			return wire.Text(protocol.InvalidDataFormat)
		}
		item, err := payload.Item(0, wire.ItemProduct)
		if err != nil {
			return wire.Text(protocol.InvalidDataFormat)
		}
		return d.forwardProduct(item.Product.StoreName, protocol.CmdUpdateStock, *payload)
	case protocol.CmdAddProduct, protocol.CmdRemoveProduct:
		if payload == nil || payload.Kind != wire.KindProduct {
			return wire.Text(protocol.InvalidDataFormat)
		}
		return d.forwardProduct(payload.Product.StoreName, name, *payload)
	case protocol.CmdBuy:
		req, err := protocol.ParseBuy(line)
		if err != nil {
			return wire.Text(err.Error())
		}
		return d.forward(req.Store, wire.Text(protocol.CmdBuy), wire.List(
			wire.StringItem(req.Store),
			wire.StringItem(req.Product),
			wire.IntItem(req.Quantity),
		))
	case protocol.CmdFindStores:
		if _, err := protocol.ParseFindStores(line); err != nil {
			return wire.Text(protocol.InvalidSearchFormat)
		}
		return wire.Text(mergeFindStores(d.scatter(ctx, line)))
	case protocol.CmdSearch:
		return wire.Text(mergeSearch(protocol.Arg(line), d.scatter(ctx, line)))
	case protocol.CmdGetSalesByCategory:
		return wire.Text(mergeSalesByCategory(protocol.Arg(line), d.scatter(ctx, line)))
	case protocol.CmdGetSalesByProduct:
		return wire.Text(mergeSalesByProduct(d.scatter(ctx, line)))
	}
	d.logger.WithField("command", name).Warn("unknown client command")
	return wire.Text(protocol.UnknownCommand)
}

// addStore pre-checks the owning worker so a duplicate name is reported
// instead of overwriting the existing store. The check and the add share one
// hold of the link, so concurrent adds of the same name cannot both pass.
func (d *Dispatcher) addStore(payload *wire.Frame) string {
	if payload == nil || payload.Kind != wire.KindStore || payload.Store == nil || payload.Store.Name == "" {
		return protocol.InvalidDataFormat
	}
	store := payload.Store
	link := d.registry.ForStore(store.Name)

	var exists bool
	var resp wire.Frame
	err := link.Session(func(exchange func(...wire.Frame) (wire.Frame, error)) error {
		existing, err := exchange(wire.Text(protocol.CmdGetStoreInfo), wire.Text(store.Name))
		if err != nil {
			return err
		}
		if existing.Kind == wire.KindStore {
			exists = true
			return nil
		}
		resp, err = exchange(wire.Text(protocol.CmdAddStore+" "+store.Name), *payload)
		return err
	})
	if err != nil {
		return unavailable(link, err)
	}
	if exists {
		return fmt.Sprintf("Store already exists: %s (Store is already in the system)", store.Name)
	}
	if !strings.HasPrefix(resp.Text, workerAddedStore) {
		d.logger.WithFields(log.Fields{
			"store":  store.Name,
			"worker": link.Index,
			"reply":  resp.String(),
		}).Warn("worker refused store")
		return "Failed to add store: " + store.Name
	}
	d.registry.RecordStore(store.Name)
	d.logger.WithFields(log.Fields{"store": store.Name, "worker": link.Index}).Info("store added")
	return "Store added successfully: " + store.Name
}

func (d *Dispatcher) forwardProduct(storeName, cmd string, payload wire.Frame) wire.Frame {
	if storeName == "" {
		return wire.Text(protocol.StoreNotFound)
	}
	return d.forward(storeName, wire.Text(cmd), payload)
}

// forward sends frames to the worker owning storeName and passes the
// worker's reply through unchanged.
func (d *Dispatcher) forward(storeName string, frames ...wire.Frame) wire.Frame {
	link := d.registry.ForStore(storeName)
	resp, err := link.Exchange(frames...)
	if err != nil {
		return wire.Text(unavailable(link, err))
	}
	return resp
}

// scatter sends line to every worker concurrently and returns the text
// replies in worker order. A failed worker contributes "".
func (d *Dispatcher) scatter(ctx context.Context, line string) []string {
	links := d.registry.All()
	partials := make([]string, len(links))

	g, gctx := errgroup.WithContext(ctx)
	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			resp, err := link.Exchange(wire.Text(line))
			if err != nil {
				d.logger.WithError(err).WithField("worker", link.Index).Warn("scatter request failed")
				return nil
			}
			partials[i] = resp.Text
			return nil
		})
	}
	_ = g.Wait()
	return partials
}

func unavailable(link *WorkerLink, err error) string {
	return fmt.Sprintf("Error: worker %d unavailable: %v", link.Index, errors.Cause(err))
}
