// Package client drives the master's frame protocol. Each command runs on a
// fresh connection; transport failures are retried a fixed number of times
// with a constant delay, reconnecting before each attempt. In-band error
// replies are returned as text and never retried.
package client

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dreamware/foodgrid/internal/domain"
	"github.com/dreamware/foodgrid/internal/protocol"
	"github.com/dreamware/foodgrid/internal/wire"
)

// Options configures a Client.
type Options struct {
	Addr       string
	Retries    uint64
	RetryDelay time.Duration
	Timeout    time.Duration
	Logger     *log.Entry
}

// Client sends commands to one master.
type Client struct {
	addr       string
	retries    uint64
	retryDelay time.Duration
	timeout    time.Duration
	logger     *log.Entry
}

// New creates a client. Zero Retries means a single attempt. A zero delay or
// timeout defaults to 5s between retries and a 10s I/O timeout.
func New(opts Options) *Client {
	c := &Client{
		addr:       opts.Addr,
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
		timeout:    opts.Timeout,
		logger:     opts.Logger,
	}
	if c.retryDelay <= 0 {
		c.retryDelay = 5 * time.Second
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if c.logger == nil {
		l := log.New()
		l.SetOutput(io.Discard)
		c.logger = log.NewEntry(l)
	}
	return c
}

// Do sends frames as one request and returns the master's reply.
func (c *Client) Do(ctx context.Context, frames ...wire.Frame) (wire.Frame, error) {
	var resp wire.Frame
	op := func() error {
		conn, err := wire.Dial(c.addr, c.timeout)
		if err != nil {
			return err
		}
		defer conn.Close()
		resp, err = conn.Exchange(c.timeout, frames...)
		return err
	}
	notify := func(err error, next time.Duration) {
		c.logger.WithError(err).WithField("retryIn", next).Warn("master request failed, retrying")
	}

	// WithMaxRetries treats zero as unlimited, so no retries needs StopBackOff.
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if c.retries > 0 {
		policy = backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), c.retries)
	}
	b := backoff.WithContext(policy, ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return wire.Frame{}, errors.Wrapf(err, "master %s", c.addr)
	}
	return resp, nil
}

// Command sends a text-only command line and returns the text reply.
func (c *Client) Command(ctx context.Context, line string) (string, error) {
	resp, err := c.Do(ctx, wire.Text(line))
	if err != nil {
		return "", err
	}
	return resp.String(), nil
}

// AddStore registers store with the master.
func (c *Client) AddStore(ctx context.Context, store *domain.Store) (string, error) {
	store.Normalize()
	resp, err := c.Do(ctx, wire.Text(protocol.CmdAddStore), wire.StoreFrame(store))
	if err != nil {
		return "", err
	}
	return resp.String(), nil
}

// LoadStores reads each JSON store description and registers it. It stops
// at the first file that cannot be read or sent and returns the replies
// gathered so far.
func (c *Client) LoadStores(ctx context.Context, paths ...string) ([]string, error) {
	replies := make([]string, 0, len(paths))
	for _, path := range paths {
		store, err := domain.LoadStoreFile(path)
		if err != nil {
			return replies, err
		}
		reply, err := c.AddStore(ctx, store)
		if err != nil {
			return replies, err
		}
		c.logger.WithFields(log.Fields{"file": path, "reply": reply}).Info("store loaded")
		replies = append(replies, reply)
	}
	return replies, nil
}

// StoreInfo returns the store, or nil and the master's text when it is
// unknown.
func (c *Client) StoreInfo(ctx context.Context, name string) (*domain.Store, string, error) {
	resp, err := c.Do(ctx, wire.Text(protocol.CmdGetStoreInfo), wire.Text(name))
	if err != nil {
		return nil, "", err
	}
	if resp.Kind == wire.KindStore {
		return resp.Store, "", nil
	}
	return nil, resp.String(), nil
}

// UpdateStock adds (isAdd) or subtracts qty units of product.
func (c *Client) UpdateStock(ctx context.Context, product domain.Product, isAdd bool, qty int) (string, error) {
	resp, err := c.Do(ctx, wire.Text(protocol.CmdUpdateStock),
		wire.List(wire.ProductItem(product), wire.BoolItem(isAdd), wire.IntItem(qty)))
	if err != nil {
		return "", err
	}
	return resp.String(), nil
}

// AddProduct adds or restores product in its store.
func (c *Client) AddProduct(ctx context.Context, product domain.Product) (string, error) {
	return c.sendProduct(ctx, protocol.CmdAddProduct, product)
}

// RemoveProduct hides product in its store.
func (c *Client) RemoveProduct(ctx context.Context, product domain.Product) (string, error) {
	return c.sendProduct(ctx, protocol.CmdRemoveProduct, product)
}

func (c *Client) sendProduct(ctx context.Context, cmd string, product domain.Product) (string, error) {
	resp, err := c.Do(ctx, wire.Text(cmd), wire.ProductFrame(product))
	if err != nil {
		return "", err
	}
	return resp.String(), nil
}

// Buy purchases qty units of product from store.
func (c *Client) Buy(ctx context.Context, store, product string, qty int) (string, error) {
	return c.Command(ctx, protocol.CmdBuy+"|"+store+"|"+product+"|"+strconv.Itoa(qty))
}
