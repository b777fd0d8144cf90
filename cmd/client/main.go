// Package main is a command-line driver for the foodgrid master. It loads
// store description files, issues customer and admin commands and prints
// the master's replies.
//
// Example usage:
//
//	client load stores/*.json
//	client buy Pizzeria Margherita 2
//	client send "findStores|37.98|23.72|5|category|pizza|0|3"
//	client stock Pizzeria Margherita add 10
//	client status --ops localhost:8080
//
// Transport failures are retried (--retries, default 3) after a fixed delay
// (--retry-delay, default 5s), reconnecting each time.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/dreamware/foodgrid/internal/client"
	"github.com/dreamware/foodgrid/internal/cluster"
	"github.com/dreamware/foodgrid/internal/config"
	"github.com/dreamware/foodgrid/internal/domain"
)

// logFatal is a variable to allow mocking log.Fatalf in tests.
var logFatal = log.Fatalf

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logFatal("client: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "client",
		Usage: "send commands to a foodgrid master",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "master", Value: config.DefaultMasterAddr, EnvVars: []string{"CLIENT_MASTER"}, Usage: "master address"},
			&cli.Uint64Flag{Name: "retries", Value: 3, Usage: "retries after a transport failure"},
			&cli.DurationFlag{Name: "retry-delay", Value: 5 * time.Second, Usage: "delay between retries"},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "log level"},
		},
		Commands: []*cli.Command{
			{
				Name:      "load",
				Usage:     "register stores from JSON description files",
				ArgsUsage: "FILE...",
				Action:    loadStores,
			},
			{
				Name:      "send",
				Usage:     "send a raw text command line",
				ArgsUsage: "LINE",
				Action:    send,
			},
			{
				Name:      "buy",
				Usage:     "purchase units of a product",
				ArgsUsage: "STORE PRODUCT QUANTITY",
				Action:    buy,
			},
			{
				Name:      "info",
				Usage:     "show a store",
				ArgsUsage: "STORE",
				Action:    info,
			},
			{
				Name:      "stock",
				Usage:     "add or subtract product stock",
				ArgsUsage: "STORE PRODUCT add|subtract QUANTITY",
				Action:    stock,
			},
			{
				Name:      "add-product",
				Usage:     "add or restore a product",
				ArgsUsage: "STORE PRODUCT TYPE AMOUNT PRICE",
				Action:    addProduct,
			},
			{
				Name:      "remove-product",
				Usage:     "hide a product from customers",
				ArgsUsage: "STORE PRODUCT",
				Action:    removeProduct,
			},
			{
				Name:  "status",
				Usage: "print the master's worker list and latest reducer report",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "ops", Value: "localhost:8080", Usage: "master ops HTTP address"},
				},
				Action: status,
			},
		},
	}
}

func newClient(c *cli.Context) (*client.Client, error) {
	logger, err := config.Logging{Level: c.String("log-level")}.NewLogger("client")
	if err != nil {
		return nil, err
	}
	return client.New(client.Options{
		Addr:       c.String("master"),
		Retries:    c.Uint64("retries"),
		RetryDelay: c.Duration("retry-delay"),
		Logger:     logger,
	}), nil
}

func wantArgs(c *cli.Context, n int) error {
	if c.Args().Len() != n {
		return errors.Errorf("%s expects %s", c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

func loadStores(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return errors.New("load expects at least one file")
	}
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	replies, err := cl.LoadStores(c.Context, c.Args().Slice()...)
	for _, r := range replies {
		fmt.Fprintln(c.App.Writer, r)
	}
	return err
}

func send(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return errors.New("send expects a command line")
	}
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	reply, err := cl.Command(c.Context, strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, reply)
	return nil
}

func buy(c *cli.Context) error {
	if err := wantArgs(c, 3); err != nil {
		return err
	}
	qty, err := strconv.Atoi(c.Args().Get(2))
	if err != nil {
		return errors.Wrap(err, "quantity")
	}
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	reply, err := cl.Buy(c.Context, c.Args().Get(0), c.Args().Get(1), qty)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, reply)
	return nil
}

func info(c *cli.Context) error {
	if err := wantArgs(c, 1); err != nil {
		return err
	}
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	store, text, err := cl.StoreInfo(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Fprintln(c.App.Writer, text)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%s (%s, %d stars, %d votes) at %.4f,%.4f\n",
		store.Name, store.Category, store.Stars, store.Votes, store.Latitude, store.Longitude)
	for _, p := range store.Products {
		if p.Visible {
			fmt.Fprintf(c.App.Writer, "  %s\n", p.String())
		}
	}
	return nil
}

func productRef(store, name string) domain.Product {
	p := domain.NewProduct(name, "", 0, 0)
	p.StoreName = store
	return p
}

func stock(c *cli.Context) error {
	if err := wantArgs(c, 4); err != nil {
		return err
	}
	var isAdd bool
	switch c.Args().Get(2) {
	case "add":
		isAdd = true
	case "subtract":
	default:
		return errors.Errorf("stock direction must be add or subtract, got %q", c.Args().Get(2))
	}
	qty, err := strconv.Atoi(c.Args().Get(3))
	if err != nil {
		return errors.Wrap(err, "quantity")
	}
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	reply, err := cl.UpdateStock(c.Context, productRef(c.Args().Get(0), c.Args().Get(1)), isAdd, qty)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, reply)
	return nil
}

func addProduct(c *cli.Context) error {
	if err := wantArgs(c, 5); err != nil {
		return err
	}
	amount, err := strconv.Atoi(c.Args().Get(3))
	if err != nil {
		return errors.Wrap(err, "amount")
	}
	price, err := strconv.ParseFloat(c.Args().Get(4), 64)
	if err != nil {
		return errors.Wrap(err, "price")
	}
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	p := domain.NewProduct(c.Args().Get(1), c.Args().Get(2), amount, price)
	p.StoreName = c.Args().Get(0)
	reply, err := cl.AddProduct(c.Context, p)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, reply)
	return nil
}

func removeProduct(c *cli.Context) error {
	if err := wantArgs(c, 2); err != nil {
		return err
	}
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	reply, err := cl.RemoveProduct(c.Context, productRef(c.Args().Get(0), c.Args().Get(1)))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, reply)
	return nil
}

func status(c *cli.Context) error {
	base := "http://" + c.String("ops")

	var workers cluster.WorkersResponse
	if err := cluster.GetJSON(c.Context, base+"/workers", &workers); err != nil {
		return err
	}
	for _, w := range workers.Workers {
		health := w.HealthStatus
		if health == "" {
			health = "unknown"
		}
		fmt.Fprintf(c.App.Writer, "%s %s connected=%t stores=%d health=%s\n",
			w.ID, w.Addr, w.Connected, w.Stores, health)
	}

	var stats cluster.StatsResponse
	if err := cluster.GetJSON(c.Context, base+"/stats", &stats); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "reports=%d requests=%v sales=%v\n", stats.Reports, stats.RequestCounts, stats.StoreSales)
	return nil
}
