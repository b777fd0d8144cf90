package worker

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/foodgrid/internal/domain"
	"github.com/dreamware/foodgrid/internal/protocol"
	"github.com/dreamware/foodgrid/internal/storage"
	"github.com/dreamware/foodgrid/internal/wire"
)

type recordingEmitter struct {
	mu      sync.Mutex
	records []protocol.Telemetry
}

func (r *recordingEmitter) Emit(t protocol.Telemetry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, t)
}

func (r *recordingEmitter) all() []protocol.Telemetry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Telemetry(nil), r.records...)
}

type failingSnapshotter struct{ calls int }

func (f *failingSnapshotter) Save(*domain.Store) error {
	f.calls++
	return fmt.Errorf("disk full")
}

func pizzeria() *domain.Store {
	return &domain.Store{
		Name:      "Pizzeria",
		Latitude:  37.98,
		Longitude: 23.72,
		Category:  "pizza",
		Stars:     4,
		Votes:     10,
		Products: []domain.Product{
			domain.NewProduct("Margherita", "pizza", 5, 8.5),
		},
	}
}

func productOf(store, name string) domain.Product {
	p := domain.NewProduct(name, "", 0, 0)
	p.StoreName = store
	return p
}

func newTestService(t *testing.T) (*Service, *recordingEmitter) {
	t.Helper()
	em := &recordingEmitter{}
	svc := NewService(Options{ID: "Worker-test", Telemetry: em})
	require.Equal(t, "Worker successfully added store: Pizzeria", svc.AddStore(pizzeria()))
	return svc, em
}

func TestHappyPathPurchase(t *testing.T) {
	svc, _ := newTestService(t)

	assert.Equal(t, "Pizzeria,pizza,0.00,4,8.50,$$", svc.FindStores("findStores|37.98|23.72|5|none|||0|3"))

	msg, p := svc.Buy("Pizzeria", "Margherita", 2)
	assert.Equal(t, "Success: Purchased 2 Margherita for 17.00EUR. Remaining stock: 3", msg)
	require.NotNil(t, p)
	assert.Equal(t, purchase{store: "Pizzeria", product: "Margherita", quantity: 2}, *p)

	assert.Equal(t, "Margherita:2:17.0|Total:2:17.0", svc.SalesByProduct("Margherita"))
}

func TestOversellRejection(t *testing.T) {
	svc, _ := newTestService(t)
	_, _ = svc.Buy("Pizzeria", "Margherita", 2)

	msg, p := svc.Buy("Pizzeria", "Margherita", 10)
	assert.Nil(t, p)
	assert.True(t, strings.HasPrefix(msg, "Error: Insufficient stock"))
	assert.Equal(t, "Error: Insufficient stock. Requested: 10, Available: 3", msg)
	assert.Equal(t, "Margherita,8.50,3", svc.StoreProducts("Pizzeria"))
}

func TestHiddenProduct(t *testing.T) {
	svc, _ := newTestService(t)
	_, _ = svc.Buy("Pizzeria", "Margherita", 2)

	assert.Equal(t, "Worker successfully removed product: Margherita",
		svc.RemoveProduct(productOf("Pizzeria", "Margherita")))

	assert.Equal(t, protocol.NoProductsAvailable, svc.StoreProducts("Pizzeria"))
	assert.Equal(t, `No products found matching "marg".`, svc.Search("Marg"))
	assert.Equal(t, "Margherita:2:17.0|Total:2:17.0", svc.SalesByProduct(""))

	msg, _ := svc.Buy("Pizzeria", "Margherita", 1)
	assert.Equal(t, "Error: Product 'Margherita' not found in store 'Pizzeria'", msg)

	// Hidden products no longer count towards the store's average price.
	assert.Equal(t, "Pizzeria,pizza,0.00,4,0.00,$", svc.FindStores("findStores|37.98|23.72|5|none|||0|3"))
}

func TestConcurrentBuys(t *testing.T) {
	svc, _ := newTestService(t)

	var wg sync.WaitGroup
	results := make([]string, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.Buy("Pizzeria", "Margherita", 3)
		}(i)
	}
	wg.Wait()

	successes, failures := 0, 0
	for _, r := range results {
		switch {
		case strings.HasSuffix(r, "Remaining stock: 2"):
			successes++
		case strings.HasPrefix(r, "Error: Insufficient stock"):
			failures++
		}
	}
	assert.Equal(t, 1, successes, "results: %v", results)
	assert.Equal(t, 1, failures, "results: %v", results)
	assert.Equal(t, 3, svc.ledger.Get("Pizzeria", "Margherita").Units)
}

func TestManyConcurrentBuysConserveStock(t *testing.T) {
	svc := NewService(Options{})
	store := pizzeria()
	store.Products[0].Amount = 50
	svc.AddStore(store)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Buy("Pizzeria", "Margherita", 1)
		}()
	}
	wg.Wait()

	got, err := svc.catalog.Get("Pizzeria")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Products[0].Amount)
	assert.Equal(t, 50, svc.ledger.Get("Pizzeria", "Margherita").Units)
	assert.Equal(t, uint64(50), svc.Stats().Purchases)
	assert.Equal(t, uint64(50), svc.Stats().Rejected)
}

func TestBuyBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		store   string
		product string
		qty     int
		want    string
	}{
		{"zero quantity", "Pizzeria", "Margherita", 0, "Error: Invalid quantity 0"},
		{"negative quantity", "Pizzeria", "Margherita", -2, "Error: Invalid quantity -2"},
		{"unknown store", "Sushi", "Margherita", 1, "Error: Store 'Sushi' not found"},
		{"unknown product", "Pizzeria", "Calzone", 1, "Error: Product 'Calzone' not found in store 'Pizzeria'"},
		{"exact stock", "Pizzeria", "Margherita", 5, "Success: Purchased 5 Margherita for 42.50EUR. Remaining stock: 0"},
		{"case insensitive product", "Pizzeria", "margherita", 1, "Success: Purchased 1 Margherita for 8.50EUR. Remaining stock: 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			msg, _ := svc.Buy(tt.store, tt.product, tt.qty)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestUpdateStock(t *testing.T) {
	t.Run("add then subtract restores amount", func(t *testing.T) {
		svc, _ := newTestService(t)
		p := productOf("Pizzeria", "Margherita")

		assert.Equal(t, "Worker successfully updated stock for product: Margherita. New amount: 12",
			svc.UpdateStock(p, true, 7))
		assert.Equal(t, "Worker successfully updated stock for product: Margherita. New amount: 5",
			svc.UpdateStock(p, false, 7))
	})

	tests := []struct {
		name    string
		product domain.Product
		isAdd   bool
		qty     int
		want    string
	}{
		{"zero quantity", productOf("Pizzeria", "Margherita"), true, 0, "Error: Quantity must be positive"},
		{"unknown store", productOf("Sushi", "Margherita"), true, 1, protocol.StoreNotFound},
		{"unknown product", productOf("Pizzeria", "Calzone"), true, 1, "Error: Product 'Calzone' not found in store 'Pizzeria'"},
		{"subtract too much", productOf("Pizzeria", "Margherita"), false, 6, "Error: Insufficient stock. Requested: 6, Available: 5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			assert.Equal(t, tt.want, svc.UpdateStock(tt.product, tt.isAdd, tt.qty))
			assert.Equal(t, "Margherita,8.50,5", svc.StoreProducts("Pizzeria"))
		})
	}
}

func TestAddAndRestoreProduct(t *testing.T) {
	svc, _ := newTestService(t)

	cola := domain.NewProduct("Cola", "drink", 10, 2)
	cola.StoreName = "Pizzeria"
	assert.Equal(t, "Worker successfully added product: Cola", svc.AddProduct(cola))
	assert.Equal(t, "Error: Product 'Cola' already exists in store 'Pizzeria'", svc.AddProduct(cola))

	assert.Equal(t, "Worker successfully removed product: Cola", svc.RemoveProduct(cola))
	assert.Equal(t, "Margherita,8.50,5", svc.StoreProducts("Pizzeria"))

	restored := domain.NewProduct("Cola", "soda", 4, 2.5)
	restored.StoreName = "Pizzeria"
	restored.Visible = false
	assert.Equal(t, "Worker successfully restored product: Cola", svc.AddProduct(restored))
	assert.Equal(t, "Margherita,8.50,5|Cola,2.50,4", svc.StoreProducts("Pizzeria"))

	store, err := svc.catalog.Get("Pizzeria")
	require.NoError(t, err)
	assert.Len(t, store.Products, 2)
	assert.Equal(t, "soda", store.Products[1].Type)
	assert.True(t, store.Products[1].Visible)

	orphan := domain.NewProduct("Cola", "drink", 1, 1)
	orphan.StoreName = "Nowhere"
	assert.Equal(t, protocol.StoreNotFound, svc.AddProduct(orphan))

	bad := domain.NewProduct("Water", "drink", -1, 1)
	bad.StoreName = "Pizzeria"
	assert.True(t, strings.HasPrefix(svc.AddProduct(bad), "Error: "))

	assert.Equal(t, "Error: Product 'Water' not found in store 'Pizzeria'",
		svc.RemoveProduct(productOf("Pizzeria", "Water")))
	assert.Equal(t, protocol.StoreNotFound, svc.RemoveProduct(productOf("Nowhere", "Water")))
}

func TestAddStore(t *testing.T) {
	t.Run("snapshot failure is not reported", func(t *testing.T) {
		snaps := &failingSnapshotter{}
		svc := NewService(Options{Snapshots: snaps})
		assert.Equal(t, "Worker successfully added store: Pizzeria", svc.AddStore(pizzeria()))
		assert.Equal(t, 1, snaps.calls)
	})

	t.Run("snapshot written to data dir", func(t *testing.T) {
		dir := t.TempDir()
		snaps := storage.NewSnapshotDir(dir)
		svc := NewService(Options{Snapshots: snaps})
		svc.AddStore(pizzeria())

		loaded, err := domain.LoadStoreFile(snaps.Path("Pizzeria"))
		require.NoError(t, err)
		assert.Equal(t, "Pizzeria", loaded.Name)
	})

	t.Run("invalid store", func(t *testing.T) {
		svc := NewService(Options{})
		assert.Equal(t, protocol.InvalidDataFormat, svc.AddStore(&domain.Store{}))
		assert.Equal(t, protocol.InvalidDataFormat, svc.AddStore(nil))
	})

	t.Run("store info", func(t *testing.T) {
		svc, _ := newTestService(t)
		f := svc.StoreInfo("Pizzeria")
		require.Equal(t, wire.KindStore, f.Kind)
		assert.Equal(t, 4, f.Store.Stars)
		assert.Equal(t, protocol.StoreNotFound, svc.StoreInfo("Sushi").Text)
		assert.Equal(t, protocol.StoreNotFound, svc.StoreProducts("Sushi"))
	})
}

func TestFindStores(t *testing.T) {
	svc := NewService(Options{})
	svc.AddStore(pizzeria())
	svc.AddStore(&domain.Store{
		Name: "Burger Barn", Latitude: 38.0, Longitude: 23.8, Category: "Burgers", Stars: 2,
		Products: []domain.Product{domain.NewProduct("Classic", "burger", 10, 20)},
	})
	svc.AddStore(&domain.Store{
		Name: "Kiosk", Latitude: 40.6, Longitude: 22.9, Category: "snacks", Stars: 5,
		Products: []domain.Product{domain.NewProduct("Chips", "snack", 10, 1.5)},
	})

	names := func(resp string) []string {
		var out []string
		for _, entry := range strings.Split(resp, "|") {
			out = append(out, strings.SplitN(entry, ",", 2)[0])
		}
		return out
	}

	tests := []struct {
		name string
		line string
		want []string
	}{
		{"none returns all regardless of radius", "findStores|37.98|23.72|1|none|||0|3", []string{"Pizzeria", "Burger Barn", "Kiosk"}},
		{"category substring", "findStores|37.98|23.72|5|category|burg|0|3", []string{"Burger Barn"}},
		{"stars zero returns all", "findStores|37.98|23.72|5|stars||0|3", []string{"Pizzeria", "Burger Barn", "Kiosk"}},
		{"stars four", "findStores|37.98|23.72|5|stars||4|3", []string{"Pizzeria", "Kiosk"}},
		{"price two", "findStores|37.98|23.72|5|price|||2", []string{"Pizzeria", "Kiosk"}},
		{"price one", "findStores|37.98|23.72|5|price|||1", []string{"Kiosk"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := svc.FindStores(tt.line)
			assert.False(t, strings.HasPrefix(resp, "|") || strings.HasSuffix(resp, "|"))
			assert.Equal(t, tt.want, names(resp))
		})
	}

	assert.Equal(t, protocol.NoStoresFound, svc.FindStores("findStores|0|0|5|category|sushi|0|3"))
	assert.Equal(t, protocol.InvalidSearchFormat, svc.FindStores("findStores|0|0"))
	assert.Equal(t, protocol.NoStoresFound, NewService(Options{}).FindStores("findStores|0|0|5"))
}

func TestSearch(t *testing.T) {
	svc, _ := newTestService(t)
	cola := domain.NewProduct("Cola", "drink", 3, 2)
	cola.StoreName = "Pizzeria"
	svc.AddProduct(cola)

	assert.Equal(t,
		"Products matching \"pizza\":\n1. Margherita - pizza - Price: 8.50 - Available: 5 - Store: Pizzeria\n",
		svc.Search("PIZZA"))
	assert.Equal(t,
		"Products matching \"a\":\n"+
			"1. Margherita - pizza - Price: 8.50 - Available: 5 - Store: Pizzeria\n"+
			"2. Cola - drink - Price: 2.00 - Available: 3 - Store: Pizzeria\n",
		svc.Search("a"))
	assert.Equal(t, `No products found matching "sushi".`, svc.Search("sushi"))
}

func TestSalesReports(t *testing.T) {
	svc := NewService(Options{})
	svc.AddStore(pizzeria())
	svc.AddStore(&domain.Store{
		Name: "Pizza Hut", Category: "Pizza",
		Products: []domain.Product{
			domain.NewProduct("Margherita", "pizza", 10, 9),
			domain.NewProduct("Pepperoni", "pizza", 10, 11.25),
		},
	})
	svc.AddStore(&domain.Store{Name: "Burger Barn", Category: "burgers",
		Products: []domain.Product{domain.NewProduct("Classic", "burger", 10, 10)}})

	svc.Buy("Pizzeria", "Margherita", 2)
	svc.Buy("Pizza Hut", "Margherita", 1)
	svc.Buy("Pizza Hut", "Pepperoni", 2)

	assert.Equal(t, "Pizzeria:2|Pizza Hut:3|Total:5", svc.SalesByCategory("pizza"))
	assert.Equal(t, "No sales data found for category: burgers", svc.SalesByCategory("burgers"))
	assert.Equal(t, "No sales data found for category: sushi", svc.SalesByCategory("sushi"))

	assert.Equal(t, "Margherita:3:26.0|Total:3:26.0", svc.SalesByProduct("margherita"))
	assert.Equal(t, "Margherita:3:26.0|Pepperoni:2:22.5|Total:5:48.5", svc.SalesByProduct(""))
	assert.Equal(t, protocol.NoSalesData, svc.SalesByProduct("Classic"))
}

func TestHandleDispatchAndTelemetry(t *testing.T) {
	svc, em := newTestService(t)

	buy := wire.List(wire.StringItem("Pizzeria"), wire.StringItem("Margherita"), wire.IntItem(2))
	resp := svc.Handle(Request{Line: "buy", Payload: &buy})
	assert.Equal(t, "Success: Purchased 2 Margherita for 17.00EUR. Remaining stock: 3", resp.Text)

	failed := wire.List(wire.StringItem("Pizzeria"), wire.StringItem("Margherita"), wire.IntItem(9))
	resp = svc.Handle(Request{Line: "buy", Payload: &failed})
	assert.True(t, strings.HasPrefix(resp.Text, "Error: Insufficient stock"))

	name := wire.Text("Pizzeria")
	resp = svc.Handle(Request{Line: "getStoreInfo", Payload: &name})
	assert.Equal(t, wire.KindStore, resp.Kind)

	resp = svc.Handle(Request{Line: "getStoreProducts", Payload: &name})
	assert.Equal(t, "Margherita,8.50,3", resp.Text)

	update := wire.List(wire.ProductItem(productOf("Pizzeria", "Margherita")), wire.BoolItem(true), wire.IntItem(1))
	resp = svc.Handle(Request{Line: "updateStock", Payload: &update})
	assert.Equal(t, "Worker successfully updated stock for product: Margherita. New amount: 4", resp.Text)

	resp = svc.Handle(Request{Line: "search marg"})
	assert.Contains(t, resp.Text, "1. Margherita")

	resp = svc.Handle(Request{Line: "getSalesByProduct "})
	assert.Equal(t, "Margherita:2:17.0|Total:2:17.0", resp.Text)

	resp = svc.Handle(Request{Line: "getSalesByCategory pizza"})
	assert.Equal(t, "Pizzeria:2|Total:2", resp.Text)

	resp = svc.Handle(Request{Line: "dance"})
	assert.Equal(t, "Unknown command: dance", resp.Text)

	resp = svc.Handle(Request{Line: "ping"})
	assert.Equal(t, protocol.Pong, resp.Text)

	resp = svc.Handle(Request{Line: "buy"})
	assert.Equal(t, protocol.InvalidDataFormat, resp.Text)

	records := em.all()
	require.Len(t, records, 10)

	assert.Equal(t, "purchase", records[0].RequestType)
	assert.Equal(t, "Worker-test", records[0].WorkerID)
	assert.True(t, records[0].Success)
	assert.Equal(t, "Pizzeria", records[0].StoreName)
	assert.Equal(t, "Margherita", records[0].ProductName)
	assert.Equal(t, 2, records[0].Quantity)

	assert.Equal(t, "purchase", records[1].RequestType)
	assert.False(t, records[1].Success)
	assert.Empty(t, records[1].StoreName)

	types := make([]string, 0, len(records))
	for _, r := range records {
		types = append(types, r.RequestType)
		assert.GreaterOrEqual(t, r.ProcessingTime, int64(0))
		assert.NotZero(t, r.Timestamp)
	}
	assert.Equal(t, []string{
		"purchase", "purchase", "getStoreInfo", "getStoreProducts", "updateStock",
		"search", "getSalesByProduct", "getSalesByCategory", "unknown", "purchase",
	}, types)
}

func TestNewID(t *testing.T) {
	assert.Equal(t, "worker-7", NewID("worker-7"))
	id := NewID("")
	assert.True(t, strings.HasPrefix(id, "Worker-"))
	assert.Len(t, id, len("Worker-")+8)
	assert.NotEqual(t, id, NewID(""))
}
