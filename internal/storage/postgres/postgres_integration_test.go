//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/juice-checkout/internal/domain/basket"
	"github.com/xenking/juice-checkout/internal/domain/coupon"
	"github.com/xenking/juice-checkout/internal/domain/delivery"
	"github.com/xenking/juice-checkout/internal/domain/discount"
	"github.com/xenking/juice-checkout/internal/domain/inventory"
	"github.com/xenking/juice-checkout/internal/domain/order"
	"github.com/xenking/juice-checkout/internal/domain/wallet"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "checkout",
				"POSTGRES_PASSWORD": "checkout",
				"POSTGRES_DB":       "checkout",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() { _ = ctr.Terminate(context.Background()) }()

	host, err := ctr.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	url := fmt.Sprintf("postgres://checkout:checkout@%s:%s/checkout?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, url)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	if err := seedFixtures(ctx, testPool); err != nil {
		log.Fatalf("seed: %v", err)
	}

	return m.Run()
}

func seedFixtures(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`INSERT INTO products (id, name, price, deluxe_price) VALUES
			('1', 'Apple Juice (1000ml)', 10.00, 8.00),
			('2', 'Orange Juice (1000ml)', 25.00, 20.00)`,
		`INSERT INTO quantities (product_id, quantity) VALUES ('1', 100), ('2', 100)`,
		`INSERT INTO baskets (id, customer_id, coupon) VALUES ('b1', 'c1', NULL), ('b2', 'c2', 'SIXTY')`,
		`INSERT INTO basket_items (basket_id, product_id, quantity) VALUES
			('b1', '2', 1), ('b1', '1', 2), ('b2', '2', 4)`,
		`INSERT INTO delivery_methods (id, name, price, deluxe_price, eta) VALUES ('3', 'Standard', 3.00, 1.00, 2)`,
		`INSERT INTO wallets (customer_id, balance) VALUES ('c1', 100.00), ('c2', 10.00)`,
		`INSERT INTO coupons (code, percent) VALUES ('SIXTY', 60)`,
	}
	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func TestBasketRepository_Load(t *testing.T) {
	repo := NewBasketRepository(testPool)

	b, err := repo.Load(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "c1", b.CustomerID)
	assert.Empty(t, b.Coupon)
	require.Len(t, b.Lines, 2)
	assert.Equal(t, "2", b.Lines[0].Product.ID)
	assert.Equal(t, "1", b.Lines[1].Product.ID)
	assert.Equal(t, 2, b.Lines[1].Quantity)
	assert.True(t, b.Lines[1].HasItem())
	assert.True(t, decimal.RequireFromString("8").Equal(b.Lines[1].Product.DeluxePrice))

	_, err = repo.Load(context.Background(), "missing")
	require.ErrorIs(t, err, basket.ErrNotFound)
}

func TestInventoryRepository_ConcurrentDecrements(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(testPool)
	require.NoError(t, repo.Set(ctx, "1", 50))

	g, gctx := errgroup.WithContext(ctx)
	for range 40 {
		g.Go(func() error {
			_, err := repo.Decrement(gctx, "1", 2)
			return err
		})
	}
	require.NoError(t, g.Wait())

	left, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, -30, left)

	_, err = repo.Decrement(ctx, "unknown", 1)
	require.ErrorIs(t, err, inventory.ErrUntracked)

	require.NoError(t, repo.Set(ctx, "1", 100))
}

func TestDeliveryRepository_FindByID(t *testing.T) {
	repo := NewDeliveryRepository(testPool)

	opt, err := repo.FindByID(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, 2, opt.ETA)
	assert.True(t, decimal.RequireFromString("3").Equal(opt.Price))

	_, err = repo.FindByID(context.Background(), "9")
	require.ErrorIs(t, err, delivery.ErrNotFound)
}

func TestWalletRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewWalletRepository(testPool)
	ledger := wallet.NewLedger(repo)

	_, err := testPool.Exec(ctx, `INSERT INTO wallets (customer_id, balance) VALUES ('w1', 100)`)
	require.NoError(t, err)

	require.ErrorIs(t, ledger.Charge(ctx, "w1", decimal.RequireFromString("100.01")), wallet.ErrInsufficientFunds)
	balance, err := repo.Balance(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(balance))

	_, err = repo.Debit(ctx, "w1", decimal.NewFromInt(101))
	require.ErrorIs(t, err, wallet.ErrInsufficientFunds)

	g, gctx := errgroup.WithContext(ctx)
	for _, o := range []struct {
		amount string
		points int64
	}{{"23", 2}, {"41.50", 4}} {
		g.Go(func() error {
			if err := ledger.Charge(gctx, "w1", decimal.RequireFromString(o.amount)); err != nil {
				return err
			}
			return ledger.Reward(gctx, "w1", o.points)
		})
	}
	require.NoError(t, g.Wait())

	balance, err = repo.Balance(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("41.50").Equal(balance), "balance %s", balance)

	require.NoError(t, ledger.Reward(ctx, "fresh", 5))
	balance, err = repo.Balance(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(balance))

	balance, err = repo.Balance(ctx, "nobody")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	require.NoError(t, ledger.Charge(ctx, "nobody", decimal.Zero))
	require.ErrorIs(t, ledger.Charge(ctx, "nobody", decimal.RequireFromString("0.01")), wallet.ErrInsufficientFunds)
}

func TestCouponRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCouponRepository(testPool)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, repo.Upsert(ctx, coupon.Rule{Code: "expired1", Percent: 30, ValidUntil: &past}))

	rule, err := repo.FindByCode(ctx, "sixty")
	require.NoError(t, err)
	assert.Equal(t, 60, rule.Percent)

	_, err = repo.FindByCode(ctx, "NOPE")
	require.ErrorIs(t, err, coupon.ErrUnknownCoupon)

	codes, err := repo.ListCodes(ctx)
	require.NoError(t, err)
	assert.Contains(t, codes, "SIXTY")
	assert.Contains(t, codes, "EXPIRED1")

	dec := coupon.NewBloomGuard(coupon.NewRepoDecoder(repo), codes, 0.01)
	pct, ok, err := dec.Decode(ctx, "sixty")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 60, pct)

	_, ok, err = dec.Decode(ctx, "EXPIRED1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPlaceOrder_EndToEnd(t *testing.T) {
	ctx := context.Background()
	orders := NewOrderRepository(testPool)
	wallets := NewWalletRepository(testPool)

	svc, err := order.NewService(order.Deps{
		Baskets:   NewBasketRepository(testPool),
		Inventory: inventory.NewLedger(NewInventoryRepository(testPool)),
		Discounts: discount.NewResolver(
			coupon.NewRepoDecoder(NewCouponRepository(testPool)),
			discount.DefaultCampaigns(),
			nil,
		),
		Deliveries: delivery.NewResolver(NewDeliveryRepository(testPool), false),
		Wallets:    wallet.NewLedger(wallets),
		Orders:     orders,
	})
	require.NoError(t, err)

	t.Run("wallet payment with stored coupon", func(t *testing.T) {
		res, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{
			BasketID:         "b2",
			Customer:         &order.Customer{ID: "c2", Email: "amy@juice-sh.op"},
			PaymentID:        wallet.PaymentID,
			DeliveryMethodID: "3",
		})
		// 4 x 25 = 100, 60% off, +3 delivery = 43 > 10 in wallet.
		require.ErrorIs(t, err, wallet.ErrInsufficientFunds)
		assert.Nil(t, res)

		left, err := NewInventoryRepository(testPool).Get(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, 96, left)
	})

	t.Run("card payment", func(t *testing.T) {
		res, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{
			BasketID:         "b1",
			Customer:         &order.Customer{ID: "c1", Email: "jim@juice-sh.op"},
			PaymentID:        "card-1",
			DeliveryMethodID: "3",
			AddressID:        "a1",
		})
		require.NoError(t, err)

		stored, err := orders.Get(ctx, res.Order.ID)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("48").Equal(stored.TotalPrice))
		assert.Equal(t, int64(5), stored.Bonus)
		assert.Equal(t, "j*m@j**c*-sh.*p", stored.Email)
		require.Len(t, stored.Products, 2)
		assert.Equal(t, "2", stored.Products[0].ProductID)

		balance, err := wallets.Balance(ctx, "c1")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(105).Equal(balance))
	})
}
