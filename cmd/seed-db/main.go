package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/xenking/juice-checkout/internal/domain/basket"
	"github.com/xenking/juice-checkout/internal/domain/coupon"
	"github.com/xenking/juice-checkout/internal/domain/delivery"
	"github.com/xenking/juice-checkout/internal/domain/product"
	"github.com/xenking/juice-checkout/internal/storage/postgres"
)

type catalogue struct {
	Products []struct {
		ID          string          `yaml:"id"`
		Name        string          `yaml:"name"`
		Price       decimal.Decimal `yaml:"price"`
		DeluxePrice decimal.Decimal `yaml:"deluxe_price"`
		Quantity    int             `yaml:"quantity"`
	} `yaml:"products"`
	Deliveries []struct {
		ID          string          `yaml:"id"`
		Name        string          `yaml:"name"`
		Price       decimal.Decimal `yaml:"price"`
		DeluxePrice decimal.Decimal `yaml:"deluxe_price"`
		ETA         int             `yaml:"eta"`
	} `yaml:"deliveries"`
	Wallets []struct {
		CustomerID string          `yaml:"customer_id"`
		Balance    decimal.Decimal `yaml:"balance"`
	} `yaml:"wallets"`
	Coupons []struct {
		Code       string     `yaml:"code"`
		Percent    int        `yaml:"percent"`
		ValidFrom  *time.Time `yaml:"valid_from"`
		ValidUntil *time.Time `yaml:"valid_until"`
	} `yaml:"coupons"`
	Baskets []struct {
		ID         string `yaml:"id"`
		CustomerID string `yaml:"customer_id"`
		Coupon     string `yaml:"coupon"`
		Items      []struct {
			ProductID string `yaml:"product_id"`
			Quantity  int    `yaml:"quantity"`
		} `yaml:"items"`
	} `yaml:"baskets"`
}

func main() {
	var (
		databaseURL   string
		catalogueFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogueFile, "catalogue-file", "db/seed/catalogue.yaml", "path to the seed catalogue YAML file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogueFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogueFile string) error {
	slog.Info("reading catalogue", slog.String("path", catalogueFile))

	data, err := os.ReadFile(catalogueFile)
	if err != nil {
		return errors.Wrap(err, "read catalogue file")
	}
	var cat catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return errors.Wrap(err, "parse catalogue YAML")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	seeder := postgres.NewSeeder(pool)
	stock := postgres.NewInventoryRepository(pool)
	coupons := postgres.NewCouponRepository(pool)

	for _, p := range cat.Products {
		if err := seeder.UpsertProduct(ctx, product.Product{
			ID:          p.ID,
			Name:        p.Name,
			Price:       p.Price,
			DeluxePrice: p.DeluxePrice,
		}); err != nil {
			return err
		}
		if err := stock.Set(ctx, p.ID, p.Quantity); err != nil {
			return err
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name), slog.Int("quantity", p.Quantity))
	}

	for _, d := range cat.Deliveries {
		if err := seeder.UpsertDelivery(ctx, delivery.Option{
			ID:          d.ID,
			Name:        d.Name,
			Price:       d.Price,
			DeluxePrice: d.DeluxePrice,
			ETA:         d.ETA,
		}); err != nil {
			return err
		}
		slog.Info("upserted delivery method", slog.String("id", d.ID), slog.String("name", d.Name))
	}

	for _, w := range cat.Wallets {
		if err := seeder.SetWallet(ctx, w.CustomerID, w.Balance); err != nil {
			return err
		}
		slog.Info("set wallet", slog.String("customer_id", w.CustomerID), slog.String("balance", w.Balance.StringFixed(2)))
	}

	for _, c := range cat.Coupons {
		if err := coupons.Upsert(ctx, coupon.Rule{
			Code:       c.Code,
			Percent:    c.Percent,
			ValidFrom:  c.ValidFrom,
			ValidUntil: c.ValidUntil,
		}); err != nil {
			return err
		}
		slog.Info("upserted coupon", slog.String("code", c.Code), slog.Int("percent", c.Percent))
	}

	for _, b := range cat.Baskets {
		lines := make([]basket.Line, 0, len(b.Items))
		for _, it := range b.Items {
			lines = append(lines, basket.Line{Product: product.Product{ID: it.ProductID}, Quantity: it.Quantity})
		}
		if err := seeder.PutBasket(ctx, basket.Basket{
			ID:         b.ID,
			CustomerID: b.CustomerID,
			Coupon:     b.Coupon,
			Lines:      lines,
		}); err != nil {
			return err
		}
		slog.Info("put basket", slog.String("id", b.ID), slog.Int("items", len(lines)))
	}

	return nil
}
