package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/juice-checkout/internal/domain/coupon"
	"github.com/xenking/juice-checkout/internal/storage/postgres"
)

const (
	bloomFPR      = 0.001
	progressEvery = 10_000
	minCodeLen    = 4
	maxCodeLen    = 32
)

// upserter stores coupon rules.
type upserter interface {
	Upsert(ctx context.Context, rule coupon.Rule) error
}

func main() {
	var (
		file        string
		databaseURL string
		workers     int
	)

	flag.StringVar(&file, "file", "data/coupons.csv.gz", "gzip file of CODE,PERCENT lines")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", 8, "concurrent upserts")
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

	if err := run(ctx, file, databaseURL, workers); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, file, databaseURL string, workers int) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewCouponRepository(pool)
	existing, err := repo.ListCodes(ctx)
	if err != nil {
		return errors.Wrap(err, "list existing coupons")
	}
	known := bloom.NewWithEstimates(uint(max(len(existing), 1)), bloomFPR)
	for _, c := range existing {
		known.AddString(coupon.Normalize(c))
	}
	slog.Info("existing coupons loaded", slog.Int("count", len(existing)))

	f, err := os.Open(file)
	if err != nil {
		return errors.Wrapf(err, "open %s", file)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", file)
	}
	defer func() { _ = gz.Close() }()

	st, err := ingest(ctx, gz, repo, known, workers)
	if err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Int64("upserted", st.upserted.Load()),
		slog.Int64("probably_updated", st.updated.Load()),
		slog.Int64("skipped", st.skipped.Load()),
	)
	return nil
}

type stats struct {
	upserted atomic.Int64
	// updated counts codes the filter reports as already stored. It is an
	// estimate bounded by the filter's false positive rate.
	updated atomic.Int64
	skipped atomic.Int64
}

// ingest streams rules from r and upserts them with a bounded number of
// concurrent workers. Malformed lines are logged and skipped.
func ingest(ctx context.Context, r io.Reader, repo upserter, known *bloom.BloomFilter, workers int) (*stats, error) {
	st := &stats{}
	rules := make(chan coupon.Rule, workers*4)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(rules)
		return scanRules(ctx, r, st, rules)
	})
	for range max(workers, 1) {
		g.Go(func() error {
			for rule := range rules {
				if err := repo.Upsert(ctx, rule); err != nil {
					return errors.Wrapf(err, "upsert coupon %s", rule.Code)
				}
				if known.TestString(rule.Code) {
					st.updated.Add(1)
				}
				if n := st.upserted.Add(1); n%progressEvery == 0 {
					slog.Info("write progress", slog.Int64("upserted", n))
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}

func scanRules(ctx context.Context, r io.Reader, st *stats, out chan<- coupon.Rule) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		rule, err := parseRule(text)
		if err != nil {
			st.skipped.Add(1)
			slog.Warn("skipping line", slog.Int("line", line), slog.String("error", err.Error()))
			continue
		}
		select {
		case out <- rule:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "scan coupons")
	}
	return nil
}

// parseRule parses a CODE,PERCENT line.
func parseRule(text string) (coupon.Rule, error) {
	code, pct, ok := strings.Cut(text, ",")
	if !ok {
		return coupon.Rule{}, errors.New("expected CODE,PERCENT")
	}
	code = coupon.Normalize(code)
	if len(code) < minCodeLen || len(code) > maxCodeLen {
		return coupon.Rule{}, errors.Errorf("code length %d out of range", len(code))
	}
	percent, err := strconv.Atoi(strings.TrimSpace(pct))
	if err != nil {
		return coupon.Rule{}, errors.Wrap(err, "parse percent")
	}
	if percent < 0 || percent > 100 {
		return coupon.Rule{}, errors.Errorf("percent %d out of range", percent)
	}
	return coupon.Rule{Code: code, Percent: percent}, nil
}
