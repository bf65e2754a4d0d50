package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/food-checkout/internal/domain/discount"
	"github.com/xenking/food-checkout/internal/domain/money"
	"github.com/xenking/food-checkout/internal/storage/postgres"
)

const (
	bloomFPR      = 0.001
	batchSize     = 1000
	progressEvery = 1_000_000
	maxCodeLen    = 64
)

// store is the subset of postgres.DiscountRepository the ingester writes to.
type store interface {
	FindByCode(ctx context.Context, code string) (*discount.Code, error)
	UpsertBatch(ctx context.Context, codes []discount.Code) error
}

type stats struct {
	Read       int
	Written    int
	Duplicates int
	Malformed  int64
}

func main() {
	var (
		dataDir       string
		databaseURL   string
		expectedCodes uint
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing codes*.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&expectedCodes, "expected-codes", 10_000_000, "expected number of distinct codes, sizes the dedupe filter")
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

	if err := run(ctx, dataDir, databaseURL, expectedCodes); err != nil {
		slog.Error("discount ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("discount ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, expectedCodes uint) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "codes*.gz"))
	if err != nil {
		return errors.Wrap(err, "list input files")
	}
	if len(files) == 0 {
		return errors.Errorf("no codes*.gz files in %s", dataDir)
	}
	sort.Strings(files)

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	filter := bloom.NewWithEstimates(expectedCodes, bloomFPR)
	st, err := ingest(ctx, files, newWriter(postgres.NewDiscountRepository(pool), filter))
	if err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Int("files", len(files)),
		slog.Int("read", st.Read),
		slog.Int("written", st.Written),
		slog.Int("duplicates", st.Duplicates),
		slog.Int64("malformed", st.Malformed),
	)
	return nil
}

// ingest parses files concurrently and feeds a single writer.
func ingest(ctx context.Context, files []string, w *writer) (stats, error) {
	var (
		malformed atomic.Int64
		st        stats
	)
	records := make(chan discount.Code, batchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(records)
		parsers, pctx := errgroup.WithContext(gctx)
		for _, f := range files {
			parsers.Go(func() error {
				return parseFile(pctx, f, records, &malformed)
			})
		}
		return parsers.Wait()
	})
	g.Go(func() error {
		var err error
		st, err = w.consume(gctx, records)
		return err
	})

	if err := g.Wait(); err != nil {
		return st, err
	}
	st.Malformed = malformed.Load()
	return st, nil
}

// parseFile streams one gzip file of CODE,AMOUNT lines into out.
func parseFile(ctx context.Context, path string, out chan<- discount.Code, malformed *atomic.Int64) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	name := filepath.Base(path)
	scanner := bufio.NewScanner(gz)
	var lineNo int
	for scanner.Scan() {
		lineNo++
		c, ok, err := parseLine(scanner.Text())
		if err != nil {
			malformed.Add(1)
			slog.Warn("skipping malformed line",
				slog.String("file", name),
				slog.Int("line", lineNo),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !ok {
			continue
		}
		select {
		case out <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
		if lineNo%progressEvery == 0 {
			slog.Info("parse progress", slog.String("file", name), slog.Int("lines", lineNo))
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	slog.Info("parse complete", slog.String("file", name), slog.Int("lines", lineNo))
	return nil
}

// parseLine reads "CODE,AMOUNT". Blank lines and # comments report ok=false.
func parseLine(line string) (discount.Code, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return discount.Code{}, false, nil
	}
	code, amount, found := strings.Cut(line, ",")
	if !found {
		return discount.Code{}, false, errors.New("expected CODE,AMOUNT")
	}
	code = strings.TrimSpace(code)
	switch {
	case code == "":
		return discount.Code{}, false, errors.New("empty code")
	case len(code) > maxCodeLen:
		return discount.Code{}, false, errors.Errorf("code longer than %d bytes", maxCodeLen)
	}
	v, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return discount.Code{}, false, errors.Wrap(err, "parse amount")
	}
	if v.IsNegative() {
		return discount.Code{}, false, errors.New("negative amount")
	}
	if err := money.Check(v); err != nil {
		return discount.Code{}, false, err
	}
	return discount.Code{Code: code, Amount: v}, true, nil
}

// writer upserts codes in batches. The first occurrence of a code wins.
//
// Codes the bloom filter has already seen are held back and checked against
// the store once all fresh codes are written, so a filter false positive
// costs a lookup instead of a lost code.
type writer struct {
	st     store
	filter *bloom.BloomFilter
}

func newWriter(st store, filter *bloom.BloomFilter) *writer {
	return &writer{st: st, filter: filter}
}

func (w *writer) consume(ctx context.Context, records <-chan discount.Code) (stats, error) {
	var (
		st       stats
		batch    = make([]discount.Code, 0, batchSize)
		deferred []discount.Code
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.st.UpsertBatch(ctx, batch); err != nil {
			return err
		}
		st.Written += len(batch)
		batch = batch[:0]
		return nil
	}

	for c := range records {
		st.Read++
		if w.filter.TestAndAddString(c.Code) {
			deferred = append(deferred, c)
			continue
		}
		batch = append(batch, c)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return st, err
			}
		}
	}
	if err := flush(); err != nil {
		return st, err
	}
	if err := ctx.Err(); err != nil {
		return st, err
	}

	recovered := make(map[string]struct{})
	for _, c := range deferred {
		if _, ok := recovered[c.Code]; ok {
			st.Duplicates++
			continue
		}
		_, err := w.st.FindByCode(ctx, c.Code)
		switch {
		case err == nil:
			st.Duplicates++
			continue
		case !errors.Is(err, discount.ErrRejected):
			return st, errors.Wrapf(err, "recheck %s", c.Code)
		}
		recovered[c.Code] = struct{}{}
		batch = append(batch, c)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return st, err
			}
		}
	}
	if err := flush(); err != nil {
		return st, err
	}
	return st, nil
}
