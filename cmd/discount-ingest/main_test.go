package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/food-checkout/internal/domain/discount"
)

type memStore struct {
	mu      sync.Mutex
	codes   map[string]discount.Code
	batches int
	err     error
}

func newMemStore() *memStore {
	return &memStore{codes: make(map[string]discount.Code)}
}

func (s *memStore) FindByCode(_ context.Context, code string) (*discount.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok {
		return nil, discount.ErrRejected
	}
	return &c, nil
}

func (s *memStore) UpsertBatch(_ context.Context, codes []discount.Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches++
	for _, c := range codes {
		s.codes[c.Code] = c
	}
	return nil
}

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    discount.Code
		wantOK  bool
		wantErr bool
	}{
		{line: "Nischal,10", want: discount.Code{Code: "Nischal", Amount: decimal.NewFromInt(10)}, wantOK: true},
		{line: "  SPRING , 2.50 ", want: discount.Code{Code: "SPRING", Amount: decimal.RequireFromString("2.50")}, wantOK: true},
		{line: "FREE,0", want: discount.Code{Code: "FREE", Amount: decimal.Zero}, wantOK: true},
		{line: ""},
		{line: "# header"},
		{line: "NOAMOUNT", wantErr: true},
		{line: ",5", wantErr: true},
		{line: "NEG,-1", wantErr: true},
		{line: "BAD,ten", wantErr: true},
		{line: "FRAC,0.001", wantErr: true},
		{line: "HUGE,1e2000000000", wantErr: true},
		{line: strings.Repeat("X", maxCodeLen+1) + ",1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok, err := parseLine(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want.Code, got.Code)
				assert.True(t, tt.want.Amount.Equal(got.Amount), "amount %s", got.Amount)
			}
		})
	}
}

func TestIngest(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "codes1.gz", "ALPHA,5", "BETA,7", "ALPHA,99", "garbage"),
		writeGz(t, dir, "codes2.gz", "GAMMA,1.25", "", "DELTA,3"),
	}
	st := newMemStore()

	res, err := ingest(context.Background(), files, newWriter(st, bloom.NewWithEstimates(1000, bloomFPR)))
	require.NoError(t, err)

	assert.Equal(t, 5, res.Read)
	assert.Equal(t, 4, res.Written)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, int64(1), res.Malformed)

	require.Len(t, st.codes, 4)
	assert.True(t, decimal.NewFromInt(5).Equal(st.codes["ALPHA"].Amount), "first occurrence wins")
	assert.True(t, decimal.RequireFromString("1.25").Equal(st.codes["GAMMA"].Amount))
}

func TestWriter_RecoversFilterFalsePositive(t *testing.T) {
	filter := bloom.NewWithEstimates(1000, bloomFPR)
	// Simulates a false positive: the filter claims GHOST was seen already.
	filter.AddString("GHOST")
	st := newMemStore()

	records := make(chan discount.Code, 2)
	records <- discount.Code{Code: "GHOST", Amount: decimal.NewFromInt(4)}
	records <- discount.Code{Code: "GHOST", Amount: decimal.NewFromInt(8)}
	close(records)

	res, err := newWriter(st, filter).consume(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Written)
	assert.Equal(t, 1, res.Duplicates)
	assert.True(t, decimal.NewFromInt(4).Equal(st.codes["GHOST"].Amount))
}

func TestWriter_Batches(t *testing.T) {
	st := newMemStore()
	records := make(chan discount.Code, batchSize+1)
	for i := range batchSize + 1 {
		records <- discount.Code{Code: "C" + decimal.NewFromInt(int64(i)).String(), Amount: decimal.NewFromInt(1)}
	}
	close(records)

	res, err := newWriter(st, bloom.NewWithEstimates(10_000, bloomFPR)).consume(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, batchSize+1, res.Written)
	assert.Equal(t, 2, st.batches)
}

func TestIngest_StoreError(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeGz(t, dir, "codes1.gz", "A,1", "B,2")}
	st := newMemStore()
	st.err = errors.New("db down")

	_, err := ingest(context.Background(), files, newWriter(st, bloom.NewWithEstimates(100, bloomFPR)))
	require.ErrorContains(t, err, "db down")
}

func TestIngest_MissingFile(t *testing.T) {
	_, err := ingest(context.Background(),
		[]string{filepath.Join(t.TempDir(), "codes9.gz")},
		newWriter(newMemStore(), bloom.NewWithEstimates(100, bloomFPR)),
	)
	require.Error(t, err)
}
