package discount

import (
	"context"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

const filterFPR = 0.001

var _ Repository = (*FilteredRepository)(nil)

// FilteredRepository puts a bloom filter of all known codes in front of a
// Repository, so most unknown codes are rejected without a lookup.
//
// Until the first Refresh every lookup is passed through. Codes added to the
// underlying repository after a Refresh are rejected until the next one.
type FilteredRepository struct {
	next   Repository
	filter atomic.Pointer[bloom.BloomFilter]
}

// NewFilteredRepository wraps next. Call Refresh to load the filter.
func NewFilteredRepository(next Repository) *FilteredRepository {
	return &FilteredRepository{next: next}
}

// Refresh rebuilds the filter from the full code list and swaps it in.
func (r *FilteredRepository) Refresh(ctx context.Context) (int, error) {
	codes, err := r.next.ListCodes(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "list discount codes")
	}

	f := bloom.NewWithEstimates(uint(max(len(codes), 1)), filterFPR)
	for _, c := range codes {
		f.AddString(c)
	}
	r.filter.Store(f)
	return len(codes), nil
}

// Loaded reports whether a filter has been built.
func (r *FilteredRepository) Loaded() bool {
	return r.filter.Load() != nil
}

func (r *FilteredRepository) FindByCode(ctx context.Context, code string) (*Code, error) {
	if f := r.filter.Load(); f != nil && !f.TestString(code) {
		return nil, ErrRejected
	}
	return r.next.FindByCode(ctx, code)
}

func (r *FilteredRepository) ListCodes(ctx context.Context) ([]string, error) {
	return r.next.ListCodes(ctx)
}
