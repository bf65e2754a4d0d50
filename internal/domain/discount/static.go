package discount

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultCodes is the built-in discount table.
var DefaultCodes = []Code{
	{Code: "Nischal", Amount: decimal.NewFromInt(10), Description: "Flat 10 off"},
}

var _ Repository = (*StaticRepository)(nil)

// StaticRepository is an immutable in-memory Repository.
type StaticRepository struct {
	codes map[string]Code
}

// NewStaticRepository builds a StaticRepository from codes. Later entries
// with the same code replace earlier ones.
func NewStaticRepository(codes ...Code) *StaticRepository {
	m := make(map[string]Code, len(codes))
	for _, c := range codes {
		m[c.Code] = c
	}
	return &StaticRepository{codes: m}
}

func (r *StaticRepository) FindByCode(_ context.Context, code string) (*Code, error) {
	c, ok := r.codes[code]
	if !ok {
		return nil, ErrRejected
	}
	return &c, nil
}

func (r *StaticRepository) ListCodes(_ context.Context) ([]string, error) {
	out := make([]string, 0, len(r.codes))
	for code := range r.codes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out, nil
}
