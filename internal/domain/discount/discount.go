// Package discount holds flat-amount discount codes and their validation.
package discount

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrRejected is returned when a code does not match any known discount.
	ErrRejected = errors.New("discount code rejected")
	// ErrLocked is returned when a code is applied while another one is locked in.
	ErrLocked = errors.New("discount code already applied")
)

// Code is a discount code worth a flat amount in major currency units.
type Code struct {
	Code        string
	Amount      decimal.Decimal
	Description string
}

// Repository provides lookup of discount codes.
//
// FindByCode matches exactly and case-sensitively, returning ErrRejected
// when no active code exists.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Code, error)
	ListCodes(ctx context.Context) ([]string, error)
}

// Validator resolves a user-entered code to a Code.
type Validator interface {
	Validate(ctx context.Context, code string) (*Code, error)
}

// RepoValidator implements Validator on top of a Repository.
type RepoValidator struct {
	repo Repository
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo}
}

// Validate looks up code. Blank codes are rejected without a lookup.
func (v *RepoValidator) Validate(ctx context.Context, code string) (*Code, error) {
	if code == "" {
		return nil, ErrRejected
	}
	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			return nil, ErrRejected
		}
		return nil, errors.Wrap(err, "lookup discount code")
	}
	if c.Amount.IsNegative() {
		return nil, errors.Errorf("discount code %q has negative amount %s", code, c.Amount)
	}
	return c, nil
}
