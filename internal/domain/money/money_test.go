package money

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		in      string
		wantErr error
	}{
		{in: "0"},
		{in: "0e2000000000"},
		{in: "0.01"},
		{in: "0.010"},
		{in: "6.5"},
		{in: "-10"},
		{in: "9999999999.99"},
		{in: "-9999999999.99"},
		{in: "1.50000000000000000000000000000000000000000"},
		{in: "0.005", wantErr: ErrSubMinorUnit},
		{in: "10.005", wantErr: ErrSubMinorUnit},
		{in: "1e-2000000000", wantErr: ErrSubMinorUnit},
		{in: "10000000000", wantErr: ErrTooLarge},
		{in: "9999999999.999", wantErr: ErrSubMinorUnit},
		{in: "184467440737095517.16", wantErr: ErrTooLarge},
		{in: "1e20", wantErr: ErrTooLarge},
		{in: "1e2000000000", wantErr: ErrTooLarge},
		{in: "-1e2000000000", wantErr: ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := Check(decimal.RequireFromString(tt.in))
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheck_HugeExponentIsFast(t *testing.T) {
	start := time.Now()
	for _, s := range []string{"1e2000000000", "1e-2000000000", "7e1999999999"} {
		require.Error(t, Check(decimal.RequireFromString(s)))
	}
	assert.Less(t, time.Since(start), time.Second)
}
