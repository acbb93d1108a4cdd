package roundup

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSpareChangeCents(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"4.35", 65},
		{"5.75", 25},
		{"0.01", 99},
		{"3.00", 0},
		{"0", 0},
		{"-12.50", 0},
		{"99.99", 1},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			amount, err := decimal.NewFromString(tt.amount)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, SpareChangeCents(amount))
		})
	}
}

func TestSpareChangeExact(t *testing.T) {
	// Float arithmetic would make 4.35 round up to 0.6500000000000004.
	amount := decimal.RequireFromString("4.35")
	assert.True(t, SpareChange(amount).Equal(decimal.RequireFromString("0.65")))
}
