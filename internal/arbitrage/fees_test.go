package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetPrice(t *testing.T) {
	tests := []struct {
		name  string
		gross float64
		want  float64
	}{
		{name: "below-first-interval", gross: 0.02, want: 0.00},
		{name: "second-interval", gross: 0.15, want: 0.12},
		{name: "interval-boundary", gross: 0.21, want: 0.18},
		{name: "third-interval", gross: 0.30, want: 0.26},
		{name: "fourth-interval", gross: 0.43, want: 0.38},
		{name: "extended-to-one-dollar", gross: 1.00, want: 0.87},
		{name: "zero", gross: 0, want: 0},
		{name: "negative", gross: -1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NetPrice(tt.gross), 1e-9)
		})
	}
}

func TestNetPriceDeterministic(t *testing.T) {
	for _, gross := range []float64{0.15, 1.00, 7.77, 123.45, 9999.99} {
		first := NetPrice(gross)
		for i := 0; i < 100; i++ {
			require.Equal(t, first, NetPrice(gross), "gross=%v run=%d", gross, i)
		}
	}
}

func TestNetPriceMonotonic(t *testing.T) {
	// The stepped fee can outgrow a one-cent gross increase right at an
	// interval boundary, so monotonicity holds from five-cent steps up.
	prev := 0.0
	for step := 1; step <= 1000; step++ {
		gross := float64(step) * 0.05
		net := NetPrice(gross)
		require.GreaterOrEqual(t, net, prev, "net price regressed at gross=%v", gross)
		prev = net
	}
}

func TestNetPriceNeverNegative(t *testing.T) {
	for cents := 0; cents <= 100; cents++ {
		assert.GreaterOrEqual(t, NetPrice(float64(cents)/100.0), 0.0)
	}
}

func TestProfit(t *testing.T) {
	// net(1.00) = 0.87, buying at 0.50 nets 0.37 absolute, 74% relative.
	abs, ratio := Profit(1.00, 0.50)
	assert.InDelta(t, 0.37, abs, 1e-9)
	assert.InDelta(t, 0.74, ratio, 1e-9)

	// Zero buy price yields no ratio rather than dividing by zero.
	abs, ratio = Profit(1.00, 0)
	assert.InDelta(t, 0.87, abs, 1e-9)
	assert.Zero(t, ratio)
}
