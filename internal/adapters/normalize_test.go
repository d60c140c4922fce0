package adapters

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcruz/skins-arb/pkg/types"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      types.Listing
		want    string
		wantErr bool
	}{
		{
			name: "trims-whitespace",
			in:   types.Listing{Name: "  AK-47 | Redline  ", Price: 1.0, Source: "x"},
			want: "AK-47 | Redline",
		},
		{
			name: "replaces-slashes",
			in:   types.Listing{Name: "MP5-SD | Lab Rats 1/2", Price: 1.0, Source: "x"},
			want: "MP5-SD | Lab Rats 1-2",
		},
		{
			name:    "empty-name",
			in:      types.Listing{Name: "", Price: 1.0, Source: "x"},
			wantErr: true,
		},
		{
			name:    "single-char-name",
			in:      types.Listing{Name: "a", Price: 1.0, Source: "x"},
			wantErr: true,
		},
		{
			name:    "name-too-long",
			in:      types.Listing{Name: strings.Repeat("x", 301), Price: 1.0, Source: "x"},
			wantErr: true,
		},
		{
			name:    "zero-price",
			in:      types.Listing{Name: "ok name", Price: 0, Source: "x"},
			wantErr: true,
		},
		{
			name:    "negative-price",
			in:      types.Listing{Name: "ok name", Price: -1, Source: "x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				var verr *types.ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	first, err := Normalize(types.Listing{
		Name:   "  StatTrak™ AK-47 | Redline 1/2 ",
		Price:  12.34,
		Source: "waxpeer",
	})
	require.NoError(t, err)

	second, err := Normalize(first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDedupCheapest(t *testing.T) {
	items := []types.Listing{
		{Name: "A", Price: 5, Source: "lisskins"},
		{Name: "A", Price: 3, Source: "lisskins"},
		{Name: "A", Price: 7, Source: "lisskins"},
		{Name: "B", Price: 1, Source: "lisskins"},
	}

	out := DedupCheapest(items)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Name)
	assert.InDelta(t, 3.0, out[0].Price, 1e-9)
	assert.Equal(t, "B", out[1].Name)
}

func TestEncodeName(t *testing.T) {
	assert.Equal(t, "AK-47%20%7C%20Redline", EncodeName("AK-47 | Redline"))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{in: 1.5, want: 1.5, ok: true},
		{in: "2.75", want: 2.75, ok: true},
		{in: " 3.00 ", want: 3.0, ok: true},
		{in: "abc", ok: false},
		{in: "", ok: false},
		{in: nil, ok: false},
		{in: -1.0, ok: false},
		{in: 0.0, ok: false},
	}

	for _, tt := range tests {
		got, ok := parsePrice(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9)
		}
	}
}

func TestManncoPrice(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{in: 1250.0, want: 12.50, ok: true},
		{in: 99.0, want: 0.99, ok: true},
		{in: 5.0, want: 0.05, ok: true},
		{in: "1250", want: 12.50, ok: true},
		{in: nil, ok: false},
	}

	for _, tt := range tests {
		got, ok := manncoPrice(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9)
		}
	}
}

func TestLisskinsSlug(t *testing.T) {
	assert.Equal(t,
		"StatTrak-AK-47-Redline-Field-Tested",
		lisskinsSlug("StatTrak™ AK-47 | Redline (Field-Tested)"))
}
