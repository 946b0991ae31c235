package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2026-02-01", want: "2026-02-01"},
		{in: "02/01/2026", want: "2026-02-01"},
		{in: " 2026-12-31 ", want: "2026-12-31"},
		{in: "01.02.2026", wantErr: true},
		{in: "2026-2-1", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeDate(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchRequestNormalize(t *testing.T) {
	t.Run("applies defaults and canonical form", func(t *testing.T) {
		req := SearchRequest{
			Legs: []Leg{{Origin: " jfk ", Destination: "lhr", Date: "02/01/2026"}},
		}
		require.NoError(t, req.Normalize())
		assert.Equal(t, "JFK", req.Legs[0].Origin)
		assert.Equal(t, "LHR", req.Legs[0].Destination)
		assert.Equal(t, "2026-02-01", req.Legs[0].Date)
		assert.Equal(t, 1, req.Adults)
		assert.Equal(t, CabinBusiness, req.Cabin)
	})

	t.Run("cabin case-insensitive", func(t *testing.T) {
		req := SearchRequest{
			Legs:  []Leg{{Origin: "JFK", Destination: "LHR", Date: "2026-02-01"}},
			Cabin: "y",
		}
		require.NoError(t, req.Normalize())
		assert.Equal(t, CabinEconomy, req.Cabin)
	})

	tests := []struct {
		name string
		req  SearchRequest
		want error
	}{
		{
			name: "no legs",
			req:  SearchRequest{},
			want: ErrNoLegs,
		},
		{
			name: "missing origin",
			req: SearchRequest{
				Legs: []Leg{{Destination: "LHR", Date: "2026-02-01"}},
			},
			want: ErrMissingOrigin,
		},
		{
			name: "missing destination",
			req: SearchRequest{
				Legs: []Leg{{Origin: "JFK", Date: "2026-02-01"}},
			},
			want: ErrMissingDestination,
		},
		{
			name: "negative passengers",
			req: SearchRequest{
				Legs:     []Leg{{Origin: "JFK", Destination: "LHR", Date: "2026-02-01"}},
				Children: -1,
			},
			want: ErrNegativePassengers,
		},
		{
			name: "unknown cabin",
			req: SearchRequest{
				Legs:  []Leg{{Origin: "JFK", Destination: "LHR", Date: "2026-02-01"}},
				Cabin: "economy",
			},
			want: ErrUnknownCabin,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Normalize()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
