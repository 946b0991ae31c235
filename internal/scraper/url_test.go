package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvetrov/flight-fare-search/internal/model"
)

func TestClassifyTrip(t *testing.T) {
	tests := []struct {
		name string
		legs []model.Leg
		want model.TripType
	}{
		{
			name: "single leg is one-way",
			legs: []model.Leg{{Origin: "JFK", Destination: "LHR"}},
			want: model.TripOneWay,
		},
		{
			name: "mirrored pair is return",
			legs: []model.Leg{
				{Origin: "JFK", Destination: "LHR"},
				{Origin: "LHR", Destination: "JFK"},
			},
			want: model.TripRoundTrip,
		},
		{
			name: "non-mirrored pair is multi-city",
			legs: []model.Leg{
				{Origin: "JFK", Destination: "LHR"},
				{Origin: "CDG", Destination: "JFK"},
			},
			want: model.TripMultiCity,
		},
		{
			name: "three legs are multi-city",
			legs: []model.Leg{
				{Origin: "JFK", Destination: "LHR"},
				{Origin: "LHR", Destination: "CDG"},
				{Origin: "CDG", Destination: "JFK"},
			},
			want: model.TripMultiCity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTrip(tt.legs))
		})
	}
}

func TestBuildSearchURL(t *testing.T) {
	t.Run("one-way", func(t *testing.T) {
		req := model.SearchRequest{
			Legs:   []model.Leg{{Origin: "JFK", Destination: "LHR", Date: "2026-02-01"}},
			Adults: 2, Children: 1, Infants: 0,
			Cabin: model.CabinEconomy,
		}
		url, err := BuildSearchURL("https://fares.example.com", req)
		require.NoError(t, err)
		assert.Equal(t, "https://fares.example.com/result/one-way/JFK-LHR/2026-02-01/Y/2:1:0", url)
	})

	t.Run("return trip joins per-leg values with colons", func(t *testing.T) {
		req := model.SearchRequest{
			Legs: []model.Leg{
				{Origin: "JFK", Destination: "LHR", Date: "2026-02-01"},
				{Origin: "LHR", Destination: "JFK", Date: "2026-02-10"},
			},
			Adults: 1,
			Cabin:  model.CabinBusiness,
		}
		url, err := BuildSearchURL("https://fares.example.com/", req)
		require.NoError(t, err)
		assert.Equal(t,
			"https://fares.example.com/result/return/JFK-LHR:LHR-JFK/2026-02-01:2026-02-10/C:C/1:0:0",
			url)
	})

	t.Run("US date format converts to ISO", func(t *testing.T) {
		req := model.SearchRequest{
			Legs:   []model.Leg{{Origin: "SFO", Destination: "NRT", Date: "01/15/2026"}},
			Adults: 1,
			Cabin:  model.CabinFirst,
		}
		url, err := BuildSearchURL("https://fares.example.com", req)
		require.NoError(t, err)
		assert.Contains(t, url, "/2026-01-15/")
	})

	t.Run("malformed date rejected", func(t *testing.T) {
		req := model.SearchRequest{
			Legs:   []model.Leg{{Origin: "SFO", Destination: "NRT", Date: "15.01.2026"}},
			Adults: 1,
			Cabin:  model.CabinEconomy,
		}
		_, err := BuildSearchURL("https://fares.example.com", req)
		assert.ErrorIs(t, err, model.ErrMalformedDate)
	})

	t.Run("identical input yields identical URL", func(t *testing.T) {
		req := model.SearchRequest{
			Legs:   []model.Leg{{Origin: "JFK", Destination: "LHR", Date: "2026-02-01"}},
			Adults: 1,
			Cabin:  model.CabinEconomy,
		}
		a, err := BuildSearchURL("https://fares.example.com", req)
		require.NoError(t, err)
		b, err := BuildSearchURL("https://fares.example.com", req)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}
