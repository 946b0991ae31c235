package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Cabin codes as the fare site encodes them in search URLs.
const (
	CabinEconomy        = "Y"
	CabinPremiumEconomy = "W"
	CabinBusiness       = "C"
	CabinFirst          = "F"
)

// TripType classifies a search by the shape of its legs. The values are
// the path segments the fare site expects in result URLs.
type TripType string

const (
	TripOneWay    TripType = "one-way"
	TripRoundTrip TripType = "return"
	TripMultiCity TripType = "multi-city"
)

// RouteType maps the trip type onto the enum value stored on tickets.
func (t TripType) RouteType() string {
	switch t {
	case TripOneWay:
		return "one_way"
	case TripRoundTrip:
		return "roundtrip"
	default:
		return "multi_city"
	}
}

// Leg is one origin/destination/date triple of a trip request.
type Leg struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
}

// SearchRequest is the caller-supplied search payload. Passenger field
// names follow the fare site's vocabulary (ADT adults, CNN children,
// INF infants). The request is immutable once normalized.
type SearchRequest struct {
	Legs     []Leg  `json:"legs"`
	Adults   int    `json:"ADT"`
	Children int    `json:"CNN"`
	Infants  int    `json:"INF"`
	Cabin    string `json:"cabin"`
}

// ValidationError describes a rejected request field.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

const (
	ErrNoLegs             ValidationError = "at least one leg is required"
	ErrMissingOrigin      ValidationError = "leg origin is required"
	ErrMissingDestination ValidationError = "leg destination is required"
	ErrNegativePassengers ValidationError = "passenger counts must not be negative"
	ErrUnknownCabin       ValidationError = "cabin must be one of Y, W, C, F"
)

// ErrMalformedDate is returned for leg dates in any format other than
// YYYY-MM-DD or MM/DD/YYYY.
var ErrMalformedDate = errors.New("malformed date")

var dateLayouts = []string{"2006-01-02", "01/02/2006"}

// NormalizeDate accepts YYYY-MM-DD or MM/DD/YYYY and always emits
// YYYY-MM-DD. Anything else fails with ErrMalformedDate.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrMalformedDate, s)
}

// Normalize validates the request in place and brings it to canonical
// form: airport codes upper-cased, dates in YYYY-MM-DD, defaults applied
// (1 adult, Business cabin). Cache keys and search URLs are derived only
// from a normalized request, so cosmetically different but equivalent
// requests converge here.
func (r *SearchRequest) Normalize() error {
	if len(r.Legs) == 0 {
		return ErrNoLegs
	}
	for i := range r.Legs {
		leg := &r.Legs[i]
		leg.Origin = strings.ToUpper(strings.TrimSpace(leg.Origin))
		leg.Destination = strings.ToUpper(strings.TrimSpace(leg.Destination))
		if leg.Origin == "" {
			return ErrMissingOrigin
		}
		if leg.Destination == "" {
			return ErrMissingDestination
		}
		date, err := NormalizeDate(leg.Date)
		if err != nil {
			return err
		}
		leg.Date = date
	}
	if r.Adults <= 0 {
		r.Adults = 1
	}
	if r.Children < 0 || r.Infants < 0 {
		return ErrNegativePassengers
	}
	r.Cabin = strings.ToUpper(strings.TrimSpace(r.Cabin))
	switch r.Cabin {
	case "":
		r.Cabin = CabinBusiness
	case CabinEconomy, CabinPremiumEconomy, CabinBusiness, CabinFirst:
	default:
		return ErrUnknownCabin
	}
	return nil
}
