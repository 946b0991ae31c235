package scraper

import (
	"fmt"
	"strings"

	"github.com/rvetrov/flight-fare-search/internal/model"
)

// ClassifyTrip derives the trip type from the shape of the legs: one leg
// is one-way, two legs that mirror each other's airports are a return
// trip, everything else is multi-city.
func ClassifyTrip(legs []model.Leg) model.TripType {
	if len(legs) == 1 {
		return model.TripOneWay
	}
	if len(legs) == 2 &&
		legs[0].Origin == legs[1].Destination &&
		legs[0].Destination == legs[1].Origin {
		return model.TripRoundTrip
	}
	return model.TripMultiCity
}

// BuildSearchURL constructs the absolute result URL for a normalized
// request. The site's grammar is
//
//	/result/{tripType}/{routes}/{dates}/{cabins}/{ADT}:{CNN}:{INF}
//
// where routes, dates and cabins are colon-joined per-leg values (a
// single value for one-way trips). The function is pure: identical input
// always yields an identical URL.
func BuildSearchURL(baseURL string, req model.SearchRequest) (string, error) {
	routes := make([]string, 0, len(req.Legs))
	dates := make([]string, 0, len(req.Legs))
	cabins := make([]string, 0, len(req.Legs))
	for _, leg := range req.Legs {
		date, err := model.NormalizeDate(leg.Date)
		if err != nil {
			return "", err
		}
		routes = append(routes, leg.Origin+"-"+leg.Destination)
		dates = append(dates, date)
		cabins = append(cabins, req.Cabin)
	}
	return fmt.Sprintf("%s/result/%s/%s/%s/%s/%d:%d:%d",
		strings.TrimRight(baseURL, "/"),
		ClassifyTrip(req.Legs),
		strings.Join(routes, ":"),
		strings.Join(dates, ":"),
		strings.Join(cabins, ":"),
		req.Adults, req.Children, req.Infants,
	), nil
}
