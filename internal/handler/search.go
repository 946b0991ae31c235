package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rvetrov/flight-fare-search/internal/model"
	"github.com/rvetrov/flight-fare-search/internal/scraper"
	"github.com/rvetrov/flight-fare-search/internal/search"
)

// SearchService is what the handler needs from the search orchestrator.
type SearchService interface {
	Search(ctx context.Context, requesterID string, req model.SearchRequest) (*search.Result, error)
}

// SearchHandler exposes the flight search endpoint.
type SearchHandler struct {
	Svc     SearchService
	Timeout time.Duration // overall bound on one search request
}

func NewSearchHandler(svc SearchService, timeout time.Duration) *SearchHandler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &SearchHandler{Svc: svc, Timeout: timeout}
}

type searchMeta struct {
	TotalResults int   `json:"total_results"`
	DroppedCards int   `json:"dropped_cards"`
	CacheHit     bool  `json:"cache_hit"`
	SearchTimeMs int64 `json:"search_time_ms"`
}

type searchResp struct {
	Tickets []model.Ticket `json:"tickets"`
	Message string         `json:"message,omitempty"`
	Meta    searchMeta     `json:"meta"`
}

// Search runs one flight search. Scrapes can take minutes, so the
// request context gets its own generous timeout instead of the short DB
// bound used elsewhere.
func (h *SearchHandler) Search(c echo.Context) error {
	var req model.SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	requesterID, _ := c.Get("requester_id").(string)
	if requesterID == "" {
		requesterID = c.RealIP()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	started := time.Now()
	res, err := h.Svc.Search(ctx, requesterID, req)
	if err != nil {
		return h.searchError(c, err)
	}

	resp := searchResp{
		Tickets: res.Tickets,
		Meta: searchMeta{
			TotalResults: len(res.Tickets),
			DroppedCards: res.DroppedCards,
			CacheHit:     res.CacheHit,
			SearchTimeMs: time.Since(started).Milliseconds(),
		},
	}
	if res.NoResults {
		resp.Message = "No flights found matching your search"
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SearchHandler) searchError(c echo.Context, err error) error {
	var verr model.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid search", "detail": verr.Error()})
	case errors.Is(err, model.ErrMalformedDate):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid search", "detail": err.Error()})
	case errors.Is(err, search.ErrAlreadyInProgress):
		return c.JSON(http.StatusConflict, echo.Map{"error": "search already in progress"})
	case errors.Is(err, scraper.ErrContentTimeout), errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "the fare site took too long to answer"})
	}
	c.Logger().Errorf("search failed: %v", err)
	return c.JSON(http.StatusBadGateway, echo.Map{"error": "search failed"})
}
