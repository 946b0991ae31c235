// Package queue defines message payloads exchanged over the message
// broker and the background consumer that processes them.
package queue

// SearchCompletedEvent is published after every completed scrape, cache
// hits excluded. It carries enough for downstream consumers to log or
// feed analytics without touching the primary database.
type SearchCompletedEvent struct {
	RequesterID  string `json:"requester_id"`
	TripType     string `json:"trip_type"`
	TicketCount  int    `json:"ticket_count"`
	DroppedCards int    `json:"dropped_cards"`
	DurationMs   int64  `json:"duration_ms"`
	CompletedAt  string `json:"completed_at"`
}
