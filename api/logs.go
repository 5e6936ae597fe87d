package api

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// LogEntry is one audited backend operation, read-only.
type LogEntry struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// LogQuery narrows a log listing. Zero values mean no filter.
type LogQuery struct {
	Actor  string
	Action string
	Since  time.Time
	Limit  int
}

// LogService reads operation logs. Logs are append-only on the backend,
// so the client surface is list-only.
type LogService struct {
	c *Client
}

// List fetches log entries matching q, newest first.
func (s *LogService) List(ctx context.Context, q LogQuery) ([]LogEntry, error) {
	query := url.Values{}
	if q.Actor != "" {
		query.Set("actor", q.Actor)
	}
	if q.Action != "" {
		query.Set("action", q.Action)
	}
	if !q.Since.IsZero() {
		query.Set("since", q.Since.UTC().Format(time.RFC3339))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}

	var entries []LogEntry
	if err := s.c.get(ctx, "/logs", query, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
