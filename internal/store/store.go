// Package store defines the persistent Trend document contract (C8) and a
// MongoDB-backed implementation, grounded on the teacher's db/mongo.go and
// repositories/*.go upsert-by-key pattern.
package store

import (
	"context"

	"gdelt-trends/internal/trend"
)

// Query selects Trends by the predicates the Aggregator and Scorer need:
// an exact (type, category) plus either a set of dates or a date range.
type Query struct {
	Type     trend.Type
	Category trend.Category

	// Dates, if non-nil, restricts to date ∈ Dates (a set match).
	Dates []string

	// DateFrom/DateTo, if non-empty, restricts to date ∈ [DateFrom, DateTo)
	// (a half-open range match). Ignored when Dates is set.
	DateFrom string
	DateTo   string

	Limit int
}

// Store is the persistent Trend document store. Upserts are atomic on the
// key (type, date, category) and are whole-document replacements: a
// concurrent upsert on the same key is last-writer-wins, never a partial
// merge (§5).
type Store interface {
	UpsertTrend(ctx context.Context, t trend.Trend) error
	FindTrend(ctx context.Context, key trend.Key) (*trend.Trend, error)
	FindTrends(ctx context.Context, q Query) ([]trend.Trend, error)
}

// Pinger is implemented by Store adapters that can verify connectivity, used
// by the HTTP health check. Not every test double needs to implement it.
type Pinger interface {
	Ping(ctx context.Context) error
}
