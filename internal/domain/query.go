package domain

import "context"

// EventQuery supplies the events an analytics call runs over.
type EventQuery interface {
	Query(ctx context.Context, f Filter) ([]Event, error)
}
