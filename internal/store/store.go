// Package store provides the persistence backends. Each backend implements
// both domain store interfaces; the persistence layer is the sole source of
// truth and the sole serialization point between requests.
package store

import (
	"context"

	"rollbook/internal/attendance"
	"rollbook/internal/roster"
)

// Store is the full persistence surface expected by the server: the roster
// and attendance collaborators plus lifecycle and health hooks.
type Store interface {
	roster.Store
	attendance.Store

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend's resources.
	Close(ctx context.Context) error
}
