// Package boundary declares the four external collaborator interfaces
// spec.md §6 names as out of scope for this service to implement in full
// (queue persistence, blob storage, event transport, configuration) plus a
// minimal reference adapter for each, so the engine is runnable standalone
// without a real HTTP/SQL/message-broker deployment around it.
package boundary

import (
	"context"

	"github.com/friendsincode/audioengine/pkg/passage"
)

// Queue is the collaborator that owns durable queue membership and order.
// The engine calls it to persist changes and to rehydrate state on
// startup; it is never the source of truth for in-flight playback
// position, only for "what is queued, in what order."
type Queue interface {
	// Load returns every queue entry in play order.
	Load(ctx context.Context) ([]passage.QueueEntry, error)
	// Save persists the full queue membership/order, replacing whatever
	// was previously stored.
	Save(ctx context.Context, entries []passage.QueueEntry) error
}

// BlobStore resolves an opaque AudioRef to a local, seekable path a
// decode.Decoder can Open. Real deployments back this with object storage
// staged to a local cache; the reference adapter here assumes AudioRef is
// already a local path.
type BlobStore interface {
	// Resolve returns a local filesystem path for ref, downloading/staging
	// it first if the concrete implementation requires that.
	Resolve(ctx context.Context, ref string) (path string, err error)
}

// EventSink is the outbound notification channel for state changes the
// engine wants to publish (queue changes, playback transitions, errors).
// The real SSE transport that fans these out to clients is explicitly out
// of scope for this service (spec.md §1); this interface is the seam.
type EventSink interface {
	Publish(event Event)
}

// Event is one notification published to the event sink.
type Event struct {
	Kind    string
	EntryID passage.EntryID
	Detail  string
}

// ConfigSource resolves named configuration keys with typed accessors and
// defaults, standing in for whatever key/value config service a real
// deployment uses.
type ConfigSource interface {
	GetInt(key string, def int) int
	GetInt64(key string, def int64) int64
	GetFloat(key string, def float64) float64
	GetString(key string, def string) string
}
