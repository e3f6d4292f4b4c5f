// Package store is the persistence boundary of the engine: revisioned
// documents, advisory locks, and the idempotent-response cache. Game logic
// never touches lock or idempotency rows directly.
package store

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"
)

var (
	// ErrLockBusy means another owner holds the lock; the whole command
	// should be retried later by the caller, never internally.
	ErrLockBusy = errors.New("lock busy")
	// ErrRevisionConflict means the document changed between read and
	// write; the caller must re-read and reapply.
	ErrRevisionConflict = errors.New("revision conflict")
	// ErrNotFound means the requested document does not exist.
	ErrNotFound = errors.New("document not found")
)

// Document is a stored state blob plus its optimistic-concurrency revision.
type Document struct {
	Key      string
	Data     []byte
	Revision int64
}

// Store is implemented by the Postgres store and the in-memory store.
type Store interface {
	// Get returns the latest document and its revision, or ErrNotFound.
	Get(ctx context.Context, key string) (Document, error)
	// List returns all documents whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Document, error)
	// Put writes a document. With expected == 0 it creates or overwrites
	// unconditionally; with expected > 0 the write applies only when the
	// stored revision matches, otherwise ErrRevisionConflict. Either way
	// the new revision (old+1, or 1 on create) is returned and the write
	// is atomic.
	Put(ctx context.Context, key string, data []byte, expected int64) (int64, error)

	// AcquireLock inserts the advisory lock row if absent, purging any
	// expired row first. A live lock held by someone else yields
	// ErrLockBusy immediately; there is no queuing.
	AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) error
	// ReleaseLock deletes the lock only if owner still holds it.
	ReleaseLock(ctx context.Context, key, owner string) error

	// GetResponse returns a cached command response if present and
	// unexpired.
	GetResponse(ctx context.Context, key string) ([]byte, bool, error)
	// PutResponse caches a command response for idempotent replay.
	PutResponse(ctx context.Context, key string, response []byte, ttl time.Duration) error

	// Sweep removes expired locks and idempotency records, returning how
	// many of each were deleted.
	Sweep(ctx context.Context, now time.Time) (locks, responses int64, err error)
}

// CommunityKey is the document key of a community's shared state.
func CommunityKey(communityID string) string {
	return "community/" + communityID
}

// ActorKey is the document key of one actor's state.
func ActorKey(communityID, actorID string) string {
	return "community/" + communityID + "/actor/" + actorID
}

// ActorPrefix matches all actor documents in a community.
func ActorPrefix(communityID string) string {
	return "community/" + communityID + "/actor/"
}

// ActorLockKey serializes state-changing commands for one actor.
func ActorLockKey(communityID, actorID string) string {
	return "actor/" + communityID + "/" + actorID
}

// CommunityLockKey serializes daily rotation of shared community state.
func CommunityLockKey(communityID string) string {
	return "community/" + communityID
}

// ResponseKey derives the idempotency key of a command from its scope,
// action name, and the transport-supplied request id.
func ResponseKey(communityID, actorID, action, requestID string) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s", communityID, actorID, action, requestID)
	return fmt.Sprintf("%016x", h.Sum64())
}
