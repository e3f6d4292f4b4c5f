package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPutCreateAndGuardedUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	rev, err := m.Put(ctx, "community/c1", []byte(`{"a":1}`), 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rev != 1 {
		t.Fatalf("create revision = %d, want 1", rev)
	}

	rev, err = m.Put(ctx, "community/c1", []byte(`{"a":2}`), 1)
	if err != nil {
		t.Fatalf("guarded update: %v", err)
	}
	if rev != 2 {
		t.Fatalf("guarded update revision = %d, want 2", rev)
	}

	doc, err := m.Get(ctx, "community/c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(doc.Data) != `{"a":2}` || doc.Revision != 2 {
		t.Fatalf("got %q rev %d", doc.Data, doc.Revision)
	}
}

func TestStaleRevisionRejected(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.Put(ctx, "k", []byte(`1`), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Put(ctx, "k", []byte(`2`), 0); err != nil {
		t.Fatal(err)
	}

	_, err := m.Put(ctx, "k", []byte(`3`), 1)
	if !errors.Is(err, ErrRevisionConflict) {
		t.Fatalf("stale write: got %v, want ErrRevisionConflict", err)
	}
	doc, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(doc.Data) != `2` || doc.Revision != 2 {
		t.Fatalf("rejected write mutated the document: %q rev %d", doc.Data, doc.Revision)
	}
}

func TestGuardedUpdateMissingDoc(t *testing.T) {
	m := NewMemory()
	if _, err := m.Put(context.Background(), "nope", []byte(`1`), 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestLockMutualExclusion(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	const contenders = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	var won, busy int
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			err := m.AcquireLock(ctx, "actor/c1/a1", owner, time.Minute)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, ErrLockBusy):
				busy++
			default:
				t.Errorf("unexpected acquire error: %v", err)
			}
		}(string(rune('a' + i)))
	}
	wg.Wait()
	if won != 1 || busy != contenders-1 {
		t.Fatalf("won=%d busy=%d, want exactly one winner", won, busy)
	}
}

func TestLockReleaseOnlyByOwner(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.AcquireLock(ctx, "k", "alice", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := m.ReleaseLock(ctx, "k", "bob"); err != nil {
		t.Fatal(err)
	}
	// Bob's release must not have freed Alice's lock.
	if err := m.AcquireLock(ctx, "k", "bob", time.Minute); !errors.Is(err, ErrLockBusy) {
		t.Fatalf("got %v, want ErrLockBusy", err)
	}
	if err := m.ReleaseLock(ctx, "k", "alice"); err != nil {
		t.Fatal(err)
	}
	if err := m.AcquireLock(ctx, "k", "bob", time.Minute); err != nil {
		t.Fatalf("lock should be free after owner release: %v", err)
	}
}

func TestExpiredLockIsReacquirable(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.AcquireLock(ctx, "k", "alice", -time.Second); err != nil {
		t.Fatal(err)
	}
	if err := m.AcquireLock(ctx, "k", "bob", time.Minute); err != nil {
		t.Fatalf("expired lock should be purged on acquire: %v", err)
	}
}

func TestResponseCache(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	key := ResponseKey("c1", "a1", "serve", "req-1")

	if _, ok, err := m.GetResponse(ctx, key); err != nil || ok {
		t.Fatalf("cold cache: ok=%v err=%v", ok, err)
	}
	if err := m.PutResponse(ctx, key, []byte(`{"coins":5}`), time.Minute); err != nil {
		t.Fatal(err)
	}
	payload, ok, err := m.GetResponse(ctx, key)
	if err != nil || !ok {
		t.Fatalf("warm cache: ok=%v err=%v", ok, err)
	}
	if string(payload) != `{"coins":5}` {
		t.Fatalf("payload %q", payload)
	}

	expired := ResponseKey("c1", "a1", "serve", "req-2")
	if err := m.PutResponse(ctx, expired, []byte(`x`), -time.Second); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := m.GetResponse(ctx, expired); ok {
		t.Fatalf("expired entry must not replay")
	}
}

func TestResponseKeyScoping(t *testing.T) {
	base := ResponseKey("c1", "a1", "serve", "req-1")
	others := []string{
		ResponseKey("c2", "a1", "serve", "req-1"),
		ResponseKey("c1", "a2", "serve", "req-1"),
		ResponseKey("c1", "a1", "buy", "req-1"),
		ResponseKey("c1", "a1", "serve", "req-2"),
	}
	for i, k := range others {
		if k == base {
			t.Fatalf("key %d collided with base scope", i)
		}
	}
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()

	if err := m.AcquireLock(ctx, "stale", "x", -time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := m.AcquireLock(ctx, "live", "x", time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := m.PutResponse(ctx, "stale-resp", []byte(`1`), -time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := m.PutResponse(ctx, "live-resp", []byte(`1`), time.Hour); err != nil {
		t.Fatal(err)
	}

	locks, responses, err := m.Sweep(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if locks != 1 || responses != 1 {
		t.Fatalf("swept locks=%d responses=%d, want 1 and 1", locks, responses)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, k := range []string{ActorKey("c1", "a2"), ActorKey("c1", "a1"), ActorKey("c2", "b1"), CommunityKey("c1")} {
		if _, err := m.Put(ctx, k, []byte(`{}`), 0); err != nil {
			t.Fatal(err)
		}
	}
	docs, err := m.List(ctx, ActorPrefix("c1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
	if docs[0].Key != ActorKey("c1", "a1") || docs[1].Key != ActorKey("c1", "a2") {
		t.Fatalf("unexpected order: %s, %s", docs[0].Key, docs[1].Key)
	}
}
