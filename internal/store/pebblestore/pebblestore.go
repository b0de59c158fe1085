// Package pebblestore implements the document-store contract on top of a
// local Pebble database, for single-process deployments that want the
// mailbox to survive restarts.
//
// Layout: one key per document, "doc:<collection>:<id>", JSON-encoded field
// map as the value. IDs carry a zero-padded nanosecond timestamp plus a
// process-local sequence number so that key order equals insertion order.
// Field values round-trip through JSON: timestamps come back as RFC 3339
// strings and numbers as float64, which the model decoders accept.
//
// Change subscriptions share the in-process notifier semantics of the
// in-memory backend: every mutation through this handle re-evaluates the
// registered queries. Mutations performed by another process are not seen
// until the next local mutation.
package pebblestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"heatwave/internal/store"
)

// seq reduces key collisions when documents share a nanosecond timestamp.
var seq uint64

func newDocID() string {
	ts := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&seq, 1)
	return fmt.Sprintf("%020d-%06d", ts, s)
}

func docKey(collection, id string) []byte {
	return []byte("doc:" + collection + ":" + id)
}

func collectionPrefix(collection string) []byte {
	return []byte("doc:" + collection + ":")
}

type subscription struct {
	s  *Store
	id int
	q  store.Query
	fn func([]store.Doc)
}

func (sub *subscription) Cancel() {
	sub.s.mu.Lock()
	delete(sub.s.subs, sub.id)
	sub.s.mu.Unlock()
}

// Store is a Pebble-backed document store. Open creates it; Close must be
// called before process exit to flush the WAL.
type Store struct {
	db *pebble.DB

	mu       sync.Mutex
	subs     map[int]*subscription
	subOrder []int
	nextSub  int
}

// Open opens (or creates) a Pebble database at the given path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	return &Store{db: db, subs: make(map[int]*subscription)}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// scan evaluates q by walking the collection prefix in key order.
func (s *Store) scan(q store.Query) ([]store.Doc, error) {
	prefix := collectionPrefix(q.Collection)
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []store.Doc
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		key := iter.Key()
		if !strings.HasPrefix(string(key), string(prefix)) {
			break
		}
		var fields map[string]any
		if err := json.Unmarshal(iter.Value(), &fields); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		if !store.Matches(q, fields) {
			continue
		}
		id := strings.TrimPrefix(string(key), string(prefix))
		out = append(out, store.Doc{
			Ref:    store.Ref{Collection: q.Collection, ID: id},
			Fields: fields,
		})
	}
	store.SortDocs(q, out)
	return out, iter.Error()
}

func (s *Store) GetOnce(ctx context.Context, q store.Query) ([]store.Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.scan(q)
}

func (s *Store) Insert(ctx context.Context, collection string, fields map[string]any) (store.Ref, error) {
	if err := ctx.Err(); err != nil {
		return store.Ref{}, err
	}
	id := newDocID()
	data, err := json.Marshal(fields)
	if err != nil {
		return store.Ref{}, fmt.Errorf("encode document: %w", err)
	}
	if err := s.db.Set(docKey(collection, id), data, pebble.Sync); err != nil {
		return store.Ref{}, fmt.Errorf("insert into %s: %w", collection, err)
	}
	s.notify()
	return store.Ref{Collection: collection, ID: id}, nil
}

func (s *Store) Update(ctx context.Context, ref store.Ref, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := docKey(ref.Collection, ref.ID)
	current, closer, err := s.db.Get(key)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", ref.Collection, ref.ID, err)
	}
	var existing map[string]any
	err = json.Unmarshal(current, &existing)
	_ = closer.Close()
	if err != nil {
		return fmt.Errorf("decode %s/%s: %w", ref.Collection, ref.ID, err)
	}
	// merge semantics match the hosted store: update touches named fields only
	merged, err := json.Marshal(mergeFields(existing, fields))
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", ref.Collection, ref.ID, err)
	}
	if err := s.db.Set(key, merged, pebble.Sync); err != nil {
		return fmt.Errorf("update %s/%s: %w", ref.Collection, ref.ID, err)
	}
	s.notify()
	return nil
}

func mergeFields(existing, updates map[string]any) map[string]any {
	out := store.CopyFields(existing)
	for k, v := range updates {
		out[k] = v
	}
	return out
}

func (s *Store) Delete(ctx context.Context, ref store.Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Delete(docKey(ref.Collection, ref.ID), pebble.Sync); err != nil {
		return fmt.Errorf("delete %s/%s: %w", ref.Collection, ref.ID, err)
	}
	s.notify()
	return nil
}

func (s *Store) Subscribe(ctx context.Context, q store.Query, fn func(docs []store.Doc)) (store.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.nextSub++
	sub := &subscription{s: s, id: s.nextSub, q: q, fn: fn}
	s.subs[sub.id] = sub
	s.subOrder = append(s.subOrder, sub.id)
	s.mu.Unlock()

	initial, err := s.scan(q)
	if err != nil {
		sub.Cancel()
		return nil, err
	}
	fn(initial)
	return sub, nil
}

func (s *Store) notify() {
	s.mu.Lock()
	type target struct {
		q  store.Query
		fn func([]store.Doc)
	}
	var targets []target
	for _, id := range s.subOrder {
		if sub, ok := s.subs[id]; ok {
			targets = append(targets, target{q: sub.q, fn: sub.fn})
		}
	}
	s.mu.Unlock()

	for _, tg := range targets {
		docs, err := s.scan(tg.q)
		if err != nil {
			continue
		}
		tg.fn(docs)
	}
}
