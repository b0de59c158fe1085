// Package memstore is the in-memory reference implementation of the
// document-store contract. It backs the test suites and the embedded
// default configuration.
//
// Change notifications are delivered synchronously from the mutating call:
// after every Insert/Update/Delete each live subscription re-evaluates its
// query and receives the full matching set. Callbacks run outside the store
// lock, so a callback may itself mutate the store (the Wave read-state
// transition depends on this).
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"heatwave/internal/store"
)

type collection struct {
	order []string
	docs  map[string]map[string]any
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

// Store is an in-memory document store. The zero value is not usable; call New.
type Store struct {
	mu          sync.Mutex
	collections map[string]*collection
	subs        map[int]*subscription
	subOrder    []int
	nextSub     int
}

func New() *Store {
	return &Store{
		collections: make(map[string]*collection),
		subs:        make(map[int]*subscription),
	}
}

func (s *Store) col(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]map[string]any)}
		s.collections[name] = c
	}
	return c
}

// snapshotLocked evaluates q against current state. Caller holds s.mu.
func (s *Store) snapshotLocked(q store.Query) []store.Doc {
	c, ok := s.collections[q.Collection]
	if !ok {
		return nil
	}
	var out []store.Doc
	for _, id := range c.order {
		fields := c.docs[id]
		if fields == nil || !store.Matches(q, fields) {
			continue
		}
		out = append(out, store.Doc{
			Ref:    store.Ref{Collection: q.Collection, ID: id},
			Fields: store.CopyFields(fields),
		})
	}
	store.SortDocs(q, out)
	return out
}

func (s *Store) GetOnce(ctx context.Context, q store.Query) ([]store.Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(q), nil
}

func (s *Store) Insert(ctx context.Context, collection string, fields map[string]any) (store.Ref, error) {
	if err := ctx.Err(); err != nil {
		return store.Ref{}, err
	}
	s.mu.Lock()
	c := s.col(collection)
	id := uuid.NewString()
	c.docs[id] = store.CopyFields(fields)
	c.order = append(c.order, id)
	s.mu.Unlock()

	s.notify()
	return store.Ref{Collection: collection, ID: id}, nil
}

func (s *Store) Update(ctx context.Context, ref store.Ref, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	c, ok := s.collections[ref.Collection]
	if !ok || c.docs[ref.ID] == nil {
		s.mu.Unlock()
		return fmt.Errorf("update %s/%s: no such document", ref.Collection, ref.ID)
	}
	for k, v := range fields {
		c.docs[ref.ID][k] = v
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *Store) Delete(ctx context.Context, ref store.Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	c, ok := s.collections[ref.Collection]
	if ok && c.docs[ref.ID] != nil {
		delete(c.docs, ref.ID)
		for i, id := range c.order {
			if id == ref.ID {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

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
	initial := s.snapshotLocked(q)
	s.mu.Unlock()

	fn(initial)
	return sub, nil
}

// notify re-evaluates every live subscription in registration order and
// delivers the current snapshot. Each snapshot is computed just before its
// callback fires, so when an earlier callback mutates the store the later
// subscriptions in the same pass see the re-entrant write instead of a
// stale precomputed state. Callbacks run without the lock held; a callback
// mutating the store recurses into another notify pass, which terminates
// once the derived writes stop changing state.
func (s *Store) notify() {
	s.mu.Lock()
	ids := make([]int, len(s.subOrder))
	copy(ids, s.subOrder)
	s.mu.Unlock()

	for _, id := range ids {
		s.mu.Lock()
		sub, ok := s.subs[id]
		var docs []store.Doc
		if ok {
			docs = s.snapshotLocked(sub.q)
		}
		s.mu.Unlock()
		if ok {
			sub.fn(docs)
		}
	}
}
