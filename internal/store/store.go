// Package store defines the document-store contract the Heatwave core is
// written against: collection queries with equality/membership predicates,
// one-shot reads, individual document writes, and change subscriptions that
// deliver the full matching set on every firing.
//
// The contract deliberately mirrors what the hosted store provides: no
// transactions, no server-side joins, and no uniqueness constraints. All
// cross-document consistency is best effort and owned by the callers.
package store

import "context"

// Ref identifies a single document.
type Ref struct {
	Collection string
	ID         string
}

// Doc is a document snapshot: its ref plus a flat field map.
type Doc struct {
	Ref    Ref
	Fields map[string]any
}

// Op is a predicate operator.
type Op int

const (
	// OpEqual matches documents whose field equals the filter value.
	OpEqual Op = iota
	// OpIn matches documents whose field equals any of the filter values.
	OpIn
)

// Filter is a single field predicate.
type Filter struct {
	Field string
	Op    Op
	Value any // OpEqual: the value; OpIn: []any of candidate values
}

// Where builds an equality filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// WhereIn builds a membership filter.
func WhereIn(field string, values ...any) Filter {
	return Filter{Field: field, Op: OpIn, Value: values}
}

// Query selects documents from one collection. OrderBy names a field to sort
// on; documents missing that field sort first. Desc reverses the order.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Desc       bool
}

// Subscription is a live change listener. Cancel is idempotent and must stop
// all future deliveries.
type Subscription interface {
	Cancel()
}

// Store is the document-store surface consumed by the core.
//
// Subscribe registers fn for q and fires it immediately with the current
// matching set, then again after every mutation that may affect the result.
// Each firing delivers the full result set in query order; deliveries within
// one subscription are ordered. Delivery is at-least-once: callers must
// derive state from the snapshot, not from deltas.
type Store interface {
	GetOnce(ctx context.Context, q Query) ([]Doc, error)
	Insert(ctx context.Context, collection string, fields map[string]any) (Ref, error)
	Update(ctx context.Context, ref Ref, fields map[string]any) error
	Delete(ctx context.Context, ref Ref) error
	Subscribe(ctx context.Context, q Query, fn func(docs []Doc)) (Subscription, error)
}
