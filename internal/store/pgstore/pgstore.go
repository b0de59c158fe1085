// Package pgstore implements the document-store contract on PostgreSQL.
// All collections share one table with a JSONB field map, mirroring the
// schemaless hosted store rather than imposing per-collection tables.
// Predicates are applied in Go after loading the collection; the data sets
// served here (one user's contacts, blocks, and mailbox) stay small.
//
// Change subscriptions use the same in-process notifier semantics as the
// other backends: mutations through this handle re-run the registered
// queries. There is deliberately no LISTEN/NOTIFY fan-out across processes.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"heatwave/internal/dbx"
	"heatwave/internal/store"
	"heatwave/internal/store/pgstore/migrations"
)

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

// Store is a PostgreSQL-backed document store.
type Store struct {
	db *sql.DB

	mu       sync.Mutex
	subs     map[int]*subscription
	subOrder []int
	nextSub  int
}

// Open connects to PostgreSQL via the pgx stdlib driver and runs the schema
// migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, subs: make(map[int]*subscription)}, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) load(ctx context.Context, tx dbx.DBTX, q store.Query) ([]store.Doc, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, fields FROM documents WHERE collection = $1 ORDER BY seq`, q.Collection)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var out []store.Doc
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Collection, err)
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", q.Collection, id, err)
		}
		if !store.Matches(q, fields) {
			continue
		}
		out = append(out, store.Doc{
			Ref:    store.Ref{Collection: q.Collection, ID: id},
			Fields: fields,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.Collection, err)
	}
	store.SortDocs(q, out)
	return out, nil
}

func (s *Store) GetOnce(ctx context.Context, q store.Query) ([]store.Doc, error) {
	return s.load(ctx, s.db, q)
}

func (s *Store) Insert(ctx context.Context, collection string, fields map[string]any) (store.Ref, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return store.Ref{}, fmt.Errorf("encode document: %w", err)
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, fields) VALUES ($1, $2, $3)`,
		collection, id, data)
	if err != nil {
		return store.Ref{}, fmt.Errorf("insert into %s: %w", collection, err)
	}
	s.notify(ctx)
	return store.Ref{Collection: collection, ID: id}, nil
}

func (s *Store) Update(ctx context.Context, ref store.Ref, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET fields = fields || $3::jsonb WHERE collection = $1 AND id = $2`,
		ref.Collection, ref.ID, data)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", ref.Collection, ref.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.New("update " + ref.Collection + "/" + ref.ID + ": no such document")
	}
	s.notify(ctx)
	return nil
}

func (s *Store) Delete(ctx context.Context, ref store.Ref) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		ref.Collection, ref.ID)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", ref.Collection, ref.ID, err)
	}
	s.notify(ctx)
	return nil
}

func (s *Store) Subscribe(ctx context.Context, q store.Query, fn func(docs []store.Doc)) (store.Subscription, error) {
	s.mu.Lock()
	s.nextSub++
	sub := &subscription{s: s, id: s.nextSub, q: q, fn: fn}
	s.subs[sub.id] = sub
	s.subOrder = append(s.subOrder, sub.id)
	s.mu.Unlock()

	initial, err := s.load(ctx, s.db, q)
	if err != nil {
		sub.Cancel()
		return nil, err
	}
	fn(initial)
	return sub, nil
}

func (s *Store) notify(ctx context.Context) {
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
		docs, err := s.load(ctx, s.db, tg.q)
		if err != nil {
			continue
		}
		tg.fn(docs)
	}
}
