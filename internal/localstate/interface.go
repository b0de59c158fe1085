// Package localstate is the local persisted session store: a small
// key/value table that outlives the process. The only consumer is the
// session bootstrapper, which keeps the profile snapshot here.
package localstate

import "context"

// Repository is a persisted key/value store. Get returns (nil, nil) when the
// key is absent.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
