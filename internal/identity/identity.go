// Package identity defines the external-identity-provider contract the
// session bootstrapper consumes. The provider owns sign-in state; the core
// only observes it.
package identity

import "context"

// Identity is the external identity as reported by the provider.
type Identity struct {
	UID   string
	Email string
}

// Subscription is a live auth-state listener handle.
type Subscription interface {
	Cancel()
}

// Provider is the identity-provider surface.
//
// OnAuthStateChanged registers fn and fires it immediately with the current
// state (nil when signed out), then again on every state change, in order.
type Provider interface {
	SignIn(ctx context.Context, email string, password []byte) (*Identity, error)
	SignUp(ctx context.Context, email string, password []byte) (*Identity, error)
	OnAuthStateChanged(fn func(*Identity)) Subscription
	SignOut(ctx context.Context) error
}
