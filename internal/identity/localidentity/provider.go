// Package localidentity is a self-hosted identity.Provider backed by the
// document store: accounts live in an "identities" collection with Argon2id
// credential hashes, and a successful sign-in mints a short-lived HS256 JWT
// as session evidence. It stands in for the hosted identity service in
// single-process deployments and in tests that need real credential flow.
package localidentity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"heatwave/internal/common"
	"heatwave/internal/cryptox"
	"heatwave/internal/identity"
	"heatwave/internal/logging"
	"heatwave/internal/store"
)

// CollectionIdentities holds provider accounts, separate from user profiles.
const CollectionIdentities = "identities"

type subscription struct {
	p  *Provider
	id int
}

func (s *subscription) Cancel() {
	s.p.mu.Lock()
	delete(s.p.subs, s.id)
	s.p.mu.Unlock()
}

type Provider struct {
	store    store.Store
	log      logging.Logger
	secret   []byte
	validity time.Duration

	mu      sync.Mutex
	current *identity.Identity
	token   string
	subs    map[int]func(*identity.Identity)
	nextSub int
}

func New(s store.Store, log logging.Logger, secret []byte, validity time.Duration) *Provider {
	return &Provider{
		store:    s,
		log:      log.With("module", "localidentity"),
		secret:   secret,
		validity: validity,
		subs:     make(map[int]func(*identity.Identity)),
	}
}

func (p *Provider) lookup(ctx context.Context, email string) (store.Doc, bool, error) {
	docs, err := p.store.GetOnce(ctx, store.Query{
		Collection: CollectionIdentities,
		Filters:    []store.Filter{store.Where("email", email)},
	})
	if err != nil {
		return store.Doc{}, false, fmt.Errorf("lookup identity: %w", err)
	}
	if len(docs) == 0 {
		return store.Doc{}, false, nil
	}
	return docs[0], true, nil
}

// SignUp creates an account. The email pre-check is read-before-write, same
// as every other uniqueness check against this store.
func (p *Provider) SignUp(ctx context.Context, email string, password []byte) (*identity.Identity, error) {
	if email == "" || len(password) == 0 {
		return nil, common.ErrValidation
	}
	_, exists, err := p.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: email %s", common.ErrConflict, email)
	}

	uid := uuid.NewString()
	_, err = p.store.Insert(ctx, CollectionIdentities, map[string]any{
		"uid":        uid,
		"email":      email,
		"credential": cryptox.HashCredential(password),
		"createdAt":  time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}

	id := &identity.Identity{UID: uid, Email: email}
	p.setCurrent(ctx, id)
	return id, nil
}

func (p *Provider) SignIn(ctx context.Context, email string, password []byte) (*identity.Identity, error) {
	doc, exists, err := p.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, common.ErrUnauthorized
	}
	uid, _ := doc.Fields["uid"].(string)
	credential, _ := doc.Fields["credential"].(string)
	if uid == "" || !cryptox.VerifyCredential(credential, password) {
		return nil, common.ErrUnauthorized
	}

	id := &identity.Identity{UID: uid, Email: email}
	p.setCurrent(ctx, id)
	return id, nil
}

func (p *Provider) setCurrent(ctx context.Context, id *identity.Identity) {
	p.mu.Lock()
	p.current = id
	p.token = ""
	if id != nil {
		token, err := generateToken(id.UID, p.secret, p.validity)
		if err != nil {
			p.log.Warn(ctx, "token generation failed", "error", err)
		} else {
			p.token = token
		}
	}
	fns := make([]func(*identity.Identity), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
}

// Token returns the current session JWT, or "" when signed out.
func (p *Provider) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// VerifyToken validates a session JWT and returns the account UID.
func (p *Provider) VerifyToken(token string) (string, error) {
	return uidFromToken(token, p.secret)
}

func (p *Provider) OnAuthStateChanged(fn func(*identity.Identity)) identity.Subscription {
	p.mu.Lock()
	p.nextSub++
	id := p.nextSub
	p.subs[id] = fn
	current := p.current
	p.mu.Unlock()

	fn(current)
	return &subscription{p: p, id: id}
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.setCurrent(ctx, nil)
	return nil
}
