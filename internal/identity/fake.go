package identity

import (
	"context"
	"sync"
)

// FakeProvider is a scripted Provider for tests: set the identity directly
// and subscribers are notified.
type FakeProvider struct {
	mu       sync.Mutex
	current  *Identity
	subs     map[int]func(*Identity)
	nextSub  int
	signOuts int
}

type fakeSub struct {
	p  *FakeProvider
	id int
}

func (s *fakeSub) Cancel() {
	s.p.mu.Lock()
	delete(s.p.subs, s.id)
	s.p.mu.Unlock()
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{subs: make(map[int]func(*Identity))}
}

// SetIdentity changes the current identity and notifies subscribers.
func (p *FakeProvider) SetIdentity(id *Identity) {
	p.mu.Lock()
	p.current = id
	fns := make([]func(*Identity), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}

func (p *FakeProvider) SignIn(ctx context.Context, email string, password []byte) (*Identity, error) {
	p.mu.Lock()
	id := p.current
	p.mu.Unlock()
	return id, nil
}

func (p *FakeProvider) SignUp(ctx context.Context, email string, password []byte) (*Identity, error) {
	id := &Identity{UID: "fake-" + email, Email: email}
	p.SetIdentity(id)
	return id, nil
}

func (p *FakeProvider) OnAuthStateChanged(fn func(*Identity)) Subscription {
	p.mu.Lock()
	p.nextSub++
	id := p.nextSub
	p.subs[id] = fn
	current := p.current
	p.mu.Unlock()
	fn(current)
	return &fakeSub{p: p, id: id}
}

func (p *FakeProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.signOuts++
	p.mu.Unlock()
	p.SetIdentity(nil)
	return nil
}

// SignOuts reports how many times SignOut was called.
func (p *FakeProvider) SignOuts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signOuts
}
