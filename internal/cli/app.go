// Package cli is the interactive Heatwave client: a REPL whose available
// commands follow the navigation step, backed by live subscriptions that the
// view controller attaches and releases as the user moves between screens.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	_ "modernc.org/sqlite"

	"heatwave/internal/config"
	"heatwave/internal/contacts"
	"heatwave/internal/identity"
	"heatwave/internal/identity/localidentity"
	"heatwave/internal/localstate"
	"heatwave/internal/logging"
	"heatwave/internal/messaging"
	"heatwave/internal/models"
	"heatwave/internal/session"
	"heatwave/internal/store"
	"heatwave/internal/store/memstore"
	"heatwave/internal/store/pebblestore"
	"heatwave/internal/store/pgstore"
	"heatwave/internal/view"
)

// App wires the document store, the identity provider and the domain
// services behind the REPL, and doubles as the view controller's scope
// binder.
type App struct {
	config   *config.Config
	store    store.Store
	idp      identity.Provider
	session  *session.Service
	contacts *contacts.Manager
	msg      *messaging.Synchronizer
	view     *view.Controller
	log      logging.Logger
	reader   *bufio.Reader

	mu       sync.Mutex
	profile  models.UserProfile
	loggedIn bool
	pending  session.Result
	heat     []models.Message
	recency  []messaging.PartnerMeta
	contact  []models.ContactEdge
	blocked  []models.BlockEdge
	thread   []models.Message

	closers []func() error
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()
	log := logging.NewSlogLogger(slog.Default())

	app := &App{
		config: c,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
	}

	st, err := openStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	app.store = st
	if closer, ok := st.(interface{ Close() error }); ok {
		app.closers = append(app.closers, closer.Close)
	}

	db, state, err := localstate.Open(ctx, c.StatePath)
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}
	app.closers = append(app.closers, db.Close)

	idp := localidentity.New(st, log, []byte(c.JWTSecret), c.TokenValidity)
	app.idp = idp

	app.session = session.NewService(st, state, idp, log, c.DeepLinkPartner)
	app.contacts = contacts.NewManager(st, log)
	app.msg = messaging.NewSynchronizer(st, log)
	app.view = view.NewController(app, log)

	return app, nil
}

func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.StoreBackend {
	case config.BackendMemory:
		return memstore.New(), nil
	case config.BackendPebble:
		return pebblestore.Open(c.PebblePath)
	case config.BackendPostgres:
		return pgstore.Open(ctx, c.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
}

// Run restores the session and enters the REPL.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	res, err := a.session.Bootstrap(ctx)
	if err != nil {
		a.log.Error(ctx, "bootstrap failed", "error", err)
		return
	}
	a.applyBootstrap(ctx, res)

	sub := a.session.WatchIdentity(ctx, func(r session.Result) { a.onIdentity(ctx, r) })
	defer sub.Cancel()

	runREPL(ctx, a, a.prompt, bufio.NewScanner(os.Stdin))
}

// Close releases resources in reverse acquisition order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) applyBootstrap(ctx context.Context, res session.Result) {
	switch res.State {
	case session.Restored:
		a.setProfile(res.Profile)
		if err := a.view.Apply(ctx, view.EventLoggedIn); err != nil {
			a.log.Warn(ctx, "navigation failed", "error", err)
			return
		}
		printlnFn("Welcome back,", res.Profile.DisplayName)
		if res.DeepLinkPartner != "" {
			a.openThread(ctx, res.DeepLinkPartner)
		}
	case session.PendingExternalCompletion:
		_ = a.view.Apply(ctx, view.EventProfileIncomplete)
		printlnFn("Finish setting up your profile with 'complete'.")
	default:
		printlnFn("Welcome to Heatwave (type 'help' for commands)")
	}
}

// onIdentity reacts to provider auth-state changes. Manual handle logins
// never pass through here; only provider sign-ins and sign-outs do.
func (a *App) onIdentity(ctx context.Context, r session.Result) {
	switch r.State {
	case session.Restored:
		if a.isLoggedIn() {
			return
		}
		a.setProfile(r.Profile)
		if a.view.Step() == view.StepProfileCompletion {
			_ = a.view.Apply(ctx, view.EventProfileCompleted)
		} else if err := a.view.Apply(ctx, view.EventLoggedIn); err != nil {
			a.log.Warn(ctx, "navigation failed", "error", err)
			return
		}
		printlnFn("Welcome back,", r.Profile.DisplayName)
		if r.DeepLinkPartner != "" {
			a.openThread(ctx, r.DeepLinkPartner)
		}
	case session.PendingExternalCompletion:
		a.mu.Lock()
		a.pending = r
		a.mu.Unlock()
		if a.view.Step() == view.StepLogin {
			_ = a.view.Apply(ctx, view.EventProfileIncomplete)
		}
		printlnFn("Finish setting up your profile with 'complete'.")
	default:
		a.mu.Lock()
		a.pending = session.Result{}
		a.mu.Unlock()
	}
}

func (a *App) pendingIdentity() session.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

func (a *App) setProfile(p models.UserProfile) {
	a.mu.Lock()
	a.profile = p
	a.loggedIn = true
	a.mu.Unlock()
}

func (a *App) clearProfile() {
	a.mu.Lock()
	a.profile = models.UserProfile{}
	a.loggedIn = false
	a.heat, a.recency, a.contact, a.blocked, a.thread = nil, nil, nil, nil, nil
	a.mu.Unlock()
}

func (a *App) currentProfile() models.UserProfile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profile
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loggedIn
}

func (a *App) step() view.Step {
	return a.view.Step()
}

func (a *App) prompt() string {
	s := ""
	if p := a.currentProfile(); p.Handle != "" {
		s = p.Handle + " "
	}
	return fmt.Sprintf("%s%s", s, a.view.Step())
}

// noopSub backs the thread scope when no partner is selected: an empty
// thread, not an error.
type noopSub struct{}

func (noopSub) Cancel() {}

// Bind implements view.Binder.
func (a *App) Bind(ctx context.Context, scope view.Scope, thread view.Thread) (store.Subscription, error) {
	me := a.currentProfile()
	switch scope {
	case view.ScopeHeat:
		return a.msg.SubscribeHeat(ctx, me.Handle, func() map[string]struct{} {
			return a.excludedSenders(ctx, me.Handle)
		}, func(msgs []models.Message) {
			a.mu.Lock()
			a.heat = msgs
			a.mu.Unlock()
		})
	case view.ScopeContacts:
		return a.contacts.SubscribeContacts(ctx, me.Handle, func(edges []models.ContactEdge) {
			a.mu.Lock()
			a.contact = edges
			a.mu.Unlock()
		})
	case view.ScopeRecency:
		return a.msg.SubscribeRecency(ctx, me.Handle, a.contactSnapshot, func(metas []messaging.PartnerMeta) {
			a.mu.Lock()
			a.recency = metas
			a.mu.Unlock()
		})
	case view.ScopeThread:
		if thread.Partner == "" {
			a.mu.Lock()
			a.thread = nil
			a.mu.Unlock()
			return noopSub{}, nil
		}
		return a.msg.SubscribeWave(ctx, me.Handle, thread.Partner, thread.PartnerName, func(msgs []models.Message) {
			a.mu.Lock()
			a.thread = msgs
			a.mu.Unlock()
		})
	case view.ScopeBlocked:
		return a.contacts.SubscribeBlocked(ctx, me.Handle, func(edges []models.BlockEdge) {
			a.mu.Lock()
			a.blocked = edges
			a.mu.Unlock()
		})
	default:
		return nil, fmt.Errorf("unknown scope %v", scope)
	}
}

func (a *App) contactSnapshot() []models.ContactEdge {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.ContactEdge, len(a.contact))
	copy(out, a.contact)
	return out
}

// excludedSenders re-reads the contact and block lists so a promotion or a
// block applies to the next Heat delivery without resubscribing. Identified
// contacts talk through Waves; their public history leaves the Heat feed.
func (a *App) excludedSenders(ctx context.Context, me string) map[string]struct{} {
	out := make(map[string]struct{})
	contactEdges, err := a.contacts.Contacts(ctx, me)
	if err != nil {
		a.log.Warn(ctx, "contact list lookup failed", "error", err)
	}
	for _, edge := range contactEdges {
		out[edge.PartnerID] = struct{}{}
	}
	blockEdges, err := a.contacts.Blocked(ctx, me)
	if err != nil {
		a.log.Warn(ctx, "block list lookup failed", "error", err)
	}
	for _, edge := range blockEdges {
		out[edge.BlockedID] = struct{}{}
	}
	return out
}

// partnerName resolves the cached display name for a contact, falling back
// to the handle for strangers.
func (a *App) partnerName(handle string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, edge := range a.contact {
		if edge.PartnerID == handle {
			return edge.DisplayName()
		}
	}
	return handle
}
