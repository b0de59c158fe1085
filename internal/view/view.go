// Package view is the navigation state machine. It tracks which step the
// user is on, which live subscription scopes that step needs, and keeps the
// set of attached subscriptions exactly in sync with the current step:
// scopes are released before new ones are acquired, in a fixed order, so a
// given navigation always produces the same attach/detach sequence.
package view

import (
	"context"
	"fmt"

	"heatwave/internal/logging"
	"heatwave/internal/store"
)

// Step identifies a screen.
type Step int

const (
	StepLogin Step = iota
	StepRegister
	StepProfileCompletion
	StepPasswordRecovery
	StepRoleChoice
	StepHeat
	StepWaveList
	StepWaveThread
	StepSettingsMenu
	StepSettingsProfile
	StepSettingsBlocklist
)

var stepNames = map[Step]string{
	StepLogin:             "login",
	StepRegister:          "register",
	StepProfileCompletion: "profileCompletion",
	StepPasswordRecovery:  "passwordRecovery",
	StepRoleChoice:        "roleChoice",
	StepHeat:              "heat",
	StepWaveList:          "waveList",
	StepWaveThread:        "waveThread",
	StepSettingsMenu:      "settingsMenu",
	StepSettingsProfile:   "settingsProfile",
	StepSettingsBlocklist: "settingsBlocklist",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Event is a navigation trigger.
type Event int

const (
	EventLoggedIn Event = iota
	EventLoggedOut
	EventRegisterRequested
	EventRecoverRequested
	EventProfileIncomplete
	EventProfileCompleted
	EventHeatOpened
	EventWaveListOpened
	EventThreadOpened
	EventSettingsOpened
	EventProfileSettingsOpened
	EventBlocklistOpened
	EventBack
)

// Scope identifies one live subscription a step can require.
type Scope int

const (
	ScopeHeat Scope = iota
	ScopeContacts
	ScopeRecency
	ScopeThread
	ScopeBlocked
)

var scopeNames = map[Scope]string{
	ScopeHeat:     "heat",
	ScopeContacts: "contacts",
	ScopeRecency:  "recency",
	ScopeThread:   "thread",
	ScopeBlocked:  "blocked",
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// scopeOrder fixes the attach/detach sequence.
var scopeOrder = []Scope{ScopeHeat, ScopeContacts, ScopeRecency, ScopeThread, ScopeBlocked}

// stepScopes maps each step to the scopes it keeps alive. Steps absent here
// hold no subscriptions.
var stepScopes = map[Step][]Scope{
	StepRoleChoice:        {ScopeContacts},
	StepHeat:              {ScopeHeat},
	StepWaveList:          {ScopeContacts, ScopeRecency},
	StepWaveThread:        {ScopeThread},
	StepSettingsBlocklist: {ScopeBlocked},
}

// transitions is the navigation table. A (step, event) pair absent here is
// an invalid navigation.
var transitions = map[Step]map[Event]Step{
	StepLogin: {
		EventLoggedIn:          StepRoleChoice,
		EventRegisterRequested: StepRegister,
		EventRecoverRequested:  StepPasswordRecovery,
		EventProfileIncomplete: StepProfileCompletion,
	},
	StepRegister: {
		EventBack: StepLogin,
	},
	StepPasswordRecovery: {
		EventBack: StepLogin,
	},
	StepProfileCompletion: {
		EventProfileCompleted: StepRoleChoice,
		EventLoggedOut:        StepLogin,
	},
	StepRoleChoice: {
		EventHeatOpened:     StepHeat,
		EventWaveListOpened: StepWaveList,
		EventThreadOpened:   StepWaveThread,
		EventSettingsOpened: StepSettingsMenu,
		EventLoggedOut:      StepLogin,
	},
	StepHeat: {
		EventBack:           StepRoleChoice,
		EventWaveListOpened: StepWaveList,
		EventSettingsOpened: StepSettingsMenu,
		EventLoggedOut:      StepLogin,
	},
	StepWaveList: {
		EventThreadOpened:   StepWaveThread,
		EventHeatOpened:     StepHeat,
		EventBack:           StepRoleChoice,
		EventSettingsOpened: StepSettingsMenu,
		EventLoggedOut:      StepLogin,
	},
	StepWaveThread: {
		EventThreadOpened: StepWaveThread,
		EventBack:         StepWaveList,
		EventLoggedOut:    StepLogin,
	},
	StepSettingsMenu: {
		EventProfileSettingsOpened: StepSettingsProfile,
		EventBlocklistOpened:       StepSettingsBlocklist,
		EventBack:                  StepRoleChoice,
		EventLoggedOut:             StepLogin,
	},
	StepSettingsProfile: {
		EventBack:      StepSettingsMenu,
		EventLoggedOut: StepLogin,
	},
	StepSettingsBlocklist: {
		EventBack:      StepSettingsMenu,
		EventLoggedOut: StepLogin,
	},
}

// Thread names the Wave partner the thread scope binds to. An empty Partner
// is a valid, empty thread.
type Thread struct {
	Partner     string
	PartnerName string
}

// Binder attaches the live subscription behind a scope. ScopeThread binds
// against the given thread; the other scopes ignore it.
type Binder interface {
	Bind(ctx context.Context, scope Scope, thread Thread) (store.Subscription, error)
}

// ErrInvalidTransition reports a navigation the table does not allow.
type ErrInvalidTransition struct {
	From  Step
	Event Event
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("no transition from %s on event %d", e.From, e.Event)
}

// Controller runs the state machine.
type Controller struct {
	binder Binder
	log    logging.Logger

	step   Step
	thread Thread
	subs   map[Scope]store.Subscription
}

func NewController(binder Binder, log logging.Logger) *Controller {
	return &Controller{
		binder: binder,
		log:    log.With("module", "view"),
		step:   StepLogin,
		subs:   make(map[Scope]store.Subscription),
	}
}

// Step returns the current step.
func (c *Controller) Step() Step { return c.step }

// Thread returns the current Wave thread binding.
func (c *Controller) Thread() Thread { return c.thread }

// SetThread updates the thread binding for the next EventThreadOpened.
func (c *Controller) SetThread(partner, partnerName string) {
	c.thread = Thread{Partner: partner, PartnerName: partnerName}
}

// Apply runs one navigation event. Scopes the new step does not need are
// released first, then missing ones are acquired; both passes walk scopes in
// the fixed order. Re-entering the thread step always rebinds the thread
// scope so a partner switch takes effect. If a bind fails the navigation
// still completes with that scope detached.
func (c *Controller) Apply(ctx context.Context, event Event) error {
	next, ok := transitions[c.step][event]
	if !ok {
		return &ErrInvalidTransition{From: c.step, Event: event}
	}

	if event == EventLoggedOut {
		c.releaseAll()
		c.thread = Thread{}
		c.step = next
		return nil
	}

	need := make(map[Scope]bool)
	for _, scope := range stepScopes[next] {
		need[scope] = true
	}

	// A thread re-entry drops the old binding even though the scope is
	// needed again.
	rebindThread := next == StepWaveThread && event == EventThreadOpened

	for _, scope := range scopeOrder {
		sub, held := c.subs[scope]
		if !held {
			continue
		}
		if need[scope] && !(scope == ScopeThread && rebindThread) {
			continue
		}
		sub.Cancel()
		delete(c.subs, scope)
		c.log.Debug(ctx, "scope released", "scope", scope)
	}

	for _, scope := range scopeOrder {
		if !need[scope] {
			continue
		}
		if _, held := c.subs[scope]; held {
			continue
		}
		sub, err := c.binder.Bind(ctx, scope, c.thread)
		if err != nil {
			c.log.Warn(ctx, "scope bind failed", "scope", scope, "error", err)
			continue
		}
		c.subs[scope] = sub
		c.log.Debug(ctx, "scope bound", "scope", scope)
	}

	c.step = next
	return nil
}

// Reset releases everything and returns to the login step. Used when the
// identity provider reports a sign-out from outside the navigation flow.
func (c *Controller) Reset() {
	c.releaseAll()
	c.thread = Thread{}
	c.step = StepLogin
}

func (c *Controller) releaseAll() {
	for _, scope := range scopeOrder {
		if sub, held := c.subs[scope]; held {
			sub.Cancel()
			delete(c.subs, scope)
		}
	}
}
