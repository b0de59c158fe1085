package view

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heatwave/internal/logging"
	"heatwave/internal/store"
)

type recordedSub struct {
	scope    Scope
	thread   Thread
	canceled bool
}

func (s *recordedSub) Cancel() { s.canceled = true }

type recordingBinder struct {
	bound []*recordedSub
	fail  map[Scope]bool
}

func (b *recordingBinder) Bind(ctx context.Context, scope Scope, thread Thread) (store.Subscription, error) {
	if b.fail[scope] {
		return nil, errors.New("bind refused")
	}
	sub := &recordedSub{scope: scope, thread: thread}
	b.bound = append(b.bound, sub)
	return sub, nil
}

func (b *recordingBinder) live() []Scope {
	var out []Scope
	for _, sub := range b.bound {
		if !sub.canceled {
			out = append(out, sub.scope)
		}
	}
	return out
}

func newTestController(t *testing.T) (*Controller, *recordingBinder) {
	t.Helper()
	b := &recordingBinder{fail: make(map[Scope]bool)}
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewController(b, log), b
}

func TestStartsAtLoginWithNoScopes(t *testing.T) {
	c, b := newTestController(t)
	assert.Equal(t, StepLogin, c.Step())
	assert.Empty(t, b.live())
}

func TestLoginBindsRoleChoiceScopes(t *testing.T) {
	c, b := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.Apply(ctx, EventLoggedIn))
	assert.Equal(t, StepRoleChoice, c.Step())
	assert.Equal(t, []Scope{ScopeContacts}, b.live())
}

func TestHeatSwapsScopes(t *testing.T) {
	c, b := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.Apply(ctx, EventLoggedIn))
	require.NoError(t, c.Apply(ctx, EventHeatOpened))

	assert.Equal(t, StepHeat, c.Step())
	assert.Equal(t, []Scope{ScopeHeat}, b.live())
}

func TestWaveListKeepsContactsAcrossTransition(t *testing.T) {
	c, b := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.Apply(ctx, EventLoggedIn))
	require.NoError(t, c.Apply(ctx, EventWaveListOpened))

	assert.ElementsMatch(t, []Scope{ScopeContacts, ScopeRecency}, b.live())
	// The contacts scope survived the transition instead of rebinding.
	assert.Len(t, b.bound, 2)
}

func TestThreadBindsWithPartner(t *testing.T) {
	c, b := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.Apply(ctx, EventLoggedIn))
	require.NoError(t, c.Apply(ctx, EventWaveListOpened))
	c.SetThread("hicks", "Dwayne")
	require.NoError(t, c.Apply(ctx, EventThreadOpened))

	assert.Equal(t, StepWaveThread, c.Step())
	live := b.live()
	require.Equal(t, []Scope{ScopeThread}, live)

	last := b.bound[len(b.bound)-1]
	assert.Equal(t, Thread{Partner: "hicks", PartnerName: "Dwayne"}, last.thread)
}

func TestThreadSwitchRebinds(t *testing.T) {
	c, b := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.Apply(ctx, EventLoggedIn))
	require.NoError(t, c.Apply(ctx, EventWaveListOpened))
	c.SetThread("hicks", "Dwayne")
	require.NoError(t, c.Apply(ctx, EventThreadOpened))

	first := b.bound[len(b.bound)-1]

	c.SetThread("bishop", "Bishop")
	require.NoError(t, c.Apply(ctx, EventThreadOpened))

	assert.True(t, first.canceled)
	last := b.bound[len(b.bound)-1]
	assert.Equal(t, "bishop", last.thread.Partner)
	assert.Equal(t, []Scope{ScopeThread}, b.live())
}

func TestEmptyThreadStillBinds(t *testing.T) {
	c, b := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.Apply(ctx, EventLoggedIn))
	require.NoError(t, c.Apply(ctx, EventThreadOpened))

	// No partner selected: the scope binds to an empty thread rather
	// than failing.
	last := b.bound[len(b.bound)-1]
	assert.Equal(t, Thread{}, last.thread)
}

func TestLogoutReleasesEverything(t *testing.T) {
	c, b := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.Apply(ctx, EventLoggedIn))
	require.NoError(t, c.Apply(ctx, EventWaveListOpened))
	c.SetThread("hicks", "Dwayne")
	require.NoError(t, c.Apply(ctx, EventThreadOpened))
	require.NoError(t, c.Apply(ctx, EventLoggedOut))

	assert.Equal(t, StepLogin, c.Step())
	assert.Empty(t, b.live())
	assert.Equal(t, Thread{}, c.Thread())
}

func TestResetReleasesEverything(t *testing.T) {
	c, b := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.Apply(ctx, EventLoggedIn))
	require.NoError(t, c.Apply(ctx, EventHeatOpened))

	c.Reset()
	assert.Equal(t, StepLogin, c.Step())
	assert.Empty(t, b.live())
}

func TestInvalidTransition(t *testing.T) {
	c, _ := newTestController(t)
	err := c.Apply(context.Background(), EventHeatOpened)

	var invalid *ErrInvalidTransition
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StepLogin, invalid.From)
	assert.Equal(t, StepLogin, c.Step())
}

func TestBindFailureLeavesScopeDetached(t *testing.T) {
	c, b := newTestController(t)
	b.fail[ScopeRecency] = true
	ctx := context.Background()

	require.NoError(t, c.Apply(ctx, EventLoggedIn))
	require.NoError(t, c.Apply(ctx, EventWaveListOpened))

	// Navigation completed; only the failed scope is missing.
	assert.Equal(t, StepWaveList, c.Step())
	assert.Equal(t, []Scope{ScopeContacts}, b.live())
}

func TestSettingsBlocklistScopes(t *testing.T) {
	c, b := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.Apply(ctx, EventLoggedIn))
	require.NoError(t, c.Apply(ctx, EventSettingsOpened))
	assert.Empty(t, b.live())

	require.NoError(t, c.Apply(ctx, EventBlocklistOpened))
	assert.Equal(t, []Scope{ScopeBlocked}, b.live())

	require.NoError(t, c.Apply(ctx, EventBack))
	assert.Equal(t, StepSettingsMenu, c.Step())
	assert.Empty(t, b.live())
}

func TestRegisterAndRecoveryFlows(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.Apply(ctx, EventRegisterRequested))
	assert.Equal(t, StepRegister, c.Step())
	require.NoError(t, c.Apply(ctx, EventBack))

	require.NoError(t, c.Apply(ctx, EventRecoverRequested))
	assert.Equal(t, StepPasswordRecovery, c.Step())
	require.NoError(t, c.Apply(ctx, EventBack))
	assert.Equal(t, StepLogin, c.Step())
}

func TestProfileCompletionFlow(t *testing.T) {
	c, b := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.Apply(ctx, EventProfileIncomplete))
	assert.Equal(t, StepProfileCompletion, c.Step())
	assert.Empty(t, b.live())

	require.NoError(t, c.Apply(ctx, EventProfileCompleted))
	assert.Equal(t, StepRoleChoice, c.Step())
	assert.Equal(t, []Scope{ScopeContacts}, b.live())
}
