package cli

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heatwave/internal/config"
	"heatwave/internal/contacts"
	"heatwave/internal/identity/localidentity"
	"heatwave/internal/localstate"
	"heatwave/internal/logging"
	"heatwave/internal/messaging"
	"heatwave/internal/models"
	"heatwave/internal/session"
	"heatwave/internal/store/memstore"
	"heatwave/internal/view"
)

// newTestApp wires an App over the in-memory backends, with deepLink
// optionally set.
func newTestApp(t *testing.T, deepLink string) (*App, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	idp := localidentity.New(st, log, []byte("test-secret"), time.Hour)

	app := &App{
		config: &config.Config{},
		store:  st,
		idp:    idp,
		log:    log,
		reader: bufio.NewReader(strings.NewReader("")),
	}
	app.session = session.NewService(st, localstate.NewMemoryRepository(), idp, log, deepLink)
	app.contacts = contacts.NewManager(st, log)
	app.msg = messaging.NewSynchronizer(st, log)
	app.view = view.NewController(app, log)
	return app, st
}

// script replaces the input seams with canned answers.
func script(t *testing.T, answers []string, password string) {
	t.Helper()
	origText, origPass, origPrint := getSimpleText, getPassword, printlnFn
	t.Cleanup(func() {
		getSimpleText, getPassword, printlnFn = origText, origPass, origPrint
	})

	i := 0
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if i >= len(answers) {
			return "", io.EOF
		}
		answer := answers[i]
		i++
		return answer, nil
	}
	getPassword = func(io.Writer) ([]byte, error) {
		return []byte(password), nil
	}
	printlnFn = func(...any) (int, error) { return 0, nil }
}

func loginAs(t *testing.T, app *App, handle, displayName string) {
	t.Helper()
	ctx := context.Background()
	script(t, []string{handle, displayName, handle}, "pw")
	require.NoError(t, app.Register(ctx))
	require.NoError(t, app.Login(ctx))
	require.Equal(t, view.StepRoleChoice, app.view.Step())
}

func TestRegisterThenLogin(t *testing.T) {
	app, _ := newTestApp(t, "")
	loginAs(t, app, "ripley", "Ellen")

	assert.True(t, app.isLoggedIn())
	assert.Equal(t, "ripley", app.currentProfile().Handle)
	assert.Equal(t, "Ellen", app.currentProfile().DisplayName)
}

func TestLoginWrongPasswordStaysOut(t *testing.T) {
	app, _ := newTestApp(t, "")
	ctx := context.Background()

	script(t, []string{"ripley", "Ellen", "ripley"}, "pw")
	require.NoError(t, app.Register(ctx))

	script(t, []string{"ripley"}, "wrong")
	require.Error(t, app.Login(ctx))
	assert.False(t, app.isLoggedIn())
	assert.Equal(t, view.StepLogin, app.view.Step())
}

func TestHeatReceivesAnonymousMessage(t *testing.T) {
	app, st := newTestApp(t, "")
	loginAs(t, app, "ripley", "Ellen")
	ctx := context.Background()

	require.NoError(t, app.Heat(ctx))
	require.Equal(t, view.StepHeat, app.view.Step())

	// A visitor sends into my heat from elsewhere.
	other := messaging.NewSynchronizer(st, app.log)
	require.NoError(t, other.SendAnonymous(ctx, "ripley", "you up?"))

	app.mu.Lock()
	heat := app.heat
	app.mu.Unlock()
	require.Len(t, heat, 1)
	assert.Equal(t, models.AnonymousSenderName, heat[0].SenderDisplayName)
	assert.Equal(t, "you up?", heat[0].Text)
}

func TestPromoteThenWaveRoundTrip(t *testing.T) {
	app, st := newTestApp(t, "")
	loginAs(t, app, "ripley", "Ellen")
	ctx := context.Background()

	other := messaging.NewSynchronizer(st, app.log)
	require.NoError(t, other.SendDirect(ctx, models.UserProfile{Handle: "hicks", DisplayName: "Dwayne"}, "ripley", "Ellen", "public first contact"))

	require.NoError(t, app.Heat(ctx))
	require.NoError(t, app.Promote(ctx, "hicks"))
	require.NoError(t, app.Waves(ctx))
	require.Equal(t, view.StepWaveList, app.view.Step())

	app.mu.Lock()
	metas := app.recency
	app.mu.Unlock()
	require.Len(t, metas, 1)
	assert.Equal(t, "hicks", metas[0].Handle)
	assert.Equal(t, "Dwayne", metas[0].DisplayName)

	require.NoError(t, app.OpenWave(ctx, "hicks"))
	require.Equal(t, view.StepWaveThread, app.view.Step())

	// Replying lands in the thread; the reverse edge exists, so it is
	// personal.
	script(t, []string{"hello dwayne"}, "")
	require.NoError(t, app.Send(ctx))

	app.mu.Lock()
	thread := app.thread
	app.mu.Unlock()
	require.Len(t, thread, 1)
	assert.True(t, thread[0].IsPersonal)
	assert.Equal(t, "hello dwayne", thread[0].Text)
}

func TestBlockedSenderLeavesHeat(t *testing.T) {
	app, st := newTestApp(t, "")
	loginAs(t, app, "ripley", "Ellen")
	ctx := context.Background()

	other := messaging.NewSynchronizer(st, app.log)
	require.NoError(t, other.SendDirect(ctx, models.UserProfile{Handle: "burke", DisplayName: "Carter"}, "ripley", "Ellen", "trust me"))

	require.NoError(t, app.Heat(ctx))
	app.mu.Lock()
	before := len(app.heat)
	app.mu.Unlock()
	require.Equal(t, 1, before)

	require.NoError(t, app.Block(ctx, "burke"))

	// Another message re-fires the subscription; the snapshot no longer
	// carries the blocked sender.
	require.NoError(t, other.SendDirect(ctx, models.UserProfile{Handle: "burke", DisplayName: "Carter"}, "ripley", "Ellen", "still there?"))

	app.mu.Lock()
	after := len(app.heat)
	app.mu.Unlock()
	assert.Zero(t, after)
}

func TestPromotedContactLeavesHeat(t *testing.T) {
	app, st := newTestApp(t, "")
	loginAs(t, app, "ripley", "Ellen")
	ctx := context.Background()

	other := messaging.NewSynchronizer(st, app.log)
	require.NoError(t, other.SendDirect(ctx, models.UserProfile{Handle: "burke", DisplayName: "Carter"}, "ripley", "Ellen", "hey stranger"))

	require.NoError(t, app.Heat(ctx))
	app.mu.Lock()
	before := len(app.heat)
	app.mu.Unlock()
	require.Equal(t, 1, before)

	// Promotion writes contact edges, which re-fires the subscription; the
	// new contact's public history moves out of the feed.
	require.NoError(t, app.Promote(ctx, "burke"))

	app.mu.Lock()
	after := len(app.heat)
	app.mu.Unlock()
	assert.Zero(t, after)

	// Anonymous traffic is unaffected by the contact list.
	require.NoError(t, other.SendAnonymous(ctx, "ripley", "guess who"))
	app.mu.Lock()
	heat := app.heat
	app.mu.Unlock()
	require.Len(t, heat, 1)
	assert.Equal(t, models.AnonymousSenderName, heat[0].SenderDisplayName)
}

func TestDeepLinkJumpsIntoThread(t *testing.T) {
	app, _ := newTestApp(t, "hicks")
	ctx := context.Background()

	script(t, []string{"ripley", "Ellen", "ripley"}, "pw")
	require.NoError(t, app.Register(ctx))
	require.NoError(t, app.Login(ctx))

	assert.Equal(t, view.StepWaveThread, app.view.Step())
	assert.Equal(t, "hicks", app.view.Thread().Partner)
}

func TestLogoutReturnsToLogin(t *testing.T) {
	app, _ := newTestApp(t, "")
	loginAs(t, app, "ripley", "Ellen")
	ctx := context.Background()

	require.NoError(t, app.Heat(ctx))
	require.NoError(t, app.Logout(ctx))

	assert.False(t, app.isLoggedIn())
	assert.Equal(t, view.StepLogin, app.view.Step())

	// A fresh bootstrap stays unauthenticated.
	res, err := app.session.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Unauthenticated, res.State)
}

func TestRenameUpdatesPrompt(t *testing.T) {
	app, _ := newTestApp(t, "")
	loginAs(t, app, "ripley", "Ellen")
	ctx := context.Background()

	require.NoError(t, app.Settings(ctx))
	require.NoError(t, app.Profile(ctx))
	require.Equal(t, view.StepSettingsProfile, app.view.Step())

	script(t, []string{"ellen-r", "Lt. Ripley"}, "")
	require.NoError(t, app.Rename(ctx))

	assert.Equal(t, "ellen-r", app.currentProfile().Handle)
	assert.Equal(t, "Lt. Ripley", app.currentProfile().DisplayName)
	assert.Contains(t, app.prompt(), "ellen-r")
}
