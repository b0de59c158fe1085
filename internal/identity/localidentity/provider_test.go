package localidentity

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"heatwave/internal/common"
	"heatwave/internal/identity"
	"heatwave/internal/logging"
	"heatwave/internal/store/memstore"
)

func newProvider(t *testing.T) *Provider {
	t.Helper()
	log := logging.NewSlogLogger(slog.Default())
	return New(memstore.New(), log, []byte("test-secret"), time.Hour)
}

func TestSignUpThenSignIn(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	id, err := p.SignUp(ctx, "alice@example.com", []byte("pw"))
	require.NoError(t, err)
	require.NotEmpty(t, id.UID)
	require.NotEmpty(t, p.Token())

	require.NoError(t, p.SignOut(ctx))
	require.Empty(t, p.Token())

	id2, err := p.SignIn(ctx, "alice@example.com", []byte("pw"))
	require.NoError(t, err)
	require.Equal(t, id.UID, id2.UID)

	uid, err := p.VerifyToken(p.Token())
	require.NoError(t, err)
	require.Equal(t, id.UID, uid)
}

func TestSignIn_WrongPassword(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	_, err := p.SignUp(ctx, "alice@example.com", []byte("pw"))
	require.NoError(t, err)

	_, err = p.SignIn(ctx, "alice@example.com", []byte("nope"))
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestSignIn_UnknownEmail(t *testing.T) {
	p := newProvider(t)
	_, err := p.SignIn(context.Background(), "nobody@example.com", []byte("pw"))
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	_, err := p.SignUp(ctx, "alice@example.com", []byte("pw"))
	require.NoError(t, err)
	_, err = p.SignUp(ctx, "alice@example.com", []byte("other"))
	require.ErrorIs(t, err, common.ErrConflict)
}

func TestOnAuthStateChanged_ImmediateAndOnChange(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	var events []*identity.Identity
	sub := p.OnAuthStateChanged(func(id *identity.Identity) {
		events = append(events, id)
	})
	require.Len(t, events, 1)
	require.Nil(t, events[0], "initial state is signed out")

	_, err := p.SignUp(ctx, "alice@example.com", []byte("pw"))
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.NotNil(t, events[1])

	sub.Cancel()
	require.NoError(t, p.SignOut(ctx))
	require.Len(t, events, 2)
}
