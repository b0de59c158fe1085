// Package session owns "who is the current user": restoring a persisted
// profile snapshot, observing the external identity provider, the manual
// register/login/recovery flows, and the one-shot deep-link jump into a
// Wave thread.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"heatwave/internal/common"
	"heatwave/internal/cryptox"
	"heatwave/internal/identity"
	"heatwave/internal/localstate"
	"heatwave/internal/logging"
	"heatwave/internal/models"
	"heatwave/internal/store"
)

// snapshotKey is where the profile snapshot lives in the local state store.
const snapshotKey = "profile"

// State classifies the bootstrap outcome.
type State int

const (
	// Unauthenticated: no snapshot and no signed-in external identity.
	Unauthenticated State = iota
	// Restored: a canonical profile is available.
	Restored
	// PendingExternalCompletion: an external identity is signed in but has
	// no profile yet; handle and display name are still needed.
	PendingExternalCompletion
)

// Result is the outcome of bootstrap or of an identity-state change.
type Result struct {
	State   State
	Profile models.UserProfile

	// Set when State is PendingExternalCompletion.
	ExternalID string
	Email      string

	// Non-empty when the session should jump straight into the Wave
	// thread for this partner. Delivered at most once per process.
	DeepLinkPartner string
}

// Service is the identity and session bootstrapper.
type Service struct {
	store store.Store
	state localstate.Repository
	idp   identity.Provider
	log   logging.Logger

	deepLink         string
	deepLinkConsumed bool
}

func NewService(st store.Store, state localstate.Repository, idp identity.Provider, log logging.Logger, deepLink string) *Service {
	return &Service{
		store:    st,
		state:    state,
		idp:      idp,
		log:      log.With("module", "session"),
		deepLink: strings.TrimSpace(deepLink),
	}
}

type snapshot struct {
	ExternalID  string `json:"externalId,omitempty"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// Bootstrap resolves the session start state. A present snapshot is trusted
// without revalidation against the store; otherwise the caller should attach
// WatchIdentity and wait for the provider.
func (s *Service) Bootstrap(ctx context.Context) (Result, error) {
	raw, err := s.state.Get(ctx, snapshotKey)
	if err != nil {
		return Result{}, fmt.Errorf("read profile snapshot: %w", err)
	}
	if raw == nil {
		return Result{State: Unauthenticated}, nil
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A corrupt snapshot is treated as absent.
		s.log.Warn(ctx, "discarding unreadable profile snapshot", "error", err)
		_ = s.state.Delete(ctx, snapshotKey)
		return Result{State: Unauthenticated}, nil
	}

	return Result{
		State: Restored,
		Profile: models.UserProfile{
			ExternalID:  snap.ExternalID,
			Handle:      snap.Handle,
			DisplayName: snap.DisplayName,
			Email:       snap.Email,
		},
		DeepLinkPartner: s.ConsumeDeepLink(),
	}, nil
}

// WatchIdentity subscribes to the identity provider and translates each
// auth-state change into a Result. Store failures during profile lookup are
// logged and skipped; the next state change retries naturally.
func (s *Service) WatchIdentity(ctx context.Context, fn func(Result)) identity.Subscription {
	return s.idp.OnAuthStateChanged(func(id *identity.Identity) {
		if id == nil {
			fn(Result{State: Unauthenticated})
			return
		}

		docs, err := s.store.GetOnce(ctx, store.Query{
			Collection: models.CollectionUsers,
			Filters:    []store.Filter{store.Where("externalId", id.UID)},
		})
		if err != nil {
			s.log.Warn(ctx, "profile lookup failed", "uid", id.UID, "error", err)
			return
		}

		if len(docs) == 0 {
			fn(Result{State: PendingExternalCompletion, ExternalID: id.UID, Email: id.Email})
			return
		}

		profile, err := models.ProfileFromDoc(docs[0])
		if err != nil {
			s.log.Warn(ctx, "malformed profile document", "uid", id.UID, "error", err)
			return
		}
		if err := s.SaveSnapshot(ctx, profile); err != nil {
			s.log.Warn(ctx, "snapshot write failed", "error", err)
		}
		fn(Result{State: Restored, Profile: profile, DeepLinkPartner: s.ConsumeDeepLink()})
	})
}

// ConsumeDeepLink returns the deep-linked partner handle the first time it
// is called, and "" on every call after that. Navigating away and back must
// not re-trigger the jump.
func (s *Service) ConsumeDeepLink() string {
	if s.deepLinkConsumed || s.deepLink == "" {
		return ""
	}
	s.deepLinkConsumed = true
	return s.deepLink
}

func (s *Service) handleTaken(ctx context.Context, handle string) (bool, error) {
	docs, err := s.store.GetOnce(ctx, store.Query{
		Collection: models.CollectionUsers,
		Filters:    []store.Filter{store.Where("handle", handle)},
	})
	if err != nil {
		return false, fmt.Errorf("handle lookup: %w", err)
	}
	return len(docs) > 0, nil
}

// Register creates a local-credential profile. The uniqueness check is
// read-before-write: two racing registrations can both pass it. The new
// account is not signed in; the caller returns to the login step.
func (s *Service) Register(ctx context.Context, handle, displayName string, password []byte) error {
	handle = strings.TrimSpace(handle)
	displayName = strings.TrimSpace(displayName)
	if handle == "" || displayName == "" || len(password) == 0 {
		return common.ErrValidation
	}

	taken, err := s.handleTaken(ctx, handle)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", common.ErrConflict, handle)
	}

	profile := models.UserProfile{
		Handle:           handle,
		DisplayName:      displayName,
		CredentialSecret: cryptox.HashCredential(password),
	}
	if _, err := s.store.Insert(ctx, models.CollectionUsers, profile.Fields()); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	s.log.Info(ctx, "profile registered", "handle", handle)
	return nil
}

// Login authenticates a handle against its stored credential and persists
// the snapshot. ErrNotFound means the handle does not exist;
// ErrUnauthorized means the credential did not match.
func (s *Service) Login(ctx context.Context, handle string, password []byte) (models.UserProfile, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" || len(password) == 0 {
		return models.UserProfile{}, common.ErrValidation
	}

	docs, err := s.store.GetOnce(ctx, store.Query{
		Collection: models.CollectionUsers,
		Filters:    []store.Filter{store.Where("handle", handle)},
	})
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("profile lookup: %w", err)
	}
	if len(docs) == 0 {
		return models.UserProfile{}, fmt.Errorf("%w: %s", common.ErrNotFound, handle)
	}

	profile, err := models.ProfileFromDoc(docs[0])
	if err != nil {
		return models.UserProfile{}, err
	}
	if !cryptox.VerifyCredential(profile.CredentialSecret, password) {
		return models.UserProfile{}, common.ErrUnauthorized
	}

	if err := s.SaveSnapshot(ctx, profile); err != nil {
		s.log.Warn(ctx, "snapshot write failed", "error", err)
	}
	return profile, nil
}

// CompleteExternalProfile finishes a first-time external login by creating
// the profile record bound to the external UID. Password is optional; when
// present it enables manual login later.
func (s *Service) CompleteExternalProfile(ctx context.Context, externalID, email, handle, displayName string, password []byte) (models.UserProfile, error) {
	handle = strings.TrimSpace(handle)
	displayName = strings.TrimSpace(displayName)
	if externalID == "" || handle == "" || displayName == "" {
		return models.UserProfile{}, common.ErrValidation
	}

	taken, err := s.handleTaken(ctx, handle)
	if err != nil {
		return models.UserProfile{}, err
	}
	if taken {
		return models.UserProfile{}, fmt.Errorf("%w: %s", common.ErrConflict, handle)
	}

	profile := models.UserProfile{
		ExternalID:  externalID,
		Handle:      handle,
		DisplayName: displayName,
		Email:       email,
	}
	if len(password) > 0 {
		profile.CredentialSecret = cryptox.HashCredential(password)
	}
	if _, err := s.store.Insert(ctx, models.CollectionUsers, profile.Fields()); err != nil {
		return models.UserProfile{}, fmt.Errorf("create profile: %w", err)
	}

	if err := s.SaveSnapshot(ctx, profile); err != nil {
		s.log.Warn(ctx, "snapshot write failed", "error", err)
	}
	s.log.Info(ctx, "external profile completed", "handle", handle)
	return profile, nil
}

// RecoverPassword resets the credential when handle and email both match an
// existing profile.
func (s *Service) RecoverPassword(ctx context.Context, handle, email string, newPassword []byte) error {
	handle = strings.TrimSpace(handle)
	email = strings.TrimSpace(email)
	if handle == "" || email == "" || len(newPassword) == 0 {
		return common.ErrValidation
	}

	docs, err := s.store.GetOnce(ctx, store.Query{
		Collection: models.CollectionUsers,
		Filters:    []store.Filter{store.Where("handle", handle)},
	})
	if err != nil {
		return fmt.Errorf("profile lookup: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: %s", common.ErrNotFound, handle)
	}

	profile, err := models.ProfileFromDoc(docs[0])
	if err != nil {
		return err
	}
	if profile.Email == "" || profile.Email != email {
		return fmt.Errorf("%w: email does not match", common.ErrNotFound)
	}

	err = s.store.Update(ctx, docs[0].Ref, map[string]any{
		"credential": cryptox.HashCredential(newPassword),
	})
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	s.log.Info(ctx, "credential reset", "handle", handle)
	return nil
}

// SaveSnapshot persists the local profile snapshot.
func (s *Service) SaveSnapshot(ctx context.Context, profile models.UserProfile) error {
	raw, err := json.Marshal(snapshot{
		ExternalID:  profile.ExternalID,
		Handle:      profile.Handle,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
	})
	if err != nil {
		return err
	}
	return s.state.Set(ctx, snapshotKey, raw)
}

// Logout signs out of the identity provider (failure swallowed, matching
// the original behavior) and clears the snapshot. There is no server-side
// session to invalidate.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.idp.SignOut(ctx); err != nil {
		s.log.Warn(ctx, "identity sign-out failed", "error", err)
	}
	if err := s.state.Delete(ctx, snapshotKey); err != nil {
		return fmt.Errorf("clear profile snapshot: %w", err)
	}
	s.log.Info(ctx, "logged out")
	return nil
}
