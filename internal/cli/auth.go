package cli

import (
	"context"
	"os"

	"heatwave/internal/common"
	"heatwave/internal/view"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for a handle and password and authenticates against the
// stored credential. On success the profile snapshot is persisted, the
// navigation moves past the login step, and a pending deep link opens its
// Wave thread.
func (a *App) Login(ctx context.Context) error {
	if a.step() != view.StepLogin {
		printlnFn("Already signed in.")
		return nil
	}

	handle, err := getSimpleText(a.reader, "Enter handle", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	profile, err := a.session.Login(ctx, handle, password)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	a.setProfile(profile)
	if err := a.view.Apply(ctx, view.EventLoggedIn); err != nil {
		return err
	}
	printlnFn("Success!")

	if partner := a.session.ConsumeDeepLink(); partner != "" {
		a.openThread(ctx, partner)
	}
	return nil
}

// SignIn authenticates against the identity provider by email. Navigation
// is driven by the auth-state watcher: an identity with a profile restores
// the session, one without moves to profile completion.
func (a *App) SignIn(ctx context.Context) error {
	if a.step() != view.StepLogin {
		printlnFn("Already signed in.")
		return nil
	}

	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.idp.SignIn(ctx, email, password); err != nil {
		printlnFn(err.Error())
		return err
	}
	return nil
}

// Register creates a new account. The new account is not signed in; the
// user returns to the login step.
func (a *App) Register(ctx context.Context) error {
	if a.step() != view.StepLogin {
		printlnFn("Already signed in.")
		return nil
	}
	if err := a.view.Apply(ctx, view.EventRegisterRequested); err != nil {
		return err
	}
	defer func() { _ = a.view.Apply(ctx, view.EventBack) }()

	handle, err := getSimpleText(a.reader, "Choose a handle", os.Stdout)
	if err != nil {
		return err
	}
	displayName, err := getSimpleText(a.reader, "Choose a display name", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.Register(ctx, handle, displayName, password); err != nil {
		printlnFn(err.Error())
		return err
	}
	printlnFn("Success! You can log in now.")
	return nil
}

// Recover resets a password when handle and email match.
func (a *App) Recover(ctx context.Context) error {
	if a.step() != view.StepLogin {
		printlnFn("Already signed in.")
		return nil
	}
	if err := a.view.Apply(ctx, view.EventRecoverRequested); err != nil {
		return err
	}
	defer func() { _ = a.view.Apply(ctx, view.EventBack) }()

	handle, err := getSimpleText(a.reader, "Enter handle", os.Stdout)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.RecoverPassword(ctx, handle, email, password); err != nil {
		printlnFn(err.Error())
		return err
	}
	printlnFn("Password updated. You can log in now.")
	return nil
}

// Complete finishes a first-time external sign-in by choosing a handle and
// display name for the new profile.
func (a *App) Complete(ctx context.Context) error {
	if a.step() != view.StepProfileCompletion {
		printlnFn("Nothing to complete.")
		return nil
	}

	pending := a.pendingIdentity()
	if pending.ExternalID == "" {
		printlnFn("No signed-in identity to complete.")
		return nil
	}

	handle, err := getSimpleText(a.reader, "Choose a handle", os.Stdout)
	if err != nil {
		return err
	}
	displayName, err := getSimpleText(a.reader, "Choose a display name", os.Stdout)
	if err != nil {
		return err
	}

	profile, err := a.session.CompleteExternalProfile(ctx, pending.ExternalID, pending.Email, handle, displayName, nil)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	a.setProfile(profile)
	if err := a.view.Apply(ctx, view.EventProfileCompleted); err != nil {
		return err
	}
	printlnFn("Welcome,", profile.DisplayName)
	return nil
}

// Logout ends the session: snapshot cleared, provider signed out, every
// live subscription released.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Not signed in.")
		return nil
	}

	if err := a.session.Logout(ctx); err != nil {
		printlnFn(err.Error())
		return err
	}
	a.clearProfile()
	if err := a.view.Apply(ctx, view.EventLoggedOut); err != nil {
		a.view.Reset()
	}
	printlnFn("Signed out.")
	return nil
}
