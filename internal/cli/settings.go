package cli

import (
	"context"
	"os"
	"strings"

	"heatwave/internal/view"
)

// Settings opens the settings menu.
func (a *App) Settings(ctx context.Context) error {
	if err := a.view.Apply(ctx, view.EventSettingsOpened); err != nil {
		printlnFn(err.Error())
		return err
	}
	return nil
}

// Profile opens the profile settings screen.
func (a *App) Profile(ctx context.Context) error {
	if err := a.view.Apply(ctx, view.EventProfileSettingsOpened); err != nil {
		printlnFn(err.Error())
		return err
	}
	return a.Show(ctx)
}

// Blocklist opens the block list screen.
func (a *App) Blocklist(ctx context.Context) error {
	if err := a.view.Apply(ctx, view.EventBlocklistOpened); err != nil {
		printlnFn(err.Error())
		return err
	}
	return a.Show(ctx)
}

// Back returns to the previous screen.
func (a *App) Back(ctx context.Context) error {
	if err := a.view.Apply(ctx, view.EventBack); err != nil {
		printlnFn(err.Error())
		return err
	}
	return nil
}

// Rename changes my handle and display name and rewrites the contact edges
// referencing them, then refreshes the local snapshot.
func (a *App) Rename(ctx context.Context) error {
	if a.step() != view.StepSettingsProfile {
		printlnFn("Open profile settings first.")
		return nil
	}

	newHandle, err := getSimpleText(a.reader, "New handle", os.Stdout)
	if err != nil {
		return err
	}
	newDisplayName, err := getSimpleText(a.reader, "New display name", os.Stdout)
	if err != nil {
		return err
	}

	updated, err := a.contacts.RenameSelf(ctx, a.currentProfile(), newHandle, newDisplayName)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	a.setProfile(updated)
	if err := a.session.SaveSnapshot(ctx, updated); err != nil {
		a.log.Warn(ctx, "snapshot write failed", "error", err)
	}
	printlnFn("You are now", updated.Handle)
	return nil
}

// Block hides partner from my Heat and severs the mutual link.
func (a *App) Block(ctx context.Context, partner string) error {
	if !a.isLoggedIn() {
		printlnFn("Not signed in.")
		return nil
	}
	partner = strings.TrimSpace(partner)
	if partner == "" {
		printlnFn("Usage: block <handle>")
		return nil
	}
	if err := a.contacts.Block(ctx, a.currentProfile(), partner, a.partnerName(partner)); err != nil {
		printlnFn(err.Error())
		return err
	}
	printlnFn("Blocked", partner)
	return nil
}

// Unblock lifts a block. A former contact comes back one-sided only.
func (a *App) Unblock(ctx context.Context, partner string) error {
	if !a.isLoggedIn() {
		printlnFn("Not signed in.")
		return nil
	}
	partner = strings.TrimSpace(partner)
	if partner == "" {
		printlnFn("Usage: unblock <handle>")
		return nil
	}
	if err := a.contacts.Unblock(ctx, a.currentProfile().Handle, partner); err != nil {
		printlnFn(err.Error())
		return err
	}
	printlnFn("Unblocked", partner)
	return nil
}
