package cli

import (
	"context"
	"os"
	"strings"

	"heatwave/internal/view"
)

// Heat opens the public inbox.
func (a *App) Heat(ctx context.Context) error {
	if err := a.view.Apply(ctx, view.EventHeatOpened); err != nil {
		printlnFn(err.Error())
		return err
	}
	return a.Show(ctx)
}

// Waves opens the Wave list: contacts plus per-partner activity.
func (a *App) Waves(ctx context.Context) error {
	if err := a.view.Apply(ctx, view.EventWaveListOpened); err != nil {
		printlnFn(err.Error())
		return err
	}
	return a.Show(ctx)
}

// OpenWave jumps into the personal thread with partner. With no argument
// the current thread (possibly empty) is reopened.
func (a *App) OpenWave(ctx context.Context, partner string) error {
	partner = strings.TrimSpace(partner)
	if partner == "" {
		partner = a.view.Thread().Partner
	}
	if err := a.openThread(ctx, partner); err != nil {
		return err
	}
	return a.Show(ctx)
}

func (a *App) openThread(ctx context.Context, partner string) error {
	a.view.SetThread(partner, a.partnerName(partner))
	if err := a.view.Apply(ctx, view.EventThreadOpened); err != nil {
		printlnFn(err.Error())
		return err
	}
	return nil
}

// Send writes a message into the open Wave thread. Whether it lands as
// personal or public is decided at send time by the recipient's own edge.
func (a *App) Send(ctx context.Context) error {
	if a.step() != view.StepWaveThread {
		printlnFn("Open a wave first.")
		return nil
	}
	thread := a.view.Thread()
	if thread.Partner == "" {
		printlnFn("No partner selected.")
		return nil
	}

	text, err := getSimpleText(a.reader, "Message", os.Stdout)
	if err != nil {
		return err
	}
	if err := a.msg.SendDirect(ctx, a.currentProfile(), thread.Partner, thread.PartnerName, text); err != nil {
		printlnFn(err.Error())
		return err
	}
	return nil
}

// SendAnon sends an anonymous message into someone's Heat. No sender
// identity is attached, not even for a signed-in user.
func (a *App) SendAnon(ctx context.Context, recipient string) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		var err error
		recipient, err = getSimpleText(a.reader, "Recipient handle", os.Stdout)
		if err != nil {
			return err
		}
	}

	text, err := getSimpleText(a.reader, "Message", os.Stdout)
	if err != nil {
		return err
	}
	if err := a.msg.SendAnonymous(ctx, recipient, text); err != nil {
		printlnFn(err.Error())
		return err
	}
	printlnFn("Sent.")
	return nil
}

// Promote links partner as a mutual contact. The cached display name comes
// from their latest Heat appearance when one exists.
func (a *App) Promote(ctx context.Context, partner string) error {
	if !a.isLoggedIn() {
		printlnFn("Not signed in.")
		return nil
	}
	partner = strings.TrimSpace(partner)
	if partner == "" {
		printlnFn("Usage: promote <handle>")
		return nil
	}

	name := partner
	a.mu.Lock()
	for _, msg := range a.heat {
		if msg.SenderID == partner {
			name = msg.SenderDisplayName
		}
	}
	a.mu.Unlock()

	a.contacts.LinkMutual(ctx, a.currentProfile(), partner, name)
	printlnFn("Linked with", partner)
	return nil
}

// Remove drops the mutual link with partner, both directions.
func (a *App) Remove(ctx context.Context, partner string) error {
	if !a.isLoggedIn() {
		printlnFn("Not signed in.")
		return nil
	}
	partner = strings.TrimSpace(partner)
	if partner == "" {
		printlnFn("Usage: remove <handle>")
		return nil
	}
	if err := a.contacts.UnlinkMutual(ctx, a.currentProfile().Handle, partner); err != nil {
		printlnFn(err.Error())
		return err
	}
	printlnFn("Removed", partner)
	return nil
}
