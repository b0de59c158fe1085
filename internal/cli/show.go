package cli

import (
	"context"
	"fmt"

	"heatwave/internal/view"
)

// Show renders the data behind the current screen from the latest
// subscription snapshot.
func (a *App) Show(ctx context.Context) error {
	switch a.step() {
	case view.StepHeat:
		a.showHeat()
	case view.StepWaveList:
		a.showWaves()
	case view.StepWaveThread:
		a.showThread()
	case view.StepSettingsProfile:
		a.showProfile()
	case view.StepSettingsBlocklist:
		a.showBlocklist()
	default:
		printlnFn("Nothing to show here.")
	}
	return nil
}

func (a *App) showHeat() {
	a.mu.Lock()
	msgs := a.heat
	a.mu.Unlock()

	if len(msgs) == 0 {
		printlnFn("Your heat is empty.")
		return
	}
	for _, msg := range msgs {
		printlnFn(fmt.Sprintf("[%s] %s: %s", msg.CreatedAt.Format("2006-01-02 15:04"), msg.SenderDisplayName, msg.Text))
	}
}

func (a *App) showWaves() {
	a.mu.Lock()
	metas := a.recency
	a.mu.Unlock()

	if len(metas) == 0 {
		printlnFn("No contacts yet. Promote someone from your heat.")
		return
	}
	for _, meta := range metas {
		line := fmt.Sprintf("%s (%s)", meta.DisplayName, meta.Handle)
		if meta.Unread > 0 {
			line = fmt.Sprintf("%s [%d unread]", line, meta.Unread)
		}
		if !meta.LastActivity.IsZero() {
			line = fmt.Sprintf("%s last %s", line, meta.LastActivity.Format("2006-01-02 15:04"))
		}
		printlnFn(line)
	}
}

func (a *App) showThread() {
	thread := a.view.Thread()
	if thread.Partner == "" {
		printlnFn("No partner selected. Use: wave <handle>")
		return
	}

	a.mu.Lock()
	msgs := a.thread
	me := a.profile.Handle
	a.mu.Unlock()

	printlnFn("Wave with", thread.PartnerName)
	if len(msgs) == 0 {
		printlnFn("(no messages yet)")
		return
	}
	for _, msg := range msgs {
		who := msg.SenderDisplayName
		if msg.SenderID == me {
			who = "you"
		}
		printlnFn(fmt.Sprintf("[%s] %s: %s", msg.CreatedAt.Format("15:04"), who, msg.Text))
	}
}

func (a *App) showProfile() {
	p := a.currentProfile()
	printlnFn("Handle:      ", p.Handle)
	printlnFn("Display name:", p.DisplayName)
	if p.Email != "" {
		printlnFn("Email:       ", p.Email)
	}
}

func (a *App) showBlocklist() {
	a.mu.Lock()
	edges := a.blocked
	a.mu.Unlock()

	if len(edges) == 0 {
		printlnFn("Nobody is blocked.")
		return
	}
	for _, edge := range edges {
		line := fmt.Sprintf("%s (%s)", edge.DisplayName(), edge.BlockedID)
		if edge.WasContact {
			line += " former contact"
		}
		printlnFn(line)
	}
}
