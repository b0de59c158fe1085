package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"heatwave/internal/view"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	step() view.Step
	Login(ctx context.Context) error
	SignIn(ctx context.Context) error
	Register(ctx context.Context) error
	Recover(ctx context.Context) error
	Complete(ctx context.Context) error
	Heat(ctx context.Context) error
	Waves(ctx context.Context) error
	OpenWave(ctx context.Context, partner string) error
	Send(ctx context.Context) error
	SendAnon(ctx context.Context, recipient string) error
	Promote(ctx context.Context, partner string) error
	Remove(ctx context.Context, partner string) error
	Block(ctx context.Context, partner string) error
	Unblock(ctx context.Context, partner string) error
	Settings(ctx context.Context) error
	Profile(ctx context.Context) error
	Blocklist(ctx context.Context) error
	Rename(ctx context.Context) error
	Show(ctx context.Context) error
	Back(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts the read–eval–print loop. It reads a line from the
// scanner, parses the first token as the command, and dispatches to methods
// on 'a'. Which commands make sense depends on the current step; handlers
// reject out-of-place ones. The loop exits on scanner EOF or when the user
// types "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("hw %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		arg := ""
		if len(args) > 0 {
			arg = args[0]
		}

		switch cmd {
		case "help":
			printHelp(a.step())

		case "login":
			_ = a.Login(ctx)

		case "signin":
			_ = a.SignIn(ctx)

		case "register":
			_ = a.Register(ctx)

		case "recover":
			_ = a.Recover(ctx)

		case "complete":
			_ = a.Complete(ctx)

		case "heat":
			_ = a.Heat(ctx)

		case "waves":
			_ = a.Waves(ctx)

		case "wave", "open":
			_ = a.OpenWave(ctx, arg)

		case "send":
			_ = a.Send(ctx)

		case "anon":
			_ = a.SendAnon(ctx, arg)

		case "promote":
			_ = a.Promote(ctx, arg)

		case "remove":
			_ = a.Remove(ctx, arg)

		case "block":
			_ = a.Block(ctx, arg)

		case "unblock":
			_ = a.Unblock(ctx, arg)

		case "settings":
			_ = a.Settings(ctx)

		case "profile":
			_ = a.Profile(ctx)

		case "blocklist":
			_ = a.Blocklist(ctx)

		case "rename":
			_ = a.Rename(ctx)

		case "ls", "show":
			_ = a.Show(ctx)

		case "back":
			_ = a.Back(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func printHelp(step view.Step) {
	switch step {
	case view.StepLogin:
		printlnFn("Available commands: login, signin, register, recover, exit")
	case view.StepRegister, view.StepPasswordRecovery:
		printlnFn("Available commands: back, exit")
	case view.StepProfileCompletion:
		printlnFn("Available commands: complete, logout, exit")
	case view.StepRoleChoice:
		printlnFn("Available commands: heat, waves, settings, anon <handle>, logout, exit")
	case view.StepHeat:
		printlnFn("Available commands: show, promote <handle>, anon <handle>, waves, settings, back, logout, exit")
	case view.StepWaveList:
		printlnFn("Available commands: show, wave <handle>, remove <handle>, heat, settings, back, logout, exit")
	case view.StepWaveThread:
		printlnFn("Available commands: show, send, wave <handle>, back, logout, exit")
	case view.StepSettingsMenu:
		printlnFn("Available commands: profile, blocklist, back, logout, exit")
	case view.StepSettingsProfile:
		printlnFn("Available commands: show, rename, back, logout, exit")
	case view.StepSettingsBlocklist:
		printlnFn("Available commands: show, block <handle>, unblock <handle>, back, logout, exit")
	default:
		printlnFn("Available commands: help, exit")
	}
}
