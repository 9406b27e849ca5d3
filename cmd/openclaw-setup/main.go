// Package main is the entry point for the openclaw-setup CLI.
//
// openclaw-setup drives the setup API of an OpenClaw gateway: it walks the
// operator through provider, channel and network choices, submits the
// onboarding run and approves the devices that pair afterwards.
//
// For detailed usage information, run:
//
//	openclaw-setup --help
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"openclaw-setup/cmd/openclaw-setup/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := commands.Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
