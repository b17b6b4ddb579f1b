// Command snapbooks runs the SnapBooks invoicing assistant: the Telegram
// webhook server, a terminal chat, and small admin commands over its data.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapbooks",
		Usage: "turn bill photos into GST invoices",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config.yaml",
				Sources: cli.EnvVars("SNAPBOOKS_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "trace, debug, info, warn or error",
				Sources: cli.EnvVars("SNAPBOOKS_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "text or json",
				Sources: cli.EnvVars("SNAPBOOKS_LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "model",
				Usage:   "model id, e.g. gemini-3-flash-preview or claude-sonnet-4",
				Sources: cli.EnvVars("SNAPBOOKS_MODEL"),
			},
			&cli.IntFlag{
				Name:    "max-calls",
				Usage:   "model calls allowed per message",
				Sources: cli.EnvVars("SNAPBOOKS_MAX_CALLS"),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "directory for the database and conversations",
				Sources: cli.EnvVars("SNAPBOOKS_DATA_DIR"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			chatCommand(),
			contactsCommand(),
			invoicesCommand(),
			usageCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the Telegram webhook and dashboard API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "address to listen on",
				Sources: cli.EnvVars("SNAPBOOKS_LISTEN"),
			},
			&cli.StringFlag{
				Name:    "telegram-token",
				Usage:   "Telegram bot token",
				Sources: cli.EnvVars("TELEGRAM_BOT_TOKEN"),
			},
		},
		Action: runServe,
	}
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "talk to the assistant in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "conversation",
				Usage: "conversation id to resume or create",
				Value: "cli",
			},
		},
		Action: runChat,
	}
}

func contactsCommand() *cli.Command {
	return &cli.Command{
		Name:  "contacts",
		Usage: "manage the contact book",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "add a contact",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "gstin"},
					&cli.StringFlag{Name: "address"},
					&cli.StringFlag{Name: "city"},
					&cli.StringFlag{Name: "state"},
					&cli.StringFlag{Name: "phone"},
					&cli.StringFlag{Name: "email"},
				},
				Action: runContactsAdd,
			},
			{
				Name:      "list",
				Usage:     "list contacts, optionally matching a name",
				ArgsUsage: "[query]",
				Action:    runContactsList,
			},
		},
	}
}

func invoicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "invoices",
		Usage: "list archived invoices",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20},
			&cli.StringFlag{Name: "user", Usage: "only invoices for this user id"},
		},
		Action: runInvoices,
	}
}

func usageCommand() *cli.Command {
	return &cli.Command{
		Name:  "usage",
		Usage: "show token usage and cost",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "conversation",
				Usage: "limit to one conversation; empty means all",
			},
		},
		Action: runUsage,
	}
}
