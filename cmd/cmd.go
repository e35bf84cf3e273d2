// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// playCommand starts an injection session
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Start playback from a queue file and inject each next track just before the current one ends",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "queue",
				Aliases:  []string{"q"},
				Usage:    "Queue file (TOML [[tracks]] or JSON list of {title, artist})",
				Required: true,
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Reload the queue file into the running session when it changes",
			},
			&cli.FloatFlag{
				Name:  "threshold",
				Usage: "Seconds before the end of a track at which the next one is queued",
			},
			&cli.DurationFlag{
				Name:  "max-duration",
				Usage: "Stop the session after this long (e.g. 2h)",
			},
			&cli.StringFlag{
				Name:  "failure-policy",
				Usage: "What to do with a track that could not be queued: retry or skip",
			},
			&cli.StringFlag{
				Name:  "status-addr",
				Usage: "Serve session status as JSON on this address (e.g. 127.0.0.1:8765)",
			},
			&cli.BoolFlag{
				Name:  "no-journal",
				Usage: "Do not write a session journal",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Skip the local resolution cache",
			},
		},
		Action: r.Play,
	}
}

// resolveCommand resolves a queue file without playing it
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve a queue file to Spotify track URIs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "queue",
				Aliases:  []string{"q"},
				Usage:    "Queue file to resolve",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json or csv",
				Value:   "text",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Skip the local resolution cache",
			},
		},
		Action: r.Resolve,
	}
}

// statusCommand shows the remote player state
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show what is playing on the active device",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Status,
	}
}

// journalCommand reads session journals
func journalCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "journal",
		Usage: "Inspect session journals",
		Commands: []*cli.Command{
			{
				Name:  "tail",
				Usage: "Print a session journal",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "Journal file to read",
					},
					&cli.BoolFlag{
						Name:  "latest",
						Usage: "Read the newest journal in the configured directory",
					},
					&cli.BoolFlag{
						Name:    "follow",
						Aliases: []string{"f"},
						Usage:   "Keep printing records as they are appended",
					},
					&cli.BoolFlag{
						Name:  "cycles",
						Usage: "Only print cycle records",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print parsed records as JSON",
					},
				},
				Action: r.JournalTail,
			},
		},
	}
}

// cacheCommand manages the resolution cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the local title/artist resolution cache",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached resolutions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Only show this artist",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of rows",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.CacheList,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached resolution",
				Action: r.CacheClear,
			},
		},
	}
}

// sessionsCommand shows session history
func sessionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Session history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List past sessions, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status: running, finished or failed",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of sessions",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SessionsList,
			},
		},
	}
}

// authCommand runs the Spotify OAuth2 flow
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize playback control with Spotify using OAuth2",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
		},
		Action: r.Auth,
	}
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config file",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the latest migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// rootFlags are shared by every command.
func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
			Sources: cli.EnvVars("JITDJ_CONFIG"),
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}
