// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func participantFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:     "experiment",
			Aliases:  []string{"e"},
			Usage:    "Experiment ID",
			Required: true,
		},
		&cli.IntFlag{
			Name:     "user",
			Aliases:  []string{"u"},
			Usage:    "Participant user ID",
			Required: true,
		},
	}
}

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize the export history database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write the example configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "path",
						Aliases: []string{"p"},
						Usage:   "Where to write the configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// pageCommand reads pages of configured collections
func pageCommand(r *Runner) *cli.Command {
	collection := func() cli.Flag {
		return &cli.StringFlag{
			Name:     "collection",
			Aliases:  []string{"c"},
			Usage:    "Configured collection name",
			Required: true,
		}
	}
	return &cli.Command{
		Name:  "page",
		Usage: "Read pages of a collection",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Fetch one page",
				Flags: []cli.Flag{
					collection(),
					&cli.IntFlag{
						Name:  "page",
						Usage: "Zero-based page index",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, csv, markdown or json",
						Value:   "text",
					},
				},
				Action: r.PageGet,
			},
			{
				Name:   "last",
				Usage:  "Print the collection's current last page index",
				Flags:  []cli.Flag{collection()},
				Action: r.PageLast,
			},
			{
				Name:  "dump",
				Usage: "Write every page of a collection to files",
				Flags: []cli.Flag{
					collection(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "File format: text, csv, markdown or json",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: {collection}_dump_{timestamp})",
					},
				},
				Action: r.PageDump,
			},
		},
	}
}

// searchCommand queries search suggestions and result pages
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search courses and experiments",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "category",
				Usage: "Fetch result pages of one category (courses or experiments) instead of suggestions",
			},
			&cli.IntFlag{
				Name:  "pages",
				Usage: "Number of result pages to load",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "exclude",
				Usage: "Leave out the entry with this ID",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
	}
}

// snapshotsCommand reads a participant's snapshots
func snapshotsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "snapshots",
		Usage: "Read a participant's saved snapshots",
		Commands: []*cli.Command{
			{
				Name:   "count",
				Usage:  "Print how many snapshots were saved",
				Flags:  participantFlags(),
				Action: r.SnapshotsCount,
			},
			{
				Name:  "show",
				Usage: "Show the snapshot at a position",
				Flags: append(participantFlags(),
					&cli.IntFlag{
						Name:    "position",
						Aliases: []string{"n"},
						Usage:   "1-based position in the sequence",
						Value:   1,
					},
				),
				Action: r.SnapshotsShow,
			},
		},
	}
}

// exportCommand downloads snapshot archives and lists the export history
func exportCommand(r *Runner) *cli.Command {
	output := &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output directory (default: export.output_dir)",
	}
	return &cli.Command{
		Name:  "export",
		Usage: "Export snapshots",
		Commands: []*cli.Command{
			{
				Name:  "range",
				Usage: "Export a range of snapshots, or one snapshot per step interval",
				Flags: append(participantFlags(),
					&cli.IntFlag{
						Name:  "start",
						Usage: "1-based first position",
					},
					&cli.IntFlag{
						Name:  "end",
						Usage: "1-based last position",
					},
					&cli.BoolFlag{
						Name:  "include",
						Usage: "Include the end position",
					},
					&cli.IntFlag{
						Name:  "step",
						Usage: "Interval in minutes, instead of a range",
					},
					output,
				),
				Action: r.ExportRange,
			},
			{
				Name:      "snapshots",
				Usage:     "Export single snapshots concurrently",
				ArgsUsage: "ID [ID...]",
				Flags: append(participantFlags(),
					output,
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent downloads (default: export.workers)",
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Export requests per second",
						Value: 5,
					},
				),
				Action: r.ExportSnapshots,
			},
			{
				Name:  "history",
				Usage: "List recorded exports",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "experiment",
						Usage: "Only exports of this experiment",
					},
					&cli.IntFlag{
						Name:  "user",
						Usage: "Only exports of this participant",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ExportHistory,
			},
		},
	}
}

// browseCommand launches the collection browser
func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "browse",
		Aliases: []string{"ui"},
		Usage:   "Browse the configured collections side by side",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "collection",
				Aliases: []string{"c"},
				Usage:   "Collections to show (default: all configured)",
			},
			&cli.StringFlag{
				Name:  "refresh",
				Usage: "Last page refresh policy: every, last or never (default: navigation.refresh)",
			},
		},
		Action: r.Browse,
	}
}

// viewerCommand launches the snapshot viewer
func viewerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "viewer",
		Usage: "Step through a participant's snapshots and export ranges",
		Flags: append(participantFlags(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Download directory (default: export.output_dir)",
			},
		),
		Action: r.Viewer,
	}
}

// serveCommand runs the in-memory development backend
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the in-memory development backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: devserver.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default: devserver.port)",
			},
			&cli.IntFlag{
				Name:  "rows",
				Usage: "Rows seeded per collection (default: devserver.rows)",
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "Rows per page (default: devserver.page_size)",
			},
		},
		Action: r.Serve,
	}
}
