// Command sgmcp serves structural code search, replace, and rule evaluation over the
// Model Context Protocol, or runs the same operations one-shot from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/sgmcp/internal/config"
	"github.com/standardbeagle/sgmcp/internal/logging"
	"github.com/standardbeagle/sgmcp/internal/mcpserver"
	"github.com/standardbeagle/sgmcp/internal/rulestore"
	"github.com/standardbeagle/sgmcp/internal/version"
)

func main() {
	app := &cli.App{
		Name:    "sgmcp",
		Usage:   "Structural code search, replace, and rule evaluation for AI assistants",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "root-dir",
				Usage: "Project root directory to confine file operations to (repeatable)",
			},
			&cli.Int64Flag{
				Name:  "max-file-size",
				Usage: "Per-file size ceiling in bytes",
				Value: 52428800,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to an alternate sgconfig.yml rule manifest",
			},
			&cli.StringSliceFlag{
				Name:  "rule-dir",
				Usage: "Rule directory to load in addition to any sgconfig.yml ruleDirs (repeatable)",
			},
		},
		Commands: []*cli.Command{
			serveCommand,
			searchCommand,
			replaceCommand,
			rulesCommand,
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() == 0 {
				return serveCommand.Action(c)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "sgmcp: %v\n", err)
		os.Exit(1)
	}
}

func roots(c *cli.Context) []string {
	r := c.StringSlice("root-dir")
	if len(r) == 0 {
		wd, err := os.Getwd()
		if err == nil {
			return []string{wd}
		}
		return []string{"."}
	}
	return r
}

// buildServer loads config and the rule store and wires them into an mcpserver.Server,
// shared by serve and the one-shot CLI subcommands. In MCP mode, when the loaded config
// enables it, it also starts a background fsnotify watch over the rule directories; the
// returned stop func must be called before the process exits.
func buildServer(c *cli.Context, mcpMode bool) (*mcpserver.Server, *logging.Logger, func(), error) {
	rts := roots(c)
	cfg, err := config.Load(rts[0])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if mfs := c.Int64("max-file-size"); mfs > 0 {
		cfg.Limits.MaxFileSizeBytes = mfs
	}

	logger := logging.New(mcpMode)

	dirs := c.StringSlice("rule-dir")
	manifestPath := c.String("config")
	if manifestPath == "" {
		manifestPath, err = rulestore.FindManifest(rts[0])
		if err != nil {
			return nil, nil, nil, fmt.Errorf("locating rule manifest: %w", err)
		}
	}
	if manifestPath != "" {
		manifestDirs, err := rulestore.LoadManifest(manifestPath)
		if err != nil {
			return nil, nil, nil, err
		}
		dirs = append(dirs, manifestDirs...)
	}
	store, warnings, err := rulestore.Load(dirs, writeDirFor(dirs))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading rule store: %w", err)
	}
	for _, w := range warnings {
		logger.Printf("rulestore: %s", w)
	}

	s, err := mcpserver.New(cfg, rts, store, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing server: %w", err)
	}

	stopWatch := func() {}
	if mcpMode && cfg.RuleStore.WatchEnabled && len(dirs) > 0 {
		stop, watchErr := store.Watch(dirs, logger)
		if watchErr != nil {
			logger.Printf("rulestore: watch disabled, failed to start: %v", watchErr)
		} else {
			stopWatch = stop
		}
	}
	return s, logger, stopWatch, nil
}

func writeDirFor(dirs []string) string {
	if len(dirs) > 0 {
		return dirs[0]
	}
	return ".ast-grep-rules"
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Run as a persistent MCP server over stdio",
	Action: func(c *cli.Context) error {
		s, logger, stopWatch, err := buildServer(c, true)
		if err != nil {
			return err
		}
		defer logger.Close()
		defer stopWatch()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		if err := s.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}

// runTool calls one MCP tool directly and prints its JSON response to stdout, for the
// one-shot CLI subcommands.
func runTool(c *cli.Context, name string, params any) error {
	s, logger, _, err := buildServer(c, false)
	if err != nil {
		return err
	}
	defer logger.Close()

	argsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding parameters: %w", err)
	}
	result, err := s.CallTool(context.Background(), name, argsJSON)
	if err != nil {
		return err
	}
	for _, item := range result.Content {
		if text, ok := item.(*mcp.TextContent); ok {
			fmt.Println(text.Text)
		}
	}
	if result.IsError {
		os.Exit(1)
	}
	return nil
}

var searchCommand = &cli.Command{
	Name:      "search",
	Usage:     "Structurally match a pattern across files",
	ArgsUsage: "<pattern>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "language", Required: true},
		&cli.StringFlag{Name: "path", Usage: "Glob or direct path to search under", Value: "**/*"},
		&cli.IntFlag{Name: "max-results", Value: 1000},
	},
	Action: func(c *cli.Context) error {
		if c.Args().Len() == 0 {
			return fmt.Errorf("search requires a pattern argument")
		}
		return runTool(c, "file_search", map[string]any{
			"pattern":      c.Args().First(),
			"language":     c.String("language"),
			"path_pattern": c.String("path"),
			"max_results":  c.Int("max-results"),
		})
	},
}

var replaceCommand = &cli.Command{
	Name:      "replace",
	Usage:     "Rewrite files by substituting pattern matches with a replacement template",
	ArgsUsage: "<pattern> <replacement>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "language", Required: true},
		&cli.StringFlag{Name: "path", Usage: "Glob or direct path to rewrite under", Value: "**/*"},
		&cli.BoolFlag{Name: "write", Usage: "Write changes to disk instead of a dry run"},
	},
	Action: func(c *cli.Context) error {
		if c.Args().Len() < 2 {
			return fmt.Errorf("replace requires pattern and replacement arguments")
		}
		return runTool(c, "file_replace", map[string]any{
			"pattern":      c.Args().Get(0),
			"replacement":  c.Args().Get(1),
			"language":     c.String("language"),
			"path_pattern": c.String("path"),
			"dry_run":      !c.Bool("write"),
		})
	},
}

var rulesCommand = &cli.Command{
	Name:  "rules",
	Usage: "Inspect and manage rule configs",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "List every loaded rule",
			Action: func(c *cli.Context) error {
				return runTool(c, "list_rules", map[string]any{})
			},
		},
		{
			Name:      "get",
			Usage:     "Fetch one rule by id",
			ArgsUsage: "<id>",
			Action: func(c *cli.Context) error {
				if c.Args().Len() == 0 {
					return fmt.Errorf("get requires a rule id argument")
				}
				return runTool(c, "get_rule", map[string]any{"id": c.Args().First()})
			},
		},
		{
			Name:      "delete",
			Usage:     "Delete one rule by id",
			ArgsUsage: "<id>",
			Action: func(c *cli.Context) error {
				if c.Args().Len() == 0 {
					return fmt.Errorf("delete requires a rule id argument")
				}
				return runTool(c, "delete_rule", map[string]any{"id": c.Args().First()})
			},
		},
	},
}
