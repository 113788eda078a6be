package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/ila/internal/config"
	"github.com/standardbeagle/ila/internal/debug"
	"github.com/standardbeagle/ila/internal/display"
	"github.com/standardbeagle/ila/internal/version"
	"github.com/standardbeagle/ila/internal/workspace"
)

// Exit codes. Findings and failures are kept apart so CI can tell them
// apart.
const (
	exitFindings = 1
	exitFailure  = 2
)

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		os.Exit(exitCode(app.ErrWriter, err))
	}
}

func exitCode(w io.Writer, err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		if msg := ec.Error(); msg != "" {
			fmt.Fprintln(w, msg)
		}
		return ec.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return exitFailure
}

func newApp(stdout, stderr io.Writer) *cli.App {
	var cleanupFuncs []func()

	return &cli.App{
		Name:                   "ila",
		Usage:                  "Find and fix ILogger<T> fields typed for the wrong class",
		Version:                version.Info(),
		UseShortOptionHandling: true,
		Writer:                 stdout,
		ErrWriter:              stderr,
		// Exit codes are handled by main so tests can run the app in-process.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file (.ila.kdl or .ila.toml); default is the one in the project root",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include glob (repeatable); replaces the configured includes",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude glob (repeatable); added to the configured excludes",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.BoolFlag{
				Name:  "debug-log",
				Usage: "Write debug output to a file in the temp directory",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug-log") {
				path, err := debug.InitDebugLogFile()
				if err != nil {
					return err
				}
				debug.EnableDebug = "true"
				fmt.Fprintf(c.App.ErrWriter, "debug log: %s\n", path)
				cleanupFuncs = append(cleanupFuncs, func() { _ = debug.CloseDebugLog() })
			}
			return nil
		},
		After: func(c *cli.Context) error {
			for i := len(cleanupFuncs) - 1; i >= 0; i-- {
				cleanupFuncs[i]()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "check",
				Aliases:   []string{"c"},
				Usage:     "Report mismatched logger fields",
				ArgsUsage: "[paths...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, tree or json",
					},
					&cli.BoolFlag{
						Name:  "fail-on-findings",
						Usage: "Exit with status 1 when anything is reported",
					},
				},
				Action: checkCommand,
			},
			{
				Name:      "fix",
				Usage:     "Apply a fix to every eligible finding",
				ArgsUsage: "[paths...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "action",
						Aliases: []string{"a"},
						Usage:   "RetypeFix or SplitBaseClassFix; default from configuration",
					},
					&cli.BoolFlag{
						Name:    "dry-run",
						Aliases: []string{"n"},
						Usage:   "Print diffs instead of writing files",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text or json",
					},
				},
				Action: fixCommand,
			},
			{
				Name:      "watch",
				Aliases:   []string{"w"},
				Usage:     "Re-check the project whenever C# files change",
				ArgsUsage: "[dirs...]",
				Action:    watchCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the analyzer as MCP tools over stdio",
				Action: mcpCommand,
			},
			{
				Name:  "rules",
				Usage: "List the diagnostic rules in effect",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text or json",
					},
				},
				Action: rulesCommand,
			},
		},
	}
}

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadWithRoot(c.String("config"), c.String("root"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if includeFlags := c.StringSlice("include"); len(includeFlags) > 0 {
		cfg.Include = includeFlags
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}
	if rootFlag := c.String("root"); rootFlag != "" {
		absRoot, err := filepath.Abs(rootFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", rootFlag, err)
		}
		cfg.Project.Root = absRoot
	}
	if format := c.String("format"); format != "" {
		cfg.Output.Format = format
	}
	if c.Bool("no-color") {
		cfg.Output.Color = false
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRunner(c *cli.Context) (*workspace.Runner, error) {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, err
	}
	return workspace.NewRunner(cfg)
}

// displayOptions colors only when configured and stdout is a terminal.
func displayOptions(cfg *config.Config) display.Options {
	return display.Options{
		Format: cfg.Output.Format,
		Color:  cfg.Output.Color && !color.NoColor,
		Root:   cfg.Project.Root,
	}
}
