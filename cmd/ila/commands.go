package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/ila/internal/debug"
	"github.com/standardbeagle/ila/internal/display"
	"github.com/standardbeagle/ila/internal/mcp"
	"github.com/standardbeagle/ila/internal/repair"
	"github.com/standardbeagle/ila/internal/watch"
	"github.com/standardbeagle/ila/internal/workspace"
)

func checkCommand(c *cli.Context) error {
	runner, err := newRunner(c)
	if err != nil {
		return err
	}
	files, err := runner.Scan(c.Args().Slice()...)
	if err != nil {
		return err
	}

	res, err := runner.Check(c.Context, files)
	if err != nil {
		return err
	}
	if err := display.WriteReport(c.App.Writer, display.NewReport(res), displayOptions(runner.Config())); err != nil {
		return err
	}
	if c.Bool("fail-on-findings") && len(res.Findings) > 0 {
		return cli.Exit("", exitFindings)
	}
	return nil
}

func fixCommand(c *cli.Context) error {
	runner, err := newRunner(c)
	if err != nil {
		return err
	}

	action := c.String("action")
	if action == "" {
		action = runner.Config().Fix.DefaultAction
	}
	key, err := repair.ParseActionKey(action)
	if err != nil {
		return err
	}

	files, err := runner.Scan(c.Args().Slice()...)
	if err != nil {
		return err
	}

	dryRun := c.Bool("dry-run")
	res, err := runner.Fix(c.Context, files, key, workspace.FixOptions{DryRun: dryRun})
	if err != nil {
		return err
	}
	if err := display.WriteFixes(c.App.Writer, res, key, dryRun, displayOptions(runner.Config())); err != nil {
		return err
	}
	if len(res.Errors) > 0 {
		return cli.Exit(fmt.Sprintf("%d files could not be fixed", len(res.Errors)), exitFailure)
	}
	return nil
}

func watchCommand(c *cli.Context) error {
	runner, err := newRunner(c)
	if err != nil {
		return err
	}
	opts := displayOptions(runner.Config())
	if opts.Format == display.FormatJSON {
		// One JSON document per batch would not be valid JSON as a stream.
		opts.Format = display.FormatText
	}

	w, err := watch.New(runner, c.Args().Slice(), func(b watch.Batch) {
		out := c.App.Writer
		fmt.Fprintf(out, "\n[%s] checked in %s", time.Now().Format("15:04:05"), b.Elapsed.Round(time.Millisecond))
		if n := len(b.Changed) + len(b.Removed); n > 0 {
			fmt.Fprintf(out, " after %d changes", n)
		}
		fmt.Fprintln(out)
		if b.Err != nil {
			fmt.Fprintf(c.App.ErrWriter, "error: %v\n", b.Err)
			return
		}
		if err := display.WriteReport(out, display.NewReport(b.Result), opts); err != nil {
			fmt.Fprintf(c.App.ErrWriter, "error: %v\n", err)
		}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Fprintf(c.App.ErrWriter, "watching %s (Ctrl-C to stop)\n", runner.Config().Project.Root)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func mcpCommand(c *cli.Context) error {
	// stdout carries the protocol from here on.
	debug.SetMCPMode(true)

	runner, err := newRunner(c)
	if err != nil {
		return debug.Fatal("failed to load config: %v\n", err)
	}
	server, err := mcp.NewServer(runner)
	if err != nil {
		return debug.Fatal("failed to create MCP server: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		return debug.Fatal("MCP server error: %v\n", err)
	}
	return nil
}

func rulesCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	rules, err := cfg.RuleTable()
	if err != nil {
		return err
	}
	return display.WriteRules(c.App.Writer, rules, displayOptions(cfg))
}
