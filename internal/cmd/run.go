package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Iron-Ham/tabtint/internal/colorsync"
	"github.com/Iron-Ham/tabtint/internal/event"
	"github.com/Iron-Ham/tabtint/internal/filehost"
	"github.com/Iron-Ham/tabtint/internal/host"
	"github.com/Iron-Ham/tabtint/internal/orchestrator"
	"github.com/Iron-Ham/tabtint/internal/proposal"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch a host state file and rename and color tabs until interrupted",
	Long: `Watch a host state file and act on every change until interrupted.

The state file lists the editor's open documents with their titles, paths and
connections. tabtint renames tabs by writing new titles back to that file and
keeps the colorization block in sync. Changes to the rule file are picked up
automatically.`,
	RunE: runRun,
}

var (
	runStateFile string
	runPrompt    bool
	runQuiet     bool
)

func init() {
	runCmd.Flags().StringVar(&runStateFile, "state", "", "host state file (required)")
	runCmd.Flags().BoolVar(&runPrompt, "prompt", false, "confirm rule proposals on the terminal")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "do not print activity")
	_ = runCmd.MarkFlagRequired("state")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	classifier, err := host.NewClassifier(cfg.Naming.QueryGlobs, cfg.Naming.DefaultTitlePattern)
	if err != nil {
		return fmt.Errorf("invalid naming config: %w", err)
	}

	fs := afero.NewOsFs()
	bus := event.NewBus(logger)
	h := filehost.New(fs, runStateFile, bus, filehost.WithLogger(logger))
	colors := colorsync.New(fs, colorsync.OptionsFromConfig(cfg.Colorization), logger)

	opts := orchestrator.OptionsFromConfig(cfg)

	var propOpts []proposal.Option
	propOpts = append(propOpts, proposal.WithLogger(logger))
	if runPrompt {
		propOpts = append(propOpts, proposal.WithPrompter(&linePrompter{
			in:  bufio.NewReader(cmd.InOrStdin()),
			out: cmd.OutOrStdout(),
		}))
	}
	proposer := proposal.New(opts.RulesPath, opts.PriorityStep, propOpts...)

	o := orchestrator.New(h, colors, classifier, opts,
		orchestrator.WithLogger(logger),
		orchestrator.WithBus(bus),
		orchestrator.WithProposer(proposer))

	if !runQuiet {
		watchActivity(cmd, bus)
	}

	if err := o.Start(ctx); err != nil {
		return err
	}
	defer o.Stop()

	if err := h.Start(ctx); err != nil {
		return err
	}
	defer h.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "%s state=%s rules=%s\n",
		headerStyle.Render("tabtint running"), runStateFile, opts.RulesPath)

	<-ctx.Done()
	return ignoreCanceled(ctx)
}

// watchActivity prints orchestrator results as they are published.
func watchActivity(cmd *cobra.Command, bus *event.Bus) {
	out := cmd.OutOrStdout()
	bus.Subscribe(event.TypeDocumentRenamed, func(e event.Event) {
		if ev, ok := e.(event.DocumentRenamedEvent); ok {
			fmt.Fprintf(out, "%s %q -> %q\n", okStyle.Render("renamed"), ev.OldTitle, ev.NewTitle)
		}
	})
	bus.Subscribe(event.TypeColorsSynced, func(e event.Event) {
		if ev, ok := e.(event.ColorsSyncedEvent); ok && ev.Written {
			fmt.Fprintf(out, "%s %s (%d lines)\n", okStyle.Render("colors"), ev.Path, ev.Lines)
		}
	})
	bus.Subscribe(event.TypeRuleProposed, func(e event.Event) {
		if ev, ok := e.(event.RuleProposedEvent); ok {
			fmt.Fprintf(out, "%s server=%s database=%s\n", warnStyle.Render("proposing rule"), ev.Server, ev.Database)
		}
	})
	bus.Subscribe(event.TypeRulesReloaded, func(e event.Event) {
		if ev, ok := e.(event.RulesReloadedEvent); ok {
			fmt.Fprintf(out, "%s %d groups, %d manual lines\n", mutedStyle.Render("rules loaded"), ev.Groups, ev.Manual)
		}
	})
}

func ignoreCanceled(ctx context.Context) error {
	if err := context.Cause(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
