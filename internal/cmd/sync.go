package cmd

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/tabtint/internal/colorsync"
	"github.com/Iron-Ham/tabtint/internal/filehost"
	"github.com/Iron-Ham/tabtint/internal/rules"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Regenerate the colorization block once",
	Long: `Regenerate the generated block of the editor's colorization file from
the documents listed in a host state file, then exit.

Without --file, the colorization file is located the same way 'tabtint run'
does: next to the documents, or in the newest matching host directory under
the temp root.`,
	RunE: runSync,
}

var (
	syncStateFile string
	syncFile      string
	syncDryRun    bool
)

func init() {
	syncCmd.Flags().StringVar(&syncStateFile, "state", "", "host state file listing open documents (required)")
	syncCmd.Flags().StringVar(&syncFile, "file", "", "colorization file (skips discovery)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "print the generated lines without writing")
	_ = syncCmd.MarkFlagRequired("state")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	st, err := filehost.ReadState(fs, syncStateFile)
	if err != nil {
		return err
	}
	ruleCfg, err := rules.Load(rulesPath())
	if err != nil {
		return err
	}
	compiled, problems := rules.Compile(ruleCfg)
	reportProblems(cmd, problems)
	manual := rules.ManualLines(ruleCfg)

	if syncDryRun {
		lines := colorsync.Render(st.Documents, compiled, manual, cfg.Colorization.QueryExtension)
		for _, l := range colorsync.Texts(lines) {
			fmt.Fprintln(out, l)
		}
		return nil
	}

	opts := colorsync.OptionsFromConfig(cfg.Colorization)
	// One pass only: nothing would be around to run a retry.
	opts.MaxAttempts = 0

	var syncOpts []colorsync.Option
	if syncFile != "" {
		syncOpts = append(syncOpts, colorsync.WithPath(syncFile))
	}
	s := colorsync.New(fs, opts, nil, syncOpts...)
	defer s.Reset()
	if len(st.Documents) > 0 {
		s.NoteObserved(time.Now())
	}

	res := s.UpdateFromSnapshot(cmd.Context(), st.Documents, compiled, manual)
	switch {
	case res.Err != nil:
		return res.Err
	case res.Skipped == "no-rules":
		fmt.Fprintln(out, warnStyle.Render("rule file defines no rules, nothing to write"))
	case res.Written:
		fmt.Fprintf(out, "%s %s (%d lines)\n", okStyle.Render("updated"), res.Path, len(res.Lines))
	default:
		fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("unchanged"), res.Path)
	}
	return nil
}
