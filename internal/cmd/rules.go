package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Iron-Ham/tabtint/internal/host"
	"github.com/Iron-Ham/tabtint/internal/proposal"
	"github.com/Iron-Ham/tabtint/internal/rules"
	"github.com/Iron-Ham/tabtint/internal/util"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect or extend the rule file",
	Long: `Inspect or extend the rule file.

The rule file holds group rules (server/database patterns, '%' is a
wildcard), manual regex lines written verbatim into the colorization file,
and feature settings.`,
	RunE: runRulesList,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List group rules and manual lines in evaluation order",
	RunE:  runRulesList,
}

var rulesProposeCmd = &cobra.Command{
	Use:   "propose <server> [database]",
	Short: "Add a rule for a connection at the front of the rule file",
	Long: `Add a rule for a connection at the front of the rule file, shifting every
existing rule down by the configured priority step. The new rule gets the
lowest unused color index.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRulesPropose,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the rule file for problems",
	RunE:  runRulesValidate,
}

var (
	proposeGroup  string
	proposePrompt bool
)

func init() {
	rulesProposeCmd.Flags().StringVar(&proposeGroup, "group", "", "group name (default derived from the server)")
	rulesProposeCmd.Flags().BoolVar(&proposePrompt, "prompt", false, "confirm the group name interactively")

	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesProposeCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := rulesPath()
	cfg, err := rules.Load(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s\n\n", headerStyle.Render("Rule file:"), path)

	compiled, problems := rules.Compile(cfg)
	fmt.Fprintln(out, headerStyle.Render("Groups"))
	if len(compiled) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("  (none)"))
	}
	for _, r := range compiled {
		fmt.Fprintf(out, "  %4d  %-16s server=%s database=%s  %s\n",
			r.Priority,
			util.TruncateANSI(r.GroupName, 16),
			util.TruncateANSI(orAny(r.Server), maxCellWidth),
			util.TruncateANSI(orAny(r.Database), maxCellWidth),
			swatch(r.ColorIndex))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Manual lines"))
	manual := rules.ManualLines(cfg)
	if len(manual) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("  (none)"))
	}
	for _, r := range manual {
		fmt.Fprintf(out, "  %4d  %-16s %s  %s\n",
			r.Priority,
			util.TruncateANSI(r.GroupName, 16),
			util.TruncateANSI(r.Pattern, maxCellWidth),
			swatch(r.ColorIndex))
	}

	s := cfg.Settings
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Settings"))
	fmt.Fprintf(out, "  auto rename: %v  auto color: %v  polling: %v  logging: %v\n",
		s.EnableAutoRename, s.EnableAutoColor, s.EnableConnectionPolling, s.EnableLogging)
	fmt.Fprintf(out, "  auto configure: %s  prompt: %v  rename style: %s\n",
		s.AutoConfigure, s.EnableConfigurePrompt, s.RenameStyle())

	reportProblems(cmd, problems)
	return nil
}

func orAny(pattern string) string {
	if pattern == "" {
		return mutedStyle.Render("*")
	}
	return pattern
}

func runRulesPropose(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prop := host.Proposal{Server: args[0]}
	if len(args) > 1 {
		prop.Database = args[1]
	}

	var opts []proposal.Option
	switch {
	case proposeGroup != "":
		opts = append(opts, proposal.WithGroupName(proposeGroup))
	case proposePrompt:
		opts = append(opts, proposal.WithPrompter(&linePrompter{
			in:  bufio.NewReader(cmd.InOrStdin()),
			out: cmd.OutOrStdout(),
		}))
	}
	path := rulesPath()
	p := proposal.New(path, cfg.Proposal.PriorityStep, opts...)
	if err := p.Propose(cmd.Context(), prop); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Rule file updated: %s\n", path)
	return nil
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	cfg, err := rules.Load(rulesPath())
	if err != nil {
		return err
	}
	problems := cfg.Validate()
	_, compileProblems := rules.Compile(cfg)
	_, manualProblems := rules.CompileManual(cfg)
	problems = append(problems, compileProblems...)
	problems = append(problems, manualProblems...)

	if len(problems) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("rule file is valid"))
		return nil
	}
	reportProblems(cmd, problems)
	return fmt.Errorf("%d problem(s) in rule file", len(problems))
}

// linePrompter asks on the terminal. An empty answer accepts the
// suggestion; "n" declines.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (l *linePrompter) Confirm(_ context.Context, p host.Proposal, suggested string) (string, bool, error) {
	conn := p.Server
	if p.Database != "" {
		conn += "/" + p.Database
	}
	fmt.Fprintf(l.out, "No rule matches %s. Group name [%s] (n to skip): ", conn, suggested)

	line, err := l.in.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return suggested, true, nil
		}
		return "", false, err
	}
	answer := strings.TrimSpace(line)
	switch {
	case answer == "":
		return suggested, true, nil
	case strings.EqualFold(answer, "n"):
		return "", false, nil
	}
	return answer, true, nil
}
