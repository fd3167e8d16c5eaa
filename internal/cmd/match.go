package cmd

import (
	"fmt"

	"github.com/Iron-Ham/tabtint/internal/config"
	"github.com/Iron-Ham/tabtint/internal/rules"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var matchCmd = &cobra.Command{
	Use:   "match <server> [database]",
	Short: "Show which group a connection belongs to",
	Long: `Evaluate the rule file against a connection and print the winning group
rule. With --path, manual rules are tried on the document path when no group
rule matches.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runMatch,
}

var matchPath string

func init() {
	matchCmd.Flags().StringVar(&matchPath, "path", "", "document path tried against manual rules")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := rules.Load(rulesPath())
	if err != nil {
		return err
	}

	server := args[0]
	database := ""
	if len(args) > 1 {
		database = args[1]
	}

	compiled, problems := rules.Compile(cfg)
	reportProblems(cmd, problems)

	if r, ok := rules.MatchRule(compiled, server, database); ok {
		fmt.Fprintf(out, "%s %s\n", okStyle.Render("group:"), r.GroupName)
		fmt.Fprintf(out, "  rule: server=%q database=%q priority=%d\n", r.Server, r.Database, r.Priority)
		fmt.Fprintf(out, "  color: %s\n", swatch(r.ColorIndex))
		return nil
	}

	if matchPath != "" {
		manual, problems := rules.CompileManual(cfg)
		reportProblems(cmd, problems)
		if r, ok := rules.MatchManual(manual, matchPath); ok && r.GroupName != "" {
			fmt.Fprintf(out, "%s %s\n", okStyle.Render("group:"), r.GroupName)
			fmt.Fprintf(out, "  manual rule: %s priority=%d\n", r.Pattern, r.Priority)
			fmt.Fprintf(out, "  color: %s\n", swatch(r.ColorIndex))
			return nil
		}
	}

	fmt.Fprintln(out, warnStyle.Render("no matching rule"))
	return nil
}

// rulesPath resolves the rule file from --rules, the config file or the
// default location.
func rulesPath() string {
	rc := config.RulesConfig{Path: viper.GetString("rules.path")}
	return rc.ResolvePath()
}

func reportProblems(cmd *cobra.Command, problems []error) {
	for _, p := range problems {
		fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("warning: ")+p.Error())
	}
}
