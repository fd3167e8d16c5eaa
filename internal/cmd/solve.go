package cmd

import (
	"fmt"
	"strconv"

	"github.com/Iron-Ham/tabtint/internal/colorsolver"
	"github.com/Iron-Ham/tabtint/internal/errors"
	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash <text>",
	Short: "Show the editor hash and color bucket of a line",
	Long: `Show the hash the editor computes for a colorization line and the color
bucket (0-15) it falls into.`,
	Args: cobra.ExactArgs(1),
	RunE: runHash,
}

var solveCmd = &cobra.Command{
	Use:   "solve <pattern> <color-index>",
	Short: "Salt a regex line so it lands in a given color bucket",
	Long: `Append the smallest inline-comment salt that makes the editor hash the
pattern into the requested color bucket. The salt does not change what the
pattern matches. A pattern already in the bucket is printed unchanged.`,
	Args: cobra.ExactArgs(2),
	RunE: runSolve,
}

func init() {
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(solveCmd)
}

func runHash(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "hash:   %d\n", colorsolver.Hash(args[0]))
	fmt.Fprintf(out, "bucket: %d\n", colorsolver.Bucket(args[0]))
	return nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	target, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid color index %q: expected an integer", args[1])
	}
	line, err := colorsolver.SaltedLine(args[0], target)
	if errors.Is(err, errors.ErrInvalidInput) {
		return fmt.Errorf("invalid color index %d: must be 0-%d", target, colorsolver.Buckets-1)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), line)
	return nil
}
