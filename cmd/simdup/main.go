package main

import (
	"os"

	"github.com/ludo-technologies/simdup/internal/version"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the simdup command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simdup",
		Short: "Near-duplicate detection with MinHash, Fill Sketch and LSH",
		Long: `simdup finds near-duplicate records by Jaccard similarity of their
token sets.

Every record is reduced to a fixed-length signature (MinHash or Fill Sketch),
the signatures are banded with locality-sensitive hashing, and items sharing a
bucket become candidate pairs. The band parameters are chosen by minimising the
weighted false positive and false negative areas of the collision curve and
are cached for reuse.

Features:
  • MinHash and Fill Sketch signatures over mixed tabulation hashing
  • Standard and amplified (two-level) LSH banding
  • Parameter optimizer with a persistent cache
  • Pair quality and completeness against labelled duplicate groups`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewDedupeCmd())
	rootCmd.AddCommand(NewParamsCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewVersionCmd())
	return rootCmd
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		reportError(os.Stderr, err, verboseFromArgs(os.Args[1:]))
		os.Exit(1)
	}
}
