package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"domainscout/internal/keywords"
)

// newKeywordsCmd creates the 'keywords' subcommand, which expands a seed
// word list into categorized keywords plus cross-category combinations.
func newKeywordsCmd() *cobra.Command {
	var seedsPath string
	var outPath string
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Generate a categorized keyword set from a seed word file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := keywords.GenerateFromFile(seedsPath, outPath)
			if err != nil {
				return fmt.Errorf("generate keywords: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d keywords (%d combinations) -> %s\n",
				len(set.AllKeywords), len(set.Combinations), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&seedsPath, "seeds", "seed_words.txt", "seed word file, one word per line")
	cmd.Flags().StringVar(&outPath, "out", "keywords.json", "output JSON file")
	return cmd
}
