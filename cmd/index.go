package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonyyueyu/optimization/pkg/retrieval"
)

var indexCmd = &cobra.Command{
	Use:   "index <corpus.json>",
	Short: "Build the local example-problem index",
	Long: `Index a corpus of solved problems for offline retrieval. The corpus
is a JSON array of {id, problem, solution} objects. Indexing replaces
the existing index.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openProblemStore()
		if err != nil {
			return err
		}
		defer store.Close()

		count, err := retrieval.IndexCorpus(context.Background(), store, args[0])
		if err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}
		fmt.Printf("Indexed %d problems\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
