package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonyyueyu/optimization/pkg/config"
	"github.com/tonyyueyu/optimization/pkg/history"
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Manage session threads",
}

var threadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List this owner's threads",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.Get()
		client := history.NewClient(settings.History.Host)

		threads, err := client.List(context.Background(), settings.Owner)
		if err != nil {
			return fmt.Errorf("failed to list threads: %w", err)
		}
		if len(threads) == 0 {
			fmt.Println("No threads found.")
			return nil
		}

		ids := make([]string, 0, len(threads))
		for id := range threads {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			return threads[ids[i]].LastUpdated.After(threads[ids[j]].LastUpdated)
		})

		for _, id := range ids {
			info := threads[id]
			fmt.Printf("%s  %s  %s\n", id, info.LastUpdated.Format("2006-01-02 15:04"), info.Title)
		}
		return nil
	},
}

var forceDelete bool

var threadsDeleteCmd = &cobra.Command{
	Use:   "delete <thread-id>",
	Short: "Delete a thread and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		threadID := args[0]

		if !forceDelete && !confirm(fmt.Sprintf("Delete thread %s? This cannot be undone", threadID)) {
			fmt.Println("Aborted.")
			return nil
		}

		settings := config.Get()
		client := history.NewClient(settings.History.Host)
		if err := client.Delete(context.Background(), settings.Owner, threadID); err != nil {
			return fmt.Errorf("failed to delete thread: %w", err)
		}
		fmt.Printf("Deleted thread %s\n", threadID)
		return nil
	},
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	threadsDeleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "skip the confirmation prompt")
	threadsCmd.AddCommand(threadsListCmd)
	threadsCmd.AddCommand(threadsDeleteCmd)
	rootCmd.AddCommand(threadsCmd)
}
