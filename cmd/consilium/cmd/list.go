package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted debates",
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum entries to show")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	idx, err := openIndex(cfg)
	if err == nil {
		defer idx.Close()
		entries, listErr := idx.List(cmd.Context(), listLimit)
		if listErr == nil && len(entries) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%-40s %-18s %9s %7s\n", "TASK ID", "STATUS", "CONSENSUS", "ROUNDS")
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%-40s %-18s %8.1f%% %7d\n",
					e.TaskID, e.Status, e.ConsensusPercentage*100, e.TotalRounds)
			}
			return nil
		}
	}

	// No index entries: walk the store directly.
	ids, err := openStore(cfg).ListTasks()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No debates found.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}
