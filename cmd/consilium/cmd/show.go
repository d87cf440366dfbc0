package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
)

var (
	showPath  string
	showLevel string
	showRaw   bool
)

var showCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Render a persisted deliberation artifact",
	Long: `Load one artifact of a persisted debate at a chosen chunk level and
render it in the terminal. The task id may be partial; the closest match
wins. The default artifact is FINAL.md at FULL level.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showPath, "path", "FINAL.md", "artifact path relative to the task directory")
	showCmd.Flags().StringVar(&showLevel, "level", "FULL", "load level (METADATA, SUMMARY, CONCLUSION, FULL)")
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "print without terminal rendering")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	debateStore := openStore(cfg)

	taskID, err := resolveTaskID(debateStore, args[0])
	if err != nil {
		return err
	}

	level := core.ParseLoadLevel(showLevel)
	artifact, err := debateStore.Load(taskID, showPath, level)
	if err != nil {
		return fmt.Errorf("loading %s of %s: %w", showPath, taskID, err)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s — %s\n\n", taskID, showPath))
	b.WriteString(fmt.Sprintf("- Status: %s\n- Created: %s\n\n",
		artifact.Meta.Status, artifact.Meta.Timestamp.Format("2006-01-02 15:04:05")))
	if artifact.Chunks.Summary != "" {
		b.WriteString("## Summary\n\n" + artifact.Chunks.Summary + "\n\n")
	}
	if artifact.Chunks.Conclusion != "" {
		b.WriteString("## Conclusion\n\n" + artifact.Chunks.Conclusion + "\n\n")
	}
	if artifact.Chunks.Full != "" {
		b.WriteString("## Detail\n\n" + artifact.Chunks.Full + "\n")
	}

	if showRaw {
		fmt.Fprint(cmd.OutOrStdout(), b.String())
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Fprint(cmd.OutOrStdout(), b.String())
		return nil
	}
	rendered, err := renderer.Render(b.String())
	if err != nil {
		fmt.Fprint(cmd.OutOrStdout(), b.String())
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}
