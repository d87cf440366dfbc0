package cmd

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/consilium/internal/events"
	"github.com/hugo-lorenzo-mato/consilium/internal/service"
)

var (
	runMaxRounds     int
	runThreshold     float64
	runIncludeHost   bool
	runStrict        bool
	runStrategy      string
	runHostAnalysis  string
	runHostDebate    string
	runHostReviews   []string
	runTaskIDFlag    string
	runPrintStrategy bool
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a full consensus debate over a task description",
	Long: `Run the five-phase debate workflow: parallel analysis, consensus check,
cross-review, debate rounds and final dossier. External analysts are
registered programmatically by embedding applications; from the CLI the
host analyst contributes through --host-analysis/--host-review/--host-debate
injection files.`,
	Args: cobra.ExactArgs(1),
	RunE: runDebate,
}

func init() {
	runCmd.Flags().IntVar(&runMaxRounds, "max-rounds", 0, "maximum debate rounds (default from config)")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 0, "consensus threshold in [0.5, 1.0] (default from config)")
	runCmd.Flags().BoolVar(&runIncludeHost, "include-host", true, "include the host analyst")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "require at least one live external participant")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "round strategy (normal, mediated, scope_reduced, perspective_shift)")
	runCmd.Flags().StringVar(&runHostAnalysis, "host-analysis", "", "JSON file with the host analyst's analysis")
	runCmd.Flags().StringVar(&runHostDebate, "host-debate", "", "JSON file with the host analyst's debate outcome")
	runCmd.Flags().StringArrayVar(&runHostReviews, "host-review", nil, "host review injection as <reviewed>=<file.json> (repeatable)")
	runCmd.Flags().StringVar(&runTaskIDFlag, "task-id", "", "explicit task id (default: generated)")
	runCmd.Flags().BoolVar(&runPrintStrategy, "print-strategy", false, "print the final strategy conclusion only")
	rootCmd.AddCommand(runCmd)
}

func runDebate(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)

	dc, err := debateConfigFromFlags(cfg, runMaxRounds, runThreshold, runIncludeHost, runStrict, runStrategy)
	if err != nil {
		return err
	}

	bus := events.New(256)
	defer bus.Close()

	opts := []service.DebateOption{service.WithEventBus(bus)}
	if runTaskIDFlag != "" {
		opts = append(opts, service.WithTaskID(runTaskIDFlag))
	}
	debate, err := service.NewDebate(args[0], dc, openStore(cfg), logger, opts...)
	if err != nil {
		return err
	}

	if err := injectHostSlots(debate); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dossier, err := debate.Run(ctx)
	if err != nil {
		return err
	}

	if idx, idxErr := openIndex(cfg); idxErr == nil {
		defer idx.Close()
		if recErr := idx.RecordDossier(ctx, args[0], dossier); recErr != nil {
			logger.Warn("indexing debate failed", "error", recErr)
		}
	}

	if runPrintStrategy {
		fmt.Fprintln(cmd.OutOrStdout(), dossier.FinalStrategy.Conclusion)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Task:      %s\n", dossier.TaskID)
	fmt.Fprintf(cmd.OutOrStdout(), "Status:    %s\n", dossier.Status)
	fmt.Fprintf(cmd.OutOrStdout(), "Consensus: %.1f%%\n", dossier.ConsensusPercentage*100)
	fmt.Fprintf(cmd.OutOrStdout(), "Rounds:    %d\n", dossier.TotalRounds)
	if dossier.FinalStrategy.Conclusion != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Strategy:  %s\n", dossier.FinalStrategy.Conclusion)
	}
	return nil
}

// injectHostSlots loads the host injection files given on the command line.
func injectHostSlots(debate *service.Debate) error {
	if runHostAnalysis != "" {
		analysis, err := readHostAnalysis(runHostAnalysis)
		if err != nil {
			return err
		}
		debate.SetHostAnalysis(analysis)
	}
	for _, spec := range runHostReviews {
		reviewed, path, ok := strings.Cut(spec, "=")
		if !ok {
			return fmt.Errorf("invalid --host-review %q, want <reviewed>=<file.json>", spec)
		}
		review, err := readHostReview(path)
		if err != nil {
			return err
		}
		debate.SetHostReview(reviewed, review)
	}
	if runHostDebate != "" {
		outcome, err := readHostDebate(runHostDebate)
		if err != nil {
			return err
		}
		debate.SetHostDebate(outcome)
	}
	return nil
}
