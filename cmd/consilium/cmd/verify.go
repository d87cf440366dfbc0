package cmd

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/consilium/internal/service"
)

var (
	verifyThreshold    float64
	verifyIncludeHost  bool
	verifyStrict       bool
	verifyHostAnalysis string
	verifyJSON         bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <task>",
	Short: "Run the reduced analyze-then-check verification workflow",
	Long: `Run only the analysis fan-out and one consensus evaluation. No
cross-review, no debate rounds. Intended for "is this acceptable?" checks.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().Float64Var(&verifyThreshold, "threshold", 0, "consensus threshold in [0.5, 1.0]")
	verifyCmd.Flags().BoolVar(&verifyIncludeHost, "include-host", true, "include the host analyst")
	verifyCmd.Flags().BoolVar(&verifyStrict, "strict", false, "require at least one live external participant")
	verifyCmd.Flags().StringVar(&verifyHostAnalysis, "host-analysis", "", "JSON file with the host analyst's verdict")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "emit the raw verification result as JSON")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)

	dc, err := debateConfigFromFlags(cfg, 0, verifyThreshold, verifyIncludeHost, verifyStrict, "")
	if err != nil {
		return err
	}

	debate, err := service.NewDebate(args[0], dc, openStore(cfg), logger)
	if err != nil {
		return err
	}
	if verifyHostAnalysis != "" {
		analysis, err := readHostAnalysis(verifyHostAnalysis)
		if err != nil {
			return err
		}
		debate.SetHostAnalysis(analysis)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := debate.RunVerification(ctx)
	if err != nil {
		return err
	}

	if verifyJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Status:    %s\n", result.Status)
	fmt.Fprintf(cmd.OutOrStdout(), "Consensus: %.1f%%\n", result.ConsensusPercentage*100)
	for name, conclusion := range result.AnalysesByName {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %s\n", name+":", conclusion)
	}
	return nil
}
