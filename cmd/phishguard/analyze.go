package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/commjoen/phishguard/internal/analysis"
	"github.com/commjoen/phishguard/internal/config"
	"github.com/commjoen/phishguard/internal/input"
	"github.com/commjoen/phishguard/internal/output"
	"github.com/commjoen/phishguard/internal/presentation"
)

var (
	// analyze flags
	format      string
	outputFile  string
	apiURL      string
	color       bool
	sensitivity int
	autoScan    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Analyze a URL and show the verdict, WHOIS and screenshot panels",
	Long: `analyze submits the URL to the analysis service exactly as entered and
renders the dashboard once the verdict has arrived and the screenshot has
either loaded or failed.

If the service cannot be reached the verdict panel keeps its prompt and the
WHOIS panel shows a record built from the URL alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, or csv")
	analyzeCmd.Flags().StringVarP(&outputFile, "out", "o", "", "Write output to file (default: stdout)")
	analyzeCmd.Flags().StringVar(&apiURL, "api", "", "Analysis service base URL (default: $PHISHGUARD_API_URL)")
	analyzeCmd.Flags().BoolVar(&color, "color", false, "Colour the verdict badge in text output")
	analyzeCmd.Flags().IntVar(&sensitivity, "sensitivity", 0, "Displayed sensitivity: 1 (Low), 2 (Medium) or 3 (High)")
	analyzeCmd.Flags().BoolVar(&autoScan, "autoscan", true, "Displayed auto-scan setting")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	raw := args[0]
	req, ok := input.Request(raw)
	if !ok {
		return fmt.Errorf("URL cannot be empty")
	}

	formatter, err := output.NewFormatter(format)
	if err != nil {
		return err
	}
	if tf, ok := formatter.(*output.TextFormatter); ok {
		tf.Color = color
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api") {
		cfg.APIURL = apiURL
	}
	if cmd.Flags().Changed("sensitivity") {
		cfg.Settings.Sensitivity = sensitivity
		if err := cfg.Settings.Validate(); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("autoscan") {
		cfg.Settings.AutoScan = autoScan
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	logger.Printf("analyzing %q via %s", raw, cfg.APIURL)

	board := presentation.NewBoard(presentation.NewHTTPImageLoader(timeout), logger)
	defer board.Close()

	orch := analysis.New(analysis.NewClient(cfg.APIURL, timeout), board, analysis.WithLogger(logger))
	orch.Analyze(ctx, req)
	board.Wait()

	report := output.NewReport(raw, cfg.Settings, board.Snapshot())
	return writeReport(formatter, report, outputFile, cmd.OutOrStdout())
}
