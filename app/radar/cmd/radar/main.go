package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/engine"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
)

var (
	configPath string
	fromStage  string
	toStage    string
)

var rootCmd = &cobra.Command{
	Use:   "radar",
	Short: "Competitor radar: monthly scoring, gap analysis and slide report",
	Long: `radar runs the competitor radar pipeline for the period configured in the settings file.

Stages run in order and exchange data only through period-stamped files:
  collect  fetch headlines from each competitor's sources
  enrich   summarize article bodies (only when enrich.enabled)
  score    heuristic or manual scores, smoothed with the previous period
  gaps     per-axis gap between the focal organization and the leader
  charts   radar, gap and history charts
  report   fill the slide template`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline (optionally a range of stages)",
	Example: `  radar run
  radar run --from score --to report`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts engine.RunOptions
		var err error
		if fromStage != "" {
			if opts.From, err = engine.ParseStage(fromStage); err != nil {
				return err
			}
		}
		if toStage != "" {
			if opts.To, err = engine.ParseStage(toStage); err != nil {
				return err
			}
		}
		return runPipeline(cmd.Context(), opts)
	},
}

func stageCmd(stage engine.Stage, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(stage),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), engine.RunOptions{From: stage, To: stage})
		},
	}
}

func init() {
	defaultConfig := os.Getenv("RADAR_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "configs/radar.yaml"
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfig, "settings file (or set RADAR_CONFIG)")

	runCmd.Flags().StringVar(&fromStage, "from", "", "first stage to run")
	runCmd.Flags().StringVar(&toStage, "to", "", "last stage to run")

	rootCmd.AddCommand(
		stageCmd(engine.StageCollect, "Collect headlines into news_<period>.csv"),
		stageCmd(engine.StageEnrich, "Summarize article bodies into news_enriched_<period>.csv"),
		stageCmd(engine.StageScore, "Build radar_scores_<period>.csv"),
		stageCmd(engine.StageGaps, "Print the gaps of the focal organization"),
		stageCmd(engine.StageCharts, "Render the period charts"),
		stageCmd(engine.StageReport, "Build the slide report"),
		runCmd,
		templateCmd,
		minutesCmd,
		fillCmd,
		hashPasswordCmd,
		toolsCmd,
	)
}

// setup 加载配置并按配置初始化日志
func setup() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runPipeline(ctx context.Context, opts engine.RunOptions) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	e, err := engine.NewEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.Run(ctx, opts)
	if err != nil {
		return err
	}

	for _, g := range res.Gaps {
		fmt.Printf("%-24s gap %.2f  leader %s\n", g.Axis, g.Gap, g.Leader)
	}
	if res.ReportPath != "" {
		fmt.Println("report:", res.ReportPath)
	}
	if res.PDFPath != "" {
		fmt.Println("pdf:", res.PDFPath)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
