package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"auto_report_author/authoring"
	"auto_report_author/config"
	"auto_report_author/document"
	"auto_report_author/generator"
)

// app carries the global flags and what PersistentPreRunE builds from them.
type app struct {
	configPath string
	verbose    bool

	logger *zap.Logger
	cfg    config.Config
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "report-author",
		Short: "Write long reports chapter by chapter with an LLM",
		Long: `report-author drafts a long document one chapter at a time, carrying as much
of the earlier text as fits the model's context window, then reviews and revises it.

The session file names the title, the persistent instruction, the outline and the
model. The document is kept as Markdown and may be edited by hand between phases.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zcfg := zap.NewProductionConfig()
			if a.verbose {
				zcfg = zap.NewDevelopmentConfig()
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := zcfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger

			cfg, err := config.Load(a.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "report.yaml", "path to the session file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newDraftCmd(a),
		newReviewCmd(a),
		newReviseCmd(a),
		newAmendCmd(a),
		newStatusCmd(a),
		newRenderCmd(a),
		newServeCmd(a),
	)
	return root
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// project wires the configured model, budget and files into an authoring project.
func (a *app) project() (*authoring.Project, error) {
	llm, err := generator.NewClient(a.cfg.Settings())
	if err != nil {
		return nil, err
	}
	inv, err := generator.NewInvoker(llm, a.cfg.RetryPolicy(), a.logger)
	if err != nil {
		return nil, err
	}
	agent, err := generator.NewAgent(inv, a.cfg.ContextBudget(), a.logger)
	if err != nil {
		return nil, err
	}
	store := document.NewStore(a.cfg.Document)
	session, err := authoring.NewSession(agent, a.cfg.Instruction, store, a.logger)
	if err != nil {
		return nil, err
	}
	return &authoring.Project{
		Session:      session,
		Store:        store,
		FindingsPath: a.cfg.Findings,
		Title:        a.cfg.Title,
		Outline:      a.cfg.Outline,
	}, nil
}
