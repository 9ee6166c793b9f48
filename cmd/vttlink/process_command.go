package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vttlink/internal/config"
	"vttlink/internal/enrich"
	"vttlink/internal/kb"
	"vttlink/internal/linking"
	"vttlink/internal/logging"
	"vttlink/internal/ner"
	"vttlink/internal/runner"
	"vttlink/internal/wikidata"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		outDir          string
		modelPath       string
		patternsPath    string
		labels          []string
		contextTokens   int
		acceptThreshold float64
		reviewThreshold float64
		maxTokens       int
		maxSeconds      float64
		workers         int
		enrichFlag      bool
		noLinking       bool
	)

	cmd := &cobra.Command{
		Use:   "process <file-or-directory>",
		Short: "Process WebVTT transcripts into linked entity mentions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("out-dir") {
				expanded, err := config.ExpandPath(outDir)
				if err != nil {
					return fmt.Errorf("resolve out directory: %w", err)
				}
				cfg.Paths.OutDir = expanded
			}
			if flags.Changed("model") {
				expanded, err := config.ExpandPath(modelPath)
				if err != nil {
					return fmt.Errorf("resolve model path: %w", err)
				}
				cfg.Extraction.ModelPath = expanded
			}
			if flags.Changed("patterns") {
				expanded, err := config.ExpandPath(patternsPath)
				if err != nil {
					return fmt.Errorf("resolve patterns path: %w", err)
				}
				cfg.Extraction.PatternsPath = expanded
			}
			if flags.Changed("labels") {
				cfg.Extraction.Labels = labels
			}
			if flags.Changed("context-tokens") {
				cfg.Extraction.ContextTokens = contextTokens
			}
			if flags.Changed("accept-threshold") {
				cfg.Linking.AcceptThreshold = acceptThreshold
			}
			if flags.Changed("review-threshold") {
				cfg.Linking.ReviewThreshold = reviewThreshold
			}
			if flags.Changed("max-tokens-per-seg") {
				cfg.Stitching.MaxTokensPerSegment = maxTokens
			}
			if flags.Changed("max-seconds-per-seg") {
				cfg.Stitching.MaxSecondsPerSegment = maxSeconds
			}
			if flags.Changed("workers") {
				cfg.Workflow.Workers = workers
			}
			if flags.Changed("enrich-authorities") {
				cfg.Enrichment.Enabled = enrichFlag
			}
			if noLinking {
				cfg.Linking.Enabled = false
			}
			if err := cfg.Validate(); err != nil {
				return runner.Wrap(runner.ErrConfiguration, "config", "validate", "", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return runner.Wrap(runner.ErrConfiguration, "config", "ensure directories", "", err)
			}
			if cfg.Extraction.ModelPath == "" {
				return runner.Wrap(runner.ErrConfiguration, "config", "validate",
					"extraction.model_path is required; set it in the config or pass --model", nil)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}

			recognizer, err := ner.NewHugotRecognizer(cfg.Extraction.ModelPath)
			if err != nil {
				return fmt.Errorf("load recognizer: %w", err)
			}
			defer recognizer.Close()

			var patterns []ner.Pattern
			if cfg.Extraction.PatternsPath != "" {
				patterns, err = ner.LoadPatterns(cfg.Extraction.PatternsPath)
				if err != nil {
					return fmt.Errorf("load override patterns: %w", err)
				}
			}
			extractor := ner.NewExtractor(recognizer, patterns, cfg.Extraction.Labels)

			var resolver runner.Resolver
			var enricher runner.Enricher
			if cfg.Linking.Enabled {
				retry := linking.RetryPolicy{
					MaxAttempts: cfg.Retry.MaxAttempts,
					BaseDelay:   time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
					MaxDelay:    time.Duration(cfg.Retry.MaxDelayMS) * time.Millisecond,
					Jitter:      cfg.Retry.JitterFactor,
				}

				var lookup linking.Lookup
				if store, err := openKnowledgeBase(cfg, logger); err != nil {
					return err
				} else if store != nil {
					defer store.Close()
					lookup = store
				}

				client := wikidata.New(cfg.Wikidata.BaseURL, cfg.Wikidata.Language,
					wikidata.WithUserAgent(cfg.Wikidata.UserAgent),
					wikidata.WithMinInterval(time.Duration(cfg.Wikidata.MinIntervalMS)*time.Millisecond))
				thresholds := linking.Thresholds{
					Accept: cfg.Linking.AcceptThreshold,
					Review: cfg.Linking.ReviewThreshold,
				}
				resolver = linking.NewResolver(lookup, client, thresholds, retry, logger)

				if cfg.Enrichment.Enabled {
					enricher = enrich.New(client, retry, logger)
				}
			}

			run := runner.New(cfg, extractor, resolver, enricher, logger)
			summary, err := run.Run(runCtx, args[0])
			if err != nil {
				return err
			}

			renderSummary(cmd.OutOrStdout(), cfg.Paths.OutDir, summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Directory for the output files")
	cmd.Flags().StringVar(&modelPath, "model", "", "Local ONNX token-classification model directory")
	cmd.Flags().StringVar(&patternsPath, "patterns", "", "EntityRuler-style JSONL override patterns")
	cmd.Flags().StringSliceVar(&labels, "labels", nil, "Entity labels to keep")
	cmd.Flags().IntVar(&contextTokens, "context-tokens", 0, "Context window radius in tokens")
	cmd.Flags().Float64Var(&acceptThreshold, "accept-threshold", 0, "Minimum confidence to assign a QID")
	cmd.Flags().Float64Var(&reviewThreshold, "review-threshold", 0, "Confidence below which accepted links are flagged for review")
	cmd.Flags().IntVar(&maxTokens, "max-tokens-per-seg", 0, "Token budget per stitched segment")
	cmd.Flags().Float64Var(&maxSeconds, "max-seconds-per-seg", 0, "Duration budget per stitched segment in seconds")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of files processed in parallel")
	cmd.Flags().BoolVar(&enrichFlag, "enrich-authorities", false, "Fetch VIAF/LCNAF/ORCID/TGN identifiers for linked entities")
	cmd.Flags().BoolVar(&noLinking, "no-linking", false, "Skip Wikidata linking and emit unlinked mentions")

	return cmd
}

func buildLogger(cfg *config.Config) (*slog.Logger, error) {
	paths := []string{"stderr"}
	if cfg.Paths.LogDir != "" {
		paths = append(paths, filepath.Join(cfg.Paths.LogDir, "vttlink.log"))
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: paths,
	})
}

// openKnowledgeBase opens the offline store when one has been built; a
// missing database just means the lookup stage is skipped.
func openKnowledgeBase(cfg *config.Config, logger *slog.Logger) (*kb.Store, error) {
	path := cfg.Paths.KnowledgeBase
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logger.Debug("no knowledge base found, search only",
				logging.String("path", path))
			return nil, nil
		}
		return nil, fmt.Errorf("stat knowledge base: %w", err)
	}
	store, err := kb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}
	return store, nil
}
