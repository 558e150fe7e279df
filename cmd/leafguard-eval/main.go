// Package main is the entry point for the leafguard-eval binary: batch
// golden-dataset evaluation, single-payload evaluation, and ad-hoc
// assessment from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/verdant-ai/leafguard/internal/assess"
	"github.com/verdant-ai/leafguard/internal/config"
	"github.com/verdant-ai/leafguard/internal/judge"
	"github.com/verdant-ai/leafguard/internal/llm"
	"github.com/verdant-ai/leafguard/internal/sink"
	"go.uber.org/zap"
)

const defaultDataset = "data/golden_dataset.json"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "leafguard-eval",
		Short: "LLM-as-judge evaluation for plant health assessments",
		Long: `Evaluate plant health assessments with a judge model.

Batch mode runs the golden dataset through the assessment service,
judges every response, and checks quality gates. Single mode judges one
serialized assessment payload, the same path the queue worker takes.

Examples:
  leafguard-eval batch --limit 5 --output results/eval_run.json
  leafguard-eval single --payload payload.json
  leafguard-eval assess --plant "Peace Lily" --moisture 25 --light 600 --temp 72 --humidity 40`,
	}

	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newSingleCmd())
	rootCmd.AddCommand(newAssessCmd())

	return rootCmd
}

// buildCore wires the generator, sink, evaluator, and assessment
// service shared by the subcommands. Sampling is disabled: CLI runs
// drive evaluation explicitly and must not re-enqueue their own output.
func buildCore(ctx context.Context) (*assess.Service, *judge.Evaluator, *zap.Logger, func(), error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger := config.MustBuildLogger(cfg.LogLevel)

	gen, err := llm.NewGeminiGenerator(ctx, llm.GeminiConfig{
		ModelName:   cfg.ModelName,
		UseVertexAI: cfg.UseVertexAI,
		GCPProject:  cfg.GCPProject,
		GCPLocation: cfg.GCPLocation,
		APIKey:      cfg.GeminiAPIKey,
	}, logger)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("creating gemini client: %w", err)
	}

	var evalSink sink.Sink
	if cfg.ClickHouseDSN != "" {
		chSink, err := sink.NewClickHouseSink(cfg.ClickHouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log sink", zap.Error(err))
			evalSink = sink.NewLogSink(logger)
		} else {
			evalSink = chSink
		}
	} else {
		evalSink = sink.NewLogSink(logger)
	}

	service := assess.NewService(gen, nil, assess.Config{
		SampleRate:    0,
		ViolationRate: cfg.ViolationRate,
	}, nil, logger)
	evaluator := judge.NewEvaluator(gen, evalSink, logger)

	cleanup := func() {
		evalSink.Close()
		logger.Sync() //nolint:errcheck
	}
	return service, evaluator, logger, cleanup, nil
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Evaluate the golden dataset and check quality gates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dataset, _ := cmd.Flags().GetString("dataset")
			limit, _ := cmd.Flags().GetInt("limit")
			output, _ := cmd.Flags().GetString("output")

			ctx := cmd.Context()
			service, evaluator, logger, cleanup, err := buildCore(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			examples, err := judge.LoadGoldenDataset(dataset)
			if err != nil {
				return err
			}

			runner := judge.NewBatchRunner(service, evaluator, logger)
			report := runner.Run(ctx, examples, limit)

			printSummary(report)

			if output != "" {
				if err := judge.WriteReport(report, output); err != nil {
					return err
				}
				fmt.Printf("\nResults saved to: %s\n", output)
			}

			if !report.QualityGates.AllPassed {
				return fmt.Errorf("quality gates failed")
			}
			return nil
		},
	}
	cmd.Flags().String("dataset", defaultDataset, "Path to the golden dataset JSON")
	cmd.Flags().IntP("limit", "n", 0, "Limit evaluation to N examples (0 = all)")
	cmd.Flags().StringP("output", "o", "", "Output path for the batch report JSON")
	return cmd
}

func newSingleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "single",
		Short: "Evaluate one serialized assessment payload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			payloadPath, _ := cmd.Flags().GetString("payload")
			if payloadPath == "" {
				return fmt.Errorf("--payload is required")
			}
			payload, err := os.ReadFile(payloadPath)
			if err != nil {
				return fmt.Errorf("reading payload: %w", err)
			}

			ctx := cmd.Context()
			_, evaluator, _, cleanup, err := buildCore(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			eval, err := evaluator.EvaluateSingle(ctx, payload)
			if err != nil {
				return err
			}
			return printJSON(eval)
		},
	}
	cmd.Flags().String("payload", "", "Path to the assessment response JSON")
	return cmd
}

func newAssessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Generate one assessment from sensor readings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			plant, _ := flags.GetString("plant")
			if plant == "" {
				return fmt.Errorf("--plant is required")
			}

			metrics := assess.SensorMetrics{}
			metrics.SoilMoisture, _ = flags.GetFloat64("moisture")
			metrics.SoilMoistureTarget, _ = flags.GetFloat64("moisture-target")
			metrics.Light, _ = flags.GetFloat64("light")
			metrics.LightTarget, _ = flags.GetFloat64("light-target")
			metrics.Temperature, _ = flags.GetFloat64("temp")
			metrics.TemperatureTarget, _ = flags.GetFloat64("temp-target")
			metrics.Humidity, _ = flags.GetFloat64("humidity")
			metrics.HumidityTarget, _ = flags.GetFloat64("humidity-target")
			additionalContext, _ := flags.GetString("context")
			responseOutput, _ := flags.GetString("response-output")

			ctx := cmd.Context()
			service, _, _, cleanup, err := buildCore(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := service.Assess(ctx, &assess.AssessmentRequest{
				RequestID:         uuid.New().String(),
				PlantType:         plant,
				Metrics:           metrics,
				AdditionalContext: additionalContext,
			})
			if err != nil {
				return err
			}

			if responseOutput != "" {
				data, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(responseOutput, data, 0o644); err != nil {
					return fmt.Errorf("writing response: %w", err)
				}
			}
			fmt.Println(resp.Assessment)
			return nil
		},
	}
	cmd.Flags().String("plant", "", "Plant type (e.g. 'Peace Lily')")
	cmd.Flags().Float64("moisture", 0, "Soil moisture %")
	cmd.Flags().Float64("moisture-target", 50, "Target moisture %")
	cmd.Flags().Float64("light", 0, "Light level (lux)")
	cmd.Flags().Float64("light-target", 750, "Target light (lux)")
	cmd.Flags().Float64("temp", 0, "Temperature (F)")
	cmd.Flags().Float64("temp-target", 70, "Target temperature (F)")
	cmd.Flags().Float64("humidity", 0, "Humidity %")
	cmd.Flags().Float64("humidity-target", 50, "Target humidity %")
	cmd.Flags().String("context", "", "Additional context")
	cmd.Flags().String("response-output", "", "Write the full response JSON to this file")
	return cmd
}

func printSummary(report *judge.BatchReport) {
	m := report.Metrics
	fmt.Println()
	fmt.Println("EVALUATION SUMMARY")
	fmt.Printf("  Accuracy:          %.2f/5.0\n", m.AvgAccuracy)
	fmt.Printf("  Relevance:         %.2f/5.0\n", m.AvgRelevance)
	fmt.Printf("  Urgency:           %.2f/5.0\n", m.AvgUrgency)
	fmt.Printf("  Overall:           %.2f/5.0\n", m.AvgOverall)
	fmt.Printf("  Hallucination:     %.1f%%\n", m.HallucinationRate*100)
	fmt.Printf("  Safety Pass Rate:  %.1f%%\n", m.SafetyPassRate*100)
	fmt.Println()
	if report.QualityGates.AllPassed {
		fmt.Println("Quality Gates: PASSED")
	} else {
		fmt.Println("Quality Gates: FAILED")
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
