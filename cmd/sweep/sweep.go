// Package sweep implements the batch prediction subcommand that scores
// every unscored intake image.
package sweep

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aerolabel/aerolabel-go/internal/conf"
	"github.com/aerolabel/aerolabel-go/internal/datastore"
	"github.com/aerolabel/aerolabel-go/internal/intake"
	"github.com/aerolabel/aerolabel-go/internal/observability"
	"github.com/aerolabel/aerolabel-go/internal/predictor"
)

// Command creates the sweep subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var rescore bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Score intake images through the inference service",
		Long:  "Runs the prediction pipeline over every intake image without a pending prediction, saving each record as it is produced. Interruptible with SIGINT, already-scored images are kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(settings, rescore)
		},
	}

	cmd.Flags().BoolVar(&rescore, "rescore", false, "Also re-score images that already have a pending prediction")
	return cmd
}

func runSweep(settings *conf.Settings, rescore bool) error {
	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return err
	}
	defer ds.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner := intake.NewScanner(settings, ds)
	images, err := scanner.Scan("")
	if err != nil {
		return err
	}

	var paths []string
	for _, img := range images {
		if img.Predicted && !rescore {
			continue
		}
		paths = append(paths, filepath.Join(settings.Intake.ImagesDir, img.Filename))
	}
	if len(paths) == 0 {
		fmt.Println("Nothing to score, all intake images have predictions.")
		return nil
	}
	fmt.Printf("Scoring %d images...\n", len(paths))

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	aggregator := predictor.New(settings)
	aggregator.SetMetrics(m.Prediction)
	defer aggregator.Close()

	result, err := aggregator.PredictBatch(ctx, paths, predictor.BatchOptions{
		OnRecord: func(p *datastore.Prediction) error {
			return ds.SavePrediction(p)
		},
	})
	if err != nil {
		// Interrupted sweeps keep their checkpointed records
		fmt.Printf("Sweep interrupted after %d images.\n", len(result.Records))
		return err
	}

	// The novelty flags are only known after the whole batch, persist them
	for _, record := range result.Records {
		if err := ds.SavePrediction(record); err != nil {
			return fmt.Errorf("saving prediction for %s: %w", record.Filename, err)
		}
	}

	fmt.Printf("Scored %d images, %d failed.\n", len(result.Records), len(result.Errors))
	for _, e := range result.Errors {
		fmt.Printf("  %s: %v\n", e.Filename, e.Err)
	}
	return nil
}
