// Package predictor merges the outputs of the scoring collaborators into
// unified prediction records, one per intake image.
package predictor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aerolabel/aerolabel-go/internal/conf"
	"github.com/aerolabel/aerolabel-go/internal/datastore"
	"github.com/aerolabel/aerolabel-go/internal/errors"
	"github.com/aerolabel/aerolabel-go/internal/inference"
	"github.com/aerolabel/aerolabel-go/internal/logging"
	"github.com/aerolabel/aerolabel-go/internal/novelty"
	"github.com/aerolabel/aerolabel-go/internal/observability/metrics"
)

var log = logging.ForService("predictor")

// NoveltyDetector is the batch-level outlier flagging collaborator.
type NoveltyDetector interface {
	Capability
	Detect(features []float64) []novelty.Flag
}

// Aggregator scores intake images through the collaborator capabilities.
// Classification is mandatory, text recognition and quality scoring are
// best effort and fall back to neutral values.
type Aggregator struct {
	classifier Classifier
	recognizer TextRecognizer
	scorer     QualityScorer
	detector   NoveltyDetector

	typeAxis    string
	airlineAxis string
	threshold   float64
	metrics     *metrics.PredictionMetrics
}

// SetMetrics attaches the prediction metric collectors. Safe to leave unset,
// scoring then runs unmetered.
func (a *Aggregator) SetMetrics(m *metrics.PredictionMetrics) {
	a.metrics = m
}

// New builds an aggregator from the settings, selecting disabled collaborator
// variants for capabilities the configuration turns off.
func New(settings *conf.Settings) *Aggregator {
	client := inference.New(settings)

	a := &Aggregator{
		classifier:  &remoteClassifier{remoteCapability{client}},
		recognizer:  disabledRecognizer{},
		scorer:      disabledScorer{},
		detector:    novelty.NewDetector(settings),
		typeAxis:    settings.Classifier.TypeAxis,
		airlineAxis: settings.Classifier.AirlineAxis,
		threshold:   settings.Thresholds.AutoApprove,
	}
	if settings.OCR.Enabled {
		a.recognizer = &remoteRecognizer{remoteCapability{client}}
	}
	if settings.Quality.Enabled {
		a.scorer = &remoteScorer{remoteCapability{client}}
	}
	return a
}

// Close releases every collaborator. The first cleanup failure is returned,
// remaining collaborators are still cleaned up.
func (a *Aggregator) Close() error {
	var firstErr error
	for _, c := range []Capability{a.classifier, a.recognizer, a.scorer, a.detector} {
		if err := c.Cleanup(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HighConfidence reports whether a record qualifies for auto approval:
// both classification confidences at or above the threshold and not
// flagged as an outlier.
func (a *Aggregator) HighConfidence(p *datastore.Prediction) bool {
	return !p.IsOutlier &&
		p.TypeConfidence >= a.threshold &&
		p.AirlineConfidence >= a.threshold
}

// PredictOne scores a single image. A classification failure fails the
// whole record. Recognition and quality failures degrade to neutral
// values with a log entry.
func (a *Aggregator) PredictOne(ctx context.Context, imagePath string) (record *datastore.Prediction, err error) {
	filename := filepath.Base(imagePath)
	start := time.Now()
	defer func() {
		if a.metrics == nil {
			return
		}
		status := "success"
		if err != nil {
			status = "error"
		}
		a.metrics.RecordPrediction(status, time.Since(start))
	}()

	image, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, errors.New(fmt.Errorf("reading image: %w", err)).
			Component("predictor").
			Category(errors.CategoryFileIO).
			FileContext(filename).
			Build()
	}

	typeResult, err := a.classifier.Classify(ctx, image, a.typeAxis)
	if err != nil {
		a.recordCollaboratorError("classifier")
		return nil, fmt.Errorf("classifying %s on %s axis: %w", filename, a.typeAxis, err)
	}
	airlineResult, err := a.classifier.Classify(ctx, image, a.airlineAxis)
	if err != nil {
		a.recordCollaboratorError("classifier")
		return nil, fmt.Errorf("classifying %s on %s axis: %w", filename, a.airlineAxis, err)
	}

	ocrResult, err := a.recognizer.Recognize(ctx, image)
	if err != nil {
		a.recordCollaboratorError("ocr")
		log.Warn("Text recognition failed, continuing without registration",
			"filename", filename, "error", err)
		ocrResult = inference.OCRResult{}
	}

	qualityResult, err := a.scorer.Assess(ctx, image)
	if err != nil {
		a.recordCollaboratorError("quality")
		log.Warn("Quality assessment failed, using neutral defaults",
			"filename", filename, "error", err)
		qualityResult = inference.QualityResult{
			Clarity:    FallbackClarity,
			Occlusion:  FallbackOcclusion,
			Confidence: FallbackQualityConfidence,
		}
	}

	record = &datastore.Prediction{
		Filename:               filename,
		TypeClass:              typeResult.Class,
		TypeConfidence:         typeResult.Confidence,
		AirlineClass:           airlineResult.Class,
		AirlineConfidence:      airlineResult.Confidence,
		Registration:           ocrResult.Registration,
		RegistrationConfidence: ocrResult.Confidence,
		RegistrationArea:       ocrResult.Area,
		Clarity:                qualityResult.Clarity,
		Occlusion:              qualityResult.Occlusion,
		QualityConfidence:      qualityResult.Confidence,
	}
	if err := validateRecord(record); err != nil {
		return nil, err
	}
	return record, nil
}

// BatchOptions controls a batch prediction run.
type BatchOptions struct {
	// OnRecord is called after each successful score, before novelty
	// detection. Failures are logged and do not abort the batch.
	OnRecord func(*datastore.Prediction) error
}

// BatchError captures one image's failure inside a batch.
type BatchError struct {
	Index    int
	Filename string
	Err      error
}

// BatchResult reports the outcome of a batch run. Records holds the
// successful subset in input order; Errors holds one entry per failed image.
type BatchResult struct {
	Records []*datastore.Prediction
	Errors  []BatchError
}

// PredictBatch scores every image in paths. One image's failure is recorded
// and processing continues. After scoring, the novelty detector runs once
// over the successful subset and its flags merge back positionally. A
// canceled context stops the run between images and returns the records
// produced so far along with the context error.
func (a *Aggregator) PredictBatch(ctx context.Context, paths []string, opts BatchOptions) (*BatchResult, error) {
	result := &BatchResult{}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			log.Info("Batch prediction interrupted",
				"scored", len(result.Records), "remaining", len(paths)-i)
			a.mergeNovelty(result.Records)
			return result, err
		}

		record, err := a.PredictOne(ctx, path)
		if err != nil {
			log.Error("Image prediction failed", "filename", filepath.Base(path), "error", err)
			result.Errors = append(result.Errors, BatchError{
				Index:    i,
				Filename: filepath.Base(path),
				Err:      err,
			})
			continue
		}
		result.Records = append(result.Records, record)

		if opts.OnRecord != nil {
			if err := opts.OnRecord(record); err != nil {
				log.Error("Record callback failed", "filename", record.Filename, "error", err)
			}
		}
	}

	a.mergeNovelty(result.Records)
	return result, nil
}

// mergeNovelty runs the detector over the records and merges flags back by
// positional index.
func (a *Aggregator) mergeNovelty(records []*datastore.Prediction) {
	if !a.detector.IsEnabled() || len(records) == 0 {
		return
	}
	features := make([]float64, len(records))
	for i, r := range records {
		features[i] = r.MinConfidence()
	}
	flags := a.detector.Detect(features)
	outliers := 0
	for i, f := range flags {
		records[i].IsOutlier = f.IsOutlier
		records[i].OutlierScore = f.Score
		if f.IsOutlier {
			outliers++
		}
	}
	if a.metrics != nil && outliers > 0 {
		a.metrics.RecordOutliers(outliers)
	}
}

func (a *Aggregator) recordCollaboratorError(collaborator string) {
	if a.metrics != nil {
		a.metrics.RecordCollaboratorError(collaborator)
	}
}

// validateRecord rejects records with any confidence style field outside
// [0,1]. Out-of-range values indicate a broken collaborator and are never
// clamped.
func validateRecord(p *datastore.Prediction) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"type_confidence", p.TypeConfidence},
		{"airline_confidence", p.AirlineConfidence},
		{"registration_confidence", p.RegistrationConfidence},
		{"clarity", p.Clarity},
		{"occlusion", p.Occlusion},
		{"quality_confidence", p.QualityConfidence},
	}
	for _, f := range fields {
		if f.value < 0 || f.value > 1 {
			return errors.Newf("%s out of range: %g", f.name, f.value).
				Component("predictor").
				Category(errors.CategoryValidation).
				FileContext(p.Filename).
				Context("field", f.name).
				Build()
		}
	}
	return nil
}
