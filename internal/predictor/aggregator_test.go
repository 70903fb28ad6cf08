package predictor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aerolabel/aerolabel-go/internal/datastore"
	"github.com/aerolabel/aerolabel-go/internal/errors"
	"github.com/aerolabel/aerolabel-go/internal/inference"
	"github.com/aerolabel/aerolabel-go/internal/novelty"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
	)
}

// fakeClassifier returns a canned result per axis, or fails for filenames
// listed in failFor.
type fakeClassifier struct {
	results map[string]inference.ClassResult
	err     error
	calls   int
}

func (f *fakeClassifier) IsEnabled() bool { return true }
func (f *fakeClassifier) Cleanup() error  { return nil }
func (f *fakeClassifier) Classify(_ context.Context, image []byte, axis string) (inference.ClassResult, error) {
	f.calls++
	if f.err != nil {
		return inference.ClassResult{}, f.err
	}
	if string(image) == "bad" {
		return inference.ClassResult{}, errors.Newf("model rejected image").
			Component("inference").
			Category(errors.CategoryCollaborator).
			Build()
	}
	return f.results[axis], nil
}

type fakeRecognizer struct {
	result inference.OCRResult
	err    error
}

func (f *fakeRecognizer) IsEnabled() bool { return true }
func (f *fakeRecognizer) Cleanup() error  { return nil }
func (f *fakeRecognizer) Recognize(context.Context, []byte) (inference.OCRResult, error) {
	return f.result, f.err
}

type fakeScorer struct {
	result inference.QualityResult
	err    error
}

func (f *fakeScorer) IsEnabled() bool { return true }
func (f *fakeScorer) Cleanup() error  { return nil }
func (f *fakeScorer) Assess(context.Context, []byte) (inference.QualityResult, error) {
	return f.result, f.err
}

type fakeDetector struct {
	flags []novelty.Flag
}

func (f *fakeDetector) IsEnabled() bool { return true }
func (f *fakeDetector) Cleanup() error  { return nil }
func (f *fakeDetector) Detect([]float64) []novelty.Flag {
	return f.flags
}

func defaultClassResults() map[string]inference.ClassResult {
	return map[string]inference.ClassResult{
		"aircraft": {Class: "A320", Confidence: 0.97},
		"airline":  {Class: "DLH", Confidence: 0.96},
	}
}

func newTestAggregator() *Aggregator {
	return &Aggregator{
		classifier:  &fakeClassifier{results: defaultClassResults()},
		recognizer:  &fakeRecognizer{result: inference.OCRResult{Registration: "D-AIZZ", Confidence: 0.9, Area: "0.5 0.5 0.2 0.1"}},
		scorer:      &fakeScorer{result: inference.QualityResult{Clarity: 0.9, Occlusion: 0.1, Confidence: 0.8}},
		detector:    &fakeDetector{},
		typeAxis:    "aircraft",
		airlineAxis: "airline",
		threshold:   0.95,
	}
}

// writeTestImage writes an image file with the given content and returns
// its path. The aggregator treats content "bad" as unclassifiable.
func writeTestImage(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPredictOne_MergesAllCollaborators(t *testing.T) {
	t.Parallel()

	a := newTestAggregator()
	path := writeTestImage(t, t.TempDir(), "plane.jpg", "good")

	record, err := a.PredictOne(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "plane.jpg", record.Filename)
	assert.Equal(t, "A320", record.TypeClass)
	assert.InDelta(t, 0.97, record.TypeConfidence, 1e-9)
	assert.Equal(t, "DLH", record.AirlineClass)
	assert.Equal(t, "D-AIZZ", record.Registration)
	assert.Equal(t, "0.5 0.5 0.2 0.1", record.RegistrationArea)
	assert.InDelta(t, 0.9, record.Clarity, 1e-9)
	assert.False(t, record.IsOutlier)
	assert.False(t, record.Processed)
}

func TestPredictOne_MissingFile(t *testing.T) {
	t.Parallel()

	a := newTestAggregator()

	_, err := a.PredictOne(context.Background(), filepath.Join(t.TempDir(), "nope.jpg"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFileIO))
}

func TestPredictOne_ClassificationFailureIsFatal(t *testing.T) {
	t.Parallel()

	a := newTestAggregator()
	path := writeTestImage(t, t.TempDir(), "plane.jpg", "bad")

	_, err := a.PredictOne(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryCollaborator))
}

func TestPredictOne_BestEffortCollaborators(t *testing.T) {
	t.Parallel()

	a := newTestAggregator()
	a.recognizer = &fakeRecognizer{err: fmt.Errorf("ocr backend down")}
	a.scorer = &fakeScorer{err: fmt.Errorf("quality backend down")}
	path := writeTestImage(t, t.TempDir(), "plane.jpg", "good")

	record, err := a.PredictOne(context.Background(), path)
	require.NoError(t, err, "recognition and quality failures must not fail the record")

	assert.Empty(t, record.Registration)
	assert.InDelta(t, FallbackClarity, record.Clarity, 1e-9)
	assert.InDelta(t, FallbackOcclusion, record.Occlusion, 1e-9)
	assert.Zero(t, record.QualityConfidence)
}

func TestPredictOne_RejectsOutOfRangeConfidence(t *testing.T) {
	t.Parallel()

	a := newTestAggregator()
	a.classifier = &fakeClassifier{results: map[string]inference.ClassResult{
		"aircraft": {Class: "A320", Confidence: 1.3},
		"airline":  {Class: "DLH", Confidence: 0.96},
	}}
	path := writeTestImage(t, t.TempDir(), "plane.jpg", "good")

	_, err := a.PredictOne(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "type_confidence")
}

func TestPredictBatch_IsolatesFailures(t *testing.T) {
	t.Parallel()

	a := newTestAggregator()
	dir := t.TempDir()
	paths := []string{
		writeTestImage(t, dir, "good1.jpg", "good"),
		writeTestImage(t, dir, "bad.jpg", "bad"),
		writeTestImage(t, dir, "good2.jpg", "good"),
	}

	result, err := a.PredictBatch(context.Background(), paths, BatchOptions{})
	require.NoError(t, err)

	require.Len(t, result.Records, 2)
	assert.Equal(t, "good1.jpg", result.Records[0].Filename)
	assert.Equal(t, "good2.jpg", result.Records[1].Filename)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, "bad.jpg", result.Errors[0].Filename)
	assert.True(t, errors.HasCategory(result.Errors[0].Err, errors.CategoryCollaborator))
}

func TestPredictBatch_CallbackPerRecord(t *testing.T) {
	t.Parallel()

	a := newTestAggregator()
	dir := t.TempDir()
	paths := []string{
		writeTestImage(t, dir, "one.jpg", "good"),
		writeTestImage(t, dir, "two.jpg", "good"),
	}

	var seen []string
	result, err := a.PredictBatch(context.Background(), paths, BatchOptions{
		OnRecord: func(p *datastore.Prediction) error {
			seen = append(seen, p.Filename)
			return fmt.Errorf("checkpoint write failed")
		},
	})
	require.NoError(t, err, "callback failures must not abort the batch")
	assert.Len(t, result.Records, 2)
	assert.Equal(t, []string{"one.jpg", "two.jpg"}, seen)
}

func TestPredictBatch_NoveltyMergesPositionally(t *testing.T) {
	t.Parallel()

	a := newTestAggregator()
	a.detector = &fakeDetector{flags: []novelty.Flag{
		{IsOutlier: false, Score: 0},
		{IsOutlier: true, Score: 0.7},
	}}
	dir := t.TempDir()
	paths := []string{
		writeTestImage(t, dir, "usual.jpg", "good"),
		writeTestImage(t, dir, "novel.jpg", "good"),
	}

	result, err := a.PredictBatch(context.Background(), paths, BatchOptions{})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	assert.False(t, result.Records[0].IsOutlier)
	assert.True(t, result.Records[1].IsOutlier)
	assert.InDelta(t, 0.7, result.Records[1].OutlierScore, 1e-9)
}

func TestPredictBatch_InterruptedBetweenImages(t *testing.T) {
	t.Parallel()

	a := newTestAggregator()
	dir := t.TempDir()
	paths := []string{
		writeTestImage(t, dir, "one.jpg", "good"),
		writeTestImage(t, dir, "two.jpg", "good"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	result, err := a.PredictBatch(ctx, paths, BatchOptions{
		OnRecord: func(p *datastore.Prediction) error {
			// The cancellation takes effect before the next image starts
			cancel()
			return nil
		},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, result.Records, 1, "records scored before cancellation are kept")
}

func TestHighConfidence(t *testing.T) {
	t.Parallel()

	a := newTestAggregator()

	p := &datastore.Prediction{TypeConfidence: 0.95, AirlineConfidence: 0.95}
	assert.True(t, a.HighConfidence(p))

	p.TypeConfidence = 0.94
	assert.False(t, a.HighConfidence(p))

	p.TypeConfidence = 0.99
	p.IsOutlier = true
	assert.False(t, a.HighConfidence(p), "outliers never auto approve")
}

func TestAggregatorClose(t *testing.T) {
	t.Parallel()

	a := newTestAggregator()
	assert.NoError(t, a.Close())
}
