// capability.go defines the collaborator contracts the aggregator scores
// images through, plus the disabled variants selected at construction time
// when a collaborator is configured off.
package predictor

import (
	"context"

	"github.com/aerolabel/aerolabel-go/internal/inference"
)

// Neutral quality values reported when the quality scorer is disabled or
// fails. A middling clarity and low occlusion keep the record reviewable
// without pretending the image was actually assessed.
const (
	FallbackClarity           = 0.8
	FallbackOcclusion         = 0.2
	FallbackQualityConfidence = 0.0
)

// Capability is implemented by every scoring collaborator so the
// aggregator can query availability and release resources uniformly.
type Capability interface {
	IsEnabled() bool
	Cleanup() error
}

// Classifier scores an image on one classification axis.
type Classifier interface {
	Capability
	Classify(ctx context.Context, image []byte, axis string) (inference.ClassResult, error)
}

// TextRecognizer extracts registration text from an image.
type TextRecognizer interface {
	Capability
	Recognize(ctx context.Context, image []byte) (inference.OCRResult, error)
}

// QualityScorer assesses image clarity and occlusion.
type QualityScorer interface {
	Capability
	Assess(ctx context.Context, image []byte) (inference.QualityResult, error)
}

// remoteCapability adapts the inference client to the Capability contract.
// The client holds no local resources, its lifecycle ends with the process.
type remoteCapability struct {
	client *inference.Client
}

func (r *remoteCapability) IsEnabled() bool { return true }
func (r *remoteCapability) Cleanup() error  { return nil }

type remoteClassifier struct {
	remoteCapability
}

func (r *remoteClassifier) Classify(ctx context.Context, image []byte, axis string) (inference.ClassResult, error) {
	return r.client.Classify(ctx, image, axis)
}

type remoteRecognizer struct {
	remoteCapability
}

func (r *remoteRecognizer) Recognize(ctx context.Context, image []byte) (inference.OCRResult, error) {
	return r.client.Recognize(ctx, image)
}

type remoteScorer struct {
	remoteCapability
}

func (r *remoteScorer) Assess(ctx context.Context, image []byte) (inference.QualityResult, error) {
	return r.client.Assess(ctx, image)
}

// disabledRecognizer returns an empty recognition result without calling out.
type disabledRecognizer struct{}

func (disabledRecognizer) IsEnabled() bool { return false }
func (disabledRecognizer) Cleanup() error  { return nil }
func (disabledRecognizer) Recognize(context.Context, []byte) (inference.OCRResult, error) {
	return inference.OCRResult{}, nil
}

// disabledScorer returns the neutral quality defaults without calling out.
type disabledScorer struct{}

func (disabledScorer) IsEnabled() bool { return false }
func (disabledScorer) Cleanup() error  { return nil }
func (disabledScorer) Assess(context.Context, []byte) (inference.QualityResult, error) {
	return inference.QualityResult{
		Clarity:    FallbackClarity,
		Occlusion:  FallbackOcclusion,
		Confidence: FallbackQualityConfidence,
	}, nil
}
