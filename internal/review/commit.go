package review

import (
	"fmt"
	"path/filepath"

	"github.com/aerolabel/aerolabel-go/internal/conf"
	"github.com/aerolabel/aerolabel-go/internal/datastore"
	"github.com/aerolabel/aerolabel-go/internal/errors"
	"github.com/aerolabel/aerolabel-go/internal/observability/metrics"
)

// CommitMode records how the label was produced, which determines the
// review status stamped on the label row.
type CommitMode int

const (
	// ModeManual is a label entered by hand with no prediction involved.
	ModeManual CommitMode = iota
	// ModeReview is a human review of an AI prediction with possible edits.
	ModeReview
	// ModeApprove is a single-image approval of the AI values as-is.
	ModeApprove
	// ModeBulk is an automatic approval from the rubber-stamp queue.
	ModeBulk
)

func (m CommitMode) reviewStatus() string {
	switch m {
	case ModeReview:
		return datastore.ReviewReviewed
	case ModeApprove:
		return datastore.ReviewApproved
	case ModeBulk:
		return datastore.ReviewAutoApproved
	default:
		return datastore.ReviewPending
	}
}

// CommitRequest names an intake image and the source of truth for its
// label fields. Each use-AI mark is independent: a marked field takes the
// prediction value when one exists, with the user value as fallback, so a
// reviewer can accept the classification while correcting a misread
// registration. An unmarked field takes the user value only.
type CommitRequest struct {
	Filename string
	HolderID string // reviewer session performing the commit, empty for system commits
	Mode     CommitMode

	UseAIType         bool
	UseAIAirline      bool
	UseAIRegistration bool

	TypeID       string
	TypeName     string
	AirlineID    string
	AirlineName  string
	Registration string
}

// usesAI reports whether any field is marked to take the prediction value.
func (r *CommitRequest) usesAI() bool {
	return r.UseAIType || r.UseAIAirline || r.UseAIRegistration
}

// UseAllAI marks every field to take the prediction value, as the
// approval paths do.
func (r *CommitRequest) UseAllAI() *CommitRequest {
	r.UseAIType = true
	r.UseAIAirline = true
	r.UseAIRegistration = true
	return r
}

// BulkItem is the per-filename outcome of a bulk commit.
type BulkItem struct {
	Filename string
	Label    *datastore.Label
	Err      error
}

// BulkResult aggregates a bulk commit run.
type BulkResult struct {
	Items     []BulkItem
	Committed int
	Failed    int
}

// Committer runs the atomic prediction-to-label conversion.
type Committer struct {
	ds       datastore.Interface
	triage   *Triage
	settings *conf.Settings
	metrics  *metrics.ReviewMetrics
}

// SetMetrics attaches the review metric collectors. Safe to leave unset.
func (c *Committer) SetMetrics(m *metrics.ReviewMetrics) {
	c.metrics = m
}

// NewCommitter creates a committer over the datastore. The triage is
// optional and only used to invalidate its stats cache after a commit.
func NewCommitter(settings *conf.Settings, ds datastore.Interface, triage *Triage) *Committer {
	return &Committer{
		ds:       ds,
		triage:   triage,
		settings: settings,
	}
}

// Commit converts one intake image into a permanent label. The file move
// and the label insert appear atomic: an insert failure moves the file
// back to intake before the error returns.
func (c *Committer) Commit(req *CommitRequest) (label *datastore.Label, err error) {
	defer func() {
		if c.metrics == nil {
			return
		}
		if err != nil {
			c.metrics.RecordCommitError()
		} else {
			c.metrics.RecordCommit(label.ReviewStatus)
		}
	}()

	if req.Filename == "" {
		return nil, errors.Newf("filename is required").
			Component("review").
			Category(errors.CategoryValidation).
			Build()
	}

	// An image can be labeled at most once. Checking before the file move
	// keeps a duplicate commit from relocating an already-archived file.
	labeled, err := c.ds.HasLabelForSource(req.Filename)
	if err != nil {
		return nil, err
	}
	if labeled {
		return nil, errors.Newf("label already exists for %s", req.Filename).
			Component("review").
			Category(errors.CategoryConflict).
			FileContext(req.Filename).
			Build()
	}

	// A live lock held by someone else blocks the commit.
	lock, err := c.ds.GetLockInfo(req.Filename, c.settings.Locks.TTL)
	if err != nil {
		return nil, fmt.Errorf("checking lock for %s: %w", req.Filename, err)
	}
	if lock != nil && lock.HolderID != req.HolderID {
		return nil, errors.Newf("image %s is locked by %s", req.Filename, lock.HolderID).
			Component("review").
			Category(errors.CategoryConflict).
			FileContext(req.Filename).
			Build()
	}

	var prediction *datastore.Prediction
	if req.usesAI() {
		p, err := c.ds.GetPrediction(req.Filename)
		if err != nil {
			if errors.IsNotFound(err) {
				return nil, errors.Newf("no prediction for %s to approve", req.Filename).
					Component("review").
					Category(errors.CategoryNotFound).
					FileContext(req.Filename).
					Build()
			}
			return nil, err
		}
		// A processed prediction was already approved or rejected, so it
		// is no longer pending and cannot back another AI approval.
		if p.Processed {
			return nil, errors.Newf("prediction for %s was already reviewed", req.Filename).
				Component("review").
				Category(errors.CategoryConflict).
				FileContext(req.Filename).
				Build()
		}
		prediction = &p
	}

	label, err = c.resolveLabel(req, prediction)
	if err != nil {
		return nil, err
	}

	seq, err := c.ds.NextSequence(label.TypeID)
	if err != nil {
		return nil, err
	}
	ext := filepath.Ext(req.Filename)
	label.FileName = fmt.Sprintf("%s-%04d%s", label.TypeID, seq, ext)

	sourcePath := filepath.Join(c.settings.Intake.ImagesDir, req.Filename)
	targetPath := filepath.Join(c.settings.Intake.LabeledDir, label.FileName)

	if err := moveFile(sourcePath, targetPath); err != nil {
		return nil, errors.New(fmt.Errorf("relocating %s: %w", req.Filename, err)).
			Component("review").
			Category(errors.CategoryFileIO).
			FileContext(req.Filename).
			Build()
	}

	if err := c.ds.InsertLabel(label); err != nil {
		// Compensate: the move must not be observable when the row is not.
		if moveBackErr := moveFile(targetPath, sourcePath); moveBackErr != nil {
			log.Error("Failed to move image back to intake after insert failure",
				"filename", req.Filename, "archived", label.FileName, "error", moveBackErr)
		}
		return nil, err
	}

	if prediction != nil {
		if err := c.ds.MarkPredictionProcessed(req.Filename); err != nil {
			log.Error("Label committed but prediction not marked processed",
				"filename", req.Filename, "error", err)
		}
	}

	if c.triage != nil {
		c.triage.InvalidateStats()
	}

	log.Info("Label committed",
		"filename", req.Filename,
		"archived", label.FileName,
		"type", label.TypeID,
		"airline", label.AirlineID,
		"status", label.ReviewStatus)
	return label, nil
}

// resolveLabel applies the field resolution rule and builds the label row.
// Every resolvable field follows: AI value when requested and present,
// else the user-supplied value, else a validation error naming the field.
func (c *Committer) resolveLabel(req *CommitRequest, prediction *datastore.Prediction) (*datastore.Label, error) {
	var aiType, aiAirline, aiRegistration string
	if prediction != nil {
		aiType = prediction.TypeClass
		aiAirline = prediction.AirlineClass
		aiRegistration = prediction.Registration
	}

	typeID, err := resolveField("type", req.UseAIType, aiType, req.TypeID)
	if err != nil {
		return nil, err
	}
	airlineID, err := resolveField("airline", req.UseAIAirline, aiAirline, req.AirlineID)
	if err != nil {
		return nil, err
	}
	registration, err := resolveField("registration", req.UseAIRegistration, aiRegistration, req.Registration)
	if err != nil {
		return nil, err
	}

	typeName := req.TypeName
	if typeName == "" {
		typeName = c.typeName(typeID)
	}
	airlineName := req.AirlineName
	if airlineName == "" {
		airlineName = c.airlineName(airlineID)
	}

	label := &datastore.Label{
		OriginalFileName: req.Filename,
		TypeID:           typeID,
		TypeName:         typeName,
		AirlineID:        airlineID,
		AirlineName:      airlineName,
		Registration:     registration,
		ReviewStatus:     req.Mode.reviewStatus(),
		AIApproved:       req.usesAI() && (req.Mode == ModeApprove || req.Mode == ModeBulk),
	}
	if prediction != nil {
		label.Clarity = prediction.Clarity
		label.Occlusion = prediction.Occlusion
		label.RegistrationArea = prediction.RegistrationArea
	}
	return label, nil
}

// typeName resolves a type code to its display name through the
// reference table, falling back to the code itself.
func (c *Committer) typeName(code string) string {
	types, err := c.ds.GetAircraftTypes()
	if err != nil {
		log.Warn("Failed to read aircraft type reference table", "error", err)
		return code
	}
	for _, t := range types {
		if t.Code == code {
			return t.Name
		}
	}
	return code
}

// airlineName resolves an airline code to its display name through the
// reference table, falling back to the code itself.
func (c *Committer) airlineName(code string) string {
	airlines, err := c.ds.GetAirlines()
	if err != nil {
		log.Warn("Failed to read airline reference table", "error", err)
		return code
	}
	for _, a := range airlines {
		if a.Code == code {
			return a.Name
		}
	}
	return code
}

// resolveField picks the AI value when requested and present, then the
// user value, then fails naming the field.
func resolveField(field string, useAI bool, aiValue, userValue string) (string, error) {
	if useAI && aiValue != "" {
		return aiValue, nil
	}
	if userValue != "" {
		return userValue, nil
	}
	return "", errors.Newf("required field %s has no value from either source", field).
		Component("review").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}

// BulkCommit applies Commit to each filename in the rubber-stamp queue
// fashion. One item's failure is captured and the rest still commit.
func (c *Committer) BulkCommit(filenames []string, holderID string) *BulkResult {
	result := &BulkResult{}
	for _, filename := range filenames {
		label, err := c.Commit((&CommitRequest{
			Filename: filename,
			HolderID: holderID,
			Mode:     ModeBulk,
		}).UseAllAI())
		item := BulkItem{Filename: filename, Label: label, Err: err}
		result.Items = append(result.Items, item)
		if err != nil {
			log.Error("Bulk commit item failed", "filename", filename, "error", err)
			result.Failed++
			continue
		}
		result.Committed++
	}
	log.Info("Bulk commit finished",
		"total", len(filenames), "committed", result.Committed, "failed", result.Failed)
	return result
}

// Reject marks the prediction processed without creating a label. With
// discard set the source image is also excluded from future intake scans.
func (c *Committer) Reject(filename string, discard bool) error {
	if err := c.ds.MarkPredictionProcessed(filename); err != nil {
		return err
	}
	if discard {
		if err := c.ds.DiscardImage(filename); err != nil {
			return err
		}
	}
	if c.triage != nil {
		c.triage.InvalidateStats()
	}
	if c.metrics != nil {
		c.metrics.RecordReject()
	}
	log.Info("Prediction rejected", "filename", filename, "discarded", discard)
	return nil
}
