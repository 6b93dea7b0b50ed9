// Package training assembles training requests: the draft the user
// edits, readiness evaluation, debounced name checking, and the
// interpreted result of a finished run.
package training

import (
	"context"
	"strings"
	"time"

	"github.com/tablab/tablab/internal/api"
	"github.com/tablab/tablab/internal/debounce"
	"github.com/tablab/tablab/internal/metrics"
)

// ModelTypeAuto asks the service to pick the best model itself.
const ModelTypeAuto = "auto"

// NameState is the lifecycle of the draft name's availability check.
type NameState int

const (
	// NameUnknown means no check has been requested, typically an
	// empty name.
	NameUnknown NameState = iota
	// NamePending means a check is debouncing or in flight.
	NamePending
	// NameAvailable means the service confirmed the name is free.
	NameAvailable
	// NameTaken means the service reported a collision.
	NameTaken
	// NameCheckFailed means the check errored; submission is allowed
	// and the server makes the final call.
	NameCheckFailed
)

// Draft is the user's in-progress training request.
type Draft struct {
	DatasetID    string
	DatasetName  string
	TargetColumn string
	ModelType    string
	ModelName    string
	AutoName     bool
	ProblemType  string
	TestSize     float64
	Description  string

	// RandomSeed fixes the service's train/test split for
	// reproducibility; nil lets the service pick.
	RandomSeed *int64

	CrossVal bool
	CVFolds  int

	UsePolynomial    bool
	PolynomialDegree int
	UseTargetEncoder bool
}

// Result is an interpreted completed run.
type Result struct {
	Response *api.TrainResponse
	Metrics  metrics.Set
	Band     metrics.Band

	// AutoNote explains automatic model selection; empty when the
	// model was chosen explicitly.
	AutoNote string

	Bundle *api.ResultBundle
}

// Composer owns a Draft, its debounced name check, and the last run's
// Result. It is not safe for concurrent use; the UI event loop is its
// only caller.
type Composer struct {
	draft Draft

	nameState   NameState
	nameMessage string
	checker     *debounce.Debouncer[*api.NameCheck]

	result *Result
}

// NewComposer creates a Composer whose name checks go through check,
// debounced by window, with results delivered on results.
func NewComposer(
	window time.Duration,
	check func(ctx context.Context, name string) (*api.NameCheck, error),
	results chan<- debounce.Result[*api.NameCheck],
) *Composer {
	c := &Composer{
		draft: Draft{ModelType: ModelTypeAuto, TestSize: 0.2},
	}
	c.checker = debounce.New(window, func(ctx context.Context, name string) (*api.NameCheck, error) {
		return check(ctx, name)
	}, results)
	return c
}

// Draft returns the current draft.
func (c *Composer) Draft() Draft { return c.draft }

// NameState returns the availability state of the draft name.
func (c *Composer) NameState() NameState { return c.nameState }

// NameMessage returns the service's explanation for the name state.
func (c *Composer) NameMessage() string { return c.nameMessage }

// Result returns the last completed run, or nil.
func (c *Composer) Result() *Result { return c.result }

// SetDataset selects the training dataset. Changing the dataset clears
// the target column, which belonged to the old dataset's schema.
func (c *Composer) SetDataset(id, name string) {
	if c.draft.DatasetID == id {
		return
	}
	c.draft.DatasetID = id
	c.draft.DatasetName = name
	c.draft.TargetColumn = ""
	c.draft.ProblemType = ""
}

// SetTargetColumn selects the column to predict.
func (c *Composer) SetTargetColumn(column string) {
	c.draft.TargetColumn = column
}

// SetModelType selects a model, or ModelTypeAuto for automatic choice.
func (c *Composer) SetModelType(modelType string) {
	c.draft.ModelType = modelType
}

// SetProblemType overrides the detected problem type. Empty defers to
// the service's detection.
func (c *Composer) SetProblemType(problemType string) {
	c.draft.ProblemType = problemType
}

// SetTestSize sets the holdout fraction. Out-of-range values are
// ignored.
func (c *Composer) SetTestSize(size float64) {
	if size <= 0 || size >= 1 {
		return
	}
	c.draft.TestSize = size
}

// SetDescription sets the free-text description.
func (c *Composer) SetDescription(desc string) {
	c.draft.Description = desc
}

// SetRandomSeed fixes the run's random seed.
func (c *Composer) SetRandomSeed(seed int64) {
	c.draft.RandomSeed = &seed
}

// ClearRandomSeed defers the seed choice back to the service.
func (c *Composer) ClearRandomSeed() {
	c.draft.RandomSeed = nil
}

// SetCrossValidation toggles k-fold cross validation. Fewer than 2
// folds is not a valid scheme and is ignored.
func (c *Composer) SetCrossValidation(on bool, folds int) {
	if on && folds < 2 {
		return
	}
	c.draft.CrossVal = on
	c.draft.CVFolds = 0
	if on {
		c.draft.CVFolds = folds
	}
}

// SetPolynomialFeatures toggles polynomial feature expansion. The
// service accepts degrees 2 through 5; anything else is ignored.
func (c *Composer) SetPolynomialFeatures(on bool, degree int) {
	if on && (degree < 2 || degree > 5) {
		return
	}
	c.draft.UsePolynomial = on
	c.draft.PolynomialDegree = 0
	if on {
		c.draft.PolynomialDegree = degree
	}
}

// SetTargetEncoder toggles target encoding of high-cardinality
// categorical features.
func (c *Composer) SetTargetEncoder(on bool) {
	c.draft.UseTargetEncoder = on
}

// SetAutoName toggles server-side name generation. Turning it on
// cancels any pending availability check; turning it off re-checks
// whatever name the draft already holds.
func (c *Composer) SetAutoName(auto bool) {
	if c.draft.AutoName == auto {
		return
	}
	c.draft.AutoName = auto
	if auto {
		c.checker.Cancel()
		c.nameState = NameUnknown
		c.nameMessage = ""
		return
	}
	c.SetModelName(c.draft.ModelName)
}

// SetModelName updates the draft name and schedules a debounced
// availability check. An empty or whitespace name, or a draft with
// auto-naming on, cancels any pending check instead.
func (c *Composer) SetModelName(name string) {
	c.draft.ModelName = name

	if c.draft.AutoName || strings.TrimSpace(name) == "" {
		c.checker.Cancel()
		c.nameState = NameUnknown
		c.nameMessage = ""
		return
	}

	c.nameState = NamePending
	c.nameMessage = ""
	c.checker.Set(strings.TrimSpace(name))
}

// ApplyNameCheck installs a delivered name-check result. Results for a
// superseded input are discarded and the method reports whether the
// result applied.
func (c *Composer) ApplyNameCheck(res debounce.Result[*api.NameCheck]) bool {
	if res.Seq != c.checker.Latest() {
		return false
	}

	switch {
	case res.Err != nil:
		c.nameState = NameCheckFailed
		c.nameMessage = res.Err.Error()
	case res.Value.Exists:
		c.nameState = NameTaken
		c.nameMessage = res.Value.Message
	default:
		c.nameState = NameAvailable
		c.nameMessage = res.Value.Message
	}
	return true
}

// MissingReasons lists what still blocks submission, in the order the
// form presents the fields: dataset, target, model, name.
func (c *Composer) MissingReasons() []string {
	var reasons []string

	if c.draft.DatasetID == "" {
		reasons = append(reasons, "choose a dataset")
	}
	if c.draft.TargetColumn == "" {
		reasons = append(reasons, "choose a target column")
	}
	if c.draft.ModelType == "" {
		reasons = append(reasons, "choose a model type or auto")
	}

	switch {
	case c.draft.AutoName:
		// Server picks the name.
	case strings.TrimSpace(c.draft.ModelName) == "":
		reasons = append(reasons, "name the model")
	case c.nameState == NamePending:
		reasons = append(reasons, "name check in progress")
	case c.nameState == NameTaken:
		reasons = append(reasons, "model name already in use")
	}

	return reasons
}

// CanSubmit reports whether the draft is ready to send.
func (c *Composer) CanSubmit() bool {
	return len(c.MissingReasons()) == 0
}

// BuildRequest assembles the wire request for the current draft. The
// previous run's result is cleared: a new submission makes it stale.
func (c *Composer) BuildRequest(userID string) api.TrainRequest {
	c.result = nil

	req := api.TrainRequest{
		UserID:       userID,
		DatasetID:    c.draft.DatasetID,
		TargetColumn: c.draft.TargetColumn,
		ModelType:    c.draft.ModelType,
		ProblemType:  c.draft.ProblemType,
		TestSize:     c.draft.TestSize,
		RandomSeed:   c.draft.RandomSeed,
		CrossVal:     c.draft.CrossVal,
		CVFolds:      c.draft.CVFolds,
		Description:  c.draft.Description,
	}
	if c.draft.AutoName {
		req.AutoName = true
	} else {
		req.ModelName = strings.TrimSpace(c.draft.ModelName)
	}
	if c.draft.UsePolynomial || c.draft.UseTargetEncoder {
		req.Hyperparams = map[string]any{}
		if c.draft.UsePolynomial {
			req.Hyperparams["use_polynomial"] = true
			req.Hyperparams["polynomial_degree"] = c.draft.PolynomialDegree
		}
		if c.draft.UseTargetEncoder {
			req.Hyperparams["use_target_encoder"] = true
		}
	}
	return req
}

// SetResult interprets a completed run and stores it: normalized
// metrics, the quality band, and the auto-selection note.
func (c *Composer) SetResult(resp *api.TrainResponse, bundle *api.ResultBundle) {
	problemType := metrics.ProblemType(resp.ProblemType)
	set := metrics.Normalize(resp.Metrics, problemType)

	c.result = &Result{
		Response: resp,
		Metrics:  set,
		Band:     metrics.Quality(set, problemType),
		AutoNote: metrics.ExplainAutoSelection(c.draft.ModelType, resp.ModelType, set, problemType),
		Bundle:   bundle,
	}
}

// AttachBundle adds the secondary detail to an already-stored result.
// A nil result means a newer submission superseded the run; the bundle
// is dropped.
func (c *Composer) AttachBundle(bundle *api.ResultBundle) {
	if c.result == nil {
		return
	}
	c.result.Bundle = bundle
}

// Reset clears the draft back to its initial state, keeping nothing.
func (c *Composer) Reset() {
	c.checker.Cancel()
	c.draft = Draft{ModelType: ModelTypeAuto, TestSize: 0.2}
	c.nameState = NameUnknown
	c.nameMessage = ""
	c.result = nil
}
