package training_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tablab/tablab/internal/api"
	"github.com/tablab/tablab/internal/debounce"
	"github.com/tablab/tablab/internal/metrics"
	"github.com/tablab/tablab/internal/training"
)

func newComposer(t *testing.T) (*training.Composer, chan debounce.Result[*api.NameCheck]) {
	t.Helper()

	results := make(chan debounce.Result[*api.NameCheck], 4)
	c := training.NewComposer(
		5*time.Millisecond,
		func(_ context.Context, name string) (*api.NameCheck, error) {
			return &api.NameCheck{Exists: name == "taken"}, nil
		},
		results,
	)
	return c, results
}

func waitResult(t *testing.T, results chan debounce.Result[*api.NameCheck]) debounce.Result[*api.NameCheck] {
	t.Helper()
	select {
	case res := <-results:
		return res
	case <-time.After(time.Second):
		t.Fatal("no name check result")
		return debounce.Result[*api.NameCheck]{}
	}
}

func TestMissingReasonsOrder(t *testing.T) {
	c, _ := newComposer(t)

	require.Equal(t, []string{
		"choose a dataset",
		"choose a target column",
		"name the model",
	}, c.MissingReasons())

	c.SetDataset("ds-1", "housing.csv")
	require.Equal(t, []string{
		"choose a target column",
		"name the model",
	}, c.MissingReasons())

	c.SetTargetColumn("price")
	c.SetModelType("")
	require.Equal(t, []string{
		"choose a model type or auto",
		"name the model",
	}, c.MissingReasons())
}

func TestSubmitGatedOnPendingNameCheck(t *testing.T) {
	c, results := newComposer(t)
	c.SetDataset("ds-1", "housing.csv")
	c.SetTargetColumn("price")

	c.SetModelName("housing-v1")
	require.Equal(t, training.NamePending, c.NameState())
	require.Contains(t, c.MissingReasons(), "name check in progress")
	require.False(t, c.CanSubmit())

	require.True(t, c.ApplyNameCheck(waitResult(t, results)))
	require.Equal(t, training.NameAvailable, c.NameState())
	require.True(t, c.CanSubmit())
}

func TestTakenNameBlocksSubmit(t *testing.T) {
	c, results := newComposer(t)
	c.SetDataset("ds-1", "housing.csv")
	c.SetTargetColumn("price")

	c.SetModelName("taken")
	c.ApplyNameCheck(waitResult(t, results))

	require.Equal(t, training.NameTaken, c.NameState())
	require.Contains(t, c.MissingReasons(), "model name already in use")
	require.False(t, c.CanSubmit())
}

func TestFailedNameCheckDoesNotBlock(t *testing.T) {
	results := make(chan debounce.Result[*api.NameCheck], 1)
	c := training.NewComposer(
		5*time.Millisecond,
		func(_ context.Context, _ string) (*api.NameCheck, error) {
			return nil, errors.New("connection refused")
		},
		results,
	)
	c.SetDataset("ds-1", "housing.csv")
	c.SetTargetColumn("price")

	c.SetModelName("housing-v1")
	c.ApplyNameCheck(waitResult(t, results))

	require.Equal(t, training.NameCheckFailed, c.NameState())
	require.True(t, c.CanSubmit())
}

func TestAutoNameWaivesNameReasons(t *testing.T) {
	c, _ := newComposer(t)
	c.SetDataset("ds-1", "housing.csv")
	c.SetTargetColumn("price")

	c.SetModelName("taken")
	require.Equal(t, training.NamePending, c.NameState())

	c.SetAutoName(true)
	require.Equal(t, training.NameUnknown, c.NameState())
	require.Empty(t, c.MissingReasons())
	require.True(t, c.CanSubmit())

	req := c.BuildRequest("u-1")
	require.True(t, req.AutoName)
	require.Empty(t, req.ModelName)
}

func TestDisablingAutoNameRechecksName(t *testing.T) {
	c, results := newComposer(t)
	c.SetAutoName(true)
	c.SetModelName("housing-v1")
	require.Equal(t, training.NameUnknown, c.NameState())

	c.SetAutoName(false)
	require.Equal(t, training.NamePending, c.NameState())
	require.True(t, c.ApplyNameCheck(waitResult(t, results)))
	require.Equal(t, training.NameAvailable, c.NameState())
}

func TestStaleNameCheckDiscarded(t *testing.T) {
	c, results := newComposer(t)

	c.SetModelName("first")
	stale := waitResult(t, results)

	c.SetModelName("second-name")
	require.False(t, c.ApplyNameCheck(stale))
	require.Equal(t, training.NamePending, c.NameState())
}

func TestEmptyNameResetsState(t *testing.T) {
	c, _ := newComposer(t)

	c.SetModelName("housing-v1")
	require.Equal(t, training.NamePending, c.NameState())

	c.SetModelName("   ")
	require.Equal(t, training.NameUnknown, c.NameState())
	require.Contains(t, c.MissingReasons(), "name the model")
}

func TestDatasetChangeClearsTarget(t *testing.T) {
	c, _ := newComposer(t)
	c.SetDataset("ds-1", "housing.csv")
	c.SetTargetColumn("price")
	c.SetProblemType("regression")

	c.SetDataset("ds-2", "churn.csv")

	draft := c.Draft()
	require.Empty(t, draft.TargetColumn)
	require.Empty(t, draft.ProblemType)

	// Re-selecting the same dataset keeps the target.
	c.SetTargetColumn("churned")
	c.SetDataset("ds-2", "churn.csv")
	require.Equal(t, "churned", c.Draft().TargetColumn)
}

func TestBuildRequestClearsPreviousResult(t *testing.T) {
	c, _ := newComposer(t)
	c.SetDataset("ds-1", "housing.csv")
	c.SetTargetColumn("price")
	c.SetModelName("  housing-v1  ")

	c.SetResult(&api.TrainResponse{
		ProblemType: "regression",
		Metrics:     map[string]any{"r2_score": 0.8},
	}, nil)
	require.NotNil(t, c.Result())

	req := c.BuildRequest("u-1")
	require.Equal(t, "u-1", req.UserID)
	require.Equal(t, "housing-v1", req.ModelName)
	require.Equal(t, training.ModelTypeAuto, req.ModelType)
	require.InDelta(t, 0.2, req.TestSize, 1e-9)
	require.Nil(t, c.Result())
}

func TestSetResultInterpretsRun(t *testing.T) {
	c, _ := newComposer(t)
	c.SetModelType(training.ModelTypeAuto)

	c.SetResult(&api.TrainResponse{
		ModelType:   "gradient_boosting",
		ProblemType: "regression",
		Metrics:     map[string]any{"r2_score": 0.93, "mae": 1.4},
	}, &api.ResultBundle{Warnings: []string{"feature importance unavailable"}})

	res := c.Result()
	require.NotNil(t, res.Metrics.R2)
	require.Equal(t, metrics.BandExcellent, res.Band)
	require.Contains(t, res.AutoNote, "Gradient Boosting")
	require.Len(t, res.Bundle.Warnings, 1)
}

// TestSubmittabilityProperty drives the composer with randomized drafts
// and checks CanSubmit against the readiness rule directly: dataset,
// target, and a model (or auto) set, with naming resolved.
func TestSubmittabilityProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	names := []string{"", "fresh-name", "taken"}

	for i := 0; i < 100; i++ {
		c, results := newComposer(t)

		hasDataset := rng.Intn(2) == 0
		hasTarget := rng.Intn(2) == 0
		hasModel := rng.Intn(2) == 0
		autoName := rng.Intn(2) == 0
		name := names[rng.Intn(len(names))]

		if hasDataset {
			c.SetDataset("ds-1", "housing.csv")
		}
		if hasTarget {
			c.SetTargetColumn("price")
		}
		if !hasModel {
			c.SetModelType("")
		}
		c.SetAutoName(autoName)
		c.SetModelName(name)
		if !autoName && name != "" {
			c.ApplyNameCheck(waitResult(t, results))
		}

		nameResolved := autoName || name == "fresh-name"
		want := hasDataset && hasTarget && hasModel && nameResolved
		require.Equalf(t, want, c.CanSubmit(),
			"dataset=%v target=%v model=%v auto=%v name=%q reasons=%v",
			hasDataset, hasTarget, hasModel, autoName, name, c.MissingReasons())
	}
}

func TestAdvancedOptionsInRequest(t *testing.T) {
	c, _ := newComposer(t)
	c.SetDataset("ds-1", "housing.csv")
	c.SetTargetColumn("price")
	c.SetAutoName(true)

	c.SetRandomSeed(42)
	c.SetCrossValidation(true, 5)
	c.SetPolynomialFeatures(true, 3)
	c.SetTargetEncoder(true)

	req := c.BuildRequest("u-1")
	require.NotNil(t, req.RandomSeed)
	require.Equal(t, int64(42), *req.RandomSeed)
	require.True(t, req.CrossVal)
	require.Equal(t, 5, req.CVFolds)
	require.Equal(t, map[string]any{
		"use_polynomial":     true,
		"polynomial_degree":  3,
		"use_target_encoder": true,
	}, req.Hyperparams)

	c.ClearRandomSeed()
	c.SetCrossValidation(false, 0)
	c.SetPolynomialFeatures(false, 0)
	c.SetTargetEncoder(false)
	req = c.BuildRequest("u-1")
	require.Nil(t, req.RandomSeed)
	require.False(t, req.CrossVal)
	require.Zero(t, req.CVFolds)
	require.Nil(t, req.Hyperparams)
}

func TestInvalidAdvancedOptionsIgnored(t *testing.T) {
	c, _ := newComposer(t)

	c.SetCrossValidation(true, 1)
	require.False(t, c.Draft().CrossVal)

	c.SetPolynomialFeatures(true, 1)
	c.SetPolynomialFeatures(true, 6)
	require.False(t, c.Draft().UsePolynomial)
	require.Zero(t, c.Draft().PolynomialDegree)
}

func TestSetTestSizeRange(t *testing.T) {
	c, _ := newComposer(t)

	c.SetTestSize(0.3)
	require.InDelta(t, 0.3, c.Draft().TestSize, 1e-9)

	c.SetTestSize(0)
	c.SetTestSize(1.5)
	require.InDelta(t, 0.3, c.Draft().TestSize, 1e-9)
}
