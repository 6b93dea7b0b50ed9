package studio

import (
	"time"

	"github.com/tablab/tablab/internal/api"
	"github.com/tablab/tablab/internal/debounce"
)

// TrainTickMsg drives the simulated progress timeline while a training
// request is in flight. Session identifies the run it belongs to.
type TrainTickMsg struct {
	Session uint64
	At      time.Time
}

// TrainDoneMsg reports the outcome of a training request.
type TrainDoneMsg struct {
	Session  uint64
	Response *api.TrainResponse
	Err      error
}

// ResultBundleMsg delivers the secondary detail fetched after training.
type ResultBundleMsg struct {
	Session uint64
	Bundle  *api.ResultBundle
}

// NameCheckMsg delivers a debounced model-name availability result.
type NameCheckMsg struct {
	Result debounce.Result[*api.NameCheck]
}

// CatalogSearchMsg delivers a debounced catalog search input, tagged
// with the sequence of the keystroke that produced it.
type CatalogSearchMsg struct {
	Result debounce.Result[string]
}

// RenameCheckMsg delivers a debounced availability result for the
// rename prompt.
type RenameCheckMsg struct {
	Result debounce.Result[*api.NameCheck]
}

// CatalogPageMsg delivers one catalog listing, tagged with the refresh
// sequence that requested it.
type CatalogPageMsg struct {
	Seq  uint64
	Page *api.ModelsPage
	Err  error
}

// TargetAnalysisMsg delivers the service's pre-training look at the
// draft's target column.
type TargetAnalysisMsg struct {
	Seq      uint64
	Analysis *api.TargetAnalysis
	Err      error
}

// DatasetsMsg delivers the user's uploaded datasets for the train form.
type DatasetsMsg struct {
	Datasets []api.Dataset
	Err      error
}

// ModelDeletedMsg reports a catalog deletion.
type ModelDeletedMsg struct {
	ModelID string
	Err     error
}

// ModelRenamedMsg reports a catalog rename.
type ModelRenamedMsg struct {
	Model *api.ModelSummary
	Err   error
}

// ModelExportedMsg reports an artifact download.
type ModelExportedMsg struct {
	ModelID string
	Path    string
	Err     error
}

// StatusMsg flashes a transient message on the status bar.
type StatusMsg struct {
	Text  string
	IsErr bool
}
