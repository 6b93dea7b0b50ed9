// Test<API> provides a controlled interface for testing internal model
// state. These methods are only exposed for tests in the studio_test
// package.
package studio

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tablab/tablab/internal/api"
	"github.com/tablab/tablab/internal/catalog"
	"github.com/tablab/tablab/internal/progress"
	"github.com/tablab/tablab/internal/training"
)

// TestActiveIsCatalog reports whether the catalog screen is active.
func (m *Model) TestActiveIsCatalog() bool {
	return m.active == screenCatalog
}

// TestTrainScreen returns the train screen for testing.
func (m *Model) TestTrainScreen() *TrainScreen {
	return m.train
}

// TestCatalogScreen returns the catalog screen for testing.
func (m *Model) TestCatalogScreen() *CatalogScreen {
	return m.cat
}

// TestStatus returns the current status bar text.
func (m *Model) TestStatus() string {
	return m.status
}

// TestWaitAsyncMsg receives one message from the async channel, or
// reports false after the timeout.
func (m *Model) TestWaitAsyncMsg(timeout time.Duration) (tea.Msg, bool) {
	select {
	case msg := <-m.asyncChan:
		return msg, true
	case <-time.After(timeout):
		return nil, false
	}
}

// ---- Train screen test helpers ----

// TestFocusedField returns the focused form field index.
func (t *TrainScreen) TestFocusedField() int {
	return int(t.focused)
}

// TestComposer returns the screen's composer.
func (t *TrainScreen) TestComposer() *training.Composer {
	return t.composer
}

// TestTimelineSnapshot returns the current progress snapshot.
func (t *TrainScreen) TestTimelineSnapshot() progress.Snapshot {
	return t.timeline.Snapshot(time.Now())
}

// TestSession returns the current training session token.
func (t *TrainScreen) TestSession() uint64 {
	return t.session
}

// TestDatasetCount returns the number of loaded datasets.
func (t *TrainScreen) TestDatasetCount() int {
	return len(t.datasets)
}

// TestAnalysis returns the stored target analysis.
func (t *TrainScreen) TestAnalysis() *api.TargetAnalysis {
	return t.analysis
}

// TestSetName types a model name directly, bypassing the text input.
func (t *TrainScreen) TestSetName(name string) {
	t.nameInput.SetValue(name)
	t.composer.SetModelName(name)
}

// ---- Catalog screen test helpers ----

// TestCursor returns the cursor row index.
func (c *CatalogScreen) TestCursor() int {
	return c.cursor
}

// TestController returns the catalog controller.
func (c *CatalogScreen) TestController() *catalog.Controller {
	return c.controller
}

// TestModeIsBrowse reports whether the screen is in plain browse mode.
func (c *CatalogScreen) TestModeIsBrowse() bool {
	return c.mode == modeBrowse
}

// TestModeIsConfirmDelete reports whether a delete is awaiting confirmation.
func (c *CatalogScreen) TestModeIsConfirmDelete() bool {
	return c.mode == modeConfirmDelete
}

// TestRenameState returns the availability state of the rename prompt.
func (c *CatalogScreen) TestRenameState() training.NameState {
	return c.renameState
}

// TestDetailVisible reports whether the detail sidebar is open.
func (c *CatalogScreen) TestDetailVisible() bool {
	return c.showDetail
}
