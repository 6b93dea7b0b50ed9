package studio_test

import (
	"context"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/tablab/tablab/internal/api"
	"github.com/tablab/tablab/internal/catalog"
	"github.com/tablab/tablab/internal/studio"
	"github.com/tablab/tablab/internal/training"
)

// loadCatalog runs one reload round-trip through the async channel.
func loadCatalog(t *testing.T, m *studio.Model, cs *studio.CatalogScreen) {
	t.Helper()
	cs.Reload()
	msg, ok := m.TestWaitAsyncMsg(asyncWait)
	require.True(t, ok)
	cs.Update(msg)
}

// pumpCatalog feeds async messages through the screen until done
// reports true. Debounce timers may fire mid-typing, so superseded
// deliveries can precede the one the test is waiting for.
func pumpCatalog(t *testing.T, m *studio.Model, cs *studio.CatalogScreen, done func(tea.Msg) bool) {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg, ok := m.TestWaitAsyncMsg(asyncWait)
		require.True(t, ok)
		cs.Update(msg)
		if done(msg) {
			return
		}
	}
	t.Fatal("expected async message never arrived")
}

func TestCatalogLoadsPage(t *testing.T) {
	svc := &fakeService{
		listModels: func(_ context.Context, query api.CatalogQuery) (*api.ModelsPage, error) {
			require.Equal(t, "u-1", query.UserID)
			require.Equal(t, catalog.SortCreatedAt, query.SortBy)
			return sampleModels(), nil
		},
	}
	m := newTestUI(t, svc)
	cs := m.TestCatalogScreen()

	loadCatalog(t, m, cs)

	require.NotNil(t, cs.TestController().Page())
	require.Equal(t, "housing-v1", cs.CurrentModel().ModelName)
	require.False(t, cs.TestController().Loading())
}

func TestCursorNavigation(t *testing.T) {
	svc := &fakeService{
		listModels: func(_ context.Context, _ api.CatalogQuery) (*api.ModelsPage, error) {
			return sampleModels(), nil
		},
	}
	m := newTestUI(t, svc)
	cs := m.TestCatalogScreen()
	loadCatalog(t, m, cs)

	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	require.Equal(t, 1, cs.TestCursor())
	require.Equal(t, "churn-v2", cs.CurrentModel().ModelName)

	// Bounded at the last row.
	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	require.Equal(t, 1, cs.TestCursor())

	cs.Update(tea.KeyMsg{Type: tea.KeyUp})
	require.Equal(t, 0, cs.TestCursor())
}

func TestProblemTypeCycleReloadsAndResetsCursor(t *testing.T) {
	var lastQuery atomic.Value
	svc := &fakeService{
		listModels: func(_ context.Context, query api.CatalogQuery) (*api.ModelsPage, error) {
			lastQuery.Store(query)
			return sampleModels(), nil
		},
	}
	m := newTestUI(t, svc)
	cs := m.TestCatalogScreen()
	loadCatalog(t, m, cs)
	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})

	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	msg, ok := m.TestWaitAsyncMsg(asyncWait)
	require.True(t, ok)
	cs.Update(msg)

	require.Equal(t, 0, cs.TestCursor())
	require.Equal(t, "regression", lastQuery.Load().(api.CatalogQuery).ProblemType)
	require.Equal(t, 1, lastQuery.Load().(api.CatalogQuery).Page)
}

func TestSortCycleStaysValidForFilter(t *testing.T) {
	svc := &fakeService{
		listModels: func(_ context.Context, _ api.CatalogQuery) (*api.ModelsPage, error) {
			return sampleModels(), nil
		},
	}
	m := newTestUI(t, svc)
	cs := m.TestCatalogScreen()
	loadCatalog(t, m, cs)

	// Without a problem-type filter only the common sorts cycle.
	for range catalog.ValidSorts("") {
		cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
		msg, ok := m.TestWaitAsyncMsg(asyncWait)
		require.True(t, ok)
		cs.Update(msg)
		require.True(t, catalog.SortValid(cs.TestController().Query().SortBy, ""))
	}
	require.Equal(t, catalog.SortCreatedAt, cs.TestController().Query().SortBy)
}

func TestSearchAppliesWhileTyping(t *testing.T) {
	var lastQuery atomic.Value
	svc := &fakeService{
		listModels: func(_ context.Context, query api.CatalogQuery) (*api.ModelsPage, error) {
			lastQuery.Store(query)
			return sampleModels(), nil
		},
	}
	m := newTestUI(t, svc)
	cs := m.TestCatalogScreen()
	loadCatalog(t, m, cs)

	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	require.True(t, cs.CapturesInput())

	// No enter: the query refreshes on its own once typing settles.
	for _, r := range "hou" {
		cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	pumpCatalog(t, m, cs, func(tea.Msg) bool {
		q, ok := lastQuery.Load().(api.CatalogQuery)
		return ok && q.Search == "hou"
	})

	// The prompt stays open for further narrowing.
	require.True(t, cs.CapturesInput())
	require.Equal(t, "hou", cs.TestController().Query().Search)
}

func TestSearchEnterAppliesImmediately(t *testing.T) {
	var lastQuery atomic.Value
	svc := &fakeService{
		listModels: func(_ context.Context, query api.CatalogQuery) (*api.ModelsPage, error) {
			lastQuery.Store(query)
			return sampleModels(), nil
		},
	}
	m := newTestUI(t, svc)
	cs := m.TestCatalogScreen()
	loadCatalog(t, m, cs)

	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	for _, r := range "housing" {
		cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	cs.Update(tea.KeyMsg{Type: tea.KeyEnter})
	pumpCatalog(t, m, cs, func(tea.Msg) bool {
		q, ok := lastQuery.Load().(api.CatalogQuery)
		return ok && q.Search == "housing"
	})

	require.True(t, cs.TestModeIsBrowse())
	require.Equal(t, "housing", cs.TestController().Query().Search)
}

func TestSearchEscCancels(t *testing.T) {
	m := newTestUI(t, &fakeService{})
	cs := m.TestCatalogScreen()

	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	cs.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.True(t, cs.TestModeIsBrowse())
	require.Empty(t, cs.TestController().Query().Search)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	var deleted atomic.Value
	svc := &fakeService{
		listModels: func(_ context.Context, _ api.CatalogQuery) (*api.ModelsPage, error) {
			return sampleModels(), nil
		},
		deleteModel: func(_ context.Context, modelID string) error {
			deleted.Store(modelID)
			return nil
		},
	}
	m := newTestUI(t, svc)
	cs := m.TestCatalogScreen()
	loadCatalog(t, m, cs)

	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	require.True(t, cs.TestModeIsConfirmDelete())

	// Any key but y cancels.
	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.True(t, cs.TestModeIsBrowse())
	require.Nil(t, deleted.Load())

	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})

	msg, ok := m.TestWaitAsyncMsg(asyncWait)
	require.True(t, ok)
	require.Equal(t, "m-1", deleted.Load())

	// A successful delete triggers a reload.
	cs.Update(msg)
	msg, ok = m.TestWaitAsyncMsg(asyncWait)
	require.True(t, ok)
	_, isPage := msg.(studio.CatalogPageMsg)
	require.True(t, isPage)
}

func TestRenameFlow(t *testing.T) {
	var checked atomic.Value
	svc := &fakeService{
		listModels: func(_ context.Context, _ api.CatalogQuery) (*api.ModelsPage, error) {
			return sampleModels(), nil
		},
		checkName: func(_ context.Context, userID, name string) (*api.NameCheck, error) {
			require.Equal(t, "u-1", userID)
			checked.Store(name)
			return &api.NameCheck{Exists: false}, nil
		},
		updateModel: func(_ context.Context, modelID string, update api.ModelUpdate) (*api.ModelSummary, error) {
			require.Equal(t, "m-1", modelID)
			require.NotNil(t, update.ModelName)
			return &api.ModelSummary{ID: modelID, ModelName: *update.ModelName}, nil
		},
	}
	m := newTestUI(t, svc)
	cs := m.TestCatalogScreen()
	loadCatalog(t, m, cs)

	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("R")})
	require.True(t, cs.CapturesInput())

	// The prompt is seeded with the current name; append a suffix. The
	// availability check runs while the prompt is still open.
	for _, r := range "-final" {
		cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	pumpCatalog(t, m, cs, func(tea.Msg) bool {
		return cs.TestRenameState() == training.NameAvailable
	})
	require.Equal(t, "housing-v1-final", checked.Load())

	cs.Update(tea.KeyMsg{Type: tea.KeyEnter})
	var renamed studio.ModelRenamedMsg
	pumpCatalog(t, m, cs, func(msg tea.Msg) bool {
		r, isRenamed := msg.(studio.ModelRenamedMsg)
		if isRenamed {
			renamed = r
		}
		return isRenamed
	})
	require.NoError(t, renamed.Err)
	require.Equal(t, "housing-v1-final", renamed.Model.ModelName)
}

func TestRenameBlockedWhenNameTaken(t *testing.T) {
	svc := &fakeService{
		listModels: func(_ context.Context, _ api.CatalogQuery) (*api.ModelsPage, error) {
			return sampleModels(), nil
		},
		checkName: func(_ context.Context, _, _ string) (*api.NameCheck, error) {
			return &api.NameCheck{Exists: true}, nil
		},
	}
	m := newTestUI(t, svc)
	cs := m.TestCatalogScreen()
	loadCatalog(t, m, cs)

	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("R")})
	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	pumpCatalog(t, m, cs, func(tea.Msg) bool {
		return cs.TestRenameState() == training.NameTaken
	})

	// Enter is refused while the name collides; the prompt stays open.
	cs.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, cs.CapturesInput())

	cs.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.True(t, cs.TestModeIsBrowse())
	require.Equal(t, training.NameUnknown, cs.TestRenameState())
}

func TestRenameToCurrentNameSkipsCheck(t *testing.T) {
	svc := &fakeService{
		listModels: func(_ context.Context, _ api.CatalogQuery) (*api.ModelsPage, error) {
			return sampleModels(), nil
		},
		checkName: func(_ context.Context, _, name string) (*api.NameCheck, error) {
			t.Errorf("unexpected availability check for %q", name)
			return nil, nil
		},
	}
	m := newTestUI(t, svc)
	cs := m.TestCatalogScreen()
	loadCatalog(t, m, cs)

	// Append and delete a rune so the prompt ends back at the model's
	// own name. That name needs no availability check.
	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("R")})
	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	cs.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	require.Equal(t, training.NameUnknown, cs.TestRenameState())

	cs.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, cs.TestModeIsBrowse())
}

func TestExportWritesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	svc := &fakeService{
		listModels: func(_ context.Context, _ api.CatalogQuery) (*api.ModelsPage, error) {
			return sampleModels(), nil
		},
		exportModel: func(_ context.Context, modelID, format string) ([]byte, error) {
			require.Equal(t, "m-1", modelID)
			require.Equal(t, "pkl", format)
			return []byte("serialized model"), nil
		},
	}
	m := studio.NewModel(studio.ModelParams{Config: testConfig(), Service: svc, Fs: fs})
	cs := m.TestCatalogScreen()
	loadCatalog(t, m, cs)

	cs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})

	msg, ok := m.TestWaitAsyncMsg(asyncWait)
	require.True(t, ok)
	exported, isExported := msg.(studio.ModelExportedMsg)
	require.True(t, isExported)
	require.NoError(t, exported.Err)
	require.Equal(t, "housing-v1.pkl", exported.Path)

	data, err := afero.ReadFile(fs, "housing-v1.pkl")
	require.NoError(t, err)
	require.Equal(t, "serialized model", string(data))
}

func TestStaleCatalogPageDiscarded(t *testing.T) {
	svc := &fakeService{
		listModels: func(_ context.Context, _ api.CatalogQuery) (*api.ModelsPage, error) {
			return sampleModels(), nil
		},
	}
	m := newTestUI(t, svc)
	cs := m.TestCatalogScreen()

	// Two reloads in flight; deliver them newest first.
	cs.Reload()
	cs.Reload()
	a, ok := m.TestWaitAsyncMsg(asyncWait)
	require.True(t, ok)
	b, ok := m.TestWaitAsyncMsg(asyncWait)
	require.True(t, ok)

	stale, fresh := a.(studio.CatalogPageMsg), b.(studio.CatalogPageMsg)
	if stale.Seq > fresh.Seq {
		stale, fresh = fresh, stale
	}

	cs.Update(fresh)
	require.NotNil(t, cs.TestController().Page())

	// The superseded page is refused without clobbering state.
	cs.Update(stale)
	require.False(t, cs.TestController().Loading())
	require.NotNil(t, cs.TestController().Page())
}

func TestDetailToggle(t *testing.T) {
	svc := &fakeService{
		listModels: func(_ context.Context, _ api.CatalogQuery) (*api.ModelsPage, error) {
			return sampleModels(), nil
		},
	}
	m := newTestUI(t, svc)
	cs := m.TestCatalogScreen()
	loadCatalog(t, m, cs)

	require.False(t, cs.TestDetailVisible())
	cs.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, cs.TestDetailVisible())
	cs.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, cs.TestDetailVisible())
}
