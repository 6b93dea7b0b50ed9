// Package studio is the terminal UI: a train screen for composing and
// watching training runs, and a catalog screen for browsing trained
// models.
package studio

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"

	"github.com/tablab/tablab/internal/api"
	"github.com/tablab/tablab/internal/config"
	"github.com/tablab/tablab/internal/observability"
)

// Service is the slice of the API client the UI depends on.
type Service interface {
	ListDatasets(ctx context.Context, userID string) ([]api.Dataset, error)
	ListModels(ctx context.Context, query api.CatalogQuery) (*api.ModelsPage, error)
	TrainModel(ctx context.Context, req api.TrainRequest) (*api.TrainResponse, error)
	CheckModelName(ctx context.Context, userID, name string) (*api.NameCheck, error)
	AnalyzeTarget(ctx context.Context, userID, datasetID, targetColumn string) (*api.TargetAnalysis, error)
	FetchResultBundle(ctx context.Context, modelID string) *api.ResultBundle
	DeleteModel(ctx context.Context, modelID string) error
	UpdateModel(ctx context.Context, modelID string, update api.ModelUpdate) (*api.ModelSummary, error)
	ExportModel(ctx context.Context, modelID, format string) ([]byte, error)
}

// screen identifies the active top-level view.
type screen int

const (
	screenTrain screen = iota
	screenCatalog
)

// Model is the root UI model.
//
// Implements tea.Model.
type Model struct {
	cfg    *config.Config
	logger *observability.CoreLogger

	active screen
	train  *TrainScreen
	cat    *CatalogScreen

	// asyncChan carries messages produced off the event loop: name
	// checks, API responses, exports. waitForAsyncMsg re-arms after
	// every delivery.
	asyncChan chan tea.Msg

	showHelp bool
	quitting bool

	status      string
	statusIsErr bool

	width, height int
}

// ModelParams configures the root model.
type ModelParams struct {
	Config  *config.Config
	Service Service
	Logger  *observability.CoreLogger

	// Fs receives exported model artifacts. Defaults to the OS
	// filesystem.
	Fs afero.Fs
}

// NewModel creates the root model.
func NewModel(params ModelParams) *Model {
	logger := params.Logger
	if logger == nil {
		logger = observability.NewNoOpLogger()
	}
	fs := params.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	asyncChan := make(chan tea.Msg, 256)

	m := &Model{
		cfg:       params.Config,
		logger:    logger,
		asyncChan: asyncChan,
	}
	m.train = NewTrainScreen(params.Config, params.Service, logger, asyncChan)
	m.cat = NewCatalogScreen(params.Config, params.Service, logger, fs, asyncChan)
	return m
}

// waitForAsyncMsg forwards one message from the async channel into the
// Bubble Tea event loop.
func (m *Model) waitForAsyncMsg() tea.Msg {
	return <-m.asyncChan
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.train.Init(),
		m.cat.Init(),
		m.waitForAsyncMsg,
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch t := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = t.Width, t.Height
		contentHeight := max(t.Height-StatusBarHeight, 0)
		m.train.SetSize(t.Width, contentHeight)
		m.cat.SetSize(t.Width, contentHeight)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(t)

	case StatusMsg:
		m.status = t.Text
		m.statusIsErr = t.IsErr
		return m, nil

	// Async-produced messages re-arm the channel listener after the
	// owning screen has handled them.
	case NameCheckMsg, TrainDoneMsg, ResultBundleMsg, TargetAnalysisMsg, DatasetsMsg:
		cmd := m.train.Update(msg)
		return m, tea.Batch(cmd, m.waitForAsyncMsg)

	case CatalogPageMsg, CatalogSearchMsg, RenameCheckMsg, ModelDeletedMsg, ModelRenamedMsg, ModelExportedMsg:
		cmd := m.cat.Update(msg)
		return m, tea.Batch(cmd, m.waitForAsyncMsg)

	case TrainTickMsg:
		return m, m.train.Update(msg)
	}

	return m, m.activeScreen().Update(msg)
}

// handleKeyMsg dispatches global keys, then the active screen's.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := normalizeKey(msg.String())

	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	// Text entry captures everything except the global chords above.
	if !m.activeScreen().CapturesInput() {
		switch key {
		case "?":
			m.showHelp = true
			return m, nil
		case "tab":
			return m, m.switchScreen()
		case "q":
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, m.activeScreen().Update(msg)
}

// switchScreen flips between the train and catalog screens. Entering
// the catalog triggers a refresh so the listing reflects any run that
// just finished.
func (m *Model) switchScreen() tea.Cmd {
	if m.active == screenTrain {
		m.active = screenCatalog
		return m.cat.Reload()
	}
	m.active = screenTrain
	return nil
}

func (m *Model) activeScreen() screenModel {
	if m.active == screenCatalog {
		return m.cat
	}
	return m.train
}

// screenModel is the contract both screens implement.
type screenModel interface {
	Init() tea.Cmd
	Update(tea.Msg) tea.Cmd
	View() string
	SetSize(width, height int)
	CapturesInput() bool
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	content := m.activeScreen().View()
	statusBar := m.renderStatusBar()

	full := lipgloss.JoinVertical(lipgloss.Left, content, statusBar)
	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, full)
}

func (m *Model) renderStatusBar() string {
	left := " train"
	if m.active == screenCatalog {
		left = " catalog"
	}
	left = titleStyle.Render(left)

	middle := m.status
	if m.statusIsErr {
		middle = errStyle.Render(middle)
	}

	right := dimStyle.Render("tab: switch  ?: help  ctrl+c: quit ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(middle) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := left + " " + middle + spaces(gap-1) + right
	return statusBarStyle.Width(m.width).Render(bar)
}

// renderHelp renders the key binding reference for the active screen.
func (m *Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Key bindings"))
	b.WriteString("\n\n")

	if m.active == screenCatalog {
		writeCategories(&b, CatalogKeyBindings())
	} else {
		writeCategories(&b, TrainKeyBindings())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("press any key to close"))
	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, b.String())
}

func writeCategories[T any](b *strings.Builder, categories []BindingCategory[T]) {
	for _, category := range categories {
		b.WriteString(headerStyle.Render(category.Name))
		b.WriteString("\n")
		for _, binding := range category.Bindings {
			keys := strings.Join(binding.Keys, ", ")
			b.WriteString("  ")
			b.WriteString(padRight(keys, 18))
			b.WriteString(binding.Description)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}
