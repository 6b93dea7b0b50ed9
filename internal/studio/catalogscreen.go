package studio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"

	"github.com/tablab/tablab/internal/api"
	"github.com/tablab/tablab/internal/catalog"
	"github.com/tablab/tablab/internal/config"
	"github.com/tablab/tablab/internal/debounce"
	"github.com/tablab/tablab/internal/metrics"
	"github.com/tablab/tablab/internal/observability"
	"github.com/tablab/tablab/internal/training"
)

// catalogMode is the catalog screen's input mode.
type catalogMode int

const (
	modeBrowse catalogMode = iota
	modeSearch
	modeRename
	modeConfirmDelete
)

// problemTypeCycle is the cycling order of the problem-type filter.
var problemTypeCycle = []string{"", "regression", "classification"}

// CatalogScreen lists trained models with filtering, sorting, paging,
// and per-model actions.
type CatalogScreen struct {
	cfg    *config.Config
	svc    Service
	logger *observability.CoreLogger
	fs     afero.Fs

	asyncChan chan<- tea.Msg

	keyMap     map[string]func(*CatalogScreen, tea.KeyMsg) tea.Cmd
	controller *catalog.Controller

	mode        catalogMode
	searchInput textinput.Model
	renameInput textinput.Model

	// searchDeb applies free-text search live, once typing settles.
	searchDeb *debounce.Debouncer[string]

	// renameDeb checks the rename prompt's name the same way the train
	// form checks a new model name.
	renameDeb   *debounce.Debouncer[*api.NameCheck]
	renameState training.NameState

	cursor     int
	showDetail bool

	width, height int
}

// NewCatalogScreen creates the catalog screen.
func NewCatalogScreen(
	cfg *config.Config,
	svc Service,
	logger *observability.CoreLogger,
	fs afero.Fs,
	asyncChan chan tea.Msg,
) *CatalogScreen {
	searchInput := textinput.New()
	searchInput.Placeholder = "search models"
	searchInput.CharLimit = 64

	renameInput := textinput.New()
	renameInput.Placeholder = "new name"
	renameInput.CharLimit = 64

	searchResults := make(chan debounce.Result[string], 16)
	searchDeb := debounce.New(cfg.DebounceWindow.Std(),
		func(_ context.Context, input string) (string, error) {
			return input, nil
		}, searchResults)

	renameResults := make(chan debounce.Result[*api.NameCheck], 16)
	renameDeb := debounce.New(cfg.DebounceWindow.Std(),
		func(ctx context.Context, name string) (*api.NameCheck, error) {
			return svc.CheckModelName(ctx, cfg.UserID, name)
		}, renameResults)

	// Forward debounced deliveries into the event loop.
	go func() {
		for res := range searchResults {
			asyncChan <- CatalogSearchMsg{Result: res}
		}
	}()
	go func() {
		for res := range renameResults {
			asyncChan <- RenameCheckMsg{Result: res}
		}
	}()

	return &CatalogScreen{
		cfg:         cfg,
		svc:         svc,
		logger:      logger,
		fs:          fs,
		asyncChan:   asyncChan,
		keyMap:      buildKeyMap(CatalogKeyBindings()),
		controller:  catalog.NewController(cfg.UserID, cfg.PageSize),
		searchInput: searchInput,
		renameInput: renameInput,
		searchDeb:   searchDeb,
		renameDeb:   renameDeb,
	}
}

func (c *CatalogScreen) SetSize(width, height int) {
	c.width, c.height = width, height
}

// Init loads the first page.
func (c *CatalogScreen) Init() tea.Cmd {
	return c.Reload()
}

// CapturesInput reports whether a text prompt is consuming keystrokes.
func (c *CatalogScreen) CapturesInput() bool {
	return c.mode != modeBrowse
}

// Reload starts an asynchronous refresh of the current query.
func (c *CatalogScreen) Reload() tea.Cmd {
	seq, query := c.controller.BeginRefresh()
	go func() {
		page, err := c.svc.ListModels(context.Background(), query)
		c.asyncChan <- CatalogPageMsg{Seq: seq, Page: page, Err: err}
	}()
	return nil
}

func (c *CatalogScreen) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case tea.KeyMsg:
		return c.handleKeyMsg(m)

	case CatalogPageMsg:
		if !c.controller.Apply(m.Seq, m.Page, m.Err) {
			return nil
		}
		if m.Err != nil {
			c.logger.CaptureError(fmt.Errorf("studio: loading catalog: %w", m.Err))
			return statusCmd("could not load models: "+m.Err.Error(), true)
		}
		c.clampCursor()
		return nil

	case CatalogSearchMsg:
		if m.Result.Seq != c.searchDeb.Latest() {
			return nil
		}
		c.controller.SetSearch(m.Result.Value)
		c.cursor = 0
		return c.Reload()

	case RenameCheckMsg:
		if m.Result.Seq != c.renameDeb.Latest() {
			return nil
		}
		switch {
		case m.Result.Err != nil:
			c.renameState = training.NameCheckFailed
		case m.Result.Value != nil && m.Result.Value.Exists:
			c.renameState = training.NameTaken
		default:
			c.renameState = training.NameAvailable
		}
		return nil

	case ModelDeletedMsg:
		if m.Err != nil {
			return statusCmd("delete failed: "+m.Err.Error(), true)
		}
		return tea.Batch(statusCmd("model deleted", false), c.Reload())

	case ModelRenamedMsg:
		if m.Err != nil {
			return statusCmd("rename failed: "+m.Err.Error(), true)
		}
		return tea.Batch(
			statusCmd(fmt.Sprintf("renamed to %s", m.Model.ModelName), false),
			c.Reload(),
		)

	case ModelExportedMsg:
		if m.Err != nil {
			return statusCmd("export failed: "+m.Err.Error(), true)
		}
		return statusCmd("exported to "+m.Path, false)
	}

	return nil
}

func (c *CatalogScreen) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	key := normalizeKey(msg.String())

	switch c.mode {
	case modeSearch:
		return c.handleSearchKey(key, msg)
	case modeRename:
		return c.handleRenameKey(key, msg)
	case modeConfirmDelete:
		return c.handleConfirmDeleteKey(key)
	}

	if handler, ok := c.keyMap[key]; ok {
		return handler(c, msg)
	}
	return nil
}

func (c *CatalogScreen) handleSearchKey(key string, msg tea.KeyMsg) tea.Cmd {
	switch key {
	case "esc":
		c.mode = modeBrowse
		c.searchInput.Blur()
		c.searchDeb.Cancel()
		c.searchInput.SetValue(c.controller.Query().Search)
		return nil
	case "enter":
		c.mode = modeBrowse
		c.searchInput.Blur()
		c.searchDeb.Cancel()
		c.controller.SetSearch(c.searchInput.Value())
		c.cursor = 0
		return c.Reload()
	}

	before := c.searchInput.Value()
	var cmd tea.Cmd
	c.searchInput, cmd = c.searchInput.Update(msg)
	if after := c.searchInput.Value(); after != before {
		c.searchDeb.Set(after)
	}
	return cmd
}

func (c *CatalogScreen) handleRenameKey(key string, msg tea.KeyMsg) tea.Cmd {
	switch key {
	case "esc":
		c.mode = modeBrowse
		c.renameInput.Blur()
		c.renameDeb.Cancel()
		c.renameState = training.NameUnknown
		return nil
	case "enter":
		if c.renameState == training.NameTaken {
			return statusCmd("that name is already taken", true)
		}
		c.mode = modeBrowse
		c.renameInput.Blur()
		c.renameDeb.Cancel()
		c.renameState = training.NameUnknown

		model := c.CurrentModel()
		name := strings.TrimSpace(c.renameInput.Value())
		if model == nil || name == "" || name == model.ModelName {
			return nil
		}

		modelID := model.ID
		go func() {
			updated, err := c.svc.UpdateModel(
				context.Background(), modelID, api.ModelUpdate{ModelName: &name})
			c.asyncChan <- ModelRenamedMsg{Model: updated, Err: err}
		}()
		return statusCmd("renaming...", false)
	}

	before := c.renameInput.Value()
	var cmd tea.Cmd
	c.renameInput, cmd = c.renameInput.Update(msg)
	if c.renameInput.Value() == before {
		return cmd
	}

	model := c.CurrentModel()
	name := strings.TrimSpace(c.renameInput.Value())
	if name == "" || (model != nil && name == model.ModelName) {
		// Keeping the current name needs no availability check.
		c.renameDeb.Cancel()
		c.renameState = training.NameUnknown
		return cmd
	}
	c.renameState = training.NamePending
	c.renameDeb.Set(name)
	return cmd
}

func (c *CatalogScreen) handleConfirmDeleteKey(key string) tea.Cmd {
	c.mode = modeBrowse
	if key != "y" {
		return statusCmd("delete cancelled", false)
	}

	model := c.CurrentModel()
	if model == nil {
		return nil
	}

	modelID := model.ID
	go func() {
		err := c.svc.DeleteModel(context.Background(), modelID)
		c.asyncChan <- ModelDeletedMsg{ModelID: modelID, Err: err}
	}()
	return statusCmd("deleting...", false)
}

// ---- Key handlers ----

func (c *CatalogScreen) handleReload(tea.KeyMsg) tea.Cmd {
	return c.Reload()
}

func (c *CatalogScreen) handleCursorUp(tea.KeyMsg) tea.Cmd {
	if c.cursor > 0 {
		c.cursor--
	}
	return nil
}

func (c *CatalogScreen) handleCursorDown(tea.KeyMsg) tea.Cmd {
	if page := c.controller.Page(); page != nil && c.cursor < len(page.Models)-1 {
		c.cursor++
	}
	return nil
}

func (c *CatalogScreen) handlePrevPage(tea.KeyMsg) tea.Cmd {
	if !c.controller.PrevPage() {
		return nil
	}
	c.cursor = 0
	return c.Reload()
}

func (c *CatalogScreen) handleNextPage(tea.KeyMsg) tea.Cmd {
	if !c.controller.NextPage() {
		return nil
	}
	c.cursor = 0
	return c.Reload()
}

func (c *CatalogScreen) handleToggleDetail(tea.KeyMsg) tea.Cmd {
	c.showDetail = !c.showDetail
	return nil
}

func (c *CatalogScreen) handleEnterSearch(tea.KeyMsg) tea.Cmd {
	c.mode = modeSearch
	c.searchInput.SetValue(c.controller.Query().Search)
	c.searchInput.Focus()
	return nil
}

func (c *CatalogScreen) handleCycleProblemType(tea.KeyMsg) tea.Cmd {
	current := c.controller.Query().ProblemType
	next := problemTypeCycle[0]
	for i, pt := range problemTypeCycle {
		if pt == current {
			next = problemTypeCycle[(i+1)%len(problemTypeCycle)]
			break
		}
	}
	c.controller.SetProblemTypeFilter(next)
	c.cursor = 0
	return c.Reload()
}

func (c *CatalogScreen) handleCycleSort(tea.KeyMsg) tea.Cmd {
	query := c.controller.Query()
	sorts := catalog.ValidSorts(query.ProblemType)

	next := sorts[0]
	for i, s := range sorts {
		if s == query.SortBy {
			next = sorts[(i+1)%len(sorts)]
			break
		}
	}
	c.controller.SetSort(next, query.SortOrder)
	c.cursor = 0
	return c.Reload()
}

func (c *CatalogScreen) handleFlipSortOrder(tea.KeyMsg) tea.Cmd {
	query := c.controller.Query()
	order := catalog.OrderAsc
	if query.SortOrder == catalog.OrderAsc {
		order = catalog.OrderDesc
	}
	c.controller.SetSort(query.SortBy, order)
	c.cursor = 0
	return c.Reload()
}

func (c *CatalogScreen) handleClearFilters(tea.KeyMsg) tea.Cmd {
	c.controller.ClearFilters()
	c.searchInput.SetValue("")
	c.cursor = 0
	return c.Reload()
}

func (c *CatalogScreen) handleDelete(tea.KeyMsg) tea.Cmd {
	if c.CurrentModel() == nil {
		return nil
	}
	c.mode = modeConfirmDelete
	return statusCmd("delete selected model? press y to confirm", false)
}

func (c *CatalogScreen) handleEnterRename(tea.KeyMsg) tea.Cmd {
	model := c.CurrentModel()
	if model == nil {
		return nil
	}
	c.mode = modeRename
	c.renameInput.SetValue(model.ModelName)
	c.renameInput.Focus()
	c.renameState = training.NameUnknown
	return nil
}

func (c *CatalogScreen) handleExport(tea.KeyMsg) tea.Cmd {
	model := c.CurrentModel()
	if model == nil {
		return nil
	}

	modelID := model.ID
	path := exportPath(model.ModelName)
	go func() {
		data, err := c.svc.ExportModel(context.Background(), modelID, "pkl")
		if err == nil {
			err = afero.WriteFile(c.fs, path, data, 0o644)
		}
		c.asyncChan <- ModelExportedMsg{ModelID: modelID, Path: path, Err: err}
	}()
	return statusCmd("exporting...", false)
}

// exportPath derives a safe local filename from a model name.
func exportPath(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, name)
	if safe == "" {
		safe = "model"
	}
	return safe + ".pkl"
}

// ---- Helpers ----

// CurrentModel returns the model under the cursor, or nil.
func (c *CatalogScreen) CurrentModel() *api.ModelSummary {
	page := c.controller.Page()
	if page == nil || c.cursor < 0 || c.cursor >= len(page.Models) {
		return nil
	}
	return &page.Models[c.cursor]
}

func (c *CatalogScreen) clampCursor() {
	page := c.controller.Page()
	if page == nil || len(page.Models) == 0 {
		c.cursor = 0
		return
	}
	if c.cursor >= len(page.Models) {
		c.cursor = len(page.Models) - 1
	}
}

// ---- View ----

func (c *CatalogScreen) View() string {
	var b strings.Builder

	b.WriteString(c.renderHeader())
	b.WriteString("\n")
	b.WriteString(c.renderTable())
	b.WriteString("\n")
	b.WriteString(c.renderFooter())

	main := b.String()
	if !c.showDetail {
		return main
	}

	detail := paneBorderStyle.
		Width(SidebarMinWidth).
		Render(c.renderDetail())
	mainWidth := max(c.width-SidebarMinWidth-2, 20)
	mainView := lipgloss.NewStyle().Width(mainWidth).Render(main)
	return lipgloss.JoinHorizontal(lipgloss.Top, mainView, detail)
}

func (c *CatalogScreen) renderHeader() string {
	query := c.controller.Query()

	var parts []string
	parts = append(parts, titleStyle.Render("Model catalog"))

	if c.mode == modeSearch {
		parts = append(parts, "search: "+c.searchInput.View())
	} else if query.Search != "" {
		parts = append(parts, fmt.Sprintf("search: %q", query.Search))
	}
	if query.ProblemType != "" {
		parts = append(parts, "type: "+query.ProblemType)
	}

	arrow := "↓"
	if query.SortOrder == catalog.OrderAsc {
		arrow = "↑"
	}
	parts = append(parts, fmt.Sprintf("sort: %s %s", catalog.SortLabel(query.SortBy), arrow))

	if c.controller.Loading() {
		parts = append(parts, dimStyle.Render("loading..."))
	}
	if c.mode == modeRename {
		part := "rename: " + c.renameInput.View()
		switch c.renameState {
		case training.NamePending:
			part += dimStyle.Render(" checking...")
		case training.NameTaken:
			part += errStyle.Render(" taken")
		case training.NameAvailable:
			part += okStyle.Render(" free")
		case training.NameCheckFailed:
			part += dimStyle.Render(" check failed")
		}
		parts = append(parts, part)
	}

	return strings.Join(parts, dimStyle.Render("  │  "))
}

func (c *CatalogScreen) renderTable() string {
	page := c.controller.Page()
	if page == nil {
		return dimStyle.Render("\n  loading models...")
	}
	if len(page.Models) == 0 {
		return dimStyle.Render("\n  no models match the current filters")
	}

	nameW := max(c.tableWidth()-58, 16)
	header := "  " + headerStyle.Render(
		padRight("Name", nameW)+
			padRight("Model", 20)+
			padRight("Problem", 15)+
			padRight("Score", 10)+
			padRight("Trained", 11))

	rows := []string{header}
	for i, model := range page.Models {
		rows = append(rows, c.renderRow(i, model, nameW))
	}
	return strings.Join(rows, "\n")
}

func (c *CatalogScreen) renderRow(idx int, model api.ModelSummary, nameW int) string {
	problemType := metrics.ProblemType(model.ProblemType)
	set := metrics.Normalize(model.Metrics, problemType)
	band := metrics.Quality(set, problemType)

	score := metrics.FormatValue(set.Primary(problemType))
	scoreView := lipgloss.NewStyle().Foreground(band.Color()).Render(padRight(score, 10))

	row := padRight(model.ModelName, nameW) +
		padRight(metrics.ModelLabel(model.ModelType), 20) +
		padRight(model.ProblemType, 15) +
		scoreView +
		padRight(shortDate(model.CreatedAt), 11)

	switch {
	case idx == c.cursor:
		return selectedRowStyle.Render("> " + row)
	case idx%2 == 1:
		return zebraRowStyle.Render("  " + row)
	default:
		return "  " + row
	}
}

func (c *CatalogScreen) renderFooter() string {
	page := c.controller.Page()
	if page == nil {
		return ""
	}

	p := page.Pagination
	first := (p.Page-1)*p.PageSize + 1
	last := first + len(page.Models) - 1
	if len(page.Models) == 0 {
		first = 0
		last = 0
	}
	position := fmt.Sprintf("[%d-%d of %d]  page %d/%d", first, last, p.Total, p.Page, max(p.TotalPages, 1))

	summary := c.renderSummary()
	if summary == "" {
		return dimStyle.Render(position)
	}
	return dimStyle.Render(position) + "\n" + summary
}

// renderSummary renders the server-computed catalog aggregates.
func (c *CatalogScreen) renderSummary() string {
	summary := c.controller.Summary()
	if summary == nil {
		return ""
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d models (%d regression, %d classification)",
		summary.TotalModels, summary.RegressionCount, summary.ClassificationCount))
	if summary.AvgR2 != nil {
		parts = append(parts, fmt.Sprintf("avg R² %.3f", *summary.AvgR2))
	}
	if summary.AvgAccuracy != nil {
		parts = append(parts, fmt.Sprintf("avg accuracy %.3f", *summary.AvgAccuracy))
	}
	if summary.BestPerformingModel != "" {
		parts = append(parts, "best: "+summary.BestPerformingModel)
	}
	if summary.MostUsedDataset != "" {
		parts = append(parts, "top dataset: "+summary.MostUsedDataset)
	}
	return dimStyle.Render(strings.Join(parts, "  ·  "))
}

func (c *CatalogScreen) renderDetail() string {
	model := c.CurrentModel()
	if model == nil {
		return dimStyle.Render("no model selected")
	}

	problemType := metrics.ProblemType(model.ProblemType)
	set := metrics.Normalize(model.Metrics, problemType)
	band := metrics.Quality(set, problemType)

	var b strings.Builder
	b.WriteString(titleStyle.Render(model.ModelName))
	b.WriteString("\n\n")

	bandStyle := lipgloss.NewStyle().Bold(true).Foreground(band.Color())
	fmt.Fprintf(&b, "%s %s\n", bandStyle.Render(band.String()), metrics.ModelLabel(model.ModelType))
	if interp := band.Message(problemType); interp != "" {
		b.WriteString(dimStyle.Render(truncate(interp, SidebarMinWidth-4)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	write := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s%s\n", padRight(label, 12), truncate(value, SidebarMinWidth-14))
		}
	}
	write("problem", model.ProblemType)
	write("target", model.TargetColumn)
	write("dataset", model.DatasetName)
	write("trained", shortDate(model.CreatedAt))
	write("duration", fmt.Sprintf("%.2fs", model.TrainingTime))

	b.WriteString("\n" + headerStyle.Render("Metrics") + "\n")
	metric := func(label string, v *float64) {
		if v != nil {
			fmt.Fprintf(&b, "%s%s\n", padRight(label, 12), metrics.FormatValue(v))
		}
	}
	metric("R²", set.R2)
	metric("MAE", set.MAE)
	metric("MSE", set.MSE)
	metric("RMSE", set.RMSE)
	metric("accuracy", set.Accuracy)
	metric("precision", set.Precision)
	metric("recall", set.Recall)
	metric("F1", set.F1)

	if model.Description != "" {
		b.WriteString("\n" + headerStyle.Render("Description") + "\n")
		b.WriteString(truncate(model.Description, (SidebarMinWidth-4)*3))
		b.WriteString("\n")
	}

	return b.String()
}

func (c *CatalogScreen) tableWidth() int {
	if c.showDetail {
		return max(c.width-SidebarMinWidth-2, 40)
	}
	return max(c.width, 40)
}

// shortDate trims a server timestamp to its date part.
func shortDate(ts string) string {
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.Format("2006-01-02")
	}
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}
