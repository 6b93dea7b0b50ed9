package studio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tablab/tablab/internal/api"
	"github.com/tablab/tablab/internal/config"
	"github.com/tablab/tablab/internal/debounce"
	"github.com/tablab/tablab/internal/metrics"
	"github.com/tablab/tablab/internal/observability"
	"github.com/tablab/tablab/internal/progress"
	"github.com/tablab/tablab/internal/training"
)

// trainTickInterval paces the simulated progress updates.
const trainTickInterval = 100 * time.Millisecond

// formField identifies one row of the train form.
type formField int

const (
	fieldDataset formField = iota
	fieldTarget
	fieldModelType
	fieldTestSize
	fieldCrossVal
	fieldPolynomial
	fieldEncoder
	fieldAutoName
	fieldName
	fieldDescription
	fieldCount
)

// modelTypeChoices is the cycling order of the model selector.
var modelTypeChoices = []string{
	training.ModelTypeAuto,
	"linear_regression",
	"ridge",
	"lasso",
	"random_forest",
	"gradient_boosting",
	"decision_tree",
	"logistic_regression",
	"svm",
	"knn",
	"naive_bayes",
}

// testSizeChoices is the cycling order of the holdout selector.
var testSizeChoices = []float64{0.1, 0.2, 0.25, 0.3, 0.4}

// crossValChoices is the cycling order of the cross-validation
// selector; 0 means off.
var crossValChoices = []int{0, 3, 5, 10}

// polynomialChoices is the cycling order of the polynomial-degree
// selector; 0 means off.
var polynomialChoices = []int{0, 2, 3, 4, 5}

// TrainScreen is the training form plus the progress and result panes.
type TrainScreen struct {
	cfg    *config.Config
	svc    Service
	logger *observability.CoreLogger

	asyncChan chan<- tea.Msg

	keyMap map[string]func(*TrainScreen, tea.KeyMsg) tea.Cmd

	composer *training.Composer
	timeline *progress.Timeline

	datasets   []api.Dataset
	datasetIdx int
	targetIdx  int
	modelIdx   int
	sizeIdx    int
	cvIdx      int
	polyIdx    int

	analysis    *api.TargetAnalysis
	analysisSeq uint64

	// session is the token of the training run currently shown.
	session uint64

	focused   formField
	nameInput textinput.Model
	descInput textinput.Model
	spin      spinner.Model

	width, height int
}

// NewTrainScreen creates the train screen.
func NewTrainScreen(
	cfg *config.Config,
	svc Service,
	logger *observability.CoreLogger,
	asyncChan chan tea.Msg,
) *TrainScreen {
	nameInput := textinput.New()
	nameInput.Placeholder = "model name"
	nameInput.CharLimit = 64

	descInput := textinput.New()
	descInput.Placeholder = "description (optional)"
	descInput.CharLimit = 200

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	nameResults := make(chan debounce.Result[*api.NameCheck], 16)
	composer := training.NewComposer(
		cfg.DebounceWindow.Std(),
		func(ctx context.Context, name string) (*api.NameCheck, error) {
			return svc.CheckModelName(ctx, cfg.UserID, name)
		},
		nameResults,
	)

	// Forward debounced name checks into the event loop.
	go func() {
		for res := range nameResults {
			asyncChan <- NameCheckMsg{Result: res}
		}
	}()

	t := &TrainScreen{
		cfg:       cfg,
		svc:       svc,
		logger:    logger,
		asyncChan: asyncChan,
		keyMap:    buildKeyMap(TrainKeyBindings()),
		composer:  composer,
		timeline:  progress.NewTimeline(nil),
		sizeIdx:   1,
		nameInput: nameInput,
		descInput: descInput,
		spin:      spin,
	}
	return t
}

func (t *TrainScreen) SetSize(width, height int) {
	t.width, t.height = width, height
}

// Init starts the dataset load.
func (t *TrainScreen) Init() tea.Cmd {
	return func() tea.Msg {
		datasets, err := t.svc.ListDatasets(context.Background(), t.cfg.UserID)
		if err != nil {
			t.logger.CaptureError(fmt.Errorf("studio: listing datasets: %w", err))
		}
		t.asyncChan <- DatasetsMsg{Datasets: datasets, Err: err}
		return nil
	}
}

// CapturesInput reports whether a text field is consuming keystrokes.
func (t *TrainScreen) CapturesInput() bool {
	if t.focused == fieldName {
		return !t.composer.Draft().AutoName
	}
	return t.focused == fieldDescription
}

func (t *TrainScreen) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case tea.KeyMsg:
		return t.handleKeyMsg(m)

	case DatasetsMsg:
		return t.handleDatasets(m)

	case NameCheckMsg:
		t.composer.ApplyNameCheck(m.Result)
		return nil

	case TargetAnalysisMsg:
		return t.handleTargetAnalysis(m)

	case TrainTickMsg:
		if t.timeline.Tick(m.Session, m.At) {
			return t.tickCmd(m.Session)
		}
		return nil

	case TrainDoneMsg:
		return t.handleTrainDone(m)

	case ResultBundleMsg:
		if m.Session == t.session {
			t.composer.AttachBundle(m.Bundle)
		}
		return nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		t.spin, cmd = t.spin.Update(m)
		if t.timeline.Snapshot(time.Now()).State == progress.Running {
			return cmd
		}
		return nil
	}

	return nil
}

func (t *TrainScreen) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	key := normalizeKey(msg.String())

	if handler, ok := t.keyMap[key]; ok {
		return handler(t, msg)
	}

	// Remaining keys feed the focused text input.
	switch t.focused {
	case fieldName:
		if t.composer.Draft().AutoName {
			return nil
		}
		before := t.nameInput.Value()
		var cmd tea.Cmd
		t.nameInput, cmd = t.nameInput.Update(msg)
		if t.nameInput.Value() != before {
			t.composer.SetModelName(t.nameInput.Value())
		}
		return cmd
	case fieldDescription:
		var cmd tea.Cmd
		t.descInput, cmd = t.descInput.Update(msg)
		t.composer.SetDescription(t.descInput.Value())
		return cmd
	}
	return nil
}

func (t *TrainScreen) handleDatasets(msg DatasetsMsg) tea.Cmd {
	if msg.Err != nil {
		return statusCmd("could not load datasets: "+msg.Err.Error(), true)
	}
	t.datasets = msg.Datasets
	if len(t.datasets) > 0 && t.composer.Draft().DatasetID == "" {
		t.selectDataset(0)
	}
	return nil
}

func (t *TrainScreen) handleTargetAnalysis(msg TargetAnalysisMsg) tea.Cmd {
	if msg.Seq != t.analysisSeq {
		return nil
	}
	if msg.Err != nil {
		return statusCmd("target analysis failed: "+msg.Err.Error(), true)
	}
	t.analysis = msg.Analysis
	if t.composer.Draft().ProblemType == "" {
		t.composer.SetProblemType(msg.Analysis.DetectedType)
	}
	return statusCmd(fmt.Sprintf("detected %s target", msg.Analysis.DetectedType), false)
}

func (t *TrainScreen) handleTrainDone(msg TrainDoneMsg) tea.Cmd {
	if msg.Err != nil {
		if !t.timeline.Fail(msg.Session, msg.Err) {
			return nil
		}
		t.logger.CaptureError(fmt.Errorf("studio: training failed: %w", msg.Err))
		return statusCmd("training failed: "+msg.Err.Error(), true)
	}

	if !t.timeline.Complete(msg.Session) {
		// A newer run superseded this one.
		return nil
	}

	t.composer.SetResult(msg.Response, nil)

	// Secondary detail loads after the headline result is on screen.
	session := msg.Session
	modelID := msg.Response.ID
	go func() {
		bundle := t.svc.FetchResultBundle(context.Background(), modelID)
		t.asyncChan <- ResultBundleMsg{Session: session, Bundle: bundle}
	}()

	return statusCmd(fmt.Sprintf("trained %s", msg.Response.ModelName), false)
}

// ---- Key handlers ----

func (t *TrainScreen) handlePrevField(tea.KeyMsg) tea.Cmd {
	t.setFocus((t.focused - 1 + fieldCount) % fieldCount)
	return nil
}

func (t *TrainScreen) handleNextField(tea.KeyMsg) tea.Cmd {
	t.setFocus((t.focused + 1) % fieldCount)
	return nil
}

func (t *TrainScreen) handleCycleChoice(msg tea.KeyMsg) tea.Cmd {
	step := 1
	if normalizeKey(msg.String()) == "left" {
		step = -1
	}

	switch t.focused {
	case fieldDataset:
		if len(t.datasets) > 0 {
			t.selectDataset((t.datasetIdx + step + len(t.datasets)) % len(t.datasets))
		}
	case fieldTarget:
		columns := t.targetColumns()
		if len(columns) > 0 {
			t.targetIdx = (t.targetIdx + step + len(columns)) % len(columns)
			t.composer.SetTargetColumn(columns[t.targetIdx])
			t.analysis = nil
		}
	case fieldModelType:
		t.modelIdx = (t.modelIdx + step + len(modelTypeChoices)) % len(modelTypeChoices)
		t.composer.SetModelType(modelTypeChoices[t.modelIdx])
	case fieldTestSize:
		t.sizeIdx = (t.sizeIdx + step + len(testSizeChoices)) % len(testSizeChoices)
		t.composer.SetTestSize(testSizeChoices[t.sizeIdx])
	case fieldCrossVal:
		t.cvIdx = (t.cvIdx + step + len(crossValChoices)) % len(crossValChoices)
		folds := crossValChoices[t.cvIdx]
		t.composer.SetCrossValidation(folds > 0, folds)
	case fieldPolynomial:
		t.polyIdx = (t.polyIdx + step + len(polynomialChoices)) % len(polynomialChoices)
		degree := polynomialChoices[t.polyIdx]
		t.composer.SetPolynomialFeatures(degree > 0, degree)
	case fieldEncoder:
		t.composer.SetTargetEncoder(!t.composer.Draft().UseTargetEncoder)
	case fieldAutoName:
		t.composer.SetAutoName(!t.composer.Draft().AutoName)
	case fieldName:
		var cmd tea.Cmd
		t.nameInput, cmd = t.nameInput.Update(msg)
		return cmd
	case fieldDescription:
		var cmd tea.Cmd
		t.descInput, cmd = t.descInput.Update(msg)
		return cmd
	}
	return nil
}

func (t *TrainScreen) handleAnalyzeTarget(tea.KeyMsg) tea.Cmd {
	draft := t.composer.Draft()
	if draft.DatasetID == "" || draft.TargetColumn == "" {
		return statusCmd("choose a dataset and target column first", true)
	}

	t.analysisSeq++
	seq := t.analysisSeq
	go func() {
		analysis, err := t.svc.AnalyzeTarget(
			context.Background(), t.cfg.UserID, draft.DatasetID, draft.TargetColumn)
		t.asyncChan <- TargetAnalysisMsg{Seq: seq, Analysis: analysis, Err: err}
	}()
	return statusCmd("analyzing target...", false)
}

func (t *TrainScreen) handleSubmit(tea.KeyMsg) tea.Cmd {
	if t.timeline.Snapshot(time.Now()).State == progress.Running {
		return statusCmd("a training run is already in progress", true)
	}
	if reasons := t.composer.MissingReasons(); len(reasons) > 0 {
		return statusCmd("not ready: "+strings.Join(reasons, "; "), true)
	}

	req := t.composer.BuildRequest(t.cfg.UserID)
	session := t.timeline.Start(time.Now())
	t.session = session

	go func() {
		resp, err := t.svc.TrainModel(context.Background(), req)
		t.asyncChan <- TrainDoneMsg{Session: session, Response: resp, Err: err}
	}()

	return tea.Batch(t.tickCmd(session), t.spin.Tick)
}

func (t *TrainScreen) handleReset(tea.KeyMsg) tea.Cmd {
	t.composer.Reset()
	t.timeline.Reset()
	t.analysis = nil
	t.nameInput.SetValue("")
	t.descInput.SetValue("")
	t.targetIdx = 0
	t.modelIdx = 0
	t.sizeIdx = 1
	t.cvIdx = 0
	t.polyIdx = 0
	if len(t.datasets) > 0 {
		t.selectDataset(t.datasetIdx)
	}
	t.setFocus(fieldDataset)
	return statusCmd("form reset", false)
}

// ---- Helpers ----

func (t *TrainScreen) tickCmd(session uint64) tea.Cmd {
	return tea.Tick(trainTickInterval, func(at time.Time) tea.Msg {
		return TrainTickMsg{Session: session, At: at}
	})
}

func (t *TrainScreen) selectDataset(idx int) {
	t.datasetIdx = idx
	t.targetIdx = 0
	t.analysis = nil
	ds := t.datasets[idx]
	t.composer.SetDataset(ds.ID, ds.Name)
}

func (t *TrainScreen) targetColumns() []string {
	if t.datasetIdx < 0 || t.datasetIdx >= len(t.datasets) {
		return nil
	}
	return t.datasets[t.datasetIdx].Columns
}

func (t *TrainScreen) setFocus(field formField) {
	t.focused = field

	if field == fieldName {
		t.nameInput.Focus()
	} else {
		t.nameInput.Blur()
	}
	if field == fieldDescription {
		t.descInput.Focus()
	} else {
		t.descInput.Blur()
	}
}

func statusCmd(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return StatusMsg{Text: text, IsErr: isErr}
	}
}

// ---- View ----

func (t *TrainScreen) View() string {
	form := t.renderForm()
	right := t.renderRunPane()

	formWidth := t.width / 2
	formView := paneBorderStyle.Width(max(formWidth-2, 10)).Render(form)
	rightView := paneBorderStyle.Width(max(t.width-formWidth-2, 10)).Render(right)

	return lipgloss.JoinHorizontal(lipgloss.Top, formView, rightView)
}

func (t *TrainScreen) renderForm() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("New training run"))
	b.WriteString("\n\n")

	draft := t.composer.Draft()

	dataset := dimStyle.Render("no datasets")
	if len(t.datasets) > 0 {
		ds := t.datasets[t.datasetIdx]
		dataset = fmt.Sprintf("%s (%d rows)", ds.Name, ds.RowCount)
	}
	t.writeField(&b, fieldDataset, "Dataset", dataset)

	target := dimStyle.Render("—")
	if draft.TargetColumn != "" {
		target = draft.TargetColumn
	}
	t.writeField(&b, fieldTarget, "Target", target)

	t.writeField(&b, fieldModelType, "Model", metrics.ModelLabel(draft.ModelType))
	t.writeField(&b, fieldTestSize, "Test split", fmt.Sprintf("%.0f%%", draft.TestSize*100))

	cv := "off"
	if draft.CrossVal {
		cv = fmt.Sprintf("%d-fold", draft.CVFolds)
	}
	t.writeField(&b, fieldCrossVal, "Cross-val", cv)

	poly := "off"
	if draft.UsePolynomial {
		poly = fmt.Sprintf("degree %d", draft.PolynomialDegree)
	}
	t.writeField(&b, fieldPolynomial, "Polynomial", poly)

	encoder := "off"
	if draft.UseTargetEncoder {
		encoder = "target"
	}
	t.writeField(&b, fieldEncoder, "Encoding", encoder)

	autoName := "off"
	if draft.AutoName {
		autoName = "on"
	}
	t.writeField(&b, fieldAutoName, "Auto-name", autoName)

	name := t.nameInput.View()
	if draft.AutoName {
		name = dimStyle.Render("server picks a name")
	}
	t.writeField(&b, fieldName, "Name", name)
	t.writeField(&b, fieldDescription, "Description", t.descInput.View())

	if !draft.AutoName {
		b.WriteString("\n")
		b.WriteString(t.renderNameState())
		b.WriteString("\n")
	}

	if t.analysis != nil {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Target analysis"))
		b.WriteString("\n")
		fmt.Fprintf(&b, "  type: %s, unique values: %d, missing: %d\n",
			t.analysis.DetectedType, t.analysis.UniqueValues, t.analysis.MissingCount)
		if len(t.analysis.RecommendedModels) > 0 {
			fmt.Fprintf(&b, "  suggested: %s\n",
				strings.Join(t.analysis.RecommendedModels, ", "))
		}
		for _, warning := range t.analysis.Warnings {
			b.WriteString("  " + warnStyle.Render(warning) + "\n")
		}
	}

	if reasons := t.composer.MissingReasons(); len(reasons) > 0 {
		b.WriteString("\n")
		for _, reason := range reasons {
			b.WriteString(dimStyle.Render("• "+reason) + "\n")
		}
	} else {
		b.WriteString("\n")
		b.WriteString(okStyle.Render("ready, ctrl+s to train") + "\n")
	}

	return b.String()
}

func (t *TrainScreen) writeField(b *strings.Builder, field formField, label, value string) {
	marker := "  "
	labelView := fieldLabelStyle.Render(label)
	if t.focused == field {
		marker = focusedFieldStyle.Render("> ")
		labelView = focusedFieldStyle.Render(fieldLabelStyle.Render(label))
	}
	b.WriteString(marker + labelView + value + "\n")
}

func (t *TrainScreen) renderNameState() string {
	switch t.composer.NameState() {
	case training.NamePending:
		return dimStyle.Render(t.spin.View() + " checking name...")
	case training.NameAvailable:
		return okStyle.Render("✓ name available")
	case training.NameTaken:
		msg := t.composer.NameMessage()
		if msg == "" {
			msg = "name already in use"
		}
		return errStyle.Render("✗ " + msg)
	case training.NameCheckFailed:
		return warnStyle.Render("name check unavailable, server will verify")
	default:
		return ""
	}
}

// renderRunPane renders progress while training and the interpreted
// result afterwards.
func (t *TrainScreen) renderRunPane() string {
	snap := t.timeline.Snapshot(time.Now())

	switch snap.State {
	case progress.Ready:
		return dimStyle.Render("No run yet.\n\nFill the form and press ctrl+s.")

	case progress.Running:
		var b strings.Builder
		b.WriteString(titleStyle.Render("Training"))
		b.WriteString("\n\n")
		b.WriteString(t.spin.View() + " " + snap.Phase + "\n\n")
		b.WriteString(renderProgressBar(snap.Percent, max(t.width/2-8, 10)))
		fmt.Fprintf(&b, "\n\n%s", dimStyle.Render(fmt.Sprintf("elapsed %s", snap.Elapsed.Round(time.Second))))
		return b.String()

	case progress.Failed:
		var b strings.Builder
		b.WriteString(errStyle.Render("Training failed"))
		b.WriteString("\n\n")
		if snap.Err != nil {
			b.WriteString(snap.Err.Error())
		}
		b.WriteString("\n\n" + dimStyle.Render("fix the form and press ctrl+s to retry"))
		return b.String()
	}

	return t.renderResult()
}

func (t *TrainScreen) renderResult() string {
	res := t.composer.Result()
	if res == nil {
		return ""
	}

	var b strings.Builder
	band := res.Band
	b.WriteString(titleStyle.Render("Result: " + res.Response.ModelName))
	b.WriteString("\n\n")

	bandStyle := lipgloss.NewStyle().Bold(true).Foreground(band.Color())
	fmt.Fprintf(&b, "%s %s\n\n", bandStyle.Render(band.String()), dimStyle.Render(res.Response.ProblemType))

	if res.AutoNote != "" {
		b.WriteString(dimStyle.Render(res.AutoNote) + "\n\n")
	}

	writeMetricRow := func(label string, v *float64) {
		if v != nil {
			fmt.Fprintf(&b, "  %s%s\n", padRight(label, 12), metrics.FormatValue(v))
		}
	}
	writeMetricRow("R²", res.Metrics.R2)
	writeMetricRow("MAE", res.Metrics.MAE)
	writeMetricRow("MSE", res.Metrics.MSE)
	writeMetricRow("RMSE", res.Metrics.RMSE)
	writeMetricRow("accuracy", res.Metrics.Accuracy)
	writeMetricRow("precision", res.Metrics.Precision)
	writeMetricRow("recall", res.Metrics.Recall)
	writeMetricRow("F1", res.Metrics.F1)

	fmt.Fprintf(&b, "\n  %s%.2fs\n", padRight("trained in", 12), res.Response.TrainingTime)

	if res.Bundle != nil {
		if res.Bundle.Importance != nil && len(res.Bundle.Importance.Ranking) > 0 {
			b.WriteString("\n" + headerStyle.Render("Top features") + "\n")
			ranking := res.Bundle.Importance.Ranking
			if len(ranking) > 5 {
				ranking = ranking[:5]
			}
			for _, feature := range ranking {
				score := res.Bundle.Importance.Scores[feature]
				fmt.Fprintf(&b, "  %s%.3f\n", padRight(feature, 20), score)
			}
		}
		for _, warning := range res.Bundle.Warnings {
			b.WriteString("\n" + warnStyle.Render(warning))
		}
	}

	return b.String()
}

// renderProgressBar renders a simple filled bar with the percent.
func renderProgressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	bar := okStyle.Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, percent)
}
