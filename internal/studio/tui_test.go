package studio_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/tablab/tablab/internal/api"
	"github.com/tablab/tablab/internal/studio"
)

const (
	shortWait = 2 * time.Second
	longWait  = 3 * time.Second
)

// newSmokeModel starts the full UI under teatest with a scripted
// service. The model's View returns "Loading..." until width/height are
// non-zero, so we always size first.
func newSmokeModel(t *testing.T, svc studio.Service, w, h int) *teatest.TestModel {
	t.Helper()
	m := newTestUI(t, svc)
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(w, h))
	tm.Send(tea.WindowSizeMsg{Width: w, Height: h})
	return tm
}

func TestTrainScreenRendersAndQuits(t *testing.T) {
	svc := &fakeService{
		listDatasets: func(_ context.Context, _ string) ([]api.Dataset, error) {
			return sampleDatasets(), nil
		},
	}
	tm := newSmokeModel(t, svc, 120, 40)

	teatest.WaitFor(t, tm.Output(),
		func(b []byte) bool {
			return bytes.Contains(b, []byte("New training run")) &&
				bytes.Contains(b, []byte("housing.csv"))
		},
		teatest.WithDuration(longWait),
	)

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(shortWait))
}

func TestSwitchToCatalogScreen(t *testing.T) {
	svc := &fakeService{
		listModels: func(_ context.Context, _ api.CatalogQuery) (*api.ModelsPage, error) {
			return sampleModels(), nil
		},
	}
	tm := newSmokeModel(t, svc, 120, 40)

	teatest.WaitFor(t, tm.Output(),
		func(b []byte) bool { return bytes.Contains(b, []byte("New training run")) },
		teatest.WithDuration(shortWait),
	)

	tm.Send(tea.KeyMsg{Type: tea.KeyTab})

	teatest.WaitFor(t, tm.Output(),
		func(b []byte) bool {
			return bytes.Contains(b, []byte("Model catalog")) &&
				bytes.Contains(b, []byte("housing-v1"))
		},
		teatest.WithDuration(longWait),
	)

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(shortWait))
}
