package studio

import (
	tea "github.com/charmbracelet/bubbletea"
)

// KeyBinding defines a key binding for a particular target type.
//
// If Handler is nil, the binding is shown in the help screen but is not
// dispatched through the key map (useful for documentation-only
// bindings handled by a child component or a parent model).
type KeyBinding[T any] struct {
	Keys        []string
	Description string
	Handler     func(*T, tea.KeyMsg) tea.Cmd
}

// BindingCategory groups related key bindings (primarily for help display).
type BindingCategory[T any] struct {
	Name     string
	Bindings []KeyBinding[T]
}

// TrainKeyBindings returns key bindings relevant to the train screen.
func TrainKeyBindings() []BindingCategory[TrainScreen] {
	return []BindingCategory[TrainScreen]{
		{
			Name: "General",
			Bindings: []KeyBinding[TrainScreen]{
				{
					Keys:        []string{"?"},
					Description: "Toggle this help screen",
				},
				{
					Keys:        []string{"ctrl+c"},
					Description: "Quit",
				},
				{
					Keys:        []string{"tab"},
					Description: "Switch to the catalog screen",
				},
			},
		},
		{
			Name: "Form",
			Bindings: []KeyBinding[TrainScreen]{
				{
					Keys:        []string{"up", "shift+tab"},
					Description: "Previous field",
					Handler:     (*TrainScreen).handlePrevField,
				},
				{
					Keys:        []string{"down", "enter"},
					Description: "Next field",
					Handler:     (*TrainScreen).handleNextField,
				},
				{
					Keys:        []string{"left", "right"},
					Description: "Cycle choices in the focused field",
					Handler:     (*TrainScreen).handleCycleChoice,
				},
				{
					Keys:        []string{"ctrl+t"},
					Description: "Analyze the selected target column",
					Handler:     (*TrainScreen).handleAnalyzeTarget,
				},
			},
		},
		{
			Name: "Training",
			Bindings: []KeyBinding[TrainScreen]{
				{
					Keys:        []string{"ctrl+s"},
					Description: "Submit the training request",
					Handler:     (*TrainScreen).handleSubmit,
				},
				{
					Keys:        []string{"ctrl+r"},
					Description: "Reset the form",
					Handler:     (*TrainScreen).handleReset,
				},
			},
		},
	}
}

// CatalogKeyBindings returns key bindings relevant to the catalog screen.
func CatalogKeyBindings() []BindingCategory[CatalogScreen] {
	return []BindingCategory[CatalogScreen]{
		{
			Name: "General",
			Bindings: []KeyBinding[CatalogScreen]{
				{
					Keys:        []string{"?"},
					Description: "Toggle this help screen",
				},
				{
					Keys:        []string{"ctrl+c"},
					Description: "Quit",
				},
				{
					Keys:        []string{"tab"},
					Description: "Switch to the train screen",
				},
				{
					Keys:        []string{"r"},
					Description: "Reload the current page",
					Handler:     (*CatalogScreen).handleReload,
				},
			},
		},
		{
			Name: "Navigation",
			Bindings: []KeyBinding[CatalogScreen]{
				{
					Keys:        []string{"up", "k"},
					Description: "Previous model",
					Handler:     (*CatalogScreen).handleCursorUp,
				},
				{
					Keys:        []string{"down", "j"},
					Description: "Next model",
					Handler:     (*CatalogScreen).handleCursorDown,
				},
				{
					Keys:        []string{"pgup", "N"},
					Description: "Previous page",
					Handler:     (*CatalogScreen).handlePrevPage,
				},
				{
					Keys:        []string{"pgdown", "n"},
					Description: "Next page",
					Handler:     (*CatalogScreen).handleNextPage,
				},
				{
					Keys:        []string{"enter"},
					Description: "Toggle detail sidebar for the selected model",
					Handler:     (*CatalogScreen).handleToggleDetail,
				},
			},
		},
		{
			Name: "Filters",
			Bindings: []KeyBinding[CatalogScreen]{
				{
					Keys:        []string{"/"},
					Description: "Search by name or description",
					Handler:     (*CatalogScreen).handleEnterSearch,
				},
				{
					Keys:        []string{"p"},
					Description: "Cycle problem-type filter",
					Handler:     (*CatalogScreen).handleCycleProblemType,
				},
				{
					Keys:        []string{"s"},
					Description: "Cycle sort column",
					Handler:     (*CatalogScreen).handleCycleSort,
				},
				{
					Keys:        []string{"o"},
					Description: "Flip sort order",
					Handler:     (*CatalogScreen).handleFlipSortOrder,
				},
				{
					Keys:        []string{"ctrl+l"},
					Description: "Clear all filters",
					Handler:     (*CatalogScreen).handleClearFilters,
				},
			},
		},
		{
			Name: "Actions",
			Bindings: []KeyBinding[CatalogScreen]{
				{
					Keys:        []string{"d"},
					Description: "Delete the selected model (confirm with y)",
					Handler:     (*CatalogScreen).handleDelete,
				},
				{
					Keys:        []string{"R"},
					Description: "Rename the selected model",
					Handler:     (*CatalogScreen).handleEnterRename,
				},
				{
					Keys:        []string{"e"},
					Description: "Export the selected model to a file",
					Handler:     (*CatalogScreen).handleExport,
				},
			},
		},
	}
}

// buildKeyMap builds a fast lookup map from key string to handler.
func buildKeyMap[T any](categories []BindingCategory[T]) map[string]func(*T, tea.KeyMsg) tea.Cmd {
	keyMap := make(map[string]func(*T, tea.KeyMsg) tea.Cmd)
	for _, category := range categories {
		for _, binding := range category.Bindings {
			if binding.Handler == nil {
				continue
			}
			for _, key := range binding.Keys {
				keyMap[normalizeKey(key)] = binding.Handler
			}
		}
	}
	return keyMap
}

// normalizeKey normalizes Bubble Tea's KeyMsg.String() into a stable
// key used by our maps.
func normalizeKey(key string) string {
	if key == " " {
		return "space"
	}
	return key
}
