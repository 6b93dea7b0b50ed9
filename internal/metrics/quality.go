package metrics

import "github.com/charmbracelet/lipgloss"

// Band is a coarse quality classification of a model's headline metric.
type Band int

const (
	BandUnknown Band = iota
	BandPoor
	BandWeak
	BandModerate
	BandStrong
	BandExcellent
)

// String returns the band's display label.
func (b Band) String() string {
	switch b {
	case BandExcellent:
		return "excellent"
	case BandStrong:
		return "strong"
	case BandModerate:
		return "moderate"
	case BandWeak:
		return "weak"
	case BandPoor:
		return "poor"
	default:
		return "unknown"
	}
}

// Color returns the band's terminal color. Unknown renders dim.
func (b Band) Color() lipgloss.Color {
	switch b {
	case BandExcellent:
		return lipgloss.Color("42")
	case BandStrong:
		return lipgloss.Color("84")
	case BandModerate:
		return lipgloss.Color("220")
	case BandWeak:
		return lipgloss.Color("208")
	case BandPoor:
		return lipgloss.Color("196")
	default:
		return lipgloss.Color("241")
	}
}

// Message returns the interpretation fragment for a band, worded for
// the given problem type's headline metric.
func (b Band) Message(problemType ProblemType) string {
	if problemType == Classification {
		switch b {
		case BandExcellent:
			return "achieves exceptional performance across all classes"
		case BandStrong:
			return "performs very well with good balance"
		case BandModerate:
			return "shows solid performance"
		case BandWeak:
			return "provides reasonable classification"
		case BandPoor:
			return "struggles with classification accuracy"
		default:
			return ""
		}
	}
	switch b {
	case BandExcellent:
		return "explains over 90% of variance"
	case BandStrong:
		return "captures most patterns effectively"
	case BandModerate:
		return "identifies significant patterns"
	case BandWeak:
		return "provides limited predictive value"
	case BandPoor:
		return "struggles to capture patterns"
	default:
		return ""
	}
}

// Quality classifies the headline metric for the given problem type.
//
// Regression bands on R²: >0.9 excellent, >0.7 strong, >0.5 moderate,
// >0.3 weak, else poor. Classification bands on accuracy: >0.95
// excellent, >0.85 strong, >0.75 moderate, >0.6 weak, else poor.
// A missing headline metric is BandUnknown, never BandPoor.
func Quality(s Set, problemType ProblemType) Band {
	primary := s.Primary(problemType)
	if primary == nil {
		return BandUnknown
	}

	v := *primary
	if problemType == Classification {
		switch {
		case v > 0.95:
			return BandExcellent
		case v > 0.85:
			return BandStrong
		case v > 0.75:
			return BandModerate
		case v > 0.6:
			return BandWeak
		default:
			return BandPoor
		}
	}

	switch {
	case v > 0.9:
		return BandExcellent
	case v > 0.7:
		return BandStrong
	case v > 0.5:
		return BandModerate
	case v > 0.3:
		return BandWeak
	default:
		return BandPoor
	}
}
