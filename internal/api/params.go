package api

import (
	"net/url"
	"strconv"
)

// CatalogQuery is the full set of catalog listing knobs. Zero values
// mean "not constrained" and are omitted from the request.
type CatalogQuery struct {
	UserID      string
	Search      string
	DatasetID   string
	ModelType   string
	ProblemType string

	// Metric filters. Nil means unconstrained; zero is a real bound.
	MinR2       *float64
	MaxMAE      *float64
	MinAccuracy *float64

	// Date range, formatted YYYY-MM-DD.
	DateFrom string
	DateTo   string

	SortBy    string
	SortOrder string

	Page     int
	PageSize int
}

// EncodeCatalogQuery builds the query string for a catalog listing.
//
// The input is never mutated. Empty strings, nil metric bounds, and
// non-positive paging values are omitted; the server applies its own
// defaults for anything missing.
func EncodeCatalogQuery(q CatalogQuery) url.Values {
	values := url.Values{}

	setIf(values, "user_id", q.UserID)
	setIf(values, "search", q.Search)
	setIf(values, "dataset_id", q.DatasetID)
	setIf(values, "model_type", q.ModelType)
	setIf(values, "problem_type", q.ProblemType)

	setFloat(values, "min_r2", q.MinR2)
	setFloat(values, "max_mae", q.MaxMAE)
	setFloat(values, "min_accuracy", q.MinAccuracy)

	setIf(values, "date_from", q.DateFrom)
	setIf(values, "date_to", q.DateTo)

	setIf(values, "sort_by", q.SortBy)
	setIf(values, "sort_order", q.SortOrder)

	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(q.PageSize))
	}

	return values
}

func setIf(values url.Values, key, value string) {
	if value != "" {
		values.Set(key, value)
	}
}

func setFloat(values url.Values, key string, value *float64) {
	if value != nil {
		values.Set(key, strconv.FormatFloat(*value, 'f', -1, 64))
	}
}
