// Package catalog manages the model catalog's query state: filters,
// sorting, paging, and the sequencing that keeps slow responses from
// overwriting newer ones.
package catalog

import (
	"sync"

	"github.com/tablab/tablab/internal/api"
)

// Controller owns the catalog query and the last applied page.
//
// Loads are asynchronous: BeginRefresh snapshots the current query and
// tags it with a fresh sequence number, and Apply installs a response
// only when its tag is still the newest issued. Anything older is
// discarded wholesale.
type Controller struct {
	mu sync.Mutex

	query api.CatalogQuery

	// seq is the tag of the most recently issued refresh.
	seq uint64

	page    *api.ModelsPage
	loading bool
	loadErr error
}

// NewController creates a Controller for one user's catalog.
func NewController(userID string, pageSize int) *Controller {
	return &Controller{
		query: api.CatalogQuery{
			UserID:    userID,
			SortBy:    DefaultSortBy,
			SortOrder: DefaultSortOrder,
			Page:      1,
			PageSize:  pageSize,
		},
	}
}

// BeginRefresh tags a new load and returns the tag with the query to
// run. Every earlier in-flight load becomes stale at this moment.
func (c *Controller) BeginRefresh() (uint64, api.CatalogQuery) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.loading = true
	return c.seq, c.query
}

// Apply installs a load result. It reports false, changing nothing,
// when a newer refresh has been issued since seq was handed out.
func (c *Controller) Apply(seq uint64, page *api.ModelsPage, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		return false
	}

	c.loading = false
	c.loadErr = err
	if err == nil {
		c.page = page
		// The server clamps out-of-range pages; adopt its view.
		if page.Pagination.Page > 0 {
			c.query.Page = page.Pagination.Page
		}
	}
	return true
}

// Loading reports whether a refresh is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the error of the last applied load, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// Page returns the last applied page, or nil before the first load.
func (c *Controller) Page() *api.ModelsPage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Summary returns the server-computed aggregate block from the last
// applied page, or nil.
func (c *Controller) Summary() *api.CatalogSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page == nil {
		return nil
	}
	return c.page.Summary
}

// Query returns a snapshot of the current query.
func (c *Controller) Query() api.CatalogQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// SetSearch updates the free-text search. Any filter change returns
// paging to the first page.
func (c *Controller) SetSearch(search string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.query.Search == search {
		return
	}
	c.query.Search = search
	c.query.Page = 1
}

// SetDatasetFilter updates the dataset filter.
func (c *Controller) SetDatasetFilter(datasetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.query.DatasetID == datasetID {
		return
	}
	c.query.DatasetID = datasetID
	c.query.Page = 1
}

// SetModelTypeFilter updates the model-type filter.
func (c *Controller) SetModelTypeFilter(modelType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.query.ModelType == modelType {
		return
	}
	c.query.ModelType = modelType
	c.query.Page = 1
}

// SetProblemTypeFilter updates the problem-type filter. When the change
// invalidates the active metric sort, the sort falls back to newest
// first rather than sending the server an unusable ordering.
func (c *Controller) SetProblemTypeFilter(problemType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.query.ProblemType == problemType {
		return
	}
	c.query.ProblemType = problemType
	c.query.Page = 1
	c.query.SortBy, c.query.SortOrder = CorrectSort(c.query.SortBy, c.query.SortOrder, problemType)
}

// SetMetricBounds updates the metric range filters. Nil clears a bound.
func (c *Controller) SetMetricBounds(minR2, maxMAE, minAccuracy *float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.query.MinR2 = minR2
	c.query.MaxMAE = maxMAE
	c.query.MinAccuracy = minAccuracy
	c.query.Page = 1
}

// SetDateRange updates the created-at range filter.
func (c *Controller) SetDateRange(from, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.query.DateFrom == from && c.query.DateTo == to {
		return
	}
	c.query.DateFrom = from
	c.query.DateTo = to
	c.query.Page = 1
}

// SetSort updates the ordering. An invalid sort for the active
// problem-type filter is replaced with the default. Sorting returns to
// the first page.
func (c *Controller) SetSort(sortBy, sortOrder string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !SortValid(sortBy, c.query.ProblemType) {
		sortBy, sortOrder = DefaultSortBy, DefaultSortOrder
	}
	if sortOrder != OrderAsc {
		sortOrder = OrderDesc
	}
	if c.query.SortBy == sortBy && c.query.SortOrder == sortOrder {
		return
	}
	c.query.SortBy = sortBy
	c.query.SortOrder = sortOrder
	c.query.Page = 1
}

// ClearFilters drops every filter but keeps the sort and page size.
func (c *Controller) ClearFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.query.Search = ""
	c.query.DatasetID = ""
	c.query.ModelType = ""
	c.query.ProblemType = ""
	c.query.MinR2 = nil
	c.query.MaxMAE = nil
	c.query.MinAccuracy = nil
	c.query.DateFrom = ""
	c.query.DateTo = ""
	c.query.Page = 1
	c.query.SortBy, c.query.SortOrder = CorrectSort(c.query.SortBy, c.query.SortOrder, "")
}

// NextPage advances one page, bounded by the last known page count.
// It reports whether the page changed.
func (c *Controller) NextPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page != nil && c.query.Page >= c.page.Pagination.TotalPages {
		return false
	}
	c.query.Page++
	return true
}

// PrevPage steps back one page. It reports whether the page changed.
func (c *Controller) PrevPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.query.Page <= 1 {
		return false
	}
	c.query.Page--
	return true
}
