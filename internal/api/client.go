// Package api is the HTTP client for the training service.
//
// Idempotent GETs go through a retrying transport; mutations are sent
// exactly once so a flaky network can never double-submit a training
// run. All calls share a rate limiter, and every response is unwrapped
// from the service's status envelope before it reaches a caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tablab/tablab/internal/observability"
)

const (
	defaultTimeout = 45 * time.Second

	// schemaCacheSize bounds the number of prediction schemas kept
	// around for the predict form.
	schemaCacheSize = 32
)

// Client talks to the training service.
type Client struct {
	baseURL *url.URL

	// retry carries idempotent GETs. Mutations go through plain,
	// exactly once.
	retry *retryablehttp.Client
	plain *http.Client

	timeout time.Duration
	limiter *rate.Limiter
	apiKey  string
	logger  *observability.CoreLogger

	// schemas caches prediction schemas by model id. Schemas are
	// immutable once a model is trained, so entries never expire.
	schemas *lru.Cache
}

// ClientParams configures a Client.
type ClientParams struct {
	BaseURL string
	APIKey  string

	// Timeout bounds a single GET attempt and each non-training
	// mutation. TrainModel is exempt: a run takes as long as the
	// service needs.
	Timeout time.Duration

	Logger *observability.CoreLogger
}

// NewClient builds a Client for the given service.
func NewClient(params ClientParams) (*Client, error) {
	base, err := url.Parse(params.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api: invalid base URL: %v", err)
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := params.Logger
	if logger == nil {
		logger = observability.NewNoOpLogger()
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = 3
	retry.RetryWaitMin = 500 * time.Millisecond
	retry.RetryWaitMax = 5 * time.Second
	retry.HTTPClient.Timeout = timeout
	retry.Logger = nil

	schemas, err := lru.New(schemaCacheSize)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: base,
		retry:   retry,
		plain:   &http.Client{},
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		apiKey:  params.APIKey,
		logger:  logger,
		schemas: schemas,
	}, nil
}

// do performs one API call and decodes the enveloped payload into out.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body any,
	out any,
) error {
	raw, err := c.doRaw(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("api: malformed response for %s: %v", path, err)
	}
	if env.Data == nil {
		return fmt.Errorf("api: response for %s has no data", path)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("api: unexpected payload for %s: %v", path, err)
	}
	return nil
}

// doRaw performs one API call and returns the raw response body.
func (c *Client) doRaw(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body any,
) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := *c.baseURL
	u.Path, _ = url.JoinPath(u.Path, path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("api: encoding %s body: %v", path, err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, raw)
	}
	return raw, nil
}

// send dispatches a request. GETs are idempotent and retried on
// transient failures; anything else is sent exactly once.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodGet {
		rreq, err := retryablehttp.FromRequest(req)
		if err != nil {
			return nil, err
		}
		return c.retry.Do(rreq)
	}
	return c.plain.Do(req)
}

// withTimeout bounds a mutation that should return promptly. TrainModel
// never uses it.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// statusError pulls the service's detail string out of an error body.
func statusError(code int, raw []byte) error {
	var body struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(raw, &body)
	return &StatusError{Code: code, Detail: body.Detail}
}

// ListModels fetches one page of the caller's model catalog.
func (c *Client) ListModels(ctx context.Context, query CatalogQuery) (*ModelsPage, error) {
	var page ModelsPage
	if err := c.do(ctx, http.MethodGet, "/api/models", EncodeCatalogQuery(query), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListDatasets fetches the datasets available to a user for training.
func (c *Client) ListDatasets(ctx context.Context, userID string) ([]Dataset, error) {
	query := url.Values{}
	query.Set("user_id", userID)

	var datasets []Dataset
	if err := c.do(ctx, http.MethodGet, "/api/datasets", query, nil, &datasets); err != nil {
		return nil, err
	}
	return datasets, nil
}

// TrainModel submits a training request and blocks until the service
// reports a trained model or an error. The request is sent once and
// carries no client deadline; cancel it through ctx.
func (c *Client) TrainModel(ctx context.Context, req TrainRequest) (*TrainResponse, error) {
	var resp TrainResponse
	if err := c.do(ctx, http.MethodPost, "/api/train", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckModelName asks whether a model name is already taken for a user.
func (c *Client) CheckModelName(ctx context.Context, userID, name string) (*NameCheck, error) {
	query := url.Values{}
	query.Set("user_id", userID)
	query.Set("model_name", name)

	var check NameCheck
	if err := c.do(ctx, http.MethodGet, "/api/models/check-name", query, nil, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// AnalyzeTarget asks the service to inspect a target column before
// training: detected problem type, distribution, and model suggestions.
func (c *Client) AnalyzeTarget(
	ctx context.Context,
	userID, datasetID, targetColumn string,
) (*TargetAnalysis, error) {
	body := map[string]string{
		"user_id":       userID,
		"dataset_id":    datasetID,
		"target_column": targetColumn,
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var analysis TargetAnalysis
	if err := c.do(ctx, http.MethodPost, "/api/analyze-target", nil, body, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// GetModel fetches one catalog entry with full detail.
func (c *Client) GetModel(ctx context.Context, modelID string) (*ModelSummary, error) {
	var model ModelSummary
	path := fmt.Sprintf("/api/models/%s", url.PathEscape(modelID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &model); err != nil {
		return nil, err
	}
	return &model, nil
}

// GetPredictionSchema fetches the input schema a stored model expects.
// Schemas are cached per model id.
func (c *Client) GetPredictionSchema(ctx context.Context, modelID string) (*PredictionSchema, error) {
	if cached, ok := c.schemas.Get(modelID); ok {
		return cached.(*PredictionSchema), nil
	}

	var schema PredictionSchema
	path := fmt.Sprintf("/api/models/%s/schema", url.PathEscape(modelID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &schema); err != nil {
		return nil, err
	}

	c.schemas.Add(modelID, &schema)
	return &schema, nil
}

// PredictSingle runs one prediction against a stored model.
func (c *Client) PredictSingle(
	ctx context.Context,
	modelID string,
	inputs map[string]any,
) (*Prediction, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var pred Prediction
	path := fmt.Sprintf("/api/models/%s/predict", url.PathEscape(modelID))
	if err := c.do(ctx, http.MethodPost, path, nil, map[string]any{"inputs": inputs}, &pred); err != nil {
		return nil, err
	}
	return &pred, nil
}

// PredictBatch runs predictions for several input rows at once.
func (c *Client) PredictBatch(
	ctx context.Context,
	modelID string,
	rows []map[string]any,
) ([]Prediction, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var preds []Prediction
	path := fmt.Sprintf("/api/models/%s/predict-batch", url.PathEscape(modelID))
	if err := c.do(ctx, http.MethodPost, path, nil, map[string]any{"rows": rows}, &preds); err != nil {
		return nil, err
	}
	return preds, nil
}

// FeatureImportance fetches a stored model's feature ranking.
func (c *Client) FeatureImportance(ctx context.Context, modelID string) (*FeatureImportance, error) {
	var imp FeatureImportance
	path := fmt.Sprintf("/api/models/%s/feature-importance", url.PathEscape(modelID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &imp); err != nil {
		return nil, err
	}
	return &imp, nil
}

// DeleteModel removes a catalog entry.
func (c *Client) DeleteModel(ctx context.Context, modelID string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	path := fmt.Sprintf("/api/models/%s", url.PathEscape(modelID))
	_, err := c.doRaw(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// UpdateModel renames a catalog entry or changes its description.
func (c *Client) UpdateModel(
	ctx context.Context,
	modelID string,
	update ModelUpdate,
) (*ModelSummary, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var model ModelSummary
	path := fmt.Sprintf("/api/models/%s", url.PathEscape(modelID))
	if err := c.do(ctx, http.MethodPatch, path, nil, update, &model); err != nil {
		return nil, err
	}
	return &model, nil
}

// ExportModel downloads a serialized model artifact. The bytes are the
// raw file content, not an enveloped payload.
func (c *Client) ExportModel(ctx context.Context, modelID, format string) ([]byte, error) {
	query := url.Values{}
	if format != "" {
		query.Set("format", format)
	}
	path := fmt.Sprintf("/api/models/%s/export", url.PathEscape(modelID))
	return c.doRaw(ctx, http.MethodGet, path, query, nil)
}

// ResultBundle is the secondary detail fetched after training finishes.
// Either part may be nil when its fetch failed; Warnings records why.
type ResultBundle struct {
	Importance *FeatureImportance
	Schema     *PredictionSchema
	Warnings   []string
}

// FetchResultBundle fetches feature importance and the prediction
// schema for a freshly trained model in parallel. Failures degrade to
// warnings: the training result stays useful without either part.
func (c *Client) FetchResultBundle(ctx context.Context, modelID string) *ResultBundle {
	bundle := &ResultBundle{}
	var impWarn, schemaWarn string

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		imp, err := c.FeatureImportance(ctx, modelID)
		if err != nil {
			c.logger.CaptureWarn("api: feature importance unavailable", "model_id", modelID, "error", err)
			impWarn = "feature importance unavailable"
			return nil
		}
		bundle.Importance = imp
		return nil
	})
	g.Go(func() error {
		schema, err := c.GetPredictionSchema(ctx, modelID)
		if err != nil {
			c.logger.CaptureWarn("api: prediction schema unavailable", "model_id", modelID, "error", err)
			schemaWarn = "prediction schema unavailable"
			return nil
		}
		bundle.Schema = schema
		return nil
	})
	_ = g.Wait()

	for _, warn := range []string{impWarn, schemaWarn} {
		if warn != "" {
			bundle.Warnings = append(bundle.Warnings, warn)
		}
	}
	return bundle
}
