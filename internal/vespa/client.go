// Package vespa is the search-backend writer. It speaks the document/v1
// HTTP API: upserts and deletes are keyed by doc_id, so repeating an
// identical write is a no-op on the backend side.
package vespa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/corpus-self/ingest-fabric/internal/docfactory"
)

const (
	defaultNamespace = "fabric"
	defaultDocType   = "fabric_document"
)

// Writer abstracts the search backend so processors and tests can swap in a
// mock.
type Writer interface {
	// Upsert writes doc under its doc_id, replacing any prior version.
	Upsert(ctx context.Context, doc docfactory.Document) error
	// Get fetches the stored document. found is false when the backend has
	// no record for docID.
	Get(ctx context.Context, docID string) (*docfactory.Document, bool, error)
	// Delete removes the record for docID. Deleting an absent document is
	// not an error.
	Delete(ctx context.Context, docID string) error
}

// StatusError is a non-2xx response from the backend. Consumers classify on
// it: 5xx and 429 are transient and worth a redelivery, other 4xx are
// permanent write rejections.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vespa: status %d: %s", e.Code, e.Body)
}

// Transient reports whether a retry can plausibly succeed.
func (e *StatusError) Transient() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// IsPermanent reports whether err is a backend rejection that no retry will
// fix.
func IsPermanent(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && !se.Transient()
}

// Client is the production Writer over HTTP.
type Client struct {
	baseURL    string
	namespace  string
	docType    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option tweaks client construction.
type Option func(*Client)

// WithNamespace overrides the document namespace.
func WithNamespace(ns string) Option { return func(c *Client) { c.namespace = ns } }

// WithDocType overrides the document type.
func WithDocType(dt string) Option { return func(c *Client) { c.docType = dt } }

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// NewClient builds a Writer against baseURL (no trailing slash).
func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		namespace: defaultNamespace,
		docType:   defaultDocType,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.Named("vespa"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// documentBody is the document/v1 request and response envelope.
type documentBody struct {
	Fields docfactory.Document `json:"fields"`
}

func (c *Client) docURL(docID string) string {
	return fmt.Sprintf("%s/document/v1/%s/%s/docid/%s",
		c.baseURL, c.namespace, c.docType, url.PathEscape(docID))
}

func (c *Client) Upsert(ctx context.Context, doc docfactory.Document) error {
	body, err := json.Marshal(documentBody{Fields: doc})
	if err != nil {
		return fmt.Errorf("vespa: marshal document %s: %w", doc.DocID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.docURL(doc.DocID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("vespa: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("upsert %s: %w", doc.DocID, err)
	}
	c.logger.Debug("document upserted",
		zap.String("doc_id", doc.DocID),
		zap.String("source_type", doc.SourceType))
	return nil
}

func (c *Client) Get(ctx context.Context, docID string) (*docfactory.Document, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.docURL(docID), nil)
	if err != nil {
		return nil, false, fmt.Errorf("vespa: build request: %w", err)
	}

	var body documentBody
	err = c.do(req, &body)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", docID, err)
	}
	return &body.Fields, true, nil
}

func (c *Client) Delete(ctx context.Context, docID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.docURL(docID), nil)
	if err != nil {
		return fmt.Errorf("vespa: build request: %w", err)
	}

	err = c.do(req, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", docID, err)
	}
	c.logger.Debug("document deleted", zap.String("doc_id", docID))
	return nil
}

// do executes req and decodes a 2xx response body into dest. Non-2xx
// responses become *StatusError.
func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vespa: http do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("vespa: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	if dest != nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			return fmt.Errorf("vespa: unmarshal response: %w", err)
		}
	}
	return nil
}

var _ Writer = (*Client)(nil)
