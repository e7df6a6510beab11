package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/centsible/centsible/internal/model"
)

// Client calls an external field-extraction service over HTTP.
type Client struct {
	http *resty.Client
}

// NewClient points the extractor at baseURL (e.g. http://extractor:9000).
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &Client{http: c}
}

type extractRequest struct {
	Text string `json:"text"`
}

// Extract posts the text and decodes the structured fields. Any transport or
// status failure surfaces as model.ErrExternalService so callers can degrade.
func (c *Client) Extract(ctx context.Context, text string) (Fields, error) {
	reqBody := extractRequest{Text: text}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&reqBody).
		Post("/v1/extract")
	if err != nil {
		return Fields{}, errors.Wrapf(model.ErrExternalService, "extractor request: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Fields{}, errors.Wrapf(model.ErrExternalService, "extractor status %d: %s", resp.StatusCode(), resp.String())
	}

	var out Fields
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return Fields{}, errors.Wrapf(model.ErrExternalService, "decode extractor response: %v", err)
	}
	return out, nil
}
