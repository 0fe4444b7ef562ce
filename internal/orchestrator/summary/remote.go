package summary

import (
	"context"
	"net/http"
	"time"

	"github.com/GriffinCanCode/livecaption/internal/errors"
	"github.com/GriffinCanCode/livecaption/internal/restutil"
)

// HFClient calls a Hugging Face style inference endpoint.
type HFClient struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHFClient creates a client for url. apiKey may be empty.
func NewHFClient(url, apiKey string, timeout time.Duration) *HFClient {
	return &HFClient{url: url, apiKey: apiKey, client: &http.Client{Timeout: timeout}}
}

type hfParameters struct {
	MaxLength int  `json:"max_length"`
	MinLength int  `json:"min_length"`
	DoSample  bool `json:"do_sample"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

// Summarize makes a single request; it never retries.
func (c *HFClient) Summarize(ctx context.Context, text string) (string, error) {
	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + c.apiKey}
	}
	req := hfRequest{
		Inputs:     text,
		Parameters: hfParameters{MaxLength: RemoteMaxLength, MinLength: RemoteMinLength},
	}

	var out []struct {
		SummaryText string `json:"summary_text"`
	}
	if err := restutil.DoJSON(ctx, c.client, http.MethodPost, c.url, headers, req, &out); err != nil {
		return "", err
	}
	if len(out) == 0 || out[0].SummaryText == "" {
		return "", errors.New(errors.Remote, "response missing summary_text")
	}
	return out[0].SummaryText, nil
}
