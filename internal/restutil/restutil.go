// Package restutil holds the JSON-over-HTTP plumbing shared by the remote
// transcription, summarization and webhook clients. Failures come back as
// AppErrors: transport problems are Network, anything the server said is
// Remote, and a cancelled or expired ctx is Cancelled or Timeout.
package restutil

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/livecaption/internal/errors"
)

const maxErrorBody = 512

// DoJSON sends body as JSON and decodes the JSON response into dest. A nil
// body sends no payload; a nil dest discards the response.
func DoJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.Internal, "marshal request")
		}
		reader = bytes.NewReader(b)
		h := make(map[string]string, len(headers)+1)
		for k, v := range headers {
			h[k] = v
		}
		h["Content-Type"] = "application/json"
		headers = h
	}
	return Do(ctx, client, method, url, headers, reader, dest)
}

// Do sends a raw body and decodes the JSON response into dest.
func Do(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body io.Reader, dest any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return errors.Wrap(err, errors.Internal, "create request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ContextError(ctx); ctxErr != nil {
			return ctxErr
		}
		return errors.Wrapf(err, errors.Network, "%s %s", method, req.URL.Path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.Newf(errors.Remote, "HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b))).
			WithMetadata("status", strconv.Itoa(resp.StatusCode))
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			if ctxErr := ContextError(ctx); ctxErr != nil {
				return ctxErr
			}
			return errors.Wrap(err, errors.Remote, "decode response")
		}
	}
	return nil
}

// ContextError maps a finished ctx to Cancelled or Timeout, or nil while ctx
// is still live.
func ContextError(ctx context.Context) *errors.AppError {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, errors.Timeout, "request deadline exceeded")
	default:
		return errors.Wrap(err, errors.Cancelled, "request cancelled")
	}
}
