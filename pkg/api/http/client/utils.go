package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/flowpilot/flowpilot/pkg/api/http/common"
	fe "github.com/flowpilot/flowpilot/pkg/errors"
)

// genericPost is a helper to POST data to a given URL and unmarshal the response
func genericPost(ctx context.Context, hc *http.Client, addr *url.URL, in interface{}, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", fe.ErrRequestFailed, err)
	}
	return readResponse(resp, out)
}

// genericGet is a helper to GET data from a given URL and unmarshal the response.
// Implies the query string is already set, if needed.
func genericGet(ctx context.Context, hc *http.Client, addr *url.URL, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr.String(), nil)
	if err != nil {
		return err
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", fe.ErrRequestFailed, err)
	}
	return readResponse(resp, out)
}

func readResponse(resp *http.Response, out interface{}) error {
	if resp.Body == nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("%w: bad status code %d", fe.ErrRequestFailed, resp.StatusCode)
		}
		return fmt.Errorf("%w: no response body with status code %d", fe.ErrRequestFailed, resp.StatusCode)
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", fe.ErrRequestFailed, err)
	}

	if resp.StatusCode >= 400 {
		// best effort: the runner wraps errors in a detail envelope,
		// anything else is reported as "unknown error"
		detail := &common.ErrorDetail{}
		if err := json.Unmarshal(body, detail); err == nil && detail.Text() != "" {
			return fmt.Errorf("%w: %s", fe.ErrRequestFailed, detail.Text())
		}
		return fmt.Errorf("%w: unknown error (status %d)", fe.ErrRequestFailed, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: undecodable body: %v", fe.ErrRequestFailed, err)
	}
	return nil
}
