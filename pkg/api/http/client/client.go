package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/flowpilot/flowpilot/pkg/api/http/common"
	fe "github.com/flowpilot/flowpilot/pkg/errors"
	"github.com/flowpilot/flowpilot/pkg/structs"
)

// Client is the HTTP implementation of the runner surface (api.Runner).
type Client struct {
	url  *url.URL
	http *http.Client
}

func New(address string, tlsCfg *tls.Config) (*Client, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, err
	}
	hc := &http.Client{}
	if tlsCfg != nil {
		hc.Transport = &http.Transport{TLSClientConfig: tlsCfg}
	}
	return &Client{url: u, http: hc}, nil
}

func (c *Client) CreateJob(ctx context.Context, in *structs.CreateJobRequest) (*structs.CreateJobResponse, error) {
	addr := c.addr(common.API_JOBS)
	var out structs.CreateJobResponse
	if err := genericPost(ctx, c.http, addr, in, &out); err != nil {
		return nil, err
	}
	if out.ID() == "" {
		return nil, fmt.Errorf("%w: create response carries no job id", fe.ErrMalformedResponse)
	}
	return &out, nil
}

func (c *Client) Job(ctx context.Context, id string) (*structs.Job, error) {
	addr := c.addr(jobPath(common.API_JOB, id))
	var out structs.Job
	return &out, genericGet(ctx, c.http, addr, &out)
}

func (c *Client) CancelJob(ctx context.Context, id string) (*structs.Job, error) {
	addr := c.addr(jobPath(common.API_JOB_CANCEL, id))
	var out structs.Job
	return &out, genericPost(ctx, c.http, addr, nil, &out)
}

func (c *Client) Jobs(ctx context.Context, q *structs.Query) ([]*structs.Job, error) {
	addr := c.addr(common.API_JOBS)
	setQueryString(addr, q)
	var out []*structs.Job
	return out, genericGet(ctx, c.http, addr, &out)
}

func (c *Client) FlowSpec(ctx context.Context, in *structs.FlowSpecRequest) (*structs.FlowSpecResponse, error) {
	addr := c.addr(common.API_FLOW_SPEC)
	var out structs.FlowSpecResponse
	return &out, genericPost(ctx, c.http, addr, in, &out)
}

func (c *Client) Ingest(ctx context.Context, force bool) (*structs.IngestResponse, error) {
	addr := c.addr(common.API_RAG_INGEST)
	if force {
		values := addr.Query()
		values.Set("force", "true")
		addr.RawQuery = values.Encode()
	}
	var out structs.IngestResponse
	return &out, genericPost(ctx, c.http, addr, nil, &out)
}

func (c *Client) Retrieve(ctx context.Context, in *structs.RetrieveRequest) (*structs.RetrieveResponse, error) {
	addr := c.addr(common.API_RAG_RETRIEVE)
	var out structs.RetrieveResponse
	return &out, genericPost(ctx, c.http, addr, in, &out)
}

func (c *Client) addr(path string) *url.URL {
	return &url.URL{Scheme: c.url.Scheme, Host: c.url.Host, Path: path}
}

// jobPath substitutes the job id into a templated path like /jobs/{job_id}.
func jobPath(template, id string) string {
	return strings.Replace(template, "{job_id}", url.PathEscape(id), 1)
}

// setQueryString sets the query string of a URL based on the given query object.
func setQueryString(u *url.URL, q *structs.Query) {
	if q == nil {
		return
	}
	values := u.Query()

	if q.Kind != "" {
		values.Set("kind", string(q.Kind))
	}
	if q.Status != "" {
		values.Set("status", string(q.Status))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}

	u.RawQuery = values.Encode()
}
