package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cuemby/groupctl/pkg/log"
	"github.com/rs/zerolog"
)

const (
	// DefaultGroupsURL is the container groups API base
	DefaultGroupsURL = "https://containers-api.ng.bluemix.net/v3/containers"

	// DefaultDeployURL is the deploy-update API base
	DefaultDeployURL = "https://activedeployapi.ng.bluemix.net/v1"

	// DefaultTimeout is used when a caller passes a zero timeout
	DefaultTimeout = 10 * time.Second
)

// Response is the part of an HTTP exchange the orchestrator relies on
type Response struct {
	StatusCode int
	Body       []byte
}

// Text returns the body as a string
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// CreateSpec describes a group to create
type CreateSpec struct {
	Name    string
	Image   string
	Desired int
	Max     int
	Min     int
	Memory  int
	Env     map[string]string

	// Port is the port traffic is routed to; zero means none
	Port int
}

// ResourceClient is the transport the orchestrator drives. Every call is a
// single attempt: retries belong to the caller.
type ResourceClient interface {
	Inspect(ctx context.Context, name string, timeout time.Duration) (*Response, error)
	List(ctx context.Context, timeout time.Duration) (*Response, error)
	SubmitCreate(ctx context.Context, spec CreateSpec, timeout time.Duration) (*Response, error)
	SubmitDelete(ctx context.Context, name string, force bool, timeout time.Duration) (*Response, error)
	SubmitResize(ctx context.Context, name string, desired int, timeout time.Duration) (*Response, error)
	SubmitMapRoute(ctx context.Context, hostname, domain, name string, timeout time.Duration) (*Response, error)
	SubmitUnmapRoute(ctx context.Context, hostname, domain, name string, timeout time.Duration) (*Response, error)
}

// UpdateClient deletes deploy updates by name
type UpdateClient interface {
	DeleteUpdate(ctx context.Context, name string, timeout time.Duration) (*Response, error)
}

// Config configures an HTTPClient
type Config struct {
	GroupsURL   string
	DeployURL   string
	Credentials Credentials
	HTTPClient  *http.Client

	// Logger defaults to the "client" component logger when nil
	Logger *zerolog.Logger
}

// HTTPClient talks to the groups and deploy-update REST APIs
type HTTPClient struct {
	groupsURL string
	deployURL string
	creds     Credentials
	http      *http.Client
	logger    zerolog.Logger
}

var (
	_ ResourceClient = (*HTTPClient)(nil)
	_ UpdateClient   = (*HTTPClient)(nil)
)

// New creates a client for the given configuration
func New(cfg Config) *HTTPClient {
	c := &HTTPClient{
		groupsURL: strings.TrimSuffix(cfg.GroupsURL, "/"),
		deployURL: strings.TrimSuffix(cfg.DeployURL, "/"),
		creds:     cfg.Credentials,
		http:      cfg.HTTPClient,
		logger:    log.ComponentOr(cfg.Logger, "client"),
	}
	if c.groupsURL == "" {
		c.groupsURL = DefaultGroupsURL
	}
	if c.deployURL == "" {
		c.deployURL = DefaultDeployURL
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c
}

// Inspect fetches a single group
func (c *HTTPClient) Inspect(ctx context.Context, name string, timeout time.Duration) (*Response, error) {
	return c.groupsRequest(ctx, http.MethodGet, "groups/"+url.PathEscape(name), nil, timeout)
}

// List fetches all groups in the space
func (c *HTTPClient) List(ctx context.Context, timeout time.Duration) (*Response, error) {
	return c.groupsRequest(ctx, http.MethodGet, "groups", nil, timeout)
}

type numberInstances struct {
	Desired int `json:"Desired"`
	Max     int `json:"Max,omitempty"`
	Min     int `json:"Min"`
}

type createBody struct {
	Name            string          `json:"Name"`
	Autorecovery    string          `json:"Autorecovery"`
	Cmd             []string        `json:"Cmd"`
	WorkingDir      string          `json:"WorkingDir"`
	NumberInstances numberInstances `json:"NumberInstances"`
	Volumes         []string        `json:"Volumes"`
	Memory          int             `json:"Memory"`
	Image           string          `json:"Image"`
	Env             []string        `json:"Env"`
	Port            int             `json:"Port,omitempty"`
}

// SubmitCreate requests creation of a group
func (c *HTTPClient) SubmitCreate(ctx context.Context, spec CreateSpec, timeout time.Duration) (*Response, error) {
	body := createBody{
		Name:         spec.Name,
		Autorecovery: "false",
		Cmd:          []string{},
		WorkingDir:   "",
		NumberInstances: numberInstances{
			Desired: spec.Desired,
			Max:     spec.Max,
			Min:     spec.Min,
		},
		Volumes: []string{},
		Memory:  spec.Memory,
		Image:   spec.Image,
		Env:     envList(spec.Env),
		Port:    spec.Port,
	}
	return c.groupsRequest(ctx, http.MethodPost, "groups", body, timeout)
}

// SubmitDelete requests deletion of a group
func (c *HTTPClient) SubmitDelete(ctx context.Context, name string, force bool, timeout time.Duration) (*Response, error) {
	path := "groups/" + url.PathEscape(name)
	if force {
		path += "?force=true"
	}
	return c.groupsRequest(ctx, http.MethodDelete, path, nil, timeout)
}

// SubmitResize requests a new desired instance count
func (c *HTTPClient) SubmitResize(ctx context.Context, name string, desired int, timeout time.Duration) (*Response, error) {
	body := map[string]interface{}{
		"NumberInstances": map[string]int{"Desired": desired},
	}
	return c.groupsRequest(ctx, http.MethodPatch, "groups/"+url.PathEscape(name), body, timeout)
}

type routeBody struct {
	Domain string `json:"domain"`
	Host   string `json:"host"`
}

// SubmitMapRoute requests hostname.domain be routed to the group
func (c *HTTPClient) SubmitMapRoute(ctx context.Context, hostname, domain, name string, timeout time.Duration) (*Response, error) {
	return c.groupsRequest(ctx, http.MethodPost, "groups/"+url.PathEscape(name)+"/maproute",
		routeBody{Domain: domain, Host: hostname}, timeout)
}

// SubmitUnmapRoute requests hostname.domain be removed from the group
func (c *HTTPClient) SubmitUnmapRoute(ctx context.Context, hostname, domain, name string, timeout time.Duration) (*Response, error) {
	return c.groupsRequest(ctx, http.MethodPost, "groups/"+url.PathEscape(name)+"/unmaproute",
		routeBody{Domain: domain, Host: hostname}, timeout)
}

// DeleteUpdate removes a deploy update by name
func (c *HTTPClient) DeleteUpdate(ctx context.Context, name string, timeout time.Duration) (*Response, error) {
	target := fmt.Sprintf("%s/%s/update/%s/?force=true", c.deployURL, url.PathEscape(c.creds.SpaceGUID), url.PathEscape(name))
	headers := http.Header{}
	headers.Set("Authorization", c.creds.BearerToken())
	headers.Set("Accept", "application/json")
	return c.do(ctx, http.MethodDelete, target, nil, headers, timeout)
}

func (c *HTTPClient) groupsRequest(ctx context.Context, method, path string, body interface{}, timeout time.Duration) (*Response, error) {
	headers := http.Header{}
	headers.Set("Accept", "application/json;charset=utf-8")
	headers.Set("X-Auth-Token", c.creds.RawToken())
	headers.Set("X-Auth-Project-Id", c.creds.SpaceGUID)
	if body != nil {
		headers.Set("Content-Type", "application/json")
	}
	return c.do(ctx, method, c.groupsURL+"/"+path, body, headers, timeout)
}

func (c *HTTPClient) do(ctx context.Context, method, target string, body interface{}, headers http.Header, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &RequestError{Op: "encode body", Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return nil, &RequestError{Op: "build request", Err: err}
	}
	req.Header = headers

	c.logger.Debug().
		Dur("timeout", timeout).
		Msg(curlLine(method, target, headers, payload))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode >= 500 {
		c.logger.Debug().
			Int("status_code", resp.StatusCode).
			Str("body", SanitizeMessage(string(data))).
			Msgf("%s '%s' returned %d", method, target, resp.StatusCode)
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// RequestError is returned when a request could not be built. Sending the
// same request again cannot succeed.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Permanent marks the error as not worth retrying
func (e *RequestError) Permanent() bool {
	return true
}

func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func curlLine(method, target string, headers http.Header, payload []byte) string {
	var b strings.Builder
	b.WriteString("curl")
	clean := SanitizeHeaders(headers)
	keys := make([]string, 0, len(clean))
	for k := range clean {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " -H '%s: %s'", k, clean.Get(k))
	}
	fmt.Fprintf(&b, " -X %s '%s'", method, target)
	if len(payload) > 0 {
		fmt.Fprintf(&b, " --data '%s'", strings.ReplaceAll(string(payload), "'", `\'`))
	}
	return b.String()
}
