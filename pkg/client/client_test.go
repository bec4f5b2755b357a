package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   data,
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func newTestClient(server *httptest.Server, logs *bytes.Buffer) *HTTPClient {
	logger := zerolog.New(logs).Level(zerolog.DebugLevel)
	return New(Config{
		GroupsURL: server.URL + "/v3/containers",
		DeployURL: server.URL + "/v1",
		Credentials: Credentials{
			AccessToken: "bearer secret-token",
			SpaceGUID:   "space-guid",
		},
		Logger: &logger,
	})
}

func TestHTTPClient_Inspect(t *testing.T) {
	server, requests := newTestServer(t, http.StatusOK, `{"Name":"web-1","Status":"CREATE_COMPLETE"}`)
	var logs bytes.Buffer
	c := newTestClient(server, &logs)

	resp, err := c.Inspect(context.Background(), "web-1", time.Second)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Text(), "CREATE_COMPLETE")

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/v3/containers/groups/web-1", req.Path)
	assert.Equal(t, "secret-token", req.Header.Get("X-Auth-Token"))
	assert.Equal(t, "space-guid", req.Header.Get("X-Auth-Project-Id"))

	// the token must never reach the logs
	assert.NotContains(t, logs.String(), "secret-token")
	assert.Contains(t, logs.String(), "curl")
}

func TestHTTPClient_SubmitCreate(t *testing.T) {
	server, requests := newTestServer(t, http.StatusCreated, "")
	c := newTestClient(server, &bytes.Buffer{})

	resp, err := c.SubmitCreate(context.Background(), CreateSpec{
		Name:    "web-1",
		Image:   "img:latest",
		Desired: 2,
		Max:     4,
		Min:     1,
		Memory:  128,
		Env:     map[string]string{"B": "2", "A": "1"},
		Port:    8080,
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/v3/containers/groups", req.Path)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "web-1", body["Name"])
	assert.Equal(t, "false", body["Autorecovery"])
	assert.Equal(t, "img:latest", body["Image"])
	assert.Equal(t, float64(128), body["Memory"])
	assert.Equal(t, float64(8080), body["Port"])
	assert.Equal(t, []interface{}{"A=1", "B=2"}, body["Env"])
	assert.Equal(t, map[string]interface{}{"Desired": float64(2), "Max": float64(4), "Min": float64(1)}, body["NumberInstances"])
}

func TestHTTPClient_SubmitCreateWithoutPort(t *testing.T) {
	server, requests := newTestServer(t, http.StatusCreated, "")
	c := newTestClient(server, &bytes.Buffer{})

	_, err := c.SubmitCreate(context.Background(), CreateSpec{Name: "web-1", Image: "img"}, time.Second)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal((*requests)[0].Body, &body))
	_, hasPort := body["Port"]
	assert.False(t, hasPort)
}

func TestHTTPClient_SubmitDeleteResizeAndRoutes(t *testing.T) {
	server, requests := newTestServer(t, http.StatusNoContent, "")
	c := newTestClient(server, &bytes.Buffer{})
	ctx := context.Background()

	_, err := c.SubmitDelete(ctx, "web-1", true, time.Second)
	require.NoError(t, err)
	_, err = c.SubmitResize(ctx, "web-1", 5, time.Second)
	require.NoError(t, err)
	_, err = c.SubmitMapRoute(ctx, "web", "example.net", "web-1", time.Second)
	require.NoError(t, err)
	_, err = c.SubmitUnmapRoute(ctx, "web", "example.net", "web-1", time.Second)
	require.NoError(t, err)

	require.Len(t, *requests, 4)

	del := (*requests)[0]
	assert.Equal(t, http.MethodDelete, del.Method)
	assert.Equal(t, "/v3/containers/groups/web-1", del.Path)
	assert.Equal(t, "force=true", del.Query)

	resize := (*requests)[1]
	assert.Equal(t, http.MethodPatch, resize.Method)
	assert.JSONEq(t, `{"NumberInstances":{"Desired":5}}`, string(resize.Body))

	mapReq := (*requests)[2]
	assert.Equal(t, "/v3/containers/groups/web-1/maproute", mapReq.Path)
	assert.JSONEq(t, `{"domain":"example.net","host":"web"}`, string(mapReq.Body))

	unmapReq := (*requests)[3]
	assert.Equal(t, "/v3/containers/groups/web-1/unmaproute", unmapReq.Path)
}

func TestHTTPClient_DeleteUpdate(t *testing.T) {
	server, requests := newTestServer(t, http.StatusNotFound, "")
	c := newTestClient(server, &bytes.Buffer{})

	resp, err := c.DeleteUpdate(context.Background(), "web-update", time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req := (*requests)[0]
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/v1/space-guid/update/web-update/", req.Path)
	assert.Equal(t, "force=true", req.Query)
	assert.Equal(t, "bearer secret-token", req.Header.Get("Authorization"))
}

func TestHTTPClient_ServerErrorIsLogged(t *testing.T) {
	server, _ := newTestServer(t, http.StatusInternalServerError, "Invalid token format. Please generate new token abc.def")
	var logs bytes.Buffer
	c := newTestClient(server, &logs)

	resp, err := c.List(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	assert.Contains(t, logs.String(), "returned 500")
	assert.NotContains(t, logs.String(), "abc.def")
}

func TestHTTPClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	c := newTestClient(server, &bytes.Buffer{})

	_, err := c.Inspect(context.Background(), "web-1", 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRequestErrorIsPermanent(t *testing.T) {
	err := &RequestError{Op: "encode body", Err: errors.New("boom")}

	assert.True(t, err.Permanent())
	assert.Contains(t, err.Error(), "encode body")
	assert.Equal(t, "boom", errors.Unwrap(err).Error())
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"AccessToken":"bearer tok","SpaceFields":{"Guid":"g-1","Name":"dev"}}`), 0600))

		creds, err := LoadCredentials(path)
		require.NoError(t, err)
		assert.Equal(t, "tok", creds.RawToken())
		assert.Equal(t, "bearer tok", creds.BearerToken())
		assert.Equal(t, "g-1", creds.SpaceGUID)
	})

	t.Run("missing token", func(t *testing.T) {
		path := filepath.Join(dir, "notoken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"SpaceFields":{"Guid":"g-1"}}`), 0600))

		_, err := LoadCredentials(path)
		assert.ErrorContains(t, err, "no access token")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCredentials(filepath.Join(dir, "absent.json"))
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{`), 0600))

		_, err := LoadCredentials(path)
		assert.ErrorContains(t, err, "failed to parse")
	})
}

func TestSanitizeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("X-Auth-Token", "secret")
	h.Set("Accept", "application/json")

	clean := SanitizeHeaders(h)
	assert.Equal(t, redacted, clean.Get("X-Auth-Token"))
	assert.Equal(t, "application/json", clean.Get("Accept"))
	assert.Equal(t, "secret", h.Get("X-Auth-Token"), "original must not be modified")

	plain := http.Header{}
	plain.Set("Accept", "text/plain")
	assert.Equal(t, plain, SanitizeHeaders(plain))
}

func TestSanitizeMessage(t *testing.T) {
	assert.Equal(t, invalidTokenPrefix, SanitizeMessage(invalidTokenPrefix+" eyJhbGci..."))
	assert.Equal(t, "group not found", SanitizeMessage("group not found"))
	assert.False(t, strings.Contains(SanitizeMessage(invalidTokenPrefix+" x"), " x"))
}
