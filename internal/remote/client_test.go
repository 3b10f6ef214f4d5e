package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/apperrors"
)

type recordedRequest struct {
	method      string
	path        string
	query       string
	contentType string
	body        string
}

func newRecordingServer(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			contentType: r.Header.Get("Content-Type"),
			body:        string(data),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	return srv, &requests
}

func TestClient_URL(t *testing.T) {
	c := NewClient("https://store.example.com/")
	assert.Equal(t, "https://store.example.com/tasks.json", c.URL("tasks"))
	assert.Equal(t, "https://store.example.com/tasks/task_1.json", c.URL("/tasks/task_1/"))

	scoped := c.WithPrefix("/guest/")
	assert.Equal(t, "guest", scoped.Prefix())
	assert.Equal(t, "https://store.example.com/guest/contacts.json", scoped.URL("contacts"))
	assert.Equal(t, "", c.Prefix(), "WithPrefix must not modify the original client")

	authed := NewClient("https://store.example.com", WithAuthToken("s3cr3t&x"))
	assert.Equal(t, "https://store.example.com/tasks.json?auth=s3cr3t%26x", authed.URL("tasks"))
}

func TestClient_GetNull(t *testing.T) {
	srv, requests := newRecordingServer(t, http.StatusOK, "null")
	c := NewClient(srv.URL)

	var out map[string]interface{}
	found, err := c.Get(context.Background(), "tasks", &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, out)

	require.Len(t, *requests, 1)
	assert.Equal(t, http.MethodGet, (*requests)[0].method)
	assert.Equal(t, "/tasks.json", (*requests)[0].path)
}

func TestClient_GetDecodes(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusOK, `{"c1":{"name":"Alice"}}`)
	c := NewClient(srv.URL)

	var out map[string]map[string]string
	found, err := c.Get(context.Background(), "contacts", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Alice", out["c1"]["name"])
}

func TestClient_PostReturnsGeneratedName(t *testing.T) {
	srv, requests := newRecordingServer(t, http.StatusOK, `{"name":"-Nabc123"}`)
	c := NewClient(srv.URL).WithPrefix("guest")

	id, err := c.Post(context.Background(), "contacts", map[string]string{"name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "-Nabc123", id)

	req := (*requests)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/guest/contacts.json", req.path)
	assert.Equal(t, "application/json", req.contentType)
	assert.JSONEq(t, `{"name":"Bob"}`, req.body)
}

func TestClient_PatchSendsOnlyGivenFields(t *testing.T) {
	srv, requests := newRecordingServer(t, http.StatusOK, `{"subtasks/0/done":true}`)
	c := NewClient(srv.URL)

	err := c.Patch(context.Background(), "tasks/task_1", map[string]interface{}{
		"subtasks/0/done": true,
	})
	require.NoError(t, err)

	req := (*requests)[0]
	assert.Equal(t, http.MethodPatch, req.method)
	assert.Equal(t, "/tasks/task_1.json", req.path)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(req.body), &sent))
	assert.Equal(t, map[string]interface{}{"subtasks/0/done": true}, sent)
}

func TestClient_WriteFailure(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusUnauthorized, `{"error":"Permission denied"}`)
	c := NewClient(srv.URL)

	err := c.Put(context.Background(), "tasks/task_1", map[string]string{"title": "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsRemoteWrite(err))

	var writeErr *apperrors.RemoteWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, http.StatusUnauthorized, writeErr.Status)
	assert.Equal(t, http.MethodPut, writeErr.Method)
	assert.Contains(t, writeErr.Body, "Permission denied")

	err = c.Delete(context.Background(), "tasks/task_1")
	assert.True(t, apperrors.IsRemoteWrite(err))
}

func TestClient_ReadFailure(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusServiceUnavailable, "down")
	c := NewClient(srv.URL)

	_, err := c.Get(context.Background(), "tasks", nil)
	assert.True(t, apperrors.IsRemoteRead(err))
	assert.False(t, apperrors.IsRemoteWrite(err))
}

func TestClient_NetworkFailureAndTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	c := NewClient(srv.URL, WithTimeout(50*time.Millisecond))
	_, err := c.Get(context.Background(), "tasks", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsNetwork(err))

	closed := NewClient("http://127.0.0.1:1")
	err = closed.Delete(context.Background(), "tasks/x")
	assert.True(t, apperrors.IsNetwork(err))
}
