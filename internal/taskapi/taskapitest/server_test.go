package taskapitest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/taskswarm/internal/taskapi"
)

func do(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_Lifecycle(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	resp := do(t, http.MethodPost, srv.URL+"/addTask", taskapi.Task{Title: "a"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Task taskapi.Task `json:"task"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	id := created.Task.ID
	require.NotEmpty(t, id)
	assert.True(t, srv.Has(id))

	resp = do(t, http.MethodPut, srv.URL+"/updateTask/"+id, taskapi.Task{Title: "b", Status: "completed"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/deleteTask/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, srv.Has(id))

	resp = do(t, http.MethodDelete, srv.URL+"/deleteTask/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPut, srv.URL+"/updateTask/"+id, taskapi.Task{Title: "c"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Equal(t, 1, srv.Count(RouteAdd))
	assert.Equal(t, 2, srv.Count(RouteDelete))
}

func TestServer_ListPagination(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	for i := 0; i < 7; i++ {
		srv.Seed(taskapi.Task{Title: "seed"})
	}

	resp := do(t, http.MethodGet, srv.URL+"/listTasks?page=2&limit=5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Tasks []taskapi.Task `json:"tasks"`
		Total int            `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Len(t, page.Tasks, 2)
	assert.Equal(t, 7, page.Total)

	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "2", calls[0].Query["page"])
	assert.Equal(t, "5", calls[0].Query["limit"])
}

func TestServer_SetStatus(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	srv.SetStatus(RouteHealth, http.StatusServiceUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, http.MethodGet, srv.URL+"/health", nil).StatusCode)

	srv.SetStatus(RouteHealth, 0)
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/health", nil).StatusCode)
}

func TestServer_NumericIDs(t *testing.T) {
	srv := NewServer()
	srv.NumericIDs = true
	defer srv.Close()

	resp := do(t, http.MethodPost, srv.URL+"/addTask", taskapi.Task{Title: "n"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	id, err := taskapi.DecodeCreated(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "1", id)
}

func TestNewUnstartedServer(t *testing.T) {
	srv := NewUnstartedServer()
	srv.NumericIDs = true
	srv.Start()
	defer srv.Close()

	resp := do(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, srv.Count(RouteHealth))
}
