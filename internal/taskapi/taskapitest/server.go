// Package taskapitest provides an in-memory task API for tests.
package taskapitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"

	"github.com/wesleyorama2/taskswarm/internal/taskapi"
)

// Route identifies an endpoint independent of path parameters.
type Route string

const (
	RouteHealth  Route = "health"
	RouteMetrics Route = "metrics"
	RouteList    Route = "list"
	RouteAdd     Route = "add"
	RouteUpdate  Route = "update"
	RouteDelete  Route = "delete"
)

// Call is one request the server received.
type Call struct {
	Route  Route
	Method string
	Path   string
	Query  map[string]string
	Body   taskapi.Task
}

// Server is a task API backed by a map.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	tasks     map[string]taskapi.Task
	nextID    int
	overrides map[Route]int
	calls     []Call

	// NumericIDs makes /addTask return integer ids instead of strings.
	NumericIDs bool
}

// NewServer starts a fake task API. Callers must Close it.
func NewServer() *Server {
	s := NewUnstartedServer()
	s.Start()
	return s
}

// NewUnstartedServer returns a fake task API that is not yet listening.
// The caller may replace Listener or tune Config before calling Start.
func NewUnstartedServer() *Server {
	s := &Server{
		tasks:     make(map[string]taskapi.Task),
		overrides: make(map[Route]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handle(RouteHealth, s.health))
	mux.HandleFunc("GET /metrics", s.handle(RouteMetrics, s.metrics))
	mux.HandleFunc("GET /listTasks", s.handle(RouteList, s.list))
	mux.HandleFunc("POST /addTask", s.handle(RouteAdd, s.add))
	mux.HandleFunc("PUT /updateTask/{id}", s.handle(RouteUpdate, s.update))
	mux.HandleFunc("DELETE /deleteTask/{id}", s.handle(RouteDelete, s.remove))

	s.Server = httptest.NewUnstartedServer(mux)
	return s
}

// SetStatus forces every request on route to answer with code.
// A zero code restores normal behaviour.
func (s *Server) SetStatus(route Route, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == 0 {
		delete(s.overrides, route)
		return
	}
	s.overrides[route] = code
}

// Seed stores a task directly and returns its id.
func (s *Server) Seed(t taskapi.Task) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(t).ID
}

// Forget removes a task behind the clients' backs, as a concurrent delete would.
func (s *Server) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
}

// Has reports whether a task exists.
func (s *Server) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[id]
	return ok
}

// TaskIDs returns the stored ids in sorted order.
func (s *Server) TaskIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Calls returns a copy of every received call.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Count returns how many calls hit route.
func (s *Server) Count(route Route) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Route == route {
			n++
		}
	}
	return n
}

func (s *Server) handle(route Route, next func(w http.ResponseWriter, r *http.Request, c *Call)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := Call{
			Route:  route,
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  make(map[string]string),
		}
		for k := range r.URL.Query() {
			c.Query[k] = r.URL.Query().Get(k)
		}
		if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut) {
			_ = json.NewDecoder(r.Body).Decode(&c.Body)
		}

		s.mu.Lock()
		code, forced := s.overrides[route]
		s.mu.Unlock()

		if forced {
			s.record(c)
			w.WriteHeader(code)
			fmt.Fprintf(w, `{"error":"forced status %d"}`, code)
			return
		}

		next(w, r, &c)
		s.record(c)
	}
}

func (s *Server) record(c Call) {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request, _ *Call) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) metrics(w http.ResponseWriter, _ *http.Request, _ *Call) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "tasks_total %d\n", len(s.TaskIDs()))
}

func (s *Server) list(w http.ResponseWriter, _ *http.Request, c *Call) {
	s.mu.Lock()
	tasks := make([]taskapi.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if c.Query["status"] == "" || t.Status == c.Query["status"] {
			tasks = append(tasks, t)
		}
	}
	s.mu.Unlock()

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	page, _ := strconv.Atoi(c.Query["page"])
	limit, _ := strconv.Atoi(c.Query["limit"])
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start > len(tasks) {
		start = len(tasks)
	}
	end := start + limit
	if end > len(tasks) {
		end = len(tasks)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks[start:end],
		"page":  page,
		"limit": limit,
		"total": len(tasks),
	})
}

func (s *Server) add(w http.ResponseWriter, _ *http.Request, c *Call) {
	if c.Body.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	s.mu.Lock()
	t := s.store(c.Body)
	numeric := s.NumericIDs
	s.mu.Unlock()

	if numeric {
		n, _ := strconv.Atoi(t.ID)
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"task": map[string]interface{}{"id": n, "title": t.Title, "priority": t.Priority},
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"task": t})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, c *Call) {
	id := r.PathValue("id")

	s.mu.Lock()
	_, ok := s.tasks[id]
	if ok {
		t := c.Body
		t.ID = id
		s.tasks[id] = t
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"task": c.Body})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request, _ *Call) {
	id := r.PathValue("id")

	s.mu.Lock()
	_, ok := s.tasks[id]
	delete(s.tasks, id)
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// store must be called with s.mu held.
func (s *Server) store(t taskapi.Task) taskapi.Task {
	s.nextID++
	t.ID = strconv.Itoa(s.nextID)
	if t.Status == "" {
		t.Status = "pending"
	}
	s.tasks[t.ID] = t
	return t
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
