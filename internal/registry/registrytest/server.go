// Package registrytest provides an in-memory GBDX API server for tests.
package registrytest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
)

// Server is a fake workflow API backed by maps.
type Server struct {
	server *httptest.Server
	token  string

	mu        sync.RWMutex
	tasks     map[string]json.RawMessage
	workflows map[string]map[string]interface{}
	events    map[string][]map[string]interface{}
	logs      map[string]string
	records   map[string]map[string]interface{}
	images    map[string][]map[string]interface{}
	orders    map[string][]map[string]interface{}
	s3creds   map[string]interface{}
	requests  []string
	counter   int
}

// NewServer starts a server that accepts requests bearing token. An empty
// token disables the authorization check.
func NewServer(token string) *Server {
	s := &Server{
		token:     token,
		tasks:     make(map[string]json.RawMessage),
		workflows: make(map[string]map[string]interface{}),
		events:    make(map[string][]map[string]interface{}),
		logs:      make(map[string]string),
		records:   make(map[string]map[string]interface{}),
		images:    make(map[string][]map[string]interface{}),
		orders:    make(map[string][]map[string]interface{}),
		counter:   1000,
	}

	router := mux.NewRouter()
	api := router.PathPrefix("/workflows/v1").Subrouter()
	api.Use(s.record, s.authorize)

	api.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", s.handleRegisterTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{name}", s.handleGetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{name}", s.handleDeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/schemas/{kind}", s.handleSchema).Methods(http.MethodGet)

	api.HandleFunc("/workflows", s.handleListWorkflows).Methods(http.MethodGet)
	api.HandleFunc("/workflows", s.handleLaunch).Methods(http.MethodPost)
	api.HandleFunc("/workflows/multistatus", s.handleMultiStatus).Methods(http.MethodPost)
	api.HandleFunc("/workflows/search", s.handleSchema).Methods(http.MethodGet)
	api.HandleFunc("/workflows/search", s.handleSearch).Methods(http.MethodPost)
	api.HandleFunc("/workflows/{id}", s.handleGetWorkflow).Methods(http.MethodGet)
	api.HandleFunc("/workflows/{id}/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/workflows/{id}/cancel", s.handleCancel).Methods(http.MethodPost)
	api.HandleFunc("/workflows/{id}/tasks/{task}/{stream:stdout|stderr}", s.handleTaskLog).Methods(http.MethodGet)

	catalog := router.PathPrefix("/catalog/v2").Subrouter()
	catalog.Use(s.record, s.authorize)
	catalog.HandleFunc("/record/{id}", s.handleCatalogRecord).Methods(http.MethodGet)
	catalog.HandleFunc("/search", s.handleCatalogSearch).Methods(http.MethodPost)

	orders := router.PathPrefix("/orders/v2").Subrouter()
	orders.Use(s.record, s.authorize)
	orders.HandleFunc("/order", s.handleOrder).Methods(http.MethodPost)
	orders.HandleFunc("/order/{id}", s.handleOrderStatus).Methods(http.MethodGet)

	s3 := router.PathPrefix("/s3creds/v1").Subrouter()
	s3.Use(s.record, s.authorize)
	s3.HandleFunc("/prefix", s.handleS3Prefix).Methods(http.MethodGet)

	s.server = httptest.NewServer(router)
	return s
}

// URL is the endpoint to hand to a client.
func (s *Server) URL() string {
	return s.server.URL
}

func (s *Server) Close() {
	s.server.Close()
}

// AddTask stores a task descriptor under name.
func (s *Server) AddTask(name string, descriptor interface{}) {
	data, err := json.Marshal(descriptor)
	if err != nil {
		panic(fmt.Sprintf("registrytest: cannot marshal task %s: %v", name, err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[name] = data
}

// AddWorkflow stores a workflow status document; it must carry an "id".
func (s *Server) AddWorkflow(status map[string]interface{}) {
	id := fmt.Sprint(status["id"])
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[id] = status
}

// AddEvents stores the events of workflow id.
func (s *Server) AddEvents(id string, events ...map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id] = append(s.events[id], events...)
}

// SetTaskLog stores the content of a task's stdout or stderr.
func (s *Server) SetTaskLog(workflowID, taskID, stream, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[workflowID+"/"+taskID+"/"+stream] = content
}

// AddCatalogRecord stores a catalog record; it must carry an "identifier".
func (s *Server) AddCatalogRecord(record map[string]interface{}) {
	id := fmt.Sprint(record["identifier"])
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = record
}

// AddIdahoImage stores an IDAHO image record under its strip's catalog id.
func (s *Server) AddIdahoImage(catalogID string, image map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[catalogID] = append(s.images[catalogID], image)
}

// SetS3Credentials sets the body returned by the s3creds prefix endpoint.
func (s *Server) SetS3Credentials(creds map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s3creds = creds
}

// Requests returns "METHOD path[?query]" for every request received, in order.
func (s *Server) Requests() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		entry := r.Method + " " + r.URL.Path
		if r.URL.RawQuery != "" {
			entry += "?" + r.URL.RawQuery
		}
		s.requests = append(s.requests, entry)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": names})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s.mu.RLock()
	data, ok := s.tasks[name]
	s.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": fmt.Sprintf("Task %s not found", name)})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleRegisterTask(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var task struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &task); err != nil || task.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid task definition"})
		return
	}

	s.mu.Lock()
	s.tasks[task.Name] = data
	s.mu.Unlock()
	_, _ = fmt.Fprintf(w, "%s successfully registered.", task.Name)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s.mu.Lock()
	_, ok := s.tasks[name]
	delete(s.tasks, name)
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": fmt.Sprintf("Task %s not found", name)})
		return
	}
	_, _ = fmt.Fprintf(w, "%s successfully deleted.", name)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	if kind == "" {
		kind = "WorkflowSearch"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"title": kind, "type": "object"})
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.workflows))
	for id := range s.workflows {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	writeJSON(w, http.StatusOK, map[string]interface{}{"Workflows": ids})
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	var definition map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&definition); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid workflow definition"})
		return
	}

	s.mu.Lock()
	s.counter++
	id := strconv.Itoa(s.counter)
	status := map[string]interface{}{
		"id":    id,
		"tasks": []interface{}{},
		"state": map[string]interface{}{"state": "pending", "event": "submitted"},
	}
	s.workflows[id] = status
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	status, ok := s.workflow(mux.Vars(r)["id"])
	if !ok {
		writeNotFound(w, mux.Vars(r)["id"])
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.workflow(id); !ok {
		writeNotFound(w, id)
		return
	}
	s.mu.RLock()
	events := append([]map[string]interface{}{}, s.events[id]...)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"Events": events})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	status, ok := s.workflows[id]
	if ok {
		status["state"] = map[string]interface{}{"state": "complete", "event": "canceled"}
	}
	s.mu.Unlock()
	if !ok {
		writeNotFound(w, id)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMultiStatus(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Expected a list of workflow ids"})
		return
	}

	statuses := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		status, ok := s.workflow(id)
		if !ok {
			writeNotFound(w, id)
			return
		}
		statuses = append(statuses, status)
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid search request"})
		return
	}

	s.mu.RLock()
	matches := make([]string, 0)
	for id, status := range s.workflows {
		if owner, ok := req["owner"]; ok && status["owner"] != owner {
			continue
		}
		matches = append(matches, id)
	}
	s.mu.RUnlock()
	sort.Strings(matches)

	writeJSON(w, http.StatusOK, map[string]interface{}{"Workflows": matches, "query": req})
}

func (s *Server) handleTaskLog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.RLock()
	content, ok := s.logs[vars["id"]+"/"+vars["task"]+"/"+vars["stream"]]
	s.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task log not found"})
		return
	}
	_, _ = io.WriteString(w, content)
}

func (s *Server) handleCatalogRecord(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.RLock()
	record, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": fmt.Sprintf("Catalog record %s not found", id)})
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleCatalogSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filters       []string `json:"filters"`
		Types         []string `json:"types"`
		SearchAreaWkt string   `json:"searchAreaWkt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid search request"})
		return
	}

	results := make([]map[string]interface{}, 0)
	s.mu.RLock()
	for catalogID, images := range s.images {
		for _, filter := range req.Filters {
			if filter == fmt.Sprintf("catalogID = '%s'", catalogID) {
				results = append(results, images...)
			}
		}
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results":       results,
		"types":         req.Types,
		"searchAreaWkt": req.SearchAreaWkt,
	})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil || len(ids) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Expected a list of catalog ids"})
		return
	}

	acquisitions := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		acquisitions = append(acquisitions, map[string]interface{}{"acquisition_id": id, "state": "submitted"})
	}

	s.mu.Lock()
	s.counter++
	orderID := "order-" + strconv.Itoa(s.counter)
	s.orders[orderID] = acquisitions
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"order_id": orderID, "acquisitions": acquisitions})
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.RLock()
	acquisitions, ok := s.orders[id]
	s.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": fmt.Sprintf("Order %s not found", id)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"order_id": id, "acquisitions": acquisitions})
}

func (s *Server) handleS3Prefix(w http.ResponseWriter, r *http.Request) {
	if _, err := strconv.Atoi(r.URL.Query().Get("duration")); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "duration is required"})
		return
	}
	s.mu.RLock()
	creds := s.s3creds
	s.mu.RUnlock()
	if creds == nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "No S3 access for this user"})
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

func (s *Server) workflow(id string) (map[string]interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.workflows[id]
	return status, ok
}

func writeNotFound(w http.ResponseWriter, id string) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": fmt.Sprintf("Workflow %s not found", id)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
