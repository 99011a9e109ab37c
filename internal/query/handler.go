package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	querier Querier
}

// NewRouter wires the HTTP routes of the query service.
func NewRouter(querier Querier) *mux.Router {
	h := &APIHandler{querier: querier}
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/tasks", h.tasksHandler).Methods("GET")
	r.HandleFunc("/api/v1/top", h.topHandler).Methods("POST")
	return r
}

// tasksHandler lists the tasks with stored snapshots.
func (h *APIHandler) tasksHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.querier.Tasks(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list tasks: %v", err), http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []TaskInfo{}
	}
	writeJSON(w, tasks)
}

// topHandler returns the stored top list of one task.
func (h *APIHandler) topHandler(w http.ResponseWriter, r *http.Request) {
	var req TopQuery
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	if req.TaskName == "" {
		http.Error(w, "task_name is required", http.StatusBadRequest)
		return
	}

	resp, err := h.querier.TopAddresses(r.Context(), req)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query top addresses: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}
