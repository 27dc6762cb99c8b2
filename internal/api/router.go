package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ipm-pk/fingerprint/internal/service"
	"github.com/ipm-pk/fingerprint/internal/status"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	// Health check
	r.Get("/healthz", s.handleHealth)

	// Read-only views of the engine
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/operations", s.handleOperations)
		r.Get("/tasks", s.handleTasks)
	})

	// WebSocket status stream
	r.Get("/ws", s.handleWebSocket)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// StatusView is the JSON rendering of one status snapshot, with both the
// wire codes and their readable names.
type StatusView struct {
	RunState        int8   `json:"run_state"`
	RunStateName    string `json:"run_state_name"`
	ResultState     int8   `json:"result_state"`
	ResultStateName string `json:"result_state_name"`
	ErrorType       int8   `json:"error_type"`
	ErrorTypeName   string `json:"error_type_name"`
	CurrentCommand  string `json:"current_command"`
}

func statusView(st status.Status) StatusView {
	return StatusView{
		RunState:        int8(st.RunState),
		RunStateName:    st.RunState.String(),
		ResultState:     int8(st.ResultState),
		ResultStateName: st.ResultState.String(),
		ErrorType:       int8(st.ErrorKind),
		ErrorTypeName:   st.ErrorKind.String(),
		CurrentCommand:  st.CurrentCommand,
	}
}

// handleStatus returns the current device status snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusView(s.register.Snapshot()))
}

// OperationView is the JSON rendering of one linked operation.
type OperationView struct {
	Name   string   `json:"name"`
	Method string   `json:"method"`
	Mode   string   `json:"mode"`
	Args   []string `json:"args,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

// handleOperations returns the linked operation directory, including the
// operations excluded at link time and why.
func (s *Server) handleOperations(w http.ResponseWriter, _ *http.Request) {
	descriptors := s.directory.Descriptors()
	ops := make([]OperationView, 0, len(descriptors))
	for _, desc := range descriptors {
		ops = append(ops, OperationView{
			Name:   desc.Name,
			Method: desc.Method,
			Mode:   desc.Mode.String(),
			Args:   desc.Args,
			Fields: desc.Fields,
		})
	}

	excluded := make(map[string]string)
	for name, err := range s.directory.Excluded() {
		excluded[name] = err.Error()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"operations": ops,
		"excluded":   excluded,
	})
}

// TaskView is the JSON rendering of one running background task.
type TaskView struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
	Started   string `json:"started"`
}

// handleTasks returns the currently running background tasks.
func (s *Server) handleTasks(w http.ResponseWriter, _ *http.Request) {
	var running []service.Task
	if s.tasks != nil {
		running = s.tasks.Tasks()
	}

	views := make([]TaskView, 0, len(running))
	for _, task := range running {
		views = append(views, TaskView{
			ID:        task.ID,
			Operation: task.Operation,
			Started:   task.Started.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(views),
		"tasks": views,
	})
}
