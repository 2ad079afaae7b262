// Package clusterapi exposes a clustering job queue over HTTP: submit a
// network file, poll for its result, and list recent runs. It is the
// same net/http.ServeMux-plus-JSON-handlers shape as the profiling
// service's own web UI API, fronting internal/jobqueue and
// internal/jobrepo instead of flamegraph/callgraph data.
package clusterapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mapequation/infomap-go/internal/jobqueue"
	"github.com/mapequation/infomap-go/internal/jobrepo"
	"github.com/mapequation/infomap-go/pkg/config"
	"github.com/mapequation/infomap-go/pkg/utils"
)

// Server serves the cluster submission/result API.
type Server struct {
	port    int
	dataDir string
	logger  utils.Logger
	server  *http.Server

	source *jobqueue.MemorySource
	queue  *jobqueue.Queue
	runs   jobrepo.Repository
	apm    config.APMConfig
}

// New builds a Server around an already-started Queue/MemorySource pair
// and a run repository for polling completed jobs.
func New(port int, dataDir string, logger utils.Logger, source *jobqueue.MemorySource, queue *jobqueue.Queue, runs jobrepo.Repository, apm config.APMConfig) *Server {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}
	return &Server{port: port, dataDir: dataDir, logger: logger, source: source, queue: queue, runs: runs, apm: apm}
}

// Start builds the route table and blocks serving HTTP until the
// server is shut down or ListenAndServe fails.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/clusters", s.handleSubmit)
	mux.HandleFunc("/api/clusters/", s.handleGetRun)
	mux.HandleFunc("/api/runs", s.handleListRuns)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("clusterapi: listening on :%d, data dir %s", s.port, s.dataDir)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// submitRequest is the JSON body accepted by POST /api/clusters. Either
// Network or NetworkKey must be set: Network carries the file inline,
// NetworkKey names an object already uploaded through internal/netstore
// (e.g. by a caller too large to inline over JSON). ResultKey, if set,
// publishes the output through the same store instead of leaving it
// only on the worker's local filesystem.
type submitRequest struct {
	InputFormat string `json:"input_format"`
	Network     string `json:"network"`     // raw network file contents
	NetworkKey  string `json:"network_key"` // object-storage key, alternative to Network
	ResultKey   string `json:"result_key"`  // object-storage key to publish the result under
	Format      string `json:"format"`      // output format: clu, tree, ftree
	Priority    int    `json:"priority"`
	Seed        int64  `json:"seed"`
}

type submitResponse struct {
	JobUUID string `json:"job_uuid"`
	Status  string `json:"status"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "only POST is supported")
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decoding request: %v", err))
		return
	}
	if req.Network == "" && req.NetworkKey == "" {
		writeError(w, http.StatusBadRequest, "network or network_key is required")
		return
	}

	jobUUID := uuid.NewString()
	jobDir := filepath.Join(s.dataDir, jobUUID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("creating job dir: %v", err))
		return
	}

	inputPath := filepath.Join(jobDir, "network.net")
	if req.Network != "" {
		if err := os.WriteFile(inputPath, []byte(req.Network), 0644); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("writing network file: %v", err))
			return
		}
	}

	outFormat := req.Format
	if outFormat == "" {
		outFormat = "tree"
	}

	job := &jobqueue.ClusterJob{
		UUID:       jobUUID,
		InputPath:  inputPath,
		InputFmt:   req.InputFormat,
		NetworkKey: req.NetworkKey,
		ResultKey:  req.ResultKey,
		OutputPath: filepath.Join(jobDir, "result"),
		Format:     outFormat,
		Priority:   req.Priority,
		Status:     jobqueue.StatusPending,
		CreatedAt:  time.Now(),
	}
	job.Config.Seed = req.Seed

	if err := s.source.Submit(r.Context(), job); err != nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("submitting job: %v", err))
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{JobUUID: jobUUID, Status: jobqueue.StatusPending.String()})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	jobUUID := strings.TrimPrefix(r.URL.Path, "/api/clusters/")
	if jobUUID == "" {
		writeError(w, http.StatusBadRequest, "job uuid is required")
		return
	}

	run, err := s.runs.GetRunByUUID(r.Context(), jobUUID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	runs, err := s.runs.ListRecentRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.queue.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"running":        stats.Running,
		"active_workers": stats.ActiveWorkers,
		"total_workers":  stats.TotalWorkers,
		"queued_jobs":    stats.QueuedJobs,
	})
}

// NotifyCompletion posts a webhook to the configured APM endpoint when a
// job finishes, if APM callbacks are enabled. It is registered as a
// Queue.OnResult callback alongside run persistence.
func (s *Server) NotifyCompletion(res *jobqueue.Result) {
	if !s.apm.Enabled || s.apm.URL == "" {
		return
	}
	body, err := json.Marshal(res)
	if err != nil {
		s.logger.Warn("clusterapi: marshalling APM callback for %s: %v", res.JobUUID, err)
		return
	}
	resp, err := http.Post(s.apm.URL, "application/json", io.NopCloser(strings.NewReader(string(body))))
	if err != nil {
		s.logger.Warn("clusterapi: APM callback for %s failed: %v", res.JobUUID, err)
		return
	}
	resp.Body.Close()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
