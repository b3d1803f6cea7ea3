package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"paperlink/internal/compare"
	"paperlink/internal/config"
	"paperlink/internal/linking"
	"paperlink/internal/models"
	"paperlink/internal/storage"
	"paperlink/internal/workflows"
)

var (
	registrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperlink_registrations_total",
		Help: "Paper registrations accepted by the API, by dispatch mode.",
	}, []string{"mode"})
	linkingPassesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paperlink_linking_passes_total",
		Help: "Explicitly requested link discovery runs.",
	})
	searchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paperlink_searches_total",
		Help: "Keyword search requests.",
	})
)

type Server struct {
	cfg      config.Config
	papers   *storage.PaperRepo
	gate     *linking.Gate
	temporal tclient.Client
	routing  workflows.Routing
	log      *zap.Logger
}

func NewServer(cfg config.Config, db *storage.DB, tc tclient.Client, log *zap.Logger) (*Server, error) {
	comparer, err := compare.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		papers:   storage.NewPaperRepo(db),
		gate:     linking.NewGate(comparer, cfg.MaxCandidates, cfg.MinScore),
		temporal: tc,
		routing: workflows.Routing{
			PapersQueue:           cfg.PapersQueue,
			SourcesQueue:          cfg.SourcesQueue,
			LinksQueue:            cfg.LinksQueue,
			SettleMaxAttempts:     cfg.SettleMaxAttempts,
			SettleDelaySeconds:    cfg.SettleDelaySeconds,
			CompareTimeoutSeconds: cfg.CompareTimeoutSeconds,
		},
		log: log,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/papers", s.handlePapers)
	mux.HandleFunc("/papers/", s.handlePapersScoped)
	mux.HandleFunc("/search", s.handleSearch)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type registerRequest struct {
	models.Paper
	SkipUpdate bool `json:"skip_update"`
}

// handlePapers accepts a registration and starts the pipeline. With
// ?wait=true the response carries the full pipeline result; otherwise the
// workflow id comes back immediately.
func (s *Server) handlePapers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Pid = strings.TrimSpace(req.Pid)
	if req.Pid == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("pid is required"))
		return
	}

	input := workflows.RegisterInput{
		Paper:      req.Paper,
		SkipUpdate: req.SkipUpdate,
		Routing:    s.routing,
	}
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                    "register-" + req.Pid,
		TaskQueue:             s.cfg.PapersQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, workflows.PaperRegisterWorkflow, input)
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	s.log.Info("registration dispatched",
		zap.String("pid", req.Pid),
		zap.String("workflow_id", we.GetID()))

	if r.URL.Query().Get("wait") != "true" {
		registrationsTotal.WithLabelValues("async").Inc()
		writeJSON(w, http.StatusAccepted, map[string]any{
			"workflow_id": we.GetID(),
			"run_id":      we.GetRunID(),
		})
		return
	}
	registrationsTotal.WithLabelValues("wait").Inc()
	var result workflows.RegisterResult
	if err := we.Get(r.Context(), &result); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePapersScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/papers/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	pid := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		paper, err := s.papers.GetByPid(r.Context(), pid)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, paper)
		return
	}

	if len(parts) == 2 && parts[1] == "connections" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleConnections(w, r, pid)
		return
	}

	if len(parts) == 2 && parts[1] == "link" {
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleLink(w, r, pid)
		return
	}

	writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request, pid string) {
	paper, err := s.papers.GetByPid(r.Context(), pid)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	minScore := 0.0
	if raw := r.URL.Query().Get("min_score"); raw != "" {
		minScore, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid min_score"))
			return
		}
	}
	conns := make([]models.Connection, 0, len(paper.Connections))
	for _, c := range paper.Connections {
		if minScore > 0 && (c.Score == nil || *c.Score < minScore) {
			continue
		}
		conns = append(conns, c)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pid":         pid,
		"proc_status": paper.ProcStatus,
		"connections": conns,
	})
}

// handleLink re-runs link discovery for one paper. The run routes by the
// paper's citation volume, same as the registration pipeline.
func (s *Server) handleLink(w http.ResponseWriter, r *http.Request, pid string) {
	paper, err := s.papers.GetByPid(r.Context(), pid)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	linkingPassesTotal.Inc()
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                    "link-" + pid,
		TaskQueue:             workflows.QueueForReferenceCount(len(paper.References), s.routing),
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, workflows.LinkDiscoveryWorkflow, workflows.LinkInput{
		PaperID: paper.ID,
		Routing: s.routing,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, map[string]any{
			"workflow_id": we.GetID(),
			"run_id":      we.GetRunID(),
		})
		return
	}
	var result workflows.LinkResult
	if err := we.Get(r.Context(), &result); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type searchRequest struct {
	Text         string   `json:"text"`
	SubjectAreas []string `json:"subject_areas,omitempty"`
	FromYear     int      `json:"from_year,omitempty"`
	ToYear       int      `json:"to_year,omitempty"`
	Limit        int      `json:"limit,omitempty"`
}

// handleSearch selects papers by full-text relevance and runs them through
// the same comparison gate as link discovery, so search results carry the
// same scores as stored recommendations.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("text is required"))
		return
	}
	searchesTotal.Inc()

	ids, err := s.papers.SearchByText(r.Context(), req.Text, req.SubjectAreas, req.FromYear, req.ToYear, req.Limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	candidates, err := s.papers.ListByIDs(r.Context(), ids)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	// The query poses as a paper whose only text is the query itself.
	query := models.Paper{Titles: []models.TextAndLang{{Text: req.Text}}}
	recommended, _, err := s.gate.Rank(r.Context(), query, candidates)
	if err != nil {
		writeErr(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matched":         len(candidates),
		"recommendations": recommended,
	})
}

func statusFor(err error) int {
	if errors.Is(err, storage.ErrPaperNotFound) || errors.Is(err, storage.ErrSourceNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "PL-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500 && status != http.StatusBadGateway:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "PL-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "PL-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "PL-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "PL-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "PL-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "PL-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "PL-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusBadGateway:
		code = "PL-API-5020"
		msg = "Comparison service unavailable. Retry shortly."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "pid is required"):
			msg = "Paper pid is required."
		case strings.Contains(raw, "text is required"):
			msg = "Search text is required."
		case strings.Contains(raw, "invalid min_score"):
			msg = "min_score must be a number."
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(raw, "not found"):
			msg = "Paper was not found."
		}
	}

	return apiError{Code: code, Message: msg}
}
