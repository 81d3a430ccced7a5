package apihttp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"connector-hub/internal/auth"
	application "connector-hub/internal/normalization/application"
	normalization "connector-hub/internal/normalization/domain"
	"connector-hub/internal/normalization/infer"
	"connector-hub/internal/normalization/registry"
	"connector-hub/internal/normalization/report"
	"connector-hub/internal/observability/metrics"
)

type normalizeRequest struct {
	RuleID  string                             `json:"ruleId"`
	Records []any                              `json:"records"`
	Context normalization.NormalizationContext `json:"context"`
}

// NormalizeHandler runs the engine over a posted batch.
type NormalizeHandler struct {
	engine *application.Engine
	logger *log.Logger
}

// NewNormalizeHandler constructs a NormalizeHandler.
func NewNormalizeHandler(engine *application.Engine, logger *log.Logger) (*NormalizeHandler, error) {
	if engine == nil {
		return nil, errors.New("normalize handler: nil engine")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &NormalizeHandler{engine: engine, logger: logger}, nil
}

// ServeHTTP handles POST /api/v1/normalize.
func (h *NormalizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := decodeNormalizeRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := h.engine.Normalize(req.Records, req.RuleID, req.Context)
	observeResult(&result)
	h.logger.Printf("normalize rule=%s records=%d points=%d errors=%d",
		req.RuleID, result.Stats.InputRecords, result.Stats.OutputPoints, result.Stats.ErrorCount)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

// ReportHandler runs the engine and streams a run report instead of JSON.
type ReportHandler struct {
	engine *application.Engine
	logger *log.Logger
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(engine *application.Engine, logger *log.Logger) (*ReportHandler, error) {
	if engine == nil {
		return nil, errors.New("report handler: nil engine")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ReportHandler{engine: engine, logger: logger}, nil
}

// ServeHTTP handles POST /api/v1/normalize/report?format=xlsx|pdf.
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := decodeNormalizeRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := h.engine.Normalize(req.Records, req.RuleID, req.Context)
	observeResult(&result)

	format := r.URL.Query().Get("format")
	switch format {
	case "", "xlsx":
		data, err := report.BuildRunXLSX(&result, req.Context)
		if err != nil {
			h.logger.Printf("run report xlsx error: %v", err)
			http.Error(w, "report build error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="normalization-run.xlsx"`)
		_, _ = w.Write(data)
	case "pdf":
		data, err := report.BuildRunPDF(&result, req.Context)
		if err != nil {
			h.logger.Printf("run report pdf error: %v", err)
			http.Error(w, "report build error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="normalization-run.pdf"`)
		_, _ = w.Write(data)
	default:
		http.Error(w, "unknown format", http.StatusBadRequest)
	}
}

func decodeNormalizeRequest(r *http.Request) (normalizeRequest, error) {
	var req normalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, errors.New("invalid json")
	}
	if req.RuleID == "" {
		return req, errors.New("ruleId is required")
	}
	if req.Context.TenantID == "" {
		req.Context.TenantID = auth.TenantIDFromContext(r.Context())
	}
	if req.Context.WorkspaceID == "" {
		req.Context.WorkspaceID = auth.WorkspaceIDFromContext(r.Context())
	}
	if req.Context.IngestedAt.IsZero() {
		req.Context.IngestedAt = time.Now().UTC()
	}
	return req, nil
}

func observeResult(result *normalization.NormalizationResult) {
	metrics.ObserveNormalizeRun(result.Success,
		result.Stats.OutputPoints, result.Stats.SkippedRecords, result.Stats.Duration)
	for _, d := range result.Diagnostics {
		metrics.CountDiagnostic(string(d.Code))
	}
}

// RulesHandler serves mapping rule registration and lookup.
type RulesHandler struct {
	registry *registry.Registry
	persist  func(r *http.Request, rule normalization.MappingRule) error
	logger   *log.Logger
}

// NewRulesHandler constructs a RulesHandler. persist may be nil for
// in-memory only deployments.
func NewRulesHandler(reg *registry.Registry, persist func(r *http.Request, rule normalization.MappingRule) error, logger *log.Logger) (*RulesHandler, error) {
	if reg == nil {
		return nil, errors.New("rules handler: nil registry")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RulesHandler{registry: reg, persist: persist, logger: logger}, nil
}

// ServeHTTP handles GET|POST /api/v1/rules and GET /api/v1/rules/{id}.
func (h *RulesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/v1/rules/"):
		h.getRule(w, r)
	case r.Method == http.MethodGet:
		h.listRules(w)
	case r.Method == http.MethodPost:
		h.registerRule(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *RulesHandler) getRule(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/rules/")
	if id == "" {
		http.Error(w, "rule id is required", http.StatusBadRequest)
		return
	}
	rule, ok := h.registry.Get(id)
	if !ok {
		http.Error(w, "rule not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rule)
}

func (h *RulesHandler) listRules(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.registry.List())
}

func (h *RulesHandler) registerRule(w http.ResponseWriter, r *http.Request) {
	var rule normalization.MappingRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := h.registry.Register(rule); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.persist != nil {
		if err := h.persist(r, rule); err != nil {
			h.logger.Printf("rule persist error: %v", err)
			http.Error(w, "rule persist error", http.StatusInternalServerError)
			return
		}
	}
	metrics.CountRuleRegistered()
	h.logger.Printf("rule_registered id=%s version=%d", rule.ID, rule.Version)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": rule.ID, "version": rule.Version})
}

type inferRequest struct {
	Records    []any `json:"records"`
	SampleSize int   `json:"sampleSize"`
}

// InferHandler serves schema inference for onboarding tooling.
type InferHandler struct {
	logger *log.Logger
}

// NewInferHandler constructs an InferHandler.
func NewInferHandler(logger *log.Logger) *InferHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &InferHandler{logger: logger}
}

// ServeHTTP handles POST /api/v1/schema/infer.
func (h *InferHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req inferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	metrics.CountInferRequest()
	schema := infer.Infer(req.Records, req.SampleSize)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(schema)
}
