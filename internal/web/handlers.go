package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/csvimport/internal/core"
	"github.com/JonMunkholm/csvimport/internal/logging"
	"github.com/go-chi/chi/v5"
)

// Batch listing bounds
const (
	defaultBatchLimit = 50
	maxBatchLimit     = 500
)

// handleHealth reports liveness plus session and commit slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.service.SessionCount(),
		"commits":  s.service.LimiterStatus(),
	})
}

// handleListEntities returns the registered entity catalog.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": s.service.ListEntities(),
	})
}

// handleDownloadTemplate returns a header-only CSV for an entity.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")

	csvText, err := s.service.Template(entity)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-template.csv"`, entity))
	_, _ = io.WriteString(w, csvText)
}

// handlePreview validates an uploaded file and opens an import session.
//
// Form fields:
//
//	file          the CSV (required)
//	extra_fields  "ignore" or "reject" (optional)
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	if _, err := s.service.Entity(entity); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			err = fmt.Errorf("%w: %v", core.ErrFileTooLarge, err)
		} else {
			err = fmt.Errorf("%w: %v", errNoFile, err)
		}
		s.respondError(w, r, err, statusFor(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, statusFor(errNoFile))
		return
	}
	defer file.Close()

	var extraFields *core.ExtraFieldPolicy
	if extra := r.FormValue("extra_fields"); extra != "" {
		policy, ok := core.ParseExtraFieldPolicy(extra)
		if !ok {
			err := fmt.Errorf("%w: %q", errBadExtraField, extra)
			s.respondError(w, r, err, statusFor(err))
			return
		}
		extraFields = &policy
	}

	ctx := withRequestMeta(r)
	sess, err := s.service.PreviewImport(ctx, core.PreviewRequest{
		Entity:      entity,
		FileName:    header.Filename,
		Body:        file,
		ExtraFields: extraFields,
	})
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// handleGetSession returns a stored preview.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.GetSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// commitRequest is the optional JSON body of a commit.
type commitRequest struct {
	Policy        string         `json:"policy"`
	ContextParams map[string]any `json:"contextParams"`
}

// handleCommit sends a previewed session's valid rows to the backend.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req commitRequest
	if r.Body != nil {
		dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: %v", errBadBody, err)
			s.respondError(w, r, err, statusFor(err))
			return
		}
	}

	policy := s.cfg.CommitPolicy()
	if req.Policy != "" {
		p, ok := core.ParseCommitPolicy(req.Policy)
		if !ok {
			err := fmt.Errorf("%w: %q", errBadPolicy, req.Policy)
			s.respondError(w, r, err, statusFor(err))
			return
		}
		policy = p
	}

	ctx := withRequestMeta(r)
	logger := logging.WithFields(ctx, "session_id", sessionID, "policy", policy.String())

	result, err := s.service.CommitImport(ctx, sessionID, core.CommitOptions{
		Policy:        policy,
		ContextParams: req.ContextParams,
	})
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	logger.Info("commit finished",
		"batch_id", result.BatchID,
		"success", result.SuccessCount,
		"failed", result.FailedCount,
	)
	writeJSON(w, http.StatusOK, result)
}

// handleCancelImport discards an uncommitted session.
func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelImport(chi.URLParam(r, "sessionID")); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleExportErrors streams a session's rejected rows as CSV.
func (s *Server) handleExportErrors(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	failures, err := s.service.SessionErrors(sessionID)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-errors.csv"`, sessionID))
	if err := core.WriteErrorReport(w, failures); err != nil {
		logging.FromContext(r.Context()).Error("error report write failed", "session_id", sessionID, "error", err)
	}
}

// handleListBatches lists recent batches, optionally for one entity.
func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	limit := defaultBatchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			err := fmt.Errorf("%w: %q", errBadLimit, v)
			s.respondError(w, r, err, statusFor(err))
			return
		}
		limit = min(n, maxBatchLimit)
	}

	batches, err := s.service.ListBatches(r.Context(), r.URL.Query().Get("entity"), limit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if batches == nil {
		batches = []core.BatchSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": batches})
}

// handleRollbackBatch removes the records a batch inserted.
func (s *Server) handleRollbackBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	n, err := s.service.RollbackBatch(withRequestMeta(r), batchID)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"batchId":     batchID,
		"rowsDeleted": n,
	})
}
