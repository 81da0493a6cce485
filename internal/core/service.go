package core

// service.go keeps preview results between the preview and commit requests.
//
// A preview creates a session that lives for SessionTTL. Committing it sends
// the valid rows through the commit limiter to the configured Committer. A
// failed commit leaves the session untouched so it can be retried; a
// successful one stores the ImportResult and blocks further commits. Expired
// sessions are dropped by a timer, the same way finished uploads were.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ServiceOptions configures a Service. Zero fields take the defaults below.
type ServiceOptions struct {
	SessionTTL    time.Duration
	CommitTimeout time.Duration
	MaxUploadSize int64
	ExtraFields   ExtraFieldPolicy
	RowSamples    int
	ErrorSamples  int
	Limiter       *CommitLimiter
}

const (
	DefaultSessionTTL    = 30 * time.Minute
	DefaultCommitTimeout = 2 * time.Minute
)

// Service is the entry point shared by the HTTP API and the CLI.
type Service struct {
	committer Committer
	limiter   *CommitLimiter
	opts      ServiceOptions

	mu       sync.Mutex
	sessions map[string]*importSession
}

type importSession struct {
	id         string
	preview    *PreviewResult
	result     *ImportResult
	committing bool
	expiresAt  time.Time
	timer      *time.Timer
}

// Session is the client-visible view of an import session.
type Session struct {
	ID        string         `json:"sessionId"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Preview   *PreviewResult `json:"preview"`
}

// NewService creates a Service that commits through committer.
func NewService(committer Committer, opts ServiceOptions) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = DefaultCommitTimeout
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = DefaultMaxUploadSize
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewCommitLimiter(DefaultMaxConcurrentCommits, DefaultCommitWait)
	}

	return &Service{
		committer: committer,
		limiter:   limiter,
		opts:      opts,
		sessions:  make(map[string]*importSession),
	}
}

// ListEntities returns the importable entities, grouped and sorted.
func (s *Service) ListEntities() []EntityInfo {
	defs := All()
	infos := make([]EntityInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// Entity returns the definition registered under key.
func (s *Service) Entity(key string) (EntityDefinition, error) {
	def, ok := Get(key)
	if !ok {
		return EntityDefinition{}, fmt.Errorf("%w: %s", ErrUnknownEntity, key)
	}
	return def, nil
}

// Template returns the header-only CSV for an entity.
func (s *Service) Template(key string) (string, error) {
	def, err := s.Entity(key)
	if err != nil {
		return "", err
	}
	return TemplateCSV(def.Schema), nil
}

// PreviewRequest is one uploaded file to preview.
type PreviewRequest struct {
	Entity   string
	FileName string
	Body     io.Reader

	// ExtraFields overrides the service's overflow policy for this upload.
	// Nil keeps the default.
	ExtraFields *ExtraFieldPolicy
}

// PreviewImport reads an upload, validates it against the entity's schema
// and stores the result as a new session.
func (s *Service) PreviewImport(ctx context.Context, req PreviewRequest) (*Session, error) {
	entity, fileName := req.Entity, req.FileName
	def, err := s.Entity(entity)
	if err != nil {
		return nil, err
	}

	raw, err := ReadUpload(req.Body, s.opts.MaxUploadSize)
	if err != nil {
		return nil, err
	}

	extra := s.opts.ExtraFields
	if req.ExtraFields != nil {
		extra = *req.ExtraFields
	}

	preview, err := Preview(raw, def, PreviewOptions{
		FileName:     fileName,
		ExtraFields:  extra,
		RowSamples:   s.opts.RowSamples,
		ErrorSamples: s.opts.ErrorSamples,
	})
	if err != nil {
		return nil, err
	}

	sess := &importSession{
		id:        uuid.New().String(),
		preview:   preview,
		expiresAt: time.Now().Add(s.opts.SessionTTL),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.expire(sess.id, s.opts.SessionTTL)

	slog.InfoContext(ctx, "import previewed",
		"session_id", sess.id,
		"entity", entity,
		"file", fileName,
		"rows", preview.TotalRows,
		"valid", preview.ValidCount,
		"errors", preview.ErrorCount,
	)

	return &Session{ID: sess.id, ExpiresAt: sess.expiresAt, Preview: preview}, nil
}

// GetSession returns a stored preview.
func (s *Service) GetSession(sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &Session{ID: sess.id, ExpiresAt: sess.expiresAt, Preview: sess.preview}, nil
}

// CommitImport commits a previewed session. The BatchID in opts is ignored;
// the session ID is used so that retries after a CommitError reuse it.
func (s *Service) CommitImport(ctx context.Context, sessionID string, opts CommitOptions) (*ImportResult, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	switch {
	case !ok:
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	case sess.result != nil:
		s.mu.Unlock()
		return nil, ErrAlreadyCommitted
	case sess.committing:
		s.mu.Unlock()
		return nil, ErrCommitInProgress
	}
	sess.committing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		sess.committing = false
		s.mu.Unlock()
	}()

	// The policy check must not wait for a slot.
	if opts.Policy == PolicyRequireAllValid && len(sess.preview.RowErrors) > 0 {
		return nil, ErrInvalidRowsPresent
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	commitCtx, cancel := context.WithTimeout(ctx, s.opts.CommitTimeout)
	defer cancel()

	opts.BatchID = sessionID
	result, err := Commit(commitCtx, s.committer, sess.preview, opts)
	if err != nil {
		if IsCommitError(err) {
			slog.ErrorContext(ctx, "import commit failed",
				"session_id", sessionID,
				"entity", sess.preview.Entity,
				"error", err,
			)
		}
		return nil, err
	}

	s.mu.Lock()
	sess.result = result
	s.mu.Unlock()

	return result, nil
}

// CancelImport discards a session that has not been committed.
func (s *Service) CancelImport(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.committing {
		return ErrCommitInProgress
	}
	if sess.timer != nil {
		sess.timer.Stop()
	}
	delete(s.sessions, sessionID)
	return nil
}

// SessionErrors returns the failed rows of a session: the merged errors
// after commit, or the validation rejections before it.
func (s *Service) SessionErrors(sessionID string) ([]RowFailure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.result != nil {
		return sess.result.Errors, nil
	}
	return PreviewFailures(sess.preview), nil
}

// RollbackBatch undoes a committed batch when the backend supports it.
func (s *Service) RollbackBatch(ctx context.Context, batchID string) (int64, error) {
	rb, ok := s.committer.(BatchRollbacker)
	if !ok {
		return 0, ErrRollbackUnsupported
	}

	n, err := rb.RollbackBatch(ctx, batchID)
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "import batch rolled back", "batch_id", batchID, "rows", n)
	return n, nil
}

// ListBatches returns recent batches when the backend keeps a history.
func (s *Service) ListBatches(ctx context.Context, entity string, limit int) ([]BatchSummary, error) {
	bl, ok := s.committer.(BatchLister)
	if !ok {
		return nil, ErrHistoryUnsupported
	}
	return bl.ListBatches(ctx, entity, limit)
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// LimiterStatus reports commit slot usage.
func (s *Service) LimiterStatus() CommitLimiterStatus {
	return s.limiter.Status()
}

// Shutdown waits for running commits and drops all sessions.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.limiter.WaitForDrain(ctx)

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.timer != nil {
			sess.timer.Stop()
		}
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("waiting for commits: %w", err)
	}
	return nil
}

// expire removes the session after delay.
func (s *Service) expire(sessionID string, delay time.Duration) {
	timer := time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		sess, ok := s.sessions[sessionID]
		if !ok {
			return
		}
		if sess.committing {
			sess.timer.Reset(time.Minute)
			return
		}
		delete(s.sessions, sessionID)
	})

	s.mu.Lock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.timer = timer
	}
	s.mu.Unlock()
}
