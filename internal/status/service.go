package status

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/demandradar/demand-radar/internal/models"
	"github.com/demandradar/demand-radar/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Tracker is the durable lifecycle record of analysis requests, consumed by
// the orchestrator and the status endpoints.
type Tracker interface {
	CreateRequest(subreddits, keywords []string) (*models.RequestStatus, error)
	UpdateStatus(requestID, state, message string, progress int) (*models.RequestStatus, error)
	MarkCompleted(requestID string, report *models.AnalysisReport) (*models.RequestStatus, error)
	MarkFailed(requestID, errorMessage string) (*models.RequestStatus, error)
	GetRequestStatus(requestID string) (*models.RequestStatus, error)
	ListRecent(limit int) ([]*models.RequestStatus, error)
}

// Service tracks request lifecycles in memory and persists each record to
// the configured store so status survives restarts. Records are never
// deleted here; retention is an operational concern.
type Service struct {
	mu       sync.RWMutex
	requests map[string]*models.RequestStatus
	store    storage.Store
}

var _ Tracker = (*Service)(nil)

// NewService creates a status tracker backed by the given store.
func NewService(store storage.Store) *Service {
	return &Service{
		requests: make(map[string]*models.RequestStatus),
		store:    store,
	}
}

// CreateRequest registers a new pending request and returns its record.
func (s *Service) CreateRequest(subreddits, keywords []string) (*models.RequestStatus, error) {
	now := time.Now().UTC()
	request := &models.RequestStatus{
		ID:         uuid.NewString(),
		Status:     models.StatusPending,
		Message:    "Request created",
		Progress:   0,
		Subreddits: append([]string(nil), subreddits...),
		Keywords:   append([]string(nil), keywords...),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	s.requests[request.ID] = request
	s.mu.Unlock()

	s.persist(request)

	logrus.Infof("Created request %s for subreddits %v", request.ID, subreddits)
	return request.Clone(), nil
}

// UpdateStatus records pipeline progress. Terminal records are not mutated.
func (s *Service) UpdateStatus(requestID, state, message string, progress int) (*models.RequestStatus, error) {
	return s.mutate(requestID, func(request *models.RequestStatus) {
		request.Status = state
		request.Message = message
		request.Progress = progress
	})
}

// MarkCompleted stores the final report and moves the request to completed.
func (s *Service) MarkCompleted(requestID string, report *models.AnalysisReport) (*models.RequestStatus, error) {
	return s.mutate(requestID, func(request *models.RequestStatus) {
		request.Status = models.StatusCompleted
		request.Message = "Analysis completed successfully"
		request.Progress = 100
		request.Report = report
	})
}

// MarkFailed moves the request to failed with a human-readable error.
func (s *Service) MarkFailed(requestID, errorMessage string) (*models.RequestStatus, error) {
	status, err := s.mutate(requestID, func(request *models.RequestStatus) {
		request.Status = models.StatusFailed
		request.Message = "Analysis failed"
		request.Error = errorMessage
	})
	if err == nil {
		logrus.Errorf("Request %s failed: %s", requestID, errorMessage)
	}
	return status, err
}

// GetRequestStatus returns the record for a request, or nil when unknown.
func (s *Service) GetRequestStatus(requestID string) (*models.RequestStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.requests[requestID]
	if !ok {
		return nil, nil
	}
	return request.Clone(), nil
}

// ListRecent returns up to limit records, newest first.
func (s *Service) ListRecent(limit int) ([]*models.RequestStatus, error) {
	s.mu.RLock()
	all := make([]*models.RequestStatus, 0, len(s.requests))
	for _, request := range s.requests {
		all = append(all, request.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Service) mutate(requestID string, apply func(*models.RequestStatus)) (*models.RequestStatus, error) {
	s.mu.Lock()
	request, ok := s.requests[requestID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("request %s not found", requestID)
	}
	if request.Status == models.StatusCompleted || request.Status == models.StatusFailed {
		s.mu.Unlock()
		return nil, fmt.Errorf("request %s is already %s", requestID, request.Status)
	}

	apply(request)
	request.UpdatedAt = time.Now().UTC()
	snapshot := request.Clone()
	s.mu.Unlock()

	s.persist(snapshot)

	logrus.Infof("Request %s: %s (%d%%) - %s", snapshot.ID, snapshot.Status, snapshot.Progress, snapshot.Message)
	return snapshot, nil
}

// persist writes the record through to storage, best-effort.
func (s *Service) persist(request *models.RequestStatus) {
	if s.store == nil {
		return
	}

	data, err := json.Marshal(request)
	if err != nil {
		logrus.Errorf("Failed to marshal status record %s: %v", request.ID, err)
		return
	}

	if err := s.store.Store("status/"+request.ID+".json", data); err != nil {
		logrus.Errorf("Failed to persist status record %s: %v", request.ID, err)
	}
}
