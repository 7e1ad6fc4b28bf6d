package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cantiere/internal/gantt"
	"cantiere/internal/repository"
	"cantiere/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type ScheduleOptions struct {
	KeyPrefix      string
	StrictNotFound bool
	Events         gantt.EventPublisher
}

// ScheduleService hands out one Controller per project. A project's slot is read
// the first time the project is opened; later calls reuse the in-memory store.
type ScheduleService struct {
	backend repository.Backend
	opts    ScheduleOptions
	logger  *zap.Logger

	opening  singleflight.Group
	mu       sync.RWMutex
	projects map[string]*gantt.Controller
}

func NewScheduleService(backend repository.Backend, opts ScheduleOptions, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{
		backend:  backend,
		opts:     opts,
		logger:   logger,
		projects: make(map[string]*gantt.Controller),
	}
}

// Project returns the controller for projectID, opening its store on first use.
func (s *ScheduleService) Project(ctx context.Context, projectID string) (*gantt.Controller, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id required", gantt.ErrValidation)
	}

	s.mu.RLock()
	c, ok := s.projects[projectID]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}

	v, err, _ := s.opening.Do(projectID, func() (interface{}, error) {
		s.mu.RLock()
		c, ok := s.projects[projectID]
		s.mu.RUnlock()
		if ok {
			return c, nil
		}

		store, err := gantt.OpenStore(ctx, projectID, s.backend, s.opts.KeyPrefix, s.logger)
		if err != nil {
			return nil, err
		}
		c = gantt.NewController(store, gantt.Options{
			StrictNotFound: s.opts.StrictNotFound,
			Events:         s.opts.Events,
			Logger:         s.logger,
		})

		s.mu.Lock()
		s.projects[projectID] = c
		metrics.SetOpenProjects(len(s.projects))
		s.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*gantt.Controller), nil
}

// Purge forgets the project and deletes its persisted schedule. Controllers
// handed out before the purge fail with gantt.ErrProjectPurged from then on.
func (s *ScheduleService) Purge(ctx context.Context, projectID string) error {
	s.mu.Lock()
	c, ok := s.projects[projectID]
	delete(s.projects, projectID)
	metrics.SetOpenProjects(len(s.projects))
	s.mu.Unlock()

	if ok {
		c.Store().Close()
	}

	key := gantt.SlotKey(s.opts.KeyPrefix, projectID)
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to purge schedule of project %s: %w", projectID, err)
	}
	s.logger.Info("Project schedule purged",
		zap.String("project_id", projectID),
		zap.String("slot_key", key),
	)
	return nil
}

func (s *ScheduleService) OpenProjects() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects)
}
