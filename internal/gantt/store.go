package gantt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cantiere/pkg/metrics"

	"go.uber.org/zap"
)

// DefaultKeyPrefix is prepended to the project id to form the slot key.
const DefaultKeyPrefix = "gantt_tasks_"

// Slot is a durable key-value entry holding one project's serialized tasks.
// Load returns nil, nil when the key has never been written.
type Slot interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

func SlotKey(prefix, projectID string) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return prefix + projectID
}

// Store is the ordered task list of a single project. Every mutation writes the
// whole list back to the slot before it becomes visible.
type Store struct {
	mu        sync.RWMutex
	projectID string
	key       string
	slot      Slot
	logger    *zap.Logger
	tasks     []Task
	closed    bool
}

// OpenStore reads the project's slot once. A snapshot that cannot be decoded is
// logged and treated as an empty schedule; a failing slot read is returned.
func OpenStore(ctx context.Context, projectID string, slot Slot, keyPrefix string, logger *zap.Logger) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id required", ErrValidation)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		projectID: projectID,
		key:       SlotKey(keyPrefix, projectID),
		slot:      slot,
		logger:    logger.With(zap.String("project_id", projectID)),
	}

	raw, err := slot.Load(ctx, s.key)
	if err != nil {
		s.logger.Error("Failed to load schedule snapshot",
			zap.String("slot_key", s.key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to load slot %s: %w", s.key, err)
	}
	s.tasks = s.decode(raw)

	s.logger.Info("Schedule opened",
		zap.String("slot_key", s.key),
		zap.Int("task_count", len(s.tasks)),
	)
	return s, nil
}

func (s *Store) decode(raw []byte) []Task {
	if len(raw) == 0 {
		return []Task{}
	}
	var tasks []Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		s.logger.Warn("Discarding unreadable schedule snapshot",
			zap.String("slot_key", s.key),
			zap.Int("payload_size", len(raw)),
			zap.Error(err),
		)
		metrics.IncrementSnapshotDecodeFailure()
		return []Task{}
	}
	kept := make([]Task, 0, len(tasks))
	for i, t := range tasks {
		if t.ID == "" || t.StartDate.IsZero() || t.EndDate.IsZero() {
			s.logger.Warn("Discarding incomplete task from schedule snapshot",
				zap.String("slot_key", s.key),
				zap.Int("index", i),
				zap.String("task_id", t.ID),
			)
			metrics.IncrementSnapshotDecodeFailure()
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

func (s *Store) ProjectID() string { return s.projectID }
func (s *Store) Key() string       { return s.key }

// Tasks returns a copy of the current list in insertion order.
func (s *Store) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func (s *Store) Get(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Close stops the store from writing to its slot again. It waits for an
// in-flight mutation, so once it returns the slot can be deleted safely.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.tasks = []Task{}
}

// mutate runs fn on a copy of the list. When fn returns a new list it is saved
// and then swapped in; a nil list means nothing changed.
func (s *Store) mutate(ctx context.Context, fn func(tasks []Task) ([]Task, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: %s", ErrProjectPurged, s.projectID)
	}

	working := make([]Task, len(s.tasks))
	copy(working, s.tasks)

	next, err := fn(working)
	if err != nil || next == nil {
		return err
	}

	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	if err := s.slot.Save(ctx, s.key, payload); err != nil {
		s.logger.Error("Failed to save schedule snapshot",
			zap.String("slot_key", s.key),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save slot %s: %w", s.key, err)
	}
	s.tasks = next

	s.logger.Debug("Schedule snapshot saved",
		zap.String("slot_key", s.key),
		zap.Int("task_count", len(next)),
		zap.Int("payload_size", len(payload)),
	)
	return nil
}
