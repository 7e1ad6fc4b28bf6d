package gantt

import (
	"context"
	"errors"
	"fmt"

	mqcontracts "cantiere/contracts/mq"
	"cantiere/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher receives a notification after every successful mutation.
// *mq.Publisher and *outbox.Dispatcher satisfy it.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

type Options struct {
	// StrictNotFound makes Update, Delete and ToggleComplete return
	// ErrTaskNotFound for unknown ids instead of doing nothing.
	StrictNotFound bool
	Events         EventPublisher
	NewID          func() string
	Logger         *zap.Logger
}

// Controller applies task lifecycle operations to a project's Store.
type Controller struct {
	store  *Store
	strict bool
	events EventPublisher
	newID  func() string
	logger *zap.Logger
}

func NewController(store *Store, opts Options) *Controller {
	c := &Controller{
		store:  store,
		strict: opts.StrictNotFound,
		events: opts.Events,
		newID:  opts.NewID,
		logger: opts.Logger,
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if c.logger == nil {
		c.logger = store.logger
	} else {
		c.logger = c.logger.With(zap.String("project_id", store.ProjectID()))
	}
	return c
}

func (c *Controller) Store() *Store { return c.store }

func (c *Controller) ProjectID() string { return c.store.ProjectID() }

func (c *Controller) List() []Task { return c.store.Tasks() }

func (c *Controller) Get(id string) (Task, error) {
	t, ok := c.store.Get(id)
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t, nil
}

func (c *Controller) Create(ctx context.Context, d Draft) (Task, error) {
	if err := d.validate(); err != nil {
		c.logger.Warn("Rejected task draft", zap.String("name", d.Name), zap.Error(err))
		c.record("create", err)
		return Task{}, err
	}

	t := d.task(c.newID())
	err := c.store.mutate(ctx, func(tasks []Task) ([]Task, error) {
		return append(tasks, t), nil
	})
	c.record("create", err)
	if err != nil {
		return Task{}, err
	}

	c.logger.Info("Task created",
		zap.String("task_id", t.ID),
		zap.String("name", t.Name),
		zap.Stringer("start_date", t.StartDate),
		zap.Stringer("end_date", t.EndDate),
	)
	c.publish(mqcontracts.RoutingKeyScheduleTaskCreated, t, nil)
	return t, nil
}

// Update merges p into the task with the given id. An unknown id returns the zero
// Task and a nil error unless StrictNotFound is set.
func (c *Controller) Update(ctx context.Context, id string, p Patch) (Task, error) {
	if err := p.validate(); err != nil {
		c.record("update", err)
		return Task{}, err
	}

	var updated Task
	err := c.store.mutate(ctx, func(tasks []Task) ([]Task, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return nil, c.notFound(id)
		}
		tasks[i] = p.apply(tasks[i])
		updated = tasks[i]
		return tasks, nil
	})
	c.record("update", err)
	if err != nil || updated.ID == "" {
		return Task{}, err
	}

	c.logger.Info("Task updated",
		zap.String("task_id", id),
		zap.Strings("fields", p.Fields()),
	)
	c.publish(mqcontracts.RoutingKeyScheduleTaskUpdated, updated, p.Fields())
	return updated, nil
}

func (c *Controller) Delete(ctx context.Context, id string) error {
	var removed Task
	err := c.store.mutate(ctx, func(tasks []Task) ([]Task, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return nil, c.notFound(id)
		}
		removed = tasks[i]
		return append(tasks[:i], tasks[i+1:]...), nil
	})
	c.record("delete", err)
	if err != nil || removed.ID == "" {
		return err
	}

	c.logger.Info("Task deleted", zap.String("task_id", id), zap.String("name", removed.Name))
	c.publish(mqcontracts.RoutingKeyScheduleTaskDeleted, removed, nil)
	return nil
}

// ToggleComplete flips a task between completed and in-progress. Entering
// completed forces progress to 100; leaving it keeps progress as is. Any other
// status is treated as not completed.
func (c *Controller) ToggleComplete(ctx context.Context, id string) (Task, error) {
	var toggled Task
	err := c.store.mutate(ctx, func(tasks []Task) ([]Task, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return nil, c.notFound(id)
		}
		if tasks[i].Status == StatusCompleted {
			tasks[i].Status = StatusInProgress
		} else {
			tasks[i].Status = StatusCompleted
			tasks[i].Progress = 100
		}
		toggled = tasks[i]
		return tasks, nil
	})
	c.record("toggle", err)
	if err != nil || toggled.ID == "" {
		return Task{}, err
	}

	c.logger.Info("Task completion toggled",
		zap.String("task_id", id),
		zap.String("status", string(toggled.Status)),
		zap.Int("progress", toggled.Progress),
	)
	c.publish(mqcontracts.RoutingKeyScheduleTaskToggled, toggled, []string{"status", "progress"})
	return toggled, nil
}

func (c *Controller) Timeline(today Date, labeler *MonthLabeler) Timeline {
	return BuildTimeline(c.store.Tasks(), today, labeler)
}

func (c *Controller) notFound(id string) error {
	if c.strict {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	c.logger.Debug("Ignoring operation on unknown task", zap.String("task_id", id))
	return nil
}

func (c *Controller) record(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrValidation):
		result = "invalid"
	case errors.Is(err, ErrTaskNotFound):
		result = "not_found"
	case errors.Is(err, ErrProjectPurged):
		result = "purged"
	default:
		result = "error"
	}
	metrics.IncrementTaskOperation(op, result)
}

func (c *Controller) publish(routingKey string, t Task, fields []string) {
	if c.events == nil {
		return
	}
	payload := mqcontracts.ScheduleTaskEventPayload{
		ProjectID: c.store.ProjectID(),
		TaskID:    t.ID,
		Name:      t.Name,
		StartDate: t.StartDate.String(),
		EndDate:   t.EndDate.String(),
		Status:    string(t.Status),
		Progress:  t.Progress,
		Fields:    fields,
	}
	if err := c.events.Publish(routingKey, payload); err != nil {
		c.logger.Error("Failed to publish schedule event",
			zap.String("routing_key", routingKey),
			zap.String("task_id", t.ID),
			zap.Error(err),
		)
	}
}

func indexOf(tasks []Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
