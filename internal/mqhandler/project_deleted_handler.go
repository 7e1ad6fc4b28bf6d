package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqcontracts "cantiere/contracts/mq"
	"cantiere/pkg/logger"
	"cantiere/pkg/mq"
	"cantiere/pkg/util"

	"go.uber.org/zap"
)

// SchedulePurger drops a project's schedule. *service.ScheduleService satisfies it.
type SchedulePurger interface {
	Purge(ctx context.Context, projectID string) error
}

const handlerName = "project_deleted"

type ProjectDeletedHandler struct {
	schedules  SchedulePurger
	retries    util.RetryCounter
	maxRetries int64
	logger     *zap.Logger
}

// NewProjectDeletedHandler requeues retryable purge failures up to maxRetries
// times, then dead-letters the message.
func NewProjectDeletedHandler(schedules SchedulePurger, retries util.RetryCounter, maxRetries int64, logger *zap.Logger) *ProjectDeletedHandler {
	if retries == nil {
		retries = util.NewMemoryRetryCounter(0)
	}
	return &ProjectDeletedHandler{
		schedules:  schedules,
		retries:    retries,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

func (h *ProjectDeletedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.ProjectDeletedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal ProjectDeletedPayload", zap.Error(err))
		return mq.Permanent(err) // 格式错误，重试无意义，进入 DLQ
	}

	projectID := strings.TrimSpace(p.ProjectID)
	if projectID == "" {
		log.Error("Invalid project_id in project.deleted event")
		return mq.Permanent(fmt.Errorf("project.deleted without project_id"))
	}

	log.Info("Handling project.deleted event",
		zap.String("project_id", projectID),
		zap.String("reason", p.Reason),
	)

	retryKey := util.FormatRetryKey(handlerName, projectID)
	if err := h.schedules.Purge(ctx, projectID); err != nil {
		retryable, errType := util.IsRetryableError(err)
		count, cerr := h.retries.IncrementAndGet(ctx, retryKey)
		if cerr != nil {
			// 计数不可用时按首次失败处理
			log.Warn("Retry counter unavailable", zap.Error(cerr))
			count = 1
		}
		log.Error("Failed to purge project schedule",
			zap.String("project_id", projectID),
			zap.String("error_type", errType),
			zap.Int64("retry_count", count),
			zap.Error(err),
		)
		if !util.ShouldRetry(count, h.maxRetries, retryable) {
			_ = h.retries.Reset(ctx, retryKey)
			return mq.Permanent(err)
		}
		return err // 交给 Consumer 重新入队
	}
	_ = h.retries.Reset(ctx, retryKey)

	log.Info("Project schedule removed", zap.String("project_id", projectID))
	return nil
}
