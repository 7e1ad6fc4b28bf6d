package outbox

import (
	"context"
	"fmt"

	"cantiere/pkg/metrics"
)

// ReplayEvent 立即重发一个 failed 事件；失败时重新计入重试
func (d *Dispatcher) ReplayEvent(ctx context.Context, eventID int64) error {
	if !d.repo.ReplayEvent(eventID) {
		return fmt.Errorf("event not found: %d", eventID)
	}
	metrics.IncrementOutboxEvent("replayed")

	var event *Event
	for _, e := range d.repo.GetPendingEvents(0) {
		if e.ID == eventID {
			event = &e
			break
		}
	}
	if event == nil {
		return fmt.Errorf("event not found: %d", eventID)
	}

	if err := d.send(ctx, *event); err != nil {
		d.repo.MarkAsFailed(eventID, d.maxRetries)
		return fmt.Errorf("failed to publish: %w", err)
	}
	d.repo.MarkAsSent(eventID)
	metrics.IncrementOutboxEvent("sent")
	metrics.SetOutboxSize(d.repo.Len())
	return nil
}

// ReplayFailedEvents 重放所有失败的事件，返回成功数
func (d *Dispatcher) ReplayFailedEvents(ctx context.Context, limit int) int {
	successCount := 0
	for _, event := range d.repo.GetFailedEvents(limit) {
		if err := d.ReplayEvent(ctx, event.ID); err != nil {
			// 记录错误但继续处理其他事件
			continue
		}
		successCount++
	}
	return successCount
}
