package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cantiere/pkg/metrics"
	"cantiere/pkg/trace"

	"go.uber.org/zap"
)

// Sender publishes one message. *mq.Publisher satisfies it.
type Sender interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

// Dispatcher 直接发布事件；发布失败的事件进入 outbox，由后台循环重发
type Dispatcher struct {
	repo       *Repository
	sender     Sender
	logger     *zap.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
}

// NewDispatcher 创建新的 Dispatcher
func NewDispatcher(repo *Repository, sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		repo:       repo,
		sender:     sender,
		logger:     logger,
		maxRetries: 5,               // 默认最大重试5次
		interval:   1 * time.Second, // 默认每秒扫描一次
		batchSize:  100,             // 默认每次处理100个事件
	}
}

// WithMaxRetries 设置最大重试次数
func (d *Dispatcher) WithMaxRetries(maxRetries int) *Dispatcher {
	d.maxRetries = maxRetries
	return d
}

// WithInterval 设置扫描间隔
func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	d.interval = interval
	return d
}

// WithBatchSize 设置批次大小
func (d *Dispatcher) WithBatchSize(batchSize int) *Dispatcher {
	if batchSize <= 0 {
		return d
	}
	d.batchSize = batchSize
	return d
}

// Publish 满足 gantt.EventPublisher：先直发，失败则写入 outbox。
// 只有 outbox 已满时才返回错误
func (d *Dispatcher) Publish(routingKey string, payload any) error {
	return d.PublishWithContext(context.Background(), routingKey, payload)
}

func (d *Dispatcher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", routingKey, err)
	}

	sendErr := d.sender.PublishWithContext(ctx, routingKey, json.RawMessage(body))
	if sendErr == nil {
		return nil
	}

	event, ok := d.repo.InsertEvent(routingKey, body, trace.FromContext(ctx))
	if !ok {
		metrics.IncrementOutboxEvent("dropped")
		return fmt.Errorf("outbox full, dropped %s event: %w", routingKey, sendErr)
	}
	metrics.IncrementOutboxEvent("queued")
	metrics.SetOutboxSize(d.repo.Len())

	d.logger.Warn("Publish failed, event queued in outbox",
		zap.Int64("event_id", event.ID),
		zap.String("routing_key", routingKey),
		zap.Error(sendErr),
	)
	return nil
}

// Start 启动 Dispatcher（在 goroutine 中运行）
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting Outbox Dispatcher",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox Dispatcher stopped", zap.Int("remaining", d.repo.Len()))
			return
		case <-ticker.C:
			d.processPendingEvents(ctx)
		}
	}
}

// processPendingEvents 处理到期的 pending 事件
func (d *Dispatcher) processPendingEvents(ctx context.Context) {
	events := d.repo.GetPendingEvents(d.batchSize)
	if len(events) == 0 {
		return
	}

	d.logger.Debug("Processing pending events", zap.Int("count", len(events)))

	for _, event := range events {
		if err := d.send(ctx, event); err != nil {
			status := d.repo.MarkAsFailed(event.ID, d.maxRetries)
			if status == StatusFailed {
				metrics.IncrementOutboxEvent("failed")
			}
			d.logger.Error("Failed to publish event",
				zap.Int64("event_id", event.ID),
				zap.String("routing_key", event.RoutingKey),
				zap.Int("retry_count", event.RetryCount+1),
				zap.String("status", status),
				zap.Error(err),
			)
			continue
		}

		d.repo.MarkAsSent(event.ID)
		metrics.IncrementOutboxEvent("sent")
		d.logger.Debug("Event published successfully",
			zap.Int64("event_id", event.ID),
			zap.String("routing_key", event.RoutingKey),
		)
	}
	metrics.SetOutboxSize(d.repo.Len())
}

// send 发布单个事件，恢复原始 trace_id
func (d *Dispatcher) send(ctx context.Context, event Event) error {
	if event.TraceID != "" {
		ctx = trace.WithContext(ctx, event.TraceID)
	}
	if err := d.sender.PublishWithContext(ctx, event.RoutingKey, event.Payload); err != nil {
		return fmt.Errorf("failed to publish to MQ: %w", err)
	}
	return nil
}
