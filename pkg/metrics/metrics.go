package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// 存储槽读写延迟（秒）
	SlotOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schedule_slot_operation_duration_seconds",
			Help:    "Schedule slot load/save/delete duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"driver", "operation", "status"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"sql"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 任务操作计数
	TaskOperationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_task_operation_count",
			Help: "Total number of task lifecycle operations",
		},
		[]string{"operation", "result"}, // operation: create, update, delete, toggle
	)

	// 快照解析失败计数
	SnapshotDecodeFailureCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schedule_snapshot_decode_failure_count",
			Help: "Total number of persisted schedules discarded as unreadable",
		},
	)

	OpenProjects = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "schedule_open_projects",
			Help: "Number of project schedules currently held in memory",
		},
	)

	// Outbox 事件数（pending / failed / dropped）
	OutboxEventCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_event_count",
			Help: "Total number of events routed through the outbox",
		},
		[]string{"result"}, // queued, sent, failed, dropped, replayed
	)

	OutboxSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_size",
			Help: "Number of events waiting in the outbox",
		},
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordSlotOperation 记录存储槽操作延迟
func RecordSlotOperation(driver, operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	SlotOperationDuration.WithLabelValues(driver, operation, status).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery(sql string, _ time.Duration) {
	SlowQueryCount.WithLabelValues(sql).Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementTaskOperation 增加任务操作计数
func IncrementTaskOperation(operation, result string) {
	TaskOperationCount.WithLabelValues(operation, result).Inc()
}

// IncrementSnapshotDecodeFailure 增加快照解析失败计数
func IncrementSnapshotDecodeFailure() {
	SnapshotDecodeFailureCount.Inc()
}

func SetOpenProjects(n int) {
	OpenProjects.Set(float64(n))
}

// IncrementOutboxEvent 增加 outbox 事件计数
func IncrementOutboxEvent(result string) {
	OutboxEventCount.WithLabelValues(result).Inc()
}

func SetOutboxSize(n int) {
	OutboxSize.Set(float64(n))
}
