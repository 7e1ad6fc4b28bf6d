package httpserver

import (
	"context"
	"strconv"
	"time"

	"cantiere/internal/handler"
	"cantiere/pkg/metrics"
	"cantiere/pkg/trace"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadinessCheck is probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// OutboxReplayer re-sends events the outbox gave up on. *outbox.Dispatcher satisfies it.
type OutboxReplayer interface {
	ReplayFailedEvents(ctx context.Context, limit int) int
}

type routerOptions struct {
	checks []ReadinessCheck
	outbox OutboxReplayer
}

type Option func(*routerOptions)

func WithReadinessCheck(name string, check func(ctx context.Context) error) Option {
	return func(o *routerOptions) {
		o.checks = append(o.checks, ReadinessCheck{Name: name, Check: check})
	}
}

// WithOutbox mounts POST /admin/outbox/replay.
func WithOutbox(replayer OutboxReplayer) Option {
	return func(o *routerOptions) { o.outbox = replayer }
}

func NewRouter(scheduleHandler *handler.ScheduleHandler, logger *zap.Logger, opts ...Option) *gin.Engine {
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}
	checks := o.checks

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(traceMiddleware())
	r.Use(requestLogMiddleware(logger))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				c.JSON(500, gin.H{"status": check.Name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if o.outbox != nil {
		r.POST("/admin/outbox/replay", func(c *gin.Context) {
			limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
			if err != nil || limit <= 0 {
				c.JSON(400, gin.H{"error": "limit must be a positive integer"})
				return
			}
			replayed := o.outbox.ReplayFailedEvents(c.Request.Context(), limit)
			logger.Info("Outbox replay requested", zap.Int("limit", limit), zap.Int("replayed", replayed))
			c.JSON(200, gin.H{"replayed": replayed})
		})
	}

	projects := r.Group("/projects/:projectID")
	{
		projects.GET("/tasks", scheduleHandler.ListTasks)
		projects.POST("/tasks", scheduleHandler.CreateTask)
		projects.PATCH("/tasks/:id", scheduleHandler.UpdateTask)
		projects.DELETE("/tasks/:id", scheduleHandler.DeleteTask)
		projects.POST("/tasks/:id/toggle", scheduleHandler.ToggleTask)
		projects.GET("/timeline", scheduleHandler.GetTimeline)
	}
	return r
}

// traceMiddleware 读取或生成 X-Trace-ID，并写回响应头
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(trace.HeaderName)
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName, traceID)
		c.Next()
	}
}

// requestLogMiddleware 请求日志 + 延迟指标
func requestLogMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(status), latency)

		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", query),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("trace_id", trace.FromContext(c.Request.Context())),
		)
	}
}
