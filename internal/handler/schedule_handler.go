package handler

import (
	"errors"
	"net/http"

	"cantiere/internal/gantt"
	"cantiere/internal/service"
	"cantiere/pkg/circuitbreaker"
	"cantiere/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type taskDraftRequest struct {
	Name      string       `json:"name"`
	StartDate gantt.Date   `json:"start_date"`
	EndDate   gantt.Date   `json:"end_date"`
	Status    gantt.Status `json:"status"`
	Progress  *int         `json:"progress" binding:"omitempty,min=0,max=100"`
	Color     gantt.Color  `json:"color"`
}

type taskPatchRequest struct {
	Name      *string       `json:"name"`
	StartDate *gantt.Date   `json:"start_date"`
	EndDate   *gantt.Date   `json:"end_date"`
	Status    *gantt.Status `json:"status"`
	Progress  *int          `json:"progress" binding:"omitempty,min=0,max=100"`
	Color     *gantt.Color  `json:"color"`
}

type barResponse struct {
	Task     gantt.Task `json:"task"`
	Left     float64    `json:"left"`
	Width    float64    `json:"width"`
	CSSLeft  string     `json:"css_left"`
	CSSWidth string     `json:"css_width"`
}

type timelineResponse struct {
	Locale string               `json:"locale"`
	Range  gantt.Range          `json:"range"`
	Days   int                  `json:"days"`
	Months []gantt.MonthSegment `json:"months"`
	Bars   []barResponse        `json:"bars"`
}

type ScheduleHandler struct {
	schedules     *service.ScheduleService
	defaultLocale string
	today         func() gantt.Date
	logger        *zap.Logger
}

func NewScheduleHandler(schedules *service.ScheduleService, defaultLocale string, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		schedules:     schedules,
		defaultLocale: defaultLocale,
		today:         gantt.Today,
		logger:        logger,
	}
}

func (h *ScheduleHandler) project(c *gin.Context) (*gantt.Controller, bool) {
	projectID := c.Param("projectID")
	ctrl, err := h.schedules.Project(c.Request.Context(), projectID)
	if err != nil {
		h.fail(c, "open project", err)
		return nil, false
	}
	return ctrl, true
}

func (h *ScheduleHandler) ListTasks(c *gin.Context) {
	ctrl, ok := h.project(c)
	if !ok {
		return
	}
	tasks := ctrl.List()
	c.JSON(http.StatusOK, gin.H{
		"project_id": ctrl.ProjectID(),
		"tasks":      tasks,
	})
}

func (h *ScheduleHandler) CreateTask(c *gin.Context) {
	var req taskDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log(c).Warn("CreateTask: invalid body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctrl, ok := h.project(c)
	if !ok {
		return
	}

	task, err := ctrl.Create(c.Request.Context(), gantt.Draft{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    req.Status,
		Progress:  req.Progress,
		Color:     req.Color,
	})
	if err != nil {
		h.fail(c, "create task", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

func (h *ScheduleHandler) UpdateTask(c *gin.Context) {
	var req taskPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log(c).Warn("UpdateTask: invalid body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctrl, ok := h.project(c)
	if !ok {
		return
	}

	task, err := ctrl.Update(c.Request.Context(), c.Param("id"), gantt.Patch{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    req.Status,
		Progress:  req.Progress,
		Color:     req.Color,
	})
	if err != nil {
		h.fail(c, "update task", err)
		return
	}
	if task.ID == "" {
		// unknown id in lenient mode
		c.JSON(http.StatusOK, gin.H{"status": "noop"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (h *ScheduleHandler) DeleteTask(c *gin.Context) {
	ctrl, ok := h.project(c)
	if !ok {
		return
	}
	if err := ctrl.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete task", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *ScheduleHandler) ToggleTask(c *gin.Context) {
	ctrl, ok := h.project(c)
	if !ok {
		return
	}
	task, err := ctrl.ToggleComplete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "toggle task", err)
		return
	}
	if task.ID == "" {
		c.JSON(http.StatusOK, gin.H{"status": "noop"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (h *ScheduleHandler) GetTimeline(c *gin.Context) {
	today := h.today()
	if raw := c.Query("today"); raw != "" {
		parsed, err := gantt.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		today = parsed
	}
	ctrl, ok := h.project(c)
	if !ok {
		return
	}

	labeler := gantt.NewMonthLabeler(c.DefaultQuery("locale", h.defaultLocale))
	tl := ctrl.Timeline(today, labeler)

	bars := make([]barResponse, 0, len(tl.Bars))
	for _, b := range tl.Bars {
		bars = append(bars, barResponse{
			Task:     b.Task,
			Left:     b.Position.Left,
			Width:    b.Position.Width,
			CSSLeft:  b.Position.CSSLeft(),
			CSSWidth: b.Position.CSSWidth(),
		})
	}
	c.JSON(http.StatusOK, timelineResponse{
		Locale: labeler.Locale(),
		Range:  tl.Range,
		Days:   tl.Range.Days(),
		Months: tl.Months,
		Bars:   bars,
	})
}

func (h *ScheduleHandler) log(c *gin.Context) *zap.Logger {
	return logger.WithTrace(c.Request.Context(), h.logger).With(
		zap.String("project_id", c.Param("projectID")),
		zap.String("client_ip", c.ClientIP()),
	)
}

func (h *ScheduleHandler) fail(c *gin.Context, op string, err error) {
	log := h.log(c).With(zap.String("op", op), zap.String("task_id", c.Param("id")))
	switch {
	case errors.Is(err, gantt.ErrValidation):
		log.Warn("Request rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, gantt.ErrTaskNotFound):
		log.Warn("Task not found", zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, gantt.ErrProjectPurged):
		log.Warn("Project purged", zap.Error(err))
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, circuitbreaker.ErrOpen):
		log.Error("Storage unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
	default:
		log.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + op})
	}
}
