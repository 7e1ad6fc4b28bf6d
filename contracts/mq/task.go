package mq

// Routing keys published on the events exchange after a schedule mutation.
const (
	RoutingKeyScheduleTaskCreated = "schedule.task.created"
	RoutingKeyScheduleTaskUpdated = "schedule.task.updated"
	RoutingKeyScheduleTaskDeleted = "schedule.task.deleted"
	RoutingKeyScheduleTaskToggled = "schedule.task.toggled"
)

type ScheduleTaskEventPayload struct {
	ProjectID string   `json:"project_id"`
	TaskID    string   `json:"task_id"`
	Name      string   `json:"name"`
	StartDate string   `json:"start_date"` // YYYY-MM-DD format
	EndDate   string   `json:"end_date"`   // YYYY-MM-DD format
	Status    string   `json:"status"`     // planned / in-progress / completed / delayed
	Progress  int      `json:"progress"`
	Fields    []string `json:"fields,omitempty"` // changed fields on update/toggle
}
