package mq

const RoutingKeyProjectDeleted = "project.deleted"

// ProjectDeletedPayload is emitted by the project registry when a cantiere is
// removed; its schedule goes with it.
type ProjectDeletedPayload struct {
	ProjectID string `json:"project_id"`
	Reason    string `json:"reason,omitempty"`
}
