package db

import "time"

// ScheduleSlot 表示 schedule_slots 表的一行：一个项目的完整任务快照
type ScheduleSlot struct {
	SlotKey   string    `json:"slot_key"`
	Payload   []byte    `json:"payload"`
	UpdatedAt time.Time `json:"updated_at"`
}
