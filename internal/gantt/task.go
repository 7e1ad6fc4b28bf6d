package gantt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrTaskNotFound  = errors.New("task not found")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidColor  = errors.New("invalid color")
	ErrProjectPurged = errors.New("project purged")
)

type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusDelayed    Status = "delayed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusDelayed:
		return true
	}
	return false
}

// Color is a cosmetic tag for the task bar.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorOrange Color = "orange"
	ColorRed    Color = "red"
	ColorPurple Color = "purple"
	ColorTeal   Color = "teal"
	ColorGray   Color = "gray"

	DefaultColor = ColorBlue
)

// Palette lists the accepted colors in display order.
var Palette = []Color{ColorBlue, ColorGreen, ColorOrange, ColorRed, ColorPurple, ColorTeal, ColorGray}

func (c Color) Valid() bool {
	for _, p := range Palette {
		if c == p {
			return true
		}
	}
	return false
}

type Task struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate Date   `json:"start_date"`
	EndDate   Date   `json:"end_date"`
	Status    Status `json:"status"`
	Progress  int    `json:"progress"`
	Color     Color  `json:"color"`
}

// Draft carries the fields of a task to be created. Status, Progress and Color
// fall back to planned, 0 and DefaultColor.
type Draft struct {
	Name      string `json:"name"`
	StartDate Date   `json:"start_date"`
	EndDate   Date   `json:"end_date"`
	Status    Status `json:"status,omitempty"`
	Progress  *int   `json:"progress,omitempty"`
	Color     Color  `json:"color,omitempty"`
}

func (d Draft) validate() error {
	var missing []string
	if strings.TrimSpace(d.Name) == "" {
		missing = append(missing, "name")
	}
	if d.StartDate.IsZero() {
		missing = append(missing, "start_date")
	}
	if d.EndDate.IsZero() {
		missing = append(missing, "end_date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	if d.Status != "" && !d.Status.Valid() {
		return fmt.Errorf("%w: %w %q", ErrValidation, ErrInvalidStatus, d.Status)
	}
	if d.Color != "" && !d.Color.Valid() {
		return fmt.Errorf("%w: %w %q", ErrValidation, ErrInvalidColor, d.Color)
	}
	return nil
}

func (d Draft) task(id string) Task {
	t := Task{
		ID:        id,
		Name:      d.Name,
		StartDate: d.StartDate,
		EndDate:   d.EndDate,
		Status:    d.Status,
		Color:     d.Color,
	}
	if t.Status == "" {
		t.Status = StatusPlanned
	}
	if t.Color == "" {
		t.Color = DefaultColor
	}
	if d.Progress != nil {
		t.Progress = *d.Progress
	}
	return t
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Name      *string `json:"name,omitempty"`
	StartDate *Date   `json:"start_date,omitempty"`
	EndDate   *Date   `json:"end_date,omitempty"`
	Status    *Status `json:"status,omitempty"`
	Progress  *int    `json:"progress,omitempty"`
	Color     *Color  `json:"color,omitempty"`
}

func (p Patch) validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: name cannot be blank", ErrValidation)
	}
	if p.StartDate != nil && p.StartDate.IsZero() {
		return fmt.Errorf("%w: start_date cannot be cleared", ErrValidation)
	}
	if p.EndDate != nil && p.EndDate.IsZero() {
		return fmt.Errorf("%w: end_date cannot be cleared", ErrValidation)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: %w %q", ErrValidation, ErrInvalidStatus, *p.Status)
	}
	if p.Color != nil && !p.Color.Valid() {
		return fmt.Errorf("%w: %w %q", ErrValidation, ErrInvalidColor, *p.Color)
	}
	return nil
}

func (p Patch) apply(t Task) Task {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.StartDate != nil {
		t.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		t.EndDate = *p.EndDate
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Progress != nil {
		t.Progress = *p.Progress
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
	return t
}

// Fields names the fields set on the patch, for logs and events.
func (p Patch) Fields() []string {
	var fields []string
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.StartDate != nil {
		fields = append(fields, "start_date")
	}
	if p.EndDate != nil {
		fields = append(fields, "end_date")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.Progress != nil {
		fields = append(fields, "progress")
	}
	if p.Color != nil {
		fields = append(fields, "color")
	}
	return fields
}
