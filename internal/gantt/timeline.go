package gantt

import (
	"strconv"
)

// Range is the visible window of the chart, both ends inclusive.
type Range struct {
	Min Date `json:"min_date"`
	Max Date `json:"max_date"`
}

// Days returns the inclusive length of the range in days.
func (r Range) Days() int {
	return r.Min.DaysUntil(r.Max) + 1
}

// ResolveRange spans the earliest and latest date found among all start and end
// dates. With no tasks the window is [today, today + 1 month].
func ResolveRange(tasks []Task, today Date) Range {
	if len(tasks) == 0 {
		return Range{Min: today, Max: today.AddMonths(1)}
	}

	r := Range{Min: tasks[0].StartDate, Max: tasks[0].StartDate}
	for _, t := range tasks {
		for _, d := range [2]Date{t.StartDate, t.EndDate} {
			if d.Before(r.Min) {
				r.Min = d
			}
			if d.After(r.Max) {
				r.Max = d
			}
		}
	}
	return r
}

type MonthSegment struct {
	Label string  `json:"label"`
	Start Date    `json:"start"`
	End   Date    `json:"end"`
	Days  int     `json:"days"`
	Width float64 `json:"width"`
}

// MonthSegments splits r into calendar months. Each segment covers only the days
// of its month that fall inside r, so the widths add up to 100.
func MonthSegments(r Range, labeler *MonthLabeler) []MonthSegment {
	total := r.Days()
	if total <= 0 {
		return nil
	}

	var segments []MonthSegment
	for cursor := r.Min.FirstOfMonth(); !cursor.After(r.Max); cursor = cursor.AddMonths(1) {
		start := cursor
		if start.Before(r.Min) {
			start = r.Min
		}
		end := cursor.LastOfMonth()
		if end.After(r.Max) {
			end = r.Max
		}
		days := start.DaysUntil(end) + 1
		segments = append(segments, MonthSegment{
			Label: labeler.Label(cursor),
			Start: start,
			End:   end,
			Days:  days,
			Width: float64(days) / float64(total) * 100,
		})
	}
	return segments
}

// Position places a bar inside the range as percentages of its width.
type Position struct {
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}

// CSSLeft and CSSWidth format the percentages for a style attribute.
func (p Position) CSSLeft() string  { return formatPercent(p.Left) }
func (p Position) CSSWidth() string { return formatPercent(p.Width) }

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

// PositionOf maps t onto r. The bar never starts left of 0 and never extends past
// 100; a task ending before it starts gets a zero width.
func PositionOf(t Task, r Range) Position {
	total := float64(r.Days())
	if total <= 0 {
		return Position{}
	}

	offset := r.Min.DaysUntil(t.StartDate)
	if offset < 0 {
		offset = 0
	}
	duration := t.StartDate.DaysUntil(t.EndDate) + 1

	left := min(float64(offset)/total*100, 100)
	width := float64(duration) / total * 100
	width = max(min(width, 100-left), 0)
	return Position{Left: left, Width: width}
}

type Bar struct {
	Task     Task     `json:"task"`
	Position Position `json:"position"`
}

type Timeline struct {
	Range  Range          `json:"range"`
	Months []MonthSegment `json:"months"`
	Bars   []Bar          `json:"bars"`
}

// BuildTimeline derives the full chart layout from a task snapshot.
func BuildTimeline(tasks []Task, today Date, labeler *MonthLabeler) Timeline {
	r := ResolveRange(tasks, today)
	bars := make([]Bar, 0, len(tasks))
	for _, t := range tasks {
		bars = append(bars, Bar{Task: t, Position: PositionOf(t, r)})
	}
	return Timeline{
		Range:  r,
		Months: MonthSegments(r, labeler),
		Bars:   bars,
	}
}
