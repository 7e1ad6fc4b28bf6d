package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"cantiere/internal/gantt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func timelineCmd(opts *globalOptions) *cobra.Command {
	var (
		today  string
		locale string
		width  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Draw the project as a Gantt chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := gantt.Today()
			if today != "" {
				parsed, err := gantt.ParseDate(today)
				if err != nil {
					return fmt.Errorf("--today: %w", err)
				}
				day = parsed
			}

			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if locale == "" {
				locale = s.cfg.Schedule.Locale
			}
			tl := s.ctrl.Timeline(day, gantt.NewMonthLabeler(locale))

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tl)
			}
			fmt.Fprint(cmd.OutOrStdout(), newChartRenderer(width).Render(tl))
			return nil
		},
	}
	cmd.Flags().StringVar(&today, "today", "", "Reference day for an empty project (YYYY-MM-DD)")
	cmd.Flags().StringVar(&locale, "locale", "", "Month label locale (it, en, de, fr, es)")
	cmd.Flags().IntVarP(&width, "width", "w", 60, "Chart width in columns")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

var barColors = map[gantt.Color]lipgloss.Color{
	gantt.ColorBlue:   lipgloss.Color("#3B82F6"),
	gantt.ColorGreen:  lipgloss.Color("#22C55E"),
	gantt.ColorOrange: lipgloss.Color("#F97316"),
	gantt.ColorRed:    lipgloss.Color("#EF4444"),
	gantt.ColorPurple: lipgloss.Color("#A855F7"),
	gantt.ColorTeal:   lipgloss.Color("#14B8A6"),
	gantt.ColorGray:   lipgloss.Color("#6B7280"),
}

// chartRenderer maps timeline percentages onto a fixed number of columns.
type chartRenderer struct {
	width     int
	nameWidth int

	title  lipgloss.Style
	header lipgloss.Style
	muted  lipgloss.Style
}

func newChartRenderer(width int) *chartRenderer {
	if width < 10 {
		width = 10
	}
	return &chartRenderer{
		width:     width,
		nameWidth: 20,
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
		muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// columns converts a percentage of the chart into a column count.
func (r *chartRenderer) columns(pct float64) int {
	return int(math.Round(pct / 100 * float64(r.width)))
}

func (r *chartRenderer) Render(tl gantt.Timeline) string {
	var b strings.Builder

	b.WriteString(r.title.Render(fmt.Sprintf("%s → %s (%d days)", tl.Range.Min, tl.Range.Max, tl.Range.Days())))
	b.WriteString("\n")

	b.WriteString(strings.Repeat(" ", r.nameWidth+1))
	b.WriteString(r.monthHeader(tl.Months))
	b.WriteString("\n")

	if len(tl.Bars) == 0 {
		b.WriteString(r.muted.Render("(no tasks)"))
		b.WriteString("\n")
		return b.String()
	}
	for _, bar := range tl.Bars {
		b.WriteString(r.row(bar))
		b.WriteString("\n")
	}
	return b.String()
}

// monthHeader lays the month labels out at their proportional widths. The last
// month absorbs rounding so the header spans the full chart.
func (r *chartRenderer) monthHeader(months []gantt.MonthSegment) string {
	var b strings.Builder
	used := 0
	for i, m := range months {
		cols := r.columns(m.Width)
		if i == len(months)-1 {
			cols = r.width - used
		}
		cols = max(min(cols, r.width-used), 0)
		used += cols
		if cols == 0 {
			continue
		}
		b.WriteString(r.header.Render(fitCell("|"+m.Label, cols)))
	}
	return b.String()
}

func (r *chartRenderer) row(bar gantt.Bar) string {
	left := min(r.columns(bar.Position.Left), r.width)
	span := r.columns(bar.Position.Width)
	if span == 0 && bar.Position.Width > 0 {
		span = 1
	}
	span = min(span, r.width-left)

	fill := "█"
	if bar.Task.Status == gantt.StatusCompleted {
		fill = "▓"
	}
	color, ok := barColors[bar.Task.Color]
	if !ok {
		color = barColors[gantt.DefaultColor]
	}
	barStyle := lipgloss.NewStyle().Foreground(color)

	var b strings.Builder
	b.WriteString(fitCell(bar.Task.Name, r.nameWidth))
	b.WriteString(" ")
	b.WriteString(strings.Repeat(" ", left))
	b.WriteString(barStyle.Render(strings.Repeat(fill, span)))
	b.WriteString(strings.Repeat(" ", r.width-left-span))
	b.WriteString(" ")
	b.WriteString(r.muted.Render(fmt.Sprintf("%3d%% %s", bar.Task.Progress, bar.Task.Status)))
	return b.String()
}

// fitCell pads or truncates s to exactly n runes.
func fitCell(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		if n <= 1 {
			return string(runes[:n])
		}
		return string(runes[:n-1]) + "…"
	}
	return s + strings.Repeat(" ", n-len(runes))
}
