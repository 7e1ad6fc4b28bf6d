package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"cantiere/internal/gantt"

	"github.com/spf13/cobra"
)

func listCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the tasks of a project in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			tasks := s.ctrl.List()
			if len(tasks) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Project %s has no tasks\n", s.ctrl.ProjectID())
				return nil
			}
			return writeTaskTable(cmd.OutOrStdout(), tasks)
		},
	}
}

func writeTaskTable(out io.Writer, tasks []gantt.Task) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTART\tEND\tSTATUS\tPROGRESS\tCOLOR")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d%%\t%s\n",
			t.ID, t.Name, t.StartDate, t.EndDate, t.Status, t.Progress, t.Color)
	}
	return w.Flush()
}

// taskFlags holds the editable fields shared by add and update.
type taskFlags struct {
	name     string
	start    string
	end      string
	status   string
	progress int
	color    string
}

func (f *taskFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Task name")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.status, "status", "", "planned | in-progress | completed | delayed")
	cmd.Flags().IntVar(&f.progress, "progress", 0, "Progress percentage (0-100)")
	cmd.Flags().StringVar(&f.color, "color", "", "Bar color")
}

func checkProgress(p int) error {
	if p < 0 || p > 100 {
		return fmt.Errorf("%w: progress must be between 0 and 100", gantt.ErrValidation)
	}
	return nil
}

// parseOptionalDate leaves a blank flag as the zero Date.
func parseOptionalDate(flag, raw string) (gantt.Date, error) {
	if raw == "" {
		return gantt.Date{}, nil
	}
	d, err := gantt.ParseDate(raw)
	if err != nil {
		return gantt.Date{}, fmt.Errorf("--%s: %w", flag, err)
	}
	return d, nil
}

func (f *taskFlags) draft(cmd *cobra.Command) (gantt.Draft, error) {
	start, err := parseOptionalDate("start", f.start)
	if err != nil {
		return gantt.Draft{}, err
	}
	end, err := parseOptionalDate("end", f.end)
	if err != nil {
		return gantt.Draft{}, err
	}
	d := gantt.Draft{
		Name:      f.name,
		StartDate: start,
		EndDate:   end,
		Status:    gantt.Status(f.status),
		Color:     gantt.Color(f.color),
	}
	if cmd.Flags().Changed("progress") {
		if err := checkProgress(f.progress); err != nil {
			return gantt.Draft{}, err
		}
		p := f.progress
		d.Progress = &p
	}
	return d, nil
}

func (f *taskFlags) patch(cmd *cobra.Command) (gantt.Patch, error) {
	var p gantt.Patch
	changed := cmd.Flags().Changed

	if changed("name") {
		p.Name = &f.name
	}
	if changed("start") {
		d, err := gantt.ParseDate(f.start)
		if err != nil {
			return p, fmt.Errorf("--start: %w", err)
		}
		p.StartDate = &d
	}
	if changed("end") {
		d, err := gantt.ParseDate(f.end)
		if err != nil {
			return p, fmt.Errorf("--end: %w", err)
		}
		p.EndDate = &d
	}
	if changed("status") {
		s := gantt.Status(f.status)
		p.Status = &s
	}
	if changed("progress") {
		if err := checkProgress(f.progress); err != nil {
			return p, err
		}
		p.Progress = &f.progress
	}
	if changed("color") {
		c := gantt.Color(f.color)
		p.Color = &c
	}
	return p, nil
}

func addCmd(opts *globalOptions) *cobra.Command {
	f := &taskFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := f.draft(cmd)
			if err != nil {
				return err
			}
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.ctrl.Create(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", t.ID, t.Name)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func updateCmd(opts *globalOptions) *cobra.Command {
	f := &taskFlags{}
	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Change fields of a task; only the flags given are applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := f.patch(cmd)
			if err != nil {
				return err
			}
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.ctrl.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			reportNoop(cmd, t.ID == "", args[0])
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func toggleCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle [id]",
		Short: "Flip a task between completed and in-progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.ctrl.ToggleComplete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if t.ID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s (%d%%)\n", t.ID, t.Status, t.Progress)
				return nil
			}
			reportNoop(cmd, true, args[0])
			return nil
		},
	}
}

func rmCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"delete"},
		Short:   "Remove a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			before := s.ctrl.Store().Len()
			if err := s.ctrl.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			reportNoop(cmd, s.ctrl.Store().Len() == before, args[0])
			return nil
		},
	}
}

func reportNoop(cmd *cobra.Command, noop bool, id string) {
	if noop {
		fmt.Fprintf(cmd.ErrOrStderr(), "No task with id %s, nothing changed\n", id)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", id)
}
