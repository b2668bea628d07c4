package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/hrdesk/internal/domain/flows"
	"github.com/okian/hrdesk/internal/domain/model"
)

// ErrStatus is returned for an attendance status the console does not know.
var ErrStatus = errors.New("unknown attendance status")

func newAttendanceCmd(opts *rootOptions) *cobra.Command {
	var (
		course string
		sets   []string
		notes  []string
	)
	cmd := &cobra.Command{
		Use:   "attendance SESSION",
		Short: "Show or save the attendance of a session",
		Long: `Without --set the session roster is printed. With --set every roster
row is written: the given participants get the new status and the rest
keep theirs. Statuses are PRE, AUS, TAR and JUS.`,
		Example: `  hrctl attendance 12 --course 3 --set 41=AUS --note 41="certificado médico"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := args[0]
			if len(sets) == 0 && len(notes) == 0 {
				sheet, err := opts.client.Attendance(cmd.Context(), session, course)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return printJSON(opts.out, sheet)
				}
				printRoster(opts.out, sheet)
				return nil
			}

			edits, err := attendanceEdits(sets, notes)
			if err != nil {
				return err
			}
			report, err := opts.client.SaveAttendance(cmd.Context(), session, course, edits)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				if err := printJSON(opts.out, report); err != nil {
					return err
				}
			} else {
				printReport(opts.out, report)
			}
			if !report.OK() {
				return fmt.Errorf("%w: %d of %d", ErrPartial, len(report.Failed), report.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&course, "course", "", "course id, read from the session when empty")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "participant=STATUS")
	cmd.Flags().StringArrayVar(&notes, "note", nil, "participant=notes")
	return cmd
}

func attendanceEdits(sets, notes []string) (map[string]flows.AttendanceEdit, error) {
	statuses, err := parseAssignments(sets)
	if err != nil {
		return nil, err
	}
	texts, err := parseAssignments(notes)
	if err != nil {
		return nil, err
	}
	edits := make(map[string]flows.AttendanceEdit, len(statuses))
	for pid, v := range statuses {
		s, _ := v.(string)
		status := model.AttendanceStatus(s)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %q for participant %s", ErrStatus, s, pid)
		}
		edits[pid] = flows.AttendanceEdit{Status: status}
	}
	for pid, v := range texts {
		text, _ := v.(string)
		edit := edits[pid]
		edit.Notes = &text
		edits[pid] = edit
	}
	return edits, nil
}
