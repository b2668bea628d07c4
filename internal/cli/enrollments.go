package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/hrdesk/internal/domain/flows"
)

// ErrDecision is returned when one participant is both approved and rejected.
var ErrDecision = errors.New("conflicting enrollment decision")

func newEnrollmentsCmd(opts *rootOptions) *cobra.Command {
	var approve, reject []string
	cmd := &cobra.Command{
		Use:   "enrollments COURSE",
		Short: "Show or answer the enrollment requests of a course",
		Long: `Without --approve or --reject the pending requests are printed.
Otherwise each named participant is approved or rejected; the rest stay
pending.`,
		Example: `  hrctl enrollments 9 --approve 41 --approve 42 --reject 43`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			course := args[0]
			if len(approve) == 0 && len(reject) == 0 {
				reqs, err := opts.client.EnrollmentRequests(cmd.Context(), course)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return printJSON(opts.out, reqs)
				}
				printRequests(opts.out, reqs)
				return nil
			}

			decisions, err := enrollmentDecisions(approve, reject)
			if err != nil {
				return err
			}
			answer, err := opts.client.DecideEnrollments(cmd.Context(), course, decisions)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				if err := printJSON(opts.out, answer); err != nil {
					return err
				}
			} else if len(answer.Errors) > 0 {
				printSubmit(opts.out, SubmitResult{Errors: answer.Errors})
			} else {
				printReport(opts.out, answer.Report)
			}
			if len(answer.Errors) > 0 {
				return fmt.Errorf("%w: %d decisions", ErrRejected, len(answer.Errors))
			}
			if !answer.Report.OK() {
				return fmt.Errorf("%w: %d of %d", ErrPartial, len(answer.Report.Failed), answer.Report.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&approve, "approve", nil, "participant id to admit")
	cmd.Flags().StringArrayVar(&reject, "reject", nil, "participant id to turn down")
	return cmd
}

func enrollmentDecisions(approve, reject []string) (map[string]flows.Decision, error) {
	decisions := make(map[string]flows.Decision, len(approve)+len(reject))
	for _, pid := range approve {
		decisions[pid] = flows.Approve
	}
	for _, pid := range reject {
		if _, dup := decisions[pid]; dup {
			return nil, fmt.Errorf("%w: participant %s", ErrDecision, pid)
		}
		decisions[pid] = flows.Reject
	}
	return decisions, nil
}
