package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ErrAssignment is returned for a --set value without "=".
var ErrAssignment = errors.New("expected key=value")

func newCatalogsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalogs",
		Short: "List the catalogs the console manages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			groups, err := opts.client.Catalogs(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(opts.out, groups)
			}
			printCatalogs(opts.out, groups)
			return nil
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		page, size int
		search     string
	)
	cmd := &cobra.Command{
		Use:   "list CATALOG",
		Short: "Show one page of a catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := opts.client.List(cmd.Context(), args[0], page, size, search)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(opts.out, table)
			}
			printTable(opts.out, table)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "page-size", 0, "rows per page (console default when 0)")
	cmd.Flags().StringVar(&search, "search", "", "search text for searchable catalogs")
	return cmd
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:     "create CATALOG --set field=value...",
		Short:   "Create a catalog record",
		Example: `  hrctl create countries --set name=Chile --set iso_2=CL --set phone_prefix=+56`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, opts, args[0], "", sets)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field value, repeat for multi-selects")
	return cmd
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "update CATALOG ID --set field=value...",
		Short: "Change fields of a catalog record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, opts, args[0], args[1], sets)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field value, repeat for multi-selects")
	return cmd
}

func runSubmit(cmd *cobra.Command, opts *rootOptions, name, id string, sets []string) error {
	values, err := parseAssignments(sets)
	if err != nil {
		return err
	}
	res, err := opts.client.Submit(cmd.Context(), name, id, values)
	if err != nil {
		return err
	}
	if opts.jsonOut {
		if err := printJSON(opts.out, res); err != nil {
			return err
		}
	} else {
		printSubmit(opts.out, res)
	}
	if !res.OK() {
		return fmt.Errorf("%w: %s", ErrRejected, res.Outcome)
	}
	return nil
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete CATALOG ID",
		Short: "Delete a catalog record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client.Delete(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(opts.out, okStyle.Render("Registro eliminado."))
			return nil
		},
	}
}

// parseAssignments turns key=value pairs into form values. A key given more
// than once collects a list.
func parseAssignments(sets []string) (map[string]any, error) {
	values := make(map[string]any, len(sets))
	for _, s := range sets {
		key, val, ok := strings.Cut(s, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrAssignment, s)
		}
		switch prev := values[key].(type) {
		case nil:
			values[key] = val
		case []any:
			values[key] = append(prev, val)
		default:
			values[key] = []any{prev, val}
		}
	}
	return values, nil
}
