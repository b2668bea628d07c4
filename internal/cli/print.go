package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/okian/hrdesk/internal/domain/flows"
	"github.com/okian/hrdesk/internal/domain/model"
)

//nolint:gochecknoglobals // terminal styles
var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	groupStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printGrid aligns rows in columns and bolds the first one. Styling is
// applied after alignment so escape codes do not skew widths.
func printGrid(w io.Writer, rows [][]string) {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
	for i, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if i == 0 {
			line = headerStyle.Render(line)
		}
		fmt.Fprintln(w, line)
	}
}

func printCatalogs(w io.Writer, groups []CatalogGroup) {
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, groupStyle.Render(g.Name))
		for _, c := range g.Catalogs {
			line := fmt.Sprintf("  %-28s %s", c.Name, c.Title)
			if c.Searchable {
				line += mutedStyle.Render(" (búsqueda)")
			}
			fmt.Fprintln(w, line)
		}
	}
}

func printTable(w io.Writer, t Table) {
	if t.Banner != "" {
		fmt.Fprintln(w, errStyle.Render(t.Banner))
	}
	rows := make([][]string, 0, len(t.Cells)+1)
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Header
	}
	rows = append(rows, header)
	rows = append(rows, t.Cells...)
	printGrid(w, rows)
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("Página %d de %d (%d registros)",
		t.Pagination.Page, max(t.TotalPages, 1), t.Pagination.Total)))
}

func printSubmit(w io.Writer, res SubmitResult) {
	if res.OK() {
		fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("Registro guardado (%s, id %s).", res.Outcome, res.Item.ID())))
		return
	}
	if res.Banner != "" {
		fmt.Fprintln(w, errStyle.Render(res.Banner))
	}
	fields := make([]string, 0, len(res.Errors))
	for f := range res.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "  %s: %s\n", f, errStyle.Render(res.Errors[f]))
	}
}

func printRoster(w io.Writer, sheet AttendanceSheet) {
	rows := [][]string{{"Participante", "Nombre", "Estatus", "Notas"}}
	for _, r := range sheet.Rows {
		rows = append(rows, []string{r.ParticipantID, r.PersonName, string(r.Status) + " " + r.Status.Label(), r.Notes})
	}
	printGrid(w, rows)
}

func printRequests(w io.Writer, reqs []flows.EnrollmentRequest) {
	if len(reqs) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No hay solicitudes pendientes."))
		return
	}
	rows := [][]string{{"Participante", "Nombre", "Fecha de solicitud"}}
	for _, r := range reqs {
		rows = append(rows, []string{r.ParticipantID, r.PersonName, r.RequestedOn})
	}
	printGrid(w, rows)
}

func printReport(w io.Writer, r model.BulkReport) {
	fmt.Fprintf(w, "%d de %d guardados.\n", len(r.Succeeded), r.Total)
	for _, f := range r.Failed {
		line := fmt.Sprintf("  %s: %s", f.Key, f.Message)
		if f.Status != 0 {
			line += fmt.Sprintf(" (HTTP %d)", f.Status)
		}
		fmt.Fprintln(w, errStyle.Render(line))
	}
}
