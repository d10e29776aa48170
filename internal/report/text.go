package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/scry-dev/scry/internal/mutation"
	"github.com/scry-dev/scry/internal/schema"
)

// WriteText writes derived schemas as human-readable styled text to
// the writer. Output uses lipgloss for color and formatting when the
// output is a TTY; degrades gracefully for pipes and CI.
func WriteText(w io.Writer, schemas []*schema.Schema) error {
	s := DefaultStyles()

	for i, sc := range schemas {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := writeOneSchema(w, sc, s); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\n%s\n",
		s.Header.Render(fmt.Sprintf("%d schema(s) derived", len(schemas))))

	return nil
}

func writeOneSchema(w io.Writer, sc *schema.Schema, s Styles) error {
	// Header.
	name := sc.Function
	if sc.Module != "" {
		name = sc.Module + "." + sc.Function
	}
	fmt.Fprintln(w, s.Header.Render(fmt.Sprintf("=== %s ===", name)))
	fmt.Fprintln(w, s.SubHeader.Render(fmt.Sprintf("    input: %s  output: %s",
		sc.InputConfidence, sc.OutputConfidence)))
	if sc.New != nil {
		fmt.Fprintln(w, s.SubHeader.Render(fmt.Sprintf("    new: %s", describeNew(sc.New))))
	}

	params := sc.ParamsInOrder()
	if len(params) == 0 {
		fmt.Fprintln(w, s.Muted.Render("    No parameters."))
	} else {
		fmt.Fprintln(w)
		fmt.Fprintln(w, paramTable(params, s))
	}

	if sc.Output != nil {
		fmt.Fprintf(w, "    Returns: %s\n", describeOutput(sc.Output))
	}

	for _, rel := range sc.Relationships {
		fmt.Fprintf(w, "    %s\n", s.Muted.Render(describeRelationship(rel)))
	}

	return nil
}

// paramTable renders the parameter specs as a bordered table.
// Budget: 80 cols total with borders and padding, leaving room for
// an indent.
func paramTable(params []*schema.ParameterSpec, s Styles) string {
	const maxConstraint = 30
	rows := make([][]string, 0, len(params))
	for _, p := range params {
		constraint := describeConstraints(p)
		if len(constraint) > maxConstraint {
			constraint = constraint[:maxConstraint-3] + "..."
		}
		rows = append(rows, []string{
			p.Name,
			string(p.Type),
			string(p.Optional),
			constraint,
		})
	}

	t := table.New().
		Width(76).
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.TableHeader
			}
			return s.TableCell
		}).
		Headers("PARAM", "TYPE", "OPTIONAL", "CONSTRAINTS").
		Rows(rows...)

	return t.String()
}

func describeConstraints(p *schema.ParameterSpec) string {
	var parts []string
	if p.Min != nil {
		parts = append(parts, "min "+formatFloat(*p.Min))
	}
	if p.Max != nil {
		parts = append(parts, "max "+formatFloat(*p.Max))
	}
	if p.Matches != "" {
		parts = append(parts, "matches "+p.Matches)
	}
	if len(p.Enum) > 0 {
		parts = append(parts, "enum{"+strings.Join(p.Enum, ",")+"}")
	}
	if p.Class != "" {
		parts = append(parts, p.Class)
	}
	if p.Semantic != "" {
		parts = append(parts, string(p.Semantic))
	}
	return strings.Join(parts, ", ")
}

func describeOutput(out *schema.ReturnSpec) string {
	desc := string(out.Type)
	if out.Class != "" {
		desc += " (" + out.Class + ")"
	}
	if out.Value != nil {
		desc += " = " + *out.Value
	}
	if out.ContextAware {
		desc += ", multi-value"
	}
	if out.Convention != "" {
		desc += ", " + string(out.Convention)
	}
	return desc
}

func describeNew(inst *schema.Instantiation) string {
	if inst.External {
		return inst.Class + " (external)"
	}
	return inst.Class + "(" + strings.Join(inst.Params, ", ") + ")"
}

func describeRelationship(rel schema.Relationship) string {
	switch rel.Type {
	case schema.RelMutuallyExclusive, schema.RelRequiredGroup:
		return fmt.Sprintf("%s: %s", rel.Type, strings.Join(rel.Params, ", "))
	case schema.RelValueConstraint:
		return fmt.Sprintf("%s: if %s then %s %s %s",
			rel.Type, rel.If, rel.Then, rel.Operator, rel.Value)
	case schema.RelValueConditional:
		return fmt.Sprintf("%s: if %s == %s then %s",
			rel.Type, rel.If, rel.Value, rel.Then)
	default:
		return fmt.Sprintf("%s: %s -> %s", rel.Type, rel.If, rel.Then)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteMutationText writes a mutation score report as styled text.
func WriteMutationText(w io.Writer, r mutation.Report) error {
	s := DefaultStyles()

	fmt.Fprintln(w, s.Header.Render("=== Mutation Score ==="))
	fmt.Fprintf(w, "%s %s\n",
		s.SummaryLabel.Render("Score:"),
		s.SummaryValue.Render(fmt.Sprintf("%.2f%%", r.Score)))
	fmt.Fprintf(w, "%s %s\n",
		s.SummaryLabel.Render("Killed:"),
		s.Killed.Render(fmt.Sprintf("%d / %d", r.Killed, r.Total)))
	if r.Errored > 0 {
		fmt.Fprintf(w, "%s %s\n",
			s.SummaryLabel.Render("Errored:"),
			s.Muted.Render(strconv.Itoa(r.Errored)))
	}

	if len(r.Survived) == 0 {
		fmt.Fprintln(w, s.Killed.Render("All mutants killed."))
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, s.Survived.Render(fmt.Sprintf("%d survived:", len(r.Survived))))
	for _, m := range r.Survived {
		fmt.Fprintf(w, "  %s %s:%d %s\n",
			s.Muted.Render(m.ID), m.File, m.Line, m.Description)
	}
	return nil
}
