package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/duration"

	"testplan/internal/api"
	tpstrings "testplan/pkg/strings"
)

// OutputFormat represents the supported output formats for CLI commands.
type OutputFormat string

const (
	// OutputFormatTable formats output as a kubectl-style plain table
	OutputFormatTable OutputFormat = "table"
	// OutputFormatJSON formats output as raw JSON data
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML formats output as YAML data converted from JSON
	OutputFormatYAML OutputFormat = "yaml"
)

// ValidateOutputFormat validates that the given format string is a supported output format.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, json, yaml)", format)
	}
}

// Printer renders server responses in the selected format. Tables are
// kubectl-style: upper-case headers, no borders, columns separated by spaces.
type Printer struct {
	out       io.Writer
	format    OutputFormat
	noHeaders bool
	color     bool
	now       func() time.Time
}

// NewPrinter creates a printer writing to out. Colors are off; enable them
// with SetColor when out is a terminal.
func NewPrinter(out io.Writer, format OutputFormat, noHeaders bool) *Printer {
	if format == "" {
		format = OutputFormatTable
	}
	return &Printer{out: out, format: format, noHeaders: noHeaders, now: time.Now}
}

// SetColor toggles colored status cells in table output.
func (p *Printer) SetColor(enabled bool) {
	p.color = enabled
}

func (p *Printer) structured(v interface{}) (bool, error) {
	switch p.format {
	case OutputFormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, err
		}
		_, err = fmt.Fprintln(p.out, string(data))
		return true, err
	case OutputFormatYAML:
		// Round-trip through JSON so field names follow the json tags.
		data, err := json.Marshal(v)
		if err != nil {
			return true, err
		}
		var generic interface{}
		if err := json.Unmarshal(data, &generic); err != nil {
			return true, err
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return true, err
		}
		_, err = p.out.Write(out)
		return true, err
	default:
		return false, nil
	}
}

func (p *Printer) newTable(headers ...interface{}) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	style := table.StyleDefault
	style.Options = table.OptionsNoBordersAndSeparators
	style.Box.PaddingLeft = ""
	style.Box.PaddingRight = "   "
	style.Format.Header = text.FormatUpper
	t.SetStyle(style)
	if !p.noHeaders {
		t.AppendHeader(table.Row(headers))
	}
	return t
}

func (p *Printer) status(s api.TaskStatus) string {
	if !p.color {
		return string(s)
	}
	switch s {
	case api.TaskCompleted:
		return text.FgGreen.Sprint(s)
	case api.TaskFailed:
		return text.FgRed.Sprint(s)
	case api.TaskRunning:
		return text.FgYellow.Sprint(s)
	default:
		return text.FgHiBlack.Sprint(s)
	}
}

func (p *Printer) age(t time.Time) string {
	if t.IsZero() {
		return "<unknown>"
	}
	return duration.HumanDuration(p.now().Sub(t))
}

// PrintAccepted prints the answer to a submission.
func (p *Printer) PrintAccepted(a api.ImportAccepted) error {
	if ok, err := p.structured(a); ok {
		return err
	}
	t := p.newTable("Task ID", "Status", "Message")
	t.AppendRow(table.Row{a.TaskID, p.status(a.Status), tpstrings.Truncate(a.Message, tpstrings.DefaultCellMaxLen)})
	t.Render()
	return nil
}

// PrintStatus prints one task with its result, failures and log.
func (p *Printer) PrintStatus(st api.ImportStatus) error {
	if ok, err := p.structured(st); ok {
		return err
	}

	t := p.newTable("Task ID", "Project", "Version", "Status", "Progress", "Age")
	t.AppendRow(table.Row{st.TaskID, st.ProjectName, st.Version, p.status(st.Status), strconv.Itoa(st.Progress) + "%", p.age(st.CreatedAt)})
	t.Render()

	if st.Error != "" {
		fmt.Fprintf(p.out, "\nError: %s\n", st.Error)
	}
	if r := st.Result; r != nil {
		fmt.Fprintf(p.out, "\nResult: %s (created %d, updated %d, errors %d)\n", r.Status, r.Created, r.Updated, r.Errors)
		if r.TestPlanName != "" {
			fmt.Fprintf(p.out, "Test plan: %s (id %d)\n", r.TestPlanName, r.TestPlanID)
		}
		for _, f := range r.Failures {
			fmt.Fprintf(p.out, "  - %s\n", f)
		}
	}
	if len(st.Logs) > 0 {
		fmt.Fprintf(p.out, "\nLog:\n%s\n", strings.Join(st.Logs, "\n"))
	}
	return nil
}

// PrintList prints a page of tasks.
func (p *Printer) PrintList(resp api.ListImportsResponse) error {
	if ok, err := p.structured(resp); ok {
		return err
	}
	if len(resp.Tasks) == 0 {
		fmt.Fprintln(p.out, "No imports found")
		return nil
	}

	t := p.newTable("Task ID", "Project", "Version", "Status", "Progress", "Age", "Error")
	for _, st := range resp.Tasks {
		t.AppendRow(table.Row{st.TaskID, st.ProjectName, st.Version, p.status(st.Status), strconv.Itoa(st.Progress) + "%", p.age(st.CreatedAt),
			tpstrings.Truncate(st.Error, tpstrings.DefaultCellMaxLen)})
	}
	t.Render()
	if resp.HasMore {
		fmt.Fprintf(p.out, "\nShowing %d of %d, use --offset %d for more\n", len(resp.Tasks), resp.Total, resp.Offset+len(resp.Tasks))
	}
	return nil
}

// PrintPlans prints the remote plans of a project. The current plan is marked with *.
func (p *Printer) PrintPlans(resp api.ListPlansResponse) error {
	if ok, err := p.structured(resp); ok {
		return err
	}
	if len(resp.Plans) == 0 {
		fmt.Fprintf(p.out, "No test plans found for %s\n", resp.Project)
		return nil
	}

	t := p.newTable("Current", "ID", "Name", "Version", "Root Suite")
	for _, plan := range resp.Plans {
		mark := ""
		if resp.Current != nil && resp.Current.ID == plan.ID {
			mark = "*"
		}
		t.AppendRow(table.Row{mark, plan.ID, plan.Name, plan.Version, plan.RootSuiteID})
	}
	t.Render()
	return nil
}

// PrintDecision prints what an import would do.
func (p *Printer) PrintDecision(d api.VersionDecisionResponse) error {
	if ok, err := p.structured(d); ok {
		return err
	}

	current := "<none>"
	if d.CurrentPlan != nil {
		current = d.CurrentPlan.Name
	}
	t := p.newTable("Field", "Value")
	t.AppendRows([]table.Row{
		{"Project", d.Project},
		{"Version", d.Version},
		{"Current plan", current},
		{"Transition", d.Transition},
		{"Action", d.Action},
		{"New plan", d.NewPlanName},
	})
	for _, del := range d.PlansToDelete {
		t.AppendRow(table.Row{"Delete", fmt.Sprintf("%s (id %d)", del.Name, del.ID)})
	}
	t.Render()
	return nil
}

// PrintClassify prints a version transition.
func (p *Printer) PrintClassify(c api.ClassifyResponse) error {
	if ok, err := p.structured(c); ok {
		return err
	}
	old := c.Old
	if old == "" {
		old = "<none>"
	}
	t := p.newTable("Old", "New", "Transition")
	t.AppendRow(table.Row{old, c.New, c.Transition})
	t.Render()
	return nil
}
