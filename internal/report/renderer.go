package report

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	versionSentinel = "<!-- rumsession-report-version: 1 -->"
	dataPrefix      = "<!-- rumsession-data: "
	dataSuffix      = " -->"
)

// Renderer serializes a Report to bytes.
type Renderer interface {
	Render(r *Report) ([]byte, error)
}

// RendererFor returns the renderer for a "markdown" or "json" format.
func RendererFor(format string) (Renderer, error) {
	switch format {
	case "markdown", "md", "":
		return &MarkdownRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown report format %q", format)
}

// JSONRenderer renders a Report as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(rep *Report) ([]byte, error) {
	return json.MarshalIndent(rep, "", "  ")
}

// MarkdownRenderer renders a Report as Markdown with an embedded base64 JSON
// payload, so the file can be parsed back without loss.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(rep *Report) ([]byte, error) {
	jsonBytes, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(jsonBytes)

	var sb strings.Builder
	sb.WriteString(versionSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, encoded, dataSuffix)

	app := rep.ApplicationID
	if app == "" {
		app = "unknown application"
	}
	fmt.Fprintf(&sb, "# RUM sessions: %s\n\n", app)
	fmt.Fprintf(&sb, "- Events: %d\n", rep.Events)
	fmt.Fprintf(&sb, "- Sessions: %d\n\n", len(rep.Sessions))

	if len(rep.Sessions) == 0 {
		sb.WriteString("_No sessions recorded._\n")
		return []byte(sb.String()), nil
	}

	for i, s := range rep.Sessions {
		fmt.Fprintf(&sb, "## Session %d: %s\n\n", i+1, s.ID)
		fmt.Fprintf(&sb, "- Precondition: %s\n", orNone(s.Precondition))
		fmt.Fprintf(&sb, "- Start: %s\n", s.Start.UTC().Format("2006-01-02 15:04:05.000 MST"))
		fmt.Fprintf(&sb, "- Duration: %s\n", s.Duration)
		fmt.Fprintf(&sb, "- Time to initial display: %s\n", formatDuration(s.TTID))
		fmt.Fprintf(&sb, "- Errors: %d\n\n", s.Errors)

		sb.WriteString("| View | Time spent | Actions | Resources | Errors | Long tasks | TNS | INV | Active |\n")
		sb.WriteString("|------|------------|---------|-----------|--------|------------|-----|-----|--------|\n")
		for _, v := range s.Views {
			fmt.Fprintf(&sb, "| %s | %s | %d | %d | %d | %d | %s | %s | %t |\n",
				v.Name,
				v.TimeSpent,
				v.ActionCount,
				v.ResourceCount,
				v.ErrorCount,
				v.LongTaskCount,
				formatDuration(v.NetworkSettledTime),
				formatDuration(v.InteractionToNextViewTime),
				v.IsActive,
			)
		}
		sb.WriteString("\n")

		for _, v := range s.Views {
			if len(v.Actions) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "### Actions in %s\n\n", v.Name)
			for _, a := range v.Actions {
				fmt.Fprintf(&sb, "- `%s` %s (%s)\n", a.Type, orNone(a.Name), formatDuration(a.LoadingTime))
			}
			sb.WriteString("\n")
		}
	}
	return []byte(sb.String()), nil
}

func formatDuration(d *time.Duration) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func orNone(s string) string {
	if s == "" {
		return "_none_"
	}
	return s
}
