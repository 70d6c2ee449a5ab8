package summarizer

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate headings and labels.
func WithTranslator(translate func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = translate
	}
}

// WithVersion sets the tool version printed in the footer.
func WithVersion(version string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = version
	}
}

// NewMarkdownFormatter creates a MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		translate: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Estimate Summary"))

	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Item"), t("Value"))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Name"), s.Run.Name)
	fmt.Fprintf(&b, "| %s | %s |\n", t("Metric"), s.Run.Metric)
	fmt.Fprintf(&b, "| %s | %s |\n", t("Point of Interest"), formatMs(s.Run.PointOfInterestMs))
	fmt.Fprintf(&b, "| %s | %d |\n", t("Graph Nodes"), s.Graph.Nodes)
	fmt.Fprintf(&b, "| %s | %d |\n", t("Requests"), s.Graph.Requests)
	fmt.Fprintf(&b, "| %s | %d |\n", t("Tasks"), s.Graph.Tasks)
	fmt.Fprintf(&b, "| %s | %s |\n", t("Transfer Size"), formatBytes(s.Graph.TotalBytes))
	b.WriteString("\n")

	if len(s.Estimates) > 0 {
		fmt.Fprintf(&b, "## %s\n\n", t("Estimates"))
		fmt.Fprintf(&b, "| %s | %s | %s |\n|---|---|---:|\n", t("Scenario"), t("Preset"), t("Completion"))
		for _, e := range s.Estimates {
			value := formatMs(e.TotalMs)
			if e.Failed {
				value = t("Could not be estimated")
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", e.Scenario, e.Preset, value)
		}
		b.WriteString("\n")
	}

	if len(s.Presets) > 0 {
		fmt.Fprintf(&b, "## %s\n\n", t("Throttling"))
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n|---|---:|---:|---:|---:|\n",
			t("Preset"), t("RTT"), t("Throughput"), t("CPU Slowdown"), t("Connections"))
		for _, p := range s.Presets {
			fmt.Fprintf(&b, "| %s | %s | %s | %.1fx | %d |\n",
				p.Name, formatMs(p.RTTMs), f.formatThroughput(p.ThroughputKbps), p.CPUSlowdown, p.MaxConnections)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## %s\n\n", t("Quiet Periods"))
	fmt.Fprintf(&b, "- %s: %s\n", t("Idle"), f.formatPeriods(s.Idle))
	fmt.Fprintf(&b, "- %s: %s\n", t("Quasi-idle"), f.formatPeriods(s.QuasiIdle))
	b.WriteString("\n")

	if len(s.Graph.Diagnostics) > 0 {
		fmt.Fprintf(&b, "## %s\n\n", t("Diagnostics"))
		for _, d := range s.Graph.Diagnostics {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	generated := s.GeneratedAt.Format("2006-01-02 15:04:05 MST")
	if f.version != "" {
		fmt.Fprintf(&b, "%s loadsim %s, %s\n", t("Generated by"), f.version, generated)
	} else {
		fmt.Fprintf(&b, "%s loadsim, %s\n", t("Generated by"), generated)
	}

	return b.String()
}

func (f *MarkdownFormatter) formatThroughput(kbps float64) string {
	if kbps <= 0 {
		return f.translate("Unthrottled")
	}
	if kbps >= 1024 {
		return fmt.Sprintf("%.2f Mbps", kbps/1024)
	}
	return fmt.Sprintf("%.0f Kbps", kbps)
}

func (f *MarkdownFormatter) formatPeriods(periods []PeriodInfo) string {
	if len(periods) == 0 {
		return f.translate("None")
	}
	parts := make([]string, len(periods))
	for i, p := range periods {
		end := formatMs(p.EndMs)
		if p.Ongoing {
			end = f.translate("ongoing")
		}
		parts[i] = fmt.Sprintf("%s - %s", formatMs(p.StartMs), end)
	}
	return strings.Join(parts, ", ")
}

func formatMs(ms float64) string {
	return fmt.Sprintf("%.0f ms", ms)
}

// formatBytes formats a byte count with binary units.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
