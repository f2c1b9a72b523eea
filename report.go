// komandan
package main

import (
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"
)

// ###################################
//      REPORT AGGREGATOR
// ###################################

// ReportRecord is one (task, host) outcome filed by the dispatcher.
type ReportRecord struct {
	Task   string `yaml:"task"`
	Host   string `yaml:"host"`
	Status string `yaml:"status"`
}

// Report is a process-wide, mutex-guarded append-only list of outcomes,
// printed as a fixed-width summary at the end of a run. Grounded on the
// teacher's PostDeploymentMetrics/FailureTracker pattern of a single
// mutex-protected accumulator fed by concurrent workers and drained once at
// the end.
type Report struct {
	mutex   sync.Mutex
	records []ReportRecord
}

func newReport() *Report {
	return &Report{}
}

// Insert appends one outcome. Safe for concurrent use by parallel fan-out.
func (r *Report) Insert(task, host string, status Status) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.records = append(r.records, ReportRecord{Task: task, Host: host, Status: status.String()})
}

// Records returns a defensive copy of the accumulated outcomes.
func (r *Report) Records() []ReportRecord {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]ReportRecord, len(r.records))
	copy(out, r.records)
	return out
}

const reportWidth = 80

// centerFill centers label inside a line of width filled with fillChar on
// both sides, matching original_source's `{:=^width$}`/`{:-^width$}` report
// banners.
func centerFill(label string, fillChar byte, width int) string {
	if len(label) >= width {
		return label
	}
	total := width - len(label)
	left := total / 2
	right := total - left
	return strings.Repeat(string(fillChar), left) + label + strings.Repeat(string(fillChar), right)
}

// Render formats the accumulated outcomes the way original_source's
// generate_report does: nothing at all when no records were filed, else a
// banner, an optional dry-run banner, one "* <task>" header per task
// grouping its hosts underneath as "  - <host>  <status>" lines, and an
// OK/Changed/Failed tally footer.
func (r *Report) Render(dryRun bool) string {
	records := r.Records()
	if len(records) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(centerFill(" Komando Report ", '=', reportWidth))
	b.WriteString("\n")
	if dryRun {
		b.WriteString(centerFill(" Dry-run mode: no changes were made ", '-', reportWidth))
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("-", reportWidth))
	b.WriteString("\n")

	var ok, changed, failed int
	lastTask := ""
	for _, rec := range records {
		if rec.Task != lastTask {
			fmt.Fprintf(&b, "* %s\n", rec.Task)
			lastTask = rec.Task
		}
		fmt.Fprintf(&b, "  - %-67s %s\n", rec.Host, rec.Status)

		switch rec.Status {
		case StatusOK.String():
			ok++
		case StatusChanged.String():
			changed++
		case StatusFailed.String():
			failed++
		}
	}

	b.WriteString(strings.Repeat("-", reportWidth))
	b.WriteString("\n")
	fmt.Fprintf(&b, "OK: %d, Changed: %d, Failed: %d\n", ok, changed, failed)

	return b.String()
}

// RenderYAML marshals the accumulated outcomes to YAML for machine
// consumption, an optional summary format alongside the text report.
func (r *Report) RenderYAML() (string, error) {
	records := r.Records()
	out, err := yaml.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %v", err)
	}
	return string(out), nil
}
