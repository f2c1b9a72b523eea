// komandan
package main

import "testing"

func TestReportRenderGroupsByTaskAndTallies(t *testing.T) {
	r := newReport()
	r.Insert("update-packages", "web01", StatusOK)
	r.Insert("update-packages", "web02", StatusChanged)
	r.Insert("deploy-config", "web03", StatusFailed)

	rendered := r.Render(false)

	if !contains(rendered, centerFill(" Komando Report ", '=', reportWidth)) {
		t.Fatalf("report is missing the banner: %q", rendered)
	}
	if contains(rendered, "Dry-run mode") {
		t.Fatal("a non-dry-run report should not print the dry-run banner")
	}
	if !contains(rendered, "* update-packages\n") {
		t.Fatalf("report is missing the 'update-packages' task header: %q", rendered)
	}
	if !contains(rendered, "* deploy-config\n") {
		t.Fatalf("report is missing the 'deploy-config' task header: %q", rendered)
	}
	if !contains(rendered, "  - web01") || !contains(rendered, "  - web02") || !contains(rendered, "  - web03") {
		t.Fatalf("report is missing an indented host line: %q", rendered)
	}

	wantFooter := "OK: 1, Changed: 1, Failed: 1\n"
	if len(rendered) < len(wantFooter) || rendered[len(rendered)-len(wantFooter):] != wantFooter {
		t.Fatalf("report footer missing %q in %q", wantFooter, rendered)
	}
}

func TestReportRenderGroupsConsecutiveRecordsUnderOneTaskHeader(t *testing.T) {
	r := newReport()
	r.Insert("deploy", "web01", StatusOK)
	r.Insert("deploy", "web02", StatusOK)

	rendered := r.Render(false)

	if got, want := countOccurrences(rendered, "* deploy\n"), 1; got != want {
		t.Fatalf("task header '* deploy' appeared %d times, want %d (hosts under one task share a single header)", got, want)
	}
}

func TestReportRenderDryRunBanner(t *testing.T) {
	r := newReport()
	r.Insert("deploy", "web01", StatusChanged)

	rendered := r.Render(true)
	if !contains(rendered, "Dry-run mode: no changes were made") {
		t.Fatalf("dry-run report is missing the dry-run banner: %q", rendered)
	}
}

func TestReportRenderEmptyProducesNoOutput(t *testing.T) {
	r := newReport()
	if got := r.Render(false); got != "" {
		t.Fatalf("Render() on an empty report = %q, want empty string", got)
	}
	if got := r.Render(true); got != "" {
		t.Fatalf("Render(true) on an empty report = %q, want empty string", got)
	}
}

func TestReportRecordsIsDefensiveCopy(t *testing.T) {
	r := newReport()
	r.Insert("noop", "web01", StatusOK)

	records := r.Records()
	records[0].Status = "tampered"

	again := r.Records()
	if again[0].Status != StatusOK.String() {
		t.Fatalf("mutating a returned Records() slice leaked into the report: got %q", again[0].Status)
	}
}

func TestReportRenderYAMLRoundTripsFieldNames(t *testing.T) {
	r := newReport()
	r.Insert("deploy", "db01", StatusFailed)

	out, err := r.RenderYAML()
	if err != nil {
		t.Fatalf("RenderYAML returned error: %v", err)
	}
	for _, want := range []string{"task: deploy", "host: db01", "status: Failed"} {
		if !contains(out, want) {
			t.Fatalf("RenderYAML() = %q, want it to contain %q", out, want)
		}
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
			i += len(needle) - 1
		}
	}
	return count
}
