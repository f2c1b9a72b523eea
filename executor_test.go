// komandan
package main

import "testing"

func TestEscapeShellValueWrapsInSingleQuotes(t *testing.T) {
	got := escapeShellValue("hello")
	want := "'hello'"
	if got != want {
		t.Fatalf("escapeShellValue(%q) = %q, want %q", "hello", got, want)
	}
}

func TestEscapeShellValueEscapesEmbeddedQuote(t *testing.T) {
	got := escapeShellValue(`it's here`)
	want := `'it'\''s here'`
	if got != want {
		t.Fatalf("escapeShellValue with embedded quote = %q, want %q", got, want)
	}
}

func TestPrepareCommandNoElevation(t *testing.T) {
	got := prepareCommand("uptime", Elevation{})
	if got != "uptime" {
		t.Fatalf("prepareCommand with no elevation = %q, want unchanged command", got)
	}
}

func TestPrepareCommandElevationNone(t *testing.T) {
	got := prepareCommand("uptime", Elevation{Method: "none"})
	if got != "uptime" {
		t.Fatalf("prepareCommand with method none = %q, want unchanged command", got)
	}
}

func TestPrepareCommandSudo(t *testing.T) {
	got := prepareCommand("systemctl restart nginx", Elevation{Method: "sudo"})
	want := "sudo -E sh -c 'systemctl restart nginx'"
	if got != want {
		t.Fatalf("prepareCommand sudo = %q, want %q", got, want)
	}
}

func TestPrepareCommandSudoAsUser(t *testing.T) {
	got := prepareCommand("whoami", Elevation{Method: "sudo", AsUser: "deploy"})
	want := "sudo -E -u deploy sh -c 'whoami'"
	if got != want {
		t.Fatalf("prepareCommand sudo-as-user = %q, want %q", got, want)
	}
}

func TestPrepareCommandSu(t *testing.T) {
	got := prepareCommand("whoami", Elevation{Method: "su"})
	want := "su -c 'whoami'"
	if got != want {
		t.Fatalf("prepareCommand su = %q, want %q", got, want)
	}
}

func TestPrepareCommandSuAsUser(t *testing.T) {
	got := prepareCommand("whoami", Elevation{Method: "su", AsUser: "deploy"})
	want := "su deploy -c 'whoami'"
	if got != want {
		t.Fatalf("prepareCommand su-as-user = %q, want %q", got, want)
	}
}

func TestPrepareCommandEscapesEmbeddedQuotes(t *testing.T) {
	got := prepareCommand(`echo 'hi'`, Elevation{Method: "sudo"})
	want := `sudo -E sh -c 'echo '\''hi'\'''`
	if got != want {
		t.Fatalf("prepareCommand with quoted argument = %q, want %q", got, want)
	}
}

func TestEnvPreludeEmpty(t *testing.T) {
	if got := envPrelude(nil); got != "" {
		t.Fatalf("envPrelude(nil) = %q, want empty string", got)
	}
	if got := envPrelude(map[string]string{}); got != "" {
		t.Fatalf("envPrelude(empty map) = %q, want empty string", got)
	}
}

func TestEnvPreludeStableOrder(t *testing.T) {
	env := map[string]string{
		"ZETA":  "1",
		"ALPHA": "two words",
	}
	got := envPrelude(env)
	want := "export ALPHA='two words'; export ZETA='1'; "
	if got != want {
		t.Fatalf("envPrelude = %q, want %q", got, want)
	}
}

func TestParseOctalMode(t *testing.T) {
	cases := map[string]int{
		"644":  0644,
		"0755": 0755,
		"0o700": 0700,
	}
	for in, want := range cases {
		got, err := parseOctalMode(in)
		if err != nil {
			t.Fatalf("parseOctalMode(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("parseOctalMode(%q) = %o, want %o", in, got, want)
		}
	}
}

func TestParseOctalModeInvalid(t *testing.T) {
	if _, err := parseOctalMode("not-a-mode"); err == nil {
		t.Fatal("parseOctalMode with invalid input: expected error, got nil")
	}
}

func TestIsValidEnvVarName(t *testing.T) {
	valid := []string{"PATH", "_FOO", "DEBIAN_FRONTEND", "a1"}
	for _, name := range valid {
		if !isValidEnvVarName(name) {
			t.Fatalf("isValidEnvVarName(%q) = false, want true", name)
		}
	}
	invalid := []string{"1FOO", "FOO-BAR", "FOO BAR", ""}
	for _, name := range invalid {
		if isValidEnvVarName(name) {
			t.Fatalf("isValidEnvVarName(%q) = true, want false", name)
		}
	}
}

func TestExecStateDefaultsToExitCodeZero(t *testing.T) {
	state := newExecState()
	snap := state.Snapshot()
	if snap.ExitCode != 0 {
		t.Fatalf("a fresh execState snapshot has ExitCode = %d, want 0 (matching original_source's local executor default)", snap.ExitCode)
	}
}

func TestExecStateRecordAccumulatesAcrossCalls(t *testing.T) {
	state := newExecState()
	state.record("one", "", 0)
	state.record("two", "", 1)

	snap := state.Snapshot()
	if snap.Stdout != "onetwo" {
		t.Fatalf("accumulated stdout = %q, want %q", snap.Stdout, "onetwo")
	}
	if snap.ExitCode != 1 {
		t.Fatalf("exit code after second record = %d, want 1", snap.ExitCode)
	}
}

func TestExecStateChanged(t *testing.T) {
	state := newExecState()
	if state.GetChanged() {
		t.Fatal("new execState should start unchanged")
	}
	state.SetChanged(true)
	if !state.GetChanged() {
		t.Fatal("SetChanged(true) should make GetChanged() report true")
	}
}
