// komandan
package main

import "testing"

func TestCmdModuleValidateRequiresCmd(t *testing.T) {
	m := &CmdModule{}
	if err := m.Validate(map[string]any{}); err == nil {
		t.Fatal("Validate with no cmd: expected error, got nil")
	}
	if err := m.Validate(map[string]any{"cmd": "uptime"}); err != nil {
		t.Fatalf("Validate with cmd set returned error: %v", err)
	}
}

func TestCmdModuleRunExecutesAndAlwaysReportsChanged(t *testing.T) {
	m := &CmdModule{}
	exec := newLocalExecutor("localhost", Elevation{})

	result, err := m.Run(exec, map[string]any{"cmd": "echo hi"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !result.Changed {
		t.Fatal("cmd module has no dry-run simulation and should always report changed=true")
	}
	if result.Stdout != "hi" {
		t.Fatalf("stdout = %q, want %q", result.Stdout, "hi")
	}
}

func TestCmdModuleRunRecordsNonZeroExitCode(t *testing.T) {
	m := &CmdModule{}
	exec := newLocalExecutor("localhost", Elevation{})

	// A nonzero exit is not itself a Go error from Cmd (exitCode carries it),
	// so Run should succeed and simply record the exit code.
	result, err := m.Run(exec, map[string]any{"cmd": "exit 3"})
	if err != nil {
		t.Fatalf("Run returned error for a nonzero exit: %v", err)
	}
	if result.ExitCode != 3 {
		t.Fatalf("ExitCode = %d, want 3", result.ExitCode)
	}
}
