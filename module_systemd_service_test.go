// komandan
package main

import "testing"

func TestSystemdServiceModuleValidateRequiresName(t *testing.T) {
	m := &SystemdServiceModule{}
	if err := m.Validate(map[string]any{}); err == nil {
		t.Fatal("Validate with no name: expected error, got nil")
	}
	if err := m.Validate(map[string]any{"name": "nginx"}); err != nil {
		t.Fatalf("Validate with name set (action defaults to start) returned error: %v", err)
	}
}

func TestSystemdServiceModuleValidateAcceptsEveryEnumeratedAction(t *testing.T) {
	m := &SystemdServiceModule{}
	for _, action := range []string{"start", "stop", "restart", "reload", "enable", "disable"} {
		if err := m.Validate(map[string]any{"name": "nginx", "action": action}); err != nil {
			t.Fatalf("Validate(action=%s) returned error: %v", action, err)
		}
	}
}

func TestSystemdServiceModuleValidateRejectsUnknownAction(t *testing.T) {
	m := &SystemdServiceModule{}
	if err := m.Validate(map[string]any{"name": "nginx", "action": "kill"}); err == nil {
		t.Fatal("Validate with an unknown action: expected error, got nil")
	}
}

func TestSystemdServiceModuleEnableOptsReflectsForce(t *testing.T) {
	m := &SystemdServiceModule{}
	if got := m.enableOpts(map[string]any{}); got != "" {
		t.Fatalf("enableOpts with no force = %q, want empty", got)
	}
	if got := m.enableOpts(map[string]any{"force": true}); got != " --force" {
		t.Fatalf("enableOpts with force=true = %q, want %q", got, " --force")
	}
}
