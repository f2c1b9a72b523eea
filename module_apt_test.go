// komandan
package main

import "testing"

func TestPackageModuleValidateRequiresPackageForInstallRemovePurge(t *testing.T) {
	m := &PackageModule{manager: "apt"}
	for _, action := range []string{"install", "remove", "purge"} {
		if err := m.Validate(map[string]any{"action": action}); err == nil {
			t.Fatalf("Validate(action=%s) with no package: expected error, got nil", action)
		}
		if err := m.Validate(map[string]any{"action": action, "package": "vim"}); err != nil {
			t.Fatalf("Validate(action=%s) with package set returned error: %v", action, err)
		}
	}
}

func TestPackageModuleValidateAllowsSystemWideActionsWithoutPackage(t *testing.T) {
	m := &PackageModule{manager: "apt"}
	for _, action := range []string{"update", "upgrade", "autoremove"} {
		if err := m.Validate(map[string]any{"action": action}); err != nil {
			t.Fatalf("Validate(action=%s) with no package returned error: %v", action, err)
		}
	}
}

func TestPackageModuleValidateRejectsUnknownAction(t *testing.T) {
	m := &PackageModule{manager: "apt"}
	if err := m.Validate(map[string]any{"action": "reinstall", "package": "vim"}); err == nil {
		t.Fatal("Validate with an unknown action: expected error, got nil")
	}
}

func TestPackageModuleValidateDefaultsActionToInstall(t *testing.T) {
	m := &PackageModule{manager: "dnf"}
	if err := m.Validate(map[string]any{}); err == nil {
		t.Fatal("Validate with no action (defaults to install) and no package: expected error, got nil")
	}
}

func TestPackageModuleActionCommandCoversEnumeratedVerbs(t *testing.T) {
	m := &PackageModule{manager: "apt"}
	cases := map[string]string{
		"install":    "apt install -y 'vim'",
		"remove":     "apt remove -y 'vim'",
		"purge":      "apt purge -y 'vim'",
		"update":     "apt update",
		"upgrade":    "apt upgrade -y",
		"autoremove": "apt autoremove -y",
	}
	for action, want := range cases {
		if got := m.actionCommand(action, "vim", false, false); got != want {
			t.Fatalf("actionCommand(%s) = %q, want %q", action, got, want)
		}
	}
}
