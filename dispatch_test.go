// komandan
package main

import (
	"path/filepath"
	"testing"
)

func TestKomandoDryRunWithoutDryRunnerReportsChangedNotFailed(t *testing.T) {
	ctx := newContext()
	ctx.DryRun = true
	ctx.NoReport = true

	host := Host{Name: "local", Address: "localhost"}
	task := Task{Name: "noop", Command: "echo hi"}

	result, err := komando(host, task, ctx, nil)
	if err != nil {
		t.Fatalf("komando returned error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Fatalf("a module with no DryRun should leave ExitCode at its live default, got %d", result.ExitCode)
	}
	if !result.Changed {
		t.Fatal("a module with no DryRun must report changed=true under dry-run")
	}
}

func TestKomandoIdempotentFileRunClassifiesSecondRunOK(t *testing.T) {
	ctx := newContext()
	ctx.NoReport = true

	path := filepath.Join(t.TempDir(), "present.txt")
	host := Host{Name: "local", Address: "localhost"}
	task := Task{Name: "ensure-file", Module: "file", Params: map[string]any{"path": path, "state": "file"}}

	first, err := komando(host, task, ctx, nil)
	if err != nil {
		t.Fatalf("first komando returned error: %v", err)
	}
	if !first.Changed {
		t.Fatal("first run against a nonexistent file should report changed=true")
	}

	second, err := komando(host, task, ctx, nil)
	if err != nil {
		t.Fatalf("second komando run returned error: %v (expected no TaskFailed)", err)
	}
	if second.ExitCode != 0 {
		t.Fatalf("a Run whose idempotence check executes no Cmd should leave ExitCode 0, got %d", second.ExitCode)
	}
	if second.Changed {
		t.Fatal("second run against an already-present file should report changed=false")
	}
}

func TestIsLocalAddress(t *testing.T) {
	local := []string{"", "localhost", "127.0.0.1", "::1"}
	for _, addr := range local {
		if !isLocalAddress(addr) {
			t.Fatalf("isLocalAddress(%q) = false, want true", addr)
		}
	}
	remote := []string{"web01.example.com", "10.0.0.5", "example.com"}
	for _, addr := range remote {
		if isLocalAddress(addr) {
			t.Fatalf("isLocalAddress(%q) = true, want false", addr)
		}
	}
}

func TestValidateHostRequiresAddressUnlessLocal(t *testing.T) {
	if err := validateHost(Host{Name: "web01", Address: ""}); err == nil {
		t.Fatal("validateHost with no address and non-local name: expected error, got nil")
	}
	if err := validateHost(Host{Name: "localhost", Address: ""}); err != nil {
		t.Fatalf("validateHost(localhost) returned error: %v", err)
	}
	if err := validateHost(Host{Name: "web01", Address: "10.0.0.5"}); err != nil {
		t.Fatalf("validateHost with an address returned error: %v", err)
	}
}

func TestValidateHostRejectsOutOfRangePort(t *testing.T) {
	if err := validateHost(Host{Name: "web01", Address: "10.0.0.5", Port: 70000}); err == nil {
		t.Fatal("validateHost with out-of-range port: expected error, got nil")
	}
	if err := validateHost(Host{Name: "web01", Address: "10.0.0.5", Port: 2222}); err != nil {
		t.Fatalf("validateHost with a valid port returned error: %v", err)
	}
}

func TestValidateTaskRequiresModuleOrCommand(t *testing.T) {
	if err := validateTask(Task{Name: "noop"}); err == nil {
		t.Fatal("validateTask with neither module nor command: expected error, got nil")
	}
	if err := validateTask(Task{Name: "ping", Command: "uptime"}); err != nil {
		t.Fatalf("validateTask with a Command set returned error: %v", err)
	}
	if err := validateTask(Task{Name: "install", Module: "apt"}); err != nil {
		t.Fatalf("validateTask with a Module set returned error: %v", err)
	}
}

func TestResolveElevationCascade(t *testing.T) {
	defaults := newDefaults()
	defaults.SetElevate(false)

	off := resolveElevation(Task{}, Host{}, defaults)
	if off.enabled() {
		t.Fatal("resolveElevation with no overrides and Defaults.Elevate()=false: expected disabled")
	}

	yes := true
	hostElevated := resolveElevation(Task{}, Host{Elevate: &yes, ElevationMethod: "su"}, defaults)
	if !hostElevated.enabled() || hostElevated.Method != "su" {
		t.Fatalf("resolveElevation with host override = %+v, want enabled su", hostElevated)
	}

	no := false
	taskWins := resolveElevation(Task{Elevate: &no}, Host{Elevate: &yes}, defaults)
	if taskWins.enabled() {
		t.Fatal("resolveElevation: task-level Elevate=false should override host-level Elevate=true")
	}
}

func TestResolveEnvOverlayOrder(t *testing.T) {
	defaults := newDefaults()
	host := Host{Env: map[string]string{"DEBIAN_FRONTEND": "teletype", "HOST_ONLY": "h"}}
	task := Task{Env: map[string]string{"TASK_ONLY": "t", "HOST_ONLY": "overridden"}}

	env := resolveEnv(defaults, host, task)

	if env["DEBIAN_FRONTEND"] != "teletype" {
		t.Fatalf("host should override Defaults env: got %q", env["DEBIAN_FRONTEND"])
	}
	if env["HOST_ONLY"] != "overridden" {
		t.Fatalf("task should override host env: got %q", env["HOST_ONLY"])
	}
	if env["TASK_ONLY"] != "t" {
		t.Fatalf("task-only env key missing: got %q", env["TASK_ONLY"])
	}
}

func TestHostResolvedConnection(t *testing.T) {
	if got := (Host{Address: "localhost"}).resolvedConnection(); got != "local" {
		t.Fatalf("resolvedConnection() for localhost = %q, want local", got)
	}
	if got := (Host{Address: "10.0.0.5"}).resolvedConnection(); got != "ssh" {
		t.Fatalf("resolvedConnection() for a remote address = %q, want ssh", got)
	}
	proxy := &Host{Name: "bastion", Address: "10.0.0.1"}
	if got := (Host{Address: "localhost", ProxyHost: proxy}).resolvedConnection(); got != "ssh" {
		t.Fatalf("resolvedConnection() with a ProxyHost set = %q, want ssh even for a local-looking address", got)
	}
}

func TestHostDisplayName(t *testing.T) {
	if got := (Host{Name: "web01", Address: "10.0.0.5"}).displayName(); got != "web01" {
		t.Fatalf("displayName() with a Name set = %q, want web01", got)
	}
	if got := (Host{Address: "10.0.0.5"}).displayName(); got != "10.0.0.5" {
		t.Fatalf("displayName() with no Name = %q, want the address", got)
	}
}

func TestStatusStringValues(t *testing.T) {
	cases := map[Status]string{
		StatusOK:      "OK",
		StatusChanged: "Changed",
		StatusFailed:  "Failed",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Fatalf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}
