// komandan
package main

import "testing"

func TestNewDefaultsMatchesOriginal(t *testing.T) {
	d := newDefaults()
	if d.Port() != 22 {
		t.Fatalf("default port = %d, want 22", d.Port())
	}
	if d.User() != "root" {
		t.Fatalf("default user = %q, want %q", d.User(), "root")
	}
	if d.ElevationMethod() != "sudo" {
		t.Fatalf("default elevation method = %q, want %q", d.ElevationMethod(), "sudo")
	}
	if d.Env()["DEBIAN_FRONTEND"] != "noninteractive" {
		t.Fatalf("default env DEBIAN_FRONTEND = %q, want %q", d.Env()["DEBIAN_FRONTEND"], "noninteractive")
	}
}

func TestDefaultsSettersAreVisibleToGetters(t *testing.T) {
	d := newDefaults()
	d.SetPort(2222)
	d.SetUser("deploy")
	d.SetMaxConcurrency(5)

	if d.Port() != 2222 {
		t.Fatalf("Port() after SetPort(2222) = %d", d.Port())
	}
	if d.User() != "deploy" {
		t.Fatalf("User() after SetUser = %q", d.User())
	}
	if d.MaxConcurrency() != 5 {
		t.Fatalf("MaxConcurrency() after SetMaxConcurrency(5) = %d", d.MaxConcurrency())
	}
}

func TestDefaultsEnvIsDefensiveCopy(t *testing.T) {
	d := newDefaults()
	env := d.Env()
	env["INJECTED"] = "yes"

	if _, present := d.Env()["INJECTED"]; present {
		t.Fatal("mutating the map returned by Env() leaked into the Defaults registry")
	}
}

func TestResolveBoolPicksFirstNonNil(t *testing.T) {
	no := false
	yes := true
	if got := resolveBool([]*bool{nil, &yes, &no}, false); got != true {
		t.Fatalf("resolveBool with first non-nil override true = %v, want true", got)
	}
	if got := resolveBool([]*bool{nil, nil}, true); got != true {
		t.Fatalf("resolveBool with all-nil overrides = %v, want fallback true", got)
	}
}

func TestResolveIntAndString(t *testing.T) {
	if got := resolveInt(0, 30); got != 30 {
		t.Fatalf("resolveInt(0, 30) = %d, want 30", got)
	}
	if got := resolveInt(45, 30); got != 45 {
		t.Fatalf("resolveInt(45, 30) = %d, want 45", got)
	}
	if got := resolveString("", "root"); got != "root" {
		t.Fatalf("resolveString(\"\", \"root\") = %q, want %q", got, "root")
	}
	if got := resolveString("deploy", "root"); got != "deploy" {
		t.Fatalf("resolveString(\"deploy\", \"root\") = %q, want %q", got, "deploy")
	}
}
