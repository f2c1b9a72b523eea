// komandan
package main

import (
	"strconv"
)

// ###################################
//      DATA MODEL
// ###################################

// Host describes a single connection target, local or remote, plus the
// layer of per-host defaults that override the global Defaults registry.
type Host struct {
	Name             string // identifier used in task host-lists and reports
	Address          string // host name or IP without a port (the port goes in Port); empty/"localhost" selects the local executor
	Port             int
	User             string
	Password         string // plaintext password, if not sourced from the vault
	IdentityFile     string // path to a private or public key, resolved via SSH config if empty
	ProxyHost        *Host // another Host to tunnel the connection through, if any
	ConnectTimeout   int    // seconds
	ConnectRetries   int
	KnownHostsFile   string
	HostKeyCheck     *bool // nil defers to Defaults
	Elevate          *bool
	ElevationMethod  string // "sudo" or "su"
	IgnoreExitCode   *bool
	Env              map[string]string
	VaultEntry       string // name of the credential vault entry to use for auth, if any
}

// Task is a single unit of work: a module invocation, or an inline command
// fallback, targeted at one or more hosts.
type Task struct {
	Name           string
	Hosts          []string // host names; empty means all configured hosts
	Module         string   // built-in or registered module name
	Command        string   // shorthand for Module: "cmd" with {cmd: ...}
	Params         map[string]any
	Env            map[string]string
	IgnoreExitCode *bool
	Elevate        *bool
	Timeout        int // seconds, 0 defers to Defaults
}

// Module is the contract every built-in or user-registered task handler
// implements. Run is mandatory; DryRunner and Cleaner are optional
// capabilities detected via type assertion by the dispatcher.
type Module interface {
	Name() string
	Validate(params map[string]any) error
	Run(exec Executor, params map[string]any) (*ExecResult, error)
}

// DryRunner is an optional capability: modules implementing it get a chance
// to report what they would change without mutating remote state.
type DryRunner interface {
	DryRun(exec Executor, params map[string]any) (*ExecResult, error)
}

// Cleaner is an optional capability: modules implementing it get a chance
// to remove any temporary remote state (scripts, staged files) they left
// behind, regardless of whether Run succeeded.
type Cleaner interface {
	Cleanup(exec Executor, params map[string]any) error
}

// VaultEntry is a single stored credential, decrypted only after the vault
// is unlocked with its master password.
type VaultEntry struct {
	Name     string `json:"name"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
}

// ParallelKey lets parallel fan-out preserve either a numeric task index or
// a host name as the result map's key, mirroring whichever axis is being
// iterated (hosts-for-one-task, or tasks-for-one-host).
type ParallelKey struct {
	Number int
	Text   string
	isText bool
}

func NumberKey(n int) ParallelKey  { return ParallelKey{Number: n} }
func TextKey(s string) ParallelKey { return ParallelKey{Text: s, isText: true} }
func (k ParallelKey) String() string {
	if k.isText {
		return k.Text
	}
	return strconv.Itoa(k.Number)
}
