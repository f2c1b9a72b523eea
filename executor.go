// komandan
package main

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ###################################
//      EXECUTOR (capability abstraction)
// ###################################

// Elevation describes how a command should be wrapped before it reaches
// the target shell.
type Elevation struct {
	Method string // "", "none", "sudo", "su"
	AsUser string
}

func (e Elevation) enabled() bool {
	return e.Method != "" && e.Method != "none"
}

// ExecResult is an immutable snapshot of an Executor's accumulated output:
// concatenated stdout/stderr, the last tracked exit code, and the
// module-controlled changed flag. Safe to copy and hand around by value -
// unlike execState, it holds no mutex.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Changed  bool
}

// execState is the live, mutex-guarded accumulator an Executor mutates
// across one dispatch. ExitCode starts at 0, matching original_source's
// local executor (Some(0)) rather than a "no command ran yet" sentinel, so
// a dispatch whose module only probes via Cmdq and never calls Cmd - every
// dry_run, and any Run whose idempotence check finds nothing to do - still
// reports exit code 0, not a synthetic failure.
type execState struct {
	mutex    sync.Mutex
	stdout   strings.Builder
	stderr   strings.Builder
	exitCode int
	changed  bool
}

func newExecState() *execState {
	return &execState{}
}

func (r *execState) record(stdout, stderr string, code int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.stdout.WriteString(stdout)
	r.stderr.WriteString(stderr)
	r.exitCode = code
}

func (r *execState) SetChanged(changed bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.changed = changed
}

func (r *execState) GetChanged() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.changed
}

// Snapshot returns an immutable copy safe to hand to callers outside the
// executor.
func (r *execState) Snapshot() ExecResult {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return ExecResult{Stdout: r.stdout.String(), Stderr: r.stderr.String(), ExitCode: r.exitCode, Changed: r.changed}
}

// Executor is the uniform surface modules drive: command execution,
// environment, elevation, file transfer, and scratch-space discovery.
// Local and SSH variants implement it identically from the module's point
// of view.
type Executor interface {
	// Cmd executes command and folds its stdout/stderr/exit code into the
	// accumulated SessionResult.
	Cmd(command string) (stdout string, stderr string, exitCode int, err error)
	// Cmdq is identical to Cmd but leaves the accumulated SessionResult
	// untouched - used for probing/idempotence checks.
	Cmdq(command string) (stdout string, stderr string, exitCode int, err error)
	SetEnv(key, value string)
	GetRemoteEnv(name string) (string, error)
	GetTmpdir() (string, error)
	Upload(localPath, remotePath string) error
	Download(remotePath, localPath string) error
	WriteRemoteFile(remotePath string, content []byte) error
	Chmod(remotePath string, mode int) error
	Requires(commands []string) error
	SetChanged(changed bool)
	GetChanged() bool
	Result() ExecResult
	Host() string
	Close() error
}

var envVarNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func isValidEnvVarName(name string) bool {
	return envVarNameRE.MatchString(name)
}

// escapeShellValue wraps a value in single quotes, escaping any embedded
// single quote as '\'' so the result is safe inside `sh -c '<here>'`.
func escapeShellValue(value string) string {
	escaped := strings.ReplaceAll(value, `'`, `'\''`)
	return "'" + escaped + "'"
}

// prepareCommand wraps command according to the requested elevation.
// It is a pure function, independently testable.
func prepareCommand(command string, elevation Elevation) string {
	if !elevation.enabled() {
		return command
	}

	quoted := escapeShellValue(command)

	switch elevation.Method {
	case "sudo":
		if elevation.AsUser != "" {
			return fmt.Sprintf("sudo -E -u %s sh -c %s", elevation.AsUser, quoted)
		}
		return fmt.Sprintf("sudo -E sh -c %s", quoted)
	case "su":
		if elevation.AsUser != "" {
			return fmt.Sprintf("su %s -c %s", elevation.AsUser, quoted)
		}
		return fmt.Sprintf("su -c %s", quoted)
	default:
		return command
	}
}

// envPrelude renders export statements for each env entry, in a stable
// order, so both Local and SSH executors can prepend it verbatim to a
// shell invocation for portability.
func envPrelude(env map[string]string) string {
	if len(env) == 0 {
		return ""
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString("export ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(escapeShellValue(env[k]))
		b.WriteString("; ")
	}
	return b.String()
}

// parseOctalMode parses a mode string such as "644" or "0755" as octal.
func parseOctalMode(mode string) (int, error) {
	mode = strings.TrimPrefix(mode, "0o")
	parsed, err := strconv.ParseInt(mode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid octal mode %q: %v", mode, err)
	}
	return int(parsed), nil
}
