// komandan
package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ###################################
//      LOCAL EXECUTOR
// ###################################

// LocalExecutor runs commands via a local shell, for hosts resolved to
// "localhost"/"127.0.0.1"/"::1" with no proxy host.
type LocalExecutor struct {
	hostName  string
	env       map[string]string
	elevation Elevation
	result    *execState
}

func newLocalExecutor(hostName string, elevation Elevation) *LocalExecutor {
	return &LocalExecutor{
		hostName:  hostName,
		env:       make(map[string]string),
		elevation: elevation,
		result:    newExecState(),
	}
}

func (l *LocalExecutor) Host() string { return l.hostName }

func (l *LocalExecutor) SetEnv(key, value string) {
	l.env[key] = value
}

func (l *LocalExecutor) runShell(command string) (stdout string, stderr string, exitCode int, err error) {
	prepared := prepareCommand(command, l.elevation)
	full := envPrelude(l.env) + prepared

	printMessage(verbosityDebug, "  Local: running command '%s'\n", full)

	cmd := exec.Command("sh", "-c", full)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	stdout = strings.TrimSuffix(outBuf.String(), "\n")
	stderr = errBuf.String()

	if runErr == nil {
		exitCode = 0
		return
	}

	if exitErr, ok := runErr.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
		return
	}

	err = &CommandError{Host: l.hostName, Command: command, Err: runErr}
	return
}

func (l *LocalExecutor) Cmd(command string) (stdout string, stderr string, exitCode int, err error) {
	stdout, stderr, exitCode, err = l.runShell(command)
	if err != nil {
		return
	}
	l.result.record(stdout, stderr, exitCode)
	return
}

func (l *LocalExecutor) Cmdq(command string) (stdout string, stderr string, exitCode int, err error) {
	return l.runShell(command)
}

func (l *LocalExecutor) GetRemoteEnv(name string) (string, error) {
	if !isValidEnvVarName(name) {
		return "", &ValidationError{Field: "env", Message: fmt.Sprintf("invalid environment variable name %q", name)}
	}
	stdout, _, code, err := l.Cmdq("printenv " + name)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", nil
	}
	return stdout, nil
}

func (l *LocalExecutor) GetTmpdir() (string, error) {
	home, err := os.UserHomeDir()
	if err == nil {
		candidate := filepath.Join(home, ".komandan", "tmp")
		if mkErr := os.MkdirAll(candidate, 0700); mkErr == nil {
			return candidate, nil
		}
	}

	fallback := filepath.Join(string(os.PathSeparator), "tmp", "komandan")
	if err = os.MkdirAll(fallback, 0700); err != nil {
		return "", &TransferError{Host: l.hostName, Path: fallback, Err: err}
	}
	return fallback, nil
}

func (l *LocalExecutor) Upload(localPath, remotePath string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return &TransferError{Host: l.hostName, Path: localPath, Err: err}
	}

	if info.IsDir() {
		return l.copyDirAll(localPath, remotePath)
	}
	return l.copyFile(localPath, remotePath)
}

func (l *LocalExecutor) Download(remotePath, localPath string) error {
	return l.Upload(remotePath, localPath)
}

func (l *LocalExecutor) copyFile(src, dst string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return &TransferError{Host: l.hostName, Path: src, Err: err}
	}
	return l.WriteRemoteFile(dst, content)
}

func (l *LocalExecutor) copyDirAll(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return relErr
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return l.copyFile(path, target)
	})
}

func (l *LocalExecutor) WriteRemoteFile(remotePath string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(remotePath), 0755); err != nil {
		return &TransferError{Host: l.hostName, Path: remotePath, Err: err}
	}
	if err := os.WriteFile(remotePath, content, 0644); err != nil {
		return &TransferError{Host: l.hostName, Path: remotePath, Err: err}
	}
	return nil
}

func (l *LocalExecutor) Chmod(remotePath string, mode int) error {
	if err := os.Chmod(remotePath, os.FileMode(mode)); err != nil {
		return &TransferError{Host: l.hostName, Path: remotePath, Err: err}
	}
	return nil
}

func (l *LocalExecutor) Requires(commands []string) error {
	var missing []string
	for _, name := range commands {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Field: "requires", Message: "missing commands: " + strings.Join(missing, ", ")}
	}
	return nil
}

func (l *LocalExecutor) SetChanged(changed bool) { l.result.SetChanged(changed) }
func (l *LocalExecutor) GetChanged() bool         { return l.result.GetChanged() }
func (l *LocalExecutor) Result() ExecResult       { return l.result.Snapshot() }
func (l *LocalExecutor) Close() error             { return nil }
