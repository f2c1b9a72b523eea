// komandan
package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bramvdbogaerde/go-scp"
	"golang.org/x/crypto/ssh"
)

// ###################################
//      SSH EXECUTOR
// ###################################

// SSHExecutor drives a single already-authenticated SSH session: command
// exec, env, elevation, and SCP-backed transfer, folded into the Executor
// contract the dispatcher and modules share with LocalExecutor.
type SSHExecutor struct {
	hostName    string
	client      *ssh.Client
	proxyClient *ssh.Client
	env         map[string]string
	elevation   Elevation
	result      *execState
	timeout     time.Duration
}

func newSSHExecutor(hostName string, client *ssh.Client, proxyClient *ssh.Client, elevation Elevation, timeout time.Duration) *SSHExecutor {
	return &SSHExecutor{
		hostName:    hostName,
		client:      client,
		proxyClient: proxyClient,
		env:         make(map[string]string),
		elevation:   elevation,
		result:      newExecState(),
		timeout:     timeout,
	}
}

func (s *SSHExecutor) Host() string { return s.hostName }

func (s *SSHExecutor) SetEnv(key, value string) {
	s.env[key] = value
}

// connectSSH opens a TCP connection (optionally tunneled through a proxy
// client) and performs the SSH handshake, retrying transient network
// errors a bounded number of times.
func connectSSH(target Host, clientConfig *ssh.ClientConfig, proxyClient *ssh.Client, retries int) (client *ssh.Client, err error) {
	endpoint, err := parseEndpointAddress(target.Address, target.Port)
	if err != nil {
		return nil, err
	}

	if retries < 1 {
		retries = 1
	}

	for attempt := 1; attempt <= retries; attempt++ {
		if proxyClient != nil {
			var conn net.Conn
			conn, err = proxyClient.Dial("tcp", endpoint)
			if err == nil {
				var clientConn ssh.Conn
				var chans <-chan ssh.NewChannel
				var reqs <-chan *ssh.Request
				clientConn, chans, reqs, err = ssh.NewClientConn(conn, endpoint, clientConfig)
				if err == nil {
					client = ssh.NewClient(clientConn, chans, reqs)
					return client, nil
				}
			}
		} else {
			client, err = ssh.Dial("tcp", endpoint, clientConfig)
			if err == nil {
				return client, nil
			}
		}

		if !isRetryableConnectError(err) || attempt == retries {
			if strings.Contains(err.Error(), "unable to authenticate") {
				return nil, &AuthError{Host: target.Name, Err: err}
			}
			return nil, &ConnectionError{Host: target.Name, Err: err}
		}

		printMessage(verbosityProgress, "Host %s: connect attempt %d/%d failed (%v), retrying\n", target.Name, attempt, retries, err)
		time.Sleep(200 * time.Millisecond)
	}

	return nil, &ConnectionError{Host: target.Name, Err: err}
}

func isRetryableConnectError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no route to host") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "i/o timeout")
}

// sshCommand runs a single command over a fresh session channel, bounded
// by the executor's configured timeout.
func (s *SSHExecutor) sshCommand(command string) (stdout string, stderr string, exitCode int, err error) {
	session, sessErr := s.client.NewSession()
	if sessErr != nil {
		err = &CommandError{Host: s.hostName, Command: command, Err: fmt.Errorf("failed to create session: %v", sessErr)}
		return
	}
	defer session.Close()

	var outBuf, errBuf bytes.Buffer
	session.Stdout = &outBuf
	session.Stderr = &errBuf

	prepared := prepareCommand(command, s.elevation)
	full := envPrelude(s.env) + prepared

	printMessage(verbosityDebug, "  SSH %s: running command '%s'\n", s.hostName, full)

	if startErr := session.Start(full); startErr != nil {
		err = &CommandError{Host: s.hostName, Command: command, Err: fmt.Errorf("failed to start command: %v", startErr)}
		return
	}

	timeout := s.timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- session.Wait() }()

	select {
	case waitErr := <-waitCh:
		stdout = strings.TrimSuffix(outBuf.String(), "\n")
		stderr = errBuf.String()

		if waitErr == nil {
			exitCode = 0
			return
		}
		if exitErr, ok := waitErr.(*ssh.ExitError); ok {
			exitCode = exitErr.ExitStatus()
			return
		}
		err = &CommandError{Host: s.hostName, Command: command, Err: waitErr}
		return
	case <-time.After(timeout):
		session.Signal(ssh.SIGTERM)
		session.Close()
		err = &CommandError{Host: s.hostName, Command: command, Err: fmt.Errorf("exceeded timeout (%s)", timeout)}
		return
	}
}

func (s *SSHExecutor) Cmd(command string) (stdout string, stderr string, exitCode int, err error) {
	stdout, stderr, exitCode, err = s.sshCommand(command)
	if err != nil {
		return
	}
	s.result.record(stdout, stderr, exitCode)
	return
}

func (s *SSHExecutor) Cmdq(command string) (stdout string, stderr string, exitCode int, err error) {
	return s.sshCommand(command)
}

func (s *SSHExecutor) GetRemoteEnv(name string) (string, error) {
	if !isValidEnvVarName(name) {
		return "", &ValidationError{Field: "env", Message: fmt.Sprintf("invalid environment variable name %q", name)}
	}
	stdout, _, code, err := s.Cmdq("printenv " + name)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", nil
	}
	return stdout, nil
}

func (s *SSHExecutor) GetTmpdir() (string, error) {
	stdout, _, code, err := s.Cmdq(`sh -c 'd="$HOME/.komandan/tmp"; mkdir -p "$d" 2>/dev/null && echo "$d" || { d=/tmp/komandan; mkdir -p "$d" && echo "$d"; }'`)
	if err != nil {
		return "", err
	}
	if code != 0 || stdout == "" {
		return "", &TransferError{Host: s.hostName, Path: "tmpdir", Err: fmt.Errorf("no usable tmpdir on target")}
	}
	return stdout, nil
}

func (s *SSHExecutor) Upload(localPath, remotePath string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return &TransferError{Host: s.hostName, Path: localPath, Err: err}
	}

	if !info.IsDir() {
		content, readErr := os.ReadFile(localPath)
		if readErr != nil {
			return &TransferError{Host: s.hostName, Path: localPath, Err: readErr}
		}
		return s.WriteRemoteFile(remotePath, content)
	}

	return filepath.Walk(localPath, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(localPath, path)
		if relErr != nil {
			return relErr
		}
		target := filepath.ToSlash(filepath.Join(remotePath, rel))
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return &TransferError{Host: s.hostName, Path: path, Err: readErr}
		}
		return s.WriteRemoteFile(target, content)
	})
}

func (s *SSHExecutor) Download(remotePath, localPath string) error {
	transferClient, err := scp.NewClientBySSHWithTimeout(s.client, 90*time.Second)
	if err != nil {
		return &TransferError{Host: s.hostName, Path: remotePath, Err: fmt.Errorf("failed to create scp session: %v", err)}
	}
	defer transferClient.Close()

	if err = os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return &TransferError{Host: s.hostName, Path: localPath, Err: err}
	}

	var buf bytes.Buffer
	if _, err = transferClient.CopyFromRemoteFileInfos(context.Background(), &buf, remotePath, nil); err != nil {
		return &TransferError{Host: s.hostName, Path: remotePath, Err: err}
	}

	if err = os.WriteFile(localPath, buf.Bytes(), 0644); err != nil {
		return &TransferError{Host: s.hostName, Path: localPath, Err: err}
	}
	return nil
}

func (s *SSHExecutor) WriteRemoteFile(remotePath string, content []byte) error {
	transferClient, err := scp.NewClientBySSHWithTimeout(s.client, 900*time.Second)
	if err != nil {
		return &TransferError{Host: s.hostName, Path: remotePath, Err: fmt.Errorf("failed to create scp session: %v", err)}
	}
	defer transferClient.Close()

	parent := filepath.ToSlash(filepath.Dir(remotePath))
	if _, _, _, err = s.Cmdq("mkdir -p '" + parent + "'"); err != nil {
		return &TransferError{Host: s.hostName, Path: remotePath, Err: err}
	}

	reader := bytes.NewReader(content)
	if err = transferClient.Copy(context.Background(), reader, remotePath, "0644", int64(len(content))); err != nil {
		if strings.Contains(err.Error(), "permission denied") {
			err = fmt.Errorf("unable to write to %s (is it writable by the user?): %v", remotePath, err)
		}
		return &TransferError{Host: s.hostName, Path: remotePath, Err: err}
	}
	return nil
}

func (s *SSHExecutor) Chmod(remotePath string, mode int) error {
	_, stderr, code, err := s.Cmdq(fmt.Sprintf("chmod %o '%s'", mode, remotePath))
	if err != nil {
		return &TransferError{Host: s.hostName, Path: remotePath, Err: err}
	}
	if code != 0 {
		return &TransferError{Host: s.hostName, Path: remotePath, Err: fmt.Errorf("chmod failed: %s", stderr)}
	}
	return nil
}

func (s *SSHExecutor) Requires(commands []string) error {
	var missing []string
	for _, name := range commands {
		_, _, code, err := s.Cmdq("command -v '" + name + "' >/dev/null 2>&1")
		if err != nil {
			return err
		}
		if code != 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Field: "requires", Message: "missing commands: " + strings.Join(missing, ", ")}
	}
	return nil
}

func (s *SSHExecutor) SetChanged(changed bool) { s.result.SetChanged(changed) }
func (s *SSHExecutor) GetChanged() bool         { return s.result.GetChanged() }
func (s *SSHExecutor) Result() ExecResult       { return s.result.Snapshot() }

func (s *SSHExecutor) Close() error {
	var err error
	if s.client != nil {
		err = s.client.Close()
	}
	if s.proxyClient != nil {
		if proxyErr := s.proxyClient.Close(); err == nil {
			err = proxyErr
		}
	}
	return err
}
