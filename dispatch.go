// komandan
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// ###################################
//      DISPATCHER (komando)
// ###################################

// Context is the run-wide state threaded through every dispatch: the
// process-wide Defaults, the Report sink, the optional credential vault,
// and the run's dry-run/no-report flags. It is the only cross-worker state
// besides the Report mutex under parallel fan-out.
type Context struct {
	Defaults *Defaults
	Report   *Report
	Vault    *Vault
	DryRun   bool
	NoReport bool
}

func newContext() *Context {
	return &Context{
		Defaults: newDefaults(),
		Report:   newReport(),
	}
}

// Status is the dispatcher's classification of a single (task, host) run.
type Status int

const (
	StatusOK Status = iota
	StatusChanged
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusChanged:
		return "Changed"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

func isLocalAddress(address string) bool {
	switch address {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}

// validateHost enforces §4.3 step 1's Host constraints.
func validateHost(host Host) error {
	if host.Address == "" && !isLocalAddress(host.Name) {
		return &ValidationError{Field: "address", Message: "host address is required"}
	}
	if host.Port != 0 && (host.Port < 0 || host.Port > 65535) {
		return &ValidationError{Field: "port", Message: fmt.Sprintf("port %d out of range", host.Port)}
	}
	return nil
}

func validateTask(task Task) error {
	if task.Module == "" && task.Command == "" {
		return &ValidationError{Field: "module", Message: "task requires a module"}
	}
	return nil
}

// resolveUser follows host.user -> ssh-config -> default user -> $USER -> error.
func resolveUser(host Host, resolver *sshConfigResolver, defaults *Defaults) (string, error) {
	if host.User != "" {
		return host.User, nil
	}
	if resolver != nil {
		if u := resolver.User(host.Name); u != "" {
			return u, nil
		}
	}
	if defaults.User() != "" {
		return defaults.User(), nil
	}
	if u := os.Getenv("USER"); u != "" {
		return u, nil
	}
	return "", &ValidationError{Field: "user", Message: "No user specified"}
}

func resolvePort(host Host, resolver *sshConfigResolver, defaults *Defaults) int {
	if host.Port != 0 {
		return host.Port
	}
	if resolver != nil {
		if p := resolver.Port(host.Name); p != 0 {
			return p
		}
	}
	return resolveInt(defaults.Port(), 22)
}

// resolveElevation implements §4.3 step 4: elevate is the first non-nil of
// task, host, defaults. The method comes from the host, else the defaults;
// tasks carry no method of their own, and no as_user is resolved.
func resolveElevation(task Task, host Host, defaults *Defaults) Elevation {
	elevate := resolveBool([]*bool{task.Elevate, host.Elevate}, defaults.Elevate())
	if !elevate {
		return Elevation{}
	}

	method := defaults.ElevationMethod()
	if host.ElevationMethod != "" {
		method = host.ElevationMethod
	}
	// Task has no elevation_method field distinct from host's in the data
	// model beyond Elevate/AsUser; module params may still override via
	// their own params map if a module wants that (none of the built-ins do).

	return Elevation{Method: method}
}

// resolveEnv overlays defaults -> host -> task, later keys winning.
func resolveEnv(defaults *Defaults, host Host, task Task) map[string]string {
	env := defaults.Env()
	for k, v := range host.Env {
		env[k] = v
	}
	for k, v := range task.Env {
		env[k] = v
	}
	return env
}

// buildExecutor constructs the Local or SSH executor for one dispatch,
// per §4.3 steps 2, 3, 6, 7.
func buildExecutor(host Host, task Task, ctx *Context, resolver *sshConfigResolver) (Executor, error) {
	connection := host.resolvedConnection()

	elevation := resolveElevation(task, host, ctx.Defaults)
	env := resolveEnv(ctx.Defaults, host, task)

	if connection == "local" {
		exec := newLocalExecutor(host.displayName(), elevation)
		for k, v := range env {
			exec.SetEnv(k, v)
		}
		return exec, nil
	}

	return buildSSHExecutor(host, task, ctx, resolver, elevation, env)
}

// resolvedConnection picks the executor kind: ssh when a proxy host is set,
// else local when the address matches a local sentinel, else ssh. Host has
// no explicit connection field.
func (h Host) resolvedConnection() string {
	if h.ProxyHost != nil {
		return "ssh"
	}
	if isLocalAddress(h.Address) {
		return "local"
	}
	return "ssh"
}

func (h Host) displayName() string {
	if h.Name != "" {
		return h.Name
	}
	return h.Address
}

func buildSSHExecutor(host Host, task Task, ctx *Context, resolver *sshConfigResolver, elevation Elevation, env map[string]string) (Executor, error) {
	user, err := resolveUser(host, resolver, ctx.Defaults)
	if err != nil {
		return nil, err
	}

	port := resolvePort(host, resolver, ctx.Defaults)

	authMethods, err := resolveAuthMethods(host, resolver, ctx)
	if err != nil {
		return nil, &AuthError{Host: host.displayName(), Err: err}
	}

	clientConfig := &ssh.ClientConfig{
		User:          user,
		Auth:          authMethods,
		ClientVersion: sshVersionString,
		Timeout:       time.Duration(resolveInt(host.ConnectTimeout, ctx.Defaults.ConnectTimeout())) * time.Second,
	}

	hostKeyCheck := resolveBool([]*bool{host.HostKeyCheck}, ctx.Defaults.HostKeyCheck())
	if hostKeyCheck {
		knownHostsFile := resolveString(host.KnownHostsFile, ctx.Defaults.KnownHostsFile())
		callback, cbErr := hostKeyCallback(knownHostsFile)
		if cbErr != nil {
			return nil, &ConnectionError{Host: host.displayName(), Err: cbErr}
		}
		clientConfig.HostKeyCallback = callback
	} else {
		clientConfig.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	var proxyClient *ssh.Client
	if host.ProxyHost != nil {
		proxyClientConfig := *clientConfig
		proxyUser, proxyErr := resolveUser(*host.ProxyHost, resolver, ctx.Defaults)
		if proxyErr != nil {
			return nil, proxyErr
		}
		proxyAuth, proxyAuthErr := resolveAuthMethods(*host.ProxyHost, resolver, ctx)
		if proxyAuthErr != nil {
			return nil, &AuthError{Host: host.ProxyHost.displayName(), Err: proxyAuthErr}
		}
		proxyClientConfig.User = proxyUser
		proxyClientConfig.Auth = proxyAuth

		proxyTarget := *host.ProxyHost
		if proxyTarget.Port == 0 {
			proxyTarget.Port = resolvePort(*host.ProxyHost, resolver, ctx.Defaults)
		}

		proxyEndpoint, endpointErr := parseEndpointAddress(proxyTarget.Address, proxyTarget.Port)
		if endpointErr != nil {
			return nil, endpointErr
		}

		var dialErr error
		proxyClient, dialErr = ssh.Dial("tcp", proxyEndpoint, &proxyClientConfig)
		if dialErr != nil {
			return nil, &ConnectionError{Host: proxyTarget.displayName(), Err: dialErr}
		}
	}

	retries := resolveInt(host.ConnectRetries, ctx.Defaults.ConnectRetries())
	target := host
	target.Port = port
	client, err := connectSSH(target, clientConfig, proxyClient, retries)
	if err != nil {
		if proxyClient != nil {
			proxyClient.Close()
		}
		return nil, err
	}

	timeout := time.Duration(resolveInt(task.Timeout, ctx.Defaults.ExecutionTimeout())) * time.Second
	exec := newSSHExecutor(host.displayName(), client, proxyClient, elevation, timeout)
	for k, v := range env {
		exec.SetEnv(k, v)
	}
	return exec, nil
}

// resolveAuthMethods picks the first available of: the identity file (host,
// then ssh-config), the vault entry's password, the host's password, and
// ~/.ssh/id_ed25519 then ~/.ssh/id_rsa. There is no defaults-level key or
// password in the chain.
func resolveAuthMethods(host Host, resolver *sshConfigResolver, ctx *Context) ([]ssh.AuthMethod, error) {
	identityFile := host.IdentityFile
	if identityFile == "" && resolver != nil {
		identityFile = resolver.IdentityFile(host.Name)
	}

	if identityFile != "" {
		key, keyAlgo, err := sshIdentityToKey(identityFile)
		if err != nil {
			return nil, err
		}
		printMessage(verbosityFullData, "   using %s key from '%s' for host '%s'\n", keyAlgo, identityFile, host.displayName())
		return []ssh.AuthMethod{ssh.PublicKeys(key)}, nil
	}

	if host.VaultEntry != "" && ctx.Vault != nil {
		entry, err := ctx.Vault.Resolve(host.VaultEntry)
		if err != nil {
			return nil, err
		}
		if entry.Password != "" {
			return []ssh.AuthMethod{ssh.Password(entry.Password)}, nil
		}
	}

	if host.Password != "" {
		return []ssh.AuthMethod{ssh.Password(host.Password)}, nil
	}

	for _, candidate := range []string{"~/.ssh/id_ed25519", "~/.ssh/id_rsa"} {
		path := expandHomeDirectory(candidate)
		if _, err := os.Stat(path); err == nil {
			key, _, err := sshIdentityToKey(candidate)
			if err == nil {
				return []ssh.AuthMethod{ssh.PublicKeys(key)}, nil
			}
		}
	}

	return nil, fmt.Errorf("No authentication method specified")
}

// komando is the dispatcher: binds one host and one task, builds an
// Executor, drives the module lifecycle, classifies the outcome, and
// files a Report entry. Matches §4.3 end to end.
func komando(host Host, task Task, ctx *Context, resolver *sshConfigResolver) (ExecResult, error) {
	if err := validateHost(host); err != nil {
		return ExecResult{}, err
	}
	if err := validateTask(task); err != nil {
		return ExecResult{}, err
	}

	module, params, err := resolveModule(task)
	if err != nil {
		return ExecResult{}, err
	}
	if err = module.Validate(params); err != nil {
		return ExecResult{}, &ModuleError{Module: module.Name(), Step: "validate", Err: err}
	}

	exec, err := buildExecutor(host, task, ctx, resolver)
	if err != nil {
		logError(fmt.Sprintf("failed to connect to host '%s'", host.displayName()), err, false)
		return ExecResult{}, err
	}
	defer exec.Close()

	taskName := task.Name
	if taskName == "" {
		taskName = module.Name()
	}

	printMessage(verbosityStandard, ">> Running task '%s' on host '%s' ...\n", taskName, host.displayName())
	if jErr := CreateJournaldLog(fmt.Sprintf("dispatching task '%s' on host '%s'", taskName, host.displayName()), "info"); jErr != nil {
		printMessage(verbosityDebug, "   journald log failed: %v\n", jErr)
	}

	var result *ExecResult
	if ctx.DryRun {
		if dryRunner, ok := module.(DryRunner); ok {
			_, dryErr := dryRunner.DryRun(exec, params)
			if dryErr != nil {
				err = &ModuleError{Module: module.Name(), Step: "dry_run", Err: dryErr}
			}
		} else {
			printMessage(verbosityStandard, "   (no dry_run for module '%s', assuming changed)\n", module.Name())
			exec.SetChanged(true)
		}
	} else {
		_, runErr := module.Run(exec, params)
		if runErr != nil {
			err = &ModuleError{Module: module.Name(), Step: "run", Err: runErr}
		}
	}

	snapshot := exec.Result()
	result = &snapshot

	if cleaner, ok := module.(Cleaner); ok {
		if cleanupErr := cleaner.Cleanup(exec, params); cleanupErr != nil {
			printMessage(verbosityStandard, "   cleanup error: %v\n", cleanupErr)
		}
	}

	ignoreExitCode := resolveBool([]*bool{task.IgnoreExitCode, host.IgnoreExitCode}, ctx.Defaults.IgnoreExitCode())

	status := StatusOK
	switch {
	case result.ExitCode != 0:
		status = StatusFailed
	case result.Changed:
		status = StatusChanged
	}

	if !ctx.NoReport {
		ctx.Report.Insert(taskName, host.displayName(), status)
	}

	if err != nil {
		printMessage(verbosityStandard, ">> Task '%s' on host '%s' failed: %v\n", taskName, host.displayName(), err)
		logError(fmt.Sprintf("task '%s' on host '%s'", taskName, host.displayName()), err, false)
		return *result, &TaskFailed{Host: host.displayName(), Task: taskName, Err: err}
	}

	if result.ExitCode != 0 && !ignoreExitCode {
		printMessage(verbosityStandard, ">> Task '%s' on host '%s' failed with exit code %d: %s\n", taskName, host.displayName(), result.ExitCode, strings.TrimSpace(result.Stderr))
		failErr := fmt.Errorf("exit code %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
		logError(fmt.Sprintf("task '%s' on host '%s'", taskName, host.displayName()), failErr, false)
		return *result, &TaskFailed{Host: host.displayName(), Task: taskName, Err: fmt.Errorf("Failed to run task.")}
	}

	printMessage(verbosityStandard, ">> Task '%s' on host '%s' succeeded. %s\n", taskName, host.displayName(), status)
	if jErr := CreateJournaldLog(fmt.Sprintf("task '%s' on host '%s' completed: %s", taskName, host.displayName(), status), "info"); jErr != nil {
		printMessage(verbosityDebug, "   journald log failed: %v\n", jErr)
	}
	return *result, nil
}
