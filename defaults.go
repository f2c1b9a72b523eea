// komandan
package main

import "sync"

// ###################################
//      DEFAULTS REGISTRY
// ###################################

// Defaults holds the program-wide fallback values consulted by the
// dispatcher whenever a Host or Task leaves a field unset. Host values
// override Defaults, and Task values override both - later layer wins.
type Defaults struct {
	mutex sync.RWMutex

	port            int
	user            string
	connectTimeout  int
	connectRetries  int
	executionTimeout int
	elevate         bool
	elevationMethod string
	ignoreExitCode  bool
	hostKeyCheck    bool
	knownHostsFile  string
	maxConcurrency  int
	env             map[string]string
}

// Defaults matching original_source/src/defaults.rs, carried forward
// unchanged: port 22, elevation via sudo, DEBIAN_FRONTEND=noninteractive.
func newDefaults() *Defaults {
	return &Defaults{
		port:             22,
		user:             "root",
		connectTimeout:   30,
		connectRetries:   3,
		executionTimeout: 180,
		elevate:          false,
		elevationMethod:  "sudo",
		ignoreExitCode:   false,
		hostKeyCheck:     true,
		knownHostsFile:   "~/.ssh/known_hosts",
		maxConcurrency:   10,
		env: map[string]string{
			"DEBIAN_FRONTEND": "noninteractive",
		},
	}
}

func (d *Defaults) Port() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.port
}

func (d *Defaults) SetPort(port int) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.port = port
}

func (d *Defaults) User() string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.user
}

func (d *Defaults) SetUser(user string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.user = user
}

func (d *Defaults) SetConnectTimeout(seconds int) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.connectTimeout = seconds
}

func (d *Defaults) SetConnectRetries(n int) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.connectRetries = n
}

func (d *Defaults) SetExecutionTimeout(seconds int) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.executionTimeout = seconds
}

func (d *Defaults) SetElevate(elevate bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.elevate = elevate
}

func (d *Defaults) SetElevationMethod(method string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.elevationMethod = method
}

func (d *Defaults) SetIgnoreExitCode(ignore bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.ignoreExitCode = ignore
}

func (d *Defaults) SetHostKeyCheck(check bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.hostKeyCheck = check
}

func (d *Defaults) SetKnownHostsFile(path string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.knownHostsFile = path
}

func (d *Defaults) SetEnv(env map[string]string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.env = env
}

func (d *Defaults) ConnectTimeout() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.connectTimeout
}

func (d *Defaults) ConnectRetries() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.connectRetries
}

func (d *Defaults) ExecutionTimeout() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.executionTimeout
}

func (d *Defaults) Elevate() bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.elevate
}

func (d *Defaults) ElevationMethod() string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.elevationMethod
}

func (d *Defaults) IgnoreExitCode() bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.ignoreExitCode
}

func (d *Defaults) HostKeyCheck() bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.hostKeyCheck
}

func (d *Defaults) KnownHostsFile() string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.knownHostsFile
}

func (d *Defaults) MaxConcurrency() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.maxConcurrency
}

func (d *Defaults) SetMaxConcurrency(n int) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.maxConcurrency = n
}

func (d *Defaults) Env() map[string]string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	out := make(map[string]string, len(d.env))
	for k, v := range d.env {
		out[k] = v
	}
	return out
}

// resolveBool picks the first non-nil override, falling back to fallback.
func resolveBool(overrides []*bool, fallback bool) bool {
	for _, o := range overrides {
		if o != nil {
			return *o
		}
	}
	return fallback
}

func resolveInt(value int, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func resolveString(value string, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
