// komandan
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"sync"

	"gopkg.in/yaml.v2"
)

// ###################################
//      CONSTANTS
// ###################################

const ( // Descriptive names for available verbosity levels
	verbosityNone int = iota
	verbosityStandard
	verbosityProgress
	verbosityData
	verbosityFullData
	verbosityDebug
)

const progVersion string = "v0.1.0"
const defaultFleetPath string = "fleet.yaml"

// ###################################
//      GLOBAL VARIABLES
// ###################################

var config Config

// Config holds process-wide state threaded through printMessage and the
// home-directory expansion helper. Kept as a package-level struct rather
// than parameters everywhere, mirroring the teacher's own global Config
// pattern for CLI state that every helper needs cheap access to.
type Config struct {
	userHomeDirectory string
	logFilePath       string
	logFile           *os.File
	eventLog          []string
	eventLogMutex     sync.Mutex
}

var globalVerbosityLevel int

// ###################################
//      FLEET FILE
// ###################################

// fleetFile is the on-disk declarative shape: a defaults block plus host
// and task lists, loaded with the same yaml.v2 library the teacher already
// depends on for other structured config.
type fleetFile struct {
	Defaults defaultsSpec `yaml:"defaults"`
	Hosts    []hostSpec   `yaml:"hosts"`
	Tasks    []taskSpec   `yaml:"tasks"`
}

type defaultsSpec struct {
	Port            int               `yaml:"port"`
	User            string            `yaml:"user"`
	ConnectTimeout  int               `yaml:"connect_timeout"`
	ConnectRetries  int               `yaml:"connect_retries"`
	ExecutionTimeout int              `yaml:"execution_timeout"`
	Elevate         *bool             `yaml:"elevate"`
	ElevationMethod string            `yaml:"elevation_method"`
	IgnoreExitCode  *bool             `yaml:"ignore_exit_code"`
	HostKeyCheck    *bool             `yaml:"host_key_check"`
	KnownHostsFile  string            `yaml:"known_hosts_file"`
	MaxConcurrency  int               `yaml:"max_concurrency"`
	Env             map[string]string `yaml:"env"`
}

type hostSpec struct {
	Name            string            `yaml:"name"`
	Address         string            `yaml:"address"`
	Port            int               `yaml:"port"`
	User            string            `yaml:"user"`
	Password        string            `yaml:"password"`
	IdentityFile    string            `yaml:"identity_file"`
	ProxyHost       string            `yaml:"proxy_host"`
	ConnectTimeout  int               `yaml:"connect_timeout"`
	ConnectRetries  int               `yaml:"connect_retries"`
	KnownHostsFile  string            `yaml:"known_hosts_file"`
	HostKeyCheck    *bool             `yaml:"host_key_check"`
	Elevate         *bool             `yaml:"elevate"`
	ElevationMethod string            `yaml:"elevation_method"`
	IgnoreExitCode  *bool             `yaml:"ignore_exit_code"`
	Env             map[string]string `yaml:"env"`
	VaultEntry      string            `yaml:"vault_entry"`
}

type taskSpec struct {
	Name           string         `yaml:"name"`
	Hosts          []string       `yaml:"hosts"`
	Module         string         `yaml:"module"`
	Command        string         `yaml:"command"`
	Params         map[string]any `yaml:"params"`
	Env            map[string]string `yaml:"env"`
	IgnoreExitCode *bool          `yaml:"ignore_exit_code"`
	Elevate        *bool          `yaml:"elevate"`
	Timeout        int            `yaml:"timeout"`
}

// loadFleet parses a fleet file into Defaults overrides, a name-keyed Host
// map (with proxy_host references resolved to pointers), and an ordered
// Task list.
func loadFleet(path string) (defaults defaultsSpec, hosts map[string]*Host, tasks []Task, err error) {
	raw, err := os.ReadFile(expandHomeDirectory(path))
	if err != nil {
		return defaults, nil, nil, fmt.Errorf("failed to read fleet file: %v", err)
	}

	var file fleetFile
	if err = yaml.Unmarshal(raw, &file); err != nil {
		return defaults, nil, nil, fmt.Errorf("failed to parse fleet file: %v", err)
	}

	hosts = make(map[string]*Host, len(file.Hosts))
	for _, spec := range file.Hosts {
		hosts[spec.Name] = &Host{
			Name:            spec.Name,
			Address:         spec.Address,
			Port:            spec.Port,
			User:            spec.User,
			Password:        spec.Password,
			IdentityFile:    spec.IdentityFile,
			ConnectTimeout:  spec.ConnectTimeout,
			ConnectRetries:  spec.ConnectRetries,
			KnownHostsFile:  spec.KnownHostsFile,
			HostKeyCheck:    spec.HostKeyCheck,
			Elevate:         spec.Elevate,
			ElevationMethod: spec.ElevationMethod,
			IgnoreExitCode:  spec.IgnoreExitCode,
			Env:             spec.Env,
			VaultEntry:      spec.VaultEntry,
		}
	}
	for _, spec := range file.Hosts {
		if spec.ProxyHost == "" {
			continue
		}
		proxy, ok := hosts[spec.ProxyHost]
		if !ok {
			return defaults, nil, nil, &ValidationError{Field: "proxy_host", Message: fmt.Sprintf("host %q references unknown proxy_host %q", spec.Name, spec.ProxyHost)}
		}
		hosts[spec.Name].ProxyHost = proxy
	}

	tasks = make([]Task, 0, len(file.Tasks))
	for _, spec := range file.Tasks {
		tasks = append(tasks, Task{
			Name:           spec.Name,
			Hosts:          spec.Hosts,
			Module:         spec.Module,
			Command:        spec.Command,
			Params:         spec.Params,
			Env:            spec.Env,
			IgnoreExitCode: spec.IgnoreExitCode,
			Elevate:        spec.Elevate,
			Timeout:        spec.Timeout,
		})
	}

	return file.Defaults, hosts, tasks, nil
}

func applyDefaultsSpec(defaults *Defaults, spec defaultsSpec) {
	if spec.Port != 0 {
		defaults.SetPort(spec.Port)
	}
	if spec.User != "" {
		defaults.SetUser(spec.User)
	}
	if spec.ConnectTimeout != 0 {
		defaults.SetConnectTimeout(spec.ConnectTimeout)
	}
	if spec.ConnectRetries != 0 {
		defaults.SetConnectRetries(spec.ConnectRetries)
	}
	if spec.ExecutionTimeout != 0 {
		defaults.SetExecutionTimeout(spec.ExecutionTimeout)
	}
	if spec.Elevate != nil {
		defaults.SetElevate(*spec.Elevate)
	}
	if spec.ElevationMethod != "" {
		defaults.SetElevationMethod(spec.ElevationMethod)
	}
	if spec.IgnoreExitCode != nil {
		defaults.SetIgnoreExitCode(*spec.IgnoreExitCode)
	}
	if spec.HostKeyCheck != nil {
		defaults.SetHostKeyCheck(*spec.HostKeyCheck)
	}
	if spec.KnownHostsFile != "" {
		defaults.SetKnownHostsFile(spec.KnownHostsFile)
	}
	if spec.MaxConcurrency != 0 {
		defaults.SetMaxConcurrency(spec.MaxConcurrency)
	}
	if spec.Env != nil {
		defaults.SetEnv(spec.Env)
	}
}

// hostsForTask resolves a task's target host list: the names it names, or
// every configured host when it names none.
func hostsForTask(task Task, hosts map[string]*Host) ([]Host, error) {
	if len(task.Hosts) == 0 {
		all := make([]Host, 0, len(hosts))
		for _, h := range hosts {
			all = append(all, *h)
		}
		return all, nil
	}

	resolved := make([]Host, 0, len(task.Hosts))
	for _, name := range task.Hosts {
		h, ok := hosts[name]
		if !ok {
			return nil, &ValidationError{Field: "hosts", Message: fmt.Sprintf("task %q references unknown host %q", task.Name, name)}
		}
		resolved = append(resolved, *h)
	}
	return resolved, nil
}

// ###################################
//      MAIN
// ###################################

func main() {
	var dryRun bool
	var noReport bool
	var maxConns int
	var verbose int
	var versionRequested bool
	var vaultPath string
	var yamlReport bool

	const usage = `
komandan - declarative fleet orchestrator over SSH

  Usage: komandan [OPTIONS] <fleet.yaml>
         komandan [--vault-file <path>] vault <put|remove|list> [name]

  Options:
    -d, --dry-run                Report what would change, without mutating targets
    -n, --no-report               Suppress the end-of-run report
    -y, --yaml-report             Also print the report as YAML
    -m, --max-conns <10>          Maximum simultaneous connections
    -v, --verbose <0..5>          Increase progress message detail
    -V, --version                 Print version and exit
`
	flag.BoolVar(&dryRun, "d", false, "")
	flag.BoolVar(&dryRun, "dry-run", false, "")
	flag.BoolVar(&noReport, "n", false, "")
	flag.BoolVar(&noReport, "no-report", false, "")
	flag.BoolVar(&yamlReport, "y", false, "")
	flag.BoolVar(&yamlReport, "yaml-report", false, "")
	flag.IntVar(&maxConns, "m", 10, "")
	flag.IntVar(&maxConns, "max-conns", 10, "")
	flag.IntVar(&verbose, "v", 1, "")
	flag.IntVar(&verbose, "verbose", 1, "")
	flag.BoolVar(&versionRequested, "V", false, "")
	flag.BoolVar(&versionRequested, "version", false, "")
	flag.StringVar(&vaultPath, "vault-file", "~/.komandan/vault", "")

	flag.Usage = func() { fmt.Printf("Usage: %s [OPTIONS]...%s", os.Args[0], usage) }
	flag.Parse()

	globalVerbosityLevel = verbose

	home, err := os.UserHomeDir()
	if err == nil {
		config.userHomeDirectory = home
	}

	if versionRequested {
		fmt.Printf("komandan %s\n", progVersion)
		fmt.Printf("Built using %s(%s) for %s on %s\n", runtime.Version(), runtime.Compiler, runtime.GOOS, runtime.GOARCH)
		return
	}

	args := flag.Args()

	if len(args) > 0 && args[0] == "vault" {
		runVaultCommand(args[1:], vaultPath)
		return
	}

	fleetPath := defaultFleetPath
	if len(args) > 0 {
		fleetPath = args[0]
	}

	defaultsSpecValue, hosts, tasks, err := loadFleet(fleetPath)
	if err != nil {
		logError("Error loading fleet file", err, true)
	}

	ctx := newContext()
	ctx.DryRun = dryRun
	ctx.NoReport = noReport
	ctx.Vault = newVault(expandHomeDirectory(vaultPath))
	applyDefaultsSpec(ctx.Defaults, defaultsSpecValue)
	if maxConns != 10 {
		ctx.Defaults.SetMaxConcurrency(maxConns)
	}

	resolver, err := loadSSHConfigResolver(expandHomeDirectory("~/.ssh/config"))
	if err != nil {
		printMessage(verbosityStandard, "Warning: failed to load ssh config: %v\n", err)
	}

	failed := false
	for _, task := range tasks {
		targets, err := hostsForTask(task, hosts)
		if err != nil {
			printMessage(verbosityStandard, "Error: %v\n", err)
			failed = true
			continue
		}

		results := parallelHosts(targets, task, ctx, resolver)
		for _, r := range results {
			if r.Err != nil {
				failed = true
			}
		}
	}

	if !noReport {
		fmt.Print(ctx.Report.Render(ctx.DryRun))
		if yamlReport {
			out, yamlErr := ctx.Report.RenderYAML()
			if yamlErr == nil {
				fmt.Print(out)
			}
		}
	}

	if failed {
		os.Exit(1)
	}
}

// runVaultCommand implements the `vault put|remove|list` subcommand against
// the credential vault file.
func runVaultCommand(args []string, vaultPath string) {
	if len(args) == 0 {
		printMessage(verbosityStandard, "vault: expected a subcommand (put, remove, list)\n")
		os.Exit(1)
	}

	v := newVault(expandHomeDirectory(vaultPath))

	if args[0] == "put" || args[0] == "remove" {
		if _, statErr := os.Stat(v.path); statErr == nil {
			if err := v.Unlock(); err != nil {
				logError("Error unlocking vault", err, true)
			}
		}
	}

	switch args[0] {
	case "list":
		if err := v.Unlock(); err != nil {
			logError("Error unlocking vault", err, true)
		}
		for name := range v.entries {
			fmt.Println(name)
		}
	case "put":
		if len(args) < 2 {
			printMessage(verbosityStandard, "vault put: expected a name\n")
			os.Exit(1)
		}
		name := args[1]
		user, err := promptUser("User for %q: ", name)
		if err != nil {
			printMessage(verbosityStandard, "Error: %v\n", err)
			os.Exit(1)
		}
		password, err := promptUserForSecret("Password for %q: ", name)
		if err != nil {
			printMessage(verbosityStandard, "Error: %v\n", err)
			os.Exit(1)
		}
		vaultPassword, err := promptUserForSecret("Vault password: ")
		if err != nil {
			printMessage(verbosityStandard, "Error: %v\n", err)
			os.Exit(1)
		}
		entry := VaultEntry{Name: name, User: user, Password: string(password)}
		if err = v.Put(entry, vaultPassword); err != nil {
			logError("Error saving vault entry", err, true)
		}
		printMessage(verbosityStandard, "Saved vault entry %q\n", name)
	case "remove":
		if len(args) < 2 {
			printMessage(verbosityStandard, "vault remove: expected a name\n")
			os.Exit(1)
		}
		name := args[1]
		vaultPassword, err := promptUserForSecret("Vault password: ")
		if err != nil {
			printMessage(verbosityStandard, "Error: %v\n", err)
			os.Exit(1)
		}
		if err = v.Remove(name, vaultPassword); err != nil {
			logError("Error removing vault entry", err, true)
		}
		printMessage(verbosityStandard, "Removed vault entry %q\n", name)
	default:
		printMessage(verbosityStandard, "vault: unknown subcommand %q\n", args[0])
		os.Exit(1)
	}
}
