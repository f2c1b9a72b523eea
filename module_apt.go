// komandan
package main

import (
	"fmt"
	"strings"
)

// ###################################
//      MODULE: apt / dnf
// ###################################

// PackageModule drives a system package manager (apt or dnf, selected by
// manager set from the module registry) through the enumerated action
// verbs - install, remove, purge, update, upgrade, autoremove - grounded on
// original_source/src/modules/apt.rs's action dispatch. Only install/
// remove/purge require a package name; update/upgrade/autoremove operate on
// the whole system.
type PackageModule struct {
	manager string
}

func (m *PackageModule) Name() string { return m.manager }

func (m *PackageModule) Validate(params map[string]any) error {
	action := paramStringOpt(params, "action", "install")
	switch action {
	case "install", "remove", "purge", "update", "upgrade", "autoremove":
	default:
		return &ValidationError{Field: "action", Message: fmt.Sprintf("unknown action %q", action)}
	}
	if action == "install" || action == "remove" || action == "purge" {
		_, err := paramString(params, "package")
		return err
	}
	return nil
}

func (m *PackageModule) isInstalled(exec Executor, pkg string) (bool, error) {
	if pkg == "" {
		return false, nil
	}
	switch m.manager {
	case "dnf":
		_, _, code, err := exec.Cmdq(fmt.Sprintf("rpm -q '%s' >/dev/null 2>&1", pkg))
		if err != nil {
			return false, err
		}
		return code == 0, nil
	default:
		stdout, _, _, err := exec.Cmdq(fmt.Sprintf("dpkg-query -W -f='${Status}' '%s' 2>/dev/null", pkg))
		if err != nil {
			return false, err
		}
		return strings.Contains(stdout, "ok installed"), nil
	}
}

func (m *PackageModule) managerPrefix() string {
	if m.manager == "dnf" {
		return "dnf"
	}
	return "apt"
}

// actionCommand renders the shell command for one action verb, using `-s`
// (apt's simulate flag) for dry-run and no flag for a live run; dnf has no
// simulate flag and "update" has no simulated form, so DryRun never invokes
// Cmd for dnf or for "update".
func (m *PackageModule) actionCommand(action, pkg string, noRecommends bool, simulate bool) string {
	prefix := m.managerPrefix()

	sim := ""
	if simulate && m.manager != "dnf" {
		sim = "-s "
	}

	switch action {
	case "install":
		flags := "-y"
		if noRecommends && m.manager != "dnf" {
			flags += " --no-install-recommends"
		}
		return fmt.Sprintf("%s %s%s %s '%s'", prefix, sim, action, flags, pkg)
	case "remove", "purge":
		return fmt.Sprintf("%s %s%s -y '%s'", prefix, sim, action, pkg)
	case "update":
		return fmt.Sprintf("%s update", prefix)
	case "upgrade", "autoremove":
		return fmt.Sprintf("%s %s%s -y", prefix, sim, action)
	default:
		return ""
	}
}

func (m *PackageModule) DryRun(exec Executor, params map[string]any) (*ExecResult, error) {
	action := paramStringOpt(params, "action", "install")
	pkg := paramStringOpt(params, "package", "")

	installed, err := m.isInstalled(exec, pkg)
	if err != nil {
		return nil, err
	}

	if m.manager != "dnf" && action != "update" {
		if _, _, _, err = exec.Cmd(m.actionCommand(action, pkg, !paramBoolOpt(params, "install_recommends", true), true)); err != nil {
			return nil, err
		}
	}

	switch action {
	case "install":
		exec.SetChanged(!installed)
	case "remove", "purge":
		exec.SetChanged(installed)
	case "update", "upgrade", "autoremove":
		exec.SetChanged(true)
	default:
		exec.SetChanged(true)
	}

	result := exec.Result()
	return &result, nil
}

func (m *PackageModule) Run(exec Executor, params map[string]any) (*ExecResult, error) {
	action := paramStringOpt(params, "action", "install")
	pkg := paramStringOpt(params, "package", "")
	updateCache := paramBoolOpt(params, "update_cache", false)
	noRecommends := !paramBoolOpt(params, "install_recommends", true)

	changed := false
	if updateCache {
		if _, _, _, err := exec.Cmd(fmt.Sprintf("%s update", m.managerPrefix())); err != nil {
			return nil, err
		}
		changed = true
	}

	if action == "update" {
		if _, _, _, err := exec.Cmd(fmt.Sprintf("%s update", m.managerPrefix())); err != nil {
			return nil, err
		}
		exec.SetChanged(true)
		result := exec.Result()
		return &result, nil
	}

	if action == "upgrade" || action == "autoremove" {
		if _, _, _, err := exec.Cmd(m.actionCommand(action, "", false, false)); err != nil {
			return nil, err
		}
		exec.SetChanged(true)
		result := exec.Result()
		return &result, nil
	}

	installed, err := m.isInstalled(exec, pkg)
	if err != nil {
		return nil, err
	}

	wantInstalled := action == "install"
	if (wantInstalled && installed) || (!wantInstalled && !installed) {
		exec.SetChanged(changed)
		result := exec.Result()
		return &result, nil
	}

	if _, _, _, err = exec.Cmd(m.actionCommand(action, pkg, noRecommends, false)); err != nil {
		return nil, err
	}

	exec.SetChanged(true)
	result := exec.Result()
	return &result, nil
}
