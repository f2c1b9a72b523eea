// komandan
package main

import (
	"fmt"
	"strings"
)

// ###################################
//      MODULE: systemd_service
// ###################################

// SystemdServiceModule manages a systemd unit through one action verb -
// start, stop, restart, reload, enable, disable - grounded on
// original_source/src/modules/systemd_service.rs's action dispatch: probe
// via `systemctl is-active`/`is-enabled`, then act only when the probed
// state differs from what the action implies.
type SystemdServiceModule struct{}

func (m *SystemdServiceModule) Name() string { return "systemd_service" }

func (m *SystemdServiceModule) Validate(params map[string]any) error {
	if _, err := paramString(params, "name"); err != nil {
		return err
	}
	switch paramStringOpt(params, "action", "start") {
	case "start", "stop", "restart", "reload", "enable", "disable":
		return nil
	default:
		return &ValidationError{Field: "action", Message: "valid actions are: start, stop, restart, reload, enable, disable"}
	}
}

func (m *SystemdServiceModule) isActive(exec Executor, unit string) (bool, error) {
	stdout, _, _, err := exec.Cmdq(fmt.Sprintf("systemctl is-active '%s'", unit))
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(stdout) == "active", nil
}

func (m *SystemdServiceModule) isEnabled(exec Executor, unit string) (bool, error) {
	stdout, _, _, err := exec.Cmdq(fmt.Sprintf("systemctl is-enabled '%s'", unit))
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(stdout) == "enabled", nil
}

func (m *SystemdServiceModule) enableOpts(params map[string]any) string {
	if paramBoolOpt(params, "force", false) {
		return " --force"
	}
	return ""
}

func (m *SystemdServiceModule) Run(exec Executor, params map[string]any) (*ExecResult, error) {
	unit, err := paramString(params, "name")
	if err != nil {
		return nil, err
	}
	action := paramStringOpt(params, "action", "start")

	if paramBoolOpt(params, "daemon_reload", false) {
		if _, _, _, err = exec.Cmd("systemctl daemon-reload"); err != nil {
			return nil, err
		}
	}

	changed := false

	switch action {
	case "start":
		active, probeErr := m.isActive(exec, unit)
		if probeErr != nil {
			return nil, probeErr
		}
		if !active {
			if _, _, _, err = exec.Cmd(fmt.Sprintf("systemctl start '%s'", unit)); err != nil {
				return nil, err
			}
			changed = true
		}
	case "stop":
		active, probeErr := m.isActive(exec, unit)
		if probeErr != nil {
			return nil, probeErr
		}
		if active {
			if _, _, _, err = exec.Cmd(fmt.Sprintf("systemctl stop '%s'", unit)); err != nil {
				return nil, err
			}
			changed = true
		}
	case "reload":
		if _, _, _, err = exec.Cmd(fmt.Sprintf("systemctl reload '%s'", unit)); err != nil {
			return nil, err
		}
		changed = true
	case "restart":
		if _, _, _, err = exec.Cmd(fmt.Sprintf("systemctl restart '%s'", unit)); err != nil {
			return nil, err
		}
		changed = true
	case "enable":
		enabled, probeErr := m.isEnabled(exec, unit)
		if probeErr != nil {
			return nil, probeErr
		}
		if !enabled {
			if _, _, _, err = exec.Cmd(fmt.Sprintf("systemctl enable '%s'%s", unit, m.enableOpts(params))); err != nil {
				return nil, err
			}
			changed = true
		}
	case "disable":
		enabled, probeErr := m.isEnabled(exec, unit)
		if probeErr != nil {
			return nil, probeErr
		}
		if enabled {
			if _, _, _, err = exec.Cmd(fmt.Sprintf("systemctl disable '%s'%s", unit, m.enableOpts(params))); err != nil {
				return nil, err
			}
			changed = true
		}
	}

	exec.SetChanged(changed)
	result := exec.Result()
	return &result, nil
}

func (m *SystemdServiceModule) DryRun(exec Executor, params map[string]any) (*ExecResult, error) {
	unit, err := paramString(params, "name")
	if err != nil {
		return nil, err
	}
	action := paramStringOpt(params, "action", "start")

	changed := true
	switch action {
	case "start":
		active, probeErr := m.isActive(exec, unit)
		if probeErr != nil {
			return nil, probeErr
		}
		changed = !active
	case "stop":
		active, probeErr := m.isActive(exec, unit)
		if probeErr != nil {
			return nil, probeErr
		}
		changed = active
	case "enable":
		enabled, probeErr := m.isEnabled(exec, unit)
		if probeErr != nil {
			return nil, probeErr
		}
		changed = !enabled
	case "disable":
		enabled, probeErr := m.isEnabled(exec, unit)
		if probeErr != nil {
			return nil, probeErr
		}
		changed = enabled
	case "reload", "restart":
		changed = true
	}

	exec.SetChanged(changed)
	result := exec.Result()
	return &result, nil
}
