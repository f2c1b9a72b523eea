// komandan
package main

import "fmt"

// ###################################
//      MODULE: user
// ###################################

// UserModule ensures a local system user account exists (or not), grounded
// on the original user module's `id`-probe then useradd/userdel shape.
type UserModule struct{}

func (m *UserModule) Name() string { return "user" }

func (m *UserModule) Validate(params map[string]any) error {
	_, err := paramString(params, "name")
	return err
}

func (m *UserModule) exists(exec Executor, name string) (bool, error) {
	_, _, code, err := exec.Cmdq(fmt.Sprintf("id -u '%s' >/dev/null 2>&1", name))
	if err != nil {
		return false, err
	}
	return code == 0, nil
}

func (m *UserModule) Run(exec Executor, params map[string]any) (*ExecResult, error) {
	name, err := paramString(params, "name")
	if err != nil {
		return nil, err
	}
	state := paramStringOpt(params, "state", "present")

	exists, err := m.exists(exec, name)
	if err != nil {
		return nil, err
	}

	wantPresent := state != "absent"
	if exists == wantPresent {
		exec.SetChanged(false)
		result := exec.Result()
		return &result, nil
	}

	if wantPresent {
		cmd := fmt.Sprintf("useradd -m '%s'", name)
		if shell := paramStringOpt(params, "shell", ""); shell != "" {
			cmd += fmt.Sprintf(" -s '%s'", shell)
		}
		if group := paramStringOpt(params, "group", ""); group != "" {
			cmd += fmt.Sprintf(" -g '%s'", group)
		}
		if _, _, _, err = exec.Cmd(cmd); err != nil {
			return nil, err
		}
	} else {
		if _, _, _, err = exec.Cmd(fmt.Sprintf("userdel -r '%s'", name)); err != nil {
			return nil, err
		}
	}

	exec.SetChanged(true)
	result := exec.Result()
	return &result, nil
}

func (m *UserModule) DryRun(exec Executor, params map[string]any) (*ExecResult, error) {
	name, err := paramString(params, "name")
	if err != nil {
		return nil, err
	}
	state := paramStringOpt(params, "state", "present")

	exists, err := m.exists(exec, name)
	if err != nil {
		return nil, err
	}

	exec.SetChanged(exists != (state != "absent"))
	result := exec.Result()
	return &result, nil
}
