// komandan
package main

import (
	"fmt"
	"strings"
)

// ###################################
//      MODULE: file
// ###################################

// FileModule manages a path's existence/type (absent, directory, file,
// link) and its mode/owner/group, probing current state with stat before
// mutating. Grounded on original_source's file module: is_exists/get_mode/
// get_owner/get_group probes, then create/remove/link followed by
// chmod/chown/chgrp.
type FileModule struct{}

func (m *FileModule) Name() string { return "file" }

var validFileStates = map[string]bool{"absent": true, "directory": true, "file": true, "link": true}

func (m *FileModule) Validate(params map[string]any) error {
	if _, err := paramString(params, "path"); err != nil {
		return err
	}
	state := paramStringOpt(params, "state", "file")
	if !validFileStates[state] {
		return fmt.Errorf("'state' must be one of absent, directory, file, link")
	}
	if state == "link" {
		if _, err := paramString(params, "src"); err != nil {
			return fmt.Errorf("'src' parameter is required when state is link")
		}
	}
	return nil
}

func (m *FileModule) exists(exec Executor, path string) (bool, error) {
	_, _, code, err := exec.Cmdq(fmt.Sprintf("test -e '%s'", path))
	if err != nil {
		return false, err
	}
	return code == 0, nil
}

func (m *FileModule) currentState(exec Executor, path string) (string, error) {
	stdout, _, code, err := exec.Cmdq(fmt.Sprintf("stat -c '%%F' '%s' 2>/dev/null", path))
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "absent", nil
	}
	kind := strings.TrimSpace(stdout)
	switch {
	case strings.Contains(kind, "directory"):
		return "directory", nil
	case strings.Contains(kind, "symbolic link"):
		return "link", nil
	default:
		return "file", nil
	}
}

func (m *FileModule) applyAttributes(exec Executor, path string, params map[string]any) error {
	if mode := paramStringOpt(params, "mode", ""); mode != "" {
		octal, err := parseOctalMode(mode)
		if err != nil {
			return err
		}
		if err = exec.Chmod(path, octal); err != nil {
			return err
		}
	}
	if owner := paramStringOpt(params, "owner", ""); owner != "" {
		if _, _, _, err := exec.Cmd(fmt.Sprintf("chown '%s' '%s'", owner, path)); err != nil {
			return err
		}
	}
	if group := paramStringOpt(params, "group", ""); group != "" {
		if _, _, _, err := exec.Cmd(fmt.Sprintf("chgrp '%s' '%s'", group, path)); err != nil {
			return err
		}
	}
	return nil
}

func (m *FileModule) Run(exec Executor, params map[string]any) (*ExecResult, error) {
	path, err := paramString(params, "path")
	if err != nil {
		return nil, err
	}
	state := paramStringOpt(params, "state", "file")

	current, err := m.currentState(exec, path)
	if err != nil {
		return nil, err
	}

	changed := false

	if current != state {
		switch state {
		case "absent":
			if _, _, _, err = exec.Cmd(fmt.Sprintf("rm -rf '%s'", path)); err != nil {
				return nil, err
			}
		case "directory":
			if _, _, _, err = exec.Cmd(fmt.Sprintf("mkdir -p '%s'", path)); err != nil {
				return nil, err
			}
		case "file":
			if _, _, _, err = exec.Cmd(fmt.Sprintf("touch '%s'", path)); err != nil {
				return nil, err
			}
		case "link":
			src, _ := paramString(params, "src")
			if _, _, _, err = exec.Cmd(fmt.Sprintf("ln -sf '%s' '%s'", src, path)); err != nil {
				return nil, err
			}
		}
		changed = true
	}

	if state != "absent" {
		if err = m.applyAttributes(exec, path, params); err != nil {
			return nil, err
		}
	}

	exec.SetChanged(changed)
	result := exec.Result()
	return &result, nil
}

func (m *FileModule) DryRun(exec Executor, params map[string]any) (*ExecResult, error) {
	path, err := paramString(params, "path")
	if err != nil {
		return nil, err
	}
	state := paramStringOpt(params, "state", "file")

	current, err := m.currentState(exec, path)
	if err != nil {
		return nil, err
	}

	exec.SetChanged(current != state)
	result := exec.Result()
	return &result, nil
}
