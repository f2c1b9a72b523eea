// komandan
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// ###################################
//      MODULE: script
// ###################################

// ScriptModule materializes a local script file (or inline "script" text)
// into the target's tmpdir, makes it executable, runs it, and removes it
// in Cleanup.
type ScriptModule struct {
	remotePath string
}

func (m *ScriptModule) Name() string { return "script" }

func (m *ScriptModule) Validate(params map[string]any) error {
	if _, ok := params["from_file"]; ok {
		return nil
	}
	if _, ok := params["script"]; ok {
		return nil
	}
	return fmt.Errorf("'script' or 'from_file' parameter is required")
}

func scriptContent(params map[string]any) ([]byte, error) {
	if path, ok := params["from_file"].(string); ok && path != "" {
		content, err := os.ReadFile(expandHomeDirectory(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read script file: %v", err)
		}
		return content, nil
	}
	if script, ok := params["script"].(string); ok && script != "" {
		return []byte(script), nil
	}
	return nil, fmt.Errorf("'script' or 'from_file' parameter is required")
}

func interpreterFor(content []byte, params map[string]any) string {
	if interp := paramStringOpt(params, "interpreter", ""); interp != "" {
		return interp
	}
	lines := strings.SplitN(string(content), "\n", 2)
	if strings.HasPrefix(lines[0], "#!") {
		return strings.TrimSpace(strings.TrimPrefix(lines[0], "#!"))
	}
	return "/bin/sh"
}

func (m *ScriptModule) Run(exec Executor, params map[string]any) (*ExecResult, error) {
	content, err := scriptContent(params)
	if err != nil {
		return nil, err
	}

	tmpdir, err := exec.GetTmpdir()
	if err != nil {
		return nil, err
	}

	randomName := randomSuffix(10)
	m.remotePath = tmpdir + "/." + randomName

	if err = exec.WriteRemoteFile(m.remotePath, content); err != nil {
		return nil, err
	}
	if err = exec.Chmod(m.remotePath, 0700); err != nil {
		return nil, err
	}

	interpreter := interpreterFor(content, params)
	_, _, _, err = exec.Cmd(fmt.Sprintf("%s '%s'", interpreter, m.remotePath))
	if err != nil {
		return nil, err
	}

	exec.SetChanged(true)
	result := exec.Result()
	return &result, nil
}

func (m *ScriptModule) Cleanup(exec Executor, params map[string]any) error {
	if m.remotePath == "" {
		return nil
	}
	_, _, _, err := exec.Cmdq("rm -f '" + m.remotePath + "'")
	return err
}

const randomSuffixAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomSuffix(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = randomSuffixAlphabet[rand.Intn(len(randomSuffixAlphabet))]
	}
	return string(b)
}
