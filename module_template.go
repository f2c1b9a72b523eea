// komandan
package main

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
)

// ###################################
//      MODULE: template
// ###################################

// TemplateModule renders a local Go text/template file with the supplied
// vars and writes the rendered content to a temporary file beside the
// remote path, then moves it into place with `mv -f`.
type TemplateModule struct{}

func (m *TemplateModule) Name() string { return "template" }

func (m *TemplateModule) Validate(params map[string]any) error {
	if _, err := paramString(params, "src"); err != nil {
		return err
	}
	_, err := paramString(params, "dst")
	return err
}

func (m *TemplateModule) render(params map[string]any) ([]byte, error) {
	src, err := paramString(params, "src")
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(expandHomeDirectory(src))
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %v", err)
	}

	tmpl, err := template.New("template").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %v", err)
	}

	vars, _ := params["vars"].(map[string]any)

	var buf bytes.Buffer
	if err = tmpl.Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("failed to render template: %v", err)
	}

	return buf.Bytes(), nil
}

func (m *TemplateModule) Run(exec Executor, params map[string]any) (*ExecResult, error) {
	dst, err := paramString(params, "dst")
	if err != nil {
		return nil, err
	}

	rendered, err := m.render(params)
	if err != nil {
		return nil, err
	}

	if !isText(&rendered) {
		printMessage(verbosityStandard, "   warning: rendered template for '%s' does not look like text\n", dst)
	}

	tmpDst := dst + ".komandan-tmp"
	if err = exec.WriteRemoteFile(tmpDst, rendered); err != nil {
		return nil, err
	}
	_, stderr, code, mvErr := exec.Cmdq(fmt.Sprintf("mv -f '%s' '%s'", tmpDst, dst))
	if mvErr != nil {
		return nil, mvErr
	}
	if code != 0 {
		return nil, fmt.Errorf("failed to move rendered template into place: %s", stderr)
	}

	if mode := paramStringOpt(params, "mode", ""); mode != "" {
		octal, err := parseOctalMode(mode)
		if err != nil {
			return nil, err
		}
		if err = exec.Chmod(dst, octal); err != nil {
			return nil, err
		}
	}

	exec.SetChanged(true)
	result := exec.Result()
	return &result, nil
}

func (m *TemplateModule) DryRun(exec Executor, params map[string]any) (*ExecResult, error) {
	if _, err := m.render(params); err != nil {
		return nil, err
	}
	exec.SetChanged(true)
	result := exec.Result()
	return &result, nil
}
