// komandan
package main

import "fmt"

// ###################################
//      MODULE: get_url
// ###################################

// GetURLModule fetches a URL to a remote destination path using whichever
// downloader the target already has, grounded on the original get_url
// module's curl-or-wget fallback shape.
type GetURLModule struct{}

func (m *GetURLModule) Name() string { return "get_url" }

func (m *GetURLModule) Validate(params map[string]any) error {
	if _, err := paramString(params, "url"); err != nil {
		return err
	}
	_, err := paramString(params, "dst")
	return err
}

func (m *GetURLModule) Run(exec Executor, params map[string]any) (*ExecResult, error) {
	url, err := paramString(params, "url")
	if err != nil {
		return nil, err
	}
	dst, err := paramString(params, "dst")
	if err != nil {
		return nil, err
	}

	if err = exec.Requires([]string{"curl"}); err == nil {
		_, _, _, err = exec.Cmd(fmt.Sprintf("curl -fsSL -o '%s' '%s'", dst, url))
	} else {
		if err = exec.Requires([]string{"wget"}); err != nil {
			return nil, fmt.Errorf("neither curl nor wget available on target")
		}
		_, _, _, err = exec.Cmd(fmt.Sprintf("wget -q -O '%s' '%s'", dst, url))
	}
	if err != nil {
		return nil, err
	}

	if mode := paramStringOpt(params, "mode", ""); mode != "" {
		octal, modeErr := parseOctalMode(mode)
		if modeErr != nil {
			return nil, modeErr
		}
		if err = exec.Chmod(dst, octal); err != nil {
			return nil, err
		}
	}

	exec.SetChanged(true)
	result := exec.Result()
	return &result, nil
}
