// komandan
package main

// ###################################
//      MODULE: cmd
// ###################################

// CmdModule runs an opaque shell string. It has no dry_run: under
// dry-run mode the dispatcher assumes changed, since an arbitrary command
// cannot be simulated.
type CmdModule struct{}

func (m *CmdModule) Name() string { return "cmd" }

func (m *CmdModule) Validate(params map[string]any) error {
	_, err := paramString(params, "cmd")
	return err
}

func (m *CmdModule) Run(exec Executor, params map[string]any) (*ExecResult, error) {
	command, err := paramString(params, "cmd")
	if err != nil {
		return nil, err
	}

	_, _, _, err = exec.Cmd(command)
	if err != nil {
		return nil, err
	}

	exec.SetChanged(true)

	result := exec.Result()
	return &result, nil
}
