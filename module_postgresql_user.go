// komandan
package main

import (
	"fmt"
	"strings"
)

// ###################################
//      MODULE: postgresql_user
// ###################################

// PostgresqlUserModule ensures a PostgreSQL role exists (or not), driving
// psql through the executor the same way other probe-then-act modules drive
// shell utilities, grounded on the original postgresql_user module's
// psql -tAc probe pattern.
type PostgresqlUserModule struct{}

func (m *PostgresqlUserModule) Name() string { return "postgresql_user" }

func (m *PostgresqlUserModule) Validate(params map[string]any) error {
	_, err := paramString(params, "name")
	return err
}

func (m *PostgresqlUserModule) exists(exec Executor, name string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM pg_roles WHERE rolname='%s'", name)
	stdout, _, _, err := exec.Cmdq(fmt.Sprintf("sudo -u postgres psql -tAc \"%s\"", query))
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(stdout) == "1", nil
}

func (m *PostgresqlUserModule) Run(exec Executor, params map[string]any) (*ExecResult, error) {
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

	var sql string
	if wantPresent {
		password := paramStringOpt(params, "password", "")
		superuser := paramBoolOpt(params, "superuser", false)
		sql = fmt.Sprintf("CREATE ROLE \"%s\" LOGIN", name)
		if password != "" {
			sql += fmt.Sprintf(" PASSWORD '%s'", escapeShellValue(password))
		}
		if superuser {
			sql += " SUPERUSER"
		}
	} else {
		sql = fmt.Sprintf("DROP ROLE \"%s\"", name)
	}

	if _, _, _, err = exec.Cmd(fmt.Sprintf("sudo -u postgres psql -c \"%s\"", sql)); err != nil {
		return nil, err
	}

	exec.SetChanged(true)
	result := exec.Result()
	return &result, nil
}

func (m *PostgresqlUserModule) DryRun(exec Executor, params map[string]any) (*ExecResult, error) {
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
