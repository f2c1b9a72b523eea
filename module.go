// komandan
package main

import "fmt"

// ###################################
//      MODULE REGISTRY
// ###################################

var builtinModules = map[string]func() Module{
	"cmd":              func() Module { return &CmdModule{} },
	"script":           func() Module { return &ScriptModule{} },
	"upload":           func() Module { return &UploadModule{} },
	"download":         func() Module { return &DownloadModule{} },
	"apt":              func() Module { return &PackageModule{manager: "apt"} },
	"dnf":              func() Module { return &PackageModule{manager: "dnf"} },
	"systemd_service":  func() Module { return &SystemdServiceModule{} },
	"file":             func() Module { return &FileModule{} },
	"lineinfile":       func() Module { return &LineInFileModule{} },
	"template":         func() Module { return &TemplateModule{} },
	"postgresql_user":  func() Module { return &PostgresqlUserModule{} },
	"get_url":          func() Module { return &GetURLModule{} },
	"user":             func() Module { return &UserModule{} },
	"git_sync":         func() Module { return &GitSyncModule{} },
}

// resolveModule looks up the module named by task.Module (or synthesizes a
// "cmd" module when task.Command is used as shorthand), returning it along
// with its effective params bag.
func resolveModule(task Task) (Module, map[string]any, error) {
	name := task.Module
	params := task.Params
	if params == nil {
		params = make(map[string]any)
	}

	if name == "" && task.Command != "" {
		name = "cmd"
		params = map[string]any{"cmd": task.Command}
	}

	factory, ok := builtinModules[name]
	if !ok {
		return nil, nil, &ValidationError{Field: "module", Message: fmt.Sprintf("unknown module %q", name)}
	}

	return factory(), params, nil
}

// paramString fetches a required string param, returning a plain error
// (which the dispatcher wraps in a ModuleError) when absent or empty.
func paramString(params map[string]any, key string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return "", fmt.Errorf("'%s' parameter is required", key)
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return "", fmt.Errorf("'%s' parameter is required", key)
	}
	return value, nil
}

func paramStringOpt(params map[string]any, key string, fallback string) string {
	raw, ok := params[key]
	if !ok {
		return fallback
	}
	value, ok := raw.(string)
	if !ok {
		return fallback
	}
	return value
}

func paramBoolOpt(params map[string]any, key string, fallback bool) bool {
	raw, ok := params[key]
	if !ok {
		return fallback
	}
	value, ok := raw.(bool)
	if !ok {
		return fallback
	}
	return value
}

func paramStringMap(params map[string]any, key string) map[string]string {
	raw, ok := params[key]
	if !ok {
		return nil
	}
	if m, ok := raw.(map[string]string); ok {
		return m
	}
	if m, ok := raw.(map[string]any); ok {
		out := make(map[string]string, len(m))
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
		return out
	}
	return nil
}
