// komandan
package main

import (
	"fmt"
	"strings"
)

// ###################################
//      MODULE: lineinfile
// ###################################

// lineInFileScript is a POSIX sh helper materialized to the target's tmpdir
// and invoked with flags describing the edit. Grounded on the original
// lineinfile module, which generates an equivalent shell helper rather than
// hand-rolling the line-matching logic in the host language, so the same
// edit semantics apply whether the target shell is dash, busybox ash, or
// bash.
const lineInFileScript = `#!/bin/sh
set -eu

PATH_ARG=""
CREATE=0
BACKUP=0
STATE="present"
LINE=""
PATTERN=""
INSERT_AFTER=""
INSERT_BEFORE=""

while [ $# -gt 0 ]; do
  case "$1" in
    --path) PATH_ARG="$2"; shift 2 ;;
    --create) CREATE=1; shift ;;
    --backup) BACKUP=1; shift ;;
    --state) STATE="$2"; shift 2 ;;
    --line) LINE="$2"; shift 2 ;;
    --pattern) PATTERN="$2"; shift 2 ;;
    --insert_after) INSERT_AFTER="$2"; shift 2 ;;
    --insert_before) INSERT_BEFORE="$2"; shift 2 ;;
    *) shift ;;
  esac
done

if [ ! -e "$PATH_ARG" ]; then
  if [ "$CREATE" = "1" ]; then
    : > "$PATH_ARG"
  else
    echo "path does not exist: $PATH_ARG" >&2
    exit 1
  fi
fi

if [ "$BACKUP" = "1" ]; then
  cp "$PATH_ARG" "$PATH_ARG.bak"
fi

MATCH="$LINE"
if [ -n "$PATTERN" ]; then
  MATCH="$PATTERN"
fi

TMP="$(mktemp)"
FOUND=0

if grep -qE -- "$MATCH" "$PATH_ARG" 2>/dev/null; then
  FOUND=1
fi

if [ "$STATE" = "absent" ]; then
  if [ "$FOUND" = "1" ]; then
    grep -vE -- "$MATCH" "$PATH_ARG" > "$TMP" || true
    mv "$TMP" "$PATH_ARG"
    echo "changed"
  fi
  exit 0
fi

if [ "$FOUND" = "1" ]; then
  if [ -n "$PATTERN" ]; then
    sed -E "s#$PATTERN#$LINE#" "$PATH_ARG" > "$TMP"
    if ! cmp -s "$TMP" "$PATH_ARG"; then
      mv "$TMP" "$PATH_ARG"
      echo "changed"
    else
      rm -f "$TMP"
    fi
  fi
  exit 0
fi

if [ -n "$INSERT_AFTER" ]; then
  awk -v line="$LINE" -v after="$INSERT_AFTER" '{print} $0 ~ after {print line}' "$PATH_ARG" > "$TMP"
elif [ -n "$INSERT_BEFORE" ]; then
  awk -v line="$LINE" -v before="$INSERT_BEFORE" '$0 ~ before {print line} {print}' "$PATH_ARG" > "$TMP"
else
  cp "$PATH_ARG" "$TMP"
  echo "$LINE" >> "$TMP"
fi

mv "$TMP" "$PATH_ARG"
echo "changed"
`

// LineInFileModule ensures a line is present or absent in a file, grounded
// on the original lineinfile module's flag surface (path, line/pattern,
// state, create, backup, insert_after, insert_before).
type LineInFileModule struct {
	remotePath string
}

func (m *LineInFileModule) Name() string { return "lineinfile" }

func (m *LineInFileModule) Validate(params map[string]any) error {
	if _, err := paramString(params, "path"); err != nil {
		return err
	}
	_, hasLine := params["line"]
	_, hasPattern := params["pattern"]
	if !hasLine && !hasPattern {
		return fmt.Errorf("'line' or 'pattern' parameter is required")
	}
	return nil
}

func (m *LineInFileModule) buildInvocation(remoteScript string, params map[string]any) string {
	path := paramStringOpt(params, "path", "")
	state := paramStringOpt(params, "state", "present")
	line := paramStringOpt(params, "line", "")
	pattern := paramStringOpt(params, "pattern", "")
	insertAfter := paramStringOpt(params, "insert_after", "")
	insertBefore := paramStringOpt(params, "insert_before", "")

	cmd := fmt.Sprintf("sh '%s' --path '%s' --state '%s'", remoteScript, path, state)
	if paramBoolOpt(params, "create", false) {
		cmd += " --create"
	}
	if paramBoolOpt(params, "backup", false) {
		cmd += " --backup"
	}
	if line != "" {
		cmd += fmt.Sprintf(" --line '%s'", line)
	}
	if pattern != "" {
		cmd += fmt.Sprintf(" --pattern '%s'", pattern)
	}
	if insertAfter != "" {
		cmd += fmt.Sprintf(" --insert_after '%s'", insertAfter)
	}
	if insertBefore != "" {
		cmd += fmt.Sprintf(" --insert_before '%s'", insertBefore)
	}
	return cmd
}

func (m *LineInFileModule) Run(exec Executor, params map[string]any) (*ExecResult, error) {
	tmpdir, err := exec.GetTmpdir()
	if err != nil {
		return nil, err
	}
	m.remotePath = tmpdir + "/." + randomSuffix(10) + ".sh"

	if err = exec.WriteRemoteFile(m.remotePath, []byte(lineInFileScript)); err != nil {
		return nil, err
	}

	stdout, _, _, err := exec.Cmd(m.buildInvocation(m.remotePath, params))
	if err != nil {
		return nil, err
	}

	changed := false
	for _, line := range strings.Split(stdout, "\n") {
		if strings.TrimSpace(line) == "changed" {
			changed = true
			break
		}
	}
	exec.SetChanged(changed)
	result := exec.Result()
	return &result, nil
}

func (m *LineInFileModule) Cleanup(exec Executor, params map[string]any) error {
	if m.remotePath == "" {
		return nil
	}
	_, _, _, err := exec.Cmdq("rm -f '" + m.remotePath + "'")
	return err
}
