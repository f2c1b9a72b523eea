// komandan
package main

import (
	"fmt"
	"os"
	"strings"
)

// ###################################
//      MODULE: upload / download
// ###################################

// UploadModule is a direct passthrough to the Executor's Upload operation.
type UploadModule struct{}

func (m *UploadModule) Name() string { return "upload" }

func (m *UploadModule) Validate(params map[string]any) error {
	if _, err := paramString(params, "src"); err != nil {
		return err
	}
	_, err := paramString(params, "dst")
	return err
}

func (m *UploadModule) Run(exec Executor, params map[string]any) (*ExecResult, error) {
	src, err := paramString(params, "src")
	if err != nil {
		return nil, err
	}
	dst, err := paramString(params, "dst")
	if err != nil {
		return nil, err
	}

	if err = exec.Upload(src, dst); err != nil {
		return nil, err
	}

	if localBytes, readErr := os.ReadFile(src); readErr == nil {
		wantSum := SHA256Sum(localBytes)
		remoteOut, _, _, cmdErr := exec.Cmdq(fmt.Sprintf("sha256sum %s", dst))
		if cmdErr == nil {
			fields := strings.Fields(remoteOut)
			if len(fields) == 0 || fields[0] != wantSum {
				return nil, fmt.Errorf("checksum mismatch after upload to %s", dst)
			}
		}
	}

	exec.SetChanged(true)
	result := exec.Result()
	return &result, nil
}

// DownloadModule is a direct passthrough to the Executor's Download operation.
type DownloadModule struct{}

func (m *DownloadModule) Name() string { return "download" }

func (m *DownloadModule) Validate(params map[string]any) error {
	if _, err := paramString(params, "src"); err != nil {
		return err
	}
	_, err := paramString(params, "dst")
	return err
}

func (m *DownloadModule) Run(exec Executor, params map[string]any) (*ExecResult, error) {
	src, err := paramString(params, "src")
	if err != nil {
		return nil, err
	}
	dst, err := paramString(params, "dst")
	if err != nil {
		return nil, err
	}

	if err = exec.Download(src, dst); err != nil {
		return nil, err
	}

	exec.SetChanged(true)
	result := exec.Result()
	return &result, nil
}
