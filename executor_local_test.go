// komandan
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLocalExecutorCmdCapturesOutputAndAccumulates(t *testing.T) {
	exec := newLocalExecutor("localhost", Elevation{})

	stdout, _, code, err := exec.Cmd("echo hello")
	if err != nil {
		t.Fatalf("Cmd returned error: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if stdout != "hello" {
		t.Fatalf("stdout = %q, want %q", stdout, "hello")
	}

	exec.Cmd("echo world")
	snap := exec.Result()
	if snap.Stdout != "helloworld" {
		t.Fatalf("accumulated stdout = %q, want %q", snap.Stdout, "helloworld")
	}
}

func TestLocalExecutorCmdqDoesNotAccumulate(t *testing.T) {
	exec := newLocalExecutor("localhost", Elevation{})
	exec.Cmdq("echo probe")

	snap := exec.Result()
	if snap.Stdout != "" {
		t.Fatalf("Cmdq should not touch the accumulated result, got %q", snap.Stdout)
	}
}

func TestLocalExecutorCmdNonZeroExit(t *testing.T) {
	exec := newLocalExecutor("localhost", Elevation{})
	_, _, code, err := exec.Cmd("exit 7")
	if err != nil {
		t.Fatalf("Cmd with a non-zero exit should not itself error, got: %v", err)
	}
	if code != 7 {
		t.Fatalf("exit code = %d, want 7", code)
	}
}

func TestLocalExecutorWriteRemoteFileCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "deeper", "file.txt")

	exec := newLocalExecutor("localhost", Elevation{})
	if err := exec.WriteRemoteFile(target, []byte("contents")); err != nil {
		t.Fatalf("WriteRemoteFile returned error: %v", err)
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("reading back written file: %v", err)
	}
	if string(got) != "contents" {
		t.Fatalf("file contents = %q, want %q", got, "contents")
	}
}

func TestLocalExecutorUploadCopiesDirectoryTree(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0755); err != nil {
		t.Fatalf("setup MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "a.txt"), []byte("A"), 0644); err != nil {
		t.Fatalf("setup WriteFile: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "copied")
	exec := newLocalExecutor("localhost", Elevation{})
	if err := exec.Upload(src, dst); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dst, "sub", "a.txt"))
	if err != nil {
		t.Fatalf("reading copied file: %v", err)
	}
	if string(got) != "A" {
		t.Fatalf("copied file contents = %q, want %q", got, "A")
	}
}

func TestLocalExecutorRequiresMissingCommand(t *testing.T) {
	exec := newLocalExecutor("localhost", Elevation{})
	if err := exec.Requires([]string{"definitely-not-a-real-command-xyz"}); err == nil {
		t.Fatal("Requires with a nonexistent command: expected error, got nil")
	}
	if err := exec.Requires([]string{"sh"}); err != nil {
		t.Fatalf("Requires([\"sh\"]) returned error: %v", err)
	}
}

func TestLocalExecutorElevatedCmdSucceedsOrReportsStderr(t *testing.T) {
	exec := newLocalExecutor("localhost", Elevation{Method: "sudo"})
	// sudo is unlikely to be configured for non-interactive use in a test
	// sandbox; assert only that the elevated command either succeeds or
	// fails with a non-zero exit that reports stderr.
	_, stderr, code, err := exec.Cmd("true")
	if err != nil {
		t.Fatalf("Cmd returned error: %v", err)
	}
	if code == 0 {
		return
	}
	if stderr == "" {
		t.Fatal("expected a non-zero exit from an unusable sudo invocation to report stderr")
	}
}
