//go:build e2e

package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var meshviewBin string

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "meshview-e2e-*")
	if err != nil {
		panic("failed to create temp dir: " + err.Error())
	}
	defer os.RemoveAll(tmp)

	meshviewBin = filepath.Join(tmp, "meshview")
	build := exec.Command("go", "build", "-ldflags", "-X github.com/msalah0e/meshview/cmd.version=0.3.0-test", "-o", meshviewBin, ".")
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		panic("failed to build meshview: " + err.Error())
	}

	os.Exit(m.Run())
}

// runMeshview executes the binary with an isolated HOME directory.
func runMeshview(t *testing.T, home string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	cmd := exec.Command(meshviewBin, args...)
	if home == "" {
		home = t.TempDir()
	}
	cmd.Dir = home
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, ".config"),
		"NO_COLOR=1",
	)

	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	exitCode = 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("failed to run meshview %v: %v", args, err)
		}
	}
	return outBuf.String(), errBuf.String(), exitCode
}

// --- Core CLI ---

func TestE2E_Version(t *testing.T) {
	out, _, code := runMeshview(t, "", "--version")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "0.3.0-test") {
		t.Errorf("expected version output to contain '0.3.0-test', got %q", out)
	}
}

func TestE2E_Help(t *testing.T) {
	out, _, code := runMeshview(t, "", "--help")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, sub := range []string{"watch", "snapshot", "config", "events"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q, got %q", sub, out)
		}
	}
}

// --- Config ---

func TestE2E_ConfigInitAndShow(t *testing.T) {
	home := t.TempDir()

	out, _, code := runMeshview(t, home, "config", "init")
	if code != 0 {
		t.Fatalf("config init: expected exit 0, got %d", code)
	}
	path := filepath.Join(home, ".config", "meshview", "config.toml")
	if !strings.Contains(out, path) {
		t.Errorf("expected init to print %s, got %q", path, out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	out, _, code = runMeshview(t, home, "config", "show")
	if code != 0 {
		t.Fatalf("config show: expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "[physics]") || !strings.Contains(out, "rest_distance") {
		t.Errorf("expected TOML output, got %q", out)
	}
}

func TestE2E_InvalidConfigRejected(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, ".config", "meshview")
	os.MkdirAll(dir, 0o755)
	os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[physics]\nmax_force = -1\n"), 0o644)

	out, _, code := runMeshview(t, home, "snapshot", "--frames", "1")
	if code == 0 {
		t.Fatal("expected non-zero exit for invalid config")
	}
	if !strings.Contains(out, "max_force") {
		t.Errorf("expected error to name the bad setting, got %q", out)
	}
}

// --- Rendering ---

func TestE2E_Snapshot(t *testing.T) {
	home := t.TempDir()
	_, _, code := runMeshview(t, home, "snapshot", "--frames", "20", "--every", "10",
		"--width", "200", "--height", "150", "--nodes", "4", "--out", "shots")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, name := range []string{"frame-00010.png", "frame-00020.png"} {
		if _, err := os.Stat(filepath.Join(home, "shots", name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	out, _, code := runMeshview(t, home, "events", "search", "snapshot")
	if code != 0 {
		t.Fatalf("events search: expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "snapshot") {
		t.Errorf("expected a snapshot event, got %q", out)
	}
}

func TestE2E_WatchNeedsTerminal(t *testing.T) {
	out, _, code := runMeshview(t, "", "watch")
	if code == 0 {
		t.Fatal("watch without a terminal should fail")
	}
	if !strings.Contains(out, "not a terminal") {
		t.Errorf("expected terminal error, got %q", out)
	}
}

// --- Events ---

func TestE2E_EventsEmpty(t *testing.T) {
	out, _, code := runMeshview(t, "", "events")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "No events") {
		t.Errorf("expected empty-log message, got %q", out)
	}
}

func TestE2E_EventsClear(t *testing.T) {
	_, _, code := runMeshview(t, "", "events", "clear")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
}
