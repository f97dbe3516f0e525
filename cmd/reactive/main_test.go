package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// executeCommand runs the root command with args and returns its output.
func executeCommand(args ...string) (string, error) {
	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))

	err := root.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "reactive dev") {
		t.Errorf("output = %q, want prefix %q", out, "reactive dev")
	}
}

func TestSetAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	if _, err := executeCommand("set", path, "editor.tabSize", "4"); err != nil {
		t.Fatalf("set tabSize: %v", err)
	}
	if _, err := executeCommand("set", path, "editor.theme", "dark"); err != nil {
		t.Fatalf("set theme: %v", err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"number", []string{"get", path, "editor.tabSize"}, "4\n"},
		{"string", []string{"get", path, "editor.theme"}, "\"dark\"\n"},
		{"raw string", []string{"get", "--raw", path, "editor.theme"}, "dark\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(tt.args...)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}

	out, err := executeCommand("get", path)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if !strings.Contains(out, `"tabSize": 4`) {
		t.Errorf("document output = %q, want pretty-printed tabSize", out)
	}
}

func TestSetKeepsFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	writeFile(t, path, "[editor]\ntheme = \"light\"\n")

	if _, err := executeCommand("set", path, "editor.tabSize", "8"); err != nil {
		t.Fatalf("set: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"[editor]", "tabSize = 8", "theme = 'light'"} {
		if !strings.Contains(string(data), want) && !strings.Contains(string(data), strings.ReplaceAll(want, "'", `"`)) {
			t.Errorf("file = %q, want it to contain %q", data, want)
		}
	}
}

func TestUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	writeFile(t, path, `{"a":1,"b":2}`)

	if _, err := executeCommand("unset", path, "a"); err != nil {
		t.Fatalf("unset: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("saved file is not JSON: %v", err)
	}
	if _, ok := m["a"]; ok {
		t.Errorf("a still present in %s", data)
	}
	if m["b"] != float64(2) {
		t.Errorf("b = %v, want 2", m["b"])
	}
}

func TestGetErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	writeFile(t, path, `{"a":1}`)

	tests := []struct {
		name string
		args []string
	}{
		{"missing path", []string{"get", path, "b"}},
		{"missing file", []string{"get", filepath.Join(dir, "nope.json")}},
		{"unsupported format", []string{"get", filepath.Join(dir, "settings.ini")}},
		{"no args", []string{"get"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := executeCommand(tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "hello.lua")
	writeFile(t, scriptPath, `
local p = reactive.property(1)
p:bind(function(v) print("now", v) end)
p:set(2)
`)

	out, err := executeCommand("run", scriptPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "now\t2\n" {
		t.Errorf("output = %q, want %q", out, "now\t2\n")
	}
}

func TestRunCommand_Settings(t *testing.T) {
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.json")
	writeFile(t, settingsPath, `{"count":1}`)
	scriptPath := filepath.Join(dir, "bump.lua")
	writeFile(t, scriptPath, `settings.set("count", settings.get("count") + 1)`)

	if _, err := executeCommand("run", "--settings", settingsPath, scriptPath); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, err := executeCommand("get", settingsPath, "count")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != "2\n" {
		t.Errorf("count = %q, want %q", out, "2\n")
	}
}

func TestRunCommand_ScriptError(t *testing.T) {
	scriptPath := filepath.Join(t.TempDir(), "bad.lua")
	writeFile(t, scriptPath, `error("boom")`)

	_, err := executeCommand("run", scriptPath)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %v, want error mentioning boom", err)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		wantErr bool
	}{
		{"debug", "text", false},
		{"warn", "json", false},
		{"ERROR", "", false},
		{"verbose", "text", true},
		{"info", "xml", true},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			_, err := newLogger(io.Discard, tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("newLogger(%q, %q) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in      string
		wantRaw bool
	}{
		{"4", true},
		{"true", true},
		{`"quoted"`, true},
		{`{"a":1}`, true},
		{"dark", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, isRaw := parseValue(tt.in).(json.RawMessage)
			if isRaw != tt.wantRaw {
				t.Errorf("parseValue(%q) raw = %v, want %v", tt.in, isRaw, tt.wantRaw)
			}
		})
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForOutput(t *testing.T, buf *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(buf.String(), want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q, output so far: %q", want, buf.String())
}

func TestWatchCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	writeFile(t, path, `{"a":1}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	root := newRootCmd()
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--log-level", "error", "watch", "--debounce", "10ms", path})

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	waitForOutput(t, out, `{"a":1}`)

	// The watch is registered after the initial print; retry the write until
	// the change is observed.
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), `{"a":2}`) {
		if time.Now().After(deadline) {
			t.Fatalf("change not observed, output: %q", out.String())
		}
		writeFile(t, path, `{"a":2}`)
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
