package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/daemon"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/ipc"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/registry"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/theme"
)

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

// socketDir returns a short directory for unix sockets, whose paths are
// limited to about 100 bytes.
func socketDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "bp")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"BAR_PULSE_SOCKET", "BAR_PULSE_THEME", "BAR_PULSE_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// --- Logging ---

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bar.log")
	var stderr bytes.Buffer
	logger, closeLog, err := newLogger(&stderr, path, "debug")
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Debug("hello", "k", "v")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for name, got := range map[string]string{"stderr": stderr.String(), "file": string(data)} {
		if !strings.Contains(got, "msg=hello") || !strings.Contains(got, "k=v") {
			t.Errorf("%s = %q, want the record", name, got)
		}
	}
}

// --- Output helpers ---

func TestJSONValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`true`, `true`},
		{`{"bg":"#000000"}`, `{"bg":"#000000"}`},
		{`#ff0000`, `"#ff0000"`},
		{`hello world`, `"hello world"`},
	}
	for _, tt := range tests {
		if got := string(jsonValue(tt.in)); got != tt.want {
			t.Errorf("jsonValue(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestPrintPayload(t *testing.T) {
	payload := json.RawMessage(`{"a": [1, 2]}`)

	var buf bytes.Buffer
	if err := printPayload(&buf, payload, false); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "{\"a\":[1,2]}\n"; got != want {
		t.Errorf("compact = %q, want %q", got, want)
	}

	buf.Reset()
	if err := printPayload(&buf, payload, true); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "{\n  \"a\": [\n    1,\n    2\n  ]\n}\n"; got != want {
		t.Errorf("pretty = %q, want %q", got, want)
	}

	buf.Reset()
	if err := printPayload(&buf, nil, true); err != nil || buf.Len() != 0 {
		t.Errorf("empty payload printed %q, err %v", buf.String(), err)
	}
}

func TestRenderItemTable(t *testing.T) {
	out := renderItemTable([]registry.Info{
		{Name: "cpu", Kind: "cpu", Index: 0},
		{Name: "scratch", Kind: "raw", Index: 1, Hidden: true},
	}, theme.Default())

	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	for i, want := range [][]string{
		{"INDEX", "NAME", "TYPE", "HIDDEN"},
		{"0", "cpu", "no"},
		{"1", "scratch", "raw", "yes"},
	} {
		for _, w := range want {
			if !strings.Contains(lines[i], w) {
				t.Errorf("line %d = %q, want it to contain %q", i, lines[i], w)
			}
		}
	}
}

// --- Commands ---

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "bar-pulse "+version) {
		t.Errorf("version output = %q", out)
	}
}

func TestConfigExample(t *testing.T) {
	out, err := execute(t, "config", "example", "minimal")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"[[items]]", `type = "time"`, `theme = "nord"`} {
		if !strings.Contains(out, want) {
			t.Errorf("example missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCheck(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	err := os.WriteFile(path, []byte(`
[[items]]
type = "raw"
full_text = "a"

[[items]]
type = "time"
signal = 3
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "config", "check", path)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "2 items OK") {
		t.Errorf("check output = %q", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[[items]]\ntype = \"nope\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "config", "check", bad); err == nil {
		t.Error("check accepted an unknown item type")
	}
}

func TestSignalsCommand(t *testing.T) {
	out, err := execute(t, "signals")
	if err != nil {
		t.Skipf("realtime signals unavailable: %v", err)
	}
	var rng struct {
		Min, Max, SigRTMin, SigRTMax int
	}
	if err := json.Unmarshal([]byte(out), &rng); err != nil {
		t.Fatalf("output %q: %v", out, err)
	}
	if rng.Min != 0 || rng.Max != rng.SigRTMax-rng.SigRTMin {
		t.Errorf("range = %+v", rng)
	}
}

// --- ipc client ---

func startFakeBar(t *testing.T, respond func(ipc.Request) ipc.Response) (string, func() []ipc.Request) {
	t.Helper()
	path := filepath.Join(socketDir(t), "bar.sock")

	var mu sync.Mutex
	var got []ipc.Request
	srv := ipc.NewServer(path, ipc.HandlerFunc(func(_ context.Context, req ipc.Request) ipc.Response {
		mu.Lock()
		got = append(got, req)
		mu.Unlock()
		return respond(req)
	}), nil)
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(srv.Stop)

	return path, func() []ipc.Request {
		mu.Lock()
		defer mu.Unlock()
		return append([]ipc.Request(nil), got...)
	}
}

func TestIPCCommandsBuildRequests(t *testing.T) {
	sock, requests := startFakeBar(t, func(ipc.Request) ipc.Response { return ipc.OK(nil) })

	runs := [][]string{
		{"refresh"},
		{"click", "mem", "right", "-m", "Shift", "-m", "Control"},
		{"click", "time"},
		{"signal", "2"},
		{"custom", "greeting", "set", "hello", "world"},
		{"custom", "greeting"},
		{"set-theme", "red", "#ff0000"},
		{"set-theme", `{"powerline_enable":true}`},
		{"shutdown"},
	}
	for _, args := range runs {
		if _, err := execute(t, append([]string{"ipc", "--socket", sock}, args...)...); err != nil {
			t.Fatalf("ipc %v: %v", args, err)
		}
	}

	want := []ipc.Request{
		{Command: ipc.CmdRefreshAll},
		{Command: ipc.CmdClick, Instance: "mem", Button: i3.ButtonRight, Modifiers: []i3.Modifier{i3.ModShift, "Control"}},
		{Command: ipc.CmdClick, Instance: "time", Button: i3.ButtonLeft},
		{Command: ipc.CmdSignal, Target: "2"},
		{Command: ipc.CmdCustom, Target: "greeting", Event: "set", Args: []string{"hello", "world"}},
		{Command: ipc.CmdCustom, Target: "greeting"},
		{Command: ipc.CmdSetTheme, Path: "red", Value: json.RawMessage(`"#ff0000"`)},
		{Command: ipc.CmdSetTheme, Value: json.RawMessage(`{"powerline_enable":true}`)},
		{Command: ipc.CmdShutdown},
	}
	if diff := cmp.Diff(want, requests()); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestIPCPrintsPayload(t *testing.T) {
	sock, _ := startFakeBar(t, func(req ipc.Request) ipc.Response {
		switch req.Command {
		case ipc.CmdGetBar:
			return ipc.OK([]map[string]string{{"full_text": "x"}})
		case ipc.CmdGetBarItems:
			return ipc.OK([]registry.Info{{Name: "cpu", Kind: "cpu"}})
		default:
			return ipc.Fail(ipc.KindNotFound, "no item %q", req.Target)
		}
	})

	out, err := execute(t, "ipc", "--socket", sock, "get-bar")
	if err != nil {
		t.Fatal(err)
	}
	if out != "[{\"full_text\":\"x\"}]\n" {
		t.Errorf("get-bar output = %q", out)
	}

	// Not a terminal, so info prints JSON as well.
	out, err = execute(t, "ipc", "--socket", sock, "info")
	if err != nil {
		t.Fatal(err)
	}
	var infos []registry.Info
	if err := json.Unmarshal([]byte(out), &infos); err != nil || len(infos) != 1 || infos[0].Name != "cpu" {
		t.Errorf("info output = %q (%v)", out, err)
	}

	_, err = execute(t, "ipc", "--socket", sock, "signal", "ghost")
	if err == nil || !strings.Contains(err.Error(), "not_found") {
		t.Errorf("signal ghost error = %v, want not_found", err)
	}
}

func TestIPCNoBar(t *testing.T) {
	sock := filepath.Join(socketDir(t), "missing.sock")
	if _, err := execute(t, "ipc", "--socket", sock, "status"); err == nil {
		t.Error("status succeeded without a running bar")
	}
}

// --- Running the bar ---

func TestRunBar(t *testing.T) {
	clearEnv(t)
	dir := socketDir(t)
	sock := filepath.Join(dir, "bar.sock")
	cfgPath := filepath.Join(dir, "config.toml")
	err := os.WriteFile(cfgPath, []byte(`
theme = "gruvbox"

[[items]]
type = "raw"
name = "greeting"
full_text = "hello"
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	stdin, stdinW := io.Pipe()
	defer stdinW.Close()
	var stdout syncBuffer

	errc := make(chan error, 1)
	go func() {
		errc <- runBar(context.Background(), &rootOptions{configPath: cfgPath, socket: sock}, &stdout, stdin, io.Discard)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(stdout.String(), `"full_text":"hello"`) {
		if time.Now().After(deadline) {
			t.Fatalf("bar never printed the item; output:\n%s", stdout.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !strings.HasPrefix(stdout.String(), `{"version":1,"click_events":true}`+"\n[\n") {
		t.Errorf("output does not start with the preamble:\n%s", stdout.String())
	}

	pidPath := daemon.PIDPath(sock)
	if pid, err := daemon.ReadPID(pidPath); err != nil || pid != os.Getpid() {
		t.Errorf("PID file = %d, %v; want %d", pid, err, os.Getpid())
	}

	client := ipc.NewClient(sock)
	if err := client.Call(ipc.Request{Command: ipc.CmdCustom, Target: "greeting", Event: "set", Args: []string{"hi"}}, nil); err != nil {
		t.Fatalf("custom set: %v", err)
	}
	var th theme.Theme
	if err := client.Call(ipc.Request{Command: ipc.CmdGetTheme}, &th); err != nil || th.Name != "gruvbox" {
		t.Errorf("get_theme = %q, %v; want gruvbox", th.Name, err)
	}

	if err := client.Call(ipc.Request{Command: ipc.CmdShutdown}, nil); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("runBar: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runBar did not return after shutdown")
	}

	if !strings.Contains(stdout.String(), `"full_text":"hi"`) {
		t.Errorf("custom set did not reach the bar:\n%s", stdout.String())
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Errorf("PID file left behind: %v", err)
	}
	if _, err := os.Stat(sock); !os.IsNotExist(err) {
		t.Errorf("socket left behind: %v", err)
	}
}

func TestRunBarBadConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("overlap = \"sometimes\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := runBar(context.Background(), &rootOptions{configPath: path}, io.Discard, strings.NewReader(""), io.Discard)
	if err == nil || !strings.Contains(err.Error(), "overlap") {
		t.Errorf("runBar error = %v, want overlap error", err)
	}
}
