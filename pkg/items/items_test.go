package items

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/item"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/theme"
)

func testEnv(trigger item.Trigger) item.Env {
	return item.Env{Trigger: trigger, Name: "test", Theme: theme.Get("nord")}
}

func stub[T any](t *testing.T, target *T, v T) {
	t.Helper()
	old := *target
	*target = v
	t.Cleanup(func() { *target = old })
}

func refresh(t *testing.T, it item.Item, trigger item.Trigger) *i3.Block {
	t.Helper()
	b, err := it.Refresh(context.Background(), testEnv(trigger))
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return b
}

func clickItem(t *testing.T, it item.Item, ev i3.ClickEvent) *i3.Block {
	t.Helper()
	b, err := it.Click(context.Background(), testEnv(item.TriggerClick), ev)
	if err != nil {
		t.Fatalf("Click: %v", err)
	}
	return b
}

// --- Build ---

func TestBuildSpecs(t *testing.T) {
	cfg, err := config.Parse([]byte(`
[[items]]
type = "time"

[[items]]
type = "script"
command = "echo hi"
signal = [1, 2]

[[items]]
type = "cpu"
interval = "10s"
precision = 1

[[items]]
type = "raw"
name = "greeting"
index = 0
hidden = true
full_text = "hello"
`), "toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	specs, err := Build(cfg.Items, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(specs) != 4 {
		t.Fatalf("got %d specs, want 4", len(specs))
	}

	type summary struct {
		Name, Kind string
		Interval   time.Duration
		Signals    []int
		Hidden     bool
		Indexed    bool
	}
	var got []summary
	for _, s := range specs {
		got = append(got, summary{
			Name: s.Name, Kind: s.Kind, Interval: s.Interval,
			Signals: s.Signals, Hidden: s.Hidden, Indexed: s.Index != nil,
		})
	}
	want := []summary{
		{Name: "time", Kind: "time", Interval: time.Second},
		{Name: "script", Kind: "script", Signals: []int{1, 2}},
		{Name: "cpu", Kind: "cpu", Interval: 10 * time.Second},
		{Name: "greeting", Kind: "raw", Hidden: true, Indexed: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("specs mismatch (-want +got):\n%s", diff)
	}

	if b := refresh(t, specs[3].Item, item.TriggerInitial); b.FullText != "hello" {
		t.Errorf("raw text = %q, want %q", b.FullText, "hello")
	}
}

func TestBuildReportsEveryError(t *testing.T) {
	cfgs := []config.ItemConfig{
		{Type: "nope"},
		{Type: "script"},
		{Type: "cpu", Options: map[string]json.RawMessage{"colour": json.RawMessage(`"red"`)}},
		{Type: "time"},
	}
	_, err := Build(cfgs, nil)
	if err == nil {
		t.Fatal("Build succeeded, want error")
	}
	for _, want := range []string{"items[0]", "unknown type", "items[1]", "command is required", "items[2]", "colour"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
	if strings.Contains(err.Error(), "items[3]") {
		t.Errorf("error %q mentions the valid item", err)
	}
}

func TestDefaultInterval(t *testing.T) {
	tests := []struct {
		kind string
		want time.Duration
		ok   bool
	}{
		{"time", time.Second, true},
		{"cpu", 2 * time.Second, true},
		{"mem", 5 * time.Second, true},
		{"disk", time.Minute, true},
		{"load", 5 * time.Second, true},
		{"script", 0, true},
		{"raw", 0, true},
		{"nope", 0, false},
	}
	for _, tt := range tests {
		got, ok := DefaultInterval(tt.kind)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DefaultInterval(%q) = %v, %v; want %v, %v", tt.kind, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBuildPresets(t *testing.T) {
	for _, name := range config.PresetNames() {
		if _, err := Build(config.Preset(name), nil); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

// --- Raw ---

func TestRawCustom(t *testing.T) {
	r := NewRaw(&i3.Block{FullText: "a", Color: "#ff0000"})
	ctx := context.Background()

	reply, err := r.Custom(ctx, testEnv(item.TriggerCustom), []string{"set", "hello", "world"})
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if reply.Block == nil || reply.Block.FullText != "hello world" {
		t.Fatalf("reply block = %+v, want text %q", reply.Block, "hello world")
	}
	if reply.Block.Color != "#ff0000" {
		t.Errorf("color = %q, want it kept", reply.Block.Color)
	}

	reply, err = r.Custom(ctx, testEnv(item.TriggerCustom), []string{"get"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b, ok := reply.Payload.(*i3.Block); !ok || b.FullText != "hello world" {
		t.Errorf("get payload = %#v", reply.Payload)
	}
	if reply.Block != nil {
		t.Error("get should not replace the block")
	}

	if b := refresh(t, r, item.TriggerTimer); b.FullText != "hello world" {
		t.Errorf("refresh text = %q", b.FullText)
	}
}

func TestRawCustomUsage(t *testing.T) {
	r := NewRaw(nil)
	for _, args := range [][]string{nil, {"set"}, {"bogus"}} {
		_, err := r.Custom(context.Background(), testEnv(item.TriggerCustom), args)
		var usage *item.UsageError
		if !errors.As(err, &usage) {
			t.Errorf("Custom(%q) error = %v, want *item.UsageError", args, err)
		}
	}
}

func TestRawClickIsUnsupported(t *testing.T) {
	_, err := NewRaw(nil).Click(context.Background(), testEnv(item.TriggerClick), i3.ClickEvent{Button: i3.ButtonLeft})
	if !errors.Is(err, item.ErrUnsupported) {
		t.Errorf("Click error = %v, want ErrUnsupported", err)
	}
}

// --- Clock ---

func TestClockToggle(t *testing.T) {
	c := NewClock("", "")
	c.now = func() time.Time { return time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC) }

	b := refresh(t, c, item.TriggerTimer)
	if b.FullText != "2024-03-09 07:05:01" || b.ShortText != "07:05" {
		t.Errorf("got %q / %q", b.FullText, b.ShortText)
	}

	b = clickItem(t, c, i3.ClickEvent{Button: i3.ButtonLeft})
	if b.FullText != "07:05" {
		t.Errorf("after click full_text = %q, want short layout", b.FullText)
	}
	b = clickItem(t, c, i3.ClickEvent{Button: i3.ButtonLeft})
	if b.FullText != "2024-03-09 07:05:01" {
		t.Errorf("after second click full_text = %q, want long layout", b.FullText)
	}

	if _, err := c.Click(context.Background(), testEnv(item.TriggerClick), i3.ClickEvent{Button: i3.ButtonRight}); !errors.Is(err, item.ErrUnsupported) {
		t.Errorf("right click error = %v, want ErrUnsupported", err)
	}
}

// --- Script ---

func newTestScript(t *testing.T, command, output string) *Script {
	t.Helper()
	s, err := NewScript(command, output, "", nil)
	if err != nil {
		t.Fatalf("NewScript: %v", err)
	}
	return s
}

func TestScriptSimpleStripsEscapes(t *testing.T) {
	s := newTestScript(t, `printf '\033[1mhi\033[0m\n\n'`, OutputSimple)
	if b := refresh(t, s, item.TriggerInitial); b.FullText != "hi" {
		t.Errorf("full_text = %q, want %q", b.FullText, "hi")
	}
}

func TestScriptEnvironment(t *testing.T) {
	s := newTestScript(t, `echo "${I3_SIGNAL:-no} ${I3_BUTTON:-none}"`, "")

	steps := []struct {
		name string
		run  func() *i3.Block
		want string
	}{
		{"initial", func() *i3.Block { return refresh(t, s, item.TriggerInitial) }, "no none"},
		{"signal", func() *i3.Block { return refresh(t, s, item.TriggerSignal) }, "true none"},
		{"timer keeps signal", func() *i3.Block { return refresh(t, s, item.TriggerTimer) }, "true none"},
		{"click", func() *i3.Block { return clickItem(t, s, i3.ClickEvent{Button: i3.ButtonRight}) }, "no 3"},
		{"timer keeps click", func() *i3.Block { return refresh(t, s, item.TriggerTimer) }, "no 3"},
		{"refresh request", func() *i3.Block { return refresh(t, s, item.TriggerRefresh) }, "true 3"},
	}
	for _, step := range steps {
		if got := step.run().FullText; got != step.want {
			t.Errorf("%s: got %q, want %q", step.name, got, step.want)
		}
	}
}

func TestScriptJSON(t *testing.T) {
	s := newTestScript(t, `echo '{"full_text":"x","color":"#ff0000","_count":1}'`, OutputJSON)
	b := refresh(t, s, item.TriggerInitial)
	want := &i3.Block{FullText: "x", Color: "#ff0000", Extra: map[string]any{"count": float64(1)}}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Errorf("block mismatch (-want +got):\n%s", diff)
	}
}

func TestScriptJSONInvalid(t *testing.T) {
	s := newTestScript(t, `echo not json`, OutputJSON)
	b := refresh(t, s, item.TriggerInitial)
	if b.FullText != "ERROR" {
		t.Errorf("full_text = %q, want ERROR", b.FullText)
	}
	if b.Background != theme.Get("nord").Red {
		t.Errorf("background = %q, want theme red", b.Background)
	}
}

func TestScriptMarkup(t *testing.T) {
	s, err := NewScript(`echo '<b>x</b>'`, OutputSimple, i3.MarkupPango, nil)
	if err != nil {
		t.Fatal(err)
	}
	if b := refresh(t, s, item.TriggerInitial); b.Markup != i3.MarkupPango {
		t.Errorf("markup = %q, want pango", b.Markup)
	}
}

func TestScriptExitStatus(t *testing.T) {
	s := newTestScript(t, `echo partial; exit 1`, "")
	if b := refresh(t, s, item.TriggerInitial); b.FullText != "partial" {
		t.Errorf("full_text = %q, want output kept on failure", b.FullText)
	}

	s = newTestScript(t, `echo broken >&2; exit 2`, "")
	if _, err := s.Refresh(context.Background(), testEnv(item.TriggerInitial)); err == nil {
		t.Error("Refresh succeeded, want error for a failing silent script")
	}
}

func TestNewScriptValidation(t *testing.T) {
	if _, err := NewScript("  ", "", "", nil); err == nil {
		t.Error("empty command accepted")
	}
	if _, err := NewScript("true", "xml", "", nil); err == nil {
		t.Error("unknown output format accepted")
	}
}

// --- System metrics ---

func TestCPU(t *testing.T) {
	stub(t, &cpuPercent, func(context.Context, time.Duration, bool) ([]float64, error) {
		return []float64{85.04}, nil
	})
	it, err := newCPU(config.ItemConfig{Type: "cpu", Options: map[string]json.RawMessage{
		"precision": json.RawMessage("1"),
	}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	b := refresh(t, it, item.TriggerTimer)
	if b.FullText != "CPU 85.0%" {
		t.Errorf("full_text = %q", b.FullText)
	}
	if b.Color != theme.Get("nord").Red {
		t.Errorf("color = %q, want red", b.Color)
	}
}

func TestCPUError(t *testing.T) {
	stub(t, &cpuPercent, func(context.Context, time.Duration, bool) ([]float64, error) {
		return nil, nil
	})
	it, _ := newCPU(config.ItemConfig{Type: "cpu"}, nil)
	if _, err := it.Refresh(context.Background(), testEnv(item.TriggerTimer)); err == nil {
		t.Error("Refresh succeeded with no samples")
	}
}

func TestMemToggle(t *testing.T) {
	stub(t, &virtualMemory, func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 8 << 30, Available: 2 << 30}, nil
	})
	it, err := newMem(config.ItemConfig{Type: "mem"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	th := theme.Get("nord")

	b := refresh(t, it, item.TriggerTimer)
	if b.FullText != "MEM 75%" || b.Color != th.Orange {
		t.Errorf("got %q %q, want %q %q", b.FullText, b.Color, "MEM 75%", th.Orange)
	}

	b = clickItem(t, it, i3.ClickEvent{Button: i3.ButtonLeft})
	if b.FullText != "MEM 2.0 GB" {
		t.Errorf("after click full_text = %q", b.FullText)
	}

	if _, err := it.Click(context.Background(), testEnv(item.TriggerClick), i3.ClickEvent{Button: i3.ButtonMiddle}); !errors.Is(err, item.ErrUnsupported) {
		t.Errorf("middle click error = %v, want ErrUnsupported", err)
	}
}

func TestDiskPaging(t *testing.T) {
	usage := map[string]*disk.UsageStat{
		"/":     {Path: "/", Total: 100 << 30, Free: 5 << 30},
		"/home": {Path: "/home", Total: 100 << 30, Free: 50 << 30},
	}
	stub(t, &diskUsage, func(_ context.Context, path string) (*disk.UsageStat, error) {
		u, ok := usage[path]
		if !ok {
			return nil, errors.New("no such mount")
		}
		return u, nil
	})
	it, err := newDisk(config.ItemConfig{Type: "disk", Options: map[string]json.RawMessage{
		"paths": json.RawMessage(`["/", "/home"]`),
		"label": json.RawMessage(`""`),
	}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	th := theme.Get("nord")

	b := refresh(t, it, item.TriggerTimer)
	if b.FullText != "/ 5.0 GB [1/2]" || b.ShortText != "/" || b.Color != th.Red {
		t.Errorf("page 1 = %q %q %q", b.FullText, b.ShortText, b.Color)
	}

	b = clickItem(t, it, i3.ClickEvent{Button: i3.ButtonScrollDown})
	if b.FullText != "/home 50.0 GB [2/2]" || b.Color != "" {
		t.Errorf("page 2 = %q %q", b.FullText, b.Color)
	}

	b = clickItem(t, it, i3.ClickEvent{Button: i3.ButtonScrollDown})
	if b.ShortText != "/" {
		t.Errorf("paging did not wrap, short_text = %q", b.ShortText)
	}

	b = clickItem(t, it, i3.ClickEvent{Button: i3.ButtonScrollUp})
	if b.ShortText != "/home" {
		t.Errorf("scroll up short_text = %q, want /home", b.ShortText)
	}
}

func TestDiskSinglePath(t *testing.T) {
	var asked string
	stub(t, &diskUsage, func(_ context.Context, path string) (*disk.UsageStat, error) {
		asked = path
		return &disk.UsageStat{Path: path, Total: 10, Free: 10}, nil
	})
	it, err := newDisk(config.ItemConfig{Type: "disk"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	b := refresh(t, it, item.TriggerTimer)
	if asked != "/" || b.FullText != "DISK / 10 B" {
		t.Errorf("asked %q, full_text %q", asked, b.FullText)
	}
	if _, err := it.Click(context.Background(), testEnv(item.TriggerClick), i3.ClickEvent{Button: i3.ButtonLeft}); !errors.Is(err, item.ErrUnsupported) {
		t.Errorf("click error = %v, want ErrUnsupported", err)
	}
}

func TestLoad(t *testing.T) {
	stub(t, &loadAvg, func(context.Context) (*load.AvgStat, error) {
		return &load.AvgStat{Load1: 2, Load5: 1, Load15: 0.5}, nil
	})
	stub(t, &numCPU, func() int { return 4 })
	it, err := newLoad(config.ItemConfig{Type: "load"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	b := refresh(t, it, item.TriggerTimer)
	if b.FullText != "LOAD 2.00 1.00 0.50" {
		t.Errorf("full_text = %q", b.FullText)
	}
	if b.Color != theme.Get("nord").Yellow {
		t.Errorf("color = %q, want yellow", b.Color)
	}
}

// --- Helpers ---

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.5 KB"},
		{5 << 20, "5.0 MB"},
		{3 << 30, "3.0 GB"},
		{2 << 40, "2.0 TB"},
	}
	for _, tt := range tests {
		if got := itFormatBytes(tt.in); got != tt.want {
			t.Errorf("itFormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLevelColor(t *testing.T) {
	th := theme.Get("nord")
	tests := []struct {
		pct  float64
		want string
	}{
		{10, ""},
		{40, th.Yellow},
		{65, th.Orange},
		{80, th.Red},
		{100, th.Red},
	}
	for _, tt := range tests {
		if got := itLevelColor(th, tt.pct); got != tt.want {
			t.Errorf("itLevelColor(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}
