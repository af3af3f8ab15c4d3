package items

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/item"
)

// Metric sources, replaced in tests.
var (
	cpuPercent    = cpu.PercentWithContext
	virtualMemory = mem.VirtualMemoryWithContext
	diskUsage     = disk.UsageWithContext
	loadAvg       = load.AvgWithContext
	numCPU        = runtime.NumCPU
)

type usageOptions struct {
	Label     string `json:"label"`
	Precision int    `json:"precision"`
}

// --- CPU ---

// CPU shows total CPU usage since the previous refresh.
type CPU struct {
	item.Base
	opts usageOptions
}

func newCPU(ic config.ItemConfig, _ *slog.Logger) (item.Item, error) {
	opts := usageOptions{Label: "CPU "}
	if err := ic.DecodeOptions(&opts); err != nil {
		return nil, err
	}
	return &CPU{opts: opts}, nil
}

// Refresh samples CPU usage.
func (c *CPU) Refresh(ctx context.Context, env item.Env) (*i3.Block, error) {
	pcts, err := cpuPercent(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("cpu percent: %w", err)
	}
	if len(pcts) == 0 {
		return nil, errors.New("cpu percent: no data")
	}
	pct := pcts[0]
	b := i3.NewBlock(c.opts.Label + itPercent(pct, c.opts.Precision))
	b.Color = itLevelColor(env.Theme, pct)
	return b, nil
}

// --- Memory ---

// Mem shows used memory as a percentage, or the available bytes. A left
// click switches between the two.
type Mem struct {
	item.Base
	opts      usageOptions
	showBytes bool
}

func newMem(ic config.ItemConfig, _ *slog.Logger) (item.Item, error) {
	opts := usageOptions{Label: "MEM "}
	if err := ic.DecodeOptions(&opts); err != nil {
		return nil, err
	}
	return &Mem{opts: opts}, nil
}

// Refresh samples memory usage.
func (m *Mem) Refresh(ctx context.Context, env item.Env) (*i3.Block, error) {
	vm, err := virtualMemory(ctx)
	if err != nil {
		return nil, fmt.Errorf("virtual memory: %w", err)
	}
	if vm.Total == 0 {
		return nil, errors.New("virtual memory: total is zero")
	}
	used := float64(vm.Total-vm.Available) / float64(vm.Total) * 100

	text := itPercent(used, m.opts.Precision)
	if m.showBytes {
		text = itFormatBytes(vm.Available)
	}
	b := i3.NewBlock(m.opts.Label + text)
	b.Color = itLevelColor(env.Theme, used)
	return b, nil
}

// Click toggles the display on a left click.
func (m *Mem) Click(ctx context.Context, env item.Env, ev i3.ClickEvent) (*i3.Block, error) {
	if ev.Button != i3.ButtonLeft {
		return nil, item.ErrUnsupported
	}
	m.showBytes = !m.showBytes
	return m.Refresh(ctx, env)
}

// --- Disk ---

// Free space thresholds (percentage 0-100).
const (
	itDiskWarnFree = 30.0
	itDiskHighFree = 20.0
	itDiskCritFree = 10.0
)

type diskOptions struct {
	Label string   `json:"label"`
	Path  string   `json:"path"`
	Paths []string `json:"paths"`
}

// Disk shows the free space of one or more mount points. Clicks and
// scrolling page through the mount points.
type Disk struct {
	item.Base
	label string
	paths []string
	page  int
}

func newDisk(ic config.ItemConfig, _ *slog.Logger) (item.Item, error) {
	opts := diskOptions{Label: "DISK "}
	if err := ic.DecodeOptions(&opts); err != nil {
		return nil, err
	}
	paths := opts.Paths
	if opts.Path != "" {
		paths = append([]string{opts.Path}, paths...)
	}
	if len(paths) == 0 {
		paths = []string{"/"}
	}
	return &Disk{label: opts.Label, paths: paths}, nil
}

// Refresh reads the usage of the current mount point.
func (d *Disk) Refresh(ctx context.Context, env item.Env) (*i3.Block, error) {
	path := d.paths[d.page]
	u, err := diskUsage(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("disk usage %s: %w", path, err)
	}

	text := fmt.Sprintf("%s%s %s", d.label, path, itFormatBytes(u.Free))
	if len(d.paths) > 1 {
		text += fmt.Sprintf(" [%d/%d]", d.page+1, len(d.paths))
	}
	b := i3.NewBlock(text)
	b.ShortText = path
	if u.Total > 0 {
		free := float64(u.Free) / float64(u.Total) * 100
		switch {
		case free <= itDiskCritFree:
			b.Color = env.Theme.Red
		case free <= itDiskHighFree:
			b.Color = env.Theme.Orange
		case free <= itDiskWarnFree:
			b.Color = env.Theme.Yellow
		}
	}
	return b, nil
}

// Click moves to the next mount point on a left click or scroll down, and
// to the previous one on a right click or scroll up.
func (d *Disk) Click(ctx context.Context, env item.Env, ev i3.ClickEvent) (*i3.Block, error) {
	n := len(d.paths)
	if n < 2 {
		return nil, item.ErrUnsupported
	}
	switch ev.Button {
	case i3.ButtonLeft, i3.ButtonScrollDown:
		d.page = (d.page + 1) % n
	case i3.ButtonRight, i3.ButtonScrollUp:
		d.page = (d.page + n - 1) % n
	default:
		return nil, item.ErrUnsupported
	}
	return d.Refresh(ctx, env)
}

// --- Load ---

// Load shows the 1, 5 and 15 minute load averages. The color follows the
// 1 minute average relative to the number of CPUs.
type Load struct {
	item.Base
	label string
}

func newLoad(ic config.ItemConfig, _ *slog.Logger) (item.Item, error) {
	opts := struct {
		Label string `json:"label"`
	}{Label: "LOAD "}
	if err := ic.DecodeOptions(&opts); err != nil {
		return nil, err
	}
	return &Load{label: opts.Label}, nil
}

// Refresh reads the load averages.
func (l *Load) Refresh(ctx context.Context, env item.Env) (*i3.Block, error) {
	avg, err := loadAvg(ctx)
	if err != nil {
		return nil, fmt.Errorf("load average: %w", err)
	}
	b := i3.NewBlock(fmt.Sprintf("%s%.2f %.2f %.2f", l.label, avg.Load1, avg.Load5, avg.Load15))
	if n := numCPU(); n > 0 {
		b.Color = itLevelColor(env.Theme, avg.Load1/float64(n)*100)
	}
	return b, nil
}
