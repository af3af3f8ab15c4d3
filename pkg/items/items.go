// Package items implements the built-in bar items and builds registry
// specs from item configuration.
package items

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/item"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/registry"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/theme"
)

// factory constructs one item type.
type factory struct {
	// interval is used when the item config sets none. Zero means the item
	// only refreshes on signals, clicks and requests.
	interval time.Duration
	build    func(ic config.ItemConfig, logger *slog.Logger) (item.Item, error)
}

var factories = map[string]factory{
	"raw":    {build: newRaw},
	"time":   {interval: time.Second, build: newClock},
	"script": {build: newScript},
	"cpu":    {interval: 2 * time.Second, build: newCPU},
	"mem":    {interval: 5 * time.Second, build: newMem},
	"disk":   {interval: time.Minute, build: newDisk},
	"load":   {interval: 5 * time.Second, build: newLoad},
}

// Types returns the known item types, sorted.
func Types() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultInterval returns the refresh interval of an item type when its
// config sets none.
func DefaultInterval(kind string) (time.Duration, bool) {
	f, ok := factories[kind]
	return f.interval, ok
}

// Build constructs the items of cfgs in declaration order. Every invalid
// item is reported, not just the first.
func Build(cfgs []config.ItemConfig, logger *slog.Logger) ([]registry.Spec, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var errs []error
	specs := make([]registry.Spec, 0, len(cfgs))
	for i, ic := range cfgs {
		f, ok := factories[ic.Type]
		if !ok {
			errs = append(errs, fmt.Errorf("items[%d]: unknown type %q (available: %s)", i, ic.Type, strings.Join(Types(), ", ")))
			continue
		}
		it, err := f.build(ic, logger.With("item", ic.DisplayName()))
		if err != nil {
			errs = append(errs, fmt.Errorf("items[%d]: %w", i, err))
			continue
		}

		interval := f.interval
		if ic.Interval != nil {
			interval = ic.Interval.Duration
		}
		specs = append(specs, registry.Spec{
			Name:      ic.DisplayName(),
			Kind:      ic.Type,
			Index:     ic.Index,
			Hidden:    ic.Hidden,
			Interval:  interval,
			Signals:   append([]int(nil), ic.Signals...),
			Actions:   ic.Actions,
			Separator: ic.Separator,
			Item:      it,
		})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return specs, nil
}

// Load thresholds (percentage 0-100), shared by the usage items.
const (
	itWarnThreshold = 40.0
	itHighThreshold = 60.0
	itCritThreshold = 80.0
)

// itLevelColor maps a usage percentage to a theme accent. Low usage keeps
// the bar's default color.
func itLevelColor(th theme.Theme, pct float64) string {
	switch {
	case pct >= itCritThreshold:
		return th.Red
	case pct >= itHighThreshold:
		return th.Orange
	case pct >= itWarnThreshold:
		return th.Yellow
	default:
		return ""
	}
}

// itFormatBytes formats a byte count with binary units.
func itFormatBytes(bytes uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
		tb = 1024 * gb
	)

	switch {
	case bytes >= tb:
		return fmt.Sprintf("%.1f TB", float64(bytes)/float64(tb))
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// itPercent formats pct with the given number of decimals.
func itPercent(pct float64, precision int) string {
	if precision < 0 {
		precision = 0
	}
	return fmt.Sprintf("%.*f%%", precision, pct)
}
