//go:build linux

package scheduler

import (
	"testing"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/item"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/registry"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/signals"
)

func TestSignalFanOut(t *testing.T) {
	a := item.NewMockItem(item.WithText("a"))
	b := item.NewMockItem(item.WithText("b"))
	c := item.NewMockItem(item.WithText("c"))

	router, err := signals.NewRouter(map[int][]int{0: {4}, 1: {4}, 2: {5}}, quietLogger())
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	startEngine(t, []registry.Spec{
		{Name: "a", Signals: []int{4}, Item: a},
		{Name: "b", Signals: []int{4}, Item: b},
		{Name: "c", Signals: []int{5}, Item: c},
	}, func(cfg *Config) {
		cfg.Router = router
	})
	waitFor(t, "initial refresh", func() bool {
		return a.RefreshCount() == 1 && b.RefreshCount() == 1 && c.RefreshCount() == 1
	})

	router.Deliver(4)
	waitFor(t, "signalled refresh", func() bool {
		return a.RefreshCount() == 2 && b.RefreshCount() == 2
	})
	if c.RefreshCount() != 1 {
		t.Errorf("unbound item refreshed %d times", c.RefreshCount())
	}
	if a.LastEnv().Trigger != item.TriggerSignal {
		t.Errorf("trigger = %v, want signal", a.LastEnv().Trigger)
	}
}
