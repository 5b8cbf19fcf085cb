// Package runtime implements a snapshot source that samples Go runtime stats and host CPU/RAM usage.
package runtime

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vshulcz/metricsnap/internal/ports"
	"github.com/vshulcz/metricsnap/pkg/metricsnap"
)

const (
	PathMemory         = "runtime.memory"
	PathGC             = "runtime.gc"
	PathGoroutines     = "runtime.goroutines"
	PathPollCount      = "runtime.poll-count"
	PathHostMemory     = "host.memory"
	PathCPUUtilization = "host.cpu.utilization"
)

// GaugePaths lists the paths whose values are current readings rather than
// cumulative counts.
func GaugePaths() []string {
	return []string{PathMemory, PathGoroutines, PathHostMemory, PathCPUUtilization}
}

// Collector periodically samples Go runtime stats plus host CPU/RAM metrics.
type Collector struct {
	st   *stats
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

var _ ports.SnapshotSource = (*Collector)(nil)

// New creates a Collector with empty storage.
func New() *Collector {
	return &Collector{
		st:   newStats(),
		stop: make(chan struct{}),
	}
}

// Start launches background goroutines that sample runtime and host metrics at the given interval.
func (c *Collector) Start(ctx context.Context, interval time.Duration) error {
	c.sampleRuntime()

	t := time.NewTicker(interval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-t.C:
				c.sampleRuntime()
			}
		}
	}()

	tSys := time.NewTicker(interval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer tSys.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-tSys.C:
				c.sampleHost()
			}
		}
	}()

	return nil
}

func (c *Collector) sampleRuntime() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	for stat, v := range map[string]uint64{
		"alloc":         ms.Alloc,
		"total_alloc":   ms.TotalAlloc,
		"sys":           ms.Sys,
		"heap_alloc":    ms.HeapAlloc,
		"heap_idle":     ms.HeapIdle,
		"heap_inuse":    ms.HeapInuse,
		"heap_released": ms.HeapReleased,
		"heap_sys":      ms.HeapSys,
		"heap_objects":  ms.HeapObjects,
		"stack_inuse":   ms.StackInuse,
		"stack_sys":     ms.StackSys,
		"mspan_inuse":   ms.MSpanInuse,
		"mcache_inuse":  ms.MCacheInuse,
		"other_sys":     ms.OtherSys,
	} {
		c.st.Set(PathMemory, metricsnap.Labels{"stat": stat}, clampInt64(v))
	}
	for stat, v := range map[string]uint64{
		"num_gc":         uint64(ms.NumGC),
		"num_forced_gc":  uint64(ms.NumForcedGC),
		"pause_total_ns": ms.PauseTotalNs,
		"mallocs":        ms.Mallocs,
		"frees":          ms.Frees,
	} {
		c.st.Set(PathGC, metricsnap.Labels{"stat": stat}, clampInt64(v))
	}
	c.st.Set(PathGoroutines, metricsnap.Labels{}, int64(runtime.NumGoroutine()))
	c.st.Add(PathPollCount, metricsnap.Labels{}, 1)
}

func (c *Collector) sampleHost() {
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		c.st.Set(PathHostMemory, metricsnap.Labels{"kind": "total"}, clampInt64(vm.Total))
		c.st.Set(PathHostMemory, metricsnap.Labels{"kind": "free"}, clampInt64(vm.Free))
	}
	if pct, err := cpu.Percent(0, true); err == nil {
		for i, p := range pct {
			c.st.Set(PathCPUUtilization, metricsnap.Labels{"cpu": strconv.Itoa(i + 1)}, int64(p))
		}
	}
}

// Stop signals every collector goroutine to halt and waits for them to finish.
func (c *Collector) Stop() {
	c.once.Do(func() { close(c.stop) })
	c.wg.Wait()
}

// Snapshot returns the latest readings under prefix.
func (c *Collector) Snapshot(_ context.Context, prefix string) (*metricsnap.Snapshot, error) {
	return c.st.Snapshot(prefix)
}

func clampInt64(v uint64) int64 {
	if v > 1<<63-1 {
		return 1<<63 - 1
	}
	return int64(v)
}
