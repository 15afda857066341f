// Package refresh provides the background goroutine machinery shared by the
// wave, ocean and weather grids: a wall-clock poll loop with cooperative,
// deadline-based cancellation (the Go analogue of the original's
// condition-variable-with-deadline wait), plus prometheus metrics on
// snapshot age and failure counts.
package refresh

import (
	"sync"
	"time"

	"github.com/ls4096/libproteus/internal/obslog"
	"github.com/prometheus/client_golang/prometheus"
)

// pollInterval is the wall-clock poll granularity used by every grid's
// refresh loop, matching the original's 60-second sleep cadence.
const pollInterval = 60 * time.Second

// Task is one grid's refresh schedule: it is invoked roughly every
// pollInterval and returns true if it installed a new snapshot, or a
// non-nil error if a refresh attempt failed.
type Task func(now time.Time) (refreshed bool, err error)

var (
	snapshotAge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "libproteus_grid_snapshot_age_seconds",
			Help: "Age of the currently installed grid snapshot pair.",
		},
		[]string{"grid"},
	)
	refreshFailures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "libproteus_grid_refresh_failures_total",
			Help: "Count of failed refresh attempts since process start.",
		},
		[]string{"grid"},
	)
)

func init() {
	prometheus.MustRegister(snapshotAge, refreshFailures)
}

// Collectors returns the prometheus collectors owned by this package, for a
// host process to register with its own registry/pushgateway client.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{snapshotAge, refreshFailures}
}

// Controller drives one grid's background refresh goroutine.
type Controller struct {
	name string
	task Task

	mu          sync.Mutex
	installedAt time.Time
	failures    float64

	stop chan struct{}
	wg   sync.WaitGroup
}

// Start launches the controller's goroutine, polling task every
// pollInterval until Stop is called.
func Start(name string, task Task) *Controller {
	c := &Controller{
		name:        name,
		task:        task,
		installedAt: time.Now(),
		stop:        make(chan struct{}),
	}

	c.wg.Add(1)
	go c.main()
	return c
}

// Stop signals the controller's goroutine to exit and waits for it to do so.
func (c *Controller) Stop() {
	close(c.stop)
	c.wg.Wait()
}

func (c *Controller) main() {
	defer c.wg.Done()

	timer := time.NewTimer(pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-timer.C:
			c.pollOnce()
			timer.Reset(pollInterval)
		}
	}
}

func (c *Controller) pollOnce() {
	refreshed, err := c.task(time.Now())

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.failures++
		refreshFailures.WithLabelValues(c.name).Set(c.failures)
		obslog.Errorf("refresh: %s: %v", c.name, err)
		return
	}
	if refreshed {
		c.installedAt = time.Now()
	}
	snapshotAge.WithLabelValues(c.name).Set(time.Since(c.installedAt).Seconds())
}

// MarkInstalled records that a fresh snapshot pair was just installed,
// resetting the age metric. Callers that install an initial pair outside
// the poll loop (e.g. during Init) should call this once up front.
func (c *Controller) MarkInstalled(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.installedAt = t
	snapshotAge.WithLabelValues(c.name).Set(time.Since(t).Seconds())
}
