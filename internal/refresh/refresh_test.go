package refresh

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestControllerInvokesTaskAndStops(t *testing.T) {
	calls := make(chan struct{}, 1)
	c := Start("test-grid-a", func(now time.Time) (bool, error) {
		select {
		case calls <- struct{}{}:
		default:
		}
		return true, nil
	})
	defer c.Stop()

	c.pollOnce()
	select {
	case <-calls:
	default:
		t.Fatal("expected task to have been invoked")
	}
}

func TestControllerRecordsFailures(t *testing.T) {
	c := Start("test-grid-b", func(now time.Time) (bool, error) {
		return false, errors.New("boom")
	})
	defer c.Stop()

	c.pollOnce()
	c.mu.Lock()
	failures := c.failures
	c.mu.Unlock()
	assert.Equal(t, 1.0, failures)
}

func TestMarkInstalledResetsAge(t *testing.T) {
	c := Start("test-grid-c", func(now time.Time) (bool, error) { return false, nil })
	defer c.Stop()

	past := time.Now().Add(-time.Hour)
	c.MarkInstalled(past)
	c.mu.Lock()
	installed := c.installedAt
	c.mu.Unlock()
	assert.Equal(t, past, installed)
}

func TestCollectorsReturnsBothGauges(t *testing.T) {
	assert.Len(t, Collectors(), 2)
}
