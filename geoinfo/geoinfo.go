// Package geoinfo provides a demand-paged land/water classifier backed by a
// directory of gzip-compressed one-degree-square bitmap tiles.
package geoinfo

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ls4096/libproteus/geopos"
	"github.com/ls4096/libproteus/internal/obslog"
	"github.com/pkg/errors"
)

const (
	sqDegGridSize = 450 * 3600
	numGrids      = 360 * 181

	prunerInterval = 60 * time.Minute
	prunerExpiry   = 6 * time.Hour
)

type squareDegree struct {
	mu       sync.Mutex
	loaded   bool
	grid     []byte
	lastUsed time.Time
}

// Cache is a land/water tile cache rooted at a data directory.
type Cache struct {
	dataDir string
	tiles   []squareDegree

	cancel context.CancelFunc
	done   chan struct{}
}

// Open initializes the cache against dataDir and starts its background
// pruner goroutine. Call Close to stop the pruner.
func Open(dataDir string) (*Cache, error) {
	if dataDir == "" {
		return nil, errors.New("geoinfo: empty data directory")
	}

	c := &Cache{
		dataDir: dataDir,
		tiles:   make([]squareDegree, numGrids),
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.prunerMain(ctx)

	return c, nil
}

// Close stops the background pruner. It does not release already-loaded
// tiles; the cache is no longer usable afterward.
func (c *Cache) Close() {
	c.cancel()
	<-c.done
}

// IsWater reports whether pos falls on water, paging in the covering tile
// on first use. Positions with no tile data default to water (lat >= -79)
// or land/ice-shelf (lat < -79), matching Antarctica's lack of coverage.
func (c *Cache) IsWater(pos geopos.Pos) bool {
	ilon := int(math.Floor(pos.Lon))
	ilat := int(math.Floor(pos.Lat))

	sd := &c.tiles[lonLatIndex(ilon, ilat)]

	sd.mu.Lock()
	defer sd.mu.Unlock()

	if !sd.loaded {
		c.loadSquareDegree(sd, ilon, ilat)
	}

	if sd.grid == nil {
		return ilat >= -79
	}

	isWater := gridIsWater(pos, sd.grid)
	sd.lastUsed = time.Now()
	return isWater
}

func lonLatIndex(lon, lat int) int {
	return (lat+90)*360 + (lon + 180)
}

func (c *Cache) loadSquareDegree(sd *squareDegree, ilon, ilat int) {
	name := tileFileName(ilon, ilat)
	path := filepath.Join(c.dataDir, name)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			obslog.Infof("geoinfo: no tile %s, using latitude default", name)
			sd.loaded = true
			return
		}
		obslog.Errorf("geoinfo: failed to open tile %s: %v", name, err)
		sd.loaded = true
		return
	}
	defer f.Close()

	grid, err := decompressTile(f)
	if err != nil {
		obslog.Errorf("geoinfo: failed to decompress tile %s: %v", name, errors.Cause(err))
		sd.loaded = true
		return
	}

	sd.grid = grid
	sd.loaded = true
}

func tileFileName(ilon, ilat int) string {
	ns, ew := byte('N'), byte('E')
	if ilon < 0 {
		ew = 'W'
		ilon = -ilon
	}
	if ilat < 0 {
		ns = 'S'
		ilat = -ilat
	}
	return fmt.Sprintf("%c%02d%c%03d.gz", ns, ilat, ew, ilon)
}

func decompressTile(r io.Reader) ([]byte, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening gzip stream")
	}
	defer gz.Close()

	buf := make([]byte, sqDegGridSize)
	if _, err := io.ReadFull(gz, buf); err != nil {
		return nil, errors.Wrap(err, "inflating tile")
	}
	return buf, nil
}

func gridIsWater(pos geopos.Pos, grid []byte) bool {
	lonFrac := pos.Lon - math.Floor(pos.Lon)
	latFrac := pos.Lat - math.Floor(pos.Lat)

	x := int(lonFrac * 3600.0)
	y := int(latFrac * 3600.0)

	b := grid[(3599-y)*450+(x>>3)]
	bitpos := 7 - (x & 0x07)

	return (b>>uint(bitpos))&0x01 == 0
}

func (c *Cache) prunerMain(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(prunerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pruneOnce()
		}
	}
}

func (c *Cache) pruneOnce() {
	obslog.Debugf("geoinfo: grid pruner starting")

	var loadedCount, griddedCount, retainedCount int
	cutoff := time.Now().Add(-prunerExpiry)

	for i := range c.tiles {
		sd := &c.tiles[i]
		sd.mu.Lock()
		if sd.loaded {
			loadedCount++
			if sd.grid != nil {
				griddedCount++
				if sd.lastUsed.Before(cutoff) {
					sd.grid = nil
					sd.loaded = false
				} else {
					retainedCount++
				}
			}
		}
		sd.mu.Unlock()
	}

	obslog.Debugf("geoinfo: grid pruner done loaded=%d gridded=%d retained=%d", loadedCount, griddedCount, retainedCount)
}
