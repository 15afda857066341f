// Command proteusd is a small demonstration daemon: it initializes the
// environmental grids from flag-specified data directories, polls a fixed
// set of points on an interval, pushes the refresh-age/failure gauges to a
// Prometheus Pushgateway and writes each polled sample to InfluxDB as a
// point.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	influxdb "github.com/influxdata/influxdb-client-go/v2"
	influxdbapi "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/ls4096/libproteus/geopos"
	"github.com/ls4096/libproteus/internal/refresh"
	"github.com/ls4096/libproteus/proteus"
	"github.com/ls4096/libproteus/weather"
	"github.com/prometheus/client_golang/prometheus/push"
)

const progname = "proteusd"

var samplePoints = []geopos.Pos{
	{Lat: 44, Lon: -63},
	{Lat: 40, Lon: -60},
	{Lat: -36, Lon: 180},
	{Lat: -65.2, Lon: 70.4},
}

func main() {
	var (
		waveF1, waveF2       string
		oceanF1, oceanF2     string
		weatherD1, weatherD2 string
		pollInterval         time.Duration
		pushgatewayURL       string
		influxURL            string
		influxToken          string
		influxOrg            string
		influxBucket         string
	)

	flag.StringVar(&waveF1, "wave-f1", "", "wave forecast snapshot 1 CSV path")
	flag.StringVar(&waveF2, "wave-f2", "", "wave forecast snapshot 2 CSV path")
	flag.StringVar(&oceanF1, "ocean-f1", "", "ocean forecast snapshot 1 CSV path")
	flag.StringVar(&oceanF2, "ocean-f2", "", "ocean forecast snapshot 2 CSV path")
	flag.StringVar(&weatherD1, "weather-d1", "", "weather forecast snapshot 1 directory")
	flag.StringVar(&weatherD2, "weather-d2", "", "weather forecast snapshot 2 directory")
	flag.DurationVar(&pollInterval, "poll-interval", 30*time.Second, "sample poll interval")
	flag.StringVar(&pushgatewayURL, "pushgateway", "", "Prometheus Pushgateway URL (disabled if empty)")
	flag.StringVar(&influxURL, "influx-url", "", "InfluxDB server URL (disabled if empty)")
	flag.StringVar(&influxToken, "influx-token", "", "InfluxDB auth token")
	flag.StringVar(&influxOrg, "influx-org", "proteus", "InfluxDB organization")
	flag.StringVar(&influxBucket, "influx-bucket", "proteus", "InfluxDB bucket")
	flag.Parse()

	cfg := proteus.Config{
		WaveF1: waveF1, WaveF2: waveF2,
		OceanF1: oceanF1, OceanF2: oceanF2,
		WeatherGrid: weather.Grid1Deg,
		WeatherD1:   weatherD1, WeatherD2: weatherD2,
	}

	env, err := proteus.Init(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: init failed: %v\n", progname, err)
		os.Exit(1)
	}
	defer env.Reset()

	var writeAPI influxdbapi.WriteAPI
	if influxURL != "" {
		client := influxdb.NewClient(influxURL, influxToken)
		defer client.Close()
		writeAPI = client.WriteAPI(influxOrg, influxBucket)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			return
		case <-ticker.C:
			pollOnce(env, writeAPI)
			pushMetrics(pushgatewayURL)
		}
	}
}

func pollOnce(env *proteus.Env, writeAPI influxdbapi.WriteAPI) {
	now := time.Now()

	for _, pos := range samplePoints {
		if env.Wave != nil {
			if s, ok := env.Wave.Get(pos); ok {
				writePoint(writeAPI, "wave", pos, now, map[string]interface{}{
					"height_m": s.HeightM,
				})
			}
		}
		if env.Ocean != nil {
			if s, ok := env.Ocean.Get(pos); ok {
				writePoint(writeAPI, "ocean", pos, now, map[string]interface{}{
					"current_angle_deg": s.Current.Angle,
					"current_mag_ms":    s.Current.Mag,
					"sst_c":             s.SurfaceTempC,
					"salinity":          s.Salinity,
					"ice_percent":       s.IcePercent,
				})
			}
		}
		if env.Weather != nil {
			if s, ok := env.Weather.Get(pos, false); ok {
				writePoint(writeAPI, "weather", pos, now, map[string]interface{}{
					"wind_angle_deg": s.Wind.Angle,
					"wind_mag_ms":    s.Wind.Mag,
					"gust_ms":        s.GustMS,
					"temp_c":         s.TempC,
					"pressure_hpa":   s.PressureHPa,
				})
			}
		}
	}
}

func writePoint(writeAPI influxdbapi.WriteAPI, measurement string, pos geopos.Pos, t time.Time, fields map[string]interface{}) {
	if writeAPI == nil {
		return
	}

	p := influxdb.NewPointWithMeasurement(measurement).
		AddTag("lat", fmt.Sprintf("%.4f", pos.Lat)).
		AddTag("lon", fmt.Sprintf("%.4f", pos.Lon))
	for k, v := range fields {
		p.AddField(k, v)
	}
	p.SetTime(t)

	writeAPI.WritePoint(p)
}

func pushMetrics(pushgatewayURL string) {
	if pushgatewayURL == "" {
		return
	}
	pusher := push.New(pushgatewayURL, progname)
	for _, c := range refresh.Collectors() {
		pusher = pusher.Collector(c)
	}
	if err := pusher.Push(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: pushgateway push failed: %v\n", progname, err)
	}
}
