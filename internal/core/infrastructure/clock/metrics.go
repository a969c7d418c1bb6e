package clock

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// ntpCollector 导出 NTP 时钟偏移与健康状态
type ntpCollector struct {
	clock *NTPClock

	offsetSeconds   *prometheus.Desc
	lastSyncSeconds *prometheus.Desc
	healthy         *prometheus.Desc
}

func (c *ntpCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.offsetSeconds
	ch <- c.lastSyncSeconds
	ch <- c.healthy
}

func (c *ntpCollector) Collect(ch chan<- prometheus.Metric) {
	ok, offset, lastSync, _ := c.clock.Health()
	ch <- prometheus.MustNewConstMetric(c.offsetSeconds, prometheus.GaugeValue, offset.Seconds())
	ch <- prometheus.MustNewConstMetric(c.lastSyncSeconds, prometheus.GaugeValue, float64(lastSync.Unix()))
	var healthy float64
	if ok {
		healthy = 1
	}
	ch <- prometheus.MustNewConstMetric(c.healthy, prometheus.GaugeValue, healthy)
}

// RegisterNTPMetrics 在 reg 上注册时钟指标采集器；已注册时忽略
func RegisterNTPMetrics(reg prometheus.Registerer, clock *NTPClock) error {
	collector := &ntpCollector{
		clock: clock,
		offsetSeconds: prometheus.NewDesc(
			"txsigner_clock_offset_seconds",
			"Positive means local time is behind NTP time",
			nil, nil,
		),
		lastSyncSeconds: prometheus.NewDesc(
			"txsigner_clock_last_sync_unix",
			"Last NTP sync attempt Unix timestamp",
			nil, nil,
		),
		healthy: prometheus.NewDesc(
			"txsigner_clock_healthy",
			"1 if clock is healthy, otherwise 0",
			nil, nil,
		),
	}
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}
