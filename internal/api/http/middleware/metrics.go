package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics HTTP 指标收集中间件
type Metrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics 创建指标中间件并在 reg 上注册
//
// reg 为 nil 时不注册；重复注册时复用已存在的收集器。
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "txsigner",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "txsigner",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	if reg != nil {
		var err error
		if counter, err = registerOrReuse(reg, counter); err != nil {
			return nil, err
		}
		if duration, err = registerOrReuse(reg, duration); err != nil {
			return nil, err
		}
	}

	return &Metrics{requestCounter: counter, requestDuration: duration}, nil
}

func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Middleware 返回Gin中间件
//
// 路由标签使用注册的路由模板（如 /v1/signers/:id/sign），未匹配的请求记为 unmatched。
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requestCounter.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
