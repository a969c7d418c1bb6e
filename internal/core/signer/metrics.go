package signer

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/weisyn/txsigner/pkg/types"
)

// ============================================================================
//                          Prometheus 监控指标
// ============================================================================

// 结果标签
const (
	resultSuccess = "success"
	resultError   = "error"
)

// chainOther 非 BTC/ETH 链类型统一使用的标签，避免请求方制造任意标签值
const chainOther = "other"

// Metrics 签名服务指标
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics 创建并注册签名指标
//
// reg 为 nil 时不注册（指标仍可记录，供测试读取）；
// 同名指标已注册时复用已有的收集器。
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "txsigner",
				Subsystem: "sign",
				Name:      "requests_total",
				Help:      "Total number of sign requests by signer type, chain and result",
			},
			[]string{"signer_type", "chain", "result"}, // result: success 或错误类别
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "txsigner",
				Subsystem: "sign",
				Name:      "duration_seconds",
				Help:      "Duration of sign requests in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms ~ 262s
			},
			[]string{"signer_type", "chain"},
		),
	}

	if reg == nil {
		return m, nil
	}

	if err := reg.Register(m.requests); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		m.requests = existing
	}
	if err := reg.Register(m.duration); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, err
		}
		m.duration = existing
	}
	return m, nil
}

// Observe 记录一次签名请求
func (m *Metrics) Observe(signerType types.SignerType, chain types.ChainType, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	chainLabel := chainOther
	if chain == types.ChainBTC || chain == types.ChainETH {
		chainLabel = string(chain)
	}

	m.requests.WithLabelValues(string(signerType), chainLabel, resultLabel(err)).Inc()
	m.duration.WithLabelValues(string(signerType), chainLabel).Observe(elapsed.Seconds())
}

// resultLabel 成功为 success，失败为错误类别
func resultLabel(err error) string {
	if err == nil {
		return resultSuccess
	}
	if kind := types.ErrorKindOf(err); kind != "" {
		return string(kind)
	}
	return resultError
}
