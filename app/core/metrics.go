package core

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sagechat-ai/sagechat/pkg/metrics"
)

type Metrics struct {
	apiResponseTime   *prometheus.HistogramVec
	apiErrorCounter   *prometheus.CounterVec
	modelRequestTime  *prometheus.HistogramVec
	modelErrorCounter *prometheus.CounterVec
	quotaRejections   *prometheus.CounterVec
	retrievalTime     *prometheus.HistogramVec
}

func NewMetrics(ns, system string) *Metrics {
	metrics.SetupMetricsManager(ns, system, prometheus.DefaultRegisterer.(*prometheus.Registry))

	m := &Metrics{
		apiResponseTime:   metrics.NewHistogramVec("api_response_time", []string{"api"}),
		apiErrorCounter:   metrics.NewCounterVec("api_error", []string{"method", "api", "status"}),
		modelRequestTime:  metrics.NewHistogramVec("model_request_time", []string{"operation"}),
		modelErrorCounter: metrics.NewCounterVec("model_error", []string{"operation"}),
		quotaRejections:   metrics.NewCounterVec("quota_rejection", []string{"window"}),
		retrievalTime:     metrics.NewHistogramVec("retrieval_time", nil),
	}

	return m
}

func (m *Metrics) ApiResponseTimer(api string) *prometheus.Timer {
	return prometheus.NewTimer(m.apiResponseTime.WithLabelValues(api))
}

func (m *Metrics) ApiErrorInc(method, api string, status int) {
	m.apiErrorCounter.WithLabelValues(method, api, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ModelRequestTimer(operation string) *prometheus.Timer {
	return prometheus.NewTimer(m.modelRequestTime.WithLabelValues(operation))
}

func (m *Metrics) ModelErrorInc(operation string) {
	m.modelErrorCounter.WithLabelValues(operation).Inc()
}

func (m *Metrics) QuotaRejectionInc(window string) {
	m.quotaRejections.WithLabelValues(window).Inc()
}

func (m *Metrics) RetrievalTimer() *prometheus.Timer {
	return prometheus.NewTimer(m.retrievalTime.WithLabelValues())
}
