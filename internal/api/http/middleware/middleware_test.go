package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/txsigner/internal/core/signer/testutil"
	"github.com/weisyn/txsigner/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestStatusFor 测试错误到状态码的映射
func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{types.ErrInvalidRequest, http.StatusBadRequest},
		{types.ErrSignerNotFound, http.StatusNotFound},
		{fmt.Errorf("outer: %w", types.Errorf(types.ErrorKindSigningTimeout, "job")), http.StatusGatewayTimeout},
		{types.ErrRemoteSigningFailed, http.StatusBadGateway},
		{types.ErrMissingKey, http.StatusInternalServerError},
		{types.ErrDuplicateID, http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("签名任务轮询已取消: %w", context.Canceled), 499},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatusFor(c.err), "%v", c.err)
	}
}

// TestRequestID 测试沿用或生成请求ID
func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "client-id", seen)
	assert.Equal(t, "client-id", w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
}

// TestErrorHandler 测试错误响应与日志
func TestErrorHandler(t *testing.T) {
	logger := &testutil.BehavioralMockLogger{}
	r := gin.New()
	r.Use(RequestID(), ErrorHandler(logger))
	r.GET("/bad", func(c *gin.Context) {
		_ = c.Error(types.Errorf(types.ErrorKindUnsupportedChain, "DOT"))
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("db password leaked"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"UnsupportedChain"`)
	assert.False(t, logger.Contains("请求处理失败"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.True(t, logger.Contains("请求处理失败"))
}

// TestMetrics 测试按路由模板计数
func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	again, err := NewMetrics(reg)
	require.NoError(t, err)
	assert.Same(t, m.requestCounter, again.requestCounter)

	r := gin.New()
	r.Use(m.Middleware())
	r.POST("/v1/signers/:id/sign", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/signers/"+id+"/sign", nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 3.0, promtestutil.ToFloat64(m.requestCounter.WithLabelValues("POST", "/v1/signers/:id/sign", "200")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.requestCounter.WithLabelValues("GET", "unmatched", "404")))
}
