package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apitypes "github.com/weisyn/txsigner/internal/api/http/types"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/txsigner/pkg/types"
)

// ErrorHandler 错误处理中间件
//
// 处理器通过 c.Error(err) 上报错误后直接返回，由本中间件统一转换为
// ErrorResponse。签名错误的类别作为错误码，HTTP 状态由 StatusFor 决定。
func ErrorHandler(logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, resp := ResponseFor(err)
		resp.WithRequestID(GetRequestID(c))

		if status >= http.StatusInternalServerError && logger != nil {
			logger.Errorf("请求处理失败: path=%s, request_id=%s, err=%v", c.Request.URL.Path, resp.Error.RequestID, err)
		}

		c.AbortWithStatusJSON(status, resp)
	}
}

// StatusFor 将错误映射为 HTTP 状态码
func StatusFor(err error) int {
	switch types.ErrorKindOf(err) {
	case types.ErrorKindInvalidRequest,
		types.ErrorKindMalformedTransaction,
		types.ErrorKindNoInputsToSign,
		types.ErrorKindAlreadySigned,
		types.ErrorKindUnsupportedChain:
		return http.StatusBadRequest
	case types.ErrorKindSignerNotFound:
		return http.StatusNotFound
	case types.ErrorKindSigningTimeout:
		return http.StatusGatewayTimeout
	case types.ErrorKindSubmissionFailed,
		types.ErrorKindRemoteSigningFailed,
		types.ErrorKindMissingSignedContent,
		types.ErrorKindEmptySignatureFromHSM:
		return http.StatusBadGateway
	case "":
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return http.StatusGatewayTimeout
		case errors.Is(err, context.Canceled):
			// nginx 约定的客户端关闭连接状态码
			return 499
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ResponseFor 构造错误对应的状态码与响应体
//
// 非签名错误的 500 响应不回显内部错误文本。
func ResponseFor(err error) (int, *apitypes.ErrorResponse) {
	status := StatusFor(err)
	if kind := types.ErrorKindOf(err); kind != "" {
		return status, apitypes.NewErrorResponse(string(kind), err.Error(), nil)
	}

	switch status {
	case http.StatusGatewayTimeout:
		return status, apitypes.NewErrorResponse(apitypes.ErrTimeout, "request timed out", nil)
	case 499:
		return status, apitypes.NewErrorResponse(apitypes.ErrCanceled, "request canceled", nil)
	default:
		return status, apitypes.NewErrorResponse(apitypes.ErrInternal, "internal server error", nil)
	}
}

// WriteError 直接写入错误响应并中止后续处理
func WriteError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, apitypes.NewErrorResponse(code, message, nil).WithRequestID(GetRequestID(c)))
}
