package types

import (
	"errors"
	"fmt"
)

// ErrorKind 签名错误类别
//
// 调用方通过类别区分"请求本身有误"、"远端拒绝"与"签名超时"等情形。
type ErrorKind string

const (
	ErrorKindInvalidRequest        ErrorKind = "InvalidRequest"
	ErrorKindUnsupportedChain      ErrorKind = "UnsupportedChain"
	ErrorKindMalformedTransaction  ErrorKind = "MalformedTransaction"
	ErrorKindNoInputsToSign        ErrorKind = "NoInputsToSign"
	ErrorKindAlreadySigned         ErrorKind = "AlreadySigned"
	ErrorKindInvalidKey            ErrorKind = "InvalidKey"
	ErrorKindMissingKey            ErrorKind = "MissingKey"
	ErrorKindMissingHSMParams      ErrorKind = "MissingHSMParams"
	ErrorKindMissingProvider       ErrorKind = "MissingProvider"
	ErrorKindEmptySignatureFromHSM ErrorKind = "EmptySignatureFromHSM"
	ErrorKindSubmissionFailed      ErrorKind = "SubmissionFailed"
	ErrorKindMissingSignedContent  ErrorKind = "MissingSignedContent"
	ErrorKindRemoteSigningFailed   ErrorKind = "RemoteSigningFailed"
	ErrorKindSigningTimeout        ErrorKind = "SigningTimeout"
	ErrorKindFinalizationFailed    ErrorKind = "FinalizationFailed"
	ErrorKindDuplicateID           ErrorKind = "DuplicateId"
	ErrorKindUnsupportedSignerType ErrorKind = "UnsupportedSignerType"
	ErrorKindSignerNotFound        ErrorKind = "SignerNotFound"
)

// 哨兵错误，用于 errors.Is 比较（按 Kind 匹配）
var (
	ErrInvalidRequest        = &SignerError{Kind: ErrorKindInvalidRequest}
	ErrUnsupportedChain      = &SignerError{Kind: ErrorKindUnsupportedChain}
	ErrMalformedTransaction  = &SignerError{Kind: ErrorKindMalformedTransaction}
	ErrNoInputsToSign        = &SignerError{Kind: ErrorKindNoInputsToSign}
	ErrAlreadySigned         = &SignerError{Kind: ErrorKindAlreadySigned}
	ErrInvalidKey            = &SignerError{Kind: ErrorKindInvalidKey}
	ErrMissingKey            = &SignerError{Kind: ErrorKindMissingKey}
	ErrMissingHSMParams      = &SignerError{Kind: ErrorKindMissingHSMParams}
	ErrMissingProvider       = &SignerError{Kind: ErrorKindMissingProvider}
	ErrEmptySignatureFromHSM = &SignerError{Kind: ErrorKindEmptySignatureFromHSM}
	ErrSubmissionFailed      = &SignerError{Kind: ErrorKindSubmissionFailed}
	ErrMissingSignedContent  = &SignerError{Kind: ErrorKindMissingSignedContent}
	ErrRemoteSigningFailed   = &SignerError{Kind: ErrorKindRemoteSigningFailed}
	ErrSigningTimeout        = &SignerError{Kind: ErrorKindSigningTimeout}
	ErrFinalizationFailed    = &SignerError{Kind: ErrorKindFinalizationFailed}
	ErrDuplicateID           = &SignerError{Kind: ErrorKindDuplicateID}
	ErrUnsupportedSignerType = &SignerError{Kind: ErrorKindUnsupportedSignerType}
	ErrSignerNotFound        = &SignerError{Kind: ErrorKindSignerNotFound}
)

// SignerError 带类别的签名错误
type SignerError struct {
	Kind   ErrorKind // 错误类别
	Detail string    // 附加信息（链标签、远端状态等），不得包含密钥材料
	Cause  error     // 底层错误
}

// NewSignerError 创建签名错误
func NewSignerError(kind ErrorKind, detail string, cause error) *SignerError {
	return &SignerError{Kind: kind, Detail: detail, Cause: cause}
}

// Errorf 创建带格式化详情的签名错误
func Errorf(kind ErrorKind, format string, args ...interface{}) *SignerError {
	return &SignerError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Error 实现 error 接口
func (e *SignerError) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap 返回底层错误
func (e *SignerError) Unwrap() error { return e.Cause }

// Is 按类别匹配，使 errors.Is(err, ErrSigningTimeout) 对任意详情成立
func (e *SignerError) Is(target error) bool {
	t, ok := target.(*SignerError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// ErrorKindOf 提取错误链中第一个签名错误的类别；不是签名错误时返回空
func ErrorKindOf(err error) ErrorKind {
	var se *SignerError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsSignerError 检查错误是否为签名错误
func IsSignerError(err error) (*SignerError, bool) {
	var se *SignerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
