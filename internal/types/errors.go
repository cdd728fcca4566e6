package types

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrInterviewNotFound = errors.New("面试记录不存在")
	ErrClientNotFound    = errors.New("客户记录不存在")
	ErrCandidateNotFound = errors.New("候选人记录不存在")
	ErrInvalidShape      = errors.New("输入数据格式无效")
	ErrPersistence       = errors.New("持久化操作失败")
	ErrTransport         = errors.New("外部传输调用失败")
)

// OpError 携带操作上下文的业务错误
type OpError struct {
	Op      string
	Key     string
	BaseErr error
	Detail  string
}

func (e *OpError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 键:%s): %s", e.BaseErr, e.Op, e.Key, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 键:%s)", e.BaseErr, e.Op, e.Key)
}

func (e *OpError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *OpError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// NewNotFoundError 构造 NotFound 类错误，base 应为上面定义的 Err*NotFound 之一
func NewNotFoundError(base error, op, key string) error {
	return &OpError{Op: op, Key: key, BaseErr: base}
}

// NewInvalidShapeError 构造格式无效错误
func NewInvalidShapeError(op, detail string) error {
	return &OpError{Op: op, BaseErr: ErrInvalidShape, Detail: detail}
}

// NewPersistenceError 构造持久化错误
func NewPersistenceError(op, key string, cause error) error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &OpError{Op: op, Key: key, BaseErr: ErrPersistence, Detail: detail}
}
