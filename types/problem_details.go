package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrorKind DAO 授权错误种类
//
// 每一次失败都只归因于一个被违反的前置条件
type ErrorKind string

const (
	KindMalformedAction       ErrorKind = "MALFORMED_ACTION"
	KindUnauthorizedSigner    ErrorKind = "UNAUTHORIZED_SIGNER"
	KindDuplicateSigner       ErrorKind = "DUPLICATE_SIGNER"
	KindQuorumNotReached      ErrorKind = "QUORUM_NOT_REACHED"
	KindVotingAlreadyExecuted ErrorKind = "VOTING_ALREADY_EXECUTED"
	KindActionExpired         ErrorKind = "ACTION_EXPIRED"
	KindActionNotYetActive    ErrorKind = "ACTION_NOT_YET_ACTIVE"
	KindExecutionReverted     ErrorKind = "EXECUTION_REVERTED"
	KindNotPermitted          ErrorKind = "NOT_PERMITTED"
)

// 哨兵错误，配合 errors.Is 使用
var (
	ErrMalformedAction       = &DaoError{Kind: KindMalformedAction}
	ErrUnauthorizedSigner    = &DaoError{Kind: KindUnauthorizedSigner}
	ErrDuplicateSigner       = &DaoError{Kind: KindDuplicateSigner}
	ErrQuorumNotReached      = &DaoError{Kind: KindQuorumNotReached}
	ErrVotingAlreadyExecuted = &DaoError{Kind: KindVotingAlreadyExecuted}
	ErrActionExpired         = &DaoError{Kind: KindActionExpired}
	ErrActionNotYetActive    = &DaoError{Kind: KindActionNotYetActive}
	ErrExecutionReverted     = &DaoError{Kind: KindExecutionReverted}
	ErrNotPermitted          = &DaoError{Kind: KindNotPermitted}
)

// 合约 revert 字符串（与链上 DAO 合约保持一致）
const (
	ReasonQuorumNotReached      = "DAO: quorum is not reached"
	ReasonDuplicateSigner       = "DAO: signatures are not unique"
	ReasonVotingAlreadyExecuted = "DAO: voting already executed"
	ReasonNotPermitted          = "DAO: only for permitted"
	ReasonUnauthorizedSigner    = "DAO: signer is not a member"
	ReasonMalformedAction       = "DAO: invalid action"
	ReasonActionExpired         = "DAO: action expired"
	ReasonActionNotYetActive    = "DAO: action not yet active"
	ReasonInsufficientBalance   = "Address: insufficient balance"
)

// DaoError DAO 授权错误
type DaoError struct {
	Kind      ErrorKind
	Reason    string // 合约/实体给出的 revert 原因
	Detail    string // 技术详情
	TraceID   string
	Timestamp string
	Cause     error
}

func (e *DaoError) Error() string {
	msg := string(e.Kind)
	if e.Reason != "" {
		msg = fmt.Sprintf("[%s] %s", e.Kind, e.Reason)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (cause=%v)", msg, e.Cause)
	}
	return msg
}

func (e *DaoError) Unwrap() error {
	return e.Cause
}

// Is 按错误种类匹配
func (e *DaoError) Is(target error) bool {
	t, ok := target.(*DaoError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable 是否可由调用方恢复（换签名者、新时间戳、补充签名等）
//
// MalformedAction 表示上游编程错误，同一 Action 不应重试
func (e *DaoError) Retryable() bool {
	return e.Kind != KindMalformedAction
}

// NewDaoError 创建 DaoError
func NewDaoError(kind ErrorKind, reason string, detail string) *DaoError {
	if reason == "" {
		reason = defaultReason(kind)
	}
	return &DaoError{
		Kind:      kind,
		Reason:    reason,
		Detail:    detail,
		TraceID:   uuid.New().String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Errorf 以格式化详情创建 DaoError
func Errorf(kind ErrorKind, format string, args ...interface{}) *DaoError {
	return NewDaoError(kind, "", fmt.Sprintf(format, args...))
}

// AsDaoError 检查错误链中是否包含 DaoError
func AsDaoError(err error) (*DaoError, bool) {
	var daoErr *DaoError
	if errors.As(err, &daoErr) {
		return daoErr, true
	}
	return nil, false
}

// KindOf 返回错误种类，非 DaoError 返回空字符串
func KindOf(err error) ErrorKind {
	if daoErr, ok := AsDaoError(err); ok {
		return daoErr.Kind
	}
	return ""
}

func defaultReason(kind ErrorKind) string {
	switch kind {
	case KindQuorumNotReached:
		return ReasonQuorumNotReached
	case KindDuplicateSigner:
		return ReasonDuplicateSigner
	case KindVotingAlreadyExecuted:
		return ReasonVotingAlreadyExecuted
	case KindNotPermitted:
		return ReasonNotPermitted
	case KindUnauthorizedSigner:
		return ReasonUnauthorizedSigner
	case KindMalformedAction:
		return ReasonMalformedAction
	case KindActionExpired:
		return ReasonActionExpired
	case KindActionNotYetActive:
		return ReasonActionNotYetActive
	default:
		return ""
	}
}

// ProblemDetails DAO 错误的 Problem Details 表示（基于 RFC7807）
type ProblemDetails struct {
	Type      string                 `json:"type,omitempty"`
	Title     string                 `json:"title,omitempty"`
	Detail    string                 `json:"detail,omitempty"`
	Code      string                 `json:"code"`
	Layer     string                 `json:"layer"`
	Reason    string                 `json:"reason,omitempty"`
	Retryable bool                   `json:"retryable"`
	Details   map[string]interface{} `json:"details,omitempty"`
	TraceID   string                 `json:"traceId"`
	Timestamp string                 `json:"timestamp"`
}

// LayerClientSDKGo 错误来源层
const LayerClientSDKGo = "dao-sdk-go"

// ToProblemDetails 转换为 Problem Details
func (e *DaoError) ToProblemDetails() *ProblemDetails {
	return &ProblemDetails{
		Title:     e.Reason,
		Detail:    e.Detail,
		Code:      string(e.Kind),
		Layer:     LayerClientSDKGo,
		Reason:    e.Reason,
		Retryable: e.Retryable(),
		TraceID:   e.TraceID,
		Timestamp: e.Timestamp,
	}
}
