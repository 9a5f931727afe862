// Package ledger 积分账本的纯规则：周期重置、有效套餐判定、模型访问与计费。
package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientCredits = errors.New("积分不足")
	ErrModelForbidden      = errors.New("当前套餐无法使用该模型")
	ErrSignatureInvalid    = errors.New("支付签名校验失败")
	ErrAccountNotFound     = errors.New("账户不存在")
	ErrStoreUnavailable    = errors.New("存储服务暂不可用")
	ErrPackageNotFound     = errors.New("积分包不存在或已下架")
	ErrOrderNotFound       = errors.New("订单不存在")
	ErrOrderMismatch       = errors.New("订单信息不匹配")
	ErrInvalidAmount       = errors.New("积分数量不合法")
	ErrInvalidPlan         = errors.New("套餐类型不合法")
)

// 对外错误码
const (
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeModelForbidden      = "MODEL_FORBIDDEN"
	CodeSignatureInvalid    = "SIGNATURE_INVALID"
	CodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"
)

// InsufficientCreditsError 携带所需与可用额度，便于前端提示"等待重置/购买/升级"
type InsufficientCreditsError struct {
	Required  int
	Available int
	// 钱包扣费时填充两个池的余额
	Weekly    int
	Purchased int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("积分不足: 需要 %d, 可用 %d", e.Required, e.Available)
}

func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientCredits
}

// ModelForbiddenError 当前有效套餐无权使用的模型
type ModelForbiddenError struct {
	Model         string
	Plan          string
	AllowedModels []string
}

func (e *ModelForbiddenError) Error() string {
	return fmt.Sprintf("套餐 %s 无法使用模型 %s", e.Plan, e.Model)
}

func (e *ModelForbiddenError) Is(target error) bool {
	return target == ErrModelForbidden
}

// Unavailable 将底层存储错误（超时、断连等）统一包装为 ErrStoreUnavailable
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// Code 返回错误对应的对外错误码，未知错误返回空串
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientCredits):
		return CodeInsufficientCredits
	case errors.Is(err, ErrModelForbidden):
		return CodeModelForbidden
	case errors.Is(err, ErrSignatureInvalid):
		return CodeSignatureInvalid
	case errors.Is(err, ErrAccountNotFound):
		return CodeAccountNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreUnavailable
	default:
		return ""
	}
}

var domainErrors = []error{
	ErrInsufficientCredits,
	ErrModelForbidden,
	ErrSignatureInvalid,
	ErrAccountNotFound,
	ErrStoreUnavailable,
	ErrPackageNotFound,
	ErrOrderNotFound,
	ErrOrderMismatch,
	ErrInvalidAmount,
	ErrInvalidPlan,
}

// IsDomain 是否为账本自身定义的错误
func IsDomain(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Wrap 领域错误原样返回，其余错误（驱动错误、事务提交失败等）视为存储不可用
func Wrap(err error) error {
	if err == nil || IsDomain(err) {
		return err
	}
	return Unavailable(err)
}
