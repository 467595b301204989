package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("payment: pay info not found")
	ErrDuplicateIntent = errors.New("payment: active payment intent already exists")
	ErrUnknownStatus   = errors.New("payment: unrecognized platform status")
	ErrUnknownPlatform = errors.New("payment: unrecognized platform")
	// ErrOrderVanished flags a consistency fault: a pay info record points
	// at an order that no longer exists. It must reach an operator, never
	// be swallowed.
	ErrOrderVanished = errors.New("payment: order referenced by pay info not found")
	// ErrConsistency covers multi-step reconciliation writes that failed
	// after their bounded retries and need operator attention.
	ErrConsistency = errors.New("payment: reconciliation left inconsistent")
)

// Platform is a closed set of external payment platforms. The reconciler
// never dispatches on it; it only records which platform a pay info belongs
// to.
type Platform int

const (
	PlatformAlipay Platform = 1
	PlatformWechat Platform = 2
)

func (p Platform) Valid() bool {
	return p == PlatformAlipay || p == PlatformWechat
}

func (p Platform) String() string {
	switch p {
	case PlatformAlipay:
		return "alipay"
	case PlatformWechat:
		return "wechat"
	default:
		return "unknown"
	}
}

// Platform-reported status vocabulary. Notifications carrying anything else
// are rejected before any lookup happens.
const (
	StatusWaitBuyerPay = "WAIT_BUYER_PAY"
	StatusTradeSuccess = "TRADE_SUCCESS"
	StatusTradeClosed  = "TRADE_CLOSED"
)

func KnownStatus(s string) bool {
	switch s {
	case StatusWaitBuyerPay, StatusTradeSuccess, StatusTradeClosed:
		return true
	default:
		return false
	}
}

// PayInfo tracks one payment attempt for an order. At most one active record
// exists per order number. The platform number arrives later, once the
// external platform acknowledges the attempt.
type PayInfo struct {
	OrderNo        int64
	UserID         int64
	Platform       Platform
	PlatformNumber string
	PlatformStatus string
	PayAmount      decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func New(orderNo, userID int64, platform Platform, payAmount decimal.Decimal) (*PayInfo, error) {
	if !platform.Valid() {
		return nil, ErrUnknownPlatform
	}
	if payAmount.IsNegative() {
		return nil, errors.New("payment: amount must be zero or greater")
	}

	now := time.Now().UTC()
	return &PayInfo{
		OrderNo:        orderNo,
		UserID:         userID,
		Platform:       platform,
		PlatformStatus: StatusWaitBuyerPay,
		PayAmount:      payAmount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (p *PayInfo) Clone() *PayInfo {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

func (p *PayInfo) Touch() {
	p.UpdatedAt = time.Now().UTC()
}
