package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"inkside/internal/localstore"
	"inkside/internal/model"

	"github.com/sirupsen/logrus"
)

const (
	// GuestAllowance 是访客首次使用时初始化的生成次数。
	GuestAllowance = 3
	// AccountAllowance 是注册账户建档时初始化的生成次数。
	AccountAllowance = 5

	guestKeyPrefix = "inks-guest-credits"
)

// ErrInsufficientCredits 表示余额不足以支付一次生成。
var ErrInsufficientCredits = errors.New("insufficient credits")

// Identity 标识一次请求的归属：已登录用户或访客。
// UserID 非零时为账户身份，否则按 GuestKey 归属访客。
type Identity struct {
	UserID   uint
	GuestKey string
}

// IsGuest 判断身份是否为访客。
func (i Identity) IsGuest() bool {
	return i.UserID == 0
}

// Valid 判断身份是否可用于记账。
func (i Identity) Valid() bool {
	return i.UserID > 0 || strings.TrimSpace(i.GuestKey) != ""
}

// Ledger 维护每个身份的剩余生成次数。
// 账户余额存放在用户表的 credits 列，访客余额存放在本地键值存储。
type Ledger struct {
	repo   model.Repository
	guests *localstore.Store
}

// NewLedger 创建积分账本。
func NewLedger(repo model.Repository, guests *localstore.Store) *Ledger {
	return &Ledger{repo: repo, guests: guests}
}

// Balance 返回身份当前的剩余次数。访客首次查询时按 GuestAllowance 初始化。
func (l *Ledger) Balance(ctx context.Context, id Identity) (int, error) {
	if l == nil {
		return 0, fmt.Errorf("ledger not initialised")
	}
	if !id.Valid() {
		return 0, fmt.Errorf("invalid identity")
	}

	if id.IsGuest() {
		return l.guestBalance(id.GuestKey)
	}

	user, err := l.repo.GetUserByID(ctx, id.UserID)
	if err != nil {
		return 0, fmt.Errorf("load user credits: %w", err)
	}
	return user.Credits, nil
}

// CanConsume 判断身份是否还可以发起一次生成。
func (l *Ledger) CanConsume(ctx context.Context, id Identity) (bool, error) {
	balance, err := l.Balance(ctx, id)
	if err != nil {
		return false, err
	}
	return balance >= 1, nil
}

// Consume 扣减一次生成并持久化，返回新的余额。
// 余额不足时返回 ErrInsufficientCredits；持久化失败时不扣减内存值。
func (l *Ledger) Consume(ctx context.Context, id Identity) (int, error) {
	balance, err := l.Balance(ctx, id)
	if err != nil {
		return 0, err
	}
	if balance < 1 {
		return balance, ErrInsufficientCredits
	}

	newBalance := balance - 1

	if id.IsGuest() {
		if err := l.guests.Put(guestStoreKey(id.GuestKey), strconv.Itoa(newBalance)); err != nil {
			return balance, fmt.Errorf("persist guest credits: %w", err)
		}
	} else {
		if err := l.repo.UpdateUserCredits(ctx, id.UserID, newBalance); err != nil {
			return balance, fmt.Errorf("persist user credits: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"user_id":     id.UserID,
		"guest":       id.IsGuest(),
		"new_balance": newBalance,
	}).Info("credits_consumed")

	return newBalance, nil
}

// guestBalance 读取访客余额，键不存在时初始化为 GuestAllowance 并写回。
func (l *Ledger) guestBalance(guestKey string) (int, error) {
	if l.guests == nil {
		return 0, fmt.Errorf("guest store not configured")
	}

	key := guestStoreKey(guestKey)
	raw, found, err := l.guests.Get(key)
	if err != nil {
		return 0, fmt.Errorf("read guest credits: %w", err)
	}
	if !found {
		if err := l.guests.Put(key, strconv.Itoa(GuestAllowance)); err != nil {
			return 0, fmt.Errorf("initialise guest credits: %w", err)
		}
		return GuestAllowance, nil
	}

	balance, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("corrupt guest credits value %q: %w", raw, err)
	}
	if balance < 0 {
		balance = 0
	}
	return balance, nil
}

func guestStoreKey(guestKey string) string {
	return guestKeyPrefix + "-" + strings.TrimSpace(guestKey)
}
