package promocodes

import (
	"time"

	"github.com/google/uuid"
)

// PromoType determines how a promocode's amount is interpreted
type PromoType string

const (
	PromoTypePercentage  PromoType = "PERCENTAGE"
	PromoTypeFixedAmount PromoType = "FIXED_AMOUNT"
)

// PromoStatus is the lifecycle state of a promocode
type PromoStatus string

const (
	PromoStatusActive   PromoStatus = "ACTIVE"
	PromoStatusInactive PromoStatus = "INACTIVE"
	// Derived states, reported but never stored
	PromoStatusExpired  PromoStatus = "EXPIRED"
	PromoStatusDepleted PromoStatus = "DEPLETED"
)

// UsageStatus is the state of a redemption record
type UsageStatus string

const (
	// UsageStatusApplied is the only state written today; REVERSED and FAILED
	// are reserved for a future reversal flow
	UsageStatusApplied UsageStatus = "APPLIED"
)

// BalanceType distinguishes per-user accounts
type BalanceType string

const (
	BalanceTypeMain  BalanceType = "MAIN"
	BalanceTypeBonus BalanceType = "BONUS"
)

// Promocode represents a promotional bonus code. Code is immutable once
// issued; only status and max_uses may change afterwards.
type Promocode struct {
	ID               uuid.UUID   `json:"id"`
	Code             string      `json:"code"`
	Type             PromoType   `json:"type"`
	Amount           float64     `json:"amount"`
	Status           PromoStatus `json:"status"`
	MinDepositAmount float64     `json:"min_deposit_amount"`
	ValidFrom        *time.Time  `json:"valid_from,omitempty"`
	ValidUntil       *time.Time  `json:"valid_until,omitempty"`
	MaxUses          int         `json:"max_uses"` // 0 means unlimited
	CreatedBy        uuid.UUID   `json:"created_by"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// EffectiveStatus derives EXPIRED and DEPLETED from the validity window and
// usage count without mutating stored state.
func (p *Promocode) EffectiveStatus(now time.Time, totalUses int) PromoStatus {
	if p.Status != PromoStatusActive {
		return p.Status
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return PromoStatusExpired
	}
	if p.MaxUses > 0 && totalUses >= p.MaxUses {
		return PromoStatusDepleted
	}
	return PromoStatusActive
}

// PromocodeUsage is the immutable audit record of one successful redemption.
// At most one exists per (user, promocode) pair.
type PromocodeUsage struct {
	ID          uuid.UUID   `json:"id"`
	PromocodeID uuid.UUID   `json:"promocode_id"`
	UserID      uuid.UUID   `json:"user_id"`
	BalanceID   uuid.UUID   `json:"balance_id"`
	BonusAmount float64     `json:"bonus_amount"`
	Status      UsageStatus `json:"status"`
	UsedAt      time.Time   `json:"used_at"`
}

// Balance is a per-user, per-type account. This service only ever increments
// it.
type Balance struct {
	ID        uuid.UUID   `json:"id"`
	UserID    uuid.UUID   `json:"user_id"`
	Type      BalanceType `json:"type"`
	Amount    float64     `json:"amount"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// User is the identity record; the engine only needs existence and role.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// CreatePromocodeInput carries the authoring request for a new promocode
type CreatePromocodeInput struct {
	Code             string     `json:"code" validate:"required,promo_code"`
	Type             string     `json:"type" validate:"required,promo_type"`
	Amount           float64    `json:"amount" validate:"gte=0"`
	Status           string     `json:"status" validate:"omitempty,promo_status"`
	MinDepositAmount float64    `json:"min_deposit_amount" validate:"gte=0"`
	ValidFrom        *time.Time `json:"valid_from"`
	ValidUntil       *time.Time `json:"valid_until"`
	MaxUses          *int       `json:"max_uses" validate:"omitempty,gte=0"`
	CreatedBy        uuid.UUID  `json:"-"`
}

// RedemptionResult is returned to the caller on a successful redemption
type RedemptionResult struct {
	Granted     bool      `json:"granted"`
	BonusAmount float64   `json:"bonus_amount"`
	PromocodeID uuid.UUID `json:"promocode_id"`
	UsageID     uuid.UUID `json:"usage_id"`
	BalanceID   uuid.UUID `json:"balance_id"`
}

// UsageStats aggregates redemption activity for one promocode
type UsageStats struct {
	PromocodeID uuid.UUID  `json:"promocode_id"`
	TotalUses   int        `json:"total_uses"`
	UniqueUsers int        `json:"unique_users"`
	TotalBonus  float64    `json:"total_bonus"`
	FirstUsedAt *time.Time `json:"first_used_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}
