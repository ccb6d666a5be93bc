package promocodes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/playvault/bonus-service/pkg/cache"
	"github.com/playvault/bonus-service/pkg/logger"
	"github.com/playvault/bonus-service/pkg/validation"
)

// DefaultMaxUses applies when a new promocode does not specify a usage cap.
const DefaultMaxUses = 1

// PromocodesRepository defines the storage operations required by the service.
type PromocodesRepository interface {
	CreatePromocode(ctx context.Context, promo *Promocode) error
	GetPromocodeByCode(ctx context.Context, code string) (*Promocode, error)
	GetPromocodeByID(ctx context.Context, id uuid.UUID) (*Promocode, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	HasUsage(ctx context.Context, userID, promocodeID uuid.UUID) (bool, error)
	CountUsages(ctx context.Context, promocodeID uuid.UUID) (int, error)
	GetBalance(ctx context.Context, userID uuid.UUID, balanceType BalanceType) (*Balance, error)
	ApplyRedemption(ctx context.Context, promo *Promocode, userID, balanceID uuid.UUID, bonusAmount float64) (*PromocodeUsage, error)
	GetUsageHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*PromocodeUsage, int64, error)
	ListPromocodes(ctx context.Context, limit, offset int) ([]*Promocode, int64, error)
	DeactivatePromocode(ctx context.Context, id uuid.UUID) error
	GetUsageStats(ctx context.Context, promocodeID uuid.UUID) (*UsageStats, error)
}

// Service is the redemption engine: it decides eligibility, computes the
// bonus, and delegates the atomic grant-and-record step to the repository.
type Service struct {
	repo  PromocodesRepository
	cache *cache.Manager
	now   func() time.Time
}

// NewService creates a new promocodes service
func NewService(repo PromocodesRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetCache sets an optional cache manager for read-heavy operations.
func (s *Service) SetCache(cm *cache.Manager) {
	s.cache = cm
}

// Create persists a new promocode after validating the authoring input.
// Fails with ErrDuplicateCode on a code collision and ErrAdminNotFound when
// the issuing admin does not resolve.
func (s *Service) Create(ctx context.Context, input *CreatePromocodeInput) (*Promocode, error) {
	if err := validation.ValidateStruct(input); err != nil {
		return nil, err
	}

	if input.ValidFrom != nil && input.ValidUntil != nil && input.ValidFrom.After(*input.ValidUntil) {
		validationErr := &validation.ValidationError{}
		validationErr.AddError("valid_from", "must not be after valid_until")
		return nil, validationErr
	}

	if _, err := s.repo.GetUserByID(ctx, input.CreatedBy); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}

	status := PromoStatus(input.Status)
	if status == "" {
		status = PromoStatusActive
	}

	maxUses := DefaultMaxUses
	if input.MaxUses != nil {
		maxUses = *input.MaxUses
	}

	promo := &Promocode{
		Code:             input.Code,
		Type:             PromoType(input.Type),
		Amount:           input.Amount,
		Status:           status,
		MinDepositAmount: input.MinDepositAmount,
		ValidFrom:        input.ValidFrom,
		ValidUntil:       input.ValidUntil,
		MaxUses:          maxUses,
		CreatedBy:        input.CreatedBy,
	}

	if err := s.repo.CreatePromocode(ctx, promo); err != nil {
		return nil, err
	}

	promocodesCreatedTotal.Inc()
	logger.InfoContext(ctx, "promocode created",
		zap.String("promocode_id", promo.ID.String()),
		zap.String("code", promo.Code),
		zap.String("type", string(promo.Type)),
	)

	return promo, nil
}

// Redeem grants a promocode's bonus to the user's MAIN balance. Eligibility
// rules run in a fixed order so each failure surfaces its own kind; the
// final grant-and-record step is atomic and re-checks uniqueness and the
// usage cap under lock.
func (s *Service) Redeem(ctx context.Context, userID uuid.UUID, code string) (result *RedemptionResult, err error) {
	defer func() { recordRedemption(err) }()

	if _, err = s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	promo, err := s.repo.GetPromocodeByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err = s.checkEligibility(ctx, promo, userID); err != nil {
		return nil, err
	}

	balance, err := s.repo.GetBalance(ctx, userID, BalanceTypeMain)
	if err != nil {
		return nil, err
	}

	bonus := bonusAmount(promo)

	usage, err := s.repo.ApplyRedemption(ctx, promo, userID, balance.ID, bonus)
	if err != nil {
		return nil, err
	}

	bonusGrantedTotal.Add(bonus)
	logger.InfoContext(ctx, "promocode redeemed",
		zap.String("promocode_id", promo.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Float64("bonus_amount", bonus),
	)

	return &RedemptionResult{
		Granted:     true,
		BonusAmount: bonus,
		PromocodeID: promo.ID,
		UsageID:     usage.ID,
		BalanceID:   balance.ID,
	}, nil
}

// checkEligibility applies the ordered pre-grant rules. The duplicate-use and
// usage-cap reads here give precise errors on the common path; the repository
// re-enforces both inside the redemption transaction.
func (s *Service) checkEligibility(ctx context.Context, promo *Promocode, userID uuid.UUID) error {
	if promo.Status != PromoStatusActive {
		return ErrPromocodeInactive
	}

	now := s.now()
	if promo.ValidFrom != nil && now.Before(*promo.ValidFrom) {
		return ErrPromocodeNotYetValid
	}
	if promo.ValidUntil != nil && now.After(*promo.ValidUntil) {
		return ErrPromocodeExpired
	}

	used, err := s.repo.HasUsage(ctx, userID, promo.ID)
	if err != nil {
		return err
	}
	if used {
		return ErrAlreadyUsed
	}

	if promo.MaxUses > 0 {
		count, err := s.repo.CountUsages(ctx, promo.ID)
		if err != nil {
			return err
		}
		if count >= promo.MaxUses {
			return ErrUsageLimitExceeded
		}
	}

	return nil
}

// bonusAmount computes the credit for a promocode. PERCENTAGE codes grant the
// raw amount: there is no deposit base to apply the rate against yet.
func bonusAmount(promo *Promocode) float64 {
	if promo.Amount < 0 {
		return 0
	}
	return promo.Amount
}

// FindByCode retrieves a promocode by its code, cached briefly when a cache
// manager is configured.
func (s *Service) FindByCode(ctx context.Context, code string) (*Promocode, error) {
	if s.cache != nil {
		var cached Promocode
		err := s.cache.GetOrSet(ctx, cache.Keys.Promocode(code), cache.TTL.Short(), &cached, func() (interface{}, error) {
			return s.repo.GetPromocodeByCode(ctx, code)
		})
		if err == nil {
			return &cached, nil
		}
		if errors.Is(err, ErrPromocodeNotFound) {
			return nil, err
		}
		// Fall through to storage on cache errors
	}

	return s.repo.GetPromocodeByCode(ctx, code)
}

// GetHistory returns the user's redemptions ordered by used_at descending.
func (s *Service) GetHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*PromocodeUsage, int64, error) {
	return s.repo.GetUsageHistory(ctx, userID, limit, offset)
}

// ListPromocodes retrieves all promocodes with pagination.
func (s *Service) ListPromocodes(ctx context.Context, limit, offset int) ([]*Promocode, int64, error) {
	return s.repo.ListPromocodes(ctx, limit, offset)
}

// GetPromocodeByID retrieves a single promocode.
func (s *Service) GetPromocodeByID(ctx context.Context, id uuid.UUID) (*Promocode, error) {
	return s.repo.GetPromocodeByID(ctx, id)
}

// Deactivate flips a promocode to INACTIVE and drops its cache entry.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	promo, err := s.repo.GetPromocodeByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeactivatePromocode(ctx, id); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, cache.Keys.Promocode(promo.Code)); err != nil {
			logger.WarnContext(ctx, "failed to invalidate promocode cache",
				zap.String("code", promo.Code), zap.Error(err))
		}
	}

	logger.InfoContext(ctx, "promocode deactivated",
		zap.String("promocode_id", id.String()),
		zap.String("code", promo.Code),
	)

	return nil
}

// GetUsageStats aggregates redemption activity for one promocode.
func (s *Service) GetUsageStats(ctx context.Context, promocodeID uuid.UUID) (*UsageStats, error) {
	if _, err := s.repo.GetPromocodeByID(ctx, promocodeID); err != nil {
		return nil, err
	}
	return s.repo.GetUsageStats(ctx, promocodeID)
}
