package promocodes

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/playvault/bonus-service/pkg/validation"
)

type mockPromocodesRepository struct {
	mock.Mock
}

func (m *mockPromocodesRepository) CreatePromocode(ctx context.Context, promo *Promocode) error {
	args := m.Called(ctx, promo)
	return args.Error(0)
}

func (m *mockPromocodesRepository) GetPromocodeByCode(ctx context.Context, code string) (*Promocode, error) {
	args := m.Called(ctx, code)
	promo, _ := args.Get(0).(*Promocode)
	return promo, args.Error(1)
}

func (m *mockPromocodesRepository) GetPromocodeByID(ctx context.Context, id uuid.UUID) (*Promocode, error) {
	args := m.Called(ctx, id)
	promo, _ := args.Get(0).(*Promocode)
	return promo, args.Error(1)
}

func (m *mockPromocodesRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*User)
	return user, args.Error(1)
}

func (m *mockPromocodesRepository) HasUsage(ctx context.Context, userID, promocodeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, promocodeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockPromocodesRepository) CountUsages(ctx context.Context, promocodeID uuid.UUID) (int, error) {
	args := m.Called(ctx, promocodeID)
	return args.Int(0), args.Error(1)
}

func (m *mockPromocodesRepository) GetBalance(ctx context.Context, userID uuid.UUID, balanceType BalanceType) (*Balance, error) {
	args := m.Called(ctx, userID, balanceType)
	balance, _ := args.Get(0).(*Balance)
	return balance, args.Error(1)
}

func (m *mockPromocodesRepository) ApplyRedemption(ctx context.Context, promo *Promocode, userID, balanceID uuid.UUID, bonusAmount float64) (*PromocodeUsage, error) {
	args := m.Called(ctx, promo, userID, balanceID, bonusAmount)
	usage, _ := args.Get(0).(*PromocodeUsage)
	return usage, args.Error(1)
}

func (m *mockPromocodesRepository) GetUsageHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*PromocodeUsage, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	usages, _ := args.Get(0).([]*PromocodeUsage)
	return usages, args.Get(1).(int64), args.Error(2)
}

func (m *mockPromocodesRepository) ListPromocodes(ctx context.Context, limit, offset int) ([]*Promocode, int64, error) {
	args := m.Called(ctx, limit, offset)
	promos, _ := args.Get(0).([]*Promocode)
	return promos, args.Get(1).(int64), args.Error(2)
}

func (m *mockPromocodesRepository) DeactivatePromocode(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPromocodesRepository) GetUsageStats(ctx context.Context, promocodeID uuid.UUID) (*UsageStats, error) {
	args := m.Called(ctx, promocodeID)
	stats, _ := args.Get(0).(*UsageStats)
	return stats, args.Error(1)
}

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(repo PromocodesRepository) *Service {
	service := NewService(repo)
	service.now = func() time.Time { return testNow }
	return service
}

func activeFixedPromo(amount float64) *Promocode {
	from := testNow.Add(-24 * time.Hour)
	until := testNow.Add(24 * time.Hour)
	return &Promocode{
		ID:         uuid.New(),
		Code:       "WELCOME50",
		Type:       PromoTypeFixedAmount,
		Amount:     amount,
		Status:     PromoStatusActive,
		ValidFrom:  &from,
		ValidUntil: &until,
		MaxUses:    10,
		CreatedBy:  uuid.New(),
	}
}

func testUser(id uuid.UUID) *User {
	return &User{ID: id, Email: "player@example.com", Role: "user"}
}

func testBalance(userID uuid.UUID) *Balance {
	return &Balance{ID: uuid.New(), UserID: userID, Type: BalanceTypeMain, Amount: 100}
}

// --- Redeem ---

func TestRedeemFixedAmountSuccess(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()
	promo := activeFixedPromo(50)
	balance := testBalance(userID)
	usage := &PromocodeUsage{ID: uuid.New(), PromocodeID: promo.ID, UserID: userID, BonusAmount: 50}

	repo.On("GetUserByID", ctx, userID).Return(testUser(userID), nil).Once()
	repo.On("GetPromocodeByCode", ctx, "WELCOME50").Return(promo, nil).Once()
	repo.On("HasUsage", ctx, userID, promo.ID).Return(false, nil).Once()
	repo.On("CountUsages", ctx, promo.ID).Return(3, nil).Once()
	repo.On("GetBalance", ctx, userID, BalanceTypeMain).Return(balance, nil).Once()
	repo.On("ApplyRedemption", ctx, promo, userID, balance.ID, 50.0).Return(usage, nil).Once()

	result, err := service.Redeem(ctx, userID, "WELCOME50")
	assert.NoError(t, err)
	assert.True(t, result.Granted)
	assert.InDelta(t, 50.0, result.BonusAmount, 0.0001)
	assert.Equal(t, promo.ID, result.PromocodeID)
	assert.Equal(t, usage.ID, result.UsageID)
	repo.AssertExpectations(t)
}

func TestRedeemPercentageGrantsRawAmount(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()
	promo := activeFixedPromo(25)
	promo.Type = PromoTypePercentage
	balance := testBalance(userID)

	repo.On("GetUserByID", ctx, userID).Return(testUser(userID), nil).Once()
	repo.On("GetPromocodeByCode", ctx, "WELCOME50").Return(promo, nil).Once()
	repo.On("HasUsage", ctx, userID, promo.ID).Return(false, nil).Once()
	repo.On("CountUsages", ctx, promo.ID).Return(0, nil).Once()
	repo.On("GetBalance", ctx, userID, BalanceTypeMain).Return(balance, nil).Once()
	repo.On("ApplyRedemption", ctx, promo, userID, balance.ID, 25.0).
		Return(&PromocodeUsage{ID: uuid.New(), BonusAmount: 25}, nil).Once()

	result, err := service.Redeem(ctx, userID, "WELCOME50")
	assert.NoError(t, err)
	assert.InDelta(t, 25.0, result.BonusAmount, 0.0001)
	repo.AssertExpectations(t)
}

func TestRedeemUserNotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()

	repo.On("GetUserByID", ctx, userID).Return(nil, ErrUserNotFound).Once()

	result, err := service.Redeem(ctx, userID, "WELCOME50")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Nil(t, result)
	repo.AssertExpectations(t)
}

func TestRedeemPromocodeNotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()

	repo.On("GetUserByID", ctx, userID).Return(testUser(userID), nil).Once()
	repo.On("GetPromocodeByCode", ctx, "MISSING").Return(nil, ErrPromocodeNotFound).Once()

	result, err := service.Redeem(ctx, userID, "MISSING")
	assert.ErrorIs(t, err, ErrPromocodeNotFound)
	assert.Nil(t, result)
	repo.AssertExpectations(t)
}

func TestRedeemInactivePromocode(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()
	promo := activeFixedPromo(50)
	promo.Status = PromoStatusInactive

	repo.On("GetUserByID", ctx, userID).Return(testUser(userID), nil).Once()
	repo.On("GetPromocodeByCode", ctx, "WELCOME50").Return(promo, nil).Once()

	result, err := service.Redeem(ctx, userID, "WELCOME50")
	assert.ErrorIs(t, err, ErrPromocodeInactive)
	assert.Nil(t, result)
	repo.AssertExpectations(t)
}

func TestRedeemBeforeValidFrom(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()
	promo := activeFixedPromo(50)
	from := testNow.Add(time.Hour)
	promo.ValidFrom = &from

	repo.On("GetUserByID", ctx, userID).Return(testUser(userID), nil).Once()
	repo.On("GetPromocodeByCode", ctx, "WELCOME50").Return(promo, nil).Once()

	result, err := service.Redeem(ctx, userID, "WELCOME50")
	assert.ErrorIs(t, err, ErrPromocodeNotYetValid)
	assert.Nil(t, result)
	repo.AssertExpectations(t)
}

func TestRedeemExactlyAtValidFromSucceeds(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()
	promo := activeFixedPromo(50)
	from := testNow
	promo.ValidFrom = &from
	balance := testBalance(userID)

	repo.On("GetUserByID", ctx, userID).Return(testUser(userID), nil).Once()
	repo.On("GetPromocodeByCode", ctx, "WELCOME50").Return(promo, nil).Once()
	repo.On("HasUsage", ctx, userID, promo.ID).Return(false, nil).Once()
	repo.On("CountUsages", ctx, promo.ID).Return(0, nil).Once()
	repo.On("GetBalance", ctx, userID, BalanceTypeMain).Return(balance, nil).Once()
	repo.On("ApplyRedemption", ctx, promo, userID, balance.ID, 50.0).
		Return(&PromocodeUsage{ID: uuid.New()}, nil).Once()

	_, err := service.Redeem(ctx, userID, "WELCOME50")
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRedeemAfterValidUntil(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()
	promo := activeFixedPromo(50)
	until := testNow.Add(-time.Second)
	promo.ValidUntil = &until

	repo.On("GetUserByID", ctx, userID).Return(testUser(userID), nil).Once()
	repo.On("GetPromocodeByCode", ctx, "WELCOME50").Return(promo, nil).Once()

	result, err := service.Redeem(ctx, userID, "WELCOME50")
	assert.ErrorIs(t, err, ErrPromocodeExpired)
	assert.Nil(t, result)
	repo.AssertExpectations(t)
}

func TestRedeemExactlyAtValidUntilSucceeds(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()
	promo := activeFixedPromo(50)
	until := testNow
	promo.ValidUntil = &until
	balance := testBalance(userID)

	repo.On("GetUserByID", ctx, userID).Return(testUser(userID), nil).Once()
	repo.On("GetPromocodeByCode", ctx, "WELCOME50").Return(promo, nil).Once()
	repo.On("HasUsage", ctx, userID, promo.ID).Return(false, nil).Once()
	repo.On("CountUsages", ctx, promo.ID).Return(0, nil).Once()
	repo.On("GetBalance", ctx, userID, BalanceTypeMain).Return(balance, nil).Once()
	repo.On("ApplyRedemption", ctx, promo, userID, balance.ID, 50.0).
		Return(&PromocodeUsage{ID: uuid.New()}, nil).Once()

	_, err := service.Redeem(ctx, userID, "WELCOME50")
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRedeemAlreadyUsed(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()
	promo := activeFixedPromo(50)

	repo.On("GetUserByID", ctx, userID).Return(testUser(userID), nil).Once()
	repo.On("GetPromocodeByCode", ctx, "WELCOME50").Return(promo, nil).Once()
	repo.On("HasUsage", ctx, userID, promo.ID).Return(true, nil).Once()

	result, err := service.Redeem(ctx, userID, "WELCOME50")
	assert.ErrorIs(t, err, ErrAlreadyUsed)
	assert.Nil(t, result)
	repo.AssertExpectations(t)
}

func TestRedeemUsageLimitExceeded(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()
	promo := activeFixedPromo(50)
	promo.MaxUses = 2

	repo.On("GetUserByID", ctx, userID).Return(testUser(userID), nil).Once()
	repo.On("GetPromocodeByCode", ctx, "WELCOME50").Return(promo, nil).Once()
	repo.On("HasUsage", ctx, userID, promo.ID).Return(false, nil).Once()
	repo.On("CountUsages", ctx, promo.ID).Return(2, nil).Once()

	result, err := service.Redeem(ctx, userID, "WELCOME50")
	assert.ErrorIs(t, err, ErrUsageLimitExceeded)
	assert.Nil(t, result)
	repo.AssertExpectations(t)
}

func TestRedeemUnlimitedUsesSkipsCount(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()
	promo := activeFixedPromo(50)
	promo.MaxUses = 0
	balance := testBalance(userID)

	repo.On("GetUserByID", ctx, userID).Return(testUser(userID), nil).Once()
	repo.On("GetPromocodeByCode", ctx, "WELCOME50").Return(promo, nil).Once()
	repo.On("HasUsage", ctx, userID, promo.ID).Return(false, nil).Once()
	repo.On("GetBalance", ctx, userID, BalanceTypeMain).Return(balance, nil).Once()
	repo.On("ApplyRedemption", ctx, promo, userID, balance.ID, 50.0).
		Return(&PromocodeUsage{ID: uuid.New()}, nil).Once()

	_, err := service.Redeem(ctx, userID, "WELCOME50")
	assert.NoError(t, err)
	repo.AssertNotCalled(t, "CountUsages", ctx, promo.ID)
	repo.AssertExpectations(t)
}

func TestRedeemBalanceNotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()
	promo := activeFixedPromo(50)

	repo.On("GetUserByID", ctx, userID).Return(testUser(userID), nil).Once()
	repo.On("GetPromocodeByCode", ctx, "WELCOME50").Return(promo, nil).Once()
	repo.On("HasUsage", ctx, userID, promo.ID).Return(false, nil).Once()
	repo.On("CountUsages", ctx, promo.ID).Return(0, nil).Once()
	repo.On("GetBalance", ctx, userID, BalanceTypeMain).Return(nil, ErrBalanceNotFound).Once()

	result, err := service.Redeem(ctx, userID, "WELCOME50")
	assert.ErrorIs(t, err, ErrBalanceNotFound)
	assert.Nil(t, result)
	repo.AssertExpectations(t)
}

func TestRedeemLostRaceSurfacesAlreadyUsed(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()
	promo := activeFixedPromo(50)
	balance := testBalance(userID)

	repo.On("GetUserByID", ctx, userID).Return(testUser(userID), nil).Once()
	repo.On("GetPromocodeByCode", ctx, "WELCOME50").Return(promo, nil).Once()
	repo.On("HasUsage", ctx, userID, promo.ID).Return(false, nil).Once()
	repo.On("CountUsages", ctx, promo.ID).Return(0, nil).Once()
	repo.On("GetBalance", ctx, userID, BalanceTypeMain).Return(balance, nil).Once()
	// A concurrent redemption hit the unique constraint first
	repo.On("ApplyRedemption", ctx, promo, userID, balance.ID, 50.0).Return(nil, ErrAlreadyUsed).Once()

	result, err := service.Redeem(ctx, userID, "WELCOME50")
	assert.ErrorIs(t, err, ErrAlreadyUsed)
	assert.Nil(t, result)
	repo.AssertExpectations(t)
}

func TestRedeemTransientStorageError(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()
	promo := activeFixedPromo(50)

	repo.On("GetUserByID", ctx, userID).Return(testUser(userID), nil).Once()
	repo.On("GetPromocodeByCode", ctx, "WELCOME50").Return(promo, nil).Once()
	repo.On("HasUsage", ctx, userID, promo.ID).
		Return(false, transientErr("check promocode usage", assert.AnError)).Once()

	result, err := service.Redeem(ctx, userID, "WELCOME50")
	assert.True(t, IsTransient(err))
	assert.Nil(t, result)
	repo.AssertExpectations(t)
}

// --- Create ---

func TestCreatePromocodeSuccess(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	adminID := uuid.New()

	repo.On("GetUserByID", ctx, adminID).Return(&User{ID: adminID, Role: "admin"}, nil).Once()
	repo.On("CreatePromocode", ctx, mock.MatchedBy(func(p *Promocode) bool {
		return p.Code == "SUMMER25" &&
			p.Type == PromoTypeFixedAmount &&
			p.Status == PromoStatusActive &&
			p.MaxUses == DefaultMaxUses
	})).Return(nil).Once()

	promo, err := service.Create(ctx, &CreatePromocodeInput{
		Code:      "SUMMER25",
		Type:      "FIXED_AMOUNT",
		Amount:    25,
		CreatedBy: adminID,
	})
	assert.NoError(t, err)
	assert.Equal(t, "SUMMER25", promo.Code)
	repo.AssertExpectations(t)
}

func TestCreatePromocodeDuplicateCode(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	adminID := uuid.New()

	repo.On("GetUserByID", ctx, adminID).Return(&User{ID: adminID, Role: "admin"}, nil).Once()
	repo.On("CreatePromocode", ctx, mock.Anything).Return(ErrDuplicateCode).Once()

	promo, err := service.Create(ctx, &CreatePromocodeInput{
		Code:      "SUMMER25",
		Type:      "FIXED_AMOUNT",
		Amount:    25,
		CreatedBy: adminID,
	})
	assert.ErrorIs(t, err, ErrDuplicateCode)
	assert.Nil(t, promo)
	repo.AssertExpectations(t)
}

func TestCreatePromocodeAdminNotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	adminID := uuid.New()

	repo.On("GetUserByID", ctx, adminID).Return(nil, ErrUserNotFound).Once()

	promo, err := service.Create(ctx, &CreatePromocodeInput{
		Code:      "SUMMER25",
		Type:      "FIXED_AMOUNT",
		Amount:    25,
		CreatedBy: adminID,
	})
	assert.ErrorIs(t, err, ErrAdminNotFound)
	assert.Nil(t, promo)
	repo.AssertExpectations(t)
}

func TestCreatePromocodeInvalidInput(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)

	promo, err := service.Create(ctx, &CreatePromocodeInput{
		Code:   "x",
		Type:   "DISCOUNT",
		Amount: -5,
	})
	assert.Error(t, err)
	assert.Nil(t, promo)
	repo.AssertNotCalled(t, "CreatePromocode", mock.Anything, mock.Anything)
}

func TestCreatePromocodeInvalidValidityWindow(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	from := testNow.Add(48 * time.Hour)
	until := testNow.Add(24 * time.Hour)

	promo, err := service.Create(ctx, &CreatePromocodeInput{
		Code:       "SUMMER25",
		Type:       "FIXED_AMOUNT",
		Amount:     25,
		ValidFrom:  &from,
		ValidUntil: &until,
		CreatedBy:  uuid.New(),
	})
	assert.Error(t, err)
	assert.Nil(t, promo)

	var validationErr *validation.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	repo.AssertNotCalled(t, "CreatePromocode", mock.Anything, mock.Anything)
}

func TestCreatePromocodeExplicitMaxUses(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	adminID := uuid.New()
	maxUses := 0 // unlimited

	repo.On("GetUserByID", ctx, adminID).Return(&User{ID: adminID, Role: "admin"}, nil).Once()
	repo.On("CreatePromocode", ctx, mock.MatchedBy(func(p *Promocode) bool {
		return p.MaxUses == 0
	})).Return(nil).Once()

	_, err := service.Create(ctx, &CreatePromocodeInput{
		Code:      "UNLIMITED",
		Type:      "FIXED_AMOUNT",
		Amount:    5,
		MaxUses:   &maxUses,
		CreatedBy: adminID,
	})
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

// --- Lookups ---

func TestFindByCodeWithoutCache(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	promo := activeFixedPromo(50)

	repo.On("GetPromocodeByCode", ctx, "WELCOME50").Return(promo, nil).Once()

	found, err := service.FindByCode(ctx, "WELCOME50")
	assert.NoError(t, err)
	assert.Equal(t, promo.ID, found.ID)
	repo.AssertExpectations(t)
}

func TestFindByCodeNotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)

	repo.On("GetPromocodeByCode", ctx, "MISSING").Return(nil, ErrPromocodeNotFound).Once()

	found, err := service.FindByCode(ctx, "MISSING")
	assert.ErrorIs(t, err, ErrPromocodeNotFound)
	assert.Nil(t, found)
	repo.AssertExpectations(t)
}

func TestGetHistory(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	userID := uuid.New()
	usages := []*PromocodeUsage{
		{ID: uuid.New(), UserID: userID, UsedAt: testNow},
		{ID: uuid.New(), UserID: userID, UsedAt: testNow.Add(-time.Hour)},
	}

	repo.On("GetUsageHistory", ctx, userID, 20, 0).Return(usages, int64(2), nil).Once()

	result, total, err := service.GetHistory(ctx, userID, 20, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, result, 2)
	assert.True(t, result[0].UsedAt.After(result[1].UsedAt))
	repo.AssertExpectations(t)
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	promo := activeFixedPromo(50)

	repo.On("GetPromocodeByID", ctx, promo.ID).Return(promo, nil).Once()
	repo.On("DeactivatePromocode", ctx, promo.ID).Return(nil).Once()

	err := service.Deactivate(ctx, promo.ID)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestGetUsageStatsUnknownPromocode(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPromocodesRepository)
	service := newTestService(repo)
	id := uuid.New()

	repo.On("GetPromocodeByID", ctx, id).Return(nil, ErrPromocodeNotFound).Once()

	stats, err := service.GetUsageStats(ctx, id)
	assert.ErrorIs(t, err, ErrPromocodeNotFound)
	assert.Nil(t, stats)
	repo.AssertNotCalled(t, "GetUsageStats", ctx, id)
	repo.AssertExpectations(t)
}

func TestEffectiveStatus(t *testing.T) {
	promo := activeFixedPromo(50)

	assert.Equal(t, PromoStatusActive, promo.EffectiveStatus(testNow, 0))

	past := testNow.Add(-time.Minute)
	promo.ValidUntil = &past
	assert.Equal(t, PromoStatusExpired, promo.EffectiveStatus(testNow, 0))

	promo = activeFixedPromo(50)
	promo.MaxUses = 3
	assert.Equal(t, PromoStatusDepleted, promo.EffectiveStatus(testNow, 3))

	promo.Status = PromoStatusInactive
	assert.Equal(t, PromoStatusInactive, promo.EffectiveStatus(testNow, 3))
}
