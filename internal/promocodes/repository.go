package promocodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles database operations for promocodes, usages and balances
type Repository struct {
	db *pgxpool.Pool
}

// Ensure Repository implements PromocodesRepository.
var _ PromocodesRepository = (*Repository)(nil)

// NewRepository creates a new promocodes repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const promocodeColumns = `id, code, type, amount, status, min_deposit_amount,
	valid_from, valid_until, max_uses, created_by, created_at, updated_at`

func scanPromocode(row pgx.Row) (*Promocode, error) {
	promo := &Promocode{}
	err := row.Scan(
		&promo.ID,
		&promo.Code,
		&promo.Type,
		&promo.Amount,
		&promo.Status,
		&promo.MinDepositAmount,
		&promo.ValidFrom,
		&promo.ValidUntil,
		&promo.MaxUses,
		&promo.CreatedBy,
		&promo.CreatedAt,
		&promo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return promo, nil
}

// CreatePromocode persists a new promocode. The codes unique index turns a
// collision into ErrDuplicateCode.
func (r *Repository) CreatePromocode(ctx context.Context, promo *Promocode) error {
	query := `
		INSERT INTO promocodes (id, code, type, amount, status, min_deposit_amount,
			valid_from, valid_until, max_uses, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	promo.ID = uuid.New()
	now := time.Now()
	promo.CreatedAt = now
	promo.UpdatedAt = now

	_, err := r.db.Exec(ctx, query,
		promo.ID,
		promo.Code,
		promo.Type,
		promo.Amount,
		promo.Status,
		promo.MinDepositAmount,
		promo.ValidFrom,
		promo.ValidUntil,
		promo.MaxUses,
		promo.CreatedBy,
		promo.CreatedAt,
		promo.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return transientErr("create promocode", err)
	}

	return nil
}

// GetPromocodeByCode retrieves a promocode by its code (case-sensitive)
func (r *Repository) GetPromocodeByCode(ctx context.Context, code string) (*Promocode, error) {
	query := fmt.Sprintf(`SELECT %s FROM promocodes WHERE code = $1`, promocodeColumns)

	promo, err := scanPromocode(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPromocodeNotFound
		}
		return nil, transientErr("get promocode by code", err)
	}

	return promo, nil
}

// GetPromocodeByID retrieves a promocode by ID
func (r *Repository) GetPromocodeByID(ctx context.Context, id uuid.UUID) (*Promocode, error) {
	query := fmt.Sprintf(`SELECT %s FROM promocodes WHERE id = $1`, promocodeColumns)

	promo, err := scanPromocode(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPromocodeNotFound
		}
		return nil, transientErr("get promocode by id", err)
	}

	return promo, nil
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT id, email, role, created_at FROM users WHERE id = $1`

	user := &User{}
	err := r.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.Email, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, transientErr("get user", err)
	}

	return user, nil
}

// HasUsage reports whether the user has already redeemed the promocode
func (r *Repository) HasUsage(ctx context.Context, userID, promocodeID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM promocode_usages WHERE user_id = $1 AND promocode_id = $2)`

	var exists bool
	err := r.db.QueryRow(ctx, query, userID, promocodeID).Scan(&exists)
	if err != nil {
		return false, transientErr("check promocode usage", err)
	}

	return exists, nil
}

// CountUsages returns the number of successful redemptions of a promocode
func (r *Repository) CountUsages(ctx context.Context, promocodeID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM promocode_usages WHERE promocode_id = $1`

	var count int
	err := r.db.QueryRow(ctx, query, promocodeID).Scan(&count)
	if err != nil {
		return 0, transientErr("count promocode usages", err)
	}

	return count, nil
}

// GetBalance retrieves a user's balance of the given type
func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID, balanceType BalanceType) (*Balance, error) {
	query := `SELECT id, user_id, type, amount, updated_at FROM balances WHERE user_id = $1 AND type = $2`

	balance := &Balance{}
	err := r.db.QueryRow(ctx, query, userID, balanceType).Scan(
		&balance.ID,
		&balance.UserID,
		&balance.Type,
		&balance.Amount,
		&balance.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBalanceNotFound
		}
		return nil, transientErr("get balance", err)
	}

	return balance, nil
}

// ApplyRedemption performs the grant-and-record step as one transaction:
// the promocode row is locked to serialize max_uses accounting, the balance
// is incremented, and the usage record is inserted. The unique index on
// (user_id, promocode_id) closes the check-then-act race across instances.
func (r *Repository) ApplyRedemption(ctx context.Context, promo *Promocode, userID, balanceID uuid.UUID, bonusAmount float64) (*PromocodeUsage, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, transientErr("begin redemption", err)
	}
	defer tx.Rollback(ctx)

	// Lock the promocode row so concurrent redemptions of the same code
	// observe max_uses one at a time
	var maxUses int
	err = tx.QueryRow(ctx, `SELECT max_uses FROM promocodes WHERE id = $1 FOR UPDATE`, promo.ID).Scan(&maxUses)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPromocodeNotFound
		}
		return nil, transientErr("lock promocode", err)
	}

	if maxUses > 0 {
		var used int
		err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM promocode_usages WHERE promocode_id = $1`, promo.ID).Scan(&used)
		if err != nil {
			return nil, transientErr("count usages in redemption", err)
		}
		if used >= maxUses {
			return nil, ErrUsageLimitExceeded
		}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE balances SET amount = amount + $2, updated_at = NOW() WHERE id = $1`,
		balanceID, bonusAmount,
	)
	if err != nil {
		return nil, transientErr("increment balance", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrBalanceNotFound
	}

	usage := &PromocodeUsage{
		ID:          uuid.New(),
		PromocodeID: promo.ID,
		UserID:      userID,
		BalanceID:   balanceID,
		BonusAmount: bonusAmount,
		Status:      UsageStatusApplied,
		UsedAt:      time.Now(),
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO promocode_usages (id, promocode_id, user_id, balance_id, bonus_amount, status, used_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		usage.ID,
		usage.PromocodeID,
		usage.UserID,
		usage.BalanceID,
		usage.BonusAmount,
		usage.Status,
		usage.UsedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyUsed
		}
		return nil, transientErr("insert usage", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, transientErr("commit redemption", err)
	}

	return usage, nil
}

// GetUsageHistory retrieves a user's redemptions, most recent first
func (r *Repository) GetUsageHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*PromocodeUsage, int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM promocode_usages WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, transientErr("count usage history", err)
	}

	query := `
		SELECT id, promocode_id, user_id, balance_id, bonus_amount, status, used_at
		FROM promocode_usages
		WHERE user_id = $1
		ORDER BY used_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, transientErr("get usage history", err)
	}
	defer rows.Close()

	usages := []*PromocodeUsage{}
	for rows.Next() {
		usage := &PromocodeUsage{}
		err := rows.Scan(
			&usage.ID,
			&usage.PromocodeID,
			&usage.UserID,
			&usage.BalanceID,
			&usage.BonusAmount,
			&usage.Status,
			&usage.UsedAt,
		)
		if err != nil {
			return nil, 0, transientErr("scan usage", err)
		}
		usages = append(usages, usage)
	}

	return usages, total, nil
}

// ListPromocodes retrieves all promocodes with pagination, newest first
func (r *Repository) ListPromocodes(ctx context.Context, limit, offset int) ([]*Promocode, int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM promocodes`).Scan(&total)
	if err != nil {
		return nil, 0, transientErr("count promocodes", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM promocodes
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, promocodeColumns)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, transientErr("list promocodes", err)
	}
	defer rows.Close()

	promos := []*Promocode{}
	for rows.Next() {
		promo, err := scanPromocode(rows)
		if err != nil {
			return nil, 0, transientErr("scan promocode", err)
		}
		promos = append(promos, promo)
	}

	return promos, total, nil
}

// DeactivatePromocode flips a promocode to INACTIVE
func (r *Repository) DeactivatePromocode(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE promocodes SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, PromoStatusInactive,
	)
	if err != nil {
		return transientErr("deactivate promocode", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPromocodeNotFound
	}

	return nil
}

// GetUsageStats aggregates redemption activity for one promocode
func (r *Repository) GetUsageStats(ctx context.Context, promocodeID uuid.UUID) (*UsageStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_uses,
			COUNT(DISTINCT user_id) AS unique_users,
			COALESCE(SUM(bonus_amount), 0) AS total_bonus,
			MIN(used_at) AS first_used_at,
			MAX(used_at) AS last_used_at
		FROM promocode_usages
		WHERE promocode_id = $1
	`

	stats := &UsageStats{PromocodeID: promocodeID}
	err := r.db.QueryRow(ctx, query, promocodeID).Scan(
		&stats.TotalUses,
		&stats.UniqueUsers,
		&stats.TotalBonus,
		&stats.FirstUsedAt,
		&stats.LastUsedAt,
	)
	if err != nil {
		return nil, transientErr("get usage stats", err)
	}

	return stats, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
