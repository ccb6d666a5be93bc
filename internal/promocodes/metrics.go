package promocodes

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	redemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promocode_redemptions_total",
		Help: "Total number of redemption attempts by outcome",
	}, []string{"outcome"})

	bonusGrantedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promocode_bonus_granted_total",
		Help: "Sum of bonus amounts credited to balances",
	})

	promocodesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promocodes_created_total",
		Help: "Total number of promocodes created",
	})
)

func recordRedemption(err error) {
	redemptionsTotal.WithLabelValues(redemptionOutcome(err)).Inc()
}

func redemptionOutcome(err error) string {
	switch {
	case err == nil:
		return "granted"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrPromocodeNotFound):
		return "not_found"
	case errors.Is(err, ErrPromocodeInactive):
		return "inactive"
	case errors.Is(err, ErrPromocodeNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, ErrPromocodeExpired):
		return "expired"
	case errors.Is(err, ErrAlreadyUsed):
		return "already_used"
	case errors.Is(err, ErrUsageLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, ErrBalanceNotFound):
		return "balance_not_found"
	case IsTransient(err):
		return "transient_error"
	default:
		return "error"
	}
}
