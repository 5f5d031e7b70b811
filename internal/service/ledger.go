package service

import (
	"context"
	"fmt"

	"adventure-server/internal/interfaces"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreditLedger debits per-user credit balances.
type CreditLedger interface {
	// Charge debits amount from the user, clamping the balance at zero.
	// Returns models.ErrUserNotFound if the user does not exist.
	Charge(ctx context.Context, userID uuid.UUID, amount int) error
}

type creditLedger struct {
	users  interfaces.UserRepository
	logger *zap.Logger
}

var _ CreditLedger = (*creditLedger)(nil)

// NewCreditLedger creates a ledger backed by the user repository.
func NewCreditLedger(users interfaces.UserRepository, logger *zap.Logger) CreditLedger {
	return &creditLedger{
		users:  users,
		logger: logger.Named("CreditLedger"),
	}
}

// Charge performs a read-modify-write debit. Concurrent charges for the
// same user are not serialized; amounts are small and fixed.
func (l *creditLedger) Charge(ctx context.Context, userID uuid.UUID, amount int) error {
	user, err := l.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user for charge: %w", err)
	}

	balance := user.Credits - amount
	if balance < 0 {
		balance = 0
	}

	if err := l.users.UpdateCredits(ctx, userID, balance); err != nil {
		return fmt.Errorf("failed to debit user %s: %w", userID, err)
	}

	l.logger.Debug("Charged user",
		zap.String("user_id", userID.String()),
		zap.Int("amount", amount),
		zap.Int("balance", balance))
	return nil
}
