package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrAlreadyResolved   = errors.New("match already resolved")
	ErrInvalidSide       = errors.New("invalid side")
	ErrInvalidName       = errors.New("invalid name")
)

// InsufficientFundsError carrega o saldo atual e o valor pedido
type InsufficientFundsError struct {
	Name      string
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for %q: balance %s, requested %s, short by %s",
		e.Name, e.Balance.StringFixed(2), e.Requested.StringFixed(2), e.Shortfall().StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// Shortfall é quanto falta para cobrir o valor pedido
func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Balance)
}
