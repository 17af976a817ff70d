package dto

import (
	"github.com/shopspring/decimal"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/ledger"
)

type ErrorResponse struct {
	Error string `json:"error"`
	// preenchidos só em saldo insuficiente
	Balance   *decimal.Decimal `json:"balance,omitempty"`
	Shortfall *decimal.Decimal `json:"shortfall,omitempty"`
}

type PayoutResponse struct {
	Bettor  string          `json:"bettor"`
	Side    int             `json:"side"`
	Staked  decimal.Decimal `json:"staked"`
	PaidOut decimal.Decimal `json:"paid_out"`
}

type ResolveMatchResponse struct {
	Match           ledger.Match     `json:"match"`
	WinnerName      string           `json:"winner_name"`
	HouseCommission decimal.Decimal  `json:"house_commission"`
	WinnerBonusPool decimal.Decimal  `json:"winner_bonus_pool"`
	Distributable   decimal.Decimal  `json:"distributable"`
	Payouts         []PayoutResponse `json:"payouts"`
}
