package dto

import "github.com/shopspring/decimal"

type RegisterBettorRequest struct {
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// AdjustBalanceRequest: amount positivo deposita, negativo retira
type AdjustBalanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type CreateMatchRequest struct {
	Side1 string `json:"side1"`
	Side2 string `json:"side2"`
}

type PlaceWagerRequest struct {
	Bettor string          `json:"bettor"`
	Amount decimal.Decimal `json:"amount"`
	Side   int             `json:"side"` // 1 | 2
}

type ResolveMatchRequest struct {
	WinningSide int `json:"winning_side"`
}
