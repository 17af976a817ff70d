package poolclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/ledger"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/dto"
)

// Client fala com a API /v1 do pool-service
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

// APIError é uma resposta não-2xx do pool-service
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pool-service http %d: %s", e.Status, e.Message)
}

// IsConflict cobre nome duplicado, partida já resolvida e saldo insuficiente
func IsConflict(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusConflict
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var e dto.ErrorResponse
		_ = json.NewDecoder(res.Body).Decode(&e)
		return &APIError{Status: res.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (c *Client) RegisterBettor(ctx context.Context, name string, balance decimal.Decimal) (ledger.Bettor, error) {
	var b ledger.Bettor
	err := c.do(ctx, http.MethodPost, "/v1/bettors", dto.RegisterBettorRequest{Name: name, Balance: balance}, &b)
	return b, err
}

func (c *Client) GetBettor(ctx context.Context, name string) (ledger.Bettor, error) {
	var b ledger.Bettor
	err := c.do(ctx, http.MethodGet, "/v1/bettors/"+url.PathEscape(name), nil, &b)
	return b, err
}

func (c *Client) AdjustBalance(ctx context.Context, name string, delta decimal.Decimal) (ledger.Bettor, error) {
	var b ledger.Bettor
	err := c.do(ctx, http.MethodPost, "/v1/bettors/"+url.PathEscape(name)+"/adjust", dto.AdjustBalanceRequest{Amount: delta}, &b)
	return b, err
}

func (c *Client) CreateMatch(ctx context.Context, side1, side2 string) (ledger.Match, error) {
	var m ledger.Match
	err := c.do(ctx, http.MethodPost, "/v1/matches", dto.CreateMatchRequest{Side1: side1, Side2: side2}, &m)
	return m, err
}

func (c *Client) PlaceWager(ctx context.Context, matchID int64, bettor string, amount decimal.Decimal, side int) (ledger.Wager, error) {
	var w ledger.Wager
	path := "/v1/matches/" + strconv.FormatInt(matchID, 10) + "/wagers"
	err := c.do(ctx, http.MethodPost, path, dto.PlaceWagerRequest{Bettor: bettor, Amount: amount, Side: side}, &w)
	return w, err
}

func (c *Client) ResolveMatch(ctx context.Context, matchID int64, winningSide int) (dto.ResolveMatchResponse, error) {
	var out dto.ResolveMatchResponse
	path := "/v1/matches/" + strconv.FormatInt(matchID, 10) + "/resolve"
	err := c.do(ctx, http.MethodPost, path, dto.ResolveMatchRequest{WinningSide: winningSide}, &out)
	return out, err
}
