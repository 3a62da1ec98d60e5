// Package ynab is a minimal client for the YNAB budgeting API.
package ynab

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sawpanic/taskbridge/internal/apperr"
	"github.com/sawpanic/taskbridge/internal/clients"
	"github.com/sawpanic/taskbridge/internal/config"
	"github.com/sawpanic/taskbridge/internal/domain"
	netclient "github.com/sawpanic/taskbridge/internal/net/client"
	"github.com/sawpanic/taskbridge/internal/secrets"
)

const service = "ynab"

// Client reads budgets (ledgers) from YNAB.
type Client struct {
	hc      *http.Client
	baseURL string
	tokens  secrets.SecretProvider
	wrapper *netclient.Wrapper
}

func New(cfg config.YNABConfig, tokens secrets.SecretProvider) *Client {
	hc, w := netclient.NewHTTPClient(netclient.WrapperConfig{
		Provider: service,
		RPS:      cfg.RPS,
		Burst:    cfg.Burst,
	}, cfg.Timeout)
	c := NewWithHTTPClient(cfg.BaseURL, hc, tokens)
	c.wrapper = w
	return c
}

func NewWithHTTPClient(baseURL string, hc *http.Client, tokens secrets.SecretProvider) *Client {
	return &Client{hc: hc, baseURL: strings.TrimRight(baseURL, "/"), tokens: tokens}
}

// Breaker exposes the transport wrapper for health reporting; nil for custom clients.
func (c *Client) Breaker() *netclient.Wrapper { return c.wrapper }

// TransactionsPage is one delta fetch.
type TransactionsPage struct {
	Transactions []domain.Transaction
	// Knowledge is the server knowledge to resume from after this page.
	Knowledge string
}

type transactionsResponse struct {
	Data struct {
		Transactions    []domain.Transaction `json:"transactions"`
		ServerKnowledge int64                `json:"server_knowledge"`
	} `json:"data"`
}

type settingsResponse struct {
	Data struct {
		Settings struct {
			CurrencyFormat *struct {
				CurrencySymbol string `json:"currency_symbol"`
			} `json:"currency_format"`
		} `json:"settings"`
	} `json:"data"`
}

func (c *Client) get(ctx context.Context, op, path string, out interface{}) error {
	token, err := secrets.Lookup(ctx, c.tokens, secrets.KeyYNABAccessToken)
	if err != nil {
		return apperr.Configuration(op, err)
	}
	return clients.Do(ctx, c.hc, clients.Request{
		Op:      op,
		Service: service,
		Method:  http.MethodGet,
		URL:     c.baseURL + path,
		Token:   token,
		Out:     out,
	})
}

// GetTransactionsSince returns transactions changed after cursor. An empty
// cursor fetches the full history.
func (c *Client) GetTransactionsSince(ctx context.Context, ledgerID, cursor string) (TransactionsPage, error) {
	path := "/budgets/" + url.PathEscape(ledgerID) + "/transactions"
	if cursor != "" {
		path += "?last_knowledge_of_server=" + url.QueryEscape(cursor)
	}

	var resp transactionsResponse
	if err := c.get(ctx, "ynab.get_transactions", path, &resp); err != nil {
		return TransactionsPage{}, err
	}
	return TransactionsPage{
		Transactions: resp.Data.Transactions,
		Knowledge:    strconv.FormatInt(resp.Data.ServerKnowledge, 10),
	}, nil
}

// GetLedgerCurrency returns the budget's currency symbol, empty when unset.
func (c *Client) GetLedgerCurrency(ctx context.Context, ledgerID string) (string, error) {
	var resp settingsResponse
	if err := c.get(ctx, "ynab.get_settings", "/budgets/"+url.PathEscape(ledgerID)+"/settings", &resp); err != nil {
		return "", err
	}
	if resp.Data.Settings.CurrencyFormat == nil {
		return "", nil
	}
	return resp.Data.Settings.CurrencyFormat.CurrencySymbol, nil
}
