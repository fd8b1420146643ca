package bank

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"bankpay/internal/config"
	"bankpay/internal/core"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Date layouts the bank's retail web API speaks.
const (
	DateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04:05"
)

// Client talks to the bank's own web surface. It is the only component that
// knows about bank sessions: every call transparently re-authenticates once
// when the session has expired, so callers never log in themselves.
type Client struct {
	cfg      config.BankCfg
	http     *http.Client
	cache    *sessionCache
	deviceID string

	// loginMu serializes logins so concurrent expired calls don't stampede
	// the bank with parallel authentication attempts.
	loginMu sync.Mutex

	// degraded is set when the bank rejects our credentials. Only a human
	// can fix that, so subsequent calls short-circuit instead of hammering
	// the login endpoint.
	degraded atomic.Bool
}

func New(cfg config.BankCfg, rdb *redis.Client) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: timeout},
		cache:    newSessionCache(rdb, 30*time.Minute),
		deviceID: randomDeviceID(),
	}
}

func randomDeviceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Degraded reports whether the bank has rejected our credentials since boot.
func (c *Client) Degraded() bool { return c.degraded.Load() }

// Probe attempts an authentication at boot with bounded exponential backoff.
// Transient failures are retried a few times; a credential rejection is
// permanent and flips the client into degraded mode.
func (c *Client) Probe(ctx context.Context) error {
	op := func() error {
		_, err := c.login(ctx)
		if err == nil {
			return nil
		}
		if c.degraded.Load() {
			return backoff.Permanent(err)
		}
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	return backoff.Retry(op, bo)
}

// --- wire envelope shared by all endpoints ---

type apiResult struct {
	OK           bool   `json:"ok"`
	ResponseCode string `json:"responseCode"`
	Message      string `json:"message"`
}

const codeSessionInvalid = "GW200"

type loginResp struct {
	Result    apiResult `json:"result"`
	SessionID string    `json:"sessionId"`
}

type balanceResp struct {
	Result  apiResult `json:"result"`
	Balance string    `json:"balance"`
}

type historyResp struct {
	Result       apiResult `json:"result"`
	Transactions []struct {
		RefNo           string `json:"refNo"`
		Description     string `json:"description"`
		CreditAmount    string `json:"creditAmount"`
		DebitAmount     string `json:"debitAmount"`
		TransactionDate string `json:"transactionDate"`
	} `json:"transactionHistoryList"`
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s %s", ErrUnavailable, path, res.Status)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: bad response body: %v", ErrUnavailable, err)
	}
	return nil
}

// login authenticates and caches the fresh session. Never called by users of
// the client directly; use Probe for the boot check.
func (c *Client) login(ctx context.Context) (*Session, error) {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	var out loginResp
	err := c.post(ctx, "/retail/login", map[string]string{
		"userId":   c.cfg.Username,
		"password": c.cfg.Password,
		"deviceId": c.deviceID,
	}, &out)
	if err != nil {
		return nil, err
	}
	if !out.Result.OK || out.SessionID == "" {
		c.degraded.Store(true)
		log.Error().
			Str("responseCode", out.Result.ResponseCode).
			Str("message", out.Result.Message).
			Msg("bank login rejected; service degraded until credentials are fixed")
		return nil, fmt.Errorf("%w: %s", ErrAuthFailed, out.Result.ResponseCode)
	}
	c.degraded.Store(false)
	s := &Session{ID: out.SessionID, DeviceID: c.deviceID, EstablishedAt: time.Now()}
	c.cache.put(ctx, s)
	return s, nil
}

// withSession runs fn with a live session, re-authenticating once if the bank
// reports the session expired. A second failure surfaces as ErrUnavailable
// (or ErrAuthFailed when the credentials themselves are the problem).
func (c *Client) withSession(ctx context.Context, fn func(s *Session) error) error {
	if c.degraded.Load() {
		return ErrAuthFailed
	}
	s := c.cache.get(ctx)
	if s == nil {
		var err error
		if s, err = c.login(ctx); err != nil {
			return err
		}
	}
	err := fn(s)
	if !errors.Is(err, ErrSessionExpired) {
		return err
	}

	c.cache.drop(ctx)
	s, err = c.login(ctx)
	if err != nil {
		if c.degraded.Load() {
			return err
		}
		return fmt.Errorf("%w: re-authentication failed: %v", ErrUnavailable, err)
	}
	return fn(s)
}

// Balance returns the current balance of the given account in currency units.
func (c *Client) Balance(ctx context.Context, account string) (float64, error) {
	var balance float64
	err := c.withSession(ctx, func(s *Session) error {
		var out balanceResp
		if err := c.post(ctx, "/retail/balance", map[string]string{
			"sessionId": s.ID,
			"accountNo": account,
		}, &out); err != nil {
			return err
		}
		if out.Result.ResponseCode == codeSessionInvalid {
			return ErrSessionExpired
		}
		if !out.Result.OK {
			return fmt.Errorf("%w: %s", ErrUnavailable, out.Result.ResponseCode)
		}
		balance = parseAmount(out.Balance)
		return nil
	})
	return balance, err
}

// ListTransactions returns the ledger rows for account between from and to,
// inclusive. The bank only understands day granularity (dd/mm/yyyy).
func (c *Client) ListTransactions(ctx context.Context, account string, from, to time.Time) ([]core.Transaction, error) {
	var txs []core.Transaction
	err := c.withSession(ctx, func(s *Session) error {
		var out historyResp
		if err := c.post(ctx, "/retail/transaction-history", map[string]string{
			"sessionId": s.ID,
			"accountNo": account,
			"fromDate":  from.Format(DateLayout),
			"toDate":    to.Format(DateLayout),
		}, &out); err != nil {
			return err
		}
		if out.Result.ResponseCode == codeSessionInvalid {
			return ErrSessionExpired
		}
		if !out.Result.OK {
			return fmt.Errorf("%w: %s", ErrUnavailable, out.Result.ResponseCode)
		}
		txs = txs[:0]
		for _, row := range out.Transactions {
			txs = append(txs, core.Transaction{
				RefNo:        row.RefNo,
				Description:  row.Description,
				CreditAmount: parseAmount(row.CreditAmount),
				DebitAmount:  parseAmount(row.DebitAmount),
				Date:         parseDate(row.TransactionDate),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// The bank serializes amounts as strings, sometimes with thousands
// separators. Unparseable values become 0 and the matcher ignores them.
func parseAmount(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateTimeLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(DateLayout, s)
	return t
}
