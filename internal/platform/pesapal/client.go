package pesapal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crownline/pageant/pkg/config"
)

const (
	requestTimeout = 15 * time.Second
	// tokens are discarded this long before their stated expiry
	tokenExpirySlack = 5 * time.Minute
)

// Client wraps the Pesapal v3 JSON API. It is stateless apart from two
// best-effort in-process caches: the bearer token and the url -> ipn_id
// mapping. Losing either only costs an extra round trip.
type Client struct {
	cfg  *config.PesapalConfig
	log  *zap.SugaredLogger
	http *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	ipnIDs      map[string]string
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) *Client {
	return &Client{
		cfg:    &cfg.Pesapal,
		log:    log,
		http:   &http.Client{Timeout: requestTimeout},
		ipnIDs: make(map[string]string),
	}
}

type authResponse struct {
	Token      string    `json:"token"`
	ExpiryDate time.Time `json:"expiryDate"`
	Error      *apiError `json:"error"`
}

type registerIPNRequest struct {
	URL              string `json:"url"`
	NotificationType string `json:"ipn_notification_type"`
}

type registerIPNResponse struct {
	IPNID string    `json:"ipn_id"`
	URL   string    `json:"url"`
	Error *apiError `json:"error"`
}

// BillingAddress identifies the payer on the gateway's hosted page.
type BillingAddress struct {
	EmailAddress string `json:"email_address"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
}

// OrderRequest is one payment order submission.
type OrderRequest struct {
	MerchantRef    string
	Currency       string
	Amount         float64
	Description    string
	CallbackURL    string
	NotificationID string
	Payer          BillingAddress
}

type submitOrderBody struct {
	ID             string         `json:"id"`
	Currency       string         `json:"currency"`
	Amount         float64        `json:"amount"`
	Description    string         `json:"description"`
	CallbackURL    string         `json:"callback_url"`
	NotificationID string         `json:"notification_id"`
	BillingAddress BillingAddress `json:"billing_address"`
}

// OrderResponse carries the gateway-assigned tracking id and the hosted
// payment page the payer must be redirected to.
type OrderResponse struct {
	OrderTrackingID string    `json:"order_tracking_id"`
	MerchantRef     string    `json:"merchant_reference"`
	RedirectURL     string    `json:"redirect_url"`
	Error           *apiError `json:"error"`
}

// TransactionStatus is the polled state of one order.
type TransactionStatus struct {
	StatusCode        int       `json:"status_code"`
	StatusDescription string    `json:"payment_status_description"`
	Amount            float64   `json:"amount"`
	PaymentMethod     string    `json:"payment_method"`
	ConfirmationCode  string    `json:"confirmation_code"`
	Error             *apiError `json:"error"`
}

// Authenticate exchanges the long-lived consumer credentials for a bearer
// token, reusing the cached one until shortly before expiry.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		t := c.token
		c.mu.Unlock()
		return t, nil
	}
	c.mu.Unlock()
	return c.refreshToken(ctx)
}

func (c *Client) refreshToken(ctx context.Context) (string, error) {
	body := map[string]string{
		"consumer_key":    c.cfg.ConsumerKey,
		"consumer_secret": c.cfg.ConsumerSecret,
	}
	var out authResponse
	if err := c.post(ctx, "/api/Auth/RequestToken", "", body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !out.Error.empty() || out.Token == "" {
		return "", out.Error.wrap(ErrAuth)
	}

	c.mu.Lock()
	c.token = out.Token
	c.tokenExpiry = out.ExpiryDate
	c.mu.Unlock()
	c.log.Debugw("pesapal token refreshed", "expiry", out.ExpiryDate)
	return out.Token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// RegisterIPN registers url as a GET push-notification channel, caching the
// resulting ipn_id so repeat registrations skip the network round trip.
func (c *Client) RegisterIPN(ctx context.Context, ipnURL string) (string, error) {
	c.mu.Lock()
	if id, ok := c.ipnIDs[ipnURL]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	var out registerIPNResponse
	err := c.authedPost(ctx, "/api/URLSetup/RegisterIPN", registerIPNRequest{
		URL:              ipnURL,
		NotificationType: "GET",
	}, &out)
	if err != nil {
		return "", err
	}
	if !out.Error.empty() || out.IPNID == "" {
		return "", out.Error.wrap(ErrConfig)
	}

	c.mu.Lock()
	c.ipnIDs[ipnURL] = out.IPNID
	c.mu.Unlock()
	c.log.Infow("registered ipn url", "url", ipnURL, "ipn_id", out.IPNID)
	return out.IPNID, nil
}

// SubmitOrder creates a payment order and returns the tracking id plus the
// redirect URL for the payer's browser.
func (c *Client) SubmitOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	var out OrderResponse
	err := c.authedPost(ctx, "/api/Transactions/SubmitOrderRequest", submitOrderBody{
		ID:             req.MerchantRef,
		Currency:       req.Currency,
		Amount:         req.Amount,
		Description:    req.Description,
		CallbackURL:    req.CallbackURL,
		NotificationID: req.NotificationID,
		BillingAddress: req.Payer,
	}, &out)
	if err != nil {
		return nil, err
	}
	if !out.Error.empty() || out.OrderTrackingID == "" {
		return nil, out.Error.wrap(ErrOrder)
	}
	return &out, nil
}

// GetTransactionStatus polls the current state of a submitted order.
func (c *Client) GetTransactionStatus(ctx context.Context, trackingID string) (*TransactionStatus, error) {
	path := "/api/Transactions/GetTransactionStatus?orderTrackingId=" + url.QueryEscape(trackingID)
	var out TransactionStatus
	if err := c.authedGet(ctx, path, &out); err != nil {
		return nil, err
	}
	if !out.Error.empty() {
		return nil, out.Error.wrap(ErrOrder)
	}
	return &out, nil
}

// authedPost performs a bearer-authenticated POST, retrying exactly once with
// a fresh token if the gateway answers 401. Callers never see a stale token.
func (c *Client) authedPost(ctx context.Context, path string, body, out any) error {
	return c.withAuthRetry(ctx, func(token string) (int, error) {
		return c.do(ctx, http.MethodPost, path, token, body, out)
	})
}

func (c *Client) authedGet(ctx context.Context, path string, out any) error {
	return c.withAuthRetry(ctx, func(token string) (int, error) {
		return c.do(ctx, http.MethodGet, path, token, nil, out)
	})
}

func (c *Client) withAuthRetry(ctx context.Context, call func(token string) (int, error)) error {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return err
	}
	status, err := call(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status != http.StatusUnauthorized {
		return nil
	}

	c.invalidateToken()
	token, err = c.Authenticate(ctx)
	if err != nil {
		return err
	}
	status, err = call(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: still unauthorized after token refresh", ErrAuth)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, token string, body, out any) error {
	_, err := c.do(ctx, http.MethodPost, path, token, body, out)
	return err
}

// do runs one HTTP exchange and decodes the JSON response into out.
// The HTTP status is returned so withAuthRetry can react to 401; other
// non-2xx statuses still decode the body since Pesapal reports errors there.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
	}
	return resp.StatusCode, nil
}
