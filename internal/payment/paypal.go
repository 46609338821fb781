package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	PayPalSandboxURL = "https://api-m.sandbox.paypal.com"
	statusCompleted  = "COMPLETED"
)

// PayPalProvider checks receipts against the PayPal Orders API. A receipt
// is accepted only if PayPal reports the order as COMPLETED.
type PayPalProvider struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewPayPalProvider(baseURL, clientID, clientSecret string, httpClient *http.Client) *PayPalProvider {
	if baseURL == "" {
		baseURL = PayPalSandboxURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &PayPalProvider{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
	}
}

type paypalOrder struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	UpdateTime string `json:"update_time"`
	Payer      struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
}

func (p *PayPalProvider) Verify(ctx context.Context, receipt Receipt) (Receipt, error) {
	token, err := p.token(ctx)
	if err != nil {
		return Receipt{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/v2/checkout/orders/"+url.PathEscape(receipt.ID), nil)
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Receipt{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Receipt{}, fmt.Errorf("%w: unknown PayPal order %s", ErrProviderRejected, receipt.ID)
	case resp.StatusCode == http.StatusUnauthorized:
		p.resetToken()
		return Receipt{}, fmt.Errorf("%w: PayPal rejected credentials", ErrProvider)
	case resp.StatusCode >= 300:
		return Receipt{}, fmt.Errorf("%w: PayPal returned %d: %s", ErrProvider, resp.StatusCode, readSnippet(resp.Body))
	}

	var po paypalOrder
	if err := json.NewDecoder(resp.Body).Decode(&po); err != nil {
		return Receipt{}, fmt.Errorf("%w: malformed PayPal order: %v", ErrProvider, err)
	}
	if po.Status != statusCompleted {
		return Receipt{}, fmt.Errorf("%w: PayPal order %s is %s", ErrProviderRejected, po.ID, po.Status)
	}

	verified := Receipt{
		ID:           po.ID,
		Status:       po.Status,
		UpdateTime:   po.UpdateTime,
		EmailAddress: receipt.EmailAddress,
	}
	if verified.UpdateTime == "" {
		verified.UpdateTime = receipt.UpdateTime
	}
	if verified.EmailAddress == "" {
		verified.EmailAddress = po.Payer.EmailAddress
	}
	return verified, nil
}

// token returns a cached OAuth2 client-credentials token, refreshing it a
// minute before PayPal expires it.
func (p *PayPalProvider) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && time.Now().Before(p.tokenExpiry) {
		return p.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: PayPal token request returned %d: %s", ErrProvider, resp.StatusCode, readSnippet(resp.Body))
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: malformed PayPal token response: %v", ErrProvider, err)
	}

	p.accessToken = body.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - time.Minute)
	return p.accessToken, nil
}

func (p *PayPalProvider) resetToken() {
	p.mu.Lock()
	p.accessToken = ""
	p.mu.Unlock()
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
