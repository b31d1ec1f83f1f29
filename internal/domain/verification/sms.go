package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/veroa/veroa-api/internal/pkg/apperr"
)

// Vendor response codes. Everything not listed here is treated as a
// provider failure.
const (
	codeSuccess            = 200
	codeBadRequest         = 400
	codeDuplicate          = 409
	codeServerError        = 500
	codeInvalidCustomer    = 501
	codeInvalidVerifyID    = 505
	codeRequestExists      = 506
	codeInvalidCountryCode = 511
	codeVerifyFailed       = 700
	codeWrongCode          = 702
	codeAlreadyVerified    = 703
	codeExpired            = 705
	codeMaxLimit           = 800
)

const statusVerified = "VERIFICATION_COMPLETED"

var vendorErrors = map[int]*apperr.Error{
	codeBadRequest:         ErrProviderRejected,
	codeDuplicate:          ErrProviderRejected,
	codeInvalidCustomer:    ErrProviderRejected,
	codeServerError:        ErrProviderUnavailable,
	codeInvalidVerifyID:    ErrVerificationNotFound,
	codeRequestExists:      ErrCodeAlreadySent,
	codeInvalidCountryCode: ErrInvalidPhone,
	codeAlreadyVerified:    ErrAlreadyVerified,
	codeExpired:            ErrCodeExpired,
	codeMaxLimit:           ErrTooManyAttempts,
}

// SMSConfig holds the vendor API configuration
type SMSConfig struct {
	BaseURL    string
	APIKey     string
	SenderName string
	Timeout    time.Duration
}

// SMSProvider talks to the SMS verification vendor over its JSON API.
type SMSProvider struct {
	httpClient *http.Client
	config     SMSConfig
}

type vendorEnvelope struct {
	ResponseCode int             `json:"responseCode"`
	Message      string          `json:"message"`
	Data         json.RawMessage `json:"data"`
}

type vendorSendRequest struct {
	Phone   string `json:"phone"`
	Sender  string `json:"sender"`
	Channel string `json:"channel"`
}

type vendorCheckRequest struct {
	VerificationID string `json:"verificationId"`
	Code           string `json:"code"`
}

// NewSMSProvider creates the vendor client
func NewSMSProvider(cfg SMSConfig) *SMSProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMSProvider{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
	}
}

// SendVerificationCode asks the vendor to text a code and returns its
// verification id.
func (p *SMSProvider) SendVerificationCode(ctx context.Context, phone string) (string, error) {
	env, err := p.call(ctx, "/verification/send", vendorSendRequest{
		Phone:   phone,
		Sender:  p.config.SenderName,
		Channel: "sms",
	})
	if err != nil {
		return "", err
	}
	if env.ResponseCode != codeSuccess {
		return "", vendorError(env)
	}

	var data struct {
		VerificationID json.RawMessage `json:"verificationId"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", apperr.Wrap(ErrProviderRejected, fmt.Errorf("failed to parse send response: %w", err))
	}
	// The vendor sends the id as a number or a string depending on the API version.
	id := strings.Trim(string(data.VerificationID), `"`)
	if id == "" || id == "null" {
		return "", apperr.Wrap(ErrProviderRejected, fmt.Errorf("send response has no verification id"))
	}
	return id, nil
}

// CheckVerificationCode reports whether code matches. A wrong code is
// (false, nil); other vendor outcomes map to classified errors.
func (p *SMSProvider) CheckVerificationCode(ctx context.Context, verificationID, code string) (bool, error) {
	env, err := p.call(ctx, "/verification/validate", vendorCheckRequest{
		VerificationID: verificationID,
		Code:           code,
	})
	if err != nil {
		return false, err
	}

	switch env.ResponseCode {
	case codeSuccess:
		var data struct {
			VerificationStatus string `json:"verificationStatus"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return false, apperr.Wrap(ErrProviderRejected, fmt.Errorf("failed to parse check response: %w", err))
		}
		return data.VerificationStatus == statusVerified, nil
	case codeWrongCode, codeVerifyFailed:
		return false, nil
	default:
		return false, vendorError(env)
	}
}

func (p *SMSProvider) call(ctx context.Context, path string, payload interface{}) (*vendorEnvelope, error) {
	if strings.TrimSpace(p.config.BaseURL) == "" {
		return nil, apperr.Wrap(ErrProviderUnavailable, fmt.Errorf("sms config error: base_url is empty"))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sms request: %w", err)
	}

	url := strings.TrimRight(p.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sms api call failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authToken", p.config.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(ErrProviderUnavailable, fmt.Errorf("sms api call failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(ErrProviderUnavailable, fmt.Errorf("sms api call failed: %w", err))
	}

	var env vendorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.ResponseCode == 0 {
		cause := fmt.Errorf("sms api returned status=%d body=%s", resp.StatusCode, string(raw))
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, apperr.Wrap(ErrProviderUnavailable, cause)
		}
		return nil, apperr.Wrap(ErrProviderRejected, cause)
	}
	return &env, nil
}

func vendorError(env *vendorEnvelope) error {
	sentinel, ok := vendorErrors[env.ResponseCode]
	if !ok {
		sentinel = ErrProviderRejected
	}
	return apperr.Wrap(sentinel, fmt.Errorf("sms vendor responseCode=%d message=%s", env.ResponseCode, env.Message))
}
