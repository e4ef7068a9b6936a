package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"subzero/models"

	"go.uber.org/zap"
)

// Reasons returned when the check itself could not be completed.
const (
	ReasonTransport = "check_failed"
	ReasonStatus    = "check_rejected"
	ReasonMalformed = "check_malformed"
)

const (
	maxResponseBytes = 64 << 10
	defaultCheckPath = "/api/device/check"
	defaultTimeout   = 5 * time.Second
)

// RestrictionClient calls the device restriction check endpoint. It fails closed:
// any failure to obtain a well-formed answer is reported as not allowed.
type RestrictionClient struct {
	BaseURL    string
	Path       string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewRestrictionClient(baseURL string, timeout time.Duration, logger *zap.Logger) *RestrictionClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RestrictionClient{
		BaseURL:    baseURL,
		Path:       defaultCheckPath,
		Timeout:    timeout,
		HTTPClient: &http.Client{},
		Logger:     logger,
	}
}

func (rc *RestrictionClient) Check(ctx context.Context, fingerprint, cookie string) models.DeviceCheckResult {
	ctx, cancel := context.WithTimeout(ctx, rc.Timeout)
	defer cancel()

	body, err := json.Marshal(models.DeviceCheckRequest{DeviceFingerprint: fingerprint, CookieValue: cookie})
	if err != nil {
		return rc.failClosed(ReasonMalformed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rc.BaseURL+rc.Path, bytes.NewReader(body))
	if err != nil {
		return rc.failClosed(ReasonTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rc.HTTPClient.Do(req)
	if err != nil {
		return rc.failClosed(ReasonTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rc.failClosed(ReasonStatus, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var out struct {
		Allowed *bool  `json:"allowed"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return rc.failClosed(ReasonMalformed, err)
	}
	if out.Allowed == nil {
		return rc.failClosed(ReasonMalformed, fmt.Errorf("response has no allowed field"))
	}
	return models.DeviceCheckResult{Allowed: *out.Allowed, Reason: out.Reason}
}

func (rc *RestrictionClient) failClosed(reason string, err error) models.DeviceCheckResult {
	rc.Logger.Warn("device restriction check failed closed", zap.String("reason", reason), zap.Error(err))
	return models.DeviceCheckResult{Allowed: false, Reason: reason}
}
