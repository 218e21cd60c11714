// Package sms содержит клиент SMS-шлюза для доставки OTP-кодов.
//
// Провайдер best-effort: его ответ о неуспехе не означает недоставку,
// поэтому вызывающий код не трактует ошибку провайдера как откат операции.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/apperr"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/config"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/sl"
)

// Client клиент SMS-шлюза.
type Client struct {
	cfg        config.SMSProvider
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient создает новый экземпляр Client.
func NewClient(cfg config.SMSProvider, log *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.SMSTimeout},
		log:        log,
	}
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type sendResponse struct {
	Delivered bool   `json:"delivered"`
	Message   string `json:"message"`
}

// SendOTP отправляет код подтверждения на телефон.
// Возвращает факт доставки по версии провайдера и его сообщение.
func (c *Client) SendOTP(ctx context.Context, phone, code, appName string) (bool, string, error) {
	const op = "sms.SendOTP"

	body, err := json.Marshal(sendRequest{
		Phone:   phone,
		Message: fmt.Sprintf("%s: your verification code is %s", appName, code),
	})
	if err != nil {
		return false, "", fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SMSAddress+"/send", bytes.NewReader(body))
	if err != nil {
		return false, "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SMSAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, "", apperr.Wrapf(apperr.ErrExternalService, op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("sms provider returned unexpected status", slog.Int("status", resp.StatusCode))
		return false, "", apperr.Wrap(apperr.ErrExternalService, fmt.Sprintf("%s: status %d", op, resp.StatusCode))
	}

	var providerResp sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&providerResp); err != nil {
		c.log.Error("failed to decode sms provider response", sl.Err(err))
		return false, "", apperr.Wrapf(apperr.ErrExternalService, op, err)
	}
	return providerResp.Delivered, providerResp.Message, nil
}
