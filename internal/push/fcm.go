package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/omsorg/care-api/pkg/errors"
	"github.com/omsorg/care-api/pkg/logger"
)

const defaultFCMEndpoint = "https://fcm.googleapis.com/fcm/send"

// Provider error strings that mean the token is gone for good.
const (
	errNotRegistered       = "NotRegistered"
	errInvalidRegistration = "InvalidRegistration"
)

// FCMSender multicasts through Firebase Cloud Messaging's HTTP API.
type FCMSender struct {
	client    *http.Client
	endpoint  string
	serverKey string
	logger    *logger.Logger
}

func NewFCMSender(serverKey, endpoint string, logger *logger.Logger) *FCMSender {
	if endpoint == "" {
		endpoint = defaultFCMEndpoint
	}
	return &FCMSender{
		client:    &http.Client{Timeout: 10 * time.Second},
		endpoint:  endpoint,
		serverKey: serverKey,
		logger:    logger,
	}
}

type fcmRequest struct {
	RegistrationIDs []string          `json:"registration_ids"`
	Notification    fcmNotification   `json:"notification"`
	Data            map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

// Send delivers msg to every token in one multicast call. Per-token outcomes
// come back positionally in the provider response.
func (s *FCMSender) Send(ctx context.Context, tokens []string, msg Message) ([]Result, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(fcmRequest{
		RegistrationIDs: tokens,
		Notification:    fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:            msg.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.Upstream("push provider", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Upstream("push provider", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode push response: %w", err)
	}

	results := make([]Result, len(tokens))
	for i, token := range tokens {
		results[i] = Result{Token: token}
		if i >= len(body.Results) {
			continue
		}
		r := body.Results[i]
		if r.Error == "" {
			continue
		}
		results[i].Err = fmt.Errorf("push delivery failed: %s", r.Error)
		if r.Error == errNotRegistered || r.Error == errInvalidRegistration {
			results[i].Invalid = true
		}
	}
	return results, nil
}
