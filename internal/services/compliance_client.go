package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bankledger/backend/internal/config"
	"go.uber.org/zap"
)

// ComplianceChecker validates a CPF document against an external registry.
// It returns an ErrValidation error when the document is rejected.
type ComplianceChecker interface {
	ValidateDocument(ctx context.Context, document string) error
}

type complianceEnvelope struct {
	Success bool `json:"success"`
	Valid   bool `json:"valid"`
	Data    struct {
		AuthCode    string `json:"authCode"`
		AccessToken string `json:"accessToken"`
		Status      any    `json:"status"`
	} `json:"data"`
}

// ComplianceClient talks to the compliance API: it exchanges the system
// credentials for an access token, then asks the registry about the document.
type ComplianceClient struct {
	baseURL  string
	email    string
	password string
	client   *http.Client
}

func NewComplianceClient(cfg *config.ComplianceConfig) *ComplianceClient {
	return &ComplianceClient{
		baseURL:  cfg.BaseURL,
		email:    cfg.Email,
		password: cfg.Password,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *ComplianceClient) ValidateDocument(ctx context.Context, document string) error {
	token, err := c.systemToken(ctx)
	if err != nil {
		return err
	}

	var result complianceEnvelope
	status, err := c.post(ctx, "/cpf/validate", token, map[string]string{"document": document}, &result)
	if err != nil {
		return fmt.Errorf("compliance validation request failed: %w", err)
	}

	if status < 300 && (result.Valid || fmt.Sprint(result.Data.Status) == "1") {
		return nil
	}
	zap.L().Info("Document rejected by compliance", zap.Int("status", status))
	return newError(ErrValidation, "user.create.cpf.invalid")
}

func (c *ComplianceClient) systemToken(ctx context.Context) (string, error) {
	var code complianceEnvelope
	_, err := c.post(ctx, "/auth/code", "", map[string]string{"email": c.email, "password": c.password}, &code)
	if err != nil {
		return "", fmt.Errorf("compliance auth code request failed: %w", err)
	}
	if !code.Success || code.Data.AuthCode == "" {
		return "", fmt.Errorf("compliance auth code rejected")
	}

	var token complianceEnvelope
	_, err = c.post(ctx, "/auth/token", "", map[string]string{"authCode": code.Data.AuthCode}, &token)
	if err != nil {
		return "", fmt.Errorf("compliance token request failed: %w", err)
	}
	if token.Data.AccessToken == "" {
		return "", fmt.Errorf("compliance token missing from response")
	}
	return token.Data.AccessToken, nil
}

func (c *ComplianceClient) post(ctx context.Context, path, bearer string, body any, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}
