package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/attendance-service/internal/api/dto"
	"github.com/spec-kit/attendance-service/internal/domain"
	apperrors "github.com/spec-kit/attendance-service/pkg/util/errorutil"
)

// DefaultTimeout applies when the caller's context carries no deadline.
const DefaultTimeout = 10 * time.Second

// Client talks to the attendance service over HTTP.
type Client struct {
	baseURL string
	timeout time.Duration

	mu    sync.RWMutex
	token string
}

// New returns a client for baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// SetToken replaces the bearer token sent with requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login authenticates and keeps the issued bearer token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Account, error) {
	var out struct {
		Data dto.LoginResponse `json:"data"`
	}
	if err := c.do(ctx, fiber.MethodPost, "/auth/login", dto.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Data.Auth.Token)
	return toAccount(out.Data.Account), nil
}

// Me returns the authenticated account, including its current role.
func (c *Client) Me(ctx context.Context) (*domain.Account, error) {
	var out struct {
		Data dto.AccountResponse `json:"data"`
	}
	if err := c.do(ctx, fiber.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return toAccount(out.Data), nil
}

// Record submits an accepted scan to the attendance ledger.
func (c *Client) Record(ctx context.Context, submission domain.AttendanceSubmission) error {
	token := submission.Token
	req := dto.AttendanceRequest{
		SubjectID:     token.SubjectID,
		DisplayID:     token.DisplayID,
		IssuedAt:      token.IssuedAt,
		ExpiresAt:     token.ExpiresAt,
		RotationNonce: token.RotationNonce,
		SessionDate:   submission.SessionDate,
	}
	if err := c.do(ctx, fiber.MethodPost, "/api/v1/attendance", req, nil); err != nil {
		return apperrors.Wrap(apperrors.ErrRecorderUnavailable, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return context.DeadlineExceeded
		}
	}

	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if token := c.Token(); token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if body != nil {
		agent.JSON(body)
	}
	agent.Timeout(timeout)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}

	// Bytes releases the agent.
	status, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("client: %s %s: %w", method, path, errors.Join(errs...))
	}
	if status < 200 || status > 299 {
		return decodeError(status, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: decode %s response: %w", path, err)
	}
	return nil
}

// decodeError rebuilds the server's error envelope as a DomainError.
func decodeError(status int, raw []byte) error {
	var body dto.ErrorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error.Code == "" {
		return apperrors.NewDomainError("HTTP_ERROR", fmt.Sprintf("unexpected status %d", status), status, nil)
	}
	return apperrors.NewDomainError(body.Error.Code, body.Error.Message, status, body.Error.Details)
}

func toAccount(resp dto.AccountResponse) *domain.Account {
	return &domain.Account{
		ID:        resp.ID,
		DisplayID: resp.DisplayID,
		Name:      resp.Name,
		Email:     resp.Email,
		Role:      domain.Role(resp.Role),
	}
}
