package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"nightlife_order/device"
	"nightlife_order/model"
	"nightlife_order/resolver"
	"nightlife_order/submission"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

var ErrServer = errors.New("server error")

// Client talks to the ordering API from a guest or staff device.
type Client struct {
	base    string
	timeout time.Duration
	log     *log.Entry

	mu    sync.RWMutex
	token string
}

func New(baseURL string, timeout time.Duration, logger *log.Entry) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Client{base: baseURL, timeout: timeout, log: logger.WithField("component", "client")}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

type envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Submit sends an order. Answers in the 4xx range wrap submission.ErrRejected
// so the gate stops retrying them.
func (c *Client) Submit(ctx context.Context, input model.CreateOrderInput) (*model.Order, error) {
	var order model.Order
	if err := c.call(ctx, fiber.MethodPost, "/api/v1/orders", input, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) Resolve(ctx context.Context, venue, table string) (resolver.Result, error) {
	var result resolver.Result
	path := fmt.Sprintf("/api/v1/session/%s/%s", url.PathEscape(venue), url.PathEscape(table))
	err := c.call(ctx, fiber.MethodGet, path, nil, &result)
	return result, err
}

func (c *Client) Menu(ctx context.Context, venueId, eventId uint) ([]model.MenuEntry, error) {
	var entries []model.MenuEntry
	err := c.call(ctx, fiber.MethodGet, fmt.Sprintf("/api/v1/venues/%d/events/%d/menu", venueId, eventId), nil, &entries)
	return entries, err
}

type loginReply struct {
	Token model.TokenData  `json:"token"`
	Claim model.TokenClaim `json:"claim"`
}

// WaiterLogin signs in with a PIN and keeps the token for later staff calls.
func (c *Client) WaiterLogin(ctx context.Context, waiterId uint, pin string, eventId uint) (device.StaffSession, error) {
	var reply loginReply
	err := c.call(ctx, fiber.MethodPost, "/api/v1/auth/waiter", model.WaiterLoginInput{WaiterId: waiterId, Pin: pin}, &reply)
	if err != nil {
		return device.StaffSession{}, err
	}
	c.SetToken(reply.Token.AccessToken)
	return device.StaffSession{
		Token:     reply.Token.AccessToken,
		WaiterId:  reply.Claim.WaiterId,
		VenueId:   reply.Claim.VenueId,
		EventId:   eventId,
		Name:      reply.Claim.Username,
		ExpiresAt: time.Unix(reply.Token.ExpiresAt, 0),
	}, nil
}

func (c *Client) ManagerLogin(ctx context.Context, username, password string) (device.ManagerSession, error) {
	var reply loginReply
	err := c.call(ctx, fiber.MethodPost, "/api/v1/auth/login", model.LoginInput{Username: username, Password: password}, &reply)
	if err != nil {
		return device.ManagerSession{}, err
	}
	c.SetToken(reply.Token.AccessToken)
	return device.ManagerSession{
		Token:     reply.Token.AccessToken,
		AccountId: reply.Claim.AccountId,
		VenueId:   reply.Claim.VenueId,
		Username:  reply.Claim.Username,
		ExpiresAt: time.Unix(reply.Token.ExpiresAt, 0),
	}, nil
}

func (c *Client) UpdateStatus(ctx context.Context, orderId uint, version int, status model.OrderStatus) (*model.Order, error) {
	var order model.Order
	path := fmt.Sprintf("/api/v1/staff/orders/%d/status", orderId)
	if err := c.call(ctx, fiber.MethodPatch, path, model.UpdateOrderStatusInput{Status: status, Version: version}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) RecordPayment(ctx context.Context, orderId uint, version int, items []model.PaidQuantityInput) (*model.Order, error) {
	var order model.Order
	path := fmt.Sprintf("/api/v1/staff/orders/%d/payment", orderId)
	if err := c.call(ctx, fiber.MethodPatch, path, model.RecordPaymentInput{Version: version, Items: items}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Online reports whether the health endpoint answers within a short timeout.
func (c *Client) Online() bool {
	a := fiber.Get(c.base + "/health").Timeout(2 * time.Second)
	code, _, errs := a.Bytes()
	return len(errs) == 0 && code == fiber.StatusOK
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}

	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.base + path)
	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return err
	}
	a.Timeout(timeout)
	c.mu.RLock()
	if c.token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	c.mu.RUnlock()
	if in != nil {
		a.JSON(in)
	}

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		c.log.WithField("path", path).WithError(errs[0]).Warn("request failed")
		return errors.Join(errs...)
	}

	var env envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil && code < 300 {
		return fmt.Errorf("decode response: %w", err)
	}
	switch {
	case code >= 500:
		return fmt.Errorf("%w: %d %s", ErrServer, code, env.Error)
	case code >= 400:
		return fmt.Errorf("%w: %d %s: %s", submission.ErrRejected, code, env.Message, env.Error)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
