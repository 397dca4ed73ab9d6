package handler

import (
	"errors"

	"nightlife_order/constants"
	"nightlife_order/helper"
	"nightlife_order/model"
	"nightlife_order/utils"

	"github.com/gofiber/fiber/v2"
)

var errBadCredentials = errors.New("invalid credentials")

type Session struct {
	Token   model.TokenData  `json:"token"`
	Claim   model.TokenClaim `json:"claim"`
	Account *model.Account   `json:"account,omitempty"`
	Waiter  *model.Waiter    `json:"waiter,omitempty"`
}

// Login signs a manager in with username and password.
func (h *Handler) Login(c *fiber.Ctx) error {
	input := c.Locals("input").(model.LoginInput)
	account, err := h.Store.AccountByUsername(c.UserContext(), input.Username)
	if err != nil || !model.Flag(account.Active) || !helper.CheckPasswordHash(input.Password, account.Password) {
		h.logger().WithField("username", input.Username).Warn("manager login rejected")
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.ERROR_UNAUTHORIZED, errBadCredentials)
	}

	claim := model.TokenClaim{
		AccountId: account.ID,
		VenueId:   account.VenueId,
		Username:  account.Username,
		Role:      account.Role,
	}
	return h.issue(c, Session{Claim: claim, Account: account})
}

// WaiterLogin signs a waiter in with their PIN.
func (h *Handler) WaiterLogin(c *fiber.Ctx) error {
	input := c.Locals("input").(model.WaiterLoginInput)
	waiter, err := h.Store.GetWaiter(c.UserContext(), input.WaiterId)
	if err != nil || !model.Flag(waiter.Active) || !helper.CheckPasswordHash(input.Pin, waiter.PinHash) {
		h.logger().WithField("waiter", input.WaiterId).Warn("waiter login rejected")
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.ERROR_UNAUTHORIZED, errBadCredentials)
	}

	claim := model.TokenClaim{
		WaiterId: waiter.ID,
		VenueId:  waiter.VenueId,
		Username: waiter.Name,
		Role:     constants.ROLE_WAITER,
	}
	return h.issue(c, Session{Claim: claim, Waiter: waiter})
}

func (h *Handler) issue(c *fiber.Ctx, session Session) error {
	token, err := helper.GenerateAccessToken(session.Claim, h.Secret, h.TokenTTL)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, err)
	}
	session.Token = token
	return utils.SuccessResponse(c, fiber.StatusOK, session)
}

func (h *Handler) Me(c *fiber.Ctx) error {
	claim, _ := helper.ClaimFromCtx(c)
	return utils.SuccessResponse(c, fiber.StatusOK, claim)
}
