package handler

import (
	"errors"

	"nightlife_order/constants"
	"nightlife_order/utils"

	"github.com/gofiber/fiber/v2"
)

// ResolveSession answers GET /session/:venue/:table.
func (h *Handler) ResolveSession(c *fiber.Ctx) error {
	return h.resolve(c, c.Params("venue"), c.Params("table"))
}

// ResolveSubdomainSession answers GET /t/:table on a venue subdomain, such as
// nuba.example.com/t/VIP1.
func (h *Handler) ResolveSubdomainSession(c *fiber.Ctx) error {
	subs := c.Subdomains()
	if len(subs) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, errors.New("no venue subdomain"))
	}
	return h.resolve(c, subs[0], c.Params("table"))
}

// resolve always answers 200: not found, no event and upcoming are states the
// guest screen renders, not failures.
func (h *Handler) resolve(c *fiber.Ctx, venue, table string) error {
	result, err := h.Resolver.Resolve(c.UserContext(), venue, table)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, result)
}
