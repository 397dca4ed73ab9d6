package handler

import (
	"nightlife_order/cart"
	"nightlife_order/utils"

	"github.com/gofiber/fiber/v2"
)

type UpsellInput struct {
	VenueId uint        `json:"venueId" validate:"required"`
	EventId uint        `json:"eventId" validate:"required"`
	Items   []cart.Item `json:"items" validate:"dive"`
}

// GetMenu lists the venue's items with tonight's prices. Unavailable items
// stay in the list so the guest screen can grey them out.
func (h *Handler) GetMenu(c *fiber.Ctx) error {
	entries, err := h.Menu.EventMenu(c.UserContext(), paramId(c, "venueId"), paramId(c, "eventId"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, entries)
}

func (h *Handler) Upsell(c *fiber.Ctx) error {
	input := c.Locals("input").(UpsellInput)
	entries, err := h.Menu.EventMenu(c.UserContext(), input.VenueId, input.EventId)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, h.Pairings.Recommend(input.Items, entries))
}
