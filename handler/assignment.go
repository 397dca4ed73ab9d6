package handler

import (
	"errors"

	"nightlife_order/constants"
	"nightlife_order/feed"
	"nightlife_order/model"
	"nightlife_order/utils"

	"github.com/gofiber/fiber/v2"
)

// CreateAssignment hands a table to a waiter for the event.
func (h *Handler) CreateAssignment(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreateAssignmentInput)
	ctx := c.UserContext()
	eventId := paramId(c, "eventId")

	event, err := h.Store.GetEvent(ctx, eventId)
	if err != nil {
		return h.fail(c, err)
	}
	if ok, err := h.ownsVenue(c, event.VenueId); !ok {
		return err
	}
	table, err := h.Store.GetTable(ctx, input.EventTableId)
	if err != nil {
		return h.fail(c, err)
	}
	if table.EventId != eventId {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, errors.New("table belongs to another event"))
	}
	waiter, err := h.Store.GetWaiter(ctx, input.WaiterId)
	if err != nil {
		return h.fail(c, err)
	}
	if waiter.VenueId != event.VenueId {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, errors.New("waiter belongs to another venue"))
	}

	assignment, err := h.Store.AssignTable(ctx, eventId, input.EventTableId, input.WaiterId)
	if err != nil {
		return h.fail(c, err)
	}
	h.publish(ctx, feed.Change{
		Kind:    feed.KindTableAssignment,
		Type:    feed.ChangeInsert,
		VenueId: event.VenueId,
		EventId: eventId,
		TableId: input.EventTableId,
		At:      assignment.CreatedAt,
	})
	return utils.SuccessResponse(c, fiber.StatusCreated, assignment)
}

func (h *Handler) GetAssignments(c *fiber.Ctx) error {
	rows, err := h.Store.ListAssignments(c.UserContext(), paramId(c, "eventId"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, rows)
}
