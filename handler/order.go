package handler

import (
	"errors"

	"nightlife_order/constants"
	"nightlife_order/helper"
	"nightlife_order/model"
	"nightlife_order/utils"

	"github.com/gofiber/fiber/v2"
)

var errOtherVenue = errors.New("resource belongs to another venue")

// CreateOrder places a guest order. A replayed idempotency key answers 200
// with the order created the first time.
func (h *Handler) CreateOrder(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreateOrderInput)
	order, created, err := h.Orders.Place(c.UserContext(), input)
	if err != nil {
		return h.fail(c, err)
	}
	status := fiber.StatusCreated
	if !created {
		status = fiber.StatusOK
	}
	return utils.SuccessResponse(c, status, order)
}

func (h *Handler) GetOrderByCode(c *fiber.Ctx) error {
	order, err := h.Store.GetOrderByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, order)
}

// GetTableOrders is the guest's order history for one table tonight.
func (h *Handler) GetTableOrders(c *fiber.Ctx) error {
	orders, err := h.Store.ListOrders(c.UserContext(), model.FilterOrder{
		EventId:      paramId(c, "eventId"),
		EventTableId: paramId(c, "tableId"),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, orders)
}

// ListOrders is the staff queue for one event.
func (h *Handler) ListOrders(c *fiber.Ctx) error {
	filter := c.Locals("filter").(model.FilterOrder)
	if filter.EventId == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, errors.New("eventId is required"))
	}
	if ok, err := h.ownsEvent(c, filter.EventId); !ok {
		return err
	}
	orders, err := h.Store.ListOrders(c.UserContext(), filter)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, model.ResponseCustom{
		Rows:       orders,
		Limit:      filter.Limit,
		Page:       filter.Page,
		TotalCount: int64(len(orders)),
	})
}

func (h *Handler) UpdateOrderStatus(c *fiber.Ctx) error {
	input := c.Locals("input").(model.UpdateOrderStatusInput)
	orderId := paramId(c, "orderId")
	if ok, err := h.ownsOrder(c, orderId); !ok {
		return err
	}
	order, err := h.Lifecycle.AdvanceStatus(c.UserContext(), orderId, input.Version, input.Status)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, order)
}

func (h *Handler) RecordPayment(c *fiber.Ctx) error {
	input := c.Locals("input").(model.RecordPaymentInput)
	orderId := paramId(c, "orderId")
	if ok, err := h.ownsOrder(c, orderId); !ok {
		return err
	}
	order, err := h.Lifecycle.RecordPayment(c.UserContext(), orderId, input.Version, input.Items)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, order)
}

func (h *Handler) PayInFull(c *fiber.Ctx) error {
	input := c.Locals("input").(model.PayInFullInput)
	orderId := paramId(c, "orderId")
	if ok, err := h.ownsOrder(c, orderId); !ok {
		return err
	}
	order, err := h.Lifecycle.PayInFull(c.UserContext(), orderId, input.Version)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, order)
}

func (h *Handler) GetEventStats(c *fiber.Ctx) error {
	eventId := paramId(c, "eventId")
	if ok, err := h.ownsEvent(c, eventId); !ok {
		return err
	}
	stats, err := h.Store.OrderStats(c.UserContext(), eventId)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, stats)
}

// ownsVenue reports whether the caller's token is scoped to venueId. When it
// is not, the 403 has been written and err is what the handler returns.
func (h *Handler) ownsVenue(c *fiber.Ctx, venueId uint) (bool, error) {
	claim, ok := helper.ClaimFromCtx(c)
	if !ok || claim.VenueId != venueId {
		return false, utils.ErrorResponse(c, fiber.StatusForbidden, constants.ERROR_UNAUTHORIZED, errOtherVenue)
	}
	return true, nil
}

func (h *Handler) ownsEvent(c *fiber.Ctx, eventId uint) (bool, error) {
	event, err := h.Store.GetEvent(c.UserContext(), eventId)
	if err != nil {
		return false, h.fail(c, err)
	}
	return h.ownsVenue(c, event.VenueId)
}

func (h *Handler) ownsOrder(c *fiber.Ctx, orderId uint) (bool, error) {
	order, err := h.Store.GetOrder(c.UserContext(), orderId)
	if err != nil {
		return false, h.fail(c, err)
	}
	return h.ownsVenue(c, order.VenueId)
}

// EventScope rejects callers whose token belongs to another venue than the
// :eventId in the path.
func (h *Handler) EventScope(c *fiber.Ctx) error {
	if ok, err := h.ownsEvent(c, paramId(c, "eventId")); !ok {
		return err
	}
	return c.Next()
}
