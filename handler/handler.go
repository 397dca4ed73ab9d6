package handler

import (
	"context"
	"errors"
	"time"

	"nightlife_order/constants"
	"nightlife_order/feed"
	"nightlife_order/lifecycle"
	"nightlife_order/model"
	"nightlife_order/ordering"
	"nightlife_order/repository"
	"nightlife_order/resolver"
	"nightlife_order/upsell"
	"nightlife_order/utils"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// Store is the persistence the HTTP layer reads and writes through.
type Store interface {
	CreateVenue(ctx context.Context, v *model.Venue) error
	GetVenue(ctx context.Context, id uint) (*model.Venue, error)
	ListVenues(ctx context.Context, page model.Pagination) ([]model.Venue, int64, error)
	SlugTaken(ctx context.Context, slug string) (bool, error)

	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id uint) (*model.Event, error)
	ListEvents(ctx context.Context, venueId uint, page model.Pagination) ([]model.Event, int64, error)

	CreateTable(ctx context.Context, t *model.EventTable) error
	GetTable(ctx context.Context, id uint) (*model.EventTable, error)
	ListTables(ctx context.Context, eventId uint) ([]model.EventTable, error)

	CreateCategory(ctx context.Context, c *model.Category) error
	ListCategories(ctx context.Context, venueId uint) ([]model.Category, error)
	CreateMenuItem(ctx context.Context, m *model.MenuItem) error
	GetMenuItem(ctx context.Context, id uint) (*model.MenuItem, error)
	ListMenuItems(ctx context.Context, venueId uint, page model.Pagination) ([]model.MenuItem, int64, error)
	UpsertEventMenu(ctx context.Context, em *model.EventMenu) error
	ListEventMenu(ctx context.Context, eventId uint) ([]model.EventMenu, error)

	CreateWaiter(ctx context.Context, w *model.Waiter) error
	GetWaiter(ctx context.Context, id uint) (*model.Waiter, error)
	ListWaiters(ctx context.Context, venueId uint) ([]model.Waiter, error)
	CreateCustomer(ctx context.Context, c *model.Customer) error
	GetCustomer(ctx context.Context, id uint) (*model.Customer, error)
	ListCustomers(ctx context.Context, venueId uint, page model.Pagination) ([]model.Customer, int64, error)
	CreateAccount(ctx context.Context, a *model.Account) error
	AccountByUsername(ctx context.Context, username string) (*model.Account, error)

	GetOrder(ctx context.Context, id uint) (*model.Order, error)
	GetOrderByCode(ctx context.Context, code string) (*model.Order, error)
	ListOrders(ctx context.Context, filter model.FilterOrder) ([]model.Order, error)
	OrderStats(ctx context.Context, eventId uint) (*model.OrderStats, error)

	AssignTable(ctx context.Context, eventId, tableId, waiterId uint) (*model.TableAssignment, error)
	ListAssignments(ctx context.Context, eventId uint) ([]model.TableAssignment, error)
	AssignedTableIds(ctx context.Context, eventId, waiterId uint) ([]uint, error)
}

type Resolver interface {
	Resolve(ctx context.Context, venueIdentifier, tableLabel string) (resolver.Result, error)
}

type Orders interface {
	Place(ctx context.Context, in model.CreateOrderInput) (*model.Order, bool, error)
}

type Lifecycle interface {
	AdvanceStatus(ctx context.Context, orderId uint, version int, to model.OrderStatus) (*model.Order, error)
	RecordPayment(ctx context.Context, orderId uint, version int, paid []model.PaidQuantityInput) (*model.Order, error)
	PayInFull(ctx context.Context, orderId uint, version int) (*model.Order, error)
}

type MenuCache interface {
	Invalidate(ctx context.Context, venueId uint) error
}

// Handler carries the services every route needs.
type Handler struct {
	Store     Store
	Resolver  Resolver
	Menu      repository.MenuSource
	MenuCache MenuCache
	Orders    Orders
	Lifecycle Lifecycle
	Pairings  upsell.Table
	Hub       *feed.Hub
	Publisher feed.Publisher
	Secret    []byte
	TokenTTL  time.Duration
	Log       *log.Entry
}

func (h *Handler) logger() *log.Entry {
	if h.Log == nil {
		return log.NewEntry(log.StandardLogger())
	}
	return h.Log
}

// fail maps domain errors onto HTTP statuses.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, lifecycle.ErrNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, constants.ERROR_NOT_FOUND, err)
	case errors.Is(err, lifecycle.ErrStaleVersion):
		return utils.ErrorResponse(c, fiber.StatusConflict, constants.ERROR_STALE_ORDER, err)
	case errors.Is(err, repository.ErrDuplicate):
		return utils.ErrorResponse(c, fiber.StatusConflict, constants.ERROR_INVALID_INPUT, err)
	case errors.Is(err, lifecycle.ErrInvalidTransition), errors.Is(err, lifecycle.ErrOrderClosed):
		return utils.ErrorResponse(c, fiber.StatusUnprocessableEntity, constants.ERROR_INVALID_TRANSITION, err)
	case errors.Is(err, lifecycle.ErrUnknownItem), errors.Is(err, lifecycle.ErrOverpayment), errors.Is(err, lifecycle.ErrPaymentRegression):
		return utils.ErrorResponse(c, fiber.StatusUnprocessableEntity, constants.ERROR_INVALID_PAYMENT, err)
	case errors.Is(err, ordering.ErrInvalidOrder):
		return utils.ErrorResponse(c, fiber.StatusUnprocessableEntity, constants.ERROR_INVALID_INPUT, err)
	default:
		h.logger().WithError(err).WithField("path", c.Path()).Error("request failed")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, err)
	}
}

func (h *Handler) publish(ctx context.Context, change feed.Change) {
	if h.Publisher == nil {
		return
	}
	if err := h.Publisher.Publish(ctx, change); err != nil {
		h.logger().WithError(err).Warn("publish change")
	}
}

func paramId(c *fiber.Ctx, key string) uint {
	id, _ := c.Locals(key).(uint)
	return id
}

func page(c *fiber.Ctx) model.Pagination {
	var p model.Pagination
	_ = c.QueryParser(&p)
	return p
}
