package handler

import (
	"errors"
	"time"

	"nightlife_order/constants"
	"nightlife_order/helper"
	"nightlife_order/model"
	"nightlife_order/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/copier"
	"gorm.io/datatypes"
)

func (h *Handler) CreateVenue(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreateVenueInput)
	ctx := c.UserContext()

	venue := new(model.Venue)
	copier.Copy(venue, &input)
	slug, err := helper.UniqueVenueSlug(ctx, h.Store, input.Name)
	if err != nil {
		return h.fail(c, err)
	}
	venue.Slug = slug
	if err := h.Store.CreateVenue(ctx, venue); err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, venue)
}

func (h *Handler) GetVenues(c *fiber.Ctx) error {
	p := page(c)
	rows, count, err := h.Store.ListVenues(c.UserContext(), p)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, model.ResponseCustom{Rows: rows, Limit: p.Limit, Page: p.Page, TotalCount: count})
}

func (h *Handler) GetVenueById(c *fiber.Ctx) error {
	venue, err := h.Store.GetVenue(c.UserContext(), paramId(c, "venueId"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, venue)
}

func (h *Handler) CreateEvent(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreateEventInput)
	if ok, err := h.ownsVenue(c, input.VenueId); !ok {
		return err
	}
	event, err := buildEvent(input)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, err)
	}
	if err := h.Store.CreateEvent(c.UserContext(), event); err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, event)
}

func buildEvent(input model.CreateEventInput) (*model.Event, error) {
	day, err := time.Parse(time.DateOnly, input.EventDate)
	if err != nil {
		return nil, err
	}
	start, err := clock(input.StartTime)
	if err != nil {
		return nil, err
	}
	event := &model.Event{
		VenueId:   input.VenueId,
		Name:      input.Name,
		EventDate: datatypes.Date(day),
		StartTime: start,
		Active:    input.Active,
	}
	if input.EndTime != "" {
		end, err := clock(input.EndTime)
		if err != nil {
			return nil, err
		}
		event.EndTime = &end
	}
	return event, nil
}

func clock(hhmm string) (datatypes.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, err
	}
	return datatypes.NewTime(t.Hour(), t.Minute(), 0, 0), nil
}

func (h *Handler) GetEvents(c *fiber.Ctx) error {
	p := page(c)
	rows, count, err := h.Store.ListEvents(c.UserContext(), paramId(c, "venueId"), p)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, model.ResponseCustom{Rows: rows, Limit: p.Limit, Page: p.Page, TotalCount: count})
}

func (h *Handler) CreateTable(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreateEventTableInput)
	eventId := paramId(c, "eventId")
	if ok, err := h.ownsEvent(c, eventId); !ok {
		return err
	}

	table := new(model.EventTable)
	copier.Copy(table, &input)
	table.EventId = eventId
	if table.Type == "" {
		table.Type = model.TableTypeNormal
	}
	if table.Zone == "" {
		table.Zone = model.ZoneFront
	}
	if err := h.Store.CreateTable(c.UserContext(), table); err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, table)
}

func (h *Handler) GetTables(c *fiber.Ctx) error {
	tables, err := h.Store.ListTables(c.UserContext(), paramId(c, "eventId"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, tables)
}

func (h *Handler) CreateCategory(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreateCategoryInput)
	if ok, err := h.ownsVenue(c, input.VenueId); !ok {
		return err
	}
	category := new(model.Category)
	copier.Copy(category, &input)
	if err := h.Store.CreateCategory(c.UserContext(), category); err != nil {
		return h.fail(c, err)
	}
	h.invalidateMenu(c, input.VenueId)
	return utils.SuccessResponse(c, fiber.StatusCreated, category)
}

func (h *Handler) GetCategories(c *fiber.Ctx) error {
	rows, err := h.Store.ListCategories(c.UserContext(), paramId(c, "venueId"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, rows)
}

func (h *Handler) CreateMenuItem(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreateMenuItemInput)
	if ok, err := h.ownsVenue(c, input.VenueId); !ok {
		return err
	}
	item := new(model.MenuItem)
	copier.Copy(item, &input)
	if err := h.Store.CreateMenuItem(c.UserContext(), item); err != nil {
		return h.fail(c, err)
	}
	h.invalidateMenu(c, input.VenueId)
	return utils.SuccessResponse(c, fiber.StatusCreated, item)
}

func (h *Handler) GetMenuItems(c *fiber.Ctx) error {
	p := page(c)
	rows, count, err := h.Store.ListMenuItems(c.UserContext(), paramId(c, "venueId"), p)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, model.ResponseCustom{Rows: rows, Limit: p.Limit, Page: p.Page, TotalCount: count})
}

func (h *Handler) GetMenuItemById(c *fiber.Ctx) error {
	item, err := h.Store.GetMenuItem(c.UserContext(), paramId(c, "menuItemId"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, item)
}

// SetEventMenu creates or replaces the event's override for one item.
func (h *Handler) SetEventMenu(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreateEventMenuInput)
	ctx := c.UserContext()
	eventId := paramId(c, "eventId")

	event, err := h.Store.GetEvent(ctx, eventId)
	if err != nil {
		return h.fail(c, err)
	}
	if ok, err := h.ownsVenue(c, event.VenueId); !ok {
		return err
	}
	item, err := h.Store.GetMenuItem(ctx, input.MenuItemId)
	if err != nil {
		return h.fail(c, err)
	}
	if item.VenueId != event.VenueId {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INVALID_INPUT, errors.New("menu item belongs to another venue"))
	}

	override := new(model.EventMenu)
	copier.Copy(override, &input)
	override.EventId = eventId
	if err := h.Store.UpsertEventMenu(ctx, override); err != nil {
		return h.fail(c, err)
	}
	h.invalidateMenu(c, event.VenueId)
	return utils.SuccessResponse(c, fiber.StatusOK, override)
}

func (h *Handler) GetEventMenu(c *fiber.Ctx) error {
	rows, err := h.Store.ListEventMenu(c.UserContext(), paramId(c, "eventId"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, rows)
}

func (h *Handler) CreateWaiter(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreateWaiterInput)
	if ok, err := h.ownsVenue(c, input.VenueId); !ok {
		return err
	}
	hash, err := helper.HashPassword(input.Pin)
	if err != nil {
		return h.fail(c, err)
	}
	waiter := new(model.Waiter)
	copier.Copy(waiter, &input)
	waiter.PinHash = hash
	if err := h.Store.CreateWaiter(c.UserContext(), waiter); err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, waiter)
}

func (h *Handler) GetWaiters(c *fiber.Ctx) error {
	rows, err := h.Store.ListWaiters(c.UserContext(), paramId(c, "venueId"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, rows)
}

func (h *Handler) CreateCustomer(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreateCustomerInput)
	customer := new(model.Customer)
	copier.Copy(customer, &input)
	if err := h.Store.CreateCustomer(c.UserContext(), customer); err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, customer)
}

func (h *Handler) GetCustomers(c *fiber.Ctx) error {
	p := page(c)
	rows, count, err := h.Store.ListCustomers(c.UserContext(), paramId(c, "venueId"), p)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, model.ResponseCustom{Rows: rows, Limit: p.Limit, Page: p.Page, TotalCount: count})
}

func (h *Handler) GetCustomerById(c *fiber.Ctx) error {
	customer, err := h.Store.GetCustomer(c.UserContext(), paramId(c, "customerId"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, customer)
}

func (h *Handler) CreateAccount(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreateAccountInput)
	if ok, err := h.ownsVenue(c, input.VenueId); !ok {
		return err
	}
	hash, err := helper.HashPassword(input.Password)
	if err != nil {
		return h.fail(c, err)
	}
	account := new(model.Account)
	copier.Copy(account, &input)
	account.Password = hash
	account.Role = constants.ROLE_MANAGER
	if err := h.Store.CreateAccount(c.UserContext(), account); err != nil {
		return h.fail(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, account)
}

func (h *Handler) invalidateMenu(c *fiber.Ctx, venueId uint) {
	if h.MenuCache == nil {
		return
	}
	if err := h.MenuCache.Invalidate(c.UserContext(), venueId); err != nil {
		h.logger().WithError(err).WithField("venue", venueId).Warn("invalidate menu cache")
	}
}
