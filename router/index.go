package router

import (
	"nightlife_order/constants"
	"nightlife_order/handler"
	"nightlife_order/middleware"
	"nightlife_order/model"
	"nightlife_order/validate"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func SetupRoutes(app *fiber.App, h *handler.Handler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	api := app.Group("/api", logger.New())
	v1 := api.Group("/v1")

	protected := middleware.Protected(h.Secret)
	staff := middleware.RequireRole(constants.ROLE_WAITER, constants.ROLE_MANAGER)
	manager := middleware.RequireRole(constants.ROLE_MANAGER)

	// guests
	v1.Get("/session/:venue/:table", h.ResolveSession)
	v1.Get("/t/:table", h.ResolveSubdomainSession)
	v1.Get("/venues/:venueId/events/:eventId/menu", validate.GetById("venueId"), validate.GetById("eventId"), h.GetMenu)
	v1.Post("/upsell", validate.Body[handler.UpsellInput](), h.Upsell)
	v1.Post("/orders", validate.Body[model.CreateOrderInput](), h.CreateOrder)
	v1.Get("/orders/code/:code", h.GetOrderByCode)
	v1.Get("/events/:eventId/tables/:tableId/orders", validate.GetById("eventId"), validate.GetById("tableId"), h.GetTableOrders)
	v1.Post("/customers", validate.Body[model.CreateCustomerInput](), h.CreateCustomer)

	auth := v1.Group("/auth")
	auth.Post("/login", validate.Body[model.LoginInput](), h.Login)
	auth.Post("/waiter", validate.Body[model.WaiterLoginInput](), h.WaiterLogin)
	auth.Get("/me", protected, h.Me)

	orders := v1.Group("/staff/orders", protected, staff)
	orders.Get("/", validate.Query[model.FilterOrder](), h.ListOrders)
	orders.Patch("/:orderId/status", validate.GetById("orderId"), validate.Body[model.UpdateOrderStatusInput](), h.UpdateOrderStatus)
	orders.Patch("/:orderId/payment", validate.GetById("orderId"), validate.Body[model.RecordPaymentInput](), h.RecordPayment)
	orders.Post("/:orderId/pay", validate.GetById("orderId"), validate.Body[model.PayInFullInput](), h.PayInFull)

	v1.Get("/staff/feed/:eventId", protected, staff, validate.GetById("eventId"), h.EventScope, handler.UpgradeFeed, websocket.New(h.StaffFeed))

	venue := v1.Group("/venues", protected)
	venue.Get("/", manager, h.GetVenues)
	venue.Post("/", manager, validate.Body[model.CreateVenueInput](), h.CreateVenue)
	venue.Get("/:venueId", validate.GetById("venueId"), h.GetVenueById)
	venue.Get("/:venueId/events", validate.GetById("venueId"), h.GetEvents)
	venue.Get("/:venueId/categories", validate.GetById("venueId"), h.GetCategories)
	venue.Get("/:venueId/menu-items", validate.GetById("venueId"), h.GetMenuItems)
	venue.Get("/:venueId/waiters", manager, validate.GetById("venueId"), h.GetWaiters)
	venue.Get("/:venueId/customers", manager, validate.GetById("venueId"), h.GetCustomers)

	event := v1.Group("/events", protected)
	event.Post("/", manager, validate.Body[model.CreateEventInput](), h.CreateEvent)
	event.Get("/:eventId/tables", staff, validate.GetById("eventId"), h.GetTables)
	event.Post("/:eventId/tables", manager, validate.GetById("eventId"), validate.Body[model.CreateEventTableInput](), h.CreateTable)
	event.Get("/:eventId/menu", staff, validate.GetById("eventId"), h.GetEventMenu)
	event.Put("/:eventId/menu", manager, validate.GetById("eventId"), validate.Body[model.CreateEventMenuInput](), h.SetEventMenu)
	event.Get("/:eventId/assignments", staff, validate.GetById("eventId"), h.EventScope, h.GetAssignments)
	event.Post("/:eventId/assignments", manager, validate.GetById("eventId"), validate.Body[model.CreateAssignmentInput](), h.CreateAssignment)
	event.Get("/:eventId/stats", manager, validate.GetById("eventId"), h.GetEventStats)

	v1.Post("/categories", protected, manager, validate.Body[model.CreateCategoryInput](), h.CreateCategory)
	v1.Post("/menu-items", protected, manager, validate.Body[model.CreateMenuItemInput](), h.CreateMenuItem)
	v1.Get("/menu-items/:menuItemId", protected, staff, validate.GetById("menuItemId"), h.GetMenuItemById)
	v1.Post("/waiters", protected, manager, validate.Body[model.CreateWaiterInput](), h.CreateWaiter)
	v1.Get("/customers/:customerId", protected, manager, validate.GetById("customerId"), h.GetCustomerById)
	v1.Post("/accounts", protected, manager, validate.Body[model.CreateAccountInput](), h.CreateAccount)
}
