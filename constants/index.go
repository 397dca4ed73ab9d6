package constants

const (
	ROLE_MANAGER = "manager"
	ROLE_WAITER  = "waiter"
)

const (
	DATA_INPUT_IS_NOT_NUMBER = "Input is not a number"
	ERROR_INTERNAL_ERROR     = "Internal server error"
	ERROR_INVALID_INPUT      = "Invalid input"
	ERROR_NOT_FOUND          = "Record not found"
	ERROR_UNAUTHORIZED       = "Unauthorized"
	ERROR_STALE_ORDER        = "Order was changed by someone else, reload and retry"
	ERROR_INVALID_TRANSITION = "Order status cannot change that way"
	ERROR_INVALID_PAYMENT    = "Invalid payment"
)

const (
	MESSAGE_VENUE_NOT_FOUND = "This venue could not be found."
	MESSAGE_NO_EVENT        = "There is no event tonight at this venue."
	MESSAGE_UPCOMING        = "The event has not started yet."
	MESSAGE_TABLE_NOT_FOUND = "This table is not part of tonight's event."
)

// Device storage keys.
const (
	KEY_CART_PREFIX     = "cart:"
	KEY_PENDING_ORDERS  = "pending_orders"
	KEY_STAFF_SESSION   = "staff_session"
	KEY_MANAGER_SESSION = "manager_session"
)

const MAX_UPSELL_SUGGESTIONS = 4

// DEFAULT_PRICE_DRIFT is how far, as a factor, a cart-captured price may be
// from the current menu price and still be honoured.
const DEFAULT_PRICE_DRIFT = 4.0
