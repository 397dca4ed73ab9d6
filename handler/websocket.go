package handler

import (
	"context"

	"nightlife_order/feed"
	"nightlife_order/model"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type feedMessage struct {
	Type   string        `json:"type"`
	Orders []model.Order `json:"orders,omitempty"`
	Tables []uint        `json:"tables,omitempty"`
	Alert  *feed.Alert   `json:"alert,omitempty"`
}

// UpgradeFeed lets only websocket upgrades through to StaffFeed.
func UpgradeFeed(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// StaffFeed streams the caller's order list for one event. A waiter gets
// only assigned tables when ?assigned=true, plus new-order alerts; a manager
// sees the whole event.
func (h *Handler) StaffFeed(conn *websocket.Conn) {
	claim, _ := conn.Locals("claim").(model.TokenClaim)
	eventId, _ := conn.Locals("eventId").(uint)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer conn.Close()

	logger := h.logger().WithFields(log.Fields{"event": eventId, "waiter": claim.WaiterId})
	view := feed.NewStaffView(h.Hub, h.Store, feed.ViewOptions{
		EventId:      eventId,
		WaiterId:     claim.WaiterId,
		AssignedOnly: claim.WaiterId != 0 && conn.Query("assigned") == "true",
		Logger:       logger,
	})
	go func() {
		if err := view.Run(ctx); err != nil {
			logger.WithError(err).Warn("staff view stopped")
		}
		cancel()
	}()

	// the reader only notices the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		var msg feedMessage
		select {
		case <-ctx.Done():
			return
		case <-view.Updates():
			msg = feedMessage{Type: "orders", Orders: view.Snapshot(), Tables: view.AssignedTables()}
		case a := <-view.Alerts():
			msg = feedMessage{Type: "alert", Alert: &a}
		}
		if err := conn.WriteJSON(msg); err != nil {
			logger.WithError(err).Info("staff feed closed")
			return
		}
	}
}
