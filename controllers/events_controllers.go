package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/storefront-orders/bus"
	"github.com/yeremiapane/storefront-orders/middlewares"
	"github.com/yeremiapane/storefront-orders/services"
	"github.com/yeremiapane/storefront-orders/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventsController streams bus events to websocket clients.
type EventsController struct {
	Bus    *bus.Bus
	Orders *services.OrderService
}

func NewEventsController(b *bus.Bus, orders *services.OrderService) *EventsController {
	return &EventsController{Bus: b, Orders: orders}
}

// AdminEvents receives every order event of the tenant.
func (ec *EventsController) AdminEvents(c *gin.Context) {
	tenant := middlewares.CurrentTenant(c)
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	ec.stream(ws, ec.Bus.Subscribe(tenant.ID, bus.Everything), nil)
}

// TrackEvents follows one order. The phone and code must match before the
// upgrade; the first message is the current status.
func (ec *EventsController) TrackEvents(c *gin.Context) {
	tenant := middlewares.CurrentTenant(c)
	order, err := ec.Orders.FindByTrackingCode(c.Request.Context(), tenant.ID, c.Query("phone"), c.Query("code"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	sub := ec.Bus.Subscribe(tenant.ID, bus.TrackedOrder(order.ID, order.Phone))
	first := bus.StatusChanged(*order)
	ec.stream(ws, sub, &first)
}

func (ec *EventsController) stream(ws *websocket.Conn, sub *bus.Subscription, first *bus.Event) {
	defer func() {
		sub.Unsubscribe()
		ws.Close()
	}()

	closed := make(chan struct{})
	go readPump(ws, closed)

	if first != nil {
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(first); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-sub.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteJSON(ev); err != nil {
				utils.InfoLogger.WithError(err).Debug("websocket write failed")
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// readPump drains client frames so control messages are processed, and
// reports when the peer goes away.
func readPump(ws *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	ws.SetReadLimit(512)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
