// Package bus is the in-process, best-effort event channel between the order
// store and connected clients. Nothing is persisted or replayed: a subscriber
// only sees events published while it is subscribed, and a subscriber whose
// buffer is full loses the event. Clients reconcile by re-fetching the order.
package bus

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/storefront-orders/models"
)

type Kind string

const (
	KindStatusChanged Kind = "status_changed"
	KindNewOrder      Kind = "new_order"
)

type Event struct {
	Kind         Kind               `json:"event"`
	TenantID     uint               `json:"-"`
	OrderID      uint               `json:"order_id"`
	Phone        string             `json:"phone,omitempty"`
	TrackingCode string             `json:"tracking_code,omitempty"`
	Status       models.OrderStatus `json:"status,omitempty"`
	StatusLabel  string             `json:"status_label,omitempty"`
	At           time.Time          `json:"at"`
}

// StatusChanged builds the targeted event sent after a status transition.
func StatusChanged(order models.Order) Event {
	return Event{
		Kind:         KindStatusChanged,
		TenantID:     order.TenantID,
		OrderID:      order.ID,
		Phone:        order.Phone,
		TrackingCode: order.TrackingCode,
		Status:       order.Status,
		StatusLabel:  order.Status.Label(),
		At:           time.Now().UTC(),
	}
}

// NewOrder builds the broadcast signal for admin listeners.
func NewOrder(order models.Order) Event {
	return Event{
		Kind:     KindNewOrder,
		TenantID: order.TenantID,
		OrderID:  order.ID,
		At:       time.Now().UTC(),
	}
}

// Filter decides whether a subscriber wants an event of its tenant.
type Filter func(Event) bool

// Everything passes every event of the tenant through.
func Everything(Event) bool { return true }

// TrackedOrder passes only status changes of one order for one phone number.
func TrackedOrder(orderID uint, phone string) Filter {
	return func(ev Event) bool {
		return ev.Kind == KindStatusChanged && ev.OrderID == orderID && ev.Phone == phone
	}
}

type subscriber struct {
	tenantID uint
	filter   Filter
	ch       chan Event
}

// Subscription is a live registration. C is closed by Unsubscribe.
type Subscription struct {
	C   <-chan Event
	id  uint64
	bus *Bus
	mu  sync.Once
}

func (s *Subscription) Unsubscribe() {
	s.mu.Do(func() { s.bus.remove(s.id) })
}

type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
	buffer int
	log    logrus.FieldLogger
}

func New(buffer int, log logrus.FieldLogger) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{
		subs:   make(map[uint64]*subscriber),
		buffer: buffer,
		log:    log,
	}
}

func (b *Bus) Subscribe(tenantID uint, filter Filter) *Subscription {
	if filter == nil {
		filter = Everything
	}
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = &subscriber{tenantID: tenantID, filter: filter, ch: ch}
	b.mu.Unlock()

	return &Subscription{C: ch, id: id, bus: b}
}

// Publish hands the event to every matching subscriber without blocking and
// returns how many received it.
func (b *Bus) Publish(ev Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for id, sub := range b.subs {
		if sub.tenantID != ev.TenantID || !sub.filter(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
			delivered++
		default:
			b.log.WithFields(logrus.Fields{
				"subscriber": id,
				"event":      ev.Kind,
				"order_id":   ev.OrderID,
			}).Warn("bus: subscriber buffer full, event dropped")
		}
	}
	return delivered
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Close ends every subscription, which closes the subscribers' channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
