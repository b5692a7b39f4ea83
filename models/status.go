package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// OrderStatus is the closed set of order lifecycle states.
type OrderStatus int

const (
	StatusPending OrderStatus = iota + 1
	StatusPreparing
	StatusEnRoute
	StatusDelivered
	StatusCancelled
)

var statusCodes = map[OrderStatus]string{
	StatusPending:   "pending",
	StatusPreparing: "preparing",
	StatusEnRoute:   "en_route",
	StatusDelivered: "delivered",
	StatusCancelled: "cancelled",
}

var statusLabels = map[OrderStatus]string{
	StatusPending:   "Pending",
	StatusPreparing: "Preparing",
	StatusEnRoute:   "En Route",
	StatusDelivered: "Delivered",
	StatusCancelled: "Cancelled",
}

// allowed transitions; terminal states have no entry
var statusEdges = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusEnRoute, StatusCancelled},
	StatusEnRoute:   {StatusDelivered},
}

// AllStatuses lists statuses in lifecycle order.
func AllStatuses() []OrderStatus {
	return []OrderStatus{StatusPending, StatusPreparing, StatusEnRoute, StatusDelivered, StatusCancelled}
}

// ParseStatus accepts either the storage code ("en_route") or the display label ("En Route").
func ParseStatus(s string) (OrderStatus, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for st, code := range statusCodes {
		if norm == code || norm == strings.ToLower(statusLabels[st]) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown order status %q", s)
}

func (s OrderStatus) Valid() bool {
	_, ok := statusCodes[s]
	return ok
}

// Code is the stable storage and wire value.
func (s OrderStatus) Code() string {
	if code, ok := statusCodes[s]; ok {
		return code
	}
	return "unknown"
}

// Label is the business-facing display string.
func (s OrderStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

func (s OrderStatus) String() string { return s.Label() }

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// PreDispatch reports whether the order has not left the kitchen yet.
func (s OrderStatus) PreDispatch() bool {
	return s == StatusPending || s == StatusPreparing
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusEdges[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid order status %d", int(s))
	}
	return s.Code(), nil
}

func (s *OrderStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into OrderStatus", src)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Code())
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// PaymentMethod is how the customer pays on delivery.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTerminal PaymentMethod = "terminal"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentTerminal
}
