package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/storefront-orders/bus"
	"github.com/yeremiapane/storefront-orders/cart"
	"github.com/yeremiapane/storefront-orders/models"
)

// EventPublisher receives order events after they are committed.
type EventPublisher interface {
	Publish(ev bus.Event) int
}

type CustomerInfo struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
	Notes      string `json:"notes"`
}

type CreateOrderInput struct {
	Customer       CustomerInfo
	Items          []cart.Item
	PaymentMethod  models.PaymentMethod
	CashTendered   *float64
	IdempotencyKey string
}

type ListFilter struct {
	Search   string
	Status   models.OrderStatus
	Page     int
	PageSize int
}

type ListResult struct {
	Orders   []models.Order `json:"orders"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// OrderService is the only writer of order status and status history.
type OrderService struct {
	db       *gorm.DB
	events   EventPublisher
	log      logrus.FieldLogger
	locks    *tenantLocks
	attempts int
	newCode  func() (string, error)
	now      func() time.Time
}

func NewOrderService(db *gorm.DB, events EventPublisher, log logrus.FieldLogger, codeAttempts int) *OrderService {
	if codeAttempts < 1 {
		codeAttempts = 1
	}
	return &OrderService{
		db:       db,
		events:   events,
		log:      log,
		locks:    newTenantLocks(),
		attempts: codeAttempts,
		newCode:  NewTrackingCode,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder persists the order, its lines and the first history row in one
// transaction. A repeated idempotency key returns the order created first and
// reports replayed=true.
func (s *OrderService) CreateOrder(ctx context.Context, tenantID uint, in CreateOrderInput) (*models.Order, bool, error) {
	if len(in.Items) == 0 {
		return nil, false, ErrEmptyCart
	}
	if !in.PaymentMethod.Valid() {
		return nil, false, invalid("payment_method", "must be cash or terminal")
	}
	phone := NormalizePhone(in.Customer.Phone)
	if strings.TrimSpace(in.Customer.Name) == "" {
		return nil, false, invalid("name", "is required")
	}
	if phone == "" {
		return nil, false, invalid("phone", "is required")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > models.IdempotencyKeyMaxLen {
		return nil, false, invalid("idempotency_key", fmt.Sprintf("must be at most %d characters", models.IdempotencyKeyMaxLen))
	}
	if key != "" {
		if existing, err := s.findByIdempotencyKey(ctx, tenantID, key); err == nil {
			return existing, true, nil
		} else if !errors.Is(err, ErrOrderNotFound) {
			return nil, false, err
		}
	}

	unlock := s.locks.lock(tenantID)
	defer unlock()

	for attempt := 0; attempt < s.attempts; attempt++ {
		code, err := s.uniqueCode(ctx, tenantID)
		if err != nil {
			return nil, false, err
		}

		order := s.buildOrder(tenantID, code, phone, key, in)
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.insert(tx, order)
		})
		if err == nil {
			s.log.WithFields(logrus.Fields{
				"tenant_id":     tenantID,
				"order_id":      order.ID,
				"tracking_code": order.TrackingCode,
				"total":         order.Total,
			}).Info("order created")
			s.events.Publish(bus.NewOrder(*order))
			return order, false, nil
		}

		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, errors.Wrap(err, "create order")
		}
		// Either another process took the code or the same idempotency key won a race.
		if key != "" {
			if existing, findErr := s.findByIdempotencyKey(ctx, tenantID, key); findErr == nil {
				return existing, true, nil
			}
		}
		s.log.WithField("tenant_id", tenantID).Warn("tracking code collided on insert, retrying")
	}
	return nil, false, ErrTrackingCodeExhausted
}

func (s *OrderService) uniqueCode(ctx context.Context, tenantID uint) (string, error) {
	for attempt := 0; attempt < s.attempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return "", errors.Wrap(err, "generate tracking code")
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Order{}).
			Where("tenant_id = ? AND tracking_code = ?", tenantID, code).
			Count(&count).Error; err != nil {
			return "", errors.Wrap(err, "check tracking code")
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", ErrTrackingCodeExhausted
}

func (s *OrderService) buildOrder(tenantID uint, code, phone, key string, in CreateOrderInput) *models.Order {
	now := s.now()
	order := &models.Order{
		TenantID:      tenantID,
		TrackingCode:  code,
		CustomerName:  strings.TrimSpace(in.Customer.Name),
		Phone:         phone,
		Address:       strings.TrimSpace(in.Customer.Address),
		PostalCode:    strings.TrimSpace(in.Customer.PostalCode),
		Notes:         strings.TrimSpace(in.Customer.Notes),
		PaymentMethod: in.PaymentMethod,
		Status:        models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if key != "" {
		order.IdempotencyKey = &key
	}
	if in.PaymentMethod == models.PaymentCash && in.CashTendered != nil {
		cash := *in.CashTendered
		order.CashTendered = &cash
	}

	var total float64
	for _, it := range in.Items {
		line := models.OrderLine{
			MenuItemID:  it.ID,
			Description: LineDescription(it),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			CreatedAt:   now,
		}
		total += line.Subtotal()
		order.Lines = append(order.Lines, line)
	}
	order.Total = roundCents(total)
	order.History = []models.StatusHistory{{Status: models.StatusPending, Timestamp: now}}
	return order
}

func (s *OrderService) insert(tx *gorm.DB, order *models.Order) error {
	lines, history := order.Lines, order.History
	order.Lines, order.History = nil, nil

	if err := tx.Create(order).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	if err := tx.Create(&lines).Error; err != nil {
		return err
	}
	history[0].OrderID = order.ID
	if err := tx.Create(&history).Error; err != nil {
		return err
	}
	order.Lines, order.History = lines, history
	return nil
}

// ChangeStatus moves the order along its lifecycle and appends one history row.
// Cancelling zeroes the recorded total.
func (s *OrderService) ChangeStatus(ctx context.Context, tenantID, orderID uint, next models.OrderStatus, reason string) (*models.Order, error) {
	if !next.Valid() {
		return nil, invalid("status", "unknown status")
	}
	reason = strings.TrimSpace(reason)

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND tenant_id = ?", orderID, tenantID).First(&order).Error; err != nil {
			return err
		}
		current := order.Status
		if !current.CanTransitionTo(next) {
			return errors.Wrapf(ErrInvalidTransition, "%s to %s", current.Label(), next.Label())
		}

		now := s.now()
		updates := map[string]interface{}{
			"status":     next,
			"updated_at": now,
		}
		if next == models.StatusCancelled {
			updates["total"] = 0.0
			if reason != "" {
				updates["cancellation_reason"] = reason
			}
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND tenant_id = ? AND status = ?", orderID, tenantID, current).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrConcurrentUpdate
		}

		entry := models.StatusHistory{OrderID: order.ID, Status: next, Timestamp: now}
		return tx.Create(&entry).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrConcurrentUpdate) {
			return nil, err
		}
		return nil, errors.Wrap(err, "change order status")
	}

	updated, err := s.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"order_id":  orderID,
		"status":    next.Code(),
	}).Info("order status changed")
	s.events.Publish(bus.StatusChanged(*updated))
	return updated, nil
}

// UpdatePayment changes how the customer pays while the order is still Pending or Preparing.
func (s *OrderService) UpdatePayment(ctx context.Context, tenantID, orderID uint, method models.PaymentMethod, cashTendered *float64) (*models.Order, error) {
	if !method.Valid() {
		return nil, invalid("payment_method", "must be cash or terminal")
	}
	if method != models.PaymentCash {
		cashTendered = nil
	}
	if cashTendered != nil && *cashTendered < 0 {
		return nil, invalid("cash_tendered", "cannot be negative")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Where("id = ? AND tenant_id = ?", orderID, tenantID).First(&order).Error; err != nil {
			return err
		}
		if !order.Status.PreDispatch() {
			return ErrPaymentLocked
		}
		if cashTendered != nil && *cashTendered < order.Total {
			return invalid("cash_tendered", "is less than the order total")
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND tenant_id = ? AND status = ?", orderID, tenantID, order.Status).
			Updates(map[string]interface{}{
				"payment_method": method,
				"cash_tendered":  cashTendered,
				"updated_at":     s.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrConcurrentUpdate
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrOrderNotFound
		case errors.Is(err, ErrPaymentLocked), errors.Is(err, ErrValidation), errors.Is(err, ErrConcurrentUpdate):
			return nil, err
		}
		return nil, errors.Wrap(err, "update payment")
	}
	return s.GetByID(ctx, tenantID, orderID)
}

// FindByTrackingCode requires both the phone number and the code to match the same order.
func (s *OrderService) FindByTrackingCode(ctx context.Context, tenantID uint, phone, code string) (*models.Order, error) {
	phone = NormalizePhone(phone)
	code = NormalizeTrackingCode(code)
	if phone == "" || code == "" {
		return nil, ErrOrderNotFound
	}

	var order models.Order
	err := s.withDetails(s.db.WithContext(ctx)).
		Where("tenant_id = ? AND tracking_code = ? AND phone = ?", tenantID, code, phone).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "find order by tracking code")
	}
	return &order, nil
}

func (s *OrderService) GetByID(ctx context.Context, tenantID, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.withDetails(s.db.WithContext(ctx)).
		Where("id = ? AND tenant_id = ?", orderID, tenantID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return &order, nil
}

// List returns the tenant's orders, newest first.
func (s *OrderService) List(ctx context.Context, tenantID uint, f ListFilter) (*ListResult, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}

	scoped := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Order{}).Where("tenant_id = ?", tenantID)
		if search := strings.TrimSpace(f.Search); search != "" {
			like := "%" + escapeLike(search) + "%"
			q = q.Where("(customer_name LIKE ? ESCAPE '!' OR tracking_code LIKE ? ESCAPE '!')", like, like)
		}
		if f.Status.Valid() {
			q = q.Where("status = ?", f.Status)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, errors.Wrap(err, "count orders")
	}

	var orders []models.Order
	if err := scoped().Preload("Lines").
		Order("created_at DESC").Order("id DESC").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&orders).Error; err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	return &ListResult{Orders: orders, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

func (s *OrderService) findByIdempotencyKey(ctx context.Context, tenantID uint, key string) (*models.Order, error) {
	var order models.Order
	err := s.withDetails(s.db.WithContext(ctx)).
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "find order by idempotency key")
	}
	return &order, nil
}

func (s *OrderService) withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

// LineDescription renders a cart entry as stored on the order: the name, then
// the chosen extras in brackets and the customer's comment in parentheses.
func LineDescription(it cart.Item) string {
	desc := it.Name
	if d := strings.TrimSpace(it.Details); d != "" {
		desc += " [" + d + "]"
	}
	if c := strings.TrimSpace(it.Comment); c != "" {
		desc += " (" + c + ")"
	}
	return desc
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
