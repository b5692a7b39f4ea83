package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/storefront-orders/bus"
	"github.com/yeremiapane/storefront-orders/cart"
	"github.com/yeremiapane/storefront-orders/models"
)

// setupTestDB opens a private in-memory database per test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func createTenant(t *testing.T, db *gorm.DB, slug string) *models.Tenant {
	t.Helper()
	tenant, err := NewTenantService(db).Create(context.Background(), slug, strings.ToUpper(slug), "secret-password")
	require.NoError(t, err)
	return tenant
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []bus.Event
}

func (p *recordingPublisher) Publish(ev bus.Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return 1
}

func (p *recordingPublisher) kinds() []bus.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]bus.Kind, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Kind
	}
	return out
}

func sampleInput(phone string, items ...cart.Item) CreateOrderInput {
	if len(items) == 0 {
		items = []cart.Item{{ID: 1, Name: "Gordita", UnitPrice: 125, Quantity: 2, PiecesPerUnit: 1}}
	}
	return CreateOrderInput{
		Customer:      CustomerInfo{Name: "Ana", Phone: phone, Address: "Calle 5 #12", PostalCode: "44100"},
		Items:         items,
		PaymentMethod: models.PaymentCash,
	}
}
