package services

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
)

const (
	trackingAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	TrackingCodeLength = 6
)

// NewTrackingCode returns a random code drawn from uppercase letters and digits.
func NewTrackingCode() (string, error) {
	max := big.NewInt(int64(len(trackingAlphabet)))
	var sb strings.Builder
	sb.Grow(TrackingCodeLength)
	for i := 0; i < TrackingCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(trackingAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeTrackingCode makes lookups tolerant to case and surrounding spaces.
func NormalizeTrackingCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizePhone keeps digits only.
func NormalizePhone(phone string) string {
	var sb strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// tenantLocks serialises code allocation and insert per tenant.
type tenantLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newTenantLocks() *tenantLocks {
	return &tenantLocks{locks: make(map[uint]*sync.Mutex)}
}

func (tl *tenantLocks) lock(tenantID uint) func() {
	tl.mu.Lock()
	m, ok := tl.locks[tenantID]
	if !ok {
		m = &sync.Mutex{}
		tl.locks[tenantID] = m
	}
	tl.mu.Unlock()

	m.Lock()
	return m.Unlock
}
