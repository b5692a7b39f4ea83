package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/storefront-orders/session"
)

// SessionJanitor periodically evicts idle checkout sessions.
type SessionJanitor struct {
	Store    *session.Store
	Interval time.Duration
	Log      logrus.FieldLogger
	StopChan chan struct{}
}

func NewSessionJanitor(store *session.Store, interval time.Duration, log logrus.FieldLogger) *SessionJanitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SessionJanitor{
		Store:    store,
		Interval: interval,
		Log:      log,
		StopChan: make(chan struct{}),
	}
}

// Run sweeps on every tick until ctx is done or Stop is called.
func (j *SessionJanitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep()
		case <-j.StopChan:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (j *SessionJanitor) Start() {
	go func() { _ = j.Run(context.Background()) }()
}

func (j *SessionJanitor) Stop() {
	close(j.StopChan)
}

func (j *SessionJanitor) sweep() {
	if removed := j.Store.Sweep(); removed > 0 {
		j.Log.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": j.Store.Len(),
		}).Info("expired checkout sessions evicted")
	}
}
