package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/events"
	"github.com/ecoai-civic/ecoai-client/internal/observability"
)

// SessionAuditService logs every change to a browser's stored credentials.
type SessionAuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewSessionAuditService creates the service.
func NewSessionAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *SessionAuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionAuditService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to storage changes.
func (s *SessionAuditService) RegisterHandlers() events.Unsubscribe {
	if s.dispatcher == nil {
		return func() {}
	}
	return s.dispatcher.Subscribe(events.EventStorageChanged, s.handleStorageChanged)
}

func (s *SessionAuditService) handleStorageChanged(_ context.Context, event events.Event) error {
	s.metrics.RecordStorageChange()
	s.logger.Info("StorageChanged",
		zap.String("event_id", event.ID),
		zap.String("namespace", event.Namespace),
		zap.Strings("keys", event.Keys),
		zap.Time("at", event.Timestamp),
	)
	return nil
}
