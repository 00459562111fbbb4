package worker

import (
	"github.com/ecoai-civic/ecoai-client/internal/events"
	"github.com/ecoai-civic/ecoai-client/internal/service"
)

// StartSessionAuditWorker registers the audit handlers. The returned function
// detaches them.
func StartSessionAuditWorker(audit *service.SessionAuditService) events.Unsubscribe {
	if audit == nil {
		return func() {}
	}
	return audit.RegisterHandlers()
}
