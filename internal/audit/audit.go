package audit

import (
	"context"

	"github.com/weiawesome/majex-chat/internal/hub"
	"github.com/weiawesome/majex-chat/pkg/log"
)

// Audit actions for the chat service.
const (
	ActionConnect        = "chat.connect"
	ActionDisconnect     = "chat.disconnect"
	ActionEvict          = "chat.evict"
	ActionSendMessage    = "chat.send_message"
	ActionMessageDropped = "chat.message_dropped"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, senderID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldSenderID, senderID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, senderID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldSenderID, senderID).
		Str(FieldDetail, detail).
		Msg(msg)
}

// MembershipLogger records connects, disconnects and evictions.
type MembershipLogger struct{}

// OnMembershipChange implements hub.Listener.
func (MembershipLogger) OnMembershipChange(_ context.Context, event hub.MembershipEvent) {
	action, msg := ActionConnect, "client connected"
	switch event.Kind {
	case hub.EventLeave:
		action, msg = ActionDisconnect, "client disconnected"
	case hub.EventEvict:
		action, msg = ActionEvict, "client evicted"
	}

	for _, c := range event.Clients {
		l := c.Logger()
		l.Info().
			Str(log.FieldLogType, log.LogTypeAudit).
			Str(FieldAction, action).
			Int(log.FieldOnline, event.Count).
			Msg(msg)
	}
}
