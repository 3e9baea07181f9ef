package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

type ctxKey struct{}

// WithRequestID stores the request id for audit records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Logger writes the audit trail of state-changing actions.
type Logger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With(slog.String("component", "audit")), now: time.Now}
}

func (al *Logger) LogAction(ctx context.Context, actor domain.Actor, action, resource, resourceID, status, details string) {
	if al == nil {
		return
	}
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("store_id", actor.StoreID),
		slog.String("user_id", actor.UserID),
		slog.String("role", string(actor.Role)),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", al.now()),
	)
}

func (al *Logger) LogAnalysisRequest(ctx context.Context, actor domain.Actor, analysisID, status, details string) {
	al.LogAction(ctx, actor, "request_analysis", "analysis", analysisID, status, details)
}

func (al *Logger) LogStatusChange(ctx context.Context, actor domain.Actor, resource, resourceID, from, to string) {
	al.LogAction(ctx, actor, "status_change", resource, resourceID, "success", from+" -> "+to)
}

func (al *Logger) LogMutation(ctx context.Context, actor domain.Actor, action, resource, resourceID string) {
	al.LogAction(ctx, actor, action, resource, resourceID, "success", "")
}

func (al *Logger) LogCreditGrant(ctx context.Context, actor domain.Actor, userID string, amount, balance int) {
	al.LogAction(ctx, actor, "grant_credits", "user", userID, "success", fmt.Sprintf("%d credits, balance %d", amount, balance))
}

func (al *Logger) LogDenied(ctx context.Context, actor domain.Actor, reason string) {
	al.LogAction(ctx, actor, "access_denied", "api", "", "denied", reason)
}
