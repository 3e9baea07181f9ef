package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/security"
	"github.com/aryan0dhankhar/storepulse/internal/service"
)

// AnalysisEvent is pushed to websocket clients whenever the caller's current
// analysis or admission gate changes.
type AnalysisEvent struct {
	Analysis  *domain.Analysis         `json:"analysis"`
	Admission *service.AdmissionStatus `json:"admission"`
}

// AnalysisStreamHandler streams analysis status over a websocket
type AnalysisStreamHandler struct {
	admission      *service.AdmissionService
	authz          *security.AuthorizationService
	logger         *slog.Logger
	allowedOrigins []string
	pollInterval   time.Duration
	pingInterval   time.Duration
}

// NewAnalysisStreamHandler creates a new stream handler
func NewAnalysisStreamHandler(
	admission *service.AdmissionService,
	authz *security.AuthorizationService,
	logger *slog.Logger,
	allowedOrigins []string,
) *AnalysisStreamHandler {
	return &AnalysisStreamHandler{
		admission:      admission,
		authz:          authz,
		logger:         logger,
		allowedOrigins: allowedOrigins,
		pollInterval:   2 * time.Second,
		pingInterval:   15 * time.Second,
	}
}

func (h *AnalysisStreamHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no origin.
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if allowed == "*" || origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/analyses/current
func (h *AnalysisStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermReadAnalysis)
	if !ok {
		return
	}

	up := h.upgrader()
	ws, err := up.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The read pump only detects the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := h.stream(ctx, ws, actor); err != nil {
		h.logger.Debug("analysis stream ended",
			slog.String("user_id", actor.UserID),
			slog.String("reason", err.Error()),
		)
	}
}

func (h *AnalysisStreamHandler) stream(ctx context.Context, ws *websocket.Conn, actor domain.Actor) error {
	poll := time.NewTicker(h.pollInterval)
	defer poll.Stop()
	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	var last []byte
	for {
		payload, err := h.snapshot(ctx, actor)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			h.logger.Error("failed to load analysis status", slog.String("error", err.Error()))
		} else if !bytes.Equal(payload, last) {
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return err
			}
			last = payload
		}

		select {
		case <-ctx.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return ctx.Err()
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return err
			}
		case <-poll.C:
		}
	}
}

func (h *AnalysisStreamHandler) snapshot(ctx context.Context, actor domain.Actor) ([]byte, error) {
	current, err := h.admission.Current(ctx, actor)
	if err != nil {
		return nil, err
	}
	status, err := h.admission.Status(ctx, actor)
	if err != nil {
		return nil, err
	}
	return json.Marshal(AnalysisEvent{Analysis: current, Admission: status})
}
