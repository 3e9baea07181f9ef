package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/security"
	"github.com/aryan0dhankhar/storepulse/internal/security/middleware"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error           string            `json:"error"`
	Reason          string            `json:"reason,omitempty"`
	NextAvailableAt *time.Time        `json:"next_available_at,omitempty"`
	Fields          map[string]string `json:"fields,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report json field names rather than Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decode parses a JSON body into dst and runs its validate tags. An empty
// body is allowed when allowEmpty is set.
func decode(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			logger.Debug("failed to decode request", slog.String("error", err.Error()))
			writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Reason: "malformed"})
			return false
		}
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Reason: "validation"})
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, logger, http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Reason: "validation", Fields: fields})
		return false
	}
	return true
}

// writeError maps core errors to status codes. Anything outside the domain
// taxonomy is logged and reported as a generic 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var rl *domain.RateLimitedError
	switch {
	case errors.As(err, &rl):
		next := rl.NextAvailableAt.UTC()
		secs := int(math.Ceil(time.Until(next).Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, logger, http.StatusTooManyRequests, ErrorResponse{Error: err.Error(), Reason: "rate_limited", NextAvailableAt: &next})
	case errors.Is(err, domain.ErrAlreadyInFlight):
		writeJSON(w, logger, http.StatusConflict, ErrorResponse{Error: err.Error(), Reason: "in_flight"})
	case errors.Is(err, domain.ErrInsufficientCredits):
		writeJSON(w, logger, http.StatusPaymentRequired, ErrorResponse{Error: err.Error(), Reason: "insufficient_credits"})
	case errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, logger, http.StatusConflict, ErrorResponse{Error: err.Error(), Reason: "invalid_transition"})
	case errors.Is(err, domain.ErrCannotDeleteSystemStep):
		writeJSON(w, logger, http.StatusConflict, ErrorResponse{Error: err.Error(), Reason: "cannot_delete_system_step"})
	case errors.Is(err, domain.ErrInvalidStepIndex):
		writeJSON(w, logger, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Reason: "invalid_step_index"})
	case errors.Is(err, domain.ErrInvalidStepReference):
		writeJSON(w, logger, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Reason: "invalid_step_reference"})
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, logger, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Reason: "validation"})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, logger, http.StatusForbidden, ErrorResponse{Error: "forbidden", Reason: "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, logger, http.StatusNotFound, ErrorResponse{Error: "not found", Reason: "not_found"})
	default:
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, logger, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// actorFor returns the authenticated caller after checking perm.
func actorFor(w http.ResponseWriter, r *http.Request, logger *slog.Logger, authz *security.AuthorizationService, perm security.Permission) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, logger, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return domain.Actor{}, false
	}
	if err := authz.ValidatePermission(actor, perm); err != nil {
		writeError(w, logger, err)
		return domain.Actor{}, false
	}
	return actor, true
}

func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domain.Validationf("%s must be an integer", name)
	}
	return &v, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domain.Validationf("%s must be a boolean", name)
	}
	return v, nil
}
