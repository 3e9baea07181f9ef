package security

import (
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermRequestAnalysis   Permission = "request_analysis"
	PermReadAnalysis      Permission = "read_analysis"
	PermReportAnalysis    Permission = "report_analysis"
	PermManageSuggestions Permission = "manage_suggestions"
	PermViewImpact        Permission = "view_impact"
	PermViewCredits       Permission = "view_credits"
	PermGrantCredits      Permission = "grant_credits"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleAdmin: {
		PermRequestAnalysis,
		PermReadAnalysis,
		PermReportAnalysis,
		PermManageSuggestions,
		PermViewImpact,
		PermViewCredits,
		PermGrantCredits,
	},
	domain.RoleMember: {
		PermRequestAnalysis,
		PermReadAnalysis,
		PermManageSuggestions,
		PermViewImpact,
		PermViewCredits,
	},
	// The job processor only reads analyses and reports results.
	domain.RoleService: {
		PermReadAnalysis,
		PermReportAnalysis,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role domain.Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}
	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission returns an error wrapping domain.ErrForbidden when the
// actor's role lacks permission.
func (as *AuthorizationService) ValidatePermission(actor domain.Actor, permission Permission) error {
	if !as.HasPermission(actor.Role, permission) {
		as.logger.Warn("permission denied",
			slog.String("user_id", actor.UserID),
			slog.String("role", string(actor.Role)),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("%w: %s role cannot %s", domain.ErrForbidden, actor.Role, permission)
	}
	return nil
}

// GetRolePermissions returns all permissions for a role
func (as *AuthorizationService) GetRolePermissions(role domain.Role) []Permission {
	return RolePermissions[role]
}
