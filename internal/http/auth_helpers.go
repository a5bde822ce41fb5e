package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarium/internal/auth"
	"github.com/mrlokans/librarium/internal/config"
	"github.com/mrlokans/librarium/internal/entities"
)

// AuthTemplateData holds authentication info for templates.
type AuthTemplateData struct {
	Enabled     bool   // Whether auth is enabled (AuthModeToken)
	LoggedIn    bool   // Whether user is logged in
	Username    string // Current user's username (empty if not logged in)
	IsLibrarian bool   // Whether the current user holds the librarian role
	CSRFToken   string // CSRF token for forms (empty when auth disabled)
}

// AuthContextMiddleware injects authentication data into Gin context for
// templates. Templates access it via .Auth in the template data.
func AuthContextMiddleware(authMode config.AuthMode) gin.HandlerFunc {
	authEnabled := authMode == config.AuthModeToken

	return func(c *gin.Context) {
		authData := AuthTemplateData{
			Enabled:   authEnabled,
			CSRFToken: auth.GetCSRFToken(c),
		}

		if authEnabled {
			if userID := auth.GetUserID(c); userID != 0 {
				authData.LoggedIn = true
				authData.Username = auth.GetUsername(c)
				authData.IsLibrarian = auth.GetUserRole(c) == entities.RoleLibrarian
			}
		} else {
			// Single-user mode acts with full permissions
			authData.IsLibrarian = true
		}

		c.Set("auth_template_data", authData)
		c.Next()
	}
}

// GetAuthTemplateData retrieves auth data from context for use in templates.
func GetAuthTemplateData(c *gin.Context) AuthTemplateData {
	if data, exists := c.Get("auth_template_data"); exists {
		if authData, ok := data.(AuthTemplateData); ok {
			return authData
		}
	}
	return AuthTemplateData{}
}

// isLibrarian reports whether the caller may perform librarian-only
// operations. With auth disabled every caller may.
func isLibrarian(c *gin.Context) bool {
	if auth.GetAuthType(c) == auth.AuthTypeNone {
		return true
	}
	return auth.GetUserRole(c) == entities.RoleLibrarian
}
