package constant

const (
	DefaultUserRoleID   = 1
	AdminRoleID         = 2
	DefaultUserRoleName = "user"

	RoleUser  = "user"
	RoleAdmin = "admin"

	DefaultTokenType = "Bearer"

	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"

	// RefreshCookiePath scopes the refresh cookie to the auth endpoints so the
	// long-lived token is never sent anywhere else.
	RefreshCookieName = "refresh_token"
	RefreshCookiePath = "/api/v1/auth"
)
