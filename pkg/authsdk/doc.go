/*
Package authsdk holds the wire types and error taxonomy of the orgauth
service, plus a small client for talking to it.

# Errors

Every failure is an *AuthError carrying an HTTP status and a stable code.
The server writes them with WriteError; the client decodes them back, and
errors.Is matches a decoded error against the predefined sentinels:

	_, err := session.Me(ctx)
	switch {
	case errors.Is(err, authsdk.ErrRoleMismatch):
		// the membership role changed, log in again
	case errors.Is(err, authsdk.ErrForbiddenOrganization):
		// not a member of the organization in X-Organization-Id
	}

Authentication problems (ErrInvalidOrExpiredToken, ErrUserNotFound,
ErrRoleMismatch, ErrInvalidTempTokenPayload) are 401. Authorization
problems (ErrNotAMember, ErrForbiddenOrganization,
ErrInsufficientPermission) are 403.

# Logging in

A user with one membership receives a session token straight away. A user
with several receives a single-use selection token and must pick one:

	client := authsdk.NewSDKClient("https://auth.example.com")

	resp, err := client.Login(ctx, "alice@example.com", password)
	if resp.RequiresOrganizationSelection {
		session, err = client.SelectOrganization(ctx, resp.SelectionToken, resp.Organizations[0].OrganizationID)
	}

AuthenticateWithPassword wraps both steps.

# Acting against another organization

WithOrganization sends X-Organization-Id on every request. The server
re-checks membership each time; nothing is cached.

	other := session.WithOrganization(orgID)
	me, err := other.Me(ctx)
*/
package authsdk
