package service

import (
	"errors"

	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
)

var (
	ErrInvalidCredentials = authsdk.ErrInvalidCredentials
	ErrEmailTaken         = authsdk.ErrConflict.WithDescription("email is already registered")
	ErrSlugTaken          = authsdk.ErrConflict.WithDescription("organization slug is already taken")
	ErrSelectionReplayed  = authsdk.ErrInvalidOrExpiredToken.WithDescription("selection token has already been used")
	ErrOwnerProtected     = authsdk.ErrInsufficientPermission.WithDescription("only an OWNER can grant or revoke the OWNER role")
	ErrOwnRole            = authsdk.ErrInvalidRequest.WithDescription("members cannot change their own role")
	ErrMemberNotFound     = authsdk.ErrNotFound.WithDescription("member not found in this organization")
)

// ErrTokenReplayed is returned by a ReplayGuard when the jti was seen before.
var ErrTokenReplayed = errors.New("service: token already used")
