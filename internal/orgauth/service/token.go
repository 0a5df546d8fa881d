package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/domain"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/store"
	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
	"github.com/aussiebroadwan/orgauth/pkg/cryptox"
	"github.com/aussiebroadwan/orgauth/pkg/idx"
	"github.com/aussiebroadwan/orgauth/pkg/jwtx"
	"github.com/aussiebroadwan/orgauth/pkg/rbac"
	"github.com/aussiebroadwan/orgauth/pkg/slogx"
)

// MinPasswordLength is enforced at registration.
const MinPasswordLength = 8

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// TokenService mints session and selection tokens for password logins,
// organization selection and organization switches.
type TokenService struct {
	Store        store.Store
	Signer       jwtx.Signer
	Verifier     jwtx.Verifier
	Hasher       *cryptox.PasswordHasher
	Replay       ReplayGuard
	Issuer       string
	SessionTTL   time.Duration
	SelectionTTL time.Duration
	Metrics      Recorder

	// Now defaults to time.Now.
	Now func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// RegisterInput is what a new user supplies to sign up.
type RegisterInput struct {
	Email            string
	Password         string
	Name             string
	OrganizationName string
	OrganizationSlug string
}

// Register creates a user, their first organization and an OWNER membership
// in one transaction, and returns a session token for it.
func (s *TokenService) Register(ctx context.Context, in RegisterInput) (*domain.SessionToken, error) {
	l := slogx.FromContext(ctx)

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, authsdk.ErrInvalidRequest.WithDescription("a valid email is required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, authsdk.ErrInvalidRequest.WithDescription("password must be at least %d characters", MinPasswordLength)
	}
	orgName := strings.TrimSpace(in.OrganizationName)
	if orgName == "" {
		return nil, authsdk.ErrInvalidRequest.WithDescription("organization_name is required")
	}
	slug := strings.TrimSpace(in.OrganizationSlug)
	if slug == "" {
		slug = Slugify(orgName)
	}
	if !slugPattern.MatchString(slug) {
		return nil, authsdk.ErrInvalidRequest.WithDescription("organization_slug must be lower-case letters, digits and dashes")
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	org := domain.Organization{
		ID:        idx.New().String(),
		Name:      orgName,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	membership := domain.Membership{
		ID:             idx.New().String(),
		UserID:         user.ID,
		OrganizationID: org.ID,
		Role:           rbac.RoleOwner,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}
		if err := tx.Organizations().CreateOrganization(ctx, org); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrSlugTaken
			}
			return err
		}
		return tx.Memberships().CreateMembership(ctx, membership)
	})
	if err != nil {
		return nil, err
	}

	l.Info("registered user",
		slog.String("user_id", user.ID),
		slog.String("org_id", org.ID),
	)
	return s.mint(user, membership)
}

// Login verifies a password. A user with one membership gets a session
// token straight away; a user with several gets a selection token.
func (s *TokenService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	res, err := s.login(ctx, email, password)
	recorderOrNop(s.Metrics).Login(outcome(err))
	return res, err
}

func (s *TokenService) login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Spend the same time as a real check so unknown emails
			// cannot be told apart by latency.
			_ = s.Hasher.Verify(password, s.dummy())
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.Hasher.Verify(password, user.PasswordHash); err != nil {
		l.Info("password login failed", slog.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	memberships, err := s.Store.Memberships().ListUserMemberships(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	switch len(memberships) {
	case 0:
		return nil, authsdk.ErrNotAMember.WithDescription("user does not belong to any organization")
	case 1:
		tok, err := s.mint(user, memberships[0].Membership)
		if err != nil {
			return nil, err
		}
		return &domain.LoginResult{Token: tok, Memberships: memberships}, nil
	}

	selection, err := s.Signer.Sign(jwtx.NewSelectionClaims(user.ID, s.selectionTTL(), s.Issuer, s.now()))
	if err != nil {
		return nil, fmt.Errorf("sign selection token: %w", err)
	}
	return &domain.LoginResult{SelectionToken: selection, Memberships: memberships}, nil
}

// SelectOrganization exchanges a selection token for a session token bound
// to organizationID. Each selection token can be exchanged once.
func (s *TokenService) SelectOrganization(ctx context.Context, selectionToken, organizationID string) (*domain.SessionToken, error) {
	tok, err := s.selectOrganization(ctx, selectionToken, organizationID)
	recorderOrNop(s.Metrics).SelectionExchanged(outcome(err))
	return tok, err
}

func (s *TokenService) selectOrganization(ctx context.Context, selectionToken, organizationID string) (*domain.SessionToken, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Verifier.VerifySelection(selectionToken)
	if err != nil {
		if jwtx.IsPayloadError(err) {
			return nil, fmt.Errorf("%w: %w", authsdk.ErrInvalidTempTokenPayload, err)
		}
		return nil, fmt.Errorf("%w: %w", authsdk.ErrInvalidOrExpiredToken, err)
	}

	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, authsdk.ErrInvalidRequest.WithDescription("organization_id is required")
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, authsdk.ErrUserNotFound
		}
		return nil, err
	}

	m, err := s.Store.Memberships().GetMembership(ctx, user.ID, organizationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, authsdk.ErrForbiddenOrganization.
				WithDescription("user is not a member of organization %s", organizationID)
		}
		return nil, err
	}

	// Tokens without a jti predate the replay guard and cannot be tracked.
	if claims.ID != "" && s.Replay != nil {
		var exp time.Time
		if claims.ExpiresAt != nil {
			exp = claims.ExpiresAt.Time
		}
		if err := s.Replay.MarkUsed(ctx, claims.ID, user.ID, exp); err != nil {
			if errors.Is(err, ErrTokenReplayed) {
				l.Warn("selection token replayed", slog.String("user_id", user.ID), slog.String("jti", claims.ID))
				return nil, ErrSelectionReplayed
			}
			return nil, err
		}
	}

	return s.mint(user, m)
}

// SwitchOrganization mints a session token for another organization the
// caller belongs to.
func (s *TokenService) SwitchOrganization(ctx context.Context, id authsdk.Identity, organizationID string) (*domain.SessionToken, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, authsdk.ErrInvalidRequest.WithDescription("organization_id is required")
	}

	user, err := s.Store.Users().GetUserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, authsdk.ErrUserNotFound
		}
		return nil, err
	}

	m, err := s.Store.Memberships().GetMembership(ctx, user.ID, organizationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, authsdk.ErrForbiddenOrganization.
				WithDescription("user is not a member of organization %s", organizationID)
		}
		return nil, err
	}

	slogx.FromContext(ctx).Info("switched organization",
		slog.String("user_id", user.ID),
		slog.String("from_org_id", id.OrganizationID),
		slog.String("to_org_id", m.OrganizationID),
	)
	return s.mint(user, m)
}

func (s *TokenService) mint(user domain.User, m domain.Membership) (*domain.SessionToken, error) {
	now := s.now()
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}

	claims := jwtx.NewSessionClaims(user.ID, user.Email, m.OrganizationID, string(m.Role), ttl, s.Issuer, now)
	access, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &domain.SessionToken{
		AccessToken:    access,
		ExpiresAt:      now.Add(ttl),
		OrganizationID: m.OrganizationID,
		Role:           m.Role,
	}, nil
}

func (s *TokenService) selectionTTL() time.Duration {
	if s.SelectionTTL <= 0 {
		return jwtx.DefaultSelectionTTL
	}
	return s.SelectionTTL
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *TokenService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("not-a-real-password")
	})
	return s.dummyHash
}

// Slugify derives an organization slug from its display name.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
