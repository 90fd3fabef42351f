// Package authpw provides email/password authentication and account creation.
package authpw

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"cookbase/internal/store"
	"cookbase/internal/util"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInviteNotFound     = errors.New("invite not found")
)

// ValidationError carries per-field messages for the account forms so
// the client can attach each one to its input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "invalid account fields: " + strings.Join(fields, ", ")
}

// Service provides email/password authentication
type Service struct {
	store UserStore
}

// UserStore defines the storage interface for auth
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetCredentials(ctx context.Context, email string) (store.User, string, error)
	CreateOwner(ctx context.Context, org store.Organization, user store.User, passwordHash, invitationID string) error
	CreateMember(ctx context.Context, user store.User, passwordHash string) error
	GetInviteByID(ctx context.Context, inviteID string) (store.Invite, error)
}

// NewService creates a new auth service
func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// SignUpRequest contains sign-up parameters
type SignUpRequest struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// SignUpResponse contains sign-up result
type SignUpResponse struct {
	User         store.User
	Organization store.Organization
	InvitationID string
}

// SignUp creates a fresh organization with the caller as its owner. The
// organization name defaults to "The {lastName} family" and can be
// renamed later from settings.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResponse, error) {
	if err := validateAccount(req.FirstName, req.LastName, req.Email, req.Password); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, &ValidationError{Fields: map[string]string{"email": "A user already exists with this email"}}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	org := store.Organization{
		ID:   util.NewID("org"),
		Name: fmt.Sprintf("The %s family", req.LastName),
	}
	user := store.User{
		ID:             util.NewID("usr"),
		OrganizationID: org.ID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Role:           "OWNER",
	}
	invitationID := util.NewID("inv")

	if err := s.store.CreateOwner(ctx, org, user, string(hash), invitationID); err != nil {
		return nil, fmt.Errorf("create owner: %w", err)
	}

	return &SignUpResponse{
		User:         user,
		Organization: org,
		InvitationID: invitationID,
	}, nil
}

// JoinRequest contains invite-accept parameters
type JoinRequest struct {
	InviteID  string
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Join creates an account inside the organization an enabled invitation
// points at. The new user gets the MEMBER role.
func (s *Service) Join(ctx context.Context, req JoinRequest) (store.User, error) {
	invite, err := s.store.GetInviteByID(ctx, req.InviteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.User{}, ErrInviteNotFound
		}
		return store.User{}, fmt.Errorf("get invite: %w", err)
	}

	if err := validateAccount(req.FirstName, req.LastName, req.Email, req.Password); err != nil {
		return store.User{}, err
	}

	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return store.User{}, &ValidationError{Fields: map[string]string{"email": "A user already exists with this email"}}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return store.User{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		ID:             util.NewID("usr"),
		OrganizationID: invite.OrganizationID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Role:           "MEMBER",
	}
	if err := s.store.CreateMember(ctx, user, string(hash)); err != nil {
		return store.User{}, fmt.Errorf("create member: %w", err)
	}
	return user, nil
}

// SignInRequest contains sign-in parameters
type SignInRequest struct {
	Email    string
	Password string
}

// SignIn authenticates a user. Unknown emails and wrong passwords
// produce the same error.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (store.User, error) {
	fields := map[string]string{}
	if req.Email == "" {
		fields["email"] = "Email is required"
	}
	if req.Password == "" {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		return store.User{}, &ValidationError{Fields: fields}
	}

	user, hash, err := s.store.GetCredentials(ctx, req.Email)
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func validateAccount(firstName, lastName, email, password string) error {
	fields := map[string]string{}
	if firstName == "" {
		fields["firstName"] = "First name is required"
	}
	if lastName == "" {
		fields["lastName"] = "Last name is required"
	}
	if email == "" {
		fields["email"] = "Email is required"
	} else if !strings.Contains(email, "@") {
		fields["email"] = "Email is invalid"
	}
	if password == "" {
		fields["password"] = "Password is required"
	} else if len(password) < 8 {
		fields["password"] = "Password must be at least 8 characters"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
