package authpw

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"cookbase/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// mockUserStore is a mock implementation of UserStore for testing
type mockUserStore struct {
	users      map[string]store.User
	emailIndex map[string]string // email -> userID
	hashes     map[string]string // userID -> bcrypt hash
	orgs       map[string]store.Organization
	invites    map[string]store.Invite
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:      make(map[string]store.User),
		emailIndex: make(map[string]string),
		hashes:     make(map[string]string),
		orgs:       make(map[string]store.Organization),
		invites:    make(map[string]store.Invite),
	}
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if userID, ok := m.emailIndex[email]; ok {
		return m.users[userID], nil
	}
	return store.User{}, sql.ErrNoRows
}

func (m *mockUserStore) GetCredentials(ctx context.Context, email string) (store.User, string, error) {
	userID, ok := m.emailIndex[email]
	if !ok {
		return store.User{}, "", sql.ErrNoRows
	}
	return m.users[userID], m.hashes[userID], nil
}

func (m *mockUserStore) CreateOwner(ctx context.Context, org store.Organization, user store.User, passwordHash, invitationID string) error {
	m.orgs[org.ID] = org
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user.ID
	m.hashes[user.ID] = passwordHash
	m.invites[invitationID] = store.Invite{ID: invitationID, OrganizationID: org.ID, OrganizationName: org.Name}
	return nil
}

func (m *mockUserStore) CreateMember(ctx context.Context, user store.User, passwordHash string) error {
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user.ID
	m.hashes[user.ID] = passwordHash
	return nil
}

func (m *mockUserStore) GetInviteByID(ctx context.Context, inviteID string) (store.Invite, error) {
	if invite, ok := m.invites[inviteID]; ok {
		return invite, nil
	}
	return store.Invite{}, sql.ErrNoRows
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	mockStore := newMockUserStore()
	svc := NewService(mockStore)

	t.Run("successful sign up", func(t *testing.T) {
		resp, err := svc.SignUp(ctx, SignUpRequest{
			FirstName: "Nina",
			LastName:  "Larsen",
			Email:     "nina@example.com",
			Password:  "password123",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if resp.User.ID == "" {
			t.Error("expected user id to be set")
		}
		if resp.User.Role != "OWNER" {
			t.Errorf("expected role OWNER, got %s", resp.User.Role)
		}
		if resp.Organization.Name != "The Larsen family" {
			t.Errorf("unexpected organization name: %s", resp.Organization.Name)
		}
		if resp.InvitationID == "" {
			t.Error("expected invitation id to be set")
		}
		if hash := mockStore.hashes[resp.User.ID]; hash != "" {
			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("password123")); err != nil {
				t.Error("stored hash does not match password")
			}
		} else {
			t.Error("expected password hash to be stored")
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.SignUp(ctx, SignUpRequest{
			FirstName: "Other",
			LastName:  "Larsen",
			Email:     "nina@example.com",
			Password:  "password123",
		})
		assertFieldErrors(t, err, "email")
	})

	t.Run("short password", func(t *testing.T) {
		_, err := svc.SignUp(ctx, SignUpRequest{
			FirstName: "Nina",
			LastName:  "Larsen",
			Email:     "nina2@example.com",
			Password:  "short",
		})
		assertFieldErrors(t, err, "password")
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.SignUp(ctx, SignUpRequest{})
		assertFieldErrors(t, err, "firstName", "lastName", "email", "password")
	})

	t.Run("invalid email", func(t *testing.T) {
		_, err := svc.SignUp(ctx, SignUpRequest{
			FirstName: "Nina",
			LastName:  "Larsen",
			Email:     "not-an-email",
			Password:  "password123",
		})
		assertFieldErrors(t, err, "email")
	})

	t.Run("each bad field gets its own message", func(t *testing.T) {
		_, err := svc.SignUp(ctx, SignUpRequest{
			FirstName: "Nina",
			LastName:  "",
			Email:     "not-an-email",
			Password:  "short",
		})
		assertFieldErrors(t, err, "lastName", "email", "password")
	})
}

// assertFieldErrors checks that err is a ValidationError naming exactly
// the given fields.
func assertFieldErrors(t *testing.T, err error, fields ...string) {
	t.Helper()
	var fieldErr *ValidationError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(fieldErr.Fields) != len(fields) {
		t.Fatalf("expected %d field errors, got %v", len(fields), fieldErr.Fields)
	}
	for _, field := range fields {
		if fieldErr.Fields[field] == "" {
			t.Errorf("expected a message for field %q, got %v", field, fieldErr.Fields)
		}
	}
}

func TestJoin(t *testing.T) {
	ctx := context.Background()
	mockStore := newMockUserStore()
	svc := NewService(mockStore)

	resp, err := svc.SignUp(ctx, SignUpRequest{
		FirstName: "Nina",
		LastName:  "Larsen",
		Email:     "nina@example.com",
		Password:  "password123",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	t.Run("join with valid invite", func(t *testing.T) {
		user, err := svc.Join(ctx, JoinRequest{
			InviteID:  resp.InvitationID,
			FirstName: "Theo",
			LastName:  "Larsen",
			Email:     "theo@example.com",
			Password:  "password123",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.OrganizationID != resp.Organization.ID {
			t.Errorf("expected member to join %s, got %s", resp.Organization.ID, user.OrganizationID)
		}
		if user.Role != "MEMBER" {
			t.Errorf("expected role MEMBER, got %s", user.Role)
		}
	})

	t.Run("unknown invite", func(t *testing.T) {
		_, err := svc.Join(ctx, JoinRequest{
			InviteID:  "inv_missing",
			FirstName: "Theo",
			LastName:  "Larsen",
			Email:     "theo2@example.com",
			Password:  "password123",
		})
		if !errors.Is(err, ErrInviteNotFound) {
			t.Errorf("expected ErrInviteNotFound, got %v", err)
		}
	})
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	mockStore := newMockUserStore()
	svc := NewService(mockStore)

	if _, err := svc.SignUp(ctx, SignUpRequest{
		FirstName: "Nina",
		LastName:  "Larsen",
		Email:     "nina@example.com",
		Password:  "password123",
	}); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	t.Run("successful sign in", func(t *testing.T) {
		user, err := svc.SignIn(ctx, SignInRequest{
			Email:    "nina@example.com",
			Password: "password123",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.Email != "nina@example.com" {
			t.Errorf("expected email nina@example.com, got %s", user.Email)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, SignInRequest{
			Email:    "nina@example.com",
			Password: "wrongpassword",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("non-existent user", func(t *testing.T) {
		_, err := svc.SignIn(ctx, SignInRequest{
			Email:    "nobody@example.com",
			Password: "password123",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}
