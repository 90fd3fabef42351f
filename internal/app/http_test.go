package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"cookbase/internal/session"
	"cookbase/internal/store"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(f *fakeStore) (*HTTPServer, *Service) {
	svc := newTestService(f)
	return NewHTTPServer(svc, zerolog.Nop(), time.Hour, false), svc
}

func sessionCookie(t *testing.T, svc *Service, userID, orgID string) *http.Cookie {
	t.Helper()
	value, err := svc.sessions.Create(context.Background(), session.Session{UserID: userID, OrgID: orgID})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return &http.Cookie{Name: SessionCookie, Value: value}
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestPrivateRouteWithoutCookieRedirectsToLogin(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/recipes", nil))

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rr.Code)
	}
	if location := rr.Header().Get("Location"); location != "/login" {
		t.Fatalf("expected redirect to /login, got %q", location)
	}
}

func TestPrivateRouteWithStaleCookieClearsItAndRedirects(t *testing.T) {
	f := &fakeStore{
		getUserByIDFn: func(context.Context, string) (store.User, error) {
			return store.User{}, sql.ErrNoRows
		},
	}
	server, svc := newTestServer(f)

	req := httptest.NewRequest(http.MethodGet, "/recipes", nil)
	req.AddCookie(sessionCookie(t, svc, "usr_gone", "org_1"))
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rr.Code)
	}
	if location := rr.Header().Get("Location"); location != "/login" {
		t.Fatalf("expected redirect to /login, got %q", location)
	}
	cleared := false
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == SessionCookie && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected session cookie to be cleared")
	}
}

func TestUserWithoutOrganizationRedirectsToNoAccount(t *testing.T) {
	f := &fakeStore{
		getUserByIDFn: func(ctx context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, OrganizationID: "org_other"}, nil
		},
	}
	server, svc := newTestServer(f)

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(sessionCookie(t, svc, "usr_1", "org_1"))
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rr.Code)
	}
	if location := rr.Header().Get("Location"); location != "/no-account" {
		t.Fatalf("expected redirect to /no-account, got %q", location)
	}
}

func TestSignUpSetsCookieAndRedirectsHome(t *testing.T) {
	var createdUser store.User
	f := &fakeStore{}
	f.createOwnerFn = func(_ context.Context, org store.Organization, user store.User, hash, invitationID string) error {
		createdUser = user
		return nil
	}
	f.getUserByIDFn = func(context.Context, string) (store.User, error) {
		return createdUser, nil
	}
	server, _ := newTestServer(f)

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, postForm("/signup", url.Values{
		"firstName": {"Nina"},
		"lastName":  {"Larsen"},
		"email":     {"nina@example.com"},
		"password":  {"correct horse"},
	}))

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d body=%s", rr.Code, rr.Body.String())
	}
	if location := rr.Header().Get("Location"); location != "/home" {
		t.Fatalf("expected redirect to /home, got %q", location)
	}

	var sessionValue string
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == SessionCookie {
			sessionValue = cookie.Value
		}
	}
	if sessionValue == "" {
		t.Fatal("expected session cookie to be set")
	}

	// The fresh cookie resolves to the new account.
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sessionValue})
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["userId"] != createdUser.ID {
		t.Fatalf("expected userId %q, got %v", createdUser.ID, payload["userId"])
	}
}

func TestSignUpReturnsPerFieldErrors(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, postForm("/signup", url.Values{
		"firstName": {"Nina"},
		"lastName":  {""},
		"email":     {"not-an-email"},
		"password":  {"short"},
	}))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("expected code VALIDATION_ERROR, got %v", payload["code"])
	}
	details, _ := payload["details"].(map[string]any)
	for _, field := range []string{"lastName", "email", "password"} {
		if details[field] == nil {
			t.Errorf("expected a field error for %q, got %v", field, payload)
		}
	}
	if details["firstName"] != nil {
		t.Errorf("expected no error for the valid firstName, got %v", details)
	}
}

func TestSignUpRejectsExistingEmail(t *testing.T) {
	f := &fakeStore{
		getUserByEmailFn: func(ctx context.Context, email string) (store.User, error) {
			return store.User{ID: "usr_1", Email: email}, nil
		},
	}
	server, _ := newTestServer(f)

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, postForm("/signup", url.Values{
		"firstName": {"Nina"},
		"lastName":  {"Larsen"},
		"email":     {"nina@example.com"},
		"password":  {"correct horse"},
	}))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	details, _ := payload["details"].(map[string]any)
	if details["email"] == nil {
		t.Fatalf("expected the duplicate to surface as an email field error, got %v", payload)
	}
}

func TestLoginWithWrongPasswordReturnsUnauthorized(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("the real one"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	f := &fakeStore{
		getCredentialsFn: func(ctx context.Context, email string) (store.User, string, error) {
			return store.User{ID: "usr_1", OrganizationID: "org_1", Email: email}, string(hash), nil
		},
	}
	server, _ := newTestServer(f)

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, postForm("/login", url.Values{
		"email":    {"nina@example.com"},
		"password": {"not the real one"},
	}))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["code"] != "INVALID_CREDENTIALS" {
		t.Fatalf("expected code INVALID_CREDENTIALS, got %v", payload["code"])
	}
}

func TestCreateRecipeRedirectsToDetail(t *testing.T) {
	var created store.Recipe
	f := &fakeStore{
		createRecipeFn: func(_ context.Context, recipe store.Recipe, activityID string) error {
			created = recipe
			return nil
		},
	}
	server, svc := newTestServer(f)

	req := postForm("/recipes", url.Values{
		"title":        {"Blueberry Pancakes"},
		"mealTypeId":   {"mt_breakfast"},
		"cuisineId":    {"cui_american"},
		"servings":     {"4"},
		"ingredients":  {"flour\nblueberries"},
		"instructions": {"mix\ncook"},
	})
	req.AddCookie(sessionCookie(t, svc, "usr_1", "org_1"))
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d body=%s", rr.Code, rr.Body.String())
	}
	if created.Title != "Blueberry Pancakes" {
		t.Fatalf("expected recipe to be stored, got %+v", created)
	}
	if created.OrganizationID != "org_1" || created.UserID != "usr_1" {
		t.Fatalf("expected recipe owned by the session, got %+v", created)
	}
	if location := rr.Header().Get("Location"); location != "/recipes/"+created.ID {
		t.Fatalf("expected redirect to the new recipe, got %q", location)
	}
}

func TestCreateRecipeValidationReturnsFieldErrors(t *testing.T) {
	server, svc := newTestServer(&fakeStore{})

	req := postForm("/recipes", url.Values{"title": {""}})
	req.AddCookie(sessionCookie(t, svc, "usr_1", "org_1"))
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	details, _ := payload["details"].(map[string]any)
	if details["title"] == nil {
		t.Fatalf("expected a title field error, got %v", payload)
	}
}

func TestRecipeFromAnotherHouseholdIsNotFound(t *testing.T) {
	f := &fakeStore{
		getRecipeFn: func(context.Context, string, string) (store.Recipe, error) {
			return store.Recipe{}, sql.ErrNoRows
		},
	}
	server, svc := newTestServer(f)

	req := httptest.NewRequest(http.MethodGet, "/recipes/rec_other", nil)
	req.AddCookie(sessionCookie(t, svc, "usr_1", "org_1"))
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["code"] != "NOT_FOUND" {
		t.Fatalf("expected code NOT_FOUND, got %v", payload["code"])
	}
}

func TestPublicShareViewNeedsNoSession(t *testing.T) {
	f := &fakeStore{
		getPublicRecipeFn: func(_ context.Context, recipeID string) (store.Recipe, error) {
			if recipeID != "rec_shared" {
				return store.Recipe{}, sql.ErrNoRows
			}
			return store.Recipe{ID: recipeID, OrganizationID: "org_1", Title: "Ramen", IsPublic: true}, nil
		},
	}
	server, _ := newTestServer(f)

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/share/recipes/rec_shared", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/share/recipes/rec_private", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for a non-public recipe, got %d", rr.Code)
	}
}

func TestJoinWithUnknownInviteReturnsNotFound(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, postForm("/join/inv_missing", url.Values{
		"firstName": {"Theo"},
		"lastName":  {"Larsen"},
		"email":     {"theo@example.com"},
		"password":  {"long enough"},
	}))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestJoinWithValidInviteCreatesMember(t *testing.T) {
	f := &fakeStore{
		getInviteByIDFn: func(_ context.Context, inviteID string) (store.Invite, error) {
			return store.Invite{ID: inviteID, OrganizationID: "org_1", OrganizationName: "The Larsen family"}, nil
		},
	}
	server, _ := newTestServer(f)

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, postForm("/join/inv_1", url.Values{
		"firstName": {"Theo"},
		"lastName":  {"Larsen"},
		"email":     {"theo@example.com"},
		"password":  {"long enough"},
	}))

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d body=%s", rr.Code, rr.Body.String())
	}
	if location := rr.Header().Get("Location"); location != "/home" {
		t.Fatalf("expected redirect to /home, got %q", location)
	}
}

func TestDisabledInviteLooksUnknown(t *testing.T) {
	// The store only resolves enabled invitations, so a disabled link is
	// indistinguishable from one that never existed.
	enabled := map[string]bool{"inv_open": true, "inv_off": false}
	f := &fakeStore{
		getInviteByIDFn: func(_ context.Context, inviteID string) (store.Invite, error) {
			if !enabled[inviteID] {
				return store.Invite{}, sql.ErrNoRows
			}
			return store.Invite{ID: inviteID, OrganizationID: "org_1", OrganizationName: "The Larsen family"}, nil
		},
	}
	server, _ := newTestServer(f)

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/join/inv_open", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for the enabled invite, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/join/inv_off", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for the disabled invite preview, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, postForm("/join/inv_off", url.Values{
		"firstName": {"Theo"},
		"lastName":  {"Larsen"},
		"email":     {"theo@example.com"},
		"password":  {"long enough"},
	}))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 joining a disabled invite, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestNoteActionsRedirectBack(t *testing.T) {
	f := &fakeStore{
		setNoteResolvedFn: func(context.Context, string, string, bool) (bool, error) {
			return true, nil
		},
	}
	server, svc := newTestServer(f)

	req := postForm("/notes/note_1/resolve", url.Values{})
	req.Header.Set("Referer", "/recipes/rec_1")
	req.AddCookie(sessionCookie(t, svc, "usr_1", "org_1"))
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d body=%s", rr.Code, rr.Body.String())
	}
	if location := rr.Header().Get("Location"); location != "/recipes/rec_1" {
		t.Fatalf("expected redirect back to the recipe, got %q", location)
	}
}

func TestExportWithoutPDFServiceReturnsUnavailable(t *testing.T) {
	f := &fakeStore{
		getRecipeFn: func(_ context.Context, orgID, recipeID string) (store.Recipe, error) {
			return store.Recipe{ID: recipeID, OrganizationID: orgID, Title: "Ramen"}, nil
		},
	}
	server, svc := newTestServer(f)

	req := httptest.NewRequest(http.MethodGet, "/recipes/rec_1/export.pdf", nil)
	req.AddCookie(sessionCookie(t, svc, "usr_1", "org_1"))
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-abc123")
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "req-abc123" {
		t.Fatalf("expected request id to round trip, got %q", got)
	}
}
