package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cookbase/internal/authpw"
	"cookbase/internal/session"

	"github.com/rs/zerolog"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "cb_session"

type HTTPServer struct {
	service       *Service
	logger        zerolog.Logger
	sessionTTL    time.Duration
	secureCookies bool
}

func NewHTTPServer(service *Service, logger zerolog.Logger, sessionTTL time.Duration, secureCookies bool) *HTTPServer {
	return &HTTPServer{
		service:       service,
		logger:        logger,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	parts := splitPath(r.URL.Path)

	// Account routes, no session required.
	if r.Method == http.MethodPost && r.URL.Path == "/signup" {
		s.handleSignUp(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/login" {
		s.handleLogin(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/logout" {
		s.handleLogout(w, r)
		return
	}
	if len(parts) == 2 && parts[0] == "join" {
		switch r.Method {
		case http.MethodGet:
			s.handleInvitePreview(w, r, parts[1])
			return
		case http.MethodPost:
			s.handleJoin(w, r, parts[1])
			return
		}
	}

	// Public share view, no session required.
	if r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "share" && parts[1] == "recipes" {
		payload, err := s.service.PublicRecipe(r.Context(), parts[2])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated":  true,
			"userId":         sess.UserID,
			"organizationId": sess.OrgID,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/home" {
		payload, err := s.service.HomePage(r.Context(), sess)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		limit := 10
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
				return
			}
			limit = parsed
		}
		hits, err := s.service.QuickSearch(r.Context(), sess, query, limit)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"hits": hits, "query": query})
		return
	}

	// Recipes.
	if len(parts) >= 1 && parts[0] == "recipes" {
		switch {
		case r.Method == http.MethodGet && len(parts) == 1:
			payload, err := s.service.RecipeListPage(r.Context(), sess, r.URL.Query())
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, payload)
			return

		case r.Method == http.MethodPost && len(parts) == 1:
			s.handleCreateRecipe(w, r, sess)
			return

		case r.Method == http.MethodGet && len(parts) == 2:
			includeResolved := r.URL.Query().Get("allNotes") == "1"
			payload, err := s.service.RecipeDetail(r.Context(), sess, parts[1], includeResolved)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, payload)
			return

		case r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "update":
			s.handleUpdateRecipe(w, r, sess, parts[1])
			return

		case r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "delete":
			if err := s.service.DeleteRecipe(r.Context(), sess, parts[1]); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			redirect(w, r, "/recipes")
			return

		case r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "share":
			if err := r.ParseForm(); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid form body", nil)
				return
			}
			isPublic := r.PostFormValue("isPublic") == "true" || r.PostFormValue("isPublic") == "on"
			shareURL, err := s.service.SetRecipePublic(r.Context(), sess, parts[1], isPublic)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"isPublic": isPublic, "shareUrl": shareURL})
			return

		case r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "notes":
			s.handleAddNote(w, r, sess, parts[1])
			return

		case r.Method == http.MethodGet && len(parts) == 3 && parts[2] == "export.pdf":
			pdf, err := s.service.ExportRecipePDF(r.Context(), sess, parts[1])
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", `attachment; filename="recipe.pdf"`)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(pdf)
			return

		case r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "photo":
			s.handleUploadPhoto(w, r, sess, parts[1])
			return

		case r.Method == http.MethodGet && len(parts) == 3 && parts[2] == "photo":
			url, err := s.service.RecipePhotoURL(r.Context(), sess, parts[1])
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			http.Redirect(w, r, url, http.StatusFound)
			return
		}
	}

	// Notes.
	if r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "notes" {
		noteID := parts[1]
		var err error
		switch parts[2] {
		case "resolve":
			err = s.service.SetNoteResolved(r.Context(), sess, noteID, true)
		case "unresolve":
			err = s.service.SetNoteResolved(r.Context(), sess, noteID, false)
		case "delete":
			err = s.service.DeleteNote(r.Context(), sess, noteID)
		default:
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		redirectBack(w, r)
		return
	}

	// Settings.
	if r.Method == http.MethodGet && r.URL.Path == "/settings" {
		payload, err := s.service.SettingsPage(r.Context(), sess)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/settings/") {
		s.handleSettingsAction(w, r, sess)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// ---- account handlers ----

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid form body", nil)
		return
	}
	value, _, err := s.service.SignUp(r.Context(), authpw.SignUpRequest{
		FirstName: strings.TrimSpace(r.PostFormValue("firstName")),
		LastName:  strings.TrimSpace(r.PostFormValue("lastName")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Password:  r.PostFormValue("password"),
	})
	if err != nil {
		writeAccountError(w, err)
		return
	}
	s.setSessionCookie(w, value)
	redirect(w, r, "/home")
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid form body", nil)
		return
	}
	value, _, err := s.service.SignIn(r.Context(), authpw.SignInRequest{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
			return
		}
		writeAccountError(w, err)
		return
	}
	s.setSessionCookie(w, value)
	redirect(w, r, "/home")
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		_ = s.service.Logout(r.Context(), cookie.Value)
	}
	s.clearSessionCookie(w)
	redirect(w, r, "/login")
}

func (s *HTTPServer) handleInvitePreview(w http.ResponseWriter, r *http.Request, inviteID string) {
	payload, err := s.service.InvitePreview(r.Context(), inviteID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleJoin(w http.ResponseWriter, r *http.Request, inviteID string) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid form body", nil)
		return
	}
	value, _, err := s.service.Join(r.Context(), authpw.JoinRequest{
		InviteID:  inviteID,
		FirstName: strings.TrimSpace(r.PostFormValue("firstName")),
		LastName:  strings.TrimSpace(r.PostFormValue("lastName")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Password:  r.PostFormValue("password"),
	})
	if err != nil {
		if errors.Is(err, authpw.ErrInviteNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		writeAccountError(w, err)
		return
	}
	s.setSessionCookie(w, value)
	redirect(w, r, "/home")
}

// writeAccountError maps account-form failures: per-field validation
// errors carry their field map in details, everything else falls
// through to the shared taxonomy.
func writeAccountError(w http.ResponseWriter, err error) {
	var fieldErr *authpw.ValidationError
	if errors.As(err, &fieldErr) {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid account details", fieldErr.Fields)
		return
	}
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

// ---- recipe handlers ----

func recipeInputFromForm(r *http.Request) (CreateRecipeInput, error) {
	if err := r.ParseForm(); err != nil {
		return CreateRecipeInput{}, err
	}
	servings, _ := strconv.Atoi(r.PostFormValue("servings"))
	return CreateRecipeInput{
		Title:        r.PostFormValue("title"),
		MealTypeID:   r.PostFormValue("mealTypeId"),
		CuisineID:    r.PostFormValue("cuisineId"),
		Servings:     servings,
		Ingredients:  r.PostFormValue("ingredients"),
		Instructions: r.PostFormValue("instructions"),
	}, nil
}

func (s *HTTPServer) handleCreateRecipe(w http.ResponseWriter, r *http.Request, sess Session) {
	input, err := recipeInputFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid form body", nil)
		return
	}
	recipe, err := s.service.CreateRecipe(r.Context(), sess, input)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	redirect(w, r, "/recipes/"+recipe.ID)
}

func (s *HTTPServer) handleUpdateRecipe(w http.ResponseWriter, r *http.Request, sess Session, recipeID string) {
	input, err := recipeInputFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid form body", nil)
		return
	}
	if err := s.service.UpdateRecipe(r.Context(), sess, recipeID, input); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	redirect(w, r, "/recipes/"+recipeID)
}

func (s *HTTPServer) handleAddNote(w http.ResponseWriter, r *http.Request, sess Session, recipeID string) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid form body", nil)
		return
	}
	if _, err := s.service.AddNote(r.Context(), sess, recipeID, r.PostFormValue("message")); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	redirect(w, r, "/recipes/"+recipeID)
}

func (s *HTTPServer) handleUploadPhoto(w http.ResponseWriter, r *http.Request, sess Session, recipeID string) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid multipart body", nil)
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "A photo file is required", nil)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := s.service.UploadRecipePhoto(r.Context(), sess, recipeID, contentType, header.Size, file); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	redirect(w, r, "/recipes/"+recipeID)
}

// ---- settings handlers ----

func (s *HTTPServer) handleSettingsAction(w http.ResponseWriter, r *http.Request, sess Session) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid form body", nil)
		return
	}

	var err error
	switch r.URL.Path {
	case "/settings/profile":
		err = s.service.UpdateProfile(r.Context(), sess, r.PostFormValue("firstName"), r.PostFormValue("lastName"))
	case "/settings/organization":
		err = s.service.RenameOrganization(r.Context(), sess, r.PostFormValue("name"))
	case "/settings/invitation/toggle":
		enabled := r.PostFormValue("enabled") == "true" || r.PostFormValue("enabled") == "on"
		err = s.service.SetInvitationEnabled(r.Context(), sess, r.PostFormValue("invitationId"), enabled)
	case "/settings/invitation/reset":
		_, err = s.service.ResetInvitation(r.Context(), sess, r.PostFormValue("invitationId"))
	case "/settings/invitation/send":
		err = s.service.SendInvite(r.Context(), sess, r.PostFormValue("email"))
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	redirect(w, r, "/settings")
}

// ---- session plumbing ----

// requireSession gates every private route. No cookie or a stale one
// redirects to /login; a valid cookie whose user lost their
// organization redirects to /no-account.
func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		redirect(w, r, "/login")
		return Session{}, false
	}
	sess, err := s.service.SessionFromCookie(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, errNoOrganization) {
			redirect(w, r, "/no-account")
			return Session{}, false
		}
		s.clearSessionCookie(w)
		redirect(w, r, "/login")
		return Session{}, false
	}
	return sess, true
}

func (s *HTTPServer) setSessionCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *HTTPServer) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		writer.Header().Set("X-Request-ID", requestID)
		writer.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(writer, r)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Dur("duration", time.Since(started)).
			Msg("request")
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// ---- response helpers ----

func redirect(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// redirectBack returns to the referring page, falling back to /recipes.
func redirectBack(w http.ResponseWriter, r *http.Request) {
	target := r.Header.Get("Referer")
	if target == "" {
		target = "/recipes"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, session.ErrNotFound) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
