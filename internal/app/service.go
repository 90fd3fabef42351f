package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"cookbase/internal/authpw"
	"cookbase/internal/search"
	"cookbase/internal/session"
	"cookbase/internal/store"
	"cookbase/internal/util"

	"github.com/rs/zerolog"
)

// Session is the resolved identity for one request.
type Session struct {
	UserID string
	OrgID  string
}

type CreateRecipeInput struct {
	Title        string
	MealTypeID   string
	CuisineID    string
	Servings     int
	Ingredients  string
	Instructions string
}

type dataStore interface {
	Ping(ctx context.Context) error
	GetOrganization(context.Context, string) (store.Organization, error)
	UpdateOrganizationName(context.Context, string, string) error
	ListMembers(context.Context, string) ([]store.Member, error)
	GetUserByID(context.Context, string) (store.User, error)
	UpdateUserName(context.Context, string, string, string) error
	InsertMealType(context.Context, string, string, int) error
	InsertCuisine(context.Context, string, string) error
	ListMealTypes(context.Context, string) ([]store.MealType, error)
	ListCuisines(context.Context, string) ([]store.Cuisine, error)
	TopMealTypes(context.Context, string, int) ([]store.MealType, error)
	TopCuisines(context.Context, string, int) ([]store.Cuisine, error)
	MealTypeExists(context.Context, string) (bool, error)
	CuisineExists(context.Context, string) (bool, error)
	CountRecipes(context.Context, string) (int, error)
	CountRecipesFiltered(context.Context, string, store.RecipeFilter) (int, error)
	ListRecipes(context.Context, string, store.RecipeFilter, int, int) ([]store.Recipe, error)
	GetRecipe(context.Context, string, string) (store.Recipe, error)
	GetPublicRecipe(context.Context, string) (store.Recipe, error)
	CreateRecipe(context.Context, store.Recipe, string) error
	UpdateRecipe(context.Context, store.Recipe) (bool, error)
	DeleteRecipe(context.Context, string, string, string, string, string) (bool, error)
	SetRecipePublic(context.Context, string, string, bool) (bool, error)
	SetRecipePhoto(context.Context, string, string, string) (bool, error)
	ListRecipesForIndex(context.Context) ([]store.Recipe, error)
	ListNotes(context.Context, string, string, bool) ([]store.Note, error)
	GetNote(context.Context, string, string) (store.Note, error)
	CreateNote(context.Context, store.Note, string) error
	SetNoteResolved(context.Context, string, string, bool) (bool, error)
	DeleteNote(context.Context, string, string, string) (bool, error)
	GetInvitationByOrg(context.Context, string) (store.Invitation, error)
	GetInviteByID(context.Context, string) (store.Invite, error)
	SetInvitationEnabled(context.Context, string, string, bool) (bool, error)
	ResetInvitation(context.Context, string, string, string) (bool, error)
	ListActivity(context.Context, string, int) ([]store.Activity, error)
}

type searchService interface {
	Search(ctx context.Context, orgID, query string, limit int) ([]search.Hit, error)
	IndexRecipe(ctx context.Context, doc search.Document) error
	DeleteRecipe(ctx context.Context, recipeID string) error
	Reindex(ctx context.Context, docs []search.Document) error
}

type exportService interface {
	RecipePDF(ctx context.Context, recipe store.Recipe, notes []store.Note) ([]byte, error)
}

type mediaService interface {
	Put(ctx context.Context, key, contentType string, size int64, body io.Reader) error
	URL(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
}

type emailService interface {
	SendInvite(ctx context.Context, to, inviterName, orgName, inviteURL string) error
}

type Service struct {
	store    dataStore
	sessions session.Store
	auths    *authpw.Service
	logger   zerolog.Logger
	baseURL  string

	search searchService
	export exportService
	media  mediaService
	email  emailService
}

func NewService(dataStore dataStore, sessions session.Store, auths *authpw.Service, logger zerolog.Logger, baseURL string) *Service {
	return &Service{
		store:    dataStore,
		sessions: sessions,
		auths:    auths,
		logger:   logger,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

func (s *Service) SetSearch(svc searchService) { s.search = svc }
func (s *Service) SetExport(svc exportService) { s.export = svc }
func (s *Service) SetMedia(svc mediaService)   { s.media = svc }
func (s *Service) SetEmail(svc emailService)   { s.email = svc }

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

var seedMealTypes = []string{"Breakfast", "Lunch", "Dinner", "Dessert", "Snack", "Drink"}

var seedCuisines = []string{
	"American", "Chinese", "French", "Greek", "Indian", "Italian",
	"Japanese", "Mexican", "Middle Eastern", "Thai", "Other",
}

// Bootstrap seeds the shared reference tables and rebuilds the search
// index when a search backend is configured. Safe to run on every boot.
func (s *Service) Bootstrap(ctx context.Context) error {
	for i, name := range seedMealTypes {
		if err := s.store.InsertMealType(ctx, util.NewID("mt"), name, i); err != nil {
			return fmt.Errorf("seed meal type %q: %w", name, err)
		}
	}
	for _, name := range seedCuisines {
		if err := s.store.InsertCuisine(ctx, util.NewID("cui"), name); err != nil {
			return fmt.Errorf("seed cuisine %q: %w", name, err)
		}
	}

	if s.search != nil {
		recipes, err := s.store.ListRecipesForIndex(ctx)
		if err != nil {
			return fmt.Errorf("load recipes for index: %w", err)
		}
		docs := make([]search.Document, 0, len(recipes))
		for _, r := range recipes {
			docs = append(docs, searchDocument(r))
		}
		if err := s.search.Reindex(ctx, docs); err != nil {
			s.logger.Warn().Err(err).Msg("search reindex failed")
		}
	}
	return nil
}

// ---- auth and session ----

// SignUp creates the account plus its organization and opens a session.
func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (string, store.User, error) {
	resp, err := s.auths.SignUp(ctx, req)
	if err != nil {
		return "", store.User{}, err
	}
	value, err := s.sessions.Create(ctx, session.Session{UserID: resp.User.ID, OrgID: resp.User.OrganizationID})
	if err != nil {
		return "", store.User{}, fmt.Errorf("create session: %w", err)
	}
	return value, resp.User, nil
}

func (s *Service) SignIn(ctx context.Context, req authpw.SignInRequest) (string, store.User, error) {
	user, err := s.auths.SignIn(ctx, req)
	if err != nil {
		return "", store.User{}, err
	}
	value, err := s.sessions.Create(ctx, session.Session{UserID: user.ID, OrgID: user.OrganizationID})
	if err != nil {
		return "", store.User{}, fmt.Errorf("create session: %w", err)
	}
	return value, user, nil
}

// Join accepts an invite link and opens a session for the new member.
func (s *Service) Join(ctx context.Context, req authpw.JoinRequest) (string, store.User, error) {
	user, err := s.auths.Join(ctx, req)
	if err != nil {
		return "", store.User{}, err
	}
	value, err := s.sessions.Create(ctx, session.Session{UserID: user.ID, OrgID: user.OrganizationID})
	if err != nil {
		return "", store.User{}, fmt.Errorf("create session: %w", err)
	}
	return value, user, nil
}

func (s *Service) Logout(ctx context.Context, value string) error {
	return s.sessions.Revoke(ctx, value)
}

// SessionFromCookie resolves a cookie value to a request session. The
// user row is loaded so a deleted account cannot ride an old cookie.
func (s *Service) SessionFromCookie(ctx context.Context, value string) (Session, error) {
	sess, err := s.sessions.Lookup(ctx, value)
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, session.ErrNotFound
		}
		return Session{}, fmt.Errorf("load session user: %w", err)
	}
	if user.OrganizationID == "" || user.OrganizationID != sess.OrgID {
		return Session{}, errNoOrganization
	}
	return Session{UserID: user.ID, OrgID: user.OrganizationID}, nil
}

var errNoOrganization = errors.New("no organization")

// ---- recipes ----

// RecipeListPage produces everything the recipe index needs: the page
// window, both counts, and the filter option lists.
func (s *Service) RecipeListPage(ctx context.Context, sess Session, query url.Values) (map[string]any, error) {
	filter, page := NormalizeFilters(query)

	totalCount, err := s.store.CountRecipes(ctx, sess.OrgID)
	if err != nil {
		return nil, fmt.Errorf("count recipes: %w", err)
	}
	filteredCount, err := s.store.CountRecipesFiltered(ctx, sess.OrgID, filter)
	if err != nil {
		return nil, fmt.Errorf("count filtered recipes: %w", err)
	}

	pagination := Paginate(filteredCount, page, RecipePageSize)
	recipes, err := s.store.ListRecipes(ctx, sess.OrgID, filter, pagination.PageSize, pagination.Offset())
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}

	mealTypes, err := s.store.ListMealTypes(ctx, sess.OrgID)
	if err != nil {
		return nil, fmt.Errorf("list meal types: %w", err)
	}
	cuisines, err := s.store.ListCuisines(ctx, sess.OrgID)
	if err != nil {
		return nil, fmt.Errorf("list cuisines: %w", err)
	}
	members, err := s.store.ListMembers(ctx, sess.OrgID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	return map[string]any{
		"recipes":       recipeViews(recipes),
		"totalCount":    totalCount,
		"filteredCount": filteredCount,
		"pagination":    pagination,
		"mealTypes":     mealTypes,
		"cuisines":      cuisines,
		"members":       members,
	}, nil
}

// RecipeDetail loads one recipe with its notes. Resolved notes stay
// hidden unless the caller asks for them.
func (s *Service) RecipeDetail(ctx context.Context, sess Session, recipeID string, includeResolved bool) (map[string]any, error) {
	recipe, err := s.store.GetRecipe(ctx, sess.OrgID, recipeID)
	if err != nil {
		return nil, err
	}
	notes, err := s.store.ListNotes(ctx, sess.OrgID, recipeID, includeResolved)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return map[string]any{
		"recipe": recipeView(recipe),
		"notes":  noteViews(notes),
	}, nil
}

func (s *Service) CreateRecipe(ctx context.Context, sess Session, input CreateRecipeInput) (store.Recipe, error) {
	if err := s.validateRecipeInput(ctx, input); err != nil {
		return store.Recipe{}, err
	}

	recipe := store.Recipe{
		ID:             util.NewID("rec"),
		OrganizationID: sess.OrgID,
		UserID:         sess.UserID,
		MealTypeID:     input.MealTypeID,
		CuisineID:      input.CuisineID,
		Title:          strings.TrimSpace(input.Title),
		Servings:       input.Servings,
		Ingredients:    input.Ingredients,
		Instructions:   input.Instructions,
	}
	if err := s.store.CreateRecipe(ctx, recipe, util.NewID("act")); err != nil {
		return store.Recipe{}, fmt.Errorf("create recipe: %w", err)
	}
	s.indexRecipe(ctx, recipe.ID, sess.OrgID)
	return recipe, nil
}

func (s *Service) UpdateRecipe(ctx context.Context, sess Session, recipeID string, input CreateRecipeInput) error {
	if err := s.validateRecipeInput(ctx, input); err != nil {
		return err
	}

	updated, err := s.store.UpdateRecipe(ctx, store.Recipe{
		ID:             recipeID,
		OrganizationID: sess.OrgID,
		MealTypeID:     input.MealTypeID,
		CuisineID:      input.CuisineID,
		Title:          strings.TrimSpace(input.Title),
		Servings:       input.Servings,
		Ingredients:    input.Ingredients,
		Instructions:   input.Instructions,
	})
	if err != nil {
		return fmt.Errorf("update recipe: %w", err)
	}
	if !updated {
		return sql.ErrNoRows
	}
	s.indexRecipe(ctx, recipeID, sess.OrgID)
	return nil
}

// DeleteRecipe removes the recipe and leaves an activity entry naming
// it, since the row itself is gone afterwards.
func (s *Service) DeleteRecipe(ctx context.Context, sess Session, recipeID string) error {
	recipe, err := s.store.GetRecipe(ctx, sess.OrgID, recipeID)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteRecipe(ctx, sess.OrgID, recipeID, sess.UserID, recipe.Title, util.NewID("act"))
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	if !deleted {
		return sql.ErrNoRows
	}
	if s.search != nil {
		if err := s.search.DeleteRecipe(ctx, recipeID); err != nil {
			s.logger.Warn().Err(err).Str("recipe_id", recipeID).Msg("search delete failed")
		}
	}
	if s.media != nil && recipe.PhotoKey != "" {
		if err := s.media.Remove(ctx, recipe.PhotoKey); err != nil {
			s.logger.Warn().Err(err).Str("recipe_id", recipeID).Msg("photo cleanup failed")
		}
	}
	return nil
}

// SetRecipePublic toggles the public share link for a recipe.
func (s *Service) SetRecipePublic(ctx context.Context, sess Session, recipeID string, isPublic bool) (string, error) {
	updated, err := s.store.SetRecipePublic(ctx, sess.OrgID, recipeID, isPublic)
	if err != nil {
		return "", fmt.Errorf("set recipe public: %w", err)
	}
	if !updated {
		return "", sql.ErrNoRows
	}
	if !isPublic {
		return "", nil
	}
	return s.baseURL + "/share/recipes/" + recipeID, nil
}

// PublicRecipe serves the unauthenticated share view.
func (s *Service) PublicRecipe(ctx context.Context, recipeID string) (map[string]any, error) {
	recipe, err := s.store.GetPublicRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	org, err := s.store.GetOrganization(ctx, recipe.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	return map[string]any{
		"recipe":           recipeView(recipe),
		"organizationName": org.Name,
	}, nil
}

func (s *Service) validateRecipeInput(ctx context.Context, input CreateRecipeInput) error {
	fieldErrors := map[string]string{}
	if strings.TrimSpace(input.Title) == "" {
		fieldErrors["title"] = "Title is required"
	}
	if input.Servings < 1 {
		fieldErrors["servings"] = "Servings must be at least 1"
	}
	if input.MealTypeID == "" {
		fieldErrors["mealTypeId"] = "Meal type is required"
	} else if ok, err := s.store.MealTypeExists(ctx, input.MealTypeID); err != nil {
		return fmt.Errorf("check meal type: %w", err)
	} else if !ok {
		fieldErrors["mealTypeId"] = "Unknown meal type"
	}
	if input.CuisineID == "" {
		fieldErrors["cuisineId"] = "Cuisine is required"
	} else if ok, err := s.store.CuisineExists(ctx, input.CuisineID); err != nil {
		return fmt.Errorf("check cuisine: %w", err)
	} else if !ok {
		fieldErrors["cuisineId"] = "Unknown cuisine"
	}
	if len(fieldErrors) > 0 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid recipe", fieldErrors)
	}
	return nil
}

func (s *Service) indexRecipe(ctx context.Context, recipeID, orgID string) {
	if s.search == nil {
		return
	}
	recipe, err := s.store.GetRecipe(ctx, orgID, recipeID)
	if err != nil {
		s.logger.Warn().Err(err).Str("recipe_id", recipeID).Msg("load recipe for index failed")
		return
	}
	if err := s.search.IndexRecipe(ctx, searchDocument(recipe)); err != nil {
		s.logger.Warn().Err(err).Str("recipe_id", recipeID).Msg("search index failed")
	}
}

func searchDocument(r store.Recipe) search.Document {
	return search.Document{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		Title:          r.Title,
		Ingredients:    r.Ingredients,
		MealType:       r.MealTypeName,
		Cuisine:        r.CuisineName,
	}
}

// ---- notes ----

func (s *Service) AddNote(ctx context.Context, sess Session, recipeID, message string) (store.Note, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return store.Note{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid note", map[string]string{"message": "Message is required"})
	}

	// The recipe lookup doubles as the tenant check.
	if _, err := s.store.GetRecipe(ctx, sess.OrgID, recipeID); err != nil {
		return store.Note{}, err
	}

	note := store.Note{
		ID:             util.NewID("note"),
		OrganizationID: sess.OrgID,
		RecipeID:       recipeID,
		UserID:         sess.UserID,
		Message:        message,
	}
	if err := s.store.CreateNote(ctx, note, util.NewID("act")); err != nil {
		return store.Note{}, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

// SetNoteResolved flips a note's resolved state. Any member of the
// owning household may do this, not just the author.
func (s *Service) SetNoteResolved(ctx context.Context, sess Session, noteID string, resolved bool) error {
	updated, err := s.store.SetNoteResolved(ctx, sess.OrgID, noteID, resolved)
	if err != nil {
		return fmt.Errorf("set note resolved: %w", err)
	}
	if !updated {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteNote removes a note. Only the author may delete; anyone else in
// the household gets the same 404 an outsider would.
func (s *Service) DeleteNote(ctx context.Context, sess Session, noteID string) error {
	deleted, err := s.store.DeleteNote(ctx, sess.OrgID, noteID, sess.UserID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if !deleted {
		return sql.ErrNoRows
	}
	return nil
}

// ---- home and settings ----

// HomePage aggregates the dashboard: the ten newest activity entries
// and the most used meal types and cuisines.
func (s *Service) HomePage(ctx context.Context, sess Session) (map[string]any, error) {
	activity, err := s.store.ListActivity(ctx, sess.OrgID, 10)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	topMealTypes, err := s.store.TopMealTypes(ctx, sess.OrgID, 5)
	if err != nil {
		return nil, fmt.Errorf("top meal types: %w", err)
	}
	topCuisines, err := s.store.TopCuisines(ctx, sess.OrgID, 5)
	if err != nil {
		return nil, fmt.Errorf("top cuisines: %w", err)
	}
	totalCount, err := s.store.CountRecipes(ctx, sess.OrgID)
	if err != nil {
		return nil, fmt.Errorf("count recipes: %w", err)
	}
	org, err := s.store.GetOrganization(ctx, sess.OrgID)
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}

	return map[string]any{
		"organizationName": org.Name,
		"recipeCount":      totalCount,
		"activity":         activityViews(activity),
		"topMealTypes":     topMealTypes,
		"topCuisines":      topCuisines,
	}, nil
}

func (s *Service) SettingsPage(ctx context.Context, sess Session) (map[string]any, error) {
	org, err := s.store.GetOrganization(ctx, sess.OrgID)
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	user, err := s.store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	members, err := s.store.ListMembers(ctx, sess.OrgID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	invitation, err := s.store.GetInvitationByOrg(ctx, sess.OrgID)
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}

	return map[string]any{
		"organization": map[string]any{"id": org.ID, "name": org.Name},
		"profile": map[string]any{
			"firstName": user.FirstName,
			"lastName":  user.LastName,
			"email":     user.Email,
			"role":      user.Role,
		},
		"members": members,
		"invitation": map[string]any{
			"id":        invitation.ID,
			"isEnabled": invitation.IsEnabled,
			"url":       s.inviteURL(invitation.ID),
		},
	}, nil
}

func (s *Service) UpdateProfile(ctx context.Context, sess Session, firstName, lastName string) error {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid profile", map[string]string{
			"firstName": "First and last name are required",
		})
	}
	if err := s.store.UpdateUserName(ctx, sess.UserID, firstName, lastName); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (s *Service) RenameOrganization(ctx context.Context, sess Session, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid name", map[string]string{"name": "Name is required"})
	}
	if err := s.store.UpdateOrganizationName(ctx, sess.OrgID, name); err != nil {
		return fmt.Errorf("rename organization: %w", err)
	}
	return nil
}

// ---- invitations ----

func (s *Service) inviteURL(invitationID string) string {
	return s.baseURL + "/join/" + invitationID
}

// InvitePreview resolves an invite token for the accept page. Disabled
// and unknown tokens look identical to the caller.
func (s *Service) InvitePreview(ctx context.Context, inviteID string) (map[string]any, error) {
	invite, err := s.store.GetInviteByID(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"inviteId":         invite.ID,
		"organizationName": invite.OrganizationName,
	}, nil
}

func (s *Service) SetInvitationEnabled(ctx context.Context, sess Session, invitationID string, enabled bool) error {
	updated, err := s.store.SetInvitationEnabled(ctx, sess.OrgID, invitationID, enabled)
	if err != nil {
		return fmt.Errorf("set invitation enabled: %w", err)
	}
	if !updated {
		return sql.ErrNoRows
	}
	return nil
}

// ResetInvitation replaces the organization's invite link. The old
// token stops resolving the moment the swap commits.
func (s *Service) ResetInvitation(ctx context.Context, sess Session, invitationID string) (string, error) {
	newID := util.NewID("inv")
	reset, err := s.store.ResetInvitation(ctx, sess.OrgID, invitationID, newID)
	if err != nil {
		return "", fmt.Errorf("reset invitation: %w", err)
	}
	if !reset {
		return "", sql.ErrNoRows
	}
	return newID, nil
}

// SendInvite emails the current invite link to an address.
func (s *Service) SendInvite(ctx context.Context, sess Session, to string) error {
	if s.email == nil {
		return domainError(http.StatusServiceUnavailable, "EMAIL_UNAVAILABLE", "Email is not configured", nil)
	}
	to = strings.TrimSpace(to)
	if !strings.Contains(to, "@") {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid email", map[string]string{"email": "Email is invalid"})
	}

	user, err := s.store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	org, err := s.store.GetOrganization(ctx, sess.OrgID)
	if err != nil {
		return fmt.Errorf("load organization: %w", err)
	}
	invitation, err := s.store.GetInvitationByOrg(ctx, sess.OrgID)
	if err != nil {
		return fmt.Errorf("load invitation: %w", err)
	}
	if !invitation.IsEnabled {
		return domainError(http.StatusConflict, "INVITATION_DISABLED", "The invite link is disabled", nil)
	}

	if err := s.email.SendInvite(ctx, to, user.FirstName, org.Name, s.inviteURL(invitation.ID)); err != nil {
		return fmt.Errorf("send invite: %w", err)
	}
	return nil
}

// ---- search and export ----

// QuickSearch answers the header search box. It is a convenience layer
// over the canonical SQL listing, not a replacement for it.
func (s *Service) QuickSearch(ctx context.Context, sess Session, query string, limit int) ([]search.Hit, error) {
	if s.search == nil {
		return []search.Hit{}, nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []search.Hit{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	hits, err := s.search.Search(ctx, sess.OrgID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}

// ExportRecipePDF renders a recipe to PDF, notes included.
func (s *Service) ExportRecipePDF(ctx context.Context, sess Session, recipeID string) ([]byte, error) {
	if s.export == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not configured", nil)
	}
	recipe, err := s.store.GetRecipe(ctx, sess.OrgID, recipeID)
	if err != nil {
		return nil, err
	}
	notes, err := s.store.ListNotes(ctx, sess.OrgID, recipeID, false)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	pdf, err := s.export.RecipePDF(ctx, recipe, notes)
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	return pdf, nil
}

// ---- photos ----

var photoContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// UploadRecipePhoto stores the image and points the recipe at it. The
// object key is scoped by organization so tenants never share a prefix.
func (s *Service) UploadRecipePhoto(ctx context.Context, sess Session, recipeID, contentType string, size int64, body io.Reader) error {
	if s.media == nil {
		return domainError(http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Photo storage is not configured", nil)
	}
	ext, ok := photoContentTypes[contentType]
	if !ok {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unsupported image type", map[string]string{"photo": "Use a JPEG, PNG, or WebP image"})
	}
	if size <= 0 || size > 10<<20 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid image", map[string]string{"photo": "Image must be between 1 byte and 10 MB"})
	}

	recipe, err := s.store.GetRecipe(ctx, sess.OrgID, recipeID)
	if err != nil {
		return err
	}

	key := sess.OrgID + "/" + recipeID + "/" + util.NewID("photo") + ext
	if err := s.media.Put(ctx, key, contentType, size, body); err != nil {
		return fmt.Errorf("store photo: %w", err)
	}
	if _, err := s.store.SetRecipePhoto(ctx, sess.OrgID, recipeID, key); err != nil {
		return fmt.Errorf("set recipe photo: %w", err)
	}
	if recipe.PhotoKey != "" {
		if err := s.media.Remove(ctx, recipe.PhotoKey); err != nil {
			s.logger.Warn().Err(err).Str("recipe_id", recipeID).Msg("old photo cleanup failed")
		}
	}
	return nil
}

// RecipePhotoURL returns a short-lived link to the recipe's photo.
func (s *Service) RecipePhotoURL(ctx context.Context, sess Session, recipeID string) (string, error) {
	if s.media == nil {
		return "", domainError(http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Photo storage is not configured", nil)
	}
	recipe, err := s.store.GetRecipe(ctx, sess.OrgID, recipeID)
	if err != nil {
		return "", err
	}
	if recipe.PhotoKey == "" {
		return "", sql.ErrNoRows
	}
	url, err := s.media.URL(ctx, recipe.PhotoKey)
	if err != nil {
		return "", fmt.Errorf("photo url: %w", err)
	}
	return url, nil
}

// ---- view shaping ----

func recipeView(r store.Recipe) map[string]any {
	return map[string]any{
		"id":           r.ID,
		"title":        r.Title,
		"mealType":     r.MealTypeName,
		"cuisine":      r.CuisineName,
		"author":       r.AuthorFirstName,
		"servings":     r.Servings,
		"ingredients":  r.Ingredients,
		"instructions": r.Instructions,
		"isPublic":     r.IsPublic,
		"photoKey":     r.PhotoKey,
		"createdAt":    r.CreatedAt,
		"updatedAt":    r.UpdatedAt,
	}
}

func recipeViews(recipes []store.Recipe) []map[string]any {
	views := make([]map[string]any, 0, len(recipes))
	for _, r := range recipes {
		views = append(views, map[string]any{
			"id":        r.ID,
			"title":     r.Title,
			"mealType":  r.MealTypeName,
			"cuisine":   r.CuisineName,
			"author":    r.AuthorFirstName,
			"servings":  r.Servings,
			"updatedAt": r.UpdatedAt,
		})
	}
	return views
}

func noteViews(notes []store.Note) []map[string]any {
	views := make([]map[string]any, 0, len(notes))
	for _, n := range notes {
		views = append(views, map[string]any{
			"id":         n.ID,
			"message":    n.Message,
			"author":     n.AuthorFirstName,
			"authorId":   n.UserID,
			"isResolved": n.IsResolved,
			"createdAt":  n.CreatedAt,
		})
	}
	return views
}

func activityViews(entries []store.Activity) []map[string]any {
	views := make([]map[string]any, 0, len(entries))
	for _, a := range entries {
		recipeName := a.RecipeTitle
		if recipeName == "" {
			recipeName = a.RecipeName
		}
		view := map[string]any{
			"id":         a.ID,
			"type":       a.Type,
			"actor":      a.ActorFirstName,
			"recipeName": recipeName,
			"createdAt":  a.CreatedAt,
		}
		if a.RecipeID != nil {
			view["recipeId"] = *a.RecipeID
		}
		views = append(views, view)
	}
	return views
}
