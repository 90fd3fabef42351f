package store

import "time"

type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID             string
	OrganizationID string
	FirstName      string
	LastName       string
	Email          string
	Role           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Member is a user row decorated with the per-tenant recipe count for
// the settings and filter views.
type Member struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	Role        string
	RecipeCount int
}

type MealType struct {
	ID          string
	Name        string
	SortOrder   int
	RecipeCount int
}

type Cuisine struct {
	ID          string
	Name        string
	RecipeCount int
}

type Recipe struct {
	ID             string
	OrganizationID string
	UserID         string
	MealTypeID     string
	CuisineID      string
	Title          string
	Servings       int
	Ingredients    string
	Instructions   string
	IsPublic       bool
	PhotoKey       string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Display fields joined from the reference tables and the author.
	MealTypeName    string
	CuisineName     string
	AuthorFirstName string
}

// RecipeFilter is the normalized filter set for recipe listing and
// counting. An empty string means "no constraint on this field".
// SearchQuery is already in tsquery form (terms joined with <->).
type RecipeFilter struct {
	MealType    string
	Cuisine     string
	Member      string
	SearchQuery string
}

type Note struct {
	ID              string
	OrganizationID  string
	RecipeID        string
	UserID          string
	Message         string
	IsResolved      bool
	CreatedAt       time.Time
	AuthorFirstName string
}

type Invitation struct {
	ID             string
	OrganizationID string
	IsEnabled      bool
	CreatedAt      time.Time
}

// Invite is the invite-accept view of an enabled invitation.
type Invite struct {
	ID               string
	OrganizationID   string
	OrganizationName string
}

type Activity struct {
	ID             string
	OrganizationID string
	UserID         string
	Type           string
	RecipeID       *string
	NoteID         *string
	RecipeName     string
	CreatedAt      time.Time

	ActorFirstName string
	RecipeTitle    string
}
