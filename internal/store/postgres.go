package store

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- organizations ----

func (s *PostgresStore) GetOrganization(ctx context.Context, orgID string) (Organization, error) {
	var org Organization
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM organizations
		WHERE id=$1
	`, orgID).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return Organization{}, err
	}
	return org, nil
}

func (s *PostgresStore) UpdateOrganizationName(ctx context.Context, orgID, name string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE organizations SET name=$2, updated_at=NOW()
		WHERE id=$1
	`, orgID, name)
	if err != nil {
		return fmt.Errorf("update organization name: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMembers(ctx context.Context, orgID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.first_name, u.last_name, u.email, u.role,
			(SELECT COUNT(*) FROM recipes r WHERE r.user_id = u.id AND r.organization_id = $1) AS recipe_count
		FROM users u
		WHERE u.organization_id=$1
		ORDER BY u.first_name ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	items := make([]Member, 0)
	for rows.Next() {
		var item Member
		if err := rows.Scan(&item.ID, &item.FirstName, &item.LastName, &item.Email, &item.Role, &item.RecipeCount); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return items, nil
}

// ---- users ----

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, first_name, last_name, email, role, created_at, updated_at
		FROM users
		WHERE id=$1
	`, userID).Scan(&user.ID, &user.OrganizationID, &user.FirstName, &user.LastName, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, first_name, last_name, email, role, created_at, updated_at
		FROM users
		WHERE email=$1
	`, email).Scan(&user.ID, &user.OrganizationID, &user.FirstName, &user.LastName, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// GetCredentials returns the user row and password hash for a login attempt.
func (s *PostgresStore) GetCredentials(ctx context.Context, email string) (User, string, error) {
	var user User
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.organization_id, u.first_name, u.last_name, u.email, u.role, p.hash
		FROM users u
		JOIN passwords p ON p.user_id = u.id
		WHERE u.email=$1
	`, email).Scan(&user.ID, &user.OrganizationID, &user.FirstName, &user.LastName, &user.Email, &user.Role, &hash)
	if err != nil {
		return User{}, "", err
	}
	return user, hash, nil
}

func (s *PostgresStore) UpdateUserName(ctx context.Context, userID, firstName, lastName string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET first_name=$2, last_name=$3, updated_at=NOW()
		WHERE id=$1
	`, userID, firstName, lastName)
	if err != nil {
		return fmt.Errorf("update user name: %w", err)
	}
	return nil
}

// CreateOwner creates the organization, its first user, the password row
// and the initial invitation link in a single transaction.
func (s *PostgresStore) CreateOwner(ctx context.Context, org Organization, user User, passwordHash, invitationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin signup tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO organizations (id, name)
		VALUES ($1, $2)
	`, org.ID, org.Name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert organization: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, organization_id, first_name, last_name, email, role)
		VALUES ($1, $2, $3, $4, $5, 'OWNER')
	`, user.ID, org.ID, user.FirstName, user.LastName, user.Email); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert owner: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO passwords (user_id, hash)
		VALUES ($1, $2)
	`, user.ID, passwordHash); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert password: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO invitations (id, organization_id)
		VALUES ($1, $2)
	`, invitationID, org.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert invitation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit signup tx: %w", err)
	}
	return nil
}

// CreateMember creates an invited user and their password row in one
// transaction. The organization must already exist.
func (s *PostgresStore) CreateMember(ctx context.Context, user User, passwordHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin member tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, organization_id, first_name, last_name, email, role)
		VALUES ($1, $2, $3, $4, $5, 'MEMBER')
	`, user.ID, user.OrganizationID, user.FirstName, user.LastName, user.Email); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert member: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO passwords (user_id, hash)
		VALUES ($1, $2)
	`, user.ID, passwordHash); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert password: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit member tx: %w", err)
	}
	return nil
}

// ---- meal types and cuisines ----

func (s *PostgresStore) InsertMealType(ctx context.Context, id, name string, sortOrder int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meal_types (id, name, sort_order)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`, id, name, sortOrder)
	if err != nil {
		return fmt.Errorf("insert meal type: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertCuisine(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cuisines (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`, id, name)
	if err != nil {
		return fmt.Errorf("insert cuisine: %w", err)
	}
	return nil
}

// ListMealTypes returns all meal types with the calling tenant's usage count.
func (s *PostgresStore) ListMealTypes(ctx context.Context, orgID string) ([]MealType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mt.id, mt.name, mt.sort_order,
			(SELECT COUNT(*) FROM recipes r WHERE r.meal_type_id = mt.id AND r.organization_id = $1) AS recipe_count
		FROM meal_types mt
		ORDER BY mt.sort_order ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list meal types: %w", err)
	}
	defer rows.Close()

	items := make([]MealType, 0)
	for rows.Next() {
		var item MealType
		if err := rows.Scan(&item.ID, &item.Name, &item.SortOrder, &item.RecipeCount); err != nil {
			return nil, fmt.Errorf("scan meal type: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meal types: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListCuisines(ctx context.Context, orgID string) ([]Cuisine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name,
			(SELECT COUNT(*) FROM recipes r WHERE r.cuisine_id = c.id AND r.organization_id = $1) AS recipe_count
		FROM cuisines c
		ORDER BY c.name ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list cuisines: %w", err)
	}
	defer rows.Close()

	items := make([]Cuisine, 0)
	for rows.Next() {
		var item Cuisine
		if err := rows.Scan(&item.ID, &item.Name, &item.RecipeCount); err != nil {
			return nil, fmt.Errorf("scan cuisine: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cuisines: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) TopMealTypes(ctx context.Context, orgID string, limit int) ([]MealType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mt.id, mt.name, mt.sort_order, COUNT(r.id)::int AS recipe_count
		FROM meal_types mt
		JOIN recipes r ON r.meal_type_id = mt.id AND r.organization_id = $1
		GROUP BY mt.id, mt.name, mt.sort_order
		ORDER BY recipe_count DESC, mt.sort_order ASC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("top meal types: %w", err)
	}
	defer rows.Close()

	items := make([]MealType, 0)
	for rows.Next() {
		var item MealType
		if err := rows.Scan(&item.ID, &item.Name, &item.SortOrder, &item.RecipeCount); err != nil {
			return nil, fmt.Errorf("scan top meal type: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top meal types: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) TopCuisines(ctx context.Context, orgID string, limit int) ([]Cuisine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, COUNT(r.id)::int AS recipe_count
		FROM cuisines c
		JOIN recipes r ON r.cuisine_id = c.id AND r.organization_id = $1
		GROUP BY c.id, c.name
		ORDER BY recipe_count DESC, c.name ASC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("top cuisines: %w", err)
	}
	defer rows.Close()

	items := make([]Cuisine, 0)
	for rows.Next() {
		var item Cuisine
		if err := rows.Scan(&item.ID, &item.Name, &item.RecipeCount); err != nil {
			return nil, fmt.Errorf("scan top cuisine: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top cuisines: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) MealTypeExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM meal_types WHERE id=$1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check meal type: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) CuisineExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM cuisines WHERE id=$1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check cuisine: %w", err)
	}
	return exists, nil
}

// ---- recipes ----

// CountRecipes returns the tenant's unfiltered recipe total.
func (s *PostgresStore) CountRecipes(ctx context.Context, orgID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM recipes WHERE organization_id=$1
	`, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recipes: %w", err)
	}
	return count, nil
}

// CountRecipesFiltered and ListRecipes share the same predicate so a
// paginated window never disagrees with its reported total within one
// request. An empty filter field places no constraint on that column.
func (s *PostgresStore) CountRecipesFiltered(ctx context.Context, orgID string, filter RecipeFilter) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM recipes r
		JOIN meal_types mt ON mt.id = r.meal_type_id
		JOIN cuisines c ON c.id = r.cuisine_id
		JOIN users u ON u.id = r.user_id
		WHERE r.organization_id=$1
		  AND ($2='' OR mt.name=$2)
		  AND ($3='' OR c.name=$3)
		  AND ($4='' OR u.first_name=$4)
		  AND ($5='' OR r.title_fts @@ to_tsquery('simple', $5))
	`, orgID, filter.MealType, filter.Cuisine, filter.Member, filter.SearchQuery).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count filtered recipes: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListRecipes(ctx context.Context, orgID string, filter RecipeFilter, limit, offset int) ([]Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.organization_id, r.user_id, r.meal_type_id, r.cuisine_id,
			r.title, r.servings, r.is_public, r.photo_key, r.created_at, r.updated_at,
			mt.name, c.name, u.first_name
		FROM recipes r
		JOIN meal_types mt ON mt.id = r.meal_type_id
		JOIN cuisines c ON c.id = r.cuisine_id
		JOIN users u ON u.id = r.user_id
		WHERE r.organization_id=$1
		  AND ($2='' OR mt.name=$2)
		  AND ($3='' OR c.name=$3)
		  AND ($4='' OR u.first_name=$4)
		  AND ($5='' OR r.title_fts @@ to_tsquery('simple', $5))
		ORDER BY r.updated_at DESC
		LIMIT $6 OFFSET $7
	`, orgID, filter.MealType, filter.Cuisine, filter.Member, filter.SearchQuery, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	items := make([]Recipe, 0)
	for rows.Next() {
		var item Recipe
		if err := rows.Scan(
			&item.ID,
			&item.OrganizationID,
			&item.UserID,
			&item.MealTypeID,
			&item.CuisineID,
			&item.Title,
			&item.Servings,
			&item.IsPublic,
			&item.PhotoKey,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.MealTypeName,
			&item.CuisineName,
			&item.AuthorFirstName,
		); err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipes: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetRecipe(ctx context.Context, orgID, recipeID string) (Recipe, error) {
	var item Recipe
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.organization_id, r.user_id, r.meal_type_id, r.cuisine_id,
			r.title, r.servings, r.ingredients, r.instructions, r.is_public, r.photo_key,
			r.created_at, r.updated_at,
			mt.name, c.name, u.first_name
		FROM recipes r
		JOIN meal_types mt ON mt.id = r.meal_type_id
		JOIN cuisines c ON c.id = r.cuisine_id
		JOIN users u ON u.id = r.user_id
		WHERE r.id=$1 AND r.organization_id=$2
	`, recipeID, orgID).Scan(
		&item.ID,
		&item.OrganizationID,
		&item.UserID,
		&item.MealTypeID,
		&item.CuisineID,
		&item.Title,
		&item.Servings,
		&item.Ingredients,
		&item.Instructions,
		&item.IsPublic,
		&item.PhotoKey,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.MealTypeName,
		&item.CuisineName,
		&item.AuthorFirstName,
	)
	if err != nil {
		return Recipe{}, err
	}
	return item, nil
}

// GetPublicRecipe resolves a recipe for the unauthenticated view. Only
// shared rows are visible, regardless of tenant.
func (s *PostgresStore) GetPublicRecipe(ctx context.Context, recipeID string) (Recipe, error) {
	var item Recipe
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.organization_id, r.user_id, r.meal_type_id, r.cuisine_id,
			r.title, r.servings, r.ingredients, r.instructions, r.is_public, r.photo_key,
			r.created_at, r.updated_at,
			mt.name, c.name, u.first_name
		FROM recipes r
		JOIN meal_types mt ON mt.id = r.meal_type_id
		JOIN cuisines c ON c.id = r.cuisine_id
		JOIN users u ON u.id = r.user_id
		WHERE r.id=$1 AND r.is_public=TRUE
	`, recipeID).Scan(
		&item.ID,
		&item.OrganizationID,
		&item.UserID,
		&item.MealTypeID,
		&item.CuisineID,
		&item.Title,
		&item.Servings,
		&item.Ingredients,
		&item.Instructions,
		&item.IsPublic,
		&item.PhotoKey,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.MealTypeName,
		&item.CuisineName,
		&item.AuthorFirstName,
	)
	if err != nil {
		return Recipe{}, err
	}
	return item, nil
}

// CreateRecipe inserts the recipe and its activity entry in one transaction.
func (s *PostgresStore) CreateRecipe(ctx context.Context, recipe Recipe, activityID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recipe tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO recipes (id, organization_id, user_id, meal_type_id, cuisine_id, title, servings, ingredients, instructions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, recipe.ID, recipe.OrganizationID, recipe.UserID, recipe.MealTypeID, recipe.CuisineID,
		recipe.Title, recipe.Servings, recipe.Ingredients, recipe.Instructions); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert recipe: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO activities (id, organization_id, user_id, type, recipe_id)
		VALUES ($1, $2, $3, 'RECIPE', $4)
	`, activityID, recipe.OrganizationID, recipe.UserID, recipe.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert recipe activity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recipe tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateRecipe(ctx context.Context, recipe Recipe) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE recipes
		SET title=$3, meal_type_id=$4, cuisine_id=$5, servings=$6, ingredients=$7, instructions=$8, updated_at=NOW()
		WHERE id=$1 AND organization_id=$2
	`, recipe.ID, recipe.OrganizationID, recipe.Title, recipe.MealTypeID, recipe.CuisineID,
		recipe.Servings, recipe.Ingredients, recipe.Instructions)
	if err != nil {
		return false, fmt.Errorf("update recipe: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update recipe rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteRecipe removes the recipe and records a RECIPE activity carrying
// the title, all-or-nothing. The activity row keeps the name because the
// recipe reference nulls out on delete.
func (s *PostgresStore) DeleteRecipe(ctx context.Context, orgID, recipeID, userID, title, activityID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO activities (id, organization_id, user_id, type, recipe_name)
		VALUES ($1, $2, $3, 'RECIPE', $4)
	`, activityID, orgID, userID, title); err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("insert delete activity: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM recipes WHERE id=$1 AND organization_id=$2
	`, recipeID, orgID)
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("delete recipe: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("delete recipe rows: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete tx: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) SetRecipePublic(ctx context.Context, orgID, recipeID string, isPublic bool) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE recipes SET is_public=$3, updated_at=NOW()
		WHERE id=$1 AND organization_id=$2
	`, recipeID, orgID, isPublic)
	if err != nil {
		return false, fmt.Errorf("set recipe public: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set recipe public rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) SetRecipePhoto(ctx context.Context, orgID, recipeID, photoKey string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE recipes SET photo_key=$3, updated_at=NOW()
		WHERE id=$1 AND organization_id=$2
	`, recipeID, orgID, photoKey)
	if err != nil {
		return false, fmt.Errorf("set recipe photo: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set recipe photo rows: %w", err)
	}
	return affected > 0, nil
}

// ListRecipesForIndex returns every recipe for search reindexing.
func (s *PostgresStore) ListRecipesForIndex(ctx context.Context) ([]Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.organization_id, r.title, r.ingredients, mt.name, c.name
		FROM recipes r
		JOIN meal_types mt ON mt.id = r.meal_type_id
		JOIN cuisines c ON c.id = r.cuisine_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list recipes for index: %w", err)
	}
	defer rows.Close()

	items := make([]Recipe, 0)
	for rows.Next() {
		var item Recipe
		if err := rows.Scan(&item.ID, &item.OrganizationID, &item.Title, &item.Ingredients, &item.MealTypeName, &item.CuisineName); err != nil {
			return nil, fmt.Errorf("scan index recipe: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index recipes: %w", err)
	}
	return items, nil
}

// ---- notes ----

func (s *PostgresStore) ListNotes(ctx context.Context, orgID, recipeID string, includeResolved bool) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.organization_id, n.recipe_id, n.user_id, n.message, n.is_resolved, n.created_at, u.first_name
		FROM notes n
		JOIN users u ON u.id = n.user_id
		WHERE n.organization_id=$1 AND n.recipe_id=$2
		  AND ($3::boolean OR n.is_resolved=FALSE)
		ORDER BY n.created_at ASC
	`, orgID, recipeID, includeResolved)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	items := make([]Note, 0)
	for rows.Next() {
		var item Note
		if err := rows.Scan(&item.ID, &item.OrganizationID, &item.RecipeID, &item.UserID, &item.Message, &item.IsResolved, &item.CreatedAt, &item.AuthorFirstName); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetNote(ctx context.Context, orgID, noteID string) (Note, error) {
	var item Note
	err := s.db.QueryRowContext(ctx, `
		SELECT n.id, n.organization_id, n.recipe_id, n.user_id, n.message, n.is_resolved, n.created_at, u.first_name
		FROM notes n
		JOIN users u ON u.id = n.user_id
		WHERE n.id=$1 AND n.organization_id=$2
	`, noteID, orgID).Scan(&item.ID, &item.OrganizationID, &item.RecipeID, &item.UserID, &item.Message, &item.IsResolved, &item.CreatedAt, &item.AuthorFirstName)
	if err != nil {
		return Note{}, err
	}
	return item, nil
}

// CreateNote inserts the note and its activity entry in one transaction.
func (s *PostgresStore) CreateNote(ctx context.Context, note Note, activityID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin note tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO notes (id, organization_id, recipe_id, user_id, message)
		VALUES ($1, $2, $3, $4, $5)
	`, note.ID, note.OrganizationID, note.RecipeID, note.UserID, note.Message); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert note: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO activities (id, organization_id, user_id, type, recipe_id, note_id)
		VALUES ($1, $2, $3, 'NOTE', $4, $5)
	`, activityID, note.OrganizationID, note.UserID, note.RecipeID, note.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert note activity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit note tx: %w", err)
	}
	return nil
}

// SetNoteResolved toggles resolution state. Any member of the owning
// tenant may resolve or unresolve, so the predicate carries no user id.
func (s *PostgresStore) SetNoteResolved(ctx context.Context, orgID, noteID string, isResolved bool) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notes SET is_resolved=$3
		WHERE id=$1 AND organization_id=$2
	`, noteID, orgID, isResolved)
	if err != nil {
		return false, fmt.Errorf("set note resolved: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set note resolved rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteNote removes a note. The user id in the predicate restricts
// deletion to the note's author; anyone else's request affects no rows.
func (s *PostgresStore) DeleteNote(ctx context.Context, orgID, noteID, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM notes WHERE id=$1 AND organization_id=$2 AND user_id=$3
	`, noteID, orgID, userID)
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete note rows: %w", err)
	}
	return affected > 0, nil
}

// ---- invitations ----

func (s *PostgresStore) GetInvitationByOrg(ctx context.Context, orgID string) (Invitation, error) {
	var item Invitation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, is_enabled, created_at
		FROM invitations
		WHERE organization_id=$1
		LIMIT 1
	`, orgID).Scan(&item.ID, &item.OrganizationID, &item.IsEnabled, &item.CreatedAt)
	if err != nil {
		return Invitation{}, err
	}
	return item, nil
}

// GetInviteByID resolves an invite token for the accept flow. Disabled
// invitations are indistinguishable from unknown ones.
func (s *PostgresStore) GetInviteByID(ctx context.Context, inviteID string) (Invite, error) {
	var item Invite
	err := s.db.QueryRowContext(ctx, `
		SELECT i.id, o.id, o.name
		FROM invitations i
		JOIN organizations o ON o.id = i.organization_id
		WHERE i.id=$1 AND i.is_enabled=TRUE
	`, inviteID).Scan(&item.ID, &item.OrganizationID, &item.OrganizationName)
	if err != nil {
		return Invite{}, err
	}
	return item, nil
}

func (s *PostgresStore) SetInvitationEnabled(ctx context.Context, orgID, invitationID string, isEnabled bool) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE invitations SET is_enabled=$3
		WHERE id=$1 AND organization_id=$2
	`, invitationID, orgID, isEnabled)
	if err != nil {
		return false, fmt.Errorf("set invitation enabled: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set invitation enabled rows: %w", err)
	}
	return affected > 0, nil
}

// ResetInvitation deletes the old invitation row and creates a fresh one
// under a new id in a single transaction. The old token is permanently
// dead once this commits.
func (s *PostgresStore) ResetInvitation(ctx context.Context, orgID, invitationID, newID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin invitation tx: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM invitations WHERE id=$1 AND organization_id=$2
	`, invitationID, orgID)
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("delete invitation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("delete invitation rows: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO invitations (id, organization_id)
		VALUES ($1, $2)
	`, newID, orgID); err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("insert invitation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit invitation tx: %w", err)
	}
	return true, nil
}

// ---- activity ----

func (s *PostgresStore) ListActivity(ctx context.Context, orgID string, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.organization_id, a.user_id, a.type, a.recipe_id, a.note_id, a.recipe_name, a.created_at,
			u.first_name, COALESCE(r.title, '')
		FROM activities a
		JOIN users u ON u.id = a.user_id
		LEFT JOIN recipes r ON r.id = a.recipe_id
		WHERE a.organization_id=$1
		ORDER BY a.created_at DESC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		var item Activity
		if err := rows.Scan(
			&item.ID,
			&item.OrganizationID,
			&item.UserID,
			&item.Type,
			&item.RecipeID,
			&item.NoteID,
			&item.RecipeName,
			&item.CreatedAt,
			&item.ActorFirstName,
			&item.RecipeTitle,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return items, nil
}
