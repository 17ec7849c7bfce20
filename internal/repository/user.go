package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/database"
	"github.com/jobdeck/jobdeck/api/internal/model"
)

// activeWindow bounds who counts as an active user for recommendation
// batches. Accounts idle longer than this are skipped.
const activeWindow = 30 * 24 * time.Hour

// UserRepository reads platform accounts
type UserRepository struct {
	db database.Database
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.Database) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT * FROM user WHERE user_id = $user_id LIMIT 1`
	vars := map[string]interface{}{"user_id": id}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return parseUserRecord(result)
}

// ListActiveIDs returns IDs of users active within the recommendation window
func (r *UserRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	cutoff := time.Now().UTC().Add(-activeWindow).Format(time.RFC3339)
	query := `SELECT VALUE user_id FROM user WHERE last_active_at >= <datetime>$cutoff`
	return r.listIDs(ctx, query, map[string]interface{}{"cutoff": cutoff})
}

// ListDigestOptInIDs returns IDs of users subscribed to the weekly digest
func (r *UserRepository) ListDigestOptInIDs(ctx context.Context) ([]string, error) {
	query := `SELECT VALUE user_id FROM user WHERE digest_opt_in = true`
	return r.listIDs(ctx, query, nil)
}

func (r *UserRepository) listIDs(ctx context.Context, query string, vars map[string]interface{}) ([]string, error) {
	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	rows, ok := extractQueryResults(results)
	if !ok {
		return nil, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id, ok := row.(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// parseUserRecord converts a SurrealDB row into a User
func parseUserRecord(result interface{}) (*model.User, error) {
	m, ok := result.(map[string]interface{})
	if !ok {
		return nil, model.ErrNotFound
	}
	return &model.User{
		ID:           getString(m, "user_id"),
		Email:        getString(m, "email"),
		Name:         getString(m, "name"),
		Role:         model.UserRole(getString(m, "role")),
		DigestOptIn:  getBool(m, "digest_opt_in"),
		CreatedAt:    getTime(m, "created_at"),
		LastActiveAt: getTime(m, "last_active_at"),
	}, nil
}
