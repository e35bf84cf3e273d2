package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/jitdj/internal/models"
	"github.com/desertthunder/jitdj/internal/shared"
)

// ResolutionRepository implements models.Repository[*models.Resolution] over the resolutions table.
type ResolutionRepository struct {
	db *sql.DB
}

// NewResolutionRepository creates a new ResolutionRepository with the given database connection
func NewResolutionRepository(db *sql.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

const resolutionColumns = "id, lookup_key, title, artist, uri, hits, created_at, updated_at"

// Create inserts a new [models.Resolution] with a generated ID.
func (r *ResolutionRepository) Create(res *models.Resolution) error {
	if err := res.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	_, err := r.db.Exec(`
		INSERT INTO resolutions (`+resolutionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, res.Key(), res.Title(), res.Artist(), res.URI(), res.Hits(), res.CreatedAt(), res.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert resolution: %w", err)
	}

	res.SetID(id)
	return nil
}

// Get retrieves a resolution by ID.
func (r *ResolutionRepository) Get(id string) (*models.Resolution, error) {
	row := r.db.QueryRow("SELECT "+resolutionColumns+" FROM resolutions WHERE id = ?", id)
	res, err := scanResolution(row)
	if err != nil {
		return nil, notFound(err, "resolution", id)
	}
	return res, nil
}

// GetByKey retrieves a resolution by its normalized lookup key.
func (r *ResolutionRepository) GetByKey(key string) (*models.Resolution, error) {
	row := r.db.QueryRow("SELECT "+resolutionColumns+" FROM resolutions WHERE lookup_key = ?", key)
	res, err := scanResolution(row)
	if err != nil {
		return nil, notFound(err, "resolution", key)
	}
	return res, nil
}

// Update rewrites the identifier and hit count of an existing resolution.
func (r *ResolutionRepository) Update(res *models.Resolution) error {
	if err := res.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	res.SetUpdatedAt(now)

	result, err := r.db.Exec(`
		UPDATE resolutions
		SET uri = ?, hits = ?, updated_at = ?
		WHERE id = ?
	`, res.URI(), res.Hits(), now, res.ID())
	if err != nil {
		return fmt.Errorf("failed to update resolution: %w", err)
	}
	return checkAffected(result, "resolution", res.ID())
}

// Touch increments the hit counter for a cached key.
func (r *ResolutionRepository) Touch(key string) error {
	result, err := r.db.Exec(`
		UPDATE resolutions
		SET hits = hits + 1, updated_at = ?
		WHERE lookup_key = ?
	`, time.Now(), key)
	if err != nil {
		return fmt.Errorf("failed to touch resolution: %w", err)
	}
	return checkAffected(result, "resolution", key)
}

// Delete removes a resolution by ID.
func (r *ResolutionRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM resolutions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete resolution: %w", err)
	}
	return checkAffected(result, "resolution", id)
}

// Clear removes every cached resolution and returns how many were deleted.
func (r *ResolutionRepository) Clear() (int64, error) {
	result, err := r.db.Exec("DELETE FROM resolutions")
	if err != nil {
		return 0, fmt.Errorf("failed to clear resolutions: %w", err)
	}
	return result.RowsAffected()
}

// List retrieves resolutions matching the given criteria, most used first.
//
// Supported criteria: "uri" (string), "artist" (string) and "limit" (int).
func (r *ResolutionRepository) List(criteria map[string]any) ([]*models.Resolution, error) {
	query := "SELECT " + resolutionColumns + " FROM resolutions WHERE 1 = 1"
	args := []any{}

	if uri, ok := criteria["uri"].(string); ok && uri != "" {
		query += " AND uri = ?"
		args = append(args, uri)
	}

	if artist, ok := criteria["artist"].(string); ok && artist != "" {
		query += " AND artist = ? COLLATE NOCASE"
		args = append(args, artist)
	}

	query += " ORDER BY hits DESC, lookup_key ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	var out []*models.Resolution
	for rows.Next() {
		res, err := scanResolution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		out = append(out, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resolutions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResolution(s scanner) (*models.Resolution, error) {
	var (
		id, key, title, artist, uri string
		hits                        int
		createdAt, updatedAt        time.Time
	)
	if err := s.Scan(&id, &key, &title, &artist, &uri, &hits, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return models.RestoreResolution(id, key, title, artist, uri, hits, createdAt, updatedAt), nil
}
