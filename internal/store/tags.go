// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/gift-engine/pkg/types"
)

// tagDetailProducts caps the products returned with a tag.
const tagDetailProducts = 20

// SystemTagCategory is the category given to tags seeded by EnsureSystemTags.
const SystemTagCategory = "category"

// TagFilter narrows ListTags. Search matches a substring of the name.
type TagFilter struct {
	Category string
	Search   string
}

// TagUpdate carries the tag fields to change. Nil fields are left alone.
type TagUpdate struct {
	Name        *string `json:"name,omitempty"`
	Category    *string `json:"category,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

// NormalizeTagName lowercases and trims a tag name.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CreateTag stores a user tag. If a tag with the same normalized name
// exists it is returned unchanged and created is false.
func (s *Store) CreateTag(ctx context.Context, t types.Tag) (tag types.Tag, created bool, err error) {
	name := NormalizeTagName(t.Name)
	if name == "" {
		return types.Tag{}, false, ErrInvalidTag
	}

	existing, err := s.tagByName(ctx, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return types.Tag{}, false, err
	}

	now := s.timestamp()
	id := s.id()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tags (id, name, category, description, color, is_system, usage_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		id, name, t.Category, t.Description, t.Color, now, now,
	)
	if err != nil {
		return types.Tag{}, false, fmt.Errorf("inserting tag: %w", err)
	}
	tag, err = s.tagByID(ctx, s.db, id)
	return tag, err == nil, err
}

// EnsureSystemTags seeds one system tag per name. Existing names are
// left untouched.
func (s *Store) EnsureSystemTags(ctx context.Context, names []string) error {
	now := s.timestamp()
	for _, n := range names {
		name := NormalizeTagName(n)
		if name == "" {
			continue
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO tags (id, name, category, is_system, usage_count, created_at, updated_at)
			 VALUES (?, ?, ?, 1, 0, ?, ?)
			 ON CONFLICT(name) DO NOTHING`,
			s.id(), name, SystemTagCategory, now, now,
		)
		if err != nil {
			return fmt.Errorf("seeding tag %s: %w", name, err)
		}
	}
	return nil
}

// ListTags returns tags matching filter ordered by usage, most used first,
// then by name.
func (s *Store) ListTags(ctx context.Context, filter TagFilter) ([]types.Tag, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, filter.Category)
	}
	if q := NormalizeTagName(filter.Search); q != "" {
		conds = append(conds, "name LIKE ?")
		args = append(args, "%"+q+"%")
	}
	q := `SELECT ` + tagColumns + ` FROM tags`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY usage_count DESC, name ASC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	out := []types.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTag returns a tag with up to 20 of its products, newest first.
func (s *Store) GetTag(ctx context.Context, id string) (*types.TagDetail, error) {
	t, err := s.tagByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+prefixed("p.", productColumns)+`
		 FROM products p JOIN product_tags pt ON pt.product_id = p.id
		 WHERE pt.tag_id = ?
		 ORDER BY pt.created_at DESC, p.id ASC
		 LIMIT ?`, id, tagDetailProducts)
	if err != nil {
		return nil, fmt.Errorf("querying tag products: %w", err)
	}
	defer rows.Close()

	detail := &types.TagDetail{Tag: t, Products: []types.ProductRecord{}}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		detail.Products = append(detail.Products, p)
	}
	return detail, rows.Err()
}

// UpdateTag applies u to a user tag.
func (s *Store) UpdateTag(ctx context.Context, id string, u TagUpdate) (types.Tag, error) {
	t, err := s.tagByID(ctx, s.db, id)
	if err != nil {
		return types.Tag{}, err
	}
	if t.IsSystem {
		return types.Tag{}, ErrSystemTag
	}

	if u.Name != nil {
		name := NormalizeTagName(*u.Name)
		if name == "" {
			return types.Tag{}, ErrInvalidTag
		}
		t.Name = name
	}
	if u.Category != nil {
		t.Category = *u.Category
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Color != nil {
		t.Color = *u.Color
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE tags SET name = ?, category = ?, description = ?, color = ?, updated_at = ? WHERE id = ?`,
		t.Name, t.Category, t.Description, t.Color, s.timestamp(), id,
	)
	if err != nil {
		return types.Tag{}, fmt.Errorf("updating tag: %w", err)
	}
	return s.tagByID(ctx, s.db, id)
}

// DeleteTag removes a user tag and its product associations.
func (s *Store) DeleteTag(ctx context.Context, id string) error {
	t, err := s.tagByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if t.IsSystem {
		return ErrSystemTag
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting tag: %w", err)
	}
	return nil
}

// AssignTags attaches tags to a product and returns how many associations
// were created. Tags already attached are skipped and their usage count is
// unchanged.
func (s *Store) AssignTags(ctx context.Context, productID string, tagIDs []string) (int, error) {
	return s.changeTags(ctx, productID, tagIDs,
		`INSERT INTO product_tags (product_id, tag_id, created_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		`UPDATE tags SET usage_count = usage_count + 1, updated_at = ? WHERE id = ?`,
		true,
	)
}

// RemoveTags detaches tags from a product and returns how many
// associations were removed. Usage counts never drop below zero.
func (s *Store) RemoveTags(ctx context.Context, productID string, tagIDs []string) (int, error) {
	return s.changeTags(ctx, productID, tagIDs,
		`DELETE FROM product_tags WHERE product_id = ? AND tag_id = ?`,
		`UPDATE tags SET usage_count = MAX(usage_count - 1, 0), updated_at = ? WHERE id = ?`,
		false,
	)
}

func (s *Store) changeTags(ctx context.Context, productID string, tagIDs []string, assocSQL, counterSQL string, withTime bool) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT count(*) FROM products WHERE id = ?`, productID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("checking product: %w", err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}

	now := s.timestamp()
	changed := 0
	for _, tagID := range uniqueIDs(tagIDs) {
		if _, err := s.tagByID(ctx, tx, tagID); err != nil {
			return 0, err
		}

		args := []any{productID, tagID}
		if withTime {
			args = append(args, now)
		}
		res, err := tx.ExecContext(ctx, assocSQL, args...)
		if err != nil {
			return 0, fmt.Errorf("changing tag %s: %w", tagID, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, counterSQL, now, tagID); err != nil {
			return 0, fmt.Errorf("updating usage of tag %s: %w", tagID, err)
		}
		changed++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tag change: %w", err)
	}
	return changed, nil
}

// ProductTags returns the tags attached to a product, by name.
func (s *Store) ProductTags(ctx context.Context, productID string) ([]types.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+prefixed("t.", tagColumns)+`
		 FROM tags t JOIN product_tags pt ON pt.tag_id = t.id
		 WHERE pt.product_id = ?
		 ORDER BY t.name ASC`, productID)
	if err != nil {
		return nil, fmt.Errorf("querying product tags: %w", err)
	}
	defer rows.Close()

	out := []types.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const tagColumns = `id, name, category, description, color, is_system, usage_count, created_at, updated_at`

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) tagByID(ctx context.Context, q querier, id string) (types.Tag, error) {
	t, err := scanTag(q.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Tag{}, fmt.Errorf("tag %s: %w", id, ErrNotFound)
	}
	return t, err
}

func (s *Store) tagByName(ctx context.Context, name string) (types.Tag, error) {
	t, err := scanTag(s.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Tag{}, fmt.Errorf("tag %s: %w", name, ErrNotFound)
	}
	return t, err
}

func scanTag(sc scanner) (types.Tag, error) {
	var (
		t                           types.Tag
		category, description, colr sql.NullString
		isSystem                    int
		createdAt, updatedAt        string
	)
	err := sc.Scan(&t.ID, &t.Name, &category, &description, &colr, &isSystem,
		&t.UsageCount, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, err
	}
	if err != nil {
		return t, fmt.Errorf("scanning tag: %w", err)
	}
	t.Category = category.String
	t.Description = description.String
	t.Color = colr.String
	t.IsSystem = isSystem != 0
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

// prefixed qualifies each column in a comma-separated list.
func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, c := range parts {
		parts[i] = prefix + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
