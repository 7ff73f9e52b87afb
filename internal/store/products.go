// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/gift-engine/pkg/types"
)

const defaultPageLimit = 20

// ProductFilter narrows product queries. Empty fields match everything.
type ProductFilter struct {
	Source   string
	Category string
}

// Page selects a window of results.
type Page struct {
	Limit  int
	Offset int
}

// ProductKey returns the upsert key for p: its external id, or its product
// link when the source has no stable id.
func ProductKey(p types.StandardizedProduct) string {
	if p.ExternalID != "" {
		return p.ExternalID
	}
	return "url:" + p.ProductURL
}

// UpsertProducts inserts or updates products for source in one
// transaction. Rows are keyed by (source, ProductKey); a repeated product
// keeps its id and creation time, and its mutable fields take the new
// values.
func (s *Store) UpsertProducts(ctx context.Context, source string, products []types.StandardizedProduct) error {
	if len(products) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO products (id, source, product_key, external_id, title, description,
			image_url, product_url, price, currency, rating, review_count, in_stock,
			availability, categories, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source, product_key) DO UPDATE SET
			external_id=excluded.external_id,
			title=excluded.title,
			description=excluded.description,
			image_url=excluded.image_url,
			product_url=excluded.product_url,
			price=excluded.price,
			currency=excluded.currency,
			rating=excluded.rating,
			review_count=excluded.review_count,
			in_stock=excluded.in_stock,
			availability=excluded.availability,
			categories=excluded.categories,
			tags=excluded.tags,
			updated_at=excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	now := s.timestamp()
	for _, p := range products {
		categoriesJSON, err := json.Marshal(nonNil(p.Categories))
		if err != nil {
			return fmt.Errorf("encoding categories: %w", err)
		}
		tagsJSON, err := json.Marshal(nonNil(p.Tags))
		if err != nil {
			return fmt.Errorf("encoding tags: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			s.id(), source, ProductKey(p), p.ExternalID, p.Title, p.Description,
			p.ImageURL, p.ProductURL, nullFloat(p.Price), p.Currency, nullFloat(p.Rating),
			nullInt(p.ReviewCount), nullBool(p.InStock), p.Availability,
			string(categoriesJSON), string(tagsJSON), now, now,
		)
		if err != nil {
			return fmt.Errorf("upserting product %s: %w", ProductKey(p), err)
		}
	}
	return tx.Commit()
}

const productColumns = `id, source, external_id, title, description, image_url, product_url,
	price, currency, rating, review_count, in_stock, availability, categories, tags,
	created_at, updated_at`

// FindProducts returns products matching filter, most recently updated
// first.
func (s *Store) FindProducts(ctx context.Context, filter ProductFilter, page Page) ([]types.ProductRecord, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}

	where, args := filter.where()
	q := `SELECT ` + productColumns + ` FROM products` + where +
		` ORDER BY updated_at DESC, id ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	out := []types.ProductRecord{}
	for rows.Next() {
		r, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountProducts returns the number of products matching filter.
func (s *Store) CountProducts(ctx context.Context, filter ProductFilter) (int, error) {
	where, args := filter.where()
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM products`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return n, nil
}

// GetProduct returns the product with the given row id.
func (s *Store) GetProduct(ctx context.Context, id string) (*types.ProductRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	r, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (f ProductFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, f.Source)
	}
	if f.Category != "" {
		// categories holds a JSON array of strings.
		conds = append(conds, "EXISTS (SELECT 1 FROM json_each(products.categories) WHERE lower(json_each.value) = lower(?))")
		args = append(args, f.Category)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(sc scanner) (types.ProductRecord, error) {
	var (
		r                                       types.ProductRecord
		externalID, description, imageURL       sql.NullString
		currency, availability, categories, tgs sql.NullString
		price, rating                           sql.NullFloat64
		reviewCount, inStock                    sql.NullInt64
		createdAt, updatedAt                    string
	)
	err := sc.Scan(&r.ID, &r.Source, &externalID, &r.Title, &description, &imageURL,
		&r.ProductURL, &price, &currency, &rating, &reviewCount, &inStock, &availability,
		&categories, &tgs, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, err
	}
	if err != nil {
		return r, fmt.Errorf("scanning product: %w", err)
	}

	r.ExternalID = externalID.String
	r.Description = description.String
	r.ImageURL = imageURL.String
	r.Currency = currency.String
	r.Availability = availability.String
	if price.Valid {
		r.Price = types.Float(price.Float64)
	}
	if rating.Valid {
		r.Rating = types.Float(rating.Float64)
	}
	if reviewCount.Valid {
		r.ReviewCount = types.Int(int(reviewCount.Int64))
	}
	if inStock.Valid {
		r.InStock = types.Bool(inStock.Int64 != 0)
	}
	r.Categories = decodeStrings(categories.String)
	r.Tags = decodeStrings(tgs.String)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return r, nil
}

func decodeStrings(v string) []string {
	out := []string{}
	if v == "" {
		return out
	}
	_ = json.Unmarshal([]byte(v), &out)
	return out
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullBool(v *bool) any {
	if v == nil {
		return nil
	}
	if *v {
		return 1
	}
	return 0
}
