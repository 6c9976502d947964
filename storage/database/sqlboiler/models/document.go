package models

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/sqlboiler/v4/types"
)

// Document is an object representing the database table.
type Document struct {
	ID          string            `boil:"id" json:"id" toml:"id" yaml:"id"`
	Kind        string            `boil:"kind" json:"kind" toml:"kind" yaml:"kind"`
	Title       string            `boil:"title" json:"title" toml:"title" yaml:"title"`
	Slug        string            `boil:"slug" json:"slug" toml:"slug" yaml:"slug"`
	Description string            `boil:"description" json:"description" toml:"description" yaml:"description"`
	CoverImage  string            `boil:"cover_image" json:"cover_image" toml:"cover_image" yaml:"cover_image"`
	Tags        types.StringArray `boil:"tags" json:"tags" toml:"tags" yaml:"tags"`
	OwnerID     string            `boil:"owner_id" json:"owner_id" toml:"owner_id" yaml:"owner_id"`
	OwnerEmail  string            `boil:"owner_email" json:"owner_email" toml:"owner_email" yaml:"owner_email"`
	Blocks      types.JSON        `boil:"blocks" json:"blocks" toml:"blocks" yaml:"blocks"`
	Published   bool              `boil:"published" json:"published" toml:"published" yaml:"published"`
	PublishedAt null.Time         `boil:"published_at" json:"published_at,omitempty" toml:"published_at" yaml:"published_at,omitempty"`
	Version     int               `boil:"version" json:"version" toml:"version" yaml:"version"`
	CreatedAt   time.Time         `boil:"created_at" json:"created_at" toml:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time         `boil:"updated_at" json:"updated_at" toml:"updated_at" yaml:"updated_at"`
}

var DocumentColumns = struct {
	ID          string
	Kind        string
	Title       string
	Slug        string
	Description string
	CoverImage  string
	Tags        string
	OwnerID     string
	OwnerEmail  string
	Blocks      string
	Published   string
	PublishedAt string
	Version     string
	CreatedAt   string
	UpdatedAt   string
}{
	ID:          "id",
	Kind:        "kind",
	Title:       "title",
	Slug:        "slug",
	Description: "description",
	CoverImage:  "cover_image",
	Tags:        "tags",
	OwnerID:     "owner_id",
	OwnerEmail:  "owner_email",
	Blocks:      "blocks",
	Published:   "published",
	PublishedAt: "published_at",
	Version:     "version",
	CreatedAt:   "created_at",
	UpdatedAt:   "updated_at",
}

const (
	documentInsertSQL = `INSERT INTO "document" ("id","kind","title","slug","description","cover_image","tags","owner_id","owner_email","blocks","published","published_at","version","created_at","updated_at") VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	documentUpdateSQL = `UPDATE "document" SET "kind"=$2,"title"=$3,"slug"=$4,"description"=$5,"cover_image"=$6,"tags"=$7,"owner_id"=$8,"owner_email"=$9,"blocks"=$10,"published"=$11,"published_at"=$12,"version"=$13,"created_at"=$14,"updated_at"=$15 WHERE "id"=$1`
)

type (
	// DocumentSlice is an alias for a slice of pointers to Document.
	DocumentSlice []*Document

	documentQuery struct {
		*queries.Query
	}
)

func (o *Document) values() []interface{} {
	return []interface{}{
		o.ID, o.Kind, o.Title, o.Slug, o.Description, o.CoverImage, o.Tags, o.OwnerID, o.OwnerEmail,
		o.Blocks, o.Published, o.PublishedAt, o.Version, o.CreatedAt, o.UpdatedAt,
	}
}

// Insert a single record using an executor.
func (o *Document) Insert(ctx context.Context, exec boil.ContextExecutor) error {
	if o == nil {
		return errors.New("models: no document provided for insertion")
	}
	if _, err := exec.ExecContext(ctx, documentInsertSQL, o.values()...); err != nil {
		return errors.Wrap(err, "models: unable to insert into document")
	}
	return nil
}

// Update uses an executor to update the Document. Every column is written.
func (o *Document) Update(ctx context.Context, exec boil.ContextExecutor) (int64, error) {
	result, err := exec.ExecContext(ctx, documentUpdateSQL, o.values()...)
	if err != nil {
		return 0, errors.Wrap(err, "models: unable to update document row")
	}
	rowsAff, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "models: failed to get rows affected by update for document")
	}
	return rowsAff, nil
}

// One returns a single document record from the query.
func (q documentQuery) One(ctx context.Context, exec boil.ContextExecutor) (*Document, error) {
	o := &Document{}

	queries.SetLimit(q.Query, 1)

	err := q.Bind(ctx, exec, o)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, errors.Wrap(err, "models: failed to execute a one query for document")
	}
	return o, nil
}

// All returns all Document records from the query.
func (q documentQuery) All(ctx context.Context, exec boil.ContextExecutor) (DocumentSlice, error) {
	var o []*Document

	err := q.Bind(ctx, exec, &o)
	if err != nil {
		return nil, errors.Wrap(err, "models: failed to assign all query results to Document slice")
	}
	return o, nil
}

// Exists checks if the row exists in the table.
func (q documentQuery) Exists(ctx context.Context, exec boil.ContextExecutor) (bool, error) {
	var count int64

	queries.SetSelect(q.Query, nil)
	queries.SetCount(q.Query)
	queries.SetLimit(q.Query, 1)

	err := q.Query.QueryRowContext(ctx, exec).Scan(&count)
	if err != nil {
		return false, errors.Wrap(err, "models: failed to check if document exists")
	}
	return count > 0, nil
}

// DeleteAll deletes all matching rows.
func (q documentQuery) DeleteAll(ctx context.Context, exec boil.ContextExecutor) (int64, error) {
	if q.Query == nil {
		return 0, errors.New("models: no documentQuery provided for delete all")
	}

	queries.SetDelete(q.Query)

	result, err := q.Query.ExecContext(ctx, exec)
	if err != nil {
		return 0, errors.Wrap(err, "models: unable to delete all from document")
	}
	rowsAff, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "models: failed to get rows affected by deleteall for document")
	}
	return rowsAff, nil
}

// Documents retrieves all the records using an executor.
func Documents(mods ...qm.QueryMod) documentQuery {
	mods = append(mods, qm.From("\"document\""))
	return documentQuery{NewQuery(mods...)}
}

// FindDocument retrieves a single record by ID with an executor.
func FindDocument(ctx context.Context, exec boil.ContextExecutor, id string) (*Document, error) {
	o := &Document{}

	q := queries.Raw(`select * from "document" where "id"=$1`, id)

	err := q.Bind(ctx, exec, o)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, errors.Wrap(err, "models: unable to select from document")
	}
	return o, nil
}
