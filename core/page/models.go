package page

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/blocktree"
)

// Kind
type Kind string

const (
	KindPage Kind = "page"
	KindBlog Kind = "blog"
)

var Kinds = []Kind{KindPage, KindBlog}

func (k Kind) Valid() bool { return k == KindPage || k == KindBlog }

// Actor is the authenticated user acting on documents.
type Actor struct {
	ID       string
	Username string
	Email    string
	IsAdmin  bool
}

// Document is a page or blog post built from a block tree.
type Document struct {
	ID          string           `json:"id"`
	Kind        Kind             `json:"kind"`
	Title       string           `json:"title"`
	Slug        string           `json:"slug"`
	Description string           `json:"description"`
	CoverImage  string           `json:"cover_image"`
	Tags        []string         `json:"tags"`
	OwnerID     string           `json:"owner_id"`
	OwnerEmail  string           `json:"-"`
	Blocks      blocktree.Blocks `json:"blocks"`
	Published   bool             `json:"published"`
	PublishedAt time.Time        `json:"published_at"` // UTC; zero when never published
	Version     int              `json:"version"`
	CreatedAt   time.Time        `json:"created_at"` // UTC
	UpdatedAt   time.Time        `json:"updated_at"` // UTC
}

// CanEdit reports whether a may change the document.
func (d Document) CanEdit(a Actor) bool {
	return a.IsAdmin || (a.ID != "" && a.ID == d.OwnerID)
}

// Revision is the snapshot of a document at one version.
type Revision struct {
	ID         string           `json:"id"`
	DocumentID string           `json:"document_id"`
	Version    int              `json:"version"`
	Title      string           `json:"title"`
	Blocks     blocktree.Blocks `json:"blocks"`
	AuthorID   string           `json:"author_id"`
	CreatedAt  time.Time        `json:"created_at"` // UTC
}

// NewDocument contains information needed to create a new Document.
type NewDocument struct {
	Kind        Kind             `json:"kind" validate:"required,dockind"`
	Title       string           `json:"title" validate:"required,max=255"`
	Slug        string           `json:"slug" validate:"omitempty,max=255,slug"`
	Description string           `json:"description"`
	CoverImage  string           `json:"cover_image" validate:"omitempty,url"`
	Tags        []string         `json:"tags" validate:"omitempty,max=16,dive,required,max=32"`
	Blocks      blocktree.Blocks `json:"blocks" validate:"blocktree"`
}

func (nd *NewDocument) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nd.Kind = Kind(core.CleanString(string(nd.Kind), true /* lower */))
	nd.Title = core.CleanString(nd.Title)
	nd.Slug = core.CleanString(nd.Slug, true /* lower */)
	if nd.Slug == "" {
		nd.Slug = core.Slugify(nd.Title)
	}
	nd.Description = core.CleanString(nd.Description)
	nd.CoverImage = core.CleanString(nd.CoverImage)
	nd.Tags = cleanTags(nd.Tags)
	if nd.Blocks == nil {
		nd.Blocks = blocktree.Blocks{}
	}

	if err := validate.Struct(nd); err != nil {
		return err
	}
	return svc.CheckSlugUniqueness(ctx, nd.Slug)
}

// UpdateDocument defines what information may be provided to modify an existing Document.
// Empty fields keep their current value; a nil Blocks keeps the current tree.
type UpdateDocument struct {
	Title       string           `json:"title" validate:"max=255"`
	Slug        string           `json:"slug" validate:"omitempty,max=255,slug"`
	Description *string          `json:"description"`
	CoverImage  *string          `json:"cover_image" validate:"omitempty"`
	Tags        []string         `json:"tags" validate:"omitempty,max=16,dive,required,max=32"`
	Blocks      blocktree.Blocks `json:"blocks" validate:"omitempty,blocktree"`
	Version     int              `json:"version"` // version being edited; 0 skips the conflict check
}

func (ud *UpdateDocument) Validate(ctx context.Context, orig Document, validate *validator.Validate, svc Service) error {
	if title := core.CleanString(ud.Title); title != "" {
		ud.Title = title
	} else {
		ud.Title = orig.Title
	}
	if slug := core.CleanString(ud.Slug, true /* lower */); slug != "" {
		ud.Slug = slug
	} else {
		ud.Slug = orig.Slug
	}
	if ud.Description != nil {
		desc := core.CleanString(*ud.Description)
		ud.Description = &desc
	}
	if ud.CoverImage != nil {
		img := core.CleanString(*ud.CoverImage)
		ud.CoverImage = &img
	}
	if ud.Tags != nil {
		ud.Tags = cleanTags(ud.Tags)
	}

	if err := validate.Struct(ud); err != nil {
		return err
	}
	if ud.CoverImage != nil && *ud.CoverImage != "" {
		if err := validate.Var(*ud.CoverImage, "url"); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "cover_image", Error: "must be a valid URL"})
		}
	}
	return svc.CheckSlugUniqueness(ctx, ud.Slug, orig)
}

// QueryFilter narrows Service.Query; every set field must match.
type QueryFilter struct {
	Search    string `query:"search"` // case-insensitive match on title, slug or description
	Kind      Kind   `query:"kind"`
	Published *bool  `query:"published"`
	Tag       string `query:"tag"`
	OwnerID   string `query:"-"`
}

func (f *QueryFilter) Clean() {
	f.Search = core.CleanString(f.Search)
	f.Kind = Kind(core.CleanString(string(f.Kind), true /* lower */))
	f.Tag = core.CleanString(f.Tag, true /* lower */)
}

// GetFilter selects one document by ID or by Slug.
type GetFilter struct {
	ID            string
	Slug          string
	PublishedOnly bool
}

// OrderingFields lists the fields documents can be ordered by.
var OrderingFields = []string{"title", "slug", "kind", "created_at", "updated_at", "published_at"}

func cleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.Join(strings.Fields(strings.ToLower(t)), " ")
		if t != "" && !seen[t] {
			seen[t] = true
			cleaned = append(cleaned, t)
		}
	}
	return cleaned
}
