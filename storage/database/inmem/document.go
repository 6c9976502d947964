package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/page"
)

type documentRepository struct {
	db *documentTable
	rv *revisionTable
}

var _ page.DocumentRepository = (*documentRepository)(nil) // interface compliance check

func NewDocumentRepository(db *DB) page.DocumentRepository {
	return &documentRepository{db: db.document, rv: db.revision}
}

// copyDoc detaches a stored document from the caller.
func copyDoc(doc page.Document) page.Document {
	doc.Blocks = doc.Blocks.Clone()
	doc.Tags = append([]string{}, doc.Tags...)
	return doc
}

func (repo *documentRepository) CheckSlugUniqueness(_ context.Context, slug string, excludedIDs []string, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	for _, doc := range repo.db.table {
		if doc.Slug == slug && !excluded[doc.ID] {
			return page.ErrSlugExists
		}
	}
	return nil
}

func (repo *documentRepository) CreateDocument(_ context.Context, doc page.Document, _ ...core.DBExecutor) (page.Document, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, d := range repo.db.table {
		if d.Slug == doc.Slug {
			return page.Document{}, page.ErrSlugExists
		}
	}
	doc.ID = uuid.New().String()
	stored := copyDoc(doc)
	repo.db.table[doc.ID] = &stored
	return copyDoc(doc), nil
}

func (repo *documentRepository) QueryDocuments(
	_ context.Context,
	filter *page.QueryFilter,
	ordering []core.DBOrdering,
	_ ...core.DBExecutor,
) ([]page.Document, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	docs := make([]page.Document, 0, len(repo.db.table))
	for _, doc := range repo.db.table {
		if matches(*doc, filter) {
			docs = append(docs, copyDoc(*doc))
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		for _, ord := range ordering {
			c := compare(docs[i], docs[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func matches(doc page.Document, filter *page.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.OwnerID != "" && doc.OwnerID != filter.OwnerID {
		return false
	}
	if filter.Kind != "" && doc.Kind != filter.Kind {
		return false
	}
	if filter.Published != nil && doc.Published != *filter.Published {
		return false
	}
	if filter.Tag != "" {
		var found bool
		for _, t := range doc.Tags {
			if t == filter.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Search != "" {
		kw := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(doc.Title), kw) ||
			strings.Contains(strings.ToLower(doc.Slug), kw) ||
			strings.Contains(strings.ToLower(doc.Description), kw)) {
			return false
		}
	}
	return true
}

func compare(a, b page.Document, field string) int {
	switch field {
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "slug":
		return strings.Compare(a.Slug, b.Slug)
	case "kind":
		return strings.Compare(string(a.Kind), string(b.Kind))
	case "created_at":
		return compareTime(a.CreatedAt, b.CreatedAt)
	case "updated_at":
		return compareTime(a.UpdatedAt, b.UpdatedAt)
	case "published_at":
		return compareTime(a.PublishedAt, b.PublishedAt)
	}
	return 0
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func (repo *documentRepository) GetDocument(_ context.Context, filter page.GetFilter, _ ...core.DBExecutor) (page.Document, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if doc, ok := repo.db.table[filter.ID]; ok && (doc.Published || !filter.PublishedOnly) {
			return copyDoc(*doc), nil
		}
		return page.Document{}, page.ErrNotFound
	}
	if filter.Slug != "" {
		for _, doc := range repo.db.table {
			if doc.Slug == filter.Slug && (doc.Published || !filter.PublishedOnly) {
				return copyDoc(*doc), nil
			}
		}
	}
	return page.Document{}, page.ErrNotFound
}

func (repo *documentRepository) UpdateDocument(_ context.Context, doc page.Document, _ ...core.DBExecutor) (page.Document, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[doc.ID]; !ok {
		return page.Document{}, page.ErrNotFound
	}
	for _, d := range repo.db.table {
		if d.Slug == doc.Slug && d.ID != doc.ID {
			return page.Document{}, page.ErrSlugExists
		}
	}
	stored := copyDoc(doc)
	repo.db.table[doc.ID] = &stored
	return copyDoc(doc), nil
}

// DeleteDocumentsByID also drops the revisions of the deleted documents, like the SQL cascade.
func (repo *documentRepository) DeleteDocumentsByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.rv.Lock()
	defer repo.rv.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			delete(repo.rv.table, id)
			cnt++
		}
	}
	return cnt, nil
}
