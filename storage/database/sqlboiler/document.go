package boiledrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/blocktree"
	"github.com/trezcool/masomo/core/page"
	"github.com/trezcool/masomo/storage/database/sqlboiler/models"
)

const uniqueViolation = "23505"

type documentRepository struct {
	exec core.DBExecutor
}

var _ page.DocumentRepository = (*documentRepository)(nil) // interface compliance check

func NewDocumentRepository(exec core.DBExecutor) *documentRepository {
	return &documentRepository{exec: exec}
}

func (repo documentRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo documentRepository) boil(doc page.Document) (*models.Document, error) {
	blocks := doc.Blocks
	if blocks == nil {
		blocks = blocktree.Blocks{}
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return nil, errors.Wrap(err, "encoding blocks")
	}
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	return &models.Document{
		ID:          doc.ID,
		Kind:        string(doc.Kind),
		Title:       doc.Title,
		Slug:        doc.Slug,
		Description: doc.Description,
		CoverImage:  doc.CoverImage,
		Tags:        types.StringArray(tags),
		OwnerID:     doc.OwnerID,
		OwnerEmail:  doc.OwnerEmail,
		Blocks:      types.JSON(data),
		Published:   doc.Published,
		PublishedAt: null.NewTime(doc.PublishedAt.UTC(), !doc.PublishedAt.IsZero()),
		Version:     doc.Version,
		CreatedAt:   doc.CreatedAt.UTC(),
		UpdatedAt:   doc.UpdatedAt.UTC(),
	}, nil
}

func (repo documentRepository) unboil(d *models.Document) (page.Document, error) {
	if d == nil {
		return page.Document{}, nil
	}
	blocks := blocktree.Blocks{}
	if len(d.Blocks) > 0 {
		if err := d.Blocks.Unmarshal(&blocks); err != nil {
			return page.Document{}, errors.Wrapf(err, "decoding blocks of document %s", d.ID)
		}
	}
	tags := []string(d.Tags)
	if tags == nil {
		tags = []string{}
	}
	return page.Document{
		ID:          d.ID,
		Kind:        page.Kind(d.Kind),
		Title:       d.Title,
		Slug:        d.Slug,
		Description: d.Description,
		CoverImage:  d.CoverImage,
		Tags:        tags,
		OwnerID:     d.OwnerID,
		OwnerEmail:  d.OwnerEmail,
		Blocks:      blocks,
		Published:   d.Published,
		PublishedAt: d.PublishedAt.Time,
		Version:     d.Version,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func (repo documentRepository) unboilSlice(slice models.DocumentSlice) ([]page.Document, error) {
	docs := make([]page.Document, 0, len(slice))
	for _, d := range slice {
		doc, err := repo.unboil(d)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// trapErr maps psql "no rows" to page.ErrNotFound and slug unique violations to page.ErrSlugExists.
func (repo documentRepository) trapErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return page.ErrNotFound
	}
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return page.ErrSlugExists
	}
	return errors.Wrap(err, msg)
}

func (repo documentRepository) CheckSlugUniqueness(ctx context.Context, slug string, excludedIDs []string, exec ...core.DBExecutor) error {
	mods := []qm.QueryMod{
		qm.Where(fmt.Sprintf("%s = ?", models.DocumentColumns.Slug), slug),
	}
	if len(excludedIDs) > 0 {
		mods = append(mods, qm.WhereNotIn(fmt.Sprintf("%s not in ?", models.DocumentColumns.ID), stringArgs(excludedIDs)...))
	}

	exists, err := models.Documents(mods...).Exists(ctx, repo.getExec(exec))
	if err != nil {
		return errors.Wrap(err, "checking slug uniqueness")
	}
	if exists {
		return page.ErrSlugExists
	}
	return nil
}

func (repo documentRepository) CreateDocument(ctx context.Context, doc page.Document, exec ...core.DBExecutor) (page.Document, error) {
	doc.ID = uuid.New().String()
	d, err := repo.boil(doc)
	if err != nil {
		return page.Document{}, err
	}
	if err = d.Insert(ctx, repo.getExec(exec)); err != nil {
		return page.Document{}, repo.trapErr(err, "inserting document")
	}
	return repo.unboil(d)
}

func (repo documentRepository) QueryDocuments(
	ctx context.Context,
	filter *page.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]page.Document, error) {
	var mods []qm.QueryMod

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			mods = append(mods, qm.Expr(qm.Where(
				fmt.Sprintf(
					"%s ILIKE ? OR %s ILIKE ? OR %s ILIKE ?",
					models.DocumentColumns.Title, models.DocumentColumns.Slug, models.DocumentColumns.Description),
				val, val, val)))
		}
		if filter.Kind != "" {
			mods = append(mods, qm.Where(fmt.Sprintf("%s = ?", models.DocumentColumns.Kind), string(filter.Kind)))
		}
		if filter.Published != nil {
			mods = append(mods, qm.Where(fmt.Sprintf("%s = ?", models.DocumentColumns.Published), *filter.Published))
		}
		if filter.Tag != "" {
			mods = append(mods, qm.Where(fmt.Sprintf("? = ANY(%s)", models.DocumentColumns.Tags), filter.Tag))
		}
		if filter.OwnerID != "" {
			mods = append(mods, qm.Where(fmt.Sprintf("%s = ?", models.DocumentColumns.OwnerID), filter.OwnerID))
		}
	}

	if ordering != nil {
		orderList := make([]string, 0, len(ordering)+1)
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		orderList = append(orderList, models.DocumentColumns.ID)
		mods = append(mods, qm.OrderBy(strings.Join(orderList, ", ")))
	}

	slice, err := models.Documents(mods...).All(ctx, repo.getExec(exec))
	if err != nil {
		return nil, errors.Wrap(err, "querying documents")
	}
	return repo.unboilSlice(slice)
}

func (repo documentRepository) GetDocument(ctx context.Context, filter page.GetFilter, exec ...core.DBExecutor) (page.Document, error) {
	var d *models.Document
	var err error
	exe := repo.getExec(exec)

	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return page.Document{}, page.ErrNotFound
		}
		d, err = models.FindDocument(ctx, exe, filter.ID)
	case filter.Slug != "":
		mods := []qm.QueryMod{qm.Where(fmt.Sprintf("%s = ?", models.DocumentColumns.Slug), filter.Slug)}
		if filter.PublishedOnly {
			mods = append(mods, qm.Where(fmt.Sprintf("%s = ?", models.DocumentColumns.Published), true))
		}
		d, err = models.Documents(mods...).One(ctx, exe)
	default:
		return page.Document{}, page.ErrNotFound
	}
	if err != nil {
		return page.Document{}, repo.trapErr(err, "finding document")
	}
	if filter.PublishedOnly && !d.Published {
		return page.Document{}, page.ErrNotFound
	}
	return repo.unboil(d)
}

func (repo documentRepository) UpdateDocument(ctx context.Context, doc page.Document, exec ...core.DBExecutor) (page.Document, error) {
	d, err := repo.boil(doc)
	if err != nil {
		return page.Document{}, err
	}
	n, err := d.Update(ctx, repo.getExec(exec))
	if err != nil {
		return page.Document{}, repo.trapErr(err, "updating document")
	}
	if n == 0 {
		return page.Document{}, page.ErrNotFound
	}
	return repo.unboil(d)
}

func (repo documentRepository) DeleteDocumentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	cnt, err := models.Documents(qm.WhereIn(fmt.Sprintf("%s in ?", models.DocumentColumns.ID), stringArgs(valid)...)).DeleteAll(ctx, repo.getExec(exec))
	if err != nil {
		return 0, errors.Wrap(err, "deleting documents")
	}
	return int(cnt), nil
}

func stringArgs(ss []string) []interface{} {
	args := make([]interface{}, 0, len(ss))
	for _, s := range ss {
		args = append(args, s)
	}
	return args
}
