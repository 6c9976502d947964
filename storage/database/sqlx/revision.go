package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/blocktree"
	"github.com/trezcool/masomo/core/page"
)

const (
	insertRevisionSQL = `INSERT INTO "revision" (id, document_id, version, title, blocks, author_id, created_at)
		VALUES (:id, :document_id, :version, :title, :blocks, :author_id, :created_at)`
	selectRevisionsSQL = `SELECT id, document_id, version, title, blocks, author_id, created_at
		FROM "revision" WHERE document_id = ? ORDER BY version DESC`
	selectRevisionSQL = `SELECT id, document_id, version, title, blocks, author_id, created_at
		FROM "revision" WHERE document_id = ? AND version = ?`
)

type revisionRow struct {
	ID         string         `db:"id"`
	DocumentID string         `db:"document_id"`
	Version    int            `db:"version"`
	Title      string         `db:"title"`
	Blocks     types.JSONText `db:"blocks"`
	AuthorID   string         `db:"author_id"`
	CreatedAt  time.Time      `db:"created_at"`
}

type revisionRepository struct {
	exec core.DBExecutor
}

var _ page.RevisionRepository = (*revisionRepository)(nil) // interface compliance check

func NewRevisionRepository(exec core.DBExecutor) *revisionRepository {
	return &revisionRepository{exec: exec}
}

func (repo revisionRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func toRow(rev page.Revision) (revisionRow, error) {
	blocks := rev.Blocks
	if blocks == nil {
		blocks = blocktree.Blocks{}
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return revisionRow{}, errors.Wrap(err, "encoding blocks")
	}
	return revisionRow{
		ID:         rev.ID,
		DocumentID: rev.DocumentID,
		Version:    rev.Version,
		Title:      rev.Title,
		Blocks:     types.JSONText(data),
		AuthorID:   rev.AuthorID,
		CreatedAt:  rev.CreatedAt.UTC(),
	}, nil
}

func (row revisionRow) revision() (page.Revision, error) {
	blocks := blocktree.Blocks{}
	if err := row.Blocks.Unmarshal(&blocks); err != nil {
		return page.Revision{}, errors.Wrapf(err, "decoding blocks of revision %d", row.Version)
	}
	return page.Revision{
		ID:         row.ID,
		DocumentID: row.DocumentID,
		Version:    row.Version,
		Title:      row.Title,
		Blocks:     blocks,
		AuthorID:   row.AuthorID,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func (repo revisionRepository) CreateRevision(ctx context.Context, rev page.Revision, exec ...core.DBExecutor) (page.Revision, error) {
	row, err := toRow(rev)
	if err != nil {
		return page.Revision{}, err
	}
	q, args, err := sqlx.Named(insertRevisionSQL, row)
	if err != nil {
		return page.Revision{}, errors.Wrap(err, "binding revision")
	}
	if _, err = repo.getExec(exec).ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, q), args...); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "23505" {
			return page.Revision{}, errors.Errorf("revision %d of document %s already exists", rev.Version, rev.DocumentID)
		}
		return page.Revision{}, errors.Wrap(err, "inserting revision")
	}
	return rev, nil
}

func (repo revisionRepository) query(ctx context.Context, exec core.DBExecutor, q string, args ...interface{}) ([]page.Revision, error) {
	rows, err := exec.QueryContext(ctx, sqlx.Rebind(sqlx.DOLLAR, q), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var scanned []revisionRow
	if err = sqlx.StructScan(rows, &scanned); err != nil {
		return nil, err
	}
	revs := make([]page.Revision, 0, len(scanned))
	for _, row := range scanned {
		rev, err := row.revision()
		if err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	return revs, nil
}

func (repo revisionRepository) QueryRevisions(ctx context.Context, documentID string, exec ...core.DBExecutor) ([]page.Revision, error) {
	if _, err := uuid.Parse(documentID); err != nil {
		return []page.Revision{}, nil
	}
	revs, err := repo.query(ctx, repo.getExec(exec), selectRevisionsSQL, documentID)
	return revs, errors.Wrap(err, "querying revisions")
}

func (repo revisionRepository) GetRevision(ctx context.Context, documentID string, version int, exec ...core.DBExecutor) (page.Revision, error) {
	if _, err := uuid.Parse(documentID); err != nil {
		return page.Revision{}, page.ErrRevisionNotFound
	}
	revs, err := repo.query(ctx, repo.getExec(exec), selectRevisionSQL, documentID, version)
	if err != nil {
		return page.Revision{}, errors.Wrap(err, "finding revision")
	}
	if len(revs) == 0 {
		return page.Revision{}, page.ErrRevisionNotFound
	}
	return revs[0], nil
}
