package inmemdb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/page"
)

type revisionRepository struct {
	db *revisionTable
}

var _ page.RevisionRepository = (*revisionRepository)(nil) // interface compliance check

func NewRevisionRepository(db *DB) page.RevisionRepository {
	return &revisionRepository{db: db.revision}
}

func copyRev(rev page.Revision) page.Revision {
	rev.Blocks = rev.Blocks.Clone()
	return rev
}

func (repo *revisionRepository) CreateRevision(_ context.Context, rev page.Revision, _ ...core.DBExecutor) (page.Revision, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, r := range repo.db.table[rev.DocumentID] {
		if r.Version == rev.Version {
			return page.Revision{}, errors.Errorf("revision %d of document %s already exists", rev.Version, rev.DocumentID)
		}
	}
	repo.db.table[rev.DocumentID] = append(repo.db.table[rev.DocumentID], copyRev(rev))
	return copyRev(rev), nil
}

func (repo *revisionRepository) QueryRevisions(_ context.Context, documentID string, _ ...core.DBExecutor) ([]page.Revision, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	stored := repo.db.table[documentID]
	revs := make([]page.Revision, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		revs = append(revs, copyRev(stored[i]))
	}
	return revs, nil
}

func (repo *revisionRepository) GetRevision(_ context.Context, documentID string, version int, _ ...core.DBExecutor) (page.Revision, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, r := range repo.db.table[documentID] {
		if r.Version == version {
			return copyRev(r), nil
		}
	}
	return page.Revision{}, page.ErrRevisionNotFound
}
