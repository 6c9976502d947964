package page

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/blocktree"
)

var (
	// errors
	ErrNotFound         = errors.New("document not found")
	ErrRevisionNotFound = errors.New("revision not found")
	ErrSlugExists       = errors.New("a document with this slug already exists")
	ErrVersionConflict  = errors.New("the document was changed by someone else")
	ErrAlreadyPublished = errors.New("document is already published")
	ErrNotPublished     = errors.New("document is not published")
)

type (
	DocumentRepository interface {
		CheckSlugUniqueness(ctx context.Context, slug string, excludedIDs []string, exec ...core.DBExecutor) error
		CreateDocument(ctx context.Context, doc Document, exec ...core.DBExecutor) (Document, error)
		// QueryDocuments applies AND operation on available QueryFilter fields.
		QueryDocuments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Document, error)
		GetDocument(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Document, error)
		UpdateDocument(ctx context.Context, doc Document, exec ...core.DBExecutor) (Document, error)
		DeleteDocumentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	RevisionRepository interface {
		CreateRevision(ctx context.Context, rev Revision, exec ...core.DBExecutor) (Revision, error)
		// QueryRevisions lists a document's revisions, newest first.
		QueryRevisions(ctx context.Context, documentID string, exec ...core.DBExecutor) ([]Revision, error)
		GetRevision(ctx context.Context, documentID string, version int, exec ...core.DBExecutor) (Revision, error)
	}

	Service interface {
		CheckSlugUniqueness(ctx context.Context, slug string, excludedDocs ...Document) error
		Create(ctx context.Context, nd NewDocument, owner Actor) (Document, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Document, error)
		GetByID(ctx context.Context, id string) (Document, error)
		GetPublishedBySlug(ctx context.Context, slug string) (Document, error)
		Update(ctx context.Context, id string, ud UpdateDocument, author Actor) (Document, error)
		SaveTree(ctx context.Context, id string, blocks blocktree.Blocks, baseVersion int, author Actor) (Document, error)
		Publish(ctx context.Context, id string) (Document, error)
		Unpublish(ctx context.Context, id string) (Document, error)
		Delete(ctx context.Context, ids ...string) error
		Revisions(ctx context.Context, id string) ([]Revision, error)
		GetRevision(ctx context.Context, id string, version int) (Revision, error)
		RestoreRevision(ctx context.Context, id string, version int, author Actor) (Document, error)
		DiffRevisions(ctx context.Context, id string, from, to int) (string, error)
	}

	service struct {
		db      core.DB
		docRepo DocumentRepository
		revRepo RevisionRepository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ Service = (*service)(nil) // interface compliance check

// NewService returns the document service. db may be nil when the repositories are not SQL backed.
func NewService(
	db core.DB,
	docRepo DocumentRepository,
	revRepo RevisionRepository,
	mailSvc core.EmailService,
	logger core.Logger,
) Service {
	return &service{
		db:      db,
		docRepo: docRepo,
		revRepo: revRepo,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

func (svc *service) CheckSlugUniqueness(ctx context.Context, slug string, excludedDocs ...Document) error {
	ids := make([]string, 0, len(excludedDocs))
	for _, d := range excludedDocs {
		ids = append(ids, d.ID)
	}
	if err := svc.docRepo.CheckSlugUniqueness(ctx, slug, ids); err != nil {
		if errors.Cause(err) == ErrSlugExists {
			return core.NewValidationError(err, core.FieldError{Field: "slug", Error: ErrSlugExists.Error()})
		}
		return errors.Wrap(err, "checking slug uniqueness")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nd NewDocument, owner Actor) (Document, error) {
	now := time.Now().UTC()
	blocks := nd.Blocks.Clone()
	if blocks == nil {
		blocks = blocktree.Blocks{}
	}
	blocktree.Relevel(blocks)

	doc := Document{
		Kind:        nd.Kind,
		Title:       nd.Title,
		Slug:        nd.Slug,
		Description: nd.Description,
		CoverImage:  nd.CoverImage,
		Tags:        nd.Tags,
		OwnerID:     owner.ID,
		OwnerEmail:  owner.Email,
		Blocks:      blocks,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}

	err := core.WithTx(ctx, svc.db, func(exec ...core.DBExecutor) error {
		var err error
		if doc, err = svc.docRepo.CreateDocument(ctx, doc, exec...); err != nil {
			return errors.Wrap(err, "creating document")
		}
		return svc.snapshot(ctx, doc, owner, exec...)
	})
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// snapshot stores the revision of doc at its current version.
func (svc *service) snapshot(ctx context.Context, doc Document, author Actor, exec ...core.DBExecutor) error {
	_, err := svc.revRepo.CreateRevision(ctx, Revision{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		Version:    doc.Version,
		Title:      doc.Title,
		Blocks:     doc.Blocks.Clone(),
		AuthorID:   author.ID,
		CreatedAt:  doc.UpdatedAt,
	}, exec...)
	return errors.Wrap(err, "creating revision")
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Document, error) {
	ordering = core.CleanOrderings(ordering, OrderingFields...)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "updated_at"}}
	}
	docs, err := svc.docRepo.QueryDocuments(ctx, filter, ordering)
	return docs, errors.Wrap(err, "querying documents")
}

func (svc *service) GetByID(ctx context.Context, id string) (Document, error) {
	return svc.docRepo.GetDocument(ctx, GetFilter{ID: id})
}

func (svc *service) GetPublishedBySlug(ctx context.Context, slug string) (Document, error) {
	return svc.docRepo.GetDocument(ctx, GetFilter{Slug: core.CleanString(slug, true /* lower */), PublishedOnly: true})
}

func (svc *service) Update(ctx context.Context, id string, ud UpdateDocument, author Actor) (Document, error) {
	return svc.change(ctx, id, ud.Version, author, func(doc *Document) {
		doc.Title = ud.Title
		doc.Slug = ud.Slug
		if ud.Description != nil {
			doc.Description = *ud.Description
		}
		if ud.CoverImage != nil {
			doc.CoverImage = *ud.CoverImage
		}
		if ud.Tags != nil {
			doc.Tags = ud.Tags
		}
		if ud.Blocks != nil {
			doc.Blocks = ud.Blocks.Clone()
		}
	})
}

func (svc *service) SaveTree(ctx context.Context, id string, blocks blocktree.Blocks, baseVersion int, author Actor) (Document, error) {
	if err := blocktree.Validate(blocks); err != nil {
		return Document{}, core.NewValidationError(err, core.FieldError{Field: "blocks", Error: err.Error()})
	}
	return svc.change(ctx, id, baseVersion, author, func(doc *Document) {
		doc.Blocks = blocks.Clone()
	})
}

// change loads the document, applies fn, bumps the version and stores a revision, in one transaction.
func (svc *service) change(ctx context.Context, id string, baseVersion int, author Actor, fn func(*Document)) (Document, error) {
	var doc Document
	err := core.WithTx(ctx, svc.db, func(exec ...core.DBExecutor) error {
		var err error
		if doc, err = svc.docRepo.GetDocument(ctx, GetFilter{ID: id}, exec...); err != nil {
			return err
		}
		if baseVersion != 0 && baseVersion != doc.Version {
			return ErrVersionConflict
		}

		fn(&doc)
		if doc.Blocks == nil {
			doc.Blocks = blocktree.Blocks{}
		}
		blocktree.Relevel(doc.Blocks)
		doc.Version++
		doc.UpdatedAt = time.Now().UTC()

		if doc, err = svc.docRepo.UpdateDocument(ctx, doc, exec...); err != nil {
			return errors.Wrap(err, "updating document")
		}
		return svc.snapshot(ctx, doc, author, exec...)
	})
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (svc *service) Publish(ctx context.Context, id string) (Document, error) {
	doc, err := svc.docRepo.GetDocument(ctx, GetFilter{ID: id})
	if err != nil {
		return Document{}, err
	}
	if doc.Published {
		return Document{}, core.NewValidationError(ErrAlreadyPublished)
	}
	if _, err = blocktree.RenderHTML(doc.Blocks, blocktree.Desktop); err != nil {
		return Document{}, core.NewValidationError(err, core.FieldError{Field: "blocks", Error: err.Error()})
	}

	doc.Published = true
	doc.PublishedAt = time.Now().UTC()
	if doc, err = svc.docRepo.UpdateDocument(ctx, doc); err != nil {
		return Document{}, errors.Wrap(err, "publishing document")
	}
	svc.sendPublishedMail(doc)
	return doc, nil
}

func (svc *service) Unpublish(ctx context.Context, id string) (Document, error) {
	doc, err := svc.docRepo.GetDocument(ctx, GetFilter{ID: id})
	if err != nil {
		return Document{}, err
	}
	if !doc.Published {
		return Document{}, core.NewValidationError(ErrNotPublished)
	}

	doc.Published = false
	doc, err = svc.docRepo.UpdateDocument(ctx, doc)
	return doc, errors.Wrap(err, "unpublishing document")
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := svc.docRepo.DeleteDocumentsByID(ctx, ids)
	return errors.Wrap(err, "deleting documents")
}

func (svc *service) Revisions(ctx context.Context, id string) ([]Revision, error) {
	if _, err := svc.GetByID(ctx, id); err != nil {
		return nil, err
	}
	revs, err := svc.revRepo.QueryRevisions(ctx, id)
	return revs, errors.Wrap(err, "querying revisions")
}

func (svc *service) GetRevision(ctx context.Context, id string, version int) (Revision, error) {
	return svc.revRepo.GetRevision(ctx, id, version)
}

func (svc *service) RestoreRevision(ctx context.Context, id string, version int, author Actor) (Document, error) {
	rev, err := svc.revRepo.GetRevision(ctx, id, version)
	if err != nil {
		return Document{}, err
	}
	return svc.change(ctx, id, 0, author, func(doc *Document) {
		doc.Title = rev.Title
		doc.Blocks = rev.Blocks.Clone()
	})
}

func (svc *service) DiffRevisions(ctx context.Context, id string, from, to int) (string, error) {
	a, err := svc.revRepo.GetRevision(ctx, id, from)
	if err != nil {
		return "", err
	}
	b, err := svc.revRepo.GetRevision(ctx, id, to)
	if err != nil {
		return "", err
	}
	return diffRevisions(a, b)
}

func (svc *service) sendPublishedMail(doc Document) {
	if doc.OwnerEmail == "" {
		return
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Address: doc.OwnerEmail}},
		Subject:      fmt.Sprintf("%q is live", doc.Title),
		TemplateName: "document_published",
		TemplateData: map[string]interface{}{
			"Name":    "",
			"Kind":    doc.Kind,
			"Title":   doc.Title,
			"Slug":    doc.Slug,
			"Version": doc.Version,
		},
	}

	// the owner keeps a snapshot of the published page
	if html, err := blocktree.RenderHTML(doc.Blocks, blocktree.Desktop); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering snapshot of %s: %v", doc.ID, err), err)
	} else if err = msg.Attach(strings.NewReader(string(html)), doc.Slug+".html", "text/html; charset=utf-8"); err != nil {
		svc.logger.Error(fmt.Sprintf("attaching snapshot of %s: %v", doc.ID, err), err)
	}

	svc.mailSvc.SendMessages(msg)
	svc.logger.Info(fmt.Sprintf("document %s published (version %d)", doc.ID, doc.Version))
}
