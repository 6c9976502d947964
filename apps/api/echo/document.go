package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/blocktree"
	"github.com/trezcool/masomo/core/page"
)

type documentApi struct {
	svc      page.Service
	validate *validator.Validate
}

// treeRequest replaces the whole block tree of a document. Version is the version the tree was edited from.
type treeRequest struct {
	Blocks  blocktree.Blocks `json:"blocks"`
	Version int              `json:"version"`
}

type diffResponse struct {
	From int    `json:"from"`
	To   int    `json:"to"`
	Diff string `json:"diff"`
}

func registerDocumentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc page.Service, validate *validator.Validate) {
	api := documentApi{
		svc:      svc,
		validate: validate,
	}

	dg := g.Group("/documents", jwt, authorsMiddleware())
	dg.GET("", api.query)
	dg.POST("", api.create)

	// detail endpoints
	dg.GET("/:id", api.retrieve)
	dg.PUT("/:id", api.update)
	dg.DELETE("/:id", api.destroy)
	dg.PUT("/:id/blocks", api.saveTree)
	dg.POST("/:id/publish", api.publish)
	dg.POST("/:id/unpublish", api.unpublish)
	dg.GET("/:id/revisions", api.revisions)
	dg.GET("/:id/revisions/:version", api.revision)
	dg.POST("/:id/revisions/:version/restore", api.restore)
	dg.GET("/:id/diff", api.diff)
}

// editable loads the document in the path if the requester may edit it.
func (api *documentApi) editable(ctx echo.Context) (page.Document, page.Actor, error) {
	actor, err := getContextActor(ctx)
	if err != nil {
		return page.Document{}, page.Actor{}, err
	}
	doc, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return page.Document{}, page.Actor{}, err
	}
	if !doc.CanEdit(actor) {
		return page.Document{}, page.Actor{}, errHttpForbidden
	}
	return doc, actor, nil
}

// Handlers

func (api *documentApi) query(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	filter, err := bindDocumentFilter(ctx)
	if err != nil {
		return err
	}
	if !actor.IsAdmin {
		filter.OwnerID = actor.ID
	}

	var ord Ordering
	ord.Bind(ctx)

	docs, err := api.svc.Query(ctx.Request().Context(), filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying documents")
	}
	return ctx.JSON(http.StatusOK, docs)
}

func (api *documentApi) create(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data page.NewDocument
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDocument")
	}
	if err = data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	doc, err := api.svc.Create(ctx.Request().Context(), data, actor)
	if err != nil {
		return errors.Wrap(err, "creating document")
	}
	return ctx.JSON(http.StatusCreated, doc)
}

func (api *documentApi) retrieve(ctx echo.Context) error {
	doc, _, err := api.editable(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *documentApi) update(ctx echo.Context) error {
	orig, actor, err := api.editable(ctx)
	if err != nil {
		return err
	}

	var data page.UpdateDocument
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDocument")
	}
	if err = data.Validate(ctx.Request().Context(), orig, api.validate, api.svc); err != nil {
		return err
	}

	doc, err := api.svc.Update(ctx.Request().Context(), orig.ID, data, actor)
	if err != nil {
		return errors.Wrap(err, "updating document")
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *documentApi) saveTree(ctx echo.Context) error {
	orig, actor, err := api.editable(ctx)
	if err != nil {
		return err
	}

	var data treeRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to treeRequest")
	}
	var flds []core.FieldError
	if data.Blocks == nil {
		flds = append(flds, core.FieldError{Field: "blocks", Error: "blocks is a required field"})
	}
	if data.Version < 1 {
		flds = append(flds, core.FieldError{Field: "version", Error: "version is a required field"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}

	doc, err := api.svc.SaveTree(ctx.Request().Context(), orig.ID, data.Blocks, data.Version, actor)
	if err != nil {
		return errors.Wrap(err, "saving block tree")
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *documentApi) destroy(ctx echo.Context) error {
	doc, _, err := api.editable(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), doc.ID); err != nil {
		return errors.Wrap(err, "deleting document")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *documentApi) publish(ctx echo.Context) error {
	doc, _, err := api.editable(ctx)
	if err != nil {
		return err
	}
	if doc, err = api.svc.Publish(ctx.Request().Context(), doc.ID); err != nil {
		return errors.Wrap(err, "publishing document")
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *documentApi) unpublish(ctx echo.Context) error {
	doc, _, err := api.editable(ctx)
	if err != nil {
		return err
	}
	if doc, err = api.svc.Unpublish(ctx.Request().Context(), doc.ID); err != nil {
		return errors.Wrap(err, "unpublishing document")
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *documentApi) revisions(ctx echo.Context) error {
	doc, _, err := api.editable(ctx)
	if err != nil {
		return err
	}
	revs, err := api.svc.Revisions(ctx.Request().Context(), doc.ID)
	if err != nil {
		return errors.Wrap(err, "listing revisions")
	}
	return ctx.JSON(http.StatusOK, revs)
}

func (api *documentApi) revision(ctx echo.Context) error {
	doc, _, err := api.editable(ctx)
	if err != nil {
		return err
	}
	version, err := intParam("version", ctx.Param("version"))
	if err != nil {
		return err
	}
	rev, err := api.svc.GetRevision(ctx.Request().Context(), doc.ID, version)
	if err != nil {
		return errors.Wrap(err, "getting revision")
	}
	return ctx.JSON(http.StatusOK, rev)
}

func (api *documentApi) restore(ctx echo.Context) error {
	doc, actor, err := api.editable(ctx)
	if err != nil {
		return err
	}
	version, err := intParam("version", ctx.Param("version"))
	if err != nil {
		return err
	}
	if doc, err = api.svc.RestoreRevision(ctx.Request().Context(), doc.ID, version, actor); err != nil {
		return errors.Wrap(err, "restoring revision")
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *documentApi) diff(ctx echo.Context) error {
	doc, _, err := api.editable(ctx)
	if err != nil {
		return err
	}
	from, err := intParam("from", ctx.QueryParam("from"))
	if err != nil {
		return err
	}
	to := doc.Version
	if val := ctx.QueryParam("to"); val != "" {
		if to, err = intParam("to", val); err != nil {
			return err
		}
	}

	diff, err := api.svc.DiffRevisions(ctx.Request().Context(), doc.ID, from, to)
	if err != nil {
		return errors.Wrap(err, "diffing revisions")
	}
	return ctx.JSON(http.StatusOK, diffResponse{From: from, To: to, Diff: diff})
}
