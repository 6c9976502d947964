package echoapi

import (
	"io/ioutil"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/editor"
)

type (
	editorApi struct {
		svc    editor.Service
		logger core.Logger
	}

	openSessionRequest struct {
		DocumentID string `json:"document_id"`
	}

	sessionResponse struct {
		Session editor.Session `json:"session"`
		State   editor.State   `json:"state"`
	}
)

// registerEditorAPI mounts the editing sessions. The preview socket reads its token from the query string
// since browsers cannot set headers on websocket requests.
func registerEditorAPI(g *echo.Group, jwt, wsJWT echo.MiddlewareFunc, svc editor.Service, logger core.Logger) {
	api := editorApi{
		svc:    svc,
		logger: logger,
	}

	g.GET("/palette", api.palette)

	eg := g.Group("/editor/sessions")
	eg.POST("", api.open, jwt, authorsMiddleware())
	eg.GET("/:sid", api.state, jwt, authorsMiddleware())
	eg.DELETE("/:sid", api.close, jwt, authorsMiddleware())
	eg.POST("/:sid/actions", api.dispatch, jwt, authorsMiddleware())
	eg.POST("/:sid/save", api.save, jwt, authorsMiddleware())
	eg.GET("/:sid/preview", api.preview, wsJWT, authorsMiddleware())
}

func (api *editorApi) palette(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Palette().Descriptors())
}

func (api *editorApi) open(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data openSessionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to openSessionRequest")
	}
	if data.DocumentID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "document_id", Error: "document_id is a required field"})
	}

	sess, state, err := api.svc.Open(ctx.Request().Context(), data.DocumentID, actor)
	if err != nil {
		return errors.Wrap(err, "opening editing session")
	}
	return ctx.JSON(http.StatusCreated, sessionResponse{Session: sess, State: state})
}

func (api *editorApi) state(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	sess, state, err := api.svc.State(ctx.Param("sid"), actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sessionResponse{Session: sess, State: state})
}

func (api *editorApi) close(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Close(ctx.Request().Context(), ctx.Param("sid"), actor); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *editorApi) dispatch(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	body, err := ioutil.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading action")
	}
	action, err := editor.DecodeAction(body, api.svc.Palette())
	if err != nil {
		return err
	}

	state, err := api.svc.Dispatch(ctx.Request().Context(), ctx.Param("sid"), actor, action)
	if err != nil {
		return errors.Wrapf(err, "dispatching %s", action.Type())
	}
	return ctx.JSON(http.StatusOK, state)
}

func (api *editorApi) save(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	doc, err := api.svc.Save(ctx.Request().Context(), ctx.Param("sid"), actor)
	if err != nil {
		return errors.Wrap(err, "saving document")
	}
	return ctx.JSON(http.StatusOK, doc)
}
