package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/blocktree"
	"github.com/trezcool/masomo/core/page"
)

type pageApi struct {
	svc page.Service
}

// registerPageAPI serves published documents to anyone.
func registerPageAPI(g *echo.Group, svc page.Service) {
	api := pageApi{svc: svc}

	pg := g.Group("/pages")
	pg.GET("/:slug", api.retrieve)
	pg.GET("/:slug/html", api.render)
}

func (api *pageApi) retrieve(ctx echo.Context) error {
	doc, err := api.svc.GetPublishedBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *pageApi) render(ctx echo.Context) error {
	bp := blocktree.Breakpoint(ctx.QueryParam("breakpoint"))
	if bp == "" {
		bp = blocktree.Desktop
	}
	if !bp.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown breakpoint")
	}

	doc, err := api.svc.GetPublishedBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return err
	}
	html, err := blocktree.RenderHTML(doc.Blocks, bp)
	if err != nil {
		return errors.Wrap(err, "rendering page")
	}
	return ctx.HTML(http.StatusOK, string(html))
}
