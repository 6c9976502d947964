package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/page"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindDocumentFilter reads the document list filters from the query string.
func bindDocumentFilter(ctx echo.Context) (*page.QueryFilter, error) {
	filter := &page.QueryFilter{
		Search: ctx.QueryParam("search"),
		Kind:   page.Kind(ctx.QueryParam("kind")),
		Tag:    ctx.QueryParam("tag"),
	}
	if val := ctx.QueryParam("published"); val != "" {
		published, err := strconv.ParseBool(val)
		if err != nil {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "published", Error: "must be a boolean"})
		}
		filter.Published = &published
	}
	filter.Clean()
	return filter, nil
}

// intParam parses a positive integer from a path or query value.
func intParam(name, val string) (int, error) {
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a positive integer"})
	}
	return n, nil
}
