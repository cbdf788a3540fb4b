package apiv1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/auth"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/services/news"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

type NewsGroup struct {
	routerGroup *echo.Group
	news        *news.Service
}

func NewNewsGroup(g *echo.Group, svc *news.Service) *NewsGroup {
	group := &NewsGroup{routerGroup: g, news: svc}

	g.GET("", auth.WithAuth(group.Headlines))

	return group
}

// Headlines returns the latest headlines, optionally limited by ?limit=
func (g *NewsGroup) Headlines(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return ErrorResponse(c, http.StatusBadRequest, "limit must be a number")
		}
		limit = parsed
	}

	items, err := g.news.Headlines(c.Request().Context(), limit)
	if err != nil {
		return DomainErrorResponse(c, err)
	}
	if items == nil {
		items = []types.NewsItem{}
	}
	return SuccessResponse(c, items)
}
