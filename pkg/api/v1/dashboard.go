package apiv1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/auth"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/services/dashboard"
)

type DashboardGroup struct {
	routerGroup *echo.Group
	dashboard   *dashboard.Service
}

func NewDashboardGroup(g *echo.Group, svc *dashboard.Service) *DashboardGroup {
	group := &DashboardGroup{routerGroup: g, dashboard: svc}

	g.GET("/myday", auth.WithAuth(group.MyDay))

	return group
}

// MyDay returns the aggregated dashboard. Coordinates are optional; without
// them the weather section is skipped.
func (g *DashboardGroup) MyDay(c echo.Context) error {
	var params dashboard.MyDayParams

	if rawLat, rawLon := c.QueryParam("lat"), c.QueryParam("lon"); rawLat != "" || rawLon != "" {
		lat, err := strconv.ParseFloat(rawLat, 64)
		if err != nil {
			return ErrorResponse(c, http.StatusBadRequest, "lat must be a number")
		}
		lon, err := strconv.ParseFloat(rawLon, 64)
		if err != nil {
			return ErrorResponse(c, http.StatusBadRequest, "lon must be a number")
		}
		params.Latitude = &lat
		params.Longitude = &lon
	}

	ctx := c.Request().Context()
	return SuccessResponse(c, g.dashboard.MyDay(ctx, auth.UserId(ctx), params))
}
