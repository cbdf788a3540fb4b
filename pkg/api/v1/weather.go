package apiv1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/auth"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/services/weather"
)

type WeatherGroup struct {
	routerGroup *echo.Group
	weather     *weather.Service
}

func NewWeatherGroup(g *echo.Group, svc *weather.Service) *WeatherGroup {
	group := &WeatherGroup{routerGroup: g, weather: svc}

	g.GET("", auth.WithAuth(group.Current))

	return group
}

// Current returns current conditions for ?lat=..&lon=..
func (g *WeatherGroup) Current(c echo.Context) error {
	lat, err := strconv.ParseFloat(c.QueryParam("lat"), 64)
	if err != nil {
		return ErrorResponse(c, http.StatusBadRequest, "lat is required and must be a number")
	}
	lon, err := strconv.ParseFloat(c.QueryParam("lon"), 64)
	if err != nil {
		return ErrorResponse(c, http.StatusBadRequest, "lon is required and must be a number")
	}

	report, err := g.weather.Current(c.Request().Context(), lat, lon)
	if err != nil {
		return DomainErrorResponse(c, err)
	}
	return SuccessResponse(c, report)
}
