package common

import "fmt"

var (
	// Integration keys
	integrationRefreshLock string = "integration:refresh:lock:%s" // integration external id

	// Cache keys
	cacheWeather string = "cache:weather:%s" // rounded lat,lon,timezone
	cacheNews    string = "cache:news"
)

var Keys = &redisKeys{}

type redisKeys struct{}

func (rk *redisKeys) IntegrationRefreshLock(integrationId string) string {
	return fmt.Sprintf(integrationRefreshLock, integrationId)
}

func (rk *redisKeys) CacheWeather(locationKey string) string {
	return fmt.Sprintf(cacheWeather, locationKey)
}

func (rk *redisKeys) CacheNews() string {
	return cacheNews
}
