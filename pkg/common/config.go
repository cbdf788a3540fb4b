package common

import (
	"fmt"
	"os"
	"path/filepath"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

// ConfigPathEnv points at an optional config file layered over the defaults
const ConfigPathEnv = "ASSISTME_CONFIG_PATH"

var defaultConfig = []byte(`
gateway:
  http:
    host: 0.0.0.0
    port: 1994
    cors:
      allowOrigins: ["http://localhost:3000", "http://127.0.0.1:3000"]
      allowMethods: ["GET", "POST", "PATCH", "DELETE", "OPTIONS"]
      allowHeaders: ["Authorization", "Content-Type"]
  shutdownTimeout: 10s
database:
  postgres:
    host: localhost
    port: 5433
    user: assistme
    database: assistme
oauth:
  stateTtl: 15m
weather:
  ttl: 10m
news:
  ttl: 20m
  feeds:
    - https://feeds.bbci.co.uk/news/rss.xml
    - https://apnews.com/hub/ap-top-news?output=rss
    - https://www.reutersagency.com/feed/?best-topics=top-news&post_type=best
upstream:
  timeout: 10s
  retries: 2
  backoff: 350ms
`)

// ConfigManager loads layered configuration into a typed struct
type ConfigManager[T any] struct {
	config T
}

// NewConfigManager loads the embedded defaults, then the file named by
// ASSISTME_CONFIG_PATH when present, and unmarshals the merged result.
func NewConfigManager[T any]() (*ConfigManager[T], error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultConfig), kyaml.Parser()); err != nil {
		return nil, fmt.Errorf("load default config: %w", err)
	}

	if path := os.Getenv(ConfigPathEnv); path != "" {
		parser := koanf.Parser(kyaml.Parser())
		if filepath.Ext(path) == ".json" {
			parser = kjson.Parser()
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
		log.Info().Str("path", path).Msg("loaded config file")
	}

	cm := &ConfigManager[T]{}
	if err := k.UnmarshalWithConf("", &cm.config, koanf.UnmarshalConf{Tag: "key"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cm, nil
}

// GetConfig returns the loaded configuration
func (cm *ConfigManager[T]) GetConfig() T {
	return cm.config
}
