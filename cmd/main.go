package main

import (
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"github.com/aicarousel/gateway/internal/cache"
	cacheredis "github.com/aicarousel/gateway/internal/cache/redis"
	"github.com/aicarousel/gateway/internal/config"
	"github.com/aicarousel/gateway/internal/dispatch"
	"github.com/aicarousel/gateway/internal/domain"
	embeddingopenai "github.com/aicarousel/gateway/internal/embedding/openai"
	"github.com/aicarousel/gateway/internal/http"
	"github.com/aicarousel/gateway/internal/http/middleware"
	"github.com/aicarousel/gateway/internal/modelsconfig"
	"github.com/aicarousel/gateway/internal/observability"
	"github.com/aicarousel/gateway/internal/provider"
	"github.com/aicarousel/gateway/internal/provider/registry"
	"github.com/aicarousel/gateway/internal/store/sqlite"
)

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *http.Server) {
		if err := server.Start(); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	provide(container, config.Load)
	provide(container, config.ParseDependenciesConfig)
	provide(container, observability.InitLogger)

	provide(container, func(cfg *config.StoreConfig) (*modelsconfig.Store, error) {
		return modelsconfig.New(cfg.ModelsConfigPath)
	})
	provide(container, func(store *modelsconfig.Store) domain.ModelsConfig { return store })

	provide(container, func(cfg *config.StoreConfig) (*sqlite.CredentialStore, *sqlite.ProviderSettingsStore, error) {
		db, err := sqlite.Open(cfg.CredentialsDBPath)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewCredentialStore(db), sqlite.NewProviderSettingsStore(db), nil
	})
	provide(container, func(creds *sqlite.CredentialStore) domain.CredentialStore { return creds })
	provide(container, func(settings *sqlite.ProviderSettingsStore) domain.ProviderSettingsStore { return settings })

	provide(container, func(settings domain.ProviderSettingsStore, models domain.ModelsConfig) domain.ProviderRegistry {
		return registry.New(config.KnownProviders, settings, models)
	})
	provide(container, func() domain.AdapterBuilder {
		return provider.NewBuilder(config.KnownProviders)
	})
	provide(container, func(cfg *config.ServerConfig, reg domain.ProviderRegistry, builder domain.AdapterBuilder) *dispatch.Handler {
		return dispatch.New(reg, builder, cfg.FirstChunkTimeout())
	})

	provide(container, func(cfg *config.CacheConfig) domain.CompletionCache {
		if !cfg.Enabled() {
			return cache.Noop{}
		}

		generator, err := embeddingopenai.NewGenerator(embeddingopenai.Config{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.EmbeddingModel,
		})
		if err != nil {
			log.Printf("completion cache disabled: %v", err)
			return cache.Noop{}
		}

		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("completion cache disabled: invalid REDIS_URL: %v", err)
			return cache.Noop{}
		}

		search, err := cacheredis.NewVectorSearch(goredis.NewClient(opts), "cache-idx", generator.Dimension())
		if err != nil {
			log.Printf("completion cache disabled: %v", err)
			return cache.Noop{}
		}

		return domain.NewCompletionCacheService(generator, search, cfg.SimilarityThreshold)
	})

	provide(container, http.NewHandler)
	provide(container, http.NewAdminHandler)
	provide(container, func(cfg *config.ServerConfig) http.ServerConfig {
		return http.ServerConfig{
			Port:         cfg.Port,
			ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		}
	})
	provide(container, func(cors *config.CORSConfig, creds domain.CredentialStore) middleware.Middleware {
		return middleware.Chain(
			middleware.Trace(),
			middleware.CORS(&middleware.CORSConfig{
				AllowedOrigins:   cors.AllowedOrigins,
				AllowedMethods:   cors.AllowedMethods,
				AllowedHeaders:   cors.AllowedHeaders,
				AllowCredentials: cors.AllowCredentials,
				MaxAge:           cors.MaxAge,
			}),
			middleware.Auth(creds),
		)
	})
	provide(container, http.NewServer)

	return container
}

// provide registers constructor with the container, terminating the
// process on a wiring error since these only fail from a programming
// mistake in the graph itself.
func provide(container *dig.Container, constructor any) {
	if err := container.Provide(constructor); err != nil {
		log.Fatalf("failed to provide %T: %v", constructor, err)
	}
}
