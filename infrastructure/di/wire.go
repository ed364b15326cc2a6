//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/Shani815/vctalenthub-sub000/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideTracing,
	ProvideAWSConfig,
	ProvideStore,
	ProvideMailer,
	ProvideMetrics,
	ProvideQuotaService,
	ProvideConnectionService,
	ProvideIntroService,
	ProvideJWTValidator,
	ProvideErrorHandler,
	ProvideAuthenticator,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// releases resources in reverse order of creation.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
