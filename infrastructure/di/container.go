package di

import (
	"github.com/Shani815/vctalenthub-sub000/application/ports"
	"github.com/Shani815/vctalenthub-sub000/infrastructure/config"
	"github.com/Shani815/vctalenthub-sub000/infrastructure/observability"
	"github.com/Shani815/vctalenthub-sub000/interfaces/http/rest"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Store   ports.Store
	Tracing *observability.Tracing
	Router  *rest.Router
}
