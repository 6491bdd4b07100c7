package subscription

import (
	"github.com/vendaro/vendaro/internal/subscription/repository"
	"github.com/vendaro/vendaro/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
