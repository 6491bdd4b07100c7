package order

import (
	"github.com/vendaro/vendaro/internal/order/repository"
	"github.com/vendaro/vendaro/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
