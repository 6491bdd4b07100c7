package payment

import (
	"github.com/vendaro/vendaro/internal/payment/repository"
	"github.com/vendaro/vendaro/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
