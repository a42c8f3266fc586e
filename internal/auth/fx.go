package auth

import (
	"github.com/smallbiznis/roomlease/internal/auth/repository"
	"github.com/smallbiznis/roomlease/internal/auth/service"
	"github.com/smallbiznis/roomlease/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(token.NewManager),
	fx.Provide(service.New),
)
