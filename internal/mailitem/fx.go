package mailitem

import (
	"github.com/smallbiznis/mailroom/internal/mailitem/repository"
	"github.com/smallbiznis/mailroom/internal/mailitem/service"
	"go.uber.org/fx"
)

var Module = fx.Module("mailitem.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
