package tenant

import (
	"github.com/bomizzel/helpdesk/internal/tenant/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant",
	fx.Provide(domain.NewRepository),
)
