package reconcile

import "go.uber.org/fx"

// Module exposes the reconciliation engine via Fx.
var Module = fx.Options(
	fx.Provide(NewStore),
	fx.Provide(NewService),
)
