package purchase

import "go.uber.org/fx"

// Module exposes purchase initiation via Fx.
var Module = fx.Options(
	fx.Provide(NewStore),
	fx.Provide(NewService),
)
