package stripe

import "go.uber.org/fx"

// Module exposes the Stripe gateway via Fx.
var Module = fx.Options(
	fx.Provide(NewClient),
)
