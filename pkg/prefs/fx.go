package prefs

import (
	"go.uber.org/fx"
)

// Module provides the user preferences manager.
var Module = fx.Module("prefs",
	fx.Provide(New),
)
