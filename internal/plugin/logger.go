package plugin

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var pluginLog zerolog.Logger = log.With().Str("module", "plugin").Logger()
