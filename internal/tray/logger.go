package tray

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var trayLog zerolog.Logger = log.With().Str("module", "tray").Logger()
