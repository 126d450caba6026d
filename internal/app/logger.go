package app

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var appLog zerolog.Logger = log.With().Str("module", "app").Logger()
