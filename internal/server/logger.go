package server

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var serverLog zerolog.Logger = log.With().Str("module", "server").Logger()
