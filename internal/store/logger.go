package store

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var storeLog zerolog.Logger = log.With().Str("module", "store").Logger()
