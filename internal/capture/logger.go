package capture

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var captureLog zerolog.Logger = log.With().Str("module", "capture").Logger()
