package gesture

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	gestureLog zerolog.Logger = log.With().Str("module", "gesture").Logger()
	calLog     zerolog.Logger = log.With().Str("module", "calibration").Logger()
)
