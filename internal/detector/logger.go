package detector

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var detLog zerolog.Logger = log.With().Str("module", "detector").Logger()
