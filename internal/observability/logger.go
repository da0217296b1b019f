package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pixelfield/tofsink/internal/logging"
)

// InitLogger installs the global logger with the resolved logging settings.
func InitLogger(app string, settings logging.Settings) zerolog.Logger {
	logger := newLogger(os.Stdout, app, settings)
	log.Logger = logger
	return logger
}

func newLogger(out io.Writer, app string, settings logging.Settings) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    settings.NoColor,
	}
	ctx := zerolog.New(output).With().Str("app", app)
	if settings.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}
