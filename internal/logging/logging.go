package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs a stderr logger at the named level. Pretty selects the
// human readable console format instead of JSON lines.
func Setup(level string, pretty bool) error {
	return setup(os.Stderr, level, pretty)
}

func setup(w io.Writer, level string, pretty bool) error {
	lvl := zerolog.InfoLevel
	if level = strings.TrimSpace(level); level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return fmt.Errorf("log level %q: %w", level, err)
		}
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
	} else {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	}
	return nil
}
