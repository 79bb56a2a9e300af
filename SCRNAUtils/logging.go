package scrnautils

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

/*NewLogger create the structured logger of a run */
func NewLogger(conf LogConfig, out io.Writer) (*log.Logger, error) {
	logger := log.New()

	if out == nil {
		out = os.Stderr
	}

	logger.SetOutput(out)

	level := conf.Level

	if level == "" {
		level = "info"
	}

	parsed, err := log.ParseLevel(level)

	if err != nil {
		return nil, err
	}

	logger.SetLevel(parsed)

	if conf.JSON {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	return logger, nil
}
