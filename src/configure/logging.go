package configure

import (
	"io"

	"github.com/sirupsen/logrus"
)

func initLogging(level string, noLogs bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	if noLogs {
		logrus.SetOutput(io.Discard)
	}
}
