package logger

import (
	"go.uber.org/zap"
)

var log *zap.SugaredLogger = zap.NewNop().Sugar()

// Init builds the process-wide logger. Call once from main before anything logs.
func Init(env string) error {
	var (
		l   *zap.Logger
		err error
	)
	if env == "production" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return err
	}
	log = l.Sugar()
	return nil
}

// L returns the shared sugared logger.
func L() *zap.SugaredLogger {
	return log
}

func Sync() {
	_ = log.Sync()
}
