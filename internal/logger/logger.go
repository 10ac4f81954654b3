package logger

import (
	"go.uber.org/zap"
)

var Log *zap.Logger

// NewLogger creates the process-wide zap logger. Mode follows the server
// mode: "release" gets the production config, anything else development.
func NewLogger(mode string) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if mode == "release" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	Log = l
	return l
}
