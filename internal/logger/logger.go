package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Init builds the process logger and installs it as the zap global.
// Development mode switches to console encoding with debug level.
func Init(development bool) (*zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)

	if development {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	zap.ReplaceGlobals(log)
	return log, nil
}
