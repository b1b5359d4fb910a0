package main

import (
	"errors"
	"os"

	"github.com/zjy-dev/covgate/cmd/covgate/app"
	"github.com/zjy-dev/covgate/internal/logger"
)

func main() {
	if err := app.NewCovgateCommand().Execute(); err != nil {
		// The gate has already reported its findings.
		if !errors.Is(err, app.ErrGateFailed) {
			logger.Error("%v", err)
		}
		os.Exit(1)
	}
}
