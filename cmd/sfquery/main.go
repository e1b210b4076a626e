package main

import (
	"fmt"
	"os"

	"github.com/natserract/sfclient/pkg/bootstrap"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(bootstrap.ExitCodeError)
	}

	code := execute(logger)
	_ = logger.Sync()
	os.Exit(code)
}
