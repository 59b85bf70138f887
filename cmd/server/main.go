package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	_ "github.com/ridwanfathin/labellens-service/docs"
)

const version = "0.1.0"

// @title LabelLens API
// @version 1.0
// @description Offline-capable product label scanning service
// @BasePath /
func main() {
	root := newRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
