package main

import (
	"os"

	"github.com/Trinoooo/eventqueue/cli"
	"github.com/Trinoooo/eventqueue/logs"
	"go.uber.org/zap"
)

func main() {
	defer logs.Sync()
	wrapper := cli.NewWrapper()
	if err := wrapper.Run(os.Args); err != nil {
		logs.Fatal("eventqueue exit", zap.Error(err))
	}
}
