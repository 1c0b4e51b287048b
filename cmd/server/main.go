package main

import (
	"github.com/bitshield/procurement/backend/internal/server"
	"github.com/bitshield/procurement/backend/internal/util"
	"github.com/bitshield/procurement/backend/pkg/logger"
	"github.com/bitshield/procurement/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
