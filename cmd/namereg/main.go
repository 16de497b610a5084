package main

import (
	"os"

	"namereg/internal/slogutil"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := slogutil.NewLogger(os.Stderr, slogutil.LevelFromString("info"))
		logger.Error("Command execution failed", "error", err.Error())
		os.Exit(1)
	}
}
