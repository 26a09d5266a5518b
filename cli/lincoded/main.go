package main

import (
	"os"

	servecmder "github.com/papercomputeco/lincode/cmd/lincode/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "lincoded"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml (default: ./.lincode or ~/.lincode)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
