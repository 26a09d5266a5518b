package main

import (
	"os"

	lincodecmder "github.com/papercomputeco/lincode/cmd/lincode"
)

func main() {
	cmd := lincodecmder.NewLincodeCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
