package main

import (
	"os"

	puterbridgecmder "github.com/papercomputeco/puterbridge/cmd/puterbridge"
)

func main() {
	cmd := puterbridgecmder.NewPuterbridgeCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
