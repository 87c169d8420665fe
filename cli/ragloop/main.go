package main

import (
	"os"

	ragloopcmder "github.com/papercomputeco/ragloop/cmd/ragloop"
)

func main() {
	cmd := ragloopcmder.NewRagloopCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
