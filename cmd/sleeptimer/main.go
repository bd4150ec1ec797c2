package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata"

	"sleeptimer/cmd/sleeptimer/commands"
)

func main() {
	if err := commands.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
