package main

import (
	"context"
	"os"

	"github.com/doeshing/strike-go/internal/infrastructure/cli"
	"github.com/doeshing/strike-go/internal/pkg/logger"
)

func main() {
	ctx := context.Background()
	opts := cli.Options{
		Verbose: logger.VerboseFromEnv(),
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	os.Exit(cli.Execute(ctx, os.Args[1:], opts))
}
