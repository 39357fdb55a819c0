// fiscalctl verifica y exporta la cadena fiscal del terminal usando la misma configuración que la API.
//
// Uso:
//
//	fiscalctl verify TPV-01
//	fiscalctl verify --all --format json
//	fiscalctl export TPV-01 -o cadena.xml
//	fiscalctl report <shift-id> --pdf informe.pdf
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/terencio/fiscal-core/internal/bootstrap"
	"github.com/terencio/fiscal-core/internal/cli"
	"github.com/terencio/fiscal-core/pkg/config"
	"github.com/terencio/fiscal-core/pkg/logger"
)

func main() {
	build := func(ctx context.Context) (*bootstrap.App, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Output: os.Stderr})
		return bootstrap.Build(ctx, cfg, log.Zerolog())
	}

	if err := cli.NewRootCommand(build).Execute(); err != nil {
		if !errors.Is(err, cli.ErrChainBroken) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
