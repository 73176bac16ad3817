// Command admin maintains the stores: database migrations, roster loading and dailies export.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/dailies/apps/shared"
	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/daily"
	"github.com/trezcool/dailies/core/directory"
)

func main() {
	c := shared.NewContainer(core.AppAdmin)

	var runErr error
	err := c.Invoke(func(logger core.Logger, deps *shared.Deps, dirSvc *directory.Service, dailySvc *daily.Service) {
		ctx := context.Background()
		defer func() {
			if err := deps.Close(ctx); err != nil {
				logger.Error("closing stores", err)
			}
		}()

		// start CLI
		cli := &commandLine{
			dirSvc:   dirSvc,
			dailySvc: dailySvc,
			out:      os.Stdout,
		}
		if deps.SQL != nil {
			cli.db = deps.SQL.DB
		}
		runErr = cli.run(ctx, os.Args)
	})
	if err != nil {
		log.Fatalf("starting admin: %v", err)
	}
	if runErr != nil {
		if !errors.Is(runErr, errHelp) {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", runErr)
		}
		os.Exit(1)
	}
}
