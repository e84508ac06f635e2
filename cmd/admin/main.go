// Command admin resets a user's password in the timekeeper stores.
//
//	admin -user <matricula> [-m local.db] [-d postgres://...]
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/dmitrijs2005/timekeeper/internal/admincli"
	"github.com/dmitrijs2005/timekeeper/internal/flagx"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/config"
)

func main() {
	var matricula string
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	fs.StringVar(&matricula, "user", "", "matricula whose password is reset")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-user"}))

	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	app := admincli.NewApp(cfg, logger, os.Stdout, int(os.Stdin.Fd()))
	if err := app.ResetPassword(context.Background(), matricula); err != nil {
		log.Fatalf("%v", err)
	}
}
