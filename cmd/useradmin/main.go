// Command useradmin creates an administrator account in the configured
// database. It accepts the same flags and environment as the server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/accountsvc/internal/buildinfo"
	"github.com/dmitrijs2005/accountsvc/internal/server"
	"github.com/dmitrijs2005/accountsvc/internal/server/config"
	"github.com/dmitrijs2005/accountsvc/internal/useradmin"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	if cfg.DatabaseDSN == "" {
		log.Fatal("database DSN is required (-d or APP_DATABASE_DSN)")
	}
	// welcome mail is not sent from the terminal
	cfg.MailTransport = config.MailTransportLog

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	p := useradmin.NewPrompter(os.Stdin, os.Stdout, int(os.Stdin.Fd()))
	if _, err := useradmin.CreateAdmin(ctx, app.UserService(), p); err != nil {
		fmt.Fprintln(os.Stderr, useradmin.Describe(err))
		app.Close()
		os.Exit(1)
	}
}
