// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pdiddy/medonboard/internal/auth"
	"github.com/pdiddy/medonboard/internal/browse"
	"github.com/pdiddy/medonboard/internal/intake"
	"github.com/pdiddy/medonboard/internal/server"
	"github.com/pdiddy/medonboard/internal/session"
	"github.com/pdiddy/medonboard/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browse and intake screens over HTTP",
	Long: `Serve starts the HTTP surface. Users sign in with POST /login and then
browse diseases, medicines and case studies; experts also reach the intake
endpoints under /intake. Without configured users the demo accounts
expert/admin123 and trainee/view123 are enabled.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		appConfig.Server.Addr = addr
	}

	users := appConfig.Auth.Users
	if len(users) == 0 {
		logger.Warn("No users configured, enabling demo accounts")
		demo, err := auth.DemoUsers()
		if err != nil {
			return err
		}
		users = demo
	}
	directory, err := auth.NewDirectory(users)
	if err != nil {
		return err
	}

	lib, err := openLibrary()
	if err != nil {
		return err
	}
	classifier, extractor, err := openInference(lib)
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sessions := session.NewManager(func(id types.Identity) *intake.Workflow {
		return intake.New(classifier, extractor, store, id.Username,
			intake.WithLogger(logger.WithField("component", "intake")))
	}, appConfig.Server.AnalyzeRate, appConfig.Server.AnalyzeBurst,
		session.WithIdleTimeout(appConfig.Server.SessionIdle))

	srv := server.New(server.Deps{
		Config:    appConfig.Server,
		Directory: directory,
		Sessions:  sessions,
		Browse:    browse.NewService(lib, store, logger),
		Logger:    logger,
		Version:   version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(logrus.Fields{
		"store":     appConfig.Store.Backend,
		"inference": appConfig.Inference.Backend,
		"users":     directory.Len(),
	}).Info("Starting medonboard")
	return srv.Run(ctx)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")

	rootCmd.AddCommand(serveCmd)
}
