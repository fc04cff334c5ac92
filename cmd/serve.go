package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/matchdeck/internal/logger"
	"github.com/spigell/matchdeck/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the card deck in the browser",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "listen address (default :8080)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync() //nolint:errcheck

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the matchdeck server", zap.String("version", version))

	hub := server.NewHub()
	sess, err := newSession(ctx, config, logger, hub.Publish)
	if err != nil {
		logger.Fatal("preparing a review session", zap.Error(err))
	}
	defer sess.Close()

	srv := server.New(server.Config{
		Addr:      config.Server.Addr,
		Lookahead: config.Deck.Lookahead,
		Gesture:   config.Gesture,
	}, sess, hub, logger)

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
