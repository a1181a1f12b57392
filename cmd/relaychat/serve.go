package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dev-dami/relaychat/internal/logging"
	"github.com/dev-dami/relaychat/internal/server"
)

func newServeCommand() *cobra.Command {
	var (
		addr      string
		redis     bool
		redisAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat relay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("redis") {
				cfg.Redis.Enabled = redis
			}
			if cmd.Flags().Changed("redis-addr") {
				cfg.Redis.Addr = redisAddr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, closer, err := logging.Setup(logging.Settings{Level: cfg.Log.Level, File: cfg.Log.File})
			if err != nil {
				return err
			}
			defer closer.Close()

			backplane, err := server.NewBackplane(server.BackplaneConfig{
				RedisEnabled:  cfg.Redis.Enabled,
				RedisAddr:     cfg.Redis.Addr,
				RedisPassword: cfg.Redis.Password,
				RedisDB:       cfg.Redis.DB,
			}, logger)
			if err != nil {
				return err
			}

			srv, err := server.New(server.Config{
				Addr:        cfg.Server.Addr,
				HistorySize: cfg.Server.HistorySize,
				PollTimeout: cfg.Server.PollTimeout,
			}, backplane, logger)
			if err != nil {
				_ = backplane.Close()
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :3000)")
	cmd.Flags().BoolVar(&redis, "redis", false, "share rooms with other relays over Redis streams")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address")
	return cmd
}
