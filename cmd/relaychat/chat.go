package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dev-dami/relaychat/internal/channel"
	"github.com/dev-dami/relaychat/internal/chat"
	"github.com/dev-dami/relaychat/internal/logging"
	"github.com/dev-dami/relaychat/internal/tui"
)

func newChatCommand() *cobra.Command {
	var (
		url       string
		transport string
		fallback  string
		track     bool
		plain     bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Join a chat room",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("url") {
				cfg.Client.URL = url
			}
			if flags.Changed("transport") {
				cfg.Client.Transport = transport
			}
			if flags.Changed("fallback") {
				cfg.Client.FallbackTransport = fallback
			}
			if flags.Changed("track") {
				cfg.Client.TrackMessageLength = track
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if !isatty.IsTerminal(os.Stdin.Fd()) || !isatty.IsTerminal(os.Stdout.Fd()) {
				plain = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runChat(ctx, plain)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "room endpoint, e.g. http://localhost:3000/atmosphere/the-chat")
	cmd.Flags().StringVar(&transport, "transport", "", "preferred transport (websocket, long-polling, local)")
	cmd.Flags().StringVar(&fallback, "fallback", "", "transport to use when the preferred one fails")
	cmd.Flags().BoolVar(&track, "track", true, "length-prefix messages on the wire")
	cmd.Flags().BoolVar(&plain, "plain", false, "line-oriented UI instead of the full-screen one")
	return cmd
}

func runChat(ctx context.Context, plain bool) error {
	// The full-screen UI owns the terminal, so logs go to a file or nowhere.
	logger, closer, err := logging.Setup(logging.Settings{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Discard: !plain,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		loop    *chat.Loop
		ui      chat.UI
		program *tea.Program
		lines   *tui.Plain
	)
	submit := func(text string) { loop.Submit(text) }
	if plain {
		lines = tui.NewPlain(os.Stdout)
		ui = lines
	} else {
		var port *tui.Port
		program, port = tui.NewProgram(submit, tea.WithAltScreen(), tea.WithContext(ctx))
		ui = port
	}

	client := chat.NewClient(ui, chat.WithLogger(logger))
	loop = chat.NewLoop(client)
	sock, err := channel.NewSocket(channel.Request{
		URL:                 cfg.Client.URL,
		LogLevel:            cfg.Log.Level,
		Transport:           cfg.Client.Transport,
		FallbackTransport:   cfg.Client.FallbackTransport,
		TrackMessageLength:  cfg.Client.TrackMessageLength,
		ReconnectInterval:   cfg.Client.ReconnectInterval,
		MaxReconnectOnClose: cfg.Client.MaxReconnect,
	}, loop, channel.WithLogger(logger))
	if err != nil {
		return err
	}
	client.Attach(sock)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := loop.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// A failed connect is reported through OnError; the UI stays up so
		// the user can read it.
		if err := sock.Connect(gctx); err != nil {
			logger.Error().Err(err).Str("url", cfg.Client.URL).Msg("could not connect")
		}
		<-gctx.Done()
		return sock.Close()
	})
	g.Go(func() error {
		defer cancel()
		if plain {
			return lines.ReadLines(gctx, os.Stdin, submit)
		}
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return errors.Wrap(err, "run ui")
		}
		return nil
	})
	return g.Wait()
}
