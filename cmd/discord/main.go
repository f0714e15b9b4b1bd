package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/orator/internal/client"
	"github.com/keshon/orator/internal/config"
	"github.com/keshon/orator/internal/discord"
	"github.com/keshon/orator/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "orator:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, closer, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Output:     cfg.LogOutput,
		File:       cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("Starting Orator bot...")

	store, err := client.OpenStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	sess, err := discord.New(cfg.DiscordToken, log)
	if err != nil {
		return err
	}

	c := client.New(cfg, sess, store, log)
	if err := c.Load(ctx); err != nil {
		return err
	}
	if err := c.Run(ctx); err != nil {
		return fmt.Errorf("discord bot: %w", err)
	}
	log.Info().Msg("Discord bot exited cleanly")
	return nil
}
