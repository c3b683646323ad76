package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"table-order/api"
	"table-order/bot"
	"table-order/cart"
	"table-order/checkout"
	"table-order/config"
	"table-order/db"
	"table-order/localstore"
	"table-order/logging"
	"table-order/services"
	"table-order/ws"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Subcommands that do not need the bot.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrate(cfg)
			return
		case "hashpw":
			runHashPassword(os.Args[2:])
			return
		}
	}

	if cfg.Telegram.Token == "" {
		fmt.Fprintln(os.Stderr, "TOKEN not set")
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slot, closeSlot, err := openSlotStore(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "store:", err)
		os.Exit(1)
	}
	defer closeSlot()

	client := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithToken(cfg.API.Token),
		api.WithLogger(log.Named("api")),
	)
	co := checkout.New(client,
		checkout.WithPaymentDelay(cfg.Payment.Delay),
		checkout.WithLogger(log.Named("checkout")),
	)
	if cfg.Telegram.AdminPasswordHash == "" {
		log.Warn("ADMIN_PASSWORD_HASH not set; admin commands are disabled (see `table-order hashpw`)")
	}

	b, err := bot.New(cfg, client, co, slot, db.Pool != nil, log.Named("bot"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		os.Exit(1)
	}

	if cfg.API.WSURL != "" {
		feed := ws.NewListener(cfg.API.WSURL,
			ws.WithToken(cfg.API.Token),
			ws.WithLogger(log.Named("ws")),
		)
		go func() {
			err := feed.Run(ctx, func(ev ws.Event) { b.HandleOrderEvent(ctx, ev) })
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("order feed stopped", zap.Error(err))
			}
		}()
	}

	log.Info("bot started",
		zap.String("api", cfg.API.BaseURL),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("order_feed", cfg.API.WSURL != ""),
	)
	b.Start(ctx)
	log.Info("bot stopped")
}

// openSlotStore picks where table associations live: Postgres (shared across
// replicas), a local SQLite file, or process memory.
func openSlotStore(ctx context.Context, cfg *config.Config) (cart.Slot, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		if err := db.Init(ctx, cfg.DB); err != nil {
			return nil, nil, fmt.Errorf("db: %w", err)
		}
		// Optional auto-migration (useful in production and for fresh DBs).
		// Set AUTO_MIGRATE=1 (or "true") to enable.
		if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
			if err := applyMigrations(ctx, false); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return services.NewPGSlotStore(db.Pool), db.Close, nil
	case config.StoreDriverSQLite:
		s, err := localstore.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.StoreDriverMemory:
		return cart.NewMemorySlot(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
}

func runMigrate(cfg *config.Config) {
	ctx := context.Background()
	if err := db.Init(ctx, cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := applyMigrations(ctx, true); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

// runHashPassword prints a bcrypt hash for ADMIN_PASSWORD_HASH. With no
// argument a random password is generated and printed too.
func runHashPassword(args []string) {
	plain := ""
	if len(args) > 0 {
		plain = args[0]
	} else {
		var err error
		if plain, err = services.GenerateSecurePassword(); err != nil {
			fmt.Fprintln(os.Stderr, "generate password:", err)
			os.Exit(1)
		}
		fmt.Println("Password:", plain)
	}
	hash, err := services.HashAdminPassword(plain)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(1)
	}
	// Single quotes keep godotenv from expanding the $ segments of the hash.
	fmt.Printf("ADMIN_PASSWORD_HASH='%s'\n", hash)
}
