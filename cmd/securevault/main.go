package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wahaj/securevault/internal/buildinfo"
	"github.com/wahaj/securevault/internal/cli"
	"github.com/wahaj/securevault/internal/common"
	"github.com/wahaj/securevault/internal/config"
	"github.com/wahaj/securevault/internal/cryptox"
	"github.com/wahaj/securevault/internal/gateway"
	"github.com/wahaj/securevault/internal/logging"
	"github.com/wahaj/securevault/internal/session"
	"github.com/wahaj/securevault/internal/storage"
	"github.com/wahaj/securevault/internal/vault"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.LoadConfig()
	logger := logging.NewTextLogger(os.Stderr, slog.LevelInfo)

	key, err := encryptionKey(cfg)
	if err != nil {
		log.Fatalf("deriving encryption key: %v", err)
	}
	defer common.WipeByteArray(key)

	store, err := storage.OpenSQLite(ctx, cfg.StoragePath, key)
	if err != nil {
		log.Fatalf("opening storage: %v", err)
	}
	defer store.Close()

	sm := session.NewManager(store, cfg.StoragePrefix, cfg.Encrypt, logger)
	gw := gateway.NewHTTPGateway(cfg.ServerURL, cfg.RequestTimeout, sm, logger)

	v, err := vault.New(vault.Options{
		Store:           store,
		Gateway:         gw,
		Session:         sm,
		Log:             logger,
		Prefix:          cfg.StoragePrefix,
		Encrypt:         cfg.Encrypt,
		DefaultCategory: cfg.DefaultCategory,
	})
	if err != nil {
		log.Fatalf("initializing vault: %v", err)
	}

	app := cli.NewApp(cfg, v, sm, gw, logger)
	app.Root(ctx)
}

// encryptionKey derives the symmetric key protecting stored values. The
// passphrase comes from the config or an interactive prompt; the random salt
// lives in a sidecar file next to the database and is created on first run.
func encryptionKey(cfg *config.Config) ([]byte, error) {
	passphrase := []byte(cfg.Passphrase)
	if len(passphrase) == 0 {
		var err error
		passphrase, err = cli.GetSecret("Enter master passphrase", os.Stdout)
		if err != nil {
			return nil, err
		}
	}
	defer common.WipeByteArray(passphrase)

	saltPath := cfg.StoragePath + ".salt"
	salt, err := os.ReadFile(saltPath)
	if errors.Is(err, os.ErrNotExist) {
		salt = common.GenerateRandByteArray(16)
		if err := os.WriteFile(saltPath, salt, 0o600); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return cryptox.DeriveKey(passphrase, salt), nil
}
