package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"handoff-client/internal/config"
	"handoff-client/internal/repository"
	"handoff-client/internal/services"
	"handoff-client/internal/storage"
	"handoff-client/internal/validation"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app carries what every command needs once configuration is loaded
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config

	kv       storage.KeyValue
	auth     *services.AuthStore
	products *services.ProductStore
	chat     *services.ChatStore
	contact  *services.ContactService
}

func Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", services.Message(err, err.Error()))
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "handoff",
		Short:         "Campus marketplace client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "path to the YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newRegisterCmd(a),
		newVerifyEmailCmd(a),
		newPasswordCmd(a),
		newProfileCmd(a),
		newProductsCmd(a),
		newContactCmd(a),
		newChatCmd(a),
		newMockServerCmd(a),
	)
	return root
}

func (a *app) loadConfig() error {
	cfg, err := config.Load(a.configPath)
	missing := errors.Is(err, fs.ErrNotExist)
	switch {
	case missing:
		cfg = config.Default()
	case err != nil:
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	// Setup logger
	setupLogger(cfg.Log.Level)
	if missing {
		log.Warn().Str("path", a.configPath).Msg("Config file not found, using defaults")
	}
	a.cfg = cfg
	return nil
}

// withStores opens session storage, builds the stores and restores any
// saved session before running fn.
func (a *app) withStores(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(cmd.Context()); err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, args)
	}
}

func (a *app) open(ctx context.Context) error {
	kv, err := storage.OpenBolt(a.cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open session storage: %w", err)
	}

	v, err := validation.New(a.cfg.Auth.EmailPattern)
	if err != nil {
		kv.Close()
		return err
	}

	// Initialize repositories
	client := repository.NewClient(a.cfg.API.BaseURL, a.cfg.API.Timeout)
	userRepo := repository.NewUserRepository(client, a.cfg.API.RegisterPath)
	productRepo := repository.NewProductRepository(client)

	// Initialize stores
	a.kv = kv
	a.auth = services.NewAuthStore(userRepo, kv, v)
	a.products = services.NewProductStore(productRepo, a.auth, v)
	a.contact = services.NewContactService(userRepo)
	a.chat = services.NewChatStore(func() string {
		if user, ok := a.auth.User(); ok {
			return user.VarsityID
		}
		return a.cfg.Chat.SelfID
	})

	if err := a.auth.CheckAuthStatus(ctx); err != nil {
		log.Warn().Err(err).Msg("Could not restore session")
	}

	log.Debug().
		Str("base_url", client.BaseURL()).
		Str("storage", a.cfg.Storage.Path).
		Bool("authenticated", a.auth.IsAuthenticated()).
		Msg("Client ready")
	return nil
}

func (a *app) close() {
	if a.kv == nil {
		return
	}
	if err := a.kv.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close session storage")
	}
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
