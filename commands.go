package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"zerotwo/pkg/banstore"
	"zerotwo/pkg/bot"
	"zerotwo/pkg/config"
	"zerotwo/pkg/lexicon"
	"zerotwo/pkg/logger"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is the state every subcommand shares once PersistentPreRunE ran.
type app struct {
	configPath string
	verbose    bool

	cfg     *config.Config
	secrets config.Secrets
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "zerotwo",
		Short: "Zero Two (Code 002) Discord companion bot",
		Long: `zerotwo runs the Zero Two persona bot.

Every reply goes through moderation, a Mistral completion and the response
shaper. Without a subcommand the bot is served.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "config.yml", "path to config.yml")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and answer messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}

	var seed int64
	var showStages bool
	shapeCmd := &cobra.Command{
		Use:   "shape [text]",
		Short: "Run raw completion text through the response shaper",
		Long: `Reads raw model output from the arguments, or from stdin when none are
given, and prints the reply the bot would send. Useful when tuning the
lexicon.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(bufio.NewReader(cmd.InOrStdin()))
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				raw = string(data)
			}
			return a.shape(cmd.OutOrStdout(), cmd.ErrOrStderr(), raw, seed, showStages)
		},
	}
	shapeCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one from the clock)")
	shapeCmd.Flags().BoolVar(&showStages, "stages", false, "print the stages that changed the text to stderr")

	banCmd := &cobra.Command{
		Use:   "ban <user_id>",
		Short: "Ban a user through the configured ban backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ban(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	listCmd := &cobra.Command{
		Use:   "bans",
		Short: "List banned user ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listBans(cmd.Context(), cmd.OutOrStdout())
		},
	}

	rootCmd.AddCommand(serveCmd, shapeCmd, banCmd, listCmd)
	return rootCmd
}

func (a *app) init() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg
	a.secrets = config.LoadSecrets()

	level := cfg.Logging.Level
	if a.verbose {
		level = "debug"
	}
	a.logger, err = logger.New(logger.Options{
		Level:       level,
		Environment: cfg.Logging.Environment,
		File:        cfg.Logging.File,
	})
	return err
}

func (a *app) shape(out, errOut io.Writer, raw string, seed int64, showStages bool) error {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sh, err := newShaper(a.cfg, lexicon.Default(), rand.New(rand.NewSource(seed)), a.logger)
	if err != nil {
		return err
	}

	res := sh.Shape(raw)
	if showStages {
		fmt.Fprintf(errOut, "changed by: %s\n", strings.Join(res.Changed, ", "))
	}
	_, err = fmt.Fprintln(out, res.Text)
	return err
}

func (a *app) ban(ctx context.Context, out io.Writer, userID string) error {
	persist, closeFn, err := newBanPersistence(ctx, a.cfg, a.secrets)
	if err != nil {
		return err
	}
	defer closeFn()

	bans := banstore.New(ctx, persist, a.logger)
	if err := bans.Ban(ctx, strings.TrimSpace(userID)); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Пользователь %s забанен (%d total)\n", userID, bans.Len())
	return err
}

func (a *app) listBans(ctx context.Context, out io.Writer) error {
	persist, closeFn, err := newBanPersistence(ctx, a.cfg, a.secrets)
	if err != nil {
		return err
	}
	defer closeFn()

	for _, id := range banstore.New(ctx, persist, a.logger).List() {
		if _, err := fmt.Fprintln(out, id); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) serve(ctx context.Context) error {
	if missing := a.secrets.Missing(a.cfg); len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	deps, err := newEngine(ctx, a.cfg, a.secrets, a.logger)
	if err != nil {
		return err
	}
	defer deps.close()

	handler := bot.NewHandler(deps.engine, a.secrets.AdminID, a.logger)

	dg, err := discordgo.New("Bot " + a.secrets.DiscordToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	// Handlers run in gateway order; the handler queues per user itself.
	dg.SyncEvents = true

	dg.AddHandler(handler.Ready)
	dg.AddHandler(handler.MessageCreate)
	dg.AddHandler(handler.InteractionCreate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	defer dg.Close()

	handler.SetBotID(dg.State.User.ID)

	guildID := a.secrets.DiscordGuildID
	registeredCommands, err := bot.RegisterSlashCommands(dg, guildID, a.logger)
	if err != nil {
		return fmt.Errorf("error registering slash commands: %w", err)
	}
	defer func() {
		if err := bot.UnregisterSlashCommands(dg, guildID, registeredCommands, a.logger); err != nil {
			a.logger.Warn("error unregistering slash commands", zap.Error(err))
		}
	}()

	a.logger.Info("Инициализация системы FRANXX... Zero Two is running, press CTRL-C to exit",
		zap.Int("banned", deps.bans.Len()))

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	select {
	case <-sc:
	case <-ctx.Done():
	}

	a.logger.Info("shutting down, waiting for in-flight replies")
	handler.Wait()
	return nil
}
