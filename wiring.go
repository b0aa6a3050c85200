package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"zerotwo/pkg/banstore"
	"zerotwo/pkg/bot"
	"zerotwo/pkg/cache"
	"zerotwo/pkg/config"
	"zerotwo/pkg/lexicon"
	"zerotwo/pkg/mistral"
	"zerotwo/pkg/moderation"
	"zerotwo/pkg/morph"
	"zerotwo/pkg/session"
	"zerotwo/pkg/shaper"
	"zerotwo/pkg/surreal"

	"go.uber.org/zap"
)

func newShaper(cfg *config.Config, lex *lexicon.Lexicon, rnd shaper.Rand, log *zap.Logger) (*shaper.Shaper, error) {
	classifier := morph.NewCachedClassifier(morph.NewScriptClassifier(), cfg.Shaping.ClassifierCache, log)
	sh, err := shaper.New(lex, shaper.Options{
		MaxSentences:     cfg.Shaping.MaxSentences,
		MinWords:         cfg.Shaping.MinWords,
		MaxWords:         cfg.Shaping.MaxWords,
		EmojiProbability: cfg.Shaping.EmojiProbability,
	}, rnd, classifier, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build shaper: %w", err)
	}
	return sh, nil
}

func noop() {}

// newBanPersistence opens the configured ban backend. The returned func
// releases any connection it opened.
func newBanPersistence(ctx context.Context, cfg *config.Config, secrets config.Secrets) (banstore.Persistence, func(), error) {
	switch cfg.Storage.BanBackend {
	case config.BackendRedis:
		c, err := cache.NewRedisCache(secrets.RedisURL, cfg.Storage.RedisPrefix)
		if err != nil {
			return nil, noop, err
		}
		return banstore.NewRedisPersistence(c), func() { _ = c.Close() }, nil

	case config.BackendSurreal:
		db, err := surreal.NewClient(ctx, secrets.SurrealHost, secrets.SurrealUser, secrets.SurrealPass,
			cfg.Storage.SurrealNamespace, cfg.Storage.SurrealDatabase)
		if err != nil {
			return nil, noop, err
		}
		p, err := banstore.NewSurrealPersistence(db, cfg.Storage.SurrealTable)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		return p, db.Close, nil

	default:
		return banstore.NewFilePersistence(cfg.Storage.BanFile), noop, nil
	}
}

func newSessionStore(cfg *config.Config, secrets config.Secrets) (session.Store, func(), error) {
	if cfg.Storage.SessionBackend != config.BackendRedis {
		return session.NewMemoryStore(), noop, nil
	}
	c, err := cache.NewRedisCache(secrets.RedisURL, cfg.Storage.RedisPrefix)
	if err != nil {
		return nil, noop, err
	}
	return session.NewRedisStore(c), func() { _ = c.Close() }, nil
}

type engineDeps struct {
	engine  *bot.Engine
	bans    *banstore.Store
	closers []func()
}

func (d *engineDeps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// newEngine builds the full message pipeline from config.
func newEngine(ctx context.Context, cfg *config.Config, secrets config.Secrets, log *zap.Logger) (_ *engineDeps, err error) {
	deps := &engineDeps{}
	defer func() {
		if err != nil {
			deps.close()
		}
	}()

	lex := lexicon.Default()
	seed := time.Now().UnixNano()

	safety, err := moderation.NewSafetyClassifier(lex, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build safety classifier: %w", err)
	}
	sh, err := newShaper(cfg, lex, rand.New(rand.NewSource(seed)), log)
	if err != nil {
		return nil, err
	}

	persist, closeBans, err := newBanPersistence(ctx, cfg, secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to open ban backend: %w", err)
	}
	deps.closers = append(deps.closers, closeBans)
	deps.bans = banstore.New(ctx, persist, log)

	sessions, closeSessions, err := newSessionStore(cfg, secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to open session backend: %w", err)
	}
	deps.closers = append(deps.closers, closeSessions)

	completer := mistral.NewClient(secrets.MistralAPIKey, mistral.Config{
		BaseURL:          cfg.ModelSettings.BaseURL,
		Model:            cfg.ModelSettings.Model,
		Temperature:      cfg.ModelSettings.Temperature,
		MaxTokens:        cfg.ModelSettings.MaxTokens,
		FrequencyPenalty: cfg.ModelSettings.FrequencyPenalty,
		PresencePenalty:  cfg.ModelSettings.PresencePenalty,
		Timeout:          cfg.Timeout(),
	}, log)

	deps.engine, err = bot.NewEngine(bot.EngineOptions{
		Lexicon:   lex,
		Safety:    safety,
		Triggers:  moderation.NewTriggerInterceptor(lex),
		Prompts:   bot.NewPromptBuilder(lex, cfg.Shaping.MaxHistory),
		Completer: completer,
		Shaper:    sh,
		Machine:   session.NewMachine(cfg.Moderation.WarnLimit, cfg.SilentTimeout(), cfg.Shaping.MaxHistory),
		Sessions:  sessions,
		Bans:      deps.bans,
		Rand:      rand.New(rand.NewSource(seed + 1)),
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	return deps, nil
}
