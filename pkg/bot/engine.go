package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"zerotwo/pkg/banstore"
	"zerotwo/pkg/lexicon"
	"zerotwo/pkg/mistral"
	"zerotwo/pkg/moderation"
	"zerotwo/pkg/session"
	"zerotwo/pkg/shaper"

	"go.uber.org/zap"
)

// Outcome says which branch of the pipeline produced a reply.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeTrigger
	OutcomeWarning
	OutcomeBan
	OutcomeCompletion
	OutcomeFailure
	OutcomeCritical
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeTrigger:
		return "trigger"
	case OutcomeWarning:
		return "warning"
	case OutcomeBan:
		return "ban"
	case OutcomeCompletion:
		return "completion"
	case OutcomeFailure:
		return "failure"
	case OutcomeCritical:
		return "critical"
	}
	return "unknown"
}

// Reply is what the transport should send back. Text is empty when the
// message is dropped.
type Reply struct {
	Text    string
	Outcome Outcome
}

type EngineOptions struct {
	Lexicon   *lexicon.Lexicon
	Safety    *moderation.SafetyClassifier
	Triggers  *moderation.TriggerInterceptor
	Prompts   *PromptBuilder
	Completer Completer
	Shaper    *shaper.Shaper
	Machine   *session.Machine
	Sessions  session.Store
	Bans      *banstore.Store
	Rand      shaper.Rand
	Logger    *zap.Logger
}

// Engine runs one inbound message through moderation, completion and
// shaping. It holds no per-user locks; callers serialise per user.
type Engine struct {
	lex       *lexicon.Lexicon
	safety    *moderation.SafetyClassifier
	triggers  *moderation.TriggerInterceptor
	prompts   *PromptBuilder
	completer Completer
	shaper    *shaper.Shaper
	machine   *session.Machine
	sessions  session.Store
	bans      *banstore.Store
	logger    *zap.Logger

	randMu sync.Mutex
	rand   shaper.Rand
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	switch {
	case opts.Lexicon == nil:
		return nil, fmt.Errorf("engine: lexicon is required")
	case opts.Safety == nil || opts.Triggers == nil:
		return nil, fmt.Errorf("engine: moderation is required")
	case opts.Prompts == nil || opts.Completer == nil || opts.Shaper == nil:
		return nil, fmt.Errorf("engine: completion pipeline is required")
	case opts.Machine == nil || opts.Sessions == nil || opts.Bans == nil:
		return nil, fmt.Errorf("engine: session state is required")
	case opts.Rand == nil:
		return nil, fmt.Errorf("engine: random source is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		lex:       opts.Lexicon,
		safety:    opts.Safety,
		triggers:  opts.Triggers,
		prompts:   opts.Prompts,
		completer: opts.Completer,
		shaper:    opts.Shaper,
		machine:   opts.Machine,
		sessions:  opts.Sessions,
		bans:      opts.Bans,
		logger:    logger,
		rand:      opts.Rand,
	}, nil
}

// Handle processes one message from userID. It never panics.
func (e *Engine) Handle(ctx context.Context, userID, text string) Reply {
	return e.HandleNotify(ctx, userID, text, nil)
}

// HandleNotify is Handle with a hook that runs just before the completion
// call. Banned, silenced, triggered and blocked messages never reach it.
func (e *Engine) HandleNotify(ctx context.Context, userID, text string, beforeCompletion func()) (reply Reply) {
	log := e.logger.With(zap.String("user_id", userID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling message", zap.Any("panic", r), zap.Stack("stack"))
			reply = Reply{Text: e.lex.Failures.Critical, Outcome: OutcomeCritical}
		}
	}()

	if e.bans.IsBanned(userID) {
		log.Debug("dropping message from banned user")
		return Reply{Outcome: OutcomeIgnored}
	}

	// A session that failed to load is answered from a blank record but never
	// written back, so the stored warnings and silence survive the outage.
	sess, err := e.sessions.Get(ctx, userID)
	detached := err != nil
	if detached {
		log.Error("failed to load session, answering without saving", zap.Error(err))
		sess = session.New(userID)
	}

	if e.machine.State(sess, false) == session.StateSilenced {
		log.Debug("dropping message from silenced user", zap.Time("silent_until", sess.SilentUntil))
		return Reply{Outcome: OutcomeIgnored}
	}

	if line, ok := e.triggers.Match(text); ok {
		return Reply{Text: line, Outcome: OutcomeTrigger}
	}

	if e.safety.IsUnsafe(text) {
		return e.moderate(ctx, log, sess, text, !detached)
	}

	messages := e.prompts.Build(sess.History, text)
	if beforeCompletion != nil {
		beforeCompletion()
	}
	raw, err := e.completer.ChatCompletion(ctx, messages)
	if err != nil {
		return Reply{Text: e.failureLine(log, err), Outcome: OutcomeFailure}
	}

	res := e.shaper.Shape(raw)
	log.Debug("reply shaped",
		zap.Strings("changed", res.Changed),
		zap.Bool("truncated", res.Truncated),
		zap.Bool("padded", res.Padded),
		zap.Bool("fell_back", res.FellBack),
		zap.Bool("emoji", res.EmojiAdded),
	)

	if !detached {
		e.machine.RecordExchange(sess, text, res.Text)
		e.save(ctx, log, sess)
	}
	return Reply{Text: res.Text, Outcome: OutcomeCompletion}
}

func (e *Engine) moderate(ctx context.Context, log *zap.Logger, sess *session.Session, text string, persist bool) Reply {
	verdict := e.machine.RecordViolation(sess)
	log.Warn("unsafe message",
		zap.String("category", e.safety.Category(text)),
		zap.Int("warnings", sess.WarningCount),
		zap.Stringer("verdict", verdict),
	)
	if persist {
		e.save(ctx, log, sess)
	}

	if verdict == session.VerdictBanned {
		if err := e.bans.Ban(ctx, sess.UserID); err != nil {
			log.Error("ban not persisted", zap.Error(err))
		}
		return Reply{Text: e.lex.BanReply, Outcome: OutcomeBan}
	}
	return Reply{Text: e.pick(e.lex.SafetyResponses), Outcome: OutcomeWarning}
}

func (e *Engine) failureLine(log *zap.Logger, err error) string {
	var apiErr *mistral.APIError
	var transportErr *mistral.TransportError

	switch {
	case errors.Is(err, mistral.ErrNoAPIKey):
		log.Error("completion failed", zap.String("kind", "missing_key"), zap.Error(err))
		return e.lex.Failures.MissingKey
	case errors.Is(err, mistral.ErrTimeout):
		log.Error("completion failed", zap.String("kind", "timeout"), zap.Error(err))
		return e.lex.Failures.Timeout
	case errors.As(err, &transportErr):
		log.Error("completion failed", zap.String("kind", "transport"), zap.Error(err))
		return e.lex.Failures.Connection
	case errors.As(err, &apiErr):
		log.Error("completion failed", zap.String("kind", "api"),
			zap.Int("status", apiErr.StatusCode), zap.String("body", apiErr.Body))
		return e.lex.Failures.API
	default:
		log.Error("completion failed", zap.String("kind", "unknown"), zap.Error(err))
		return e.lex.Failures.Critical
	}
}

func (e *Engine) save(ctx context.Context, log *zap.Logger, sess *session.Session) {
	if err := e.sessions.Put(ctx, sess); err != nil {
		log.Error("failed to save session", zap.Error(err))
	}
}

func (e *Engine) pick(pool []string) string {
	if len(pool) == 0 {
		return e.lex.FallbackReply
	}
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return pool[e.rand.Intn(len(pool))]
}

// ResetHistory forgets userID's conversation. Warnings and silence stay.
func (e *Engine) ResetHistory(ctx context.Context, userID string) error {
	sess, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	sess.ResetHistory()
	if err := e.sessions.Put(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Ban bans userID directly, bypassing the warning counter.
func (e *Engine) Ban(ctx context.Context, userID string) error {
	return e.bans.Ban(ctx, userID)
}

func (e *Engine) IsBanned(userID string) bool {
	return e.bans.IsBanned(userID)
}
