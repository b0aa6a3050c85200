package bot

import (
	"context"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Handler adapts Discord events to the Engine. Messages from one user are
// processed one at a time in arrival order; different users run in
// parallel. Arrival order is the order MessageCreate is called in, so the
// session must deliver events synchronously.
type Handler struct {
	engine  *Engine
	botID   string
	adminID string
	queue   *userQueue
	locks   *keyedMutex
	wg      sync.WaitGroup
	logger  *zap.Logger
}

func NewHandler(engine *Engine, adminID string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine:  engine,
		adminID: adminID,
		queue:   newUserQueue(),
		locks:   newKeyedMutex(),
		logger:  logger,
	}
}

func (h *Handler) SetBotID(id string) {
	h.botID = id
}

func (h *Handler) Ready(s *discordgo.Session, r *discordgo.Ready) {
	h.SetBotID(r.User.ID)
	h.logger.Info("connected to Discord", zap.String("bot_id", r.User.ID), zap.Int("guilds", len(r.Guilds)))
	SetStatus(&DiscordSession{s}, h.logger)
}

func (h *Handler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	h.Enqueue(&DiscordSession{s}, m)
}

// Enqueue schedules m behind any earlier messages from the same author.
func (h *Handler) Enqueue(s Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}
	h.queue.Submit(m.Author.ID, func() {
		h.HandleMessage(s, m)
	})
}

// Wait blocks until every in-flight message and interaction has been
// answered.
func (h *Handler) Wait() {
	h.queue.Wait()
	h.wg.Wait()
}

func (h *Handler) HandleMessage(s Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == h.botID {
		return
	}

	channel, err := s.Channel(m.ChannelID)
	isDM := err == nil && channel.Type == discordgo.ChannelTypeDM

	isMentioned := false
	for _, user := range m.Mentions {
		if user.ID == h.botID {
			isMentioned = true
			break
		}
	}

	if !isDM && !isMentioned {
		return
	}

	text := h.stripMention(m.Content)
	if text == "" {
		return
	}

	unlock := h.locks.Lock(m.Author.ID)
	defer unlock()

	typing := func() {
		if err := s.ChannelTyping(m.ChannelID); err != nil {
			h.logger.Debug("typing indicator failed", zap.Error(err))
		}
	}
	reply := h.engine.HandleNotify(context.Background(), m.Author.ID, text, typing)
	h.logger.Debug("message handled",
		zap.String("user_id", m.Author.ID),
		zap.Stringer("outcome", reply.Outcome),
	)
	if reply.Text == "" {
		return
	}

	if _, err := s.ChannelMessageSendReply(m.ChannelID, reply.Text, m.Reference()); err != nil {
		h.logger.Error("failed to send reply", zap.String("channel_id", m.ChannelID), zap.Error(err))
	}
}

func (h *Handler) stripMention(content string) string {
	if h.botID != "" {
		content = strings.ReplaceAll(content, "<@"+h.botID+">", "")
		content = strings.ReplaceAll(content, "<@!"+h.botID+">", "")
	}
	return strings.TrimSpace(content)
}
