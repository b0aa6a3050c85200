package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	StartReply = "**Хи-хи~ Приветствую, пилот...** 😈\n" +
		"Готов к синхронизации в *Стрелиции*?"
	StartFailedReply = "💔 Треснуло ядро... опять..."
	BanUsageReply    = "Использование: /ban <user_id>"
	BanFailedReply   = "Ошибка при бане пользователя. Использование: /ban <user_id>"
	NotAdminReply    = "🚫 Только Верховный Совет может это сделать~"
)

var HelpReply = strings.Join([]string{
	"**Доступные команды:** 😈",
	"/start - Начать заново",
	"/help - Показать это сообщение",
	"",
	"**Примеры запросов:**",
	"• Почему я твой Любимый?",
	"• Давай сольёмся воедино!",
	"• Ты ведь монстр?",
}, "\n")

// SlashCommands defines all available slash commands
var SlashCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "start",
		Description: "Начать заново: забыть историю разговора",
	},
	{
		Name:        "help",
		Description: "Показать доступные команды",
	},
	{
		Name:        "ban",
		Description: "Забанить пользователя (только для администратора)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "user_id",
				Description: "ID пользователя",
				Required:    true,
			},
		},
	},
}

// SlashCommandHandlers maps command names to their handler functions
var SlashCommandHandlers = map[string]func(h *Handler, s Session, i *discordgo.InteractionCreate){
	"start": handleStartCommand,
	"help":  handleHelpCommand,
	"ban":   handleBanCommand,
}

func handleStartCommand(h *Handler, s Session, i *discordgo.InteractionCreate) {
	user, err := invoker(i)
	if err != nil {
		h.logger.Error("start command without user", zap.Error(err))
		return
	}
	userID := user.ID
	h.logger.Info("new user", zap.String("user_id", userID), zap.String("name", displayName(user)))

	unlock := h.locks.Lock(userID)
	defer unlock()

	content := StartReply
	if err := h.engine.ResetHistory(context.Background(), userID); err != nil {
		h.logger.Error("failed to reset history", zap.String("user_id", userID), zap.Error(err))
		content = StartFailedReply
	}
	respond(h, s, i, content, false)
}

func handleHelpCommand(h *Handler, s Session, i *discordgo.InteractionCreate) {
	respond(h, s, i, HelpReply, false)
}

// handleBanCommand only acts for the configured admin. Everyone else gets
// an ephemeral refusal.
func handleBanCommand(h *Handler, s Session, i *discordgo.InteractionCreate) {
	user, err := invoker(i)
	if err != nil || h.adminID == "" || user.ID != h.adminID {
		respond(h, s, i, NotAdminReply, true)
		return
	}

	target := ""
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "user_id" {
			target = strings.TrimSpace(opt.StringValue())
		}
	}
	if target == "" {
		respond(h, s, i, BanUsageReply, true)
		return
	}

	if err := h.engine.Ban(context.Background(), target); err != nil {
		h.logger.Error("admin ban failed", zap.String("target", target), zap.Error(err))
		if !h.engine.IsBanned(target) {
			respond(h, s, i, BanFailedReply, true)
			return
		}
	}
	h.logger.Info("user banned by admin", zap.String("target", target))
	respond(h, s, i, fmt.Sprintf("Пользователь %s забанен", target), true)
}

func respond(h *Handler, s Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		h.logger.Error("failed to respond to interaction", zap.Error(err))
	}
}

// InteractionCreate handles all slash command interactions off the event
// loop, since /start may wait for a reply in progress.
func (h *Handler) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.HandleInteraction(&DiscordSession{s}, i)
	}()
}

func (h *Handler) HandleInteraction(s Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	commandName := i.ApplicationCommandData().Name
	if handler, ok := SlashCommandHandlers[commandName]; ok {
		handler(h, s, i)
	} else {
		h.logger.Warn("unknown slash command", zap.String("name", commandName))
	}
}

// RegisterSlashCommands registers all slash commands with Discord
func RegisterSlashCommands(s *discordgo.Session, guildID string, logger *zap.Logger) ([]*discordgo.ApplicationCommand, error) {
	registeredCommands := make([]*discordgo.ApplicationCommand, len(SlashCommands))

	for i, cmd := range SlashCommands {
		registeredCmd, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, cmd)
		if err != nil {
			return nil, fmt.Errorf("cannot create %q command: %w", cmd.Name, err)
		}
		registeredCommands[i] = registeredCmd
		logger.Info("registered command", zap.String("name", cmd.Name))
	}

	return registeredCommands, nil
}

// UnregisterSlashCommands removes all registered slash commands
func UnregisterSlashCommands(s *discordgo.Session, guildID string, commands []*discordgo.ApplicationCommand, logger *zap.Logger) error {
	for _, cmd := range commands {
		if cmd == nil {
			continue
		}
		if err := s.ApplicationCommandDelete(s.State.User.ID, guildID, cmd.ID); err != nil {
			return fmt.Errorf("cannot delete %q command: %w", cmd.Name, err)
		}
		logger.Info("unregistered command", zap.String("name", cmd.Name))
	}
	return nil
}
