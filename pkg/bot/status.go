package bot

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const statusText = "Синхронизация со Стрелицией 😈"

// SetStatus shows Zero Two's custom presence.
func SetStatus(s Session, logger *zap.Logger) {
	err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{
				Name:  "Strelitzia",
				Type:  discordgo.ActivityTypeCustom,
				State: statusText,
				Emoji: discordgo.Emoji{Name: "😈"},
			},
		},
		Status: "online",
		AFK:    false,
	})
	if err != nil {
		logger.Warn("failed to update status", zap.Error(err))
	}
}
