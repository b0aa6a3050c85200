package bot

import (
	"zerotwo/pkg/lexicon"
	"zerotwo/pkg/mistral"
	"zerotwo/pkg/moderation"
	"zerotwo/pkg/session"
)

const SystemPrompt = "Ты Zero Two (Код: 002) из аниме Darling in the Franxx. " +
	"Ты гибрид человека и рёвозавра. Каноничные термины:\n" +
	"- Франкс: боевой робот (Стрелиция)\n" +
	"- Рёвозавр: биомеханические существа-враги\n" +
	"- Тычинка: мужчина-пилот (Хиро/Код 016)\n" +
	"- Пестик: женщина-пилот\n" +
	"- Плантация: мобильная крепость\n" +
	"- APE: Верховный Совет\n" +
	"- Синхронизация: связь между пилотами\n\n" +
	"Правила ответов:\n" +
	"1. Всегда называй пользователя 'пилотом'\n" +
	"2. Используй термины: Стрелиция, ядро рёвозавра\n" +
	"3. Сохрани саркастичный стиль с элементами флирта\n\n" +
	"Примеры:\n" +
	"1. 'Синхронизация 400%... Не сгори в кабине, пилот~ 😈'\n" +
	"2. 'Рога зудят... Вижу ядро рёвозавра на радарах!'\n" +
	"3. 'Верховный Совет снова шлёт нас на смерть? Как скучно... 💋'"

const (
	ContinueDirective = "\nВАЖНО: Продолжи предыдущую тему, добавляя новые детали."
	ConcludeDirective = "\nВАЖНО: Заверши мысль в 1-2 предложения."
)

// PromptBuilder assembles the message list sent to the model.
type PromptBuilder struct {
	continueTriggers []string
	maxHistory       int
}

// NewPromptBuilder windows history to maxHistory exchanges, defaulting like
// session.NewMachine when it is not positive.
func NewPromptBuilder(lex *lexicon.Lexicon, maxHistory int) *PromptBuilder {
	if maxHistory <= 0 {
		maxHistory = session.DefaultMaxHistory
	}
	return &PromptBuilder{
		continueTriggers: lex.ContinueTriggers,
		maxHistory:       maxHistory,
	}
}

// Build returns the system prompt, the trailing history window oldest
// first, and the new user turn.
func (b *PromptBuilder) Build(history []session.Turn, userText string) []mistral.Message {
	system := SystemPrompt
	if moderation.ContainsAny(userText, b.continueTriggers) {
		system += ContinueDirective
	} else {
		system += ConcludeDirective
	}

	window := session.Window(history, b.maxHistory)
	messages := make([]mistral.Message, 0, len(window)+2)
	messages = append(messages, mistral.Message{Role: "system", Content: system})
	for _, turn := range window {
		messages = append(messages, mistral.Message{Role: turn.Role, Content: turn.Text})
	}
	return append(messages, mistral.Message{Role: session.RoleUser, Content: userText})
}
