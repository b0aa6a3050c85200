// Package lexicon holds the static tables Zero Two's replies are built from:
// terminology rewrites, safety patterns, trigger phrases, the allowed
// character set and the canned response pools.
//
// A Lexicon is plain data. Nothing in here mutates it after construction, so
// a single value can be shared between goroutines.
package lexicon

// Rule is one ordered rewrite. Literal rules are matched as whole words,
// case-insensitively. Regex rules are used as written (already anchored).
// An empty Replacement deletes the match.
type Rule struct {
	Pattern     string
	Replacement string
	Regex       bool
}

// SafetyCategory groups patterns for logging; callers only see the
// aggregate verdict.
type SafetyCategory struct {
	Name    string
	Pattern string
}

// Trigger is a keyword that short-circuits the pipeline with a scripted line.
type Trigger struct {
	Keyword string
	Reply   string
}

// FailureLines are the in-persona replies for each failure kind.
type FailureLines struct {
	Timeout    string
	Connection string
	API        string
	MissingKey string
	Critical   string
}

type Lexicon struct {
	// Delimiter is the "trailing-off" marker the model is prompted to use.
	Delimiter string

	TerminologyRules []Rule
	ReplaceRules     []Rule
	SafetyCategories []SafetyCategory
	Triggers         []Trigger
	ContinueTriggers []string

	// AllowedPunctuation and AllowedEmojis extend letters, digits, '_'
	// and whitespace in the final character filter.
	AllowedPunctuation string
	AllowedEmojis      []string
	// DecorativeEmojis are appended at random after shaping.
	DecorativeEmojis []string

	SafetyResponses    []string
	ProvocativePhrases []string
	BanReply           string
	FallbackReply      string
	Failures           FailureLines
}

// Default returns the Darling in the FRANXX tables the bot ships with.
func Default() *Lexicon {
	return &Lexicon{
		Delimiter: "~",
		TerminologyRules: []Rule{
			{Pattern: `\b(франкс)(ами|ов)\b`, Replacement: "рёвозаврами", Regex: true},
			{Pattern: `\bразруш[а-я]+\b`, Replacement: "уничтожение ядер", Regex: true},
			{Pattern: `\bсоперник\b`, Replacement: "рёвозавр", Regex: true},
			{Pattern: `\bклон\b`, Replacement: "гибрид", Regex: true},
		},
		ReplaceRules: []Rule{
			{Pattern: "work in progress", Replacement: "работа в процессе"},
			{Pattern: "especially", Replacement: "особенно"},
			{Pattern: "human", Replacement: "человек"},
			{Pattern: "Franxx", Replacement: "Франкс"},
			{Pattern: "more", Replacement: "больше"},
			{Pattern: "progress", Replacement: "прогресс"},
			{Pattern: "лузер", Replacement: "новичок"},
			{Pattern: "жалкий", Replacement: "беззащитный"},
			{Pattern: "teбя", Replacement: "тебя"},
			{Pattern: "tебя", Replacement: "тебя"},
			{Pattern: "TBя", Replacement: "тебя"},
			{Pattern: "чto", Replacement: "что"},
			{Pattern: "чmo", Replacement: "что"},
			{Pattern: "андроид", Replacement: "гибрид"},
			{Pattern: "виртуальн", Replacement: ""},
			{Pattern: "робот", Replacement: "паразит"},
			{Pattern: "программ", Replacement: ""},
			{Pattern: `\bк[её]рю\b`, Replacement: "рёвозавр", Regex: true},
			{Pattern: `\bklaxo(saur)?\b`, Replacement: "рёвозавр", Regex: true},
			{Pattern: `\bклонозавр\b`, Replacement: "рёвозавр", Regex: true},
			{Pattern: `\bстамер\b`, Replacement: "тычинка", Regex: true},
			{Pattern: `\bпаразит\b`, Replacement: "пестик", Regex: true},
			{Pattern: `\bсаддл\b`, Replacement: "кабина Франкса", Regex: true},
			{Pattern: `\bAPE\b`, Replacement: "Верховный Совет", Regex: true},
			{Pattern: `\bстрелиция\b`, Replacement: "Стрелиция", Regex: true},
			{Pattern: `\bмех\b`, Replacement: "Франкс", Regex: true},
		},
		SafetyCategories: []SafetyCategory{
			{Name: "sexual", Pattern: `\b(минет|грудь|сиськи|уебать|хер|пенис|секс|порно|эротика)\b`},
			{Name: "ethnic_slur", Pattern: `\b(китаез|чурок|япошек|кореец|негр|черномазый|узкоглазый)\b`},
			{Name: "hate_speech", Pattern: `\b(расизм|нацист|геи|лгбт|фашист|гомосек|пидор)\b`},
		},
		Triggers: []Trigger{
			{Keyword: "рог", Reply: "*лёгкое касание рогов* Ты ведь знаешь, что это... интимно?"},
			{Keyword: "ядро", Reply: "Моя голубая кровь рёвозавра... Хочешь попробовать? 💉"},
			{Keyword: "клубника", Reply: "*подаёт клубнику на лезвии* Сладкая опасность от Верховного Совета~"},
		},
		ContinueTriggers:   []string{"продолжи", "продолжай", "дальше", "и?", "расскажи", "что еще"},
		AllowedPunctuation: ",.!?~…*-",
		AllowedEmojis:      []string{"💋", "😈", "\u2764\ufe0f", "🔥"},
		DecorativeEmojis:   []string{"😈", "💥", "\u2764\ufe0f\U0001F525", "💋"},
		SafetyResponses: []string{
			"Хи-хи~ Рога начинают гореть... Прекрати, а то сожгу дотла~ 🔥",
			"Ой, тычинка... Ты же не хочешь увидеть истинную форму рёвозавра? 😈",
			"Так близко к ядру Кёрю... Опасно играешь, Код 016~",
		},
		ProvocativePhrases: []string{
			"Не скучаешь ведь?..",
			"Слабо повторить?..",
			"Или ты не готов?..",
			"Узнаешь свою судьбу~",
		},
		BanReply:      "🚫 Синхронизация разорвана~",
		FallbackReply: "Хи-хи~ Повтори, я отвлеклась на ядро рёвозавра~ 💋",
		Failures: FailureLines{
			Timeout:    "⏱️ Время синхронизации истекло... попробуй снова~",
			Connection: "🌐 Проблемы с подключением к Верховному Совету...",
			API:        "💥 Системный сбой... попробуй снова~",
			MissingKey: "💥 Системный сбой... API ключ не найден",
			Critical:   "💔 Критическое повреждение... опять...",
		},
	}
}
