package channel

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/leilabot/leila/internal/bus"
	"github.com/leilabot/leila/internal/config"
)

const telegramChannelName = "telegram"

// TelegramBot interface for mocking telegram bot API
type TelegramBot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetSelf() tgbotapi.User
}

// tgBotWrapper wraps tgbotapi.BotAPI to implement TelegramBot interface
type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return w.bot.GetUpdatesChan(config)
}

func (w *tgBotWrapper) StopReceivingUpdates() {
	w.bot.StopReceivingUpdates()
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates TelegramBot instances (allows mocking)
type BotFactory func(token, apiEndpoint string, client *http.Client) (TelegramBot, error)

var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

// TelegramChannel polls Telegram for updates and captures the
// addressing signals the gate needs: chat kind, explicit @-mentions,
// replies to the bot's own messages and a leading persona name.
type TelegramChannel struct {
	BaseChannel
	token        string
	proxy        string
	personaNames []string
	bot          TelegramBot
	cancel       context.CancelFunc
	botFactory   BotFactory
}

func NewTelegramChannel(cfg config.TelegramConfig, personaNames []string, b *bus.MessageBus) (*TelegramChannel, error) {
	return NewTelegramChannelWithFactory(cfg, personaNames, b, defaultBotFactory)
}

// NewTelegramChannelWithFactory creates a TelegramChannel with custom bot factory (for testing)
func NewTelegramChannelWithFactory(cfg config.TelegramConfig, personaNames []string, b *bus.MessageBus, factory BotFactory) (*TelegramChannel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	names := make([]string, 0, len(personaNames))
	for _, n := range personaNames {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			names = append(names, n)
		}
	}

	ch := &TelegramChannel{
		BaseChannel:  NewBaseChannel(telegramChannelName, b, cfg.AllowFrom),
		token:        cfg.Token,
		proxy:        cfg.Proxy,
		personaNames: names,
		botFactory:   factory,
	}
	return ch, nil
}

func (t *TelegramChannel) initBot() error {
	client := http.DefaultClient
	if t.proxy != "" {
		proxyURL, err := url.Parse(t.proxy)
		if err != nil {
			return fmt.Errorf("parse proxy url: %w", err)
		}
		client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	bot, err := t.botFactory(t.token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	t.bot = bot
	log.Printf("[telegram] authorized as @%s", bot.GetSelf().UserName)
	return nil
}

func (t *TelegramChannel) Start(ctx context.Context) error {
	if err := t.initBot(); err != nil {
		return err
	}

	ctx, t.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case update := <-updates:
				if update.Message == nil {
					continue
				}
				t.handleMessage(update.Message)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Printf("[telegram] polling started")
	return nil
}

func (t *TelegramChannel) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	senderID := strconv.FormatInt(msg.From.ID, 10)

	if !t.IsAllowed(senderID) {
		log.Printf("[telegram] rejected message from %s (%s)", senderID, msg.From.UserName)
		return
	}

	content := msg.Text
	if content == "" && msg.Caption != "" {
		content = msg.Caption
	}
	if content == "" {
		return
	}

	kind := bus.ChatGroup
	if msg.Chat.IsPrivate() {
		kind = bus.ChatPrivate
	}

	self := t.bot.GetSelf()

	t.bus.Inbound <- bus.InboundMessage{
		Channel:    telegramChannelName,
		SenderID:   senderID,
		SenderName: senderName(msg.From),
		ChatID:     strconv.FormatInt(msg.Chat.ID, 10),
		ChatKind:   kind,
		Content:    content,
		Mentioned:  t.mentionsBot(msg, self.UserName),
		ReplyToBot: repliesToBot(msg, self.ID),
		Timestamp:  time.Unix(int64(msg.Date), 0),
		Metadata: map[string]any{
			"username":   msg.From.UserName,
			"message_id": msg.MessageID,
		},
	}
}

func senderName(from *tgbotapi.User) string {
	name := strings.TrimSpace(from.FirstName)
	if name == "" {
		name = from.UserName
	}
	return name
}

// mentionsBot reports an explicit address: an @-mention entity naming
// the bot, or the message opening with one of the persona's names.
func (t *TelegramChannel) mentionsBot(msg *tgbotapi.Message, botUserName string) bool {
	if botUserName != "" {
		tag := "@" + strings.ToLower(botUserName)
		for _, e := range msg.Entities {
			if e.Type != "mention" {
				continue
			}
			if strings.ToLower(entityText(msg.Text, e)) == tag {
				return true
			}
		}
	}

	lower := strings.ToLower(strings.TrimSpace(msg.Text))
	for _, name := range t.personaNames {
		if !strings.HasPrefix(lower, name) {
			continue
		}
		rest := lower[len(name):]
		if rest == "" || strings.HasPrefix(rest, " ") || strings.HasPrefix(rest, ",") ||
			strings.HasPrefix(rest, "!") || strings.HasPrefix(rest, "?") || strings.HasPrefix(rest, ":") {
			return true
		}
	}
	return false
}

// entityText slices an entity out of the message text. Entity offsets
// count UTF-16 code units.
func entityText(text string, e tgbotapi.MessageEntity) string {
	var b strings.Builder
	idx := 0
	for _, r := range text {
		if idx >= e.Offset && idx < e.Offset+e.Length {
			b.WriteRune(r)
		}
		if r > 0xFFFF {
			idx += 2
		} else {
			idx++
		}
	}
	return b.String()
}

func repliesToBot(msg *tgbotapi.Message, selfID int64) bool {
	return msg.ReplyToMessage != nil &&
		msg.ReplyToMessage.From != nil &&
		msg.ReplyToMessage.From.ID == selfID
}

func (t *TelegramChannel) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	log.Printf("[telegram] stopped")
	return nil
}

// SetBot sets the bot (for testing)
func (t *TelegramChannel) SetBot(bot TelegramBot) {
	t.bot = bot
}

// Send delivers plain text, splitting long replies below Telegram's
// 4096 char limit at newline boundaries where possible.
func (t *TelegramChannel) Send(msg bus.OutboundMessage) error {
	if t.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}

	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", msg.ChatID, err)
	}

	content := msg.Content
	const maxLen = 4000
	for len(content) > 0 {
		chunk := content
		if len(chunk) > maxLen {
			idx := strings.LastIndex(chunk[:maxLen], "\n")
			if idx > 0 {
				chunk = chunk[:idx]
			} else {
				chunk = chunk[:maxLen]
			}
		}
		content = content[len(chunk):]

		tgMsg := tgbotapi.NewMessage(chatID, chunk)
		if msg.ReplyTo != "" {
			if replyID, err := strconv.Atoi(msg.ReplyTo); err == nil {
				tgMsg.ReplyToMessageID = replyID
			}
		}
		if _, err := t.bot.Send(tgMsg); err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
	}
	return nil
}
