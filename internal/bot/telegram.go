package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxAlbumSize       = 10
	longPollingTimeout = 30
)

// API is the subset of tgbotapi.BotAPI used by the shop.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMediaGroup(c tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// NewAPI connects to Telegram Bot API with token.
func NewAPI(token string, logger *slog.Logger) (API, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	logger.Info("telegram bot authorized", slog.String("username", api.Self.UserName))
	return api, nil
}

// TelegramMessenger renders replies with Telegram Bot API.
type TelegramMessenger struct {
	api API
}

// NewTelegramMessenger constructs messenger.
func NewTelegramMessenger(api API) *TelegramMessenger {
	return &TelegramMessenger{api: api}
}

func (m *TelegramMessenger) SendText(ctx context.Context, chatID int64, text string) error {
	return m.Send(ctx, Reply{ChatID: chatID, Text: text})
}

func (m *TelegramMessenger) Send(ctx context.Context, reply Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(reply.ChatID, reply.Text)
	switch {
	case len(reply.Inline) > 0:
		msg.ReplyMarkup = inlineKeyboard(reply.Inline)
	case len(reply.Menu) > 0:
		msg.ReplyMarkup = menuKeyboard(reply.Menu)
	}
	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (m *TelegramMessenger) SendAlbum(ctx context.Context, chatID int64, fileIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(fileIDs) > maxAlbumSize {
		fileIDs = fileIDs[:maxAlbumSize]
	}
	switch len(fileIDs) {
	case 0:
		return nil
	case 1:
		if _, err := m.api.Send(tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileIDs[0]))); err != nil {
			return fmt.Errorf("send photo: %w", err)
		}
		return nil
	}
	media := make([]interface{}, 0, len(fileIDs))
	for _, id := range fileIDs {
		media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(id)))
	}
	if _, err := m.api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media)); err != nil {
		return fmt.Errorf("send album: %w", err)
	}
	return nil
}

func (m *TelegramMessenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func (m *TelegramMessenger) AnswerPreCheckout(ctx context.Context, queryID, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	answer := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 reason == "",
		ErrorMessage:       reason,
	}
	if _, err := m.api.Request(answer); err != nil {
		return fmt.Errorf("answer pre-checkout: %w", err)
	}
	return nil
}

func inlineKeyboard(rows [][]Button) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

func menuKeyboard(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	keyboard := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, text := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(text))
		}
		keyboard = append(keyboard, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	markup := tgbotapi.NewReplyKeyboard(keyboard...)
	markup.ResizeKeyboard = true
	return markup
}

// Poller receives updates with long polling and hands them to dispatcher.
type Poller struct {
	api        API
	dispatcher *Dispatcher
	logger     *slog.Logger

	wg       sync.WaitGroup
	mu       sync.Mutex
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewPoller constructs long polling receiver.
func NewPoller(api API, dispatcher *Dispatcher, logger *slog.Logger) *Poller {
	return &Poller{api: api, dispatcher: dispatcher, logger: logger}
}

// Start begins receiving updates until Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = longPollingTimeout
	updates := p.api.GetUpdatesChan(cfg)

	p.wg.Add(1)
	go p.receive(runCtx, updates)
}

func (p *Poller) receive(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			ev, ok := FromUpdate(update)
			if !ok {
				p.logger.Debug("unsupported update skipped", slog.Int("update_id", update.UpdateID))
				continue
			}
			if err := p.dispatcher.Dispatch(ctx, ev); err != nil {
				p.logger.Warn("update dropped", slog.Int("update_id", update.UpdateID), slog.String("error", err.Error()))
			}
		}
	}
}

// Stop halts long polling and waits for receiver to exit.
func (p *Poller) Stop() {
	p.stopOnce.Do(p.api.StopReceivingUpdates)

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}
