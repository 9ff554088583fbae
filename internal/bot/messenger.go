package bot

import "context"

// Button is an inline keyboard button carrying callback data.
type Button struct {
	Text string
	Data string
}

// Reply is an outgoing text message with optional keyboards.
type Reply struct {
	ChatID int64
	Text   string
	// Inline is attached under the message.
	Inline [][]Button
	// Menu replaces persistent reply keyboard.
	Menu [][]string
}

// Messenger delivers replies to users.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	Send(ctx context.Context, reply Reply) error
	SendAlbum(ctx context.Context, chatID int64, fileIDs []string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	// AnswerPreCheckout accepts query when reason is empty and rejects it otherwise.
	AnswerPreCheckout(ctx context.Context, queryID, reason string) error
}
