package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pajangan-promoshot/internal/dataurl"
)

// Telegram refuses albums with more than ten items.
const maxAlbumSize = 10

type Options struct {
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Debug      bool
}

type Client struct {
	bot        *tgbotapi.BotAPI
	httpClient *http.Client
	logger     *slog.Logger
}

// Button is one inline keyboard button; Data is returned in the callback.
type Button struct {
	Text string
	Data string
}

type Keyboard [][]Button

// File is an image to upload under Name.
type File struct {
	Name    string
	DataURL string
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if opts.HTTPClient == nil {
		return nil, errors.New("http client is nil")
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, tgbotapi.APIEndpoint, opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	bot.Debug = opts.Debug

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		bot:        bot,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}, nil
}

func (c *Client) Username() string {
	return c.bot.Self.UserName
}

type Update = tgbotapi.Update

type UpdatesOptions struct {
	Timeout time.Duration
}

func (c *Client) Updates(opts UpdatesOptions) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	if opts.Timeout > 0 {
		u.Timeout = int(opts.Timeout.Seconds())
	} else {
		u.Timeout = 30
	}
	u.AllowedUpdates = []string{"message", "callback_query"}
	return c.bot.GetUpdatesChan(u)
}

func (c *Client) StopUpdates() {
	c.bot.StopReceivingUpdates()
}

func (c *Client) SendTyping(chatID int64) {
	_, _ = c.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatUploadPhoto))
}

func (c *Client) SendText(chatID int64, text string) error {
	for _, p := range splitByBytes(text, 4096) {
		if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, p)); err != nil {
			return err
		}
	}
	return nil
}

// SendMenu sends text with an inline keyboard attached.
func (c *Client) SendMenu(chatID int64, text string, kb Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, truncateByBytes(text, 4096))
	if markup, ok := toMarkup(kb); ok {
		msg.ReplyMarkup = markup
	}
	_, err := c.bot.Send(msg)
	return err
}

// EditMenu replaces the text and keyboard of an existing menu message.
func (c *Client) EditMenu(chatID int64, messageID int, text string, kb Keyboard) error {
	markup, _ := toMarkup(kb)
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, truncateByBytes(text, 4096), markup)
	_, err := c.bot.Request(edit)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func (c *Client) AnswerCallback(callbackID, text string) error {
	_, err := c.bot.Request(tgbotapi.NewCallback(callbackID, truncateByBytes(text, 200)))
	return err
}

// SendAlbum uploads files as document albums so the suggested names are
// kept. The caption goes on the first item.
func (c *Client) SendAlbum(chatID int64, files []File, caption string) error {
	if len(files) == 0 {
		return errors.New("album is empty")
	}

	for start := 0; start < len(files); start += maxAlbumSize {
		end := min(start+maxAlbumSize, len(files))

		media := make([]interface{}, 0, end-start)
		for i, f := range files[start:end] {
			_, data, err := dataurl.Decode(f.DataURL, "image/png")
			if err != nil {
				return fmt.Errorf("album item %d: %w", start+i+1, err)
			}

			doc := tgbotapi.NewInputMediaDocument(tgbotapi.FileBytes{Name: f.Name, Bytes: data})
			if start == 0 && i == 0 && caption != "" {
				doc.Caption = truncateByBytes(caption, 1024)
			}
			media = append(media, doc)
		}

		if _, err := c.bot.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media)); err != nil {
			return err
		}
	}

	c.logger.Debug("album sent", "chat_id", chatID, "files", len(files))
	return nil
}

// Download fetches a file by id and returns its bytes together with the
// MIME type the file server reported.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, string, error) {
	fileURL, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, "", fmt.Errorf("telegram file download %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, dataurl.CleanMime(resp.Header.Get("content-type")), nil
}

func toMarkup(kb Keyboard) (tgbotapi.InlineKeyboardMarkup, bool) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		if len(row) == 0 {
			continue
		}
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func splitByBytes(text string, maxBytes int) []string {
	if len(text) <= maxBytes || maxBytes <= 0 {
		return []string{text}
	}

	var out []string
	var buf strings.Builder
	buf.Grow(maxBytes)

	for _, r := range text {
		runeBytes := utf8.RuneLen(r)
		if runeBytes < 0 {
			runeBytes = len(string(r))
		}

		if buf.Len() > 0 && buf.Len()+runeBytes > maxBytes {
			out = append(out, buf.String())
			buf.Reset()
		}
		buf.WriteRune(r)
	}

	if buf.Len() > 0 {
		out = append(out, buf.String())
	}

	return out
}

func truncateByBytes(text string, maxBytes int) string {
	if len(text) <= maxBytes || maxBytes <= 0 {
		return text
	}

	var buf strings.Builder
	buf.Grow(maxBytes)
	for _, r := range text {
		runeBytes := utf8.RuneLen(r)
		if runeBytes < 0 {
			runeBytes = len(string(r))
		}

		if buf.Len()+runeBytes > maxBytes {
			break
		}
		buf.WriteRune(r)
	}
	return buf.String()
}
