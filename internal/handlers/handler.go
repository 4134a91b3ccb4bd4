package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"pajangan-promoshot/internal/imageproc"
	"pajangan-promoshot/internal/mediagroup"
	"pajangan-promoshot/internal/messages"
	"pajangan-promoshot/internal/promo"
	"pajangan-promoshot/internal/session"
	"pajangan-promoshot/internal/telegram"
)

// Messenger is the part of the Telegram client the handler talks to.
type Messenger interface {
	SendTyping(chatID int64)
	SendText(chatID int64, text string) error
	SendMenu(chatID int64, text string, kb telegram.Keyboard) error
	EditMenu(chatID int64, messageID int, text string, kb telegram.Keyboard) error
	AnswerCallback(callbackID, text string) error
	SendAlbum(chatID int64, files []telegram.File, caption string) error
	Download(ctx context.Context, fileID string) ([]byte, string, error)
}

type Generator interface {
	Generate(ctx context.Context, req promo.Request) ([]string, error)
}

type Options struct {
	Telegram   Messenger
	Generator  Generator
	Normalizer imageproc.Normalizer
	Sessions   *session.Store
	Catalog    promo.Catalog
	Logger     *slog.Logger
}

type Handler struct {
	tg         Messenger
	gen        Generator
	normalizer imageproc.Normalizer
	sessions   *session.Store
	catalog    promo.Catalog
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) (*Handler, error) {
	if opts.Telegram == nil {
		return nil, errors.New("telegram client is required")
	}
	if opts.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("session store is required")
	}

	catalog := opts.Catalog
	if len(catalog.Backgrounds) == 0 {
		catalog = promo.DefaultCatalog()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Handler{
		tg:         opts.Telegram,
		gen:        opts.Generator,
		normalizer: opts.Normalizer,
		sessions:   opts.Sessions,
		catalog:    catalog,
		logger:     logger,
	}, nil
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg)
	}

	if fileID := imageFileID(msg); fileID != "" {
		if msg.MediaGroupID != "" && h.aggregator != nil {
			h.aggregator.Add(mediagroup.Item{
				ChatID:       chatID,
				UserID:       userID,
				MediaGroupID: msg.MediaGroupID,
				FileID:       fileID,
			})
			return nil
		}
		return h.handlePhoto(ctx, chatID, userID, fileID)
	}

	if strings.TrimSpace(msg.Text) != "" {
		return h.tg.SendText(chatID, "Kirim foto model dan foto produk, lalu tekan ✨ Buat Foto Promosi. /help untuk bantuan.")
	}
	return nil
}

// HandleMediaGroup stores a two-photo album: the first photo is the person,
// the second the product.
func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if err := h.handleAlbum(ctx, group); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Error("media group processing failed", "chat_id", group.ChatID, "err", err)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	key := sessionKey(chatID, userID)

	switch msg.Command() {
	case "start":
		return h.sendMenu(chatID, userID,
			"🛍 Pajangan Promoshot\n\n"+
				"Kirim foto model dan foto produk. Bot akan membuat 6 foto promosi dengan pose berbeda.\n"+
				"Album berisi 2 foto: foto pertama model, foto kedua produk.")
	case "help":
		return h.tg.SendText(chatID,
			"🛍 Bantuan\n\n"+
				"/start - Tampilkan menu\n"+
				"/model - Foto berikutnya sebagai model\n"+
				"/produk - Foto berikutnya sebagai produk\n"+
				"/nama <nama produk> - Nama untuk file hasil\n"+
				"/reset - Mulai dari awal\n\n"+
				"Pilih latar belakang dan rasio aspek di menu, lalu tekan ✨ Buat Foto Promosi.")
	case "reset":
		if _, err := h.sessions.Reset(key); err != nil {
			return h.tg.SendText(chatID, "⏳ "+messages.Generate(err))
		}
		return h.sendMenu(chatID, userID, "🔄 Sesi direset.")
	case "model":
		h.sessions.Update(key, func(st *session.State) { st.Awaiting = session.RolePerson })
		return h.tg.SendText(chatID, "📸 Kirim foto model.")
	case "produk":
		h.sessions.Update(key, func(st *session.State) { st.Awaiting = session.RoleProduct })
		return h.tg.SendText(chatID, "📦 Kirim foto produk.")
	case "nama":
		name := strings.TrimSpace(msg.CommandArguments())
		if name == "" {
			return h.tg.SendText(chatID, "Contoh: /nama Guci Keramik")
		}
		h.sessions.Update(key, func(st *session.State) { st.ProductName = name })
		return h.tg.SendText(chatID, fmt.Sprintf("✅ Nama produk: %s", name))
	case "buat":
		return h.generate(ctx, chatID, userID)
	default:
		return h.tg.SendText(chatID, "❌ Perintah tidak dikenal. Gunakan /help.")
	}
}

func (h *Handler) handlePhoto(ctx context.Context, chatID, userID int64, fileID string) error {
	key := sessionKey(chatID, userID)
	role := nextRole(h.sessions.Get(key))

	h.tg.SendTyping(chatID)
	data, mimeType, err := h.tg.Download(ctx, fileID)
	if err != nil {
		h.logger.Error("photo download failed", "err", err)
		h.sessions.SetError(key, messages.ReadFailed)
		return h.tg.SendText(chatID, "❌ "+messages.ReadFailed)
	}

	if err := h.storeImage(ctx, key, role, data, mimeType); err != nil {
		return h.tg.SendText(chatID, "❌ "+messages.Preprocess(err))
	}
	return h.sendMenu(chatID, userID, fmt.Sprintf("✅ Foto %s tersimpan.", roleLabel(role)))
}

func (h *Handler) handleAlbum(ctx context.Context, group mediagroup.Group) error {
	if len(group.FileIDs) != 2 {
		return h.tg.SendText(group.ChatID, "❌ Kirim album berisi tepat 2 foto: foto model lalu foto produk.")
	}

	h.tg.SendTyping(group.ChatID)

	type downloaded struct {
		data []byte
		mime string
	}

	downloads := make([]downloaded, len(group.FileIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range group.FileIDs {
		eg.Go(func() error {
			data, mimeType, err := h.tg.Download(egCtx, fileID)
			if err != nil {
				return err
			}
			downloads[i] = downloaded{data: data, mime: mimeType}
			return nil
		})
	}

	key := sessionKey(group.ChatID, group.UserID)
	if err := eg.Wait(); err != nil {
		h.logger.Error("album download failed", "err", err)
		h.sessions.SetError(key, messages.ReadFailed)
		return h.tg.SendText(group.ChatID, "❌ "+messages.ReadFailed)
	}

	// Both images are normalized before either is stored so a bad album
	// leaves the session untouched.
	roles := []session.Role{session.RolePerson, session.RoleProduct}
	images := make([]promo.ImageFile, len(downloads))
	for i, d := range downloads {
		img, err := h.normalize(ctx, key, roles[i], d.data, d.mime)
		if err != nil {
			return h.tg.SendText(group.ChatID, fmt.Sprintf("❌ Foto %s: %s", roleLabel(roles[i]), messages.Preprocess(err)))
		}
		images[i] = img
	}
	for i, img := range images {
		if err := h.commitImage(key, roles[i], img); err != nil {
			return err
		}
	}
	return h.sendMenu(group.ChatID, group.UserID, "✅ Foto model dan produk tersimpan.")
}

// storeImage normalizes an upload for the session's ratio and stores it.
// On failure the previous image of role is kept and the error recorded.
func (h *Handler) storeImage(ctx context.Context, key string, role session.Role, data []byte, mimeType string) error {
	img, err := h.normalize(ctx, key, role, data, mimeType)
	if err != nil {
		return err
	}
	return h.commitImage(key, role, img)
}

func (h *Handler) normalize(ctx context.Context, key string, role session.Role, data []byte, mimeType string) (promo.ImageFile, error) {
	st := h.sessions.Get(key)

	img, err := h.normalizer.Process(ctx, bytes.NewReader(data), mimeType, st.AspectRatio)
	if err != nil {
		h.logger.Warn("image processing failed", "role", string(role), "err", err)
		h.sessions.SetError(key, messages.Preprocess(err))
		return promo.ImageFile{}, err
	}
	return img, nil
}

func (h *Handler) commitImage(key string, role session.Role, img promo.ImageFile) error {
	if _, err := h.sessions.SetImage(key, role, img); err != nil {
		return err
	}
	h.sessions.Update(key, func(st *session.State) {
		if st.Awaiting == role {
			st.Awaiting = ""
		}
	})
	return nil
}

func (h *Handler) generate(ctx context.Context, chatID, userID int64) error {
	key := sessionKey(chatID, userID)

	if !h.sessions.Get(key).Ready() {
		h.sessions.SetError(key, messages.MissingImages)
		return h.tg.SendText(chatID, "❌ "+messages.MissingImages)
	}

	// The request is built from the state Begin returns so uploads that
	// landed before the batch started are included.
	st, err := h.sessions.Begin(key)
	if err != nil {
		return h.tg.SendText(chatID, "⏳ "+messages.Generate(err))
	}

	var (
		results []string
		errMsg  string
	)
	defer func() {
		h.sessions.Finish(key, results, errMsg)
	}()

	h.tg.SendTyping(chatID)
	_ = h.tg.SendText(chatID, fmt.Sprintf("🎨 Membuat %d foto promosi, mohon tunggu...", promo.PoseCount))

	images, err := h.gen.Generate(ctx, promo.Request{
		Person:      st.Person,
		Product:     st.Product,
		Background:  st.Background,
		AspectRatio: st.AspectRatio,
	})
	if err != nil {
		errMsg = messages.Generate(err)
		h.logger.Error("generate failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ "+errMsg)
	}
	results = images

	names := promo.Filenames(st.ProductName, len(images))
	files := make([]telegram.File, len(images))
	for i, img := range images {
		files[i] = telegram.File{Name: names[i], DataURL: img}
	}

	caption := fmt.Sprintf("✅ Selesai! %s, %s", h.backgroundLabel(st.Background), st.AspectRatio.Label())
	return h.tg.SendAlbum(chatID, files, caption)
}

func sessionKey(chatID, userID int64) string {
	return fmt.Sprintf("tg:%d:%d", chatID, userID)
}

// nextRole picks the slot a single photo fills.
func nextRole(st session.State) session.Role {
	if st.Awaiting != "" {
		return st.Awaiting
	}
	if !st.Person.Valid() {
		return session.RolePerson
	}
	return session.RoleProduct
}

func roleLabel(role session.Role) string {
	if role == session.RolePerson {
		return "model"
	}
	return "produk"
}

// imageFileID returns the largest photo size, or an image sent as a file.
func imageFileID(msg *tgbotapi.Message) string {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID
	}
	return ""
}
