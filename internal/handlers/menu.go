package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pajangan-promoshot/internal/messages"
	"pajangan-promoshot/internal/promo"
	"pajangan-promoshot/internal/session"
	"pajangan-promoshot/internal/telegram"
)

const callbackPrefix = "ps"

// callback is the decoded form of "ps:<owner>:<action>[:<arg>]".
type callback struct {
	Owner  int64
	Action string
	Arg    string
}

func callbackData(owner int64, action string, arg string) string {
	if arg == "" {
		return fmt.Sprintf("%s:%d:%s", callbackPrefix, owner, action)
	}
	return fmt.Sprintf("%s:%d:%s:%s", callbackPrefix, owner, action, arg)
}

func parseCallback(data string) (callback, bool) {
	parts := strings.SplitN(strings.TrimSpace(data), ":", 4)
	if len(parts) < 3 || parts[0] != callbackPrefix || parts[2] == "" {
		return callback{}, false
	}

	owner, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callback{}, false
	}

	cb := callback{Owner: owner, Action: parts[2]}
	if len(parts) == 4 {
		cb.Arg = parts[3]
	}
	return cb, true
}

func (h *Handler) sendMenu(chatID, userID int64, header string) error {
	st := h.sessions.Get(sessionKey(chatID, userID))
	text := menuText(h.catalog, st)
	if header != "" {
		text = header + "\n\n" + text
	}
	return h.tg.SendMenu(chatID, text, menuKeyboard(userID, h.catalog, st))
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.Message.Chat == nil || q.From == nil {
		return nil
	}

	cb, ok := parseCallback(q.Data)
	if !ok {
		return nil
	}
	if cb.Owner != q.From.ID {
		return h.tg.AnswerCallback(q.ID, "Menu ini bukan untuk Anda.")
	}

	chatID := q.Message.Chat.ID
	key := sessionKey(chatID, cb.Owner)

	var notice string
	switch cb.Action {
	case "bg":
		idx, err := strconv.Atoi(cb.Arg)
		bg, ok := h.catalog.At(idx)
		if err != nil || !ok {
			return h.tg.AnswerCallback(q.ID, "Latar belakang tidak dikenal.")
		}
		h.sessions.Update(key, func(st *session.State) { st.Background = bg.Description })
		notice = bg.Label
	case "ar":
		ratios := promo.AspectRatios()
		idx, err := strconv.Atoi(cb.Arg)
		if err != nil || idx < 0 || idx >= len(ratios) {
			return h.tg.AnswerCallback(q.ID, "Rasio aspek tidak dikenal.")
		}
		h.sessions.Update(key, func(st *session.State) { st.AspectRatio = ratios[idx] })
		notice = ratios[idx].Label()
	case "await":
		role, err := session.ParseRole(cb.Arg)
		if err != nil {
			return h.tg.AnswerCallback(q.ID, "")
		}
		h.sessions.Update(key, func(st *session.State) { st.Awaiting = role })
		notice = fmt.Sprintf("Kirim foto %s.", roleLabel(role))
	case "reset":
		if _, err := h.sessions.Reset(key); err != nil {
			return h.tg.AnswerCallback(q.ID, messages.Generate(err))
		}
		notice = "Sesi direset."
	case "gen":
		_ = h.tg.AnswerCallback(q.ID, "Membuat foto...")
		return h.generate(ctx, chatID, cb.Owner)
	default:
		return h.tg.AnswerCallback(q.ID, "")
	}

	_ = h.tg.AnswerCallback(q.ID, notice)

	st := h.sessions.Get(key)
	return h.tg.EditMenu(chatID, q.Message.MessageID, menuText(h.catalog, st), menuKeyboard(cb.Owner, h.catalog, st))
}

func menuText(catalog promo.Catalog, st session.State) string {
	var b strings.Builder
	b.WriteString("Model: " + mark(st.Person.Valid()) + "\n")
	b.WriteString("Produk: " + mark(st.Product.Valid()) + "\n")
	b.WriteString("Latar: " + labelFor(catalog, st.Background) + "\n")
	b.WriteString("Rasio: " + st.AspectRatio.Label())
	if st.ProductName != "" {
		b.WriteString("\nNama produk: " + st.ProductName)
	}
	if st.Awaiting != "" {
		b.WriteString("\n\n📎 Menunggu foto " + roleLabel(st.Awaiting))
	}
	if st.Err != "" {
		b.WriteString("\n\n❌ " + st.Err)
	}
	return b.String()
}

func menuKeyboard(owner int64, catalog promo.Catalog, st session.State) telegram.Keyboard {
	kb := make(telegram.Keyboard, 0, len(catalog.Backgrounds)+3)

	selected := catalog.Index(st.Background)
	for i, bg := range catalog.Backgrounds {
		text := bg.Label
		if i == selected {
			text = "• " + text
		}
		kb = append(kb, []telegram.Button{{Text: text, Data: callbackData(owner, "bg", strconv.Itoa(i))}})
	}

	ratioRow := make([]telegram.Button, 0, 3)
	for i, ar := range promo.AspectRatios() {
		text := ar.Label()
		if ar == st.AspectRatio {
			text = "• " + text
		}
		ratioRow = append(ratioRow, telegram.Button{Text: text, Data: callbackData(owner, "ar", strconv.Itoa(i))})
	}
	kb = append(kb, ratioRow)

	kb = append(kb, []telegram.Button{
		{Text: "📸 Foto model", Data: callbackData(owner, "await", string(session.RolePerson))},
		{Text: "📦 Foto produk", Data: callbackData(owner, "await", string(session.RoleProduct))},
	})
	kb = append(kb, []telegram.Button{
		{Text: "✨ Buat Foto Promosi", Data: callbackData(owner, "gen", "")},
		{Text: "🔄 Reset", Data: callbackData(owner, "reset", "")},
	})
	return kb
}

func (h *Handler) backgroundLabel(description string) string {
	return labelFor(h.catalog, description)
}

func labelFor(catalog promo.Catalog, description string) string {
	if bg, ok := catalog.Lookup(description); ok {
		return bg.Label
	}
	return description
}

func mark(ok bool) string {
	if ok {
		return "✅"
	}
	return "⬜ belum ada"
}
