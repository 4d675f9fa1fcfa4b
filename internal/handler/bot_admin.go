package handler

import (
	"context"
	"fmt"
	"log"

	"github.com/tcaothien/allbotv3/pkg/telegram"
)

func (b *Bot) cmdAdminCredit(ctx context.Context, msg *telegram.Message, actorID string, args []string) {
	chatID := msg.Chat.ID
	targetID, targetName, rest, err := target(msg, args)
	if err != nil || len(rest) < 1 {
		b.reply(chatID, "❌ Cú pháp: `addxu @user <số xu>`")
		return
	}
	amount, err := parseAmount(rest[0])
	if err != nil {
		b.reply(chatID, "❌ Cú pháp: `addxu @user <số xu>`")
		return
	}
	if err := b.svc.AdminCredit(ctx, actorID, targetID, amount); err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	b.reply(chatID, embed("✅ Thành công",
		fmt.Sprintf("Đã cộng <b>%s xu</b> cho %s.", formatXu(amount), mention(targetID, targetName))))
}

func (b *Bot) cmdAdminDebit(ctx context.Context, msg *telegram.Message, actorID string, args []string) {
	chatID := msg.Chat.ID
	targetID, targetName, rest, err := target(msg, args)
	if err != nil || len(rest) < 1 {
		b.reply(chatID, "❌ Cú pháp: `delxu @user <số xu>`")
		return
	}
	amount, err := parseAmount(rest[0])
	if err != nil {
		b.reply(chatID, "❌ Cú pháp: `delxu @user <số xu>`")
		return
	}
	if err := b.svc.AdminDebit(ctx, actorID, targetID, amount); err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	b.reply(chatID, embed("✅ Thành công",
		fmt.Sprintf("Đã trừ <b>%s xu</b> của %s.", formatXu(amount), mention(targetID, targetName))))
}

func (b *Bot) cmdSetEmoji(ctx context.Context, chatID int64, actorID string, args []string) {
	if len(args) < 2 {
		b.reply(chatID, "❌ Cú pháp: `addemoji <ID nhẫn> <emoji>`")
		return
	}
	item, err := b.svc.SetItemEmoji(ctx, actorID, args[0], args[1])
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	b.reply(chatID, embed("✅ Thành công",
		fmt.Sprintf("Đã đặt emoji %s cho nhẫn <b>%s</b>.", item.Emoji, item.Name)))
}

func (b *Bot) cmdClearEmoji(ctx context.Context, chatID int64, actorID string, args []string) {
	if len(args) < 1 {
		b.reply(chatID, "❌ Cú pháp: `delimoji <ID nhẫn>`")
		return
	}
	item, err := b.svc.ClearItemEmoji(ctx, actorID, args[0])
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	b.reply(chatID, embed("✅ Thành công",
		fmt.Sprintf("Đã xoá emoji của nhẫn <b>%s</b>.", item.Name)))
}

func (b *Bot) cmdPrefix(ctx context.Context, chatID int64, actorID string, args []string) {
	if !b.svc.Authorizer().IsPrivileged(actorID) {
		b.reply(chatID, "❌ Bạn không có quyền sử dụng lệnh này.")
		return
	}
	if len(args) < 1 || args[0] == "" {
		b.reply(chatID, "❌ Cú pháp: `prefix <tiền tố mới>`")
		return
	}
	b.SetPrefix(args[0])
	b.reply(chatID, embed("✅ Thành công",
		fmt.Sprintf("Tiền tố lệnh mới là <b>%s</b>.", args[0])))
}

func (b *Bot) cmdResetAll(ctx context.Context, chatID int64, actorID string) {
	if err := b.svc.ResetAll(ctx, actorID); err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	b.reply(chatID, embed("⚠️ Đặt lại toàn bộ",
		"Toàn bộ dữ liệu người dùng đã được xoá. Cửa hàng đã được nạp lại."))
}

// cmdDeleted renders one entry of the deleted-message buffer with paging
// buttons. messageID zero posts a new message, otherwise the page is edited
// in place.
func (b *Bot) cmdDeleted(chatID int64, messageID, index int) {
	total := b.deleted.Len()
	if total == 0 {
		b.reply(chatID, "❌ Không có tin nhắn nào bị xoá gần đây.")
		return
	}
	if index < 0 {
		index = 0
	}
	if index >= total {
		index = total - 1
	}
	entry, ok := b.deleted.Get(index)
	if !ok {
		b.reply(chatID, "❌ Không có tin nhắn nào bị xoá gần đây.")
		return
	}
	text := embed(fmt.Sprintf("🗑 Tin nhắn đã xoá (%d/%d)", index+1, total),
		fmt.Sprintf("<b>%s</b>: %s", entry.Author, entry.Content))

	var row []telegram.InlineKeyboardButton
	if index > 0 {
		row = append(row, telegram.InlineKeyboardButton{Text: "⬅️", CallbackData: fmt.Sprintf("sn:%d", index-1)})
	}
	if index < total-1 {
		row = append(row, telegram.InlineKeyboardButton{Text: "➡️", CallbackData: fmt.Sprintf("sn:%d", index+1)})
	}
	var markup interface{}
	if len(row) > 0 {
		markup = &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{row}}
	}

	if messageID == 0 {
		if _, err := b.bot.SendMessageComplex(telegram.SendMessageRequest{
			ChatID:      chatID,
			Text:        text,
			ParseMode:   "HTML",
			ReplyMarkup: markup,
		}); err != nil {
			log.Printf("send deleted page: %v", err)
		}
		return
	}
	if err := b.bot.EditMessageText(chatID, messageID, text, markup); err != nil {
		log.Printf("edit deleted page: %v", err)
	}
}
