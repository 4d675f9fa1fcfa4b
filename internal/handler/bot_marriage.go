package handler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/tcaothien/allbotv3/internal/usecase"
	"github.com/tcaothien/allbotv3/pkg/telegram"
)

const (
	cbMarryAccept    = "marry_yes"
	cbMarryDecline   = "marry_no"
	cbDivorceAccept  = "divorce_yes"
	cbDivorceDecline = "divorce_no"
)

func yesNoKeyboard(yes, no string) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "💍 Đồng ý", CallbackData: yes},
			{Text: "💔 Từ chối", CallbackData: no},
		}},
	}
}

func (b *Bot) cmdMarry(ctx context.Context, msg *telegram.Message, userID string, args []string) {
	chatID := msg.Chat.ID
	targetID, targetName, rest, err := target(msg, args)
	if err != nil || len(rest) < 1 {
		b.reply(chatID, "❌ Cú pháp: `marry @user <số thứ tự nhẫn>`")
		return
	}
	index, convErr := strconv.Atoi(rest[0])
	if convErr != nil {
		b.reply(chatID, "❌ Cú pháp: `marry @user <số thứ tự nhẫn>`")
		return
	}
	proposal, err := b.svc.ProposeMarriage(ctx, userID, targetID, index)
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	text := embed("💍 Lời cầu hôn",
		fmt.Sprintf("%s, %s muốn kết hôn với bạn bằng nhẫn %s %s!\nBạn có <b>60 giây</b> để trả lời.",
			mention(targetID, targetName), mention(userID, msg.From.FirstName),
			proposal.Ring.Emoji, proposal.Ring.Name))
	b.sendPrompt(chatID, targetID, usecase.ProposalMarriage, text, cbMarryAccept, cbMarryDecline)
}

func (b *Bot) cmdDivorce(ctx context.Context, chatID int64, userID string) {
	proposal, err := b.svc.RequestDivorce(ctx, userID)
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	text := embed("💔 Yêu cầu ly hôn",
		fmt.Sprintf("%s, %s muốn ly hôn với bạn.\nBạn có <b>60 giây</b> để trả lời.",
			mention(proposal.ResponderID, ""), mention(userID, "")))
	b.sendPrompt(chatID, proposal.ResponderID, usecase.ProposalDivorce, text, cbDivorceAccept, cbDivorceDecline)
}

// sendPrompt posts the buttoned prompt and remembers where it lives so the
// callback or timeout can edit it in place.
func (b *Bot) sendPrompt(chatID int64, responderID string, kind usecase.ProposalKind, text, yes, no string) {
	messageID, err := b.bot.SendMessageComplex(telegram.SendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: yesNoKeyboard(yes, no),
	})
	if err != nil {
		log.Printf("send prompt to %d: %v", chatID, err)
		b.reply(chatID, "❌ Đã xảy ra lỗi, vui lòng thử lại sau.")
		return
	}
	b.mu.Lock()
	b.prompts[responderID] = promptRef{ChatID: chatID, MessageID: messageID, Kind: kind}
	b.mu.Unlock()
}

// takePrompt removes and returns the prompt ref for a responder, if any.
func (b *Bot) takePrompt(responderID string, kind usecase.ProposalKind) (promptRef, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ref, ok := b.prompts[responderID]
	if !ok || ref.Kind != kind {
		return promptRef{}, false
	}
	delete(b.prompts, responderID)
	return ref, true
}

// proposalExpired runs when a proposal times out. The escrowed ring is
// already back with the proposer; here only the prompt message is updated.
func (b *Bot) proposalExpired(p usecase.PendingProposal) {
	ref, ok := b.takePrompt(p.ResponderID, p.Kind)
	if !ok {
		return
	}
	var text string
	if p.Kind == usecase.ProposalMarriage {
		text = embed("⏰ Hết thời gian", "Lời cầu hôn đã hết hạn. Nhẫn đã được hoàn trả.")
	} else {
		text = embed("⏰ Hết thời gian", "Yêu cầu ly hôn đã hết hạn.")
	}
	if err := b.bot.EditMessageText(ref.ChatID, ref.MessageID, text, nil); err != nil {
		log.Printf("edit expired prompt: %v", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	if cb.From == nil || cb.Message == nil {
		return
	}
	userID := strconv.FormatInt(cb.From.ID, 10)

	if strings.HasPrefix(cb.Data, "sn:") {
		index, err := strconv.Atoi(strings.TrimPrefix(cb.Data, "sn:"))
		if err == nil {
			b.cmdDeleted(cb.Message.Chat.ID, cb.Message.MessageID, index)
		}
		b.answerCallback(cb.ID, "")
		return
	}

	var kind usecase.ProposalKind
	var accept bool
	switch cb.Data {
	case cbMarryAccept:
		kind, accept = usecase.ProposalMarriage, true
	case cbMarryDecline:
		kind, accept = usecase.ProposalMarriage, false
	case cbDivorceAccept:
		kind, accept = usecase.ProposalDivorce, true
	case cbDivorceDecline:
		kind, accept = usecase.ProposalDivorce, false
	default:
		return
	}

	var (
		proposal usecase.PendingProposal
		err      error
	)
	if kind == usecase.ProposalMarriage {
		proposal, err = b.svc.RespondMarriage(ctx, userID, accept)
	} else {
		proposal, err = b.svc.RespondDivorce(ctx, userID, accept)
	}
	if err != nil {
		b.answerCallback(cb.ID, errorText(err))
		return
	}
	b.answerCallback(cb.ID, "")

	ref, ok := b.takePrompt(userID, kind)
	if !ok {
		ref = promptRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.MessageID}
	}
	text := b.outcomeText(proposal, kind, accept)
	if err := b.bot.EditMessageText(ref.ChatID, ref.MessageID, text, nil); err != nil {
		log.Printf("edit prompt outcome: %v", err)
	}
}

func (b *Bot) outcomeText(p usecase.PendingProposal, kind usecase.ProposalKind, accept bool) string {
	if kind == usecase.ProposalMarriage {
		if accept {
			return embed("💒 Chúc mừng!",
				fmt.Sprintf("%s và %s đã chính thức kết hôn bằng nhẫn %s %s! 🎉",
					mention(p.ProposerID, ""), mention(p.ResponderID, ""),
					p.Ring.Emoji, p.Ring.Name))
		}
		return embed("💔 Từ chối",
			fmt.Sprintf("%s đã từ chối lời cầu hôn. Nhẫn đã được hoàn trả.", mention(p.ResponderID, "")))
	}
	if accept {
		return embed("💔 Ly hôn",
			fmt.Sprintf("%s và %s đã chính thức ly hôn.", mention(p.ProposerID, ""), mention(p.ResponderID, "")))
	}
	return embed("💞 Hàn gắn",
		fmt.Sprintf("%s đã từ chối ly hôn. Hai bạn vẫn là vợ chồng.", mention(p.ResponderID, "")))
}

func (b *Bot) answerCallback(id, text string) {
	if err := b.bot.AnswerCallbackQuery(id, text); err != nil {
		log.Printf("answer callback: %v", err)
	}
}

func (b *Bot) cmdMarriageInfo(ctx context.Context, chatID int64, userID string) {
	info, err := b.svc.MarriageInfo(ctx, userID)
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	record := info.Record
	lines := []string{
		fmt.Sprintf("💑 Bạn đang kết hôn với %s.", mention(record.PartnerID, "")),
		fmt.Sprintf("📅 Ngày cưới: <b>%s</b>", record.WeddingDate.Format("02/01/2006")),
		fmt.Sprintf("💞 Điểm yêu thương: <b>%d</b>", record.AffinityPoints),
	}
	if info.Ring != nil {
		lines = append(lines, fmt.Sprintf("💍 Nhẫn cưới: %s <b>%s</b>", info.Ring.Emoji, info.Ring.Name))
	}
	if record.Caption != "" {
		lines = append(lines, fmt.Sprintf("📝 %s", record.Caption))
	}
	b.reply(chatID, embed("💍 Hồ sơ hôn nhân", strings.Join(lines, "\n")))
}

func (b *Bot) cmdAffinity(ctx context.Context, chatID int64, userID string) {
	points, err := b.svc.GrantAffinity(ctx, userID)
	if err != nil {
		if remaining, cooldownErr := b.svc.AffinityCooldownRemaining(ctx, userID); cooldownErr == nil && remaining > 0 {
			b.reply(chatID, fmt.Sprintf("⏳ Bạn cần chờ <b>%s</b> nữa để gửi yêu thương tiếp.",
				formatDuration(remaining)))
			return
		}
		b.reply(chatID, errorText(err))
		return
	}
	b.reply(chatID, embed("💞 Yêu thương",
		fmt.Sprintf("Bạn đã gửi yêu thương cho người ấy! Tổng điểm: <b>%d</b>.", points)))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d phút %d giây", m, s)
}

func (b *Bot) cmdSetDecoration(ctx context.Context, chatID int64, userID string, field usecase.DecorationField, value string) {
	if err := b.svc.SetDecoration(ctx, userID, field, strings.TrimSpace(value)); err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	b.reply(chatID, embed("✅ Thành công", "Đã cập nhật trang trí hồ sơ hôn nhân của bạn."))
}

func (b *Bot) cmdClearDecoration(ctx context.Context, chatID int64, userID string, field usecase.DecorationField) {
	if _, err := b.svc.ClearDecoration(ctx, userID, field); err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	b.reply(chatID, embed("✅ Thành công", "Đã xoá trang trí hồ sơ hôn nhân của bạn."))
}
