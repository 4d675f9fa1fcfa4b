package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/tcaothien/allbotv3/internal/game"
	"github.com/tcaothien/allbotv3/internal/usecase"
	"github.com/tcaothien/allbotv3/pkg/telegram"
)

const deletedLogCapacity = 10

// Messenger is the outbound surface the bot needs from the chat transport.
type Messenger interface {
	SendMessage(chatID int64, text string) (int, error)
	SendMessageComplex(req telegram.SendMessageRequest) (int, error)
	EditMessageText(chatID int64, messageID int, text string, replyMarkup interface{}) error
	AnswerCallbackQuery(callbackQueryID string, text string) error
}

// promptRef points at the chat message carrying a proposal's buttons so the
// outcome can be rendered in place.
type promptRef struct {
	ChatID    int64
	MessageID int
	Kind      usecase.ProposalKind
}

// Bot routes inbound chat commands to the economy core and renders results.
type Bot struct {
	bot     Messenger
	svc     *usecase.Service
	deleted *DeletedLog

	mu      sync.Mutex
	prefix  string
	prompts map[string]promptRef
}

// NewBot wires the command router. The expired-proposal hook is registered
// here so timed-out prompts get their buttons cleared.
func NewBot(bot Messenger, svc *usecase.Service, prefix string) *Bot {
	b := &Bot{
		bot:     bot,
		svc:     svc,
		deleted: NewDeletedLog(deletedLogCapacity),
		prefix:  prefix,
		prompts: make(map[string]promptRef),
	}
	svc.SetProposalExpiredHook(b.proposalExpired)
	return b
}

// Prefix returns the current command prefix.
func (b *Bot) Prefix() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.prefix
}

// SetPrefix swaps the command prefix at runtime. Process-local.
func (b *Bot) SetPrefix(prefix string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prefix = prefix
}

// RecordDeleted feeds the deleted-message buffer. Called by transports that
// can observe message deletion.
func (b *Bot) RecordDeleted(author, content string) {
	b.deleted.Record(author, content)
}

// HandleUpdate dispatches one inbound update.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil && update.Message.Text != "" {
		b.handleMessage(ctx, update.Message)
	}
}

// parseCommand accepts both the legacy "<prefix> <cmd> ..." form and the
// native "/cmd ..." form. It returns ok=false for plain chatter.
func (b *Bot) parseCommand(text string) (cmd string, args []string, ok bool) {
	prefix := b.Prefix()
	switch {
	case strings.HasPrefix(text, "/"):
		text = text[1:]
	case strings.HasPrefix(text, prefix+" "):
		text = text[len(prefix)+1:]
	default:
		return "", nil, false
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil, false
	}
	cmd = strings.ToLower(fields[0])
	// Strip the bot mention from "/cmd@botname".
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd, fields[1:], true
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil || msg.From.IsBot || msg.Chat == nil {
		return
	}
	cmd, args, ok := b.parseCommand(msg.Text)
	if !ok {
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID

	switch cmd {
	case "xu":
		b.cmdBalance(ctx, chatID, userID)
	case "daily":
		b.cmdDaily(ctx, chatID, userID)
	case "givexu":
		b.cmdGive(ctx, msg, userID, args)
	case "tx":
		b.cmdDice(ctx, chatID, userID, args)
	case "nohu":
		b.cmdJackpot(ctx, chatID, userID, args)
	case "shop":
		b.cmdShop(ctx, chatID)
	case "buy":
		b.cmdBuy(ctx, chatID, userID, args)
	case "inv":
		b.cmdInventory(ctx, chatID, userID)
	case "gift":
		b.cmdGift(ctx, msg, userID, args)
	case "marry":
		b.cmdMarry(ctx, msg, userID, args)
	case "divorce":
		b.cmdDivorce(ctx, chatID, userID)
	case "pmarry":
		b.cmdMarriageInfo(ctx, chatID, userID)
	case "addimage":
		b.cmdSetDecoration(ctx, chatID, userID, usecase.DecorationImage, strings.Join(args, " "))
	case "delimage":
		b.cmdClearDecoration(ctx, chatID, userID, usecase.DecorationImage)
	case "addthumbnail":
		b.cmdSetDecoration(ctx, chatID, userID, usecase.DecorationThumbnail, strings.Join(args, " "))
	case "delthumbnail":
		b.cmdClearDecoration(ctx, chatID, userID, usecase.DecorationThumbnail)
	case "addcaption":
		b.cmdSetDecoration(ctx, chatID, userID, usecase.DecorationCaption, strings.Join(args, " "))
	case "delcaption":
		b.cmdClearDecoration(ctx, chatID, userID, usecase.DecorationCaption)
	case "luv":
		b.cmdAffinity(ctx, chatID, userID)
	case "top":
		b.cmdLeaderboard(ctx, chatID)
	case "addxu":
		b.cmdAdminCredit(ctx, msg, userID, args)
	case "delxu":
		b.cmdAdminDebit(ctx, msg, userID, args)
	case "addemoji":
		b.cmdSetEmoji(ctx, chatID, userID, args)
	case "delimoji":
		b.cmdClearEmoji(ctx, chatID, userID, args)
	case "prefix":
		b.cmdPrefix(ctx, chatID, userID, args)
	case "resetallbot":
		b.cmdResetAll(ctx, chatID, userID)
	case "sn":
		b.cmdDeleted(chatID, 0, 0)
	}
}

// reply sends a message, logging instead of failing the update.
func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.bot.SendMessage(chatID, text); err != nil {
		log.Printf("send message to %d: %v", chatID, err)
	}
}

// target resolves the command's target user from a reply or a numeric ID
// argument, returning the remaining arguments.
func target(msg *telegram.Message, args []string) (id, name string, rest []string, err error) {
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		from := msg.ReplyToMessage.From
		return strconv.FormatInt(from.ID, 10), from.FirstName, args, nil
	}
	if len(args) == 0 {
		return "", "", nil, errors.New("missing target")
	}
	raw := strings.TrimPrefix(args[0], "@")
	if _, convErr := strconv.ParseInt(raw, 10, 64); convErr != nil {
		return "", "", nil, fmt.Errorf("bad target %q", args[0])
	}
	return raw, "", args[1:], nil
}

func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, errors.New("amount must be a positive integer")
	}
	return n, nil
}

func (b *Bot) cmdBalance(ctx context.Context, chatID int64, userID string) {
	balance, err := b.svc.Balance(ctx, userID)
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	b.reply(chatID, embed("💰 Số dư", fmt.Sprintf("Bạn có <b>%s xu</b>.", formatXu(balance))))
}

func (b *Bot) cmdDaily(ctx context.Context, chatID int64, userID string) {
	reward, err := b.svc.Daily(ctx, userID)
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	b.reply(chatID, embed("🎁 Quà tặng hàng ngày", fmt.Sprintf("Bạn nhận được <b>%s xu</b>.", formatXu(reward))))
}

func (b *Bot) cmdGive(ctx context.Context, msg *telegram.Message, userID string, args []string) {
	chatID := msg.Chat.ID
	targetID, targetName, rest, err := target(msg, args)
	if err != nil || len(rest) < 1 {
		b.reply(chatID, "❌ Cú pháp: `givexu @user <số xu>`")
		return
	}
	amount, err := parseAmount(rest[0])
	if err != nil {
		b.reply(chatID, "❌ Cú pháp: `givexu @user <số xu>`")
		return
	}
	if err := b.svc.Transfer(ctx, userID, targetID, amount); err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	b.reply(chatID, embed("✅ Giao dịch thành công",
		fmt.Sprintf("Bạn đã chuyển <b>%s xu</b> cho %s.", formatXu(amount), mention(targetID, targetName))))
}

func (b *Bot) cmdDice(ctx context.Context, chatID int64, userID string, args []string) {
	if len(args) < 2 {
		b.reply(chatID, "❌ Cú pháp: `tx <số xu> <tài/xỉu>`")
		return
	}
	bet, err := parseAmount(args[0])
	if err != nil {
		b.reply(chatID, "❌ Cú pháp: `tx <số xu> <tài/xỉu>`")
		return
	}
	var call game.Call
	switch strings.ToLower(args[1]) {
	case "tài", "tai":
		call = game.CallHigh
	case "xỉu", "xiu":
		call = game.CallLow
	default:
		b.reply(chatID, "❌ Cú pháp: `tx <số xu> <tài/xỉu>`")
		return
	}
	result, err := b.svc.PlayDice(ctx, userID, bet, call)
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	verdict := "thua"
	if result.Won {
		verdict = "thắng"
	}
	b.reply(chatID, embed("🎲 Kết quả Tài Xỉu",
		fmt.Sprintf("🎲 Kết quả: <b>%d</b> - <b>%s</b>\nBạn %s %s xu.",
			result.Sum, strings.ToUpper(result.Outcome.String()), verdict, formatXu(bet))))
}

func (b *Bot) cmdJackpot(ctx context.Context, chatID int64, userID string, args []string) {
	if len(args) < 1 {
		b.reply(chatID, "❌ Vui lòng nhập số tiền cược hợp lệ!")
		return
	}
	bet, err := parseAmount(args[0])
	if err != nil {
		b.reply(chatID, "❌ Vui lòng nhập số tiền cược hợp lệ!")
		return
	}
	result, err := b.svc.PlayJackpot(ctx, userID, bet)
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	if result.Won {
		b.reply(chatID, embed("🎉 Chúc mừng!",
			fmt.Sprintf("Bạn đã trúng Nổ Hũ và nhận được <b>%s xu</b>!", formatXu(result.Payout))))
		return
	}
	b.reply(chatID, embed("😢 Chia buồn", "Bạn đã thua cược. Hãy thử lại nhé!"))
}

func (b *Bot) cmdShop(ctx context.Context, chatID int64) {
	items, err := b.svc.ListItems(ctx)
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("<b>ID:</b> %s | %s <b>%s</b> - <b>%s xu</b>",
			item.ID, item.Emoji, item.Name, formatXu(item.Price)))
	}
	b.reply(chatID, embed("💍 Cửa hàng nhẫn", strings.Join(lines, "\n")))
}

func (b *Bot) cmdBuy(ctx context.Context, chatID int64, userID string, args []string) {
	if len(args) < 1 {
		b.reply(chatID, "❌ Cú pháp: `buy <ID nhẫn>`")
		return
	}
	item, err := b.svc.Purchase(ctx, userID, args[0])
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	b.reply(chatID, embed("✅ Mua thành công",
		fmt.Sprintf("Bạn đã mua nhẫn %s <b>%s</b>.", item.Emoji, item.Name)))
}

func (b *Bot) cmdInventory(ctx context.Context, chatID int64, userID string) {
	inventory, err := b.svc.Inventory(ctx, userID)
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	if len(inventory) == 0 {
		b.reply(chatID, embed("📦 Kho nhẫn", "Bạn chưa sở hữu nhẫn nào."))
		return
	}
	lines := make([]string, 0, len(inventory))
	for i, item := range inventory {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, itemLabel(item)))
	}
	b.reply(chatID, embed("📦 Kho nhẫn", "Danh sách nhẫn bạn sở hữu:\n\n"+strings.Join(lines, "\n")))
}

func (b *Bot) cmdGift(ctx context.Context, msg *telegram.Message, userID string, args []string) {
	chatID := msg.Chat.ID
	targetID, targetName, rest, err := target(msg, args)
	if err != nil || len(rest) < 1 {
		b.reply(chatID, "❌ Cú pháp: `gift @user <số thứ tự nhẫn>`")
		return
	}
	index, convErr := strconv.Atoi(rest[0])
	if convErr != nil {
		b.reply(chatID, "❌ Cú pháp: `gift @user <số thứ tự nhẫn>`")
		return
	}
	item, err := b.svc.Gift(ctx, userID, targetID, index)
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	b.reply(chatID, embed("🎁 Tặng nhẫn",
		fmt.Sprintf("Bạn đã tặng %s cho %s.", itemLabel(item), mention(targetID, targetName))))
}

func (b *Bot) cmdLeaderboard(ctx context.Context, chatID int64) {
	top, err := b.svc.Leaderboard(ctx)
	if err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	if len(top) == 0 {
		b.reply(chatID, "❌ Không có dữ liệu người dùng trong bảng xếp hạng.")
		return
	}
	lines := make([]string, 0, len(top))
	for i, account := range top {
		lines = append(lines, fmt.Sprintf("<b>%d.</b> %s - <b>%s xu</b>",
			i+1, mention(account.ID, ""), formatXu(account.Balance)))
	}
	b.reply(chatID, embed("🏆 Bảng xếp hạng xu", strings.Join(lines, "\n")))
}
