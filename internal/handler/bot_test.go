package handler

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcaothien/allbotv3/internal/repository"
	"github.com/tcaothien/allbotv3/internal/usecase"
	"github.com/tcaothien/allbotv3/pkg/telegram"
)

// fakeMessenger records outbound traffic instead of hitting the Bot API.
type fakeMessenger struct {
	mu      sync.Mutex
	sent    []telegram.SendMessageRequest
	edits   []string
	answers []string
	nextID  int
}

func (f *fakeMessenger) SendMessage(chatID int64, text string) (int, error) {
	return f.SendMessageComplex(telegram.SendMessageRequest{ChatID: chatID, Text: text})
}

func (f *fakeMessenger) SendMessageComplex(req telegram.SendMessageRequest) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeMessenger) EditMessageText(chatID int64, messageID int, text string, replyMarkup interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeMessenger) AnswerCallbackQuery(callbackQueryID string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeMessenger) lastSent(t *testing.T) telegram.SendMessageRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

const testAdminID = "9999"

func newTestBot(t *testing.T) (*Bot, *fakeMessenger, *usecase.Service) {
	t.Helper()
	repo := repository.NewMemory()
	svc := usecase.NewService(repo, usecase.NewStaticAuthorizer([]string{testAdminID}),
		usecase.WithRandSource(func() *rand.Rand { return rand.New(rand.NewSource(1)) }),
	)
	require.NoError(t, svc.ReseedCatalog(context.Background()))
	fake := &fakeMessenger{}
	return NewBot(fake, svc, "e"), fake, svc
}

func textUpdate(userID int64, text string) telegram.Update {
	return telegram.Update{
		Message: &telegram.Message{
			MessageID: 1,
			From:      &telegram.User{ID: userID, FirstName: "Tester"},
			Chat:      &telegram.Chat{ID: -100},
			Text:      text,
		},
	}
}

func TestBot_ParseCommand(t *testing.T) {
	bot, _, _ := newTestBot(t)

	tests := []struct {
		text string
		cmd  string
		args []string
		ok   bool
	}{
		{"e xu", "xu", []string{}, true},
		{"/xu", "xu", []string{}, true},
		{"/xu@allbot", "xu", []string{}, true},
		{"e givexu 123 500", "givexu", []string{"123", "500"}, true},
		{"E xu", "", nil, false},
		{"hello there", "", nil, false},
		{"e", "", nil, false},
	}
	for _, tt := range tests {
		cmd, args, ok := bot.parseCommand(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		if tt.ok {
			assert.Equal(t, tt.cmd, cmd, tt.text)
			assert.Equal(t, tt.args, args, tt.text)
		}
	}
}

func TestBot_PrefixChange(t *testing.T) {
	bot, fake, _ := newTestBot(t)
	ctx := context.Background()

	// Non-admins cannot change the prefix.
	bot.HandleUpdate(ctx, textUpdate(100, "e prefix z"))
	assert.Contains(t, fake.lastSent(t).Text, "không có quyền")
	assert.Equal(t, "e", bot.Prefix())

	bot.HandleUpdate(ctx, textUpdate(9999, "e prefix z"))
	assert.Equal(t, "z", bot.Prefix())

	// The old prefix stops working, the new one works.
	before := len(fake.sent)
	bot.HandleUpdate(ctx, textUpdate(100, "e xu"))
	assert.Len(t, fake.sent, before)
	bot.HandleUpdate(ctx, textUpdate(100, "z xu"))
	assert.Len(t, fake.sent, before+1)
}

func TestBot_Balance(t *testing.T) {
	bot, fake, _ := newTestBot(t)

	bot.HandleUpdate(context.Background(), textUpdate(100, "e xu"))

	sent := fake.lastSent(t)
	assert.Equal(t, int64(-100), sent.ChatID)
	assert.Contains(t, sent.Text, "0 xu")
}

func TestBot_Give_ByReply(t *testing.T) {
	bot, fake, svc := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, svc.AdminCredit(ctx, testAdminID, "100", 1000))

	update := textUpdate(100, "e givexu 500")
	update.Message.ReplyToMessage = &telegram.Message{
		From: &telegram.User{ID: 200, FirstName: "Mai"},
	}
	bot.HandleUpdate(ctx, update)

	assert.Contains(t, fake.lastSent(t).Text, "500 xu")

	from, _ := svc.Balance(ctx, "100")
	to, _ := svc.Balance(ctx, "200")
	assert.Equal(t, int64(500), from)
	assert.Equal(t, int64(500), to)
}

func TestBot_Give_BadSyntax(t *testing.T) {
	bot, fake, _ := newTestBot(t)
	ctx := context.Background()

	bot.HandleUpdate(ctx, textUpdate(100, "e givexu"))
	assert.Contains(t, fake.lastSent(t).Text, "Cú pháp")

	bot.HandleUpdate(ctx, textUpdate(100, "e givexu notanid 500"))
	assert.Contains(t, fake.lastSent(t).Text, "Cú pháp")
}

func TestBot_Shop(t *testing.T) {
	bot, fake, _ := newTestBot(t)

	bot.HandleUpdate(context.Background(), textUpdate(100, "e shop"))

	sent := fake.lastSent(t)
	assert.Contains(t, sent.Text, "ENZ Peridot")
	assert.Contains(t, sent.Text, "100,000 xu")
}

func TestBot_MarryFlow(t *testing.T) {
	bot, fake, svc := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, svc.AdminCredit(ctx, testAdminID, "100", 100000))
	_, err := svc.Purchase(ctx, "100", "01")
	require.NoError(t, err)

	bot.HandleUpdate(ctx, textUpdate(100, "e marry 200 1"))

	prompt := fake.lastSent(t)
	require.NotNil(t, prompt.ReplyMarkup, "proposal prompt should carry buttons")
	assert.Contains(t, prompt.Text, "cầu hôn")

	// The responder accepts through the button.
	bot.HandleUpdate(ctx, telegram.Update{
		CallbackQuery: &telegram.CallbackQuery{
			ID:   "cb1",
			From: &telegram.User{ID: 200},
			Message: &telegram.Message{
				MessageID: 42,
				Chat:      &telegram.Chat{ID: -100},
			},
			Data: "marry_yes",
		},
	})

	require.NotEmpty(t, fake.edits)
	assert.Contains(t, fake.edits[len(fake.edits)-1], "kết hôn")

	info, err := svc.MarriageInfo(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "200", info.Record.PartnerID)
}

func TestBot_Callback_NoPending(t *testing.T) {
	bot, fake, _ := newTestBot(t)

	bot.HandleUpdate(context.Background(), telegram.Update{
		CallbackQuery: &telegram.CallbackQuery{
			ID:      "cb1",
			From:    &telegram.User{ID: 200},
			Message: &telegram.Message{MessageID: 42, Chat: &telegram.Chat{ID: -100}},
			Data:    "marry_yes",
		},
	})

	require.NotEmpty(t, fake.answers)
	assert.Contains(t, fake.answers[0], "Không có lời đề nghị")
	assert.Empty(t, fake.edits)
}

func TestBot_DeletedPaging(t *testing.T) {
	bot, fake, _ := newTestBot(t)
	ctx := context.Background()

	bot.HandleUpdate(ctx, textUpdate(100, "e sn"))
	assert.Contains(t, fake.lastSent(t).Text, "Không có tin nhắn")

	bot.RecordDeleted("An", "first")
	bot.RecordDeleted("Binh", "second")

	bot.HandleUpdate(ctx, textUpdate(100, "e sn"))
	page := fake.lastSent(t)
	assert.Contains(t, page.Text, "second")
	assert.Contains(t, page.Text, "(1/2)")
	require.NotNil(t, page.ReplyMarkup)

	// Page forward through the callback.
	bot.HandleUpdate(ctx, telegram.Update{
		CallbackQuery: &telegram.CallbackQuery{
			ID:      "cb1",
			From:    &telegram.User{ID: 100},
			Message: &telegram.Message{MessageID: 7, Chat: &telegram.Chat{ID: -100}},
			Data:    "sn:1",
		},
	})
	require.NotEmpty(t, fake.edits)
	last := fake.edits[len(fake.edits)-1]
	assert.Contains(t, last, "first")
	assert.Contains(t, last, "(2/2)")
}

func TestBot_DeletedLogCap(t *testing.T) {
	bot, _, _ := newTestBot(t)

	for i := 0; i < 15; i++ {
		bot.RecordDeleted("A", strings.Repeat("x", i+1))
	}
	assert.Equal(t, deletedLogCapacity, bot.deleted.Len())

	// Newest first; the oldest five fell off.
	entry, ok := bot.deleted.Get(0)
	require.True(t, ok)
	assert.Len(t, entry.Content, 15)
	entry, ok = bot.deleted.Get(deletedLogCapacity - 1)
	require.True(t, ok)
	assert.Len(t, entry.Content, 6)
}

func TestBot_AdminCommands(t *testing.T) {
	bot, fake, svc := newTestBot(t)
	ctx := context.Background()

	bot.HandleUpdate(ctx, textUpdate(100, "e addxu 200 500"))
	assert.Contains(t, fake.lastSent(t).Text, "không có quyền")

	bot.HandleUpdate(ctx, textUpdate(9999, "e addxu 200 500"))
	assert.Contains(t, fake.lastSent(t).Text, "Đã cộng")

	balance, _ := svc.Balance(ctx, "200")
	assert.Equal(t, int64(500), balance)

	bot.HandleUpdate(ctx, textUpdate(9999, "e delxu 200 200"))
	balance, _ = svc.Balance(ctx, "200")
	assert.Equal(t, int64(300), balance)

	bot.HandleUpdate(ctx, textUpdate(9999, "e addemoji 01 ⭐"))
	items, _ := svc.ListItems(ctx)
	assert.Equal(t, "⭐", items[0].Emoji)
}

func TestBot_IgnoresBots(t *testing.T) {
	bot, fake, _ := newTestBot(t)

	update := textUpdate(100, "e xu")
	update.Message.From.IsBot = true
	bot.HandleUpdate(context.Background(), update)

	assert.Empty(t, fake.sent)
}
