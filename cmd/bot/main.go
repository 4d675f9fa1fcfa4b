package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/tcaothien/allbotv3/internal/config"
	"github.com/tcaothien/allbotv3/internal/handler"
	"github.com/tcaothien/allbotv3/internal/handler/mw"
	"github.com/tcaothien/allbotv3/internal/repository"
	"github.com/tcaothien/allbotv3/internal/server"
	"github.com/tcaothien/allbotv3/internal/usecase"
	"github.com/tcaothien/allbotv3/pkg/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	repo, err := newRepository(cfg)
	if err != nil {
		log.Fatalf("failed to init repository: %v", err)
	}

	mw.SetSecretKey([]byte(cfg.JWTSecret))

	auth := usecase.NewStaticAuthorizer(cfg.AdminIDs)
	svc := usecase.NewService(repo, auth,
		usecase.WithProposalWindow(cfg.ProposalWindow),
		usecase.WithAffinityCooldown(cfg.AffinityCooldown),
	)

	ctx := context.Background()
	if err := svc.ReseedCatalog(ctx); err != nil {
		log.Fatalf("failed to seed shop catalog: %v", err)
	}

	client := telegram.NewClient(cfg.BotToken)
	bot := handler.NewBot(client, svc, cfg.Prefix)

	if err := registerCommands(client); err != nil {
		log.Printf("set bot commands: %v", err)
	}

	api := handler.NewAPI(svc, cfg.AdminPasswordHash)
	r := server.NewRouter(api)
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}
	go server.StartHTTPServer(srv)

	log.Println("bot started, polling for updates")
	poll(ctx, client, bot)
}

// newRepository selects the persistence backend from configuration.
func newRepository(cfg *config.Config) (usecase.Repository, error) {
	switch cfg.Store {
	case "sqlite":
		return repository.NewSQLiteRepo(cfg.SQLitePath)
	case "memory":
		return repository.NewMemory(), nil
	default:
		return repository.NewPostgresRepo(cfg.DatabaseURL)
	}
}

// poll runs the long-poll loop, handing each update to the bot.
func poll(ctx context.Context, client *telegram.Client, bot *handler.Bot) {
	offset := 0
	for {
		updates, err := client.GetUpdates(offset)
		if err != nil {
			log.Printf("get updates: %v", err)
			time.Sleep(3 * time.Second)
			continue
		}
		for _, update := range updates {
			offset = update.UpdateID + 1
			go bot.HandleUpdate(ctx, update)
		}
	}
}

func registerCommands(client *telegram.Client) error {
	return client.SetMyCommands([]telegram.BotCommand{
		{Command: "xu", Description: "Xem số dư xu"},
		{Command: "daily", Description: "Nhận quà hàng ngày"},
		{Command: "givexu", Description: "Chuyển xu cho người khác"},
		{Command: "tx", Description: "Chơi tài xỉu"},
		{Command: "nohu", Description: "Quay nổ hũ"},
		{Command: "shop", Description: "Xem cửa hàng nhẫn"},
		{Command: "buy", Description: "Mua nhẫn"},
		{Command: "inv", Description: "Xem kho nhẫn"},
		{Command: "gift", Description: "Tặng nhẫn"},
		{Command: "marry", Description: "Cầu hôn"},
		{Command: "divorce", Description: "Yêu cầu ly hôn"},
		{Command: "pmarry", Description: "Xem hồ sơ hôn nhân"},
		{Command: "luv", Description: "Gửi yêu thương"},
		{Command: "top", Description: "Bảng xếp hạng xu"},
		{Command: "sn", Description: "Xem tin nhắn đã xoá"},
	})
}
