package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/tcaothien/allbotv3/internal/domain"
	"github.com/tcaothien/allbotv3/internal/handler/mw"
	"github.com/tcaothien/allbotv3/internal/usecase"
)

// API is the admin HTTP surface. Authentication is a bcrypt password check
// against a configured hash plus the same privilege list the chat commands
// use, so the capability checks stay in the core.
type API struct {
	service      *usecase.Service
	passwordHash string
}

func NewAPI(service *usecase.Service, passwordHash string) *API {
	return &API{service: service, passwordHash: passwordHash}
}

func (h *API) Register(r chi.Router) {
	r.Use(middleware.Logger)

	r.Get("/", h.rootHandler)
	r.Get("/healthz", h.healthz)

	r.Post("/api/auth", h.auth)

	r.Group(func(r chi.Router) {
		r.Use(mw.JWTAuthMiddleware)
		r.Post("/api/credit", h.credit)
		r.Post("/api/debit", h.debit)
		r.Post("/api/emoji", h.emoji)
		r.Post("/api/reset", h.reset)
		r.Get("/api/transactions", h.transactions)
	})
}

// rootHandler doubles as the keep-alive endpoint for free hosting pingers.
func (h *API) rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Bot is alive!\n"))
}

func (h *API) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

func (h *API) auth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"errors":"bad request"}`, http.StatusBadRequest)
		return
	}
	if h.passwordHash == "" || !h.service.Authorizer().IsPrivileged(req.Username) {
		http.Error(w, `{"errors":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(req.Password)); err != nil {
		http.Error(w, `{"errors":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	token, err := mw.GenerateJWT(req.Username)
	if err != nil {
		http.Error(w, `{"errors":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, authResponse{Token: token})
}

type adjustRequest struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
}

func (h *API) credit(w http.ResponseWriter, r *http.Request) {
	actorID := mw.MustGetUserID(r.Context())

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"errors":"bad request"}`, http.StatusBadRequest)
		return
	}
	if err := h.service.AdminCredit(r.Context(), actorID, req.UserID, req.Amount); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *API) debit(w http.ResponseWriter, r *http.Request) {
	actorID := mw.MustGetUserID(r.Context())

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"errors":"bad request"}`, http.StatusBadRequest)
		return
	}
	if err := h.service.AdminDebit(r.Context(), actorID, req.UserID, req.Amount); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, map[string]string{"status": "ok"})
}

type emojiRequest struct {
	ItemID string `json:"itemId"`
	Emoji  string `json:"emoji"`
}

// emoji sets or, with an empty emoji, clears an item's shop emoji.
func (h *API) emoji(w http.ResponseWriter, r *http.Request) {
	actorID := mw.MustGetUserID(r.Context())

	var req emojiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"errors":"bad request"}`, http.StatusBadRequest)
		return
	}
	var (
		item domain.ShopItem
		err  error
	)
	if req.Emoji == "" {
		item, err = h.service.ClearItemEmoji(r.Context(), actorID, req.ItemID)
	} else {
		item, err = h.service.SetItemEmoji(r.Context(), actorID, req.ItemID, req.Emoji)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, item)
}

func (h *API) reset(w http.ResponseWriter, r *http.Request) {
	actorID := mw.MustGetUserID(r.Context())
	if err := h.service.ResetAll(r.Context(), actorID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *API) transactions(w http.ResponseWriter, r *http.Request) {
	actorID := mw.MustGetUserID(r.Context())
	list, err := h.service.RecentTransactions(r.Context(), actorID, 50)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, list)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		http.Error(w, `{"errors":"forbidden"}`, http.StatusForbidden)
	case errors.Is(err, domain.ErrInsufficientFunds):
		http.Error(w, `{"errors":"insufficient funds"}`, http.StatusBadRequest)
	case errors.Is(err, domain.ErrItemNotFound):
		http.Error(w, `{"errors":"item not found"}`, http.StatusNotFound)
	default:
		http.Error(w, `{"errors":"`+err.Error()+`"}`, http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}
