package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"teatracker/m/domain"
	"teatracker/m/internal/ledger"
	"teatracker/m/internal/mirror"
)

type ctxKey string

const ctxOwnerID ctxKey = "ownerID"

const tokenTTL = 24 * time.Hour

// Auth is the single owner account that may sign in.
type Auth struct {
	Secret       string
	OwnerID      string
	PasswordHash string
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	svc    *ledger.Service
	syncer *mirror.Syncer
	auth   Auth
	logger *slog.Logger
}

// New constructs a Handler.
func New(svc *ledger.Service, syncer *mirror.Syncer, auth Auth, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, syncer: syncer, auth: auth, logger: logger}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Post("/auth/login", h.login)

	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.listCustomers)
		r.Post("/", h.saveCustomer)
		r.Get("/history", h.customerHistory)
	})

	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.listSales)
		r.Post("/", h.createSale)
		r.Get("/{id}", h.getSale)
		r.Post("/{id}/payments", h.collectPayment)
	})

	r.Route("/pending", func(r chi.Router) {
		r.Get("/", h.pending)
		r.Post("/payments", h.combinedPayment)
	})

	r.Post("/payments/balance", h.balanceMixed)
	r.Get("/reports/today", h.kgsToday)

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)
		pr.Post("/sync", h.sync)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"mirror": h.syncer.Configured(),
	})
}

// Authentication helpers

type authClaims struct {
	OwnerID string `json:"owner_id"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(ownerID string) (string, time.Time, error) {
	expires := time.Now().Add(tokenTTL)
	claims := authClaims{
		OwnerID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   ownerID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.auth.Secret))
	return signed, expires, err
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.auth.Secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok || claims.OwnerID == "" {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxOwnerID, claims.OwnerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.auth.PasswordHash == "" {
		respondError(w, http.StatusServiceUnavailable, "sign-in is not configured")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(h.auth.PasswordHash), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expires, err := h.generateToken(h.auth.OwnerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	// Signing in starts mirroring for this owner.
	h.syncer.SetOwner(h.auth.OwnerID)

	respondJSON(w, http.StatusOK, domain.Session{OwnerID: h.auth.OwnerID, Token: token, ExpiresAt: expires})
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	owner, _ := r.Context().Value(ctxOwnerID).(string)
	if h.syncer.Owner() != owner {
		h.syncer.SetOwner(owner)
	}
	res, err := h.syncer.Sync(r.Context())
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Customer handlers

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	customers, err := h.svc.SearchCustomers(r.Context(), query)
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, customers)
}

func (h *Handler) saveCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.Customer
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.svc.SaveCustomer(r.Context(), req)
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handler) customerHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := domain.CustomerRef{
		Phone:   strings.TrimSpace(q.Get("phone")),
		Name:    strings.TrimSpace(q.Get("name")),
		Address: strings.TrimSpace(q.Get("address")),
	}
	if ref.Phone == "" && ref.Name == "" {
		respondError(w, http.StatusBadRequest, "phone or name is required")
		return
	}
	history, err := h.svc.History(r.Context(), ref)
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// Sales handlers

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.svc.Sales(r.Context())
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req ledger.SaleInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sale, err := h.svc.RecordSale(r.Context(), req)
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sale)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, ok := saleID(w, r)
	if !ok {
		return
	}
	sale, err := h.svc.Sale(r.Context(), id)
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

func (h *Handler) collectPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := saleID(w, r)
	if !ok {
		return
	}
	var req ledger.Split
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sale, applied, err := h.svc.CollectPayment(r.Context(), id, req)
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sale": sale, "applied": applied})
}

// Pending balances

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.Pending(r.Context())
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	if groups == nil {
		groups = []domain.PendingGroup{}
	}
	respondJSON(w, http.StatusOK, groups)
}

func (h *Handler) combinedPayment(w http.ResponseWriter, r *http.Request) {
	var req ledger.CombinedPayment
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	alloc, err := h.svc.CollectCombinedPayment(r.Context(), req)
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, alloc)
}

type balanceRequest struct {
	Total  decimal.Decimal `json:"total"`
	Cash   decimal.Decimal `json:"cash"`
	Online decimal.Decimal `json:"online"`
	Edited string          `json:"edited"`
}

func (h *Handler) balanceMixed(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ledger.BalanceMixed(req.Total, req.Cash, req.Online, ledger.ParseField(req.Edited)))
}

// Reports

func (h *Handler) kgsToday(w http.ResponseWriter, r *http.Request) {
	date, kgs, err := h.svc.KgsSold(r.Context(), strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"date": date, "kgs": kgs})
}

// Helpers

func saleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondLedgerError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ledger.ErrMirrorDisabled):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, mirror.ErrSyncInProgress):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "storage unavailable, nothing was saved")
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
