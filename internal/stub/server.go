package stub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/sweetshop/internal/metrics"
	"github.com/hitoshi/sweetshop/internal/model"
)

type contextKey string

const accountContextKey contextKey = "stub.account"

// Server はスイーツショップAPIのインメモリスタブサーバー。
// ローカル開発と結合テストで本物のリモートサービスの代わりに使う。
type Server struct {
	store     *Store
	logger    *slog.Logger
	registry  *prometheus.Registry
	collector *metrics.Collector
}

// NewServer はStoreを包むServerを生成する。
func NewServer(store *Store, logger *slog.Logger) *Server {
	registry := prometheus.NewRegistry()
	return &Server{
		store:     store,
		logger:    logger,
		registry:  registry,
		collector: metrics.NewCollector(registry),
	}
}

// Handler は全ルートを構成したhttp.Handlerを返す。
//
// 認証ルート（/auth/*）は誰でも呼べる。/api/*はBearerトークン必須で、
// 作成・更新・削除・補充は管理者のみに許可する。
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.accessLogMiddleware())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)
		r.Get("/me", s.handleMe)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Route("/api/sweets", func(r chi.Router) {
			r.Get("/", s.handleListSweets)
			r.Get("/search", s.handleSearchSweets)
			r.With(s.adminOnly).Post("/", s.handleCreateSweet)

			r.Route("/{id}", func(r chi.Router) {
				r.With(s.adminOnly).Put("/", s.handleUpdateSweet)
				r.With(s.adminOnly).Delete("/", s.handleDeleteSweet)
				r.Post("/purchase", s.handlePurchase)
				r.With(s.adminOnly).Post("/restock", s.handleRestock)
			})
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(s.registry))

	return r
}

// --- ミドルウェア ---

// accessLogMiddleware はリクエストごとにログとメトリクスを記録する。
func (s *Server) accessLogMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			s.collector.RecordHTTPStatus(recorder.status)
			s.collector.RecordRequestLatency(time.Since(start))
			s.logger.Info("request handled",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", recorder.status),
			)
		})
	}
}

// sessionMiddleware はBearerトークンを検証し、アカウントをコンテキストに積む。
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := s.accountFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, &model.APIError{
				Code:     "UNAUTHORIZED",
				Message:  "Authentication required",
				Category: "auth",
			})
			return
		}
		ctx := context.WithValue(r.Context(), accountContextKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminOnly は管理者アカウントのみにアクセスを許可する。
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, _ := r.Context().Value(accountContextKey).(*Account)
		if account == nil || !account.IsAdmin {
			writeError(w, http.StatusForbidden, &model.APIError{
				Code:     "FORBIDDEN",
				Message:  "Admin privileges required",
				Category: "auth",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accountFromRequest(r *http.Request) (*Account, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return nil, false
	}
	return s.store.SessionAccount(token)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// --- 認証ハンドラー ---

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type sessionResponse struct {
	User    accountResponse   `json:"user"`
	Session model.Credentials `json:"session"`
}

type accountResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type profileResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsAdmin  bool   `json:"is_admin"`
}

// handleLogin は資格情報を検証してトークンペアを発行する。
// POST /auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.NewValidationError("body", "Invalid request body"))
		return
	}

	account, ok := s.store.Authenticate(req.Email, req.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		User:    accountResponse{ID: account.ID, Email: account.Email},
		Session: s.store.IssueSession(account),
	})
}

// handleRegister は新規アカウントを作成してトークンペアを発行する。
// POST /auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.NewValidationError("body", "Invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, model.NewRegistrationError("Email and password are required"))
		return
	}

	account, ok := s.store.Register(req.Email, req.Password, req.FullName)
	if !ok {
		writeError(w, http.StatusConflict, model.NewRegistrationError("Email already registered"))
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		User:    accountResponse{ID: account.ID, Email: account.Email},
		Session: s.store.IssueSession(account),
	})
}

// handleRefresh はリフレッシュトークンを新しいトークンペアに交換する。
// POST /auth/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.NewValidationError("body", "Invalid request body"))
		return
	}

	creds, ok := s.store.Refresh(req.RefreshToken)
	if !ok {
		writeError(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "Invalid refresh token",
			Category: "auth",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.Credentials{"session": creds})
}

// handleLogout はアクセストークンを失効させる。トークンなしでも成功扱い。
// POST /auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		s.store.RevokeSession(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMe は認証済みアカウントのプロフィールを返す。
// is_adminはここが正本で、認証レスポンス側の値は参照されない。
// GET /auth/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	account, ok := s.accountFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "Authentication required",
			Category: "auth",
		})
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		ID:       account.ID,
		Email:    account.Email,
		FullName: account.FullName,
		IsAdmin:  account.IsAdmin,
	})
}

// --- 在庫ハンドラー ---

// handleListSweets は全商品を返す。
// GET /api/sweets
func (s *Server) handleListSweets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListSweets())
}

// handleSearchSweets はクエリパラメータで絞り込んだ商品を返す。
// GET /api/sweets/search
func (s *Server) handleSearchSweets(w http.ResponseWriter, r *http.Request) {
	params := model.SearchParams{
		Name:     r.URL.Query().Get("name"),
		Category: r.URL.Query().Get("category"),
	}
	if raw := r.URL.Query().Get("min_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, model.NewValidationError("min_price", "min_price must be a number"))
			return
		}
		params.MinPrice = &v
	}
	if raw := r.URL.Query().Get("max_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, model.NewValidationError("max_price", "max_price must be a number"))
			return
		}
		params.MaxPrice = &v
	}

	writeJSON(w, http.StatusOK, s.store.SearchSweets(params))
}

// handleCreateSweet は新しい商品を登録する。
// POST /api/sweets
func (s *Server) handleCreateSweet(w http.ResponseWriter, r *http.Request) {
	fields, ok := s.decodeSweetFields(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, s.store.CreateSweet(fields))
}

// handleUpdateSweet は既存商品を置き換える。
// PUT /api/sweets/{id}
func (s *Server) handleUpdateSweet(w http.ResponseWriter, r *http.Request) {
	fields, ok := s.decodeSweetFields(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	sweet, found := s.store.UpdateSweet(id, fields)
	if !found {
		writeError(w, http.StatusNotFound, model.NewSweetNotFoundError(id))
		return
	}
	writeJSON(w, http.StatusOK, sweet)
}

// handleDeleteSweet は商品を削除する。
// DELETE /api/sweets/{id}
func (s *Server) handleDeleteSweet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.DeleteSweet(id) {
		writeError(w, http.StatusNotFound, model.NewSweetNotFoundError(id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePurchase は購入トランザクションを在庫に反映する。
// POST /api/sweets/{id}/purchase
func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	s.handleTransaction(w, r, model.TransactionPurchase)
}

// handleRestock は補充トランザクションを在庫に反映する。
// POST /api/sweets/{id}/restock
func (s *Server) handleRestock(w http.ResponseWriter, r *http.Request) {
	s.handleTransaction(w, r, model.TransactionRestock)
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request, txType model.TransactionType) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.NewValidationError("body", "Invalid request body"))
		return
	}

	account, _ := r.Context().Value(accountContextKey).(*Account)
	userID := ""
	if account != nil {
		userID = account.ID
	}

	remaining, apiErr := s.store.ApplyTransaction(chi.URLParam(r, "id"), userID, txType, req.Quantity)
	if apiErr != nil {
		writeError(w, statusForTransactionError(apiErr), apiErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"quantity": remaining})
}

func statusForTransactionError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeSweetNotFound:
		return http.StatusNotFound
	case model.ErrCodeInsufficientStock:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) decodeSweetFields(w http.ResponseWriter, r *http.Request) (model.SweetFields, bool) {
	var fields model.SweetFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, model.NewValidationError("body", "Invalid request body"))
		return model.SweetFields{}, false
	}
	if strings.TrimSpace(fields.Name) == "" {
		writeError(w, http.StatusBadRequest, model.NewValidationError("name", "Name is required"))
		return model.SweetFields{}, false
	}
	if strings.TrimSpace(fields.Category) == "" {
		writeError(w, http.StatusBadRequest, model.NewValidationError("category", "Category is required"))
		return model.SweetFields{}, false
	}
	if fields.Price <= 0 {
		writeError(w, http.StatusBadRequest, model.NewValidationError("price", "Price must be greater than zero"))
		return model.SweetFields{}, false
	}
	if fields.Quantity < 0 {
		writeError(w, http.StatusBadRequest, model.NewValidationError("quantity", "Quantity cannot be negative"))
		return model.SweetFields{}, false
	}
	return fields, true
}
