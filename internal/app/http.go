package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"fillog/api/internal/auth"
	"fillog/api/internal/authpw"
	"fillog/api/internal/metrics"
	"fillog/api/internal/search"
	"fillog/api/internal/store"
	"fillog/api/internal/upload"
)

const maxMultipartMemory = 10 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewHTTPServer builds the routing layer. logger and m may be nil.
func NewHTTPServer(service *Service, corsOrigin string, logger *zap.Logger, m *metrics.Metrics) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	return &HTTPServer{service: service, corsOrigin: corsOrigin, logger: logger.Named("http"), metrics: m}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.Router()
}

func (s *HTTPServer) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.withMiddleware)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, &MessageView{Message: "Connected!"})
	})
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Delete("/quit", s.handleQuit)
	r.Get("/profile", s.handleProfile)
	r.Get("/admin-info", s.handleAdminInfo)
	r.Put("/admin/blog-settings", s.handleBlogSettings)
	r.Get("/my-page", s.handleMyPage)

	r.Get("/users", s.handleListUsers)
	r.Get("/user-info/{id}", s.handleGetUser)
	r.Post("/user-info/edit", s.handleEditUser)
	r.Post("/users/{id}/follow", s.handleFollow)
	r.Post("/users/{id}/unfollow", s.handleUnfollow)

	r.Post("/post", s.handleCreatePost)
	r.Route("/posts", func(r chi.Router) {
		r.Get("/", s.handleListPosts)
		r.Get("/search", s.handleSearch)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetPost)
			r.Put("/", s.handleUpdatePost)
			r.Delete("/", s.handleDeletePost)
			r.Post("/like", s.handleLike)
		})
	})

	// {id} is the post for POST and the reply for DELETE.
	r.Post("/reply/{id}", s.handleAddReply)
	r.Delete("/reply/{id}", s.handleDeleteReply)
	r.Get("/replies/{id}", s.handleGetReply)
	r.Get("/replies/post/{id}", s.handleRepliesForPost)

	r.Route("/guestbooks", func(r chi.Router) {
		r.Get("/", s.handleListGuestbooks)
		r.Post("/write", s.handleWriteGuestbook)
		r.Delete("/{id}", s.handleDeleteGuestbook)
		r.Post("/reply/{id}", s.handleAttachGuestbookReply)
		r.Delete("/reply/{id}", s.handleDeleteGuestbookReply)
		r.Get("/replies/{id}", s.handleListGuestbookReplies)
	})

	r.Get("/uploads/{key}", s.handleUpload)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}

// withMiddleware sets CORS headers, answers preflight requests and writes the access log.
func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		setCORSHeaders(ww.Header(), s.corsOrigin)
		requestID := middleware.GetReqID(r.Context())
		ww.Header().Set("X-Request-ID", requestID)

		if r.Method == http.MethodOptions {
			ww.WriteHeader(http.StatusNoContent)
		} else {
			next.ServeHTTP(ww, r)
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(started).Milliseconds()),
		)
	})
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}
	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	render.Status(r, statusCode)
	render.JSON(w, r, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	var avatar *FileUpload
	if isMultipart(r) {
		file, closeFile, err := readMultipart(r, "userImage")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		defer closeFile()
		avatar = file
		body = registerRequest{
			UserAccount:  r.FormValue("userAccount"),
			UserPassword: r.FormValue("userPassword"),
			UserName:     r.FormValue("userName"),
		}
		if err := body.Bind(r); err != nil {
			s.fail(w, r, err)
			return
		}
	} else if err := bind(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}

	user, err := s.service.Register(r.Context(), RegisterInput{
		Account:  body.UserAccount,
		Password: body.UserPassword,
		UserName: body.UserName,
		Avatar:   avatar,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, NewUserView(user))
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := bind(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	resp, err := s.service.Login(r.Context(), body.UserAccount, body.UserPassword)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, &LoginView{
		User:      NewUserView(resp.User),
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Logout(r.Context(), bearerToken(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, &MessageView{Message: "logged out"})
}

func (s *HTTPServer) handleQuit(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if err := s.service.Quit(r.Context(), identity); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, &MessageView{Message: "account deleted"})
}

func (s *HTTPServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, NewUserView(identity.User))
}

func (s *HTTPServer) handleAdminInfo(w http.ResponseWriter, r *http.Request) {
	admin, err := s.service.AdminInfo(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, &AdminInfoView{
		AdminID:    admin.ID,
		AdminName:  admin.UserName,
		AdminImage: admin.UserImage,
		Followers:  ids(admin.Followers),
		BlogInfo:   admin.BlogSettings,
	})
}

func (s *HTTPServer) handleBlogSettings(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	var body blogSettingsRequest
	if err := bind(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	user, err := s.service.UpdateBlogSettings(r.Context(), actorFrom(identity), *body.BlogSettings)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, NewUserView(user))
}

func (s *HTTPServer) handleMyPage(w http.ResponseWriter, r *http.Request) {
	user, err := s.service.MyPage(r.Context(), r.URL.Query().Get("account"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, &MyPageView{
		ProfileView:       newProfileView(user),
		CommentedArticles: ids(user.CommentedArticles),
	})
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUsers(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeList(w, r, NewUserListResponse(users))
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, NewUserView(user))
}

func (s *HTTPServer) handleEditUser(w http.ResponseWriter, r *http.Request) {
	var body editUserRequest
	var avatar *FileUpload
	if isMultipart(r) {
		file, closeFile, err := readMultipart(r, "userImage")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		defer closeFile()
		avatar = file
		body.ID = r.FormValue("_id")
		body.UserName = formValue(r, "userName")
		body.Account = formValue(r, "account")
		if err := body.Bind(r); err != nil {
			s.fail(w, r, err)
			return
		}
	} else if err := bind(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}

	user, err := s.service.EditUser(r.Context(), body.ID, UserPatch{
		UserName: body.UserName,
		Account:  body.Account,
		Avatar:   avatar,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	profile := newProfileView(user)
	writeJSON(w, r, http.StatusOK, &profile)
}

func (s *HTTPServer) handleFollow(w http.ResponseWriter, r *http.Request) {
	s.handleFollowChange(w, r, s.service.Follow)
}

func (s *HTTPServer) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	s.handleFollowChange(w, r, s.service.Unfollow)
}

func (s *HTTPServer) handleFollowChange(w http.ResponseWriter, r *http.Request, change func(context.Context, string, string) (FollowResult, error)) {
	var body followRequest
	if err := bind(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := change(r.Context(), chi.URLParam(r, "id"), body.FollowerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, &FollowView{
		User:     NewUserView(result.User),
		Follower: newFollowMirrorView(result.Follow),
	})
}

func (s *HTTPServer) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var body postRequest
	if err := bind(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	post, err := s.service.CreatePost(r.Context(), body.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, NewPostResponse(post))
}

func (s *HTTPServer) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.service.ListPosts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeList(w, r, NewPostListResponse(posts))
}

func (s *HTTPServer) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.service.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, NewPostResponse(post))
}

func (s *HTTPServer) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var body postPatchRequest
	if err := bind(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	post, err := s.service.UpdatePost(r.Context(), chi.URLParam(r, "id"), body.patch())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, NewPostResponse(post))
}

func (s *HTTPServer) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeletePost(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, &MessageView{Message: "post deleted"})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := queryInt(query.Get("limit"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	offset, err := queryInt(query.Get("offset"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	filter := search.ResultType(query.Get("type"))
	if filter != "" && filter != search.ResultPost && filter != search.ResultReply {
		s.fail(w, r, errValidation("type must be post or reply"))
		return
	}

	resp, err := s.service.SearchPosts(r.Context(), search.Query{
		Text:       query.Get("q"),
		FilterType: filter,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

func (s *HTTPServer) handleLike(w http.ResponseWriter, r *http.Request) {
	var body likeRequest
	if err := bind(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.service.ToggleLike(r.Context(), chi.URLParam(r, "id"), body.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (s *HTTPServer) handleAddReply(w http.ResponseWriter, r *http.Request) {
	var body replyRequest
	if err := bind(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	reply, err := s.service.AddReply(r.Context(), chi.URLParam(r, "id"), body.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, NewReplyView(reply))
}

func (s *HTTPServer) handleDeleteReply(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.optionalActor(w, r)
	if !ok {
		return
	}
	var body deleteReplyRequest
	if err := bind(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.service.DeleteReply(r.Context(), chi.URLParam(r, "id"), body.PostID, body.Password, actor); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, &MessageView{Message: "reply deleted"})
}

func (s *HTTPServer) handleGetReply(w http.ResponseWriter, r *http.Request) {
	reply, err := s.service.GetReply(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, NewReplyView(reply))
}

func (s *HTTPServer) handleRepliesForPost(w http.ResponseWriter, r *http.Request) {
	replies, err := s.service.ListRepliesForPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeList(w, r, NewReplyListResponse(replies))
}

func (s *HTTPServer) handleListGuestbooks(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.ListGuestbooks(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeList(w, r, NewGuestbookListResponse(entries))
}

func (s *HTTPServer) handleWriteGuestbook(w http.ResponseWriter, r *http.Request) {
	var body guestbookRequest
	if err := bind(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	entry, err := s.service.WriteGuestbook(r.Context(), body.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, NewGuestbookView(entry))
}

func (s *HTTPServer) handleDeleteGuestbook(w http.ResponseWriter, r *http.Request) {
	s.handlePasswordDelete(w, r, s.service.DeleteGuestbook, "guestbook entry deleted")
}

func (s *HTTPServer) handleDeleteGuestbookReply(w http.ResponseWriter, r *http.Request) {
	s.handlePasswordDelete(w, r, s.service.DeleteGuestbookReply, "guestbook reply deleted")
}

func (s *HTTPServer) handlePasswordDelete(w http.ResponseWriter, r *http.Request, del func(context.Context, string, string, Actor) error, message string) {
	actor, ok := s.optionalActor(w, r)
	if !ok {
		return
	}
	var body passwordRequest
	if err := bind(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := del(r.Context(), chi.URLParam(r, "id"), body.Password, actor); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, &MessageView{Message: message})
}

func (s *HTTPServer) handleAttachGuestbookReply(w http.ResponseWriter, r *http.Request) {
	var body guestbookRequest
	if err := bind(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	reply, err := s.service.AttachGuestbookReply(r.Context(), chi.URLParam(r, "id"), body.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, NewGuestbookReplyView(reply))
}

func (s *HTTPServer) handleListGuestbookReplies(w http.ResponseWriter, r *http.Request) {
	replies, err := s.service.ListGuestbookReplies(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeList(w, r, NewGuestbookReplyListResponse(replies))
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	rc, info, err := s.service.OpenUpload(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer rc.Close()

	header := w.Header()
	header.Set("Content-Type", info.ContentType)
	header.Set("Cache-Control", "public, max-age=86400")
	if info.Size > 0 {
		header.Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("stream upload", zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
	}
}

// requireSession authenticates the bearer token or writes a 401.
func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (authpw.Identity, bool) {
	identity, err := s.service.Authenticate(r.Context(), bearerToken(r))
	if err != nil {
		s.fail(w, r, err)
		return authpw.Identity{}, false
	}
	return identity, true
}

// optionalActor returns the anonymous Actor without a bearer token. A token
// that is sent must be valid.
func (s *HTTPServer) optionalActor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	if bearerToken(r) == "" {
		return Actor{}, true
	}
	identity, ok := s.requireSession(w, r)
	if !ok {
		return Actor{}, false
	}
	return actorFrom(identity), true
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, r, status, code, message, details)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload render.Renderer) {
	render.Status(r, status)
	_ = render.Render(w, r, payload)
}

func writeList(w http.ResponseWriter, r *http.Request, list []render.Renderer) {
	_ = render.RenderList(w, r, list)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	_ = render.Render(w, r, &ErrResponse{
		HTTPStatusCode: status,
		Code:           code,
		Message:        message,
		Details:        details,
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readMultipart parses the form and returns the optional file in field.
// The returned close func is always safe to call.
func readMultipart(r *http.Request, field string) (*FileUpload, func(), error) {
	noop := func() {}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, noop, errValidation("invalid multipart form")
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, errValidation("invalid %s upload", field)
	}
	fu := &FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	return fu, func() { _ = file.Close() }, nil
}

// formValue returns nil for a field that was not sent at all.
func formValue(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errValidation("%q is not a number", raw)
	}
	return n, nil
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, authpw.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, authpw.ErrAccountExists), errors.Is(err, store.ErrConflict):
		return http.StatusBadRequest, "DUPLICATE_ACCOUNT", "account already registered", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid account or password", nil
	case errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized, "MISSING_TOKEN", "missing bearer token", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token", nil
	case errors.Is(err, authpw.ErrAccountNotFound), errors.Is(err, authpw.ErrUserNotFound):
		return http.StatusNotFound, "NOT_FOUND", "user not found", map[string]any{"entity": entityUser}
	case errors.Is(err, upload.ErrNotFound), errors.Is(err, upload.ErrInvalidKey):
		return http.StatusNotFound, "NOT_FOUND", "upload not found", map[string]any{"entity": entityUpload}
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
