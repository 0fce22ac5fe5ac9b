package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"housetrend/internal/backend"
	"housetrend/internal/core"
	"housetrend/internal/csvio"
	"housetrend/internal/middleware/security"
	applog "housetrend/internal/log"
	"housetrend/internal/remoteconf"
	"housetrend/internal/stats"
	"housetrend/internal/storage"
)

const (
	msgWrongPassword = "密码错误，请重试"
	msgNoFile        = "请选择要导入的CSV文件"
	msgReadFailed    = "读取文件失败"
	msgRemoteSaved   = "GitHub配置保存成功！"

	maxImportBytes = 10 << 20
	historyLimit   = 20
)

func (s *Server) routeAdmin(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /admin/login", s.handleLoginPage)
	mux.HandleFunc("POST /admin/login", s.handleLogin)
	mux.HandleFunc("POST /admin/logout", s.handleLogout)

	mux.Handle("GET /admin", s.requireSession(s.handleAdmin))
	mux.Handle("GET /admin/download", s.requireSession(s.handleDownload))
	mux.Handle("GET /export.csv", s.requireSession(s.handleExport))
	mux.Handle("POST /admin/records", s.requireSession(s.handleAddRecord))
	mux.Handle("POST /admin/records/{id}", s.requireSession(s.handleUpdateRecord))
	mux.Handle("POST /admin/records/{id}/delete", s.requireSession(s.handleDeleteRecord))
	mux.Handle("POST /admin/import", s.requireSession(s.handleImport))
	mux.Handle("POST /admin/settings", s.requireSession(s.handleSettings))
	mux.Handle("POST /admin/remote", s.requireSession(s.handleRemote))
}

// requireSession sends browsers without a valid session to the login page.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.sessions.authenticated(r.Context()) {
			if r.Method != http.MethodGet {
				ErrorResponse(http.StatusUnauthorized, "请先登录").Write(w)
				return
			}
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		security.NoStore(next).ServeHTTP(w, r)
	})
}

type loginData struct {
	Title string
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.sessions.authenticated(r.Context()) {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", loginData{Title: s.store.Site().Title()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentAdmin)
	if err := r.ParseForm(); err != nil {
		BadRequestError("表单无效").Write(w)
		return
	}
	if !s.store.CheckPassword(r.PostForm.Get("password")) {
		logger.WarnContext(r.Context(), "Admin login rejected", applog.FieldOperation, applog.OpLogin)
		s.render(w, r, http.StatusUnauthorized, "login.html", loginData{
			Title: s.store.Site().Title(),
			Error: msgWrongPassword,
		})
		return
	}
	if err := s.sessions.login(r.Context()); err != nil {
		logger.ErrorContext(r.Context(), "Session creation failed", applog.FieldError, err)
		InternalServerError("登录失败").Write(w)
		return
	}
	logger.InfoContext(r.Context(), "Admin logged in", applog.FieldOperation, applog.OpLogin)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.logout(r.Context()); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentAdmin).
			WarnContext(r.Context(), "Session destroy failed", applog.FieldError, err)
	}
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

type adminData struct {
	Title       string
	Site        core.SiteConfig
	Records     []core.Record
	Total       int
	Filter      stats.Filter
	Query       string
	Communities []string
	HouseTypes  []string
	Summary     stats.Summary
	Edit        *core.Record
	Today       string
	Remote      remoteView
	History     []storage.Snapshot
	HistoryErr  string
	Flash       string
	FlashKind   string
}

// remoteView is the remote config without its token.
type remoteView struct {
	Username   string
	Repository string
	Path       string
	Branch     string
	HasToken   bool
	Enabled    bool
	ConfigFile string
}

func (s *Server) currentRemote() remoteconf.Config {
	return backend.ResolveRemote(s.envRemote, s.remoteConfig, s.logger)
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	all := s.store.Records()
	filter := ParseFilter(q)
	query := sanitizeInput(q.Get("q"))
	communities, houseTypes := stats.Options(all)

	data := adminData{
		Title:       s.store.Site().Title(),
		Site:        s.store.Site(),
		Records:     stats.Search(filter.Apply(all), query),
		Total:       len(all),
		Filter:      filter,
		Query:       query,
		Communities: communities,
		HouseTypes:  houseTypes,
		Summary:     s.summary(filter),
		Today:       time.Now().Format(core.DateLayout),
		Flash:       sanitizeInput(q.Get("msg")),
		FlashKind:   flashKind(q.Get("kind")),
	}
	if id, err := parseEditID(q.Get("edit")); err == nil {
		if rec, err := s.store.Get(id); err == nil {
			data.Edit = &rec
		}
	}

	rc := s.currentRemote()
	data.Remote = remoteView{
		Username:   rc.Username,
		Repository: rc.Repository,
		Path:       rc.FilePath(),
		Branch:     rc.Branch,
		HasToken:   rc.AccessToken != "",
		Enabled:    rc.Complete(),
	}
	if s.remoteConfig != nil {
		data.Remote.ConfigFile = s.remoteConfig.Path()
	}

	if s.history != nil {
		hist, err := s.history.History(r.Context(), ParseLimit(q, historyLimit, 200))
		if err != nil {
			s.logger.WarnContext(r.Context(), "History unavailable", applog.FieldError, err)
			data.HistoryErr = err.Error()
		}
		data.History = hist
	}
	s.render(w, r, http.StatusOK, "admin.html", data)
}

func parseEditID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id < 1 {
		return 0, errInvalidID
	}
	return id, nil
}

func flashKind(k string) string {
	switch k {
	case flashSuccess, flashWarning, flashInfo, flashError:
		return k
	}
	return flashInfo
}

// saveAndRedirect persists the store and shows the outcome, prefixed by
// what the mutation did.
func (s *Server) saveAndRedirect(w http.ResponseWriter, r *http.Request, done string) {
	res := s.engine.Save(r.Context())
	msg, kind := saveMessage(res)
	if done != "" {
		msg = done + msg
	}
	applog.FromContext(r.Context()).WithComponent(applog.ComponentAdmin).InfoContext(r.Context(), "Document saved",
		applog.FieldOperation, applog.OpSave,
		"remote", res.Remote,
		"downloaded", res.Downloaded,
		applog.FieldLocation, res.Location)
	http.Redirect(w, r, flashURL(msg, kind), http.StatusSeeOther)
}

func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("表单无效").Write(w)
		return
	}
	rec, err := ParseRecordForm(r.PostForm)
	if err != nil {
		UnprocessableEntityError(MsgIncompleteRecord).Write(w)
		return
	}
	rec, err = s.store.Add(rec)
	if err != nil {
		UnprocessableEntityError(MsgIncompleteRecord).Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Record added",
		applog.NewFields().WithOperation(applog.OpCreate).WithRecord(rec.ID, rec.Community, rec.HouseType).ToSlice()...)
	s.saveAndRedirect(w, r, "记录已添加。")
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		BadRequestError("记录编号无效").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("表单无效").Write(w)
		return
	}
	rec, err := ParseRecordForm(r.PostForm)
	if err != nil {
		UnprocessableEntityError(MsgIncompleteRecord).Write(w)
		return
	}
	rec, err = s.store.Update(id, rec)
	if errors.Is(err, core.ErrNotFound) {
		NotFoundError("记录不存在").Write(w)
		return
	}
	if err != nil {
		UnprocessableEntityError(MsgIncompleteRecord).Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Record updated",
		applog.NewFields().WithOperation(applog.OpUpdate).WithRecord(rec.ID, rec.Community, rec.HouseType).ToSlice()...)
	s.saveAndRedirect(w, r, "记录已更新。")
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		BadRequestError("记录编号无效").Write(w)
		return
	}
	if err := s.store.Delete(id); err != nil {
		NotFoundError("记录不存在").Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Record deleted",
		applog.FieldOperation, applog.OpDelete, applog.FieldRecordID, id)
	s.saveAndRedirect(w, r, "记录已删除。")
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	logger := applog.FromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		UnprocessableEntityError(msgNoFile).Write(w)
		return
	}
	file, _, err := r.FormFile("csvFile")
	if err != nil {
		UnprocessableEntityError(msgNoFile).Write(w)
		return
	}
	defer file.Close()

	res, err := csvio.Import(file)
	switch {
	case errors.Is(err, csvio.ErrEmptyFile), errors.Is(err, csvio.ErrNoValidRows):
		UnprocessableEntityError(err.Error()).Write(w)
		return
	case err != nil:
		logger.WarnContext(r.Context(), "CSV import failed", applog.FieldError, err)
		UnprocessableEntityError(msgReadFailed).Write(w)
		return
	}
	added := s.store.Import(res.Rows)
	logger.InfoContext(r.Context(), "Records imported",
		applog.FieldOperation, applog.OpImport,
		applog.FieldRecords, len(added),
		"skipped", res.Skipped,
		"non_numeric", res.NonNumeric)

	done := fmt.Sprintf("成功导入 %d 条记录！", len(added))
	if res.NonNumeric > 0 {
		done += fmt.Sprintf("其中 %d 条价格或面积不是数字。", res.NonNumeric)
	}
	s.saveAndRedirect(w, r, done)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("表单无效").Write(w)
		return
	}
	s.store.UpdateSite(ParseSiteForm(r.PostForm))
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Site settings updated", applog.FieldOperation, applog.OpUpdate)
	s.saveAndRedirect(w, r, "网站设置保存成功！")
}

// handleRemote saves the remote repository settings. A blank token keeps
// the one already saved.
func (s *Server) handleRemote(w http.ResponseWriter, r *http.Request) {
	if s.remoteConfig == nil {
		ErrorResponse(http.StatusNotImplemented, "未启用GitHub配置存储").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("表单无效").Write(w)
		return
	}
	f := r.PostForm
	cfg := remoteconf.Config{
		Username:    sanitizeInput(f.Get("username")),
		Repository:  sanitizeInput(f.Get("repository")),
		AccessToken: strings.TrimSpace(f.Get("token")),
		Path:        sanitizeInput(f.Get("path")),
		Branch:      sanitizeInput(f.Get("branch")),
	}
	if cfg.AccessToken == "" {
		if saved, err := s.remoteConfig.Load(); err == nil {
			cfg.AccessToken = saved.AccessToken
		}
	}
	if err := s.remoteConfig.Save(cfg); err != nil {
		if errors.Is(err, remoteconf.ErrIncomplete) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Saving remote config failed", applog.FieldError, err)
		InternalServerError("保存失败：" + err.Error()).Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Remote config saved",
		"username", cfg.Username, "repository", cfg.Repository)
	http.Redirect(w, r, flashURL(msgRemoteSaved, flashSuccess), http.StatusSeeOther)
}

// handleDownload serves the current document as data.json.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	raw, err := s.store.Snapshot().Encode()
	if err != nil {
		InternalServerError("导出失败").Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", contentDisposition("data.json", "data.json"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
