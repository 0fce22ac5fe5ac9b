package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"housetrend/internal/core"
	"housetrend/internal/datasync"
	"housetrend/internal/docstore"
	"housetrend/internal/docstore/memory"
	"housetrend/internal/remoteconf"
	"housetrend/internal/storage"
)

func testStore() *core.Store {
	s := core.NewStore()
	s.Replace(core.Document{TransactionData: []core.Record{
		{ID: 1, Community: "翠湖", HouseType: "2室", Date: "2024-01-01", Price: 5, Area: 80},
		{ID: 2, Community: "翠湖", HouseType: "2室", Date: "2024-02-01", Price: 6, Area: 82},
		{ID: 3, Community: "江南", HouseType: "3室", Date: "2024-01-15", Price: 10, Area: 120},
	}})
	return s
}

func newViewer(t *testing.T, store *core.Store) *Server {
	t.Helper()
	srv := NewViewerServer(Options{Addr: ":0", Engine: datasync.New(store)})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target string, body io.Reader, contentType string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func postForm(t *testing.T, srv *Server, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, srv, http.MethodPost, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", cookies...)
}

func TestIndexAndHealth(t *testing.T) {
	srv := newViewer(t, testStore())

	rr := do(t, srv, http.MethodGet, "/", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{core.DefaultSiteTitle, "<p>" + core.DefaultSiteDescription + "</p>", "江南", "7.00", `id="chartTypeSelect"`} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if rr.Header().Get("Content-Security-Policy") == "" || rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("security or trace headers missing: %v", rr.Header())
	}

	for _, path := range []string{"/healthz", "/readyz", "/static/app.js", "/static/style.css"} {
		if rr := do(t, srv, http.MethodGet, path, nil, ""); rr.Code != http.StatusOK {
			t.Errorf("%s status=%d", path, rr.Code)
		}
	}
	if rr := do(t, srv, http.MethodGet, "/admin", nil, ""); rr.Code != http.StatusNotFound {
		t.Errorf("viewer must not serve the admin panel, got %d", rr.Code)
	}
}

func TestReadyReportsDependencyFailure(t *testing.T) {
	srv := NewViewerServer(Options{
		Engine: datasync.New(testStore()),
		Ready:  func(context.Context) error { return errors.New("archive locked") },
	})
	defer srv.Shutdown(context.Background())

	rr := do(t, srv, http.MethodGet, "/readyz", nil, "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	var out struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Status != "not_ready" || !strings.Contains(out.Checks["dependencies"].(string), "archive locked") {
		t.Fatalf("unexpected readiness %+v", out)
	}
}

func TestReloadTracksSource(t *testing.T) {
	store := core.NewStore()
	remote := memory.NewWithDocument(core.Document{TransactionData: []core.Record{
		{ID: 1, Community: "A", HouseType: "2室", Date: "2024-01-01", Price: 5, Area: 80},
	}})
	engine := datasync.New(store, datasync.WithRemote(func() docstore.Versioned { return remote }))
	srv := NewViewerServer(Options{Engine: engine})
	defer srv.Shutdown(context.Background())

	if srv.Source() != datasync.SourceDefaults {
		t.Fatalf("initial source = %s", srv.Source())
	}
	if got := srv.Reload(context.Background()); got != datasync.SourceRemote || srv.Source() != datasync.SourceRemote {
		t.Fatalf("Reload = %s", got)
	}
	if len(store.Records()) != 1 {
		t.Fatalf("store not reloaded: %+v", store.Records())
	}
}

func TestStatsPartialTriggersFilterChanged(t *testing.T) {
	srv := newViewer(t, testStore())
	rr := do(t, srv, http.MethodGet, "/ui/stats?community="+url.QueryEscape("江南"), nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "10.00") || strings.Contains(rr.Body.String(), "<html") {
		t.Fatalf("unexpected partial %s", rr.Body.String())
	}
	var triggers map[string]map[string]string
	if err := json.Unmarshal([]byte(rr.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger: %v", err)
	}
	if triggers["filter:changed"]["community"] != "江南" {
		t.Fatalf("triggers = %v", triggers)
	}
}

func TestStatsPartialEmptySelection(t *testing.T) {
	srv := newViewer(t, testStore())
	rr := do(t, srv, http.MethodGet, "/ui/stats?community=nowhere", nil, "")
	if strings.Contains(rr.Body.String(), "NaN") || !strings.Contains(rr.Body.String(), ">-<") {
		t.Fatalf("empty selection must show placeholders: %s", rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "show-notification") {
		t.Fatalf("HX-Trigger = %s", rr.Header().Get("HX-Trigger"))
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestChartAndRange(t *testing.T) {
	srv := newViewer(t, testStore())

	rr := do(t, srv, http.MethodGet, "/api/chart", nil, "")
	var c struct {
		Labels   []string `json:"labels"`
		Datasets []struct {
			Label string `json:"label"`
			Data  []struct {
				X string  `json:"x"`
				Y float64 `json:"y"`
			} `json:"data"`
		} `json:"datasets"`
		Bound struct {
			Auto bool     `json:"auto"`
			Min  *float64 `json:"min"`
			Max  *float64 `json:"max"`
		} `json:"bound"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &c); err != nil {
		t.Fatalf("chart json: %v", err)
	}
	if len(c.Datasets) != 2 || c.Datasets[0].Label != "2室" || len(c.Datasets[0].Data) != 2 {
		t.Fatalf("datasets = %+v", c.Datasets)
	}
	if strings.Join(c.Labels, ",") != "2024-01-01,2024-01-15,2024-02-01" {
		t.Fatalf("labels = %v", c.Labels)
	}
	if c.Bound.Auto || !near(*c.Bound.Min, 4.75) || !near(*c.Bound.Max, 10.25) {
		t.Fatalf("bound = %+v", c.Bound)
	}

	tests := []struct {
		query    string
		auto     bool
		min, max float64
	}{
		{"hidden=" + url.QueryEscape("3室"), false, 4.95, 6.05},
		{"hidden=" + url.QueryEscape("3室") + "&hidden=" + url.QueryEscape("2室"), true, 0, 0},
		{"community=" + url.QueryEscape("江南"), false, 10, 10},
	}
	for _, tt := range tests {
		rr := do(t, srv, http.MethodGet, "/api/chart/range?"+tt.query, nil, "")
		var b struct {
			Auto bool     `json:"auto"`
			Min  *float64 `json:"min"`
			Max  *float64 `json:"max"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &b); err != nil {
			t.Fatalf("%s: %v", tt.query, err)
		}
		if b.Auto != tt.auto {
			t.Fatalf("%s: auto = %v", tt.query, b.Auto)
		}
		if !tt.auto && (!near(*b.Min, tt.min) || !near(*b.Max, tt.max)) {
			t.Fatalf("%s: bound = [%v, %v]", tt.query, *b.Min, *b.Max)
		}
	}
}

func TestExportCSV(t *testing.T) {
	srv := newViewer(t, testStore())
	rr := do(t, srv, http.MethodGet, "/export.csv", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.HasPrefix(rr.Body.String(), "小区,户型,时间,价格(万元/㎡),面积(㎡)\n") {
		t.Fatalf("csv = %q", rr.Body.String())
	}
	cd := rr.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "attachment") || !strings.Contains(cd, "filename*=UTF-8''") {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	rr = do(t, srv, http.MethodGet, "/export.csv?community="+url.QueryEscape("江南"), nil, "")
	lines := strings.Split(rr.Body.String(), "\n")
	if rr.Code != http.StatusOK || len(lines) != 2 || !strings.HasPrefix(lines[1], `"江南","3室"`) {
		t.Fatalf("filtered export: %d %q", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/export.csv?community="+url.QueryEscape("江南")+"&houseType="+url.QueryEscape("2室"), nil, "")
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "没有数据可导出") {
		t.Fatalf("export of an empty selection: %d %s", rr.Code, rr.Body.String())
	}

	empty := newViewer(t, core.NewStore())
	rr = do(t, empty, http.MethodGet, "/export.csv", nil, "")
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "没有数据可导出") {
		t.Fatalf("empty export: %d %s", rr.Code, rr.Body.String())
	}
}

type fakeHistory struct {
	snaps []storage.Snapshot
	err   error
}

func (f fakeHistory) History(_ context.Context, limit int) ([]storage.Snapshot, error) {
	if len(f.snaps) > limit {
		return f.snaps[:limit], f.err
	}
	return f.snaps, f.err
}

type adminFixture struct {
	srv    *Server
	store  *core.Store
	sink   *memory.Store
	remote *remoteconf.Store
	cookie *http.Cookie
}

func newAdmin(t *testing.T) *adminFixture {
	t.Helper()
	store := testStore()
	sink := memory.New()
	remote := remoteconf.NewStore(filepath.Join(t.TempDir(), "remote.yml"))
	srv := NewAdminServer(AdminOptions{
		Options:      Options{Engine: datasync.New(store, datasync.WithDownloader(sink))},
		RemoteConfig: remote,
		History: fakeHistory{snaps: []storage.Snapshot{
			{ID: 9, Source: datasync.SavedToRemote, Version: "abc123", RecordCount: 3, SavedAt: time.Now(), SyncStatus: "pending"},
		}},
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := postForm(t, srv, "/admin/login", url.Values{"password": {core.DefaultAdminPassword}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("login status=%d", rr.Code)
	}
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("session cookie missing: %v", rr.Result().Cookies())
	}
	return &adminFixture{srv: srv, store: store, sink: sink, remote: remote, cookie: cookie}
}

func flashOf(t *testing.T, rr *httptest.ResponseRecorder) (msg, kind string) {
	t.Helper()
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d: %s", rr.Code, rr.Body.String())
	}
	u, err := url.Parse(rr.Header().Get("Location"))
	if err != nil || u.Path != "/admin" {
		t.Fatalf("Location = %q", rr.Header().Get("Location"))
	}
	return u.Query().Get("msg"), u.Query().Get("kind")
}

func TestAdminLogin(t *testing.T) {
	f := newAdmin(t)

	rr := postForm(t, f.srv, "/admin/login", url.Values{"password": {"wrong"}})
	if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), msgWrongPassword) {
		t.Fatalf("wrong password: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, f.srv, http.MethodGet, "/admin", nil, "")
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin/login" {
		t.Fatalf("anonymous admin: %d %q", rr.Code, rr.Header().Get("Location"))
	}
	rr = postForm(t, f.srv, "/admin/records", url.Values{})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous post: %d", rr.Code)
	}

	rr = do(t, f.srv, http.MethodGet, "/admin", nil, "", f.cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin page: %d %s", rr.Code, rr.Body.String())
	}
	for _, want := range []string{"翠湖", "abc123", "添加记录"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("admin page missing %q", want)
		}
	}

	rr = postForm(t, f.srv, "/admin/logout", url.Values{}, f.cookie)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("logout: %d", rr.Code)
	}
	if rr := do(t, f.srv, http.MethodGet, "/admin", nil, "", f.cookie); rr.Code != http.StatusSeeOther {
		t.Fatalf("revoked session still accepted: %d", rr.Code)
	}
}

func TestLoginRenewsSessionToken(t *testing.T) {
	f := newAdmin(t)

	rr := postForm(t, f.srv, "/admin/login", url.Values{"password": {core.DefaultAdminPassword}}, f.cookie)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("second login: %d", rr.Code)
	}
	var renewed *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			renewed = c
		}
	}
	if renewed == nil || renewed.Value == f.cookie.Value {
		t.Fatalf("token not renewed: old=%q new=%v", f.cookie.Value, renewed)
	}
	if renewed.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v", renewed.SameSite)
	}

	if rr := do(t, f.srv, http.MethodGet, "/admin", nil, "", f.cookie); rr.Code != http.StatusSeeOther {
		t.Fatalf("old token still accepted: %d", rr.Code)
	}
	if rr := do(t, f.srv, http.MethodGet, "/admin", nil, "", renewed); rr.Code != http.StatusOK {
		t.Fatalf("renewed token rejected: %d", rr.Code)
	}
	forged := &http.Cookie{Name: sessionCookie, Value: "not-a-session"}
	if rr := do(t, f.srv, http.MethodGet, "/admin", nil, "", forged); rr.Code != http.StatusSeeOther {
		t.Fatalf("forged token accepted: %d", rr.Code)
	}
}

func TestAdminSearchAndEdit(t *testing.T) {
	f := newAdmin(t)
	rr := do(t, f.srv, http.MethodGet, "/admin?q="+url.QueryEscape("江")+"&edit=3", nil, "", f.cookie)
	body := rr.Body.String()
	if !strings.Contains(body, "编辑记录 #3") || !strings.Contains(body, "（1 / 3）") {
		t.Fatalf("search/edit page: %s", body)
	}
}

func TestAdminRecordLifecycle(t *testing.T) {
	f := newAdmin(t)

	rr := postForm(t, f.srv, "/admin/records", url.Values{
		"community": {"新城"}, "houseType": {"4室"}, "date": {"2024-03-01"}, "price": {"7.5"}, "area": {"140"},
	}, f.cookie)
	msg, kind := flashOf(t, rr)
	if !strings.HasPrefix(msg, "记录已添加。") || !strings.Contains(msg, "数据已下载到本地") || kind != flashInfo {
		t.Fatalf("flash = %q %q", msg, kind)
	}
	added, err := f.store.Get(4)
	if err != nil || added.Community != "新城" {
		t.Fatalf("added = %+v, %v", added, err)
	}
	if len(f.sink.Downloads()) != 1 {
		t.Fatalf("expected a download per save")
	}

	rr = postForm(t, f.srv, "/admin/records", url.Values{"community": {"x"}, "price": {"abc"}}, f.cookie)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), MsgIncompleteRecord) {
		t.Fatalf("invalid add: %d %s", rr.Code, rr.Body.String())
	}
	if len(f.store.Records()) != 4 {
		t.Fatalf("invalid form must not mutate the store")
	}

	rr = postForm(t, f.srv, "/admin/records/1", url.Values{
		"community": {"翠湖"}, "houseType": {"2室"}, "date": {"2024-01-01"}, "price": {"5.2"}, "area": {"80"},
	}, f.cookie)
	flashOf(t, rr)
	if got, _ := f.store.Get(1); got.Price != 5.2 {
		t.Fatalf("update not applied: %+v", got)
	}

	rr = postForm(t, f.srv, "/admin/records/99", url.Values{
		"community": {"a"}, "houseType": {"b"}, "date": {"2024-01-01"}, "price": {"1"}, "area": {"1"},
	}, f.cookie)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("update missing: %d", rr.Code)
	}

	flashOf(t, postForm(t, f.srv, "/admin/records/2/delete", url.Values{}, f.cookie))
	if _, err := f.store.Get(2); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("record 2 still present")
	}
	if rr := postForm(t, f.srv, "/admin/records/2/delete", url.Values{}, f.cookie); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rr.Code)
	}
}

func multipartCSV(t *testing.T, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("csvFile", "data.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.WriteString(part, content)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestAdminImport(t *testing.T) {
	f := newAdmin(t)

	body, ct := multipartCSV(t, "小区,户型,时间,价格,面积\n新城,4室,2024-03-01,7.5,140\n新城,4室,2024-04-01,abc,141\nshort,row\n")
	msg, _ := flashOf(t, do(t, f.srv, http.MethodPost, "/admin/import", body, ct, f.cookie))
	if !strings.HasPrefix(msg, "成功导入 2 条记录！") || !strings.Contains(msg, "1 条价格或面积不是数字") {
		t.Fatalf("flash = %q", msg)
	}
	records := f.store.Records()
	if len(records) != 5 || records[3].ID != 4 || records[4].ID != 5 || records[4].Price.Valid() {
		t.Fatalf("records = %+v", records)
	}

	tests := []struct {
		content string
		want    string
	}{
		{" \n", "CSV文件为空"},
		{"header\nonly,two\n", "没有导入任何有效数据"},
	}
	for _, tt := range tests {
		body, ct := multipartCSV(t, tt.content)
		rr := do(t, f.srv, http.MethodPost, "/admin/import", body, ct, f.cookie)
		if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), tt.want) {
			t.Errorf("import %q: %d %s", tt.content, rr.Code, rr.Body.String())
		}
	}

	rr := postForm(t, f.srv, "/admin/import", url.Values{}, f.cookie)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), msgNoFile) {
		t.Fatalf("missing file: %d %s", rr.Code, rr.Body.String())
	}
}

func TestAdminSettings(t *testing.T) {
	f := newAdmin(t)
	flashOf(t, postForm(t, f.srv, "/admin/settings", url.Values{
		"siteTitle": {"新标题"}, "siteDescription": {""}, "newPassword": {"s3cret"},
	}, f.cookie))
	site := f.store.Site()
	if site.SiteTitle != "新标题" || site.SiteDescription != core.DefaultSiteDescription || site.AdminPassword != "s3cret" {
		t.Fatalf("site = %+v", site)
	}
	saved := f.sink.Downloads()
	if len(saved) != 1 || saved[0].Site().SiteTitle != "新标题" {
		t.Fatalf("settings must be saved with the document")
	}
	if rr := postForm(t, f.srv, "/admin/login", url.Values{"password": {core.DefaultAdminPassword}}); rr.Code != http.StatusUnauthorized {
		t.Fatalf("old password still accepted: %d", rr.Code)
	}
}

func TestAdminRemoteConfig(t *testing.T) {
	f := newAdmin(t)

	rr := postForm(t, f.srv, "/admin/remote", url.Values{"username": {"alice"}, "repository": {""}, "token": {"t"}}, f.cookie)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), remoteconf.ErrIncomplete.Error()) {
		t.Fatalf("incomplete: %d %s", rr.Code, rr.Body.String())
	}

	msg, kind := flashOf(t, postForm(t, f.srv, "/admin/remote", url.Values{
		"username": {"alice"}, "repository": {"houses"}, "token": {"tok"}, "path": {"data/data.json"},
	}, f.cookie))
	if msg != msgRemoteSaved || kind != flashSuccess {
		t.Fatalf("flash = %q %q", msg, kind)
	}

	// a blank token keeps the saved one
	flashOf(t, postForm(t, f.srv, "/admin/remote", url.Values{
		"username": {"alice"}, "repository": {"flats"}, "token": {""},
	}, f.cookie))
	saved, err := f.remote.Load()
	if err != nil || saved.Repository != "flats" || saved.AccessToken != "tok" {
		t.Fatalf("saved = %+v, %v", saved, err)
	}

	rr = do(t, f.srv, http.MethodGet, "/admin", nil, "", f.cookie)
	if strings.Contains(rr.Body.String(), `value="tok"`) || !strings.Contains(rr.Body.String(), "已保存") {
		t.Fatalf("token must not be rendered")
	}
}

func TestAdminDownload(t *testing.T) {
	f := newAdmin(t)
	rr := do(t, f.srv, http.MethodGet, "/admin/download", nil, "", f.cookie)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("Content-Disposition"), "data.json") {
		t.Fatalf("download: %d %v", rr.Code, rr.Header())
	}
	doc, err := core.DecodeDocument(rr.Body.Bytes())
	if err != nil || len(doc.TransactionData) != 3 {
		t.Fatalf("document = %+v, %v", doc, err)
	}
	if rr := do(t, f.srv, http.MethodGet, "/", nil, ""); rr.Code != http.StatusSeeOther {
		t.Fatalf("admin root must redirect, got %d", rr.Code)
	}
}

func TestSaveMessage(t *testing.T) {
	conflict := errors.New("wrapped")
	tests := []struct {
		name string
		res  datasync.SaveResult
		kind string
		msg  string
	}{
		{"remote", datasync.SaveResult{Remote: true}, flashSuccess, "数据已成功保存到GitHub！"},
		{"remote failed", datasync.SaveResult{Downloaded: true, Err: conflict}, flashWarning, "GitHub保存失败，将下载本地文件。"},
		{"download only", datasync.SaveResult{Downloaded: true}, flashInfo, "数据已下载到本地，请手动上传到GitHub仓库的根目录。"},
		{"nothing", datasync.SaveResult{Err: conflict}, flashError, "保存失败：wrapped"},
	}
	for _, tt := range tests {
		msg, kind := saveMessage(tt.res)
		if msg != tt.msg || kind != tt.kind {
			t.Errorf("%s: %q %q", tt.name, msg, kind)
		}
	}
}
