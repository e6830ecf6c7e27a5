package webserver

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/ltyyb/surveybot/src/actions/moderation/lifecycle"
	"github.com/ltyyb/surveybot/src/config"
	"github.com/ltyyb/surveybot/src/data/store"
	"github.com/ltyyb/surveybot/src/discord"
	"github.com/ltyyb/surveybot/src/surveypkg"
	"github.com/ltyyb/surveybot/src/testutil"
)

const testPackage = `{"name":"entrance","latestVer":"2","surveys":{` +
	`"1":{"description":"old","releaseDate":"1700000000","json":"{\"title\":\"v1\"}"},` +
	`"2":{"description":"new","releaseDate":"1748779200","json":"{\"title\":\"for {External_User_Id} v{Survey_Version}\"}"}}}`

type nopNotifier struct{}

func (nopNotifier) Notify(string, *discord.Message) error { return nil }

type env struct {
	router    *gin.Engine
	lc        *lifecycle.Lifecycle
	users     *store.Users
	links     *store.Links
	responses *store.ResponseStore
	key       *rsa.PrivateKey
}

func newEnv(t *testing.T, limiter Limiter) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	pkg, err := surveypkg.Parse([]byte(testPackage))
	if err != nil {
		t.Fatal(err)
	}
	provider := surveypkg.NewProvider("")
	provider.Set(pkg)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	e := &env{
		users:     store.NewUsers(db),
		links:     store.NewLinks(db),
		responses: store.NewResponseStore(db),
		key:       key,
	}
	votes := store.NewVoteTally(db)
	e.lc = lifecycle.New(lifecycle.Deps{
		Responses: e.responses,
		Votes:     votes,
		Users:     e.users,
		Surveys:   provider,
		Notifier:  nopNotifier{},
	}, lifecycle.Config{SiteURL: "https://survey.test"})

	e.router = New(config.APIConfig{
		JWTSecret:         "test-secret",
		AdminPasswordHash: string(hash),
		AllowedOrigins:    []string{"https://survey.test"},
	}, Deps{
		Lifecycle: e.lc,
		Responses: e.responses,
		Votes:     votes,
		Resolver:  store.NewResolver(db),
		Users:     e.users,
		Links:     e.links,
		Surveys:   provider,
		RSAKey:    key,
		Limiter:   limiter,
	})
	return e
}

func (e *env) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	out := map[string]interface{}{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (e *env) register(t *testing.T, external string) string {
	t.Helper()
	user, _, err := e.users.Register(context.Background(), external)
	if err != nil {
		t.Fatal(err)
	}
	return user.UserID
}

func TestEntrRendersLatestSurvey(t *testing.T) {
	e := newEnv(t, nil)
	userID := e.register(t, "42")
	requestID, err := e.links.Issue(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}

	w, out := e.do(t, http.MethodGet, "/api/survey/entr", nil, map[string]string{headerRequestID: requestID})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if out["version"] != "2" {
		t.Fatalf("version = %v", out["version"])
	}
	if out["survey"] != `{"title":"for 42 v2"}` {
		t.Fatalf("survey = %v", out["survey"])
	}

	w, _ = e.do(t, http.MethodGet, "/api/survey/entr", nil, map[string]string{headerUserID: userID})
	if w.Code != http.StatusOK {
		t.Fatalf("user id header status = %d", w.Code)
	}

	w, _ = e.do(t, http.MethodGet, "/api/survey/entr", nil, map[string]string{headerRequestID: "nope"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown link status = %d", w.Code)
	}
	w, _ = e.do(t, http.MethodGet, "/api/survey/entr", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing header status = %d", w.Code)
	}
}

func TestSubmitStatusCodes(t *testing.T) {
	e := newEnv(t, nil)
	userID := e.register(t, "42")

	tests := []struct {
		name   string
		body   interface{}
		code   int
		status float64
	}{
		{"invalid body", `{"userId":`, http.StatusBadRequest, statusInvalidBody},
		{"unknown user", map[string]interface{}{"userId": "ghost", "answers": map[string]string{"q": "a"}}, http.StatusNotFound, statusUnknownUser},
		{"answers not json", map[string]interface{}{"userId": userID, "answers": "not json"}, http.StatusBadRequest, statusInvalidAnswers},
		{"invalid version", map[string]interface{}{"userId": userID, "version": "9", "answers": map[string]string{"q": "a"}}, http.StatusBadRequest, statusInvalidVersion},
		{"ok with string answers", map[string]interface{}{"userId": userID, "version": "1", "answers": `{"q":"a"}`}, http.StatusOK, statusOK},
		{"duplicate", map[string]interface{}{"userId": userID, "answers": map[string]string{"q": "b"}}, http.StatusConflict, statusDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, out := e.do(t, http.MethodPost, "/api/survey/submit", tt.body, nil)
			if w.Code != tt.code {
				t.Fatalf("code = %d, want %d (%s)", w.Code, tt.code, w.Body.String())
			}
			if out["status"] != tt.status {
				t.Fatalf("status = %v, want %v", out["status"], tt.status)
			}
		})
	}

	r, err := e.responses.ActiveByExternalUser(context.Background(), "42")
	if err != nil {
		t.Fatal(err)
	}
	if r.SurveyVersion != "1" || string(r.Answers) != `{"q":"a"}` {
		t.Fatalf("stored %s %s", r.SurveyVersion, r.Answers)
	}
}

func TestResponseHidesDisabled(t *testing.T) {
	e := newEnv(t, nil)
	userID := e.register(t, "42")
	_, out := e.do(t, http.MethodPost, "/api/survey/submit",
		map[string]interface{}{"userId": userID, "answers": map[string]string{"q": "a"}}, nil)
	id, _ := out["responseId"].(string)
	if id == "" {
		t.Fatalf("no response id in %v", out)
	}

	w, out := e.do(t, http.MethodPost, "/api/survey/response", map[string]string{"surveyId": id}, nil)
	if w.Code != http.StatusOK || out["userId"] != userID || out["version"] != "2" {
		t.Fatalf("response = %d %v", w.Code, out)
	}

	if _, err := e.lc.Disable(context.Background(), id, "admin"); err != nil {
		t.Fatal(err)
	}
	w, _ = e.do(t, http.MethodPost, "/api/survey/response", map[string]string{"surveyId": id}, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("disabled response status = %d", w.Code)
	}
}

func TestRegisterDecryptsPayload(t *testing.T) {
	e := newEnv(t, nil)

	plain, _ := json.Marshal(map[string]string{"userId": "abc123", "externalId": "777"})
	cipher, err := rsa.EncryptPKCS1v15(rand.Reader, &e.key.PublicKey, plain)
	if err != nil {
		t.Fatal(err)
	}
	payload := base64.StdEncoding.EncodeToString(cipher)

	w, _ := e.do(t, http.MethodPost, "/api/user/register", `"`+payload+`"`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d (%s)", w.Code, w.Body.String())
	}
	user, err := e.users.ByID(context.Background(), "abc123")
	if err != nil || user.ExternalUserID != "777" {
		t.Fatalf("user = %+v, %v", user, err)
	}

	w, out := e.do(t, http.MethodGet, "/api/user/check/abc123", nil, nil)
	if w.Code != http.StatusOK || out["exists"] != true || out["verified"] != false {
		t.Fatalf("check = %d %v", w.Code, out)
	}
	_, out = e.do(t, http.MethodGet, "/api/user/check/missing", nil, nil)
	if out["exists"] != false {
		t.Fatalf("missing user check = %v", out)
	}

	w, _ = e.do(t, http.MethodPost, "/api/user/register", `"bm90IGVuY3J5cHRlZA=="`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("garbage payload status = %d", w.Code)
	}
}

func TestParsePrivateKeyFormats(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	blocks := map[string]*pem.Block{
		"pkcs1": {Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)},
		"pkcs8": {Type: "PRIVATE KEY", Bytes: pkcs8},
	}
	for name, block := range blocks {
		t.Run(name, func(t *testing.T) {
			parsed, err := ParsePrivateKey(pem.EncodeToMemory(block))
			if err != nil {
				t.Fatal(err)
			}
			if !parsed.Equal(key) {
				t.Fatal("parsed key differs")
			}
		})
	}
	if _, err := ParsePrivateKey([]byte("not pem")); err == nil {
		t.Fatal("expected error for non-PEM input")
	}
}
