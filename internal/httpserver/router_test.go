package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"beatsphere/internal/domain"
	"beatsphere/internal/service/cart"
	"beatsphere/internal/service/catalog"
	"beatsphere/internal/service/checkout"
	"beatsphere/internal/service/discovery"
	"beatsphere/internal/service/radio"
	"beatsphere/internal/service/session"
	"beatsphere/internal/storage"
	"github.com/gin-gonic/gin"
)

type stubAuth struct {
	identity domain.Identity
	loginErr error
}

func (s *stubAuth) Login(context.Context, domain.Credentials) (domain.Identity, error) {
	return s.identity, s.loginErr
}
func (s *stubAuth) Logout(context.Context) error { return errors.New("account down") }
func (s *stubAuth) Session(context.Context) (domain.Identity, error) {
	return domain.Identity{}, &domain.NetworkError{Service: "account", Op: "session", Status: http.StatusUnauthorized}
}

type stubAccounts struct {
	registered []domain.Registration
	methods    []domain.PaymentMethod
	listErr    error
	deleted    []domain.ID
	followed   []domain.ID
}

func (s *stubAccounts) Register(_ context.Context, in domain.Registration) error {
	s.registered = append(s.registered, in)
	return nil
}
func (s *stubAccounts) Profile(_ context.Context, userID domain.ID) (domain.Profile, error) {
	return domain.Profile{UserID: userID, DisplayName: "Ana"}, nil
}
func (s *stubAccounts) UpdateProfile(_ context.Context, _ domain.ID, in domain.Profile) (domain.Profile, error) {
	return in, nil
}
func (s *stubAccounts) PaymentMethods(context.Context, domain.ID) ([]domain.PaymentMethod, error) {
	return s.methods, s.listErr
}
func (s *stubAccounts) CreatePaymentMethod(_ context.Context, _ domain.ID, card domain.Card) (domain.PaymentMethod, error) {
	return domain.PaymentMethod{ID: "pm1", Holder: card.Holder, Provider: card.Provider}, nil
}
func (s *stubAccounts) DeletePaymentMethod(_ context.Context, _, id domain.ID) error {
	s.deleted = append(s.deleted, id)
	return nil
}
func (s *stubAccounts) Subscribe(_ context.Context, _, artistID domain.ID) error {
	s.followed = append(s.followed, artistID)
	return nil
}

type stubCatalog struct {
	err error
}

func (s *stubCatalog) Apply(_ context.Context, f catalog.Filter) (catalog.Listing, error) {
	return catalog.Listing{Filter: f, Albums: []domain.Album{{ID: "1"}}}, s.err
}
func (s *stubCatalog) LoadMore(context.Context) (catalog.Listing, error) {
	return catalog.Listing{}, s.err
}
func (s *stubCatalog) Album(_ context.Context, id domain.ID) (domain.Album, error) {
	if id == "0" {
		return domain.Album{}, domain.ErrNotFound
	}
	return domain.Album{ID: id, Title: "Agila"}, s.err
}

type stubDiscovery struct{}

func (stubDiscovery) Home(context.Context) discovery.Home {
	return discovery.Home{Top: []domain.Track{{ID: "t1"}}, ByGenre: []domain.Track{}, ByLike: []domain.Track{}}
}
func (stubDiscovery) Artist(_ context.Context, id domain.ID) (discovery.ArtistPage, error) {
	if id == "404" {
		return discovery.ArtistPage{}, &domain.NetworkError{Service: "content", Op: "artist", Status: http.StatusNotFound}
	}
	return discovery.ArtistPage{Artist: domain.Artist{ID: id, Name: "Marea"}}, nil
}

type stubLikes struct {
	sessions SessionStore
	liked    map[domain.ID]bool
	plays    int
}

func (s *stubLikes) Like(_ context.Context, id domain.ID) error {
	if !s.sessions.Current().Authenticated() {
		return domain.ErrUnauthenticated
	}
	s.liked[id] = true
	return nil
}
func (s *stubLikes) Liked(id domain.ID) bool        { return s.liked[id] }
func (s *stubLikes) Play(context.Context, domain.ID) { s.plays++ }

type stubRadio struct{}

func (stubRadio) Load(context.Context) error { return nil }
func (stubRadio) Current() (radio.Entry, bool) {
	return radio.Entry{Track: domain.Track{ID: "1"}}, true
}
func (stubRadio) Filter(search, genre string) []radio.Entry {
	return []radio.Entry{{Track: domain.Track{ID: "1", Title: search + "|" + genre}}}
}
func (stubRadio) Select(_ context.Context, id domain.ID) (radio.Entry, error) {
	if id != "1" {
		return radio.Entry{}, domain.ErrNotFound
	}
	return radio.Entry{Track: domain.Track{ID: id}}, nil
}
func (stubRadio) Next(context.Context) (radio.Entry, error) {
	return radio.Entry{Track: domain.Track{ID: "2"}}, nil
}
func (stubRadio) Prev(context.Context) (radio.Entry, error) {
	return radio.Entry{Track: domain.Track{ID: "3"}}, nil
}

type fixture struct {
	router   *gin.Engine
	cart     *cart.Store
	sessions *session.Store
	auth     *stubAuth
	accounts *stubAccounts
	likes    *stubLikes
	storage  storage.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := storage.NewMemory()
	auth := &stubAuth{identity: domain.Identity{UserID: "42", Role: domain.RoleArtist}}
	sessions := session.New(auth, st, session.RestoreServer, nil)
	t.Cleanup(sessions.Close)
	cartStore := cart.New(nil)
	accounts := &stubAccounts{}
	likes := &stubLikes{sessions: sessions, liked: map[domain.ID]bool{}}

	router, err := buildRouter(nil, Deps{
		Cart:      cartStore,
		Session:   sessions,
		Accounts:  accounts,
		Checkout:  checkout.New(cartStore, sessions, accounts, nil),
		Catalog:   &stubCatalog{},
		Discovery: stubDiscovery{},
		Likes:     likes,
		Radio:     stubRadio{},
		Storage:   st,
	}, Options{})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return &fixture{router: router, cart: cartStore, sessions: sessions, auth: auth, accounts: accounts, likes: likes, storage: st}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	if err := f.sessions.Login(context.Background(), f.auth.identity); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d body=%s", want, rec.Code, rec.Body.String())
	}
}

func TestBuildRouterRequiresDeps(t *testing.T) {
	if _, err := buildRouter(nil, Deps{}, Options{}); err == nil {
		t.Fatalf("expected error for missing deps")
	}
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t)
	expectStatus(t, f.do(t, http.MethodGet, "/healthz", ""), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodGet, "/readyz", ""), http.StatusOK)
}

func TestCartFlow(t *testing.T) {
	f := newFixture(t)

	expectStatus(t, f.do(t, http.MethodPost, "/cart/items", `{"id":7,"title":"Agila","unitPrice":10}`), http.StatusOK)
	rec := f.do(t, http.MethodPost, "/cart/items", `{"id":"7","title":"Agila","unitPrice":"10"}`)
	expectStatus(t, rec, http.StatusOK)

	var view struct {
		Items []domain.LineItem `json:"items"`
		Count int               `json:"count"`
		Total string            `json:"total"`
	}
	decode(t, rec, &view)
	if len(view.Items) != 1 || view.Items[0].Quantity != 2 || view.Count != 2 {
		t.Fatalf("unexpected cart: %s", rec.Body.String())
	}
	if view.Total != "24.2" {
		t.Fatalf("expected taxed total 24.2, got %s", view.Total)
	}

	expectStatus(t, f.do(t, http.MethodPatch, "/cart/items/7", `{"delta":-5}`), http.StatusOK)
	if item, _ := f.cart.Item("7"); item.Quantity != 1 {
		t.Fatalf("expected quantity clamped to 1, got %d", item.Quantity)
	}

	expectStatus(t, f.do(t, http.MethodPatch, "/cart/items/7", `{}`), http.StatusBadRequest)
	expectStatus(t, f.do(t, http.MethodDelete, "/cart/items/7", ""), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodDelete, "/cart/items/7", ""), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodDelete, "/cart", ""), http.StatusOK)
	if f.cart.Len() != 0 {
		t.Fatalf("expected empty cart")
	}
}

func TestCartRejectsMalformedProduct(t *testing.T) {
	f := newFixture(t)
	expectStatus(t, f.do(t, http.MethodPost, "/cart/items", `{"title":"no id","unitPrice":1}`), http.StatusBadRequest)
	expectStatus(t, f.do(t, http.MethodPost, "/cart/items", `{"id":1,"unitPrice":-1}`), http.StatusBadRequest)
	expectStatus(t, f.do(t, http.MethodPost, "/cart/items", `not json`), http.StatusBadRequest)
}

func TestSessionLoginLogout(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/session", "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"authenticated":false`) || !strings.Contains(rec.Body.String(), `"userId":null`) {
		t.Fatalf("unexpected anonymous session: %s", rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/session/login", `{"email":"a@b.c","password":"secret","recaptchaToken":"tok"}`)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"userId":"42"`) || !strings.Contains(rec.Body.String(), `"role":"artist"`) {
		t.Fatalf("unexpected session: %s", rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/session/logout", "")
	expectStatus(t, rec, http.StatusOK)
	if f.sessions.IsAuthenticated() {
		t.Fatalf("expected logged out even though the account service failed")
	}
	if _, err := f.storage.Get(context.Background(), storage.KeyUserID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected persisted user id cleared, got %v", err)
	}
}

func TestSessionLoginErrors(t *testing.T) {
	f := newFixture(t)
	expectStatus(t, f.do(t, http.MethodPost, "/session/login", `{"email":"a@b.c"}`), http.StatusBadRequest)

	f.auth.loginErr = &domain.NetworkError{Service: "account", Op: "login", Status: http.StatusUnauthorized}
	expectStatus(t, f.do(t, http.MethodPost, "/session/login", `{"email":"a@b.c","password":"x"}`), http.StatusUnauthorized)

	f.auth.loginErr = &domain.NetworkError{Service: "account", Op: "login", Err: errors.New("refused")}
	expectStatus(t, f.do(t, http.MethodPost, "/session/login", `{"email":"a@b.c","password":"x"}`), http.StatusBadGateway)

	f.auth.loginErr = nil
	f.auth.identity = domain.Identity{}
	expectStatus(t, f.do(t, http.MethodPost, "/session/login", `{"email":"a@b.c","password":"x"}`), http.StatusBadRequest)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	expectStatus(t, f.do(t, http.MethodPost, "/session/register", `{"email":"new@example.com","password":"secret1","rol":"artist"}`), http.StatusCreated)
	if len(f.accounts.registered) != 1 || f.accounts.registered[0].Role != "artista" {
		t.Fatalf("unexpected registration: %+v", f.accounts.registered)
	}
	expectStatus(t, f.do(t, http.MethodPost, "/session/register", `{"email":"bad","password":"secret1"}`), http.StatusBadRequest)
}

func TestCheckout(t *testing.T) {
	f := newFixture(t)
	card := `{"card":{"name":"Ana","numC":"4242424242424242","cadC":"12/30","cvv":"123","provider":"visa"}}`

	expectStatus(t, f.do(t, http.MethodPost, "/checkout", card), http.StatusUnauthorized)
	f.login(t)
	expectStatus(t, f.do(t, http.MethodPost, "/checkout", card), http.StatusConflict)
	expectStatus(t, f.do(t, http.MethodGet, "/checkout/confirmation", ""), http.StatusNotFound)

	expectStatus(t, f.do(t, http.MethodPost, "/cart/items", `{"id":1,"title":"A","unitPrice":100}`), http.StatusOK)
	rec := f.do(t, http.MethodPost, "/checkout", card)
	expectStatus(t, rec, http.StatusCreated)
	var conf checkout.Confirmation
	decode(t, rec, &conf)
	if conf.ID == "" || conf.Total.String() != "121" {
		t.Fatalf("unexpected confirmation: %s", rec.Body.String())
	}
	if f.cart.Len() != 0 {
		t.Fatalf("expected cart cleared after checkout")
	}

	rec = f.do(t, http.MethodGet, "/checkout/confirmation", "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), conf.ID) {
		t.Fatalf("unexpected confirmation body: %s", rec.Body.String())
	}
}

func TestCatalogAndRecommendations(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/catalog/albums?search=rock&type=artist&genre=Todas", "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"search":"rock"`) {
		t.Fatalf("filter not bound: %s", rec.Body.String())
	}
	expectStatus(t, f.do(t, http.MethodPost, "/catalog/albums/more", ""), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodGet, "/catalog/albums/3", ""), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodGet, "/catalog/albums/0", ""), http.StatusNotFound)
	expectStatus(t, f.do(t, http.MethodGet, "/catalog/artists/5", ""), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodGet, "/catalog/artists/404", ""), http.StatusNotFound)

	rec = f.do(t, http.MethodGet, "/recommendations", "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"byLike":[]`) {
		t.Fatalf("expected empty shelves as arrays: %s", rec.Body.String())
	}
}

func TestTracksAndRadio(t *testing.T) {
	f := newFixture(t)

	expectStatus(t, f.do(t, http.MethodPost, "/tracks/9/like", ""), http.StatusUnauthorized)
	f.login(t)
	expectStatus(t, f.do(t, http.MethodPost, "/tracks/9/like", ""), http.StatusOK)
	rec := f.do(t, http.MethodGet, "/tracks/9/like", "")
	if !strings.Contains(rec.Body.String(), `"liked":true`) {
		t.Fatalf("expected liked: %s", rec.Body.String())
	}
	expectStatus(t, f.do(t, http.MethodPost, "/tracks/9/play", ""), http.StatusAccepted)
	if f.likes.plays != 1 {
		t.Fatalf("expected one play, got %d", f.likes.plays)
	}

	rec = f.do(t, http.MethodGet, "/radio?search=x", "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"title":"x|Todos"`) {
		t.Fatalf("unexpected radio view: %s", rec.Body.String())
	}
	expectStatus(t, f.do(t, http.MethodPost, "/radio/next", ""), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodPost, "/radio/prev", ""), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodPost, "/radio/select/1", ""), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodPost, "/radio/select/8", ""), http.StatusNotFound)
	expectStatus(t, f.do(t, http.MethodPost, "/radio/reload", ""), http.StatusOK)
}

func TestMeRoutesRequireSession(t *testing.T) {
	f := newFixture(t)
	expectStatus(t, f.do(t, http.MethodGet, "/me/profile", ""), http.StatusUnauthorized)

	f.login(t)
	rec := f.do(t, http.MethodGet, "/me/profile", "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"userId":"42"`) {
		t.Fatalf("unexpected profile: %s", rec.Body.String())
	}

	expectStatus(t, f.do(t, http.MethodPut, "/me/profile", `{"displayName":"Ana B"}`), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodPost, "/me/payment-methods", `{"name":"Ana","numC":"4242","cadC":"12/30","cvv":"123","provider":"visa"}`), http.StatusCreated)
	expectStatus(t, f.do(t, http.MethodPost, "/me/payment-methods", `{"name":"Ana","numC":"42x2","cadC":"12/30","cvv":"123","provider":"visa"}`), http.StatusBadRequest)
	expectStatus(t, f.do(t, http.MethodDelete, "/me/payment-methods/3", ""), http.StatusNoContent)
	if len(f.accounts.deleted) != 1 || f.accounts.deleted[0] != "3" {
		t.Fatalf("unexpected deletes: %v", f.accounts.deleted)
	}

	expectStatus(t, f.do(t, http.MethodPost, "/me/subscriptions/12", ""), http.StatusOK)
	if len(f.accounts.followed) != 1 || f.accounts.followed[0] != "12" {
		t.Fatalf("unexpected subscriptions: %v", f.accounts.followed)
	}

	f.accounts.listErr = &domain.NetworkError{Service: "account", Op: "list payment methods", Status: http.StatusInternalServerError}
	expectStatus(t, f.do(t, http.MethodGet, "/me/payment-methods", ""), http.StatusBadGateway)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rateLimit(newIPLimiter(1, 2)))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes: %v", codes)
	}
}

func TestCartEventsStream(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/cart/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	reader := bufio.NewReader(resp.Body)

	readData := func() string {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			if strings.HasPrefix(line, "data:") {
				return line
			}
		}
	}

	if first := readData(); !strings.Contains(first, `"count":0`) {
		t.Fatalf("unexpected initial event: %s", first)
	}
	if err := f.cart.AddItem(domain.Product{ID: "1", Title: "A"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if next := readData(); !strings.Contains(next, `"count":1`) {
		t.Fatalf("unexpected change event: %s", next)
	}
}

func TestIPLimiterEvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPLimiter(1, 1)
	l.now = func() time.Time { return now }

	first := l.get("10.0.0.1")
	l.get("10.0.0.2")
	if first != l.get("10.0.0.1") {
		t.Fatalf("expected the same limiter for a returning client")
	}

	now = now.Add(limiterIdleTTL / 2)
	l.get("10.0.0.1")
	now = now.Add(limiterIdleTTL)
	l.get("10.0.0.3")

	if _, ok := l.visitors["10.0.0.2"]; ok {
		t.Fatalf("expected idle client to be evicted")
	}
	if _, ok := l.visitors["10.0.0.1"]; ok {
		t.Fatalf("expected client idle for a full ttl to be evicted")
	}
	if len(l.visitors) != 1 {
		t.Fatalf("expected 1 tracked client, got %d", len(l.visitors))
	}
}

func TestOfferLatestKeepsNewestValue(t *testing.T) {
	ch := make(chan int, 1)
	for i := 1; i <= 5; i++ {
		offerLatest(ch, i)
	}
	if got := <-ch; got != 5 {
		t.Fatalf("expected newest value 5, got %d", got)
	}
	select {
	case v := <-ch:
		t.Fatalf("expected empty channel, got %d", v)
	default:
	}
}
