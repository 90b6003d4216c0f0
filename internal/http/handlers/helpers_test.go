package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"

	"github.com/rachelandtim/wedding-api/internal/domain"
	"github.com/rachelandtim/wedding-api/internal/http/handlers"
	"github.com/rachelandtim/wedding-api/internal/repo/postgres"
	"github.com/rachelandtim/wedding-api/internal/service"
	"github.com/rachelandtim/wedding-api/pkg/config"
	"github.com/rachelandtim/wedding-api/pkg/events"
)

// ---------- Mocks ----------

type mockMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	sendErr  error
}

type sentMail struct {
	to      string
	subject string
	text    string
	html    string
}

func (m *mockMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: toEmail, subject: subject, text: text, html: html})
	return "mock-id", m.sendErr
}

func (m *mockMailer) sentTo(email string) []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMail
	for _, s := range m.sent {
		if s.to == email {
			out = append(out, s)
		}
	}
	return out
}

type mockTokenRepo struct {
	mu      sync.Mutex
	nextID  int64
	byValue map[string]*domain.ModificationToken
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{nextID: 1, byValue: make(map[string]*domain.ModificationToken)}
}

func (m *mockTokenRepo) Create(_ context.Context, t *domain.ModificationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.nextID
	m.nextID++
	t.CreatedAt = time.Now()
	cp := *t
	m.byValue[t.Token] = &cp
	return nil
}

func (m *mockTokenRepo) FindByToken(_ context.Context, token string) (*domain.ModificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byValue[token]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *mockTokenRepo) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

// lastFor returns the most recently issued token bound to email.
func (m *mockTokenRepo) lastFor(email string) *domain.ModificationToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.ModificationToken
	for _, t := range m.byValue {
		if !strings.EqualFold(t.Email, email) {
			continue
		}
		if latest == nil || t.ID > latest.ID {
			latest = t
		}
	}
	return latest
}

// expire backdates a stored token past its TTL.
func (m *mockTokenRepo) expire(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.byValue[token]; ok {
		t.ExpiresAt = time.Now().Add(-time.Minute)
	}
}

type mockRSVPRepo struct {
	mu      sync.Mutex
	nextID  int64
	byEmail map[string]*domain.RSVP
	tokens  *mockTokenRepo
}

func newMockRSVPRepo(tokens *mockTokenRepo) *mockRSVPRepo {
	return &mockRSVPRepo{nextID: 1, byEmail: make(map[string]*domain.RSVP), tokens: tokens}
}

func (m *mockRSVPRepo) Create(_ context.Context, req *domain.CreateRSVPRequest, guestID *int64) (*domain.RSVP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(req.GuestEmail)
	if _, exists := m.byEmail[key]; exists {
		return nil, postgres.ErrDuplicateEmail
	}
	now := time.Now()
	r := &domain.RSVP{
		ID:                    m.nextID,
		GuestID:               guestID,
		GuestName:             req.GuestName,
		GuestEmail:            req.GuestEmail,
		Attending:             *req.Attending,
		PlusOne:               req.PlusOne,
		PlusOneName:           req.PlusOneName,
		DietaryRestrictions:   req.DietaryRestrictions,
		SongRequests:          req.SongRequests,
		SpecialAccommodations: req.SpecialAccommodations,
		NumberOfGuests:        req.NumberOfGuests(),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	m.nextID++
	m.byEmail[key] = r
	cp := *r
	return &cp, nil
}

func (m *mockRSVPRepo) FindByEmail(_ context.Context, email string) (*domain.RSVP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockRSVPRepo) List(_ context.Context) ([]domain.RSVP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RSVP
	for _, r := range m.byEmail {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RedeemAndUpdate mirrors the conditional-consume transaction: the token
// state check and flip happen under one lock, so exactly one concurrent
// caller can win.
func (m *mockRSVPRepo) RedeemAndUpdate(_ context.Context, token string, patch domain.RSVPPatch) (*domain.RSVP, error) {
	m.tokens.mu.Lock()
	defer m.tokens.mu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens.byValue[token]
	if !ok || t.Used || time.Now().After(t.ExpiresAt) {
		return nil, postgres.ErrTokenNotRedeemable
	}

	r, ok := m.byEmail[strings.ToLower(t.Email)]
	if !ok {
		// Token stays unconsumed, like a rolled-back transaction.
		return nil, postgres.ErrRSVPNotFound
	}

	now := time.Now()
	t.Used = true
	t.UsedAt = &now

	patch.Apply(r)
	r.UpdatedAt = now
	cp := *r
	return &cp, nil
}

func (m *mockRSVPRepo) delete(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byEmail, strings.ToLower(email))
}

type mockGuestRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.Guest
}

func newMockGuestRepo() *mockGuestRepo {
	return &mockGuestRepo{nextID: 1, byID: make(map[int64]*domain.Guest)}
}

func (m *mockGuestRepo) Create(_ context.Context, req *domain.CreateGuestRequest) (*domain.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.byID {
		if strings.EqualFold(g.Email, req.Email) {
			return nil, postgres.ErrDuplicateEmail
		}
	}
	now := time.Now()
	g := &domain.Guest{
		ID:           m.nextID,
		Name:         req.Name,
		Email:        req.Email,
		AllowPlusOne: req.AllowPlusOne,
		MaxGuests:    req.MaxGuests,
		Notes:        req.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.nextID++
	m.byID[g.ID] = g
	cp := *g
	return &cp, nil
}

func (m *mockGuestRepo) FindByID(_ context.Context, id int64) (*domain.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (m *mockGuestRepo) FindByEmail(_ context.Context, email string) (*domain.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.byID {
		if strings.EqualFold(g.Email, email) {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockGuestRepo) List(_ context.Context, search string) ([]domain.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Guest
	for _, g := range m.byID {
		if search != "" &&
			!strings.Contains(strings.ToLower(g.Name), strings.ToLower(search)) &&
			!strings.Contains(strings.ToLower(g.Email), strings.ToLower(search)) {
			continue
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockGuestRepo) Update(_ context.Context, id int64, req *domain.UpdateGuestRequest) (*domain.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	if req.Name != nil {
		g.Name = *req.Name
	}
	if req.Email != nil {
		g.Email = *req.Email
	}
	if req.AllowPlusOne != nil {
		g.AllowPlusOne = *req.AllowPlusOne
	}
	if req.MaxGuests != nil {
		g.MaxGuests = *req.MaxGuests
	}
	if req.Notes != nil {
		g.Notes = req.Notes
	}
	g.UpdatedAt = time.Now()
	cp := *g
	return &cp, nil
}

func (m *mockGuestRepo) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return false, nil
	}
	delete(m.byID, id)
	return true, nil
}

func (m *mockGuestRepo) FindMatch(_ context.Context, query string) (*domain.GuestMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.byID {
		if strings.EqualFold(g.Email, query) ||
			strings.Contains(strings.ToLower(g.Name), strings.ToLower(query)) {
			return &domain.GuestMatch{
				ID:           g.ID,
				Name:         g.Name,
				Email:        g.Email,
				AllowPlusOne: g.AllowPlusOne,
				MaxGuests:    g.MaxGuests,
			}, nil
		}
	}
	return nil, nil
}

type mockGuestbookRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries []domain.GuestbookEntry
}

func newMockGuestbookRepo() *mockGuestbookRepo {
	return &mockGuestbookRepo{nextID: 1}
}

func (m *mockGuestbookRepo) Create(_ context.Context, req *domain.CreateGuestbookEntryRequest) (*domain.GuestbookEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := domain.GuestbookEntry{
		ID:        m.nextID,
		Name:      req.Name,
		Message:   req.Message,
		Location:  req.Location,
		CreatedAt: time.Now(),
	}
	m.nextID++
	m.entries = append([]domain.GuestbookEntry{e}, m.entries...)
	return &e, nil
}

func (m *mockGuestbookRepo) List(_ context.Context, limit, offset int) ([]domain.GuestbookEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := len(m.entries)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]domain.GuestbookEntry, end-offset)
	copy(out, m.entries[offset:end])
	return out, total, nil
}

func (m *mockGuestbookRepo) Stats(_ context.Context) (*domain.GuestbookStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.GuestbookStats{TotalEntries: len(m.entries)}
	cities := make(map[string]bool)
	for _, e := range m.entries {
		if e.Location != nil && strings.TrimSpace(*e.Location) != "" {
			cities[strings.ToLower(strings.TrimSpace(*e.Location))] = true
		}
		stats.EmojiCount += domain.CountEmoji(e.Message)
	}
	stats.CitiesCount = len(cities)
	return stats, nil
}

type mockScoreRepo struct {
	mu     sync.Mutex
	nextID int64
	scores []domain.GameScore
}

func newMockScoreRepo() *mockScoreRepo { return &mockScoreRepo{nextID: 1} }

func (m *mockScoreRepo) Create(_ context.Context, name string, score int) (*domain.GameScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := domain.GameScore{ID: m.nextID, Name: name, Score: score, CreatedAt: time.Now()}
	m.nextID++
	m.scores = append(m.scores, s)
	return &s, nil
}

func (m *mockScoreRepo) Top(_ context.Context, n int) ([]domain.GameScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.GameScore, len(m.scores))
	copy(out, m.scores)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *mockScoreRepo) RankOf(_ context.Context, score int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rank := 1
	for _, s := range m.scores {
		if s.Score > score {
			rank++
		}
	}
	return rank, nil
}

type mockCounterRepo struct {
	mu    sync.Mutex
	count int64
}

func (m *mockCounterRepo) Get(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count, nil
}

func (m *mockCounterRepo) Increment(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	return m.count, nil
}

// ---------- Test Setup ----------

const (
	testAdminUser = "admin"
	testAdminPass = "swordfish-kelp-42"
)

type testEnv struct {
	server    *httptest.Server
	tokens    *mockTokenRepo
	rsvps     *mockRSVPRepo
	guests    *mockGuestRepo
	guestbook *mockGuestbookRepo
	scores    *mockScoreRepo
	counter   *mockCounterRepo
	mailer    *mockMailer
	cfg       *config.Config
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	hash, err := argon2id.CreateHash(testAdminPass, argon2id.DefaultParams)
	if err != nil {
		t.Fatalf("Failed to hash test password: %v", err)
	}

	cfg := &config.Config{
		Admin: config.AdminConfig{
			JWTSecret:    "test-secret",
			Username:     testAdminUser,
			PasswordHash: hash,
			SessionTTL:   time.Hour,
		},
		Email: config.EmailConfig{
			AdminEmail: "couple@example.com",
		},
		Site: config.SiteConfig{
			BaseURL:  "http://localhost:4321",
			TokenTTL: 15 * time.Minute,
		},
	}

	tokens := newMockTokenRepo()
	rsvps := newMockRSVPRepo(tokens)
	guests := newMockGuestRepo()
	guestbook := newMockGuestbookRepo()
	scores := newMockScoreRepo()
	counter := &mockCounterRepo{}
	m := &mockMailer{}
	bus := events.NewNoopEventBus()

	modifySvc := service.NewModifyService(tokens, rsvps, m, bus, cfg)
	rsvpSvc := service.NewRSVPService(rsvps, guests, m, bus, cfg)
	guestbookSvc := service.NewGuestbookService(guestbook, m, bus, cfg)

	h := handlers.New(modifySvc, rsvpSvc, guestbookSvc, guests, scores, counter, cfg)

	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Route("/rsvp", func(r chi.Router) {
			r.Post("/", h.CreateRSVP)
			r.Get("/lookup", h.LookupRSVP)
			r.Post("/modify-request", h.RequestModification)
			r.Get("/verify-token", h.VerifyToken)
			r.Put("/", h.UpdateRSVP)
		})
		r.Route("/guestbook", func(r chi.Router) {
			r.Get("/", h.ListGuestbook)
			r.Get("/stats", h.GuestbookStats)
			r.Post("/", h.CreateGuestbookEntry)
		})
		r.Get("/guests/search", h.SearchGuests)
		r.Route("/counter", func(r chi.Router) {
			r.Get("/", h.GetCounter)
			r.Post("/", h.IncrementCounter)
		})
		r.Route("/scores", func(r chi.Router) {
			r.Get("/", h.Leaderboard)
			r.Post("/", h.SubmitScore)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.AdminLogin)
			r.Group(func(r chi.Router) {
				r.Use(h.RequireAdmin)
				r.Get("/guests", h.ListGuests)
				r.Post("/guests", h.CreateGuest)
				r.Put("/guests/{id}", h.UpdateGuest)
				r.Delete("/guests/{id}", h.DeleteGuest)
				r.Get("/rsvps", h.ListRSVPs)
			})
		})
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &testEnv{
		server:    server,
		tokens:    tokens,
		rsvps:     rsvps,
		guests:    guests,
		guestbook: guestbook,
		scores:    scores,
		counter:   counter,
		mailer:    m,
		cfg:       cfg,
	}
}

// createRSVP seeds an RSVP through the public endpoint.
func (e *testEnv) createRSVP(t *testing.T, name, email string) {
	t.Helper()
	attending := true
	body := map[string]interface{}{
		"guest_name":  name,
		"guest_email": email,
		"attending":   attending,
	}
	resp := postJSON(t, e.server.URL+"/v1/rsvp", body, http.StatusCreated)
	resp.Body.Close()
}

// requestToken runs the issue step and returns the minted token value.
func (e *testEnv) requestToken(t *testing.T, email string) string {
	t.Helper()
	resp := postJSON(t, e.server.URL+"/v1/rsvp/modify-request", map[string]string{"email": email}, http.StatusOK)
	resp.Body.Close()

	tok := e.tokens.lastFor(email)
	if tok == nil {
		t.Fatalf("No token issued for %s", email)
	}
	return tok.Token
}

// ---------- Helper Functions ----------

func postJSON(t *testing.T, url string, data interface{}, expectedStatus int) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", bytes.NewBuffer(jsonBytes(data)))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}

	if resp.StatusCode != expectedStatus {
		t.Fatalf("POST %s: expected status %d, got %d", url, expectedStatus, resp.StatusCode)
	}

	return resp
}

func putJSON(t *testing.T, url string, data interface{}, expectedStatus int) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPut, url, bytes.NewBuffer(jsonBytes(data)))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT %s failed: %v", url, err)
	}

	if resp.StatusCode != expectedStatus {
		t.Fatalf("PUT %s: expected status %d, got %d", url, expectedStatus, resp.StatusCode)
	}

	return resp
}

func get(t *testing.T, url string, expectedStatus int) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}

	if resp.StatusCode != expectedStatus {
		t.Fatalf("GET %s: expected status %d, got %d", url, expectedStatus, resp.StatusCode)
	}

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func jsonBytes(data interface{}) []byte {
	b, _ := json.Marshal(data)
	return b
}
