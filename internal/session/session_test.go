package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storedesk/internal/auth"
	"storedesk/internal/forms"
	"storedesk/internal/models"
)

type fakeAuth struct {
	session *models.Session
	err     error
	logins  []forms.LoginInput
}

func (f *fakeAuth) Login(_ context.Context, in forms.LoginInput) (*models.Session, error) {
	f.logins = append(f.logins, in)
	return f.session, f.err
}

func (f *fakeAuth) Register(_ context.Context, in forms.RegisterInput) (*models.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.session
	s.User.Name = in.Name
	return &s, nil
}

func token(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 9, "exp": exp.Unix()}).SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, passphrase := range []string{"", "correct horse"} {
		path := filepath.Join(t.TempDir(), "nested", "session.json")
		s, err := NewFileStore(path, passphrase)
		if err != nil {
			t.Fatal(err)
		}

		if _, err := s.Get(ctx, StorageKey); !errors.Is(err, ErrNoValue) {
			t.Fatalf("Get on empty store: err = %v", err)
		}
		if err := s.Set(ctx, StorageKey, []byte(`{"token":"abc"}`)); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if err := s.Set(ctx, "theme", []byte(`"dark"`)); err != nil {
			t.Fatalf("Set: %v", err)
		}

		reopened, _ := NewFileStore(path, passphrase)
		v, err := reopened.Get(ctx, StorageKey)
		if err != nil || string(v) != `{"token":"abc"}` {
			t.Errorf("Get = %s, %v", v, err)
		}

		raw, _ := os.ReadFile(path)
		if passphrase != "" && strings.Contains(string(raw), "abc") {
			t.Error("encrypted file leaks plaintext")
		}

		if err := reopened.Remove(ctx, StorageKey); err != nil {
			t.Fatal(err)
		}
		if _, err := reopened.Get(ctx, StorageKey); !errors.Is(err, ErrNoValue) {
			t.Errorf("after Remove: err = %v", err)
		}
		if v, _ := reopened.Get(ctx, "theme"); string(v) != `"dark"` {
			t.Errorf("other keys must survive Remove, got %s", v)
		}
	}
}

func TestFileStoreWrongPassphrase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	s, _ := NewFileStore(path, "one")
	if err := s.Set(ctx, StorageKey, []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	other, _ := NewFileStore(path, "two")
	if _, err := other.Get(ctx, StorageKey); err == nil {
		t.Error("expected decrypt error with the wrong passphrase")
	}
}

func TestManagerLoginPersistsAndLogoutClears(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	fa := &fakeAuth{session: &models.Session{
		User:  models.User{ID: 9, Name: "Sara", Email: "sara@example.com", RoleID: 3},
		Token: token(t, time.Now().Add(time.Hour)),
	}}
	m := NewManager(fa, store, nil)

	if m.IsAuthenticated() {
		t.Fatal("fresh manager must not be authenticated")
	}

	s, err := m.Login(ctx, forms.LoginInput{Method: forms.MethodEmail, Identifier: "sara@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.User.ID != 9 || m.Token() != fa.session.Token {
		t.Errorf("session = %+v, token = %q", s, m.Token())
	}
	if _, err := store.Get(ctx, StorageKey); err != nil {
		t.Errorf("session not persisted: %v", err)
	}

	// a new manager restores it from the store
	m2 := NewManager(fa, store, nil)
	restored, err := m2.Load(ctx)
	if err != nil || restored.User.Email != "sara@example.com" {
		t.Fatalf("Load = %+v, %v", restored, err)
	}
	if cur, ok := m2.Current(); !ok || cur.User.EffectiveRole() != models.RoleStoreOwner {
		t.Errorf("Current = %+v, %v", cur, ok)
	}

	if err := m2.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if m2.IsAuthenticated() || m2.Token() != "" {
		t.Error("still authenticated after logout")
	}
	if _, err := m2.Load(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Load after logout: err = %v", err)
	}
}

func TestManagerRejectsInvalidFormsWithoutCallingAPI(t *testing.T) {
	fa := &fakeAuth{session: &models.Session{}}
	m := NewManager(fa, NewMemoryStore(), nil)

	_, err := m.Login(context.Background(), forms.LoginInput{Method: forms.MethodEmail})
	var fe forms.Errors
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want forms.Errors", err)
	}
	if len(fa.logins) != 0 {
		t.Error("API must not be called for an invalid form")
	}

	_, err = m.Register(context.Background(), forms.RegisterInput{Method: forms.MethodEmail, Name: "A"})
	if !errors.As(err, &fe) {
		t.Errorf("err = %v, want forms.Errors", err)
	}
}

func TestManagerLoginFailureKeepsSignedOut(t *testing.T) {
	boom := errors.New("invalid credentials")
	m := NewManager(&fakeAuth{err: boom}, NewMemoryStore(), nil)
	_, err := m.Login(context.Background(), forms.LoginInput{Method: forms.MethodPhone, Identifier: "0501234567", Password: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if m.IsAuthenticated() {
		t.Error("failed login must not authenticate")
	}
}

func TestManagerRegister(t *testing.T) {
	fa := &fakeAuth{session: &models.Session{User: models.User{ID: 3, RoleID: 5}, Token: "opaque-token"}}
	m := NewManager(fa, NewMemoryStore(), nil)
	s, err := m.Register(context.Background(), forms.RegisterInput{
		Method: forms.MethodPhone, Name: "Omar", Phone: "0501234567", Password: "secret1", RoleID: 5,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if s.User.Name != "Omar" || !m.IsAuthenticated() {
		t.Errorf("session = %+v", s)
	}
	if m.Token() != "opaque-token" {
		t.Errorf("opaque tokens must be accepted, got %q", m.Token())
	}
}

func TestManagerDropsExpiredStoredSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Set(ctx, StorageKey, []byte(`{"user":{"id":9},"token":"`+token(t, time.Now().Add(-time.Minute))+`"}`))

	m := NewManager(&fakeAuth{}, store, nil)
	if _, err := m.Load(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
	if _, err := store.Get(ctx, StorageKey); !errors.Is(err, ErrNoValue) {
		t.Error("expired session should be removed from the store")
	}
}

func TestManagerVerifiesWithSecret(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Set(ctx, StorageKey, []byte(`{"user":{"id":9},"token":"`+token(t, time.Now().Add(time.Hour))+`"}`))

	m := NewManager(&fakeAuth{}, store, auth.NewInspector("different-secret"))
	if _, err := m.Load(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated for a bad signature", err)
	}
}

func TestManagerCurrentExpiresInMemory(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	fa := &fakeAuth{session: &models.Session{User: models.User{ID: 9}, Token: token(t, exp)}}
	m := NewManager(fa, NewMemoryStore(), nil)
	if _, err := m.Login(context.Background(), forms.LoginInput{Method: forms.MethodEmail, Identifier: "a@b.co", Password: "x"}); err != nil {
		t.Fatal(err)
	}
	m.now = func() time.Time { return exp.Add(time.Second) }
	if m.IsAuthenticated() {
		t.Error("session should lapse once the token expires")
	}
}
