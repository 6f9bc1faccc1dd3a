package google

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"golang.org/x/oauth2"
)

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token-test.json")
	store := NewFileTokenStore(path)

	token := &oauth2.Token{
		AccessToken:  "access-123",
		RefreshToken: "refresh-456",
		TokenType:    "Bearer",
	}
	if err := store.SaveToken(token); err != nil {
		t.Fatalf("SaveToken returned error: %v", err)
	}

	loaded, err := store.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken returned error: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadToken returned nil for a saved token")
	}
	if loaded.AccessToken != token.AccessToken || loaded.RefreshToken != token.RefreshToken {
		t.Errorf("loaded token = %+v", loaded)
	}
}

func TestFileTokenStoreMissingFile(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "does-not-exist.json"))

	token, err := store.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken on a missing file must not error, got %v", err)
	}
	if token != nil {
		t.Errorf("token = %+v, want nil", token)
	}
}

// recordingStore counts saves so the auto-save source can be observed.
type recordingStore struct {
	saved []*oauth2.Token
}

func (s *recordingStore) SaveToken(token *oauth2.Token) error {
	s.saved = append(s.saved, token)
	return nil
}

func (s *recordingStore) LoadToken() (*oauth2.Token, error) { return nil, nil }

// staticTokenSource returns a fixed sequence of tokens.
type staticTokenSource struct {
	tokens []*oauth2.Token
	err    error
}

func (s *staticTokenSource) Token() (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	token := s.tokens[0]
	if len(s.tokens) > 1 {
		s.tokens = s.tokens[1:]
	}
	return token, nil
}

func TestAutoSaveTokenSourceSavesOnRefresh(t *testing.T) {
	first := &oauth2.Token{AccessToken: "one"}
	second := &oauth2.Token{AccessToken: "two"}

	store := &recordingStore{}
	source := &autoSaveTokenSource{
		source:    &staticTokenSource{tokens: []*oauth2.Token{first, second}},
		store:     store,
		lastToken: first,
	}

	// Same access token: no save.
	if _, err := source.Token(); err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if len(store.saved) != 0 {
		t.Fatalf("unchanged token was saved %d times", len(store.saved))
	}

	// Refreshed token: saved once.
	if _, err := source.Token(); err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if len(store.saved) != 1 || store.saved[0].AccessToken != "two" {
		t.Errorf("saved = %+v, want the refreshed token saved once", store.saved)
	}
}

func TestAutoSaveTokenSourcePropagatesErrors(t *testing.T) {
	wantErr := errors.New("refresh failed")
	source := &autoSaveTokenSource{
		source: &staticTokenSource{err: wantErr},
		store:  &recordingStore{},
	}

	if _, err := source.Token(); !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
}

func TestTokenFileForAccount(t *testing.T) {
	if got := TokenFileForAccount("work"); got != "token-work.json" {
		t.Errorf("TokenFileForAccount = %q", got)
	}
}

func TestGetTokenAccounts(t *testing.T) {
	t.Chdir(t.TempDir())

	for _, name := range []string{"token-personal.json", "token-work.json", "credentials.json", "notes.txt"} {
		if err := os.WriteFile(name, []byte("{}"), 0600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	accounts, err := GetTokenAccounts()
	if err != nil {
		t.Fatalf("GetTokenAccounts returned error: %v", err)
	}
	if want := []string{"personal", "work"}; !reflect.DeepEqual(accounts, want) {
		t.Errorf("accounts = %v, want %v", accounts, want)
	}
}
