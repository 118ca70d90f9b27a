// ABOUTME: Tests for the session store and its durable persistence.
// ABOUTME: Checks memory/storage agreement, corrupt entry recovery, reload, and watching.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/sociality/internal/models"
	"github.com/2389-research/sociality/internal/storage"
)

func TestOpenEmpty(t *testing.T) {
	s := Open(storage.NewMemoryKV(), nil)

	st := s.Snapshot()
	assert.False(t, st.LoggedIn())
	assert.Nil(t, st.Profile)
	assert.Equal(t, "", s.Token())
}

func TestSetCredentialsPersists(t *testing.T) {
	kv := storage.NewMemoryKV()
	s := Open(kv, nil)

	s.SetCredentials("abc", &models.User{ID: 1, Name: "Ada", Username: "ada"})

	assert.Equal(t, "abc", s.Token())
	token, ok, err := kv.Get(TokenKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", token)

	raw, ok, err := kv.Get(ProfileKey)
	require.NoError(t, err)
	require.True(t, ok)
	var stored models.User
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, "ada", stored.Username)
}

func TestSetCredentialsWithoutProfileRemovesEntry(t *testing.T) {
	kv := storage.NewMemoryKV()
	s := Open(kv, nil)

	s.SetCredentials("abc", &models.User{ID: 1})
	s.SetCredentials("def", nil)

	_, ok, _ := kv.Get(ProfileKey)
	assert.False(t, ok, "profile entry should be removed")
	assert.Nil(t, s.Profile())
	assert.Equal(t, "def", s.Token())
}

func TestLogoutClearsBothEntries(t *testing.T) {
	kv := storage.NewMemoryKV()
	s := Open(kv, nil)
	s.SetCredentials("abc", &models.User{ID: 1})

	s.Logout()

	_, ok, _ := kv.Get(TokenKey)
	assert.False(t, ok)
	_, ok, _ = kv.Get(ProfileKey)
	assert.False(t, ok)
	assert.False(t, s.Snapshot().LoggedIn())

	// Idempotent
	s.Logout()
	assert.Equal(t, "", s.Token())

	// A fresh process sees an empty session.
	reopened := Open(kv, nil)
	assert.False(t, reopened.Snapshot().LoggedIn())
	assert.Nil(t, reopened.Profile())
}

func TestReopenRestoresSession(t *testing.T) {
	dir := t.TempDir()
	kv, err := storage.NewFileKV(dir)
	require.NoError(t, err)

	s := Open(kv, nil)
	s.SetCredentials("abc", &models.User{ID: 7, Username: "grace"})

	kv2, err := storage.NewFileKV(dir)
	require.NoError(t, err)
	restored := Open(kv2, nil)

	assert.Equal(t, "abc", restored.Token())
	require.NotNil(t, restored.Profile())
	assert.Equal(t, int64(7), restored.Profile().ID)
}

func TestOpenCorruptEntries(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		profile     string
		wantToken   string
		wantProfile bool
	}{
		{"undefined token", "undefined", `{"id":1}`, "", false},
		{"null token", "null", `{"id":1}`, "", false},
		{"blank token", "   ", `{"id":1}`, "", false},
		{"corrupt profile", "abc", `{not json`, "abc", false},
		{"null profile", "abc", "null", "abc", false},
		{"undefined profile", "abc", "undefined", "abc", false},
		{"valid", "abc", `{"id":1,"name":"Ada"}`, "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := storage.NewMemoryKV()
			_ = kv.Set(TokenKey, tt.token)
			_ = kv.Set(ProfileKey, tt.profile)

			s := Open(kv, nil)
			assert.Equal(t, tt.wantToken, s.Token())
			assert.Equal(t, tt.wantProfile, s.Profile() != nil)
		})
	}
}

// failingKV fails every operation.
type failingKV struct{}

func (failingKV) Get(string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (failingKV) Set(string, string) error         { return errors.New("disk gone") }
func (failingKV) Delete(string) error              { return errors.New("disk gone") }

func TestPersistenceFailuresAreSwallowed(t *testing.T) {
	s := Open(failingKV{}, nil)
	assert.False(t, s.Snapshot().LoggedIn())

	s.SetCredentials("abc", &models.User{ID: 1})
	assert.Equal(t, "abc", s.Token(), "in-memory state still updates")

	s.Logout()
	assert.Equal(t, "", s.Token())
}

func TestProfileIsCopied(t *testing.T) {
	s := Open(storage.NewMemoryKV(), nil)
	u := &models.User{ID: 1, Name: "Ada"}
	s.SetCredentials("abc", u)

	u.Name = "mutated"
	assert.Equal(t, "Ada", s.Profile().Name)

	p := s.Profile()
	p.Name = "also mutated"
	assert.Equal(t, "Ada", s.Profile().Name)
}

func TestUpdateProfile(t *testing.T) {
	kv := storage.NewMemoryKV()
	s := Open(kv, nil)
	s.SetCredentials("abc", &models.User{ID: 1, Bio: "old"})

	s.UpdateProfile(&models.User{ID: 1, Bio: "new"})

	assert.Equal(t, "abc", s.Token())
	assert.Equal(t, "new", s.Profile().Bio)
	raw, _, _ := kv.Get(ProfileKey)
	assert.Contains(t, raw, `"bio":"new"`)
}

// Memory and storage must agree after every operation in any sequence.
func TestRandomSequencesKeepStorageInSync(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	kv := storage.NewMemoryKV()
	s := Open(kv, nil)

	for i := 0; i < 200; i++ {
		switch rng.Intn(3) {
		case 0:
			var profile *models.User
			if rng.Intn(2) == 0 {
				profile = &models.User{ID: int64(i), Username: "u"}
			}
			token := ""
			if rng.Intn(5) > 0 {
				token = "tok-" + string(rune('a'+rng.Intn(26)))
			}
			s.SetCredentials(token, profile)
		case 1:
			s.Logout()
		case 2:
			if s.Snapshot().LoggedIn() {
				s.UpdateProfile(&models.User{ID: int64(i)})
			}
		}

		mem := s.Snapshot()
		restored := Open(kv, nil).Snapshot()
		require.Equal(t, mem.Token, restored.Token, "step %d token", i)
		require.Equal(t, mem.Profile, restored.Profile, "step %d profile", i)
	}
}

func TestSubscribe(t *testing.T) {
	s := Open(storage.NewMemoryKV(), nil)

	var seen []State
	s.Subscribe(func(st State) { seen = append(seen, st) })

	s.SetCredentials("abc", nil)
	s.Logout()

	require.Len(t, seen, 2)
	assert.Equal(t, "abc", seen[0].Token)
	assert.False(t, seen[1].LoggedIn())
}

func TestReloadPicksUpExternalChange(t *testing.T) {
	kv := storage.NewMemoryKV()
	s := Open(kv, nil)
	s.SetCredentials("abc", nil)

	// Another process logs out.
	_ = kv.Delete(TokenKey)

	calls := 0
	s.Subscribe(func(State) { calls++ })
	s.Reload()
	assert.Equal(t, "", s.Token())
	assert.Equal(t, 1, calls)

	// No change, no notification.
	s.Reload()
	assert.Equal(t, 1, calls)
}

func TestWatchReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	kv, err := storage.NewFileKV(dir)
	require.NoError(t, err)
	s := Open(kv, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, kv) }()

	other, err := storage.NewFileKV(dir)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_ = other.Set(TokenKey, "from-elsewhere")
		return s.Token() == "from-elsewhere"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
