package remote

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/illarion/loginstore/internal/core"
	"github.com/illarion/loginstore/internal/crypto"
	"github.com/illarion/loginstore/internal/login"
)

const testSyncKey = "sync-secret"

func newSyncedStore(t *testing.T, name string) *core.Store {
	t.Helper()

	client := NewClient(WithIterations(crypto.MinIters))
	s, err := core.Open(filepath.Join(t.TempDir(), name),
		core.WithIterations(crypto.MinIters),
		core.WithSynchronizer(client),
	)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Unlock([]byte("store key " + name)); err != nil {
		t.Fatalf("Unlock error: %v", err)
	}
	return s
}

func unlockInfo(t *testing.T, dir, syncKey string) core.UnlockInfo {
	t.Helper()
	tok, err := IssueToken(syncKey, "kid-1", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	return core.UnlockInfo{
		KeyID:          "kid-1",
		AccessToken:    tok,
		SyncKey:        syncKey,
		TokenServerURL: "file://" + dir,
	}
}

func mustSync(t *testing.T, s *core.Store, info core.UnlockInfo) *core.SyncTelemetry {
	t.Helper()
	tel, err := s.Sync(context.Background(), info)
	if err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	return tel
}

func sampleLogin(host, user string) login.Record {
	return login.Record{
		Hostname:      host,
		FormSubmitURL: host,
		Username:      user,
		Password:      "pw-" + user,
	}
}

func TestSyncRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	info := unlockInfo(t, dir, testSyncKey)

	laptop := newSyncedStore(t, "laptop")
	phone := newSyncedStore(t, "phone")

	id, err := laptop.Add(ctx, sampleLogin("https://example.com", "alice"))
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}

	tel := mustSync(t, laptop, info)
	if tel.Outgoing.Sent != 1 {
		t.Errorf("laptop sent %d records, want 1", tel.Outgoing.Sent)
	}

	tel = mustSync(t, phone, info)
	if tel.Incoming.Applied != 1 {
		t.Errorf("phone applied %d records, want 1", tel.Incoming.Applied)
	}
	if tel.Outgoing.Sent != 0 {
		t.Errorf("phone sent %d records, want 0", tel.Outgoing.Sent)
	}

	got, err := phone.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got == nil || got.Password != "pw-alice" {
		t.Fatalf("phone record = %+v, want alice's login", got)
	}

	// Edit on the phone, then delete on the phone and see both reach the laptop
	edited := *got
	edited.Password = "rotated"
	if err := phone.Update(ctx, edited); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	mustSync(t, phone, info)

	tel = mustSync(t, laptop, info)
	if tel.Incoming.Applied != 1 {
		t.Errorf("laptop applied %d records, want 1", tel.Incoming.Applied)
	}
	got, err = laptop.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got == nil || got.Password != "rotated" {
		t.Fatalf("laptop record = %+v, want rotated password", got)
	}

	if _, err := phone.Delete(ctx, id); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	tel = mustSync(t, phone, info)
	if tel.Outgoing.Sent != 1 {
		t.Errorf("phone sent %d changes, want the tombstone", tel.Outgoing.Sent)
	}

	mustSync(t, laptop, info)
	got, err = laptop.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != nil {
		t.Fatalf("laptop still has deleted record %+v", got)
	}
}

func TestCorruptRemoteEntryCountedOnce(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	info := unlockInfo(t, dir, testSyncKey)

	laptop := newSyncedStore(t, "laptop")
	if _, err := laptop.Add(ctx, sampleLogin("https://example.com", "alice")); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	mustSync(t, laptop, info)

	db, err := openDB(dir)
	if err != nil {
		t.Fatalf("openDB error: %v", err)
	}
	err = db.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Put([]byte("broken"), []byte("{not json"))
	})
	db.Close()
	if err != nil {
		t.Fatalf("failed to write corrupt entry: %v", err)
	}

	phone := newSyncedStore(t, "phone")
	tel := mustSync(t, phone, info)
	if tel.Incoming.Applied != 1 || tel.Incoming.Failed != 1 {
		t.Errorf("first sync: applied %d failed %d, want 1 and 1", tel.Incoming.Applied, tel.Incoming.Failed)
	}

	for i := 0; i < 2; i++ {
		tel = mustSync(t, phone, info)
		if tel.Incoming.Failed != 0 {
			t.Errorf("sync %d: failed %d, want the corrupt entry skipped", i+2, tel.Incoming.Failed)
		}
	}

	tel = mustSync(t, laptop, info)
	if tel.Incoming.Failed != 1 {
		t.Errorf("laptop failed %d, want 1 on first sight", tel.Incoming.Failed)
	}
	tel = mustSync(t, laptop, info)
	if tel.Incoming.Failed != 0 {
		t.Errorf("laptop failed %d on second sync, want 0", tel.Incoming.Failed)
	}
}

func TestSyncRejectsBadCredentials(t *testing.T) {
	dir := t.TempDir()
	s := newSyncedStore(t, "laptop")
	mustSync(t, s, unlockInfo(t, dir, testSyncKey))

	// Token signed with a different key than the one presented
	info := unlockInfo(t, dir, testSyncKey)
	info.SyncKey = "other"
	if _, err := s.Sync(context.Background(), info); !errors.Is(err, core.ErrSyncAuthInvalid) {
		t.Errorf("mismatched token: got %v, want ErrSyncAuthInvalid", err)
	}

	// Self-consistent credentials that do not open the remote copy
	if _, err := s.Sync(context.Background(), unlockInfo(t, dir, "other")); !errors.Is(err, core.ErrSyncAuthInvalid) {
		t.Errorf("wrong sync key: got %v, want ErrSyncAuthInvalid", err)
	}

	info = unlockInfo(t, dir, testSyncKey)
	info.AccessToken = ""
	if _, err := s.Sync(context.Background(), info); !errors.Is(err, core.ErrSyncAuthInvalid) {
		t.Errorf("missing token: got %v, want ErrSyncAuthInvalid", err)
	}
}

func TestSyncUnsupportedEndpoint(t *testing.T) {
	s := newSyncedStore(t, "laptop")

	for _, endpoint := range []string{"https://sync.example.com/1.0", "file://remote-host/tmp/x", "file://", "::bad"} {
		info := unlockInfo(t, t.TempDir(), testSyncKey)
		info.TokenServerURL = endpoint
		if _, err := s.Sync(context.Background(), info); !errors.Is(err, core.ErrRequestFailed) {
			t.Errorf("endpoint %q: got %v, want ErrRequestFailed", endpoint, err)
		}
	}
}

func TestRemoteDirReplacedResetsStore(t *testing.T) {
	ctx := context.Background()
	s := newSyncedStore(t, "laptop")

	if _, err := s.Add(ctx, sampleLogin("https://example.com", "alice")); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	mustSync(t, s, unlockInfo(t, t.TempDir(), testSyncKey))

	// A fresh remote copy has a new sync id, so everything is uploaded again
	tel := mustSync(t, s, unlockInfo(t, t.TempDir(), testSyncKey))
	if tel.Outgoing.Sent != 1 {
		t.Errorf("sent %d records after remote change, want 1", tel.Outgoing.Sent)
	}
}

func TestRemoteDir(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
		wantErr  bool
	}{
		{"file:///tmp/remote", "/tmp/remote", false},
		{"file://localhost/tmp/remote", "/tmp/remote", false},
		{"http://localhost/tmp/remote", "", true},
		{"file://other/tmp/remote", "", true},
		{"file://", "", true},
	}
	for _, tt := range tests {
		got, err := remoteDir(tt.endpoint)
		if (err != nil) != tt.wantErr {
			t.Errorf("remoteDir(%q) error = %v, wantErr %v", tt.endpoint, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("remoteDir(%q) = %q, want %q", tt.endpoint, got, tt.want)
		}
	}
}
