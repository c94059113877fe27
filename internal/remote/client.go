package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/illarion/loginstore/internal/core"
	"github.com/illarion/loginstore/internal/crypto"
	"github.com/illarion/loginstore/internal/logging"
	"github.com/illarion/loginstore/internal/login"
)

// Client syncs stores against a folder remote
type Client struct {
	iterations int
	now        func() time.Time
	log        logging.Logger
}

// Option configures a Client
type Option func(*Client)

// WithIterations sets the PBKDF2 iteration count used when a new remote copy
// is created.
func WithIterations(n int) Option {
	return func(c *Client) { c.iterations = n }
}

// WithClock overrides the time source for server timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient returns a Client
func NewClient(opts ...Option) *Client {
	c := &Client{now: time.Now, log: logging.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ core.Synchronizer = (*Client)(nil)

// Sync downloads changes newer than the last sync, applies them, then uploads
// local changes and tombstones.
func (c *Client) Sync(ctx context.Context, session *core.SyncSession, info core.UnlockInfo) error {
	dir, err := remoteDir(info.TokenServerURL)
	if err != nil {
		return err
	}
	if err := VerifyToken(info.AccessToken, info.SyncKey, info.KeyID); err != nil {
		return err
	}
	if err := session.Interrupted(); err != nil {
		return err
	}

	db, err := openDB(dir)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrRequestFailed, err)
	}
	defer db.Close()

	m, err := db.ensureMeta(info.SyncKey, c.iterations)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrRequestFailed, err)
	}

	cipher, err := cipherFor(info.SyncKey, &crypto.KDF{Salt: m.Salt, Iterations: m.Iterations})
	if err != nil {
		return err
	}
	defer cipher.Destroy()
	if !cipher.VerifyKeyCheck(m.Check) {
		return fmt.Errorf("%w: sync key does not match remote copy", core.ErrSyncAuthInvalid)
	}

	if _, err := session.EnsureSyncID(m.SyncID); err != nil {
		return err
	}

	state, err := loadState(session)
	if err != nil {
		return err
	}

	incoming, err := c.download(ctx, db, session, cipher, state)
	if err != nil {
		return err
	}
	if err := session.ApplyIncoming(incoming); err != nil {
		return err
	}

	if err := c.upload(ctx, db, session, cipher, m.ServerTime); err != nil {
		return err
	}
	return saveState(session, state)
}

// clientState is kept in the session's global state between syncs
type clientState struct {
	// Corrupt lists remote entries that could not be decoded and have
	// already been counted as failed.
	Corrupt []string `json:"corrupt,omitempty"`
}

func loadState(session *core.SyncSession) (*clientState, error) {
	data, err := session.GlobalState()
	if err != nil {
		return nil, err
	}
	state := &clientState{}
	if data == nil {
		return state, nil
	}
	// State written by another collaborator is dropped
	if err := json.Unmarshal(data, state); err != nil {
		return &clientState{}, nil
	}
	return state, nil
}

func saveState(session *core.SyncSession, state *clientState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	return session.SetGlobalState(data)
}

// download collects changes newer than the last sync. Remote entries that
// cannot be decoded are reported as failed once, then skipped while they
// stay corrupt.
func (c *Client) download(ctx context.Context, db *remoteDB, session *core.SyncSession, cipher *crypto.Cipher, state *clientState) ([]core.IncomingChange, error) {
	last, err := session.LastSync()
	if err != nil {
		return nil, err
	}

	reported := make(map[string]bool, len(state.Corrupt))
	for _, id := range state.Corrupt {
		reported[id] = true
	}
	var corrupt []string

	var changes []core.IncomingChange
	err = db.changedSince(last, func(id string, env *envelope) error {
		if err := session.Interrupted(); err != nil {
			return err
		}
		ch := core.IncomingChange{ID: id}
		switch {
		case env == nil:
			corrupt = append(corrupt, id)
			if reported[id] {
				return nil
			}
			c.log.Warn(ctx, "remote entry cannot be decoded", "id", id)
		case env.Deleted:
			ch.Deleted = true
			ch.ServerModified = env.Modified
		default:
			ch.ServerModified = env.Modified
			var r login.Record
			if err := cipher.OpenJSON(env.Payload, &r); err == nil {
				ch.Record = &r
			}
		}
		changes = append(changes, ch)
		return nil
	})
	if err != nil {
		return nil, err
	}
	state.Corrupt = corrupt
	return changes, nil
}

func (c *Client) upload(ctx context.Context, db *remoteDB, session *core.SyncSession, cipher *crypto.Cipher, serverTime int64) error {
	outgoing, err := session.Outgoing()
	if err != nil {
		return err
	}
	if len(outgoing) == 0 {
		return session.MarkSynchronized(nil, 0, serverTime)
	}

	now := c.now().UnixMilli()
	if now <= serverTime {
		now = serverTime + 1
	}

	envs := make(map[string]envelope, len(outgoing))
	var sent []string
	failed := 0
	for _, ch := range outgoing {
		if err := session.Interrupted(); err != nil {
			return err
		}
		if ch.Deleted {
			envs[ch.ID] = envelope{Modified: now, Deleted: true}
			sent = append(sent, ch.ID)
			continue
		}
		payload, err := cipher.SealJSON(ch.Record)
		if err != nil {
			c.log.Warn(ctx, "failed to seal outgoing record", "id", ch.ID, "error", err)
			failed++
			continue
		}
		envs[ch.ID] = envelope{Modified: now, Payload: payload}
		sent = append(sent, ch.ID)
	}

	if err := db.put(envs, now); err != nil {
		return fmt.Errorf("%w: %w", core.ErrRequestFailed, err)
	}
	c.log.Debug(ctx, "uploaded changes", "sent", len(sent), "failed", failed)

	return session.MarkSynchronized(sent, failed, now)
}

// remoteDir extracts the directory from a file:// endpoint
func remoteDir(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: invalid endpoint: %w", core.ErrRequestFailed, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: unsupported endpoint scheme %q", core.ErrRequestFailed, u.Scheme)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("%w: remote host %q not supported", core.ErrRequestFailed, u.Host)
	}
	if u.Path == "" {
		return "", fmt.Errorf("%w: endpoint has no path", core.ErrRequestFailed)
	}
	return u.Path, nil
}
