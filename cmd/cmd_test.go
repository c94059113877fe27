package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/illarion/loginstore/internal/login"
)

func TestMerge(t *testing.T) {
	cur := login.Record{
		ID:        "id-1",
		Hostname:  "https://example.com",
		HTTPRealm: "Realm",
		Username:  "alice",
		Password:  "old",
		TimesUsed: 3,
	}

	got := merge(cur, login.Record{Password: "new"})
	assert.Equal(t, "new", got.Password)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "Realm", got.HTTPRealm)
	assert.Equal(t, int64(3), got.TimesUsed)

	got = merge(cur, login.Record{FormSubmitURL: "https://example.com"})
	assert.Empty(t, got.HTTPRealm)
	assert.Equal(t, "https://example.com", got.FormSubmitURL)
}

func TestFilterHosts(t *testing.T) {
	records := []login.Record{
		{ID: "1", Hostname: "https://example.com"},
		{ID: "2", Hostname: "https://mail.example.com"},
		{ID: "3", Hostname: "https://github.com"},
		{ID: "4", Hostname: "https://gitlab.com:8443"},
	}

	ids := func(rs []login.Record) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []string{"2"}, ids(filterHosts(records, "*.example.com")))
	assert.Equal(t, []string{"3", "4"}, ids(filterHosts(records, "{github,gitlab}.com")))
	assert.Empty(t, filterHosts(records, "*.org"))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 bytes", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2*1024*1024))
}
