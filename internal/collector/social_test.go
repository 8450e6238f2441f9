package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentRadar/internal/config"
)

// fakeCLI writes an executable script that prints the given payload, so
// the collector runs against a real subprocess boundary.
func fakeCLI(t *testing.T, payload string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bird")
	script := "#!/bin/sh\ncat <<'EOF'\n" + payload + "\nEOF\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestSocialCollect(t *testing.T) {
	t.Parallel()

	payload := `[
	  {"id_str":"19001","full_text":"BTC looking strong into the halving","created_at":"Sat Nov 08 10:00:00 +0000 2025","favorite_count":1200},
	  {"id":19002,"text":"gm","created_at":"2025-11-08T11:00:00Z","like_count":3}
	]`

	cfg := config.SocialConfig{
		Command:        fakeCLI(t, payload),
		Accounts:       []string{"apompliano"},
		PerAccount:     10,
		TimeoutSeconds: 5,
	}

	s := NewSocial(cfg, discardLogger())
	records, err := s.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "social", records[0].Source)
	assert.Equal(t, "social_19001", records[0].SourceID)
	assert.Equal(t, "apompliano", records[0].Author)
	assert.Equal(t, "BTC looking strong into the halving", records[0].Body)
	assert.Equal(t, 1200, records[0].EngagementScore)
	require.NotNil(t, records[0].PublishedAt)

	// Second post exercises the numeric id, alternate text field, and
	// ISO timestamp fallback.
	assert.Equal(t, "social_19002", records[1].SourceID)
	assert.Equal(t, "gm", records[1].Body)
	assert.Equal(t, 3, records[1].EngagementScore)
	require.NotNil(t, records[1].PublishedAt)
}

func TestSocialWrappedOutput(t *testing.T) {
	t.Parallel()

	posts, err := decodeSocialPosts([]byte(`{"tweets":[{"id_str":"7","text":"hi"}]}`))
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "7", posts[0].IDStr)

	posts, err = decodeSocialPosts([]byte(`{"data":[{"id_str":"8","text":"yo"}]}`))
	require.NoError(t, err)
	require.Len(t, posts, 1)

	_, err = decodeSocialPosts([]byte("definitely not json"))
	assert.Error(t, err)
}

func TestSocialMissingBinary(t *testing.T) {
	t.Parallel()

	cfg := config.SocialConfig{Command: "no-such-binary-on-this-host", Accounts: []string{"x"}}
	s := NewSocial(cfg, discardLogger())

	records, err := s.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}
