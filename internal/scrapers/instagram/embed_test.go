package instagram

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const profileEmbedFixture = `<!DOCTYPE html>
<html><head>
<meta property="og:title" content="Wild Life (@Wildlife) &bull; Instagram photos and videos" />
<meta property="og:description" content="10.5K Followers, 1,234 Following, 87 Posts - See Instagram photos and videos from Wild Life (@wildlife)" />
<meta property="og:image" content="//cdn.example.com/embed.jpg" />
</head><body></body></html>`

const postEmbedFixture = `<!DOCTYPE html>
<html><head>
<meta property="og:title" content="Wild Life (@wildlife) on Instagram" />
<meta property="og:description" content="look at this owl" />
<meta property="og:image" content="https://cdn.example.com/post.jpg" />
</head><body></body></html>`

func TestParseProfileEmbed(t *testing.T) {
	profile, err := ParseProfileEmbed(context.Background(), "wildlife", profileEmbedFixture)
	require.NoError(t, err)

	require.Equal(t, "wildlife", profile.Username)
	require.Equal(t, "Wild Life", profile.FullName)
	require.Equal(t, int64(10500), profile.Followers)
	require.Equal(t, int64(1234), profile.Following)
	require.Equal(t, int64(87), profile.Posts)
	require.Equal(t, "https://cdn.example.com/embed.jpg", profile.ImageUrl)
}

func TestParseProfileEmbedNoCard(t *testing.T) {
	_, err := ParseProfileEmbed(context.Background(), "wildlife", "<html><body>login required</body></html>")
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, ReasonParseError, ue.Reason)
}

func TestParsePostEmbed(t *testing.T) {
	post, err := ParsePostEmbed(context.Background(), "Cxyz123", postEmbedFixture)
	require.NoError(t, err)

	require.Equal(t, "Cxyz123", post.Shortcode)
	require.Equal(t, "wildlife", post.Author)
	require.Equal(t, "look at this owl", post.Caption)
	require.Equal(t, "https://cdn.example.com/post.jpg", post.ImageUrl)
}

func TestParseAbbrevCount(t *testing.T) {
	testCases := []struct {
		in       string
		expected int64
		ok       bool
	}{
		{"1,234", 1234, true},
		{"10.5K", 10500, true},
		{"1.2M", 1200000, true},
		{"2B", 2000000000, true},
		{"87", 87, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, test := range testCases {
		n, ok := parseAbbrevCount(test.in)
		require.Equal(t, test.ok, ok, test.in)
		require.Equal(t, test.expected, n, test.in)
	}
}
