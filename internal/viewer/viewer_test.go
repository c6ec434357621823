package viewer

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_NWB(t *testing.T) {
	t.Run("default base", func(t *testing.T) {
		b := NewBuilder("")
		got := b.NWB(LocalFileURL(54321, "sample.nwb"))
		assert.Equal(t,
			"https://flatironinstitute.github.io/neurosift/?p=/nwb&url=http://localhost:54321/files/sample.nwb",
			got)
	})

	t.Run("custom base", func(t *testing.T) {
		b := NewBuilder("http://localhost:3000/")
		assert.Equal(t, "http://localhost:3000/", b.Base())
		assert.Equal(t,
			"http://localhost:3000/?p=/nwb&url=https://bucket.s3.us-east-1.amazonaws.com/a.nwb",
			b.NWB("https://bucket.s3.us-east-1.amazonaws.com/a.nwb"))
	})
}

func TestLocalFileURL(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{"plain", "sample.nwb", "http://localhost:8080/files/sample.nwb"},
		{"space", "my session.nwb", "http://localhost:8080/files/my%20session.nwb"},
		{"ampersand", "a&b.nwb", "http://localhost:8080/files/a%26b.nwb"},
		{"question mark", "what?.nwb", "http://localhost:8080/files/what%3F.nwb"},
		{"plus", "run+1.nwb", "http://localhost:8080/files/run%2B1.nwb"},
		{"ampersand and plus", "a&b+c.nwb", "http://localhost:8080/files/a%26b%2Bc.nwb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LocalFileURL(8080, tt.file))
		})
	}
}

func TestBuilder_NWB_URLParamRoundTrips(t *testing.T) {
	tests := []struct {
		name    string
		fileURL string
	}{
		{"local file", LocalFileURL(8080, "a&b+c.nwb")},
		{"object key", "https://bucket.s3.us-east-1.amazonaws.com/shared/a%26b%2Bc.nwb"},
		{"raw ampersand and plus", "https://example.org/data/a&b+c.nwb"},
		{"signed query", "https://example.org/a.nwb?X-Sig=ab+cd%2F&X-Expires=60"},
		{"fragment", "https://example.org/a.nwb#part"},
	}

	b := NewBuilder("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(b.NWB(tt.fileURL))
			require.NoError(t, err)

			q := u.Query()
			assert.Equal(t, "/nwb", q.Get("p"))
			assert.Equal(t, tt.fileURL, q.Get("url"))
			assert.Len(t, q, 2)
		})
	}
}
