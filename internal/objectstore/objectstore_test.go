package objectstore

import (
	"testing"

	"catalog/internal/assets"
	"catalog/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCloudinaryURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		url  string
		want assets.Identifier
	}{
		{
			name: "versioned image",
			url:  "https://res.cloudinary.com/demo/image/upload/v1712345678/ProsmartProducts/Health___Beauty/Skin_Care/p_1/p_1_img1.jpg",
			want: assets.Identifier{Key: "ProsmartProducts/Health___Beauty/Skin_Care/p_1/p_1_img1", Kind: assets.KindImage},
		},
		{
			name: "video without version",
			url:  "https://res.cloudinary.com/demo/video/upload/hydralite/abc/gel/gel_1700000000000_k9zx.mp4",
			want: assets.Identifier{Key: "hydralite/abc/gel/gel_1700000000000_k9zx", Kind: assets.KindVideo},
		},
		{
			name: "transformed delivery url",
			url:  "https://res.cloudinary.com/demo/image/upload/c_fill,w_300/v1712/ProsmartProducts/Cat/Sub/p1/p1_img1.jpg",
			want: assets.Identifier{Key: "ProsmartProducts/Cat/Sub/p1/p1_img1", Kind: assets.KindImage},
		},
		{
			name: "chained transformations without version",
			url:  "https://res.cloudinary.com/demo/image/upload/f_auto,q_auto/w_600/hydralite/abc/gel/gel_1_k9.webp",
			want: assets.Identifier{Key: "hydralite/abc/gel/gel_1_k9", Kind: assets.KindImage},
		},
		{
			name: "empty folder segment",
			url:  "https://res.cloudinary.com/demo/image/upload/v2/ProsmartProducts//Sub/P/P_img2.png",
			want: assets.Identifier{Key: "ProsmartProducts//Sub/P/P_img2", Kind: assets.KindImage},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseCloudinaryURL(tc.url)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseCloudinaryURLRejectsForeignURLs(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"",
		"not a url",
		"https://example.com/images/photo.jpg",
		"https://res.cloudinary.com/demo/image/upload/",
		"https://res.cloudinary.com/demo/image/upload/v123",
		"https://res.cloudinary.com/demo/image/upload/c_fill,w_300/v1712",
		"%zz",
	} {
		_, ok := parseCloudinaryURL(raw)
		assert.False(t, ok, raw)
	}
}

func TestMinioURLRoundTrip(t *testing.T) {
	t.Parallel()

	m, err := NewMinio(config.MinioConfig{
		Endpoint: "localhost:9000",
		Bucket:   "catalog",
		Region:   "us-east-1",
	})
	require.NoError(t, err)

	dest := assets.DerivePath("Health & Beauty", "Skin Care", "p1", 1)
	url := m.objectURL(dest.Key())
	assert.Equal(t, "http://localhost:9000/catalog/ProsmartProducts/Health___Beauty/Skin_Care/p1/p1_img1", url)

	id, ok := m.ExtractIdentifier(url)
	require.True(t, ok)
	assert.Equal(t, dest.Key(), id.Key)

	_, ok = m.ExtractIdentifier("https://res.cloudinary.com/demo/image/upload/v1/a.jpg")
	assert.False(t, ok)
}

func TestMinioPublicURLOverride(t *testing.T) {
	t.Parallel()

	m, err := NewMinio(config.MinioConfig{
		Endpoint:  "minio:9000",
		Bucket:    "media",
		PublicURL: "https://cdn.example.com/",
	})
	require.NoError(t, err)

	id, ok := m.ExtractIdentifier("https://cdn.example.com/media/hydralite/x/y/clip.mp4")
	require.True(t, ok)
	assert.Equal(t, "hydralite/x/y/clip.mp4", id.Key)
	assert.Equal(t, assets.KindVideo, id.Kind)
}
