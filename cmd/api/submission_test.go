package main

import (
	"mime"
	"mime/multipart"
	"testing"

	"catalog/internal/assets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readForm(t *testing.T, fields map[string]string, files ...testFile) *multipart.Form {
	t.Helper()
	body, ct := multipartBody(t, fields, files...)
	_, params, err := mime.ParseMediaType(ct)
	require.NoError(t, err)
	form, err := multipart.NewReader(body, params["boundary"]).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form
}

func TestParseSlotMetadata(t *testing.T) {
	wrapped, err := parseSlotMetadata(`{"imageMetadata":[{"index":0,"isNew":true}]}`, "imageMetadata")
	require.NoError(t, err)
	assert.Equal(t, []slotMeta{{Index: 0, IsNew: true}}, wrapped)

	bare, err := parseSlotMetadata(` [{"index":1,"isNew":false,"originalUrl":"u"}]`, "imageMetadata")
	require.NoError(t, err)
	assert.Equal(t, []slotMeta{{Index: 1, OriginalURL: "u"}}, bare)

	_, err = parseSlotMetadata(`{"other":[]}`, "imageMetadata")
	assert.Error(t, err)

	_, err = parseSlotMetadata(`not json`, "imageMetadata")
	assert.Error(t, err)
}

func TestIndexedFiles(t *testing.T) {
	form := readForm(t, nil,
		testFile{field: "images[0]", name: "a.png", data: pngBytes},
		testFile{field: "images[3]", name: "b.png", data: pngBytes},
		testFile{field: "assets[1]", name: "c.png", data: pngBytes},
		testFile{field: "images", name: "d.png", data: pngBytes},
	)

	files, err := indexedFiles(form, "images")
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Equal(t, "a.png", files[0].Filename)
	assert.Equal(t, "b.png", files[3].Filename)
}

func TestGallerySubmission(t *testing.T) {
	prior := []assets.Record{
		{Kind: assets.KindImage, Path: "https://cdn.test/a"},
		{Kind: assets.KindVideo, Path: "https://cdn.test/b"},
	}

	t.Run("metadata", func(t *testing.T) {
		form := readForm(t, map[string]string{
			"assetMetadata": `[{"index":0,"isNew":true},{"index":1,"isNew":false,"originalUrl":"https://cdn.test/b"}]`,
		}, testFile{field: "assets[0]", name: "x.png", contentType: "image/png", data: pngBytes})

		refs, err := gallerySubmission{form: form, filesKey: "assets", metaKey: "assetMetadata", prior: prior}.build()
		require.NoError(t, err)
		require.Len(t, refs, 2)

		up, ok := refs[0].(assets.NewUpload)
		require.True(t, ok)
		assert.Equal(t, assets.KindImage, up.Kind)
		assert.Equal(t, "x.png", up.Name)
		assert.Equal(t, assets.Existing{Pos: 1, URL: "https://cdn.test/b"}, refs[1])
	})

	t.Run("metadata drops everything", func(t *testing.T) {
		form := readForm(t, map[string]string{"assetMetadata": `[]`})
		refs, err := gallerySubmission{form: form, filesKey: "assets", metaKey: "assetMetadata", prior: prior}.build()
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("undescribed file", func(t *testing.T) {
		form := readForm(t, map[string]string{"assetMetadata": `[]`},
			testFile{field: "assets[0]", name: "x.png", data: pngBytes})
		_, err := gallerySubmission{form: form, filesKey: "assets", metaKey: "assetMetadata"}.build()
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		form := readForm(t, map[string]string{"assetMetadata": `[{"index":0,"isNew":true}]`})
		_, err := gallerySubmission{form: form, filesKey: "assets", metaKey: "assetMetadata"}.build()
		assert.Error(t, err)
	})

	t.Run("append without metadata", func(t *testing.T) {
		form := readForm(t, nil,
			testFile{field: "assets[5]", name: "late.png", data: pngBytes},
			testFile{field: "assets[2]", name: "early.png", data: pngBytes},
		)
		refs, err := gallerySubmission{form: form, filesKey: "assets", metaKey: "assetMetadata", prior: prior}.build()
		require.NoError(t, err)
		require.Len(t, refs, 4)
		assert.Equal(t, assets.Existing{Pos: 0, URL: "https://cdn.test/a"}, refs[0])
		assert.Equal(t, "early.png", refs[2].(assets.NewUpload).Name)
		assert.Equal(t, 3, refs[3].Position())
	})

	t.Run("kind not allowed", func(t *testing.T) {
		form := readForm(t, nil, testFile{field: "images[0]", name: "clip.webm", contentType: "video/webm", data: []byte("webm")})
		_, err := gallerySubmission{form: form, filesKey: "images", metaKey: "imageMetadata", allowed: []assets.Kind{assets.KindImage}}.build()
		assert.Error(t, err)
	})

	t.Run("require one", func(t *testing.T) {
		form := readForm(t, nil)
		_, err := gallerySubmission{form: form, filesKey: "images", metaKey: "imageMetadata", requireOne: true}.build()
		assert.ErrorIs(t, err, errNoFiles)
	})
}
