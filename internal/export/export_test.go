package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"catalog/internal/assets"
	"catalog/internal/domain/hydralite"
	"catalog/internal/domain/products"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFilename(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "prosmart_export_2024-03-09.xlsx", Filename(BrandProsmart, FormatXLSX, now))
	assert.Equal(t, "hydralite_export_2024-03-09.json", Filename(BrandHydralite, FormatJSON, now))
}

func TestParse(t *testing.T) {
	t.Parallel()

	b, err := ParseBrand("ProSmart")
	require.NoError(t, err)
	assert.Equal(t, BrandProsmart, b)
	_, err = ParseBrand("acme")
	assert.ErrorIs(t, err, ErrUnknownBrand)

	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	_, err = ParseFormat("csv")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestProsmartXLSX(t *testing.T) {
	t.Parallel()

	items := []products.Product{{
		ProductID: "abCde1234", Name: "Mint Gel", Title: "Fresh", CategoryID: "cat1", SubcategoryID: "sub9",
		Status: products.StatusActive, ImageCount: 2, ImageURLs: []string{"https://x/1.jpg", "https://x/2.jpg"},
	}}
	cats := []products.Category{{ID: "cat1", Name: "Gels"}}
	sheet := ProsmartSheet(items, cats, nil)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sheet))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Products")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Product ID", rows[0][0])
	assert.Equal(t, "abCde1234", rows[1][0])
	assert.Equal(t, "Gels", rows[1][4])
	assert.Equal(t, "sub9", rows[1][5], "unknown ids fall back to the id")
}

func TestHydraliteJSON(t *testing.T) {
	t.Parallel()

	items := []hydralite.Product{{
		ID: "mint-gel", Name: "Mint Gel",
		Assets:      []assets.Record{{Kind: assets.KindVideo, Path: "https://x/v.mp4"}},
		KeyFeatures: []hydralite.KeyFeature{{Title: "Cooling"}},
	}}
	sheet := HydraliteSheet(items)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, 1, sheet.Rows[0][5])
	assert.Equal(t, "Cooling", sheet.Rows[0][7])

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sheet))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "mint-gel", got[0]["id"])
}
