// Package export renders catalog products as spreadsheet or JSON downloads.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"catalog/internal/assets"
	"catalog/internal/domain/hydralite"
	"catalog/internal/domain/products"

	"github.com/xuri/excelize/v2"
)

type Brand string

const (
	BrandProsmart  Brand = "prosmart"
	BrandHydralite Brand = "hydralite"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

var (
	ErrUnknownBrand  = errors.New("unknown brand")
	ErrUnknownFormat = errors.New("unknown export format")
)

func ParseBrand(s string) (Brand, error) {
	switch b := Brand(strings.ToLower(s)); b {
	case BrandProsmart, BrandHydralite:
		return b, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBrand, s)
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatXLSX, nil
	case FormatXLSX, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename is {brand}_export_{YYYY-MM-DD}.{ext}.
func Filename(b Brand, f Format, now time.Time) string {
	return fmt.Sprintf("%s_export_%s.%s", b, now.Format(time.DateOnly), f)
}

// Sheet is the tabular form of an export. Items is what the JSON format
// writes verbatim.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any
	Items   any
}

// Load reads every product of brand b into a sheet.
func Load(ctx context.Context, ps products.Store, hs hydralite.Store, b Brand) (Sheet, error) {
	switch b {
	case BrandProsmart:
		items, _, err := ps.ListProducts(ctx, products.ProductFilter{}, nil)
		if err != nil {
			return Sheet{}, err
		}
		cats, err := ps.ListCategories(ctx)
		if err != nil {
			return Sheet{}, err
		}
		subs, err := ps.ListSubcategories(ctx, "")
		if err != nil {
			return Sheet{}, err
		}
		return ProsmartSheet(items, cats, subs), nil
	case BrandHydralite:
		items, _, err := hs.ListProducts(ctx, hydralite.ProductFilter{}, nil)
		if err != nil {
			return Sheet{}, err
		}
		return HydraliteSheet(items), nil
	}
	return Sheet{}, fmt.Errorf("%w: %q", ErrUnknownBrand, b)
}

// ProsmartSheet resolves category and subcategory names for display.
func ProsmartSheet(items []products.Product, categories []products.Category, subcategories []products.Subcategory) Sheet {
	catNames := make(map[string]string, len(categories))
	for _, c := range categories {
		catNames[c.ID] = c.Name
	}
	subNames := make(map[string]string, len(subcategories))
	for _, s := range subcategories {
		subNames[s.ID] = s.Name
	}

	s := Sheet{
		Name: "Products",
		Headers: []string{
			"Product ID", "Name", "Title", "Description", "Category", "Subcategory",
			"Status", "Image Count", "Image URLs", "Created At", "Updated At",
		},
		Items: items,
	}
	for _, p := range items {
		s.Rows = append(s.Rows, []any{
			p.ProductID, p.Name, p.Title, p.Description,
			nameOr(catNames, p.CategoryID), nameOr(subNames, p.SubcategoryID),
			p.Status, p.ImageCount, strings.Join(p.ImageURLs, "\n"),
			timestamp(p.CreatedAt), timestamp(p.UpdatedAt),
		})
	}
	return s
}

func HydraliteSheet(items []hydralite.Product) Sheet {
	s := Sheet{
		Name: "Products",
		Headers: []string{
			"ID", "Name", "Description", "Category", "Subcategory",
			"Asset Count", "Assets", "Key Features", "Created At", "Updated At",
		},
		Items: items,
	}
	for _, p := range items {
		features := make([]string, len(p.KeyFeatures))
		for i, kf := range p.KeyFeatures {
			features[i] = kf.Title
			if kf.Description != "" {
				features[i] += ": " + kf.Description
			}
		}
		s.Rows = append(s.Rows, []any{
			p.ID, p.Name, p.Description, p.Category, p.Subcategory,
			len(p.Assets), strings.Join(assets.Paths(p.Assets), "\n"), strings.Join(features, "\n"),
			timestamp(p.CreatedAt), timestamp(p.UpdatedAt),
		})
	}
	return s
}

// Write renders s to w in format f.
func Write(w io.Writer, f Format, s Sheet) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s.Items)
	case FormatXLSX:
		return writeXLSX(w, s)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

func writeXLSX(w io.Writer, s Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", s.Name); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, h := range s.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(s.Name, cell, h); err != nil {
			return err
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(s.Name, col, col, 22); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(s.Headers), 1)
	if err := f.SetCellStyle(s.Name, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, row := range s.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(s.Name, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	if err := f.SetPanes(s.Name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	return f.Write(w)
}

func nameOr(names map[string]string, id string) string {
	if n, ok := names[id]; ok {
		return n
	}
	return id
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
