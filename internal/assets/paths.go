package assets

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	prosmartRoot  = "ProsmartProducts"
	hydraliteRoot = "hydralite"
)

var whitespace = regexp.MustCompile(`\s+`)

// SafeName maps every character outside [A-Za-z0-9_-] to '_'.
func SafeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// DerivePath computes the stable-slot destination of the seq-th image of a
// ProSmart product. Re-uploading the same slot overwrites the same remote
// object.
func DerivePath(categoryName, subcategoryName, productID string, seq int) Destination {
	safeProductID := SafeName(productID)
	return Destination{
		Folder:   fmt.Sprintf("%s/%s/%s/%s", prosmartRoot, SafeName(categoryName), SafeName(subcategoryName), safeProductID),
		FileStem: fmt.Sprintf("%s_img%d", safeProductID, seq),
	}
}

// SlotNamer binds DerivePath to one product.
func SlotNamer(categoryName, subcategoryName, productID string) Namer {
	return func(seq int) Destination {
		return DerivePath(categoryName, subcategoryName, productID, seq)
	}
}

// UniquePath computes a destination salted with the upload time and a short
// token, so every upload gets its own object.
func UniquePath(productID, productName string, now time.Time, token string) Destination {
	safe := strings.ToLower(SafeName(whitespace.ReplaceAllString(productName, "_")))
	return Destination{
		Folder:   fmt.Sprintf("%s/%s/%s", hydraliteRoot, SafeName(productID), safe),
		FileStem: fmt.Sprintf("%s_%d_%s", safe, now.UnixMilli(), SafeName(token)),
	}
}

// UniqueNamer binds UniquePath to one product. The sequence number is
// ignored: uniqueness comes from the clock and the token source.
func UniqueNamer(productID, productName string, now func() time.Time, token func() string) Namer {
	return func(int) Destination {
		return UniquePath(productID, productName, now(), token())
	}
}
