package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"catalog/internal/assets"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var (
	versionSegment = regexp.MustCompile(`^v\d+$`)
	// c_fill,w_300 or f_auto: chained transformations precede the version.
	transformSegment = regexp.MustCompile(`^[a-z]{1,3}_[^,/]+(,[a-z]{1,3}_[^,/]+)*$`)
)

type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinary(cloudinaryURL string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) Name() string { return "cloudinary" }

// Upload stores data under dest. Overwrite is on so that re-uploading a
// stable slot replaces the previous object.
func (c *Cloudinary) Upload(ctx context.Context, data []byte, kind assets.Kind, dest assets.Destination) (string, error) {
	resp, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       dest.Folder,
		AssetFolder:  dest.Folder,
		PublicID:     dest.FileStem,
		Overwrite:    api.Bool(true),
		ResourceType: string(kind),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", errors.New("cloudinary upload returned no url")
	}
	return resp.SecureURL, nil
}

// Delete destroys the asset. An asset that is already gone counts as deleted.
func (c *Cloudinary) Delete(ctx context.Context, id assets.Identifier) error {
	kind := id.Kind
	if !kind.IsValid() {
		kind = assets.KindImage
	}
	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     id.Key,
		ResourceType: string(kind),
		Invalidate:   api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", resp.Error.Message)
	}
	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("cloudinary destroy: unexpected result %q", resp.Result)
	}
	return nil
}

// ExtractIdentifier parses a delivery URL of the form
// .../<resource>/upload/[<transformations>/...][v<version>/]<folder>/<stem>.<ext>.
func (c *Cloudinary) ExtractIdentifier(raw string) (assets.Identifier, bool) {
	return parseCloudinaryURL(raw)
}

func parseCloudinaryURL(raw string) (assets.Identifier, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return assets.Identifier{}, false
	}

	parts := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	for i, part := range parts {
		if part != "upload" {
			continue
		}
		rest := parts[i+1:]
		for len(rest) > 0 && transformSegment.MatchString(rest[0]) {
			rest = rest[1:]
		}
		if len(rest) > 0 && versionSegment.MatchString(rest[0]) {
			rest = rest[1:]
		}
		if len(rest) == 0 {
			return assets.Identifier{}, false
		}
		key := strings.Join(rest, "/")
		key = strings.TrimSuffix(key, path.Ext(key))
		if key == "" {
			return assets.Identifier{}, false
		}

		kind := assets.KindImage
		if i > 0 && parts[i-1] == string(assets.KindVideo) {
			kind = assets.KindVideo
		}
		return assets.Identifier{Key: key, Kind: kind}, true
	}
	return assets.Identifier{}, false
}

func (c *Cloudinary) Ping(ctx context.Context) error {
	resp, err := c.cld.Admin.Ping(ctx)
	if err != nil {
		return fmt.Errorf("cloudinary ping: %w", err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("cloudinary ping: %s", resp.Error.Message)
	}
	return nil
}
