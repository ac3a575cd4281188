package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"catalog/internal/assets"
)

const multipartMemory = 32 << 20

// slotMeta describes one gallery position of an edit. New slots are backed by
// the file field "<prefix>[index]".
type slotMeta struct {
	Index       int    `json:"index"`
	IsNew       bool   `json:"isNew"`
	OriginalURL string `json:"originalUrl"`
}

var indexedField = regexp.MustCompile(`^([A-Za-z_]+)\[(\d+)\]$`)

// helper: sniff first 512 bytes and reset reader
func sniffMIME(file multipart.File) (string, error) {
	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read: %w", err)
	}
	mime := http.DetectContentType(buf[:n])

	// reset so later reads start from byte 0
	if seeker, ok := file.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("seek reset: %w", err)
		}
	}
	return mime, nil
}

// parseMultipart bounds the body and parses the form. Callers must
// RemoveAll the form.
func (app *application) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, app.config.Assets.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return fmt.Errorf("failed to parse form: %w", err)
	}
	return nil
}

func removeForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// parseSlotMetadata accepts {"<key>":[...]} or a bare array.
func parseSlotMetadata(raw, key string) ([]slotMeta, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var slots []slotMeta
		if err := json.Unmarshal([]byte(raw), &slots); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		return slots, nil
	}
	var wrapped map[string][]slotMeta
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	slots, ok := wrapped[key]
	if !ok {
		return nil, fmt.Errorf("invalid %s: missing %q array", key, key)
	}
	return slots, nil
}

// indexedFiles collects the files named prefix[N] keyed by N.
func indexedFiles(form *multipart.Form, prefix string) (map[int]*multipart.FileHeader, error) {
	out := make(map[int]*multipart.FileHeader)
	if form == nil {
		return out, nil
	}
	for field, headers := range form.File {
		m := indexedField.FindStringSubmatch(field)
		if m == nil || m[1] != prefix || len(headers) == 0 {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("invalid file field %s", field)
		}
		if len(headers) > 1 {
			return nil, fmt.Errorf("more than one file in %s", field)
		}
		out[n] = headers[0]
	}
	return out, nil
}

// readUpload loads a submitted file. The declared Content-Type decides the
// kind; undeclared or generic types are sniffed.
func readUpload(fh *multipart.FileHeader, pos int) (assets.NewUpload, error) {
	file, err := fh.Open()
	if err != nil {
		return assets.NewUpload{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer file.Close()

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if mimeType, err = sniffMIME(file); err != nil {
			return assets.NewUpload{}, fmt.Errorf("sniff mime: %w", err)
		}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return assets.NewUpload{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}

	return assets.NewUpload{
		Pos:      pos,
		Data:     data,
		Name:     fh.Filename,
		MimeType: mimeType,
		Kind:     assets.KindFromMIME(mimeType),
	}, nil
}

type gallerySubmission struct {
	form       *multipart.Form
	filesKey   string
	metaKey    string
	allowed    []assets.Kind
	prior      []assets.Record
	requireOne bool
}

var errNoFiles = errors.New("at least one file is required")

// build turns the form into an ordered submission. With metadata every slot
// is described explicitly. Without it the prior gallery is kept and the
// files are appended in index order.
func (s gallerySubmission) build() ([]assets.Reference, error) {
	files, err := indexedFiles(s.form, s.filesKey)
	if err != nil {
		return nil, err
	}

	var rawMeta string
	if s.form != nil {
		if v := s.form.Value[s.metaKey]; len(v) > 0 {
			rawMeta = v[0]
		}
	}

	var refs []assets.Reference
	if strings.TrimSpace(rawMeta) != "" {
		slots, err := parseSlotMetadata(rawMeta, s.metaKey)
		if err != nil {
			return nil, err
		}
		refs, err = s.fromMetadata(slots, files)
		if err != nil {
			return nil, err
		}
	} else {
		refs, err = s.appended(files)
		if err != nil {
			return nil, err
		}
	}

	if s.requireOne && len(refs) == 0 {
		return nil, errNoFiles
	}
	return refs, nil
}

func (s gallerySubmission) fromMetadata(slots []slotMeta, files map[int]*multipart.FileHeader) ([]assets.Reference, error) {
	prior := make(map[string]struct{}, len(s.prior))
	for _, rec := range s.prior {
		prior[rec.Path] = struct{}{}
	}

	used := make(map[int]struct{}, len(files))
	refs := make([]assets.Reference, 0, len(slots))
	for _, slot := range slots {
		if !slot.IsNew {
			if _, ok := prior[slot.OriginalURL]; !ok {
				return nil, fmt.Errorf("slot %d refers to an asset that is not part of this product", slot.Index)
			}
			refs = append(refs, assets.Existing{Pos: slot.Index, URL: slot.OriginalURL})
			continue
		}
		fh, ok := files[slot.Index]
		if !ok {
			return nil, fmt.Errorf("missing file %s[%d]", s.filesKey, slot.Index)
		}
		up, err := s.upload(fh, slot.Index)
		if err != nil {
			return nil, err
		}
		used[slot.Index] = struct{}{}
		refs = append(refs, up)
	}

	for n := range files {
		if _, ok := used[n]; !ok {
			return nil, fmt.Errorf("file %s[%d] is not described by %s", s.filesKey, n, s.metaKey)
		}
	}
	return refs, nil
}

func (s gallerySubmission) appended(files map[int]*multipart.FileHeader) ([]assets.Reference, error) {
	refs := make([]assets.Reference, 0, len(s.prior)+len(files))
	for i, rec := range s.prior {
		refs = append(refs, assets.Existing{Pos: i, URL: rec.Path})
	}

	indexes := make([]int, 0, len(files))
	for n := range files {
		indexes = append(indexes, n)
	}
	slices.Sort(indexes)

	for _, n := range indexes {
		up, err := s.upload(files[n], len(refs))
		if err != nil {
			return nil, err
		}
		refs = append(refs, up)
	}
	return refs, nil
}

func (s gallerySubmission) upload(fh *multipart.FileHeader, pos int) (assets.NewUpload, error) {
	up, err := readUpload(fh, pos)
	if err != nil {
		return up, err
	}
	if len(s.allowed) > 0 && !slices.Contains(s.allowed, up.Kind) {
		return up, fmt.Errorf("invalid file type for %s: %s", fh.Filename, up.MimeType)
	}
	return up, nil
}
