package assets

import "context"

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

func (k Kind) IsValid() bool {
	return k == KindImage || k == KindVideo
}

// Record is a persisted gallery entry. The ordered slice of records is the
// product's gallery; index 0 is the primary/listing asset.
type Record struct {
	Kind Kind   `json:"type" bson:"type"`
	Path string `json:"path" bson:"path"`
}

// Reference is one entry of an edit submission: either an asset that is
// already remote (Existing) or a file submitted with the edit (NewUpload).
type Reference interface {
	Position() int
	isReference()
}

// Existing keeps a previously uploaded asset at Pos.
type Existing struct {
	Pos int
	URL string
}

func (e Existing) Position() int { return e.Pos }
func (Existing) isReference()    {}

// NewUpload is a file pending upload. Kind is resolved once when the
// submission is parsed.
type NewUpload struct {
	Pos      int
	Data     []byte
	Name     string
	MimeType string
	Kind     Kind
}

func (u NewUpload) Position() int { return u.Pos }
func (NewUpload) isReference()    {}

// Destination is where an upload lands on the remote store.
type Destination struct {
	Folder   string
	FileStem string
}

// Key is the store-level identifier of the destination. Empty folder
// segments are kept as-is.
func (d Destination) Key() string {
	if d.Folder == "" {
		return d.FileStem
	}
	return d.Folder + "/" + d.FileStem
}

// Identifier addresses a stored asset for deletion.
type Identifier struct {
	Key  string
	Kind Kind
}

// RemoteStore is the object storage capability consumed by the Reconciler.
type RemoteStore interface {
	// Upload stores data at dest, overwriting whatever is there, and
	// returns the public URL.
	Upload(ctx context.Context, data []byte, kind Kind, dest Destination) (string, error)
	Delete(ctx context.Context, id Identifier) error
	// ExtractIdentifier parses a URL previously returned by Upload. It
	// reports false for URLs of any other shape.
	ExtractIdentifier(url string) (Identifier, bool)
}

// Namer maps a 1-based sequence number to an upload destination.
type Namer func(seq int) Destination

// Paths returns the URLs of records in order.
func Paths(records []Record) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.Path
	}
	return out
}

// FromPaths builds records for a legacy URL-only gallery, inferring kinds
// from the file extension.
func FromPaths(urls []string) []Record {
	out := make([]Record, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		out = append(out, Record{Kind: KindFromURL(u), Path: u})
	}
	return out
}
