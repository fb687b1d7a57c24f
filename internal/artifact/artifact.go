package artifact

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned when an artifact is neither a remote link nor valid raster data
var ErrMalformed = errors.New("malformed image artifact")

// Kind identifies which variant an Artifact holds
type Kind int

const (
	// None is the zero artifact: no image was provided
	None Kind = iota
	// RemoteLink references an image by URL
	RemoteLink
	// InlineRaster carries a base64 PNG or JPEG payload
	InlineRaster
	// Malformed holds a string that could not be classified
	Malformed
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case RemoteLink:
		return "remote_link"
	case InlineRaster:
		return "inline_raster"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
)

// JPEGSizeThreshold is the payload length (in base64 characters) above which an
// undeclared payload is assumed to be JPEG. Phone photos are large JPEGs while
// drawn signatures are small PNGs; this is a guess, not content sniffing.
const JPEGSizeThreshold = 1_000_000

// hostingDomains are image hosts recognised as remote links even without a scheme
var hostingDomains = []string{"cloudinary.com"}

// Artifact is a finalized image payload: a link, an inline raster, or nothing.
// It is classified once when constructed and immutable afterwards.
type Artifact struct {
	kind    Kind
	raw     string
	mime    string
	payload string
}

// Parse classifies a raw artifact string
func Parse(raw string) Artifact {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Artifact{}
	}

	if IsRemoteLink(raw) {
		return Artifact{kind: RemoteLink, raw: raw}
	}

	declared, payload := SplitDataURI(raw)
	if !ValidBase64(payload) {
		return Artifact{kind: Malformed, raw: raw}
	}

	mime := declared
	if mime == "" {
		mime = guessMIME(payload)
	}
	mime = normalizeMIME(mime)
	if mime != MIMEPNG && mime != MIMEJPEG {
		return Artifact{kind: Malformed, raw: raw}
	}

	return Artifact{kind: InlineRaster, raw: raw, mime: mime, payload: payload}
}

// Link builds a RemoteLink artifact. The URL is not dereferenced.
func Link(url string) Artifact {
	url = strings.TrimSpace(url)
	if url == "" {
		return Artifact{}
	}
	return Artifact{kind: RemoteLink, raw: url}
}

// Inline encodes raw image bytes as an InlineRaster data URI
func Inline(data []byte, mime string) Artifact {
	mime = normalizeMIME(mime)
	payload := base64.StdEncoding.EncodeToString(data)
	return Artifact{
		kind:    InlineRaster,
		raw:     "data:" + mime + ";base64," + payload,
		mime:    mime,
		payload: payload,
	}
}

// Kind returns the artifact variant
func (a Artifact) Kind() Kind { return a.kind }

// IsZero reports whether no artifact is present
func (a Artifact) IsZero() bool { return a.kind == None }

// String returns the original representation
func (a Artifact) String() string { return a.raw }

// URL returns the link of a RemoteLink artifact, or ""
func (a Artifact) URL() string {
	if a.kind != RemoteLink {
		return ""
	}
	return a.raw
}

// MIME returns the image type of an InlineRaster artifact, or ""
func (a Artifact) MIME() string { return a.mime }

// Payload returns the base64 payload without any data URI prefix
func (a Artifact) Payload() string { return a.payload }

// Extension returns the file extension matching the artifact's image type
func (a Artifact) Extension() string {
	if a.mime == MIMEJPEG {
		return ".jpg"
	}
	return ".png"
}

// Bytes decodes an InlineRaster payload
func (a Artifact) Bytes() ([]byte, error) {
	if a.kind != InlineRaster {
		return nil, fmt.Errorf("decoding %s artifact: %w", a.kind, ErrMalformed)
	}
	data, err := base64.StdEncoding.DecodeString(a.payload)
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", errors.Join(ErrMalformed, err))
	}
	return data, nil
}

// MarshalJSON encodes the artifact as its original string
func (a Artifact) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.raw)
}

// UnmarshalJSON classifies a JSON string. null decodes to None.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("artifact must be a string: %w", err)
	}
	if raw == nil {
		*a = Artifact{}
		return nil
	}
	*a = Parse(*raw)
	return nil
}

// IsRemoteLink reports whether s points at a network location
func IsRemoteLink(s string) bool {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return true
	}
	for _, domain := range hostingDomains {
		if strings.Contains(s, domain) {
			return true
		}
	}
	return false
}

// SplitDataURI strips a "data:<mime>;base64," declaration and returns the declared
// MIME type (empty if there was none) and the remaining payload
func SplitDataURI(s string) (string, string) {
	if !strings.HasPrefix(s, "data:") {
		return "", s
	}
	header, payload, found := strings.Cut(s, ",")
	if !found {
		return "", ""
	}
	header = strings.TrimPrefix(header, "data:")
	mime, _, _ := strings.Cut(header, ";")
	return strings.ToLower(strings.TrimSpace(mime)), payload
}

// ValidBase64 reports whether s is standard padded base64 that survives a
// decode/encode round trip unchanged
func ValidBase64(s string) bool {
	if s == "" || len(s)%4 != 0 {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return false
	}
	return base64.StdEncoding.EncodeToString(decoded) == s
}

func guessMIME(payload string) string {
	if len(payload) > JPEGSizeThreshold {
		return MIMEJPEG
	}
	return MIMEPNG
}

func normalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "image/jpg" || mime == "image/pjpeg" {
		return MIMEJPEG
	}
	return mime
}
