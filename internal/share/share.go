// Package share encodes an annotation session into a compressed,
// URL-safe page fragment and restores it on load.
package share

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/omarthisside/annoted/internal/annotation"
	"github.com/omarthisside/annoted/internal/history"
)

const (
	// Version is bumped whenever the payload shape changes; consumers
	// reject anything else.
	Version = 2

	// FragmentKey marks an annoted payload inside a URL fragment:
	// https://page#annoted=<encoded>.
	FragmentKey = "annoted"

	// SoftLimit is the encoded-link length above which the link is still
	// produced but flagged as possibly unreliable (some servers and chat
	// clients truncate long URLs).
	SoftLimit = 2048
	// HardLimit is the length above which generation is refused and the
	// caller must fall back to image export.
	HardLimit = 8192

	// maxPayloadSize caps what a fragment may inflate to. Real sessions
	// stay far below it; a crafted fragment must not balloon into
	// arbitrary memory.
	maxPayloadSize = 64 * HardLimit
)

// ErrTooLarge means the encoded link exceeded HardLimit.
var ErrTooLarge = errors.New("share: session too large for a link")

// ErrNoPayload means the fragment carries no annoted payload.
var ErrNoPayload = errors.New("share: no payload in fragment")

// Payload is the serialized session carried inside a share link.
type Payload struct {
	Version  int                  `json:"version"`
	PageURL  string               `json:"pageUrl"`
	Commands []*history.Command   `json:"commandLog"`
	Tools    annotation.ToolState `json:"toolState"`
}

// Link is a generated share link.
type Link struct {
	URL string
	// Warning is set when the link exceeds SoftLimit and may not survive
	// every transport.
	Warning bool
}

// NormalizeURL strips the fragment and query from a page URL so sessions
// and links key on the page itself.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.RawQuery = ""
	return u.String()
}

// Encode builds a share link for the given session. Links longer than
// SoftLimit come back with Warning set; longer than HardLimit fails with
// ErrTooLarge and no URL.
func Encode(pageURL string, cmds []*history.Command, tools annotation.ToolState) (*Link, error) {
	link, err := encodePayload(&Payload{
		Version:  Version,
		PageURL:  NormalizeURL(pageURL),
		Commands: cmds,
		Tools:    tools,
	})
	if err != nil {
		return nil, err
	}
	if len(link) > HardLimit {
		return nil, ErrTooLarge
	}
	return &Link{URL: link, Warning: len(link) > SoftLimit}, nil
}

func encodePayload(payload *Payload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("share: marshal payload: %w", err)
	}
	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("share: compressor: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return "", fmt.Errorf("share: compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("share: compress payload: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(buf.Bytes())
	return payload.PageURL + "#" + FragmentKey + "=" + encoded, nil
}

// Decode restores a payload from a page fragment. currentURL must match
// the payload's normalized page URL exactly; mismatched URLs or versions
// reject the whole payload, nothing is partially applied. The fragment
// may be passed with or without the leading "#".
func Decode(currentURL, fragment string) (*Payload, error) {
	fragment = strings.TrimPrefix(fragment, "#")
	if !strings.HasPrefix(fragment, FragmentKey+"=") {
		return nil, ErrNoPayload
	}
	encoded := strings.TrimPrefix(fragment, FragmentKey+"=")

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("share: malformed payload: %w", err)
	}
	zr := flate.NewReader(bytes.NewReader(raw))
	data, err := io.ReadAll(io.LimitReader(zr, maxPayloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("share: decompress payload: %w", err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("share: decompress payload: %w", err)
	}
	if len(data) > maxPayloadSize {
		return nil, fmt.Errorf("share: payload inflates past %d bytes", maxPayloadSize)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("share: decode payload: %w", err)
	}
	if payload.Version != Version {
		return nil, fmt.Errorf("share: unsupported payload version %d", payload.Version)
	}
	if payload.PageURL != NormalizeURL(currentURL) {
		return nil, fmt.Errorf("share: payload is for %s, not this page", payload.PageURL)
	}
	return &payload, nil
}

// StripFragment removes an annoted fragment from a URL so a reload does
// not re-trigger the restore. URLs without one pass through unchanged.
func StripFragment(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if strings.HasPrefix(u.Fragment, FragmentKey+"=") {
		u.Fragment = ""
	}
	return u.String()
}
