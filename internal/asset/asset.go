package asset

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"sync"
)

// State is the lifecycle state of a MediaAsset.
type State string

const (
	StateLocal      State = "LOCAL"
	StateUploading  State = "UPLOADING"
	StateProcessing State = "PROCESSING"
	StateReady      State = "READY"
	StateFailed     State = "FAILED"
	StateDeleted    State = "DELETED"
)

// MediaAsset is a single media payload driven through the remote processing
// lifecycle. The byte buffer is copied on creation and never mutated; the
// remote handle is set once the upload succeeds and becomes invalid after
// deletion.
type MediaAsset struct {
	mu sync.Mutex

	data        []byte
	displayName string
	contentHash string
	mimeType    string

	remoteID  string
	remoteURI string
	state     State
}

func newMediaAsset(data []byte, displayName string) *MediaAsset {
	buf := make([]byte, len(data))
	copy(buf, data)

	sum := sha256.Sum256(buf)

	return &MediaAsset{
		data:        buf,
		displayName: displayName,
		contentHash: hex.EncodeToString(sum[:]),
		mimeType:    mimeTypeForName(displayName),
		state:       StateLocal,
	}
}

// DisplayName returns the caller-supplied identifier for the asset
func (a *MediaAsset) DisplayName() string {
	return a.displayName
}

// ContentHash returns the SHA-256 hex digest of the asset bytes
func (a *MediaAsset) ContentHash() string {
	return a.contentHash
}

// MIMEType returns the media type inferred from the display name
func (a *MediaAsset) MIMEType() string {
	return a.mimeType
}

// Size returns the length of the owned byte buffer
func (a *MediaAsset) Size() int {
	return len(a.data)
}

// State returns the current lifecycle state
func (a *MediaAsset) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// RemoteID returns the backend file handle, empty until the upload succeeds
func (a *MediaAsset) RemoteID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remoteID
}

// RemoteURI returns the backend file URI used for inference calls
func (a *MediaAsset) RemoteURI() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remoteURI
}

func (a *MediaAsset) setState(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

func (a *MediaAsset) setRemote(id, uri string, s State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.remoteID = id
	a.remoteURI = uri
	a.state = s
}

// compareAndSetState transitions to next only when the current state matches;
// it reports whether the transition happened.
func (a *MediaAsset) compareAndSetState(expect, next State) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != expect {
		return false
	}
	a.state = next
	return true
}

func mimeTypeForName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4":
		return "video/mp4"
	case ".avi":
		return "video/x-msvideo"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		// The upstream file service sniffs content for unknown extensions
		return "application/octet-stream"
	}
}
