package asset

import "context"

// RemoteState is the processing state reported by the upload backend.
type RemoteState string

const (
	RemoteProcessing RemoteState = "PROCESSING"
	RemoteReady      RemoteState = "READY"
	RemoteFailed     RemoteState = "FAILED"
)

// RemoteFile is the backend's handle for an uploaded media payload.
type RemoteFile struct {
	ID       string
	URI      string
	MIMEType string
	State    RemoteState
}

// UploadBackend is the remote file service the lifecycle manager drives.
// Implementations must be safe for concurrent use.
type UploadBackend interface {
	// Upload registers the media bytes with the remote service
	Upload(ctx context.Context, data []byte, displayName, mimeType string) (*RemoteFile, error)

	// GetState re-queries the processing state of an uploaded file
	GetState(ctx context.Context, remoteID string) (RemoteState, error)

	// Delete removes an uploaded file from the remote service
	Delete(ctx context.Context, remoteID string) error
}
