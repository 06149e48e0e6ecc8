package asset

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/Pr0gramm3r2022/3DSpatialAgents/internal/errors"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/logger"

	"github.com/sirupsen/logrus"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultPollTimeout  = 5 * time.Minute
)

// Slot holds the caller's current upload. It is explicit session state owned
// by whoever holds the session and passed by reference into the manager;
// there is no process-wide current asset.
type Slot struct {
	mu      sync.Mutex
	current *MediaAsset
}

// Current returns the asset occupying the slot, nil when empty
func (s *Slot) Current() *MediaAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Manager drives MediaAssets through the remote processing state machine.
// All per-asset state lives on the asset itself, so independent callers may
// drive multiple assets concurrently through one Manager.
type Manager struct {
	backend      UploadBackend
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewManager creates a lifecycle manager polling at pollInterval and giving
// up with a timeout error after pollTimeout.
func NewManager(backend UploadBackend, pollInterval, pollTimeout time.Duration) *Manager {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	return &Manager{
		backend:      backend,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

// Submit places a new media payload into the slot and uploads it.
//
// Resubmitting the same display name with unchanged bytes while the occupying
// asset is not FAILED is a no-op returning the existing asset. A genuinely new
// payload first triggers a best-effort delete of the replaced remote file and
// then uploads fresh; the replaced asset instance is never resurrected.
func (m *Manager) Submit(ctx context.Context, slot *Slot, data []byte, displayName string) (*MediaAsset, error) {
	if slot == nil {
		return nil, apperrors.NewValidationError("submit requires a session slot", nil)
	}
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("submit requires non-empty media bytes", nil)
	}

	next := newMediaAsset(data, displayName)

	slot.mu.Lock()
	prev := slot.current
	if prev != nil && prev.State() != StateFailed && prev.State() != StateDeleted &&
		prev.DisplayName() == displayName && prev.ContentHash() == next.ContentHash() {
		slot.mu.Unlock()
		logger.WithFields(logrus.Fields{
			"display_name": displayName,
			"state":        prev.State(),
		}).Debug("Resubmission of unchanged media, reusing existing asset")
		return prev, nil
	}
	slot.current = next
	slot.mu.Unlock()

	// Replacement: drop the previous remote file before uploading the new one.
	// Deletion is best-effort and must never block or fail the new submission.
	if prev != nil {
		m.Delete(ctx, prev)
	}

	if err := m.Upload(ctx, next); err != nil {
		return next, err
	}
	return next, nil
}

// Upload moves a LOCAL asset through UPLOADING to PROCESSING (or READY when
// the backend reports the file immediately active). Transport errors mark the
// asset FAILED and are surfaced without retrying.
func (m *Manager) Upload(ctx context.Context, a *MediaAsset) error {
	if !a.compareAndSetState(StateLocal, StateUploading) {
		return apperrors.NewValidationError(
			fmt.Sprintf("asset %q is %s, only LOCAL assets can be uploaded", a.DisplayName(), a.State()), nil)
	}

	logger.WithFields(logrus.Fields{
		"display_name": a.DisplayName(),
		"size_bytes":   a.Size(),
		"mime_type":    a.MIMEType(),
	}).Info("Uploading media asset")

	rf, err := m.backend.Upload(ctx, a.data, a.displayName, a.mimeType)
	if err != nil {
		a.setState(StateFailed)
		return apperrors.NewUploadError(
			fmt.Sprintf("failed to upload %q to the file service", a.DisplayName()), err)
	}

	switch rf.State {
	case RemoteReady:
		a.setRemote(rf.ID, rf.URI, StateReady)
	case RemoteFailed:
		a.setRemote(rf.ID, rf.URI, StateFailed)
		return apperrors.NewUploadError(
			fmt.Sprintf("file service rejected %q during upload", a.DisplayName()), nil)
	default:
		a.setRemote(rf.ID, rf.URI, StateProcessing)
	}

	logger.WithFields(logrus.Fields{
		"display_name": a.DisplayName(),
		"remote_id":    rf.ID,
		"state":        a.State(),
	}).Info("Media asset accepted by file service")
	return nil
}

// AwaitReady blocks until the asset leaves PROCESSING, polling the backend at
// the configured interval. It returns only a READY or FAILED asset, or a
// PollTimeout error; cancellation aborts the wait and leaves the asset in its
// last observed state. A backend state-query failure terminates the wait the
// same way a reported FAILED state does.
func (m *Manager) AwaitReady(ctx context.Context, a *MediaAsset) (*MediaAsset, error) {
	switch a.State() {
	case StateReady, StateFailed:
		return a, nil
	case StateProcessing:
		// fall through to the poll loop
	default:
		return a, apperrors.NewValidationError(
			fmt.Sprintf("asset %q is %s, nothing to wait for", a.DisplayName(), a.State()), nil)
	}

	deadline := time.NewTimer(m.pollTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return a, apperrors.NewPollTimeoutError(
				fmt.Sprintf("readiness wait for %q aborted", a.DisplayName()), ctx.Err())

		case <-deadline.C:
			return a, apperrors.NewPollTimeoutError(
				fmt.Sprintf("asset %q still processing after %s", a.DisplayName(), m.pollTimeout), nil)

		case <-ticker.C:
			state, err := m.backend.GetState(ctx, a.RemoteID())
			if err != nil {
				// A failed state query terminates this poll cycle as FAILED.
				logger.WithError(err).WithFields(logrus.Fields{
					"display_name": a.DisplayName(),
					"remote_id":    a.RemoteID(),
				}).Error("State query failed, marking asset failed")
				a.setState(StateFailed)
				return a, nil
			}

			switch state {
			case RemoteReady:
				a.setState(StateReady)
				logger.WithFields(logrus.Fields{
					"display_name": a.DisplayName(),
					"remote_id":    a.RemoteID(),
				}).Info("Media asset ready for analysis")
				return a, nil
			case RemoteFailed:
				a.setState(StateFailed)
				logger.WithFields(logrus.Fields{
					"display_name": a.DisplayName(),
					"remote_id":    a.RemoteID(),
				}).Warn("Remote processing failed")
				return a, nil
			default:
				// still processing, keep polling
			}
		}
	}
}

// Delete removes the asset's remote file, fire and forget. Failures are
// logged and swallowed: the remote side may already have expired the file,
// and a stuck delete must never block a replacement upload.
func (m *Manager) Delete(ctx context.Context, a *MediaAsset) {
	if a == nil || a.State() == StateDeleted {
		return
	}

	a.mu.Lock()
	remoteID := a.remoteID
	a.state = StateDeleted
	a.mu.Unlock()

	if remoteID == "" {
		return
	}

	if err := m.backend.Delete(ctx, remoteID); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"display_name": a.DisplayName(),
			"remote_id":    remoteID,
		}).Warn("Best-effort remote delete failed")
		return
	}

	logger.WithFields(logrus.Fields{
		"display_name": a.DisplayName(),
		"remote_id":    remoteID,
	}).Debug("Remote file deleted")
}
