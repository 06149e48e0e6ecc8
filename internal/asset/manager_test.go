package asset

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/Pr0gramm3r2022/3DSpatialAgents/internal/errors"
)

// fakeBackend is a scriptable UploadBackend.
type fakeBackend struct {
	mu sync.Mutex

	uploadState RemoteState // state reported at upload time
	uploadErr   error
	pollStates  []RemoteState // consumed one per GetState call
	pollErr     error         // returned once pollStates is exhausted

	uploads    int
	stateCalls int
	deletes    []string
	deleteErr  error
}

func (f *fakeBackend) Upload(ctx context.Context, data []byte, displayName, mimeType string) (*RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	state := f.uploadState
	if state == "" {
		state = RemoteProcessing
	}
	return &RemoteFile{
		ID:       "files/fake-1",
		URI:      "https://files.example/fake-1",
		MIMEType: mimeType,
		State:    state,
	}, nil
}

func (f *fakeBackend) GetState(ctx context.Context, remoteID string) (RemoteState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCalls++
	if len(f.pollStates) == 0 {
		if f.pollErr != nil {
			return "", f.pollErr
		}
		return RemoteProcessing, nil
	}
	state := f.pollStates[0]
	f.pollStates = f.pollStates[1:]
	return state, nil
}

func (f *fakeBackend) Delete(ctx context.Context, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, remoteID)
	return f.deleteErr
}

func newTestManager(backend UploadBackend) *Manager {
	return NewManager(backend, 5*time.Millisecond, 100*time.Millisecond)
}

func TestSubmit_UploadsNewAsset(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestManager(backend)
	slot := &Slot{}

	a, err := m.Submit(context.Background(), slot, []byte("video-bytes"), "a.mp4")
	if err != nil {
		t.Fatalf("Expected successful submit, got error: %v", err)
	}
	if a.State() != StateProcessing {
		t.Errorf("Expected PROCESSING after upload, got %s", a.State())
	}
	if a.RemoteID() == "" {
		t.Error("Expected remote id to be set after upload")
	}
	if a.MIMEType() != "video/mp4" {
		t.Errorf("Expected video/mp4 mime type, got %s", a.MIMEType())
	}
	if slot.Current() != a {
		t.Error("Expected slot to hold the submitted asset")
	}
	if backend.uploads != 1 {
		t.Errorf("Expected 1 upload, got %d", backend.uploads)
	}
}

func TestSubmit_IdempotentForUnchangedMedia(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestManager(backend)
	slot := &Slot{}

	first, err := m.Submit(context.Background(), slot, []byte("same-bytes"), "a.mp4")
	if err != nil {
		t.Fatalf("Expected successful submit, got error: %v", err)
	}

	second, err := m.Submit(context.Background(), slot, []byte("same-bytes"), "a.mp4")
	if err != nil {
		t.Fatalf("Expected successful resubmit, got error: %v", err)
	}

	if first != second {
		t.Error("Expected resubmission of unchanged media to return the same asset instance")
	}
	if backend.uploads != 1 {
		t.Errorf("Expected no duplicate upload, got %d uploads", backend.uploads)
	}
	if len(backend.deletes) != 0 {
		t.Errorf("Expected no delete for unchanged media, got %v", backend.deletes)
	}
}

func TestSubmit_SameNameDifferentBytesUploadsFresh(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestManager(backend)
	slot := &Slot{}

	first, err := m.Submit(context.Background(), slot, []byte("old-bytes"), "a.mp4")
	if err != nil {
		t.Fatalf("Expected successful submit, got error: %v", err)
	}

	// Name equality alone must not suppress a genuine content change
	second, err := m.Submit(context.Background(), slot, []byte("new-bytes"), "a.mp4")
	if err != nil {
		t.Fatalf("Expected successful submit, got error: %v", err)
	}

	if first == second {
		t.Error("Expected a fresh asset instance for changed bytes")
	}
	if first.State() != StateDeleted {
		t.Errorf("Expected replaced asset to be DELETED, got %s", first.State())
	}
	if backend.uploads != 2 {
		t.Errorf("Expected 2 uploads, got %d", backend.uploads)
	}
	if len(backend.deletes) != 1 {
		t.Errorf("Expected 1 remote delete, got %v", backend.deletes)
	}
}

func TestSubmit_ReplacementSurvivesDeleteFailure(t *testing.T) {
	backend := &fakeBackend{deleteErr: errors.New("file already expired")}
	m := newTestManager(backend)
	slot := &Slot{}

	if _, err := m.Submit(context.Background(), slot, []byte("one"), "a.mp4"); err != nil {
		t.Fatalf("Expected successful submit, got error: %v", err)
	}
	a, err := m.Submit(context.Background(), slot, []byte("two"), "b.mp4")
	if err != nil {
		t.Fatalf("Expected delete failure to be swallowed, got error: %v", err)
	}
	if a.State() != StateProcessing {
		t.Errorf("Expected new asset to reach PROCESSING, got %s", a.State())
	}
}

func TestSubmit_FailedAssetIsReplaced(t *testing.T) {
	backend := &fakeBackend{uploadErr: errors.New("connection reset")}
	m := newTestManager(backend)
	slot := &Slot{}

	first, err := m.Submit(context.Background(), slot, []byte("bytes"), "a.mp4")
	if err == nil {
		t.Fatal("Expected upload error")
	}
	if first.State() != StateFailed {
		t.Fatalf("Expected FAILED after upload error, got %s", first.State())
	}

	// Identical resubmission is deliberate after a failure and gets a new instance
	backend.uploadErr = nil
	second, err := m.Submit(context.Background(), slot, []byte("bytes"), "a.mp4")
	if err != nil {
		t.Fatalf("Expected successful resubmit, got error: %v", err)
	}
	if first == second {
		t.Error("Expected a fresh asset instance after a FAILED predecessor")
	}
	if second.State() != StateProcessing {
		t.Errorf("Expected PROCESSING, got %s", second.State())
	}
}

func TestUpload_TransportErrorMarksFailed(t *testing.T) {
	backend := &fakeBackend{uploadErr: errors.New("502 bad gateway")}
	m := newTestManager(backend)
	slot := &Slot{}

	a, err := m.Submit(context.Background(), slot, []byte("bytes"), "clip.webm")
	if err == nil {
		t.Fatal("Expected upload error to surface")
	}
	if !apperrors.IsKind(err, apperrors.KindUpload) {
		t.Errorf("Expected upload kind, got %v", err)
	}
	if a.State() != StateFailed {
		t.Errorf("Expected FAILED, got %s", a.State())
	}
	if backend.uploads != 1 {
		t.Errorf("Expected no automatic retry, got %d uploads", backend.uploads)
	}
}

func TestUpload_ImmediatelyActiveFile(t *testing.T) {
	backend := &fakeBackend{uploadState: RemoteReady}
	m := newTestManager(backend)
	slot := &Slot{}

	a, err := m.Submit(context.Background(), slot, []byte("img"), "frame.png")
	if err != nil {
		t.Fatalf("Expected successful submit, got error: %v", err)
	}
	if a.State() != StateReady {
		t.Errorf("Expected READY for an immediately active file, got %s", a.State())
	}
}

func TestAwaitReady_PollsUntilReady(t *testing.T) {
	backend := &fakeBackend{pollStates: []RemoteState{RemoteProcessing, RemoteProcessing, RemoteReady}}
	m := newTestManager(backend)
	slot := &Slot{}

	a, _ := m.Submit(context.Background(), slot, []byte("bytes"), "a.mp4")

	a, err := m.AwaitReady(context.Background(), a)
	if err != nil {
		t.Fatalf("Expected successful wait, got error: %v", err)
	}
	if a.State() != StateReady {
		t.Errorf("Expected READY, got %s", a.State())
	}
	if backend.stateCalls != 3 {
		t.Errorf("Expected 3 state queries, got %d", backend.stateCalls)
	}
}

func TestAwaitReady_ReturnsFailedAssetWithoutError(t *testing.T) {
	backend := &fakeBackend{pollStates: []RemoteState{RemoteProcessing, RemoteProcessing, RemoteFailed}}
	m := newTestManager(backend)
	slot := &Slot{}

	a, _ := m.Submit(context.Background(), slot, []byte("bytes"), "a.mp4")

	a, err := m.AwaitReady(context.Background(), a)
	if err != nil {
		t.Fatalf("Expected FAILED outcome without error, got: %v", err)
	}
	if a.State() != StateFailed {
		t.Errorf("Expected FAILED, got %s", a.State())
	}
}

func TestAwaitReady_StateQueryErrorTerminatesAsFailed(t *testing.T) {
	backend := &fakeBackend{pollErr: errors.New("state endpoint unavailable")}
	m := newTestManager(backend)
	slot := &Slot{}

	a, _ := m.Submit(context.Background(), slot, []byte("bytes"), "a.mp4")

	a, err := m.AwaitReady(context.Background(), a)
	if err != nil {
		t.Fatalf("Expected FAILED outcome without error, got: %v", err)
	}
	if a.State() != StateFailed {
		t.Errorf("Expected FAILED, got %s", a.State())
	}
	if backend.stateCalls != 1 {
		t.Errorf("Expected no silent retry of the state query, got %d calls", backend.stateCalls)
	}
}

func TestAwaitReady_TimesOut(t *testing.T) {
	backend := &fakeBackend{} // forever PROCESSING
	m := newTestManager(backend)
	slot := &Slot{}

	a, _ := m.Submit(context.Background(), slot, []byte("bytes"), "a.mp4")

	a, err := m.AwaitReady(context.Background(), a)
	if err == nil {
		t.Fatal("Expected poll timeout error")
	}
	if !apperrors.IsKind(err, apperrors.KindPollTimeout) {
		t.Errorf("Expected poll_timeout kind, got %v", err)
	}
	if a.State() != StateProcessing {
		t.Errorf("Expected asset left in last observed state, got %s", a.State())
	}
}

func TestAwaitReady_HonorsCancellation(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(backend, 10*time.Millisecond, time.Minute)
	slot := &Slot{}

	a, _ := m.Submit(context.Background(), slot, []byte("bytes"), "a.mp4")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(25 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	a, err := m.AwaitReady(ctx, a)
	if err == nil {
		t.Fatal("Expected cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected wrapped context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected wait to abort promptly on cancellation, took %v", elapsed)
	}
	if a.State() != StateProcessing {
		t.Errorf("Expected asset left in last observed state, got %s", a.State())
	}
}

func TestAwaitReady_TerminalStatesReturnImmediately(t *testing.T) {
	backend := &fakeBackend{uploadState: RemoteReady}
	m := newTestManager(backend)
	slot := &Slot{}

	a, _ := m.Submit(context.Background(), slot, []byte("bytes"), "a.mp4")

	a, err := m.AwaitReady(context.Background(), a)
	if err != nil {
		t.Fatalf("Expected immediate return for READY asset, got error: %v", err)
	}
	if backend.stateCalls != 0 {
		t.Errorf("Expected no state queries for a READY asset, got %d", backend.stateCalls)
	}
	if a.State() != StateReady {
		t.Errorf("Expected READY, got %s", a.State())
	}
}

func TestDelete_IsBestEffort(t *testing.T) {
	backend := &fakeBackend{deleteErr: errors.New("expired")}
	m := newTestManager(backend)
	slot := &Slot{}

	a, _ := m.Submit(context.Background(), slot, []byte("bytes"), "a.mp4")

	m.Delete(context.Background(), a)
	if a.State() != StateDeleted {
		t.Errorf("Expected DELETED despite backend failure, got %s", a.State())
	}

	// Deleting again is a no-op
	m.Delete(context.Background(), a)
	if len(backend.deletes) != 1 {
		t.Errorf("Expected exactly 1 delete call, got %d", len(backend.deletes))
	}
}

func TestConcurrentAssetsAreIndependent(t *testing.T) {
	backend := &fakeBackend{pollStates: []RemoteState{RemoteReady, RemoteReady}}
	m := newTestManager(backend)

	slotA := &Slot{}
	slotB := &Slot{}

	a, err := m.Submit(context.Background(), slotA, []byte("first"), "a.mp4")
	if err != nil {
		t.Fatalf("Expected successful submit, got error: %v", err)
	}
	b, err := m.Submit(context.Background(), slotB, []byte("second"), "b.mp4")
	if err != nil {
		t.Fatalf("Expected successful submit, got error: %v", err)
	}

	var wg sync.WaitGroup
	for _, x := range []*MediaAsset{a, b} {
		wg.Add(1)
		go func(ma *MediaAsset) {
			defer wg.Done()
			if _, err := m.AwaitReady(context.Background(), ma); err != nil {
				t.Errorf("Expected successful wait, got error: %v", err)
			}
		}(x)
	}
	wg.Wait()

	if a.State() != StateReady || b.State() != StateReady {
		t.Errorf("Expected both assets READY, got %s and %s", a.State(), b.State())
	}
}
