package geotiff

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"pilotforce-server-go/internal/domain/eventbus"
	"pilotforce-server-go/internal/domain/presign"
	"pilotforce-server-go/internal/platform/config"
	"pilotforce-server-go/internal/platform/logging"
	"pilotforce-server-go/internal/platform/storage"
)

type fixture struct {
	reassembler *Reassembler
	sessions    *storage.ChunkSessionRepository
	resources   *storage.ResourceRepository
	blobs       *storage.BlobStore
	signer      *presign.Signer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := storage.Open(config.StorageConfig{
		DSN: "file:" + t.Name() + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("storage.Open error: %v", err)
	}

	blobs, err := storage.NewBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewBlobStore error: %v", err)
	}

	signer, err := presign.NewSigner(config.PresignConfig{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("NewSigner error: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: "error", Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("logging.New error: %v", err)
	}

	bus := eventbus.New(eventbus.WithWorkers(1))
	t.Cleanup(bus.Close)

	sessions := storage.NewChunkSessionRepository(db)
	resources := storage.NewResourceRepository(db)
	reassembler := NewReassembler(
		config.GeoTIFFConfig{LinkTTL: time.Hour},
		sessions, resources, blobs, signer, bus, logger)

	return &fixture{
		reassembler: reassembler,
		sessions:    sessions,
		resources:   resources,
		blobs:       blobs,
		signer:      signer,
	}
}

func putChunks(t *testing.T, f *fixture, bookingID, sessionID string, parts []string) {
	t.Helper()
	for i, part := range parts {
		if _, err := f.blobs.Put(ChunkKey(bookingID, sessionID, i), strings.NewReader(part)); err != nil {
			t.Fatalf("put chunk %d: %v", i, err)
		}
	}
}

func TestHandleManifestReassemblesCompleteSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	parts := []string{"alpha-", "bravo-", "charlie"}
	putChunks(t, f, "booking-1", "sess-1", parts)

	err := f.reassembler.HandleManifest(ctx, Manifest{
		SessionID:   "sess-1",
		BookingID:   "booking-1",
		FileName:    "survey.tif",
		ContentType: "image/tiff",
		TotalChunks: len(parts),
	})
	if err != nil {
		t.Fatalf("HandleManifest error: %v", err)
	}

	// Final object holds the chunks in order.
	reader, err := f.blobs.Open("reassembled/booking-1/survey.tif")
	if err != nil {
		t.Fatalf("final object missing: %v", err)
	}
	defer reader.Close()
	data, _ := io.ReadAll(reader)
	if !bytes.Equal(data, []byte("alpha-bravo-charlie")) {
		t.Fatalf("reassembled bytes = %q", data)
	}

	// Chunks are cleaned up.
	keys, err := f.blobs.List("chunks/booking-1/sess-1/")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected chunks deleted, found %v", keys)
	}

	// Resource record points at the final object with a verifiable link.
	list, err := f.resources.ListByBooking(ctx, "booking-1")
	if err != nil {
		t.Fatalf("ListByBooking error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one resource, got %d", len(list))
	}
	res := list[0]
	if !res.IsChunkedFile || !res.IsComplete || res.ResourceType != "geotiff" {
		t.Fatalf("unexpected resource flags: %+v", res)
	}
	if res.Size != int64(len("alpha-bravo-charlie")) {
		t.Fatalf("size = %d", res.Size)
	}
	if err := f.signer.Verify(res.URL); err != nil {
		t.Fatalf("resource url must verify: %v", err)
	}

	// Session is stamped completed.
	session, err := f.sessions.FindBySessionID(ctx, "sess-1")
	if err != nil || session == nil {
		t.Fatalf("session lookup: %v", err)
	}
	if session.Status != "completed" || session.CompletedAt == nil {
		t.Fatalf("session not completed: %+v", session)
	}
}

func TestHandleManifestWaitsForMissingChunks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	putChunks(t, f, "booking-1", "sess-2", []string{"only-one"})

	err := f.reassembler.HandleManifest(ctx, Manifest{
		SessionID:   "sess-2",
		BookingID:   "booking-1",
		FileName:    "survey.tif",
		TotalChunks: 3,
	})
	if err != nil {
		t.Fatalf("HandleManifest error: %v", err)
	}

	session, err := f.sessions.FindBySessionID(ctx, "sess-2")
	if err != nil || session == nil {
		t.Fatalf("session lookup: %v", err)
	}
	if session.Status != "pending" {
		t.Fatalf("incomplete session must stay pending, got %s", session.Status)
	}
	if f.blobs.Exists("reassembled/booking-1/survey.tif") {
		t.Fatalf("final object must not exist yet")
	}
}

func TestSweepCompletesLateSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Manifest arrives before the second chunk.
	putChunks(t, f, "booking-1", "sess-3", []string{"first-"})
	if err := f.reassembler.HandleManifest(ctx, Manifest{
		SessionID:   "sess-3",
		BookingID:   "booking-1",
		FileName:    "late.tif",
		TotalChunks: 2,
	}); err != nil {
		t.Fatalf("HandleManifest error: %v", err)
	}

	// Late chunk lands, then the sweep runs.
	if _, err := f.blobs.Put(ChunkKey("booking-1", "sess-3", 1), strings.NewReader("second")); err != nil {
		t.Fatalf("put late chunk: %v", err)
	}
	f.reassembler.Sweep(ctx)

	reader, err := f.blobs.Open("reassembled/booking-1/late.tif")
	if err != nil {
		t.Fatalf("sweep did not reassemble: %v", err)
	}
	defer reader.Close()
	data, _ := io.ReadAll(reader)
	if string(data) != "first-second" {
		t.Fatalf("reassembled bytes = %q", data)
	}
}

func TestRetrySingleSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	putChunks(t, f, "booking-1", "sess-4", []string{"part-"})
	if err := f.reassembler.HandleManifest(ctx, Manifest{
		SessionID:   "sess-4",
		BookingID:   "booking-1",
		FileName:    "retry.tif",
		TotalChunks: 2,
	}); err != nil {
		t.Fatalf("HandleManifest error: %v", err)
	}

	done, err := f.reassembler.Retry(ctx, "sess-4")
	if err != nil {
		t.Fatalf("Retry error: %v", err)
	}
	if done {
		t.Fatalf("retry must not complete while chunks are missing")
	}

	if _, err := f.blobs.Put(ChunkKey("booking-1", "sess-4", 1), strings.NewReader("two")); err != nil {
		t.Fatalf("put late chunk: %v", err)
	}
	done, err = f.reassembler.Retry(ctx, "sess-4")
	if err != nil || !done {
		t.Fatalf("retry should complete session: done=%v err=%v", done, err)
	}

	// Retrying a finished session is a no-op that still reports done.
	done, err = f.reassembler.Retry(ctx, "sess-4")
	if err != nil || !done {
		t.Fatalf("completed session retry: done=%v err=%v", done, err)
	}

	if _, err := f.reassembler.Retry(ctx, "no-such-session"); err == nil {
		t.Fatalf("expected error for unknown session")
	}
}

func TestHandleManifestValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.reassembler.HandleManifest(ctx, Manifest{BookingID: "b"}); err == nil {
		t.Fatalf("expected error for missing session id")
	}
	if err := f.reassembler.HandleManifest(ctx, Manifest{SessionID: "s", BookingID: "b", TotalChunks: 0}); err == nil {
		t.Fatalf("expected error for zero chunks")
	}
}

func TestChunkKeyOrdering(t *testing.T) {
	a := ChunkKey("b", "s", 2)
	b := ChunkKey("b", "s", 10)
	if !(a < b) {
		t.Fatalf("zero-padded keys must sort numerically: %s vs %s", a, b)
	}
}
