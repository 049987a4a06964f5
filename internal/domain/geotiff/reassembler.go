package geotiff

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"pilotforce-server-go/internal/domain/eventbus"
	"pilotforce-server-go/internal/domain/presign"
	"pilotforce-server-go/internal/platform/config"
	"pilotforce-server-go/internal/platform/errors"
	"pilotforce-server-go/internal/platform/logging"
	"pilotforce-server-go/internal/platform/storage"
)

// Manifest announces that every chunk of a large upload has been sent and
// the parts are ready to be stitched back together.
type Manifest struct {
	SessionID   string `json:"sessionId"`
	BookingID   string `json:"bookingId"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	TotalChunks int    `json:"totalChunks"`
}

// ChunkKey names the blob holding one part of a chunked upload. Indexes are
// zero-padded so lexicographic listing matches upload order.
func ChunkKey(bookingID, sessionID string, index int) string {
	return fmt.Sprintf("chunks/%s/%s/%05d.part", bookingID, sessionID, index)
}

func chunkPrefix(bookingID, sessionID string) string {
	return fmt.Sprintf("chunks/%s/%s/", bookingID, sessionID)
}

// Reassembler turns completed chunk sessions into whole GeoTIFF resources.
// It reacts to manifests as they arrive and sweeps pending sessions on a
// timer to catch manifests that raced their last chunks.
type Reassembler struct {
	sessions  *storage.ChunkSessionRepository
	resources *storage.ResourceRepository
	blobs     *storage.BlobStore
	signer    *presign.Signer
	bus       *eventbus.Bus
	logger    *logging.Logger

	linkTTL       time.Duration
	sweepInterval time.Duration
}

func NewReassembler(
	cfg config.GeoTIFFConfig,
	sessions *storage.ChunkSessionRepository,
	resources *storage.ResourceRepository,
	blobs *storage.BlobStore,
	signer *presign.Signer,
	bus *eventbus.Bus,
	logger *logging.Logger,
) *Reassembler {
	linkTTL := cfg.LinkTTL
	if linkTTL <= 0 {
		linkTTL = 14 * 24 * time.Hour
	}
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = 5 * time.Minute
	}
	return &Reassembler{
		sessions:      sessions,
		resources:     resources,
		blobs:         blobs,
		signer:        signer,
		bus:           bus,
		logger:        logger,
		linkTTL:       linkTTL,
		sweepInterval: sweep,
	}
}

// HandleManifest records the manifest against its session and reassembles
// immediately when every chunk has already landed.
func (r *Reassembler) HandleManifest(ctx context.Context, manifest Manifest) error {
	const op = "geotiff.handle_manifest"

	if manifest.SessionID == "" || manifest.BookingID == "" {
		return errors.New(errors.KindDomain, op, "manifest missing session or booking id")
	}
	if manifest.TotalChunks <= 0 {
		return errors.New(errors.KindDomain, op, "manifest total chunks must be positive")
	}

	session, err := r.sessions.FindBySessionID(ctx, manifest.SessionID)
	if err != nil {
		return err
	}
	if session == nil {
		session = &storage.ChunkSession{
			SessionID:   manifest.SessionID,
			BookingID:   manifest.BookingID,
			FileName:    manifest.FileName,
			ContentType: manifest.ContentType,
			TotalChunks: manifest.TotalChunks,
			Status:      "pending",
		}
		if err := r.sessions.Create(ctx, session); err != nil {
			return err
		}
	} else {
		session.FileName = manifest.FileName
		session.ContentType = manifest.ContentType
		session.TotalChunks = manifest.TotalChunks
		if err := r.sessions.Update(ctx, session); err != nil {
			return err
		}
	}

	r.bus.PublishAsync(eventbus.EventManifestStored, eventbus.ManifestEvent{
		SessionID: manifest.SessionID,
		BookingID: manifest.BookingID,
		FileName:  manifest.FileName,
	})

	done, err := r.tryReassemble(ctx, session)
	if err != nil {
		return err
	}
	if !done {
		r.logger.InfoTag("GEOTIFF", "session %s waiting for chunks", manifest.SessionID)
	}
	return nil
}

// tryReassemble stitches the session's chunks when all of them are present.
// Returns false without error when chunks are still missing.
func (r *Reassembler) tryReassemble(ctx context.Context, session *storage.ChunkSession) (bool, error) {
	const op = "geotiff.reassemble"

	keys, err := r.blobs.List(chunkPrefix(session.BookingID, session.SessionID))
	if err != nil {
		return false, err
	}
	if len(keys) < session.TotalChunks {
		return false, nil
	}
	if len(keys) > session.TotalChunks {
		return false, errors.New(errors.KindDomain, op,
			fmt.Sprintf("session %s has %d chunks, manifest expects %d", session.SessionID, len(keys), session.TotalChunks))
	}

	finalKey := fmt.Sprintf("reassembled/%s/%s", session.BookingID, session.FileName)
	size, err := r.concatenate(finalKey, keys)
	if err != nil {
		return false, err
	}

	resource := &storage.Resource{
		ResourceID:    "res_" + uuid.NewString(),
		BookingID:     session.BookingID,
		FileName:      session.FileName,
		ContentType:   session.ContentType,
		Size:          size,
		ObjectKey:     finalKey,
		URL:           r.signer.Sign(finalKey, r.linkTTL),
		IsImage:       false,
		ResourceType:  "geotiff",
		Status:        "active",
		IsChunkedFile: true,
		IsComplete:    true,
		SessionID:     session.SessionID,
	}
	if err := r.resources.Create(ctx, resource); err != nil {
		return false, err
	}
	if err := r.sessions.MarkCompleted(ctx, session.SessionID); err != nil {
		return false, err
	}

	for _, key := range keys {
		if err := r.blobs.Delete(key); err != nil {
			r.logger.WarnTag("GEOTIFF", "failed to delete chunk %s: %v", key, err)
		}
	}

	r.logger.InfoTag("GEOTIFF", "reassembled %s (%d chunks, %d bytes) for booking %s",
		session.FileName, session.TotalChunks, size, session.BookingID)
	r.bus.PublishAsync(eventbus.EventGeoTIFFReady, eventbus.ResourceEvent{
		ResourceID: resource.ResourceID,
		BookingID:  resource.BookingID,
		ObjectKey:  resource.ObjectKey,
	})
	return true, nil
}

func (r *Reassembler) concatenate(finalKey string, chunkKeys []string) (int64, error) {
	readers := make([]io.Reader, 0, len(chunkKeys))
	closers := make([]io.Closer, 0, len(chunkKeys))
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	for _, key := range chunkKeys {
		reader, err := r.blobs.Open(key)
		if err != nil {
			return 0, err
		}
		readers = append(readers, reader)
		closers = append(closers, reader)
	}
	return r.blobs.Put(finalKey, io.MultiReader(readers...))
}

// Retry attempts reassembly of one session immediately. Completed sessions
// report done without redoing any work.
func (r *Reassembler) Retry(ctx context.Context, sessionID string) (bool, error) {
	const op = "geotiff.retry"

	session, err := r.sessions.FindBySessionID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, errors.New(errors.KindDomain, op, "unknown session: "+sessionID)
	}
	if session.Status == "completed" {
		return true, nil
	}
	return r.tryReassemble(ctx, session)
}

// Sweep retries every pending session once. Sessions still short of chunks
// stay pending; broken sessions are logged and skipped.
func (r *Reassembler) Sweep(ctx context.Context) {
	pending, err := r.sessions.ListPending(ctx)
	if err != nil {
		r.logger.WarnTag("GEOTIFF", "sweep failed to list sessions: %v", err)
		return
	}
	for i := range pending {
		session := &pending[i]
		done, err := r.tryReassemble(ctx, session)
		if err != nil {
			r.logger.WarnTag("GEOTIFF", "sweep skipping session %s: %v", session.SessionID, err)
			continue
		}
		if done {
			r.logger.InfoTag("GEOTIFF", "sweep completed session %s", session.SessionID)
		}
	}
}

// Run sweeps on an interval until the context is cancelled.
func (r *Reassembler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}
