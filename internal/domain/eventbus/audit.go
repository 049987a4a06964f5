package eventbus

import (
	"pilotforce-server-go/internal/platform/logging"
)

// RegisterAuditLog subscribes a consumer for every domain topic and writes
// the events to the activity log. It is the baseline listener, so published
// events always have at least one receiver.
func RegisterAuditLog(b *Bus, logger *logging.Logger) error {
	if err := b.Subscribe(EventResourceCreated, func(ev ResourceEvent) {
		logger.InfoTag("EVENT", "resource %s created on booking %s (%s)", ev.ResourceID, ev.BookingID, ev.ObjectKey)
	}); err != nil {
		return err
	}
	if err := b.Subscribe(EventResourceDeleted, func(ev ResourceEvent) {
		logger.InfoTag("EVENT", "resource %s deleted from booking %s", ev.ResourceID, ev.BookingID)
	}); err != nil {
		return err
	}
	if err := b.Subscribe(EventManifestStored, func(ev ManifestEvent) {
		logger.InfoTag("EVENT", "manifest stored for session %s (%s)", ev.SessionID, ev.FileName)
	}); err != nil {
		return err
	}
	if err := b.Subscribe(EventGeoTIFFReady, func(ev ResourceEvent) {
		logger.InfoTag("EVENT", "geotiff %s ready on booking %s", ev.ObjectKey, ev.BookingID)
	}); err != nil {
		return err
	}
	return b.Subscribe(EventURLRefreshed, func(ev RefreshEvent) {
		logger.InfoTag("EVENT", "refreshed %d urls in %s", ev.Count, ev.Elapsed)
	})
}
