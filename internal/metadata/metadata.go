package metadata

import (
	"encoding/json"

	"gatepass/internal/logger"
	"gatepass/internal/models"
)

// Metadata keys set on the checkout session at creation time. Each holds an
// independently string-encoded JSON blob.
const (
	keyUser      = "user"
	keyTickets   = "tickets"
	keyOrganizer = "organizer"
)

// Parse decodes the three metadata blobs into typed structures. It never
// fails: a missing or malformed blob is logged and yields that field's zero
// value while the other blobs still decode normally. Downstream code treats
// missing user/ticket data as its own error class.
func Parse(md map[string]string) models.SessionMetadata {
	var out models.SessionMetadata

	if raw, ok := md[keyUser]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &out.User); err != nil {
			logger.Get().Error("Failed to parse user metadata", "error", err)
			out.User = models.UserRecord{}
		}
	}

	if raw, ok := md[keyTickets]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &out.Tickets); err != nil {
			logger.Get().Error("Failed to parse tickets metadata", "error", err)
			out.Tickets = nil
		}
	}

	if raw, ok := md[keyOrganizer]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &out.Organizer); err != nil {
			logger.Get().Error("Failed to parse organizer metadata", "error", err)
			out.Organizer = models.OrganizerRecord{}
		}
	}

	return out
}
