package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gatepass/internal/models"
)

func TestParseAllKeys(t *testing.T) {
	md := map[string]string{
		"user":      `{"uid":"u1","email":"a@b.com","name":"Ada","eventId":"ev1","eventTitle":"Expo","eventDate":"2025-06-01","eventTime":"19:00","eventLocation":"London","refunds":true}`,
		"tickets":   `[{"title":"GA","price":40,"bookingFee":10,"quantity":1}]`,
		"organizer": `{"organizerId":"org1","organizer":"Expo Ltd"}`,
	}

	got := Parse(md)

	assert.Equal(t, "u1", got.User.UID)
	assert.Equal(t, "Expo", got.User.EventTitle)
	assert.True(t, got.User.Refunds)
	assert.Len(t, got.Tickets, 1)
	assert.Equal(t, "GA", got.Tickets[0].Title)
	assert.Equal(t, 40.0, got.Tickets[0].Price)
	assert.Equal(t, "org1", got.Organizer.OrganizerID)
}

func TestParseMissingKeysYieldEmptyDefaults(t *testing.T) {
	cases := []struct {
		name    string
		missing string
	}{
		{"no user", "user"},
		{"no tickets", "tickets"},
		{"no organizer", "organizer"},
	}

	full := map[string]string{
		"user":      `{"uid":"u1"}`,
		"tickets":   `[{"title":"GA","price":40,"bookingFee":10,"quantity":1}]`,
		"organizer": `{"organizerId":"org1"}`,
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			md := map[string]string{}
			for k, v := range full {
				if k != tc.missing {
					md[k] = v
				}
			}

			got := Parse(md)

			switch tc.missing {
			case "user":
				assert.True(t, got.User.IsZero())
				assert.Len(t, got.Tickets, 1)
				assert.Equal(t, "org1", got.Organizer.OrganizerID)
			case "tickets":
				assert.Empty(t, got.Tickets)
				assert.Equal(t, "u1", got.User.UID)
			case "organizer":
				assert.Equal(t, models.OrganizerRecord{}, got.Organizer)
				assert.Equal(t, "u1", got.User.UID)
			}
		})
	}
}

func TestParseMalformedBlobDoesNotBlockOthers(t *testing.T) {
	md := map[string]string{
		"user":      `{not json`,
		"tickets":   `[{"title":"GA","price":40,"bookingFee":10,"quantity":2}]`,
		"organizer": `also not json`,
	}

	got := Parse(md)

	assert.True(t, got.User.IsZero())
	assert.Equal(t, models.OrganizerRecord{}, got.Organizer)
	assert.Len(t, got.Tickets, 1)
	assert.Equal(t, 2, got.Tickets[0].Quantity)
}

func TestParseNilMap(t *testing.T) {
	got := Parse(nil)
	assert.True(t, got.User.IsZero())
	assert.Empty(t, got.Tickets)
}
