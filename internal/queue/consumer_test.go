package queue

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bar-table-reservation/internal/model"
)

func TestHandleNotificationJournalsOneLine(t *testing.T) {
	email := "ada@example.com"
	r := model.Reservation{
		ID: "r-1", BarID: "bar-1", TableNumber: "4", Status: model.StatusConfirmed,
		StartAt: time.Date(2024, 1, 1, 19, 0, 0, 0, time.UTC), DurationMins: 90, PartySize: 3,
		CustomerName: "Ada", CustomerPhone: "+100", CustomerEmail: &email,
	}
	n := NewReservationNotification(model.NotifyConfirmation, r, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-01-01T20:30:00Z", n.EndAt)
	assert.Equal(t, email, n.CustomerEmail)

	body, err := json.Marshal(n)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, HandleNotification(body, newJournal(&buf)))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "confirmation", line["kind"])
	assert.Equal(t, "r-1", line["reservation_id"])
	assert.Equal(t, "notification delivered", line["msg"])
}

func TestHandleNotificationRejectsGarbage(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, HandleNotification([]byte("{"), newJournal(&buf)))
	assert.Error(t, HandleNotification([]byte(`{"kind":"reminder"}`), newJournal(&buf)))
	assert.Zero(t, buf.Len())
}
