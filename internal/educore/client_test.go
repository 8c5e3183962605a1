package educore_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educore/monitor/internal/educore"
	"github.com/educore/monitor/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *educore.Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return educore.NewClient(server.URL, 2*time.Second, educore.Credentials{CSRFToken: "fallback-token"})
}

func TestCheckConflict(t *testing.T) {
	var gotBody map[string]any
	var gotHeader, gotCookie string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, educore.PathCheckConflict, r.URL.Path)
		gotHeader = r.Header.Get(educore.CSRFHeaderName)
		if c, err := r.Cookie(educore.CSRFCookieName); err == nil {
			gotCookie = c.Value
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "has_conflict": true, "conflict": {"message_ar": "تعارض",
			"group_name": "G1", "conflict_start": "10:00", "conflict_end": "12:00"}}`))
	})

	ctx := educore.WithCredentials(context.Background(), educore.Credentials{CSRFToken: "browser-token"})
	q := models.ConflictQuery{RoomID: "3", Day: "mon", Time: "10:00", Duration: 120}

	result, err := client.CheckConflict(ctx, q)
	require.NoError(t, err)

	assert.True(t, result.HasConflict)
	require.NotNil(t, result.Conflict)
	assert.Equal(t, "G1", result.Conflict.GroupName)
	assert.Equal(t, "تعارض", result.Conflict.MessageAr)

	assert.Equal(t, "browser-token", gotHeader)
	assert.Equal(t, "browser-token", gotCookie)
	assert.Equal(t, "3", gotBody["room_id"])
	assert.Equal(t, "mon", gotBody["day"])
	assert.Equal(t, float64(120), gotBody["duration"])
	assert.Contains(t, gotBody, "exclude_group_id")
	assert.Nil(t, gotBody["exclude_group_id"])
}

func TestCheckConflict_FallbackCSRFToken(t *testing.T) {
	var gotHeader string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(educore.CSRFHeaderName)
		w.Write([]byte(`{"success": true, "has_conflict": false}`))
	})

	result, err := client.CheckConflict(context.Background(), models.ConflictQuery{RoomID: "1", Day: "mon", Time: "09:00", Duration: 60})
	require.NoError(t, err)
	assert.False(t, result.HasConflict)
	assert.Equal(t, "fallback-token", gotHeader)
}

func TestAvailableRooms(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "mon", r.URL.Query().Get("day"))
		assert.Equal(t, "10:00", r.URL.Query().Get("time"))
		assert.Equal(t, "120", r.URL.Query().Get("duration"))
		assert.Empty(t, r.Header.Get(educore.CSRFHeaderName), "GET requests must not carry the CSRF header")

		w.Write([]byte(`{"success": true, "rooms": [{"room_id": 1, "name": "A", "capacity": 20, "is_available": true}]}`))
	})

	rooms, err := client.AvailableRooms(context.Background(), models.Slot{Day: "mon", Time: "10:00", Duration: 120})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, models.ID("1"), rooms[0].Key())
	assert.True(t, rooms[0].IsAvailable)
}

func TestLiveStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, educore.PathLiveStatus, r.URL.Path)
		w.Write([]byte(`{"success": true, "data": {"summary": {"total_present_today": 4, "active_sessions": 1},
			"rooms": [{"id": 1, "name": "A", "capacity": 20, "status": "empty"}], "alerts": []}}`))
	})

	status, err := client.LiveStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, status.Summary.TotalPresentToday)
	require.Len(t, status.Rooms, 1)
	assert.Equal(t, models.RoomStatusEmpty, status.Rooms[0].Status)
}

func TestRoomDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/attendance/monitor/room/7/", r.URL.Path)
		w.Write([]byte(`{"success": true, "data": {"room": {"id": 7, "name": "Lab", "capacity": 12},
			"session": null, "students": []}}`))
	})

	detail, err := client.RoomDetail(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Lab", detail.Room.Name)
	assert.Nil(t, detail.Session)
}

func TestApplicationFailure(t *testing.T) {
	t.Run("SuccessFalse", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success": false, "error": "monitor disabled"}`))
		})

		_, err := client.LiveStatus(context.Background())
		require.Error(t, err)
		assert.True(t, educore.IsAPIError(err))
		assert.False(t, educore.IsTransport(err))
		assert.Contains(t, err.Error(), "monitor disabled")
	})

	t.Run("Non2xx", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success": false, "error": "Room not found"}`))
		})

		_, err := client.CheckConflict(context.Background(), models.ConflictQuery{RoomID: "99", Day: "mon", Time: "10:00", Duration: 60})
		require.Error(t, err)

		var apiErr *educore.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Equal(t, "Room not found", apiErr.Message)
	})
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := educore.NewClient(server.URL, time.Second, educore.Credentials{})
	_, err := client.PrintReport(context.Background())
	require.Error(t, err)
	assert.True(t, educore.IsTransport(err))
}
