package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("delivers the event", func(t *testing.T) {
		var got map[string]interface{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/v1/notifications", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, 0)
		err := client.Notify(ctx, userID, "bid.accepted", map[string]interface{}{"bid_id": "b1"})
		assert.NoError(t, err)
		assert.Equal(t, userID.String(), got["user_id"])
		assert.Equal(t, "bid.accepted", got["event_kind"])
	})

	t.Run("rejection surfaces as an error for the caller to log", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, 0)
		err := client.Notify(ctx, userID, "task.created", nil)
		assert.Error(t, err)
	})
}
