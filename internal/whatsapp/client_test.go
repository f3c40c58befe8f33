package whatsapp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/config"
	"github.com/bma-crm/commhub/internal/whatsapp"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*whatsapp.Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := whatsapp.NewClient(&config.WhatsAppConfig{
		BaseURL:       server.URL,
		AccessToken:   "test-token",
		PhoneNumberID: "1234567890",
		Timeout:       5,
	}, zap.NewNop())

	return client, server
}

func TestClient_SendText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1234567890/messages", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "whatsapp", body["messaging_product"])
		assert.Equal(t, "66812345678", body["to"])
		assert.Equal(t, "text", body["type"])

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": []map[string]string{{"id": "wamid.sent1"}},
		})
	})

	resp, err := client.SendText(context.Background(), "0812345678", "hello")
	require.NoError(t, err)
	assert.Equal(t, "wamid.sent1", resp.MessageID())
}

func TestClient_SendText_APIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid OAuth access token"}}`))
	})

	_, err := client.SendText(context.Background(), "0812345678", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_SendTemplate(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "template", body["type"])

		tpl := body["template"].(map[string]interface{})
		assert.Equal(t, "order_update", tpl["name"])
		assert.Equal(t, map[string]interface{}{"code": "th"}, tpl["language"])

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": []map[string]string{{"id": "wamid.tpl1"}},
		})
	})

	resp, err := client.SendTemplate(context.Background(), "66812345678", "order_update", "th")
	require.NoError(t, err)
	assert.Equal(t, "wamid.tpl1", resp.MessageID())
}

func TestClient_UploadMediaAndSendDocument(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1234567890/media":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "whatsapp", r.FormValue("messaging_product"))

			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "QT20260824001.pdf", header.Filename)

			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "media-42"})
		case "/1234567890/messages":
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "document", body["type"])

			doc := body["document"].(map[string]interface{})
			assert.Equal(t, "media-42", doc["id"])
			assert.Equal(t, "QT20260824001.pdf", doc["filename"])

			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"messages": []map[string]string{{"id": "wamid.doc1"}},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	mediaID, err := client.UploadMedia(context.Background(), []byte("%PDF-1.4"), "QT20260824001.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "media-42", mediaID)

	resp, err := client.SendDocument(context.Background(), "66812345678", mediaID, "QT20260824001.pdf", "Your quotation")
	require.NoError(t, err)
	assert.Equal(t, "wamid.doc1", resp.MessageID())
}
