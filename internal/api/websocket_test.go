package api

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jd-analyzer/backend/internal/models"
	"github.com/jd-analyzer/backend/internal/testutil"
	"github.com/jd-analyzer/backend/internal/upload"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialIngestSocket(t *testing.T, mgr *upload.Manager) *websocket.Conn {
	t.Helper()
	wsh := NewWebSocketHandler(mgr, slog.New(slog.NewTextHandler(io.Discard, nil)))
	wsh.pollInterval = 10 * time.Millisecond

	e := echo.New()
	e.GET("/api/ws/ingest", wsh.HandleWebSocket)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/ingest"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello WSMessage
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, MsgTypeConnected, hello.Type)
	return conn
}

func newSocketManager() (*upload.Manager, *testutil.MockStorage) {
	store := testutil.NewMockStorage()
	return upload.NewManager(store, nil, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func sendAndRead(t *testing.T, conn *websocket.Conn, msg WSMessage) WSMessage {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	var reply WSMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestWebSocket_Ping(t *testing.T) {
	mgr, _ := newSocketManager()
	conn := dialIngestSocket(t, mgr)

	reply := sendAndRead(t, conn, WSMessage{Type: MsgTypePing, ID: "p1"})
	assert.Equal(t, MsgTypePong, reply.Type)
	assert.Equal(t, "p1", reply.ID)
}

func TestWebSocket_Ingest(t *testing.T) {
	mgr, store := newSocketManager()
	conn := dialIngestSocket(t, mgr)

	t.Run("plain payload", func(t *testing.T) {
		payload := mustJSON(IngestPayload{
			FileName: "jd.txt",
			Data:     base64.StdEncoding.EncodeToString([]byte("岗位要求：熟悉Go")),
		})
		reply := sendAndRead(t, conn, WSMessage{Type: MsgTypeIngest, ID: "i1", Payload: payload})
		require.Equal(t, MsgTypeComplete, reply.Type)

		var result IngestResultPayload
		require.NoError(t, json.Unmarshal(reply.Payload, &result))
		assert.Equal(t, "岗位要求：熟悉Go", result.Document.Text)
		assert.Equal(t, "jd.txt", result.File.Name)
	})

	t.Run("gzip payload", func(t *testing.T) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		gz.Write([]byte("compressed jd"))
		require.NoError(t, gz.Close())

		payload := mustJSON(IngestPayload{
			FileName: "jd.txt",
			Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
			Encoding: "gzip",
		})
		reply := sendAndRead(t, conn, WSMessage{Type: MsgTypeIngest, ID: "i2", Payload: payload})
		require.Equal(t, MsgTypeComplete, reply.Type)
		assert.Contains(t, string(reply.Payload), "compressed jd")
	})

	t.Run("unsupported format", func(t *testing.T) {
		payload := mustJSON(IngestPayload{FileName: "jd.xlsx", Data: base64.StdEncoding.EncodeToString([]byte("x"))})
		reply := sendAndRead(t, conn, WSMessage{Type: MsgTypeIngest, ID: "i3", Payload: payload})
		require.Equal(t, MsgTypeError, reply.Type)

		var errResp WSErrorResponse
		require.NoError(t, json.Unmarshal(reply.Payload, &errResp))
		assert.Equal(t, "UNSUPPORTED_FORMAT", errResp.Code)
	})

	t.Run("bad base64", func(t *testing.T) {
		payload := mustJSON(IngestPayload{FileName: "jd.txt", Data: "!!!"})
		reply := sendAndRead(t, conn, WSMessage{Type: MsgTypeIngest, ID: "i4", Payload: payload})
		require.Equal(t, MsgTypeError, reply.Type)
		assert.Contains(t, string(reply.Payload), "INVALID_PAYLOAD")
	})

	assert.Equal(t, 2, store.GetFileCount())
}

func TestWebSocket_IngestGzipInflationBound(t *testing.T) {
	store := testutil.NewMockStorage()
	limits := upload.Limits{MaxFileBytes: 1024, MaxBatchCount: 5, MaxBatchBytes: 4096}
	mgr := upload.NewManager(store, upload.NewValidator(limits, nil), slog.New(slog.NewTextHandler(io.Discard, nil)))
	conn := dialIngestSocket(t, mgr)

	tests := []struct {
		name     string
		inflated int
		wantType string
		wantCode string
	}{
		{name: "at limit", inflated: 1024, wantType: MsgTypeComplete},
		{name: "one byte over", inflated: 1025, wantType: MsgTypeError, wantCode: "LIMIT_EXCEEDED"},
		{name: "highly compressible", inflated: 8 << 20, wantType: MsgTypeError, wantCode: "LIMIT_EXCEEDED"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			gz := gzip.NewWriter(&buf)
			_, err := gz.Write(bytes.Repeat([]byte("a"), tt.inflated))
			require.NoError(t, err)
			require.NoError(t, gz.Close())

			payload := mustJSON(IngestPayload{
				FileName: "jd.txt",
				Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
				Encoding: "gzip",
			})
			reply := sendAndRead(t, conn, WSMessage{Type: MsgTypeIngest, ID: fmt.Sprintf("g%d", i), Payload: payload})
			require.Equal(t, tt.wantType, reply.Type)

			if tt.wantCode != "" {
				var errResp WSErrorResponse
				require.NoError(t, json.Unmarshal(reply.Payload, &errResp))
				assert.Equal(t, tt.wantCode, errResp.Code)
			}
		})
	}

	assert.Equal(t, 1, store.GetFileCount())
}

func TestWebSocket_JobWatch(t *testing.T) {
	mgr, _ := newSocketManager()
	conn := dialIngestSocket(t, mgr)

	job, err := mgr.StartJob([]models.UploadCandidate{
		{Name: "a.txt", Data: []byte("first")},
		{Name: "b.txt", Data: []byte("second")},
	})
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(WSMessage{
		Type:    MsgTypeJobWatch,
		ID:      "w1",
		Payload: mustJSON(JobWatchPayload{JobID: job.ID}),
	}))

	// Progress frames may precede the final one depending on timing
	for {
		var msg WSMessage
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		require.NoError(t, conn.ReadJSON(&msg))
		require.Contains(t, []string{MsgTypeProgress, MsgTypeComplete}, msg.Type)
		if msg.Type != MsgTypeComplete {
			continue
		}

		var final upload.Job
		require.NoError(t, json.Unmarshal(msg.Payload, &final))
		assert.Equal(t, upload.StatusComplete, final.Status)
		assert.Len(t, final.Files, 2)
		break
	}

	reply := sendAndRead(t, conn, WSMessage{Type: MsgTypeJobWatch, Payload: mustJSON(JobWatchPayload{JobID: "missing"})})
	assert.Equal(t, MsgTypeError, reply.Type)
	assert.Contains(t, string(reply.Payload), "NOT_FOUND")
}

func TestWebSocket_UnknownType(t *testing.T) {
	mgr, _ := newSocketManager()
	conn := dialIngestSocket(t, mgr)

	reply := sendAndRead(t, conn, WSMessage{Type: "upload:chunk"})
	assert.Equal(t, MsgTypeError, reply.Type)
	assert.Contains(t, string(reply.Payload), "INVALID_TYPE")
}
