package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobWebSocket(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.e)
	defer srv.Close()

	id := s.createJob(t)
	rec := s.do(multipartRequest(t, "/api/jobs/"+id+"/files", []formFile{{"Piece 7.pdf", "page un"}}, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(jsonRequest(http.MethodPost, "/api/jobs/"+id+"/commit", `{"mode":"convert"}`))
	require.Equal(t, http.StatusAccepted, rec.Code)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/jobs/" + id + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	var names []string
	var result map[string]any
	for {
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg map[string]any
		if err := ws.ReadJSON(&msg); err != nil {
			break
		}
		name, _ := msg["event"].(string)
		names = append(names, name)
		if name == "result" {
			result, _ = msg["data"].(map[string]any)
		}
		if name == "done" {
			break
		}
	}

	require.NotEmpty(t, names)
	assert.Equal(t, "started", names[0])
	assert.Equal(t, []string{"result", "done"}, names[len(names)-2:])
	require.NotNil(t, result)
	assert.Equal(t, "Piece 7.docx", result["filename"])
}

func TestJobWebSocketUnknownJob(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/jobs/nope/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
