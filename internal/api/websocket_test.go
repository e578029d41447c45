package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/services"
)

type wsMessage struct {
	Type   string `json:"type"`
	Change struct {
		Op string `json:"op"`
	} `json:"change"`
	State struct {
		Theme models.Theme `json:"theme"`
	} `json:"state"`
	Task  services.TaskUpdate `json:"task"`
	Error string              `json:"error"`
}

func dialProject(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/project"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil 跳过其他类型的消息
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) wsMessage {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := readMessage(t, conn)
		if msg.Type == msgType {
			return msg
		}
	}
	t.Fatalf("no %s message received", msgType)
	return wsMessage{}
}

func TestProjectFeedPushesChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	env.manager.StartProjectFeed(ctx, env.store, env.studio.Tasks())

	conn := dialProject(t, env)
	welcome := readMessage(t, conn)
	assert.Equal(t, MessageWelcome, welcome.Type)
	assert.Equal(t, models.ThemeDark, welcome.State.Theme)

	env.store.ToggleTheme()
	msg := readUntil(t, conn, MessageStateChanged)
	assert.Equal(t, "toggleTheme", msg.Change.Op)
	assert.Equal(t, models.ThemeLight, msg.State.Theme)

	_, err := env.studio.GenerateOutline(context.Background(), services.OutlineRequest{Prompt: "fox"})
	require.NoError(t, err)
	task := readUntil(t, conn, MessageTaskUpdate)
	assert.Equal(t, "outline", task.Task.Kind)
}

func TestProjectSocketClientMessages(t *testing.T) {
	env := newTestEnv(t)
	conn := dialProject(t, env)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, MessagePong, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "get_state"}))
	assert.Equal(t, MessageState, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "shout"}))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageError, msg.Type)
	assert.Contains(t, msg.Error, "shout")

	require.Eventually(t, func() bool { return env.manager.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}
