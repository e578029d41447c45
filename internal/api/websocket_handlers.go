// internal/api/websocket_handlers.go
package api

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Corphon/AnimStudio/internal/project"
	"github.com/Corphon/AnimStudio/internal/utils"
)

const (
	wsPongWait     = 60 * time.Second
	wsPingInterval = 54 * time.Second
	wsWriteWait    = 10 * time.Second
)

// WebSocketHandler 处理项目订阅连接
type WebSocketHandler struct {
	manager *WebSocketManager
	store   *project.Store
	logger  *utils.Logger
}

// NewWebSocketHandler 创建 WebSocket 处理器
func NewWebSocketHandler(manager *WebSocketManager, store *project.Store) *WebSocketHandler {
	return &WebSocketHandler{manager: manager, store: store, logger: utils.GetLogger()}
}

// ProjectWebSocket 升级连接并持续推送项目变更
func (wh *WebSocketHandler) ProjectWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wh.logger.Warn("WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	client := newWebSocketClient(conn)
	if !wh.manager.Register(client) {
		wh.logger.Warn("WebSocket register queue full", nil)
		client.Close()
		return
	}

	// 欢迎消息先于任何广播入队
	wh.sendState(client, MessageWelcome)

	go wh.handleWebSocketWrites(client)
	wh.handleWebSocketReads(client)
}

func (wh *WebSocketHandler) sendState(client *WebSocketClient, msgType string) {
	client.SendMessage(map[string]interface{}{
		"type":      msgType,
		"client_id": client.id,
		"revision":  wh.store.Revision(),
		"epoch":     wh.store.Epoch(),
		"state":     wh.store.Snapshot(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleWebSocketReads 读取客户端消息，返回时注销客户端
func (wh *WebSocketHandler) handleWebSocketReads(client *WebSocketClient) {
	defer func() {
		wh.manager.Unregister(client)
		client.Close()
	}()

	client.conn.SetReadLimit(64 << 10)
	client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wh.logger.Warn("WebSocket read failed", map[string]interface{}{
					"client_id": client.id,
					"error":     err.Error(),
				})
			}
			return
		}
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		wh.handleMessage(client, data)
	}
}

// handleMessage 客户端只能发送 ping 和 get_state
func (wh *WebSocketHandler) handleMessage(client *WebSocketClient, data []byte) {
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		client.SendError("invalid message format")
		return
	}

	switch msg.Type {
	case "ping":
		client.SendMessage(map[string]interface{}{
			"type":      MessagePong,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	case "get_state":
		wh.sendState(client, MessageState)
	default:
		client.SendError("unknown message type: " + msg.Type)
	}
}

// handleWebSocketWrites 写出队列消息并定期 ping
func (wh *WebSocketHandler) handleWebSocketWrites(client *WebSocketClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case <-client.done:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			client.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// GetStatus 返回连接状态
func (wh *WebSocketHandler) GetStatus(c *gin.Context) {
	NewResponseHelper().Success(c, wh.manager.GetStatus())
}
