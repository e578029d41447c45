// internal/api/websocket.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Corphon/AnimStudio/internal/project"
	"github.com/Corphon/AnimStudio/internal/services"
	"github.com/Corphon/AnimStudio/internal/utils"
)

// WebSocket 升级器配置；控制台只监听本机，不检查来源
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// 推送消息类型
const (
	MessageWelcome      = "welcome"
	MessageStateChanged = "state_changed"
	MessageTaskUpdate   = "task_update"
	MessageState        = "state"
	MessagePong         = "pong"
	MessageError        = "error"
)

// WebSocketClient 表示一个 WebSocket 客户端连接
type WebSocketClient struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closed    int32 // 0=开启，1=关闭
	lastPing  int64 // unix nano
	createdAt time.Time
}

func newWebSocketClient(conn *websocket.Conn) *WebSocketClient {
	now := time.Now()
	return &WebSocketClient{
		id:        uuid.NewString(),
		conn:      conn,
		send:      make(chan []byte, 256),
		done:      make(chan struct{}),
		lastPing:  now.UnixNano(),
		createdAt: now,
	}
}

// Close 安全关闭客户端连接；send 通道不关闭，写协程通过 done 退出
func (client *WebSocketClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		close(client.done)
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// IsClosed 检查连接是否已关闭
func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// UpdatePing 更新最后ping时间
func (client *WebSocketClient) UpdatePing() {
	atomic.StoreInt64(&client.lastPing, time.Now().UnixNano())
}

// IsExpired 检查连接是否超时
func (client *WebSocketClient) IsExpired(timeout time.Duration) bool {
	if timeout <= 0 {
		return true
	}
	last := time.Unix(0, atomic.LoadInt64(&client.lastPing))
	return time.Since(last) > timeout
}

// SendMessage 非阻塞地把消息放入发送队列，队列满时丢弃
func (client *WebSocketClient) SendMessage(message map[string]interface{}) bool {
	if client.IsClosed() {
		return false
	}
	data, err := json.Marshal(message)
	if err != nil {
		return false
	}
	return client.enqueue(data)
}

func (client *WebSocketClient) enqueue(data []byte) bool {
	select {
	case client.send <- data:
		return true
	default:
		return false
	}
}

// SendError 发送错误消息到客户端
func (client *WebSocketClient) SendError(errorMsg string) {
	client.SendMessage(map[string]interface{}{
		"type":      MessageError,
		"error":     errorMsg,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// WebSocketManager 管理所有项目订阅连接
type WebSocketManager struct {
	clients     map[*WebSocketClient]struct{}
	broadcast   chan []byte
	register    chan *WebSocketClient
	unregister  chan *WebSocketClient
	mutex       sync.RWMutex
	pingTimeout time.Duration
	running     int32
	logger      *utils.Logger
}

// NewWebSocketManager 创建管理器，调用 Run 后开始工作
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:     make(map[*WebSocketClient]struct{}),
		broadcast:   make(chan []byte, 256),
		register:    make(chan *WebSocketClient),
		unregister:  make(chan *WebSocketClient, 64),
		pingTimeout: 90 * time.Second,
		logger:      utils.GetLogger(),
	}
}

// Run 运行管理器主循环，直到 ctx 结束
func (manager *WebSocketManager) Run(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&manager.running, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&manager.running, 0)

	cleanupTicker := time.NewTicker(30 * time.Second)
	defer cleanupTicker.Stop()

	for {
		select {
		case client := <-manager.register:
			manager.registerClient(client)

		case client := <-manager.unregister:
			manager.unregisterClient(client)

		case <-cleanupTicker.C:
			manager.cleanupExpiredConnections()

		case message := <-manager.broadcast:
			manager.broadcastMessage(message)

		case <-ctx.Done():
			manager.shutdown()
			return
		}
	}
}

// Register 注册客户端；返回时主循环已收到该客户端，之后的广播都会送达
func (manager *WebSocketManager) Register(client *WebSocketClient) bool {
	select {
	case manager.register <- client:
		return true
	case <-time.After(time.Second):
		return false
	}
}

// Unregister 注销客户端，管理器已停止时直接关闭
func (manager *WebSocketManager) Unregister(client *WebSocketClient) {
	select {
	case manager.unregister <- client:
	case <-time.After(time.Second):
		client.Close()
	}
}

func (manager *WebSocketManager) registerClient(client *WebSocketClient) {
	if client == nil {
		return
	}
	manager.mutex.Lock()
	manager.clients[client] = struct{}{}
	total := len(manager.clients)
	manager.mutex.Unlock()

	client.UpdatePing()
	manager.logger.Info("WebSocket client connected", map[string]interface{}{
		"client_id": client.id,
		"total":     total,
	})
}

func (manager *WebSocketManager) unregisterClient(client *WebSocketClient) {
	if client == nil {
		return
	}
	manager.mutex.Lock()
	_, existed := manager.clients[client]
	delete(manager.clients, client)
	manager.mutex.Unlock()

	client.Close()
	if existed {
		manager.logger.Info("WebSocket client disconnected", map[string]interface{}{
			"client_id": client.id,
		})
	}
}

// cleanupExpiredConnections 清理过期和死连接
func (manager *WebSocketManager) cleanupExpiredConnections() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	for client := range manager.clients {
		if client.IsClosed() || client.IsExpired(manager.pingTimeout) {
			delete(manager.clients, client)
			client.Close()
		}
	}
}

// Broadcast 序列化后推送给所有客户端
func (manager *WebSocketManager) Broadcast(message map[string]interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		manager.logger.Warn("Failed to encode broadcast", map[string]interface{}{"error": err.Error()})
		return
	}
	select {
	case manager.broadcast <- data:
	default:
		manager.logger.Warn("Broadcast queue full, message dropped", map[string]interface{}{
			"type": message["type"],
		})
	}
}

// broadcastMessage 队列满的客户端视为失联并关闭
func (manager *WebSocketManager) broadcastMessage(message []byte) {
	manager.mutex.RLock()
	clients := make([]*WebSocketClient, 0, len(manager.clients))
	for client := range manager.clients {
		if !client.IsClosed() {
			clients = append(clients, client)
		}
	}
	manager.mutex.RUnlock()

	for _, client := range clients {
		if !client.enqueue(message) {
			client.Close()
		}
	}
}

// shutdown 关闭所有连接
func (manager *WebSocketManager) shutdown() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	for client := range manager.clients {
		client.Close()
	}
	manager.clients = make(map[*WebSocketClient]struct{})
	manager.logger.Info("WebSocket manager stopped", nil)
}

// ClientCount 当前连接数
func (manager *WebSocketManager) ClientCount() int {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()
	return len(manager.clients)
}

// GetStatus 获取管理器状态
func (manager *WebSocketManager) GetStatus() map[string]interface{} {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	clients := make([]map[string]interface{}, 0, len(manager.clients))
	for client := range manager.clients {
		if client.IsClosed() {
			continue
		}
		clients = append(clients, map[string]interface{}{
			"client_id":    client.id,
			"connected_at": client.createdAt.Format(time.RFC3339),
			"last_ping":    time.Unix(0, atomic.LoadInt64(&client.lastPing)).Format(time.RFC3339),
		})
	}

	return map[string]interface{}{
		"running":           atomic.LoadInt32(&manager.running) == 1,
		"total_connections": len(clients),
		"clients":           clients,
	}
}

// StartProjectFeed 订阅状态变更和任务进度并转发给所有客户端，直到 ctx 结束；返回时订阅已生效
func (manager *WebSocketManager) StartProjectFeed(ctx context.Context, store *project.Store, tasks *services.TaskService) {
	changes, cancelChanges := store.Subscribe(64)

	var updates <-chan services.TaskUpdate
	cancelTasks := func() {}
	if tasks != nil {
		updates, cancelTasks = tasks.Subscribe()
	}

	go func() {
		defer cancelChanges()
		defer cancelTasks()

		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				manager.Broadcast(map[string]interface{}{
					"type":   MessageStateChanged,
					"change": change,
					"state":  store.Snapshot(),
				})
			case update, ok := <-updates:
				if !ok {
					updates = nil
					continue
				}
				manager.Broadcast(map[string]interface{}{
					"type": MessageTaskUpdate,
					"task": update,
				})
			}
		}
	}()
}
