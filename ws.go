package community_chat

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time 写入超时时间
	writeWait = 10 * time.Second

	// Time pong超时时间
	pongWait = 60 * time.Second

	// Send 对应的ping 必须小于pong
	pingPeriod = (pongWait * 9) / 10

	// Maximum 对等端允许消息大小
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for SDK
	},
}

// Client 一条具体的 websocket 连接；同一用户可以有多个（多设备）。
type Client struct {
	hub *WsServer

	conn *websocket.Conn

	// 消息缓冲区
	send chan []byte

	UserID uint64
}

// readPump 把消息从连接读进 hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { _ = c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("readPump error: %v", err)
			}
			break
		}
		c.hub.handleMessage(c, msg)
	}
}

// writePump 把 send 管道的消息写到连接
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(msg)

			// 把管道里剩余的消息一次写完，减少系统调用
			n := len(c.send)
			for i := 0; i < n; i++ {
				_, _ = w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WsServer 维护用户到连接的映射，并把连接生命周期事件交给回调
// （engine 用它驱动 presence 的上线/下线）。
type WsServer struct {
	clients map[*Client]bool
	// 用户ID -> 该用户所有活跃的连接（支持多设备）
	userClients map[uint64][]*Client

	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	// 回调处理消息
	onMessage func(client *Client, msg []byte)

	// onConnect 用户第一条连接建立时触发；onDisconnect 最后一条断开时触发。
	onConnect    func(userID uint64)
	onDisconnect func(userID uint64)
}

func NewWsServer() *WsServer {
	return &WsServer{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		clients:     make(map[*Client]bool),
		userClients: make(map[uint64][]*Client),
	}
}

func (h *WsServer) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			first := len(h.userClients[client.UserID]) == 0
			h.userClients[client.UserID] = append(h.userClients[client.UserID], client)
			h.mu.Unlock()

			if first && h.onConnect != nil {
				// 回调里有 DB IO，别占着 ws 主循环
				go h.onConnect(client.UserID)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			last := false
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)

				if conns, exists := h.userClients[client.UserID]; exists {
					for i, conn := range conns {
						if conn == client {
							h.userClients[client.UserID] = append(conns[:i], conns[i+1:]...)
							break
						}
					}
					if len(h.userClients[client.UserID]) == 0 {
						delete(h.userClients, client.UserID)
						last = true
					}
				}
			}
			h.mu.Unlock()

			if last && h.onDisconnect != nil {
				go h.onDisconnect(client.UserID)
			}
		}
	}
}

func (h *WsServer) handleMessage(client *Client, msg []byte) {
	if h.onMessage != nil {
		h.onMessage(client, msg)
	}
}

func (h *WsServer) SetOnMessage(fn func(client *Client, msg []byte)) {
	h.onMessage = fn
}

// ServeWS 处理ws的请求
func (h *WsServer) ServeWS(w http.ResponseWriter, r *http.Request, userID uint64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		UserID: userID,
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// SendToUser 发送消息到用户的全部连接；发不进去就丢弃，避免阻塞。
func (h *WsServer) SendToUser(userID uint64, msg []byte) {
	h.mu.RLock()
	clients := h.userClients[userID]
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

// SendToUsers 批量推送
func (h *WsServer) SendToUsers(userIDs []uint64, msg []byte) {
	for _, uid := range userIDs {
		h.SendToUser(uid, msg)
	}
}
