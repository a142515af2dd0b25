package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"secondcycle_go/config"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

var (
	// 升级器 - 将HTTP连接升级为WebSocket连接
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// 生产环境应该验证origin
			return true
		},
	}

	// 客户端连接管理
	clients      = make(map[string]*Client) // userID -> Client
	clientsMutex sync.RWMutex

	// Redis订阅
	redisPubSub *redis.PubSub
	redisCtx    = context.Background()
)

// Client WebSocket客户端
type Client struct {
	ID         string          // 用户ID
	Connection *websocket.Conn // WebSocket连接
	Send       chan *WSMessage // 发送消息队列
}

// WSMessage WebSocket消息结构
type WSMessage struct {
	Type      string      `json:"type"` // 消息类型: notification, ping, pong
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// pushEnvelope 跨实例推送的Redis消息
type pushEnvelope struct {
	UserID string          `json:"user_id"`
	Data   json.RawMessage `json:"data"`
}

// InitWebSocket 初始化WebSocket服务
func InitWebSocket() error {
	// 启动Redis PubSub监听（多服务器场景：通知可能落在别的实例上）
	if config.RedisClient != nil {
		go subscribeToRedis()
	}

	// 启动心跳检测
	go heartbeatChecker()

	log.Println("✅ WebSocket service initialized")
	return nil
}

// HandleConnection 处理WebSocket连接
// 用户身份由认证中间件写入context，不信任查询参数
func HandleConnection(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	// 升级HTTP连接为WebSocket连接
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	// 创建客户端
	client := &Client{
		ID:         userID,
		Connection: conn,
		Send:       make(chan *WSMessage, 256),
	}

	// 添加到客户端列表（同一用户重连时替换旧连接）
	clientsMutex.Lock()
	if old, exists := clients[userID]; exists {
		old.Connection.Close()
	}
	clients[userID] = client
	clientsMutex.Unlock()

	// 设置用户在线状态到Redis
	if config.RedisClient != nil {
		go func() {
			config.RedisClient.Set(redisCtx, "online:"+userID, "1", time.Minute*5)
			config.RedisClient.SAdd(redisCtx, "online:users", userID)
		}()
	}

	log.Printf("User %s connected via WebSocket", userID)

	// 启动读写goroutine
	go client.readPump()
	go client.writePump()
}

// readPump 从WebSocket连接读取消息
// 通知通道是单向下行的，客户端上行只处理心跳
func (c *Client) readPump() {
	defer func() {
		removeClient(c.ID)
		c.Connection.Close()
	}()

	// 设置读超时
	c.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Connection.SetPongHandler(func(string) error {
		c.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error for user %s: %v", c.ID, err)
			}
			break
		}

		var wsMessage WSMessage
		if err := json.Unmarshal(message, &wsMessage); err != nil {
			continue
		}

		if wsMessage.Type == "ping" {
			select {
			case c.Send <- &WSMessage{Type: "pong", Timestamp: time.Now().Unix()}:
			default:
			}
		}
	}
}

// writePump 向WebSocket连接写入消息
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				// 通道关闭
				c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Connection.WriteJSON(message); err != nil {
				log.Printf("WebSocket write error for user %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			// 发送心跳
			c.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// PushToUser 向指定用户推送通知
// 用户不在本实例时通过Redis转发，Redis不可用且用户离线则返回错误
func PushToUser(userID string, payload interface{}) error {
	clientsMutex.RLock()
	client, online := clients[userID]
	clientsMutex.RUnlock()

	if online {
		select {
		case client.Send <- &WSMessage{
			Type:      "notification",
			Data:      payload,
			Timestamp: time.Now().Unix(),
		}:
			return nil
		default:
			return fmt.Errorf("send queue full for user %s", userID)
		}
	}

	// 用户可能连接在别的实例上，发布到Redis
	if config.RedisClient != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		envelope, _ := json.Marshal(pushEnvelope{UserID: userID, Data: data})
		return config.RedisClient.Publish(redisCtx, "notify:push", envelope).Err()
	}

	return fmt.Errorf("user %s is not connected", userID)
}

// subscribeToRedis 订阅Redis通知频道（多服务器同步）
func subscribeToRedis() {
	pubsub := config.RedisClient.Subscribe(redisCtx, "notify:push")
	redisPubSub = pubsub

	ch := pubsub.Channel()
	for msg := range ch {
		var envelope pushEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			continue
		}

		clientsMutex.RLock()
		client, online := clients[envelope.UserID]
		clientsMutex.RUnlock()
		if !online {
			continue
		}

		var payload interface{}
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			continue
		}

		select {
		case client.Send <- &WSMessage{
			Type:      "notification",
			Data:      payload,
			Timestamp: time.Now().Unix(),
		}:
		default:
		}
	}
}

// heartbeatChecker 心跳检测
func heartbeatChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		checkHeartbeats()
	}
}

// checkHeartbeats 单轮心跳检测
// 连接写入只允许writePump一个goroutine做，心跳走Send队列排队，
// 队列堆满说明对端早已不消费，直接清理
func checkHeartbeats() {
	clientsMutex.Lock()
	defer clientsMutex.Unlock()

	for userID, client := range clients {
		select {
		case client.Send <- &WSMessage{Type: "ping", Timestamp: time.Now().Unix()}:
			// 在线状态续期，真正断开的连接由writePump写失败收尾
			if config.RedisClient != nil {
				config.RedisClient.Expire(redisCtx, "online:"+userID, time.Minute*5)
			}
		default:
			log.Printf("Removing dead client: %s", userID)
			client.Connection.Close()
			delete(clients, userID)

			// 更新Redis在线状态
			if config.RedisClient != nil {
				config.RedisClient.Del(redisCtx, "online:"+userID)
				config.RedisClient.SRem(redisCtx, "online:users", userID)
			}
		}
	}
}

// removeClient 从客户端列表移除
func removeClient(userID string) {
	clientsMutex.Lock()
	delete(clients, userID)
	clientsMutex.Unlock()

	if config.RedisClient != nil {
		config.RedisClient.Del(redisCtx, "online:"+userID)
		config.RedisClient.SRem(redisCtx, "online:users", userID)
	}
}

// GetOnlineUserCount 获取在线用户数
func GetOnlineUserCount() (int64, error) {
	if config.RedisClient == nil {
		return 0, fmt.Errorf("redis not available")
	}

	return config.RedisClient.SCard(redisCtx, "online:users").Result()
}

// CloseWebSocket 关闭WebSocket服务
func CloseWebSocket() {
	if redisPubSub != nil {
		redisPubSub.Close()
	}

	clientsMutex.Lock()
	for _, client := range clients {
		client.Connection.Close()
	}
	clientsMutex.Unlock()
}
