package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resona/model"
	"resona/repository"
)

type chatEnv struct {
	db       *sql.DB
	hub      *Hub
	gateway  *Gateway
	users    repository.UserRepository
	messages repository.MessageRepository
}

func newChatEnv(t *testing.T) *chatEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, ddl := range []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sender_id INTEGER NOT NULL,
			receiver_id INTEGER NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	} {
		_, err := db.Exec(ddl)
		require.NoError(t, err)
	}

	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	users := repository.NewMySQLUserRepository(db)
	messages := repository.NewMySQLMessageRepository(db)

	return &chatEnv{
		db:       db,
		hub:      hub,
		gateway:  NewGateway(hub, users, messages),
		users:    users,
		messages: messages,
	}
}

func (e *chatEnv) addUser(t *testing.T, username string) int64 {
	t.Helper()
	id, err := e.users.CreateUser(&model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
	})
	require.NoError(t, err)
	return id
}

func (e *chatEnv) connect(t *testing.T, userID int64, username string) *Client {
	t.Helper()
	client := &Client{
		Hub:      e.hub,
		Send:     make(chan []byte, 16),
		UserID:   userID,
		Username: username,
	}
	e.hub.Register(client)
	waitForCondition(t, func() bool { return e.hub.IsConnected(userID) })
	return client
}

func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func recvFrame(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.Send:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received in time")
		return nil
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGroupName(t *testing.T) {
	assert.Equal(t, "chat_7", GroupName(7))
	assert.Equal(t, "chat_7", GroupName(7), "group name must be deterministic")
}

func TestMessageDeliveredToBothGroups(t *testing.T) {
	env := newChatEnv(t)
	ctx := context.Background()

	aliceID := env.addUser(t, "alice")
	bobID := env.addUser(t, "bob")
	alice := env.connect(t, aliceID, "alice")
	bob := env.connect(t, bobID, "bob")

	env.gateway.HandleFrame(ctx, alice, &InboundFrame{Message: "hey bob", Receiver: "bob"})

	for _, c := range []*Client{alice, bob} {
		var payload ChatPayload
		require.NoError(t, json.Unmarshal(recvFrame(t, c), &payload))
		assert.Equal(t, "hey bob", payload.Content)
		assert.Equal(t, "alice", payload.Sender)
		assert.Equal(t, "bob", payload.Receiver)

		ts, err := time.Parse(time.RFC3339, payload.Timestamp)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), ts, time.Minute)
	}

	// 每个组恰好收到一帧
	assertNoFrame(t, alice)
	assertNoFrame(t, bob)

	// 消息已落库
	history, err := env.messages.GetConversation(ctx, aliceID, bobID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hey bob", history[0].Content)
	assert.Equal(t, "alice", history[0].Sender)
}

func TestUnknownReceiverErrorFrameOnly(t *testing.T) {
	env := newChatEnv(t)
	ctx := context.Background()

	aliceID := env.addUser(t, "alice")
	alice := env.connect(t, aliceID, "alice")

	env.gateway.HandleFrame(ctx, alice, &InboundFrame{Message: "hello?", Receiver: "nobody"})

	var errFrame ErrorFrame
	require.NoError(t, json.Unmarshal(recvFrame(t, alice), &errFrame))
	assert.Equal(t, "Receiver not found", errFrame.Error)
	assertNoFrame(t, alice)

	// 没有任何消息被持久化
	var count int
	require.NoError(t, env.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&count))
	assert.Zero(t, count)
}

func TestEmptyMessageIgnored(t *testing.T) {
	env := newChatEnv(t)
	ctx := context.Background()

	aliceID := env.addUser(t, "alice")
	env.addUser(t, "bob")
	alice := env.connect(t, aliceID, "alice")

	env.gateway.HandleFrame(ctx, alice, &InboundFrame{Message: "   ", Receiver: "bob"})

	assertNoFrame(t, alice)
	var count int
	require.NoError(t, env.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&count))
	assert.Zero(t, count)
}

func TestSelfMessageDeliveredOnce(t *testing.T) {
	env := newChatEnv(t)
	ctx := context.Background()

	aliceID := env.addUser(t, "alice")
	alice := env.connect(t, aliceID, "alice")

	env.gateway.HandleFrame(ctx, alice, &InboundFrame{Message: "note to self", Receiver: "alice"})

	var payload ChatPayload
	require.NoError(t, json.Unmarshal(recvFrame(t, alice), &payload))
	assert.Equal(t, "note to self", payload.Content)
	assertNoFrame(t, alice)
}

func TestOfflineReceiverStillPersisted(t *testing.T) {
	env := newChatEnv(t)
	ctx := context.Background()

	aliceID := env.addUser(t, "alice")
	bobID := env.addUser(t, "bob")
	alice := env.connect(t, aliceID, "alice")
	// bob 未连接

	env.gateway.HandleFrame(ctx, alice, &InboundFrame{Message: "see you later", Receiver: "bob"})

	// 发送者组仍然收到回显
	var payload ChatPayload
	require.NoError(t, json.Unmarshal(recvFrame(t, alice), &payload))
	assert.Equal(t, "see you later", payload.Content)

	history, err := env.messages.GetConversation(ctx, bobID, aliceID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestConversationOrderedAscending(t *testing.T) {
	env := newChatEnv(t)
	ctx := context.Background()

	aliceID := env.addUser(t, "alice")
	bobID := env.addUser(t, "bob")
	alice := env.connect(t, aliceID, "alice")
	bob := env.connect(t, bobID, "bob")

	for _, text := range []string{"one", "two", "three"} {
		env.gateway.HandleFrame(ctx, alice, &InboundFrame{Message: text, Receiver: "bob"})
		recvFrame(t, alice)
		recvFrame(t, bob)
	}
	env.gateway.HandleFrame(ctx, bob, &InboundFrame{Message: "four", Receiver: "alice"})
	recvFrame(t, alice)
	recvFrame(t, bob)

	history, err := env.messages.GetConversation(ctx, aliceID, bobID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	for i, want := range []string{"one", "two", "three", "four"} {
		assert.Equal(t, want, history[i].Content)
	}
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].Timestamp.Before(history[i-1].Timestamp))
	}
}

func TestSecondDeviceJoinsSameGroup(t *testing.T) {
	env := newChatEnv(t)
	ctx := context.Background()

	aliceID := env.addUser(t, "alice")
	bobID := env.addUser(t, "bob")
	phone := env.connect(t, aliceID, "alice")
	laptop := env.connect(t, aliceID, "alice")
	bob := env.connect(t, bobID, "bob")

	// 两台设备都留在组里
	waitForCondition(t, func() bool {
		return env.hub.GroupClientCount(GroupName(aliceID)) == 2
	})

	env.gateway.HandleFrame(ctx, bob, &InboundFrame{Message: "ping", Receiver: "alice"})

	// 每台设备各收到一帧
	for _, c := range []*Client{phone, laptop} {
		var payload ChatPayload
		require.NoError(t, json.Unmarshal(recvFrame(t, c), &payload))
		assert.Equal(t, "ping", payload.Content)
	}

	// 一台设备断开，另一台照常收消息
	env.hub.Unregister(phone)
	waitForCondition(t, func() bool {
		return env.hub.GroupClientCount(GroupName(aliceID)) == 1
	})
	assert.True(t, env.hub.IsConnected(aliceID))

	env.gateway.HandleFrame(ctx, bob, &InboundFrame{Message: "again", Receiver: "alice"})
	var payload ChatPayload
	require.NoError(t, json.Unmarshal(recvFrame(t, laptop), &payload))
	assert.Equal(t, "again", payload.Content)
}

func TestFullSendBufferDoesNotBlockHub(t *testing.T) {
	env := newChatEnv(t)

	aliceID := env.addUser(t, "alice")
	slow := &Client{
		Hub:      env.hub,
		Send:     make(chan []byte, 1),
		UserID:   aliceID,
		Username: "alice",
	}
	env.hub.Register(slow)
	waitForCondition(t, func() bool { return env.hub.IsConnected(aliceID) })

	// 第二条消息塞不进缓冲区，慢客户端被移出组
	env.hub.Publish(GroupName(aliceID), []byte(`{"content":"one"}`))
	env.hub.Publish(GroupName(aliceID), []byte(`{"content":"two"}`))
	waitForCondition(t, func() bool { return !env.hub.IsConnected(aliceID) })

	// Run 循环依然存活：后续注册照常完成
	bobID := env.addUser(t, "bob")
	done := make(chan struct{})
	go func() {
		bob := &Client{
			Hub:      env.hub,
			Send:     make(chan []byte, 16),
			UserID:   bobID,
			Username: "bob",
		}
		env.hub.Register(bob)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub stopped processing registrations")
	}
	waitForCondition(t, func() bool { return env.hub.IsConnected(bobID) })
}

func TestUnregisterIsIdempotent(t *testing.T) {
	env := newChatEnv(t)

	aliceID := env.addUser(t, "alice")
	alice := env.connect(t, aliceID, "alice")

	env.hub.Unregister(alice)
	env.hub.Unregister(alice)
	waitForCondition(t, func() bool { return !env.hub.IsConnected(aliceID) })
	assert.Zero(t, env.hub.GroupClientCount(GroupName(aliceID)))
}

// startChatServer 起一个真实的 WebSocket 端点，走完整的 ReadPump/WritePump 路径
func startChatServer(t *testing.T, env *chatEnv) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.URL.Query().Get("uid"), 10, 64)
		if err != nil {
			http.Error(w, "bad uid", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := &Client{
			Hub:      env.hub,
			Conn:     conn,
			Send:     make(chan []byte, 16),
			UserID:   userID,
			Username: r.URL.Query().Get("name"),
		}
		env.hub.Register(client)
		go client.WritePump()
		go client.ReadPump(context.Background(), env.gateway.HandleFrame)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialChat(t *testing.T, srv *httptest.Server, userID int64, username string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/?uid=" + strconv.FormatInt(userID, 10) + "&name=" + username
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestMalformedFrameKeepsConnectionAlive(t *testing.T) {
	env := newChatEnv(t)

	aliceID := env.addUser(t, "alice")
	env.addUser(t, "bob")
	srv := startChatServer(t, env)

	conn := dialChat(t, srv, aliceID, "alice")
	waitForCondition(t, func() bool { return env.hub.IsConnected(aliceID) })

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	// 连接还在，后续合法帧照常处理并回显给发送者
	require.NoError(t, conn.WriteJSON(&InboundFrame{Message: "still here", Receiver: "bob"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var payload ChatPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "still here", payload.Content)
	assert.True(t, env.hub.IsConnected(aliceID))
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	env := newChatEnv(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := int64(1000 + n)
			client := &Client{
				Hub:      env.hub,
				Send:     make(chan []byte, 16),
				UserID:   userID,
				Username: "user",
			}
			env.hub.Register(client)
			env.hub.Unregister(client)
		}(i)
	}
	wg.Wait()

	waitForCondition(t, func() bool {
		for n := 0; n < 20; n++ {
			if env.hub.IsConnected(int64(1000 + n)) {
				return false
			}
		}
		return true
	})
}
