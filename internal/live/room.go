// Package live streams acquisitions to browser clients over websockets.
package live

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/san-kum/vxpsim/internal/rotor"
)

const (
	socketBufferSize  = 1024
	messageBufferSize = 16
	writeWait         = 5 * time.Second
)

var upgrader = &websocket.Upgrader{ReadBufferSize: socketBufferSize, WriteBufferSize: socketBufferSize}

type Event struct {
	Run         int               `json:"run"`
	Measurement rotor.Measurement `json:"measurement"`
}

// Room fans messages out to every connected client. Slow clients drop
// messages rather than blocking the room.
type Room struct {
	forward chan []byte
	join    chan *client
	leave   chan *client
	count   chan chan int
	done    chan struct{}
	clients map[*client]bool
	logger  *log.Logger
}

func NewRoom(logger *log.Logger) *Room {
	return &Room{
		forward: make(chan []byte),
		join:    make(chan *client),
		leave:   make(chan *client),
		count:   make(chan chan int),
		done:    make(chan struct{}),
		clients: make(map[*client]bool),
		logger:  logger,
	}
}

func (r *Room) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}

// Run serves the room until ctx is done, then closes every client.
func (r *Room) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			for c := range r.clients {
				delete(r.clients, c)
				close(c.send)
			}
			return
		case c := <-r.join:
			r.clients[c] = true
			r.logf("live: client joined (%d)", len(r.clients))
		case c := <-r.leave:
			if r.clients[c] {
				delete(r.clients, c)
				close(c.send)
			}
			r.logf("live: client left (%d)", len(r.clients))
		case msg := <-r.forward:
			for c := range r.clients {
				select {
				case c.send <- msg:
				default:
					r.logf("live: dropped message for slow client")
				}
			}
		case reply := <-r.count:
			reply <- len(r.clients)
		}
	}
}

// Clients returns the number of connected clients, or 0 once the room has
// stopped.
func (r *Room) Clients() int {
	reply := make(chan int, 1)
	select {
	case r.count <- reply:
		return <-reply
	case <-r.done:
		return 0
	}
}

// Broadcast is a no-op once the room has stopped.
func (r *Room) Broadcast(msg []byte) {
	select {
	case r.forward <- msg:
	case <-r.done:
	}
}

func (r *Room) OnAcquire(run int, m rotor.Measurement) {
	payload, err := json.Marshal(Event{Run: run, Measurement: m})
	if err != nil {
		r.logf("live: marshal: %v", err)
		return
	}
	r.Broadcast(payload)
}

func (r *Room) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	socket, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logf("live: upgrade: %v", err)
		return
	}
	c := &client{
		socket: socket,
		send:   make(chan []byte, messageBufferSize),
		room:   r,
	}
	select {
	case r.join <- c:
	case <-r.done:
		socket.Close()
		return
	}
	defer func() {
		select {
		case r.leave <- c:
		case <-r.done:
		}
	}()
	go c.write()
	c.read()
}

type client struct {
	socket *websocket.Conn
	send   chan []byte
	room   *Room
}

// read drains the socket until the peer goes away; clients only listen.
func (c *client) read() {
	defer c.socket.Close()
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) write() {
	defer c.socket.Close()
	for msg := range c.send {
		c.socket.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
