package websocket

import (
	"testing"
	"time"
)

// newTestClient builds a Client bypassing ServeClient's real socket pumps,
// the same way the teacher's hub tests register bare connection structs
// directly rather than driving a live websocket.Conn.
func newTestClient(id, channelID string) *Client {
	return &Client{
		send:      make(chan []byte, 256),
		id:        id,
		channelID: channelID,
	}
}

func waitForClientCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if h.ClientCount() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("client count never reached %d, still %d", want, h.ClientCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHub_RegisterIncrementsClientCount(t *testing.T) {
	h := NewHub()
	go h.Run()

	h.register <- newTestClient("c1", "chan-1")
	waitForClientCount(t, h, 1)
}

func TestHub_UnregisterRemovesClientAndClosesSend(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := newTestClient("c1", "chan-1")
	h.register <- c
	waitForClientCount(t, h, 1)

	h.unregister <- c
	waitForClientCount(t, h, 0)

	_, ok := <-c.send
	if ok {
		t.Fatal("expected send channel to be closed after unregister")
	}
}

func TestHub_BroadcastToChannelOnlyReachesMatchingClients(t *testing.T) {
	h := NewHub()
	go h.Run()

	inChannel := newTestClient("c1", "chan-1")
	otherChannel := newTestClient("c2", "chan-2")
	h.register <- inChannel
	h.register <- otherChannel
	waitForClientCount(t, h, 2)

	h.BroadcastToChannel("chan-1", []byte("hello"))

	select {
	case msg := <-inChannel.send:
		if string(msg) != "hello" {
			t.Fatalf("got %q, want %q", msg, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message on the subscribed channel's client")
	}

	select {
	case msg := <-otherChannel.send:
		t.Fatalf("client on a different channel must not receive the broadcast, got %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_BroadcastToChannelReachesEveryClientOnThatChannel(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := newTestClient("a", "room")
	b := newTestClient("b", "room")
	h.register <- a
	h.register <- b
	waitForClientCount(t, h, 2)

	h.BroadcastToChannel("room", []byte("hi all"))

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if string(msg) != "hi all" {
				t.Fatalf("got %q, want %q", msg, "hi all")
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("client %s never received the broadcast", c.id)
		}
	}
}

func TestHub_SlowClientIsEvictedRatherThanBlockingBroadcast(t *testing.T) {
	h := NewHub()
	go h.Run()

	slow := newTestClient("slow", "room")
	h.register <- slow
	waitForClientCount(t, h, 1)

	for i := 0; i < cap(slow.send); i++ {
		slow.send <- []byte("filler")
	}

	h.BroadcastToChannel("room", []byte("overflow"))

	waitForClientCount(t, h, 0)
}
