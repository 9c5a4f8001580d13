package sink

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/live-transcriber/internal/transcript"
)

func lineEvent(typ transcript.EventType, index int, text string) transcript.Event {
	return transcript.Event{Type: typ, Line: &transcript.Line{Index: index, Text: text}}
}

func TestConsoleSink_Plain(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleSink(&buf, false)

	c.HandleEvent(lineEvent(transcript.EventOpened, 0, "hello"))
	c.HandleEvent(lineEvent(transcript.EventFinalized, 0, "hello world"))
	c.HandleEvent(transcript.Event{Type: transcript.EventTranslated, Line: &transcript.Line{Translation: "hallo Welt"}})
	c.HandleEvent(transcript.Event{Type: transcript.EventBuffer, Buffer: "rolling words"})

	expected := "... hello\n[0] hello world\n    > hallo Welt\nrolling words\n"
	if buf.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buf.String())
	}
}

func TestConsoleSink_Redraw(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleSink(&buf, true)

	c.HandleEvent(lineEvent(transcript.EventOpened, 0, "hel"))
	c.HandleEvent(lineEvent(transcript.EventUpdated, 0, "hello"))
	c.HandleEvent(lineEvent(transcript.EventFinalized, 0, "hello"))

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Errorf("Expected only the finalized line to end with a newline, got %q", out)
	}
	if !strings.HasSuffix(out, "\r\033[Khello\n") {
		t.Errorf("Unexpected output %q", out)
	}
}

func dialHub(t *testing.T, h *Hub) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(h.Handler())
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		server.Close()
		t.Fatalf("Failed to dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if h.Clients() != n {
		t.Fatalf("Expected %d clients, got %d", n, h.Clients())
	}
}

func TestHub_SnapshotThenEvents(t *testing.T) {
	snap := transcript.Snapshot{Lines: []transcript.Line{{Index: 0, Text: "earlier", Final: true}}}
	h := NewHub(func() transcript.Snapshot { return snap }, zerolog.Nop())

	conn, cleanup := dialHub(t, h)
	defer cleanup()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first Message
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.Type != "snapshot" || first.Snapshot == nil || len(first.Snapshot.Lines) != 1 {
		t.Fatalf("Expected snapshot first, got %+v", first)
	}

	waitForClients(t, h, 1)
	h.HandleEvent(lineEvent(transcript.EventOpened, 1, "now"))

	var second Message
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatal(err)
	}
	if second.Type != "event" || second.Event.Type != transcript.EventOpened || second.Event.Line.Text != "now" {
		t.Errorf("Unexpected event message %+v", second)
	}
}

func TestHub_EventDuringSnapshotIsDelivered(t *testing.T) {
	var h *Hub
	h = NewHub(func() transcript.Snapshot {
		started := make(chan struct{})
		go func() {
			close(started)
			h.HandleEvent(lineEvent(transcript.EventFinalized, 0, "mid-connect"))
		}()
		<-started
		time.Sleep(20 * time.Millisecond)
		return transcript.Snapshot{}
	}, zerolog.Nop())

	conn, cleanup := dialHub(t, h)
	defer cleanup()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first, second Message
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.Type != "snapshot" {
		t.Fatalf("Expected snapshot first, got %+v", first)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("Expected the event raised while connecting: %v", err)
	}
	if second.Type != "event" || second.Event.Line.Text != "mid-connect" {
		t.Errorf("Unexpected event message %+v", second)
	}
}

func TestHub_BroadcastAudio(t *testing.T) {
	h := NewHub(nil, zerolog.Nop())
	conn, cleanup := dialHub(t, h)
	defer cleanup()
	waitForClients(t, h, 1)

	h.BroadcastAudio(nil)
	h.BroadcastAudio([]byte("RIFF"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if kind != websocket.BinaryMessage || string(data) != "RIFF" {
		t.Errorf("Expected binary RIFF payload, got kind=%d data=%q", kind, data)
	}
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	h := NewHub(nil, zerolog.Nop())
	conn, cleanup := dialHub(t, h)
	defer cleanup()
	waitForClients(t, h, 1)

	conn.Close()
	waitForClients(t, h, 0)
}

func TestHub_CloseDisconnectsViewers(t *testing.T) {
	h := NewHub(nil, zerolog.Nop())
	conn, cleanup := dialHub(t, h)
	defer cleanup()
	waitForClients(t, h, 1)

	h.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("Expected normal closure, got %v", err)
	}
}

func TestMessageEncoding(t *testing.T) {
	ev := lineEvent(transcript.EventFinalized, 2, "done")
	data, err := json.Marshal(Message{Type: "event", Event: &ev})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"type":"finalized"`) || strings.Contains(string(data), "snapshot") {
		t.Errorf("Unexpected encoding %s", data)
	}
}
