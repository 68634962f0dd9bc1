package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/feetech-drivers/servobus/feetech"
)

// feetech-bridge polls a servo bus and relays telemetry to any number of
// connected WebSocket clients as JSON frames, for browser-side dashboards
// that can't speak the TTL protocol directly.

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type telemetryFrame struct {
	Timestamp time.Time          `json:"timestamp"`
	Positions feetech.PositionMap `json:"positions,omitempty"`
	Loads     feetech.PositionMap `json:"loads,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// hub fans one telemetry stream out to every connected client.
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan telemetryFrame
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]chan telemetryFrame)}
}

func (h *hub) add(conn *websocket.Conn) chan telemetryFrame {
	ch := make(chan telemetryFrame, 8)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(frame telemetryFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- frame:
		default:
			// client too slow, drop the frame rather than block the poller
		}
	}
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch := h.add(conn)
	defer h.remove(conn)

	for frame := range ch {
		data, err := json.Marshal(frame)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func pollLoop(ctx context.Context, group *feetech.ServoGroup, interval time.Duration, h *hub) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		reqCtx, cancel := context.WithTimeout(ctx, interval)
		positions, err := group.Positions(reqCtx)
		if err != nil {
			h.broadcast(telemetryFrame{Timestamp: time.Now(), Error: err.Error()})
			cancel()
			continue
		}
		loads, err := group.ReadRegister(reqCtx, "present_load", feetech.Converted)
		cancel()
		if err != nil {
			h.broadcast(telemetryFrame{Timestamp: time.Now(), Positions: positions, Error: err.Error()})
			continue
		}
		h.broadcast(telemetryFrame{
			Timestamp: time.Now(),
			Positions: positions,
			Loads:     feetech.PositionMap(loads),
		})
	}
}

func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func main() {
	var (
		port     = flag.String("port", "", "serial port device")
		baud     = flag.Int("baud", 1_000_000, "baud rate")
		ids      = flag.String("ids", "1", "comma-separated servo IDs to relay")
		listen   = flag.String("listen", ":8642", "HTTP listen address")
		hz       = flag.Int("hz", 20, "poll frequency")
	)
	flag.Parse()

	if *port == "" {
		log.Fatal("missing -port")
	}

	idList, err := parseIDs(*ids)
	if err != nil {
		log.Fatalf("invalid -ids: %v", err)
	}

	bus, err := feetech.NewBus(feetech.BusConfig{Port: *port, BaudRate: *baud})
	if err != nil {
		log.Fatalf("failed to open bus: %v", err)
	}
	defer bus.Close()

	group := feetech.NewServoGroupByIDs(bus, idList)

	h := newHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go pollLoop(ctx, group, time.Second/time.Duration(*hz), h)

	http.HandleFunc("/telemetry", h.serveWS)
	log.Printf("feetech-bridge listening on %s, relaying servos %v from %s", *listen, idList, *port)
	if err := http.ListenAndServe(*listen, nil); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
