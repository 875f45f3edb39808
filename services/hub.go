package services

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/louayabidi/projetstage-devops/models"
)

// TokenVerifier resolves a raw bearer token to a user ID.
type TokenVerifier func(token string) (uint, error)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// hubFrame is the wire envelope for both directions. Inbound fields are
// a union across event types; mandatory fields are checked per event.
type hubFrame struct {
	Event     string   `json:"event"`
	BoatID    uint     `json:"boatId,omitempty"`
	BookingID uint     `json:"bookingId,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Token     string   `json:"token,omitempty"`
	Message   string   `json:"message,omitempty"`

	// Outbound boat metadata on boatLocationUpdate frames.
	Name         string `json:"name,omitempty"`
	BoatType     string `json:"boatType,omitempty"`
	BoatCapacity int    `json:"boatCapacity,omitempty"`
}

// HubClient is one live connection. All writes go through the send
// channel so a slow peer never blocks a broadcast; the write pump owns
// the socket.
type HubClient struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu      sync.Mutex
	mapFeed bool
	userID  uint // 0 until a frame with a valid token arrives
}

// Hub fans boat and passenger position updates out to interested
// connections: the public boat map gets every boat update, the
// counterpart of an active booking gets a targeted copy. The registry
// is explicit and keyed by interest; last known positions survive
// disconnects.
type Hub struct {
	geo      *GeoIndex
	boats    BoatStore
	bookings *Booking
	store    BookingStore
	verify   TokenVerifier

	mu      sync.RWMutex
	clients map[*HubClient]struct{}
	byUser  map[uint]map[*HubClient]struct{}
}

func NewHub(geo *GeoIndex, boats BoatStore, bookings *Booking, store BookingStore, verify TokenVerifier) *Hub {
	return &Hub{
		geo:      geo,
		boats:    boats,
		bookings: bookings,
		store:    store,
		verify:   verify,
		clients:  make(map[*HubClient]struct{}),
		byUser:   make(map[uint]map[*HubClient]struct{}),
	}
}

// Serve upgrades the request and runs the connection's pumps. Every
// connection is subscribed to the public boat map until it says
// otherwise.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}

	client := &HubClient{
		id:      uuid.New().String(),
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		mapFeed: true,
	}
	h.register(client)

	go client.writePump()
	client.readPump()
}

func (h *Hub) register(c *HubClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *HubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	if userID := c.user(); userID != 0 {
		if set, ok := h.byUser[userID]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.byUser, userID)
			}
		}
	}
	h.mu.Unlock()
}

// bind associates the connection with an authenticated user so targeted
// deliveries can find it.
func (h *Hub) bind(c *HubClient, userID uint) {
	prev := c.user()
	if prev == userID {
		return
	}
	h.mu.Lock()
	if prev != 0 {
		if set, ok := h.byUser[prev]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.byUser, prev)
			}
		}
	}
	set, ok := h.byUser[userID]
	if !ok {
		set = make(map[*HubClient]struct{})
		h.byUser[userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	c.setUser(userID)
}

// broadcastMap delivers a frame to every public-map subscriber. Sends
// are non-blocking: a connection whose buffer is full misses the frame,
// which is fine for ephemeral, self-correcting positions.
func (h *Hub) broadcastMap(frame hubFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Println("Failed to encode hub frame:", err)
		return
	}

	h.mu.RLock()
	for client := range h.clients {
		if !client.onMapFeed() {
			continue
		}
		select {
		case client.send <- payload:
		default:
		}
	}
	h.mu.RUnlock()
}

// sendToUser delivers a frame to every connection bound to the user.
func (h *Hub) sendToUser(userID uint, frame hubFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Println("Failed to encode hub frame:", err)
		return
	}

	h.mu.RLock()
	for client := range h.byUser[userID] {
		select {
		case client.send <- payload:
		default:
		}
	}
	h.mu.RUnlock()
}

func (c *HubClient) user() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *HubClient) setUser(userID uint) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
}

func (c *HubClient) onMapFeed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mapFeed
}

func (c *HubClient) setMapFeed(on bool) {
	c.mu.Lock()
	c.mapFeed = on
	c.mu.Unlock()
}

func (c *HubClient) sendError(message string) {
	payload, _ := json.Marshal(hubFrame{Event: "error", Message: message})
	select {
	case c.send <- payload:
	default:
	}
}

func (c *HubClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Println("WebSocket read error:", err)
			}
			return
		}

		var frame hubFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.sendError("Invalid frame")
			continue
		}

		switch frame.Event {
		case "authenticate":
			c.handleAuthenticate(frame)
		case "subscribeMap":
			c.setMapFeed(true)
		case "unsubscribeMap":
			c.setMapFeed(false)
		case "updateBoatLocation":
			c.handleBoatLocation(frame)
		case "updatePassengerLocation":
			c.handlePassengerLocation(frame)
		default:
			c.sendError("Unknown event")
		}
	}
}

func (c *HubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *HubClient) authenticated(token string) (uint, bool) {
	if token == "" {
		if userID := c.user(); userID != 0 {
			return userID, true
		}
		c.sendError("Unauthorized")
		return 0, false
	}
	userID, err := c.hub.verify(token)
	if err != nil {
		c.sendError("Unauthorized")
		return 0, false
	}
	c.hub.bind(c, userID)
	return userID, true
}

func (c *HubClient) handleAuthenticate(frame hubFrame) {
	if _, ok := c.authenticated(frame.Token); ok {
		payload, _ := json.Marshal(hubFrame{Event: "authenticated"})
		select {
		case c.send <- payload:
		default:
		}
	}
}

// handleBoatLocation validates the sender owns the boat, moves it in the
// geo index and the boats table, then fans the derived update out to the
// public map plus the passenger of any confirmed booking on the boat.
func (c *HubClient) handleBoatLocation(frame hubFrame) {
	if frame.BoatID == 0 || frame.Latitude == nil || frame.Longitude == nil {
		c.sendError("boatId, latitude and longitude are required")
		return
	}

	userID, ok := c.authenticated(frame.Token)
	if !ok {
		return
	}

	if err := c.hub.PublishBoatLocation(userID, frame.BoatID, *frame.Latitude, *frame.Longitude); err != nil {
		c.sendError(err.Error())
	}
}

// PublishBoatLocation moves a boat in the geo index and the boats table,
// then fans the derived update out to the public map plus the passenger
// of any confirmed booking on the boat. Shared by the websocket handler
// and the REST location endpoint.
func (h *Hub) PublishBoatLocation(userID, boatID uint, lat, lng float64) error {
	boat, err := h.boats.Get(boatID)
	if err != nil {
		return NewNotFoundError("Boat not found")
	}
	if boat.OwnerID != userID {
		return NewUnauthorizedError("You do not own this boat")
	}

	now := time.Now()
	h.geo.Upsert(boat.ID, lat, lng, now)
	if err := h.boats.UpdateLocation(boat.ID, lat, lng, now); err != nil {
		log.Printf("Failed to persist location for boat %d: %v", boat.ID, err)
		return fmt.Errorf("update boat location: %w", err)
	}

	update := hubFrame{
		Event:        "boatLocationUpdate",
		BoatID:       boat.ID,
		Latitude:     &lat,
		Longitude:    &lng,
		Name:         boat.Name,
		BoatType:     boat.BoatType,
		BoatCapacity: boat.BoatCapacity,
	}
	h.broadcastMap(update)

	// Targeted copy for passengers currently on a confirmed trip with
	// this boat, independent of the public map feed.
	confirmed, err := h.store.ListConfirmedByBoat(boat.ID)
	if err != nil {
		log.Printf("Failed to list confirmed bookings for boat %d: %v", boat.ID, err)
		return nil
	}
	for _, b := range confirmed {
		h.sendToUser(b.PassengerID, update)
	}
	return nil
}

// handlePassengerLocation records the passenger's position on an active
// booking and delivers it to the counterpart owner only.
func (c *HubClient) handlePassengerLocation(frame hubFrame) {
	if frame.BookingID == 0 || frame.Latitude == nil || frame.Longitude == nil {
		c.sendError("bookingId, latitude and longitude are required")
		return
	}

	userID, ok := c.authenticated(frame.Token)
	if !ok {
		return
	}

	booking, err := c.hub.bookings.UpdatePassengerLocation(userID, frame.BookingID, *frame.Latitude, *frame.Longitude)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	c.hub.sendToUser(booking.BoatOwnerID, hubFrame{
		Event:     "passengerLocationUpdate",
		BookingID: booking.ID,
		Latitude:  frame.Latitude,
		Longitude: frame.Longitude,
	})
}

// SeedFromBoats loads persisted boat positions into the geo index at
// startup so radius queries work before any live update arrives.
func SeedFromBoats(geo *GeoIndex, boats []models.Boat) {
	for _, boat := range boats {
		if boat.Lat == 0 && boat.Lng == 0 {
			continue
		}
		at := boat.UpdatedAt
		if boat.LastLocationUpdate != nil {
			at = *boat.LastLocationUpdate
		}
		geo.Upsert(boat.ID, boat.Lat, boat.Lng, at)
	}
}
