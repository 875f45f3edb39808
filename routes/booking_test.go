package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"

	"github.com/louayabidi/projetstage-devops/models"
	"github.com/louayabidi/projetstage-devops/services"
	"github.com/louayabidi/projetstage-devops/utils"
)

type memBoatStore struct {
	mu    sync.Mutex
	boats map[uint]models.Boat
}

func (m *memBoatStore) Get(id uint) (*models.Boat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	boat, ok := m.boats[id]
	if !ok {
		return nil, fmt.Errorf("boat %d not found", id)
	}
	copied := boat
	return &copied, nil
}

func (m *memBoatStore) All() ([]models.Boat, error) { return nil, nil }

func (m *memBoatStore) UpdateLocation(id uint, lat, lng float64, at time.Time) error { return nil }

type memBookingStore struct {
	mu       sync.Mutex
	nextID   uint
	bookings map[uint]models.Booking
}

func (m *memBookingStore) Create(b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = m.nextID
	m.bookings[b.ID] = *b
	return nil
}

func (m *memBookingStore) Get(id uint) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %d not found", id)
	}
	copied := b
	return &copied, nil
}

func (m *memBookingStore) Update(b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = *b
	return nil
}

func (m *memBookingStore) ConfirmedOverlapExists(boatID uint, start, end time.Time, excludeID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == excludeID || b.BoatID != boatID || b.Status != models.BookingStatusConfirmed {
			continue
		}
		if b.StartDate.Before(end) && b.EndDate.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memBookingStore) ListByPassenger(passengerID uint) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.PassengerID == passengerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBookingStore) ListByOwner(ownerID uint) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.BoatOwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBookingStore) ListConfirmedByBoat(boatID uint) ([]models.Booking, error) {
	return nil, nil
}

func (m *memBookingStore) CreateRequests(requests []models.BookingRequest) error { return nil }

func (m *memBookingStore) ListRequestedBookings(ownerID uint) ([]models.Booking, error) {
	return nil, nil
}

type memMessageStore struct{}

func (m *memMessageStore) Create(message *models.Message) error { return nil }

func (m *memMessageStore) ListByBooking(bookingID uint) ([]models.Message, error) { return nil, nil }

type memNotificationStore struct{}

func (m *memNotificationStore) Create(n *models.Notification) error { return nil }

type memUserStore struct{}

func (m *memUserStore) Get(id uint) (*models.User, error) {
	user := &models.User{Role: models.RolePassenger}
	user.ID = id
	return user, nil
}

// buildBookingTestApp wires the booking routes against in-memory stores.
func buildBookingTestApp(t *testing.T) (*iris.Application, *memBoatStore) {
	t.Helper()
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")

	boats := &memBoatStore{boats: make(map[uint]models.Boat)}
	bookings := &memBookingStore{bookings: make(map[uint]models.Booking)}

	geo := services.NewGeoIndex()
	matching := services.NewMatching(geo, boats)
	notifier := services.NewNotifier(&memNotificationStore{}, &memUserStore{})
	booking := services.NewBooking(bookings, boats, &memMessageStore{}, matching, notifier)

	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	party := app.Party("/api/booking", accessTokenVerifierMiddleware)
	{
		party.Post("/", CreateBooking(booking))
		party.Get("/mine", ListMyBookings(booking))
		party.Get("/{id:uint}", GetBooking(booking))
		party.Post("/{id:uint}/offer", utils.OwnerOnlyMiddleware, MakeOffer(booking))
		party.Post("/{id:uint}/accept", AcceptOffer(booking))
		party.Post("/{id:uint}/reject", RejectOffer(booking))
	}

	if err := app.Build(); err != nil {
		t.Fatalf("failed to build app: %v", err)
	}
	return app, boats
}

func signBookingTestToken(id uint, role string) string {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), time.Hour)
	token, _ := signer.Sign(utils.AccessToken{ID: id, Role: role})
	return string(token)
}

func doJSON(app *iris.Application, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func bookingBody(boatID uint) string {
	start := time.Now().Add(48 * time.Hour).Format(time.RFC3339)
	end := time.Now().Add(72 * time.Hour).Format(time.RFC3339)
	return fmt.Sprintf(`{"boatID":%d,"numberOfPersons":3,"paymentMethod":"card","destination":"Kelibia","startDate":%q,"endDate":%q}`, boatID, start, end)
}

func TestBookingRoutesRequireToken(t *testing.T) {
	app, _ := buildBookingTestApp(t)

	resp := doJSON(app, http.MethodPost, "/api/booking", "", bookingBody(1))
	if resp.Code == http.StatusOK || resp.Code == http.StatusCreated {
		t.Fatalf("expected auth failure without token, got %d", resp.Code)
	}
}

func TestCreateBookingRoute(t *testing.T) {
	app, boats := buildBookingTestApp(t)
	boat := models.Boat{OwnerID: 10, Name: "Blue Pearl"}
	boat.ID = 1
	boats.boats[1] = boat

	passenger := signBookingTestToken(2, "passenger")

	// Unknown boat -> 404
	resp := doJSON(app, http.MethodPost, "/api/booking", passenger, bookingBody(99))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown boat, got %d: %s", resp.Code, resp.Body.String())
	}

	// Bad window -> 400
	badBody := fmt.Sprintf(`{"boatID":1,"numberOfPersons":3,"paymentMethod":"card","destination":"Kelibia","startDate":%q,"endDate":%q}`,
		time.Now().Add(72*time.Hour).Format(time.RFC3339), time.Now().Add(48*time.Hour).Format(time.RFC3339))
	resp = doJSON(app, http.MethodPost, "/api/booking", passenger, badBody)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted window, got %d: %s", resp.Code, resp.Body.String())
	}

	// Valid -> 201 with a pending booking
	resp = doJSON(app, http.MethodPost, "/api/booking", passenger, bookingBody(1))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created models.Booking
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if created.Status != models.BookingStatusPending {
		t.Fatalf("expected pending status, got %q", created.Status)
	}
}

func TestBookingAccessControlRoute(t *testing.T) {
	app, boats := buildBookingTestApp(t)
	boat := models.Boat{OwnerID: 10, Name: "Blue Pearl"}
	boat.ID = 1
	boats.boats[1] = boat

	passenger := signBookingTestToken(2, "passenger")
	resp := doJSON(app, http.MethodPost, "/api/booking", passenger, bookingBody(1))
	if resp.Code != http.StatusCreated {
		t.Fatalf("setup create failed: %d", resp.Code)
	}

	// A stranger cannot read the booking.
	stranger := signBookingTestToken(3, "passenger")
	resp = doJSON(app, http.MethodGet, "/api/booking/1", stranger, "")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for stranger, got %d", resp.Code)
	}

	// A party can.
	resp = doJSON(app, http.MethodGet, "/api/booking/1", passenger, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for party, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestOfferFlowRoute(t *testing.T) {
	app, boats := buildBookingTestApp(t)
	boat := models.Boat{OwnerID: 10, Name: "Blue Pearl"}
	boat.ID = 1
	boats.boats[1] = boat

	passenger := signBookingTestToken(2, "passenger")
	owner := signBookingTestToken(10, "owner")

	resp := doJSON(app, http.MethodPost, "/api/booking", passenger, bookingBody(1))
	if resp.Code != http.StatusCreated {
		t.Fatalf("setup create failed: %d", resp.Code)
	}

	// Passenger role blocked from offering by the role middleware.
	resp = doJSON(app, http.MethodPost, "/api/booking/1/offer", passenger, `{"price":300}`)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for passenger role, got %d", resp.Code)
	}

	// An owner who does not own this boat gets 403 from the service.
	otherOwner := signBookingTestToken(11, "owner")
	resp = doJSON(app, http.MethodPost, "/api/booking/1/offer", otherOwner, `{"price":300}`)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong owner, got %d: %s", resp.Code, resp.Body.String())
	}

	// The boat owner offers, the passenger accepts.
	resp = doJSON(app, http.MethodPost, "/api/booking/1/offer", owner, `{"price":300,"message":"Skipper included"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for offer, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(app, http.MethodPost, "/api/booking/1/accept", passenger, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for accept, got %d: %s", resp.Code, resp.Body.String())
	}
	var confirmed models.Booking
	if err := json.Unmarshal(resp.Body.Bytes(), &confirmed); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if confirmed.Status != models.BookingStatusConfirmed {
		t.Fatalf("expected confirmed status, got %q", confirmed.Status)
	}

	// Accepting again is an invalid state, not a second confirm.
	resp = doJSON(app, http.MethodPost, "/api/booking/1/accept", passenger, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for double accept, got %d", resp.Code)
	}
}

func TestOfferConflictRoute(t *testing.T) {
	app, boats := buildBookingTestApp(t)
	boat := models.Boat{OwnerID: 10, Name: "Blue Pearl"}
	boat.ID = 1
	boats.boats[1] = boat

	first := signBookingTestToken(2, "passenger")
	second := signBookingTestToken(3, "passenger")
	owner := signBookingTestToken(10, "owner")

	body := bookingBody(1)
	if resp := doJSON(app, http.MethodPost, "/api/booking", first, body); resp.Code != http.StatusCreated {
		t.Fatalf("setup create failed: %d", resp.Code)
	}
	if resp := doJSON(app, http.MethodPost, "/api/booking", second, body); resp.Code != http.StatusCreated {
		t.Fatalf("setup create failed: %d", resp.Code)
	}

	if resp := doJSON(app, http.MethodPost, "/api/booking/1/offer", owner, `{"price":300}`); resp.Code != http.StatusOK {
		t.Fatalf("offer failed: %d", resp.Code)
	}
	if resp := doJSON(app, http.MethodPost, "/api/booking/1/accept", first, ""); resp.Code != http.StatusOK {
		t.Fatalf("accept failed: %d", resp.Code)
	}

	// Offering on the second, overlapping booking now conflicts.
	resp := doJSON(app, http.MethodPost, "/api/booking/2/offer", owner, `{"price":250}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for overlapping offer, got %d: %s", resp.Code, resp.Body.String())
	}
}
