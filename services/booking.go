package services

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"github.com/louayabidi/projetstage-devops/models"
)

// boatLocks serializes every read-check-write sequence that touches a
// boat's bookings. Offers are advisory, so the accept path must re-run
// the overlap check and commit the transition while holding the boat's
// lock; two competing accepts on the same boat cannot interleave.
type boatLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newBoatLocks() *boatLocks {
	return &boatLocks{locks: make(map[uint]*sync.Mutex)}
}

func (b *boatLocks) lock(boatID uint) *sync.Mutex {
	b.mu.Lock()
	l, ok := b.locks[boatID]
	if !ok {
		l = &sync.Mutex{}
		b.locks[boatID] = l
	}
	b.mu.Unlock()
	l.Lock()
	return l
}

// CreateBookingInput is the validated payload for a new booking request.
type CreateBookingInput struct {
	BoatID          uint
	NumberOfPersons int
	HasKids         bool
	PaymentMethod   string
	DepartureLat    float64
	DepartureLng    float64
	Destination     string
	NumberOfCabins  int
	StartDate       time.Time
	EndDate         time.Time
}

// Booking owns the booking lifecycle: it is the only writer of
// Booking.Status and the only component allowed to read-then-write the
// overlap-exclusivity invariant.
type Booking struct {
	bookings BookingStore
	boats    BoatStore
	messages MessageStore
	matching *Matching
	notifier *Notifier
	locks    *boatLocks
}

func NewBooking(bookings BookingStore, boats BoatStore, messages MessageStore, matching *Matching, notifier *Notifier) *Booking {
	return &Booking{
		bookings: bookings,
		boats:    boats,
		messages: messages,
		matching: matching,
		notifier: notifier,
		locks:    newBoatLocks(),
	}
}

// Create validates the request, persists the booking as pending, fans
// the request out to owners near the departure point, and notifies the
// boat's owner. Creation never conflicts: a pending booking does not
// lock the vessel, so overlapping requests are allowed to pile up and
// the first successful accept wins.
func (s *Booking) Create(passengerID uint, in CreateBookingInput) (*models.Booking, error) {
	if !in.StartDate.Before(in.EndDate) {
		return nil, NewValidationError("startDate must be before endDate")
	}
	if in.StartDate.Before(time.Now()) {
		return nil, NewValidationError("startDate must be in the future")
	}

	boat, err := s.boats.Get(in.BoatID)
	if err != nil {
		return nil, NewNotFoundError("Boat not found")
	}

	booking := &models.Booking{
		PassengerID:     passengerID,
		BoatOwnerID:     boat.OwnerID,
		BoatID:          boat.ID,
		Status:          models.BookingStatusPending,
		NumberOfPersons: in.NumberOfPersons,
		HasKids:         in.HasKids,
		PaymentMethod:   in.PaymentMethod,
		DepartureLat:    in.DepartureLat,
		DepartureLng:    in.DepartureLng,
		Destination:     in.Destination,
		NumberOfCabins:  in.NumberOfCabins,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
	}

	lock := s.locks.lock(boat.ID)
	err = s.bookings.Create(booking)
	lock.Unlock()
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.fanOut(booking, passengerID)

	if err := s.notifier.Dispatch(models.NotificationNewBooking, passengerID, boat.OwnerID, &booking.ID,
		fmt.Sprintf("New booking request for %s from %s", boat.Name, booking.Destination)); err != nil {
		log.Printf("Failed to notify owner %d about booking %d: %v", boat.OwnerID, booking.ID, err)
	}

	return booking, nil
}

// fanOut records request visibility for owners near the departure point
// and pings them. Zero candidates is fine; owners can still discover the
// request by browsing.
func (s *Booking) fanOut(booking *models.Booking, passengerID uint) {
	candidates, err := s.matching.FindCandidateOwners(booking.DepartureLat, booking.DepartureLng, 0)
	if err != nil {
		log.Printf("Owner matching failed for booking %d: %v", booking.ID, err)
		return
	}
	if len(candidates) == 0 {
		return
	}

	requests := make([]models.BookingRequest, 0, len(candidates))
	for _, c := range candidates {
		requests = append(requests, models.BookingRequest{
			BookingID: booking.ID,
			OwnerID:   c.OwnerID,
			Distance:  c.Distance,
		})
	}
	if err := s.bookings.CreateRequests(requests); err != nil {
		log.Printf("Failed to record booking requests for booking %d: %v", booking.ID, err)
		return
	}

	for _, c := range candidates {
		if c.OwnerID == booking.BoatOwnerID {
			continue // already notified directly
		}
		if err := s.notifier.Dispatch(models.NotificationNewBooking, passengerID, c.OwnerID, &booking.ID,
			fmt.Sprintf("New booking request near you, heading to %s", booking.Destination)); err != nil {
			log.Printf("Failed to notify candidate owner %d: %v", c.OwnerID, err)
		}
	}
}

// MakeOffer transitions pending -> offered. Only the boat's owner may
// offer, the price must be a finite number > 0, and the window must not
// collide with an already confirmed booking on the boat.
func (s *Booking) MakeOffer(ownerID, bookingID uint, price float64, message string) (*models.Booking, error) {
	if price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return nil, NewValidationError("price must be a finite number greater than zero")
	}

	booking, err := s.bookings.Get(bookingID)
	if err != nil {
		return nil, NewNotFoundError("Booking not found")
	}

	lock := s.locks.lock(booking.BoatID)
	defer lock.Unlock()

	// Re-read under the lock; a competing transition may have landed.
	booking, err = s.bookings.Get(bookingID)
	if err != nil {
		return nil, NewNotFoundError("Booking not found")
	}

	if booking.BoatOwnerID != ownerID {
		return nil, NewUnauthorizedError("Only the boat owner can make an offer")
	}
	if slices.Contains(models.BookingTerminalStatuses, booking.Status) {
		return nil, NewInvalidStateError("Booking is already closed")
	}
	if booking.Status != models.BookingStatusPending {
		return nil, NewInvalidStateError("Booking is not pending")
	}

	overlap, err := s.bookings.ConfirmedOverlapExists(booking.BoatID, booking.StartDate, booking.EndDate, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("overlap check: %w", err)
	}
	if overlap {
		return nil, NewConflictError("Boat is already booked for an overlapping window")
	}

	booking.Status = models.BookingStatusOffered
	booking.OfferPrice = &price
	booking.OfferMessage = message
	if err := s.bookings.Update(booking); err != nil {
		return nil, fmt.Errorf("save offer: %w", err)
	}

	s.appendOfferMessage(booking, ownerID, price, message)

	if err := s.notifier.Dispatch(models.NotificationBookingOffer, ownerID, booking.PassengerID, &booking.ID,
		fmt.Sprintf("You received an offer of %.2f for your trip to %s", price, booking.Destination)); err != nil {
		log.Printf("Failed to notify passenger %d about offer on booking %d: %v", booking.PassengerID, booking.ID, err)
	}

	return booking, nil
}

// appendOfferMessage mirrors the offer into the booking thread so the
// negotiation history reads in order.
func (s *Booking) appendOfferMessage(booking *models.Booking, ownerID uint, price float64, message string) {
	content := message
	if content == "" {
		content = fmt.Sprintf("Offer: %.2f", price)
	}
	offerMsg := &models.Message{
		BookingID:  booking.ID,
		SenderID:   ownerID,
		Content:    content,
		IsOffer:    true,
		OfferPrice: &price,
	}
	if err := s.messages.Create(offerMsg); err != nil {
		log.Printf("Failed to append offer message for booking %d: %v", booking.ID, err)
	}
}

// AcceptOffer transitions offered -> confirmed. The overlap check is
// re-run against the boat's other bookings inside the boat lock: a
// competing negotiation may have confirmed the same window since the
// offer was made. On conflict the booking stays offered and the caller
// gets a conflict error.
func (s *Booking) AcceptOffer(passengerID, bookingID uint) (*models.Booking, error) {
	booking, err := s.bookings.Get(bookingID)
	if err != nil {
		return nil, NewNotFoundError("Booking not found")
	}

	lock := s.locks.lock(booking.BoatID)
	defer lock.Unlock()

	booking, err = s.bookings.Get(bookingID)
	if err != nil {
		return nil, NewNotFoundError("Booking not found")
	}

	if booking.PassengerID != passengerID {
		return nil, NewUnauthorizedError("Only the passenger can accept the offer")
	}
	if slices.Contains(models.BookingTerminalStatuses, booking.Status) {
		return nil, NewInvalidStateError("Booking is already closed")
	}
	if booking.Status != models.BookingStatusOffered {
		return nil, NewInvalidStateError("Booking has no open offer")
	}

	overlap, err := s.bookings.ConfirmedOverlapExists(booking.BoatID, booking.StartDate, booking.EndDate, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("overlap check: %w", err)
	}
	if overlap {
		// Leave the booking offered; the passenger can reject or retry.
		return nil, NewConflictError("Offer no longer valid: the boat was booked for an overlapping window")
	}

	booking.Status = models.BookingStatusConfirmed
	if err := s.bookings.Update(booking); err != nil {
		return nil, fmt.Errorf("confirm booking: %w", err)
	}

	if err := s.notifier.Dispatch(models.NotificationBookingConfirmed, passengerID, booking.BoatOwnerID, &booking.ID,
		fmt.Sprintf("Your offer for the trip to %s was accepted", booking.Destination)); err != nil {
		log.Printf("Failed to notify owner %d about confirmation of booking %d: %v", booking.BoatOwnerID, booking.ID, err)
	}

	return booking, nil
}

// RejectOffer transitions offered -> canceled.
func (s *Booking) RejectOffer(passengerID, bookingID uint) (*models.Booking, error) {
	booking, err := s.bookings.Get(bookingID)
	if err != nil {
		return nil, NewNotFoundError("Booking not found")
	}

	lock := s.locks.lock(booking.BoatID)
	defer lock.Unlock()

	booking, err = s.bookings.Get(bookingID)
	if err != nil {
		return nil, NewNotFoundError("Booking not found")
	}

	if booking.PassengerID != passengerID {
		return nil, NewUnauthorizedError("Only the passenger can reject the offer")
	}
	if slices.Contains(models.BookingTerminalStatuses, booking.Status) {
		return nil, NewInvalidStateError("Booking is already closed")
	}
	if booking.Status != models.BookingStatusOffered {
		return nil, NewInvalidStateError("Booking has no open offer")
	}

	booking.Status = models.BookingStatusCanceled
	if err := s.bookings.Update(booking); err != nil {
		return nil, fmt.Errorf("reject offer: %w", err)
	}

	if err := s.notifier.Dispatch(models.NotificationBookingCanceled, passengerID, booking.BoatOwnerID, &booking.ID,
		fmt.Sprintf("Your offer for the trip to %s was declined", booking.Destination)); err != nil {
		log.Printf("Failed to notify owner %d about rejection of booking %d: %v", booking.BoatOwnerID, booking.ID, err)
	}

	return booking, nil
}

// Cancel closes a booking from pending, offered or confirmed. Either
// party may cancel; canceling a confirmed booking is the exceptional
// path.
func (s *Booking) Cancel(callerID, bookingID uint) (*models.Booking, error) {
	booking, err := s.bookings.Get(bookingID)
	if err != nil {
		return nil, NewNotFoundError("Booking not found")
	}

	lock := s.locks.lock(booking.BoatID)
	defer lock.Unlock()

	booking, err = s.bookings.Get(bookingID)
	if err != nil {
		return nil, NewNotFoundError("Booking not found")
	}

	if callerID != booking.PassengerID && callerID != booking.BoatOwnerID {
		return nil, NewUnauthorizedError("Only a booking party can cancel it")
	}
	if slices.Contains(models.BookingTerminalStatuses, booking.Status) {
		return nil, NewInvalidStateError("Booking is already closed")
	}

	booking.Status = models.BookingStatusCanceled
	if err := s.bookings.Update(booking); err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	recipient := booking.PassengerID
	if callerID == booking.PassengerID {
		recipient = booking.BoatOwnerID
	}
	if err := s.notifier.Dispatch(models.NotificationBookingCanceled, callerID, recipient, &booking.ID,
		fmt.Sprintf("The booking for the trip to %s was canceled", booking.Destination)); err != nil {
		log.Printf("Failed to notify user %d about cancellation of booking %d: %v", recipient, booking.ID, err)
	}

	return booking, nil
}

// Complete transitions confirmed -> completed once the trip is done.
func (s *Booking) Complete(callerID, bookingID uint) (*models.Booking, error) {
	booking, err := s.bookings.Get(bookingID)
	if err != nil {
		return nil, NewNotFoundError("Booking not found")
	}

	lock := s.locks.lock(booking.BoatID)
	defer lock.Unlock()

	booking, err = s.bookings.Get(bookingID)
	if err != nil {
		return nil, NewNotFoundError("Booking not found")
	}

	if callerID != booking.PassengerID && callerID != booking.BoatOwnerID {
		return nil, NewUnauthorizedError("Only a booking party can complete it")
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, NewInvalidStateError("Only a confirmed booking can be completed")
	}

	booking.Status = models.BookingStatusCompleted
	if err := s.bookings.Update(booking); err != nil {
		return nil, fmt.Errorf("complete booking: %w", err)
	}

	return booking, nil
}

// Get returns a booking to one of its parties.
func (s *Booking) Get(callerID, bookingID uint) (*models.Booking, error) {
	booking, err := s.bookings.Get(bookingID)
	if err != nil {
		return nil, NewNotFoundError("Booking not found")
	}
	if callerID != booking.PassengerID && callerID != booking.BoatOwnerID {
		return nil, NewUnauthorizedError("You are not a party to this booking")
	}
	return booking, nil
}

// ListForOwner merges bookings on the owner's boat with pending
// requests fanned out to the owner.
func (s *Booking) ListForOwner(ownerID uint) ([]models.Booking, error) {
	own, err := s.bookings.ListByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owner bookings: %w", err)
	}
	requested, err := s.bookings.ListRequestedBookings(ownerID)
	if err != nil {
		return nil, fmt.Errorf("list requested bookings: %w", err)
	}

	var result []models.Booking
	var seen []uint
	for _, b := range append(own, requested...) {
		if slices.Contains(seen, b.ID) {
			continue
		}
		seen = append(seen, b.ID)
		result = append(result, b)
	}
	return result, nil
}

// ListForPassenger returns the passenger's bookings.
func (s *Booking) ListForPassenger(passengerID uint) ([]models.Booking, error) {
	return s.bookings.ListByPassenger(passengerID)
}

// UpdatePassengerLocation records the passenger's position during an
// active (confirmed) trip. Last write wins. The status check must hold
// at write time: the booking is re-read under the boat lock so a
// concurrent cancel or complete is never overwritten with a stale copy.
func (s *Booking) UpdatePassengerLocation(passengerID, bookingID uint, lat, lng float64) (*models.Booking, error) {
	booking, err := s.bookings.Get(bookingID)
	if err != nil {
		return nil, NewNotFoundError("Booking not found")
	}

	lock := s.locks.lock(booking.BoatID)
	defer lock.Unlock()

	booking, err = s.bookings.Get(bookingID)
	if err != nil {
		return nil, NewNotFoundError("Booking not found")
	}

	if booking.PassengerID != passengerID {
		return nil, NewUnauthorizedError("Only the passenger can share their position")
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, NewInvalidStateError("Booking is not active")
	}

	booking.CurrentLat = &lat
	booking.CurrentLng = &lng
	if err := s.bookings.Update(booking); err != nil {
		return nil, fmt.Errorf("update passenger location: %w", err)
	}
	return booking, nil
}

// PostMessage appends to the booking thread. Only the two parties may
// write; the other party gets a new_message notification.
func (s *Booking) PostMessage(senderID, bookingID uint, content string) (*models.Message, error) {
	if content == "" {
		return nil, NewValidationError("content must not be empty")
	}

	booking, err := s.bookings.Get(bookingID)
	if err != nil {
		return nil, NewNotFoundError("Booking not found")
	}
	if senderID != booking.PassengerID && senderID != booking.BoatOwnerID {
		return nil, NewUnauthorizedError("You are not a party to this booking")
	}

	message := &models.Message{
		BookingID: bookingID,
		SenderID:  senderID,
		Content:   content,
	}
	if err := s.messages.Create(message); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	recipient := booking.PassengerID
	if senderID == booking.PassengerID {
		recipient = booking.BoatOwnerID
	}
	if err := s.notifier.Dispatch(models.NotificationNewMessage, senderID, recipient, &booking.ID, content); err != nil {
		log.Printf("Failed to notify user %d about message on booking %d: %v", recipient, booking.ID, err)
	}

	return message, nil
}

// ListMessages returns the booking thread in chronological order to one
// of its parties.
func (s *Booking) ListMessages(requesterID, bookingID uint) ([]models.Message, error) {
	booking, err := s.bookings.Get(bookingID)
	if err != nil {
		return nil, NewNotFoundError("Booking not found")
	}
	if requesterID != booking.PassengerID && requesterID != booking.BoatOwnerID {
		return nil, NewUnauthorizedError("You are not a party to this booking")
	}
	return s.messages.ListByBooking(bookingID)
}
