package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/louayabidi/projetstage-devops/models"
	"github.com/louayabidi/projetstage-devops/utils"
)

// Notifier turns booking transitions and chat events into Notification
// rows plus best-effort push delivery. The row insert happens after the
// triggering state change is durable; push failures are logged and never
// roll anything back.
type Notifier struct {
	store NotificationStore
	users UserStore
}

func NewNotifier(store NotificationStore, users UserStore) *Notifier {
	return &Notifier{store: store, users: users}
}

var notificationTitles = map[string]string{
	models.NotificationNewBooking:       "New Booking Request",
	models.NotificationBookingOffer:     "New Offer Received",
	models.NotificationBookingAccepted:  "Offer Accepted",
	models.NotificationBookingConfirmed: "Booking Confirmed",
	models.NotificationBookingCanceled:  "Booking Canceled",
	models.NotificationNewMessage:       "New Message",
}

// Dispatch persists the notification record and fires the push in the
// background. The returned error covers the record insert only.
func (n *Notifier) Dispatch(eventType string, senderID, recipientID uint, bookingID *uint, message string) error {
	notification := &models.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		BookingID:   bookingID,
		Type:        eventType,
		Message:     message,
	}

	if err := n.store.Create(notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	go n.push(recipientID, senderID, bookingID, eventType, message)

	return nil
}

func (n *Notifier) push(recipientID, senderID uint, bookingID *uint, eventType, body string) {
	tokens, err := n.userPushTokens(recipientID)
	if err != nil {
		log.Printf("Skipping push for user %d: %v", recipientID, err)
		return
	}

	title, ok := notificationTitles[eventType]
	if !ok {
		title = "Boat Charter"
	}

	data := map[string]string{
		"type":   eventType,
		"userId": strconv.FormatUint(uint64(senderID), 10),
	}
	if bookingID != nil {
		data["bookingId"] = strconv.FormatUint(uint64(*bookingID), 10)
	}

	for _, token := range tokens {
		if err := utils.SendNotification(token, title, body, data); err != nil {
			log.Printf("Failed to send push to token %s: %v", token, err)
		}
	}
}

func (n *Notifier) userPushTokens(userID uint) ([]string, error) {
	user, err := n.users.Get(userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	if user.AllowsNotifications == nil || !*user.AllowsNotifications || user.PushTokens == nil {
		return nil, fmt.Errorf("user has notifications disabled or no tokens")
	}

	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push tokens: %w", err)
	}
	return tokens, nil
}
