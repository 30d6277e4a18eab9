package services

import (
	"context"
	"fmt"
	"log"

	"taskhub-backend/events"
	"taskhub-backend/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"google.golang.org/api/option"
)

// UserDirectory resolves full user records for delivery addressing.
type UserDirectory interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// NotificationService turns domain events into push and email
// deliveries. Every failure is logged and swallowed; notification
// delivery never owes anything to the operation that caused it.
type NotificationService struct {
	users          UserDirectory
	fcm            *messaging.Client
	sendGridAPIKey string
	fromEmail      string
	appName        string
}

type NotificationConfig struct {
	SendGridAPIKey   string
	SendGridFrom     string
	FirebaseCredPath string
	AppName          string
}

func NewNotificationService(users UserDirectory, cfg NotificationConfig) *NotificationService {
	ns := &NotificationService{
		users:          users,
		sendGridAPIKey: cfg.SendGridAPIKey,
		fromEmail:      cfg.SendGridFrom,
		appName:        cfg.AppName,
	}

	app, err := firebase.NewApp(context.Background(), nil, option.WithCredentialsFile(cfg.FirebaseCredPath))
	if err != nil {
		log.Println("⚠️  Firebase not configured, running without push:", err)
		return ns
	}
	client, err := app.Messaging(context.Background())
	if err != nil {
		log.Println("⚠️  Firebase messaging unavailable, running without push:", err)
		return ns
	}
	ns.fcm = client
	return ns
}

// Handle implements events.Sink.
func (ns *NotificationService) Handle(ctx context.Context, event events.Event) {
	actorName := ns.username(ctx, event.ActorID)

	switch event.Type {
	case events.FriendRequestSent:
		ns.notify(ctx, event.SubjectID,
			"New friend request",
			fmt.Sprintf("%s sent you a friend request", actorName),
			map[string]string{"type": string(event.Type)})
	case events.FriendRequestAccepted:
		ns.notify(ctx, event.SubjectID,
			"Friend request accepted",
			fmt.Sprintf("%s accepted your friend request", actorName),
			map[string]string{"type": string(event.Type)})
	case events.FriendRemoved:
		// Silent removal; no notification to the removed friend.
	case events.InvitationCreated:
		// Delivery to unregistered invitees happens via the invite URL.
	case events.InvitationAccepted:
		ns.notify(ctx, event.SubjectID,
			"Invitation accepted",
			fmt.Sprintf("%s accepted your invitation", actorName),
			map[string]string{"type": string(event.Type)})
	case events.MemberAdded:
		ns.notify(ctx, event.SubjectID,
			"Added to a group",
			fmt.Sprintf("%s added you to a group", actorName),
			map[string]string{"type": string(event.Type), "group_id": groupAttr(event)})
	case events.MemberRemoved:
		ns.notify(ctx, event.SubjectID,
			"Removed from a group",
			fmt.Sprintf("%s removed you from a group", actorName),
			map[string]string{"type": string(event.Type), "group_id": groupAttr(event)})
	case events.MemberRoleChanged:
		ns.notify(ctx, event.SubjectID,
			"Your role changed",
			fmt.Sprintf("%s changed your group role to %s", actorName, event.Attributes["role"]),
			map[string]string{"type": string(event.Type), "group_id": groupAttr(event)})
	}
}

func groupAttr(event events.Event) string {
	if event.GroupID == nil {
		return ""
	}
	return event.GroupID.String()
}

func (ns *NotificationService) username(ctx context.Context, userID uuid.UUID) string {
	if userID == uuid.Nil {
		return "Someone"
	}
	user, err := ns.users.GetUserByID(ctx, userID)
	if err != nil || user == nil {
		return "Someone"
	}
	return user.Username
}

func (ns *NotificationService) notify(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) {
	if userID == uuid.Nil {
		return
	}
	user, err := ns.users.GetUserByID(ctx, userID)
	if err != nil || user == nil {
		return
	}

	ns.sendPush(ctx, user.FCMToken, title, body, data)
	ns.sendEmail(user.Email, user.Username, title, body)
}

func (ns *NotificationService) sendPush(ctx context.Context, fcmToken, title, body string, data map[string]string) {
	if ns.fcm == nil || fcmToken == "" {
		return
	}

	msg := &messaging.Message{
		Token: fcmToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := ns.fcm.Send(ctx, msg); err != nil {
		log.Printf("⚠️  FCM send error: %v", err)
		return
	}
	log.Printf("✅ Push notification sent: %s", title)
}

func (ns *NotificationService) sendEmail(toEmail, toName, subject, body string) {
	if ns.sendGridAPIKey == "" {
		log.Printf("⚠️  SendGrid API key not set, skipping email to %s", toEmail)
		return
	}

	from := mail.NewEmail(ns.appName, ns.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	html := fmt.Sprintf("<p>Hi %s,</p><p>%s</p><p>— %s</p>", toName, body, ns.appName)
	message := mail.NewSingleEmail(from, subject, to, body, html)

	client := sendgrid.NewSendClient(ns.sendGridAPIKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Printf("❌ Email send error: %v", err)
		return
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Printf("✅ Email sent to %s", toEmail)
	} else {
		log.Printf("⚠️  SendGrid returned status: %d", resp.StatusCode)
	}
}
