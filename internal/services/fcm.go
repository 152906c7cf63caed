package services

import (
	"context"
	"encoding/base64"
	"fmt"

	"cartrack-backend/internal/database"
	"cartrack-backend/internal/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client *messaging.Client
	logger *zap.Logger
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(ctx context.Context, credentialsFile string, logger *zap.Logger) (*FCMService, error) {
	return newFCMService(ctx, option.WithCredentialsFile(credentialsFile), logger)
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded credentials
// This is useful for cloud deployments where you can't upload files easily
func NewFCMServiceFromBase64(ctx context.Context, credentialsBase64 string, logger *zap.Logger) (*FCMService, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	return newFCMService(ctx, option.WithCredentialsJSON(credentialsJSON), logger)
}

func newFCMService(ctx context.Context, opt option.ClientOption, logger *zap.Logger) (*FCMService, error) {
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client, logger: logger}, nil
}

// SendMulticast sends the same message to multiple tokens and returns the
// tokens FCM reported as no longer registered
func (s *FCMService) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error) {
	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	response, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("error sending multicast message: %w", err)
	}

	var stale []string
	for i, r := range response.Responses {
		if r.Error != nil && messaging.IsUnregistered(r.Error) {
			stale = append(stale, tokens[i])
		}
	}

	s.logger.Info("✅ Multicast sent",
		zap.Int("success", response.SuccessCount),
		zap.Int("failures", response.FailureCount),
	)
	return stale, nil
}

// DeliveryPushNotifier pushes dispatch outcomes to the report owner's devices
type DeliveryPushNotifier struct {
	fcm    *FCMService
	db     *sqlx.DB
	logger *zap.Logger
}

func NewDeliveryPushNotifier(fcm *FCMService, db *sqlx.DB, logger *zap.Logger) *DeliveryPushNotifier {
	return &DeliveryPushNotifier{fcm: fcm, db: db, logger: logger}
}

// NotifyDelivery is best-effort: failures are logged and never affect the report
func (n *DeliveryPushNotifier) NotifyDelivery(ctx context.Context, report *models.Report) {
	tokens, err := database.ListDeviceTokens(ctx, n.db, report.UserID)
	if err != nil {
		n.logger.Warn("⚠️  Could not load device tokens", zap.String("user_id", report.UserID), zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		return
	}

	title, body := deliveryNotificationText(report)
	data := map[string]string{
		"type":      "report_delivery",
		"report_id": report.ID,
		"status":    string(report.EmailDelivery.Status),
	}

	stale, err := n.fcm.SendMulticast(ctx, tokens, title, body, data)
	if err != nil {
		n.logger.Warn("⚠️  Delivery push failed", zap.String("report_id", report.ID), zap.Error(err))
		return
	}
	if err := database.DeleteDeviceTokens(ctx, n.db, stale); err != nil {
		n.logger.Warn("⚠️  Could not drop stale device tokens", zap.Error(err))
	}
}

func deliveryNotificationText(report *models.Report) (string, string) {
	if report.EmailDelivery.Status == models.DeliveryStatusSent {
		return "Report sent", fmt.Sprintf("Your report with %d cars cleaned was emailed.", report.TotalCleaned)
	}
	return "Report delivery failed", report.LastError
}
