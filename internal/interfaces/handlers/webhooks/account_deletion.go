package webhooks

import (
	"encoding/json"
	"time"

	"sellerpilot-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const topicAccountDeletion = "MARKETPLACE_ACCOUNT_DELETION"

// AccountDeletionHandler serves the marketplace account-deletion compliance
// endpoint. The marketplace calls it, so it sits outside the session
// middleware and answers plain JSON, not the dashboard envelope.
type AccountDeletionHandler struct {
	DB *gorm.DB
}

type deletionNotice struct {
	Metadata struct {
		NotificationID string `json:"notificationId"`
		Topic          string `json:"topic"`
	} `json:"metadata"`
	Notification struct {
		Data struct {
			UserID        string `json:"userId"`
			MarketplaceID string `json:"marketplaceId"`
		} `json:"data"`
	} `json:"notification"`
}

// Challenge GET /webhook/marketplace-account-deletion — endpoint validation.
// The marketplace sends challenge_code and expects it echoed back.
func (wh *AccountDeletionHandler) Challenge(c *fiber.Ctx) error {
	code := c.Query("challenge_code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No challenge code provided"})
	}
	log.Info().Str("challenge_code", code).Msg("Marketplace verification challenge received")
	return c.JSON(fiber.Map{"challengeResponse": code})
}

// Notify POST /webhook/marketplace-account-deletion — purge the buyer's sale
// records and append an audit run. Purge and audit commit together.
func (wh *AccountDeletionHandler) Notify(c *fiber.Ctx) error {
	var notice deletionNotice
	if err := json.Unmarshal(c.Body(), &notice); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification body"})
	}

	if notice.Metadata.Topic != topicAccountDeletion {
		log.Warn().Str("topic", notice.Metadata.Topic).Msg("Unknown webhook notification topic")
		return c.JSON(fiber.Map{"status": "unknown_topic"})
	}

	buyerID := notice.Notification.Data.UserID
	var deleted int64
	if buyerID != "" {
		err := wh.DB.Transaction(func(tx *gorm.DB) error {
			res := tx.Where("buyer_id = ?", buyerID).Delete(&models.SoldItem{})
			if res.Error != nil {
				return res.Error
			}
			deleted = res.RowsAffected

			now := time.Now().UTC()
			detail, _ := json.Marshal(map[string]interface{}{
				"buyer_id":       buyerID,
				"marketplace_id": notice.Notification.Data.MarketplaceID,
				"deleted":        deleted,
			})
			return tx.Create(&models.AutomationRun{
				Rule:       models.RuleAccountDeletion,
				Trigger:    models.RunTriggerWebhook,
				Status:     models.RunStatusSuccess,
				Considered: int(deleted),
				ActedOn:    int(deleted),
				Detail:     datatypes.JSON(detail),
				StartedAt:  now,
				FinishedAt: now,
			}).Error
		})
		if err != nil {
			log.Error().Err(err).Str("buyer_id", buyerID).Msg("Account deletion purge failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		log.Warn().Str("buyer_id", buyerID).Int64("deleted", deleted).Msg("Processed account deletion")
	}

	return c.JSON(fiber.Map{
		"status":         "success",
		"notificationId": notice.Metadata.NotificationID,
	})
}
