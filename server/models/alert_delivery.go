package models

import (
	"errors"
	"time"
)

const (
	PENDING_DELIVERY   = "pending"
	SENT_DELIVERY      = "sent"
	DELIVERED_DELIVERY = "delivered"
	FAILED_DELIVERY    = "failed"
)

var ErrUnknownMessageSid = errors.New("no delivery found for message sid")

// AlertDelivery tracks the SMS sent to one contact for an EmergencyAlert.
// Contact name & phone are copied so the record survives the contact being deleted.
type AlertDelivery struct {
	BaseModel
	EmergencyAlertID uint   `json:"emergency_alert_id" gorm:"not null;index"`
	ContactID        uint   `json:"contact_id"`
	ContactName      string `json:"contact_name"`
	PhoneNumber      string `json:"phone_number"`
	Status           string `json:"status" gorm:"not null;default:pending"`
	MessageSid       string `json:"message_sid,omitempty" gorm:"index"`
	Attempts         int    `json:"attempts"`
	LastError        string `json:"last_error,omitempty"`
}

func (delivery *AlertDelivery) MarkAsSent(messageSid string) error {
	delivery.Attempts++
	return delivery.update(map[string]interface{}{
		"status":      SENT_DELIVERY,
		"message_sid": messageSid,
		"attempts":    delivery.Attempts,
		"last_error":  "",
	})
}

func (delivery *AlertDelivery) MarkAsFailed(sendErr error) error {
	delivery.Attempts++
	return delivery.update(map[string]interface{}{
		"status":     FAILED_DELIVERY,
		"attempts":   delivery.Attempts,
		"last_error": sendErr.Error(),
	})
}

func (delivery *AlertDelivery) update(data map[string]interface{}) error {
	data["updated_at"] = time.Now()
	err := db.Model(&AlertDelivery{}).Where("id = ?", delivery.ID).Updates(data).Error
	if err != nil {
		return err
	}

	if status, ok := data["status"].(string); ok {
		delivery.Status = status
	}
	if sid, ok := data["message_sid"].(string); ok {
		delivery.MessageSid = sid
	}
	if lastError, ok := data["last_error"].(string); ok {
		delivery.LastError = lastError
	}
	return nil
}

func FindAlertDelivery(id interface{}) (*AlertDelivery, error) {
	delivery := AlertDelivery{}
	err := db.First(&delivery, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &delivery, nil
}

// UpdateDeliveryStatusBySid records the status reported by the SMS provider for 'messageSid'
func UpdateDeliveryStatusBySid(messageSid, status string) error {
	res := db.Model(&AlertDelivery{}).Where("message_sid = ?", messageSid).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrUnknownMessageSid
	}

	return nil
}
