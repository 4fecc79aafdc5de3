package models

import (
	"fmt"
	"time"

	"github.com/Daskott/safepoint/server/geo"
	"gorm.io/gorm"
)

const SMS_TIME_LAYOUT = "Jan 02, 2006 15:04:05"

// EmergencyAlert is a one-tap SOS raised by a user, which is sent out by SMS to each of the user's contacts
type EmergencyAlert struct {
	BaseModel
	UserID       uint            `json:"user_id" gorm:"not null;index"`
	UserFullName string          `json:"user_full_name"`
	IncidentType string          `json:"incident_type" validate:"required,incident_type"`
	Location     string          `json:"location"`
	Latitude     float64         `json:"latitude" validate:"min=-90,max=90"`
	Longitude    float64         `json:"longitude" validate:"min=-180,max=180"`
	Deliveries   []AlertDelivery `json:"deliveries,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (alert *EmergencyAlert) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"alertId":      fmt.Sprint(alert.ID),
		"userId":       fmt.Sprint(alert.UserID),
		"userFullName": alert.UserFullName,
		"incidentType": alert.IncidentType,
		"location":     alert.Location,
		"latitude":     alert.Latitude,
		"longitude":    alert.Longitude,
		"timestamp":    alert.CreatedAt,
	}
}

// SmsMessage builds the text sent to emergency contacts for this alert
func (alert *EmergencyAlert) SmsMessage() string {
	timestamp := alert.CreatedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return fmt.Sprintf(
		"EMERGENCY ALERT from %s\n"+
			"Incident Type: %s\n"+
			"Location: %s\n"+
			"Time: %s\n"+
			"Map Link: %s",
		alert.UserFullName,
		alert.IncidentType,
		alert.Location,
		timestamp.Format(SMS_TIME_LAYOUT),
		geo.MapLink(alert.Latitude, alert.Longitude),
	)
}

// CreateEmergencyAlert stores 'alert' for 'user' together with a pending delivery for each contact
func CreateEmergencyAlert(user *User, alert *EmergencyAlert, contacts []Contact) error {
	alert.ID = 0
	alert.UserID = user.ID
	alert.UserFullName = user.FullName
	alert.Deliveries = nil

	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Create(alert).Error
		if err != nil {
			return err
		}

		if len(contacts) == 0 {
			return nil
		}

		deliveries := make([]AlertDelivery, 0, len(contacts))
		for _, contact := range contacts {
			deliveries = append(deliveries, AlertDelivery{
				EmergencyAlertID: alert.ID,
				ContactID:        contact.ID,
				ContactName:      contact.Name,
				PhoneNumber:      contact.PhoneNumber,
				Status:           PENDING_DELIVERY,
			})
		}

		err = tx.Create(&deliveries).Error
		if err != nil {
			return err
		}

		alert.Deliveries = deliveries
		return nil
	})
}

func FindEmergencyAlert(id interface{}) (*EmergencyAlert, error) {
	alert := EmergencyAlert{}
	err := db.Preload("Deliveries").First(&alert, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &alert, nil
}

func FetchUserEmergencyAlerts(userID interface{}, page int) ([]EmergencyAlert, *Paging, error) {
	return fetchEmergencyAlerts(page, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("user_id = ?", userID)
	})
}

func FetchEmergencyAlerts(page int) ([]EmergencyAlert, *Paging, error) {
	return fetchEmergencyAlerts(page, func(tx *gorm.DB) *gorm.DB { return tx })
}

func fetchEmergencyAlerts(page int, query func(tx *gorm.DB) *gorm.DB) ([]EmergencyAlert, *Paging, error) {
	var total int64
	alerts := []EmergencyAlert{}

	err := db.Model(&EmergencyAlert{}).Scopes(query).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = db.Scopes(query, newestFirst, paginate(page, MAX_PAGE_SIZE)).
		Preload("Deliveries").Find(&alerts).Error
	if err != nil {
		return nil, nil, err
	}

	return alerts, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}
