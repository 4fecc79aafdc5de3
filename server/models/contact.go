package models

import "fmt"

// Contact is an emergency contact that receives SOS messages on behalf of a user
type Contact struct {
	BaseModel
	Name         string `json:"name" validate:"required,min=3"`
	PhoneNumber  string `json:"phone_number" validate:"required,e164" gorm:"not null"`
	Relationship string `json:"relationship" validate:"required"`
	UserID       uint   `json:"user_id" gorm:"not null;index"`
}

func (contact *Contact) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"contactId":    fmt.Sprint(contact.ID),
		"name":         contact.Name,
		"phoneNumber":  contact.PhoneNumber,
		"relationship": contact.Relationship,
	}
}
