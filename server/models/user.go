package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/Daskott/safepoint/server/auth"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken = errors.New("email is already in use")

	allFieldsExceptPassword = []string{"id",
		"full_name",
		"email",
		"phone_number",
		"nic",
		"firebase_uid",
		"role_id",
		"created_at",
		"updated_at",
	}

	updatableFields = []string{"full_name",
		"phone_number",
		"nic",
		"password",
	}
)

type User struct {
	BaseModel
	FullName    string    `json:"full_name" validate:"required,min=3"`
	Email       string    `json:"email" validate:"required,email" gorm:"not null;unique"`
	PhoneNumber string    `json:"phone_number" validate:"required,e164" gorm:"not null"`
	Nic         string    `json:"nic"`
	Password    string    `json:"password,omitempty" validate:"required,password" gorm:"not null"`
	FirebaseUID *string   `json:"-" gorm:"unique"`
	RoleID      uint      `json:"role_id" gorm:"null"`
	Role        *Role     `json:"role,omitempty"`
	Contacts    []Contact `json:"contacts,omitempty"`
}

// UserType returns the name of the user's role, defaulting to the basic role
// when the role was not loaded.
func (user *User) UserType() string {
	if user.Role == nil || user.Role.Name == "" {
		return BASIC_USER_ROLE
	}
	return user.Role.Name
}

func (user *User) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"userId":      fmt.Sprint(user.ID),
		"fullName":    user.FullName,
		"email":       user.Email,
		"phoneNumber": user.PhoneNumber,
		"nic":         user.Nic,
		"userType":    user.UserType(),
	}
}

func (user *User) Update(data map[string]interface{}) error {
	if data["password"] != nil {
		passwordHash, err := auth.HashPassword(fmt.Sprint(data["password"]))
		if err != nil {
			return err
		}
		data["password"] = passwordHash
	}

	data["updated_at"] = time.Now()
	return db.Model(&User{}).Where("id = ?", user.ID).
		Select(append(updatableFields, "updated_at")).Updates(data).Error
}

func (user *User) IsAdmin() (bool, error) {
	if user.RoleID == 0 {
		return false, nil
	}

	adminRole, err := FindRole(ADMIN_USER_ROLE)
	if err != nil {
		return false, err
	}

	return adminRole.ID == user.RoleID, nil
}

func (user *User) SetRole(roleName string) error {
	role, err := FindRole(roleName)
	if err != nil {
		return err
	}

	err = db.Model(&User{}).Where("id = ?", user.ID).Update("role_id", role.ID).Error
	if err != nil {
		return err
	}

	user.RoleID = role.ID
	user.Role = role
	return nil
}

func (user *User) LinkFirebaseUID(uid string) error {
	err := db.Model(&User{}).Where("id = ?", user.ID).Update("firebase_uid", uid).Error
	if err != nil {
		return err
	}

	user.FirebaseUID = &uid
	return nil
}

func (user *User) AddContact(contact *Contact) error {
	contact.ID = 0
	contact.UserID = user.ID
	return db.Create(contact).Error
}

func (user *User) LoadContacts() error {
	user.Contacts = []Contact{}
	return db.Order("id asc").Limit(500).Find(&user.Contacts, "user_id = ?", user.ID).Error
}

func (user *User) FindContact(contactID interface{}) (*Contact, error) {
	contact := Contact{}
	err := db.First(&contact, "id = ? AND user_id = ?", contactID, user.ID).Error
	if err != nil {
		return nil, err
	}

	return &contact, nil
}

// UpdateContact returns gorm.ErrRecordNotFound if the user has no contact with 'contactID'
func (user *User) UpdateContact(contactID interface{}, data map[string]interface{}) error {
	data["updated_at"] = time.Now()
	res := db.Model(&Contact{}).Where("id = ? AND user_id = ?", contactID, user.ID).Updates(data)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// DeleteContact returns gorm.ErrRecordNotFound if the user has no contact with 'contactID'
func (user *User) DeleteContact(contactID interface{}) error {
	res := db.Where("user_id = ?", user.ID).Delete(&Contact{}, contactID)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func FindUserBy(field string, value interface{}) (*User, error) {
	user := User{}
	err := db.Preload("Role").Select(allFieldsExceptPassword).
		First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func FindUserWithContacts(userID interface{}) (*User, error) {
	user, err := FindUserBy("id", userID)
	if err != nil {
		return nil, err
	}

	err = user.LoadContacts()
	if err != nil {
		return nil, err
	}

	return user, nil
}

func FindUserPassword(email string) (string, error) {
	user := &User{}
	err := db.Select("password").First(user, "email = ?", email).Error

	if err != nil {
		return "", err
	}
	return user.Password, nil
}

// CreateUser stores 'user' with a hashed password. The very first user
// gets the admin role, everyone after that is a basic user.
func CreateUser(user *User) error {
	_, err := FindUserBy("email", user.Email)
	if err == nil {
		return ErrEmailTaken
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	passwordHash, err := auth.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = passwordHash

	userExists, err := AtLeastOneUserExists()
	if err != nil {
		return err
	}

	roleName := BASIC_USER_ROLE
	if !userExists {
		roleName = ADMIN_USER_ROLE
	}

	role, err := FindRole(roleName)
	if err != nil {
		return err
	}

	user.ID = 0
	user.RoleID = role.ID
	user.Role = nil
	user.Contacts = nil
	err = db.Omit("Role", "Contacts").Create(user).Error
	if err != nil {
		return err
	}

	user.Role = role
	return nil
}

// DeleteUser removes a user along with their emergency contacts
func DeleteUser(id interface{}) error {
	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", id).Delete(&Contact{}).Error
		if err != nil {
			return err
		}

		res := tx.Delete(&User{}, id)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return nil
	})
}

func FetchUsersByRole(roleName string, page int) ([]User, *Paging, error) {
	var total int64
	users := []User{}

	role, err := FindRole(roleName)
	if err != nil {
		return nil, nil, err
	}

	err = db.Model(&User{}).Where("role_id = ?", role.ID).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = db.Scopes(paginate(page, MAX_PAGE_SIZE)).Preload("Role").
		Select(allFieldsExceptPassword).Where("role_id = ?", role.ID).
		Order("id asc").Find(&users).Error
	if err != nil {
		return nil, nil, err
	}

	return users, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}

func AtLeastOneUserExists() (bool, error) {
	err := db.Select("id").First(&User{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}
