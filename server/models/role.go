package models

const (
	ADMIN_USER_ROLE = "admin"
	BASIC_USER_ROLE = "user"
)

var RoleNameMap = map[string]bool{
	ADMIN_USER_ROLE: true,
	BASIC_USER_ROLE: true,
}

type Role struct {
	BaseModel
	Name  string `json:"name" gorm:"not null;unique"`
	Users []User `json:"users,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

func FindRole(name string) (*Role, error) {
	role := Role{}
	err := db.Select("id", "name").First(&role, "name = ?", name).Error
	if err != nil {
		return nil, err
	}

	return &role, nil
}
