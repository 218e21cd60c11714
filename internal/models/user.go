package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID          string
	Email        string
	Username     string
	PasswordHash string
	Role         string // admin или user
	Phone        string
	CreatedAt    time.Time
}

// Brand представляет бренд (рабочее пространство), которым владеет пользователь.
type Brand struct {
	UID       string
	Name      string
	OwnerUID  string
	CreatedAt time.Time
}

// BrandMember связывает пользователя с брендом и ролью внутри бренда.
type BrandMember struct {
	BrandUID string
	UserUID  string
	Role     string // owner, member
}

// DummyLogin используется для приёма данных входа из JSON-запроса.
type DummyLogin struct {
	Username string `json:"username" validate:"required,alphanum"` // Имя пользователя
	Password string `json:"password" validate:"required,min=8"`    // Пароль
}
