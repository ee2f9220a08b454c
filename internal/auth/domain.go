package auth

import (
	"time"

	"github.com/google/uuid"
)

// Notifications holds the shop owner's alert preferences.
type Notifications struct {
	LowStockAlerts  bool `json:"lowStockAlerts"`
	UdhaarReminders bool `json:"udhaarReminders"`
	DailySummary    bool `json:"dailySummary"`
}

// DefaultNotifications mirrors the preferences of a new account.
func DefaultNotifications() Notifications {
	return Notifications{LowStockAlerts: true, UdhaarReminders: true}
}

// User represents a shop account.
type User struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	PasswordHash  string        `json:"-"`
	StoreName     string        `json:"storeName"`
	Mobile        string        `json:"mobile"`
	GSTNumber     string        `json:"gstNumber"`
	StoreAddress  string        `json:"storeAddress"`
	Notifications Notifications `json:"notifications"`
	IsActive      bool          `json:"-"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// RegisterInput creates an account.
type RegisterInput struct {
	Name      string `json:"name" validate:"required,max=120"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	StoreName string `json:"storeName" validate:"max=200"`
	Mobile    string `json:"mobile" validate:"omitempty,mobile"`
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// NotificationsInput updates individual preferences.
type NotificationsInput struct {
	LowStockAlerts  *bool `json:"lowStockAlerts"`
	UdhaarReminders *bool `json:"udhaarReminders"`
	DailySummary    *bool `json:"dailySummary"`
}

// ProfileInput updates only the fields that are present.
type ProfileInput struct {
	Name          *string             `json:"name" validate:"omitempty,max=120"`
	Email         *string             `json:"email" validate:"omitempty,email"`
	Mobile        *string             `json:"mobile" validate:"omitempty,mobile"`
	StoreName     *string             `json:"storeName" validate:"omitempty,max=200"`
	GSTNumber     *string             `json:"gstNumber" validate:"omitempty,len=15"`
	StoreAddress  *string             `json:"storeAddress" validate:"omitempty,max=500"`
	Notifications *NotificationsInput `json:"notifications"`
}

// PasswordInput changes the account password.
type PasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
}

// TokenResponse is returned by register and login.
type TokenResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
