package models

import "time"

type UserAccount struct {
	JsonModel
	Name   string `json:"name"`
	Email  string `json:"email" gorm:"unique"`
	Banned bool   `gorm:"default:false" json:"-"`
	LastIp string `json:"-"`
	//"STARTED_AUTH", "FINISHED_AUTH"
	Status              string     `json:"-"`
	GoogleID            string     `json:"-"`
	AppleID             string     `json:"-"`
	UTMSource           string     `json:"utm_source"`
	Platform            Platform   `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`
	Subscription        *string    `json:"subscription"`
	ExpirationDate      *time.Time `json:"-"`
	ConfirmedDeleteDate *time.Time `json:"-"`
	// Notifications settings
	ReceiveNotifications bool `json:"receive_notifications"`
	// send outfit-of-the-day push from the scheduler
	DailyOutfitEnabled bool `gorm:"default:true" json:"daily_outfit_enabled"`
	// user app image/avatar
	AvatarUrl string `json:"avatar_url"`

	// free plan quotas, nil means plan default
	EnforcedGarmentLimit *int32 `json:"-"`
	EnforcedLookLimit    *int32 `json:"-"`
}

type UserPushToken struct {
	JsonModel
	UserAccountID uint
	UserAccount   UserAccount `json:"user_account"`
	Platform      Platform    `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`
	Token         string      `json:"token"`
	Active        bool        `gorm:"default:false" json:"-"`
}

type UserPushIn struct {
	Token    string `json:"token"`
	Platform string `json:"platform" validate:"required,platform"`
}

type UserSettingsIn struct {
	ReceiveNotifications bool `json:"receive_notifications"`
	DailyOutfitEnabled   bool `json:"daily_outfit_enabled"`
}
