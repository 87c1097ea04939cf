package entity

import "time"

// LocalUser is a row of the `local_user` table: the account record that
// backs authentication and per-user settings. It is 1:1 with Person.
type LocalUser struct {
	ID                       int64     `json:"id"`
	PersonID                 int64     `json:"person_id"`
	PasswordEncrypted        string    `json:"password_encrypted"`
	Email                    *string   `json:"email"`
	ShowNSFW                 bool      `json:"show_nsfw"`
	Theme                    string    `json:"theme"`
	DefaultSortType          int       `json:"default_sort_type"`
	DefaultListingType       int       `json:"default_listing_type"`
	Lang                     string    `json:"lang"`
	ShowAvatars              bool      `json:"show_avatars"`
	SendNotificationsToEmail bool      `json:"send_notifications_to_email"`
	ValidatorTime            time.Time `json:"validator_time"`
	ShowBotAccounts          bool      `json:"show_bot_accounts"`
	ShowScores               bool      `json:"show_scores"`
	ShowReadPosts            bool      `json:"show_read_posts"`
	ShowNewPostNotifs        bool      `json:"show_new_post_notifs"`
	EmailVerified            bool      `json:"email_verified"`
	AcceptedApplication      bool      `json:"accepted_application"`
}

// LocalUserSettings is the settings-safe projection of LocalUser. It has no
// password hash and no validator time.
type LocalUserSettings struct {
	ID                       int64   `json:"id"`
	PersonID                 int64   `json:"person_id"`
	Email                    *string `json:"email"`
	ShowNSFW                 bool    `json:"show_nsfw"`
	Theme                    string  `json:"theme"`
	DefaultSortType          int     `json:"default_sort_type"`
	DefaultListingType       int     `json:"default_listing_type"`
	Lang                     string  `json:"lang"`
	ShowAvatars              bool    `json:"show_avatars"`
	SendNotificationsToEmail bool    `json:"send_notifications_to_email"`
	ShowBotAccounts          bool    `json:"show_bot_accounts"`
	ShowScores               bool    `json:"show_scores"`
	ShowReadPosts            bool    `json:"show_read_posts"`
	ShowNewPostNotifs        bool    `json:"show_new_post_notifs"`
	EmailVerified            bool    `json:"email_verified"`
	AcceptedApplication      bool    `json:"accepted_application"`
}
