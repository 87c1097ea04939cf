package entity

import "time"

// Person is the public identity record (`person` table).
type Person struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	DisplayName     *string    `json:"display_name"`
	Avatar          *string    `json:"avatar"`
	Banned          bool       `json:"banned"`
	Published       time.Time  `json:"published"`
	Updated         *time.Time `json:"updated"`
	ActorID         string     `json:"actor_id"`
	Bio             *string    `json:"bio"`
	Local           bool       `json:"local"`
	PrivateKey      *string    `json:"private_key"`
	PublicKey       string     `json:"public_key"`
	LastRefreshedAt time.Time  `json:"last_refreshed_at"`
	Banner          *string    `json:"banner"`
	Deleted         bool       `json:"deleted"`
	InboxURL        string     `json:"inbox_url"`
	SharedInboxURL  *string    `json:"shared_inbox_url"`
	MatrixUserID    *string    `json:"matrix_user_id"`
	Admin           bool       `json:"admin"`
	BotAccount      bool       `json:"bot_account"`
	BanExpires      *time.Time `json:"ban_expires"`
}

// PersonSafe drops the key material and federation bookkeeping from Person.
type PersonSafe struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	DisplayName    *string    `json:"display_name"`
	Avatar         *string    `json:"avatar"`
	Banned         bool       `json:"banned"`
	Published      time.Time  `json:"published"`
	Updated        *time.Time `json:"updated"`
	ActorID        string     `json:"actor_id"`
	Bio            *string    `json:"bio"`
	Local          bool       `json:"local"`
	Banner         *string    `json:"banner"`
	Deleted        bool       `json:"deleted"`
	InboxURL       string     `json:"inbox_url"`
	SharedInboxURL *string    `json:"shared_inbox_url"`
	MatrixUserID   *string    `json:"matrix_user_id"`
	Admin          bool       `json:"admin"`
	BotAccount     bool       `json:"bot_account"`
	BanExpires     *time.Time `json:"ban_expires"`
}

// PersonAggregates holds the derived per-person counters. It is maintained
// outside this service and read as-is.
type PersonAggregates struct {
	ID           int64 `json:"id"`
	PersonID     int64 `json:"person_id"`
	PostCount    int64 `json:"post_count"`
	PostScore    int64 `json:"post_score"`
	CommentCount int64 `json:"comment_count"`
	CommentScore int64 `json:"comment_score"`
}
