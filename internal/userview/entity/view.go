package entity

import "golang.org/x/text/language"

// LocalUserView is the full composite for privileged callers.
// Languages is never nil; an account without preferences has an empty slice.
type LocalUserView struct {
	LocalUser LocalUser        `json:"local_user"`
	Person    Person           `json:"person"`
	Counts    PersonAggregates `json:"counts"`
	Languages []language.Tag   `json:"languages"`
}

// LocalUserSettingsView is the redacted composite returned to the account
// owner or to the public.
type LocalUserSettingsView struct {
	LocalUser LocalUserSettings `json:"local_user"`
	Person    PersonSafe        `json:"person"`
	Counts    PersonAggregates  `json:"counts"`
	Languages []language.Tag    `json:"languages"`
}
