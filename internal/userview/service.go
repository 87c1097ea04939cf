package userview

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-userview/internal/userview/entity"
	viewrepo "github.com/ovaphlow/pitchfork/service-userview/internal/userview/repo"
)

// Viewer is the read side the service composes views from. *repo.ViewRepo implements it.
type Viewer interface {
	Read(ctx context.Context, localUserID int64) (*entity.LocalUserView, error)
	ReadPerson(ctx context.Context, personID int64) (*entity.LocalUserView, error)
	ReadFromName(ctx context.Context, name string) (*entity.LocalUserView, error)
	FindByEmailOrName(ctx context.Context, nameOrEmail string) (*entity.LocalUserView, error)
	FindByEmail(ctx context.Context, email string) (*entity.LocalUserView, error)
	ReadSettings(ctx context.Context, localUserID int64) (*entity.LocalUserSettingsView, error)
	ReadSettingsByPerson(ctx context.Context, personID int64) (*entity.LocalUserSettingsView, error)
}

var (
	ErrNotFound       = viewrepo.ErrNotFound
	ErrIntegrityFault = viewrepo.ErrIntegrityFault
	ErrUnknownKey     = errors.New("unknown lookup key")
)

// KeyKind names the predicate a lookup uses.
type KeyKind string

const (
	KeyLocalUserID KeyKind = "id"
	KeyPersonID    KeyKind = "person"
	KeyName        KeyKind = "name"
	KeyEmail       KeyKind = "email"
	KeyNameOrEmail KeyKind = "name-or-email"
)

// Key is a typed lookup key. ID is used by the identity kinds, Text by the others.
type Key struct {
	Kind KeyKind
	ID   int64
	Text string
}

// ParseKey builds a Key from transport strings (query params, CLI flags).
func ParseKey(kind, value string) (Key, error) {
	k := KeyKind(strings.TrimSpace(kind))
	switch k {
	case KeyLocalUserID, KeyPersonID:
		id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return Key{}, fmt.Errorf("%w: %s id %q", ErrUnknownKey, k, value)
		}
		return Key{Kind: k, ID: id}, nil
	case KeyName, KeyEmail, KeyNameOrEmail:
		return Key{Kind: k, Text: value}, nil
	default:
		return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, kind)
	}
}

// Service resolves lookup keys into views. Authorization is the caller's job.
type Service struct {
	viewer Viewer
}

func NewService(db *sqlx.DB, v Viewer) *Service {
	if v == nil {
		v = viewrepo.NewViewRepo(db)
	}
	return &Service{viewer: v}
}

// Lookup returns the full view for key. Empty text keys and non-positive ids
// cannot match a row and return ErrNotFound without a query.
func (s *Service) Lookup(ctx context.Context, key Key) (*entity.LocalUserView, error) {
	switch key.Kind {
	case KeyLocalUserID:
		if key.ID <= 0 {
			return nil, ErrNotFound
		}
		return s.viewer.Read(ctx, key.ID)
	case KeyPersonID:
		if key.ID <= 0 {
			return nil, ErrNotFound
		}
		return s.viewer.ReadPerson(ctx, key.ID)
	case KeyName:
		if key.Text == "" {
			return nil, ErrNotFound
		}
		return s.viewer.ReadFromName(ctx, key.Text)
	case KeyEmail:
		if key.Text == "" {
			return nil, ErrNotFound
		}
		return s.viewer.FindByEmail(ctx, key.Text)
	case KeyNameOrEmail:
		if key.Text == "" {
			return nil, ErrNotFound
		}
		return s.viewer.FindByEmailOrName(ctx, key.Text)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key.Kind)
	}
}

// Settings returns the redacted view of a local user.
func (s *Service) Settings(ctx context.Context, localUserID int64) (*entity.LocalUserSettingsView, error) {
	if localUserID <= 0 {
		return nil, ErrNotFound
	}
	return s.viewer.ReadSettings(ctx, localUserID)
}

// PublicSettings returns the redacted view of the local user owning personID.
func (s *Service) PublicSettings(ctx context.Context, personID int64) (*entity.LocalUserSettingsView, error) {
	if personID <= 0 {
		return nil, ErrNotFound
	}
	return s.viewer.ReadSettingsByPerson(ctx, personID)
}
