package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/text/language"

	"github.com/ovaphlow/pitchfork/service-userview/internal/userview/entity"
)

var (
	// ErrNotFound is returned when no local user satisfies the lookup.
	ErrNotFound = errors.New("local user not found")
	// ErrIntegrityFault is returned when a local user matches but its view
	// cannot be assembled from consistent data, e.g. the person has no
	// aggregates row.
	ErrIntegrityFault = errors.New("local user view integrity fault")
)

// ViewRepo composes local user views. Every lookup is a single statement;
// driver errors are returned unchanged.
type ViewRepo struct {
	db *sqlx.DB
}

func NewViewRepo(db *sqlx.DB) *ViewRepo { return &ViewRepo{db: db} }

// Read returns the full view for a local user id.
func (r *ViewRepo) Read(ctx context.Context, localUserID int64) (*entity.LocalUserView, error) {
	return readView(ctx, r.db, fullProjection, byLocalUserID(localUserID))
}

// ReadPerson returns the full view of the local user owning personID.
func (r *ViewRepo) ReadPerson(ctx context.Context, personID int64) (*entity.LocalUserView, error) {
	return readView(ctx, r.db, fullProjection, byPersonID(personID))
}

// ReadFromName matches person.name exactly.
func (r *ViewRepo) ReadFromName(ctx context.Context, name string) (*entity.LocalUserView, error) {
	return readView(ctx, r.db, fullProjection, byName(name))
}

// FindByEmailOrName treats the input as a LIKE pattern against person.name and
// local_user.email, both case-insensitively. When several accounts match, the
// lowest local user id wins.
func (r *ViewRepo) FindByEmailOrName(ctx context.Context, nameOrEmail string) (*entity.LocalUserView, error) {
	return readView(ctx, r.db, fullProjection, byNameOrEmail(nameOrEmail))
}

// FindByEmail matches local_user.email exactly (case-sensitive).
func (r *ViewRepo) FindByEmail(ctx context.Context, email string) (*entity.LocalUserView, error) {
	return readView(ctx, r.db, fullProjection, byEmail(email))
}

// ReadSettings returns the redacted settings view for a local user id.
func (r *ViewRepo) ReadSettings(ctx context.Context, localUserID int64) (*entity.LocalUserSettingsView, error) {
	return readView(ctx, r.db, settingsProjection, byLocalUserID(localUserID))
}

// ReadSettingsByPerson returns the redacted settings view of the local user
// owning personID.
func (r *ViewRepo) ReadSettingsByPerson(ctx context.Context, personID int64) (*entity.LocalUserSettingsView, error) {
	return readView(ctx, r.db, settingsProjection, byPersonID(personID))
}

// predicate selects the local user. It is evaluated with `lu` bound to
// local_user and `p` bound to person.
type predicate struct {
	where string
	args  []any
}

func byLocalUserID(id int64) predicate {
	return predicate{where: "lu.id = ?", args: []any{id}}
}

func byPersonID(id int64) predicate {
	return predicate{where: "p.id = ?", args: []any{id}}
}

func byName(name string) predicate {
	return predicate{where: "p.name = ?", args: []any{name}}
}

func byEmail(email string) predicate {
	return predicate{where: "lu.email = ?", args: []any{email}}
}

func byNameOrEmail(pattern string) predicate {
	return predicate{where: "(LOWER(p.name) LIKE LOWER(?) OR LOWER(lu.email) LIKE LOWER(?))", args: []any{pattern, pattern}}
}

// projection decides which local_user and person columns are selected and
// how the coalesced rows turn into a view.
type projection[V any] struct {
	columns []string
	build   func(row viewRow, languages []language.Tag) V
}

var fullProjection = projection[entity.LocalUserView]{
	columns: selectList(localUserColumns, personColumns),
	build: func(row viewRow, languages []language.Tag) entity.LocalUserView {
		return entity.LocalUserView{
			LocalUser: row.localUser(),
			Person:    row.person(),
			Counts:    row.aggregates(),
			Languages: languages,
		}
	},
}

var settingsProjection = projection[entity.LocalUserSettingsView]{
	columns: selectList(localUserSettingsColumns, personSafeColumns),
	build: func(row viewRow, languages []language.Tag) entity.LocalUserSettingsView {
		return entity.LocalUserSettingsView{
			LocalUser: row.localUserSettings(),
			Person:    row.personSafe(),
			Counts:    row.aggregates(),
			Languages: languages,
		}
	},
}

var (
	localUserSettingsColumns = aliased("lu", "id", "person_id", "email", "show_nsfw", "theme",
		"default_sort_type", "default_listing_type", "lang", "show_avatars",
		"send_notifications_to_email", "show_bot_accounts", "show_scores",
		"show_read_posts", "show_new_post_notifs", "email_verified", "accepted_application")
	localUserColumns = append(aliased("lu", "password_encrypted", "validator_time"), localUserSettingsColumns...)

	personSafeColumns = aliased("p", "id", "name", "display_name", "avatar", "banned", "published",
		"updated", "actor_id", "bio", "local", "banner", "deleted", "inbox_url",
		"shared_inbox_url", "matrix_user_id", "admin", "bot_account", "ban_expires")
	personColumns = append(aliased("p", "private_key", "public_key", "last_refreshed_at"), personSafeColumns...)

	aggregatesColumns = aliased("pa", "id", "person_id", "post_count", "post_score", "comment_count", "comment_score")
	languageColumns   = aliased("l", "id", "lang")
)

// aliased renders "t.col AS t_col" for each column.
func aliased(table string, columns ...string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = table + "." + c + " AS " + table + "_" + c
	}
	return out
}

func selectList(localUser, person []string) []string {
	cols := make([]string, 0, len(localUser)+len(person)+len(aggregatesColumns)+len(languageColumns))
	cols = append(cols, localUser...)
	cols = append(cols, person...)
	cols = append(cols, aggregatesColumns...)
	return append(cols, languageColumns...)
}

// buildQuery renders the shared join topology. The scalar subquery picks one
// local user (lowest id) so the language fan-out never mixes accounts.
// person_aggregates is outer joined so that a missing row surfaces as
// ErrIntegrityFault instead of looking like ErrNotFound.
func buildQuery(columns []string, where string) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(`
FROM local_user lu
INNER JOIN person p ON p.id = lu.person_id
LEFT JOIN person_aggregates pa ON pa.person_id = p.id
LEFT JOIN local_user_language l ON l.local_user_id = lu.id
WHERE lu.id = (
	SELECT lu.id FROM local_user lu
	INNER JOIN person p ON p.id = lu.person_id
	WHERE `)
	b.WriteString(where)
	b.WriteString(`
	ORDER BY lu.id
	LIMIT 1
)
ORDER BY l.id`)
	return b.String()
}

func readView[V any](ctx context.Context, db *sqlx.DB, proj projection[V], pred predicate) (*V, error) {
	q := db.Rebind(buildQuery(proj.columns, pred.where))
	var rows []viewRow
	if err := db.SelectContext(ctx, &rows, q, pred.args...); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	first := rows[0]
	if !first.AggregatesID.Valid {
		return nil, fmt.Errorf("%w: person %d has no aggregates", ErrIntegrityFault, first.PersonID)
	}
	languages, err := coalesceLanguages(rows)
	if err != nil {
		return nil, err
	}
	v := proj.build(first, languages)
	return &v, nil
}

// coalesceLanguages folds the outer-joined language rows of one local user
// into a non-nil slice.
func coalesceLanguages(rows []viewRow) ([]language.Tag, error) {
	out := make([]language.Tag, 0, len(rows))
	for _, row := range rows {
		if row.LocalUserID != rows[0].LocalUserID {
			return nil, fmt.Errorf("%w: rows for local users %d and %d in one view", ErrIntegrityFault, rows[0].LocalUserID, row.LocalUserID)
		}
		if !row.LanguageID.Valid {
			continue
		}
		tag, err := language.Parse(row.Language.String)
		if err != nil {
			return nil, fmt.Errorf("%w: local user %d language %q: %v", ErrIntegrityFault, row.LocalUserID, row.Language.String, err)
		}
		out = append(out, tag)
	}
	return out, nil
}

// viewRow is one physical row of the composed query. Columns a projection
// does not select stay at their zero value and are never read.
type viewRow struct {
	LocalUserID              int64     `db:"lu_id"`
	LocalUserPersonID        int64     `db:"lu_person_id"`
	PasswordEncrypted        string    `db:"lu_password_encrypted"`
	Email                    *string   `db:"lu_email"`
	ShowNSFW                 bool      `db:"lu_show_nsfw"`
	Theme                    string    `db:"lu_theme"`
	DefaultSortType          int       `db:"lu_default_sort_type"`
	DefaultListingType       int       `db:"lu_default_listing_type"`
	Lang                     string    `db:"lu_lang"`
	ShowAvatars              bool      `db:"lu_show_avatars"`
	SendNotificationsToEmail bool      `db:"lu_send_notifications_to_email"`
	ValidatorTime            time.Time `db:"lu_validator_time"`
	ShowBotAccounts          bool      `db:"lu_show_bot_accounts"`
	ShowScores               bool      `db:"lu_show_scores"`
	ShowReadPosts            bool      `db:"lu_show_read_posts"`
	ShowNewPostNotifs        bool      `db:"lu_show_new_post_notifs"`
	EmailVerified            bool      `db:"lu_email_verified"`
	AcceptedApplication      bool      `db:"lu_accepted_application"`

	PersonID        int64      `db:"p_id"`
	Name            string     `db:"p_name"`
	DisplayName     *string    `db:"p_display_name"`
	Avatar          *string    `db:"p_avatar"`
	Banned          bool       `db:"p_banned"`
	Published       time.Time  `db:"p_published"`
	Updated         *time.Time `db:"p_updated"`
	ActorID         string     `db:"p_actor_id"`
	Bio             *string    `db:"p_bio"`
	Local           bool       `db:"p_local"`
	PrivateKey      *string    `db:"p_private_key"`
	PublicKey       string     `db:"p_public_key"`
	LastRefreshedAt time.Time  `db:"p_last_refreshed_at"`
	Banner          *string    `db:"p_banner"`
	Deleted         bool       `db:"p_deleted"`
	InboxURL        string     `db:"p_inbox_url"`
	SharedInboxURL  *string    `db:"p_shared_inbox_url"`
	MatrixUserID    *string    `db:"p_matrix_user_id"`
	Admin           bool       `db:"p_admin"`
	BotAccount      bool       `db:"p_bot_account"`
	BanExpires      *time.Time `db:"p_ban_expires"`

	AggregatesID       sql.NullInt64 `db:"pa_id"`
	AggregatesPersonID sql.NullInt64 `db:"pa_person_id"`
	PostCount          sql.NullInt64 `db:"pa_post_count"`
	PostScore          sql.NullInt64 `db:"pa_post_score"`
	CommentCount       sql.NullInt64 `db:"pa_comment_count"`
	CommentScore       sql.NullInt64 `db:"pa_comment_score"`

	LanguageID sql.NullInt64  `db:"l_id"`
	Language   sql.NullString `db:"l_lang"`
}

func (r viewRow) localUser() entity.LocalUser {
	return entity.LocalUser{
		ID:                       r.LocalUserID,
		PersonID:                 r.LocalUserPersonID,
		PasswordEncrypted:        r.PasswordEncrypted,
		Email:                    r.Email,
		ShowNSFW:                 r.ShowNSFW,
		Theme:                    r.Theme,
		DefaultSortType:          r.DefaultSortType,
		DefaultListingType:       r.DefaultListingType,
		Lang:                     r.Lang,
		ShowAvatars:              r.ShowAvatars,
		SendNotificationsToEmail: r.SendNotificationsToEmail,
		ValidatorTime:            r.ValidatorTime,
		ShowBotAccounts:          r.ShowBotAccounts,
		ShowScores:               r.ShowScores,
		ShowReadPosts:            r.ShowReadPosts,
		ShowNewPostNotifs:        r.ShowNewPostNotifs,
		EmailVerified:            r.EmailVerified,
		AcceptedApplication:      r.AcceptedApplication,
	}
}

func (r viewRow) localUserSettings() entity.LocalUserSettings {
	return entity.LocalUserSettings{
		ID:                       r.LocalUserID,
		PersonID:                 r.LocalUserPersonID,
		Email:                    r.Email,
		ShowNSFW:                 r.ShowNSFW,
		Theme:                    r.Theme,
		DefaultSortType:          r.DefaultSortType,
		DefaultListingType:       r.DefaultListingType,
		Lang:                     r.Lang,
		ShowAvatars:              r.ShowAvatars,
		SendNotificationsToEmail: r.SendNotificationsToEmail,
		ShowBotAccounts:          r.ShowBotAccounts,
		ShowScores:               r.ShowScores,
		ShowReadPosts:            r.ShowReadPosts,
		ShowNewPostNotifs:        r.ShowNewPostNotifs,
		EmailVerified:            r.EmailVerified,
		AcceptedApplication:      r.AcceptedApplication,
	}
}

func (r viewRow) person() entity.Person {
	return entity.Person{
		ID:              r.PersonID,
		Name:            r.Name,
		DisplayName:     r.DisplayName,
		Avatar:          r.Avatar,
		Banned:          r.Banned,
		Published:       r.Published,
		Updated:         r.Updated,
		ActorID:         r.ActorID,
		Bio:             r.Bio,
		Local:           r.Local,
		PrivateKey:      r.PrivateKey,
		PublicKey:       r.PublicKey,
		LastRefreshedAt: r.LastRefreshedAt,
		Banner:          r.Banner,
		Deleted:         r.Deleted,
		InboxURL:        r.InboxURL,
		SharedInboxURL:  r.SharedInboxURL,
		MatrixUserID:    r.MatrixUserID,
		Admin:           r.Admin,
		BotAccount:      r.BotAccount,
		BanExpires:      r.BanExpires,
	}
}

func (r viewRow) personSafe() entity.PersonSafe {
	return entity.PersonSafe{
		ID:             r.PersonID,
		Name:           r.Name,
		DisplayName:    r.DisplayName,
		Avatar:         r.Avatar,
		Banned:         r.Banned,
		Published:      r.Published,
		Updated:        r.Updated,
		ActorID:        r.ActorID,
		Bio:            r.Bio,
		Local:          r.Local,
		Banner:         r.Banner,
		Deleted:        r.Deleted,
		InboxURL:       r.InboxURL,
		SharedInboxURL: r.SharedInboxURL,
		MatrixUserID:   r.MatrixUserID,
		Admin:          r.Admin,
		BotAccount:     r.BotAccount,
		BanExpires:     r.BanExpires,
	}
}

func (r viewRow) aggregates() entity.PersonAggregates {
	return entity.PersonAggregates{
		ID:           r.AggregatesID.Int64,
		PersonID:     r.AggregatesPersonID.Int64,
		PostCount:    r.PostCount.Int64,
		PostScore:    r.PostScore.Int64,
		CommentCount: r.CommentCount.Int64,
		CommentScore: r.CommentScore.Int64,
	}
}
