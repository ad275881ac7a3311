package storage

import (
	"context"
	"errors"
	"strings"

	"talkify-backend/internal/chat"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

// NewUser carries the fields required for a sign-up insert.
type NewUser struct {
	Name              string
	Slug              string
	Email             string
	PasswordHash      string
	BillingCustomerID *string
}

const userColumns = `id, name, slug, email, password_hash, avatar, bio, phone,
		social_links, is_premium, billing_customer_id, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	var links pgtype.TextArray
	err := row.Scan(&u.ID, &u.Name, &u.Slug, &u.Email, &u.PasswordHash, &u.Avatar, &u.Bio,
		&u.Phone, &links, &u.IsPremium, &u.BillingCustomerID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	if links.Status == pgtype.Present {
		if err := links.AssignTo(&u.SocialLinks); err != nil {
			return User{}, err
		}
	}
	return u, nil
}

// CreateUser creates a user and returns its id.
func (s *Store) CreateUser(ctx context.Context, user NewUser) (int64, error) {
	s.logger.Debugf("Creating user (%s)", user.Email)

	var id int64
	sql := `insert into users (name, slug, email, password_hash, billing_customer_id)
			values ($1, $2, $3, $4, $5) returning id`
	err := s.db.QueryRow(ctx, sql, user.Name, user.Slug, user.Email, user.PasswordHash,
		user.BillingCustomerID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, ErrUserExists
		}
		return 0, err
	}

	s.logger.Debugf("Created user (%s) with id %d", user.Email, id)

	return id, nil
}

// UserByID returns a single user row.
func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	sql := `select ` + userColumns + ` from users where id = $1`
	u, err := scanUser(s.db.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotExist
	}
	return u, err
}

// UserByEmail returns a single user row looked up by unique email.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	sql := `select ` + userColumns + ` from users where email = $1`
	u, err := scanUser(s.db.QueryRow(ctx, sql, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotExist
	}
	return u, err
}

// SearchUsers returns users whose name or email contains term,
// case-insensitively, excluding the searching user and any explicitly
// filtered ids.
func (s *Store) SearchUsers(ctx context.Context, term string, excludeID int64, filtered []int64) ([]UserRef, error) {
	if filtered == nil {
		filtered = []int64{}
	}

	sql := `select id, name, avatar
			  from users
			 where (lower(name) like $1 or lower(email) like $1)
			   and id <> $2
			   and not (id = any($3::bigint[]))
			 order by name`

	rows, err := s.db.Query(ctx, sql, "%"+strings.ToLower(term)+"%", excludeID, filtered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUserRefs(rows)
}

// UsersForNewDirectChat returns users who do not yet share a direct chat
// with userID, i.e. valid targets for direct-chat creation.
func (s *Store) UsersForNewDirectChat(ctx context.Context, userID int64) ([]UserRef, error) {
	sql := `select u.id, u.name, u.avatar
			  from users u
			 where u.id <> $1
			   and u.id not in (
					select cp.user_id
					  from chat_participants cp
					  join chats c on c.id = cp.chat_id
					 where c.is_group = false
					   and cp.user_id <> $1
					   and cp.chat_id in (
							select chat_id from chat_participants where user_id = $1
					   )
			   )
			 order by u.name`

	rows, err := s.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUserRefs(rows)
}

// UpdateProfile applies the non-nil fields of upd and returns the updated
// row. A name change re-derives the slug.
func (s *Store) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (User, error) {
	var slug *string
	if upd.Name != nil {
		derived := chat.Slugify(*upd.Name)
		slug = &derived
	}

	sql := `update users
			   set name = coalesce($2, name),
				   slug = coalesce($3, slug),
				   avatar = coalesce($4, avatar),
				   bio = coalesce($5, bio),
				   phone = coalesce($6, phone),
				   social_links = coalesce($7, social_links),
				   updated_at = now()
			 where id = $1
			 returning ` + userColumns

	u, err := scanUser(s.db.QueryRow(ctx, sql, userID, upd.Name, slug, upd.Avatar,
		upd.Bio, upd.Phone, upd.SocialLinks))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotExist
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return User{}, ErrUserExists
		}
	}
	return u, err
}

// SetBillingCustomer stores the payment provider customer reference on a
// user created before billing was configured.
func (s *Store) SetBillingCustomer(ctx context.Context, userID int64, customerID string) error {
	tag, err := s.db.Exec(ctx,
		`update users set billing_customer_id = $2, updated_at = now() where id = $1`,
		userID, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotExist
	}
	return nil
}

// SetPremiumByCustomer flips the premium flag on the user owning the billing
// customer reference.
func (s *Store) SetPremiumByCustomer(ctx context.Context, customerID string, premium bool) error {
	s.logger.Debugf("Setting premium=%t for billing customer (%s)", premium, customerID)

	tag, err := s.db.Exec(ctx,
		`update users set is_premium = $2, updated_at = now() where billing_customer_id = $1`,
		customerID, premium)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotExist
	}
	return nil
}

func collectUserRefs(rows pgx.Rows) ([]UserRef, error) {
	var refs []UserRef
	for rows.Next() {
		var r UserRef
		if err := rows.Scan(&r.ID, &r.Name, &r.Avatar); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}
