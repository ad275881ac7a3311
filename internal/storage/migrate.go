package storage

import "context"

// Migrate applies the schema. Statements are idempotent so it is safe to run
// on every start.
func (s *Store) Migrate(ctx context.Context) error {
	s.logger.Info("Applying database schema")

	statements := []string{
		`create table if not exists users (
			id bigserial primary key,
			name text not null,
			slug text not null unique,
			email text not null unique,
			password_hash text not null,
			avatar text,
			bio text,
			phone text,
			social_links text[],
			is_premium boolean not null default false,
			billing_customer_id text,
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now()
		)`,
		`create table if not exists chats (
			id bigserial primary key,
			name text not null,
			photo text not null,
			description text,
			is_group boolean not null default false,
			is_deleted boolean not null default false,
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now()
		)`,
		`create table if not exists chat_participants (
			chat_id bigint not null references chats(id) on delete cascade,
			user_id bigint not null references users(id) on delete cascade,
			role text not null default 'user',
			joined_at timestamptz not null default now(),
			primary key (chat_id, user_id)
		)`,
		`create table if not exists messages (
			id bigserial primary key,
			chat_id bigint not null references chats(id) on delete cascade,
			sender_id bigint not null references users(id) on delete cascade,
			content text,
			message_type text not null,
			files text[],
			parent_id bigint references messages(id) on delete set null,
			is_system boolean not null default false,
			is_pinned boolean not null default false,
			pinned_at timestamptz,
			created_at timestamptz not null default now()
		)`,
		`create index if not exists messages_chat_created_idx on messages (chat_id, created_at)`,
		`create index if not exists users_billing_customer_idx on users (billing_customer_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
