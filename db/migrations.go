package db

import "database/sql"

const (
	sqlCreateAccountsTable = `CREATE TABLE IF NOT EXISTS accounts(
		id uuid NOT NULL PRIMARY KEY,
		username varchar(100) UNIQUE NOT NULL,
		display_name varchar(255) NOT NULL DEFAULT '',
		summary text NOT NULL DEFAULT '',
		created_at timestamp default current_timestamp
	)`

	sqlCreateAccountsIndices = `CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username)`

	sqlCreatePostsTable = `CREATE TABLE IF NOT EXISTS posts(
		id uuid NOT NULL PRIMARY KEY,
		author_id uuid NOT NULL,
		content varchar(1000) NOT NULL,
		reply_to_id uuid,
		created_at timestamp default current_timestamp
	)`

	sqlCreatePostsIndices = `CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts(author_id)`

	// actor and object each set exactly one identity column: a local record
	// id or a remote URL
	sqlCreateRelationshipsTable = `CREATE TABLE IF NOT EXISTS relationships(
		id uuid NOT NULL PRIMARY KEY,
		type varchar(20) NOT NULL,
		actor_account_id uuid,
		actor_url text,
		object_account_id uuid,
		object_post_id uuid,
		object_url text,
		approved int,
		approved_at timestamp,
		created_at timestamp default current_timestamp
	)`

	sqlCreateRelationshipsIndices = `CREATE INDEX IF NOT EXISTS idx_relationships_actor_account_id ON relationships(actor_account_id);
		CREATE INDEX IF NOT EXISTS idx_relationships_object_account_id ON relationships(object_account_id);
		CREATE INDEX IF NOT EXISTS idx_relationships_object_post_id ON relationships(object_post_id)`

	sqlCreateTokensTable = `CREATE TABLE IF NOT EXISTS tokens(
		token varchar(64) NOT NULL PRIMARY KEY,
		account_id uuid NOT NULL,
		created_at timestamp default current_timestamp
	)`
)

// CreateSchema creates all tables and indices if they don't exist yet
func (db *DB) CreateSchema() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		statements := []string{
			sqlCreateAccountsTable,
			sqlCreateAccountsIndices,
			sqlCreatePostsTable,
			sqlCreatePostsIndices,
			sqlCreateRelationshipsTable,
			sqlCreateRelationshipsIndices,
			sqlCreateTokensTable,
		}

		for _, stmt := range statements {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	})
}
