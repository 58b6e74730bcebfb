package db

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quillpub/quill/domain"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// DB is the database struct. A handle is created once at startup and passed
// to every component that needs the store.
type DB struct {
	db *sql.DB
}

const (
	//Accounts
	sqlInsertAccount           = `INSERT INTO accounts(id, username, display_name, summary, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlSelectAccountById       = `SELECT id, username, display_name, summary, created_at FROM accounts WHERE id = ?`
	sqlSelectAccountByUsername = `SELECT id, username, display_name, summary, created_at FROM accounts WHERE username = ?`

	//Posts
	sqlInsertPost = `INSERT INTO posts(id, author_id, content, reply_to_id, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlSelectPost = `SELECT posts.id, posts.author_id, posts.content, posts.reply_to_id, posts.created_at,
                            accounts.id, accounts.username, accounts.display_name, accounts.summary, accounts.created_at
                     FROM posts INNER JOIN accounts ON accounts.id = posts.author_id`
	sqlWherePostById          = ` WHERE posts.id = ?`
	sqlWherePostByIdAndAuthor = ` WHERE posts.id = ? AND accounts.username = ?`
	sqlWherePostsByAccountId  = ` WHERE posts.author_id = ? ORDER BY posts.created_at DESC LIMIT ? OFFSET ?`
	sqlWherePostsByUsername   = ` WHERE accounts.username = ? ORDER BY posts.created_at DESC`
	sqlOrderPostsRecent       = ` ORDER BY posts.created_at DESC LIMIT ?`
	sqlCountPostsByAccountId  = `SELECT COUNT(*) FROM posts WHERE author_id = ?`

	//Tokens
	sqlInsertToken        = `INSERT INTO tokens(token, account_id, created_at) VALUES (?, ?, ?)`
	sqlSelectAccByToken   = `SELECT accounts.id, accounts.username, accounts.display_name, accounts.summary, accounts.created_at
                             FROM tokens INNER JOIN accounts ON accounts.id = tokens.account_id
                             WHERE tokens.token = ?`
)

// New opens the sqlite database at path, applies the connection PRAGMAs and
// makes sure the schema exists.
func New(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Configure connection pool for concurrent access
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	var journalMode string
	if err := sqlDB.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		log.Printf("Warning: Failed to enable WAL mode: %v", err)
	}

	sqlDB.Exec("PRAGMA synchronous = NORMAL")
	sqlDB.Exec("PRAGMA temp_store = MEMORY")
	sqlDB.Exec("PRAGMA busy_timeout = 5000")
	sqlDB.Exec("PRAGMA foreign_keys = ON")

	db := &DB{db: sqlDB}

	if err := db.CreateSchema(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) CreateAccount(acc *domain.Account) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertAccount,
			acc.Id.String(),
			acc.Username,
			acc.DisplayName,
			acc.Summary,
			bindTime(acc.CreatedAt),
		)
		return err
	})
}

func (db *DB) ReadAccById(id uuid.UUID) (error, *domain.Account) {
	return db.scanAccount(db.db.QueryRow(sqlSelectAccountById, id.String()))
}

func (db *DB) ReadAccByUsername(username string) (error, *domain.Account) {
	return db.scanAccount(db.db.QueryRow(sqlSelectAccountByUsername, username))
}

func (db *DB) scanAccount(row *sql.Row) (error, *domain.Account) {
	var acc domain.Account
	var idStr string
	err := row.Scan(&idStr, &acc.Username, &acc.DisplayName, &acc.Summary, &acc.CreatedAt)
	if err != nil {
		return err, nil
	}
	acc.Id, _ = uuid.Parse(idStr)
	return nil, &acc
}

// ReadAccountsByIds bulk-loads accounts keyed by id
func (db *DB) ReadAccountsByIds(ids []uuid.UUID) (error, map[uuid.UUID]*domain.Account) {
	accounts := make(map[uuid.UUID]*domain.Account)
	if len(ids) == 0 {
		return nil, accounts
	}

	query := `SELECT id, username, display_name, summary, created_at FROM accounts WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := db.db.Query(query, idArgs(ids)...)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	for rows.Next() {
		var acc domain.Account
		var idStr string
		if err := rows.Scan(&idStr, &acc.Username, &acc.DisplayName, &acc.Summary, &acc.CreatedAt); err != nil {
			return err, accounts
		}
		acc.Id, _ = uuid.Parse(idStr)
		accounts[acc.Id] = &acc
	}
	if err = rows.Err(); err != nil {
		return err, accounts
	}
	return nil, accounts
}

func (db *DB) CreatePost(save domain.SavePost) (error, *domain.Post) {
	post := &domain.Post{
		Id:        uuid.New(),
		AuthorId:  save.AuthorId,
		Content:   save.Content,
		ReplyToId: save.ReplyToId,
		CreatedAt: time.Now(),
	}

	err := db.wrapTransaction(func(tx *sql.Tx) error {
		var replyTo interface{}
		if post.ReplyToId != nil {
			replyTo = post.ReplyToId.String()
		}
		_, err := tx.Exec(sqlInsertPost, post.Id.String(), post.AuthorId.String(), post.Content, replyTo, bindTime(post.CreatedAt))
		return err
	})
	if err != nil {
		return err, nil
	}
	return nil, post
}

func (db *DB) ReadPostById(id uuid.UUID) (error, *domain.Post) {
	return scanPost(db.db.QueryRow(sqlSelectPost+sqlWherePostById, id.String()))
}

// ReadPostByIdAndAuthor reads a post only if it was written by the named
// account, which is how posts are addressed in profile paths.
func (db *DB) ReadPostByIdAndAuthor(id uuid.UUID, username string) (error, *domain.Post) {
	return scanPost(db.db.QueryRow(sqlSelectPost+sqlWherePostByIdAndAuthor, id.String(), username))
}

func (db *DB) ReadPostsByAccountId(accountId uuid.UUID, limit, offset int) (error, *[]domain.Post) {
	rows, err := db.db.Query(sqlSelectPost+sqlWherePostsByAccountId, accountId.String(), limit, offset)
	if err != nil {
		return err, nil
	}
	return scanPosts(rows)
}

func (db *DB) ReadPostsByUsername(username string) (error, *[]domain.Post) {
	rows, err := db.db.Query(sqlSelectPost+sqlWherePostsByUsername, username)
	if err != nil {
		return err, nil
	}
	return scanPosts(rows)
}

// ReadRecentPosts reads the newest posts across all accounts
func (db *DB) ReadRecentPosts(limit int) (error, *[]domain.Post) {
	rows, err := db.db.Query(sqlSelectPost+sqlOrderPostsRecent, limit)
	if err != nil {
		return err, nil
	}
	return scanPosts(rows)
}

// ReadPostsByIds bulk-loads posts with their author graph, keyed by id
func (db *DB) ReadPostsByIds(ids []uuid.UUID) (error, map[uuid.UUID]*domain.Post) {
	posts := make(map[uuid.UUID]*domain.Post)
	if len(ids) == 0 {
		return nil, posts
	}

	query := sqlSelectPost + ` WHERE posts.id IN (` + placeholders(len(ids)) + `)`
	rows, err := db.db.Query(query, idArgs(ids)...)
	if err != nil {
		return err, nil
	}
	err, list := scanPosts(rows)
	if err != nil {
		return err, posts
	}
	for i := range *list {
		post := &(*list)[i]
		posts[post.Id] = post
	}
	return nil, posts
}

func (db *DB) CountPostsByAccountId(accountId uuid.UUID) (error, int) {
	var n int
	err := db.db.QueryRow(sqlCountPostsByAccountId, accountId.String()).Scan(&n)
	return err, n
}

func scanPost(row *sql.Row) (error, *domain.Post) {
	var post domain.Post
	var author domain.Account
	var idStr, authorIdStr, accIdStr string
	var replyTo sql.NullString
	err := row.Scan(&idStr, &authorIdStr, &post.Content, &replyTo, &post.CreatedAt,
		&accIdStr, &author.Username, &author.DisplayName, &author.Summary, &author.CreatedAt)
	if err != nil {
		return err, nil
	}
	post.Id, _ = uuid.Parse(idStr)
	post.AuthorId, _ = uuid.Parse(authorIdStr)
	author.Id, _ = uuid.Parse(accIdStr)
	if replyTo.Valid {
		id, _ := uuid.Parse(replyTo.String)
		post.ReplyToId = &id
	}
	post.Author = &author
	return nil, &post
}

func scanPosts(rows *sql.Rows) (error, *[]domain.Post) {
	defer rows.Close()

	var posts []domain.Post

	for rows.Next() {
		var post domain.Post
		var author domain.Account
		var idStr, authorIdStr, accIdStr string
		var replyTo sql.NullString
		if err := rows.Scan(&idStr, &authorIdStr, &post.Content, &replyTo, &post.CreatedAt,
			&accIdStr, &author.Username, &author.DisplayName, &author.Summary, &author.CreatedAt); err != nil {
			return err, &posts
		}
		post.Id, _ = uuid.Parse(idStr)
		post.AuthorId, _ = uuid.Parse(authorIdStr)
		author.Id, _ = uuid.Parse(accIdStr)
		if replyTo.Valid {
			id, _ := uuid.Parse(replyTo.String)
			post.ReplyToId = &id
		}
		post.Author = &author
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return err, &posts
	}

	return nil, &posts
}

func (db *DB) CreateToken(token *domain.Token) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertToken, token.Token, token.AccountId.String(), bindTime(token.CreatedAt))
		return err
	})
}

func (db *DB) ReadAccByToken(token string) (error, *domain.Account) {
	return db.scanAccount(db.db.QueryRow(sqlSelectAccByToken, token))
}

// wrapTransaction runs the given function within a transaction.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("error starting transaction: %s", err)
		return err
	}
	for {
		err = f(tx)
		if err != nil {
			serr, ok := err.(*sqlite.Error)
			if ok && serr.Code() == sqlitelib.SQLITE_BUSY {
				continue
			}
			tx.Rollback()
			return err
		}
		err = tx.Commit()
		if err != nil {
			log.Printf("error committing transaction: %s", err)
			return err
		}
		break
	}
	return nil
}

// Timestamps are stored as fixed-width UTC text so that ORDER BY compares
// chronologically.
const timeLayout = "2006-01-02 15:04:05.000000000-07:00"

func bindTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []uuid.UUID) []interface{} {
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id.String())
	}
	return args
}
