package db

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/quillpub/quill/domain"
)

const (
	sqlRelationshipCols = `id, type, actor_account_id, actor_url, object_account_id, object_post_id, object_url, approved, approved_at, created_at`

	sqlInsertRelationship = `INSERT INTO relationships(id, type, actor_account_id, actor_url, object_account_id, object_post_id, object_url, approved, approved_at, created_at)
                             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlDeleteRelationship = `DELETE FROM relationships WHERE id = ?`

	sqlSelectRelationships              = `SELECT id, type, actor_account_id, actor_url, object_account_id, object_post_id, object_url, approved, approved_at, created_at FROM relationships`
	sqlWhereRelationshipsByActor        = ` WHERE actor_account_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`
	sqlWhereFollowersOfAccount          = ` WHERE type = 'Follow' AND object_account_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`
	sqlWhereFollowingOfAccount          = ` WHERE type = 'Follow' AND actor_account_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`
	sqlCountRelationshipsByActor        = `SELECT COUNT(*) FROM relationships WHERE actor_account_id = ?`
	sqlCountFollowersOfAccount          = `SELECT COUNT(*) FROM relationships WHERE type = 'Follow' AND object_account_id = ?`
	sqlCountFollowingOfAccount          = `SELECT COUNT(*) FROM relationships WHERE type = 'Follow' AND actor_account_id = ?`
)

func (db *DB) CreateRelationship(rel *domain.Relationship) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		var actorAccount, actorURL interface{}
		switch rel.Actor.Kind {
		case domain.RefLocalAccount:
			actorAccount = rel.Actor.AccountId.String()
		case domain.RefRemote:
			actorURL = rel.Actor.URL
		}

		var objectAccount, objectPost, objectURL interface{}
		switch rel.Object.Kind {
		case domain.RefLocalAccount:
			objectAccount = rel.Object.AccountId.String()
		case domain.RefLocalPost:
			objectPost = rel.Object.PostId.String()
		case domain.RefRemote:
			objectURL = rel.Object.URL
		}

		var approved interface{}
		if rel.Approved != nil {
			approved = *rel.Approved
		}
		var approvedAt interface{}
		if rel.ApprovedAt != nil {
			approvedAt = bindTime(*rel.ApprovedAt)
		}

		_, err := tx.Exec(sqlInsertRelationship,
			rel.Id.String(),
			string(rel.Type),
			actorAccount,
			actorURL,
			objectAccount,
			objectPost,
			objectURL,
			approved,
			approvedAt,
			bindTime(rel.CreatedAt),
		)
		return err
	})
}

func (db *DB) DeleteRelationshipById(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteRelationship, id.String())
		return err
	})
}

// FindRelationship looks up the single active edge matching the given type,
// actor identity and object identity. Local references match on record id,
// remote references on URL text. Returns sql.ErrNoRows when no edge exists.
func (db *DB) FindRelationship(rtype domain.RelType, actor domain.ActorRef, object domain.ObjectRef) (error, *domain.Relationship) {
	query := sqlSelectRelationships + ` WHERE type = ?`
	args := []interface{}{string(rtype)}

	if actor.Kind == domain.RefRemote {
		query += ` AND actor_url = ?`
		args = append(args, actor.URL)
	} else {
		query += ` AND actor_account_id = ?`
		args = append(args, actor.AccountId.String())
	}

	switch object.Kind {
	case domain.RefLocalAccount:
		query += ` AND object_account_id = ?`
		args = append(args, object.AccountId.String())
	case domain.RefLocalPost:
		query += ` AND object_post_id = ?`
		args = append(args, object.PostId.String())
	case domain.RefRemote:
		query += ` AND object_url = ?`
		args = append(args, object.URL)
	}

	query += ` LIMIT 1`

	rows, err := db.db.Query(query, args...)
	if err != nil {
		return err, nil
	}
	err, rels := db.scanRelationships(rows)
	if err != nil {
		return err, nil
	}
	if len(*rels) == 0 {
		return sql.ErrNoRows, nil
	}
	return nil, &(*rels)[0]
}

func (db *DB) ReadRelationshipsByActor(accountId uuid.UUID, limit, offset int) (error, *[]domain.Relationship) {
	rows, err := db.db.Query(sqlSelectRelationships+sqlWhereRelationshipsByActor, accountId.String(), limit, offset)
	if err != nil {
		return err, nil
	}
	return db.scanRelationships(rows)
}

func (db *DB) ReadFollowersOfAccount(accountId uuid.UUID, limit, offset int) (error, *[]domain.Relationship) {
	rows, err := db.db.Query(sqlSelectRelationships+sqlWhereFollowersOfAccount, accountId.String(), limit, offset)
	if err != nil {
		return err, nil
	}
	return db.scanRelationships(rows)
}

func (db *DB) ReadFollowingOfAccount(accountId uuid.UUID, limit, offset int) (error, *[]domain.Relationship) {
	rows, err := db.db.Query(sqlSelectRelationships+sqlWhereFollowingOfAccount, accountId.String(), limit, offset)
	if err != nil {
		return err, nil
	}
	return db.scanRelationships(rows)
}

// ReadRelationshipsByIds bulk-loads relationships with their related records,
// keyed by id
func (db *DB) ReadRelationshipsByIds(ids []uuid.UUID) (error, map[uuid.UUID]*domain.Relationship) {
	rels := make(map[uuid.UUID]*domain.Relationship)
	if len(ids) == 0 {
		return nil, rels
	}

	query := sqlSelectRelationships + ` WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := db.db.Query(query, idArgs(ids)...)
	if err != nil {
		return err, nil
	}
	err, list := db.scanRelationships(rows)
	if err != nil {
		return err, rels
	}
	for i := range *list {
		rel := &(*list)[i]
		rels[rel.Id] = rel
	}
	return nil, rels
}

func (db *DB) CountRelationshipsByActor(accountId uuid.UUID) (error, int) {
	var n int
	err := db.db.QueryRow(sqlCountRelationshipsByActor, accountId.String()).Scan(&n)
	return err, n
}

func (db *DB) CountFollowersOfAccount(accountId uuid.UUID) (error, int) {
	var n int
	err := db.db.QueryRow(sqlCountFollowersOfAccount, accountId.String()).Scan(&n)
	return err, n
}

func (db *DB) CountFollowingOfAccount(accountId uuid.UUID) (error, int) {
	var n int
	err := db.db.QueryRow(sqlCountFollowingOfAccount, accountId.String()).Scan(&n)
	return err, n
}

// scanRelationships reads relationship rows and loads the related account and
// post records the refs point at, so callers can render edges directly.
func (db *DB) scanRelationships(rows *sql.Rows) (error, *[]domain.Relationship) {
	defer rows.Close()

	var rels []domain.Relationship

	for rows.Next() {
		var rel domain.Relationship
		var idStr, typeStr string
		var actorAccount, actorURL, objectAccount, objectPost, objectURL sql.NullString
		var approved sql.NullBool
		var approvedAt sql.NullTime

		if err := rows.Scan(&idStr, &typeStr, &actorAccount, &actorURL, &objectAccount, &objectPost, &objectURL, &approved, &approvedAt, &rel.CreatedAt); err != nil {
			return err, &rels
		}

		rel.Id, _ = uuid.Parse(idStr)
		rel.Type = domain.RelType(typeStr)

		if actorAccount.Valid {
			id, _ := uuid.Parse(actorAccount.String)
			rel.Actor = domain.LocalActor(id)
		} else {
			rel.Actor = domain.RemoteActor(actorURL.String)
		}

		switch {
		case objectAccount.Valid:
			id, _ := uuid.Parse(objectAccount.String)
			rel.Object = domain.LocalAccountObject(id)
		case objectPost.Valid:
			id, _ := uuid.Parse(objectPost.String)
			rel.Object = domain.LocalPostObject(id)
		default:
			rel.Object = domain.RemoteObject(objectURL.String)
		}

		if approved.Valid {
			v := approved.Bool
			rel.Approved = &v
		}
		if approvedAt.Valid {
			t := approvedAt.Time
			rel.ApprovedAt = &t
		}

		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return err, &rels
	}

	if err := db.loadRelationshipGraph(rels); err != nil {
		return err, &rels
	}

	return nil, &rels
}

// loadRelationshipGraph attaches the account and post records referenced by
// the given edges
func (db *DB) loadRelationshipGraph(rels []domain.Relationship) error {
	var accountIds, postIds []uuid.UUID

	for i := range rels {
		if rels[i].Actor.Kind == domain.RefLocalAccount {
			accountIds = append(accountIds, rels[i].Actor.AccountId)
		}
		switch rels[i].Object.Kind {
		case domain.RefLocalAccount:
			accountIds = append(accountIds, rels[i].Object.AccountId)
		case domain.RefLocalPost:
			postIds = append(postIds, rels[i].Object.PostId)
		}
	}

	err, accounts := db.ReadAccountsByIds(accountIds)
	if err != nil {
		return err
	}
	err, posts := db.ReadPostsByIds(postIds)
	if err != nil {
		return err
	}

	for i := range rels {
		if rels[i].Actor.Kind == domain.RefLocalAccount {
			rels[i].Actor.Account = accounts[rels[i].Actor.AccountId]
		}
		switch rels[i].Object.Kind {
		case domain.RefLocalAccount:
			rels[i].Object.Account = accounts[rels[i].Object.AccountId]
		case domain.RefLocalPost:
			rels[i].Object.Post = posts[rels[i].Object.PostId]
		}
	}

	return nil
}
