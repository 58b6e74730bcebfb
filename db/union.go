package db

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UnionRow is the uniform projection every union source is folded into:
// which source a record came from, its id, and its timestamp.
type UnionRow struct {
	Kind string
	Id   uuid.UUID
	Ts   time.Time
}

// UnionSource is one table's contribution to a multi-source collection.
// SelectSQL must yield (id, created_at) rows; Fetch bulk-loads the full
// records (with their eager graph) for a slice of ids.
type UnionSource struct {
	Kind      string
	SelectSQL string
	Args      []interface{}
	CountSQL  string
	CountArgs []interface{}
	Fetch     func(ids []uuid.UUID) (map[uuid.UUID]interface{}, error)
}

// UnionSlice folds all sources into one (kind, id, ts) relation, orders it by
// timestamp descending and applies limit/offset in the database, so a page can
// be cut across heterogeneous tables without materializing all rows.
func (db *DB) UnionSlice(sources []UnionSource, limit, offset int) ([]UnionRow, error) {
	parts := make([]string, 0, len(sources))
	var args []interface{}

	for _, src := range sources {
		parts = append(parts, `SELECT ? AS kind, id, created_at FROM (`+src.SelectSQL+`)`)
		args = append(args, src.Kind)
		args = append(args, src.Args...)
	}

	query := `SELECT kind, id, created_at FROM (` + strings.Join(parts, ` UNION ALL `) + `) ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// created_at loses its decltype through the UNION subqueries, so the
	// driver yields text here rather than time.Time
	var result []UnionRow
	for rows.Next() {
		var row UnionRow
		var idStr, tsStr string
		if err := rows.Scan(&row.Kind, &idStr, &tsStr); err != nil {
			return nil, err
		}
		row.Id, _ = uuid.Parse(idStr)
		row.Ts, _ = time.Parse(timeLayout, tsStr)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// PostsByAccountSource contributes an account's posts to a union collection
func (db *DB) PostsByAccountSource(accountId uuid.UUID) UnionSource {
	return UnionSource{
		Kind:      "post",
		SelectSQL: `SELECT id, created_at FROM posts WHERE author_id = ?`,
		Args:      []interface{}{accountId.String()},
		CountSQL:  sqlCountPostsByAccountId,
		CountArgs: []interface{}{accountId.String()},
		Fetch: func(ids []uuid.UUID) (map[uuid.UUID]interface{}, error) {
			err, posts := db.ReadPostsByIds(ids)
			if err != nil {
				return nil, err
			}
			records := make(map[uuid.UUID]interface{}, len(posts))
			for id, post := range posts {
				records[id] = post
			}
			return records, nil
		},
	}
}

// RelationshipsByActorSource contributes an account's follow, like and boost
// edges to a union collection
func (db *DB) RelationshipsByActorSource(accountId uuid.UUID) UnionSource {
	return UnionSource{
		Kind:      "relationship",
		SelectSQL: `SELECT id, created_at FROM relationships WHERE actor_account_id = ?`,
		Args:      []interface{}{accountId.String()},
		CountSQL:  sqlCountRelationshipsByActor,
		CountArgs: []interface{}{accountId.String()},
		Fetch: func(ids []uuid.UUID) (map[uuid.UUID]interface{}, error) {
			err, rels := db.ReadRelationshipsByIds(ids)
			if err != nil {
				return nil, err
			}
			records := make(map[uuid.UUID]interface{}, len(rels))
			for id, rel := range rels {
				records[id] = rel
			}
			return records, nil
		},
	}
}

// UnionCount sums the per-source counts
func (db *DB) UnionCount(sources []UnionSource) (int, error) {
	total := 0
	for _, src := range sources {
		var n int
		if err := db.db.QueryRow(src.CountSQL, src.CountArgs...).Scan(&n); err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
