// Package roster resolves batch identities to their current learner
// membership. Resolution happens at start-attempt time so enrollment changes
// are honored up to the moment a learner begins.
package roster

import (
	"context"
	"database/sql"
)

type Resolver interface {
	// Members returns the learner identities currently enrolled in the batch.
	Members(ctx context.Context, orgID, batchID string) ([]string, error)
}

type SQLResolver struct{ db *sql.DB }

func NewSQLResolver(db *sql.DB) *SQLResolver { return &SQLResolver{db: db} }

func (r *SQLResolver) Members(ctx context.Context, orgID, batchID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.learner_id FROM batch_members m
		 JOIN batches b ON b.id = m.batch_id
		 WHERE b.org_id = $1 AND m.batch_id = $2 AND b.status = 'active'`,
		orgID, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Static is a fixed batch -> members map, used in tests and single-file
// deployments.
type Static map[string][]string

func (s Static) Members(_ context.Context, _, batchID string) ([]string, error) {
	return s[batchID], nil
}
