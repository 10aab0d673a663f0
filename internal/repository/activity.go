package repository

import (
	"context"

	"github.com/dmitrymomot/campus/pkg/pool"
)

// Activity writes audit log rows for auth events.
type Activity struct {
	base
}

// NewActivity creates the activity log repository over a named pool.
func NewActivity(p *pool.Manager, poolName string) *Activity {
	return &Activity{base: newBase(p, poolName)}
}

// Log records one audit entry.
func (r *Activity) Log(ctx context.Context, userID int64, action, ip, userAgent string) error {
	return r.withConn(ctx, func(conn *pool.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO activity_log (user_id, action, ip, user_agent)
			VALUES ($1, $2, $3, $4)`,
			userID, action, ip, userAgent)
		return err
	})
}

// RecentByUser returns the user's latest audit entries.
func (r *Activity) RecentByUser(ctx context.Context, userID int64, limit int) ([]ActivityEntry, error) {
	var out []ActivityEntry
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, user_id, action, ip, user_agent, created_at
			FROM activity_log WHERE user_id = $1
			ORDER BY created_at DESC LIMIT $2`,
			userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var e ActivityEntry
			if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.IP, &e.UserAgent, &e.CreatedAt); err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, mapError(err)
}
