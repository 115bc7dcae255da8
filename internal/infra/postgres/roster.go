package postgres

import (
	"context"
	"fmt"

	"exam-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// RosterDirectory answers roster and ownership questions from the group_members table
// maintained by the classroom service. It implements app.Roster and app.AdminDirectory.
type RosterDirectory struct {
	pool *pgxpool.Pool
}

func NewRosterDirectory(pool *pgxpool.Pool) *RosterDirectory {
	return &RosterDirectory{pool: pool}
}

func (d *RosterDirectory) IsMember(ctx context.Context, groupID, studentID string) (bool, error) {
	return d.hasRole(ctx, groupID, studentID, domain.RoleStudent)
}

func (d *RosterDirectory) OwnsGroup(ctx context.Context, groupID, adminID string) (bool, error) {
	return d.hasRole(ctx, groupID, adminID, domain.RoleAdmin)
}

// AddMember upserts a membership; used by seeding and tests.
func (d *RosterDirectory) AddMember(ctx context.Context, groupID, memberID string, role domain.Role) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO group_members (group_id, member_id, role) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		groupID, memberID, string(role))
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (d *RosterDirectory) hasRole(ctx context.Context, groupID, memberID string, role domain.Role) (bool, error) {
	var ok bool
	err := d.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id=$1 AND member_id=$2 AND role=$3)`,
		groupID, memberID, string(role)).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("query group_members: %w", err)
	}
	return ok, nil
}
