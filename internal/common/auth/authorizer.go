package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"accelerator-admin/internal/cache"
	"accelerator-admin/internal/common/errors"
	"accelerator-admin/internal/common/logger"
)

const roleCachePrefix = "profile-role:"

// RoleAuthorizer decides whether an actor may use the admin surface.
type RoleAuthorizer struct {
	allow     map[string]struct{}
	adminRole string
	db        *sql.DB
	cache     *cache.Cache
	ttl       time.Duration
	logger    logger.Logger
}

// NewRoleAuthorizer checks, in order, the static allowlist, the role carried
// in the token and the profiles table. db may be nil to skip the lookup.
func NewRoleAuthorizer(adminIDs []string, adminRole string, db *sql.DB, c *cache.Cache, ttl time.Duration, log logger.Logger) *RoleAuthorizer {
	allow := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		if id = strings.TrimSpace(id); id != "" {
			allow[id] = struct{}{}
		}
	}
	if adminRole == "" {
		adminRole = "admin"
	}
	return &RoleAuthorizer{
		allow:     allow,
		adminRole: adminRole,
		db:        db,
		cache:     c,
		ttl:       ttl,
		logger:    log.WithFields(map[string]interface{}{"component": "authorizer"}),
	}
}

func (a *RoleAuthorizer) IsAdmin(ctx context.Context, actor *Actor) (bool, error) {
	if actor == nil || actor.ID == "" {
		return false, errors.NewUnauthenticatedError("no actor")
	}
	if _, ok := a.allow[actor.ID]; ok {
		return true, nil
	}
	if actor.HasRole(a.adminRole) {
		return true, nil
	}
	if a.db == nil {
		return false, nil
	}

	role, err := cache.Remember(ctx, a.cache, roleCachePrefix+actor.ID, a.ttl, func(ctx context.Context) (string, error) {
		return a.profileRole(ctx, actor.ID)
	})
	if err != nil {
		return false, err
	}
	return strings.EqualFold(role, a.adminRole), nil
}

func (a *RoleAuthorizer) profileRole(ctx context.Context, userID string) (string, error) {
	var role sql.NullString
	err := a.db.QueryRowContext(ctx, `SELECT role FROM profiles WHERE id = $1`, userID).Scan(&role)
	if err == sql.ErrNoRows {
		a.logger.Debug("no profile for actor", map[string]interface{}{"actorId": userID})
		return "", nil
	}
	if err != nil {
		return "", errors.NewUpstreamFailureError("profiles", err)
	}
	return role.String, nil
}
