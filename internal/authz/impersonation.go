package authz

import (
	"context"
	"errors"
	"strconv"

	"github.com/quorum-app/quorum/internal/audit"
	"github.com/quorum-app/quorum/internal/shared"
)

// Session keys holding the impersonation entry. Both are set together and
// cleared together; their lifetime is the caller's session.
const (
	sessionKeyOriginalID     = "impersonate_original_id"
	sessionKeyImpersonatedID = "impersonate_user_id"
)

// ResolveActor determines the acting identity for a request. While
// impersonation is active, the impersonated identity is returned; if it no
// longer resolves the entry is discarded and resolution falls back to the
// session owner.
func (s *Service) ResolveActor(ctx context.Context, sess *shared.Session) (Actor, error) {
	if sess == nil || sess.User() == "" {
		return Actor{}, shared.ErrUnauthenticated
	}
	originalID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return Actor{}, shared.ErrUnauthenticated
	}

	if raw := sess.Get(sessionKeyImpersonatedID); raw != "" {
		if targetID, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
			grants, grantsErr := s.GrantsFor(ctx, targetID)
			if grantsErr == nil {
				return Actor{Grants: grants, Impersonating: true, OriginalID: originalID}, nil
			}
			if !errors.Is(grantsErr, shared.ErrNotFound) {
				return Actor{}, grantsErr
			}
		}
		// Target vanished: self-heal and resolve the original normally.
		clearImpersonation(sess)
	}

	grants, err := s.GrantsFor(ctx, originalID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Actor{}, shared.ErrUnauthenticated
		}
		return Actor{}, err
	}
	return Actor{Grants: grants, OriginalID: originalID}, nil
}

// StartImpersonation switches the session to act as target. Only an
// authenticated admin may start it, and only toward a live identity; a
// refused transition leaves the session untouched. Nesting is refused:
// an active impersonation must be stopped before starting another.
func (s *Service) StartImpersonation(ctx context.Context, sess *shared.Session, targetID int64) error {
	actor, err := s.ResolveActor(ctx, sess)
	if err != nil {
		return err
	}
	if actor.Impersonating {
		return shared.ErrForbidden
	}
	// The check runs against the pre-impersonation identity.
	original, err := s.GrantsFor(ctx, actor.OriginalID)
	if err != nil {
		return shared.ErrUnauthenticated
	}
	if !original.IsAdmin() {
		return shared.ErrForbidden
	}
	if _, err := s.GrantsFor(ctx, targetID); err != nil {
		return err
	}
	sess.Set(sessionKeyOriginalID, strconv.FormatInt(actor.OriginalID, 10))
	sess.Set(sessionKeyImpersonatedID, strconv.FormatInt(targetID, 10))
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID:  actor.OriginalID,
		Action:   "impersonation.start",
		Entity:   "user",
		EntityID: strconv.FormatInt(targetID, 10),
	})
	return nil
}

// StopImpersonation unconditionally clears the impersonation entry.
func (s *Service) StopImpersonation(ctx context.Context, sess *shared.Session) {
	if sess == nil {
		return
	}
	if raw := sess.Get(sessionKeyImpersonatedID); raw != "" {
		if originalRaw := sess.Get(sessionKeyOriginalID); originalRaw != "" {
			if originalID, err := strconv.ParseInt(originalRaw, 10, 64); err == nil {
				_ = s.audit.Record(ctx, audit.Entry{
					ActorID:  originalID,
					Action:   "impersonation.stop",
					Entity:   "user",
					EntityID: raw,
				})
			}
		}
	}
	clearImpersonation(sess)
}

func clearImpersonation(sess *shared.Session) {
	sess.Delete(sessionKeyOriginalID)
	sess.Delete(sessionKeyImpersonatedID)
}
