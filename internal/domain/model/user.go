package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/myagiz61/backend/internal/domain"
)

// PlanFree is the cached plan of a user without an active subscription.
const PlanFree = "free"

// User carries the denormalized plan cache mirroring the single active
// Subscription. The ledger is authoritative; the cache is resynced on read.
type User struct {
	ID            string
	Email         string
	Name          string
	IsAdmin       bool
	Plan          string
	PlanExpiresAt *time.Time
	RegisteredAt  time.Time
}

func NewUser(id, email, name string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:           id,
		Email:        email,
		Name:         strings.TrimSpace(name),
		Plan:         PlanFree,
		RegisteredAt: time.Now(),
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// MirrorsSubscription reports whether the cache already reflects sub.
func (u *User) MirrorsSubscription(planName string, sub *Subscription) bool {
	if sub == nil {
		return u.Plan == PlanFree && u.PlanExpiresAt == nil
	}
	return u.Plan == planName && u.PlanExpiresAt != nil && u.PlanExpiresAt.Equal(sub.EndDate)
}

// ListingQuota is the number of active listings a seller plan allows.
// Unlimited plans report limited=false; sellers without a plan get the basic quota.
func ListingQuota(plan string) (limit int, limited bool) {
	switch plan {
	case "standard":
		return 15, true
	case "pro":
		return 0, false
	}
	return 5, true
}
