// internal/domain/shop/entity.go
package shop

import (
	"context"
	"errors"
	"time"

	xerrors "duka-service/internal/pkg/errors"
)

type Shop struct {
	ID        int64     `json:"id" db:"id"`
	OwnerID   int64     `json:"owner_id" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	Location  string    `json:"location,omitempty" db:"location"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DaysSinceCreated counts whole days elapsed, rounding toward negative infinity.
func (s *Shop) DaysSinceCreated(now time.Time) int {
	d := now.Sub(s.CreatedAt)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleOwner      Role = "owner"
	RoleEmployee   Role = "employee"
)

// Finder is the lookup an owner needs to find their shop.
type Finder interface {
	FindFirstByOwner(ctx context.Context, ownerID int64) (*Shop, error)
}

// Actor is the authenticated caller. Each variant knows how to find the
// tenant it acts for.
type Actor interface {
	UserID() int64
	Role() Role
	// ResolveTenant returns the shop the actor works in. ok is false when
	// there is none.
	ResolveTenant(ctx context.Context, shops Finder) (shopID int64, ok bool, err error)
}

type Owner struct {
	ID int64
}

func (o Owner) UserID() int64 { return o.ID }
func (o Owner) Role() Role    { return RoleOwner }

func (o Owner) ResolveTenant(ctx context.Context, shops Finder) (int64, bool, error) {
	s, err := shops.FindFirstByOwner(ctx, o.ID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return s.ID, true, nil
}

type Employee struct {
	ID     int64
	ShopID int64 // zero when unassigned
}

func (e Employee) UserID() int64 { return e.ID }
func (e Employee) Role() Role    { return RoleEmployee }

func (e Employee) ResolveTenant(context.Context, Finder) (int64, bool, error) {
	return e.ShopID, e.ShopID != 0, nil
}

type SuperAdmin struct {
	ID int64
}

func (a SuperAdmin) UserID() int64 { return a.ID }
func (a SuperAdmin) Role() Role    { return RoleSuperAdmin }

func (a SuperAdmin) ResolveTenant(context.Context, Finder) (int64, bool, error) {
	return 0, false, nil
}
