package domain

import "time"

// User is the minimal owner entity referenced by createdBy fields and audit
// entries. Authentication and session handling live outside this service; the
// identity of a caller arrives as a header on the API surface.
type User struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Username string `gorm:"uniqueIndex;not null;size:255" json:"username"`
	Role     string `gorm:"not null;default:'user';check:role IN ('user', 'admin')" json:"role"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
