package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model is embedded by every entity. IDs are UUID strings generated on insert.
type Model struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate assigns an ID when the caller did not supply one.
func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type User struct {
	Model
	Email string `gorm:"uniqueIndex;not null"`
	Name  string
	Image string
}

// Role of a user inside a space.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

type Space struct {
	Model
	Name    string `gorm:"not null"`
	Slug    string `gorm:"uniqueIndex;not null"`
	OwnerID string `gorm:"type:uuid;not null;index"`
	Owner   User   `gorm:"foreignKey:OwnerID"`
}

// SpaceUser is a membership row; policy checks are expressed against it.
type SpaceUser struct {
	Model
	SpaceID string `gorm:"type:uuid;not null;uniqueIndex:idx_space_user"`
	UserID  string `gorm:"type:uuid;not null;uniqueIndex:idx_space_user"`
	Role    Role   `gorm:"not null;default:USER"`
	Space   Space  `gorm:"foreignKey:SpaceID;constraint:OnDelete:CASCADE"`
	User    User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

type List struct {
	Model
	SpaceID string `gorm:"type:uuid;not null;index"`
	OwnerID string `gorm:"type:uuid;not null"`
	Title   string `gorm:"not null"`
	Private bool   `gorm:"not null;default:false"`
	Space   Space  `gorm:"foreignKey:SpaceID;constraint:OnDelete:CASCADE"`
	Owner   User   `gorm:"foreignKey:OwnerID"`
}

// Task is a reusable unit of work scoped to a space.
type Task struct {
	Model
	Title       string  `gorm:"not null"`
	Description *string `gorm:"type:text"`
	SpaceID     string  `gorm:"type:uuid;not null;index"`
	OwnerID     string  `gorm:"type:uuid;not null"`
	Space       Space   `gorm:"foreignKey:SpaceID;constraint:OnDelete:CASCADE"`
	Owner       User    `gorm:"foreignKey:OwnerID"`
}

// Todo places a Task on a List. A nil CompletedAt means incomplete.
type Todo struct {
	Model
	ListID      string `gorm:"type:uuid;not null;index"`
	TaskID      string `gorm:"type:uuid;not null;index"`
	OwnerID     string `gorm:"type:uuid;not null"`
	CompletedAt *time.Time
	List        List `gorm:"foreignKey:ListID;constraint:OnDelete:CASCADE"`
	Task        Task `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Owner       User `gorm:"foreignKey:OwnerID"`
}

// Completed reports whether the todo has a completion timestamp.
func (t Todo) Completed() bool {
	return t.CompletedAt != nil
}

// All lists every model in migration order.
func All() []any {
	return []any{&User{}, &Space{}, &SpaceUser{}, &List{}, &Task{}, &Todo{}}
}
