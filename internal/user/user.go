package user

import "time"

// Role decides which dashboards a user may open.
type Role string

const (
	RolePatient       Role = "patient"
	RoleHospitalAdmin Role = "hospital_admin"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleHospitalAdmin
}

// Status is the presence indicator shown next to a user's name.
type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusOffline Status = "offline"
)

func (s Status) Valid() bool {
	return s == StatusOnline || s == StatusAway || s == StatusOffline
}

// User mirrors a row of the store's users table. JSON tags keep the
// store's snake_case column names.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"password,omitempty"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Status    Status    `json:"status"`
	Role      Role      `json:"role"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile carries the self-editable fields. Nil fields are left unchanged.
type Profile struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

func sanitizeUser(u User) User {
	u.Password = ""
	return u
}
