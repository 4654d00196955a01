package models

import (
	"time"

	"github.com/lib/pq"
)

// Principal type discriminators. Every authenticated account carries one.
const (
	TypeStudent = "student"
	TypeStaff   = "staff"
	TypeAdmin   = "admin"
	TypeUser    = "user"
)

// Student is a learner account keyed by admission number.
type Student struct {
	ID           string     `db:"id" json:"id"`
	AdmissionNo  string     `db:"admission_no" json:"admissionNo"`
	FirstName    string     `db:"first_name" json:"firstName"`
	LastName     string     `db:"last_name" json:"lastName"`
	StudentClass string     `db:"student_class" json:"studentClass"`
	Gender       string     `db:"gender" json:"gender"`
	ParentName   string     `db:"parent_name" json:"parentName"`
	ParentPhone  string     `db:"parent_phone" json:"parentPhone"`
	Address      string     `db:"address" json:"address"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Type         string     `db:"type" json:"type"`
	IsActivated  bool       `db:"is_activated" json:"isActivated"`
	ActivatedAt  *time.Time `db:"activated_at" json:"activatedAt,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// Staff is an employee account keyed by staff identifier.
type Staff struct {
	ID               string         `db:"id" json:"id"`
	StaffID          string         `db:"staff_id" json:"staffId"`
	Surname          string         `db:"surname" json:"surname"`
	Firstname        string         `db:"firstname" json:"firstname"`
	Role             string         `db:"role" json:"role"`
	Department       string         `db:"department" json:"department"`
	ContactEmail     string         `db:"contact_email" json:"contactEmail"`
	ContactPhone     string         `db:"contact_phone" json:"contactPhone"`
	AssignedSubjects pq.StringArray `db:"assigned_subjects" json:"assignedSubjects"`
	AssignedClasses  pq.StringArray `db:"assigned_classes" json:"assignedClasses"`
	PasswordHash     string         `db:"password_hash" json:"-"`
	Type             string         `db:"type" json:"type"`
	IsActivated      bool           `db:"is_activated" json:"isActivated"`
	ActivatedAt      *time.Time     `db:"activated_at" json:"activatedAt,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
}

// User is a generic portal account, typically an administrator. Users are
// always considered activated.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Type         string    `db:"type" json:"type"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Principal is the tagged union over the three account variants. Exactly one
// of the pointers is non-nil.
type Principal struct {
	Student *Student
	Staff   *Staff
	User    *User
}

// ID returns the datastore identifier of the underlying account.
func (p Principal) ID() string {
	switch {
	case p.Student != nil:
		return p.Student.ID
	case p.Staff != nil:
		return p.Staff.ID
	case p.User != nil:
		return p.User.ID
	}
	return ""
}

// Identifier returns the login identifier (admission number, staff id or
// username).
func (p Principal) Identifier() string {
	switch {
	case p.Student != nil:
		return p.Student.AdmissionNo
	case p.Staff != nil:
		return p.Staff.StaffID
	case p.User != nil:
		return p.User.Username
	}
	return ""
}

// Type returns the principal type discriminator.
func (p Principal) Type() string {
	switch {
	case p.Student != nil:
		return p.Student.Type
	case p.Staff != nil:
		return p.Staff.Type
	case p.User != nil:
		return p.User.Type
	}
	return ""
}

// Role returns the application role of the principal.
func (p Principal) Role() string {
	switch {
	case p.Student != nil:
		return TypeStudent
	case p.Staff != nil:
		return p.Staff.Role
	case p.User != nil:
		return p.User.Role
	}
	return ""
}

// PasswordHash returns the stored credential hash.
func (p Principal) PasswordHash() string {
	switch {
	case p.Student != nil:
		return p.Student.PasswordHash
	case p.Staff != nil:
		return p.Staff.PasswordHash
	case p.User != nil:
		return p.User.PasswordHash
	}
	return ""
}

// Activated reports whether the account may log in normally. Generic users
// are pre-activated.
func (p Principal) Activated() bool {
	switch {
	case p.Student != nil:
		return p.Student.IsActivated
	case p.Staff != nil:
		return p.Staff.IsActivated
	}
	return p.User != nil
}

// Public returns the JSON-safe representation of the account, with the
// password hash already excluded by struct tags.
func (p Principal) Public() interface{} {
	switch {
	case p.Student != nil:
		return p.Student
	case p.Staff != nil:
		return p.Staff
	case p.User != nil:
		return p.User
	}
	return nil
}
