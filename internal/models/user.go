package models

// User is a student or tutor. Role is free-form; "Head" and "<Subject> Lead" carry approval rights.
type User struct {
	UID          string          `db:"uid" json:"uid"`
	Email        string          `db:"email" json:"email"`
	Name         string          `db:"name" json:"name"`
	Role         string          `db:"role" json:"role"`
	Classes      []string        `db:"-" json:"classes"`
	Availability map[string]bool `db:"-" json:"availability"`
}

// HasClass reports whether the user is approved to tutor class.
func (u User) HasClass(class string) bool {
	for _, c := range u.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// FreeAt reports whether the availability map marks key as free.
func (u User) FreeAt(key string) bool {
	if key == "" || u.Availability == nil {
		return false
	}
	return u.Availability[key]
}
