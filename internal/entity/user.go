package entity

type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// WithoutPassword - returns a copy safe to put in a pairing roster.
func (that *User) WithoutPassword() *User {
	return &User{Username: that.Username}
}
