package user

// User represents the "user" table.
// Password holds a salted one-way hash, never the plaintext.
type User struct {
	ID       int64
	Username string
	Password string
}
