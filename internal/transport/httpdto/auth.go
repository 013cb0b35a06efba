package httpdto

// Page types returned by the GET form endpoints and failed logins.
const (
	FormTypeSignIn = "SIGNIN"
	FormTypeSignUp = "SIGNUP"
)

// CredentialsForm is the urlencoded body of login and register posts.
type CredentialsForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

type FormPage struct {
	Type    string   `json:"type"`
	Flashes []string `json:"flashes,omitempty"`
}

type LoginFailure struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type RegisterSuccess struct {
	Success string `json:"success"`
}

type RegisterFailure struct {
	Error string `json:"error"`
}

type MeResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type HomeResponse struct {
	UserID *int64 `json:"user_id"`
}
