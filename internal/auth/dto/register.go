package dto

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}
