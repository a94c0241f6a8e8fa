package models

// Account is the stored account document read by the local identity gate.
// Account management itself lives outside this service.
type Account struct {
	Phone    string `json:"phone"`
	FullName string `json:"fullname"`
	Status   string `json:"status"`
	Bio      string `json:"bio"`
	Profile  string `json:"profile"`
	Token    string `json:"token"`
	Role     string `json:"very,omitempty"`
}

// Profile is the public view of a user used to enrich listings.
type Profile struct {
	Username   string `json:"username"`
	FullName   string `json:"fullname"`
	Bio        string `json:"bio"`
	ProfileURL string `json:"profile"`
	Status     string `json:"status"`
	Role       string `json:"admin"`
}

const (
	StatusOffline = "offline"
	RoleUser      = "user"
)
