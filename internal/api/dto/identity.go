package dto

type IdentityResponse struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	Avatar  string `json:"avatar,omitempty"`
}
