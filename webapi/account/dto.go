package account

// LinkAccountRequest represents the request body for linking an account.
type LinkAccountRequest struct {
	Kind          string `json:"kind" validate:"required,oneof=mpesa sbm coop"`
	AccountNumber string `json:"account_number" validate:"required,max=64"`
	Name          string `json:"name" validate:"max=128"`
	Branch        string `json:"branch" validate:"max=128"`
	AccountType   string `json:"account_type" validate:"max=64"`
}
