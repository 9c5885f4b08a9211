package domain

// VerifiedToken is an entry from the community token list. Membership
// is treated as effectively static for the process lifetime.
type VerifiedToken struct {
	ChainID  int    `json:"chainId"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
	LogoURI  string `json:"logoURI"`

	Extensions struct {
		Website     string `json:"website"`
		Description string `json:"description"`
	} `json:"extensions"`
}
