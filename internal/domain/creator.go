package domain

// CreatorProfile summarizes wallet analysis of a token creator.
// The analyzer never fails; on error it degrades to the zero value.
type CreatorProfile struct {
	NumTokensCreated   int
	HasRugPullHistory  bool
	AssociatedWallets  []string
	SuspiciousPatterns []string
}
