package security

// Account is what a user lookup hands to the providers: the identifier the
// tokens are issued for, the stored password hash and the status flags that
// gate every successful authentication.
type Account struct {
	Username     string
	PasswordHash string
	Authorities  []string

	Expired  bool
	Locked   bool
	Disabled bool

	// User is carried through to Principal.User untouched.
	User any
}

// PasswordMatcher compares a raw password with a stored hash in constant time.
type PasswordMatcher interface {
	Matches(raw, encoded string) bool
}

// ValidateStatus checks expired, locked and disabled in that order.
func (a *Account) ValidateStatus() error {
	switch {
	case a.Expired:
		return newError(KindAccountExpired, MsgAccountExpired, nil)
	case a.Locked:
		return newError(KindAccountLocked, MsgAccountLocked, nil)
	case a.Disabled:
		return newError(KindAccountDisabled, MsgAccountDisabled, nil)
	}
	return nil
}

// ValidatePassword fails with KindInvalidPassword unless raw matches the
// stored hash. Accounts without a local password never match.
func (a *Account) ValidatePassword(m PasswordMatcher, raw string) error {
	if a.PasswordHash == "" || !m.Matches(raw, a.PasswordHash) {
		return newError(KindInvalidPassword, MsgBadCredentials, nil)
	}
	return nil
}

// Principal builds the verified identity for this account.
func (a *Account) Principal() *Principal {
	authorities := make([]string, len(a.Authorities))
	copy(authorities, a.Authorities)
	return &Principal{
		Subject:     a.Username,
		Authorities: authorities,
		User:        a.User,
	}
}
