package ledger

// SeedBalance overwrites the balance for an account when using the in-memory
// store. Test helper only.
func SeedBalance(s Store, accountID string, amount int64) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		acct := mem.accounts[accountID]
		acct.Balance = amount
		mem.accounts[accountID] = acct
	}
}
