package user

// ExpenseEntry is a single logged spending. Entries are append-only and
// never edited after the fact.
type ExpenseEntry struct {
	Amount float64 `json:"amount"`
	Item   string  `json:"item"`
	Date   string  `json:"date"`
	Month  int     `json:"month"`
}

// BillEntry is a stored receipt photo reference with its label.
type BillEntry struct {
	Label  string `json:"label"`
	FileID string `json:"fileId"`
	Date   string `json:"date"`
}

// Record is the persisted per-user state. The zero value is a valid
// record for a user that has never written anything.
type Record struct {
	Authorized bool           `json:"authorized"`
	DailyLimit float64        `json:"dailyLimit"`
	Logs       []ExpenseEntry `json:"logs"`
	Vault      []BillEntry    `json:"vault"`
}
