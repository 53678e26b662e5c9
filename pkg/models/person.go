package models

// NotAvailable is shown for any person field the directory did not return.
const NotAvailable = "-"

// PersonRecord is one employment as shown in the phone book.
// Every field is a non-empty display string; missing values are NotAvailable.
type PersonRecord struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Mobile     string `json:"mobile"`
	Department string `json:"department"`
	Username   string `json:"username"`
}

// Found reports whether the record is linked to a user account.
func (p PersonRecord) Found() bool {
	return p.Username != "" && p.Username != NotAvailable
}
