package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// BookJSON is a small policy book in the file source format: two FI
// policies, one MARINE, one MOTOR and a row with no class.
const BookJSON = `[
	{"srl": "1", "policy_name": "Lagos Fire Treaty", "class": "FI", "country": "nigeria",
	 "underwriting_year": "2023", "inception_date": "01/03/2023", "gross_premium": "1,000",
	 "paid_claims": "300", "outstanding_claims": "100", "acquisition_cost": "150",
	 "policy_status": "Renewed", "renewal_date": "2024-03-01", "broker": "Aon"},
	{"srl": "2", "policy_name": "Accra Hull", "class": "MARINE", "country": "Ghana",
	 "underwriting_year": "2023", "inception_date": "2023-07-15", "gross_premium": "400",
	 "paid_claims": "50", "policy_status": "Not Renewed", "renewal_date": "2024-07-15"},
	{"srl": "3", "policy_name": "Abuja Property", "class": "FI", "country": "NG",
	 "underwriting_year": "2024", "inception_date": "2024-02-01", "gross_premium": "600",
	 "policy_status": "Upcoming renewal", "renewal_date": "2025-02-01", "broker": "Marsh"},
	{"srl": "4", "policy_name": "Fronting Motor", "class": "MOTOR", "country": "Kenya",
	 "underwriting_year": "2024", "gross_premium": "250", "renewal_date": "2025-01-01"},
	{"srl": "5", "policy_name": "Unclassified", "underwriting_year": "2024", "gross_premium": "200"}
]`

// WriteBook writes content to a book.json in a fresh temp directory and
// returns its path.
func WriteBook(t testing.TB, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "book.json")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write policy book: %v", err)
	}
	return p
}
