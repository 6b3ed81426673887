package database

// Case lifecycle statuses. Draft cases are being set up and do not accept
// detection change-sets; only active cases do. Closed cases are read-only.
const (
	CaseStatusDraft  = "draft"
	CaseStatusActive = "active"
	CaseStatusClosed = "closed"
)

// IsValidCaseStatus reports whether s is a known case status.
func IsValidCaseStatus(s string) bool {
	switch s {
	case CaseStatusDraft, CaseStatusActive, CaseStatusClosed:
		return true
	}
	return false
}
