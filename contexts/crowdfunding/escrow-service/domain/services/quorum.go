package services

// HasQuorum reports whether approvals form a strict majority of every
// contributor the campaign has ever had. The denominator is read at
// finalization time, so contributors who join after votes were cast raise
// the bar for requests still pending.
func HasQuorum(approvalCount int, approversCount int) bool {
	if approvalCount <= 0 {
		return false
	}
	return approvalCount*2 > approversCount
}
