package db

// Attempt results. A row is written for every inbound application message,
// whatever the outcome.
const (
	AttemptApproved        = "approved"
	AttemptBypass          = "bypass"
	AttemptRejectedFormat  = "rejected_format"
	AttemptRejectedPartner = "rejected_partner"
	AttemptError           = "error"
)

func (d *DB) RecordAttempt(chatID int64, input, result string) error {
	_, err := d.Exec(
		`insert into verification_attempts (chat_id, input, result) values (?, ?, ?)`,
		chatID,
		input,
		result,
	)
	return err
}

func (d *DB) AttemptCount() (int, error) {
	var count int
	err := d.QueryRow(`select count(*) from verification_attempts`).Scan(&count)
	return count, err
}
