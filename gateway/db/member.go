package db

import (
	"time"
)

type Member struct {
	ChatID     int64
	PartnerUID string
	JoinedAt   time.Time
}

// UpsertMember records a verified member, replacing any earlier record for
// the same chat id. joinedAt is stored as the moment of this verification,
// overwriting the previous one on re-verification.
func (d *DB) UpsertMember(chatID int64, partnerUID string, joinedAt time.Time) error {
	_, err := d.Exec(`
		insert into members (chat_id, partner_uid, joined_at)
		values (?, ?, ?)
		on conflict(chat_id) do update set
			partner_uid = excluded.partner_uid,
			joined_at = excluded.joined_at
	`, chatID, partnerUID, joinedAt.UTC().Format(time.RFC3339))
	return err
}

func (d *DB) GetMember(chatID int64) (*Member, error) {
	var member Member
	var joinedAt string
	err := d.QueryRow(
		`select chat_id, partner_uid, joined_at from members where chat_id = ?`,
		chatID,
	).Scan(&member.ChatID, &member.PartnerUID, &joinedAt)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, joinedAt); err == nil {
		member.JoinedAt = t
	}

	return &member, nil
}

func (d *DB) MemberUIDs() ([]string, error) {
	rows, err := d.Query(`select partner_uid from members order by rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		uids = append(uids, uid)
	}

	return uids, rows.Err()
}

func (d *DB) MemberCount() (int, error) {
	var count int
	err := d.QueryRow(`select count(*) from members`).Scan(&count)
	return count, err
}
