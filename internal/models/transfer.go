package models

import "time"

type Direction string

const (
	DirOutgoing Direction = "outgoing"
	DirIncoming Direction = "incoming"
)

// Transfer is one immutable ledger record.
type Transfer struct {
	ID          int64     `json:"id"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
	Amount      int64     `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// TransferEntry is a Transfer joined with both usernames, as shown in an account's history.
type TransferEntry struct {
	Transfer
	SenderUsername    string
	RecipientUsername string
	Direction         Direction
}

// DirectionFor tags the entry relative to accountID.
func (e TransferEntry) DirectionFor(accountID int64) Direction {
	if e.SenderID == accountID {
		return DirOutgoing
	}
	return DirIncoming
}
