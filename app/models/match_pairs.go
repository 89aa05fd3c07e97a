package models

// Pairing represents two participants matched for one round of a session
type Pairing struct {
	User1ID       string  `json:"user1_id" bson:"user1_id"`
	User1Name     string  `json:"user1_name" bson:"user1_name"`
	User2ID       string  `json:"user2_id" bson:"user2_id"`
	User2Name     string  `json:"user2_name" bson:"user2_name"`
	Round         int     `json:"round" bson:"round"`
	Compatibility float64 `json:"compatibility" bson:"compatibility"`
}

// Involves reports whether userID is one side of the pairing
func (p Pairing) Involves(userID string) bool {
	return p.User1ID == userID || p.User2ID == userID
}

// PartnerOf returns the other side of the pairing for userID
func (p Pairing) PartnerOf(userID string) (string, bool) {
	switch userID {
	case p.User1ID:
		return p.User2ID, true
	case p.User2ID:
		return p.User1ID, true
	}
	return "", false
}

// PairKey identifies an unordered pair of users
type PairKey struct {
	A, B string
}

// NewPairKey builds the order-independent key for two users
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// Key returns the unordered pair key of the pairing
func (p Pairing) Key() PairKey {
	return NewPairKey(p.User1ID, p.User2ID)
}
