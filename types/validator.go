package types

// ValidatorInfo describes a member of the consensus layer's validator
// set. Added and removed explicitly; there is no implicit expiry.
type ValidatorInfo struct {
	Address   Address `cramberry:"1"`
	Stake     uint64  `cramberry:"2"`
	PublicKey []byte  `cramberry:"3"`
	Active    bool    `cramberry:"4"`
}
