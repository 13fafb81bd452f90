package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// Challenge is an in-memory challenge definition merged with the mutable
// visibility flags held in storage. Everything except IsOpen/IsFreezed is
// immutable after load.
type Challenge struct {
	ID            string
	Name          string
	Category      string
	Description   string
	Author        string
	Answer        string // secret; never serialized
	HasAttachment bool
	Dir           string // source directory, used for attachment packaging

	IsOpen    bool
	IsFreezed bool
}

// ChallengeID derives the stable challenge id from its name, so repeated
// loads of the same definition map to the same row across restarts.
func ChallengeID(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:])
}
