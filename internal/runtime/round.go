package runtime

import (
	"QuorumCert/internal/entities"
)

// signingRound is one open certification round: the entity being certified,
// the message the signers sign, and the authenticated signatures collected
// so far. A round is mutated only under the runtime's lock.
type signingRound struct {
	entityType    entities.SignedEntityType                      // entityType is what this round certifies
	message       *entities.ProtocolMessage                      // message is the payload under certification
	signedMessage string                                         // signedMessage is the message hash the signers sign
	signatures    map[entities.PartyID]*entities.SingleSignature // signatures are the authenticated signatures by party
}

// newSigningRound opens a round for an entity and its protocol message.
func newSigningRound(entityType entities.SignedEntityType, message *entities.ProtocolMessage) *signingRound {
	return &signingRound{
		entityType:    entityType,
		message:       message,
		signedMessage: message.ComputeHash(),
		signatures:    make(map[entities.PartyID]*entities.SingleSignature),
	}
}

// add records an authenticated signature, last write wins per party.
func (r *signingRound) add(signature *entities.SingleSignature) {
	r.signatures[signature.PartyID] = signature
}

// parties returns the parties that signed this round.
func (r *signingRound) parties() []entities.PartyID {
	parties := make([]entities.PartyID, 0, len(r.signatures))
	for party := range r.signatures {
		parties = append(parties, party)
	}

	return parties
}

// rawSignatures returns the collected signature bytes for aggregation.
func (r *signingRound) rawSignatures() [][]byte {
	raw := make([][]byte, 0, len(r.signatures))
	for _, signature := range r.signatures {
		raw = append(raw, signature.Signature)
	}

	return raw
}
