package authenticator

import (
	"context"
	"fmt"
	"log/slog"

	"QuorumCert/internal/entities"
	"QuorumCert/internal/logger"
	"QuorumCert/internal/multisigner"
)

// SingleSignatureAuthenticator stamps the authentication status of inbound
// single signatures. Verification failure is an outcome, not an error: it
// folds into the Unauthenticated status. Only infrastructure failures from
// the multi-signer propagate as errors, so an outage is never silently
// reported as "signer unauthenticated".
type SingleSignatureAuthenticator struct {
	multiSigner multisigner.MultiSigner // multiSigner owns the epoch verification-key state
	log         *slog.Logger            // log is the component logger
}

// New creates a SingleSignatureAuthenticator.
func New(multiSigner multisigner.MultiSigner) *SingleSignatureAuthenticator {
	return &SingleSignatureAuthenticator{
		multiSigner: multiSigner,
		log:         logger.With("component", "authenticator"),
	}
}

// Authenticate verifies a single signature against the signed message and
// mutates the signature's authentication status in place as its sole effect.
// The status is recomputed from scratch on every call: a signature that
// previously authenticated is demoted if the current check fails.
//
// Decision procedure, short-circuiting on first success:
//  1. Verify against the current epoch's stake distribution.
//  2. On mismatch, verify against the next epoch's stake distribution.
//     Signers may detect epoch changes before the aggregator and send
//     signatures using the next epoch's key material.
//  3. On mismatch of both, the signature is unauthenticated.
func (a *SingleSignatureAuthenticator) Authenticate(ctx context.Context, signature *entities.SingleSignature, signedMessage string) error {
	status, err := a.decide(ctx, signature, signedMessage)
	if err != nil {
		return err
	}

	signature.AuthenticationStatus = status

	return nil
}

// decide computes the authentication status without side effects.
func (a *SingleSignatureAuthenticator) decide(ctx context.Context, signature *entities.SingleSignature, signedMessage string) (entities.AuthenticationStatus, error) {
	if err := ctx.Err(); err != nil {
		return entities.Unauthenticated, err
	}

	err := a.multiSigner.VerifySingleSignature(signedMessage, signature)
	if err == nil {
		a.log.Debug("single signature authenticated for current stake distribution",
			"party_id", signature.PartyID,
		)

		return entities.Authenticated, nil
	}

	if !multisigner.IsVerificationFailure(err) {
		return entities.Unauthenticated, fmt.Errorf("verify single signature for party %s:\n%w", signature.PartyID, err)
	}

	err = a.multiSigner.VerifySingleSignatureForNextEpoch(signedMessage, signature)
	if err == nil {
		a.log.Debug("single signature authenticated for next stake distribution",
			"party_id", signature.PartyID,
		)

		return entities.Authenticated, nil
	}

	if !multisigner.IsVerificationFailure(err) {
		return entities.Unauthenticated, fmt.Errorf("verify single signature for next epoch for party %s:\n%w", signature.PartyID, err)
	}

	a.log.Debug("single signature not authenticated",
		"party_id", signature.PartyID,
	)

	return entities.Unauthenticated, nil
}
