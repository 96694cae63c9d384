// Copyright © 2025 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package msgs

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"golang.org/x/text/language"
)

const veridictPrefix = "VD01"

var registered sync.Once
var ffe = func(key, translation string, statusHint ...int) i18n.ErrorMessageKey {
	registered.Do(func() {
		i18n.RegisterPrefix(veridictPrefix, "Veridict Condition Engine")
	})
	if !strings.HasPrefix(key, veridictPrefix) {
		panic(fmt.Errorf("must have prefix '%s': %s", veridictPrefix, key))
	}
	return i18n.FFE(language.AmericanEnglish, key, translation, statusHint...)
}

var (
	// Types VD0100XX
	MsgTypesTimeParseFail           = ffe("VD010000", "Cannot parse time as RFC3339, Unix, or UnixNano: '%s'", 400)
	MsgTypesRestoreFailed           = ffe("VD010001", "Failed to restore type '%T' into '%T'")
	MsgTypesScanFail                = ffe("VD010002", "Unable to scan type %T into type %T", 500)
	MsgTypesEnumValueInvalid        = ffe("VD010003", "Value must be one of %s", 400)
	MsgTypesInvalidHex              = ffe("VD010004", "Invalid hex: %s", 400)
	MsgTypesInvalidHexInteger       = ffe("VD010005", "Invalid integer: %s", 400)
	MsgTypesValueInvalidJSON        = ffe("VD010006", "JSON value is invalid", 400)
	MsgTypesUnmarshalNil            = ffe("VD010007", "UnmarshalJSON on nil pointer", 500)
	MsgTypesInvalidBytes32Len       = ffe("VD010008", "Byte length must be 32 (len=%d)", 400)
	MsgTypesBigIntParseFailed       = ffe("VD010009", "Failed to parse JSON value '%s' as big integer", 400)
	MsgTypesBigIntTooLarge          = ffe("VD010010", "Integer size %d exceeds maximum size %d", 400)
	MsgTypesNegativeAmount          = ffe("VD010011", "Amount must not be negative", 400)

	// Components and startup VD0101XX
	MsgComponentDBInitError            = ffe("VD010100", "Error initializing database")
	MsgComponentKeyLoadError           = ffe("VD010101", "Error loading node signing key")
	MsgComponentLedgerInitError        = ffe("VD010102", "Error initializing ledger manager")
	MsgComponentLedgerStartError       = ffe("VD010103", "Error starting ledger manager")
	MsgComponentRelayInitError         = ffe("VD010104", "Error initializing relay manager")
	MsgComponentRelayStartError        = ffe("VD010105", "Error starting relay manager")
	MsgComponentOracleInitError        = ffe("VD010106", "Error initializing oracle aggregator")
	MsgComponentOracleStartError       = ffe("VD010107", "Error starting oracle aggregator")
	MsgComponentConditionInitError     = ffe("VD010108", "Error initializing condition manager")
	MsgComponentConditionStartError    = ffe("VD010109", "Error starting condition manager")
	MsgComponentSettlementInitError    = ffe("VD010110", "Error initializing settlement executor")
	MsgComponentSettlementStartError   = ffe("VD010111", "Error starting settlement executor")
	MsgComponentGovernorInitError      = ffe("VD010112", "Error initializing governor")
	MsgComponentGovernorStartError     = ffe("VD010113", "Error starting governor")
	MsgComponentRPCServerInitError     = ffe("VD010114", "Error initializing RPC server")
	MsgComponentRPCServerStartError    = ffe("VD010115", "Error starting RPC server")
	MsgConfigFileMissing               = ffe("VD010116", "Config file not found at path: %s")
	MsgConfigFileReadError             = ffe("VD010117", "Failed to read config file %s with error: %s")
	MsgConfigFileParseError            = ffe("VD010118", "Failed to parse config file %s with error: %s")
	MsgComponentNodeNameMissing        = ffe("VD010119", "nodeName is required in the configuration, and must match the node's own ledger name")
	MsgComponentOwnLedgerMissing       = ffe("VD010120", "ledgers configuration must contain an entry for the node's own ledger '%s'")

	// Persistence VD0102XX
	MsgPersistenceInvalidType          = ffe("VD010200", "Invalid persistence type: %s")
	MsgPersistenceMissingDSN           = ffe("VD010201", "Missing database connection Data Source Name (DSN)")
	MsgPersistenceInitFailed           = ffe("VD010202", "Database init failed")
	MsgPersistenceMigrationFailed      = ffe("VD010203", "Database migration failed")
	MsgPersistenceMissingMigrationDir  = ffe("VD010204", "Missing database migration directory for autoMigrate")
	MsgPersistenceInvalidDSNTemplate   = ffe("VD010205", "dsnParams were provided, but the DSN supplied is not a valid template")
	MsgPersistenceDSNParamLoadFile     = ffe("VD010206", "Failed to load dsnParams[%s] from '%s'")
	MsgPersistenceDSNTemplateFail      = ffe("VD010207", "Templated substitution into database connection DSN failed")
	MsgPersistenceErrorInDBTransaction = ffe("VD010208", "Error within database transaction: %v")
	MsgPersistenceRequiresTransaction  = ffe("VD010209", "Function called outside of a database transaction requires a transaction")

	// Flush writer VD0103XX
	MsgFlushWriterQuiescing      = ffe("VD010300", "Writer shutting down")
	MsgFlushWriterInvalidResults = ffe("VD010301", "Error in handler produced invalid write results")
	MsgFlushWriterOpInvalid      = ffe("VD010302", "Write operation missing key")

	// HTTP/RPC server and client VD0104XX
	MsgHTTPServerMissingPort          = ffe("VD010400", "HTTP server port must be specified for '%s'")
	MsgHTTPServerStartFailed          = ffe("VD010401", "Failed to start server on '%s'")
	MsgHTTPServerNoWSUpgradeSupport   = ffe("VD010402", "HTTP server does not support WebSocket upgrade (%T)")
	MsgJSONRPCInvalidRequest          = ffe("VD010403", "Invalid JSON/RPC request data", 400)
	MsgJSONRPCMissingRequestID        = ffe("VD010404", "Invalid JSON/RPC request. Must set request ID", 400)
	MsgJSONRPCUnsupportedMethod       = ffe("VD010405", "method not supported: %s", 404)
	MsgJSONRPCIncorrectParamCount     = ffe("VD010406", "method %s requires %d params (supplied=%d)", 400)
	MsgJSONRPCInvalidParam            = ffe("VD010407", "method %s parameter %d invalid: %s", 400)
	MsgJSONRPCResultSerialization     = ffe("VD010408", "method %s result serialization failed: %s", 500)
	MsgJSONRPCAsyncNonWSConn          = ffe("VD010409", "method %s only available on WebSocket connections", 400)
	MsgRPCClientInvalidHTTPURL        = ffe("VD010410", "Invalid HTTP URL: %s")
	MsgRPCClientRequestFailed         = ffe("VD010411", "JSON/RPC request failed: %s")
	MsgRPCClientResultParseFailed     = ffe("VD010412", "Failed to parse result (%T): %s")
	MsgRPCClientInvalidParam          = ffe("VD010413", "Invalid parameter at position %d for method %s: %s")
	MsgTLSInvalidCAFile               = ffe("VD010414", "Invalid CA certificates file")
	MsgTLSConfigFailed                = ffe("VD010415", "Failed to initialize TLS configuration")
	MsgTLSInvalidKeyPairFiles         = ffe("VD010416", "Invalid certificate and key pair files")
	MsgTLSInvalidTLSDnMatcherAttr     = ffe("VD010417", "Unknown DN attribute '%s'")
	MsgTLSInvalidTLSDnMatcherRegexp   = ffe("VD010418", "Invalid regexp '%s' for DN attribute '%s': %s")
	MsgTLSInvalidTLSDnChain           = ffe("VD010419", "Cannot match subject distinguished name as cert chain is not verified")
	MsgTLSInvalidTLSDnMismatch        = ffe("VD010420", "Certificate subject does not meet requirements")

	// Signing keys VD0105XX
	MsgSignKeyNoSource             = ffe("VD010500", "Node key configuration must supply one of seed, mnemonic or keystore file")
	MsgSignKeyBadSeed              = ffe("VD010501", "Node key seed must be 32 bytes of hex")
	MsgSignKeyBadMnemonic          = ffe("VD010502", "Invalid BIP-39 mnemonic for node key")
	MsgSignKeyKeystoreReadFailed   = ffe("VD010503", "Failed to read keystore file %s")
	MsgSignKeyKeystoreInvalid      = ffe("VD010504", "Invalid keystore v3 file %s")
	MsgSignKeySignFailed           = ffe("VD010505", "Signing failed")
	MsgSignKeyVerifyFailed         = ffe("VD010506", "Signature verification failed")
	MsgSignKeyWrongSigner          = ffe("VD010507", "Signature recovered address %s does not match expected %s", 401)

	// Ledger manager VD0106XX
	MsgLedgerUnknown                 = ffe("VD010600", "Unknown ledger '%s'", 404)
	MsgLedgerDuplicate               = ffe("VD010601", "Duplicate ledger '%s' in configuration")
	MsgLedgerBadAdapterType          = ffe("VD010602", "Unknown ledger adapter type '%s' for ledger '%s'")
	MsgLedgerSubmitFailed            = ffe("VD010603", "Submission to ledger '%s' failed")
	MsgLedgerSubmitPermanent         = ffe("VD010604", "Submission to ledger '%s' permanently rejected: %s")
	MsgLedgerTxNotFound              = ffe("VD010605", "Transaction '%s' not found on ledger '%s'", 404)
	MsgLedgerInsufficientBalance     = ffe("VD010606", "Insufficient balance on ledger '%s' account '%s' token '%s'")
	MsgLedgerEscrowMissing           = ffe("VD010607", "No escrow held on ledger '%s' for condition '%s' token '%s'")
	MsgLedgerNotStarted              = ffe("VD010608", "Ledger manager not started")
	MsgLedgerRemoteMissingURL        = ffe("VD010609", "Remote ledger '%s' requires a url")
	MsgLedgerSubmissionNotFound      = ffe("VD010610", "Submission '%s' not found", 404)
	MsgLedgerFinalityTimeout         = ffe("VD010611", "Timed out waiting for finality of transaction '%s' on ledger '%s'")

	// Relay manager VD0107XX
	MsgRelayUnknownPeer             = ffe("VD010700", "No peer registered for ledger '%s'", 404)
	MsgRelayInvalidMessage          = ffe("VD010701", "Invalid relay message: %s", 400)
	MsgRelayUnsupportedPayload      = ffe("VD010702", "Unsupported relay payload type '%s' (version %s)", 400)
	MsgRelayBadEnvelopeSignature    = ffe("VD010703", "Relay envelope signature invalid for peer '%s'", 401)
	MsgRelayWrongDestination        = ffe("VD010704", "Relay message destined for '%s' delivered to '%s'", 400)
	MsgRelayDeliveryExpired         = ffe("VD010705", "Delivery deadline passed for message %s (channel %s)")
	MsgRelayReceiverAlreadyBound    = ffe("VD010706", "Receiver already registered for payload type '%s'")
	MsgRelayNotStarted              = ffe("VD010707", "Relay manager not started")
	MsgRelaySendQueueClosed         = ffe("VD010708", "Relay send rejected - manager is closing")
	MsgRelayPeerSelfSend            = ffe("VD010709", "Cannot relay to the node's own ledger '%s'", 400)
	MsgRelayReceiverAfterStart      = ffe("VD010710", "Receiver for payload type '%s' registered after relay startup")
	MsgRelayPeerConfigInvalid       = ffe("VD010711", "Invalid configuration for relay peer '%s': %s")
	MsgRelayDeliveryResultMismatch  = ffe("VD010712", "Peer '%s' returned no delivery result for message %s")
	MsgRelayNackMissingError        = ffe("VD010713", "Message rejected by destination without error detail")

	// Oracle aggregator VD0108XX
	MsgOracleUnauthorizedSource     = ffe("VD010800", "Attestation source '%s' is not on the authorized source list", 401)
	MsgOracleRevokedSource          = ffe("VD010801", "Attestation source '%s' has been revoked", 401)
	MsgOracleBadSignature           = ffe("VD010802", "Attestation signature does not recover to source '%s'", 401)
	MsgOracleConditionUnknown       = ffe("VD010803", "Attestation for unknown condition '%s'", 404)
	MsgOracleConditionNotActive     = ffe("VD010804", "Condition '%s' is not accepting attestations (status=%s)", 409)
	MsgOracleBadCriteria            = ffe("VD010805", "Trigger criteria failed to compile: %s", 400)
	MsgOracleCriteriaHashMismatch   = ffe("VD010806", "Criteria hash mismatch for condition '%s'", 409)
	MsgOracleClaimInvalid           = ffe("VD010807", "Attestation claim is not valid JSON", 400)
	MsgOracleEvalFailed             = ffe("VD010808", "Trigger criteria evaluation failed: %s")
	MsgOracleSourceExists           = ffe("VD010809", "Source '%s' is already registered", 409)
	MsgOracleDuplicateAttestation   = ffe("VD010810", "Attestation from source '%s' already recorded for condition '%s'", 409)
	MsgOracleInvalidAttestation     = ffe("VD010811", "Invalid attestation: %s", 400)
	MsgOracleSourceConfigInvalid    = ffe("VD010812", "Invalid oracle source configuration at position %d: %s")

	// Condition state machine VD0109XX
	MsgConditionNotFound            = ffe("VD010900", "Condition '%s' not found", 404)
	MsgConditionBadType             = ffe("VD010901", "Unknown condition type '%s'", 400)
	MsgConditionNoStakeholders      = ffe("VD010902", "Condition requires at least one stakeholder", 400)
	MsgConditionNoBeneficiaries     = ffe("VD010903", "Condition requires at least one beneficiary", 400)
	MsgConditionBadExpiration       = ffe("VD010904", "expiration_time must be in the future", 400)
	MsgConditionBadDeadline         = ffe("VD010905", "execution_deadline must be at or after expiration_time", 400)
	MsgConditionBadCriteria         = ffe("VD010906", "trigger_criteria must be supplied", 400)
	MsgConditionBadAmount           = ffe("VD010907", "Stake and payout amounts must be positive", 400)
	MsgConditionUnknownLedger       = ffe("VD010908", "Condition references unknown ledger '%s'", 400)
	MsgConditionInvalidTransition   = ffe("VD010909", "Invalid status transition %s -> %s for condition '%s'", 409)
	MsgConditionTransitionConflict  = ffe("VD010910", "Concurrent transition detected for condition '%s' (expected status %s)", 409)
	MsgConditionNotCancellable      = ffe("VD010911", "Condition '%s' can no longer be cancelled (status=%s, attested=%t)", 409)
	MsgConditionCancelUnauthorized  = ffe("VD010912", "Only the creator or governance may cancel condition '%s'", 403)
	MsgConditionTerminal            = ffe("VD010913", "Condition '%s' is in terminal status %s", 409)
	MsgConditionMirrorHashMismatch  = ffe("VD010914", "Mirror global hash mismatch for condition '%s'", 409)
	MsgConditionVerdictHashMismatch = ffe("VD010915", "Verdict criteria hash does not match condition '%s'", 409)
	MsgConditionNotSource           = ffe("VD010916", "Node is not the source ledger for condition '%s' (source=%s)", 409)
	MsgConditionDisputeUnresolved   = ffe("VD010917", "Condition '%s' is disputed and awaiting resolution", 409)
	MsgConditionRulingInvalid       = ffe("VD010918", "Dispute ruling must be one of %s", 400)
	MsgConditionBadQuorum           = ffe("VD010919", "consensus_threshold must be between 50 and 100 and min_sources at least 1 (threshold=%v, minSources=%v)", 400)
	MsgConditionCreatorMissing      = ffe("VD010920", "Condition creator is required", 400)
	MsgConditionBadMilestones       = ffe("VD010921", "Beneficiary milestones must cover 0..%d with no gaps", 400)
	MsgConditionBadOutcomes         = ffe("VD010922", "Prediction market stakeholders and beneficiaries must declare outcomes on at least two sides", 400)
	MsgConditionStakeLockFailed     = ffe("VD010923", "Stake lock failed for condition '%s' on ledger '%s' (stakeholder=%s)", 500)
	MsgConditionRulingNotEffective  = ffe("VD010924", "Dispute ruling for condition '%s' is not effective until %s", 400)
	MsgConditionDuplicateStake      = ffe("VD010925", "Duplicate stakeholder entry for ledger '%s' address '%s' token '%s'", 400)

	// Settlement executor VD0110XX
	MsgSettleNoStrategy            = ffe("VD011000", "No distribution strategy registered for condition type '%s'")
	MsgSettleConservationViolation = ffe("VD011001", "CONSERVATION VIOLATION for condition '%s' token '%s': staked=%s planned=%s - settlement aborted for audit")
	MsgSettleLegNotFound           = ffe("VD011002", "Settlement leg '%s' not found", 404)
	MsgSettleLegAlreadyDispatched  = ffe("VD011003", "Settlement leg '%s' already dispatched", 409)
	MsgSettleNotTriggered          = ffe("VD011004", "Condition '%s' is not triggered (status=%s)", 409)
	MsgSettleNoVerdict             = ffe("VD011005", "No verdict recorded for condition '%s'", 409)
	MsgSettleOutcomeNoWinners      = ffe("VD011006", "Verdict outcome selects no beneficiaries for condition '%s'")
	MsgSettleBadInstruction        = ffe("VD011007", "Invalid payout instruction: %s", 400)

	// Governor VD0111XX
	MsgGovernorLedgerPaused        = ffe("VD011100", "Ledger '%s' is paused: %s", 423)
	MsgGovernorDenylisted          = ffe("VD011101", "Address '%s' on ledger '%s' is denylisted", 403)
	MsgGovernorVolumeCapExceeded   = ffe("VD011102", "Volume cap exceeded for '%s' on ledger '%s' (cap=%s, attempted=%s)", 429)
	MsgGovernorUnknownParameter    = ffe("VD011103", "Unknown governance parameter '%s'", 400)
	MsgGovernorParameterOutOfRange = ffe("VD011104", "Value '%s' out of range for parameter '%s' (%s)", 400)
	MsgGovernorNotPaused           = ffe("VD011105", "Ledger '%s' is not paused", 409)
	MsgGovernorSourceUnknown       = ffe("VD011106", "Oracle source '%s' is not registered", 404)
	MsgGovernorBadConfig           = ffe("VD011107", "Invalid governor configuration at %s: %s")
	MsgGovernorNotDenylisted       = ffe("VD011108", "Address '%s' on ledger '%s' is not denylisted", 404)
	MsgGovernorBadIdentity         = ffe("VD011109", "Oracle source identity '%s' is not a valid address", 400)

	// Utilities VD0112XX
	MsgContextCanceled             = ffe("VD011200", "Context canceled")
	MsgInflightRequestCancelled    = ffe("VD011201", "Request cancelled after %s")
	MsgRetryReachedLimit           = ffe("VD011202", "Retry limit %d reached for operation")
)
