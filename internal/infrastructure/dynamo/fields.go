package dynamo

// DynamoDB attribute names used in key, update and condition expressions.
// Keep in sync with the dynamodbav tags on domain.OTPRecord.
const (
	fieldEmail      = "email"
	fieldIssuanceID = "issuance_id"
	fieldUsed       = "used"
	fieldAttempts   = "attempts"
	fieldPurgeAt    = "purge_at"
)
