package enum

// Tier is the enforcement tier derived from a confidence score.
type Tier string

const (
	TierNone           Tier = "none"
	TierSoft           Tier = "soft"
	TierHard           Tier = "hard"
	TierSuspensionRisk Tier = "suspension_risk"
)

// VisibilityTier describes how discoverable a user is.
type VisibilityTier string

const (
	VisibilityNormal VisibilityTier = "normal"
	VisibilityLow    VisibilityTier = "low"
	VisibilityHidden VisibilityTier = "hidden"
)

// AccountStatus is the state reported by the external account-status engine.
type AccountStatus string

const (
	AccountActive         AccountStatus = "active"
	AccountSoftRestricted AccountStatus = "soft_restricted"
	AccountHardRestricted AccountStatus = "hard_restricted"
	AccountSuspended      AccountStatus = "suspended"
)

// Severity orders account statuses from least to most restrictive.
func (s AccountStatus) Severity() int {
	switch s {
	case AccountSoftRestricted:
		return 1
	case AccountHardRestricted:
		return 2
	case AccountSuspended:
		return 3
	case AccountActive:
		return 0
	default:
		return 0
	}
}

// Feature locks written to the account-status engine.
const (
	FeatureLockDiscovery = "discovery"
	FeatureLockPosting   = "posting"
)

// NotificationLevel is the fixed set of enforcement levels users are told about.
type NotificationLevel string

const (
	NotificationSoft      NotificationLevel = "soft"
	NotificationHard      NotificationLevel = "hard"
	NotificationSuspended NotificationLevel = "suspended"
)

// ConfidenceSourceType identifies a signal feeding the confidence score.
type ConfidenceSourceType string

const (
	SourceAIScan           ConfidenceSourceType = "ai_scan"
	SourceTrustedModAction ConfidenceSourceType = "trusted_mod_action"
	SourceCommunityFlag    ConfidenceSourceType = "community_flag"
	SourceUserReport       ConfidenceSourceType = "user_report"
	SourceViolationHistory ConfidenceSourceType = "violation_history"
	SourceAnomalyDetection ConfidenceSourceType = "anomaly_detection"
)
