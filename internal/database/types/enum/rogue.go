package enum

// RoguePattern is a behavioral pattern that marks a moderator as suspicious.
type RoguePattern string

const (
	RoguePatternHighReversal    RoguePattern = "high_reversal_rate"
	RoguePatternExcessiveVolume RoguePattern = "excessive_volume"
	RoguePatternTargetedActions RoguePattern = "targeted_actions"
	RoguePatternTimeClustering  RoguePattern = "time_clustering"
	RoguePatternRestrictiveBias RoguePattern = "restrictive_bias"
)
