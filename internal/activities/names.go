package activities

// Activity names as registered on the worker. Workflow code invokes
// activities by name so tests can substitute stubs.
const (
	ActivitySynthesizeQueries    = "SynthesizeQueries"
	ActivitySearch               = "Search"
	ActivityFetchPage            = "FetchPage"
	ActivityJudgeRelevance       = "JudgeRelevance"
	ActivitySelectNextResult     = "SelectNextResult"
	ActivityBuildDependencyGraph = "BuildDependencyGraph"
	ActivityFormatResult         = "FormatResult"
	ActivityGetSchedulerConfig   = "GetSchedulerConfig"
	ActivityRecordSearch         = "RecordSearch"
)
