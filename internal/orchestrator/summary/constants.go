package summary

const (
	DefaultMinChars  = 50
	MinSentenceChars = 20
	MaxSentences     = 5

	// Length bounds requested from the remote summarizer.
	RemoteMaxLength = 150
	RemoteMinLength = 30
)
