package vad

// Stats is a snapshot of a detector's running counters. Level figures are
// normalized by MaxLevel; MinRMS is 0 until the first chunk.
type Stats struct {
	TotalChunks      int     `json:"total_chunks"`
	SpeechChunks     int     `json:"speech_chunks"`
	SilenceChunks    int     `json:"silence_chunks"`
	SpeechRatio      float64 `json:"speech_ratio"`
	SpeechSegments   int     `json:"speech_segments"`
	AvgRMS           float64 `json:"avg_rms"`
	MinRMS           float64 `json:"min_rms"`
	MaxRMS           float64 `json:"max_rms"`
	CurrentThreshold float64 `json:"current_threshold"`

	// TruncatedChunks counts chunks that were cut to a whole number of frames.
	TruncatedChunks int `json:"truncated_chunks"`
}
