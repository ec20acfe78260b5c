package audio

// Processor defines an interface for audio analysis operations.
type Processor interface {
	GetAudioDuration(inputFile string) (float32, error)
}
