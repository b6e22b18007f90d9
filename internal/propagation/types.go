package propagation

// PropConfig holds propagation configuration.
type PropConfig struct {
	Workers  int // Worker pool size (default: runtime.NumCPU())
	MinSplit int // Ranges shorter than this run on the calling goroutine (default: 4096)
}

// DefaultMinSplit is the smallest range worth fanning out.
const DefaultMinSplit = 4096
