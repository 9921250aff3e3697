package imagecompress

// Status is the outcome of compressing a single file.
type Status string

const (
	StatusCompressed Status = "compressed"
	StatusFailed     Status = "failed"
)

// FileResult records what happened to one image.
type FileResult struct {
	Name         string
	OutputPath   string
	Status       Status
	Err          error
	BytesRead    int64
	BytesWritten int64
}

// Summary collects the results of one pass.
type Summary struct {
	Results []FileResult
	// Matched counts entries classified as images.
	Matched    int
	Compressed int
	Failed     int
	// Skipped counts non-regular entries and files that are not images.
	Skipped int
}

func (s *Summary) add(r FileResult) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case StatusCompressed:
		s.Compressed++
	case StatusFailed:
		s.Failed++
	}
}
