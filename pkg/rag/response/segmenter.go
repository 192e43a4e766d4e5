package response

// SegmentLimit is the outbound transport's per-message size cap.
const SegmentLimit = 4000

// Segment splits an answer into consecutive fixed-size pieces whose
// concatenation reproduces the original exactly. Purely a transport concern:
// content is never altered.
func Segment(answer string) []string {
	if answer == "" {
		return nil
	}

	segments := make([]string, 0, len(answer)/SegmentLimit+1)
	for start := 0; start < len(answer); start += SegmentLimit {
		end := start + SegmentLimit
		if end > len(answer) {
			end = len(answer)
		}
		segments = append(segments, answer[start:end])
	}
	return segments
}
