package agent

import "sort"

// ConvertToRenderEDL reduces a validated agent EDL to the keep windows the
// renderer cuts. Segments are ordered by (video_id, start) and same-source
// segments that touch or overlap are merged.
func ConvertToRenderEDL(edl []Segment) []RenderSegment {
	keeps := make([]RenderSegment, 0, len(edl))
	for _, seg := range edl {
		if seg.Type != SegmentKeep {
			continue
		}
		keeps = append(keeps, RenderSegment{Start: seg.Start, End: seg.End, VideoID: seg.VideoID})
	}
	sort.SliceStable(keeps, func(i, j int) bool {
		if keeps[i].VideoID != keeps[j].VideoID {
			return keeps[i].VideoID < keeps[j].VideoID
		}
		return keeps[i].Start < keeps[j].Start
	})

	merged := make([]RenderSegment, 0, len(keeps))
	for _, seg := range keeps {
		if n := len(merged); n > 0 {
			prev := &merged[n-1]
			if prev.VideoID == seg.VideoID && prev.End >= seg.Start {
				if seg.End > prev.End {
					prev.End = seg.End
				}
				continue
			}
		}
		merged = append(merged, seg)
	}
	return merged
}

// ExtractTransitions pulls transition entries out of an agent EDL,
// defaulting type to "fade" and duration to half a second.
func ExtractTransitions(edl []Segment) []Transition {
	var out []Transition
	for _, seg := range edl {
		if seg.Type != SegmentTransition {
			continue
		}
		t := Transition{
			FromTimestamp: seg.Start,
			ToTimestamp:   seg.End,
			Type:          seg.TransitionType,
			Duration:      seg.TransitionDuration,
		}
		if t.Type == "" {
			t.Type = "fade"
		}
		if t.Duration <= 0 {
			t.Duration = 0.5
		}
		out = append(out, t)
	}
	return out
}

// KeepDuration sums the durations of a render EDL.
func KeepDuration(edl []RenderSegment) float64 {
	var total float64
	for _, seg := range edl {
		total += seg.End - seg.Start
	}
	return total
}
