package agent

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	minSegmentDuration = 0.1
	overlapTolerance   = 0.1
	minCoverageRatio   = 0.5
)

// Validator checks an agent-produced plan against the source videos. Hard
// errors drop the offending segment but leave the rest of the plan usable;
// messages prefixed "Warning:" are advisory. Both kinds are reported back so
// they can be persisted with the plan.
type Validator struct {
	durations map[string]float64
	total     float64
	multi     bool
}

func NewValidator(videos []VideoData) *Validator {
	v := &Validator{durations: map[string]float64{}, multi: len(videos) > 1}
	for _, vd := range videos {
		v.durations[vd.VideoID] = vd.Duration
		v.total += vd.Duration
	}
	return v
}

func (v *Validator) durationFor(videoID string) (float64, bool) {
	if d, ok := v.durations[videoID]; ok {
		return d, true
	}
	if !v.multi && videoID == "" {
		for _, d := range v.durations {
			return d, true
		}
	}
	return 0, false
}

// ValidatePlan sanitizes plan.EDL in place (clamping, rounding, dropping
// invalid segments) and returns whether the plan is usable plus all
// diagnostic messages. Advisory messages carry a "Warning:" prefix.
func (v *Validator) ValidatePlan(plan *EditPlan) (bool, []string) {
	valid, msgs, edl := v.validateEDL(plan.EDL)
	plan.EDL = edl

	saValid, saMsgs := v.validateStoryAnalysis(plan.StoryAnalysis)
	msgs = append(msgs, saMsgs...)
	kmValid, kmMsgs := v.validateKeyMoments(plan.KeyMoments)
	msgs = append(msgs, kmMsgs...)

	return valid && saValid && kmValid, msgs
}

func (v *Validator) validateEDL(edl []Segment) (bool, []string, []Segment) {
	var msgs []string
	hardErrors := 0

	sorted := make([]Segment, len(edl))
	copy(sorted, edl)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].VideoID != sorted[j].VideoID {
			return sorted[i].VideoID < sorted[j].VideoID
		}
		return sorted[i].Start < sorted[j].Start
	})

	kept := make([]Segment, 0, len(sorted))
	for i, seg := range sorted {
		dur, ok := v.durationFor(seg.VideoID)
		if !ok {
			msgs = append(msgs, fmt.Sprintf("segment %d references unknown video_id %q", i, seg.VideoID))
			hardErrors++
			continue
		}
		if seg.Start < 0 {
			msgs = append(msgs, fmt.Sprintf("Warning: segment %d start %.2f clamped to 0", i, seg.Start))
			seg.Start = 0
		}
		if seg.End > dur {
			msgs = append(msgs, fmt.Sprintf("Warning: segment %d end %.2f clamped to video duration %.2f", i, seg.End, dur))
			seg.End = dur
		}
		if seg.Start >= seg.End {
			msgs = append(msgs, fmt.Sprintf("segment %d has start %.2f >= end %.2f, dropping", i, seg.Start, seg.End))
			hardErrors++
			continue
		}
		if seg.Duration() < minSegmentDuration {
			msgs = append(msgs, fmt.Sprintf("segment %d is too short (%.3fs), dropping", i, seg.Duration()))
			hardErrors++
			continue
		}
		if seg.Duration() > 0.9*dur {
			msgs = append(msgs, fmt.Sprintf("Warning: segment %d spans %.0f%% of the video", i, 100*seg.Duration()/dur))
		}

		seg.Start = round2(seg.Start)
		seg.End = round2(seg.End)
		if seg.Type == "" {
			seg.Type = SegmentKeep
		}
		kept = append(kept, seg)
	}

	// overlap check between adjacent non-transition segments of one video
	for i := 0; i+1 < len(kept); i++ {
		cur, next := kept[i], kept[i+1]
		if cur.VideoID != next.VideoID {
			continue
		}
		if cur.Type == SegmentTransition || next.Type == SegmentTransition {
			continue
		}
		if cur.End > next.Start+overlapTolerance {
			msgs = append(msgs, fmt.Sprintf("Warning: segments overlap at %.2fs - %.2fs", next.Start, cur.End))
		}
	}

	var keepTotal float64
	for _, seg := range kept {
		if seg.Type == SegmentKeep {
			keepTotal += seg.Duration()
		}
	}
	if v.total > 0 && keepTotal/v.total < minCoverageRatio {
		msgs = append(msgs, fmt.Sprintf("Warning: EDL only covers %.0f%% of video", 100*keepTotal/v.total))
	}

	return hardErrors == 0, msgs, kept
}

func (v *Validator) validateStoryAnalysis(sa StoryAnalysis) (bool, []string) {
	var msgs []string
	ok := true
	if sa.HookTimestamp < 0 || sa.HookTimestamp > v.total {
		msgs = append(msgs, fmt.Sprintf("hook_timestamp %.2f is outside [0, %.2f]", sa.HookTimestamp, v.total))
		ok = false
	}
	if sa.ClimaxTimestamp < 0 || sa.ClimaxTimestamp > v.total {
		msgs = append(msgs, fmt.Sprintf("climax_timestamp %.2f is outside [0, %.2f]", sa.ClimaxTimestamp, v.total))
		ok = false
	}
	if sa.ResolutionTimestamp != nil {
		if r := *sa.ResolutionTimestamp; r < 0 || r > v.total {
			msgs = append(msgs, fmt.Sprintf("resolution_timestamp %.2f is outside [0, %.2f]", r, v.total))
			ok = false
		}
	}
	return ok, msgs
}

func (v *Validator) validateKeyMoments(moments []KeyMoment) (bool, []string) {
	var msgs []string
	ok := true
	for i, m := range moments {
		if m.Start < 0 || m.End > v.total || m.Start >= m.End {
			msgs = append(msgs, fmt.Sprintf("key moment %d has invalid range %.2f - %.2f", i, m.Start, m.End))
			ok = false
		}
	}
	return ok, msgs
}

// HasHardErrors reports whether any message is a hard error rather than a
// warning.
func HasHardErrors(msgs []string) bool {
	for _, m := range msgs {
		if !strings.HasPrefix(m, "Warning:") {
			return true
		}
	}
	return false
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
